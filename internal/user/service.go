// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hufs-wider/wider/internal/auth"
	"github.com/hufs-wider/wider/internal/model"
	"github.com/hufs-wider/wider/internal/repository"
)

// SessionRecordDeleter はセッション記録の一括削除インターフェース。
type SessionRecordDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// UpdateInput はプロフィール更新の入力値。
// Passwordが空の場合はパスワードを変更しない。
type UpdateInput struct {
	UserID    string
	Password  string
	BirthDate string
	Gender    string
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo      repository.UserRepository
	recordDeleter SessionRecordDeleter
	hasher        auth.Hasher
	now           func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	recordDeleter SessionRecordDeleter,
	hasher auth.Hasher,
) *Service {
	return &Service{
		userRepo:      userRepo,
		recordDeleter: recordDeleter,
		hasher:        hasher,
		now:           time.Now,
	}
}

// Get はユーザー情報を取得する。
func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Exists はユーザーIDが登録済みかを返す。
func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	exists, err := s.userRepo.ExistsByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("ユーザーの存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Update は生年月日・性別、および指定があればパスワードを更新する。
// 空の項目は既存の値を維持する。
func (s *Service) Update(ctx context.Context, in UpdateInput) (*model.User, error) {
	user, err := s.Get(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Gender) != "" {
		gender, ok := model.ParseGender(in.Gender)
		if !ok {
			return nil, model.NewValidationError("gender must be MALE or FEMALE")
		}
		user.Gender = gender
	}
	if strings.TrimSpace(in.BirthDate) != "" {
		birthDate, err := auth.ParseBirthDate(in.BirthDate)
		if err != nil {
			return nil, err
		}
		user.BirthDate = birthDate
	}
	if in.Password != "" {
		if strings.TrimSpace(in.Password) == "" {
			return nil, model.NewValidationError("password must not be blank")
		}
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = s.now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}

	slog.Info("user profile updated", slog.String("user_id", in.UserID))
	return user, nil
}

// Delete はユーザーを削除する。
// 削除順序: session_logs → user（+ CASCADE: questions）
func (s *Service) Delete(ctx context.Context, userID string) error {
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}

	slog.Info("ユーザー削除を開始します",
		slog.String("user_id", userID),
	)

	if s.recordDeleter != nil {
		if err := s.recordDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッション記録の削除に失敗しました: %w", err)
		}
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("ユーザー削除が完了しました",
		slog.String("user_id", userID),
	)
	return nil
}
