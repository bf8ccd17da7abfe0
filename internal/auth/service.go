// Package auth はユーザー登録・サインイン・パスワード変更を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hufs-wider/wider/internal/model"
	"github.com/hufs-wider/wider/internal/repository"
)

// dateLayout は生年月日の入力書式。
const dateLayout = "2006-01-02"

// TokenIssuer はサインイン成功時に識別トークンを発行するインターフェース。
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// SignUpInput はユーザー登録の入力値。
type SignUpInput struct {
	UserID    string
	Password  string
	BirthDate string // "2006-01-02" 形式、空の場合は未設定
	Gender    string // MALE / FEMALE（大文字小文字は区別しない）
}

// SignInResult はサインイン結果を表す。
type SignInResult struct {
	User  *model.User
	Token string
}

// Service は認証情報のライフサイクルを管理する。
type Service struct {
	userRepo repository.UserRepository
	hasher   Hasher
	tokens   TokenIssuer
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, hasher Hasher, tokens TokenIssuer) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		now:      time.Now,
	}
}

// SignUp はユーザーを登録する。
// パスワードはハッシュ値のみを保存する。
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*model.User, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, model.NewValidationError("user_id is required")
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, model.NewValidationError("password must not be blank")
	}
	gender, ok := model.ParseGender(in.Gender)
	if !ok {
		return nil, model.NewValidationError("gender must be MALE or FEMALE")
	}
	birthDate, err := ParseBirthDate(in.BirthDate)
	if err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの存在確認に失敗しました: %w", err)
	}
	if exists {
		return nil, model.NewUserAlreadyExistsError(userID)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &model.User{
		UserID:       userID,
		PasswordHash: hash,
		BirthDate:    birthDate,
		Gender:       gender,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if model.IsCode(err, model.ErrCodeUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("user signed up", slog.String("user_id", userID))
	return user, nil
}

// SignIn はユーザーIDとパスワードを照合し、識別トークンを発行する。
// ユーザーが存在しない場合とパスワード不一致の場合は同一のエラーを返す。
func (s *Service) SignIn(ctx context.Context, userID, password string) (*SignInResult, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewAuthenticationError()
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewAuthenticationError()
	}

	tok, err := s.tokens.Issue(user.UserID)
	if err != nil {
		return nil, fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	slog.Info("user signed in", slog.String("user_id", user.UserID))
	return &SignInResult{User: user, Token: tok}, nil
}

// ChangePassword は現在のパスワードを再確認した上でパスワードを変更する。
// 新しいパスワードの確認入力が一致しない場合は、ストアにアクセスせずに失敗する。
func (s *Service) ChangePassword(ctx context.Context, userID, current, new1, new2 string) error {
	if new1 != new2 {
		return model.NewValidationError("new passwords do not match")
	}
	if strings.TrimSpace(new1) == "" {
		return model.NewValidationError("new password must not be blank")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	ok, err := s.hasher.Compare(user.PasswordHash, current)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewAuthenticationError()
	}

	hash, err := s.hasher.Hash(new1)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("パスワードの更新に失敗しました: %w", err)
	}

	slog.Info("password changed", slog.String("user_id", userID))
	return nil
}

// ParseBirthDate は "2006-01-02" 形式の生年月日を解析する。空文字はゼロ値を返す。
func ParseBirthDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, model.NewValidationError("birth_date must be YYYY-MM-DD")
	}
	return t, nil
}
