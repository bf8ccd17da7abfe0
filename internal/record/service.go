package record

import (
	"context"
	"fmt"

	"github.com/hufs-wider/wider/internal/model"
	"github.com/hufs-wider/wider/internal/repository"
)

// Service はセッション記録の参照系ユースケースを提供する。
type Service struct {
	repo repository.SessionRecordRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.SessionRecordRepository) *Service {
	return &Service{repo: repo}
}

// LatestSessions はユーザーのトピックごとの最新セッションを返す。
func (s *Service) LatestSessions(ctx context.Context, userID string) ([]*model.SessionRecord, error) {
	sessions, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("セッション記録の取得に失敗しました: %w", err)
	}
	return LatestPerTopic(sessions), nil
}

// MonthlyHistogram はユーザーの完了セッションの月別Bloomレベル分布を返す。
func (s *Service) MonthlyHistogram(ctx context.Context, userID string) ([]model.MonthlyBloomCount, error) {
	sessions, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("セッション記録の取得に失敗しました: %w", err)
	}
	return MonthlyHistogram(sessions), nil
}

// LevelProgress はユーザーの各セッションで到達した最大Bloomレベルを返す。
func (s *Service) LevelProgress(ctx context.Context, userID string) ([]model.LevelProgress, error) {
	progress, err := s.repo.ListLevelProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("到達レベルの取得に失敗しました: %w", err)
	}
	return progress, nil
}

// Owned は指定セッションがユーザーのものであることを確認する。
// 存在しない場合はSESSION_NOT_FOUND、他ユーザーのものであればFORBIDDENを返す。
func (s *Service) Owned(ctx context.Context, userID, sessionID string) (*model.SessionRecord, error) {
	rec, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("セッション記録の取得に失敗しました: %w", err)
	}
	if rec == nil {
		return nil, model.NewSessionNotFoundError(sessionID)
	}
	if rec.UserID != userID {
		return nil, model.NewForbiddenError()
	}
	return rec, nil
}
