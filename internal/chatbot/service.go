package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hufs-wider/wider/internal/model"
	"github.com/hufs-wider/wider/internal/repository"
	"github.com/hufs-wider/wider/internal/security"
)

// Upstream はチャットボットサービス呼び出しのインターフェース。
type Upstream interface {
	Start(ctx context.Context, authorization string, req StartRequest) (*ChatResponse, error)
	Respond(ctx context.Context, authorization string, req RespondRequest) (*ChatResponse, error)
	End(ctx context.Context, authorization string, req EndRequest) (*EndResponse, error)
	History(ctx context.Context, authorization, sessionID string) (*ConversationHistory, error)
}

// Service はチャットボットへの中継とセッション記録の更新を行う。
// セッション記録はチャットボット側でも作成されるため、ローカルの更新は失敗しても応答を返す。
type Service struct {
	upstream  Upstream
	records   repository.SessionRecordRepository
	sanitizer security.MessageSanitizer
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	upstream Upstream,
	records repository.SessionRecordRepository,
	sanitizer security.MessageSanitizer,
	logger *slog.Logger,
) *Service {
	return &Service{
		upstream:  upstream,
		records:   records,
		sanitizer: sanitizer,
		logger:    logger,
		now:       time.Now,
	}
}

// Start は会話を開始し、セッション記録を作成する。
func (s *Service) Start(ctx context.Context, userID, authorization string, req StartRequest) (*ChatResponse, error) {
	req.Topic = strings.TrimSpace(req.Topic)

	resp, err := s.upstream.Start(ctx, authorization, req)
	if err != nil {
		return nil, err
	}

	level := resp.CurrentLevel
	if level < 1 {
		level = 1
	}
	created, err := s.records.Create(ctx, &model.SessionRecord{
		SessionID:  resp.SessionID,
		UserID:     userID,
		Topic:      resp.Topic,
		StartedAt:  s.now().UTC(),
		BloomLevel: level,
	})
	if err != nil {
		s.logger.Warn("failed to record chat session",
			slog.String("session_id", resp.SessionID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.Info("chat session started",
			slog.String("session_id", resp.SessionID),
			slog.String("user_id", userID),
			slog.Bool("recorded_locally", created),
		)
	}

	s.sanitizeChat(resp)
	return resp, nil
}

// Respond はユーザーの回答を中継し、到達レベルを記録する。
func (s *Service) Respond(ctx context.Context, userID, authorization string, req RespondRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, model.NewValidationError("session_id is required")
	}
	if strings.TrimSpace(req.UserAnswer) == "" {
		return nil, model.NewValidationError("user_answer must not be blank")
	}
	if err := s.checkOwner(ctx, userID, req.SessionID); err != nil {
		return nil, err
	}

	resp, err := s.upstream.Respond(ctx, authorization, req)
	if err != nil {
		return nil, err
	}

	if resp.CurrentLevel > 0 {
		if err := s.records.UpdateBloomLevel(ctx, resp.SessionID, resp.CurrentLevel); err != nil {
			s.logger.Warn("failed to update bloom level",
				slog.String("session_id", resp.SessionID),
				slog.String("error", err.Error()),
			)
		}
	}
	if resp.IsComplete {
		s.markCompleted(ctx, resp.SessionID)
	}

	s.sanitizeChat(resp)
	return resp, nil
}

// End は会話を終了し、セッションを完了状態にする。
func (s *Service) End(ctx context.Context, userID, authorization string, req EndRequest) (*EndResponse, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, model.NewValidationError("session_id is required")
	}
	if err := s.checkOwner(ctx, userID, req.SessionID); err != nil {
		return nil, err
	}

	resp, err := s.upstream.End(ctx, authorization, req)
	if err != nil {
		return nil, err
	}

	s.markCompleted(ctx, req.SessionID)
	resp.Message = s.sanitizer.Sanitize(resp.Message)
	return resp, nil
}

// History はセッションの会話履歴を取得し、メッセージ本文をサニタイズして返す。
func (s *Service) History(ctx context.Context, userID, authorization, sessionID string) (*ConversationHistory, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, model.NewValidationError("session_id is required")
	}
	if err := s.checkOwner(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	history, err := s.upstream.History(ctx, authorization, sessionID)
	if err != nil {
		return nil, err
	}

	for i := range history.Messages {
		history.Messages[i].Content = s.sanitizer.Sanitize(history.Messages[i].Content)
	}
	return history, nil
}

// checkOwner はローカルに記録されたセッションが他ユーザーのものであればFORBIDDENを返す。
// ローカルに記録がない場合はチャットボット側の判断に委ねる。
func (s *Service) checkOwner(ctx context.Context, userID, sessionID string) error {
	rec, err := s.records.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("セッション記録の取得に失敗しました: %w", err)
	}
	if rec != nil && rec.UserID != userID {
		return model.NewForbiddenError()
	}
	return nil
}

func (s *Service) markCompleted(ctx context.Context, sessionID string) {
	ok, err := s.records.MarkCompleted(ctx, sessionID, s.now().UTC())
	if err != nil {
		s.logger.Warn("failed to mark session completed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return
	}
	if !ok {
		s.logger.Info("completed session has no local record",
			slog.String("session_id", sessionID),
		)
	}
}

func (s *Service) sanitizeChat(resp *ChatResponse) {
	resp.Message = s.sanitizer.Sanitize(resp.Message)
	if resp.Question != nil {
		q := s.sanitizer.Sanitize(*resp.Question)
		resp.Question = &q
	}
}

var _ Upstream = (*Client)(nil)
