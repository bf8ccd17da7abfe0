package handler

import (
	"context"
	"net/http"

	"github.com/hufs-wider/wider/internal/auth"
	"github.com/hufs-wider/wider/internal/chatbot"
	"github.com/hufs-wider/wider/internal/middleware"
	"github.com/hufs-wider/wider/internal/model"
	"github.com/hufs-wider/wider/internal/user"
)

// --- モック定義 ---

type mockAuthService struct {
	signUpFn         func(ctx context.Context, in auth.SignUpInput) (*model.User, error)
	signInFn         func(ctx context.Context, userID, password string) (*auth.SignInResult, error)
	changePasswordFn func(ctx context.Context, userID, current, new1, new2 string) error
}

func (m *mockAuthService) SignUp(ctx context.Context, in auth.SignUpInput) (*model.User, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, in)
	}
	return &model.User{UserID: in.UserID}, nil
}

func (m *mockAuthService) SignIn(ctx context.Context, userID, password string) (*auth.SignInResult, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, userID, password)
	}
	return &auth.SignInResult{User: &model.User{UserID: userID}, Token: "token"}, nil
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID, current, new1, new2 string) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, userID, current, new1, new2)
	}
	return nil
}

type mockUserService struct {
	getFn    func(ctx context.Context, userID string) (*model.User, error)
	updateFn func(ctx context.Context, in user.UpdateInput) (*model.User, error)
	deleteFn func(ctx context.Context, userID string) error
}

func (m *mockUserService) Get(ctx context.Context, userID string) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return &model.User{UserID: userID}, nil
}

func (m *mockUserService) Update(ctx context.Context, in user.UpdateInput) (*model.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, in)
	}
	return &model.User{UserID: in.UserID}, nil
}

func (m *mockUserService) Delete(ctx context.Context, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID)
	}
	return nil
}

type mockRecordService struct {
	latestFn    func(ctx context.Context, userID string) ([]*model.SessionRecord, error)
	histogramFn func(ctx context.Context, userID string) ([]model.MonthlyBloomCount, error)
	progressFn  func(ctx context.Context, userID string) ([]model.LevelProgress, error)
	ownedFn     func(ctx context.Context, userID, sessionID string) (*model.SessionRecord, error)
}

func (m *mockRecordService) LatestSessions(ctx context.Context, userID string) ([]*model.SessionRecord, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, userID)
	}
	return []*model.SessionRecord{}, nil
}

func (m *mockRecordService) MonthlyHistogram(ctx context.Context, userID string) ([]model.MonthlyBloomCount, error) {
	if m.histogramFn != nil {
		return m.histogramFn(ctx, userID)
	}
	return []model.MonthlyBloomCount{}, nil
}

func (m *mockRecordService) LevelProgress(ctx context.Context, userID string) ([]model.LevelProgress, error) {
	if m.progressFn != nil {
		return m.progressFn(ctx, userID)
	}
	return []model.LevelProgress{}, nil
}

func (m *mockRecordService) Owned(ctx context.Context, userID, sessionID string) (*model.SessionRecord, error) {
	if m.ownedFn != nil {
		return m.ownedFn(ctx, userID, sessionID)
	}
	return &model.SessionRecord{SessionID: sessionID, UserID: userID}, nil
}

type mockChatService struct {
	startFn   func(ctx context.Context, userID, authorization string, req chatbot.StartRequest) (*chatbot.ChatResponse, error)
	respondFn func(ctx context.Context, userID, authorization string, req chatbot.RespondRequest) (*chatbot.ChatResponse, error)
	endFn     func(ctx context.Context, userID, authorization string, req chatbot.EndRequest) (*chatbot.EndResponse, error)
	historyFn func(ctx context.Context, userID, authorization, sessionID string) (*chatbot.ConversationHistory, error)
}

func (m *mockChatService) Start(ctx context.Context, userID, authorization string, req chatbot.StartRequest) (*chatbot.ChatResponse, error) {
	if m.startFn != nil {
		return m.startFn(ctx, userID, authorization, req)
	}
	return &chatbot.ChatResponse{SessionID: "s-1"}, nil
}

func (m *mockChatService) Respond(ctx context.Context, userID, authorization string, req chatbot.RespondRequest) (*chatbot.ChatResponse, error) {
	if m.respondFn != nil {
		return m.respondFn(ctx, userID, authorization, req)
	}
	return &chatbot.ChatResponse{SessionID: req.SessionID}, nil
}

func (m *mockChatService) End(ctx context.Context, userID, authorization string, req chatbot.EndRequest) (*chatbot.EndResponse, error) {
	if m.endFn != nil {
		return m.endFn(ctx, userID, authorization, req)
	}
	return &chatbot.EndResponse{SessionID: req.SessionID}, nil
}

func (m *mockChatService) History(ctx context.Context, userID, authorization, sessionID string) (*chatbot.ConversationHistory, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, userID, authorization, sessionID)
	}
	return &chatbot.ConversationHistory{SessionID: sessionID, Messages: []chatbot.ConversationMessage{}}, nil
}

type mockSignInRecorder struct {
	results []bool
}

func (m *mockSignInRecorder) RecordSignIn(success bool) {
	m.results = append(m.results, success)
}

var (
	_ AuthServiceInterface   = (*mockAuthService)(nil)
	_ UserServiceInterface   = (*mockUserService)(nil)
	_ RecordServiceInterface = (*mockRecordService)(nil)
	_ ChatServiceInterface   = (*mockChatService)(nil)
	_ SignInRecorder         = (*mockSignInRecorder)(nil)
)

// withUserID はテスト用にリクエストコンテキストへ認証情報を注入する。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	ctx = middleware.ContextWithAuthorization(ctx, "Bearer test-token")
	return r.WithContext(ctx)
}
