package chatbot

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hufs-wider/wider/internal/model"
	"github.com/hufs-wider/wider/internal/repository"
)

// --- モック ---

type mockUpstream struct {
	startFn   func(ctx context.Context, authorization string, req StartRequest) (*ChatResponse, error)
	respondFn func(ctx context.Context, authorization string, req RespondRequest) (*ChatResponse, error)
	endFn     func(ctx context.Context, authorization string, req EndRequest) (*EndResponse, error)
	historyFn func(ctx context.Context, authorization, sessionID string) (*ConversationHistory, error)
	calls     int
}

func (m *mockUpstream) Start(ctx context.Context, authorization string, req StartRequest) (*ChatResponse, error) {
	m.calls++
	return m.startFn(ctx, authorization, req)
}

func (m *mockUpstream) Respond(ctx context.Context, authorization string, req RespondRequest) (*ChatResponse, error) {
	m.calls++
	return m.respondFn(ctx, authorization, req)
}

func (m *mockUpstream) End(ctx context.Context, authorization string, req EndRequest) (*EndResponse, error) {
	m.calls++
	return m.endFn(ctx, authorization, req)
}

func (m *mockUpstream) History(ctx context.Context, authorization, sessionID string) (*ConversationHistory, error) {
	m.calls++
	return m.historyFn(ctx, authorization, sessionID)
}

type mockRecordRepo struct {
	records      map[string]*model.SessionRecord
	createErr    error
	findErr      error
	levelUpdates map[string]int
	completed    []string
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{
		records:      make(map[string]*model.SessionRecord),
		levelUpdates: make(map[string]int),
	}
}

func (m *mockRecordRepo) ListByUserID(_ context.Context, _ string) ([]*model.SessionRecord, error) {
	return []*model.SessionRecord{}, nil
}

func (m *mockRecordRepo) FindByID(_ context.Context, sessionID string) (*model.SessionRecord, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.records[sessionID], nil
}

func (m *mockRecordRepo) Create(_ context.Context, rec *model.SessionRecord) (bool, error) {
	if m.createErr != nil {
		return false, m.createErr
	}
	if _, ok := m.records[rec.SessionID]; ok {
		return false, nil
	}
	m.records[rec.SessionID] = rec
	return true, nil
}

func (m *mockRecordRepo) UpdateBloomLevel(_ context.Context, sessionID string, level int) error {
	m.levelUpdates[sessionID] = level
	return nil
}

func (m *mockRecordRepo) MarkCompleted(_ context.Context, sessionID string, _ time.Time) (bool, error) {
	m.completed = append(m.completed, sessionID)
	_, ok := m.records[sessionID]
	return ok, nil
}

func (m *mockRecordRepo) DeleteByUserID(_ context.Context, _ string) error { return nil }

func (m *mockRecordRepo) ListLevelProgress(_ context.Context, _ string) ([]model.LevelProgress, error) {
	return []model.LevelProgress{}, nil
}

var _ repository.SessionRecordRepository = (*mockRecordRepo)(nil)

type scriptStripper struct{}

func (scriptStripper) Sanitize(s string) string { return strings.ReplaceAll(s, "<script>", "") }

func newTestService(up Upstream, repo *mockRecordRepo) (*Service, *bytes.Buffer) {
	var buf bytes.Buffer
	svc := NewService(up, repo, scriptStripper{}, newTestLogger(&buf))
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc, &buf
}

func strPtr(s string) *string { return &s }

// --- テスト ---

func TestService_Start_CreatesLocalRecord(t *testing.T) {
	up := &mockUpstream{
		startFn: func(_ context.Context, authorization string, req StartRequest) (*ChatResponse, error) {
			if authorization != "Bearer t" {
				t.Errorf("authorization = %q, want Bearer t", authorization)
			}
			if req.Topic != "bio" {
				t.Errorf("Topic = %q, want bio (trimmed)", req.Topic)
			}
			return &ChatResponse{SessionID: "s-1", Topic: "bio", CurrentLevel: 0, Message: "<script>hi"}, nil
		},
	}
	repo := newMockRecordRepo()
	svc, _ := newTestService(up, repo)

	resp, err := svc.Start(context.Background(), "alice", "Bearer t", StartRequest{Topic: "  bio "})
	if err != nil {
		t.Fatalf("Start がエラーを返した: %v", err)
	}
	if resp.Message != "hi" {
		t.Errorf("Message = %q, want sanitized hi", resp.Message)
	}

	rec := repo.records["s-1"]
	if rec == nil {
		t.Fatal("セッション記録が作成されていない")
	}
	if rec.UserID != "alice" || rec.Topic != "bio" {
		t.Errorf("記録 = %+v", rec)
	}
	if rec.BloomLevel != 1 {
		t.Errorf("BloomLevel = %d, want 1", rec.BloomLevel)
	}
	if !rec.StartedAt.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("StartedAt = %v", rec.StartedAt)
	}
}

func TestService_Start_RecordFailureStillReturnsResponse(t *testing.T) {
	up := &mockUpstream{
		startFn: func(context.Context, string, StartRequest) (*ChatResponse, error) {
			return &ChatResponse{SessionID: "s-1", Topic: "bio", CurrentLevel: 1}, nil
		},
	}
	repo := newMockRecordRepo()
	repo.createErr = errors.New("db down")
	svc, logs := newTestService(up, repo)

	resp, err := svc.Start(context.Background(), "alice", "Bearer t", StartRequest{})
	if err != nil {
		t.Fatalf("Start がエラーを返した: %v", err)
	}
	if resp.SessionID != "s-1" {
		t.Errorf("SessionID = %q, want s-1", resp.SessionID)
	}
	if !strings.Contains(logs.String(), "failed to record chat session") {
		t.Errorf("警告ログが出力されていない: %s", logs.String())
	}
}

func TestService_Start_UpstreamError(t *testing.T) {
	upErr := model.NewUpstreamError("status 500", nil)
	up := &mockUpstream{
		startFn: func(context.Context, string, StartRequest) (*ChatResponse, error) {
			return nil, upErr
		},
	}
	repo := newMockRecordRepo()
	svc, _ := newTestService(up, repo)

	_, err := svc.Start(context.Background(), "alice", "Bearer t", StartRequest{})
	if !model.IsCode(err, model.ErrCodeUpstream) {
		t.Fatalf("エラー = %v, want UPSTREAM_FAILED", err)
	}
	if len(repo.records) != 0 {
		t.Errorf("上流失敗時に記録が作成された: %v", repo.records)
	}
}

func TestService_Respond_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  RespondRequest
	}{
		{name: "missing session id", req: RespondRequest{UserAnswer: "a"}},
		{name: "blank answer", req: RespondRequest{SessionID: "s-1", UserAnswer: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &mockUpstream{}
			svc, _ := newTestService(up, newMockRecordRepo())

			_, err := svc.Respond(context.Background(), "alice", "Bearer t", tt.req)
			if !model.IsCode(err, model.ErrCodeValidation) {
				t.Errorf("エラー = %v, want VALIDATION_FAILED", err)
			}
			if up.calls != 0 {
				t.Errorf("上流が呼ばれた: %d", up.calls)
			}
		})
	}
}

func TestService_Respond_ForeignSessionForbidden(t *testing.T) {
	repo := newMockRecordRepo()
	repo.records["s-1"] = &model.SessionRecord{SessionID: "s-1", UserID: "bob"}
	up := &mockUpstream{}
	svc, _ := newTestService(up, repo)

	_, err := svc.Respond(context.Background(), "alice", "Bearer t", RespondRequest{SessionID: "s-1", UserAnswer: "a"})
	if !model.IsCode(err, model.ErrCodeForbidden) {
		t.Fatalf("エラー = %v, want FORBIDDEN", err)
	}
	if up.calls != 0 {
		t.Errorf("上流が呼ばれた: %d", up.calls)
	}
}

func TestService_Respond_UpdatesLevelAndCompletes(t *testing.T) {
	repo := newMockRecordRepo()
	repo.records["s-1"] = &model.SessionRecord{SessionID: "s-1", UserID: "alice"}
	up := &mockUpstream{
		respondFn: func(_ context.Context, _ string, req RespondRequest) (*ChatResponse, error) {
			return &ChatResponse{SessionID: req.SessionID, CurrentLevel: 4, Question: strPtr("<script>next"), IsComplete: true}, nil
		},
	}
	svc, _ := newTestService(up, repo)

	resp, err := svc.Respond(context.Background(), "alice", "Bearer t", RespondRequest{SessionID: "s-1", UserAnswer: "a", CurrentLevel: 3})
	if err != nil {
		t.Fatalf("Respond がエラーを返した: %v", err)
	}
	if *resp.Question != "next" {
		t.Errorf("Question = %q, want sanitized next", *resp.Question)
	}
	if repo.levelUpdates["s-1"] != 4 {
		t.Errorf("levelUpdates = %v, want s-1:4", repo.levelUpdates)
	}
	if len(repo.completed) != 1 || repo.completed[0] != "s-1" {
		t.Errorf("completed = %v, want [s-1]", repo.completed)
	}
}

func TestService_Respond_NotCompleteDoesNotMarkCompleted(t *testing.T) {
	repo := newMockRecordRepo()
	up := &mockUpstream{
		respondFn: func(_ context.Context, _ string, req RespondRequest) (*ChatResponse, error) {
			return &ChatResponse{SessionID: req.SessionID, CurrentLevel: 2}, nil
		},
	}
	svc, _ := newTestService(up, repo)

	if _, err := svc.Respond(context.Background(), "alice", "Bearer t", RespondRequest{SessionID: "s-1", UserAnswer: "a"}); err != nil {
		t.Fatalf("Respond がエラーを返した: %v", err)
	}
	if len(repo.completed) != 0 {
		t.Errorf("completed = %v, want none", repo.completed)
	}
}

func TestService_End_MarksCompleted(t *testing.T) {
	repo := newMockRecordRepo()
	repo.records["s-1"] = &model.SessionRecord{SessionID: "s-1", UserID: "alice"}
	up := &mockUpstream{
		endFn: func(_ context.Context, _ string, req EndRequest) (*EndResponse, error) {
			return &EndResponse{SessionID: req.SessionID, Message: "bye"}, nil
		},
	}
	svc, _ := newTestService(up, repo)

	resp, err := svc.End(context.Background(), "alice", "Bearer t", EndRequest{SessionID: "s-1"})
	if err != nil {
		t.Fatalf("End がエラーを返した: %v", err)
	}
	if resp.Message != "bye" {
		t.Errorf("Message = %q, want bye", resp.Message)
	}
	if len(repo.completed) != 1 {
		t.Errorf("completed = %v, want [s-1]", repo.completed)
	}
}

func TestService_End_RepoLookupError(t *testing.T) {
	repo := newMockRecordRepo()
	repo.findErr = errors.New("db down")
	up := &mockUpstream{}
	svc, _ := newTestService(up, repo)

	_, err := svc.End(context.Background(), "alice", "Bearer t", EndRequest{SessionID: "s-1"})
	if !errors.Is(err, repo.findErr) {
		t.Fatalf("エラー = %v, want wrapped db error", err)
	}
	if up.calls != 0 {
		t.Errorf("上流が呼ばれた: %d", up.calls)
	}
}

func TestService_History_SanitizesMessages(t *testing.T) {
	repo := newMockRecordRepo()
	up := &mockUpstream{
		historyFn: func(_ context.Context, _ string, sessionID string) (*ConversationHistory, error) {
			return &ConversationHistory{
				SessionID: sessionID,
				Messages: []ConversationMessage{
					{Speaker: "bot", Content: "<script>q1", MessageOrder: 1},
					{Speaker: "user", Content: "a1", MessageOrder: 2},
				},
			}, nil
		},
	}
	svc, _ := newTestService(up, repo)

	h, err := svc.History(context.Background(), "alice", "Bearer t", "s-1")
	if err != nil {
		t.Fatalf("History がエラーを返した: %v", err)
	}
	if h.Messages[0].Content != "q1" || h.Messages[1].Content != "a1" {
		t.Errorf("Messages = %+v", h.Messages)
	}
}

func TestService_History_BlankSessionID(t *testing.T) {
	svc, _ := newTestService(&mockUpstream{}, newMockRecordRepo())

	_, err := svc.History(context.Background(), "alice", "Bearer t", " ")
	if !model.IsCode(err, model.ErrCodeValidation) {
		t.Errorf("エラー = %v, want VALIDATION_FAILED", err)
	}
}
