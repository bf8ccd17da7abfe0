package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hufs-wider/wider/internal/chatbot"
	"github.com/hufs-wider/wider/internal/middleware"
	"github.com/hufs-wider/wider/internal/model"
)

// RecordServiceInterface は学習記録の参照に必要なサービスインターフェース。
type RecordServiceInterface interface {
	LatestSessions(ctx context.Context, userID string) ([]*model.SessionRecord, error)
	MonthlyHistogram(ctx context.Context, userID string) ([]model.MonthlyBloomCount, error)
	LevelProgress(ctx context.Context, userID string) ([]model.LevelProgress, error)
	Owned(ctx context.Context, userID, sessionID string) (*model.SessionRecord, error)
}

// HistoryServiceInterface は会話履歴の取得に必要なサービスインターフェース。
type HistoryServiceInterface interface {
	History(ctx context.Context, userID, authorization, sessionID string) (*chatbot.ConversationHistory, error)
}

// RecordHandler は学習記録・統計のHTTPハンドラー。
type RecordHandler struct {
	records RecordServiceInterface
	history HistoryServiceInterface
}

// NewRecordHandler はRecordHandlerを生成する。
func NewRecordHandler(records RecordServiceInterface, history HistoryServiceInterface) *RecordHandler {
	return &RecordHandler{
		records: records,
		history: history,
	}
}

type sessionRecordResponse struct {
	SessionID   string     `json:"session_id"`
	Topic       string     `json:"topic"`
	StartedAt   time.Time  `json:"started_at"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	BloomLevel  int        `json:"bloom_level"`
}

type histogramEntryResponse struct {
	Month      string `json:"month"`
	BloomLevel int    `json:"bloom_level"`
	Count      int    `json:"count"`
}

type levelProgressResponse struct {
	SessionID     string    `json:"session_id"`
	StartedAt     time.Time `json:"started_at"`
	MaxBloomLevel int       `json:"max_bloom_level"`
}

// List はトピックごとの最新セッション一覧を返す。
// GET /api/records
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	recs, err := h.records.LatestSessions(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]sessionRecordResponse, len(recs))
	for i, rec := range recs {
		resp[i] = sessionRecordResponse{
			SessionID:   rec.SessionID,
			Topic:       rec.Topic,
			StartedAt:   rec.StartedAt,
			Completed:   rec.Completed,
			CompletedAt: rec.CompletedAt,
			BloomLevel:  rec.BloomLevel,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Detail は自分のセッションの会話履歴を返す。
// ローカルに記録のないセッションは404、他ユーザーのセッションは403。
// GET /api/records/{sessionId}
func (h *RecordHandler) Detail(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	sessionID := chi.URLParam(r, "sessionId")

	if _, err := h.records.Owned(r.Context(), userID, sessionID); err != nil {
		handleServiceError(w, err)
		return
	}

	history, err := h.history.History(r.Context(), userID, middleware.AuthorizationFromContext(r.Context()), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// Histogram は月別・Bloomレベル別の完了セッション数を返す。
// GET /api/statistics/histogram
func (h *RecordHandler) Histogram(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	counts, err := h.records.MonthlyHistogram(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]histogramEntryResponse, len(counts))
	for i, c := range counts {
		resp[i] = histogramEntryResponse{Month: c.Month, BloomLevel: c.BloomLevel, Count: c.Count}
	}
	writeJSON(w, http.StatusOK, resp)
}

// LevelProgress はセッションごとの到達Bloomレベルを返す。
// GET /api/level-progress
func (h *RecordHandler) LevelProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	progress, err := h.records.LevelProgress(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]levelProgressResponse, len(progress))
	for i, p := range progress {
		resp[i] = levelProgressResponse{
			SessionID:     p.SessionID,
			StartedAt:     p.StartedAt,
			MaxBloomLevel: p.MaxBloomLevel,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
