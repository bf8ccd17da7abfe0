package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hufs-wider/wider/internal/chatbot"
	"github.com/hufs-wider/wider/internal/middleware"
)

// ChatServiceInterface はチャットボット中継に必要なサービスインターフェース。
type ChatServiceInterface interface {
	HistoryServiceInterface
	Start(ctx context.Context, userID, authorization string, req chatbot.StartRequest) (*chatbot.ChatResponse, error)
	Respond(ctx context.Context, userID, authorization string, req chatbot.RespondRequest) (*chatbot.ChatResponse, error)
	End(ctx context.Context, userID, authorization string, req chatbot.EndRequest) (*chatbot.EndResponse, error)
}

// ChatHandler はチャットボット中継のHTTPハンドラー。
type ChatHandler struct {
	service ChatServiceInterface
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(service ChatServiceInterface) *ChatHandler {
	return &ChatHandler{service: service}
}

// Start は会話を開始する。ボディは空でもよい。
// POST /api/chat/start
func (h *ChatHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req chatbot.StartRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Start(r.Context(), userID, middleware.AuthorizationFromContext(r.Context()), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Respond はユーザーの回答を中継する。
// POST /api/chat/response
func (h *ChatHandler) Respond(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req chatbot.RespondRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Respond(r.Context(), userID, middleware.AuthorizationFromContext(r.Context()), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// End は会話を終了する。
// POST /api/chat/end
func (h *ChatHandler) End(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req chatbot.EndRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.End(r.Context(), userID, middleware.AuthorizationFromContext(r.Context()), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// History は会話履歴を返す。
// GET /api/chatbot/history/{sessionId}
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	history, err := h.service.History(r.Context(), userID, middleware.AuthorizationFromContext(r.Context()), chi.URLParam(r, "sessionId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
