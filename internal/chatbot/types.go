package chatbot

import (
	"encoding/json"
	"errors"
)

// StartRequest は会話開始リクエスト。Topicが空の場合はチャットボット側で本日の主題が選ばれる。
type StartRequest struct {
	Topic string `json:"topic,omitempty"`
}

// RespondRequest はユーザー回答の送信リクエスト。
type RespondRequest struct {
	SessionID    string `json:"session_id"`
	UserAnswer   string `json:"user_answer"`
	CurrentLevel int    `json:"current_level"`
	Topic        string `json:"topic"`
	TopicPrompt  string `json:"topic_prompt"`
}

// EndRequest は会話終了リクエスト。
type EndRequest struct {
	SessionID string `json:"session_id"`
}

// ChatResponse は会話開始・回答送信に対するチャットボットの応答。
type ChatResponse struct {
	SessionID    string  `json:"session_id"`
	Topic        string  `json:"topic"`
	CurrentLevel int     `json:"current_level"`
	Question     *string `json:"question"`
	Message      string  `json:"message"`
	IsComplete   bool    `json:"is_complete"`
}

// EndResponse は会話終了に対するチャットボットの応答。
// Summaryの構造はチャットボット側で定義されるため、そのまま中継する。
type EndResponse struct {
	SessionID string          `json:"session_id"`
	Message   string          `json:"message"`
	Summary   json.RawMessage `json:"summary,omitempty"`
}

// ConversationMessage は会話履歴の1メッセージ。
type ConversationMessage struct {
	Speaker      string `json:"speaker"`
	Content      string `json:"content"`
	Timestamp    string `json:"timestamp"`
	MessageOrder int    `json:"message_order"`
}

// ConversationHistory はセッションの会話履歴。
type ConversationHistory struct {
	SessionID    string                `json:"session_id"`
	Topic        string                `json:"topic"`
	CurrentLevel int                   `json:"current_level"`
	IsComplete   bool                  `json:"is_complete"`
	Messages     []ConversationMessage `json:"messages"`
}

var errMissingSessionID = errors.New("response has no session_id")

// validator は応答の境界検証を行う型が実装する。
type validator interface {
	validate() error
}

func (r *ChatResponse) validate() error {
	if r.SessionID == "" {
		return errMissingSessionID
	}
	return nil
}

func (r *EndResponse) validate() error {
	if r.SessionID == "" {
		return errMissingSessionID
	}
	return nil
}

func (r *ConversationHistory) validate() error {
	if r.SessionID == "" {
		return errMissingSessionID
	}
	if r.Messages == nil {
		r.Messages = []ConversationMessage{}
	}
	return nil
}
