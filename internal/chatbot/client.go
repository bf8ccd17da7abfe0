// Package chatbot は外部チャットボットサービスとの連携を提供する。
// 会話の開始・回答・終了・履歴取得をHTTPで中継し、応答を型付きで検証する。
package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hufs-wider/wider/internal/metrics"
	"github.com/hufs-wider/wider/internal/model"
)

// maxResponseSize はチャットボット応答ボディの最大読み取りサイズ。
const maxResponseSize = 4 << 20

// 操作名（メトリクスのラベル値）
const (
	opStart   = "start"
	opRespond = "respond"
	opEnd     = "end"
	opHistory = "history"
)

// Client はチャットボットサービスのHTTPクライアント。
// 呼び出しは再試行しない。
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLの末尾のスラッシュは取り除く。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger, mc metrics.MetricsCollector) *Client {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
		metrics:    mc,
	}
}

// Start は新しい会話を開始する。
// authorizationは呼び出し元のAuthorizationヘッダー値で、そのまま転送する。
func (c *Client) Start(ctx context.Context, authorization string, req StartRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, opStart, http.MethodPost, "/chat/start", authorization, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Respond はユーザーの回答を送信し、次の質問を受け取る。
func (c *Client) Respond(ctx context.Context, authorization string, req RespondRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, opRespond, http.MethodPost, "/chat/response", authorization, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// End は会話を終了する。
func (c *Client) End(ctx context.Context, authorization string, req EndRequest) (*EndResponse, error) {
	var resp EndResponse
	if err := c.do(ctx, opEnd, http.MethodPost, "/chat/end", authorization, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History はセッションの会話履歴を取得する。
func (c *Client) History(ctx context.Context, authorization, sessionID string) (*ConversationHistory, error) {
	var resp ConversationHistory
	path := "/chat/history/" + url.PathEscape(sessionID)
	if err := c.do(ctx, opHistory, http.MethodGet, path, authorization, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do はリクエストを送信し、2xx応答をoutにデコードして検証する。
// ネットワーク障害・非2xx・デコード失敗・検証失敗はすべてUPSTREAM_FAILEDとなる。
func (c *Client) do(ctx context.Context, op, method, path, authorization string, body any, out validator) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordUpstreamLatency(op, time.Since(start))
	if err != nil {
		c.metrics.RecordUpstreamFailure(op, "network")
		c.logger.Error("chatbot request failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return model.NewUpstreamError("network error", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.metrics.RecordUpstreamFailure(op, "read")
		return model.NewUpstreamError("failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.RecordUpstreamFailure(op, "status")
		c.logger.Error("chatbot returned error status",
			slog.String("operation", op),
			slog.Int("http_status", resp.StatusCode),
		)
		return model.NewUpstreamError(fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.metrics.RecordUpstreamFailure(op, "decode")
		c.logger.Error("failed to decode chatbot response",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return model.NewUpstreamError("invalid response body", err)
	}
	if err := out.validate(); err != nil {
		c.metrics.RecordUpstreamFailure(op, "invalid")
		return model.NewUpstreamError("invalid response body", err)
	}

	c.metrics.RecordUpstreamSuccess(op)
	return nil
}
