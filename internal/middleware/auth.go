// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hufs-wider/wider/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// authorizationContextKey はチャットボットへ転送するAuthorizationヘッダー値のキー。
	authorizationContextKey = contextKey("authorization")
)

// TokenValidator はトークン検証に必要なインターフェース。
// token.Serviceの部分集合として定義する。
type TokenValidator interface {
	ExtractUserID(token string) (string, error)
	Validate(token, expectedUserID string) (bool, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証するミドルウェアを返す。
// 署名・形式の検証に加えて有効期限も確認し、認証済みユーザーIDをコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewAuthMiddleware(tokens TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := r.Header.Get("Authorization")
			if authorization == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError(nil))
				return
			}

			userID, err := tokens.ExtractUserID(authorization)
			if err != nil {
				slog.Warn("token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError(err))
				return
			}

			valid, err := tokens.Validate(authorization, userID)
			if err != nil || !valid {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError(err))
				return
			}

			setLoggedUserID(r.Context(), userID)
			ctx := ContextWithUserID(r.Context(), userID)
			ctx = ContextWithAuthorization(ctx, authorization)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// AuthorizationFromContext は認証に使われたAuthorizationヘッダー値を返す。
func AuthorizationFromContext(ctx context.Context) string {
	v, _ := ctx.Value(authorizationContextKey).(string)
	return v
}

// ContextWithAuthorization はコンテキストにAuthorizationヘッダー値を注入する。
func ContextWithAuthorization(ctx context.Context, authorization string) context.Context {
	return context.WithValue(ctx, authorizationContextKey, authorization)
}
