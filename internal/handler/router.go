package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hufs-wider/wider/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenValidator    middleware.TokenValidator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	HealthChecker     HealthChecker

	// メトリクス
	MetricsHandler    http.Handler
	MetricsMiddleware func(http.Handler) http.Handler
	SignInRecorder    SignInRecorder

	// サービス
	AuthService   AuthServiceInterface
	UserService   UserServiceInterface
	RecordService RecordServiceInterface
	ChatService   ChatServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → RequestID → Logging → Recovery → Metrics → SecurityHeaders → CORS
//	  → (保護ルートのみ) Auth → RateLimit(General)
//
// サインアップ・サインイン・ヘルスチェック・メトリクスは認証不要。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.NewRequestIDMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.MetricsMiddleware != nil {
		r.Use(deps.MetricsMiddleware)
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	userHandler := NewUserHandler(deps.AuthService, deps.UserService, deps.SignInRecorder)
	recordHandler := NewRecordHandler(deps.RecordService, deps.ChatService)
	chatHandler := NewChatHandler(deps.ChatService)

	// --- 認証不要のルート ---

	r.Get("/api/health/check", HealthCheck)
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Post("/api/users/signup", userHandler.SignUp)
	r.With(deps.RateLimiter.SignInMiddleware()).Post("/api/users/signin", userHandler.SignIn)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenValidator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/me", userHandler.Me)
			r.Put("/me", userHandler.UpdateMe)
			r.Get("/{userId}/info", userHandler.Info)
			r.Post("/deleteUser", userHandler.Delete)
			r.Post("/logout", userHandler.Logout)
			r.Post("/changePassword", userHandler.ChangePassword)
		})

		// 学習記録・統計
		r.Get("/api/records", recordHandler.List)
		r.Get("/api/records/{sessionId}", recordHandler.Detail)
		r.Get("/api/level-progress", recordHandler.LevelProgress)
		r.Get("/api/statistics/histogram", recordHandler.Histogram)

		// チャットボット中継
		r.Get("/api/chatbot/history/{sessionId}", chatHandler.History)
		r.Route("/api/chat", func(r chi.Router) {
			r.Post("/start", chatHandler.Start)
			r.Post("/response", chatHandler.Respond)
			r.Post("/end", chatHandler.End)
		})
	})

	return r
}
