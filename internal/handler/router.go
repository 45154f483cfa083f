package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/postpay/internal/middleware"
)

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	StatusRecorder    middleware.HTTPStatusRecorder
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// ドメイン
	AuthService    AuthServiceInterface
	UserService    UserServiceInterface
	PostService    PostServiceInterface
	PaymentService PaymentServiceInterface
	MediaService   MediaServiceInterface

	// アップロード
	UploadDir     string
	UploadMaxSize int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → RateLimit(General)
//	→ Auth（認証が必要なグループのみ） → RateLimit(Checkout)（チェックアウトのみ）
//
// Webhookは署名で検証するため認証グループの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	postHandler := NewPostHandler(deps.PostService)
	stripeHandler := NewStripeHandler(deps.PaymentService)
	uploadHandler := NewUploadHandler(deps.MediaService, deps.UploadMaxSize)
	requireAuth := middleware.NewAuthMiddleware(deps.TokenVerifier)

	// --- 認証不要のルート ---

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("hello world"))
	})
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	if deps.UploadDir != "" {
		files := http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadDir)))
		r.Handle("/uploads/*", noDirectoryListing(files))
	}
	r.Post("/stripe/webhook", stripeHandler.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(requireAuth).Get("/me", authHandler.Me)
		})

		r.Get("/posts/feed.xml", postHandler.Feed)
		r.Get("/upload/{id}", uploadHandler.Get)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Get("/me", userHandler.Me)
			r.Delete("/me", userHandler.Withdraw)
			r.Get("/{id}", userHandler.Get)
		})

		// /posts/feed.xml と /stripe/webhook が認証不要のため、Mountせずに個別登録する
		r.Get("/posts", postHandler.List)
		r.Post("/posts", postHandler.Create)
		r.Get("/posts/{id}", postHandler.Get)
		r.Put("/posts/{id}", postHandler.Update)
		r.Delete("/posts/{id}", postHandler.Delete)
		r.Post("/posts/{id}/reactions", postHandler.React)

		// チェックアウト作成は専用のレート制限を追加
		r.With(deps.RateLimiter.CheckoutMiddleware()).Post("/stripe/checkout", stripeHandler.Checkout)
		r.With(deps.RateLimiter.CheckoutMiddleware()).Post("/stripe/buy-phone", stripeHandler.BuyPhone)

		r.Post("/upload", uploadHandler.Upload)
		r.Post("/upload/remote", uploadHandler.ImportRemote)
	})

	return r
}

// healthHandler はDBへの疎通を確認し、成功すれば200を返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// noDirectoryListing はディレクトリへのリクエストを404にする。
func noDirectoryListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
