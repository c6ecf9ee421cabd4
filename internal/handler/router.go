package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/masato/filmnote/internal/metrics"
	"github.com/masato/filmnote/internal/middleware"
)

// SetupAccountRoutes はアカウント関連のルーティングをrに登録する。
// OTP・リセットリンクの発行系のみIPキーの追加レート制限を通す。
func SetupAccountRoutes(r chi.Router, service AuthServiceInterface, rateLimiter *middleware.RateLimiter) {
	h := NewAuthHandler(service)

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/", h.Register)
		r.Post("/sign-in", h.SignIn)
		r.Post("/verify-email", h.VerifyEmail)
		r.With(rateLimiter.IssuanceMiddleware()).Post("/resend-otp", h.ResendOTP)
		r.With(rateLimiter.IssuanceMiddleware()).Post("/forgot-password", h.ForgotPassword)
		r.Post("/verify-reset-token", h.VerifyResetToken)
		r.Post("/reset-password", h.ResetPassword)
	})
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証・アカウント
	AuthService AuthServiceInterface

	// 映画カタログ
	MovieService MovieServiceInterface

	// レビュー
	ReviewService ReviewServiceInterface
	RatingSummary RatingSummaryInterface

	// 管理者統計
	UserCounter   Counter
	MovieCounter  Counter
	ReviewCounter Counter

	// 可観測性
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → AuthMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// アカウントルート（/api/users/*）は認証前に使うためチェーンの外に配置する。
// 発行系エンドポイント（resend-otp, forgot-password）のみIPキーの
// 追加レート制限（IssuanceMiddleware）を通す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	movieHandler := NewMovieHandler(deps.MovieService, deps.RatingSummary, deps.UserFinder)
	reviewHandler := NewReviewHandler(deps.ReviewService)
	adminHandler := NewAdminHandler(deps.UserCounter, deps.MovieCounter, deps.ReviewCounter)

	// --- 認証不要のルート ---

	// アカウントルート（登録・サインイン・OTP・リセット）
	SetupAccountRoutes(r, deps.AuthService, deps.RateLimiter)

	// 死活監視
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeMsg(w, http.StatusOK, "ok")
	})

	// Prometheusメトリクス
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 映画カタログ
		r.Route("/api/movies", func(r chi.Router) {
			r.Get("/", movieHandler.List)

			// POST /api/movies - 映画登録（管理者のみ）
			r.With(middleware.NewAdminMiddleware(deps.UserFinder)).Post("/", movieHandler.Create)

			// POST /api/movies/probe-poster - ポスターURL到達性の事前確認（管理者のみ）
			r.With(middleware.NewAdminMiddleware(deps.UserFinder)).Post("/probe-poster", movieHandler.ProbePoster)

			r.Route("/{movieID}", func(r chi.Router) {
				r.Get("/", movieHandler.Get)

				r.With(middleware.NewAdminMiddleware(deps.UserFinder)).Patch("/", movieHandler.Update)
				r.With(middleware.NewAdminMiddleware(deps.UserFinder)).Delete("/", movieHandler.Delete)

				// レビュー（映画配下）
				r.Get("/reviews", reviewHandler.ListByMovie)
				r.Post("/reviews", reviewHandler.Create)
			})
		})

		// レビュー管理
		r.Route("/api/reviews/{reviewID}", func(r chi.Router) {
			r.Patch("/", reviewHandler.Update)
			r.Delete("/", reviewHandler.Delete)
		})

		// 管理者統計
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.NewAdminMiddleware(deps.UserFinder))
			r.Get("/stats", adminHandler.Stats)
		})
	})

	return r
}
