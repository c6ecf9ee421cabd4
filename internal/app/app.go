// Package app はアプリケーションの起動・依存関係のワイヤリングを担う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/masato/filmnote/internal/auth"
	"github.com/masato/filmnote/internal/config"
	"github.com/masato/filmnote/internal/database"
	"github.com/masato/filmnote/internal/handler"
	"github.com/masato/filmnote/internal/logger"
	"github.com/masato/filmnote/internal/mail"
	"github.com/masato/filmnote/internal/metrics"
	"github.com/masato/filmnote/internal/middleware"
	"github.com/masato/filmnote/internal/movie"
	"github.com/masato/filmnote/internal/repository"
	"github.com/masato/filmnote/internal/review"
	"github.com/masato/filmnote/internal/security"
	"github.com/masato/filmnote/internal/token"
	"github.com/masato/filmnote/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	emailTokenRepo := repository.NewPostgresEmailTokenRepo(db)
	resetTokenRepo := repository.NewPostgresResetTokenRepo(db)
	movieRepo := repository.NewPostgresMovieRepo(db)
	reviewRepo := repository.NewPostgresReviewRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. セキュリティサービスの初期化
	urlGuard := security.NewMediaURLGuard()
	sanitizer := security.NewContentSanitizer()

	// 5. ドメインサービスの初期化
	issuer := token.NewIssuer(cfg.JWTSecret, cfg.JWTValidity)
	mailer := mail.NewSMTPMailer(cfg, slog.Default())

	authService := auth.NewService(
		userRepo, emailTokenRepo, resetTokenRepo,
		mailer, issuer, collector, slog.Default(),
		cfg.TokenTTL, cfg.ResetPasswordBase,
	)
	movieService := movie.NewService(movieRepo, urlGuard)
	reviewService := review.NewService(reviewRepo, movieRepo, userRepo, sanitizer)

	// 6. レート制限の構築（configはreq/min単位なのでreq/secに変換する）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.IssuanceRate = rate.Limit(float64(cfg.RateLimitIssuance) / 60.0)
	rateLimiterCfg.IssuanceBurst = cfg.RateLimitIssuance
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		TokenVerifier:     issuer,
		UserFinder:        userRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		AuthService:  authService,
		MovieService: movieService,

		ReviewService: reviewService,
		RatingSummary: reviewService,

		UserCounter:   userRepo,
		MovieCounter:  movieRepo,
		ReviewCounter: reviewRepo,

		Gatherer: registry,
	}

	router := handler.NewRouter(deps)

	// リカバリ→アクセスログの順に全ルートを包む
	recoveryMw := middleware.NewRecoveryMiddleware(slog.Default())
	loggingMw := middleware.NewLoggingMiddleware(slog.Default(), collector)
	root := recoveryMw(loggingMw(router))

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れのOTP・リセットトークンを定期的に掃除する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	emailTokenRepo := repository.NewPostgresEmailTokenRepo(db)
	resetTokenRepo := repository.NewPostgresResetTokenRepo(db)

	// 3. 掃除ジョブの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	sweepJob := cleanup.NewSweepJob(emailTokenRepo, resetTokenRepo, collector, slog.Default())
	sweepJob.TokenTTL = cfg.TokenTTL

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("sweep_interval", cfg.SweepInterval),
		slog.Duration("token_ttl", cfg.TokenTTL),
	)

	// 起動直後に1回実行
	if err := sweepJob.Run(ctx); err != nil {
		slog.Error("sweep job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped gracefully")
			return nil
		case <-ticker.C:
			if err := sweepJob.Run(ctx); err != nil {
				slog.Error("sweep job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
