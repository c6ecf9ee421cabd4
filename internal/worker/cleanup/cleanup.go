// Package cleanup は期限切れトークンの自動削除ジョブを提供する。
// TTLを超過したメール認証OTPとパスワードリセットトークンを定期バッチで削除する。
// 照合時の期限チェックをすり抜けて残った行（照合されないまま放置されたトークン）を
// 回収するのが目的で、削除は冪等である。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/masato/filmnote/internal/metrics"
	"github.com/masato/filmnote/internal/repository"
)

// SweepJob は期限切れトークンの掃除ジョブ。
type SweepJob struct {
	emailTokenRepo repository.EmailTokenRepository
	resetTokenRepo repository.ResetTokenRepository
	collector      metrics.MetricsCollector
	logger         *slog.Logger
	TokenTTL       time.Duration // トークンの有効期間（デフォルト: 1時間）
}

// NewSweepJob は新しいSweepJobを生成する。
// デフォルトのTTLは1時間。
func NewSweepJob(
	emailTokenRepo repository.EmailTokenRepository,
	resetTokenRepo repository.ResetTokenRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *SweepJob {
	return &SweepJob{
		emailTokenRepo: emailTokenRepo,
		resetTokenRepo: resetTokenRepo,
		collector:      collector,
		logger:         logger,
		TokenTTL:       time.Hour,
	}
}

// Run はTTLを超過したトークンを両テーブルから削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
// 片方のテーブルで失敗してももう片方の掃除は試みる。
func (j *SweepJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := start.Add(-j.TokenTTL)

	var firstErr error

	emailDeleted, err := j.emailTokenRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("メール認証トークンの掃除に失敗しました",
			slog.String("error", err.Error()),
		)
		firstErr = fmt.Errorf("メール認証トークンの掃除に失敗: %w", err)
	} else if j.collector != nil {
		j.collector.RecordTokensSwept("email_tokens", emailDeleted)
	}

	resetDeleted, err := j.resetTokenRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("リセットトークンの掃除に失敗しました",
			slog.String("error", err.Error()),
		)
		if firstErr == nil {
			firstErr = fmt.Errorf("リセットトークンの掃除に失敗: %w", err)
		}
	} else if j.collector != nil {
		j.collector.RecordTokensSwept("reset_tokens", resetDeleted)
	}

	if firstErr != nil {
		return firstErr
	}

	duration := time.Since(start)
	j.logger.Info("トークン掃除ジョブが完了しました",
		slog.Int64("email_tokens_deleted", emailDeleted),
		slog.Int64("reset_tokens_deleted", resetDeleted),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
