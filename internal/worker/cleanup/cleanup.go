// Package cleanup はWebhookイベント記録の自動削除ジョブを提供する。
// 重複排除用に保存したイベントIDは、プロバイダーの再送期間を過ぎれば不要になるため、
// 保持期間（デフォルト30日）を超えたものを定期的に削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetentionDays はWebhookイベント記録のデフォルト保持日数。
const DefaultRetentionDays = 30

// EventDeleter は受信日時で古いWebhookイベント記録を削除するインターフェース。
// repository.PostgresOrderRepo が満たす。
type EventDeleter interface {
	DeleteWebhookEventsBefore(ctx context.Context, before time.Time) (int64, error)
}

// CleanupJob は保持期間を超過したWebhookイベント記録の削除ジョブ。
// 冪等で、削除対象がなくてもエラーにならない。
type CleanupJob struct {
	deleter       EventDeleter
	logger        *slog.Logger
	RetentionDays int
	now           func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
// retentionDaysが0以下の場合はDefaultRetentionDaysを使用する。
func NewCleanupJob(deleter EventDeleter, retentionDays int, logger *slog.Logger) *CleanupJob {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &CleanupJob{
		deleter:       deleter,
		logger:        logger,
		RetentionDays: retentionDays,
		now:           time.Now,
	}
}

// Start は起動直後に1回実行し、その後interval間隔で実行する。
// コンテキストがキャンセルされるまで戻らない。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Int("retention_days", j.RetentionDays),
	)

	// エラーはRun内でログ済み
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}

// Run は受信日時がRetentionDays日より前のWebhookイベント記録を削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := j.now().UTC().AddDate(0, 0, -j.RetentionDays)

	deletedCount, err := j.deleter.DeleteWebhookEventsBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("Webhookイベントのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("Webhookイベントのクリーンアップに失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("Webhookイベントのクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
