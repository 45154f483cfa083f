package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/postpay/internal/model"
)

// PostgresOrderRepo はPostgreSQLを使用した注文リポジトリ。
type PostgresOrderRepo struct {
	db *sql.DB
}

// NewPostgresOrderRepo はPostgresOrderRepoを生成する。
func NewPostgresOrderRepo(db *sql.DB) *PostgresOrderRepo {
	return &PostgresOrderRepo{db: db}
}

// Create は注文を作成する。
func (r *PostgresOrderRepo) Create(ctx context.Context, order *model.Order) error {
	var userID sql.NullString
	if order.UserID != "" {
		userID = sql.NullString{String: order.UserID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (id, session_id, user_id, kind, product_name, amount, currency, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		order.ID, order.SessionID, userID, string(order.Kind), order.ProductName,
		order.Amount, order.Currency, string(order.Status),
		order.CreatedAt, order.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// ApplyWebhookStatus はWebhookイベントの記録と注文ステータス更新を同一トランザクションで行う。
func (r *PostgresOrderRepo) ApplyWebhookStatus(
	ctx context.Context,
	event model.WebhookEvent,
	sessionID string,
	to model.OrderStatus,
	from []model.OrderStatus,
) (StatusUpdateResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	recorded, err := insertWebhookEvent(ctx, tx, event)
	if err != nil {
		return "", err
	}
	if !recorded {
		return StatusDuplicate, nil
	}

	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = $3
		 WHERE session_id = $1 AND status = ANY($4)`,
		sessionID, string(to), time.Now().UTC(), pq.Array(fromStrs),
	)
	if err != nil {
		return "", fmt.Errorf("failed to update order status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to get rows affected: %w", err)
	}

	outcome := StatusUpdated
	if rowsAffected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE session_id = $1)`,
			sessionID,
		).Scan(&exists); err != nil {
			return "", fmt.Errorf("failed to check order existence: %w", err)
		}
		outcome = StatusUnchanged
		if !exists {
			outcome = StatusOrderNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return outcome, nil
}

// RecordWebhookEvent は状態遷移を伴わないイベントを記録する。
// 記録済みの場合はfalseを返す。
func (r *PostgresOrderRepo) RecordWebhookEvent(ctx context.Context, event model.WebhookEvent) (bool, error) {
	return insertWebhookEvent(ctx, r.db, event)
}

// DeleteWebhookEventsBefore は指定日時より前に受信したWebhookイベント記録を削除する。
func (r *PostgresOrderRepo) DeleteWebhookEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM webhook_events WHERE received_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete webhook events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertWebhookEvent(ctx context.Context, db execer, event model.WebhookEvent) (bool, error) {
	receivedAt := event.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO webhook_events (event_id, type, received_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, event.Type, receivedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ OrderRepository = (*PostgresOrderRepo)(nil)
