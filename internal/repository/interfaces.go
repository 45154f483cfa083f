// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/postpay/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// List はユーザー一覧を作成日時の降順で返す。
	List(ctx context.Context, limit int) ([]*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 投稿はCASCADE削除され、注文とメディアのuser_idはNULLになる。
	DeleteByID(ctx context.Context, id string) error
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// FindWithAuthor は指定IDの投稿を投稿者プロフィール付きで取得する。見つからない場合はnilを返す。
	FindWithAuthor(ctx context.Context, id string) (*model.PostWithAuthor, error)

	// List は投稿一覧を作成日時の降順で投稿者プロフィール付きで返す。
	// limitが0以下の場合は全件を返す。
	List(ctx context.Context, limit int) ([]model.PostWithAuthor, error)

	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// UpdateContent は投稿本文を更新する。
	UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error

	// UpdateReactions は投稿のlikes/dislikes配列を丸ごと書き換える。
	// 楽観ロックは行わないため、同時更新は後勝ちになる。
	UpdateReactions(ctx context.Context, id string, likes, dislikes []string) error

	// Delete は指定IDの投稿を削除する。
	Delete(ctx context.Context, id string) error

	// RemoveUserReactions は全投稿のlikes/dislikesから指定ユーザーを取り除く。
	RemoveUserReactions(ctx context.Context, userID string) error
}

// OrderRepository は注文データの永続化インターフェース。
type OrderRepository interface {
	// Create は注文を作成する。
	Create(ctx context.Context, order *model.Order) error

	// ApplyWebhookStatus はWebhookイベントの記録と注文ステータス更新を同一トランザクションで行う。
	// イベントIDが記録済みの場合は何も更新せずDuplicateを返す。
	// 注文の現在ステータスがfromに含まれない場合はステータスを変更しない。
	ApplyWebhookStatus(ctx context.Context, event model.WebhookEvent, sessionID string, to model.OrderStatus, from []model.OrderStatus) (StatusUpdateResult, error)

	// RecordWebhookEvent は状態遷移を伴わないイベントを記録する。
	// 記録済みの場合はfalseを返す。
	RecordWebhookEvent(ctx context.Context, event model.WebhookEvent) (bool, error)
}

// StatusUpdateResult は注文ステータス更新の結果を表す。
type StatusUpdateResult string

const (
	// StatusUpdated はステータスを更新した。
	StatusUpdated StatusUpdateResult = "updated"
	// StatusUnchanged は注文は存在するが遷移元条件を満たさなかった。
	StatusUnchanged StatusUpdateResult = "unchanged"
	// StatusOrderNotFound はセッションIDに対応する注文が存在しなかった。
	StatusOrderNotFound StatusUpdateResult = "order_not_found"
	// StatusDuplicate は同一イベントが処理済みだった。
	StatusDuplicate StatusUpdateResult = "duplicate"
)

// MediaRepository はアップロードメディアのメタデータ永続化インターフェース。
type MediaRepository interface {
	// Create はメディアのメタデータを作成する。
	Create(ctx context.Context, media *model.Media) error

	// FindByID は指定IDのメディアを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Media, error)
}
