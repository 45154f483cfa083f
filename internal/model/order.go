// Package model はドメインモデルを定義する。
package model

import "time"

// OrderStatus は注文の決済状態を表す。
type OrderStatus string

const (
	// OrderStatusPending はチェックアウトセッション作成直後の状態。
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusSuccess は決済完了。
	OrderStatusSuccess OrderStatus = "SUCCESS"
	// OrderStatusRejected は決済失敗またはセッション期限切れ。
	OrderStatusRejected OrderStatus = "REJECTED"
)

// OrderKind は注文の作成経路を表す。
type OrderKind string

const (
	// OrderKindCheckout は任意商品名・金額のチェックアウト。
	OrderKindCheckout OrderKind = "checkout"
	// OrderKindPhone は固定価格の電話機購入。
	OrderKindPhone OrderKind = "phone"
)

// Order は決済プロバイダーのチェックアウトセッションに対応する注文を表す。
// ステータスはWebhookハンドラーからのみ更新され、削除されない。
type Order struct {
	ID          string
	SessionID   string
	UserID      string // 退会済みの場合は空
	Kind        OrderKind
	ProductName string
	Amount      int64 // 最小通貨単位。固定価格の場合は0
	Currency    string
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WebhookEvent は処理済みの決済プロバイダーイベントを表す。
// 同一イベントの重複配信を検出するために記録する。
type WebhookEvent struct {
	EventID    string
	Type       string
	ReceivedAt time.Time
}
