// Package payment はチェックアウトセッションの作成と決済プロバイダーWebhookによる注文ステータス更新を提供する。
package payment

import "context"

// CheckoutRequest はチェックアウトセッション作成のパラメータ。
// PriceIDが指定されていれば固定価格、そうでなければPriceData（商品名・金額）を使う。
type CheckoutRequest struct {
	PriceID string

	ProductName string
	Description string
	ImageURL    string
	Currency    string
	UnitAmount  int64

	Quantity          int64
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
}

// CheckoutSession は決済プロバイダー側で作成されたセッション。
type CheckoutSession struct {
	ID  string
	URL string
}

// Provider は決済プロバイダーのインターフェース。
type Provider interface {
	// CreateCheckoutSession は支払いモードのチェックアウトセッションを作成する。
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// FindSessionIDByPaymentIntent は支払いインテントIDに紐づくセッションIDを返す。
	// 見つからない場合は空文字列を返す。
	FindSessionIDByPaymentIntent(ctx context.Context, paymentIntentID string) (string, error)
}
