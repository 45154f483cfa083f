package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProvider はStripe APIを使用したProvider実装。
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider はシークレットキーでStripeクライアントを初期化する。
func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{api: client.New(secretKey, nil)}
}

// CreateCheckoutSession は支払いモードのチェックアウトセッションを作成する。
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  []*stripe.CheckoutSessionLineItemParams{buildLineItem(req)},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ClientReferenceID)
	}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// FindSessionIDByPaymentIntent は支払いインテントIDでチェックアウトセッションを検索する。
func (p *StripeProvider) FindSessionIDByPaymentIntent(ctx context.Context, paymentIntentID string) (string, error) {
	params := &stripe.CheckoutSessionListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Limit = stripe.Int64(1)
	params.Single = true
	params.Context = ctx

	iter := p.api.CheckoutSessions.List(params)
	if iter.Next() {
		return iter.CheckoutSession().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("stripe: failed to list checkout sessions: %w", err)
	}
	return "", nil
}

func buildLineItem(req CheckoutRequest) *stripe.CheckoutSessionLineItemParams {
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	item := &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(quantity),
	}
	if req.PriceID != "" {
		item.Price = stripe.String(req.PriceID)
		return item
	}

	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(req.ProductName),
	}
	// Stripeは空文字列のdescriptionを拒否する
	if req.Description != "" {
		product.Description = stripe.String(req.Description)
	}
	if req.ImageURL != "" {
		product.Images = stripe.StringSlice([]string{req.ImageURL})
	}
	item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:    stripe.String(req.Currency),
		ProductData: product,
		UnitAmount:  stripe.Int64(req.UnitAmount),
	}
	return item
}

var _ Provider = (*StripeProvider)(nil)
