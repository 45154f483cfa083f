package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/postpay/internal/metrics"
	"github.com/hitoshi/postpay/internal/model"
	"github.com/hitoshi/postpay/internal/repository"
)

// phoneProductName は固定価格商品の注文に記録する商品名。
const phoneProductName = "phone"

// ServiceConfig は決済サービスの設定。
type ServiceConfig struct {
	FrontEndURL     string
	Currency        string
	ProductImageURL string
	PhonePriceID    string
	WebhookSecret   string
}

// Service は決済のビジネスロジックを提供する。
type Service struct {
	provider Provider
	orders   repository.OrderRepository
	metrics  metrics.MetricsCollector
	config   ServiceConfig
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	provider Provider,
	orders repository.OrderRepository,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	config.FrontEndURL = strings.TrimRight(config.FrontEndURL, "/")
	return &Service{
		provider: provider,
		orders:   orders,
		metrics:  collector,
		config:   config,
		now:      time.Now,
	}
}

// CreateCheckout は商品名と金額（最小通貨単位）を指定してチェックアウトセッションを作成し、
// PENDINGの注文を記録してリダイレクト先URLを返す。
func (s *Service) CreateCheckout(ctx context.Context, userID, productName string, amount int64, description string) (string, error) {
	productName = strings.TrimSpace(productName)
	if productName == "" {
		return "", model.NewInvalidRequestError("productName is required")
	}
	if amount <= 0 {
		return "", model.NewInvalidAmountError(amount)
	}

	req := CheckoutRequest{
		ProductName:       productName,
		Description:       strings.TrimSpace(description),
		ImageURL:          s.config.ProductImageURL,
		Currency:          s.config.Currency,
		UnitAmount:        amount,
		Quantity:          1,
		ClientReferenceID: userID,
	}
	return s.startCheckout(ctx, userID, model.OrderKindCheckout, req)
}

// BuyPhone は固定価格商品のチェックアウトセッションを作成する。
func (s *Service) BuyPhone(ctx context.Context, userID string) (string, error) {
	req := CheckoutRequest{
		PriceID:           s.config.PhonePriceID,
		ProductName:       phoneProductName,
		Quantity:          1,
		ClientReferenceID: userID,
	}
	return s.startCheckout(ctx, userID, model.OrderKindPhone, req)
}

func (s *Service) startCheckout(ctx context.Context, userID string, kind model.OrderKind, req CheckoutRequest) (string, error) {
	req.SuccessURL = s.config.FrontEndURL + "/?success=true"
	req.CancelURL = s.config.FrontEndURL + "/?canceled=true"

	session, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	now := s.now().UTC()
	order := &model.Order{
		ID:          uuid.New().String(),
		SessionID:   session.ID,
		UserID:      userID,
		Kind:        kind,
		ProductName: req.ProductName,
		Amount:      req.UnitAmount,
		Currency:    req.Currency,
		Status:      model.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", fmt.Errorf("checkout session %s is already recorded: %w", session.ID, err)
		}
		return "", fmt.Errorf("failed to record order: %w", err)
	}

	s.metrics.RecordCheckoutSession(string(kind))
	slog.Info("checkout session created",
		slog.String("order_id", order.ID),
		slog.String("session_id", session.ID),
		slog.String("kind", string(kind)),
		slog.String("user_id", userID),
	)
	return session.URL, nil
}
