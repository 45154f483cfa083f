package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/postpay/internal/model"
	"github.com/hitoshi/postpay/internal/payment"
)

// maxWebhookBodyBytes はWebhookリクエストボディの上限。
const maxWebhookBodyBytes = 65536

// PaymentServiceInterface は決済ハンドラーが必要とするサービスインターフェース。
type PaymentServiceInterface interface {
	CreateCheckout(ctx context.Context, userID, productName string, amount int64, description string) (string, error)
	BuyPhone(ctx context.Context, userID string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*payment.WebhookResult, error)
}

// StripeHandler はチェックアウトとWebhookのHTTPハンドラー。
type StripeHandler struct {
	service PaymentServiceInterface
}

// NewStripeHandler はStripeHandlerを生成する。
func NewStripeHandler(service PaymentServiceInterface) *StripeHandler {
	return &StripeHandler{service: service}
}

type checkoutRequest struct {
	ProductName string `json:"productName"`
	Amount      int64  `json:"amount"` // 最小通貨単位（セント）
	Description string `json:"description"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}

// Checkout は任意の商品名・金額でチェックアウトセッションを作成する。
// POST /stripe/checkout
func (h *StripeHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	url, err := h.service.CreateCheckout(r.Context(), userID, req.ProductName, req.Amount, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{URL: url})
}

// BuyPhone は固定価格の商品でチェックアウトセッションを作成する。
// POST /stripe/buy-phone
func (h *StripeHandler) BuyPhone(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	url, err := h.service.BuyPhone(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{URL: url})
}

// Webhook は決済プロバイダーからのイベントを受け取る。
// 署名検証には生のボディが必要なため、JSONとしてはデコードしない。
// POST /stripe/webhook
func (h *StripeHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewInvalidRequestError("payload too large"))
			return
		}
		slog.Warn("failed to read webhook body", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("failed to read body"))
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{
		Received: true,
		Outcome:  string(result.Outcome),
	})
}
