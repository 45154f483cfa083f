package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/postpay/internal/middleware"
	"github.com/hitoshi/postpay/internal/model"
	"github.com/hitoshi/postpay/internal/payment"
)

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// --- モック定義 ---

type mockAuthService struct {
	registerFn       func(ctx context.Context, fullName, email, password string) (*model.User, error)
	loginFn          func(ctx context.Context, email, password string) (string, *model.User, error)
	getCurrentUserFn func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, fullName, email, password string) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, fullName, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return "", nil, nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, userID)
	}
	return nil, model.NewUserNotFoundError()
}

type mockUserService struct {
	listFn     func(ctx context.Context) ([]*model.User, error)
	getFn      func(ctx context.Context, id string) (*model.User, error)
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockUserService) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.User{}, nil
}

func (m *mockUserService) Get(ctx context.Context, id string) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewUserNotFoundError()
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

type mockPostService struct {
	listFn    func(ctx context.Context) ([]postResponse, error)
	getFn     func(ctx context.Context, id string) (*postResponse, error)
	createFn  func(ctx context.Context, authorID, content string) (*postResponse, error)
	updateFn  func(ctx context.Context, userID, id, content string) (*postResponse, error)
	deleteFn  func(ctx context.Context, userID, id string) error
	reactFn   func(ctx context.Context, userID, id, kind string) (*reactionResponse, error)
	feedXMLFn func(ctx context.Context) ([]byte, error)
}

func (m *mockPostService) List(ctx context.Context) ([]postResponse, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []postResponse{}, nil
}

func (m *mockPostService) Get(ctx context.Context, id string) (*postResponse, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewPostNotFoundError(id)
}

func (m *mockPostService) Create(ctx context.Context, authorID, content string) (*postResponse, error) {
	if m.createFn != nil {
		return m.createFn(ctx, authorID, content)
	}
	return &postResponse{ID: "p1", Content: content, AuthorID: authorID}, nil
}

func (m *mockPostService) Update(ctx context.Context, userID, id, content string) (*postResponse, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, id, content)
	}
	return &postResponse{ID: id, Content: content, AuthorID: userID}, nil
}

func (m *mockPostService) Delete(ctx context.Context, userID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil
}

func (m *mockPostService) React(ctx context.Context, userID, id, kind string) (*reactionResponse, error) {
	if m.reactFn != nil {
		return m.reactFn(ctx, userID, id, kind)
	}
	return &reactionResponse{Outcome: "added", Post: &postResponse{ID: id}}, nil
}

func (m *mockPostService) FeedXML(ctx context.Context) ([]byte, error) {
	if m.feedXMLFn != nil {
		return m.feedXMLFn(ctx)
	}
	return []byte(`<?xml version="1.0"?><rss version="2.0"></rss>`), nil
}

type mockPaymentService struct {
	createCheckoutFn func(ctx context.Context, userID, productName string, amount int64, description string) (string, error)
	buyPhoneFn       func(ctx context.Context, userID string) (string, error)
	handleWebhookFn  func(ctx context.Context, payload []byte, signatureHeader string) (*payment.WebhookResult, error)
}

func (m *mockPaymentService) CreateCheckout(ctx context.Context, userID, productName string, amount int64, description string) (string, error) {
	if m.createCheckoutFn != nil {
		return m.createCheckoutFn(ctx, userID, productName, amount, description)
	}
	return "https://checkout.stripe.com/c/pay/cs_test", nil
}

func (m *mockPaymentService) BuyPhone(ctx context.Context, userID string) (string, error) {
	if m.buyPhoneFn != nil {
		return m.buyPhoneFn(ctx, userID)
	}
	return "https://checkout.stripe.com/c/pay/cs_phone", nil
}

func (m *mockPaymentService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*payment.WebhookResult, error) {
	if m.handleWebhookFn != nil {
		return m.handleWebhookFn(ctx, payload, signatureHeader)
	}
	return &payment.WebhookResult{Outcome: payment.OutcomeIgnored}, nil
}

type mockMediaService struct {
	uploadFn       func(ctx context.Context, ownerID, originalName string, r io.Reader) (*mediaResponse, error)
	importRemoteFn func(ctx context.Context, ownerID, rawURL string) (*mediaResponse, error)
	getFn          func(ctx context.Context, id string) (*mediaResponse, error)
}

func (m *mockMediaService) Upload(ctx context.Context, ownerID, originalName string, r io.Reader) (*mediaResponse, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, ownerID, originalName, r)
	}
	return nil, model.NewFileRequiredError()
}

func (m *mockMediaService) ImportRemote(ctx context.Context, ownerID, rawURL string) (*mediaResponse, error) {
	if m.importRemoteFn != nil {
		return m.importRemoteFn(ctx, ownerID, rawURL)
	}
	return nil, model.NewFetchFailedError("not configured")
}

func (m *mockMediaService) Get(ctx context.Context, id string) (*mediaResponse, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewMediaNotFoundError(id)
}
