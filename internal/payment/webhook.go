package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/hitoshi/postpay/internal/model"
	"github.com/hitoshi/postpay/internal/repository"
)

// WebhookOutcome はWebhookイベントの処理結果を表す。
type WebhookOutcome string

const (
	// OutcomeUpdated は注文ステータスを更新した。
	OutcomeUpdated WebhookOutcome = "updated"
	// OutcomeUnchanged は注文が遷移元条件を満たさず変更しなかった。
	OutcomeUnchanged WebhookOutcome = "unchanged"
	// OutcomeOrderNotFound は対応する注文が無かった。
	OutcomeOrderNotFound WebhookOutcome = "order_not_found"
	// OutcomeDuplicate は同じイベントを処理済みだった。
	OutcomeDuplicate WebhookOutcome = "duplicate"
	// OutcomeIgnored は対象外のイベント種別だった。
	OutcomeIgnored WebhookOutcome = "ignored"
)

// WebhookResult はWebhook処理の結果。
type WebhookResult struct {
	EventID   string
	EventType string
	SessionID string
	Outcome   WebhookOutcome
}

// transition はイベント種別ごとの遷移先と遷移元の条件。
type transition struct {
	to   model.OrderStatus
	from []model.OrderStatus
}

// SUCCESSは終端状態。REJECTEDの後に決済完了が届いた場合はSUCCESSを優先する。
var (
	toSuccess = transition{
		to:   model.OrderStatusSuccess,
		from: []model.OrderStatus{model.OrderStatusPending, model.OrderStatusRejected},
	}
	toRejected = transition{
		to:   model.OrderStatusRejected,
		from: []model.OrderStatus{model.OrderStatusPending},
	}
)

// transitionFor はイベント種別に対応する遷移を返す。対象外の種別はfalseを返す。
func transitionFor(eventType stripe.EventType) (transition, bool) {
	switch eventType {
	case stripe.EventTypeCheckoutSessionCompleted:
		return toSuccess, true
	case stripe.EventTypeCheckoutSessionExpired, stripe.EventTypePaymentIntentPaymentFailed:
		return toRejected, true
	default:
		return transition{}, false
	}
}

// HandleWebhook は署名を検証したうえでイベントに応じて注文ステータスを更新する。
// 署名検証に失敗した場合はINVALID_SIGNATUREを返し、何も変更しない。
// 同じイベントIDの再配信は記録済みとして扱い、再適用しない。
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		slog.Warn("webhook signature verification failed", slog.String("error", err.Error()))
		return nil, model.NewInvalidSignatureError()
	}

	result := &WebhookResult{EventID: event.ID, EventType: string(event.Type)}
	record := model.WebhookEvent{
		EventID:    event.ID,
		Type:       string(event.Type),
		ReceivedAt: s.now().UTC(),
	}

	tr, ok := transitionFor(event.Type)
	if !ok {
		recorded, err := s.orders.RecordWebhookEvent(ctx, record)
		if err != nil {
			return nil, fmt.Errorf("failed to record webhook event: %w", err)
		}
		result.Outcome = OutcomeIgnored
		if !recorded {
			result.Outcome = OutcomeDuplicate
		}
		s.finish(result)
		return result, nil
	}

	sessionID, err := s.sessionIDFor(ctx, event)
	if err != nil {
		return nil, err
	}
	result.SessionID = sessionID

	if sessionID == "" {
		recorded, err := s.orders.RecordWebhookEvent(ctx, record)
		if err != nil {
			return nil, fmt.Errorf("failed to record webhook event: %w", err)
		}
		result.Outcome = OutcomeOrderNotFound
		if !recorded {
			result.Outcome = OutcomeDuplicate
		}
		s.finish(result)
		return result, nil
	}

	status, err := s.orders.ApplyWebhookStatus(ctx, record, sessionID, tr.to, tr.from)
	if err != nil {
		return nil, fmt.Errorf("failed to apply webhook status: %w", err)
	}
	result.Outcome = outcomeFromStatus(status)
	s.finish(result)
	return result, nil
}

// sessionIDFor はイベントの対象となるチェックアウトセッションIDを返す。
// payment_intent.payment_failed は支払いインテントIDからセッションを再検索する。
func (s *Service) sessionIDFor(ctx context.Context, event stripe.Event) (string, error) {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return "", fmt.Errorf("webhook event %s has no data object", event.ID)
	}

	if event.Type == stripe.EventTypePaymentIntentPaymentFailed {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return "", fmt.Errorf("failed to parse payment intent: %w", err)
		}
		sessionID, err := s.provider.FindSessionIDByPaymentIntent(ctx, pi.ID)
		if err != nil {
			return "", fmt.Errorf("failed to find session for payment intent %s: %w", pi.ID, err)
		}
		return sessionID, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return "", fmt.Errorf("failed to parse checkout session: %w", err)
	}
	return cs.ID, nil
}

func (s *Service) finish(result *WebhookResult) {
	s.metrics.RecordWebhookEvent(result.EventType, string(result.Outcome))

	attrs := []any{
		slog.String("event_id", result.EventID),
		slog.String("event_type", result.EventType),
		slog.String("session_id", result.SessionID),
		slog.String("outcome", string(result.Outcome)),
	}
	switch result.Outcome {
	case OutcomeOrderNotFound:
		slog.Warn("webhook event for unknown checkout session", attrs...)
	case OutcomeIgnored:
		slog.Info("unhandled webhook event type", attrs...)
	default:
		slog.Info("webhook event processed", attrs...)
	}
}

func outcomeFromStatus(status repository.StatusUpdateResult) WebhookOutcome {
	switch status {
	case repository.StatusUpdated:
		return OutcomeUpdated
	case repository.StatusDuplicate:
		return OutcomeDuplicate
	case repository.StatusOrderNotFound:
		return OutcomeOrderNotFound
	default:
		return OutcomeUnchanged
	}
}
