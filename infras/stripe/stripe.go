package stripe

//go:generate go run go.uber.org/mock/mockgen -source=./stripe.go -destination=./mocks/stripe_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"fmt"

	stripeGo "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"
	"github.com/stripe/stripe-go/v74/webhook"

	"carhive/config"
	"carhive/shared/failure"
)

// EventType is the subset of gateway callback types the core reacts to.
type EventType string

const (
	EventPaymentSucceeded EventType = "payment_intent.succeeded"
	EventPaymentFailed    EventType = "payment_intent.payment_failed"
)

// Event is a verified gateway callback, reduced to the fields the payment
// correlation needs. Correlation is strictly by IntentID, never by booking.
type Event struct {
	ID            string
	Type          EventType
	IntentID      string
	FailureReason string
}

// Intent is a freshly created gateway payment attempt.
type Intent struct {
	ID           string
	ClientSecret string
}

// Gateway wraps the external payment processor. Amounts are int64 cents.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency, description string, metadata map[string]string) (Intent, error)
	Refund(ctx context.Context, intentID string, amount int64, reason string) (string, error)
	VerifyWebhook(payload []byte, signatureHeader string) (Event, error)
}

type gatewayImpl struct {
	config *config.Config
}

func New(cfg *config.Config) Gateway {
	stripeGo.Key = cfg.Payment.Stripe.SecretKey

	return &gatewayImpl{
		config: cfg,
	}
}

func (g *gatewayImpl) CreateIntent(_ context.Context, amount int64, currency, description string, metadata map[string]string) (Intent, error) {
	params := &stripeGo.PaymentIntentParams{
		Amount:      stripeGo.Int64(amount),
		Currency:    stripeGo.String(currency),
		Description: stripeGo.String(description),
	}

	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

func (g *gatewayImpl) Refund(_ context.Context, intentID string, amount int64, reason string) (string, error) {
	params := &stripeGo.RefundParams{
		PaymentIntent: stripeGo.String(intentID),
		Amount:        stripeGo.Int64(amount),
	}

	if reason != "" {
		params.AddMetadata("reason", reason)
	}

	ref, err := refund.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create refund: %w", err)
	}

	return ref.ID, nil
}

// VerifyWebhook checks the payload signature against the shared webhook
// secret and reduces the event to the correlation fields. Unverified payloads
// are rejected without any state change.
func (g *gatewayImpl) VerifyWebhook(payload []byte, signatureHeader string) (Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, signatureHeader, g.config.Payment.Stripe.WebhookSecret)
	if err != nil {
		return Event{}, failure.GatewayVerification("webhook signature verification failed") //nolint:wrapcheck
	}

	event := Event{
		ID:   stripeEvent.ID,
		Type: EventType(stripeEvent.Type),
	}

	var intent stripeGo.PaymentIntent
	if err := json.Unmarshal(stripeEvent.Data.Raw, &intent); err != nil {
		return Event{}, failure.GatewayVerification("webhook payload could not be decoded") //nolint:wrapcheck
	}

	event.IntentID = intent.ID

	if intent.LastPaymentError != nil {
		event.FailureReason = intent.LastPaymentError.Msg
	}

	return event, nil
}
