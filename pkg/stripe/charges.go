package stripe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
)

// ChargeResult carries the gateway outcome for one tokenized card attempt.
type ChargeResult struct {
	Succeeded        bool
	GatewayReference string
	FailureReason    string
}

// ChargeCard runs a synchronous off-session charge against a tokenized card.
// The call is bounded by timeout; failures are returned in the result rather
// than as an error so callers can persist the attempt either way. An error is
// returned only when the gateway could not be reached at all.
func (c *Client) ChargeCard(ctx context.Context, cardToken string, amountCents int64, reference string, timeout time.Duration) (ChargeResult, error) {
	if c == nil || c.api == nil {
		return ChargeResult{}, fmt.Errorf("stripe client not initialized")
	}
	if strings.TrimSpace(cardToken) == "" {
		return ChargeResult{}, fmt.Errorf("card token is required")
	}
	if amountCents <= 0 {
		return ChargeResult{}, fmt.Errorf("charge amount must be positive")
	}
	if strings.TrimSpace(reference) == "" {
		return ChargeResult{}, fmt.Errorf("charge reference is required")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(string(stripe.CurrencyBRL)),
		PaymentMethod: stripe.String(cardToken),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
		Description:   stripe.String(reference),
	}
	params.SetIdempotencyKey(idempotencyKey(reference))

	intent, err := c.api.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			return ChargeResult{
				Succeeded:     false,
				FailureReason: string(stripeErr.Code),
			}, nil
		}
		return ChargeResult{}, fmt.Errorf("creating payment intent: %w", err)
	}

	result := ChargeResult{GatewayReference: intent.ID}
	if intent.Status == stripe.PaymentIntentStatusSucceeded {
		result.Succeeded = true
		return result, nil
	}

	result.FailureReason = fmt.Sprintf("payment intent status %s", intent.Status)
	return result, nil
}

// idempotencyKey is derived from the caller's reference alone. A retried call
// with the same reference reuses the key, so a charge that timed out after
// reaching Stripe cannot capture a second time.
func idempotencyKey(reference string) string {
	return "cf-" + strings.TrimSpace(reference)
}
