package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
)

// Stripe charges a tokenized card through a confirmed PaymentIntent.
type Stripe struct {
	client   *stripe.Client
	currency string
}

func NewStripe(secretKey, currency string) *Stripe {
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	return &Stripe{
		client:   stripe.NewClient(secretKey),
		currency: currency,
	}
}

func (s *Stripe) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	const op = "payment.Stripe.Charge"

	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:        stripe.Int64(req.AmountCents),
		Currency:      stripe.String(currency),
		PaymentMethod: stripe.String(req.CardToken),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String(req.Descriptor),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.AddExpand("latest_charge")
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := s.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		if res, ok := declined(err); ok {
			return res, nil
		}
		return ChargeResult{}, fmt.Errorf("%s:%w", op, err)
	}

	return intentResult(pi), nil
}

// declined turns a card or request error reported by Stripe into a failed
// result. Network and auth problems stay errors.
func declined(err error) (ChargeResult, bool) {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return ChargeResult{}, false
	}

	switch se.Type {
	case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest:
	default:
		return ChargeResult{}, false
	}

	code := string(se.Code)
	if se.DeclineCode != "" {
		code = string(se.DeclineCode)
	}
	if code == "" {
		code = string(se.Type)
	}

	return ChargeResult{ErrorCode: code, ErrorMessage: se.Msg}, true
}

func intentResult(pi *stripe.PaymentIntent) ChargeResult {
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return ChargeResult{
			TransactionID: pi.ID,
			ErrorCode:     "payment_" + string(pi.Status),
			ErrorMessage:  "payment was not completed",
		}
	}

	res := ChargeResult{Success: true, TransactionID: pi.ID}
	if ch := pi.LatestCharge; ch != nil && ch.PaymentMethodDetails != nil && ch.PaymentMethodDetails.Card != nil {
		res.CardType = string(ch.PaymentMethodDetails.Card.Brand)
		res.CardLast4 = ch.PaymentMethodDetails.Card.Last4
	}

	return res
}
