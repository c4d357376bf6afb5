// Package payment 对接 Stripe Checkout：创建会话、校验 webhook 签名。
package payment

import (
	"context"
	"errors"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"natours/internal/core/config"
)

const EventCheckoutCompleted = "checkout.session.completed"

var ErrNotConfigured = errors.New("payment: not configured")

type CheckoutRequest struct {
	ReferenceID   string // 回传到 webhook 的 client_reference_id
	CustomerEmail string
	Name          string
	Description   string
	ImageURL      string
	Amount        float64 // 主货币单位
	SuccessURL    string
	CancelURL     string
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Event 已通过签名校验的事件；Object 为 data.object 的原始 JSON
type Event struct {
	ID     string
	Type   string
	Object []byte
}

type Gateway interface {
	CreateCheckout(ctx context.Context, r CheckoutRequest) (*Session, error)
	VerifyEvent(payload []byte, signature string) (*Event, error)
}

type Stripe struct {
	sc            *client.API
	currency      string
	webhookSecret string
}

func NewStripe(cfg config.Payment) *Stripe {
	s := &Stripe{currency: cfg.Currency, webhookSecret: cfg.WebhookSecret}
	if cfg.StripeSecretKey != "" {
		s.sc = client.New(cfg.StripeSecretKey, nil)
	}
	if s.currency == "" {
		s.currency = string(stripe.CurrencyUSD)
	}
	return s
}

func (s *Stripe) CreateCheckout(ctx context.Context, r CheckoutRequest) (*Session, error) {
	if s.sc == nil {
		return nil, ErrNotConfigured
	}
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name:        stripe.String(r.Name),
		Description: stripe.String(r.Description),
	}
	if r.ImageURL != "" {
		product.Images = stripe.StringSlice([]string{r.ImageURL})
	}
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(r.SuccessURL),
		CancelURL:          stripe.String(r.CancelURL),
		CustomerEmail:      stripe.String(r.CustomerEmail),
		ClientReferenceID:  stripe.String(r.ReferenceID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(s.currency),
				UnitAmount:  stripe.Int64(int64(math.Round(r.Amount * 100))),
				ProductData: product,
			},
		}},
	}
	params.Context = ctx

	cs, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &Session{ID: cs.ID, URL: cs.URL}, nil
}

func (s *Stripe) VerifyEvent(payload []byte, signature string) (*Event, error) {
	if s.webhookSecret == "" {
		return nil, ErrNotConfigured
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, err
	}
	var obj []byte
	if ev.Data != nil {
		obj = ev.Data.Raw
	}
	return &Event{ID: ev.ID, Type: string(ev.Type), Object: obj}, nil
}
