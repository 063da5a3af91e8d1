package usecase

import (
	"context"
	"time"

	"github.com/beatvault/beatvault-orders/internal/entity"
	"github.com/beatvault/beatvault-orders/internal/infra/integration/shippo"
	"github.com/beatvault/beatvault-orders/internal/infra/mail"
)

// PaymentProvider is the shared contract of the hosted-checkout providers:
// create a session for a redirect, confirm one into the normalized shape.
type PaymentProvider interface {
	Name() string
	CreateSession(ctx context.Context, leadID string, product entity.Product, customerEmail string) (*entity.CheckoutSession, error)
	ConfirmSession(ctx context.Context, sessionID string) (*entity.PaymentConfirmation, error)
}

// ProviderRegistry resolves a provider by name, defaulting to the card one.
type ProviderRegistry struct {
	providers map[string]PaymentProvider
	fallback  string
}

func NewProviderRegistry(fallback string, providers ...PaymentProvider) *ProviderRegistry {
	m := make(map[string]PaymentProvider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &ProviderRegistry{providers: m, fallback: fallback}
}

func (r *ProviderRegistry) Get(name string) (PaymentProvider, bool) {
	if name == "" {
		name = r.fallback
	}
	p, ok := r.providers[name]
	return p, ok
}

// LabelPurchaser buys exactly one shipping label per call.
type LabelPurchaser interface {
	PurchaseLabel(ctx context.Context, leadID string, to entity.Address) (*shippo.Label, error)
}

// PurchaseLock narrows the concurrent-webhook window around external side
// effects. Best-effort: a lock error must not block the durable guards.
type PurchaseLock interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string)
}

// EmailSenderInterface delivers one rendered email, returning the provider's
// message id.
type EmailSenderInterface interface {
	Send(to string, email *mail.RenderedEmail) (string, error)
}

// EmailEnqueuer is what pipeline steps use to request an email.
type EmailEnqueuer interface {
	Enqueue(ctx context.Context, recipient, templateKey, language, dedupeKey string, payload map[string]interface{}) (string, error)
}
