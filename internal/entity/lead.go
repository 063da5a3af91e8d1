package entity

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Funnel steps. Reporting markers, not gates. The pipeline only ever moves
// them forward and tolerates re-applying a terminal step.
const (
	FunnelCheckoutStart = "checkout_start"
	FunnelPaid          = "paid"
)

// PendingEmail is the sentinel stored while the real address is unknown, so
// the NOT NULL + format constraint on leads.email never blocks creation.
const PendingEmail = "pending@beatvault.app"

// MaxTags caps the tag set per lead.
const MaxTags = 25

// Shipping status values reported by the carrier, plus our own initial
// "label_created" set right after the label purchase.
const (
	ShippingLabelCreated   = "label_created"
	ShippingPreTransit     = "pre_transit"
	ShippingInTransit      = "in_transit"
	ShippingOutForDelivery = "out_for_delivery"
	ShippingDelivered      = "delivered"
	ShippingReturned       = "returned"
	ShippingFailure        = "delivery_failed"
	ShippingUnknown        = "unknown"
)

// Address is the destination snapshot persisted when a label is purchased.
type Address struct {
	Name    string `json:"name"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"` // ISO-3166 alpha-2
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// Empty reports whether the address is unusable as a shipping destination.
func (a Address) Empty() bool {
	return strings.TrimSpace(a.Street1) == "" || strings.TrimSpace(a.Country) == ""
}

// Lead doubles as the order record: created on first contact, enriched by the
// checkout and webhook paths. All writes are partial-field merges.
type Lead struct {
	ID          string `json:"id"` // client-generated uuid
	Name        string `json:"name,omitempty"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	CountryName string `json:"country_name,omitempty"`

	Source     string   `json:"source,omitempty"`
	SourcePage string   `json:"source_page,omitempty"`
	Tags       []string `json:"tags"`
	Product    string   `json:"product,omitempty"`
	FunnelStep string   `json:"funnel_step,omitempty"`

	TransactionalConsent   bool       `json:"transactional_consent"`
	TransactionalConsentAt *time.Time `json:"transactional_consent_at,omitempty"`
	MarketingConsent       bool       `json:"marketing_consent"`
	MarketingConsentAt     *time.Time `json:"marketing_consent_at,omitempty"`

	PaymentProvider string     `json:"payment_provider,omitempty"`
	PaymentID       string     `json:"payment_id,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`

	ShippingAddress *Address `json:"shipping_address,omitempty"`
	TrackingNumber  string   `json:"tracking_number,omitempty"`
	Carrier         string   `json:"carrier,omitempty"`
	ServiceLevel    string   `json:"service_level,omitempty"`
	LabelURL        string   `json:"label_url,omitempty"`
	ShippingStatus  string   `json:"shipping_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTag reports membership in the lead's tag set.
func (l *Lead) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LabelPurchased is the durable already-purchased guard: tags alone could be
// lost in a partial update, so the tracking fields are checked too.
func (l *Lead) LabelPurchased() bool {
	return l.HasTag("shippo_label_created") || l.TrackingNumber != "" || l.LabelURL != ""
}

var tagStrip = regexp.MustCompile(`[^a-z0-9_-]`)

// SanitizeTag lowercases and strips a raw tag to [a-z0-9_-]. Returns "" when
// nothing survives.
func SanitizeTag(raw string) string {
	return tagStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "")
}

// MergeTags appends sanitized newcomers to existing, dropping duplicates and
// empties, capped at MaxTags.
func MergeTags(existing []string, incoming ...string) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]bool, len(existing)+len(incoming))
	for _, t := range existing {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
	}
	for _, raw := range incoming {
		t := SanitizeTag(raw)
		if t == "" || seen[t] {
			continue
		}
		if len(merged) >= MaxTags {
			break
		}
		seen[t] = true
		merged = append(merged, t)
	}
	return merged
}

// LeadPatch is a partial-field update. Nil pointers mean "leave alone";
// AddTags are merged into the current set inside the repository so concurrent
// writers never clobber each other's tags.
type LeadPatch struct {
	Name        *string
	Email       *string
	Phone       *string
	CountryCode *string
	CountryName *string
	Source      *string
	SourcePage  *string
	Product     *string
	FunnelStep  *string

	TransactionalConsent *bool
	MarketingConsent     *bool

	PaymentProvider *string
	PaymentID       *string
	PaidAt          *time.Time

	ShippingAddress *Address
	TrackingNumber  *string
	Carrier         *string
	ServiceLevel    *string
	LabelURL        *string
	ShippingStatus  *string

	AddTags []string
}

type LeadRepositoryInterface interface {
	// Ensure creates the row if absent and merges the non-empty fields of the
	// template otherwise. Never a blind insert. Returns the stored lead and
	// whether this call created it.
	Ensure(ctx context.Context, lead *Lead) (*Lead, bool, error)
	FindByID(ctx context.Context, id string) (*Lead, error)
	FindByTrackingNumber(ctx context.Context, tracking string) (*Lead, error)
	// FindAbandonedCheckouts lists leads parked at checkout start with no
	// payment, a real email, and transactional consent, last touched before
	// the cutoff.
	FindAbandonedCheckouts(ctx context.Context, cutoff time.Time, limit int) ([]*Lead, error)
	Update(ctx context.Context, id string, patch LeadPatch) error
}
