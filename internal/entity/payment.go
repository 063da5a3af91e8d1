package entity

// CheckoutSession is what a provider hands back for a hosted checkout: the id
// we correlate webhooks with and the URL the buyer is redirected to.
type CheckoutSession struct {
	Provider  string `json:"provider"`
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// PaymentConfirmation is the normalized "payment confirmed" shape. Both
// providers map their native envelopes into this; everything downstream of
// webhook ingestion depends only on it.
type PaymentConfirmation struct {
	Provider  string
	SessionID string
	// LeadID from provider metadata; Reference is the client-reference /
	// custom-id fallback used when metadata was lost.
	LeadID    string
	Reference string

	// ProductKey from provider metadata when carried; the lead's stored
	// product is the fallback.
	ProductKey string

	Paid        bool
	AmountCents int64
	Currency    string

	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	// Destination candidates in priority order: an explicit shipping block
	// beats the billing/contact one.
	ShippingAddress Address
	BillingAddress  Address
}

// ResolveLeadID prefers provider metadata and falls back to the reference.
func (p PaymentConfirmation) ResolveLeadID() string {
	if p.LeadID != "" {
		return p.LeadID
	}
	return p.Reference
}
