package usecase

// CreateCheckoutInput is the "action":"create" request body.
type CreateCheckoutInput struct {
	LeadID   string `json:"leadId"`
	Product  string `json:"product"`
	Provider string `json:"provider,omitempty"` // stripe (default) or paypal

	Name        string   `json:"name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	CountryCode string   `json:"country_code,omitempty"`
	CountryName string   `json:"country_name,omitempty"`
	Source      string   `json:"source,omitempty"`
	SourcePage  string   `json:"source_page,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Language    string   `json:"language,omitempty"`

	TransactionalConsent bool `json:"transactional_consent,omitempty"`
	MarketingConsent     bool `json:"marketing_consent,omitempty"`
}

type CreateCheckoutOutput struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// VerifyCheckoutInput is the "action":"verify" request body.
type VerifyCheckoutInput struct {
	LeadID    string `json:"leadId"`
	SessionID string `json:"sessionId"`
	Product   string `json:"product,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

type VerifyCheckoutOutput struct {
	OK     bool        `json:"ok"`
	Paid   bool        `json:"paid"`
	Shippo *ShippoInfo `json:"shippo,omitempty"`
}

// ShippoInfo is the label slice of a lead exposed on verify responses.
type ShippoInfo struct {
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
	LabelURL       string `json:"label_url,omitempty"`
	Status         string `json:"status,omitempty"`
}

// Webhook processing outcomes: exactly the terminal ledger states, plus
// duplicate for a short-circuited redelivery.
const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
)

// ProcessResult is what a webhook handler records on the ledger row and
// reports back to the provider.
type ProcessResult struct {
	Outcome string
	Reason  string
	LeadID  string
	Shippo  *ShippoInfo
}

// AbandonedSummary aggregates one abandoned-checkout sweep.
type AbandonedSummary struct {
	Scanned  int `json:"scanned"`
	Enqueued int `json:"enqueued"`
}

// DispatchSummary aggregates one dispatcher batch.
type DispatchSummary struct {
	Claimed  int      `json:"claimed"`
	Sent     int      `json:"sent"`
	Failed   int      `json:"failed"`
	Failures []string `json:"failures,omitempty"`
}
