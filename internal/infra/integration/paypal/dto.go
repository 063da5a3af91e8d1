package paypal

import "encoding/json"

// Event is the webhook envelope. PayPal supplies a stable event id (WH-...);
// the ledger dedups on it.
type Event struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	CreateTime   string          `json:"create_time"`
	ResourceType string          `json:"resource_type"`
	Resource     json.RawMessage `json:"resource"`
}

type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type Name struct {
	GivenName string `json:"given_name"`
	Surname   string `json:"surname"`
	FullName  string `json:"full_name"`
}

type AddressPortable struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	AdminArea2   string `json:"admin_area_2"` // city
	AdminArea1   string `json:"admin_area_1"` // state
	PostalCode   string `json:"postal_code"`
	CountryCode  string `json:"country_code"`
}

type Shipping struct {
	Name    *Name            `json:"name"`
	Address *AddressPortable `json:"address"`
}

type Payer struct {
	Name    *Name            `json:"name"`
	Email   string           `json:"email_address"`
	Address *AddressPortable `json:"address"`
}

type Capture struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	Amount            Amount `json:"amount"`
	CustomID          string `json:"custom_id"`
	SupplementaryData *struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
}

type PurchaseUnit struct {
	ReferenceID string    `json:"reference_id"`
	CustomID    string    `json:"custom_id"`
	Amount      Amount    `json:"amount"`
	Shipping    *Shipping `json:"shipping"`
	Payments    *struct {
		Captures []Capture `json:"captures"`
	} `json:"payments"`
}

// Order is /v2/checkout/orders in both create responses and event resources.
type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"` // CREATED, APPROVED, COMPLETED
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
	Payer         *Payer         `json:"payer"`
	Links         []Link         `json:"links"`
}

type Link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}
