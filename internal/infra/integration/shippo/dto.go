package shippo

// AddressInput is the address shape Shippo accepts on shipments.
type AddressInput struct {
	Name    string `json:"name"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Parcel describes the package. One fixed parcel per USB order.
type Parcel struct {
	Length       string `json:"length"`
	Width        string `json:"width"`
	Height       string `json:"height"`
	DistanceUnit string `json:"distance_unit"`
	Weight       string `json:"weight"`
	MassUnit     string `json:"mass_unit"`
}

type Rate struct {
	ObjectID     string `json:"object_id"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Provider     string `json:"provider"`
	ServiceLevel struct {
		Name  string `json:"name"`
		Token string `json:"token"`
	} `json:"servicelevel"`
}

type Shipment struct {
	ObjectID string `json:"object_id"`
	Status   string `json:"status"`
	Rates    []Rate `json:"rates"`
}

type shipmentRequest struct {
	AddressFrom AddressInput `json:"address_from"`
	AddressTo   AddressInput `json:"address_to"`
	Parcels     []Parcel     `json:"parcels"`
	Async       bool         `json:"async"`
	Metadata    string       `json:"metadata,omitempty"`
}

type transactionRequest struct {
	Rate          string `json:"rate"`
	LabelFileType string `json:"label_file_type"`
	Async         bool   `json:"async"`
	Metadata      string `json:"metadata,omitempty"`
}

// Transaction is the purchased label.
type Transaction struct {
	ObjectID       string   `json:"object_id"`
	Status         string   `json:"status"` // SUCCESS, ERROR
	TrackingNumber string   `json:"tracking_number"`
	TrackingStatus string   `json:"tracking_status"`
	LabelURL       string   `json:"label_url"`
	Messages       []struct {
		Text string `json:"text"`
	} `json:"messages"`
	Rate Rate `json:"rate"`
}

// TrackingUpdate is the tracking webhook's data block. Shippo has no canonical
// event id, so a fingerprint over (carrier, tracking number, status, status
// date) dedups redeliveries.
type TrackingUpdate struct {
	Carrier        string          `json:"carrier"`
	TrackingNumber string          `json:"tracking_number"`
	Metadata       string          `json:"metadata"`
	TrackingStatus *TrackingStatus `json:"tracking_status"`
}

// TrackingStatus is one carrier milestone.
type TrackingStatus struct {
	Status     string `json:"status"`
	StatusDate string `json:"status_date"`
}

// WebhookEnvelope is the outer tracking webhook payload.
type WebhookEnvelope struct {
	Event string         `json:"event"`
	Test  bool           `json:"test"`
	Data  TrackingUpdate `json:"data"`
}
