package shippo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

const ProviderName = "shippo"

// USB drive mailer, fixed for every physical order.
var defaultParcel = Parcel{
	Length:       "6",
	Width:        "4",
	Height:       "1",
	DistanceUnit: "in",
	Weight:       "4",
	MassUnit:     "oz",
}

type Client struct {
	baseURL string
	apiKey  string
	origin  AddressInput
	http    *http.Client
}

func NewClient(apiKey, baseURL string, origin AddressInput) *Client {
	if baseURL == "" {
		baseURL = "https://api.goshippo.com"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		origin:  origin,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Label is the purchased-label result persisted onto the lead.
type Label struct {
	TrackingNumber string
	Carrier        string
	ServiceLevel   string
	LabelURL       string
}

// PurchaseLabel rates a shipment from the fixed origin to the destination and
// buys the cheapest rate. The lead id goes into metadata so the tracking
// webhook can resolve it later.
func (c *Client) PurchaseLabel(ctx context.Context, leadID string, to entity.Address) (*Label, error) {
	metadata := "lead:" + leadID

	shipment, err := c.createShipment(ctx, to, metadata)
	if err != nil {
		return nil, err
	}
	if len(shipment.Rates) == 0 {
		return nil, fmt.Errorf("shippo returned no rates for shipment %s", shipment.ObjectID)
	}

	rate := cheapestRate(shipment.Rates)

	txn, err := c.createTransaction(ctx, rate.ObjectID, metadata)
	if err != nil {
		return nil, err
	}
	if txn.Status != "SUCCESS" {
		reason := "unknown"
		if len(txn.Messages) > 0 {
			reason = txn.Messages[0].Text
		}
		return nil, fmt.Errorf("shippo transaction %s not successful: %s", txn.ObjectID, reason)
	}

	return &Label{
		TrackingNumber: txn.TrackingNumber,
		Carrier:        rate.Provider,
		ServiceLevel:   rate.ServiceLevel.Name,
		LabelURL:       txn.LabelURL,
	}, nil
}

func (c *Client) createShipment(ctx context.Context, to entity.Address, metadata string) (*Shipment, error) {
	req := shipmentRequest{
		AddressFrom: c.origin,
		AddressTo: AddressInput{
			Name:    to.Name,
			Street1: to.Street1,
			Street2: to.Street2,
			City:    to.City,
			State:   to.State,
			Zip:     to.Zip,
			Country: to.Country,
			Phone:   to.Phone,
			Email:   to.Email,
		},
		Parcels:  []Parcel{defaultParcel},
		Async:    false,
		Metadata: metadata,
	}

	var shipment Shipment
	if err := c.do(ctx, "/shipments/", req, &shipment); err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (c *Client) createTransaction(ctx context.Context, rateID, metadata string) (*Transaction, error) {
	req := transactionRequest{
		Rate:          rateID,
		LabelFileType: "PDF",
		Async:         false,
		Metadata:      metadata,
	}

	var txn Transaction
	if err := c.do(ctx, "/transactions/", req, &txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

func cheapestRate(rates []Rate) Rate {
	best := rates[0]
	bestAmount, _ := strconv.ParseFloat(best.Amount, 64)
	for _, rate := range rates[1:] {
		amount, err := strconv.ParseFloat(rate.Amount, 64)
		if err != nil {
			continue
		}
		if amount < bestAmount {
			best, bestAmount = rate, amount
		}
	}
	return best
}

func (c *Client) do(ctx context.Context, path string, payload interface{}, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal shippo payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "ShippoToken "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("shippo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("shippo POST %s: status %d: %s", path, resp.StatusCode, truncate(body, 200))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode shippo response: %w", err)
	}
	return nil
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
