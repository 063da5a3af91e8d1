package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

const ProviderName = "paypal"

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	returnURL    string
	cancelURL    string
	http         *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(clientID, clientSecret, baseURL, returnURL, cancelURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api-m.paypal.com"
	}
	return &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		returnURL:    returnURL,
		cancelURL:    cancelURL,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Name() string { return ProviderName }

// CreateSession creates an order and returns the approval link the buyer is
// redirected to. The lead id travels in custom_id.
func (c *Client) CreateSession(ctx context.Context, leadID string, product entity.Product, customerEmail string) (*entity.CheckoutSession, error) {
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{{
			"reference_id": leadID,
			"custom_id":    leadID,
			"description":  product.Name,
			"amount": map[string]string{
				"currency_code": strings.ToUpper(product.Currency),
				"value":         fmt.Sprintf("%d.%02d", product.AmountCents/100, product.AmountCents%100),
			},
		}},
		"application_context": map[string]string{
			"return_url":          c.returnURL,
			"cancel_url":          c.cancelURL,
			"shipping_preference": shippingPreference(product),
			"user_action":         "PAY_NOW",
		},
	}

	var order Order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", payload, &order); err != nil {
		return nil, err
	}

	approveURL := ""
	for _, link := range order.Links {
		if link.Rel == "approve" {
			approveURL = link.Href
		}
	}
	if approveURL == "" {
		return nil, fmt.Errorf("paypal order %s carries no approve link", order.ID)
	}

	return &entity.CheckoutSession{
		Provider:  ProviderName,
		SessionID: order.ID,
		URL:       approveURL,
	}, nil
}

func shippingPreference(product entity.Product) string {
	if product.Shippable {
		return "GET_FROM_FILE"
	}
	return "NO_SHIPPING"
}

// CaptureOrder captures an approved order. A transport-level failure is
// ambiguous (the capture may still have landed provider-side), so the caller
// must fetch-to-confirm before declaring it failed.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*entity.PaymentConfirmation, error) {
	var order Order
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.do(ctx, http.MethodPost, path, map[string]interface{}{}, &order); err != nil {
		// Fetch-to-confirm: one GET settles whether the capture succeeded.
		fetched, fetchErr := c.GetOrder(ctx, orderID)
		if fetchErr == nil && fetched.Paid {
			return fetched, nil
		}
		return nil, err
	}
	conf := Normalize(&order)
	return &conf, nil
}

// GetOrder fetches the current order state and normalizes it.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*entity.PaymentConfirmation, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	conf := Normalize(&order)
	return &conf, nil
}

// ConfirmSession is the verify-path entry: a completed order counts as paid.
func (c *Client) ConfirmSession(ctx context.Context, sessionID string) (*entity.PaymentConfirmation, error) {
	return c.GetOrder(ctx, sessionID)
}

// Normalize maps an order to the provider-agnostic confirmation.
func Normalize(order *Order) entity.PaymentConfirmation {
	conf := entity.PaymentConfirmation{
		Provider:  ProviderName,
		SessionID: order.ID,
		Paid:      order.Status == "COMPLETED",
	}

	if payer := order.Payer; payer != nil {
		conf.CustomerEmail = payer.Email
		if payer.Name != nil {
			conf.CustomerName = strings.TrimSpace(payer.Name.GivenName + " " + payer.Name.Surname)
		}
		if payer.Address != nil {
			conf.BillingAddress = toAddress(payer.Address, conf.CustomerName, payer.Email)
		}
	}

	if len(order.PurchaseUnits) > 0 {
		unit := order.PurchaseUnits[0]
		conf.LeadID = unit.CustomID
		conf.Reference = unit.ReferenceID
		conf.AmountCents = parseCents(unit.Amount.Value)
		conf.Currency = strings.ToLower(unit.Amount.CurrencyCode)
		if unit.Shipping != nil && unit.Shipping.Address != nil {
			name := conf.CustomerName
			if unit.Shipping.Name != nil && unit.Shipping.Name.FullName != "" {
				name = unit.Shipping.Name.FullName
			}
			conf.ShippingAddress = toAddress(unit.Shipping.Address, name, conf.CustomerEmail)
		}
		// An order can report COMPLETED only at the capture level on some
		// event shapes.
		if !conf.Paid && unit.Payments != nil {
			for _, capture := range unit.Payments.Captures {
				if capture.Status == "COMPLETED" {
					conf.Paid = true
				}
			}
		}
	}
	return conf
}

func toAddress(a *AddressPortable, name, email string) entity.Address {
	return entity.Address{
		Name:    name,
		Street1: a.AddressLine1,
		Street2: a.AddressLine2,
		City:    a.AdminArea2,
		State:   a.AdminArea1,
		Zip:     a.PostalCode,
		Country: a.CountryCode,
		Email:   email,
	}
}

// parseCents turns "249.00" into 24900 without floating point.
func parseCents(value string) int64 {
	whole, frac, _ := strings.Cut(value, ".")
	var cents int64
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0
		}
		cents = cents*10 + int64(r-'0')
	}
	cents *= 100
	for i, r := range frac {
		if i >= 2 || r < '0' || r > '9' {
			break
		}
		if i == 0 {
			cents += int64(r-'0') * 10
		} else {
			cents += int64(r - '0')
		}
	}
	return cents
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token request: status %d", resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decode paypal token: %w", err)
	}

	c.accessToken = token.AccessToken
	// Renew a minute early so an in-flight call never carries a dead token.
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn-60) * time.Second)
	return c.accessToken, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal paypal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paypal request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("paypal %s %s: status %d: %s", method, path, resp.StatusCode, truncate(raw, 200))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode paypal response: %w", err)
		}
	}
	return nil
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
