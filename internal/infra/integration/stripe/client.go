package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

const ProviderName = "stripe"

type Client struct {
	baseURL    string
	apiKey     string
	successURL string
	cancelURL  string
	http       *http.Client
}

func NewClient(apiKey, baseURL, successURL, cancelURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		successURL: successURL,
		cancelURL:  cancelURL,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Name() string { return ProviderName }

// CreateSession opens a hosted Checkout session for the product. The lead id
// rides along twice (metadata + client_reference_id) so a webhook can always
// find its way back even if one of them is dropped.
func (c *Client) CreateSession(ctx context.Context, leadID string, product entity.Product, customerEmail string) (*entity.CheckoutSession, error) {
	form := url.Values{}
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)
	form.Set("client_reference_id", leadID)
	form.Set("metadata[lead_id]", leadID)
	form.Set("metadata[product]", product.Key)
	if customerEmail != "" && customerEmail != entity.PendingEmail {
		form.Set("customer_email", customerEmail)
	}

	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", product.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.Itoa(product.AmountCents))
	form.Set("line_items[0][price_data][product_data][name]", product.Name)

	if product.Recurring {
		form.Set("mode", "subscription")
		form.Set("line_items[0][price_data][recurring][interval]", "month")
		if product.IntervalMonths > 1 {
			form.Set("line_items[0][price_data][recurring][interval_count]", strconv.Itoa(product.IntervalMonths))
		}
		if product.TrialDays > 0 {
			form.Set("subscription_data[trial_period_days]", strconv.Itoa(product.TrialDays))
			// A card is still collected during the trial. Filters out
			// disposable trial signups.
			form.Set("payment_method_collection", "always")
		}
	} else {
		form.Set("mode", "payment")
	}

	if product.Shippable {
		for i, country := range product.AllowedCountries {
			form.Set(fmt.Sprintf("shipping_address_collection[allowed_countries][%d]", i), country)
		}
		// Free shipping line so the buyer sees it is included.
		form.Set("shipping_options[0][shipping_rate_data][type]", "fixed_amount")
		form.Set("shipping_options[0][shipping_rate_data][fixed_amount][amount]", "0")
		form.Set("shipping_options[0][shipping_rate_data][fixed_amount][currency]", product.Currency)
		form.Set("shipping_options[0][shipping_rate_data][display_name]", "Free shipping")
	}

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}

	return &entity.CheckoutSession{
		Provider:  ProviderName,
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}

// ConfirmSession re-fetches a session and normalizes it. Used by the verify
// flow and whenever a webhook needs ground truth rather than its own payload.
func (c *Client) ConfirmSession(ctx context.Context, sessionID string) (*entity.PaymentConfirmation, error) {
	var session CheckoutSession
	path := "/v1/checkout/sessions/" + url.PathEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &session); err != nil {
		return nil, err
	}
	conf := Normalize(&session)
	return &conf, nil
}

// Normalize maps a session object to the provider-agnostic confirmation.
func Normalize(s *CheckoutSession) entity.PaymentConfirmation {
	conf := entity.PaymentConfirmation{
		Provider:    ProviderName,
		SessionID:   s.ID,
		LeadID:      s.Metadata["lead_id"],
		Reference:   s.ClientReferenceID,
		ProductKey:  s.Metadata["product"],
		Paid:        s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required",
		AmountCents: s.AmountTotal,
		Currency:    s.Currency,
	}
	if cd := s.CustomerDetails; cd != nil {
		conf.CustomerName = cd.Name
		conf.CustomerEmail = cd.Email
		conf.CustomerPhone = cd.Phone
		conf.BillingAddress = toAddress(cd.Address, cd.Name, cd.Email, cd.Phone)
	}
	if sd := s.ShippingDetails; sd != nil {
		name := sd.Name
		if name == "" {
			name = conf.CustomerName
		}
		conf.ShippingAddress = toAddress(sd.Address, name, conf.CustomerEmail, conf.CustomerPhone)
	}
	return conf
}

func toAddress(a *Address, name, email, phone string) entity.Address {
	if a == nil {
		return entity.Address{}
	}
	return entity.Address{
		Name:    name,
		Street1: a.Line1,
		Street2: a.Line2,
		City:    a.City,
		State:   a.State,
		Zip:     a.PostalCode,
		Country: a.Country,
		Email:   email,
		Phone:   phone,
	}
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("stripe %s %s: %s (status %d)", method, path, apiErr.Error.Message, resp.StatusCode)
		}
		return fmt.Errorf("stripe %s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode stripe response: %w", err)
		}
	}
	return nil
}
