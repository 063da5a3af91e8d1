package entity

import "time"

// Product is one entry of the compiled-in catalog. Prices are cents, like the
// payment providers want them.
type Product struct {
	Key         string
	Name        string
	AmountCents int
	Currency    string

	Recurring      bool
	IntervalMonths int
	TrialDays      int // card still required during trial

	Shippable        bool
	AllowedCountries []string // destination allow-list for physical goods
}

// ShipsTo reports whether the product may be shipped to the given
// ISO-3166 alpha-2 country.
func (p Product) ShipsTo(country string) bool {
	for _, c := range p.AllowedCountries {
		if c == country {
			return true
		}
	}
	return false
}

// Catalog is the immutable product lookup table, built once at startup and
// injected everywhere instead of read as a global.
type Catalog struct {
	products map[string]Product
}

// DefaultProducts is the shipped catalog. Operator price overrides are applied
// by NewCatalog, not by editing this table.
func DefaultProducts() []Product {
	return []Product{
		{
			Key:            "dj_monthly",
			Name:           "BeatVault DJ Pool — Monthly",
			AmountCents:    1999,
			Currency:       "usd",
			Recurring:      true,
			IntervalMonths: 1,
			TrialDays:      7,
		},
		{
			Key:            "dj_annual",
			Name:           "BeatVault DJ Pool — Annual",
			AmountCents:    19900,
			Currency:       "usd",
			Recurring:      true,
			IntervalMonths: 12,
		},
		{
			Key:              "usb128",
			Name:             "BeatVault 128GB USB Library",
			AmountCents:      24900,
			Currency:         "usd",
			Shippable:        true,
			AllowedCountries: []string{"US"},
		},
		{
			Key:              "usb256",
			Name:             "BeatVault 256GB USB Library",
			AmountCents:      34900,
			Currency:         "usd",
			Shippable:        true,
			AllowedCountries: []string{"US"},
		},
	}
}

// NewCatalog builds the lookup table, letting well-formed operator overrides
// (positive cents per product key) win over the compiled-in defaults.
func NewCatalog(products []Product, priceOverrides map[string]int) *Catalog {
	m := make(map[string]Product, len(products))
	for _, p := range products {
		if cents, ok := priceOverrides[p.Key]; ok && cents > 0 {
			p.AmountCents = cents
		}
		m[p.Key] = p
	}
	return &Catalog{products: m}
}

// Get returns the product for key, if known.
func (c *Catalog) Get(key string) (Product, bool) {
	p, ok := c.products[key]
	return p, ok
}

// OrderEvent is one append-only audit row. The dedupe key keeps a re-fired
// webhook from duplicating the trail.
type OrderEvent struct {
	ID        int64                  `json:"id"`
	DedupeKey string                 `json:"dedupe_key"`
	LeadID    string                 `json:"lead_id"`
	EventType string                 `json:"event_type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
