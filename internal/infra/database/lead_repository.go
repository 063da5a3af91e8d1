package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

const leadColumns = `
	id, name, email, phone, country_code, country_name,
	source, source_page, tags, product, funnel_step,
	transactional_consent, transactional_consent_at,
	marketing_consent, marketing_consent_at,
	payment_provider, payment_id, paid_at,
	shipping_address, tracking_number, carrier, service_level, label_url, shipping_status,
	created_at, updated_at`

// Ensure creates the lead if absent and merges non-empty contact fields
// otherwise. Both the checkout and webhook paths go through here; neither ever
// blind-inserts.
func (r *LeadRepository) Ensure(ctx context.Context, lead *entity.Lead) (*entity.Lead, bool, error) {
	email := lead.Email
	if email == "" {
		email = entity.PendingEmail
	}

	query := `
		INSERT INTO leads (id, name, email, phone, country_code, country_name, source, source_page, tags, product, funnel_step, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (id)
		DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), leads.name),
			email = CASE WHEN EXCLUDED.email <> '' AND EXCLUDED.email <> $12 THEN EXCLUDED.email ELSE leads.email END,
			phone = COALESCE(NULLIF(EXCLUDED.phone, ''), leads.phone),
			country_code = COALESCE(NULLIF(EXCLUDED.country_code, ''), leads.country_code),
			country_name = COALESCE(NULLIF(EXCLUDED.country_name, ''), leads.country_name),
			source = COALESCE(NULLIF(EXCLUDED.source, ''), leads.source),
			source_page = COALESCE(NULLIF(EXCLUDED.source_page, ''), leads.source_page),
			product = COALESCE(NULLIF(EXCLUDED.product, ''), leads.product),
			updated_at = NOW()
		RETURNING ` + leadColumns + `, (xmax = 0) AS inserted`

	row := r.DB.QueryRowContext(ctx, query,
		lead.ID,
		lead.Name,
		email,
		lead.Phone,
		lead.CountryCode,
		lead.CountryName,
		lead.Source,
		lead.SourcePage,
		pq.Array(entity.MergeTags(nil, lead.Tags...)),
		lead.Product,
		lead.FunnelStep,
		entity.PendingEmail,
	)

	stored, created, err := scanLeadWithInserted(row)
	if err != nil {
		return nil, false, fmt.Errorf("ensure lead %s: %w", lead.ID, err)
	}
	return stored, created, nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

func (r *LeadRepository) FindByTrackingNumber(ctx context.Context, tracking string) (*entity.Lead, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE tracking_number = $1`, tracking)
	return scanLead(row)
}

// FindAbandonedCheckouts returns leads that started checkout before the
// cutoff and never paid. Consent and a real email are required here, not at
// the caller, because the only consumer sends a reminder email.
func (r *LeadRepository) FindAbandonedCheckouts(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE funnel_step = $1
		  AND paid_at IS NULL
		  AND transactional_consent
		  AND email <> $2
		  AND updated_at < $3
		ORDER BY updated_at
		LIMIT $4`

	rows, err := r.DB.QueryContext(ctx, query, entity.FunnelCheckoutStart, entity.PendingEmail, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("find abandoned checkouts: %w", err)
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		var lead entity.Lead
		if err := scanLeadInto(rows, &lead); err != nil {
			return nil, fmt.Errorf("scan abandoned lead: %w", err)
		}
		leads = append(leads, &lead)
	}
	return leads, rows.Err()
}

// Update applies a partial-column patch. Tags are appended and deduplicated
// inside the statement so concurrent writers never replace each other's set.
// Consent is monotonic: a false in the patch never clears a stored true.
func (r *LeadRepository) Update(ctx context.Context, id string, patch entity.LeadPatch) error {
	set := []string{"updated_at = NOW()"}
	args := []interface{}{}
	n := 0
	arg := func(v interface{}) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	addString := func(col string, v *string) {
		if v != nil {
			set = append(set, fmt.Sprintf("%s = %s", col, arg(*v)))
		}
	}

	addString("name", patch.Name)
	addString("email", patch.Email)
	addString("phone", patch.Phone)
	addString("country_code", patch.CountryCode)
	addString("country_name", patch.CountryName)
	addString("source", patch.Source)
	addString("source_page", patch.SourcePage)
	addString("product", patch.Product)
	addString("funnel_step", patch.FunnelStep)
	addString("payment_provider", patch.PaymentProvider)
	addString("payment_id", patch.PaymentID)
	addString("tracking_number", patch.TrackingNumber)
	addString("carrier", patch.Carrier)
	addString("service_level", patch.ServiceLevel)
	addString("label_url", patch.LabelURL)
	addString("shipping_status", patch.ShippingStatus)

	if patch.PaidAt != nil {
		set = append(set, "paid_at = "+arg(*patch.PaidAt))
	}
	if patch.TransactionalConsent != nil && *patch.TransactionalConsent {
		set = append(set, "transactional_consent = TRUE",
			"transactional_consent_at = COALESCE(transactional_consent_at, NOW())")
	}
	if patch.MarketingConsent != nil && *patch.MarketingConsent {
		set = append(set, "marketing_consent = TRUE",
			"marketing_consent_at = COALESCE(marketing_consent_at, NOW())")
	}
	if patch.ShippingAddress != nil {
		raw, err := json.Marshal(patch.ShippingAddress)
		if err != nil {
			return fmt.Errorf("marshal shipping address: %w", err)
		}
		set = append(set, "shipping_address = "+arg(raw))
	}
	if len(patch.AddTags) > 0 {
		clean := entity.MergeTags(nil, patch.AddTags...)
		set = append(set, fmt.Sprintf(
			"tags = (SELECT COALESCE(array_agg(DISTINCT t), '{}'::text[]) FROM unnest(leads.tags || %s::text[]) AS t)",
			arg(pq.Array(clean)),
		))
	}

	query := fmt.Sprintf("UPDATE leads SET %s WHERE id = %s", joinSet(set), arg(id))
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update lead %s: %w", id, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func joinSet(set []string) string {
	out := ""
	for i, s := range set {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLeadInto(row rowScanner, lead *entity.Lead, extra ...interface{}) error {
	var (
		name, phone, countryCode, countryName          sql.NullString
		source, sourcePage, product, funnelStep        sql.NullString
		paymentProvider, paymentID                     sql.NullString
		tracking, carrier, serviceLevel, labelURL      sql.NullString
		shippingStatus                                 sql.NullString
		transactionalConsentAt, marketingConsentAt     sql.NullTime
		paidAt                                         sql.NullTime
		shippingAddress                                []byte
	)

	dest := []interface{}{
		&lead.ID, &name, &lead.Email, &phone, &countryCode, &countryName,
		&source, &sourcePage, pq.Array(&lead.Tags), &product, &funnelStep,
		&lead.TransactionalConsent, &transactionalConsentAt,
		&lead.MarketingConsent, &marketingConsentAt,
		&paymentProvider, &paymentID, &paidAt,
		&shippingAddress, &tracking, &carrier, &serviceLevel, &labelURL, &shippingStatus,
		&lead.CreatedAt, &lead.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return err
	}

	lead.Name = name.String
	lead.Phone = phone.String
	lead.CountryCode = countryCode.String
	lead.CountryName = countryName.String
	lead.Source = source.String
	lead.SourcePage = sourcePage.String
	lead.Product = product.String
	lead.FunnelStep = funnelStep.String
	lead.PaymentProvider = paymentProvider.String
	lead.PaymentID = paymentID.String
	lead.TrackingNumber = tracking.String
	lead.Carrier = carrier.String
	lead.ServiceLevel = serviceLevel.String
	lead.LabelURL = labelURL.String
	lead.ShippingStatus = shippingStatus.String
	lead.TransactionalConsentAt = nullTime(transactionalConsentAt)
	lead.MarketingConsentAt = nullTime(marketingConsentAt)
	lead.PaidAt = nullTime(paidAt)

	if len(shippingAddress) > 0 {
		var addr entity.Address
		if err := json.Unmarshal(shippingAddress, &addr); err == nil {
			lead.ShippingAddress = &addr
		}
	}
	return nil
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var lead entity.Lead
	if err := scanLeadInto(row, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func scanLeadWithInserted(row rowScanner) (*entity.Lead, bool, error) {
	var lead entity.Lead
	var inserted bool
	if err := scanLeadInto(row, &lead, &inserted); err != nil {
		return nil, false, err
	}
	return &lead, inserted, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
