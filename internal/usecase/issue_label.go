package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

// labelLockTTL covers the longest plausible purchase round-trip; the TTL
// cleans up after a crashed invocation.
const labelLockTTL = 2 * time.Minute

// IssueLabelUseCase purchases at most one shipping label per paid physical
// order. Guards, in order: re-read purchased markers on the lead, a redis
// mutex around the external call, and the destination country gate that is
// checked here regardless of what the checkout UI enforced.
type IssueLabelUseCase struct {
	Leads     entity.LeadRepositoryInterface
	Purchaser LabelPurchaser
	Lock      PurchaseLock
	Emails    EmailEnqueuer
	Logger    *zap.Logger
}

func NewIssueLabelUseCase(
	leads entity.LeadRepositoryInterface,
	purchaser LabelPurchaser,
	lock PurchaseLock,
	emails EmailEnqueuer,
	logger *zap.Logger,
) *IssueLabelUseCase {
	return &IssueLabelUseCase{
		Leads:     leads,
		Purchaser: purchaser,
		Lock:      lock,
		Emails:    emails,
		Logger:    logger,
	}
}

// Execute never returns an error: shipping failures are tagged for manual
// follow-up, the payment webhook response stays a success either way. The
// returned info is nil unless a label exists.
func (uc *IssueLabelUseCase) Execute(ctx context.Context, leadID string, product entity.Product, conf entity.PaymentConfirmation) *ShippoInfo {
	// Re-read right before deciding: the confirmation may be minutes old and
	// another delivery may have bought the label already.
	lead, err := uc.Leads.FindByID(ctx, leadID)
	if err != nil {
		uc.Logger.Error("label issuance: lead re-read failed", zap.String("lead_id", leadID), zap.Error(err))
		return nil
	}
	if lead.LabelPurchased() {
		return shippoInfoFromLead(lead)
	}

	dest, ok := resolveDestination(conf, lead)
	if !ok {
		uc.tagForFollowUp(ctx, leadID, "needs_shipping", "no usable destination address")
		return nil
	}

	// Country gate. Duplicated on purpose relative to the checkout UI
	// restriction: a forged or provider-bypassed address must never reach the
	// purchase call.
	country := strings.ToUpper(strings.TrimSpace(dest.Country))
	if !product.ShipsTo(country) {
		uc.tagForFollowUp(ctx, leadID, "shipping_not_allowed", "destination country "+country+" not allowed")
		return nil
	}

	acquired, err := uc.Lock.Acquire(ctx, "label:"+leadID, labelLockTTL)
	if err != nil {
		// Lock service down. The durable checks above still hold; proceed.
		uc.Logger.Warn("label lock unavailable, proceeding on durable guards", zap.String("lead_id", leadID), zap.Error(err))
	} else if !acquired {
		// A concurrent delivery is mid-purchase. Skip; it will persist the
		// result.
		uc.Logger.Info("label purchase already in progress", zap.String("lead_id", leadID))
		return nil
	} else {
		defer uc.Lock.Release(ctx, "label:"+leadID)
		// Second read under the held lock: a delivery that persisted its
		// label between our first read and this acquire must be seen now.
		fresh, err := uc.Leads.FindByID(ctx, leadID)
		if err != nil {
			uc.Logger.Warn("label issuance: re-read under lock failed", zap.String("lead_id", leadID), zap.Error(err))
		} else if fresh.LabelPurchased() {
			return shippoInfoFromLead(fresh)
		}
	}

	label, err := uc.Purchaser.PurchaseLabel(ctx, leadID, dest)
	if err != nil {
		uc.Logger.Error("label purchase failed", zap.String("lead_id", leadID), zap.Error(err))
		// No automatic retry here: an operator resolves it.
		uc.tagForFollowUp(ctx, leadID, "needs_shipping", "label purchase failed")
		return nil
	}

	status := entity.ShippingLabelCreated
	if err := uc.Leads.Update(ctx, leadID, entity.LeadPatch{
		ShippingAddress: &dest,
		TrackingNumber:  &label.TrackingNumber,
		Carrier:         &label.Carrier,
		ServiceLevel:    &label.ServiceLevel,
		LabelURL:        &label.LabelURL,
		ShippingStatus:  &status,
		AddTags:         []string{"shippo_label_created"},
	}); err != nil {
		// The label exists but we could not record it. Flag loudly; the
		// purchased guard on the next retry depends on this row.
		uc.Logger.Error("label purchased but not persisted", zap.String("lead_id", leadID),
			zap.String("tracking_number", label.TrackingNumber), zap.Error(err))
	}

	if dest.Email != "" {
		bestEffort(uc.Logger, "enqueue label email", func() error {
			_, err := uc.Emails.Enqueue(ctx, dest.Email, entity.TemplateLabelCreated, "",
				"email:label:"+leadID,
				map[string]interface{}{"tracking_number": label.TrackingNumber, "carrier": label.Carrier},
			)
			return err
		})
	}

	return &ShippoInfo{
		TrackingNumber: label.TrackingNumber,
		Carrier:        label.Carrier,
		LabelURL:       label.LabelURL,
		Status:         status,
	}
}

func (uc *IssueLabelUseCase) tagForFollowUp(ctx context.Context, leadID, tag, reason string) {
	uc.Logger.Warn("label not issued", zap.String("lead_id", leadID), zap.String("tag", tag), zap.String("reason", reason))
	bestEffort(uc.Logger, "tag "+tag, func() error {
		return uc.Leads.Update(ctx, leadID, entity.LeadPatch{AddTags: []string{tag}})
	})
}

// resolveDestination walks the candidates in priority order and takes the
// first usable one: explicit shipping block, then billing/contact block, then
// whatever address is already stored on the lead.
func resolveDestination(conf entity.PaymentConfirmation, lead *entity.Lead) (entity.Address, bool) {
	candidates := []entity.Address{conf.ShippingAddress, conf.BillingAddress}
	if lead.ShippingAddress != nil {
		candidates = append(candidates, *lead.ShippingAddress)
	}
	for _, c := range candidates {
		if !c.Empty() {
			if c.Email == "" {
				c.Email = conf.CustomerEmail
			}
			return c, true
		}
	}
	return entity.Address{}, false
}

func shippoInfoFromLead(lead *entity.Lead) *ShippoInfo {
	if lead.TrackingNumber == "" && lead.LabelURL == "" {
		return nil
	}
	return &ShippoInfo{
		TrackingNumber: lead.TrackingNumber,
		Carrier:        lead.Carrier,
		LabelURL:       lead.LabelURL,
		Status:         lead.ShippingStatus,
	}
}
