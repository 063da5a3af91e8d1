package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

// VerifyCheckoutUseCase answers "did this session get paid?" for the
// success-page poll. When the answer is yes and the webhook has not landed yet
// (or was lost), the same confirmation path runs here. It is idempotent, so
// racing the webhook is harmless.
type VerifyCheckoutUseCase struct {
	Leads     entity.LeadRepositoryInterface
	Providers *ProviderRegistry
	Payments  *ProcessPaymentUseCase
	Logger    *zap.Logger
}

func NewVerifyCheckoutUseCase(
	leads entity.LeadRepositoryInterface,
	providers *ProviderRegistry,
	payments *ProcessPaymentUseCase,
	logger *zap.Logger,
) *VerifyCheckoutUseCase {
	return &VerifyCheckoutUseCase{
		Leads:     leads,
		Providers: providers,
		Payments:  payments,
		Logger:    logger,
	}
}

func (uc *VerifyCheckoutUseCase) Execute(ctx context.Context, input VerifyCheckoutInput) (*VerifyCheckoutOutput, error) {
	if errs := ValidateVerifyCheckoutInput(input); len(errs) > 0 {
		return nil, &DomainError{Code: "VALIDATION_ERROR", Message: joinValidationErrors(errs)}
	}

	provider, ok := uc.Providers.Get(input.Provider)
	if !ok {
		return nil, &DomainError{Code: "UNKNOWN_PROVIDER", Message: "unknown payment provider: " + input.Provider}
	}

	conf, err := provider.ConfirmSession(ctx, input.SessionID)
	if err != nil {
		uc.Logger.Error("verify session failed",
			zap.String("session_id", input.SessionID),
			zap.String("provider", provider.Name()),
			zap.Error(err),
		)
		return nil, &DomainError{Code: "VERIFY_FAILED", Message: "checkout verification failed"}
	}

	if !conf.Paid {
		return &VerifyCheckoutOutput{OK: true, Paid: false}, nil
	}

	// The session must belong to the lead the caller claims.
	if resolved := conf.ResolveLeadID(); resolved != "" && resolved != input.LeadID {
		return nil, &DomainError{Code: "LEAD_MISMATCH", Message: "session does not belong to this lead"}
	}
	if conf.ProductKey == "" {
		conf.ProductKey = input.Product
	}

	result, err := uc.Payments.Execute(ctx, *conf)
	if err != nil {
		return nil, err
	}

	out := &VerifyCheckoutOutput{OK: true, Paid: true, Shippo: result.Shippo}
	if out.Shippo == nil {
		// The webhook may have issued the label already.
		if lead, err := uc.Leads.FindByID(ctx, input.LeadID); err == nil {
			out.Shippo = shippoInfoFromLead(lead)
		}
	}
	return out, nil
}
