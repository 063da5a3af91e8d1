package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

type CreateCheckoutUseCase struct {
	Leads     entity.LeadRepositoryInterface
	Catalog   *entity.Catalog
	Providers *ProviderRegistry
	Emails    EmailEnqueuer
	Logger    *zap.Logger
}

func NewCreateCheckoutUseCase(
	leads entity.LeadRepositoryInterface,
	catalog *entity.Catalog,
	providers *ProviderRegistry,
	emails EmailEnqueuer,
	logger *zap.Logger,
) *CreateCheckoutUseCase {
	return &CreateCheckoutUseCase{
		Leads:     leads,
		Catalog:   catalog,
		Providers: providers,
		Emails:    emails,
		Logger:    logger,
	}
}

func (uc *CreateCheckoutUseCase) Execute(ctx context.Context, input CreateCheckoutInput) (*CreateCheckoutOutput, error) {
	// Fail fast: no side effects before validation.
	if errs := ValidateCreateCheckoutInput(input); len(errs) > 0 {
		return nil, &DomainError{Code: "VALIDATION_ERROR", Message: joinValidationErrors(errs)}
	}

	product, ok := uc.Catalog.Get(input.Product)
	if !ok {
		return nil, &DomainError{Code: "UNKNOWN_PRODUCT", Message: "unknown product: " + input.Product}
	}

	provider, ok := uc.Providers.Get(input.Provider)
	if !ok {
		return nil, &DomainError{Code: "UNKNOWN_PROVIDER", Message: "unknown payment provider: " + input.Provider}
	}

	lead, created, err := uc.Leads.Ensure(ctx, &entity.Lead{
		ID:          input.LeadID,
		Name:        input.Name,
		Email:       input.Email,
		Phone:       input.Phone,
		CountryCode: input.CountryCode,
		CountryName: input.CountryName,
		Source:      input.Source,
		SourcePage:  input.SourcePage,
		Tags:        input.Tags,
		Product:     input.Product,
		FunnelStep:  entity.FunnelCheckoutStart,
	})
	if err != nil {
		uc.Logger.Error("ensure lead failed", zap.String("lead_id", input.LeadID), zap.Error(err))
		// Same generic failure as a provider error: no internals leak.
		return nil, &DomainError{Code: "CHECKOUT_FAILED", Message: "checkout creation failed"}
	}

	session, err := provider.CreateSession(ctx, lead.ID, product, lead.Email)
	if err != nil {
		uc.Logger.Error("create checkout session failed",
			zap.String("lead_id", lead.ID),
			zap.String("provider", provider.Name()),
			zap.Error(err),
		)
		return nil, &DomainError{Code: "CHECKOUT_FAILED", Message: "checkout creation failed"}
	}

	// Tagging is observability, not correctness: the session is already
	// created, so a failed write here must not fail the request.
	bestEffort(uc.Logger, "tag checkout start", func() error {
		consentT, consentM := input.TransactionalConsent, input.MarketingConsent
		return uc.Leads.Update(ctx, lead.ID, entity.LeadPatch{
			Product:              &input.Product,
			FunnelStep:           strPtr(entity.FunnelCheckoutStart),
			PaymentProvider:      strPtr(provider.Name()),
			PaymentID:            &session.SessionID,
			TransactionalConsent: &consentT,
			MarketingConsent:     &consentM,
			AddTags:              []string{provider.Name(), "checkout_started", input.Product},
		})
	})

	if created && input.TransactionalConsent && input.Email != "" {
		bestEffort(uc.Logger, "enqueue lead_created email", func() error {
			_, err := uc.Emails.Enqueue(ctx, input.Email, entity.TemplateLeadCreated, input.Language,
				"email:lead_created:"+lead.ID,
				map[string]interface{}{"name": input.Name},
			)
			return err
		})
	}

	return &CreateCheckoutOutput{OK: true, SessionID: session.SessionID, URL: session.URL}, nil
}

func strPtr(s string) *string { return &s }
