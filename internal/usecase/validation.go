package usecase

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidateCreateCheckoutInput runs the fail-fast checks: nothing external may
// be called and no row written while any of these fail.
func ValidateCreateCheckoutInput(input CreateCheckoutInput) []ValidationError {
	var errors []ValidationError

	if !IsValidLeadID(input.LeadID) {
		errors = append(errors, ValidationError{"leadId", "must be a UUID"})
	}
	if strings.TrimSpace(input.Product) == "" {
		errors = append(errors, ValidationError{"product", "is required"})
	}
	if input.Provider != "" && input.Provider != "stripe" && input.Provider != "paypal" {
		errors = append(errors, ValidationError{"provider", "must be stripe or paypal"})
	}
	if input.Email != "" {
		if _, err := mail.ParseAddress(input.Email); err != nil {
			errors = append(errors, ValidationError{"email", "is invalid"})
		}
	}

	return errors
}

func ValidateVerifyCheckoutInput(input VerifyCheckoutInput) []ValidationError {
	var errors []ValidationError

	if !IsValidLeadID(input.LeadID) {
		errors = append(errors, ValidationError{"leadId", "must be a UUID"})
	}
	if strings.TrimSpace(input.SessionID) == "" {
		errors = append(errors, ValidationError{"sessionId", "is required"})
	}

	return errors
}

// IsValidLeadID accepts exactly the UUID shape the client generates.
func IsValidLeadID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func joinValidationErrors(errs []ValidationError) string {
	msg := "validation failed: "
	for i, e := range errs {
		if i > 0 {
			msg += ", "
		}
		msg += e.Field + " (" + e.Message + ")"
	}
	return msg
}
