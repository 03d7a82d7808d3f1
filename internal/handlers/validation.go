package handlers

import (
	"strings"

	"github.com/asaskevich/govalidator"

	"contactlink/internal/models"
)

// ValidationError is a client error reported back as a 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ValidateIdentifyRequest trims both fields and checks that at least one is set and
// that the email, when present, is well formed. Blank fields come back as nil.
func ValidateIdentifyRequest(req models.IdentifyRequest) (models.IdentifyRequest, error) {
	out := models.IdentifyRequest{
		Email:       trimmed(req.Email),
		PhoneNumber: trimmed(req.PhoneNumber),
	}

	if out.Email == nil && out.PhoneNumber == nil {
		return out, &ValidationError{Message: "Either email or phoneNumber must be provided"}
	}
	if out.Email != nil && (!govalidator.StringLength(*out.Email, "1", "255") || !govalidator.IsEmail(*out.Email)) {
		return out, &ValidationError{Message: "email must be a valid email address"}
	}
	if out.PhoneNumber != nil && !govalidator.StringLength(*out.PhoneNumber, "1", "64") {
		return out, &ValidationError{Message: "phoneNumber must be at most 64 characters"}
	}
	return out, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
