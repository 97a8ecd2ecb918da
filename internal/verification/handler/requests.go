package handler

import (
	"strings"

	"veriflow/internal/verification/models"
	dErrors "veriflow/pkg/domain-errors"
)

// VerifyRequest is the HTTP request body for POST /verify.
type VerifyRequest struct {
	ProfileType string `json:"profile_type"`
	Locator     string `json:"locator"`

	// Parsed values (populated by Validate)
	parsedType models.ProfileType
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.ProfileType = strings.TrimSpace(r.ProfileType)
	if r.ProfileType == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "profile_type is required")
	}
	parsed, err := models.ParseProfileType(r.ProfileType)
	if err != nil {
		return err
	}
	r.parsedType = parsed

	r.Locator = strings.TrimSpace(r.Locator)
	if r.Locator == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "locator is required")
	}
	if len(r.Locator) > 2048 {
		return dErrors.New(dErrors.CodeInvalidInput, "locator must be at most 2048 characters")
	}

	return nil
}

// ParsedType returns the validated profile type.
func (r *VerifyRequest) ParsedType() models.ProfileType {
	return r.parsedType
}
