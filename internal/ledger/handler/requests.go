package handler

import (
	"strings"

	"veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
)

// RedeemRequest is the HTTP request body for POST /me/redeem.
type RedeemRequest struct {
	Code string `json:"code"`
}

// Validate validates the request.
func (r *RedeemRequest) Validate() error {
	r.Code = strings.TrimSpace(r.Code)
	if r.Code == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "code is required")
	}
	if len(r.Code) > 64 {
		return dErrors.New(dErrors.CodeInvalidInput, "code must be at most 64 characters")
	}
	return nil
}

// AdminCreditRequest is the HTTP request body for POST /admin/credits.
type AdminCreditRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`

	parsedUserID domain.UserID
}

// Validate validates and parses the request.
func (r *AdminCreditRequest) Validate() error {
	userID, err := domain.ParseUserID(strings.TrimSpace(r.UserID))
	if err != nil {
		return err
	}
	r.parsedUserID = userID

	if r.Amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}
	return nil
}

// ParsedUserID returns the validated user ID.
func (r *AdminCreditRequest) ParsedUserID() domain.UserID {
	return r.parsedUserID
}

// AdminCodeRequest is the HTTP request body for POST /admin/codes. An empty
// code asks the server to mint a random one.
type AdminCodeRequest struct {
	Code   string `json:"code"`
	Amount int64  `json:"amount"`
	Uses   int64  `json:"uses"`
}

// Validate validates the request.
func (r *AdminCodeRequest) Validate() error {
	r.Code = strings.TrimSpace(r.Code)
	if r.Amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}
	if r.Uses <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "uses must be positive")
	}
	return nil
}
