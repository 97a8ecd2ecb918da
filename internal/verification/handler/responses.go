package handler

import (
	"veriflow/internal/verification/models"
	"veriflow/internal/verification/profiles"
)

// OutcomeResponse is the HTTP response for POST /verify and
// GET /verify/{verificationID}/code.
type OutcomeResponse struct {
	Success        bool   `json:"success"`
	Pending        bool   `json:"pending"`
	Message        string `json:"message,omitempty"`
	RewardCode     string `json:"reward_code,omitempty"`
	RedirectURL    string `json:"redirect_url,omitempty"`
	VerificationID string `json:"verification_id,omitempty"`
}

// FromOutcome converts a flow outcome to an HTTP response.
func FromOutcome(outcome *models.Outcome) *OutcomeResponse {
	return &OutcomeResponse{
		Success:        outcome.Success,
		Pending:        outcome.Pending,
		Message:        outcome.Message,
		RewardCode:     outcome.RewardCode,
		RedirectURL:    outcome.RedirectURL,
		VerificationID: outcome.VerificationID,
	}
}

// ProfileResponse describes one supported verification program.
type ProfileResponse struct {
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Resumable   bool   `json:"resumable"`
}

// FromProfiles converts the profile catalog to its HTTP listing.
func FromProfiles(configs []profiles.Config) []ProfileResponse {
	out := make([]ProfileResponse, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, ProfileResponse{
			Type:        cfg.Type.String(),
			DisplayName: cfg.DisplayName,
			Role:        string(cfg.Role),
			Resumable:   cfg.Resumable,
		})
	}
	return out
}
