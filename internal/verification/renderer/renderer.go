// Package renderer produces the proof documents submitted during a flow.
package renderer

//go:generate mockgen -source=renderer.go -destination=mocks/mocks.go -package=mocks Renderer

import (
	"fmt"
	"log/slog"
	"time"

	"veriflow/internal/verification/models"
)

// Renderer turns an applicant profile into proof-document bytes. Rendering
// failures are local configuration faults and are fatal to the session.
type Renderer interface {
	Render(profile models.IdentityProfile, kind models.DocumentKind) ([]byte, error)
}

// CardRenderer renders employment/enrollment cards as PDF or PNG. The
// rendered artifact always embeds the applicant's name.
type CardRenderer struct {
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*CardRenderer)

func WithLogger(logger *slog.Logger) Option {
	return func(r *CardRenderer) {
		r.logger = logger
	}
}

// WithClock overrides the issue-date source for tests.
func WithClock(now func() time.Time) Option {
	return func(r *CardRenderer) {
		r.now = now
	}
}

func New(opts ...Option) *CardRenderer {
	r := &CardRenderer{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *CardRenderer) Render(profile models.IdentityProfile, kind models.DocumentKind) ([]byte, error) {
	lines := cardLines(profile, r.now())

	var (
		content []byte
		err     error
	)
	switch kind {
	case models.DocumentPDF:
		content = renderPDF(lines)
	case models.DocumentPNG:
		content, err = renderPNG(lines)
	default:
		return nil, fmt.Errorf("unsupported document kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", kind, err)
	}

	if r.logger != nil {
		r.logger.Debug("rendered proof document",
			"kind", kind,
			"bytes", len(content),
		)
	}
	return content, nil
}

func cardLines(profile models.IdentityProfile, now time.Time) []string {
	return []string{
		profile.Institution.Name,
		"IDENTIFICATION CARD",
		"",
		"Name: " + profile.FullName(),
		"Date of Birth: " + profile.BirthDate,
		"Email: " + profile.Email,
		"Institution ID: " + profile.Institution.ID,
		"Issued: " + now.Format("2006-01-02"),
		"Valid through: " + now.AddDate(1, 0, 0).Format("2006-01-02"),
	}
}
