// Package profile generates synthetic applicant identities for a program.
package profile

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	mrand "math/rand/v2"
	"strings"
	"time"

	"veriflow/internal/verification/models"
	"veriflow/internal/verification/profiles"
)

// Generator produces identity profiles from the namebank and a program's
// institution catalog. No uniqueness is guaranteed; collisions across
// sessions are acceptable.
type Generator struct {
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Generator)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds a fresh applicant for the program. The device fingerprint
// is new on every call and must never be reused across sessions.
func (g *Generator) Generate(cfg profiles.Config) (models.IdentityProfile, error) {
	if len(cfg.Institutions) == 0 {
		return models.IdentityProfile{}, fmt.Errorf("institution catalog for %s is empty", cfg.Type)
	}
	if len(firstNames) == 0 || len(lastNames) == 0 {
		return models.IdentityProfile{}, fmt.Errorf("namebank is empty")
	}

	first := firstNames[mrand.IntN(len(firstNames))]
	last := lastNames[mrand.IntN(len(lastNames))]
	institution := cfg.Institutions[mrand.IntN(len(cfg.Institutions))]

	p := models.IdentityProfile{
		FirstName:         first,
		LastName:          last,
		BirthDate:         g.birthDate(cfg.MinAge, cfg.MaxAge),
		Email:             deriveEmail(first, last, cfg.EmailDomains),
		Institution:       institution,
		DeviceFingerprint: newFingerprint(),
	}

	if g.logger != nil {
		g.logger.Debug("generated applicant",
			"profile_type", cfg.Type,
			"institution", institution.Name,
			"birth_date", p.BirthDate,
		)
	}
	return p, nil
}

// birthDate picks a date uniformly within the role's plausible age band.
func (g *Generator) birthDate(minAge, maxAge int) string {
	now := g.now()
	oldest := now.AddDate(-maxAge, 0, 0)
	youngest := now.AddDate(-minAge, 0, 0)
	span := int(youngest.Sub(oldest) / (24 * time.Hour))
	if span <= 0 {
		return youngest.Format("2006-01-02")
	}
	return oldest.AddDate(0, 0, mrand.IntN(span)).Format("2006-01-02")
}

// deriveEmail builds a syntactically valid address from the name plus a
// randomized domain and numeric suffix.
func deriveEmail(first, last string, domains []string) string {
	if len(domains) == 0 {
		domains = []string{"gmail.com"}
	}
	domain := domains[mrand.IntN(len(domains))]
	suffix := 10 + mrand.IntN(90)
	return fmt.Sprintf("%s.%s%d@%s",
		strings.ToLower(first),
		strings.ToLower(last),
		suffix,
		domain,
	)
}

// newFingerprint returns 32 lowercase hex characters from a CSPRNG.
func newFingerprint() string {
	var raw [16]byte
	// rand.Read on the crypto source never fails on supported platforms.
	_, _ = rand.Read(raw[:])
	return hex.EncodeToString(raw[:])
}
