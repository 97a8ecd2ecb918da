// Package service orchestrates the end-to-end verification flow: locator
// parsing, concurrency gating, the step protocol, and the optional reward
// poll, collapsed into a single outcome per attempt.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	attemptModels "veriflow/internal/attempt/models"
	"veriflow/internal/verification/gate"
	"veriflow/internal/verification/locator"
	"veriflow/internal/verification/metrics"
	"veriflow/internal/verification/models"
	"veriflow/internal/verification/profiles"
	"veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
)

// Verifier runs the submission phase of the step protocol.
type Verifier interface {
	Verify(ctx context.Context, cfg profiles.Config, loc locator.Locator) (*models.Outcome, error)
}

// StatusPoller watches a submitted verification for its review result.
type StatusPoller interface {
	Poll(ctx context.Context, verificationID string) (*models.Outcome, error)
	Query(ctx context.Context, verificationID string) (*models.Outcome, error)
}

// AttemptRecorder persists attempt history. Recording is fire-and-forget;
// a slow or failing recorder must never block a verification.
type AttemptRecorder interface {
	Record(ctx context.Context, a attemptModels.Attempt)
}

type Service struct {
	verifier Verifier
	poller   StatusPoller
	gate     *gate.Gate
	recorder AttemptRecorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithRecorder(r AttemptRecorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

func New(verifier Verifier, statusPoller StatusPoller, g *gate.Gate, opts ...Option) (*Service, error) {
	if verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}
	if statusPoller == nil {
		return nil, fmt.Errorf("status poller is required")
	}
	if g == nil {
		return nil, fmt.Errorf("concurrency gate is required")
	}

	s := &Service{
		verifier: verifier,
		poller:   statusPoller,
		gate:     g,
		tracer:   otel.Tracer("veriflow/verification/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run executes one verification attempt for the user. The raw locator may be
// a full dashboard URL or a bare token; it is parsed here so callers never
// deal in upstream URL shapes.
func (s *Service) Run(ctx context.Context, userID domain.UserID, profileType models.ProfileType, rawLocator string) (*models.Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "verification.run",
		trace.WithAttributes(
			attribute.String("profile_type", profileType.String()),
			attribute.Int64("user_id", int64(userID)),
		),
	)
	defer span.End()

	cfg, err := profiles.ForType(profileType)
	if err != nil {
		return nil, err
	}

	loc := locator.Parse(rawLocator)
	if loc.Empty() {
		return nil, fmt.Errorf("%w: no verification id or external user id found", models.ErrInvalidLocator)
	}

	gateStart := time.Now()
	if err := s.gate.Acquire(ctx, profileType); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "verification slot wait interrupted")
	}
	defer s.gate.Release(profileType)
	s.metrics.ObserveGateWait(time.Since(gateStart))

	outcome, err := s.verifier.Verify(ctx, cfg, loc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.IncAttempt(profileType.String(), attemptModels.OutcomeFailure)
		s.record(ctx, userID, profileType, loc.VerificationID, models.Failure(loc.VerificationID, err.Error()))
		return nil, s.mapError(err)
	}

	if cfg.PollsRewardCode && outcome.Pending {
		polled, pollErr := s.poller.Poll(ctx, outcome.VerificationID)
		if pollErr != nil {
			// The submission itself stands; report it as pending rather
			// than failing the whole attempt over a status read.
			if s.logger != nil {
				s.logger.Warn("reward poll failed after submission",
					"verification_id", outcome.VerificationID,
					"error", pollErr,
				)
			}
		} else if polled != nil {
			polled.VerificationID = outcome.VerificationID
			outcome = polled
		}
	}

	s.metrics.IncAttempt(profileType.String(), outcomeLabel(outcome))
	if outcome.RewardCode != "" {
		s.metrics.IncRewardCode()
	}
	s.record(ctx, userID, profileType, outcome.VerificationID, outcome)

	if s.logger != nil {
		s.logger.Info("verification attempt finished",
			"user_id", userID,
			"profile_type", profileType,
			"verification_id", outcome.VerificationID,
			"outcome", outcomeLabel(outcome),
		)
	}
	return outcome, nil
}

// Status answers a one-shot status query for a previously submitted
// verification. No gate permit is needed; status reads are cheap.
func (s *Service) Status(ctx context.Context, rawID string) (*models.Outcome, error) {
	vid, err := domain.ParseVerificationID(rawID)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "verification.status",
		trace.WithAttributes(attribute.String("verification_id", vid.String())),
	)
	defer span.End()

	outcome, err := s.poller.Query(ctx, vid.String())
	if err != nil {
		span.RecordError(err)
		return nil, s.mapError(err)
	}
	return outcome, nil
}

func (s *Service) record(ctx context.Context, userID domain.UserID, profileType models.ProfileType, verificationID string, outcome *models.Outcome) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, attemptModels.Attempt{
		ID:             domain.NewAttemptID(),
		UserID:         userID,
		ProfileType:    profileType.String(),
		VerificationID: verificationID,
		Outcome:        outcomeLabel(outcome),
		RewardCode:     outcome.RewardCode,
		Message:        outcome.Message,
		CreatedAt:      time.Now().UTC(),
	})
}

// mapError translates the flow taxonomy into coded errors the HTTP layer
// knows how to render.
func (s *Service) mapError(err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidLocator):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid verification locator")
	case errors.Is(err, models.ErrUpstreamStep):
		return dErrors.Wrap(err, dErrors.CodeConflict, "verification rejected by provider")
	case errors.Is(err, models.ErrUpload), errors.Is(err, models.ErrTransport):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "verification provider unreachable")
	case errors.Is(err, models.ErrRender):
		return dErrors.Wrap(err, dErrors.CodeInternal, "document rendering failed")
	default:
		return err
	}
}

func outcomeLabel(o *models.Outcome) string {
	switch {
	case o == nil || !o.Success:
		return attemptModels.OutcomeFailure
	case o.Pending:
		return attemptModels.OutcomePending
	default:
		return attemptModels.OutcomeSuccess
	}
}
