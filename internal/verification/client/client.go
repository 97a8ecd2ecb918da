// Package client drives one verification session through its program's fixed
// step sequence. One parameterized client replaces per-program copies of the
// same control flow; everything program-specific comes in via profiles.Config.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"veriflow/internal/verification/locator"
	"veriflow/internal/verification/metrics"
	"veriflow/internal/verification/models"
	"veriflow/internal/verification/profile"
	"veriflow/internal/verification/profiles"
	"veriflow/internal/verification/renderer"
	"veriflow/internal/verification/upload"
	"veriflow/pkg/platform/circuit"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 1 << 20
)

// Client exchanges JSON payloads with the remote verification API and
// advances a session along its step path. Each remote call is attempted
// exactly once; every failure is terminal for the session.
type Client struct {
	baseURL   string
	http      *http.Client
	generator *profile.Generator
	renderer  renderer.Renderer
	uploader  upload.Transport
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	breaker   *circuit.Breaker
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithHTTPClient overrides the step-exchange client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithBreaker guards step exchanges with a circuit breaker. While the
// breaker is open every exchange fails fast as a transport error.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func New(baseURL string, generator *profile.Generator, rend renderer.Renderer, uploader upload.Transport, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("profile generator is required")
	}
	if rend == nil {
		return nil, fmt.Errorf("document renderer is required")
	}
	if uploader == nil {
		return nil, fmt.Errorf("upload transport is required")
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: defaultTimeout},
		generator: generator,
		renderer:  rend,
		uploader:  uploader,
		tracer:    otel.Tracer("veriflow/verification/client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Verify runs the full submission phase for one session. The returned outcome
// has Pending set unless the final response already declares success with a
// reward code; all error returns satisfy the models failure taxonomy.
func (c *Client) Verify(ctx context.Context, cfg profiles.Config, loc locator.Locator) (*models.Outcome, error) {
	ctx, span := c.tracer.Start(ctx, "verification.verify",
		trace.WithAttributes(attribute.String("profile_type", cfg.Type.String())),
	)
	defer span.End()

	outcome, err := c.run(ctx, cfg, loc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return outcome, err
}

func (c *Client) run(ctx context.Context, cfg profiles.Config, loc locator.Locator) (*models.Outcome, error) {
	resume := cfg.Resumable && loc.VerificationID == "" && loc.ExternalUserID != ""
	if loc.VerificationID == "" && !resume {
		return nil, fmt.Errorf("%w: profile %s needs a verification id", models.ErrInvalidLocator, cfg.Type)
	}

	session := models.NewSession(cfg.Type)
	session.VerificationID = loc.VerificationID
	session.ExternalUserID = loc.ExternalUserID

	applicant, err := c.generator.Generate(cfg)
	if err != nil {
		return nil, err
	}

	if resume {
		if err := c.resolveSession(ctx, cfg, session); err != nil {
			return c.fail(session, err)
		}
	} else {
		if err := c.submitPersonalInfo(ctx, cfg, session, applicant); err != nil {
			return c.fail(session, err)
		}
	}

	if err := c.renderDocuments(cfg, session, applicant); err != nil {
		return c.fail(session, err)
	}
	if err := c.requestUploadURLs(ctx, session); err != nil {
		return c.fail(session, err)
	}
	if err := c.uploadDocuments(ctx, session); err != nil {
		return c.fail(session, err)
	}

	outcome, err := c.completeUpload(ctx, session)
	if err != nil {
		return c.fail(session, err)
	}
	return outcome, nil
}

// resolveSession obtains a session for the resumable program from its
// external user ID alone. The remote answers with the verification id and
// the step the session is parked at.
func (c *Client) resolveSession(ctx context.Context, cfg profiles.Config, session *models.Session) error {
	url := fmt.Sprintf("%s/verification/program/%s", c.baseURL, cfg.ProgramID)
	resp, err := c.exchange(ctx, http.MethodPost, url, "resolveSession", resolveRequest{
		ExternalUserID: session.ExternalUserID,
	})
	if err != nil {
		return err
	}
	if resp.VerificationID == "" {
		return fmt.Errorf("%w: no session for external user %s", models.ErrUpstreamStep, session.ExternalUserID)
	}
	session.VerificationID = resp.VerificationID
	if c.logger != nil {
		c.logger.Info("resumed session from external user id",
			"profile_type", cfg.Type,
			"verification_id", session.VerificationID,
			"declared_step", resp.CurrentStep,
		)
	}
	return nil
}

func (c *Client) submitPersonalInfo(ctx context.Context, cfg profiles.Config, session *models.Session, applicant models.IdentityProfile) error {
	body := personalInfoRequest{
		FirstName:   applicant.FirstName,
		LastName:    applicant.LastName,
		BirthDate:   applicant.BirthDate,
		Email:       applicant.Email,
		PhoneNumber: "",
		Organization: organizationPayload{
			ID:         applicant.Institution.ID,
			IDExtended: applicant.Institution.IDExtended,
			Name:       applicant.Institution.Name,
		},
		DeviceFingerprintHash: applicant.DeviceFingerprint,
		Locale:                "en-US",
		Metadata: metadataPayload{
			MarketConsentValue: false,
			RefererURL:         fmt.Sprintf("%s/verify/%s/?verificationId=%s", c.baseURL, cfg.ProgramID, session.VerificationID),
			VerificationID:     session.VerificationID,
			SubmissionOptIn:    submissionOptIn,
		},
	}

	resp, err := c.step(ctx, session, http.MethodPost, cfg.PersonalInfoStep, body)
	if err != nil {
		return err
	}
	if err := session.Transition(models.StepPersonalInfoSubmitted); err != nil {
		return err
	}

	// The SSO-removal step is issued only when the program opts in and the
	// remote explicitly reports an SSO step outstanding.
	if cfg.SkipSSO && resp.CurrentStep == "sso" {
		if _, err := c.step(ctx, session, http.MethodDelete, "sso", nil); err != nil {
			return err
		}
		if err := session.Transition(models.StepSsoResolved); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) renderDocuments(cfg profiles.Config, session *models.Session, applicant models.IdentityProfile) error {
	for _, kind := range cfg.Documents {
		content, err := c.renderer.Render(applicant, kind)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrRender, err)
		}
		session.Documents = append(session.Documents, &models.DocumentArtifact{
			FileName: fmt.Sprintf("%s_document.%s", cfg.Role, kind.Extension()),
			MimeType: kind.MimeType(),
			Size:     len(content),
			Content:  content,
			State:    models.UploadPending,
		})
	}
	return nil
}

func (c *Client) requestUploadURLs(ctx context.Context, session *models.Session) error {
	req := docUploadRequest{Files: make([]fileDescriptor, 0, len(session.Documents))}
	for _, artifact := range session.Documents {
		req.Files = append(req.Files, fileDescriptor{
			FileName: artifact.FileName,
			MimeType: artifact.MimeType,
			FileSize: artifact.Size,
		})
	}

	resp, err := c.step(ctx, session, http.MethodPost, "docUpload", req)
	if err != nil {
		return err
	}
	if len(resp.Documents) < len(session.Documents) {
		return fmt.Errorf("%w: expected %d upload URLs, got %d",
			models.ErrUpstreamStep, len(session.Documents), len(resp.Documents))
	}

	// Artifacts are paired with URLs by position, never by name.
	for i, artifact := range session.Documents {
		artifact.UploadURL = resp.Documents[i].UploadURL
	}
	return session.Transition(models.StepUploadURLsRequested)
}

// uploadDocuments pushes all artifacts concurrently; destinations are
// independent so there is no ordering dependency between them.
func (c *Client) uploadDocuments(ctx context.Context, session *models.Session) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, artifact := range session.Documents {
		g.Go(func() error {
			if err := c.uploader.Upload(gctx, artifact.UploadURL, artifact.Content, artifact.MimeType); err != nil {
				artifact.State = models.UploadFailed
				return err
			}
			artifact.State = models.UploadUploaded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return session.Transition(models.StepDocumentsUploaded)
}

func (c *Client) completeUpload(ctx context.Context, session *models.Session) (*models.Outcome, error) {
	resp, err := c.step(ctx, session, http.MethodPost, "completeDocUpload", nil)
	if err != nil {
		return nil, err
	}

	outcome := &models.Outcome{
		Success:        true,
		VerificationID: session.VerificationID,
		RedirectURL:    resp.RedirectURL,
		RewardCode:     resp.rewardCode(),
		CurrentStep:    resp.CurrentStep,
	}
	if resp.CurrentStep == "success" {
		if err := session.Transition(models.StepSuccess); err != nil {
			return nil, err
		}
		// Approved on the spot, but review may still owe us a code.
		outcome.Pending = outcome.RewardCode == ""
		outcome.Message = "verification approved"
	} else {
		if err := session.Transition(models.StepPending); err != nil {
			return nil, err
		}
		outcome.Pending = true
		outcome.Message = "documents submitted; waiting for review"
	}

	if c.logger != nil {
		c.logger.Info("submission phase complete",
			"profile_type", session.ProfileType,
			"verification_id", session.VerificationID,
			"declared_step", resp.CurrentStep,
			"pending", outcome.Pending,
		)
	}
	return outcome, nil
}

// step issues one request against the session's step endpoint.
func (c *Client) step(ctx context.Context, session *models.Session, method, stepName string, body any) (*stepResponse, error) {
	url := fmt.Sprintf("%s/verification/%s/step/%s", c.baseURL, session.VerificationID, stepName)
	return c.exchange(ctx, method, url, stepName, body)
}

// exchange performs one JSON request/response with the remote. A declared
// step of "error" or a non-2xx status is terminal; there is no retry here.
func (c *Client) exchange(ctx context.Context, method, url, stepName string, body any) (*stepResponse, error) {
	ctx, span := c.tracer.Start(ctx, "verification.step",
		trace.WithAttributes(attribute.String("step", stepName)),
	)
	defer span.End()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", stepName, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s request: %v", models.ErrTransport, stepName, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.breaker != nil && c.breaker.IsOpen() {
		return nil, fmt.Errorf("%w: %s: upstream circuit %s open", models.ErrTransport, stepName, c.breaker.Name())
	}

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.recordBreakerFailure()
		return nil, fmt.Errorf("%w: %s: %v", models.ErrTransport, stepName, err)
	}
	defer httpResp.Body.Close()
	c.recordBreakerSuccess()
	c.metrics.ObserveStep(stepName, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", models.ErrTransport, stepName, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: step %s returned status %d",
			models.ErrUpstreamStep, stepName, httpResp.StatusCode)
	}

	var resp stepResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: step %s returned malformed JSON", models.ErrTransport, stepName)
	}

	if resp.CurrentStep == "error" {
		msg := strings.Join(resp.ErrorIDs, ", ")
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("%w: %s", models.ErrUpstreamStep, msg)
	}
	return &resp, nil
}

func (c *Client) recordBreakerFailure() {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened && c.logger != nil {
		c.logger.Warn("upstream circuit opened", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordBreakerSuccess() {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed && c.logger != nil {
		c.logger.Info("upstream circuit closed", "breaker", c.breaker.Name())
	}
}

// fail parks the session in its terminal error state and propagates err.
func (c *Client) fail(session *models.Session, err error) (*models.Outcome, error) {
	_ = session.Transition(models.StepError)
	if c.logger != nil {
		c.logger.Warn("verification flow failed",
			"profile_type", session.ProfileType,
			"verification_id", session.VerificationID,
			"error", err,
		)
	}
	return nil, err
}
