// Package poller watches a submitted verification for its review result.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veriflow/internal/verification/metrics"
	"veriflow/internal/verification/models"
)

const (
	defaultWindow   = 20 * time.Second
	defaultInterval = 5 * time.Second
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20
)

// errStillPending marks a status check that found neither a code nor a
// failure, so the bounded loop should keep going.
var errStillPending = errors.New("review still pending")

// statusResponse is the remote's status document. Some programs deliver the
// reward code at the top level, others nest it under rewardData.
type statusResponse struct {
	CurrentStep string   `json:"currentStep"`
	ErrorIDs    []string `json:"errorIds"`
	RewardCode  string   `json:"rewardCode"`
	RedirectURL string   `json:"redirectUrl"`
	RewardData  struct {
		RewardCode string `json:"rewardCode"`
	} `json:"rewardData"`
}

func (r *statusResponse) rewardCode() string {
	if r.RewardCode != "" {
		return r.RewardCode
	}
	return r.RewardData.RewardCode
}

// Poller checks a verification's review status, either once or in a bounded
// constant-interval loop that gives up rather than waiting indefinitely.
type Poller struct {
	baseURL  string
	http     *http.Client
	window   time.Duration
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Poller)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) {
		p.metrics = m
	}
}

// WithWindow bounds the polling loop. The window caps total wall time; the
// interval is the constant gap between checks.
func WithWindow(window, interval time.Duration) Option {
	return func(p *Poller) {
		if window > 0 {
			p.window = window
		}
		if interval > 0 {
			p.interval = interval
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(p *Poller) {
		p.http = httpClient
	}
}

func New(baseURL string, opts ...Option) (*Poller, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	p := &Poller{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		window:   defaultWindow,
		interval: defaultInterval,
		tracer:   otel.Tracer("veriflow/verification/poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Query fetches the current review status once. A declared error step comes
// back as a failure outcome, not a Go error; errors here mean the status
// itself could not be read.
func (p *Poller) Query(ctx context.Context, verificationID string) (*models.Outcome, error) {
	url := fmt.Sprintf("%s/verification/%s", p.baseURL, verificationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build status request: %v", models.ErrTransport, err)
	}

	httpResp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: status check: %v", models.ErrTransport, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read status response: %v", models.ErrTransport, err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status check returned %d", models.ErrUpstreamStep, httpResp.StatusCode)
	}

	var resp statusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: status response is malformed JSON", models.ErrTransport)
	}

	if resp.CurrentStep == "error" {
		msg := strings.Join(resp.ErrorIDs, ", ")
		if msg == "" {
			msg = "verification rejected"
		}
		return models.Failure(verificationID, msg), nil
	}

	outcome := &models.Outcome{
		Success:        true,
		VerificationID: verificationID,
		CurrentStep:    resp.CurrentStep,
		RedirectURL:    resp.RedirectURL,
		RewardCode:     resp.rewardCode(),
	}
	if outcome.RewardCode == "" {
		outcome.Pending = true
		outcome.Message = "review still pending"
	} else {
		outcome.Message = "verification approved"
	}
	return outcome, nil
}

// Poll checks the status at a constant interval until a reward code or a
// rejection appears, or the window closes. A closed window is not an error:
// the last pending outcome is returned and the caller can query again later.
func (p *Poller) Poll(ctx context.Context, verificationID string) (*models.Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "verification.poll",
		trace.WithAttributes(attribute.String("verification_id", verificationID)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		p.metrics.ObservePoll(time.Since(start))
	}()

	var last *models.Outcome
	backoff := retry.WithMaxDuration(p.window, retry.NewConstant(p.interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		outcome, err := p.Query(ctx, verificationID)
		if err != nil {
			// Transient transport trouble should not abandon the window.
			if errors.Is(err, models.ErrTransport) {
				return retry.RetryableError(err)
			}
			return err
		}
		last = outcome
		if !outcome.Success || !outcome.Pending {
			return nil
		}
		return retry.RetryableError(errStillPending)
	})

	switch {
	case err == nil:
		if p.logger != nil && last != nil {
			p.logger.Info("polling finished",
				"verification_id", verificationID,
				"success", last.Success,
				"pending", last.Pending,
			)
		}
		return last, nil
	case errors.Is(err, errStillPending):
		// Window closed with review still open. Hand back what we know.
		if p.logger != nil {
			p.logger.Info("polling window closed without a result",
				"verification_id", verificationID,
				"window", p.window,
			)
		}
		return last, nil
	default:
		span.RecordError(err)
		return nil, err
	}
}
