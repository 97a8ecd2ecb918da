// Package upload delivers rendered documents to the presigned URLs the
// remote system hands out.
package upload

//go:generate mockgen -source=transport.go -destination=mocks/mocks.go -package=mocks Transport

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"veriflow/internal/verification/models"
)

const defaultTimeout = 60 * time.Second

// Transport performs one binary upload to a presigned storage URL.
type Transport interface {
	Upload(ctx context.Context, url string, content []byte, mimeType string) error
}

// HTTPTransport uploads via a single PUT per artifact. There is no retry;
// the caller aborts the session on the first failure.
type HTTPTransport struct {
	client *http.Client
	logger *slog.Logger
}

type Option func(*HTTPTransport)

func WithLogger(logger *slog.Logger) Option {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// WithHTTPClient overrides the underlying client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(t *HTTPTransport) {
		t.client = client
	}
}

func New(opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *HTTPTransport) Upload(ctx context.Context, url string, content []byte, mimeType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("%w: build upload request: %v", models.ErrUpload, err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.ContentLength = int64(len(content))

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %d", models.ErrUpload, resp.StatusCode)
	}

	if t.logger != nil {
		t.logger.Debug("uploaded document",
			"bytes", len(content),
			"mime_type", mimeType,
		)
	}
	return nil
}
