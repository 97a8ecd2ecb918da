// Package e2e runs black-box scenarios against a deployed veriflow server.
// Configure the target with VERIFLOW_E2E_URL, a user bearer token with
// VERIFLOW_E2E_TOKEN and the operator token with VERIFLOW_E2E_ADMIN_TOKEN.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TestContext carries shared state between scenario steps: the HTTP client,
// credentials, and the last response.
type TestContext struct {
	BaseURL    string
	Token      string
	AdminToken string

	client *http.Client

	lastStatus int
	lastBody   map[string]any
	lastRaw    []byte
}

// NewTestContext builds a context targeting baseURL.
func NewTestContext(baseURL, token, adminToken string) *TestContext {
	return &TestContext{
		BaseURL:    baseURL,
		Token:      token,
		AdminToken: adminToken,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastRaw = nil
}

// POST sends a JSON request with the user bearer token.
func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, map[string]string{
		"Authorization": "Bearer " + tc.Token,
	})
}

// POSTAsAdmin sends a JSON request with the operator token.
func (tc *TestContext) POSTAsAdmin(path string, body any) error {
	return tc.do(http.MethodPost, path, body, map[string]string{
		"X-Admin-Token": tc.AdminToken,
	})
}

// GET sends a request with the user bearer token plus any extra headers.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	merged := map[string]string{"Authorization": "Bearer " + tc.Token}
	for k, v := range headers {
		merged[k] = v
	}
	return tc.do(http.MethodGet, path, nil, merged)
}

// GETAnonymous sends a request without credentials.
func (tc *TestContext) GETAnonymous(path string) error {
	return tc.do(http.MethodGet, path, nil, nil)
}

// POSTAnonymous sends a JSON request without credentials.
func (tc *TestContext) POSTAnonymous(path string, body any) error {
	return tc.do(http.MethodPost, path, body, nil)
}

func (tc *TestContext) do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastRaw, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	tc.lastBody = nil
	if len(tc.lastRaw) > 0 {
		// Non-object bodies (arrays, plain text) stay raw-only.
		_ = json.Unmarshal(tc.lastRaw, &tc.lastBody)
	}
	return nil
}

// LastStatus returns the status code of the most recent response.
func (tc *TestContext) LastStatus() int {
	return tc.lastStatus
}

// LastRaw returns the raw body of the most recent response.
func (tc *TestContext) LastRaw() []byte {
	return tc.lastRaw
}

// GetResponseField returns a top-level field from the most recent JSON
// response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.lastBody == nil {
		return nil, fmt.Errorf("no JSON object response recorded")
	}
	val, ok := tc.lastBody[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastRaw)
	}
	return val, nil
}
