package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"veriflow/internal/verification/locator"
	"veriflow/internal/verification/models"
	"veriflow/internal/verification/profile"
	"veriflow/internal/verification/profiles"
	"veriflow/internal/verification/renderer"
	rendermocks "veriflow/internal/verification/renderer/mocks"
	"veriflow/internal/verification/upload"
	uploadmocks "veriflow/internal/verification/upload/mocks"
	"veriflow/pkg/platform/circuit"
)

// fakeRemote is a scripted verification API plus its upload destinations.
// It records every step request so tests can assert on order and absence.
type fakeRemote struct {
	t  *testing.T
	mu sync.Mutex

	steps   []string // "METHOD step" in arrival order
	uploads []string // upload paths hit, in completion order

	personalInfoStatus int    // 0 means 200
	currentStepAfter   string // currentStep declared after personal info
	uploadURLCount     int    // -1 means match the request
	finalStep          string // currentStep declared after completeDocUpload
	rewardCode         string
	resolveVID         string // verificationId answered by the resolve endpoint
	srvURL             string // set once the test server is up
}

func (f *fakeRemote) record(kind, entry string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == "step" {
		f.steps = append(f.steps, entry)
	} else {
		f.uploads = append(f.uploads, entry)
	}
}

func (f *fakeRemote) stepNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.steps...)
}

func (f *fakeRemote) server() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /verification/program/{programID}", func(w http.ResponseWriter, r *http.Request) {
		f.record("step", "POST program/"+r.PathValue("programID"))
		var body map[string]string
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(f.t, body["externalUserId"])
		json.NewEncoder(w).Encode(map[string]string{
			"verificationId": f.resolveVID,
			"currentStep":    "docUpload",
		})
	})

	mux.HandleFunc("/verification/{vid}/step/{step}", func(w http.ResponseWriter, r *http.Request) {
		step := r.PathValue("step")
		f.record("step", r.Method+" "+step)

		switch {
		case strings.HasPrefix(step, "collect"):
			if f.personalInfoStatus != 0 {
				w.WriteHeader(f.personalInfoStatus)
				return
			}
			var body map[string]any
			require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
			assert.NotEmpty(f.t, body["firstName"])
			assert.NotEmpty(f.t, body["deviceFingerprintHash"])
			next := f.currentStepAfter
			if next == "" {
				next = "docUpload"
			}
			json.NewEncoder(w).Encode(map[string]string{"currentStep": next})

		case step == "sso" && r.Method == http.MethodDelete:
			json.NewEncoder(w).Encode(map[string]string{"currentStep": "docUpload"})

		case step == "docUpload":
			var body struct {
				Files []map[string]any `json:"files"`
			}
			require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
			n := f.uploadURLCount
			if n < 0 {
				n = len(body.Files)
			}
			docs := make([]map[string]string, n)
			for i := range docs {
				docs[i] = map[string]string{"uploadUrl": f.baseURL() + fmt.Sprintf("/upload/%d", i)}
			}
			json.NewEncoder(w).Encode(map[string]any{
				"currentStep": "completeDocUpload",
				"documents":   docs,
			})

		case step == "completeDocUpload":
			final := f.finalStep
			if final == "" {
				final = "pending"
			}
			json.NewEncoder(w).Encode(map[string]string{
				"currentStep": final,
				"rewardCode":  f.rewardCode,
			})

		default:
			f.t.Errorf("unexpected step request: %s %s", r.Method, step)
			w.WriteHeader(http.StatusTeapot)
		}
	})

	mux.HandleFunc("PUT /upload/{n}", func(w http.ResponseWriter, r *http.Request) {
		f.record("upload", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	f.mu.Lock()
	f.srvURL = srv.URL
	f.mu.Unlock()
	return srv
}

func (f *fakeRemote) baseURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.srvURL
}

// recordingUploader delegates nothing and records upload URLs.
type recordingUploader struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (u *recordingUploader) Upload(_ context.Context, url string, _ []byte, _ string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.urls = append(u.urls, url)
	return u.err
}

func teacherConfig() profiles.Config {
	cfg, _ := profiles.ForType(models.ProfileTeacherK12)
	return cfg
}

func newClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(baseURL, profile.New(), renderer.New(), upload.New(), opts...)
	require.NoError(t, err)
	return c
}

func TestVerifyHappyPath(t *testing.T) {
	remote := &fakeRemote{t: t, uploadURLCount: -1, finalStep: "pending"}
	srv := remote.server()
	defer srv.Close()

	c := newClient(t, srv.URL)
	loc := locator.Locator{VerificationID: "64fa12bc9d1e8a77"}

	outcome, err := c.Verify(context.Background(), teacherConfig(), loc)
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.True(t, outcome.Pending)
	assert.Equal(t, "64fa12bc9d1e8a77", outcome.VerificationID)

	steps := remote.stepNames()
	require.Len(t, steps, 3)
	assert.Equal(t, "POST collectTeacherPersonalInfo", steps[0])
	assert.Equal(t, "POST docUpload", steps[1])
	assert.Equal(t, "POST completeDocUpload", steps[2])

	// Teacher programs submit two documents; both destinations must be hit.
	remote.mu.Lock()
	assert.Len(t, remote.uploads, 2)
	remote.mu.Unlock()
}

func TestVerifySuccessWithRewardCode(t *testing.T) {
	remote := &fakeRemote{t: t, uploadURLCount: -1, finalStep: "success", rewardCode: "EDU-7H2K"}
	srv := remote.server()
	defer srv.Close()

	c := newClient(t, srv.URL)
	outcome, err := c.Verify(context.Background(), teacherConfig(), locator.Locator{VerificationID: "aa11bb22cc33dd44"})
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.False(t, outcome.Pending, "declared success with a code is final")
	assert.Equal(t, "EDU-7H2K", outcome.RewardCode)
}

func TestVerifySuccessWithoutCodeStaysPending(t *testing.T) {
	remote := &fakeRemote{t: t, uploadURLCount: -1, finalStep: "success"}
	srv := remote.server()
	defer srv.Close()

	c := newClient(t, srv.URL)
	outcome, err := c.Verify(context.Background(), teacherConfig(), locator.Locator{VerificationID: "aa11bb22cc33dd44"})
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.True(t, outcome.Pending)
}

func TestVerifyPersonalInfoRejectionStopsFlow(t *testing.T) {
	remote := &fakeRemote{t: t, personalInfoStatus: http.StatusBadRequest}
	srv := remote.server()
	defer srv.Close()

	c := newClient(t, srv.URL)
	_, err := c.Verify(context.Background(), teacherConfig(), locator.Locator{VerificationID: "aa11bb22cc33dd44"})
	require.ErrorIs(t, err, models.ErrUpstreamStep)

	// Nothing past the rejected step may run.
	require.Len(t, remote.stepNames(), 1)
	remote.mu.Lock()
	assert.Empty(t, remote.uploads)
	remote.mu.Unlock()
}

func TestVerifyErrorStepSurfacesErrorIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"currentStep": "error",
			"errorIds":    []string{"invalidOrganization", "underageBirthDate"},
		})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	_, err := c.Verify(context.Background(), teacherConfig(), locator.Locator{VerificationID: "aa11bb22cc33dd44"})
	require.ErrorIs(t, err, models.ErrUpstreamStep)
	assert.Contains(t, err.Error(), "invalidOrganization, underageBirthDate")
}

func TestVerifySkipSSO(t *testing.T) {
	cfg := teacherConfig()
	cfg.SkipSSO = true

	t.Run("deletes sso step when remote declares it", func(t *testing.T) {
		remote := &fakeRemote{t: t, uploadURLCount: -1, currentStepAfter: "sso"}
		srv := remote.server()
		defer srv.Close()

		_, err := newClient(t, srv.URL).Verify(context.Background(), cfg, locator.Locator{VerificationID: "aa11bb22cc33dd44"})
		require.NoError(t, err)
		assert.Contains(t, remote.stepNames(), "DELETE sso")
	})

	t.Run("skips the delete when no sso step is outstanding", func(t *testing.T) {
		remote := &fakeRemote{t: t, uploadURLCount: -1, currentStepAfter: "docUpload"}
		srv := remote.server()
		defer srv.Close()

		_, err := newClient(t, srv.URL).Verify(context.Background(), cfg, locator.Locator{VerificationID: "aa11bb22cc33dd44"})
		require.NoError(t, err)
		assert.NotContains(t, remote.stepNames(), "DELETE sso")
	})
}

func TestVerifyResumeFromExternalUserID(t *testing.T) {
	cfg, err := profiles.ForType(models.ProfileBoltTeacher)
	require.NoError(t, err)
	require.True(t, cfg.Resumable)

	remote := &fakeRemote{t: t, uploadURLCount: -1, resolveVID: "deadbeef00112233"}
	srv := remote.server()
	defer srv.Close()

	c := newClient(t, srv.URL)
	outcome, err := c.Verify(context.Background(), cfg, locator.Locator{ExternalUserID: "user-829"})
	require.NoError(t, err)
	assert.Equal(t, "deadbeef00112233", outcome.VerificationID)

	steps := remote.stepNames()
	assert.Equal(t, "POST program/"+cfg.ProgramID, steps[0])
	for _, s := range steps {
		assert.NotContains(t, s, "PersonalInfo", "resumed sessions must not resubmit personal info")
	}
}

func TestVerifyRejectsLocatorWithoutVerificationID(t *testing.T) {
	c := newClient(t, "http://unreachable.invalid")
	_, err := c.Verify(context.Background(), teacherConfig(), locator.Locator{ExternalUserID: "user-1"})
	require.ErrorIs(t, err, models.ErrInvalidLocator)
}

func TestVerifyFewerUploadURLsThanDocuments(t *testing.T) {
	remote := &fakeRemote{t: t, uploadURLCount: 1}
	srv := remote.server()
	defer srv.Close()

	c := newClient(t, srv.URL)
	_, err := c.Verify(context.Background(), teacherConfig(), locator.Locator{VerificationID: "aa11bb22cc33dd44"})
	require.ErrorIs(t, err, models.ErrUpstreamStep)
	assert.Contains(t, err.Error(), "upload URLs")
}

func TestVerifyRenderFailureIsFatal(t *testing.T) {
	remote := &fakeRemote{t: t}
	srv := remote.server()
	defer srv.Close()

	ctrl := gomock.NewController(t)
	rend := rendermocks.NewMockRenderer(ctrl)
	rend.EXPECT().Render(gomock.Any(), gomock.Any()).Return(nil, errors.New("template unavailable"))

	c, err := New(srv.URL, profile.New(), rend, &recordingUploader{})
	require.NoError(t, err)

	_, err = c.Verify(context.Background(), teacherConfig(), locator.Locator{VerificationID: "aa11bb22cc33dd44"})
	require.ErrorIs(t, err, models.ErrRender)

	// Personal info went out, but no upload URLs were requested.
	steps := remote.stepNames()
	require.Len(t, steps, 1)
	assert.Equal(t, "POST collectTeacherPersonalInfo", steps[0])
}

func TestVerifyUploadFailureIsFatal(t *testing.T) {
	remote := &fakeRemote{t: t, uploadURLCount: -1}
	srv := remote.server()
	defer srv.Close()

	ctrl := gomock.NewController(t)
	uploader := uploadmocks.NewMockTransport(ctrl)
	uploader.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("%w: status 403", models.ErrUpload)).
		MinTimes(1)

	c, err := New(srv.URL, profile.New(), renderer.New(), uploader)
	require.NoError(t, err)

	_, err = c.Verify(context.Background(), teacherConfig(), locator.Locator{VerificationID: "aa11bb22cc33dd44"})
	require.ErrorIs(t, err, models.ErrUpload)

	// completeDocUpload must not run after a failed upload.
	assert.NotContains(t, remote.stepNames(), "POST completeDocUpload")
}

func TestVerifyTransportErrorWraps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := newClient(t, srv.URL)
	_, err := c.Verify(context.Background(), teacherConfig(), locator.Locator{VerificationID: "aa11bb22cc33dd44"})
	require.ErrorIs(t, err, models.ErrTransport)
}

func TestVerifyOpenBreakerFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	breaker := circuit.New("upstream", circuit.WithFailureThreshold(1))
	c := newClient(t, srv.URL, WithBreaker(breaker))
	loc := locator.Locator{VerificationID: "aa11bb22cc33dd44"}

	// First attempt reaches the socket and trips the breaker.
	_, err := c.Verify(context.Background(), teacherConfig(), loc)
	require.ErrorIs(t, err, models.ErrTransport)
	require.True(t, breaker.IsOpen())

	// Subsequent attempts short-circuit without dialing.
	start := time.Now()
	_, err = c.Verify(context.Background(), teacherConfig(), loc)
	require.ErrorIs(t, err, models.ErrTransport)
	assert.Contains(t, err.Error(), "circuit")
	assert.Less(t, time.Since(start), time.Second)
}

// flakyTransport errors a fixed number of round trips, then delegates.
type flakyTransport struct {
	mu       sync.Mutex
	failures int
}

func (ft *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ft.mu.Lock()
	if ft.failures > 0 {
		ft.failures--
		ft.mu.Unlock()
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, errors.New("connection reset by peer")
	}
	ft.mu.Unlock()
	return http.DefaultTransport.RoundTrip(req)
}

func TestVerifyBreakerRecoversAfterRetryWindow(t *testing.T) {
	remote := &fakeRemote{t: t, uploadURLCount: -1, finalStep: "pending"}
	srv := remote.server()
	defer srv.Close()

	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	breaker := circuit.New("upstream",
		circuit.WithFailureThreshold(1),
		circuit.WithRetryAfter(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	c := newClient(t, srv.URL,
		WithBreaker(breaker),
		WithHTTPClient(&http.Client{Transport: &flakyTransport{failures: 1}}),
	)
	loc := locator.Locator{VerificationID: "aa11bb22cc33dd44"}

	// The transport failure trips the breaker before the remote sees a step.
	_, err := c.Verify(context.Background(), teacherConfig(), loc)
	require.ErrorIs(t, err, models.ErrTransport)
	require.True(t, breaker.IsOpen())

	// Inside the retry window the remote stays untouched.
	_, err = c.Verify(context.Background(), teacherConfig(), loc)
	require.ErrorIs(t, err, models.ErrTransport)
	assert.Empty(t, remote.stepNames())

	// After the window a trial flow runs end to end and closes the circuit.
	now = now.Add(61 * time.Second)
	outcome, err := c.Verify(context.Background(), teacherConfig(), loc)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.False(t, breaker.IsOpen())
	assert.Equal(t, circuit.StateClosed, breaker.State())
	assert.NotEmpty(t, remote.stepNames())
}

func TestVerifyPositionalPairing(t *testing.T) {
	remote := &fakeRemote{t: t, uploadURLCount: -1}
	srv := remote.server()
	defer srv.Close()

	uploader := &recordingUploader{}
	c, err := New(srv.URL, profile.New(), renderer.New(), uploader)
	require.NoError(t, err)

	_, err = c.Verify(context.Background(), teacherConfig(), locator.Locator{VerificationID: "aa11bb22cc33dd44"})
	require.NoError(t, err)

	uploader.mu.Lock()
	defer uploader.mu.Unlock()
	require.Len(t, uploader.urls, 2)
	// Order of completion may vary; the URL set must match the issued set.
	assert.ElementsMatch(t, []string{srv.URL + "/upload/0", srv.URL + "/upload/1"}, uploader.urls)
}

func TestNewValidation(t *testing.T) {
	gen := profile.New()

	_, err := New("", gen, renderer.New(), &recordingUploader{})
	require.Error(t, err)

	_, err = New("http://x", nil, renderer.New(), &recordingUploader{})
	require.Error(t, err)

	_, err = New("http://x", gen, nil, &recordingUploader{})
	require.Error(t, err)

	_, err = New("http://x", gen, renderer.New(), nil)
	require.Error(t, err)
}
