package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"veriflow/internal/platform/middleware"
	"veriflow/internal/verification/handler/mocks"
	"veriflow/internal/verification/models"
	"veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,CreditLedger

const verifyCost = int64(1)

type VerifyHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *VerifyHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestVerifyHandlerSuite(t *testing.T) {
	suite.Run(t, new(VerifyHandlerSuite))
}

func newTestHandler(t *testing.T) (chi.Router, *mocks.MockService, *mocks.MockCreditLedger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	mockLedger := mocks.NewMockCreditLedger(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := New(mockService, mockLedger, verifyCost, logger)
	r := chi.NewRouter()
	handler.Register(r)
	return r, mockService, mockLedger
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := middleware.WithUserID(req.Context(), domain.UserID(829))
	return req.WithContext(ctx)
}

func verifyBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(VerifyRequest{
		ProfileType: "chatgpt_teacher_k12",
		Locator:     "https://services.example.com/verify?verificationId=64fa12bc",
	})
	require.NoError(t, err)
	return body
}

func (s *VerifyHandlerSuite) TestHandleVerify() {
	router, mockService, mockLedger := newTestHandler(s.T())

	mockLedger.EXPECT().Deduct(gomock.Any(), domain.UserID(829), verifyCost, gomock.Any()).Return(int64(4), nil)
	mockService.EXPECT().Run(gomock.Any(), domain.UserID(829), models.ProfileTeacherK12,
		"https://services.example.com/verify?verificationId=64fa12bc").
		Return(&models.Outcome{Success: true, Pending: true, VerificationID: "64fa12bc"}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/verify", verifyBody(s.T())))

	require.Equal(s.T(), http.StatusOK, w.Code)
	var resp OutcomeResponse
	require.NoError(s.T(), json.NewDecoder(w.Body).Decode(&resp))
	assert.True(s.T(), resp.Success)
	assert.True(s.T(), resp.Pending)
	assert.Equal(s.T(), "64fa12bc", resp.VerificationID)
}

func (s *VerifyHandlerSuite) TestHandleVerifyRefundsOnFlowError() {
	router, mockService, mockLedger := newTestHandler(s.T())

	mockLedger.EXPECT().Deduct(gomock.Any(), domain.UserID(829), verifyCost, gomock.Any()).Return(int64(4), nil)
	mockService.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeConflict, "verification rejected by provider"))
	mockLedger.EXPECT().Credit(gomock.Any(), domain.UserID(829), verifyCost, gomock.Any()).Return(int64(5), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/verify", verifyBody(s.T())))

	assert.Equal(s.T(), http.StatusConflict, w.Code)
}

func (s *VerifyHandlerSuite) TestHandleVerifyRefundsOnReviewRejection() {
	router, mockService, mockLedger := newTestHandler(s.T())

	mockLedger.EXPECT().Deduct(gomock.Any(), gomock.Any(), verifyCost, gomock.Any()).Return(int64(4), nil)
	mockService.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(models.Failure("64fa12bc", "docReviewLimitExceeded"), nil)
	mockLedger.EXPECT().Credit(gomock.Any(), gomock.Any(), verifyCost, gomock.Any()).Return(int64(5), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/verify", verifyBody(s.T())))

	// A rejection carried inside an outcome is still a 200; the refund is
	// the side effect under test.
	require.Equal(s.T(), http.StatusOK, w.Code)
	var resp OutcomeResponse
	require.NoError(s.T(), json.NewDecoder(w.Body).Decode(&resp))
	assert.False(s.T(), resp.Success)
}

func (s *VerifyHandlerSuite) TestHandleVerifyKeepsChargeWhenPending() {
	router, mockService, mockLedger := newTestHandler(s.T())

	mockLedger.EXPECT().Deduct(gomock.Any(), gomock.Any(), verifyCost, gomock.Any()).Return(int64(4), nil)
	mockService.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&models.Outcome{Success: true, Pending: true, VerificationID: "64fa12bc"}, nil)
	// No Credit expectation: a pending submission keeps its charge.

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/verify", verifyBody(s.T())))
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *VerifyHandlerSuite) TestHandleVerifyInsufficientFunds() {
	router, _, mockLedger := newTestHandler(s.T())

	mockLedger.EXPECT().Deduct(gomock.Any(), gomock.Any(), verifyCost, gomock.Any()).
		Return(int64(0), dErrors.New(dErrors.CodeInsufficientFunds, "balance too low"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/verify", verifyBody(s.T())))

	assert.Equal(s.T(), http.StatusPaymentRequired, w.Code)
}

func (s *VerifyHandlerSuite) TestHandleVerifyRequiresAuth() {
	router, _, _ := newTestHandler(s.T())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(verifyBody(s.T())))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *VerifyHandlerSuite) TestHandleVerifyValidation() {
	cases := []struct {
		name string
		body string
	}{
		{"unknown profile type", `{"profile_type":"netflix_student","locator":"verificationId=aa"}`},
		{"missing locator", `{"profile_type":"chatgpt_teacher_k12"}`},
		{"missing profile type", `{"locator":"verificationId=aa"}`},
		{"malformed JSON", `{"profile_type":`},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			router, _, _ := newTestHandler(s.T())

			w := httptest.NewRecorder()
			router.ServeHTTP(w, authedRequest(http.MethodPost, "/verify", []byte(tc.body)))
			assert.Equal(s.T(), http.StatusBadRequest, w.Code)
		})
	}
}

func (s *VerifyHandlerSuite) TestHandleCode() {
	router, mockService, _ := newTestHandler(s.T())

	mockService.EXPECT().Status(gomock.Any(), "64fa12bc").
		Return(&models.Outcome{Success: true, Pending: false, RewardCode: "EDU-7H2K"}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/verify/64fa12bc/code", nil))

	require.Equal(s.T(), http.StatusOK, w.Code)
	var resp OutcomeResponse
	require.NoError(s.T(), json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(s.T(), "EDU-7H2K", resp.RewardCode)
}

func (s *VerifyHandlerSuite) TestHandleCodeUpstreamUnavailable() {
	router, mockService, _ := newTestHandler(s.T())

	mockService.EXPECT().Status(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w", dErrors.New(dErrors.CodeUnavailable, "verification provider unreachable")))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/verify/64fa12bc/code", nil))

	assert.Equal(s.T(), http.StatusServiceUnavailable, w.Code)
}

func (s *VerifyHandlerSuite) TestHandleProfiles() {
	router, _, _ := newTestHandler(s.T())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profiles", nil))

	require.Equal(s.T(), http.StatusOK, w.Code)
	var resp []ProfileResponse
	require.NoError(s.T(), json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(s.T(), resp, len(models.AllProfileTypes()))
}
