package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriflow/internal/ledger/models"
	"veriflow/internal/ledger/service"
	"veriflow/internal/ledger/store"
	"veriflow/pkg/domain"
	"veriflow/pkg/testutil"
)

const userID = domain.UserID(829)

func newTestRouter(t *testing.T) (chi.Router, *service.Service) {
	t.Helper()
	mem := store.NewMemory()
	svc, err := service.New(mem, mem, mem)
	require.NoError(t, err)

	handler := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	handler.Register(r)
	handler.RegisterAdmin(r)
	return r, svc
}

func authed(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return testutil.WithUserID(req, userID.String())
}

func decodeBalance(t *testing.T, w *httptest.ResponseRecorder) BalanceResponse {
	t.Helper()
	var resp BalanceResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestHandleBalance(t *testing.T) {
	router, svc := newTestRouter(t)
	_, err := svc.Credit(context.Background(), userID, 7, "grant")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authed(http.MethodGet, "/me/balance", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), decodeBalance(t, w).Balance)
}

func TestHandleBalanceRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me/balance", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleCheckIn(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authed(http.MethodPost, "/me/checkin", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodeBalance(t, w).Balance)

	// Second check-in inside the window conflicts.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authed(http.MethodPost, "/me/checkin", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleRedeem(t *testing.T) {
	router, svc := newTestRouter(t)
	require.NoError(t, svc.AddCode(context.Background(), models.RedeemCode{Code: "WELCOME", Amount: 5, RemainingUses: 1}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authed(http.MethodPost, "/me/redeem", []byte(`{"code":"WELCOME"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), decodeBalance(t, w).Balance)

	t.Run("unknown code", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authed(http.MethodPost, "/me/redeem", []byte(`{"code":"NOPE"}`)))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing code", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authed(http.MethodPost, "/me/redeem", []byte(`{}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleHistory(t *testing.T) {
	router, svc := newTestRouter(t)
	_, err := svc.Credit(context.Background(), userID, 3, "grant")
	require.NoError(t, err)
	_, err = svc.Deduct(context.Background(), userID, 1, "verification attempt")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authed(http.MethodGet, "/me/history", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var entries []EntryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, int64(-1), entries[0].Amount, "history must be newest first")
}

func TestHandleAdminCredit(t *testing.T) {
	router, svc := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/credits",
		bytes.NewReader([]byte(`{"user_id":"829","amount":10}`))))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(10), decodeBalance(t, w).Balance)

	balance, err := svc.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	t.Run("rejects bad user id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/credits",
			bytes.NewReader([]byte(`{"user_id":"-4","amount":10}`))))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleAdminCode(t *testing.T) {
	router, svc := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/codes",
		bytes.NewReader([]byte(`{"code":"LAUNCH","amount":3,"uses":100}`))))
	require.Equal(t, http.StatusCreated, w.Code)

	balance, err := svc.Redeem(context.Background(), userID, "LAUNCH")
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)
}

func TestHandleAdminCodeMintsWhenOmitted(t *testing.T) {
	router, svc := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/codes",
		bytes.NewReader([]byte(`{"amount":2,"uses":1}`))))
	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	code := body["code"]
	require.NotEmpty(t, code)

	balance, err := svc.Redeem(context.Background(), userID, code)
	require.NoError(t, err)
	assert.Equal(t, int64(2), balance)
}
