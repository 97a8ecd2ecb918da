package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"veriflow/internal/ledger/models"
	"veriflow/internal/platform/middleware"
	"veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
	"veriflow/pkg/platform/httputil"
	"veriflow/pkg/platform/secrets"
)

// Service defines the interface for ledger operations.
type Service interface {
	Balance(ctx context.Context, userID domain.UserID) (int64, error)
	Entries(ctx context.Context, userID domain.UserID, limit int) ([]models.Entry, error)
	CheckIn(ctx context.Context, userID domain.UserID) (int64, error)
	Redeem(ctx context.Context, userID domain.UserID, code string) (int64, error)
	Credit(ctx context.Context, userID domain.UserID, amount int64, reason string) (int64, error)
	AddCode(ctx context.Context, code models.RedeemCode) error
}

// Handler wires ledger endpoints to the ledger service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a ledger handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the user-facing ledger endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/me/balance", h.HandleBalance)
	r.Get("/me/history", h.HandleHistory)
	r.Post("/me/checkin", h.HandleCheckIn)
	r.Post("/me/redeem", h.HandleRedeem)
}

// RegisterAdmin mounts the admin endpoints; the caller wraps them in the
// admin-token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/credits", h.HandleAdminCredit)
	r.Post("/admin/codes", h.HandleAdminCode)
}

// HandleBalance handles GET /me/balance requests.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	balance, err := h.service.Balance(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{UserID: userID, Balance: balance})
}

// HandleHistory handles GET /me/history requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.Entries(ctx, userID, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEntries(entries))
}

// HandleCheckIn handles POST /me/checkin requests.
func (h *Handler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	balance, err := h.service.CheckIn(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "daily check-in",
		"request_id", middleware.GetRequestID(ctx),
		"user_id", userID,
		"balance", balance,
	)
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{UserID: userID, Balance: balance})
}

// HandleRedeem handles POST /me/redeem requests.
func (h *Handler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[RedeemRequest](w, r)
	if !ok {
		return
	}

	balance, err := h.service.Redeem(ctx, userID, req.Code)
	if err != nil {
		h.logger.WarnContext(ctx, "redeem failed",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{UserID: userID, Balance: balance})
}

// HandleAdminCredit handles POST /admin/credits requests.
func (h *Handler) HandleAdminCredit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[AdminCreditRequest](w, r)
	if !ok {
		return
	}

	balance, err := h.service.Credit(ctx, req.ParsedUserID(), req.Amount, "admin grant")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "admin credit granted",
		"request_id", middleware.GetRequestID(ctx),
		"user_id", req.ParsedUserID(),
		"amount", req.Amount,
	)
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{UserID: req.ParsedUserID(), Balance: balance})
}

// HandleAdminCode handles POST /admin/codes requests.
func (h *Handler) HandleAdminCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[AdminCodeRequest](w, r)
	if !ok {
		return
	}

	if req.Code == "" {
		code, err := secrets.Generate()
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "mint voucher code"))
			return
		}
		req.Code = code
	}

	if err := h.service.AddCode(ctx, models.RedeemCode{
		Code:          req.Code,
		Amount:        req.Amount,
		RemainingUses: req.Uses,
	}); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"code": req.Code})
}
