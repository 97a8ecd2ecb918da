package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veriflow/internal/platform/middleware"
	"veriflow/internal/verification/models"
	"veriflow/internal/verification/profiles"
	"veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
	"veriflow/pkg/platform/httputil"
)

// Service defines the interface for verification operations.
type Service interface {
	Run(ctx context.Context, userID domain.UserID, profileType models.ProfileType, rawLocator string) (*models.Outcome, error)
	Status(ctx context.Context, rawID string) (*models.Outcome, error)
}

// CreditLedger is the slice of the ledger the verification flow needs:
// charging an attempt up front and handing the charge back when the flow
// fails before documents are accepted.
type CreditLedger interface {
	Deduct(ctx context.Context, userID domain.UserID, amount int64, reason string) (int64, error)
	Credit(ctx context.Context, userID domain.UserID, amount int64, reason string) (int64, error)
}

// Handler wires verification endpoints to the orchestrator and the ledger.
type Handler struct {
	service Service
	ledger  CreditLedger
	cost    int64
	logger  *slog.Logger
}

// New constructs a verification handler with its dependencies.
func New(service Service, ledger CreditLedger, cost int64, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		ledger:  ledger,
		cost:    cost,
		logger:  logger,
	}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/profiles", h.HandleProfiles)
	r.Post("/verify", h.HandleVerify)
	r.Get("/verify/{verificationID}/code", h.HandleCode)
}

// HandleProfiles handles GET /profiles requests.
func (h *Handler) HandleProfiles(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromProfiles(profiles.All()))
}

// HandleVerify handles POST /verify requests. The attempt is charged before
// the flow starts; a flow that fails outright refunds the charge, while a
// pending submission keeps it.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	userID := middleware.GetUserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r)
	if !ok {
		return
	}

	if _, err := h.ledger.Deduct(ctx, userID, h.cost, "verification attempt"); err != nil {
		h.logger.WarnContext(ctx, "attempt charge failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.service.Run(ctx, userID, req.ParsedType(), req.Locator)
	if err != nil {
		h.refund(ctx, userID, requestID)
		h.logger.ErrorContext(ctx, "verification attempt failed",
			"request_id", requestID,
			"user_id", userID,
			"profile_type", req.ProfileType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !outcome.Success {
		// Review rejected the submission during the poll window.
		h.refund(ctx, userID, requestID)
	}

	h.logger.InfoContext(ctx, "verification attempt handled",
		"request_id", requestID,
		"user_id", userID,
		"profile_type", req.ProfileType,
		"verification_id", outcome.VerificationID,
		"pending", outcome.Pending,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromOutcome(outcome))
}

// HandleCode handles GET /verify/{verificationID}/code requests.
func (h *Handler) HandleCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	outcome, err := h.service.Status(ctx, chi.URLParam(r, "verificationID"))
	if err != nil {
		h.logger.ErrorContext(ctx, "status query failed",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromOutcome(outcome))
}

// refund is best effort; a failed refund is logged and swallowed so the
// caller still sees the original flow error.
func (h *Handler) refund(ctx context.Context, userID domain.UserID, requestID string) {
	if _, err := h.ledger.Credit(ctx, userID, h.cost, "failed attempt refund"); err != nil {
		h.logger.ErrorContext(ctx, "refund failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
	}
}
