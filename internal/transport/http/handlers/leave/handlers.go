package leavehandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/leave"
	"hrleave/internal/platform/jobs"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
)

type Handler struct {
	Service *leave.Service
	Perms   middleware.PermissionStore
	Jobs    *jobs.Service
	// SensitiveLimit wraps approval and accrual routes; nil leaves them unthrottled.
	SensitiveLimit func(http.Handler) http.Handler
}

func NewHandler(service *leave.Service, perms middleware.PermissionStore, jobsSvc *jobs.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Jobs: jobsSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	sensitive := h.SensitiveLimit
	if sensitive == nil {
		sensitive = func(next http.Handler) http.Handler { return next }
	}
	perm := func(p string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(p, h.Perms)
	}

	r.Route("/leave", func(r chi.Router) {
		r.With(perm(auth.PermLeaveRead)).Get("/types", h.handleListTypes)

		r.With(perm(auth.PermPolicyRead)).Get("/policies", h.handleListPolicies)
		r.With(perm(auth.PermPolicyRead)).Get("/policies/active/{leaveType}", h.handleActivePolicy)
		r.With(perm(auth.PermPolicyWrite)).Post("/policies", h.handleCreatePolicy)
		r.With(perm(auth.PermPolicyWrite)).Put("/policies/{policyID}", h.handleUpdatePolicy)
		r.With(perm(auth.PermPolicyWrite)).Delete("/policies/{policyID}", h.handleDeactivatePolicy)

		r.With(perm(auth.PermBalanceWrite)).Post("/balances", h.handleCreateBalance)
		r.With(perm(auth.PermBalanceRead)).Get("/balances/{staffID}", h.handleGetBalance)
		r.With(perm(auth.PermBalanceRead)).Get("/balances/{staffID}/movements", h.handleListMovements)
		r.With(perm(auth.PermBalanceWrite)).Post("/balances/{staffID}/adjust", h.handleAdjustBalance)

		r.With(perm(auth.PermAccrualRun), sensitive).Post("/accrual/run", h.handleRunAccruals)
		r.With(perm(auth.PermBalanceRead)).Get("/accrual/history/{staffID}", h.handleAccrualHistory)

		r.With(perm(auth.PermLeaveRead)).Get("/requests", h.handleListRequests)
		r.With(perm(auth.PermLeaveWrite)).Post("/requests", h.handleCreateRequest)
		r.With(perm(auth.PermLeaveRead)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(perm(auth.PermLeaveApprove), sensitive).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(perm(auth.PermLeaveApprove), sensitive).Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.With(perm(auth.PermLeaveWrite)).Post("/requests/{requestID}/cancel", h.handleCancelRequest)
	})
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	api.Success(w, leave.LeaveTypes, middleware.GetRequestID(r.Context()))
}

// canSee reports whether user may read data belonging to staffID.
func canSee(user auth.UserContext, staffID string) bool {
	if user.Role == leave.RoleHR || user.Role == leave.RoleManager || user.Role == leave.RoleAdmin {
		return true
	}
	return user.StaffID != "" && user.StaffID == staffID
}

// writeError maps service errors onto the response envelope.
// decodeOptional decodes a JSON body that may be absent. An empty body leaves dst untouched.
func decodeOptional(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error, fallbackCode, fallbackMsg string) {
	requestID := middleware.GetRequestID(r.Context())
	var insufficient *leave.InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error(), map[string]any{
			"staffId":   insufficient.StaffID,
			"leaveType": insufficient.LeaveType,
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		}, requestID)
	case errors.Is(err, leave.ErrInsufficientBalance):
		api.Fail(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error(), requestID)
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", requestID)
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", requestID)
	case errors.Is(err, leave.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, leave.ErrConflict):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	case errors.Is(err, leave.ErrPolicyNotFound):
		api.Fail(w, http.StatusUnprocessableEntity, "policy_not_found", err.Error(), requestID)
	case errors.Is(err, leave.ErrInvalidRange), errors.Is(err, leave.ErrInvalidLeaveType),
		errors.Is(err, leave.ErrInvalidPolicy), errors.Is(err, leave.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		slog.Error(fallbackMsg, "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, fallbackCode, fallbackMsg, requestID)
	}
}
