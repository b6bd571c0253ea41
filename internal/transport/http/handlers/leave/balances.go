package leavehandler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"hrleave/internal/domain/leave"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

type createBalancePayload struct {
	StaffID string                     `json:"staffId" validate:"required,max=64"`
	Opening map[string]decimal.Decimal `json:"opening"`
}

type adjustBalancePayload struct {
	LeaveType string          `json:"leaveType" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason" validate:"required,max=500"`
}

func (h *Handler) handleCreateBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload createBalancePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Struct(payload)
	bal := leave.Balance{StaffID: payload.StaffID}
	for raw, days := range payload.Opening {
		t, err := leave.ParseLeaveType(raw)
		if err != nil {
			v.Add("opening."+raw, "unknown leave type")
			continue
		}
		if days.IsNegative() {
			v.Add("opening."+raw, "must not be negative")
			continue
		}
		_ = bal.Credit(t, days)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.CreateBalance(r.Context(), user.Actor(), bal)
	if err != nil {
		writeError(w, r, err, "leave_balance_create_failed", "failed to create leave balance")
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	staffID := chi.URLParam(r, "staffID")
	if !canSee(user, staffID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	bal, err := h.Service.GetBalance(r.Context(), staffID)
	if err != nil {
		writeError(w, r, err, "leave_balance_get_failed", "failed to load leave balance")
		return
	}
	api.Success(w, bal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListMovements(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	staffID := chi.URLParam(r, "staffID")
	if !canSee(user, staffID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	leaveType := v.LeaveType("leaveType", r.URL.Query().Get("leaveType"), true)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	movements, err := h.Service.ListMovements(r.Context(), staffID, leaveType)
	if err != nil {
		writeError(w, r, err, "leave_movements_failed", "failed to list balance movements")
		return
	}
	api.Success(w, movements, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload adjustBalancePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	leaveType := v.LeaveType("leaveType", payload.LeaveType, true)
	if payload.Amount.IsZero() {
		v.Add("amount", "must not be zero")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	bal, err := h.Service.AdjustBalance(r.Context(), user.Actor(), chi.URLParam(r, "staffID"), leaveType, payload.Amount, payload.Reason)
	if err != nil {
		writeError(w, r, err, "leave_balance_adjust_failed", "failed to adjust leave balance")
		return
	}
	api.Success(w, bal, middleware.GetRequestID(r.Context()))
}
