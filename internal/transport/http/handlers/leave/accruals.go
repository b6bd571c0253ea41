package leavehandler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/platform/jobs"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

type runAccrualPayload struct {
	StaffID   string `json:"staffId" validate:"required_with=LeaveType,max=64"`
	LeaveType string `json:"leaveType" validate:"required_with=StaffID"`
	AsOf      string `json:"asOf"`
}

// handleRunAccruals runs one pair when staffId and leaveType are given, else every pair.
func (h *Handler) handleRunAccruals(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload runAccrualPayload
	if err := decodeOptional(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	leaveType := v.LeaveType("leaveType", payload.LeaveType, true)
	asOf := v.AsOf("asOf", payload.AsOf, time.Now())
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	actor := user.Actor()
	var run jobs.Func
	if payload.StaffID != "" {
		run = func(ctx context.Context) (any, error) {
			return h.Service.RunAccrual(ctx, actor, payload.StaffID, leaveType, asOf)
		}
	} else {
		run = func(ctx context.Context) (any, error) {
			return h.Service.RunAccruals(ctx, actor, asOf)
		}
	}

	var (
		result any
		err    error
	)
	if h.Jobs != nil {
		result, err = h.Jobs.RunNow(r.Context(), jobs.JobLeaveAccrual, run)
	} else {
		result, err = run(r.Context())
	}
	if err != nil {
		writeError(w, r, err, "leave_accrual_failed", "failed to run leave accrual")
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAccrualHistory(w http.ResponseWriter, r *http.Request) {
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

	records, err := h.Service.AccrualHistory(r.Context(), staffID, leaveType)
	if err != nil {
		writeError(w, r, err, "leave_accrual_history_failed", "failed to load accrual history")
		return
	}
	api.Success(w, records, middleware.GetRequestID(r.Context()))
}
