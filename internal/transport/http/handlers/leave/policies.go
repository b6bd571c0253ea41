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

type policyPayload struct {
	LeaveType          string          `json:"leaveType" validate:"required"`
	MaxDays            decimal.Decimal `json:"maxDays"`
	AccrualRate        decimal.Decimal `json:"accrualRate"`
	AccrualFrequency   string          `json:"accrualFrequency" validate:"required,oneof=monthly quarterly annual"`
	CarryoverAllowed   bool            `json:"carryoverAllowed"`
	MaxCarryover       decimal.Decimal `json:"maxCarryover"`
	ExpiresAfterMonths *int            `json:"expiresAfterMonths" validate:"omitempty,min=1"`
	RequiresApproval   *bool           `json:"requiresApproval"`
	ApprovalLevels     int             `json:"approvalLevels" validate:"required,min=1,max=10"`
	Active             *bool           `json:"active"`
}

func (p policyPayload) toPolicy(v *shared.Validator) leave.Policy {
	leaveType := v.LeaveType("leaveType", p.LeaveType, true)
	policy := leave.Policy{
		LeaveType:          leaveType,
		MaxDays:            p.MaxDays,
		AccrualRate:        p.AccrualRate,
		AccrualFrequency:   leave.AccrualFrequency(p.AccrualFrequency),
		CarryoverAllowed:   p.CarryoverAllowed,
		MaxCarryover:       p.MaxCarryover,
		ExpiresAfterMonths: p.ExpiresAfterMonths,
		RequiresApproval:   true,
		ApprovalLevels:     p.ApprovalLevels,
		Active:             true,
	}
	if p.RequiresApproval != nil {
		policy.RequiresApproval = *p.RequiresApproval
	}
	if p.Active != nil {
		policy.Active = *p.Active
	}
	return policy
}

func decodePolicy(w http.ResponseWriter, r *http.Request) (leave.Policy, bool) {
	var payload policyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return leave.Policy{}, false
	}
	v := shared.NewValidator()
	v.Struct(payload)
	policy := payload.toPolicy(v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return leave.Policy{}, false
	}
	return policy, true
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Service.ListPolicies(r.Context())
	if err != nil {
		writeError(w, r, err, "leave_policy_list_failed", "failed to list leave policies")
		return
	}
	api.Success(w, policies, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleActivePolicy(w http.ResponseWriter, r *http.Request) {
	leaveType, err := leave.ParseLeaveType(chi.URLParam(r, "leaveType"))
	if err != nil {
		writeError(w, r, err, "leave_policy_get_failed", "failed to load leave policy")
		return
	}
	policy, err := h.Service.ActivePolicy(r.Context(), leaveType)
	if err != nil {
		writeError(w, r, err, "leave_policy_get_failed", "failed to load leave policy")
		return
	}
	api.Success(w, policy, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	policy, ok := decodePolicy(w, r)
	if !ok {
		return
	}

	created, err := h.Service.CreatePolicy(r.Context(), user.Actor(), policy)
	if err != nil {
		writeError(w, r, err, "leave_policy_create_failed", "failed to create leave policy")
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	policy, ok := decodePolicy(w, r)
	if !ok {
		return
	}
	policy.ID = chi.URLParam(r, "policyID")

	updated, err := h.Service.UpdatePolicy(r.Context(), user.Actor(), policy)
	if err != nil {
		writeError(w, r, err, "leave_policy_update_failed", "failed to update leave policy")
		return
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeactivatePolicy(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.DeactivatePolicy(r.Context(), user.Actor(), chi.URLParam(r, "policyID")); err != nil {
		writeError(w, r, err, "leave_policy_deactivate_failed", "failed to deactivate leave policy")
		return
	}
	api.NoContent(w)
}
