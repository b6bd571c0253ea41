package leavehandler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/domain/leave"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

type createRequestPayload struct {
	StaffID   string `json:"staffId" validate:"max=64"`
	StaffName string `json:"staffName" validate:"max=200"`
	LeaveType string `json:"leaveType" validate:"required"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	Reason    string `json:"reason" validate:"max=2000"`
}

type decisionPayload struct {
	Level int `json:"level" validate:"gte=0"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload createRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Struct(payload)
	leaveType := v.LeaveType("leaveType", payload.LeaveType, true)
	start, startOK := v.Date("startDate", payload.StartDate)
	end, endOK := v.Date("endDate", payload.EndDate)
	if startOK && endOK {
		v.DateOrder("startDate", start, "endDate", end)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	req, err := h.Service.CreateRequest(r.Context(), user.Actor(), leave.CreateRequestInput{
		StaffID:   payload.StaffID,
		StaffName: payload.StaffName,
		LeaveType: leaveType,
		StartDate: start,
		EndDate:   end,
		Reason:    payload.Reason,
	})
	if err != nil {
		writeError(w, r, err, "leave_request_create_failed", "failed to create leave request")
		return
	}
	api.Created(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	q := r.URL.Query()
	v := shared.NewValidator()
	page := v.Page(r, 50, 200)
	filter := leave.RequestFilter{
		StaffID:   q.Get("staffId"),
		Status:    leave.RequestStatus(q.Get("status")),
		LeaveType: v.LeaveType("leaveType", q.Get("leaveType"), true),
		Limit:     page.Limit,
		Offset:    page.Offset,
	}
	v.Enum("status", string(filter.Status), []string{
		string(leave.StatusPending), string(leave.StatusApproved), string(leave.StatusRejected), string(leave.StatusCancelled),
	}, "unknown status")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	if !canSee(user, filter.StaffID) {
		filter.StaffID = user.StaffID
	}

	result, err := h.Service.ListRequests(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, "leave_request_list_failed", "failed to list leave requests")
		return
	}
	api.List(w, result.Items, result.Total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err, "leave_request_get_failed", "failed to load leave request")
		return
	}
	if !canSee(user, req.StaffID) {
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, leave.OutcomeApproved)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, leave.OutcomeRejected)
}

// decide records the caller's outcome at the level named in the body. Level 0
// addresses a request that has no approval levels.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request, outcome leave.Outcome) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload decisionPayload
	if err := decodeOptional(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	req, err := h.Service.Decide(r.Context(), user.Actor(), chi.URLParam(r, "requestID"), payload.Level, outcome)
	if err != nil {
		writeError(w, r, err, "leave_decision_failed", "failed to record decision")
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.Cancel(r.Context(), user.Actor(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err, "leave_cancel_failed", "failed to cancel leave request")
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}
