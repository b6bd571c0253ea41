package audithandler

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/auth"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

// maxExportRows bounds one CSV export.
const maxExportRows = 10000

type Handler struct {
	Service *audit.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *audit.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/events", h.handleListEvents)
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/events/export", h.handleExportEvents)
	})
}

// filterFrom reads the audit query. from and to are calendar dates, both inclusive.
func filterFrom(r *http.Request, v *shared.Validator) audit.Filter {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:         q.Get("action"),
		StaffID:        q.Get("staffId"),
		LeaveRequestID: q.Get("leaveRequestId"),
	}
	if raw := q.Get("from"); raw != "" {
		filter.Since, _ = v.Date("from", raw)
	}
	if raw := q.Get("to"); raw != "" {
		if to, ok := v.Date("to", raw); ok {
			filter.Until = to.AddDate(0, 0, 1)
		}
	}
	if !filter.Since.IsZero() && !filter.Until.IsZero() && !filter.Since.Before(filter.Until) {
		v.Add("from", "must be on or before to")
	}
	return filter
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	page := v.Page(r, 100, 500)
	filter := filterFrom(r, v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		slog.Warn("audit count failed", "err", err)
	}

	events, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}

	api.List(w, events, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	filter := filterFrom(r, v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	events, err := h.Service.List(r.Context(), filter, maxExportRows, 0)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=leave-audit.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "action", "user", "user_role", "staff_id", "leave_request_id", "request_id", "ip", "user_agent", "created_at"}); err != nil {
		slog.Warn("audit export header failed", "err", err)
	}
	for _, evt := range events {
		row := []string{evt.ID, evt.Action, evt.User, evt.UserRole, evt.StaffID, evt.LeaveRequestID, evt.RequestID, evt.IP, evt.UserAgent, evt.CreatedAt.UTC().Format(time.RFC3339)}
		if err := writer.Write(row); err != nil {
			slog.Warn("audit export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}
