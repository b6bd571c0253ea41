package shared

import (
	"net/http"
	"slices"
	"strings"

	"hrleave/internal/domain/leave"
	"hrleave/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator collects field issues for one request and renders them as a single
// validation_error response.
type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Add(field, reason string) {
	reason = strings.TrimSpace(reason)
	if v == nil || reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{Field: strings.TrimSpace(field), Reason: reason})
}

// Enum accepts an empty value or one of allowed.
func (v *Validator) Enum(field, value string, allowed []string, reason string) {
	if value == "" || slices.Contains(allowed, value) {
		return
	}
	v.Add(field, reason)
}

// LeaveType parses a leave type field; empty is allowed when optional is true.
func (v *Validator) LeaveType(field, raw string, optional bool) leave.LeaveType {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if !optional {
			v.Add(field, "is required")
		}
		return ""
	}
	t, err := leave.ParseLeaveType(raw)
	if err != nil {
		v.Add(field, "unknown leave type")
		return ""
	}
	return t
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

// Issues returns the collected issues ordered by field, then reason.
func (v *Validator) Issues() []ValidationIssue {
	if !v.HasIssues() {
		return nil
	}
	out := slices.Clone(v.issues)
	slices.SortStableFunc(out, func(a, b ValidationIssue) int {
		if c := strings.Compare(a.Field, b.Field); c != 0 {
			return c
		}
		return strings.Compare(a.Reason, b.Reason)
	})
	return slices.Compact(out)
}

// Reject writes the validation_error response and reports true when any issue was recorded.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed",
		map[string]any{"fields": v.Issues()}, requestID)
	return true
}
