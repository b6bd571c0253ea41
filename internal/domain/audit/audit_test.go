package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/leave"
	"hrleave/internal/platform/store/sqlite"
	"hrleave/internal/requestctx"
)

func TestRecordCapturesRequestContext(t *testing.T) {
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer store.Close()
	svc := audit.New(store)

	ctx := requestctx.WithRequestID(context.Background(), "req-abc")
	ctx = requestctx.WithClientIP(ctx, "10.0.0.7")
	ctx = requestctx.WithUserAgent(ctx, "hrleave-desktop/2.1")
	days := decimal.NewFromInt(3)
	require.NoError(t, svc.Record(ctx, leave.AuditEntry{
		Action:         leave.ActionRequestDecide,
		User:           "Mo Manager",
		UserRole:       leave.RoleManager,
		StaffID:        "S1",
		LeaveRequestID: "lr-1",
		Details: leave.AuditDetails{
			Severity:   leave.SeverityInfo,
			Days:       &days,
			FromStatus: leave.StatusPending,
			ToStatus:   leave.StatusApproved,
			Level:      1,
			Outcome:    leave.OutcomeApproved,
		},
		CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, svc.Record(context.Background(), leave.AuditEntry{
		Action: leave.ActionPolicyCreate, User: "Hana HR", UserRole: leave.RoleHR,
		Details: leave.AuditDetails{Severity: leave.SeverityInfo},
	}))

	events, err := svc.List(context.Background(), audit.Filter{LeaveRequestID: "lr-1"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	evt := events[0]
	assert.Equal(t, "req-abc", evt.RequestID)
	assert.Equal(t, "10.0.0.7", evt.IP)
	assert.Equal(t, "hrleave-desktop/2.1", evt.UserAgent)
	assert.Equal(t, "manager", evt.UserRole)

	var details leave.AuditDetails
	require.NoError(t, json.Unmarshal(evt.Details, &details))
	assert.Equal(t, leave.StatusApproved, details.ToStatus)
	assert.Equal(t, leave.OutcomeApproved, details.Outcome)

	total, err := svc.Count(context.Background(), audit.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	byAction, err := svc.Count(context.Background(), audit.Filter{Action: leave.ActionPolicyCreate})
	require.NoError(t, err)
	assert.Equal(t, 1, byAction)

	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	onDay, err := svc.Count(context.Background(), audit.Filter{Since: day, Until: day.AddDate(0, 0, 1)})
	require.NoError(t, err)
	assert.Equal(t, 1, onDay)

	before, err := svc.Count(context.Background(), audit.Filter{Until: day})
	require.NoError(t, err)
	assert.Zero(t, before)
}
