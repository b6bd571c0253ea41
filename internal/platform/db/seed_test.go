package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrleave/internal/domain/leave"
	"hrleave/internal/platform/db"
	"hrleave/internal/platform/store/sqlite"
)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	svc := leave.NewService(store)

	require.NoError(t, db.Seed(ctx, svc))
	require.NoError(t, db.Seed(ctx, svc))

	policies, err := svc.ListPolicies(ctx)
	require.NoError(t, err)
	assert.Len(t, policies, len(db.DefaultPolicies()))

	annual, err := svc.ActivePolicy(ctx, leave.TypeAnnual)
	require.NoError(t, err)
	assert.Equal(t, 2, annual.ApprovalLevels)
	assert.True(t, annual.CarryoverAllowed)
}

func TestDefaultPoliciesPassStatutoryMinimums(t *testing.T) {
	for _, p := range db.DefaultPolicies() {
		require.NoError(t, p.Validate(), p.LeaveType)
		require.NoError(t, leave.DefaultStatutoryMinimums.ValidatePolicy(context.Background(), p), p.LeaveType)
	}
}
