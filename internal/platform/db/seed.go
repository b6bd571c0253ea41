package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"hrleave/internal/domain/leave"
)

var seedActor = leave.Actor{UserID: "seed", Name: "seed", Role: leave.RoleHR}

// DefaultPolicies is the starter policy set installed on an empty database.
func DefaultPolicies() []leave.Policy {
	six := 6
	return []leave.Policy{
		{
			LeaveType: leave.TypeAnnual, MaxDays: decimal.NewFromInt(30), AccrualRate: decimal.RequireFromString("2.5"),
			AccrualFrequency: leave.FrequencyMonthly, CarryoverAllowed: true, MaxCarryover: decimal.NewFromInt(5),
			ExpiresAfterMonths: &six, RequiresApproval: true, ApprovalLevels: 2,
		},
		{
			LeaveType: leave.TypeSick, MaxDays: decimal.NewFromInt(10), AccrualRate: decimal.NewFromInt(10),
			AccrualFrequency: leave.FrequencyAnnual, RequiresApproval: true, ApprovalLevels: 1,
		},
		{
			LeaveType: leave.TypeMaternity, MaxDays: decimal.NewFromInt(84), AccrualRate: decimal.NewFromInt(84),
			AccrualFrequency: leave.FrequencyAnnual, RequiresApproval: true, ApprovalLevels: 2,
		},
		{
			LeaveType: leave.TypePaternity, MaxDays: decimal.NewFromInt(5), AccrualRate: decimal.NewFromInt(5),
			AccrualFrequency: leave.FrequencyAnnual, RequiresApproval: true, ApprovalLevels: 1,
		},
		{
			LeaveType: leave.TypeCompassionate, MaxDays: decimal.NewFromInt(3), AccrualRate: decimal.NewFromInt(3),
			AccrualFrequency: leave.FrequencyAnnual, RequiresApproval: true, ApprovalLevels: 1,
		},
		{
			LeaveType: leave.TypeStudy, MaxDays: decimal.NewFromInt(10), AccrualRate: decimal.RequireFromString("2.5"),
			AccrualFrequency: leave.FrequencyQuarterly, CarryoverAllowed: true, MaxCarryover: decimal.NewFromInt(5),
			RequiresApproval: true, ApprovalLevels: 3,
		},
	}
}

// Seed installs each default policy whose leave type has no active policy yet.
func Seed(ctx context.Context, svc *leave.Service) error {
	for _, p := range DefaultPolicies() {
		_, err := svc.ActivePolicy(ctx, p.LeaveType)
		if err == nil {
			continue
		}
		if !errors.Is(err, leave.ErrNotFound) {
			return err
		}
		if _, err := svc.CreatePolicy(ctx, seedActor, p); err != nil {
			return fmt.Errorf("seed %s policy: %w", p.LeaveType, err)
		}
		slog.Info("seeded leave policy", "leaveType", p.LeaveType)
	}
	return nil
}
