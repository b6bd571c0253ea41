package leave

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func annualPolicy() Policy {
	six := 6
	return Policy{
		LeaveType:          TypeAnnual,
		MaxDays:            dec("30"),
		AccrualRate:        dec("2.5"),
		AccrualFrequency:   FrequencyMonthly,
		CarryoverAllowed:   true,
		MaxCarryover:       dec("5"),
		ExpiresAfterMonths: &six,
		ApprovalLevels:     2,
		Active:             true,
	}
}

func assertReconciles(t *testing.T, plan accrualPlan) {
	t.Helper()
	if !plan.record.Reconciles() {
		t.Fatalf("record does not reconcile: before %s accrued %s expired %s after %s",
			plan.record.DaysBefore, plan.record.DaysAccrued, plan.record.ExpiredDays, plan.record.DaysAfter)
	}
	if !plan.balance.Amount(plan.record.LeaveType).Equal(plan.record.DaysAfter) {
		t.Fatalf("balance %s does not match record %s", plan.balance.Amount(plan.record.LeaveType), plan.record.DaysAfter)
	}
}

func TestPlanAccrualProRataFirstRun(t *testing.T) {
	bal := Balance{StaffID: "S1", CreatedAt: day(2025, time.April, 16)}

	plan := planAccrual(annualPolicy(), bal, TypeAnnual, nil, day(2025, time.June, 15), SystemActor)
	if plan.skipReason != "" {
		t.Fatalf("unexpected skip: %s", plan.skipReason)
	}
	assertReconciles(t, plan)
	// Half of April plus May and June.
	if !plan.record.DaysAccrued.Equal(dec("6.25")) {
		t.Fatalf("expected 6.25 days accrued, got %s", plan.record.DaysAccrued)
	}
	if plan.record.ProRataFactor == nil || !plan.record.ProRataFactor.Equal(dec("0.5")) {
		t.Fatalf("expected pro-rata factor 0.5, got %v", plan.record.ProRataFactor)
	}
	if plan.record.AccrualPeriod != "2025-06" {
		t.Fatalf("expected period 2025-06, got %s", plan.record.AccrualPeriod)
	}
	if plan.balance.LastAccrualDate == nil || !plan.balance.LastAccrualDate.Equal(day(2025, time.June, 15)) {
		t.Fatalf("expected last accrual date to advance, got %v", plan.balance.LastAccrualDate)
	}
	if len(plan.movements) != 1 || plan.movements[0].Kind != MovementAccrual {
		t.Fatalf("expected one accrual movement, got %+v", plan.movements)
	}
}

func TestPlanAccrualFullFirstPeriodHasNoFactor(t *testing.T) {
	bal := Balance{StaffID: "S1", CreatedAt: day(2025, time.March, 1)}

	plan := planAccrual(annualPolicy(), bal, TypeAnnual, nil, day(2025, time.March, 20), SystemActor)
	if plan.record.ProRataFactor != nil {
		t.Fatalf("expected no pro-rata factor, got %s", plan.record.ProRataFactor)
	}
	if !plan.record.DaysAccrued.Equal(dec("2.5")) {
		t.Fatalf("expected 2.5, got %s", plan.record.DaysAccrued)
	}
}

func TestPlanAccrualSkipsWithinSamePeriod(t *testing.T) {
	bal := Balance{StaffID: "S1", Annual: dec("5"), CreatedAt: day(2025, time.January, 1)}
	last := &AccrualRecord{AccrualDate: day(2025, time.June, 15)}

	plan := planAccrual(annualPolicy(), bal, TypeAnnual, last, day(2025, time.June, 30), SystemActor)
	if plan.skipReason != SkipNoElapsedPeriod {
		t.Fatalf("expected skip, got %+v", plan.record)
	}

	plan = planAccrual(annualPolicy(), bal, TypeAnnual, last, day(2025, time.June, 1), SystemActor)
	if plan.skipReason != SkipNoElapsedPeriod {
		t.Fatal("expected skip for an as-of date before the last run")
	}

	plan = planAccrual(annualPolicy(), bal, TypeAnnual, last, day(2025, time.July, 1), SystemActor)
	if plan.skipReason != "" || !plan.record.DaysAccrued.Equal(dec("2.5")) {
		t.Fatalf("expected one period accrued, got %+v skip=%q", plan.record, plan.skipReason)
	}
	assertReconciles(t, plan)
}

func TestPlanAccrualYearBoundaryCapsCarryover(t *testing.T) {
	bal := Balance{StaffID: "S1", Annual: dec("12"), CreatedAt: day(2025, time.January, 1)}
	last := &AccrualRecord{AccrualDate: day(2025, time.December, 1)}

	plan := planAccrual(annualPolicy(), bal, TypeAnnual, last, day(2026, time.January, 1), SystemActor)
	assertReconciles(t, plan)

	if !plan.record.ExpiredDays.Equal(dec("7")) {
		t.Fatalf("expected 7 days forfeited at year end, got %s", plan.record.ExpiredDays)
	}
	if !plan.record.DaysAccrued.Equal(dec("2.5")) {
		t.Fatalf("expected 2.5 accrued after the boundary, got %s", plan.record.DaysAccrued)
	}
	if !plan.record.DaysAfter.Equal(dec("7.5")) {
		t.Fatalf("expected 7.5 after, got %s", plan.record.DaysAfter)
	}
	cf, exp := plan.balance.CarryForward(TypeAnnual)
	if !cf.Equal(dec("5")) || exp == nil || !exp.Equal(day(2026, time.July, 1)) {
		t.Fatalf("expected 5 carried until 2026-07-01, got %s %v", cf, exp)
	}
	if len(plan.movements) != 2 || plan.movements[1].Kind != MovementExpiry {
		t.Fatalf("expected accrual and expiry movements, got %+v", plan.movements)
	}
}

func TestPlanAccrualExpiresCarryForward(t *testing.T) {
	expires := day(2026, time.July, 1)
	bal := Balance{
		StaffID:            "S1",
		Annual:             dec("8"),
		AnnualCarryForward: dec("5"),
		AnnualExpiresAt:    &expires,
		CreatedAt:          day(2025, time.January, 1),
	}
	last := &AccrualRecord{AccrualDate: day(2026, time.June, 1)}

	plan := planAccrual(annualPolicy(), bal, TypeAnnual, last, day(2026, time.July, 1), SystemActor)
	assertReconciles(t, plan)

	if !plan.record.ExpiredDays.Equal(dec("5")) || !plan.record.DaysAfter.Equal(dec("5.5")) {
		t.Fatalf("expected 5 expired and 5.5 after, got %s and %s", plan.record.ExpiredDays, plan.record.DaysAfter)
	}
	cf, exp := plan.balance.CarryForward(TypeAnnual)
	if !cf.IsZero() || exp != nil {
		t.Fatalf("expected carry-forward cleared, got %s %v", cf, exp)
	}
}

func TestPlanAccrualRespectsCeiling(t *testing.T) {
	bal := Balance{StaffID: "S1", Annual: dec("29"), CreatedAt: day(2025, time.January, 1)}
	last := &AccrualRecord{AccrualDate: day(2025, time.May, 1)}

	plan := planAccrual(annualPolicy(), bal, TypeAnnual, last, day(2025, time.June, 1), SystemActor)
	assertReconciles(t, plan)
	if !plan.record.DaysAfter.Equal(dec("30")) || !plan.record.DaysAccrued.Equal(dec("1")) {
		t.Fatalf("expected balance capped at 30 with 1 accrued, got %s and %s", plan.record.DaysAfter, plan.record.DaysAccrued)
	}

	full := Balance{StaffID: "S1", Annual: dec("30"), CreatedAt: day(2025, time.January, 1)}
	plan = planAccrual(annualPolicy(), full, TypeAnnual, last, day(2025, time.June, 1), SystemActor)
	assertReconciles(t, plan)
	if !plan.record.DaysAccrued.IsZero() || len(plan.movements) != 0 {
		t.Fatalf("expected nothing accrued at the ceiling, got %s", plan.record.DaysAccrued)
	}
}

func TestPlanAccrualQuarterly(t *testing.T) {
	p := Policy{
		LeaveType:        TypeStudy,
		MaxDays:          dec("10"),
		AccrualRate:      dec("2.5"),
		AccrualFrequency: FrequencyQuarterly,
		ApprovalLevels:   3,
	}
	bal := Balance{StaffID: "S1", CreatedAt: day(2025, time.January, 1)}
	last := &AccrualRecord{AccrualDate: day(2025, time.January, 1)}

	plan := planAccrual(p, bal, TypeStudy, last, day(2025, time.August, 19), SystemActor)
	assertReconciles(t, plan)
	if !plan.record.DaysAccrued.Equal(dec("5")) || plan.record.AccrualPeriod != "2025-Q3" {
		t.Fatalf("expected two quarters in 2025-Q3, got %s %s", plan.record.DaysAccrued, plan.record.AccrualPeriod)
	}
}

func TestPlanAccrualAnchorsOnBalanceLastAccrualDate(t *testing.T) {
	marked := day(2025, time.June, 1)
	bal := Balance{StaffID: "S1", Annual: dec("10"), LastAccrualDate: &marked, AccrualPeriod: "2025-06", CreatedAt: day(2025, time.January, 1)}

	plan := planAccrual(annualPolicy(), bal, TypeAnnual, nil, day(2025, time.June, 15), SystemActor)
	if plan.skipReason != SkipNoElapsedPeriod {
		t.Fatalf("expected skip within the marked period, got %+v", plan.record)
	}

	plan = planAccrual(annualPolicy(), bal, TypeAnnual, nil, day(2025, time.May, 20), SystemActor)
	if plan.skipReason != SkipNoElapsedPeriod {
		t.Fatal("expected skip for an as-of date before the marked date")
	}

	plan = planAccrual(annualPolicy(), bal, TypeAnnual, nil, day(2025, time.July, 15), SystemActor)
	if plan.skipReason != "" {
		t.Fatalf("unexpected skip: %s", plan.skipReason)
	}
	assertReconciles(t, plan)
	if !plan.record.DaysAccrued.Equal(dec("2.5")) || !plan.record.DaysAfter.Equal(dec("12.5")) {
		t.Fatalf("expected one period on top of 10, got %s accrued and %s after", plan.record.DaysAccrued, plan.record.DaysAfter)
	}
	if plan.record.ProRataFactor != nil {
		t.Fatalf("expected no pro-rata factor, got %s", plan.record.ProRataFactor)
	}
}

func TestPlanAccrualHistoryTakesPrecedenceOverBalanceMarker(t *testing.T) {
	marked := day(2025, time.March, 1)
	bal := Balance{StaffID: "S1", Annual: dec("10"), LastAccrualDate: &marked, CreatedAt: day(2025, time.January, 1)}
	last := &AccrualRecord{AccrualDate: day(2025, time.May, 1)}

	plan := planAccrual(annualPolicy(), bal, TypeAnnual, last, day(2025, time.June, 1), SystemActor)
	assertReconciles(t, plan)
	if !plan.record.DaysAccrued.Equal(dec("2.5")) {
		t.Fatalf("expected one period since the last history record, got %s", plan.record.DaysAccrued)
	}
}

func TestPlanAccrualYearBoundaryWithoutCarryover(t *testing.T) {
	p := annualPolicy()
	p.CarryoverAllowed = false
	bal := Balance{StaffID: "S1", Annual: dec("12"), CreatedAt: day(2025, time.January, 1)}
	last := &AccrualRecord{AccrualDate: day(2025, time.December, 1)}

	plan := planAccrual(p, bal, TypeAnnual, last, day(2026, time.January, 1), SystemActor)
	assertReconciles(t, plan)

	if !plan.record.ExpiredDays.Equal(dec("12")) {
		t.Fatalf("expected the whole prior-year balance to expire, got %s", plan.record.ExpiredDays)
	}
	if !plan.record.CarryForwardDays.IsZero() {
		t.Fatalf("expected nothing carried forward, got %s", plan.record.CarryForwardDays)
	}
	if !plan.record.DaysAccrued.Equal(dec("2.5")) || !plan.record.DaysAfter.Equal(dec("2.5")) {
		t.Fatalf("expected only January's accrual left, got %s accrued and %s after", plan.record.DaysAccrued, plan.record.DaysAfter)
	}
	cf, exp := plan.balance.CarryForward(TypeAnnual)
	if !cf.IsZero() || exp != nil {
		t.Fatalf("expected no carry-forward on the balance, got %s %v", cf, exp)
	}
}

func TestPlanAccrualYearBoundaryUntrackedType(t *testing.T) {
	p := Policy{
		LeaveType:        TypeMaternity,
		MaxDays:          dec("90"),
		AccrualRate:      dec("7.5"),
		AccrualFrequency: FrequencyMonthly,
		CarryoverAllowed: true,
		MaxCarryover:     dec("10"),
		ApprovalLevels:   2,
		Active:           true,
	}
	bal := Balance{StaffID: "S1", Maternity: dec("20"), CreatedAt: day(2025, time.January, 1)}
	last := &AccrualRecord{AccrualDate: day(2025, time.November, 1)}

	plan := planAccrual(p, bal, TypeMaternity, last, day(2026, time.February, 15), SystemActor)
	assertReconciles(t, plan)

	// December lands before the cap, January and February after it.
	if !plan.record.ExpiredDays.Equal(dec("17.5")) {
		t.Fatalf("expected 17.5 over the cap to expire, got %s", plan.record.ExpiredDays)
	}
	if !plan.record.DaysAccrued.Equal(dec("22.5")) || !plan.record.DaysAfter.Equal(dec("25")) {
		t.Fatalf("expected 22.5 accrued and 25 after, got %s and %s", plan.record.DaysAccrued, plan.record.DaysAfter)
	}
	if !plan.record.CarryForwardDays.IsZero() {
		t.Fatalf("expected no carry-forward for an untracked type, got %s", plan.record.CarryForwardDays)
	}
	if plan.record.AccrualPeriod != "2026-02" {
		t.Fatalf("expected period 2026-02, got %s", plan.record.AccrualPeriod)
	}
}

func TestPlanAccrualMultiYearGapCapsOnce(t *testing.T) {
	bal := Balance{StaffID: "S1", Annual: dec("4"), CreatedAt: day(2024, time.January, 1)}
	last := &AccrualRecord{AccrualDate: day(2024, time.November, 1)}

	plan := planAccrual(annualPolicy(), bal, TypeAnnual, last, day(2026, time.February, 1), SystemActor)
	assertReconciles(t, plan)

	// Thirteen periods (Dec 2024 through Dec 2025) land before the cap, two after.
	if !plan.record.DaysAccrued.Equal(dec("37.5")) {
		t.Fatalf("expected 37.5 accrued across the gap, got %s", plan.record.DaysAccrued)
	}
	if !plan.record.ExpiredDays.Equal(dec("31.5")) {
		t.Fatalf("expected 31.5 forfeited by a single cap, got %s", plan.record.ExpiredDays)
	}
	if !plan.record.CarryForwardDays.Equal(dec("5")) || !plan.record.DaysAfter.Equal(dec("10")) {
		t.Fatalf("expected 5 carried and 10 after, got %s and %s", plan.record.CarryForwardDays, plan.record.DaysAfter)
	}
	cf, exp := plan.balance.CarryForward(TypeAnnual)
	if !cf.Equal(dec("5")) || exp == nil || !exp.Equal(day(2026, time.July, 1)) {
		t.Fatalf("expected 5 carried until 2026-07-01, got %s %v", cf, exp)
	}
	if len(plan.movements) != 2 || !plan.movements[1].Days.Equal(dec("31.5")) {
		t.Fatalf("expected accrual then one expiry movement, got %+v", plan.movements)
	}
}
