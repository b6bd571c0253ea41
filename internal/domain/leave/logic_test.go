package leave

import (
	"errors"
	"testing"
	"time"
)

func TestCalculateDays(t *testing.T) {
	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	days, err := CalculateDays(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 1 {
		t.Fatalf("expected 1 day, got %v", days)
	}

	end = time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	days, err = CalculateDays(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 3 {
		t.Fatalf("expected 3 days, got %v", days)
	}
}

func TestCalculateDaysIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2025, 3, 3, 17, 30, 0, 0, time.UTC)
	end := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)

	days, err := CalculateDays(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 2 {
		t.Fatalf("expected 2 days, got %v", days)
	}
}

func TestCalculateDaysAcrossMonthsAndLeapDay(t *testing.T) {
	cases := []struct {
		start, end time.Time
		want       int
	}{
		{time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 3},
		{time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 2},
		{time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), 5},
	}
	for _, tc := range cases {
		got, err := CalculateDays(tc.start, tc.end)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tc.want {
			t.Fatalf("%s..%s: expected %d, got %d", tc.start.Format("2006-01-02"), tc.end.Format("2006-01-02"), tc.want, got)
		}
	}
}

func TestCalculateDaysInvalid(t *testing.T) {
	start := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC)

	_, err := CalculateDays(start, end)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestPeriodStartAndLabel(t *testing.T) {
	day := time.Date(2025, 8, 19, 0, 0, 0, 0, time.UTC)

	if got := periodStart(day, FrequencyMonthly); !got.Equal(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("monthly start: got %v", got)
	}
	if got := periodStart(day, FrequencyQuarterly); !got.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("quarterly start: got %v", got)
	}
	if got := periodStart(day, FrequencyAnnual); !got.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("annual start: got %v", got)
	}
	if got := periodLabel(day, FrequencyQuarterly); got != "2025-Q3" {
		t.Fatalf("quarterly label: got %q", got)
	}
	if got := periodLabel(day, FrequencyMonthly); got != "2025-08" {
		t.Fatalf("monthly label: got %q", got)
	}
}
