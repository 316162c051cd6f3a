package period

import (
	"errors"
	"testing"
	"time"

	"github.com/ormeda/labdesk/internal/apperr"
)

// A fixed reference instant: Wednesday 2026-03-18 15:04:05 UTC.
var refNow = time.Date(2026, 3, 18, 15, 4, 5, 0, time.UTC)

func TestResolve(t *testing.T) {
	tests := []struct {
		filter    Filter
		wantStart time.Time
		wantEnd   time.Time
	}{
		{FilterToday,
			time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC)},
		{FilterYesterday,
			time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)},
		{FilterLast7Days,
			time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC)},
		{FilterThisMonth,
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{FilterLastMonth,
			time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{FilterThisYear,
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
		{FilterLastYear,
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			r, err := Resolve(tt.filter, refNow)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if !r.Start.Equal(tt.wantStart) || !r.End.Equal(tt.wantEnd) {
				t.Errorf("Resolve() = [%v, %v), want [%v, %v)", r.Start, r.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestResolve_All(t *testing.T) {
	r, err := Resolve(FilterAll, refNow)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !r.Start.IsZero() || !r.End.IsZero() {
		t.Errorf("Resolve(all) should be an open range, got [%v, %v)", r.Start, r.End)
	}
}

func TestResolve_Unknown(t *testing.T) {
	_, err := Resolve(Filter("last-century"), refNow)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("Resolve() error = %v, want validation error", err)
	}
}

func TestResolve_CustomWithoutBounds(t *testing.T) {
	_, err := Resolve(FilterCustom, refNow)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("Resolve(custom) error = %v, want validation error", err)
	}
}

func TestResolveCustom(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	r, err := ResolveCustom(start, end)
	if err != nil {
		t.Fatalf("ResolveCustom() error = %v", err)
	}
	if !r.Start.Equal(start) || !r.End.Equal(end) {
		t.Errorf("ResolveCustom() = [%v, %v)", r.Start, r.End)
	}

	if _, err := ResolveCustom(end, start); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("ResolveCustom(end, start) error = %v, want validation error", err)
	}

	// start == end is a valid, empty range
	if _, err := ResolveCustom(start, start); err != nil {
		t.Errorf("ResolveCustom(start, start) error = %v, want nil", err)
	}
}

func TestRange_IsHalfOpen(t *testing.T) {
	r, _ := Resolve(FilterToday, refNow)
	if r.Contains(r.End) {
		t.Error("range must not contain its end bound")
	}
	if !r.Contains(r.Start) {
		t.Error("range must contain its start bound")
	}
}
