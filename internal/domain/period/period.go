// Package period resolves named period filters into concrete UTC date ranges.
package period

import (
	"time"

	"github.com/ormeda/labdesk/internal/apperr"
	"github.com/ormeda/labdesk/internal/domain/entity"
)

// Filter is a named date range used to scope a statistics query.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterToday     Filter = "today"
	FilterYesterday Filter = "yesterday"
	FilterLast7Days Filter = "last-7-days"
	FilterThisMonth Filter = "this-month"
	FilterLastMonth Filter = "last-month"
	FilterThisYear  Filter = "this-year"
	FilterLastYear  Filter = "last-year"
	FilterCustom    Filter = "custom"
)

var validFilters = map[Filter]bool{
	FilterAll:       true,
	FilterToday:     true,
	FilterYesterday: true,
	FilterLast7Days: true,
	FilterThisMonth: true,
	FilterLastMonth: true,
	FilterThisYear:  true,
	FilterLastYear:  true,
	FilterCustom:    true,
}

// IsValid returns true if the filter is a known period name.
func (f Filter) IsValid() bool { return validFilters[f] }

func (f Filter) String() string { return string(f) }

// Resolve converts a named filter into a half-open [start, end) range in UTC.
// FilterCustom must go through ResolveCustom instead.
func Resolve(f Filter, now time.Time) (entity.DateRange, error) {
	now = now.UTC()
	day := startOfDay(now)

	switch f {
	case FilterAll:
		return entity.DateRange{}, nil
	case FilterToday:
		return entity.DateRange{Start: day, End: day.AddDate(0, 0, 1)}, nil
	case FilterYesterday:
		return entity.DateRange{Start: day.AddDate(0, 0, -1), End: day}, nil
	case FilterLast7Days:
		return entity.DateRange{Start: day.AddDate(0, 0, -6), End: day.AddDate(0, 0, 1)}, nil
	case FilterThisMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return entity.DateRange{Start: start, End: start.AddDate(0, 1, 0)}, nil
	case FilterLastMonth:
		end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return entity.DateRange{Start: end.AddDate(0, -1, 0), End: end}, nil
	case FilterThisYear:
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return entity.DateRange{Start: start, End: start.AddDate(1, 0, 0)}, nil
	case FilterLastYear:
		end := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return entity.DateRange{Start: end.AddDate(-1, 0, 0), End: end}, nil
	case FilterCustom:
		return entity.DateRange{}, apperr.NewValidation("period", "custom period requires explicit start and end")
	default:
		return entity.DateRange{}, apperr.NewValidation("period", "unknown period filter: "+string(f))
	}
}

// ResolveCustom builds a custom range. Start must not be after end.
func ResolveCustom(start, end time.Time) (entity.DateRange, error) {
	if start.After(end) {
		return entity.DateRange{}, apperr.NewValidation("period", "start must not be after end")
	}
	return entity.DateRange{Start: start.UTC(), End: end.UTC()}, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
