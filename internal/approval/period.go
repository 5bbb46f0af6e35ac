package approval

import (
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/lingkungan/internal"
)

type PeriodMode int

const (
	PeriodAll PeriodMode = iota
	PeriodYear
	PeriodMonthAnyYear
	PeriodExact
)

const periodWildcard = "all"

// Period is a parsed "{year|all}-{month|all}" token.
type Period struct {
	Mode  PeriodMode
	Year  int
	Month time.Month
}

// DateRange is the half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// ParsePeriod parses tokens such as "2024-3", "2024-all", "all-6" and
// "all-all". An empty token means "all-all".
func ParsePeriod(token string) (Period, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Period{Mode: PeriodAll}, nil
	}

	yearPart, monthPart, ok := strings.Cut(token, "-")
	if !ok {
		return Period{}, internal.ErrInvalidPeriod
	}

	var p Period
	anyYear := strings.EqualFold(yearPart, periodWildcard)
	anyMonth := strings.EqualFold(monthPart, periodWildcard)

	if !anyYear {
		y, err := strconv.Atoi(yearPart)
		if err != nil || y < 1 || y > 9999 {
			return Period{}, internal.ErrInvalidPeriod
		}
		p.Year = y
	}
	if !anyMonth {
		m, err := strconv.Atoi(monthPart)
		if err != nil || m < 1 || m > 12 {
			return Period{}, internal.ErrInvalidPeriod
		}
		p.Month = time.Month(m)
	}

	switch {
	case anyYear && anyMonth:
		p.Mode = PeriodAll
	case anyMonth:
		p.Mode = PeriodYear
	case anyYear:
		p.Mode = PeriodMonthAnyYear
	default:
		p.Mode = PeriodExact
	}
	return p, nil
}

func (p Period) String() string {
	year, month := periodWildcard, periodWildcard
	if p.Mode == PeriodExact || p.Mode == PeriodYear {
		year = strconv.Itoa(p.Year)
	}
	if p.Mode == PeriodExact || p.Mode == PeriodMonthAnyYear {
		month = strconv.Itoa(int(p.Month))
	}
	return year + "-" + month
}

// NeedsYearBounds reports whether Ranges depends on the stored data's year span.
func (p Period) NeedsYearBounds() bool {
	return p.Mode == PeriodMonthAnyYear
}

// Ranges expands the period into date ranges in loc. For PeriodAll it
// returns nil, meaning no restriction. For PeriodMonthAnyYear it yields one
// range per year in [minYear, maxYear]; an empty window yields an empty,
// non-nil slice so that nothing matches.
func (p Period) Ranges(loc *time.Location, minYear, maxYear int) []DateRange {
	if loc == nil {
		loc = time.UTC
	}
	switch p.Mode {
	case PeriodExact:
		return []DateRange{monthRange(p.Year, p.Month, loc)}
	case PeriodYear:
		start := time.Date(p.Year, time.January, 1, 0, 0, 0, 0, loc)
		return []DateRange{{Start: start, End: start.AddDate(1, 0, 0)}}
	case PeriodMonthAnyYear:
		ranges := []DateRange{}
		if minYear <= 0 || maxYear < minYear {
			return ranges
		}
		for y := minYear; y <= maxYear; y++ {
			ranges = append(ranges, monthRange(y, p.Month, loc))
		}
		return ranges
	}
	return nil
}

func monthRange(year int, month time.Month, loc *time.Location) DateRange {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return DateRange{Start: start, End: start.AddDate(0, 1, 0)}
}

// CurrentMonth is the calendar month containing now, in loc.
func CurrentMonth(now time.Time, loc *time.Location) DateRange {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	return monthRange(now.Year(), now.Month(), loc)
}
