package extract

import (
	"fmt"
	"time"

	"github.com/chatsync/b2csync/pkg/config"
)

// Window is the resolved date window for one Extract run: Query* is the
// day-granularity range sent to the upstream (widened by one day on each
// side per spec §9's resolution of the day-granularity open question);
// Precise* is the exact range the Extract Engine filters against in memory
// so a sub-day resumption window never silently drops records.
type Window struct {
	QueryFrom, QueryTo     *time.Time
	PreciseFrom, PreciseTo *time.Time
}

// Unbounded reports whether this window disables date filtering entirely
// (a full sync).
func (w Window) Unbounded() bool {
	return w.PreciseFrom == nil && w.PreciseTo == nil
}

// ResolveWindow determines the date window for a run (spec §4.4 step 1):
// preset takes precedence over an explicit range; full means no window;
// otherwise, absent both, fall back to the entity's last sync bookmark.
func ResolveWindow(opts Options, lastSync *time.Time, now time.Time) (Window, error) {
	if opts.TimeRangePreset == config.TimeRangeFull || (opts.TimeRangePreset == "" && opts.FullSync) {
		return Window{}, nil
	}

	var from, to *time.Time

	switch {
	case opts.TimeRangePreset == config.TimeRangeCustom:
		if opts.DateRange == nil {
			return Window{}, fmt.Errorf("extract: timeRangePreset=custom requires an explicit dateRange")
		}
		from, to = &opts.DateRange.From, &opts.DateRange.To

	case opts.TimeRangePreset != "":
		days, err := presetDays(opts.TimeRangePreset)
		if err != nil {
			return Window{}, err
		}
		f := now.AddDate(0, 0, -days)
		from, to = &f, &now

	case opts.DateRange != nil:
		from, to = &opts.DateRange.From, &opts.DateRange.To

	default:
		from = lastSync
	}

	qFrom, qTo := widenByOneDay(from, to)
	return Window{QueryFrom: qFrom, QueryTo: qTo, PreciseFrom: from, PreciseTo: to}, nil
}

func presetDays(p config.TimeRangePreset) (int, error) {
	switch p {
	case config.TimeRangeLast1Day:
		return 1, nil
	case config.TimeRangeLast7Days:
		return 7, nil
	case config.TimeRangeLast30Days:
		return 30, nil
	case config.TimeRangeLast90Days:
		return 90, nil
	default:
		return 0, fmt.Errorf("extract: unsupported timeRangePreset %q", p)
	}
}

func widenByOneDay(from, to *time.Time) (*time.Time, *time.Time) {
	var qFrom, qTo *time.Time
	if from != nil {
		f := from.AddDate(0, 0, -1)
		qFrom = &f
	}
	if to != nil {
		t := to.AddDate(0, 0, 1)
		qTo = &t
	}
	return qFrom, qTo
}

// InPreciseWindow reports whether a record's timestamp (preferring
// updatedAt, falling back to createdAt) falls within the window's precise
// bounds. A record with neither timestamp is kept — there is nothing to
// filter it on.
func InPreciseWindow(w Window, updatedAt, createdAt *time.Time) bool {
	if w.Unbounded() {
		return true
	}
	t := updatedAt
	if t == nil {
		t = createdAt
	}
	if t == nil {
		return true
	}
	if w.PreciseFrom != nil && t.Before(*w.PreciseFrom) {
		return false
	}
	if w.PreciseTo != nil && t.After(*w.PreciseTo) {
		return false
	}
	return true
}
