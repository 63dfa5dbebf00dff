package sla

import (
	"fmt"
	"time"

	"github.com/chatsync/b2csync/pkg/config"
)

// officeHours resolves an OfficeHoursConfig into a form usable for
// business-hours arithmetic: a parsed location, parsed start/end
// time-of-day, a working-day set, and a holiday calendar.
type officeHours struct {
	loc         *time.Location
	startHour   int
	startMinute int
	endHour     int
	endMinute   int
	workingDays map[int]bool // 1=Monday .. 7=Sunday
	holidays    HolidayCalendar
}

func newOfficeHours(cfg *config.OfficeHoursConfig) (*officeHours, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid office hours timezone %q: %w", cfg.Timezone, err)
	}
	sh, sm, err := parseHHMM(cfg.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid office hours start %q: %w", cfg.Start, err)
	}
	eh, em, err := parseHHMM(cfg.End)
	if err != nil {
		return nil, fmt.Errorf("invalid office hours end %q: %w", cfg.End, err)
	}

	workingDays := make(map[int]bool, len(cfg.WorkingDays))
	for _, d := range cfg.WorkingDays {
		workingDays[d] = true
	}

	return &officeHours{
		loc:         loc,
		startHour:   sh,
		startMinute: sm,
		endHour:     eh,
		endMinute:   em,
		workingDays: workingDays,
		holidays:    NewCalendar(cfg.Holidays),
	}, nil
}

func parseHHMM(s string) (hour, minute int, err error) {
	_, err = fmt.Sscanf(s, "%d:%d", &hour, &minute)
	if err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("out of range")
	}
	return hour, minute, nil
}

// isoWeekday converts Go's time.Weekday (Sunday=0) to the spec's 1..7
// Monday-first convention (spec §4.6: "workingDays⊆{1..7}").
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func (o *officeHours) isWorkingDay(localDate time.Time) bool {
	if !o.workingDays[isoWeekday(localDate)] {
		return false
	}
	return !o.holidays.IsHoliday(localDate)
}

func (o *officeHours) windowFor(localDate time.Time) (start, end time.Time) {
	y, m, d := localDate.Date()
	start = time.Date(y, m, d, o.startHour, o.startMinute, 0, 0, o.loc)
	end = time.Date(y, m, d, o.endHour, o.endMinute, 0, 0, o.loc)
	return start, end
}

// businessSeconds returns the number of seconds between from and to that
// fall within office hours on working, non-holiday days (spec §4.6:
// "Business-hours variants ... subtract time outside the office-hours
// window on each intervening day and skip days that are weekends ... or
// holidays"). Returns 0 if to is before from.
func (o *officeHours) businessSeconds(from, to time.Time) float64 {
	if !to.After(from) {
		return 0
	}
	from = from.In(o.loc)
	to = to.In(o.loc)

	var total float64
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, o.loc)
	for !day.After(to) {
		if o.isWorkingDay(day) {
			winStart, winEnd := o.windowFor(day)
			segStart := maxTime(winStart, from)
			segEnd := minTime(winEnd, to)
			if segEnd.After(segStart) {
				total += segEnd.Sub(segStart).Seconds()
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return total
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
