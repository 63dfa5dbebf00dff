package sla

import (
	"time"

	"github.com/chatsync/b2csync/pkg/config"
)

// HolidayCalendar answers whether a given local calendar date is a holiday
// (spec §4.6: "Holidays come from an injected HolidayCalendar that answers
// isHoliday(localDate); both recurring (month-day) and non-recurring
// entries are supported").
type HolidayCalendar interface {
	IsHoliday(localDate time.Time) bool
}

// calendar is the HolidayCalendar built from an OfficeHoursConfig's holiday
// list. Recurring holidays match on month+day every year; non-recurring
// ones also require the year to match.
type calendar struct {
	recurring    map[[2]int]bool // [month, day] -> true
	nonRecurring map[[3]int]bool // [year, month, day] -> true
}

// NewCalendar builds a HolidayCalendar from configured holidays.
func NewCalendar(holidays []config.Holiday) HolidayCalendar {
	c := &calendar{
		recurring:    make(map[[2]int]bool),
		nonRecurring: make(map[[3]int]bool),
	}
	for _, h := range holidays {
		if h.Recurring {
			c.recurring[[2]int{h.Month, h.Day}] = true
		} else {
			c.nonRecurring[[3]int{h.Year, h.Month, h.Day}] = true
		}
	}
	return c
}

func (c *calendar) IsHoliday(localDate time.Time) bool {
	month, day := int(localDate.Month()), localDate.Day()
	if c.recurring[[2]int{month, day}] {
		return true
	}
	return c.nonRecurring[[3]int{localDate.Year(), month, day}]
}
