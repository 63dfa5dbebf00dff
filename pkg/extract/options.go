package extract

import (
	"time"

	"github.com/chatsync/b2csync/pkg/config"
)

// DateRange is an explicit, caller-supplied window (spec §4.4: "custom
// requires dateRange{startDate,endDate}").
type DateRange struct {
	From time.Time
	To   time.Time
}

// ContactFilter narrows a contacts Extract run (spec §6:
// "contactFilter{mobile?,upstreamId?}: persisted in extract metadata for
// later filtering").
type ContactFilter struct {
	Mobile     *string
	UpstreamID *string
}

// Options configures one Extract run (spec §4.4 inputs).
type Options struct {
	BatchSize       int
	FullSync        bool
	DateRange       *DateRange
	TimeRangePreset config.TimeRangePreset
	MaxPages        int
	ContactFilter   *ContactFilter
}
