// Package sla computes wall-clock and business-hours SLA timings for a chat
// (spec §4.6): pickup time, first-response time, average response time,
// and resolution time, each with a wall-clock and a business-hours variant,
// plus per-metric and overall compliance flags.
package sla

import (
	"time"

	"github.com/chatsync/b2csync/pkg/config"
	"github.com/chatsync/b2csync/pkg/models"
)

// ChatTimestamps are the chat-level anchors the calculator needs (spec
// §4.6: "chatTimestamps{openedAt, pickedUpAt, responseAt, closedAt}").
type ChatTimestamps struct {
	OpenedAt   *time.Time
	PickedUpAt *time.Time
	ResponseAt *time.Time
	ClosedAt   *time.Time
}

// MessageTiming is the subset of a message the calculator needs for the
// average-response-time metric (spec §4.6: "ordered message sequence
// (incoming, timestamp)").
type MessageTiming struct {
	Incoming  bool
	Timestamp time.Time
}

// Calculator computes SLA timings using a resolved target set and a
// business-hours calendar, built once per run and reused across chats.
type Calculator struct {
	slaCfg *config.SLAConfig
	hours  *officeHours
}

// NewCalculator builds a Calculator from the pipeline's SLA and office-hours
// configuration. Returns an error if the office-hours timezone or HH:MM
// fields don't parse.
func NewCalculator(slaCfg *config.SLAConfig, officeHoursCfg *config.OfficeHoursConfig) (*Calculator, error) {
	hours, err := newOfficeHours(officeHoursCfg)
	if err != nil {
		return nil, err
	}
	return &Calculator{slaCfg: slaCfg, hours: hours}, nil
}

// Calculate derives models.SLATimings for one chat. provider and priority
// select which SLAOverride applies (spec §9).
func (c *Calculator) Calculate(ts ChatTimestamps, messages []MessageTiming, provider, priority string) models.SLATimings {
	targets := ResolveTargets(c.slaCfg, provider, priority)

	var out models.SLATimings

	out.TimeToPickupSeconds, out.TimeToPickupSecondsBH = c.interval(ts.OpenedAt, ts.PickedUpAt)
	out.PickupSLAMet = compliant(out.TimeToPickupSeconds, targets.PickupTargetSeconds)

	out.FirstResponseSeconds, out.FirstResponseSecondsBH = c.interval(ts.OpenedAt, ts.ResponseAt)
	out.FirstResponseSLAMet = compliant(out.FirstResponseSeconds, targets.FirstResponseTargetSeconds)

	avg, avgBH := c.averageResponse(messages)
	out.AvgResponseSeconds, out.AvgResponseSecondsBH = avg, avgBH
	out.AvgResponseSLAMet = compliant(out.AvgResponseSeconds, targets.AvgResponseTargetSeconds)

	out.ResolutionSeconds, out.ResolutionSecondsBH = c.interval(ts.OpenedAt, ts.ClosedAt)
	out.ResolutionSLAMet = compliant(out.ResolutionSeconds, targets.ResolutionTargetSeconds)

	out.OverallSLAMet = overall(out.PickupSLAMet, out.FirstResponseSLAMet, out.AvgResponseSLAMet, out.ResolutionSLAMet)

	return out
}

// interval returns the wall-clock and business-hours duration between from
// and to in seconds, or (nil, nil) if either anchor is missing or the
// interval is negative (spec §4.6: "Negative intervals (bad data) are
// treated as null").
func (c *Calculator) interval(from, to *time.Time) (*float64, *float64) {
	if from == nil || to == nil {
		return nil, nil
	}
	wall := to.Sub(*from).Seconds()
	if wall < 0 {
		return nil, nil
	}
	bh := c.hours.businessSeconds(*from, *to)
	return &wall, &bh
}

// averageResponse computes the mean wall-clock and business-hours gap over
// adjacent (customerMessage -> nextAgentMessage) pairs (spec §4.6:
// "avgResponseTime = mean over adjacent (customerMessage -> nextAgentMessage)
// pairs within the chat").
func (c *Calculator) averageResponse(messages []MessageTiming) (*float64, *float64) {
	var wallSum, bhSum float64
	var count int

	for i := 0; i < len(messages)-1; i++ {
		if !messages[i].Incoming {
			continue
		}
		for j := i + 1; j < len(messages); j++ {
			if messages[j].Incoming {
				break // another customer message arrived first; no agent reply to this one
			}
			gap := messages[j].Timestamp.Sub(messages[i].Timestamp).Seconds()
			if gap < 0 {
				break
			}
			wallSum += gap
			bhSum += c.hours.businessSeconds(messages[i].Timestamp, messages[j].Timestamp)
			count++
			break
		}
	}

	if count == 0 {
		return nil, nil
	}
	wall := wallSum / float64(count)
	bh := bhSum / float64(count)
	return &wall, &bh
}

func compliant(actual *float64, targetSeconds int) *bool {
	if actual == nil {
		return nil
	}
	met := *actual <= float64(targetSeconds)
	return &met
}

// overall is true iff every defined (non-nil) flag is true (spec §4.6:
// "overallSLA is true iff all defined (non-null) per-metric flags are
// true").
func overall(flags ...*bool) *bool {
	var anyDefined bool
	allTrue := true
	for _, f := range flags {
		if f == nil {
			continue
		}
		anyDefined = true
		if !*f {
			allTrue = false
		}
	}
	if !anyDefined {
		return nil
	}
	return &allTrue
}
