package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SlotConfig controls slot generation for the whole service, not per
// request. Step is the smallest granularity of offered start times;
// buffer widens blocked zones around occupied intervals and never
// widens availability windows.
type SlotConfig struct {
	StepMinutes   int
	BufferMinutes int
}

const DefaultStepMinutes = 15

func (c SlotConfig) withDefaults() SlotConfig {
	if c.StepMinutes <= 0 {
		c.StepMinutes = DefaultStepMinutes
	}
	if c.BufferMinutes < 0 {
		c.BufferMinutes = 0
	}
	return c
}

// SlotCalculator derives bookable start times by intersecting
// availability windows with the visit duration and subtracting ledger
// occupancy. Pure read path: results may go stale before booking, the
// ledger commit is what re-checks.
type SlotCalculator struct {
	windows AvailabilityStore
	ledger  AppointmentLedger
	cfg     SlotConfig
}

func NewSlotCalculator(windows AvailabilityStore, ledger AppointmentLedger, cfg SlotConfig) *SlotCalculator {
	return &SlotCalculator{
		windows: windows,
		ledger:  ledger,
		cfg:     cfg.withDefaults(),
	}
}

// AvailableSlots lists candidate start times for the doctor at the
// clinic on the given date, sorted ascending and deduplicated. Dates in
// the past still compute; filtering them is a caller concern.
func (c *SlotCalculator) AvailableSlots(ctx context.Context, doctorID, clinicID uuid.UUID, duration time.Duration, date time.Time) ([]time.Time, error) {
	windows, err := c.windows.WindowsFor(ctx, doctorID, clinicID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load availability windows: %w", err)
	}
	if len(windows) == 0 {
		return nil, nil
	}

	occupied, err := c.ledger.OccupiedIntervals(ctx, doctorID, clinicID, date)
	if err != nil {
		return nil, fmt.Errorf("load occupied intervals: %w", err)
	}

	buffer := time.Duration(c.cfg.BufferMinutes) * time.Minute
	blocked := make([]Interval, len(occupied))
	for i, iv := range occupied {
		blocked[i] = iv.Pad(buffer)
	}

	step := time.Duration(c.cfg.StepMinutes) * time.Minute

	var slots []time.Time
	for _, w := range windows {
		windowEnd := w.EndsAt.On(date)
		for cur := w.StartsAt.On(date); !cur.Add(duration).After(windowEnd); cur = cur.Add(step) {
			if overlapsAny(Interval{Start: cur, End: cur.Add(duration)}, blocked) {
				continue
			}
			slots = append(slots, cur)
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return dedupeTimes(slots), nil
}

// dedupeTimes removes consecutive duplicates from a sorted slice.
// Windows for the same day should not overlap, but slot listing stays
// correct if the administrative layer let one through.
func dedupeTimes(ts []time.Time) []time.Time {
	if len(ts) < 2 {
		return ts
	}
	out := ts[:1]
	for _, t := range ts[1:] {
		if !t.Equal(out[len(out)-1]) {
			out = append(out, t)
		}
	}
	return out
}
