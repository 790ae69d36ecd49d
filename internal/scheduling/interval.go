package scheduling

import "time"

// Interval is a half-open [Start, End) time range. Two intervals that
// merely touch at an endpoint do not overlap, so back-to-back
// appointments are always legal.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Pad widens the interval symmetrically by d on both sides. Used to
// apply buffer time around occupied intervals; never applied to
// availability windows.
func (iv Interval) Pad(d time.Duration) Interval {
	if d <= 0 {
		return iv
	}
	return Interval{Start: iv.Start.Add(-d), End: iv.End.Add(d)}
}

func overlapsAny(iv Interval, blocked []Interval) bool {
	for _, b := range blocked {
		if iv.Overlaps(b) {
			return true
		}
	}
	return false
}
