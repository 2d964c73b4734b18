package availability

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps uses half-open semantics: touching intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && i.End.After(o.Start)
}

// MergeBusy combines busy sets from several sources into one sorted list with
// overlapping or adjacent intervals coalesced. Empty intervals are dropped.
func MergeBusy(sources ...[]Interval) []Interval {
	var all []Interval
	for _, src := range sources {
		for _, iv := range src {
			if !iv.End.After(iv.Start) {
				continue
			}
			all = append(all, iv)
		}
	}
	if len(all) == 0 {
		return nil
	}
	sort.Slice(all, func(a, b int) bool { return all[a].Start.Before(all[b].Start) })

	merged := []Interval{all[0]}
	for _, iv := range all[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}
