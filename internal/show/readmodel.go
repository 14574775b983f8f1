package show

import (
	"sort"
	"time"
)

// defaultDepartment buckets cues with no department on the cue sheet.
const defaultDepartment = "General"

// BuildCueSheet groups a show's cues by department. Cues without a
// department land in the "General" bucket. Pure function over a snapshot;
// the read path never goes through the command queue.
func BuildCueSheet(cues []Cue) *CueSheet {
	sorted := make([]Cue, len(cues))
	copy(sorted, cues)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SortOrder < sorted[j].SortOrder })

	byDept := make(map[string][]Cue)
	for _, c := range sorted {
		dept := c.Department
		if dept == "" {
			dept = defaultDepartment
		}
		byDept[dept] = append(byDept[dept], c)
	}

	return &CueSheet{
		TotalCues:    len(sorted),
		ByDepartment: byDept,
		Cues:         sorted,
	}
}

// BuildLiveStatus assembles the live read-model for a show: current status,
// the cue that most recently fired, the next actionable cue, and the clock.
//
// ElapsedSeconds counts from StartedAt to now, frozen at EndedAt once the
// show completes. Hold does not pause the clock; the show clock tracks wall
// time, not performance time.
func BuildLiveStatus(s *Show, cues []Cue, now time.Time) *LiveStatus {
	status := &LiveStatus{
		Status:     s.Status,
		StartedAt:  s.StartedAt,
		HeldReason: s.HeldReason,
	}

	if s.StartedAt != nil {
		end := now
		if s.EndedAt != nil {
			end = *s.EndedAt
		}
		if elapsed := int64(end.Sub(*s.StartedAt).Seconds()); elapsed > 0 {
			status.ElapsedSeconds = elapsed
		}
	}

	var current *Cue
	if s.CurrentCueID != nil {
		for i := range cues {
			if cues[i].ID == *s.CurrentCueID {
				current = cues[i].DeepCopy()
				break
			}
		}
	}
	status.CurrentCue = current

	after := 0
	if current != nil {
		after = current.SortOrder
	}
	status.NextCue = NextActionable(cues, after)

	return status
}

// NextActionable returns a copy of the cue with the smallest sort order
// strictly greater than after whose status is pending or standby, or nil.
func NextActionable(cues []Cue, after int) *Cue {
	var best *Cue
	for i := range cues {
		c := &cues[i]
		if c.SortOrder <= after {
			continue
		}
		if c.Status != CuePending && c.Status != CueStandby {
			continue
		}
		if best == nil || c.SortOrder < best.SortOrder {
			best = c
		}
	}
	return best.DeepCopy()
}
