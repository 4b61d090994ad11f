package availability

import (
	"errors"
	"sort"
)

var ErrInvalidRange = errors.New("end time must be after start time")

// Range is a half-open interval [Start, End) within one day.
type Range struct {
	Start Clock
	End   Clock
}

func NewRange(start, end string) (Range, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Range{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Range{}, err
	}
	if e <= s {
		return Range{}, ErrInvalidRange
	}
	return Range{Start: s, End: e}, nil
}

func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

func (r Range) Contains(c Clock) bool {
	return c >= r.Start && c < r.End
}

// Slots lays the grid over the range. A slot is kept only when its whole
// width fits before the range end.
func (r Range) Slots() []Clock {
	var out []Clock
	for s := r.Start; s.Add(SlotWidth) <= r.End; s = s.Add(SlotWidth) {
		out = append(out, s)
	}
	return out
}

// Day is everything known about one provider date once the whole-day
// overrides (past date, unavailable day, closed weekday) have been applied.
type Day struct {
	Ranges  []Range
	Booked  []Clock
	Blocked []Range
}

// Derive returns the sorted, de-duplicated HH:MM slots of the day minus the
// booked times and any slot starting inside a blocked frame.
func Derive(day Day) []string {
	seen := make(map[Clock]struct{})
	var grid []Clock
	for _, r := range day.Ranges {
		for _, s := range r.Slots() {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			grid = append(grid, s)
		}
	}
	sort.Slice(grid, func(i, j int) bool { return grid[i] < grid[j] })

	booked := make(map[Clock]struct{}, len(day.Booked))
	for _, b := range day.Booked {
		booked[b] = struct{}{}
	}

	out := make([]string, 0, len(grid))
	for _, s := range grid {
		if _, taken := booked[s]; taken {
			continue
		}
		if blocked(s, day.Blocked) {
			continue
		}
		out = append(out, s.String())
	}
	return out
}

func blocked(s Clock, frames []Range) bool {
	for _, f := range frames {
		if f.Contains(s) {
			return true
		}
	}
	return false
}
