package listutil

import (
	"net/url"
	"strconv"
	"strings"
)

// ExpertWindowSize is how many experts the student page shows at once.
const ExpertWindowSize = 3

// Window is a contiguous view [Start, End) over a list of Total items.
type Window struct {
	Start   int
	End     int
	Total   int
	HasPrev bool
	HasNext bool
}

// ClampStart bounds a requested start index to [0, max(0, total-size)].
// PRE: size > 0
// POST: Returns a start from which a full window (or the whole list) is visible
func ClampStart(start, total, size int) int {
	maxStart := total - size
	if maxStart < 0 {
		maxStart = 0
	}
	if start > maxStart {
		start = maxStart
	}
	if start < 0 {
		start = 0
	}
	return start
}

// NewWindow computes the visible window for a requested start.
// PRE: size > 0, total >= 0
// POST: End-Start == min(size, Total); HasPrev iff Start > 0; HasNext iff End < Total
func NewWindow(start, total, size int) Window {
	start = ClampStart(start, total, size)
	end := start + size
	if end > total {
		end = total
	}
	return Window{
		Start:   start,
		End:     end,
		Total:   total,
		HasPrev: start > 0,
		HasNext: end < total,
	}
}

// Prev returns the start index one window back, clamped.
func (w Window) Prev(size int) int {
	return ClampStart(w.Start-size, w.Total, size)
}

// Next returns the start index one window forward, clamped.
func (w Window) Next(size int) int {
	return ClampStart(w.Start+size, w.Total, size)
}

// ParseID reads a positive integer id from query values.
// PRE: none
// POST: Returns 0 when the key is absent, blank or not a positive integer
func ParseID(q url.Values, key string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(q.Get(key)), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// PathID parses a positive integer path segment.
func PathID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
