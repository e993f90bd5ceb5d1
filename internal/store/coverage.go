package store

import (
	"time"

	"github.com/mfadaei/tgsum/internal/filter"
)

// maxSilentGap is the largest gap the coverage heuristic tolerates
// between cached messages inside a day window. Inherited product
// behavior; see the note in DESIGN.md before changing it.
const maxSilentGap = time.Hour

// dayCovered reports whether the cached rows (newest first) for a day
// window can be trusted as complete: scanning ascending, neither the
// gap between the window start and the first message, nor any gap
// between consecutive messages, nor the gap from the last message to
// the window end may exceed maxSilentGap.
func dayCovered(msgs []Message, w filter.Window) bool {
	cursor := w.Start
	for i := len(msgs) - 1; i >= 0; i-- {
		ts := msgs[i].Timestamp
		if ts.Sub(cursor) > maxSilentGap {
			return false
		}
		if ts.After(cursor) {
			cursor = ts
		}
	}
	return w.End.Sub(cursor) <= maxSilentGap
}
