package scanner

import (
	"github.com/surge-tracker/pkg/blocktime"
)

// Assumed block cadence when converting wall-clock segment widths to block
// counts. Close enough for planning; truncation handling corrects for dense
// stretches anyway.
const blockIntervalSeconds = 12

// Segment is a closed block interval queried in one explorer call.
type Segment struct {
	From uint64
	To   uint64
}

func (s Segment) Width() uint64 {
	return s.To - s.From + 1
}

// Split halves a segment into two disjoint covers of the same interval.
// Returns false once the segment is a single block and cannot narrow further.
func (s Segment) Split() (Segment, Segment, bool) {
	if s.From >= s.To {
		return Segment{}, Segment{}, false
	}
	mid := s.From + (s.To-s.From)/2
	return Segment{From: s.From, To: mid}, Segment{From: mid + 1, To: s.To}, true
}

// Plan slices a block range into contiguous ascending segments of roughly
// segmentMinutes of chain time each. Segments never overlap and together
// cover the range exactly.
func Plan(r blocktime.BlockRange, segmentMinutes int) []Segment {
	width := uint64(segmentMinutes*60) / blockIntervalSeconds
	if width < 1 {
		width = 1
	}

	var segs []Segment
	for from := r.From; from <= r.To; {
		to := from + width - 1
		if to > r.To || to < from { // overflow guard
			to = r.To
		}
		segs = append(segs, Segment{From: from, To: to})
		if to == r.To {
			break
		}
		from = to + 1
	}
	return segs
}
