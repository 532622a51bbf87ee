package ledger

import (
	"math"
	"slices"
	"sort"

	"github.com/kbukum/diarlive/diarization"
	"github.com/kbukum/diarlive/logger"
)

// Result classifies what Append did with a segment.
type Result int

const (
	// Appended means the segment became the new tail.
	Appended Result = iota
	// Reordered means the segment arrived late and was sorted into place.
	Reordered
	DroppedInverted
	DroppedSkew
	DroppedDuplicate
	// DroppedNonFinite means a time or confidence was NaN or infinite.
	DroppedNonFinite
)

// Accepted reports whether the segment entered the ledger.
func (r Result) Accepted() bool { return r == Appended || r == Reordered }

// String returns the result name used in logs and metrics.
func (r Result) String() string {
	switch r {
	case Appended:
		return "appended"
	case Reordered:
		return "reordered"
	case DroppedInverted:
		return "dropped_inverted"
	case DroppedSkew:
		return "dropped_skew"
	case DroppedDuplicate:
		return "dropped_duplicate"
	case DroppedNonFinite:
		return "dropped_non_finite"
	default:
		return "unknown"
	}
}

// ChangeEvent records the current speaker moving from one tag to another.
type ChangeEvent struct {
	From string  `json:"from,omitempty"`
	To   string  `json:"to,omitempty"`
	At   float64 `json:"at"`
}

// SpeakerStats aggregates one speaker's activity over the whole session.
type SpeakerStats struct {
	SpeakerTag    string  `json:"speaker_tag"`
	TotalDuration float64 `json:"total_duration"`
	SegmentCount  int     `json:"segment_count"`
	LastActive    float64 `json:"last_active"`
}

// Outcome is returned by Append.
type Outcome struct {
	Result Result
	// Change is set when the append moved the current speaker.
	Change *ChangeEvent
}

// Ledger is the append-only segment record of one session.
type Ledger struct {
	cfg Config
	log *logger.Logger

	// segments[head:] is the retained window, sorted by Start.
	segments []diarization.Segment
	head     int

	stats   map[string]*SpeakerStats
	order   []string
	changes []ChangeEvent
	total   int
}

// New creates an empty ledger.
func New(cfg Config, log *logger.Logger) *Ledger {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &Ledger{
		cfg:   cfg,
		log:   log,
		stats: make(map[string]*SpeakerStats),
	}
}

// Append records seg. Segments with non-finite values, with End < Start,
// with Start more than the skew tolerance behind the newest segment, or
// identical to a retained segment are dropped.
func (l *Ledger) Append(seg diarization.Segment) Outcome {
	if !finite(seg.Start) || !finite(seg.End) || !finite(seg.Confidence) {
		l.logDrop(seg, DroppedNonFinite)
		return Outcome{Result: DroppedNonFinite}
	}
	if seg.End < seg.Start {
		l.logDrop(seg, DroppedInverted)
		return Outcome{Result: DroppedInverted}
	}

	window := l.segments[l.head:]
	result := Appended
	idx := len(window)
	if n := len(window); n > 0 {
		newest := window[n-1].Start
		if seg.Start < newest-l.cfg.SkewTolerance {
			l.logDrop(seg, DroppedSkew)
			return Outcome{Result: DroppedSkew}
		}
		if seg.Start < newest {
			result = Reordered
		}
		// Upper bound keeps arrival order among equal start times.
		idx = sort.Search(n, func(i int) bool { return window[i].Start > seg.Start })
		for i := idx - 1; i >= 0 && window[i].Start == seg.Start; i-- {
			if window[i].SpeakerTag == seg.SpeakerTag && window[i].End == seg.End {
				l.logDrop(seg, DroppedDuplicate)
				return Outcome{Result: DroppedDuplicate}
			}
		}
	}

	previous := l.CurrentSpeaker()
	l.segments = slices.Insert(l.segments, l.head+idx, seg)
	l.total++
	l.accumulate(seg)
	l.prune()

	out := Outcome{Result: result}
	if current := l.CurrentSpeaker(); previous != "" && current != previous {
		change := ChangeEvent{From: previous, To: current, At: seg.Start}
		l.changes = append(l.changes, change)
		out.Change = &change
	}
	return out
}

// CurrentSpeaker returns the tag of the segment with the latest start time,
// or "" when the ledger is empty.
func (l *Ledger) CurrentSpeaker() string {
	if len(l.segments) == l.head {
		return ""
	}
	return l.segments[len(l.segments)-1].SpeakerTag
}

// PerSpeakerStats returns the aggregates for every speaker in order of first
// appearance.
func (l *Ledger) PerSpeakerStats() []SpeakerStats {
	out := make([]SpeakerStats, 0, len(l.order))
	for _, tag := range l.order {
		out = append(out, *l.stats[tag])
	}
	return out
}

// ChangeEvents returns every synthesized change event in order.
func (l *Ledger) ChangeEvents() []ChangeEvent {
	return slices.Clone(l.changes)
}

// Segments returns the retained segments sorted by start time.
func (l *Ledger) Segments() []diarization.Segment {
	return slices.Clone(l.segments[l.head:])
}

// Len returns the number of retained segments.
func (l *Ledger) Len() int { return len(l.segments) - l.head }

// TotalSegments counts every accepted segment, including pruned ones.
func (l *Ledger) TotalSegments() int { return l.total }

// NumSpeakers counts distinct tags seen this session.
func (l *Ledger) NumSpeakers() int { return len(l.order) }

// Reset empties the ledger for a new session.
func (l *Ledger) Reset() {
	l.segments = nil
	l.head = 0
	l.stats = make(map[string]*SpeakerStats)
	l.order = nil
	l.changes = nil
	l.total = 0
}

func (l *Ledger) accumulate(seg diarization.Segment) {
	st, ok := l.stats[seg.SpeakerTag]
	if !ok {
		st = &SpeakerStats{SpeakerTag: seg.SpeakerTag}
		l.stats[seg.SpeakerTag] = st
		l.order = append(l.order, seg.SpeakerTag)
	}
	st.TotalDuration += seg.Duration()
	st.SegmentCount++
	if seg.End > st.LastActive {
		st.LastActive = seg.End
	}
}

// prune drops raw segments that started more than RetainWindow before the
// newest one. The backing array is compacted once half of it is dead.
func (l *Ledger) prune() {
	newest := l.segments[len(l.segments)-1].Start
	cutoff := newest - l.cfg.RetainWindow
	for l.head < len(l.segments)-1 && l.segments[l.head].Start < cutoff {
		l.segments[l.head] = diarization.Segment{}
		l.head++
	}
	if l.head > 0 && l.head*2 >= len(l.segments) {
		l.segments = slices.Clone(l.segments[l.head:])
		l.head = 0
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func (l *Ledger) logDrop(seg diarization.Segment, r Result) {
	l.log.Debug("segment dropped", logger.Fields(
		logger.FieldSpeakerTag, seg.SpeakerTag,
		"start", seg.Start,
		"end", seg.End,
		"reason", r.String(),
	))
}
