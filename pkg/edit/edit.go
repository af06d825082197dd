// Package edit models drag-to-resize of sleep bars and the set of pending
// edits handed to the recalculation service.
package edit

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
)

const (
	// SnapHours is the drag resolution.
	SnapHours = 0.25
	// MinHours is the shortest a fragment may be dragged to.
	MinHours = 0.5
)

var (
	// ErrCutEdge is returned when the grabbed edge is a day boundary of an
	// overnight block rather than a real start or end.
	ErrCutEdge = errors.New("edge is a day cut, not a block boundary")
	// ErrDragging is returned by Begin while another drag is live.
	ErrDragging = errors.New("drag already in progress")
	// ErrNoBlock is returned for a target without a block id.
	ErrNoBlock = errors.New("target has no block id")
)

// Edge selects which end of a bar is dragged.
type Edge string

const (
	EdgeStart Edge = "start"
	EdgeEnd   Edge = "end"
)

// Target is the sleep bar being resized, in hours of its day row.
type Target struct {
	BlockID          string
	OriginalStartISO string
	OriginalEndISO   string
	StartHour        float64
	EndHour          float64
	// StartIsCut and EndIsCut mark edges produced by the day splitter.
	StartIsCut bool
	EndIsCut   bool
}

// Record is one resize, as sent to the fatigue model.
type Record struct {
	BlockID           string  `json:"blockId"`
	OriginalStartISO  string  `json:"originalStartIso,omitempty"`
	OriginalEndISO    string  `json:"originalEndIso,omitempty"`
	OriginalStartHour float64 `json:"originalStartHour"`
	OriginalEndHour   float64 `json:"originalEndHour"`
	NewStartHour      float64 `json:"newStartHour"`
	NewEndHour        float64 `json:"newEndHour"`
}

// StartDelta is how far the start moved.
func (r Record) StartDelta() time.Duration { return hoursToDuration(r.NewStartHour - r.OriginalStartHour) }

// EndDelta is how far the end moved.
func (r Record) EndDelta() time.Duration { return hoursToDuration(r.NewEndHour - r.OriginalEndHour) }

func hoursToDuration(h float64) time.Duration {
	return time.Duration(math.Round(h * float64(time.Hour)))
}

// State is the dragger state.
type State int

const (
	Idle State = iota
	Dragging
)

// Dragger is the idle -> dragging(edge, liveHour) -> idle state machine.
// It is not safe for concurrent use; one pointer drives one dragger.
type Dragger struct {
	target   Target
	edge     Edge
	liveHour float64
	state    State
}

// State returns the current state.
func (d *Dragger) State() State { return d.state }

// Live returns the bar bounds as they currently appear under the pointer.
func (d *Dragger) Live() (start, end float64) {
	if d.state != Dragging {
		return d.target.StartHour, d.target.EndHour
	}
	if d.edge == EdgeStart {
		return d.liveHour, d.target.EndHour
	}
	return d.target.StartHour, d.liveHour
}

// Begin grabs an edge of target. The edge stays put until the first Move.
func (d *Dragger) Begin(target Target, edge Edge) error {
	if d.state == Dragging {
		return ErrDragging
	}
	if target.BlockID == "" {
		return ErrNoBlock
	}
	if (edge == EdgeStart && target.StartIsCut) || (edge == EdgeEnd && target.EndIsCut) {
		return ErrCutEdge
	}
	d.target, d.edge, d.state = target, edge, Dragging
	if edge == EdgeStart {
		d.liveHour = target.StartHour
	} else {
		d.liveHour = target.EndHour
	}
	return nil
}

// Move follows the pointer: the edge snaps to SnapHours and stays inside the
// row while keeping at least MinHours of bar.
func (d *Dragger) Move(pointerHour float64) {
	if d.state != Dragging {
		return
	}
	h := Snap(pointerHour)
	if d.edge == EdgeStart {
		h = math.Max(0, math.Min(h, d.target.EndHour-MinHours))
	} else {
		h = math.Min(24, math.Max(h, d.target.StartHour+MinHours))
	}
	d.liveHour = h
}

// Release ends the drag. It returns a record only when the bar changed.
func (d *Dragger) Release() (Record, bool) {
	if d.state != Dragging {
		return Record{}, false
	}
	start, end := d.Live()
	d.state = Idle
	t := d.target
	if start == t.StartHour && end == t.EndHour {
		return Record{}, false
	}
	return Record{
		BlockID:           t.BlockID,
		OriginalStartISO:  t.OriginalStartISO,
		OriginalEndISO:    t.OriginalEndISO,
		OriginalStartHour: t.StartHour,
		OriginalEndHour:   t.EndHour,
		NewStartHour:      start,
		NewEndHour:        end,
	}, true
}

// Abort drops the drag without emitting anything.
func (d *Dragger) Abort() {
	d.state = Idle
}

// Snap rounds an hour to the nearest SnapHours.
func Snap(hour float64) float64 {
	return math.Round(hour/SnapHours) * SnapHours
}

// Set holds pending edits, one per block; a later edit replaces an earlier one.
type Set struct {
	records map[string]Record
	mu      sync.RWMutex
}

// NewSet returns a Set seeded with records.
func NewSet(records ...Record) *Set {
	s := &Set{records: make(map[string]Record, len(records))}
	for _, r := range records {
		s.Add(r)
	}
	return s
}

// Add stores r, replacing any pending edit of the same block.
func (s *Set) Add(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = make(map[string]Record)
	}
	s.records[r.BlockID] = r
}

// Remove drops the pending edit of blockID.
func (s *Set) Remove(blockID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, blockID)
}

// Clear drops every pending edit.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]Record)
}

// Len is the number of pending edits.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns the pending edits ordered by block id.
func (s *Set) Records() []Record {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].BlockID < out[j].BlockID })
	return out
}

// MarshalJSON encodes the pending edits as a sorted list.
func (s *Set) MarshalJSON() ([]byte, error) {
	recs := s.Records()
	if recs == nil {
		recs = []Record{}
	}
	return json.Marshal(recs)
}

// UnmarshalJSON replaces the pending edits with a decoded list.
func (s *Set) UnmarshalJSON(data []byte) error {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return err
	}
	s.Clear()
	for _, r := range recs {
		s.Add(r)
	}
	return nil
}

// Adjust shifts a resolved block by its pending edit, if any. Blocks without
// UTC bounds are returned unchanged. The input block is never mutated.
func (s *Set) Adjust(b roster.SleepBlock) roster.SleepBlock {
	if s == nil || b.StartUTC == nil || b.EndUTC == nil {
		return b
	}
	s.mu.RLock()
	r, ok := s.records[b.ID]
	s.mu.RUnlock()
	if !ok {
		return b
	}
	start := b.StartUTC.Add(r.StartDelta())
	end := b.EndUTC.Add(r.EndDelta())
	if !end.After(start) {
		return b
	}
	b.StartUTC, b.EndUTC = &start, &end
	return b
}
