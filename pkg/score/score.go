package score

import (
	"sort"
)

// Score is the aggregate root of a chart
type Score struct {
	Metadata       Metadata              `json:"metadata"`
	Notes          map[int]Note          `json:"notes"`
	HoldNotes      map[int]HoldNote      `json:"holdNotes"`
	TempoChanges   []Tempo               `json:"tempoChanges"`
	TimeSignatures map[int]TimeSignature `json:"timeSignatures"`
	HiSpeedChanges []HiSpeedChange       `json:"hiSpeedChanges"`
	Skills         []SkillTrigger        `json:"skills"`
	Fever          Fever                 `json:"fever"`
}

// New creates an empty score with a 120 BPM tempo and 4/4 time
func New() *Score {
	return &Score{
		Notes:          make(map[int]Note),
		HoldNotes:      make(map[int]HoldNote),
		TempoChanges:   []Tempo{{Tick: 0, BPM: 120}},
		TimeSignatures: map[int]TimeSignature{0: {Measure: 0, Numerator: 4, Denominator: 4}},
		Fever:          Fever{StartTick: -1, EndTick: -1},
	}
}

// Clone returns a deep copy sharing no mutable state with s
func (s *Score) Clone() *Score {
	c := &Score{
		Metadata:       s.Metadata,
		Notes:          make(map[int]Note, len(s.Notes)),
		HoldNotes:      make(map[int]HoldNote, len(s.HoldNotes)),
		TempoChanges:   append([]Tempo(nil), s.TempoChanges...),
		TimeSignatures: make(map[int]TimeSignature, len(s.TimeSignatures)),
		HiSpeedChanges: append([]HiSpeedChange(nil), s.HiSpeedChanges...),
		Skills:         append([]SkillTrigger(nil), s.Skills...),
		Fever:          s.Fever,
	}
	for id, n := range s.Notes {
		c.Notes[id] = n
	}
	for id, h := range s.HoldNotes {
		h.Steps = append([]HoldStep(nil), h.Steps...)
		c.HoldNotes[id] = h
	}
	for m, ts := range s.TimeSignatures {
		c.TimeSignatures[m] = ts
	}
	return c
}

// FindHoldStep returns the index of the step referencing id, or -1
func FindHoldStep(hold HoldNote, id int) int {
	for i, step := range hold.Steps {
		if step.ID == id {
			return i
		}
	}
	return -1
}

// HoldID returns the key of the hold a member note belongs to
func HoldID(n Note) (int, bool) {
	switch n.Type {
	case NoteHold:
		return n.ID, true
	case NoteHoldMid, NoteHoldEnd:
		return n.ParentID, true
	}
	return 0, false
}

// SortHoldSteps orders the steps of hold by the tick of their notes
func (s *Score) SortHoldSteps(holdID int) {
	hold, ok := s.HoldNotes[holdID]
	if !ok {
		return
	}
	sort.SliceStable(hold.Steps, func(i, j int) bool {
		return s.Notes[hold.Steps[i].ID].Tick < s.Notes[hold.Steps[j].ID].Tick
	})
	s.HoldNotes[holdID] = hold
}

// RemoveHold deletes a hold record and every member note
func (s *Score) RemoveHold(holdID int) {
	hold, ok := s.HoldNotes[holdID]
	if !ok {
		return
	}
	delete(s.Notes, hold.Start.ID)
	delete(s.Notes, hold.End)
	for _, step := range hold.Steps {
		delete(s.Notes, step.ID)
	}
	delete(s.HoldNotes, holdID)
}

// MaxID returns the largest note ID in use, or 0 for an empty score
func (s *Score) MaxID() int {
	max := 0
	for id := range s.Notes {
		if id > max {
			max = id
		}
	}
	return max
}

// SortedNoteIDs returns note IDs ordered by tick, then lane, then ID
func (s *Score) SortedNoteIDs() []int {
	ids := make([]int, 0, len(s.Notes))
	for id := range s.Notes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.Notes[ids[i]], s.Notes[ids[j]]
		if a.Tick != b.Tick {
			return a.Tick < b.Tick
		}
		if a.Lane != b.Lane {
			return a.Lane < b.Lane
		}
		return a.ID < b.ID
	})
	return ids
}

// SortedHoldIDs returns hold keys in ascending order
func (s *Score) SortedHoldIDs() []int {
	ids := make([]int, 0, len(s.HoldNotes))
	for id := range s.HoldNotes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// MeasureToTick returns the first tick of measure using the time signatures
func (s *Score) MeasureToTick(measure int) int {
	measures := make([]int, 0, len(s.TimeSignatures))
	for m := range s.TimeSignatures {
		measures = append(measures, m)
	}
	sort.Ints(measures)

	tick, num, den, at := 0, 4, 4, 0
	for _, m := range measures {
		if m > measure {
			break
		}
		tick += (m - at) * measureTicks(num, den)
		ts := s.TimeSignatures[m]
		num, den, at = ts.Numerator, ts.Denominator, m
	}
	return tick + (measure-at)*measureTicks(num, den)
}

func measureTicks(num, den int) int {
	if den <= 0 {
		return 4 * TicksPerBeat
	}
	return num * 4 * TicksPerBeat / den
}

// IDAllocator hands out note IDs for one open document
type IDAllocator struct {
	next int
}

// NewIDAllocator creates an allocator whose first ID is start
func NewIDAllocator(start int) *IDAllocator {
	if start < 1 {
		start = 1
	}
	return &IDAllocator{next: start}
}

// Next returns a fresh ID
func (a *IDAllocator) Next() int {
	id := a.next
	a.next++
	return id
}

// Peek returns the ID Next would return
func (a *IDAllocator) Peek() int {
	return a.next
}

// Advance reserves n IDs starting at Peek
func (a *IDAllocator) Advance(n int) {
	a.next += n
}

// Reset moves the allocator so that start is the next ID
func (a *IDAllocator) Reset(start int) {
	if start < 1 {
		start = 1
	}
	a.next = start
}
