package score

import (
	"errors"
	"fmt"
)

// ErrShortHold is returned when a hold has no start or no end point
var ErrShortHold = errors.New("hold needs a start and an end point")

// HoldPoint describes one point of a hold to insert
type HoldPoint struct {
	Tick  int
	Lane  int
	Width int
	Step  StepType  // mid points only
	Ease  EaseType  // start and mid points only
	Flick FlickType // end point only
}

// AddNote inserts a Tap or Damage note under a fresh ID
func (s *Score) AddNote(ids *IDAllocator, n Note) (Note, error) {
	if n.Type != NoteTap && n.Type != NoteDamage {
		return Note{}, fmt.Errorf("cannot add %s note outside a hold", n.Type)
	}
	if n.Width < 1 {
		n.Width = 1
	}
	n.ID = ids.Next()
	n.ParentID = -1
	s.Notes[n.ID] = n
	return n, nil
}

// AddHold inserts a hold chain; the first point is the start, the last the end
func (s *Score) AddHold(ids *IDAllocator, critical bool, points ...HoldPoint) (HoldNote, error) {
	if len(points) < 2 {
		return HoldNote{}, ErrShortHold
	}

	mk := func(t NoteType, p HoldPoint, parent int) Note {
		n := NewNote(t)
		n.ID = ids.Next()
		n.Tick, n.Lane, n.Width = p.Tick, p.Lane, p.Width
		if n.Width < 1 {
			n.Width = 1
		}
		n.Critical = critical
		n.ParentID = parent
		return n
	}

	start := mk(NoteHold, points[0], -1)
	s.Notes[start.ID] = start
	hold := HoldNote{Start: HoldStep{ID: start.ID, Type: StepNormal, Ease: points[0].Ease}}

	for _, p := range points[1 : len(points)-1] {
		mid := mk(NoteHoldMid, p, start.ID)
		s.Notes[mid.ID] = mid
		hold.Steps = append(hold.Steps, HoldStep{ID: mid.ID, Type: p.Step, Ease: p.Ease})
	}

	last := points[len(points)-1]
	end := mk(NoteHoldEnd, last, start.ID)
	end.Flick = last.Flick
	s.Notes[end.ID] = end
	hold.End = end.ID

	s.HoldNotes[start.ID] = hold
	s.SortHoldSteps(start.ID)

	out := s.HoldNotes[start.ID]
	out.Steps = append([]HoldStep(nil), out.Steps...)
	return out, nil
}
