package score

import (
	"errors"
	"fmt"
)

// ErrIntegrity is wrapped by every error returned from Validate
var ErrIntegrity = errors.New("score integrity")

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIntegrity, fmt.Sprintf(format, args...))
}

// Validate checks the referential invariants between notes and holds
func (s *Score) Validate() error {
	var errs []error
	members := make(map[int]int)

	for _, holdID := range s.SortedHoldIDs() {
		hold := s.HoldNotes[holdID]
		if hold.Start.ID != holdID {
			errs = append(errs, violation("hold %d keyed by %d", hold.Start.ID, holdID))
		}

		check := func(id int, want NoteType) (Note, bool) {
			n, ok := s.Notes[id]
			if !ok {
				errs = append(errs, violation("hold %d references missing note %d", holdID, id))
				return n, false
			}
			if n.Type != want {
				errs = append(errs, violation("hold %d member %d is %s, want %s", holdID, id, n.Type, want))
			}
			if want != NoteHold && n.ParentID != holdID {
				errs = append(errs, violation("note %d has parent %d, want %d", id, n.ParentID, holdID))
			}
			if prev, seen := members[id]; seen {
				errs = append(errs, violation("note %d belongs to holds %d and %d", id, prev, holdID))
			}
			members[id] = holdID
			return n, true
		}

		check(hold.Start.ID, NoteHold)
		lastTick, first := 0, true
		for _, step := range hold.Steps {
			n, ok := check(step.ID, NoteHoldMid)
			if !ok {
				continue
			}
			if !first && n.Tick <= lastTick {
				errs = append(errs, violation("hold %d steps out of order at note %d", holdID, step.ID))
			}
			lastTick, first = n.Tick, false
		}
		check(hold.End, NoteHoldEnd)
	}

	for _, id := range s.SortedNoteIDs() {
		n := s.Notes[id]
		if n.ID != id {
			errs = append(errs, violation("note %d keyed by %d", n.ID, id))
		}
		if n.Lane < MinLane || n.Lane+n.Width-1 > MaxLane || n.Width < 1 {
			errs = append(errs, violation("note %d occupies lanes [%d, %d)", id, n.Lane, n.Lane+n.Width))
		}
		switch n.Type {
		case NoteHold:
			if _, ok := s.HoldNotes[id]; !ok {
				errs = append(errs, violation("hold start %d has no hold record", id))
			}
		case NoteHoldMid, NoteHoldEnd:
			if _, ok := members[id]; !ok {
				errs = append(errs, violation("orphan %s note %d", n.Type, id))
			}
		}
	}

	return errors.Join(errs...)
}
