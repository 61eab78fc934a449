package editor

import (
	"sort"

	"github.com/james-see/chartwright/pkg/clipboard"
	"github.com/james-see/chartwright/pkg/score"
)

// Direction selects the end of the selection a shrink starts from
type Direction int

const (
	// Down stacks notes upward from the earliest selected tick
	Down Direction = iota
	// Up stacks notes downward from the latest selected tick
	Up
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// SetStep retypes the selected hold steps. CycleStep advances each step to the next type.
func (c *Context) SetStep(t score.StepType) bool {
	before := c.score.Clone()
	changed := false

	for _, n := range c.selectedNotes() {
		if n.Type != score.NoteHoldMid {
			continue
		}
		hold, ok := c.score.HoldNotes[n.ParentID]
		if !ok {
			continue
		}
		i := score.FindHoldStep(hold, n.ID)
		if i < 0 {
			continue
		}
		next := t
		if t == score.CycleStep {
			next = hold.Steps[i].Type.Next()
		}
		if hold.Steps[i].Type != next {
			hold.Steps[i].Type = next
			changed = true
		}
	}

	if changed {
		c.commit("Change step type", before)
	}
	return changed
}

// SetEase changes the ease of selected hold starts and steps. CycleEase advances each one.
func (c *Context) SetEase(e score.EaseType) bool {
	before := c.score.Clone()
	changed := false

	next := func(cur score.EaseType) score.EaseType {
		if e == score.CycleEase {
			return cur.Next()
		}
		return e
	}

	for _, n := range c.selectedNotes() {
		switch n.Type {
		case score.NoteHold:
			hold, ok := c.score.HoldNotes[n.ID]
			if !ok {
				continue
			}
			if v := next(hold.Start.Ease); v != hold.Start.Ease {
				hold.Start.Ease = v
				c.score.HoldNotes[n.ID] = hold
				changed = true
			}
		case score.NoteHoldMid:
			hold, ok := c.score.HoldNotes[n.ParentID]
			if !ok {
				continue
			}
			i := score.FindHoldStep(hold, n.ID)
			if i < 0 {
				continue
			}
			if v := next(hold.Steps[i].Ease); v != hold.Steps[i].Ease {
				hold.Steps[i].Ease = v
				changed = true
			}
		}
	}

	if changed {
		c.commit("Change ease", before)
	}
	return changed
}

// SetFlick changes the flick of selected notes without ease. CycleFlick advances each one.
func (c *Context) SetFlick(f score.FlickType) bool {
	before := c.score.Clone()
	changed := false

	for _, n := range c.selectedNotes() {
		if !flickable(n) {
			continue
		}
		next := f
		if f == score.CycleFlick {
			next = n.Flick.Next()
		}
		if n.Flick != next {
			n.Flick = next
			c.score.Notes[n.ID] = n
			changed = true
		}
	}

	if changed {
		c.commit("Change flick", before)
	}
	return changed
}

// ToggleCritical flips criticality. Bare notes flip on their own; any other
// hold member flips its whole hold using the start note as the pivot. A flick
// end becomes critical when its start is critical and toggles otherwise.
func (c *Context) ToggleCritical() bool {
	before := c.score.Clone()
	changed := false
	holds := make(map[int]bool)

	for _, n := range c.selectedNotes() {
		switch {
		case n.Type == score.NoteTap || n.Type == score.NoteDamage:
			n.Critical = !n.Critical
			c.score.Notes[n.ID] = n
			changed = true
		case n.Type == score.NoteHoldEnd && n.IsFlick():
			start, ok := c.score.Notes[n.ParentID]
			if !ok {
				continue
			}
			critical := !n.Critical
			if start.Critical {
				critical = true
			}
			if critical != n.Critical {
				n.Critical = critical
				c.score.Notes[n.ID] = n
				changed = true
			}
		default:
			if holdID, ok := score.HoldID(n); ok {
				if _, exists := c.score.HoldNotes[holdID]; exists {
					holds[holdID] = true
				}
			}
		}
	}

	for holdID := range holds {
		hold := c.score.HoldNotes[holdID]
		critical := !c.score.Notes[hold.Start.ID].Critical
		ids := []int{hold.Start.ID, hold.End}
		for _, step := range hold.Steps {
			ids = append(ids, step.ID)
		}
		for _, id := range ids {
			if n, ok := c.score.Notes[id]; ok {
				n.Critical = critical
				c.score.Notes[id] = n
			}
		}
		changed = true
	}

	if changed {
		c.commit("Toggle critical", before)
	}
	return changed
}

// DeleteSelection removes the selected notes and clears the selection.
// Selecting any member of a hold removes the whole hold.
func (c *Context) DeleteSelection() bool {
	return c.deleteSelection("Delete notes")
}

func (c *Context) deleteSelection(description string) bool {
	before := c.score.Clone()
	changed := false

	for _, n := range c.selectedNotes() {
		if _, ok := c.score.Notes[n.ID]; !ok {
			// already removed with its hold
			continue
		}
		if holdID, ok := score.HoldID(n); ok {
			if _, exists := c.score.HoldNotes[holdID]; exists {
				c.score.RemoveHold(holdID)
				changed = true
				continue
			}
		}
		delete(c.score.Notes, n.ID)
		changed = true
	}

	c.ClearSelection()
	if changed {
		c.commit(description, before)
	}
	return changed
}

// FlipSelection mirrors the selected notes across the lane axis and swaps left and right flicks
func (c *Context) FlipSelection() bool {
	before := c.score.Clone()
	changed := false

	for _, n := range c.selectedNotes() {
		flipped := clipboard.Flip(n)
		if flipped != n {
			c.score.Notes[n.ID] = flipped
			changed = true
		}
	}

	if changed {
		c.commit("Flip notes", before)
	}
	return changed
}

// ShrinkSelection packs the selected notes onto consecutive ticks ordered by
// tick and lane. Down starts at the earliest tick and counts up; Up starts at
// the latest tick and counts down. A run that would cross tick 0 is refused.
func (c *Context) ShrinkSelection(dir Direction) bool {
	notes := c.selectedNotes()
	if len(notes) < 2 {
		return false
	}

	sort.Slice(notes, func(i, j int) bool {
		if notes[i].Tick != notes[j].Tick {
			return notes[i].Tick < notes[j].Tick
		}
		if notes[i].Lane != notes[j].Lane {
			return notes[i].Lane < notes[j].Lane
		}
		return notes[i].ID < notes[j].ID
	})
	step := 1
	if dir == Up {
		for i, j := 0, len(notes)-1; i < j; i, j = i+1, j-1 {
			notes[i], notes[j] = notes[j], notes[i]
		}
		step = -1
	}

	start := notes[0].Tick
	if start+step*(len(notes)-1) < 0 {
		return false
	}

	before := c.score.Clone()
	changed := false
	holds := make(map[int]bool)
	for i, n := range notes {
		tick := start + step*i
		if n.Tick != tick {
			n.Tick = tick
			c.score.Notes[n.ID] = n
			changed = true
		}
		if holdID, ok := score.HoldID(n); ok {
			holds[holdID] = true
		}
	}

	if !changed {
		return false
	}
	for holdID := range holds {
		c.score.SortHoldSteps(holdID)
	}
	c.commit("Shrink notes", before)
	return true
}

// InsertNote adds a Tap or Damage note under a fresh ID and selects it.
// A note that would break the score's integrity is rejected.
func (c *Context) InsertNote(n score.Note) (score.Note, error) {
	before := c.score.Clone()
	added, err := c.score.AddNote(c.ids, n)
	if err == nil {
		err = c.score.Validate()
	}
	if err != nil {
		c.score = before
		return score.Note{}, err
	}
	c.ClearSelection()
	c.Select(added.ID)
	c.commit("Insert note", before)
	return added, nil
}

// InsertHold adds a hold chain through points and selects its notes
func (c *Context) InsertHold(critical bool, points ...score.HoldPoint) (score.HoldNote, error) {
	before := c.score.Clone()
	hold, err := c.score.AddHold(c.ids, critical, points...)
	if err == nil {
		err = c.score.Validate()
	}
	if err != nil {
		c.score = before
		return score.HoldNote{}, err
	}
	c.ClearSelection()
	c.Select(hold.Start.ID, hold.End)
	for _, step := range hold.Steps {
		c.Select(step.ID)
	}
	c.commit("Insert hold", before)
	return hold, nil
}
