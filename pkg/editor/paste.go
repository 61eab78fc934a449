package editor

import (
	"fmt"

	"github.com/james-see/chartwright/pkg/clipboard"
	"github.com/james-see/chartwright/pkg/score"
)

// CopySelection places the selection on the clipboard with ticks relative to
// its earliest note. An empty selection leaves the clipboard untouched.
func (c *Context) CopySelection() error {
	notes := c.selectedNotes()
	if len(notes) == 0 {
		return nil
	}

	baseTick := notes[0].Tick
	for _, n := range notes[1:] {
		baseTick = min(baseTick, n.Tick)
	}

	doc, err := clipboard.ToDocument(c.score, c.Selection(), baseTick)
	if err != nil {
		return err
	}
	if err := c.clipboard.Set(clipboard.EncodePayload(doc)); err != nil {
		return fmt.Errorf("failed to copy notes: %w", err)
	}
	return nil
}

// CutSelection copies the selection and then deletes it
func (c *Context) CutSelection() error {
	if c.SelectionLen() == 0 {
		return nil
	}
	if err := c.CopySelection(); err != nil {
		return err
	}
	c.deleteSelection("Cut notes")
	return nil
}

// Paste stages the clipboard's notes for placement and reports whether a
// paste is pending. Text that is not a chart clipboard is ignored.
func (c *Context) Paste(flip bool) (bool, error) {
	text, err := c.clipboard.Get()
	if err != nil {
		return false, fmt.Errorf("failed to read clipboard: %w", err)
	}

	doc, ok := clipboard.DecodePayload(text)
	if !ok {
		return false, nil
	}
	data, err := clipboard.FromDocument(doc, flip)
	if err != nil || data.Len() == 0 {
		return false, nil
	}

	c.paste = data
	return true, nil
}

// IsPasting reports whether a paste waits for confirmation
func (c *Context) IsPasting() bool {
	return c.paste != nil
}

// PasteData returns the staged paste, or nil
func (c *Context) PasteData() *clipboard.PasteData {
	return c.paste
}

// CancelPaste drops the staged paste without touching the score
func (c *Context) CancelPaste() {
	c.paste = nil
}

// ConfirmPaste merges the staged notes shifted by the given offsets under
// fresh IDs and selects them. The lane offset is clamped so every note stays
// on the field and the tick offset so no note lands before tick 0.
func (c *Context) ConfirmPaste(laneOffset, tickOffset int) bool {
	data := c.paste
	if data == nil {
		return false
	}
	c.paste = nil

	laneOffset = max(data.MinLaneOffset, min(laneOffset, data.MaxLaneOffset))
	minTick := 0
	first := true
	for _, n := range data.Notes {
		if first || n.Tick < minTick {
			minTick, first = n.Tick, false
		}
	}
	tickOffset = max(tickOffset, -minTick)

	before := c.score.Clone()
	base := c.ids.Peek()
	c.ClearSelection()

	for id, n := range data.Notes {
		n.ID = id + base
		if n.ParentID != -1 {
			n.ParentID += base
		}
		n.Lane += laneOffset
		n.Tick += tickOffset
		c.score.Notes[n.ID] = n
		c.selected[n.ID] = true
	}
	for id, h := range data.Holds {
		hold := score.HoldNote{
			Start: h.Start,
			Steps: make([]score.HoldStep, len(h.Steps)),
			End:   h.End + base,
		}
		hold.Start.ID += base
		for i, step := range h.Steps {
			step.ID += base
			hold.Steps[i] = step
		}
		c.score.HoldNotes[id+base] = hold
	}
	c.ids.Advance(data.Len())

	c.commit("Paste notes", before)
	return true
}
