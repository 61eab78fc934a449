// Package editor applies selection-scoped edits to a live score with undo and redo
package editor

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/james-see/chartwright/pkg/clipboard"
	"github.com/james-see/chartwright/pkg/converter"
	"github.com/james-see/chartwright/pkg/history"
	"github.com/james-see/chartwright/pkg/score"
)

// Untitled is the display name of a document that was never saved
const Untitled = "Untitled"

// Options configures a Context
type Options struct {
	Clipboard  clipboard.Provider
	MaxHistory int
}

// Context is one open document: the live score, its selection and its history.
// It is not safe for concurrent use.
type Context struct {
	score     *score.Score
	selected  map[int]bool
	history   *history.History
	ids       *score.IDAllocator
	paste     *clipboard.PasteData
	clipboard clipboard.Provider
	stats     score.Stats
	filename  string
	dirty     bool
}

// New creates a Context holding an empty score
func New(opts Options) *Context {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.NewMemory()
	}
	c := &Context{
		history:   history.New(opts.MaxHistory),
		ids:       score.NewIDAllocator(1),
		clipboard: opts.Clipboard,
	}
	c.Load(score.New(), "")
	return c
}

// Load replaces the document with sc and resets selection and history
func (c *Context) Load(sc *score.Score, filename string) {
	c.score = sc
	c.selected = make(map[int]bool)
	c.paste = nil
	c.history.Clear()
	c.ids.Reset(sc.MaxID() + 1)
	c.filename = filename
	c.dirty = false
	c.stats = score.CalculateStats(sc)
}

// Open loads a .sus or .json file and returns the conversion warnings
func (c *Context) Open(path string) ([]string, error) {
	conv := converter.New(score.NewIDAllocator(1))
	sc, err := conv.LoadFile(path)
	if err != nil {
		return nil, err
	}
	c.Load(sc, path)
	return conv.Warnings(), nil
}

// Save writes the document to path, or to its current file when path is empty
func (c *Context) Save(path string) error {
	if path == "" {
		path = c.filename
	}
	if path == "" {
		return fmt.Errorf("no file name for %s document", Untitled)
	}
	if err := converter.New(c.ids).SaveFile(c.score, path); err != nil {
		return err
	}
	c.filename = path
	c.MarkSaved()
	return nil
}

// Score returns the live score; callers must not modify it
func (c *Context) Score() *score.Score {
	return c.score
}

// Stats returns the statistics of the live score
func (c *Context) Stats() score.Stats {
	return c.stats
}

// History returns the document history
func (c *Context) History() *history.History {
	return c.history
}

// IDs returns the document's note ID allocator
func (c *Context) IDs() *score.IDAllocator {
	return c.ids
}

// Filename returns the file the document was loaded from or saved to
func (c *Context) Filename() string {
	return c.filename
}

// Dirty reports whether there are unsaved edits
func (c *Context) Dirty() bool {
	return c.dirty
}

// MarkSaved clears the dirty flag
func (c *Context) MarkSaved() {
	c.dirty = false
}

// Title returns the document name, marked with "*" when dirty
func (c *Context) Title() string {
	name := Untitled
	if c.filename != "" {
		name = filepath.Base(c.filename)
	}
	if c.dirty {
		name += "*"
	}
	return name
}

// commit records the transaction from before to the live score
func (c *Context) commit(description string, before *score.Score) {
	c.history.Push(description, before, c.score)
	c.dirty = true
	c.stats = score.CalculateStats(c.score)
}

// Undo restores the score before the last edit
func (c *Context) Undo() bool {
	sc, err := c.history.Undo()
	if err != nil {
		return false
	}
	c.restore(sc)
	return true
}

// Redo reapplies the last undone edit
func (c *Context) Redo() bool {
	sc, err := c.history.Redo()
	if err != nil {
		return false
	}
	c.restore(sc)
	return true
}

func (c *Context) restore(sc *score.Score) {
	c.score = sc
	c.ClearSelection()
	c.dirty = true
	c.stats = score.CalculateStats(sc)
}

// Selection returns the selected note IDs in ascending order
func (c *Context) Selection() []int {
	ids := make([]int, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SelectionLen returns the number of selected notes
func (c *Context) SelectionLen() int {
	return len(c.selected)
}

// IsSelected reports whether id is selected
func (c *Context) IsSelected(id int) bool {
	return c.selected[id]
}

// Select adds notes to the selection; unknown IDs are ignored
func (c *Context) Select(ids ...int) {
	for _, id := range ids {
		if _, ok := c.score.Notes[id]; ok {
			c.selected[id] = true
		}
	}
}

// Toggle flips the selection state of a note
func (c *Context) Toggle(id int) {
	if c.selected[id] {
		delete(c.selected, id)
		return
	}
	c.Select(id)
}

// SelectAll selects every note
func (c *Context) SelectAll() {
	for id := range c.score.Notes {
		c.selected[id] = true
	}
}

// ClearSelection deselects every note
func (c *Context) ClearSelection() {
	c.selected = make(map[int]bool)
}

// selectedNotes returns the selected notes that still exist, by ascending ID
func (c *Context) selectedNotes() []score.Note {
	notes := make([]score.Note, 0, len(c.selected))
	for _, id := range c.Selection() {
		if n, ok := c.score.Notes[id]; ok {
			notes = append(notes, n)
		}
	}
	return notes
}

func (c *Context) selectionHas(pred func(score.Note) bool) bool {
	for _, n := range c.selectedNotes() {
		if pred(n) {
			return true
		}
	}
	return false
}

// SelectionHasEase reports whether any selected note carries an ease
func (c *Context) SelectionHasEase() bool {
	return c.selectionHas(score.Note.HasEase)
}

// SelectionHasStep reports whether any selected note is a hold step
func (c *Context) SelectionHasStep() bool {
	return c.selectionHas(func(n score.Note) bool { return n.Type == score.NoteHoldMid })
}

// SelectionHasFlickable reports whether any selected note can carry a flick
func (c *Context) SelectionHasFlickable() bool {
	return c.selectionHas(flickable)
}

// flickable excludes damage notes, which SUS cannot carry a flick on
func flickable(n score.Note) bool {
	return !n.HasEase() && n.Type != score.NoteDamage
}
