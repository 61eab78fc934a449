// Package history records whole-score snapshots for undo and redo
package history

import (
	"errors"
	"time"

	"github.com/james-see/chartwright/pkg/score"
)

// Common errors for history operations
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultMaxEntries is used when no positive limit is given
const DefaultMaxEntries = 1000

// Entry is one recorded transaction
type Entry struct {
	Description string
	Before      *score.Score
	After       *score.Score
	Time        time.Time
}

// Info describes an entry without its snapshots
type Info struct {
	Description string    `json:"description"`
	Time        time.Time `json:"time"`
	Applied     bool      `json:"applied"`
}

// History is a linear sequence of entries with a single cursor.
// Entries before the cursor are applied; entries from it onward can be redone.
// It is not safe for concurrent use.
type History struct {
	entries    []Entry
	cursor     int
	maxEntries int
}

// New creates a history keeping at most maxEntries transactions
func New(maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &History{maxEntries: maxEntries}
}

// Push records a transaction and discards anything that could be redone.
// The snapshots are cloned so later edits of the live score cannot reach them.
func (h *History) Push(description string, before, after *score.Score) {
	h.entries = append(h.entries[:h.cursor], Entry{
		Description: description,
		Before:      before.Clone(),
		After:       after.Clone(),
		Time:        time.Now(),
	})

	if excess := len(h.entries) - h.maxEntries; excess > 0 {
		h.entries = append([]Entry(nil), h.entries[excess:]...)
	}
	h.cursor = len(h.entries)
}

// Undo steps the cursor back and returns a copy of the score before that entry
func (h *History) Undo() (*score.Score, error) {
	if !h.HasUndo() {
		return nil, ErrNothingToUndo
	}
	h.cursor--
	return h.entries[h.cursor].Before.Clone(), nil
}

// Redo steps the cursor forward and returns a copy of the score after that entry
func (h *History) Redo() (*score.Score, error) {
	if !h.HasRedo() {
		return nil, ErrNothingToRedo
	}
	h.cursor++
	return h.entries[h.cursor-1].After.Clone(), nil
}

// HasUndo reports whether an entry can be undone
func (h *History) HasUndo() bool {
	return h.cursor > 0
}

// HasRedo reports whether an entry can be redone
func (h *History) HasRedo() bool {
	return h.cursor < len(h.entries)
}

// PeekUndo returns the description of the entry Undo would revert
func (h *History) PeekUndo() (string, bool) {
	if !h.HasUndo() {
		return "", false
	}
	return h.entries[h.cursor-1].Description, true
}

// PeekRedo returns the description of the entry Redo would apply
func (h *History) PeekRedo() (string, bool) {
	if !h.HasRedo() {
		return "", false
	}
	return h.entries[h.cursor].Description, true
}

// Entries lists every entry, oldest first
func (h *History) Entries() []Info {
	out := make([]Info, len(h.entries))
	for i, e := range h.entries {
		out[i] = Info{Description: e.Description, Time: e.Time, Applied: i < h.cursor}
	}
	return out
}

// Len returns the number of recorded entries
func (h *History) Len() int {
	return len(h.entries)
}

// Clear drops every entry
func (h *History) Clear() {
	h.entries = nil
	h.cursor = 0
}
