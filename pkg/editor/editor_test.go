package editor

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/james-see/chartwright/pkg/clipboard"
	"github.com/james-see/chartwright/pkg/score"
)

// Note IDs of the fixture built by newTestContext
const (
	tapID    = 1
	damageID = 2
	startID  = 3
	midID    = 4
	endID    = 5
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	sc := score.New()
	ids := score.NewIDAllocator(1)

	if _, err := sc.AddNote(ids, score.Note{Type: score.NoteTap, Tick: 0, Lane: 0, Width: 2, Flick: score.FlickLeft}); err != nil {
		t.Fatalf("AddNote() error = %v", err)
	}
	if _, err := sc.AddNote(ids, score.Note{Type: score.NoteDamage, Tick: 240, Lane: 5, Width: 3}); err != nil {
		t.Fatalf("AddNote() error = %v", err)
	}
	if _, err := sc.AddHold(ids, false,
		score.HoldPoint{Tick: 480, Lane: 2, Width: 3, Ease: score.EaseOut},
		score.HoldPoint{Tick: 720, Lane: 3, Width: 3},
		score.HoldPoint{Tick: 960, Lane: 4, Width: 3, Flick: score.FlickDefault},
	); err != nil {
		t.Fatalf("AddHold() error = %v", err)
	}

	c := New(Options{})
	c.Load(sc, filepath.Join("charts", "chart.sus"))
	return c
}

func assertValid(t *testing.T, c *Context) {
	t.Helper()
	if err := c.Score().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	c := newTestContext(t)

	if got := c.IDs().Peek(); got != 6 {
		t.Errorf("IDs().Peek() = %d, want 6", got)
	}
	if c.Dirty() || c.History().Len() != 0 {
		t.Error("a loaded document should be clean with no history")
	}
	if got := c.Title(); got != "chart.sus" {
		t.Errorf("Title() = %q, want %q", got, "chart.sus")
	}
	if got := c.Stats().Combo; got != 4 {
		t.Errorf("Stats().Combo = %d, want 4", got)
	}

	if got := New(Options{}).Title(); got != Untitled {
		t.Errorf("Title() = %q, want %q", got, Untitled)
	}
}

func TestSelection(t *testing.T) {
	c := newTestContext(t)

	c.Select(tapID, 999)
	if got := c.Selection(); !reflect.DeepEqual(got, []int{tapID}) {
		t.Errorf("Selection() = %v, want [%d]", got, tapID)
	}
	c.Toggle(tapID)
	c.Toggle(midID)
	if c.IsSelected(tapID) || !c.IsSelected(midID) {
		t.Errorf("Selection() = %v after toggling", c.Selection())
	}
	c.SelectAll()
	if c.SelectionLen() != 5 {
		t.Errorf("SelectionLen() = %d, want 5", c.SelectionLen())
	}
	c.ClearSelection()
	if c.SelectionLen() != 0 {
		t.Error("ClearSelection() left notes selected")
	}
}

func TestSelectionQueries(t *testing.T) {
	tests := []struct {
		name      string
		selection []int
		ease      bool
		step      bool
		flickable bool
	}{
		{"tap", []int{tapID}, false, false, true},
		{"damage", []int{damageID}, false, false, false},
		{"hold start", []int{startID}, true, false, false},
		{"hold mid", []int{midID}, true, true, false},
		{"hold end", []int{endID}, false, false, true},
		{"empty", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestContext(t)
			c.Select(tt.selection...)
			if got := c.SelectionHasEase(); got != tt.ease {
				t.Errorf("SelectionHasEase() = %v, want %v", got, tt.ease)
			}
			if got := c.SelectionHasStep(); got != tt.step {
				t.Errorf("SelectionHasStep() = %v, want %v", got, tt.step)
			}
			if got := c.SelectionHasFlickable(); got != tt.flickable {
				t.Errorf("SelectionHasFlickable() = %v, want %v", got, tt.flickable)
			}
		})
	}
}

func TestSetStep(t *testing.T) {
	c := newTestContext(t)

	c.Select(tapID)
	if c.SetStep(score.CycleStep) {
		t.Error("SetStep() on a tap should not change anything")
	}

	c.Select(midID)
	if !c.SetStep(score.CycleStep) {
		t.Fatal("SetStep(CycleStep) reported no change")
	}
	if got := c.Score().HoldNotes[startID].Steps[0].Type; got != score.StepHidden {
		t.Errorf("step type = %v, want hidden", got)
	}
	if c.SetStep(score.StepHidden) {
		t.Error("SetStep() to the current type should not record history")
	}
	if c.History().Len() != 1 {
		t.Errorf("History().Len() = %d, want 1", c.History().Len())
	}
	if desc, _ := c.History().PeekUndo(); desc != "Change step type" {
		t.Errorf("PeekUndo() = %q", desc)
	}
	assertValid(t, c)
}

func TestSetEase(t *testing.T) {
	c := newTestContext(t)
	c.Select(startID, midID, tapID)

	if !c.SetEase(score.EaseIn) {
		t.Fatal("SetEase() reported no change")
	}
	hold := c.Score().HoldNotes[startID]
	if hold.Start.Ease != score.EaseIn || hold.Steps[0].Ease != score.EaseIn {
		t.Errorf("eases = %v/%v, want ease_in", hold.Start.Ease, hold.Steps[0].Ease)
	}

	// ease_in cycles to ease_out
	c.SetEase(score.CycleEase)
	hold = c.Score().HoldNotes[startID]
	if hold.Start.Ease != score.EaseOut || hold.Steps[0].Ease != score.EaseOut {
		t.Errorf("eases = %v/%v, want ease_out", hold.Start.Ease, hold.Steps[0].Ease)
	}
	assertValid(t, c)
}

func TestSetFlick(t *testing.T) {
	c := newTestContext(t)
	c.SelectAll()

	if !c.SetFlick(score.FlickRight) {
		t.Fatal("SetFlick() reported no change")
	}

	tests := []struct {
		id       int
		expected score.FlickType
	}{
		{tapID, score.FlickRight},
		{damageID, score.FlickNone},
		{startID, score.FlickNone},
		{midID, score.FlickNone},
		{endID, score.FlickRight},
	}
	for _, tt := range tests {
		if got := c.Score().Notes[tt.id].Flick; got != tt.expected {
			t.Errorf("note %d flick = %v, want %v", tt.id, got, tt.expected)
		}
	}

	c.ClearSelection()
	c.Select(damageID)
	if c.SetFlick(score.CycleFlick) {
		t.Error("SetFlick() on a damage note should not change anything")
	}
}

func TestToggleCriticalBareNotes(t *testing.T) {
	c := newTestContext(t)
	c.Select(tapID, damageID)

	if !c.ToggleCritical() {
		t.Fatal("ToggleCritical() reported no change")
	}
	for _, id := range []int{tapID, damageID} {
		if !c.Score().Notes[id].Critical {
			t.Errorf("note %d should be critical", id)
		}
	}
	if c.Stats().Criticals != 1 {
		t.Errorf("Stats().Criticals = %d, want 1 (damage excluded)", c.Stats().Criticals)
	}
}

func TestToggleCriticalHold(t *testing.T) {
	for _, member := range []int{startID, midID} {
		c := newTestContext(t)
		c.Select(member)

		for _, want := range []bool{true, false} {
			if !c.ToggleCritical() {
				t.Fatalf("ToggleCritical() via note %d reported no change", member)
			}
			for _, id := range []int{startID, midID, endID} {
				if got := c.Score().Notes[id].Critical; got != want {
					t.Errorf("via note %d: note %d critical = %v, want %v", member, id, got, want)
				}
			}
		}
		assertValid(t, c)
	}
}

func TestToggleCriticalFlickEnd(t *testing.T) {
	c := newTestContext(t)

	// a flick end toggles on its own while the start is not critical
	c.Select(endID)
	c.ToggleCritical()
	if !c.Score().Notes[endID].Critical || c.Score().Notes[startID].Critical {
		t.Error("flick end should toggle alone")
	}
	c.ToggleCritical()
	if c.Score().Notes[endID].Critical {
		t.Error("flick end should toggle back")
	}

	c.ClearSelection()
	c.Select(startID)
	c.ToggleCritical()

	// with a critical start the flick end stays critical
	c.ClearSelection()
	c.Select(endID)
	if c.ToggleCritical() {
		t.Error("ToggleCritical() should not clear a flick end under a critical start")
	}
	if !c.Score().Notes[endID].Critical {
		t.Error("flick end should remain critical")
	}
}

func TestDeleteSelectionRemovesWholeHold(t *testing.T) {
	for _, member := range []int{startID, midID, endID} {
		c := newTestContext(t)
		c.Select(member)

		if !c.DeleteSelection() {
			t.Fatalf("DeleteSelection() via note %d reported no change", member)
		}
		for _, id := range []int{startID, midID, endID} {
			if _, ok := c.Score().Notes[id]; ok {
				t.Errorf("via note %d: note %d still present", member, id)
			}
		}
		if len(c.Score().HoldNotes) != 0 {
			t.Errorf("via note %d: hold record still present", member)
		}
		if _, ok := c.Score().Notes[tapID]; !ok {
			t.Error("unselected tap was removed")
		}
		if c.SelectionLen() != 0 {
			t.Error("selection should be cleared")
		}
		assertValid(t, c)
	}
}

func TestDeleteEmptySelection(t *testing.T) {
	c := newTestContext(t)
	if c.DeleteSelection() {
		t.Error("DeleteSelection() with nothing selected reported a change")
	}
	if c.Dirty() || c.History().Len() != 0 {
		t.Error("a no-op must not record history")
	}
}

func TestFlipSelection(t *testing.T) {
	c := newTestContext(t)
	original := c.Score().Clone()
	c.SelectAll()

	if !c.FlipSelection() {
		t.Fatal("FlipSelection() reported no change")
	}
	tap := c.Score().Notes[tapID]
	if tap.Lane != 10 || tap.Flick != score.FlickRight {
		t.Errorf("flipped tap = lane %d %v, want lane 10 right", tap.Lane, tap.Flick)
	}
	assertValid(t, c)

	c.SelectAll()
	c.FlipSelection()
	if !reflect.DeepEqual(c.Score(), original) {
		t.Error("flipping twice should restore the score")
	}
}

func TestShrinkSelection(t *testing.T) {
	tests := []struct {
		name     string
		dir      Direction
		expected map[int]int
	}{
		{"down", Down, map[int]int{tapID: 0, damageID: 1, startID: 2}},
		{"up", Up, map[int]int{startID: 480, damageID: 479, tapID: 478}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestContext(t)
			c.Select(tapID, damageID, startID)

			if !c.ShrinkSelection(tt.dir) {
				t.Fatal("ShrinkSelection() reported no change")
			}
			for id, tick := range tt.expected {
				if got := c.Score().Notes[id].Tick; got != tick {
					t.Errorf("note %d tick = %d, want %d", id, got, tick)
				}
			}
			assertValid(t, c)
		})
	}
}

func TestShrinkSelectionNoOps(t *testing.T) {
	c := newTestContext(t)

	c.Select(tapID)
	if c.ShrinkSelection(Down) {
		t.Error("ShrinkSelection() needs at least two notes")
	}

	// already packed
	c.Select(midID)
	c.ShrinkSelection(Down)
	if c.ShrinkSelection(Down) {
		t.Error("ShrinkSelection() of packed notes reported a change")
	}

	// both taps on tick 0 cannot count down
	c.ClearSelection()
	n, err := c.InsertNote(score.Note{Type: score.NoteTap, Tick: 0, Lane: 6, Width: 2})
	if err != nil {
		t.Fatalf("InsertNote() error = %v", err)
	}
	c.Select(tapID, n.ID)
	if c.ShrinkSelection(Up) {
		t.Error("ShrinkSelection(Up) should refuse negative ticks")
	}
}

func TestShrinkKeepsStepOrder(t *testing.T) {
	sc := score.New()
	ids := score.NewIDAllocator(1)
	hold, err := sc.AddHold(ids, false,
		score.HoldPoint{Tick: 0, Lane: 0, Width: 3},
		score.HoldPoint{Tick: 100, Lane: 0, Width: 3},
		score.HoldPoint{Tick: 200, Lane: 5, Width: 3},
		score.HoldPoint{Tick: 300, Lane: 0, Width: 3},
	)
	if err != nil {
		t.Fatalf("AddHold() error = %v", err)
	}
	c := New(Options{})
	c.Load(sc, "")
	moved := hold.Steps[1].ID

	// the later step moves below the earlier one
	c.Select(moved, hold.Start.ID)
	c.ShrinkSelection(Down)

	steps := c.Score().HoldNotes[hold.Start.ID].Steps
	if steps[0].ID != moved {
		t.Errorf("steps = %+v, want re-sorted by tick", steps)
	}
	assertValid(t, c)
}

func TestUndoRedoLaws(t *testing.T) {
	c := newTestContext(t)
	original := c.Score().Clone()

	if c.Undo() || c.Redo() {
		t.Error("Undo()/Redo() with empty history should report false")
	}
	if !reflect.DeepEqual(c.Score(), original) {
		t.Error("empty Undo()/Redo() changed the score")
	}

	c.Select(tapID)
	c.ToggleCritical()
	c.Select(midID)
	c.SetStep(score.CycleStep)
	c.ClearSelection()
	c.Select(damageID)
	c.DeleteSelection()
	if c.History().Len() != 3 {
		t.Fatalf("History().Len() = %d, want 3", c.History().Len())
	}
	if got := c.Title(); got != "chart.sus*" {
		t.Errorf("Title() = %q, want %q", got, "chart.sus*")
	}

	edited := c.Score().Clone()
	c.Select(tapID)
	c.Undo()
	if c.SelectionLen() != 0 {
		t.Error("Undo() should clear the selection")
	}
	c.Redo()
	if !reflect.DeepEqual(c.Score(), edited) {
		t.Error("Undo() followed by Redo() changed the score")
	}

	for i := 0; i < 3; i++ {
		if !c.Undo() {
			t.Fatalf("Undo() %d reported nothing to undo", i+1)
		}
	}
	if !reflect.DeepEqual(c.Score(), original) {
		t.Error("undoing every edit should restore the original score")
	}
	if c.Undo() {
		t.Error("Undo() past the start should report false")
	}
	if c.Stats().Combo != 4 {
		t.Errorf("Stats().Combo = %d, want 4 after undo", c.Stats().Combo)
	}

	c.MarkSaved()
	if got := c.Title(); got != "chart.sus" {
		t.Errorf("Title() = %q, want %q", got, "chart.sus")
	}
}

func TestCopyPaste(t *testing.T) {
	c := newTestContext(t)
	c.Select(tapID, midID)

	if err := c.CopySelection(); err != nil {
		t.Fatalf("CopySelection() error = %v", err)
	}
	pending, err := c.Paste(false)
	if err != nil || !pending {
		t.Fatalf("Paste() = %v, %v, want pending", pending, err)
	}
	if !c.IsPasting() || c.PasteData().Len() != 4 {
		t.Fatal("Paste() should stage the tap and the whole hold")
	}
	if c.History().Len() != 0 {
		t.Error("staging a paste must not record history")
	}

	if !c.ConfirmPaste(0, 1920) {
		t.Fatal("ConfirmPaste() reported no change")
	}
	if c.IsPasting() {
		t.Error("ConfirmPaste() should end the paste")
	}
	if got := c.IDs().Peek(); got != 10 {
		t.Errorf("IDs().Peek() = %d, want 10", got)
	}
	if got := c.Selection(); !reflect.DeepEqual(got, []int{6, 7, 8, 9}) {
		t.Errorf("Selection() = %v, want the pasted notes", got)
	}
	if len(c.Score().Notes) != 9 || len(c.Score().HoldNotes) != 2 {
		t.Errorf("score has %d notes and %d holds, want 9 and 2", len(c.Score().Notes), len(c.Score().HoldNotes))
	}

	var tap score.Note
	for _, id := range c.Selection() {
		if n := c.Score().Notes[id]; n.Type == score.NoteTap {
			tap = n
		}
	}
	if tap.Tick != 1920 || tap.Lane != 0 || tap.Flick != score.FlickLeft {
		t.Errorf("pasted tap = %+v", tap)
	}
	if desc, _ := c.History().PeekUndo(); desc != "Paste notes" {
		t.Errorf("PeekUndo() = %q, want %q", desc, "Paste notes")
	}
	assertValid(t, c)

	// IDs are never reused after undo
	c.Undo()
	if c.IDs().Peek() != 10 {
		t.Errorf("IDs().Peek() = %d after undo, want 10", c.IDs().Peek())
	}
}

func TestConfirmPasteClampsOffsets(t *testing.T) {
	c := newTestContext(t)
	c.Select(tapID, startID)
	if err := c.CopySelection(); err != nil {
		t.Fatalf("CopySelection() error = %v", err)
	}
	if ok, _ := c.Paste(false); !ok {
		t.Fatal("Paste() should be pending")
	}

	c.ConfirmPaste(100, -5000)
	for _, id := range c.Selection() {
		n := c.Score().Notes[id]
		if n.Type == score.NoteTap && (n.Lane != 5 || n.Tick != 0) {
			t.Errorf("pasted tap = lane %d tick %d, want lane 5 tick 0", n.Lane, n.Tick)
		}
	}
	assertValid(t, c)
}

func TestPasteIgnoresForeignText(t *testing.T) {
	mem := clipboard.NewMemory()
	c := New(Options{Clipboard: mem})

	for _, text := range []string{"", "hello", clipboard.EncodePayload(`{"notes":[]}`), clipboard.Marker + "{"} {
		if err := mem.Set(text); err != nil {
			t.Fatal(err)
		}
		pending, err := c.Paste(false)
		if err != nil || pending {
			t.Errorf("Paste() with %q = %v, %v, want false, nil", text, pending, err)
		}
	}

	if c.ConfirmPaste(0, 0) {
		t.Error("ConfirmPaste() without a paste should report false")
	}
}

func TestCancelPaste(t *testing.T) {
	c := newTestContext(t)
	c.Select(tapID)
	c.CopySelection()
	c.Paste(true)
	before := c.Score().Clone()

	c.CancelPaste()
	if c.IsPasting() || c.ConfirmPaste(0, 0) {
		t.Error("CancelPaste() should drop the staged notes")
	}
	if !reflect.DeepEqual(c.Score(), before) || c.Dirty() {
		t.Error("CancelPaste() changed the document")
	}
}

func TestCutSelection(t *testing.T) {
	mem := clipboard.NewMemory()
	c := newTestContext(t)
	c.clipboard = mem
	c.Select(midID)

	if err := c.CutSelection(); err != nil {
		t.Fatalf("CutSelection() error = %v", err)
	}
	if len(c.Score().HoldNotes) != 0 {
		t.Error("CutSelection() should delete the hold")
	}
	text, _ := mem.Get()
	if !strings.HasPrefix(text, clipboard.Marker) {
		t.Errorf("clipboard = %q, want a chart payload", text)
	}
	if desc, _ := c.History().PeekUndo(); desc != "Cut notes" {
		t.Errorf("PeekUndo() = %q, want %q", desc, "Cut notes")
	}
}

func TestInsert(t *testing.T) {
	c := New(Options{})

	if _, err := c.InsertNote(score.Note{Type: score.NoteTap, Lane: 10, Width: 3}); err == nil {
		t.Error("InsertNote() past the last lane should fail")
	}
	if _, err := c.InsertNote(score.Note{Type: score.NoteHoldMid, Width: 3}); err == nil {
		t.Error("InsertNote() of a hold mid should fail")
	}
	if c.History().Len() != 0 || len(c.Score().Notes) != 0 {
		t.Error("rejected inserts must leave no trace")
	}

	hold, err := c.InsertHold(true,
		score.HoldPoint{Tick: 0, Lane: 0, Width: 3},
		score.HoldPoint{Tick: 480, Lane: 2, Width: 3},
	)
	if err != nil {
		t.Fatalf("InsertHold() error = %v", err)
	}
	if got := c.Selection(); !reflect.DeepEqual(got, []int{hold.Start.ID, hold.End}) {
		t.Errorf("Selection() = %v, want the new hold", got)
	}
	assertValid(t, c)
}

func TestOpenSave(t *testing.T) {
	c := newTestContext(t)
	c.filename = ""
	if err := c.Save(""); err == nil {
		t.Error("Save() without a file name should fail")
	}

	path := filepath.Join(t.TempDir(), "chart.json")
	c.Select(tapID)
	c.ToggleCritical()
	if err := c.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if c.Dirty() {
		t.Error("Save() should clear the dirty flag")
	}

	other := New(Options{})
	if _, err := other.Open(path); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(other.Score().Notes) != 5 || !other.Score().Notes[tapID].Critical {
		t.Errorf("opened score has %d notes", len(other.Score().Notes))
	}
	if other.IDs().Peek() != 6 || other.Title() != "chart.json" {
		t.Errorf("Open() state: next ID %d, title %q", other.IDs().Peek(), other.Title())
	}
}
