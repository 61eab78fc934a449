package clipboard

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/tidwall/gjson"

	"github.com/james-see/chartwright/pkg/score"
)

func testScore(t *testing.T) (*score.Score, score.Note, score.HoldNote) {
	t.Helper()
	sc := score.New()
	ids := score.NewIDAllocator(1)

	tap, err := sc.AddNote(ids, score.Note{Type: score.NoteTap, Tick: 480, Lane: 1, Width: 2, Critical: true, Flick: score.FlickLeft})
	if err != nil {
		t.Fatalf("AddNote() error = %v", err)
	}
	hold, err := sc.AddHold(ids, true,
		score.HoldPoint{Tick: 960, Lane: 4, Width: 3, Ease: score.EaseOut},
		score.HoldPoint{Tick: 1200, Lane: 5, Width: 3, Step: score.StepSkip, Ease: score.EaseIn},
		score.HoldPoint{Tick: 1440, Lane: 6, Width: 3, Flick: score.FlickRight},
	)
	if err != nil {
		t.Fatalf("AddHold() error = %v", err)
	}
	return sc, tap, hold
}

func TestToDocument(t *testing.T) {
	sc, tap, hold := testScore(t)

	// selecting two members of the same hold copies it once
	doc, err := ToDocument(sc, []int{tap.ID, hold.Start.ID, hold.End, 999}, 480)
	if err != nil {
		t.Fatalf("ToDocument() error = %v", err)
	}

	if got := gjson.Get(doc, "notes.#").Int(); got != 1 {
		t.Errorf("notes = %d, want 1", got)
	}
	if got := gjson.Get(doc, "holds.#").Int(); got != 1 {
		t.Fatalf("holds = %d, want 1", got)
	}

	tests := []struct {
		path     string
		expected string
	}{
		{"notes.0.tick", "0"},
		{"notes.0.flick", "left"},
		{"notes.0.critical", "true"},
		{"notes.0.damage", "false"},
		{"holds.0.start.tick", "480"},
		{"holds.0.start.ease", "ease_out"},
		{"holds.0.steps.0.type", "skip"},
		{"holds.0.steps.0.ease", "ease_in"},
		{"holds.0.end.tick", "960"},
		{"holds.0.end.flick", "right"},
	}
	for _, tt := range tests {
		if got := gjson.Get(doc, tt.path).String(); got != tt.expected {
			t.Errorf("%s = %q, want %q", tt.path, got, tt.expected)
		}
	}

	if gjson.Get(doc, "holds.0.steps.0.critical").Exists() {
		t.Error("hold mids should not carry critical")
	}
	if gjson.Get(doc, "holds.0.start.flick").Exists() {
		t.Error("eased notes should not carry flick")
	}
}

func TestFromDocument(t *testing.T) {
	sc, tap, hold := testScore(t)
	doc, err := ToDocument(sc, []int{tap.ID, hold.Steps[0].ID}, 0)
	if err != nil {
		t.Fatalf("ToDocument() error = %v", err)
	}

	p, err := FromDocument(doc, false)
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}
	if p.Len() != 4 || len(p.Holds) != 1 {
		t.Fatalf("staged %d notes and %d holds, want 4 and 1", p.Len(), len(p.Holds))
	}

	ids := make(map[int]bool)
	for id := range p.Notes {
		ids[id] = true
	}
	for i := 0; i < 4; i++ {
		if !ids[i] {
			t.Errorf("local ID %d missing", i)
		}
	}

	for _, h := range p.Holds {
		if h.Start.Ease != score.EaseOut {
			t.Errorf("start ease = %v, want ease_out", h.Start.Ease)
		}
		if len(h.Steps) != 1 || h.Steps[0].Type != score.StepSkip || h.Steps[0].Ease != score.EaseIn {
			t.Errorf("steps = %+v", h.Steps)
		}
		mid := p.Notes[h.Steps[0].ID]
		if !mid.Critical || mid.ParentID != h.Start.ID {
			t.Errorf("mid = %+v, want critical child of %d", mid, h.Start.ID)
		}
		if end := p.Notes[h.End]; end.Flick != score.FlickRight || end.ParentID != h.Start.ID {
			t.Errorf("end = %+v", end)
		}
	}
}

func TestFromDocumentLegacyNames(t *testing.T) {
	doc := `{
		"notes": [{"tick": 0, "lane": 2, "flick": "UP"}, {"tick": 10, "lane": 3, "damage": true, "critical": true}],
		"holds": [{
			"start": {"tick": 0, "lane": 0, "ease": "none"},
			"steps": [
				{"tick": 10, "lane": 0, "type": "invisible", "ease": "in"},
				{"tick": 20, "lane": 0, "type": "ignored", "ease": "out"},
				{"tick": 30, "lane": 0, "type": "sideways", "ease": "bouncy"}
			],
			"end": {"tick": 40, "lane": 0}
		}]
	}`

	p, err := FromDocument(doc, false)
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}

	if n := p.Notes[0]; n.Flick != score.FlickDefault || n.Width != 3 {
		t.Errorf("note 0 = %+v, want default flick and width 3", n)
	}
	if n := p.Notes[1]; n.Type != score.NoteDamage {
		t.Errorf("note 1 type = %v, want damage", n.Type)
	}

	hold := p.Holds[2]
	if hold.Start.Ease != score.EaseLinear {
		t.Errorf("start ease = %v, want linear", hold.Start.Ease)
	}
	expected := []score.HoldStep{
		{Type: score.StepHidden, Ease: score.EaseIn},
		{Type: score.StepSkip, Ease: score.EaseOut},
		{Type: score.StepNormal, Ease: score.EaseLinear},
	}
	if len(hold.Steps) != len(expected) {
		t.Fatalf("steps = %d, want %d", len(hold.Steps), len(expected))
	}
	for i, want := range expected {
		got := hold.Steps[i]
		if got.Type != want.Type || got.Ease != want.Ease {
			t.Errorf("step %d = %v/%v, want %v/%v", i, got.Type, got.Ease, want.Type, want.Ease)
		}
	}
}

func TestFromDocumentFlipAndExtents(t *testing.T) {
	doc := `{"notes": [
		{"tick": 0, "lane": 1, "width": 2, "flick": "left"},
		{"tick": 0, "lane": 6, "width": 3, "flick": "right"}
	]}`

	p, err := FromDocument(doc, false)
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}
	// lanes 1..8 occupied
	if p.MinLaneOffset != -1 || p.MaxLaneOffset != 3 {
		t.Errorf("offsets = [%d, %d], want [-1, 3]", p.MinLaneOffset, p.MaxLaneOffset)
	}
	if p.MidLane != 4 {
		t.Errorf("MidLane = %d, want 4", p.MidLane)
	}

	flipped, err := FromDocument(doc, true)
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}
	if n := flipped.Notes[0]; n.Lane != 9 || n.Flick != score.FlickRight {
		t.Errorf("flipped note 0 = %+v, want lane 9 right flick", n)
	}
	if n := flipped.Notes[1]; n.Lane != 3 || n.Flick != score.FlickLeft {
		t.Errorf("flipped note 1 = %+v, want lane 3 left flick", n)
	}
}

func TestFlipIsAnInvolution(t *testing.T) {
	n := score.Note{Lane: 2, Width: 4, Flick: score.FlickLeft}
	if got := Flip(Flip(n)); got != n {
		t.Errorf("Flip(Flip(n)) = %+v, want %+v", got, n)
	}
}

func TestPayload(t *testing.T) {
	tests := []struct {
		name string
		text string
		ok   bool
	}{
		{"valid", EncodePayload(`{"notes":[{"tick":0}],"holds":[]}`), true},
		{"holds only", EncodePayload(`{"holds":[{"start":{}}]}`), true},
		{"no marker", `{"notes":[{"tick":0}]}`, false},
		{"invalid json", EncodePayload(`{"notes":[`), false},
		{"empty", EncodePayload(`{"notes":[],"holds":[]}`), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, ok := DecodePayload(tt.text)
			if ok != tt.ok {
				t.Fatalf("DecodePayload() ok = %v, want %v", ok, tt.ok)
			}
			if ok && !strings.HasPrefix(doc, "{") {
				t.Errorf("doc = %q, marker not stripped", doc)
			}
		})
	}
}

func TestProviders(t *testing.T) {
	mem := NewMemory()
	if err := mem.Set("hello"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := mem.Get(); got != "hello" {
		t.Errorf("Get() = %q, want %q", got, "hello")
	}

	var out bytes.Buffer
	term := NewTerminal(&out, osc52.DefaultMode)
	if err := term.Set("chart"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "\x1b]52;c;") {
		t.Errorf("terminal output = %q, want an OSC 52 sequence", out.String())
	}
	if got, _ := term.Get(); got != "chart" {
		t.Errorf("Get() = %q, want %q", got, "chart")
	}
}
