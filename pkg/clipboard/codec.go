// Package clipboard converts note selections to and from a portable text document
package clipboard

import (
	"errors"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/james-see/chartwright/pkg/score"
)

// ErrInvalidDocument is returned when a document is not valid JSON
var ErrInvalidDocument = errors.New("clipboard: invalid document")

// Legacy and alternate spellings accepted on decode
var (
	flickAliases = map[string]score.FlickType{
		"up": score.FlickDefault,
	}
	easeAliases = map[string]score.EaseType{
		"none":    score.EaseLinear,
		"in":      score.EaseIn,
		"out":     score.EaseOut,
		"easein":  score.EaseIn,
		"easeout": score.EaseOut,
	}
	stepAliases = map[string]score.StepType{
		"invisible": score.StepHidden,
		"ignored":   score.StepSkip,
	}
)

// PasteData is a decoded document staged for insertion.
// IDs are local, starting at 0, and are offset when merged into a score.
type PasteData struct {
	Notes map[int]score.Note
	Holds map[int]score.HoldNote

	// MinLaneOffset and MaxLaneOffset bound a lane offset that keeps every note in range
	MinLaneOffset int
	MaxLaneOffset int
	// MidLane is the lane under the middle of the pasted notes
	MidLane int
}

// Len returns the number of staged notes
func (p *PasteData) Len() int {
	return len(p.Notes)
}

// ToDocument serializes the selected notes with ticks relative to baseTick.
// Selecting any member of a hold copies the whole hold.
func ToDocument(sc *score.Score, selection []int, baseTick int) (string, error) {
	noteIDs := make(map[int]bool)
	holdIDs := make(map[int]bool)
	for _, id := range selection {
		n, ok := sc.Notes[id]
		if !ok {
			continue
		}
		switch n.Type {
		case score.NoteTap, score.NoteDamage:
			noteIDs[id] = true
		default:
			if holdID, ok := score.HoldID(n); ok {
				if _, exists := sc.HoldNotes[holdID]; exists {
					holdIDs[holdID] = true
				}
			}
		}
	}

	doc := `{"notes":[],"holds":[]}`

	for _, id := range sortedKeys(noteIDs) {
		obj, err := noteObject(sc.Notes[id], baseTick)
		if err != nil {
			return "", err
		}
		if doc, err = sjson.SetRaw(doc, "notes.-1", obj); err != nil {
			return "", err
		}
	}

	for _, id := range sortedKeys(holdIDs) {
		hold := sc.HoldNotes[id]

		start, err := noteObject(sc.Notes[hold.Start.ID], baseTick)
		if err != nil {
			return "", err
		}
		if start, err = sjson.Set(start, "ease", hold.Start.Ease.String()); err != nil {
			return "", err
		}

		obj := `{"steps":[]}`
		if obj, err = sjson.SetRaw(obj, "start", start); err != nil {
			return "", err
		}
		for _, step := range hold.Steps {
			mid, err := noteObject(sc.Notes[step.ID], baseTick)
			if err != nil {
				return "", err
			}
			if mid, err = sjson.Set(mid, "type", step.Type.String()); err != nil {
				return "", err
			}
			if mid, err = sjson.Set(mid, "ease", step.Ease.String()); err != nil {
				return "", err
			}
			if obj, err = sjson.SetRaw(obj, "steps.-1", mid); err != nil {
				return "", err
			}
		}

		end, err := noteObject(sc.Notes[hold.End], baseTick)
		if err != nil {
			return "", err
		}
		if obj, err = sjson.SetRaw(obj, "end", end); err != nil {
			return "", err
		}
		if doc, err = sjson.SetRaw(doc, "holds.-1", obj); err != nil {
			return "", err
		}
	}
	return doc, nil
}

func noteObject(n score.Note, baseTick int) (string, error) {
	fields := []struct {
		key   string
		value any
		skip  bool
	}{
		{key: "tick", value: n.Tick - baseTick},
		{key: "lane", value: n.Lane},
		{key: "width", value: n.Width},
		{key: "critical", value: n.Critical, skip: n.Type == score.NoteHoldMid},
		{key: "trace", value: n.Trace},
		{key: "damage", value: n.Type == score.NoteDamage},
		{key: "flick", value: n.Flick.String(), skip: n.HasEase()},
	}

	obj := "{}"
	for _, f := range fields {
		if f.skip {
			continue
		}
		var err error
		if obj, err = sjson.Set(obj, f.key, f.value); err != nil {
			return "", err
		}
	}
	return obj, nil
}

// FromDocument decodes a document into staged notes with local IDs.
// When flip is set, lanes are mirrored and left and right flicks swapped.
func FromDocument(doc string, flip bool) (*PasteData, error) {
	if !gjson.Valid(doc) {
		return nil, ErrInvalidDocument
	}

	p := &PasteData{
		Notes: make(map[int]score.Note),
		Holds: make(map[int]score.HoldNote),
	}
	nextID := 0
	add := func(n score.Note) score.Note {
		n.ID = nextID
		nextID++
		p.Notes[n.ID] = n
		return n
	}

	root := gjson.Parse(doc)
	for _, entry := range root.Get("notes").Array() {
		typ := score.NoteTap
		if entry.Get("damage").Bool() {
			typ = score.NoteDamage
		}
		add(noteFromJSON(entry, typ))
	}

	for _, entry := range root.Get("holds").Array() {
		startJSON := entry.Get("start")
		start := add(noteFromJSON(startJSON, score.NoteHold))

		end := noteFromJSON(entry.Get("end"), score.NoteHoldEnd)
		end.ParentID = start.ID
		end = add(end)

		hold := score.HoldNote{
			Start: score.HoldStep{ID: start.ID, Type: score.StepNormal, Ease: parseEase(startJSON.Get("ease").String())},
			End:   end.ID,
		}

		for _, stepJSON := range entry.Get("steps").Array() {
			mid := noteFromJSON(stepJSON, score.NoteHoldMid)
			mid.Critical = start.Critical
			mid.ParentID = start.ID
			mid = add(mid)
			hold.Steps = append(hold.Steps, score.HoldStep{
				ID:   mid.ID,
				Type: parseStep(stepJSON.Get("type").String()),
				Ease: parseEase(stepJSON.Get("ease").String()),
			})
		}
		p.Holds[hold.Start.ID] = hold
	}

	if flip {
		for id, n := range p.Notes {
			p.Notes[id] = Flip(n)
		}
	}

	p.computeExtents()
	return p, nil
}

func noteFromJSON(r gjson.Result, typ score.NoteType) score.Note {
	n := score.NewNote(typ)
	n.Tick = int(r.Get("tick").Int())
	n.Lane = int(r.Get("lane").Int())
	if w := r.Get("width"); w.Exists() {
		n.Width = int(w.Int())
	}
	if c := r.Get("critical"); typ != score.NoteHoldMid && c.Exists() {
		n.Critical = c.Bool()
	}
	n.Trace = r.Get("trace").Bool()
	if !n.HasEase() {
		n.Flick = parseFlick(r.Get("flick").String())
	}
	return n
}

func (p *PasteData) computeExtents() {
	left, right := score.MaxLane, score.MinLane
	leftmost, rightmost := score.MaxLane, score.MinLane
	for _, n := range p.Notes {
		leftmost = min(leftmost, n.Lane)
		rightmost = max(rightmost, n.Lane+n.Width-1)
		left = min(left, n.Lane+n.Width)
		right = max(right, n.Lane)
	}
	p.MinLaneOffset = score.MinLane - leftmost
	p.MaxLaneOffset = score.MaxLane - rightmost
	p.MidLane = (left + right) / 2
}

// Flip mirrors a note across the lane range and swaps left and right flicks
func Flip(n score.Note) score.Note {
	n.Lane = score.MaxLane - n.Lane - n.Width + 1
	switch n.Flick {
	case score.FlickLeft:
		n.Flick = score.FlickRight
	case score.FlickRight:
		n.Flick = score.FlickLeft
	}
	return n
}

func parseFlick(s string) score.FlickType {
	s = strings.ToLower(s)
	if f, ok := score.ParseFlickType(s); ok {
		return f
	}
	return flickAliases[s]
}

func parseEase(s string) score.EaseType {
	s = strings.ToLower(s)
	if e, ok := score.ParseEaseType(s); ok {
		return e
	}
	return easeAliases[s]
}

func parseStep(s string) score.StepType {
	s = strings.ToLower(s)
	if st, ok := score.ParseStepType(s); ok {
		return st
	}
	return stepAliases[s]
}

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
