package converter

import (
	"fmt"
	"math"
	"sort"

	"github.com/james-see/chartwright/pkg/score"
	"github.com/james-see/chartwright/pkg/sus"
)

// SUS tap type codes
const (
	tapNormal   = 1
	tapCritical = 2
	tapTrace    = 3 // step-ignore marker when it shares a slide point
	tapDamage   = 4 // skill trigger on the skill lane
)

// SUS directional type codes
const (
	dirFlickDefault = 1
	dirEaseIn       = 2
	dirFlickLeft    = 3
	dirFlickRight   = 4
	dirEaseOut      = 5
	dirEaseOutAlt   = 6
)

var flickCodes = map[score.FlickType]int{
	score.FlickDefault: dirFlickDefault,
	score.FlickLeft:    dirFlickLeft,
	score.FlickRight:   dirFlickRight,
}

// noteKey identifies SUS events sharing a tick and a raw lane
type noteKey struct {
	tick int
	lane int
}

func keyOf(n sus.Note) noteKey {
	return noteKey{tick: n.Tick, lane: n.Lane}
}

// BarLengthToFraction converts a bar length in beats to a time signature.
// ok is false when no power-of-two denominator fits and 4/4 is returned.
func BarLengthToFraction(length float64) (num, den int, ok bool) {
	factor := 1.0
	for i := 2; i < 10; i++ {
		if math.Mod(factor*length, 1) == 0 {
			return int(factor * length), 1 << i, true
		}
		factor *= 2
	}
	return 4, 4, false
}

// SUSToScore builds a score from a flat SUS chart
func (c *Converter) SUSToScore(s *sus.SUS) (*score.Score, error) {
	c.warnings = nil

	var metadata score.Metadata
	for _, key := range []string{"title", "artist", "designer"} {
		if _, ok := s.Metadata.Data[key]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingMetadata, key)
		}
	}
	metadata.Title = s.Metadata.Data["title"]
	metadata.Artist = s.Metadata.Data["artist"]
	metadata.Author = s.Metadata.Data["designer"]
	metadata.MusicOffset = s.Metadata.WaveOffset * 1000

	flicks := make(map[noteKey]score.FlickType)
	easeIns := make(map[noteKey]bool)
	easeOuts := make(map[noteKey]bool)
	criticals := make(map[noteKey]bool)
	stepIgnore := make(map[noteKey]bool)
	slideKeys := make(map[noteKey]bool)

	for _, slide := range s.Slides {
		for _, p := range slide {
			switch p.Type {
			case sus.SlideStart, sus.SlideEnd, sus.SlideVisible, sus.SlideInvisible:
				slideKeys[keyOf(p)] = true
			}
		}
	}

	for _, d := range s.Directionals {
		key := keyOf(d)
		switch d.Type {
		case dirFlickDefault:
			flicks[key] = score.FlickDefault
		case dirFlickLeft:
			flicks[key] = score.FlickLeft
		case dirFlickRight:
			flicks[key] = score.FlickRight
		case dirEaseIn:
			easeIns[key] = true
		case dirEaseOut, dirEaseOutAlt:
			easeOuts[key] = true
		}
	}

	for _, t := range s.Taps {
		switch t.Type {
		case tapCritical:
			criticals[keyOf(t)] = true
		case tapTrace:
			stepIgnore[keyOf(t)] = true
		}
	}

	sc := score.New()
	sc.Metadata = metadata
	sc.TempoChanges = nil
	sc.TimeSignatures = make(map[int]score.TimeSignature)

	tapKeys := make(map[noteKey]bool)
	for _, t := range s.Taps {
		if t.Lane == skillLane && t.Width == 1 && t.Type == tapDamage {
			sc.Skills = append(sc.Skills, score.SkillTrigger{ID: c.nextSkillID, Tick: t.Tick})
			c.nextSkillID++
			continue
		}
		if t.Lane == feverLane && t.Width == 1 {
			switch t.Type {
			case tapNormal:
				sc.Fever.StartTick = t.Tick
			case tapCritical:
				sc.Fever.EndTick = t.Tick
			}
			continue
		}

		lane := t.Lane - laneOffset
		if lane < score.MinLane || lane > score.MaxLane {
			c.warn("dropped tap at tick %d on lane %d outside the playable range", t.Tick, t.Lane)
			continue
		}

		key := keyOf(t)
		if slideKeys[key] || tapKeys[key] {
			continue
		}

		n := score.NewNote(score.NoteTap)
		switch {
		case stepIgnore[key]:
			// a trace is written as a code 3 tap plus a code 2 tap when critical
			n.Trace = true
			n.Critical = criticals[key]
		case t.Type == tapNormal || t.Type == tapCritical:
			n.Critical = t.Type == tapCritical
		case t.Type == tapDamage:
			n.Type = score.NoteDamage
		default:
			continue
		}

		tapKeys[key] = true
		n.ID = c.ids.Next()
		n.Tick, n.Lane, n.Width = t.Tick, lane, t.Width
		if n.Type == score.NoteTap {
			n.Flick = flicks[key]
		}
		sc.Notes[n.ID] = n
	}

	for i, slide := range s.Slides {
		if err := c.addSlide(sc, slide, flicks, easeIns, easeOuts, criticals, stepIgnore); err != nil {
			return nil, fmt.Errorf("slide %d: %w", i, err)
		}
	}

	for _, bpm := range s.BPMs {
		sc.TempoChanges = append(sc.TempoChanges, score.Tempo{Tick: bpm.Tick, BPM: bpm.BPM})
	}

	for _, bar := range s.BarLengths {
		num, den, ok := BarLengthToFraction(bar.Length)
		if !ok {
			c.warn("bar length %v at measure %d has no exact time signature, using 4/4", bar.Length, bar.Bar)
		}
		sc.TimeSignatures[bar.Bar] = score.TimeSignature{Measure: bar.Bar, Numerator: num, Denominator: den}
	}

	for _, hs := range s.HiSpeeds {
		sc.HiSpeedChanges = append(sc.HiSpeedChanges, score.HiSpeedChange{Tick: hs.Tick, Speed: hs.Speed})
	}

	return sc, nil
}

func (c *Converter) addSlide(sc *score.Score, slide []sus.Note, flicks map[noteKey]score.FlickType,
	easeIns, easeOuts, criticals, stepIgnore map[noteKey]bool) error {
	if len(slide) == 0 {
		return ErrInvalidHold
	}

	critical := criticals[keyOf(slide[0])]
	startID := c.ids.Next()
	var hold score.HoldNote
	hasStart, hasEnd := false, false

	for _, p := range slide {
		key := keyOf(p)
		ease := score.EaseLinear
		if easeIns[key] {
			ease = score.EaseIn
		} else if easeOuts[key] {
			ease = score.EaseOut
		}

		mk := func(t score.NoteType) score.Note {
			n := score.NewNote(t)
			n.Tick, n.Lane, n.Width = p.Tick, p.Lane-laneOffset, p.Width
			n.Critical = critical
			n.ParentID = startID
			return n
		}

		switch p.Type {
		case sus.SlideStart:
			if hasStart {
				return fmt.Errorf("%w: second start at tick %d", ErrInvalidHold, p.Tick)
			}
			n := mk(score.NoteHold)
			n.ID, n.ParentID = startID, -1
			sc.Notes[n.ID] = n
			hold.Start = score.HoldStep{ID: n.ID, Type: score.StepNormal, Ease: ease}
			hasStart = true
		case sus.SlideEnd:
			if hasEnd {
				return fmt.Errorf("%w: second end at tick %d", ErrInvalidHold, p.Tick)
			}
			n := mk(score.NoteHoldEnd)
			n.ID = c.ids.Next()
			n.Critical = critical || criticals[key]
			n.Flick = flicks[key]
			sc.Notes[n.ID] = n
			hold.End = n.ID
			hasEnd = true
		case sus.SlideVisible, sus.SlideInvisible:
			n := mk(score.NoteHoldMid)
			n.ID = c.ids.Next()
			step := score.StepNormal
			if p.Type == sus.SlideInvisible {
				step = score.StepHidden
			}
			if stepIgnore[key] {
				step = score.StepSkip
			}
			sc.Notes[n.ID] = n
			hold.Steps = append(hold.Steps, score.HoldStep{ID: n.ID, Type: step, Ease: ease})
		}
	}

	if !hasStart || !hasEnd {
		// drop the partial chain so the score stays consistent
		delete(sc.Notes, startID)
		for _, step := range hold.Steps {
			delete(sc.Notes, step.ID)
		}
		if hasEnd {
			delete(sc.Notes, hold.End)
		}
		return fmt.Errorf("%w: slide needs a start and an end", ErrInvalidHold)
	}

	sc.HoldNotes[startID] = hold
	sc.SortHoldSteps(startID)

	end := sc.Notes[hold.End]
	if end.Critical && !end.IsFlick() {
		setCritical(sc, startID, true)
		for _, step := range hold.Steps {
			setCritical(sc, step.ID, true)
		}
	}
	return nil
}

func setCritical(sc *score.Score, id int, critical bool) {
	if n, ok := sc.Notes[id]; ok {
		n.Critical = critical
		sc.Notes[id] = n
	}
}

// ScoreToSUS flattens a score into SUS events
func (c *Converter) ScoreToSUS(sc *score.Score) (*sus.SUS, error) {
	c.warnings = nil
	out := sus.New()

	ids := make([]int, 0, len(sc.Notes))
	for id := range sc.Notes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		n := sc.Notes[id]
		at := func(typ int) sus.Note {
			return sus.Note{Tick: n.Tick, Lane: n.Lane + laneOffset, Width: n.Width, Type: typ}
		}
		switch n.Type {
		case score.NoteTap:
			code := tapNormal
			if n.Critical {
				code = tapCritical
			}
			if n.Trace {
				code = tapTrace
			}
			out.Taps = append(out.Taps, at(code))
			if n.IsFlick() {
				out.Directionals = append(out.Directionals, at(flickCodes[n.Flick]))
			}
			if n.Trace && n.Critical {
				out.Taps = append(out.Taps, at(tapCritical))
			}
		case score.NoteDamage:
			out.Taps = append(out.Taps, at(tapDamage))
		}
	}

	for _, holdID := range sc.SortedHoldIDs() {
		hold := sc.HoldNotes[holdID]
		slide, err := c.flattenHold(sc, hold, out)
		if err != nil {
			return nil, fmt.Errorf("hold %d: %w", holdID, err)
		}
		out.Slides = append(out.Slides, slide)
	}

	for _, skill := range sc.Skills {
		out.Taps = append(out.Taps, sus.Note{Tick: skill.Tick, Lane: skillLane, Width: 1, Type: tapDamage})
	}
	if sc.Fever.StartTick != -1 {
		out.Taps = append(out.Taps, sus.Note{Tick: sc.Fever.StartTick, Lane: feverLane, Width: 1, Type: tapNormal})
	}
	if sc.Fever.EndTick != -1 {
		out.Taps = append(out.Taps, sus.Note{Tick: sc.Fever.EndTick, Lane: feverLane, Width: 1, Type: tapCritical})
	}

	for _, t := range sc.TempoChanges {
		out.BPMs = append(out.BPMs, sus.BPM{Tick: t.Tick, BPM: t.BPM})
	}
	if len(out.BPMs) == 0 {
		out.BPMs = append(out.BPMs, sus.BPM{Tick: 0, BPM: 120})
	}

	measures := make([]int, 0, len(sc.TimeSignatures))
	for m := range sc.TimeSignatures {
		measures = append(measures, m)
	}
	sort.Ints(measures)
	for _, m := range measures {
		ts := sc.TimeSignatures[m]
		if ts.Denominator <= 0 {
			c.warn("time signature at measure %d has no denominator, skipped", m)
			continue
		}
		length := float64(ts.Numerator) / float64(ts.Denominator) * 4
		out.BarLengths = append(out.BarLengths, sus.BarLength{Bar: ts.Measure, Length: length})
	}

	for _, hs := range sc.HiSpeedChanges {
		out.HiSpeeds = append(out.HiSpeeds, sus.HiSpeed{Tick: hs.Tick, Speed: hs.Speed})
	}

	out.Metadata.Data["title"] = sc.Metadata.Title
	out.Metadata.Data["artist"] = sc.Metadata.Artist
	out.Metadata.Data["designer"] = sc.Metadata.Author
	out.Metadata.Requests = append(out.Metadata.Requests, fmt.Sprintf("ticks_per_beat %d", score.TicksPerBeat))
	out.Metadata.WaveOffset = sc.Metadata.MusicOffset / 1000

	return out, nil
}

// flattenHold returns the slide points of hold and appends its marker events to out
func (c *Converter) flattenHold(sc *score.Score, hold score.HoldNote, out *sus.SUS) ([]sus.Note, error) {
	lookup := func(id int) (score.Note, error) {
		n, ok := sc.Notes[id]
		if !ok {
			return score.Note{}, fmt.Errorf("%w: %d", ErrMissingNote, id)
		}
		return n, nil
	}
	at := func(n score.Note, typ int) sus.Note {
		return sus.Note{Tick: n.Tick, Lane: n.Lane + laneOffset, Width: n.Width, Type: typ}
	}
	easeCode := func(e score.EaseType) int {
		if e == score.EaseIn {
			return dirEaseIn
		}
		return dirEaseOutAlt
	}

	slide := make([]sus.Note, 0, len(hold.Steps)+2)

	start, err := lookup(hold.Start.ID)
	if err != nil {
		return nil, err
	}
	slide = append(slide, at(start, sus.SlideStart))
	if hold.Start.Ease != score.EaseLinear {
		// ease is signalled by a directional on a coincident tap
		out.Taps = append(out.Taps, at(start, tapNormal))
		out.Directionals = append(out.Directionals, at(start, easeCode(hold.Start.Ease)))
	}
	if start.Critical {
		out.Taps = append(out.Taps, at(start, tapCritical))
	}

	for _, step := range hold.Steps {
		mid, err := lookup(step.ID)
		if err != nil {
			return nil, err
		}
		typ := sus.SlideVisible
		if step.Type == score.StepHidden {
			typ = sus.SlideInvisible
		}
		slide = append(slide, at(mid, typ))
		if step.Type == score.StepSkip {
			out.Taps = append(out.Taps, at(mid, tapTrace))
		} else if step.Ease != score.EaseLinear {
			out.Taps = append(out.Taps, at(mid, tapNormal))
			out.Directionals = append(out.Directionals, at(mid, easeCode(step.Ease)))
		}
	}

	end, err := lookup(hold.End)
	if err != nil {
		return nil, err
	}
	slide = append(slide, at(end, sus.SlideEnd))
	if end.IsFlick() {
		out.Directionals = append(out.Directionals, at(end, flickCodes[end.Flick]))
		if end.Critical {
			out.Taps = append(out.Taps, at(end, tapCritical))
		}
	}
	return slide, nil
}
