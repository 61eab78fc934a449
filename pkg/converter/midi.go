package converter

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/chartwright/pkg/score"
)

// MIDI channels used by the preview export
const (
	channelNormal   uint8 = 0
	channelCritical uint8 = 1
	channelDamage   uint8 = 9
)

// MIDIExporter renders a score as a standard MIDI file for audition
type MIDIExporter struct {
	ticksPerQuarter uint16
	baseKey         uint8
	tapLength       int
}

// Default preview settings
const (
	DefaultBaseKey   = 60
	DefaultTapLength = score.TicksPerBeat / 4
)

// NewMIDIExporter creates a new MIDI exporter
func NewMIDIExporter() *MIDIExporter {
	return NewMIDIExporterWithOptions(DefaultBaseKey, DefaultTapLength)
}

// NewMIDIExporterWithOptions creates a MIDI exporter mapping lane 0 to
// baseKey and sounding taps for tapLength ticks
func NewMIDIExporterWithOptions(baseKey uint8, tapLength int) *MIDIExporter {
	if baseKey > 127-score.MaxLane {
		baseKey = 127 - score.MaxLane
	}
	if tapLength < 1 {
		tapLength = DefaultTapLength
	}
	return &MIDIExporter{
		ticksPerQuarter: score.TicksPerBeat,
		baseKey:         baseKey,
		tapLength:       tapLength,
	}
}

// midiEvent is a message at an absolute tick
type midiEvent struct {
	tick int
	rank int // meta, then note off, then note on
	msg  []byte
}

// GenerateMIDI creates MIDI data from a score
func (m *MIDIExporter) GenerateMIDI(sc *score.Score) ([]byte, error) {
	if sc == nil {
		return nil, errors.New("nil score")
	}

	var events []midiEvent

	tempos := sc.TempoChanges
	if len(tempos) == 0 {
		tempos = []score.Tempo{{Tick: 0, BPM: 120}}
	}
	for _, t := range tempos {
		if t.BPM <= 0 {
			continue
		}
		events = append(events, midiEvent{tick: t.Tick, msg: smf.MetaTempo(t.BPM)})
	}

	for measure, ts := range sc.TimeSignatures {
		if ts.Numerator <= 0 || ts.Denominator <= 0 || ts.Numerator > 255 || ts.Denominator > 255 {
			continue
		}
		events = append(events, midiEvent{
			tick: sc.MeasureToTick(measure),
			msg:  smf.MetaMeter(uint8(ts.Numerator), uint8(ts.Denominator)),
		})
	}

	note := func(n score.Note, length int) {
		channel := channelNormal
		if n.Critical {
			channel = channelCritical
		}
		velocity := uint8(100)
		switch {
		case n.Type == score.NoteDamage:
			channel = channelDamage
		case n.Trace:
			velocity = 64
		case n.IsFlick():
			velocity = 120
		}
		key := m.baseKey + uint8(n.Lane)
		events = append(events,
			midiEvent{tick: n.Tick, rank: 2, msg: midi.NoteOn(channel, key, velocity)},
			midiEvent{tick: n.Tick + length, rank: 1, msg: midi.NoteOff(channel, key)},
		)
	}

	for _, id := range sc.SortedNoteIDs() {
		n := sc.Notes[id]
		if n.Tick < 0 || n.Lane < score.MinLane || n.Lane > score.MaxLane {
			continue
		}
		switch n.Type {
		case score.NoteTap, score.NoteDamage:
			note(n, m.tapLength)
		case score.NoteHold:
			hold, ok := sc.HoldNotes[n.ID]
			if !ok {
				return nil, fmt.Errorf("%w: hold %d", ErrMissingNote, n.ID)
			}
			end, ok := sc.Notes[hold.End]
			if !ok {
				return nil, fmt.Errorf("%w: %d", ErrMissingNote, hold.End)
			}
			length := end.Tick - n.Tick
			if length < 1 {
				length = 1
			}
			note(n, length)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].rank < events[j].rank
	})

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(m.ticksPerQuarter)

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(sc.Metadata.Title))

	current := 0
	for _, ev := range events {
		track.Add(uint32(ev.tick-current), ev.msg)
		current = ev.tick
	}
	track.Close(0)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}
