// Package converter provides conversion between SUS charts and the editable score model
package converter

import (
	"errors"
	"fmt"

	"github.com/james-see/chartwright/pkg/score"
)

// Lane offset between the SUS lane space and score lanes
const laneOffset = 2

// Sentinel lanes used by SUS for non-playable markers
const (
	skillLane = 0
	feverLane = 15
)

var (
	// ErrMissingMetadata is returned when a required SUS metadata key is absent
	ErrMissingMetadata = errors.New("missing required metadata")
	// ErrInvalidHold is returned for a slide without a start or an end point
	ErrInvalidHold = errors.New("invalid hold note")
	// ErrMissingNote is returned when a hold references a note that does not exist
	ErrMissingNote = errors.New("hold references a missing note")
)

// ConversionResult holds the result of a conversion
type ConversionResult struct {
	Data     []byte
	Filename string
	Format   Format
	Warnings []string
}

// Converter converts between SUS and scores for one open document
type Converter struct {
	ids         *score.IDAllocator
	midi        *MIDIExporter
	nextSkillID int
	warnings    []string
}

// New creates a Converter allocating note IDs from ids
func New(ids *score.IDAllocator) *Converter {
	if ids == nil {
		ids = score.NewIDAllocator(1)
	}
	return &Converter{ids: ids, midi: NewMIDIExporter(), nextSkillID: 1}
}

// SetMIDIExporter replaces the exporter used for MIDI output
func (c *Converter) SetMIDIExporter(m *MIDIExporter) {
	if m != nil {
		c.midi = m
	}
}

// IDs returns the allocator note IDs are drawn from
func (c *Converter) IDs() *score.IDAllocator {
	return c.ids
}

// Warnings returns the lossy decisions made by the last conversion
func (c *Converter) Warnings() []string {
	return append([]string(nil), c.warnings...)
}

func (c *Converter) warn(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}
