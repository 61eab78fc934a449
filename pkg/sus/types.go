// Package sus provides the flat SUS interchange model and its text encoding
package sus

// DefaultTicksPerBeat is the SUS resolution unless a request overrides it
const DefaultTicksPerBeat = 480

// Note is a flat event; its meaning depends on the list it appears in
type Note struct {
	Tick  int
	Lane  int // raw lane, including the two-lane margin
	Width int
	Type  int
}

// BPM is a tempo change
type BPM struct {
	Tick int
	BPM  float64
}

// BarLength sets the number of beats per measure from Bar onward
type BarLength struct {
	Bar    int
	Length float64
}

// HiSpeed is a scroll speed change
type HiSpeed struct {
	Tick  int
	Speed float64
}

// Metadata holds free-form key/value pairs plus the numeric header fields
type Metadata struct {
	Data        map[string]string
	Requests    []string
	WaveOffset  float64 // seconds
	MovieOffset float64 // seconds
	BaseBPM     float64
}

// SUS is a complete flat chart
type SUS struct {
	Metadata     Metadata
	Taps         []Note
	Directionals []Note
	Slides       [][]Note
	BPMs         []BPM
	BarLengths   []BarLength
	HiSpeeds     []HiSpeed
}

// New creates an empty SUS with initialized metadata
func New() *SUS {
	return &SUS{Metadata: Metadata{Data: make(map[string]string)}}
}

// Slide point types
const (
	SlideStart     = 1
	SlideEnd       = 2
	SlideVisible   = 3
	SlideInvisible = 5
)
