// Package score provides the editable chart model: notes, hold chains and timing data
package score

// Lane bounds and timing resolution
const (
	MinLane      = 0
	MaxLane      = 11
	TicksPerBeat = 480
)

// NoteType is the role a note plays in the chart
type NoteType int

const (
	NoteTap NoteType = iota
	NoteHold
	NoteHoldMid
	NoteHoldEnd
	NoteDamage
)

// FlickType is the release gesture attached to a non-eased note
type FlickType int

const (
	FlickNone FlickType = iota
	FlickDefault
	FlickLeft
	FlickRight
	flickTypeCount

	// CycleFlick advances the current flick to the next one
	CycleFlick FlickType = -1
)

// EaseType is the interpolation curve of a hold segment
type EaseType int

const (
	EaseLinear EaseType = iota
	EaseIn
	EaseOut
	easeTypeCount

	// CycleEase advances the current ease to the next one
	CycleEase EaseType = -1
)

// StepType controls how a hold step is displayed and judged
type StepType int

const (
	StepNormal StepType = iota
	StepHidden
	StepSkip
	stepTypeCount

	// CycleStep advances the current step type to the next one
	CycleStep StepType = -1
)

// Note is a single playable event
type Note struct {
	ID       int       `json:"id"`
	Type     NoteType  `json:"type"`
	Tick     int       `json:"tick"`
	Lane     int       `json:"lane"`
	Width    int       `json:"width"`
	Critical bool      `json:"critical"`
	Trace    bool      `json:"trace"`
	Flick    FlickType `json:"flick"`
	ParentID int       `json:"parentId"`
}

// NewNote creates a note of the given type with no parent
func NewNote(t NoteType) Note {
	return Note{Type: t, Width: 3, ParentID: -1}
}

// HasEase reports whether the note starts an eased hold segment
func (n Note) HasEase() bool {
	return n.Type == NoteHold || n.Type == NoteHoldMid
}

// IsFlick reports whether the note carries a flick
func (n Note) IsFlick() bool {
	return n.Flick != FlickNone && !n.HasEase()
}

// HoldStep references a hold member note with its segment attributes
type HoldStep struct {
	ID   int      `json:"id"`
	Type StepType `json:"type"`
	Ease EaseType `json:"ease"`
}

// HoldNote binds a hold chain together by note ID
type HoldNote struct {
	Start HoldStep   `json:"start"`
	Steps []HoldStep `json:"steps"`
	End   int        `json:"end"`
}

// Tempo is a BPM change
type Tempo struct {
	Tick int     `json:"tick"`
	BPM  float64 `json:"bpm"`
}

// TimeSignature applies from its measure onward
type TimeSignature struct {
	Measure     int `json:"measure"`
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// HiSpeedChange is a scroll speed change
type HiSpeedChange struct {
	Tick  int     `json:"tick"`
	Speed float64 `json:"speed"`
}

// SkillTrigger marks a skill activation point
type SkillTrigger struct {
	ID   int `json:"id"`
	Tick int `json:"tick"`
}

// Fever is the bonus window; -1 marks an unset bound
type Fever struct {
	StartTick int `json:"startTick"`
	EndTick   int `json:"endTick"`
}

// Metadata holds descriptive chart information
type Metadata struct {
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Author      string  `json:"author"`
	MusicFile   string  `json:"musicFile,omitempty"`
	JacketFile  string  `json:"jacketFile,omitempty"`
	MusicOffset float64 `json:"musicOffset"` // milliseconds
}
