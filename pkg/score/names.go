package score

import "fmt"

var (
	noteTypeNames  = []string{"tap", "hold", "hold_mid", "hold_end", "damage"}
	flickTypeNames = []string{"none", "default", "left", "right"}
	easeTypeNames  = []string{"linear", "ease_in", "ease_out"}
	stepTypeNames  = []string{"normal", "hidden", "skip"}
)

func nameOf(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("unknown(%d)", i)
	}
	return names[i]
}

func indexOf(names []string, s string) int {
	for i, name := range names {
		if name == s {
			return i
		}
	}
	return -1
}

// FlickTypeNames returns the canonical flick names in enum order
func FlickTypeNames() []string { return append([]string(nil), flickTypeNames...) }

// EaseTypeNames returns the canonical ease names in enum order
func EaseTypeNames() []string { return append([]string(nil), easeTypeNames...) }

// StepTypeNames returns the canonical step type names in enum order
func StepTypeNames() []string { return append([]string(nil), stepTypeNames...) }

func (t NoteType) String() string  { return nameOf(noteTypeNames, int(t)) }
func (f FlickType) String() string { return nameOf(flickTypeNames, int(f)) }
func (e EaseType) String() string  { return nameOf(easeTypeNames, int(e)) }
func (s StepType) String() string  { return nameOf(stepTypeNames, int(s)) }

// Next returns the following flick type, wrapping around
func (f FlickType) Next() FlickType { return (f + 1) % flickTypeCount }

// Next returns the following ease type, wrapping around
func (e EaseType) Next() EaseType { return (e + 1) % easeTypeCount }

// Next returns the following step type, wrapping around
func (s StepType) Next() StepType { return (s + 1) % stepTypeCount }

// ParseFlickType looks up a canonical flick name
func ParseFlickType(s string) (FlickType, bool) {
	i := indexOf(flickTypeNames, s)
	return FlickType(i), i >= 0
}

// ParseEaseType looks up a canonical ease name
func ParseEaseType(s string) (EaseType, bool) {
	i := indexOf(easeTypeNames, s)
	return EaseType(i), i >= 0
}

// ParseStepType looks up a canonical step type name
func ParseStepType(s string) (StepType, bool) {
	i := indexOf(stepTypeNames, s)
	return StepType(i), i >= 0
}

func unmarshalName(names []string, kind string, text []byte) (int, error) {
	i := indexOf(names, string(text))
	if i < 0 {
		return 0, fmt.Errorf("unknown %s %q", kind, text)
	}
	return i, nil
}

func (t NoteType) MarshalText() ([]byte, error)  { return []byte(t.String()), nil }
func (f FlickType) MarshalText() ([]byte, error) { return []byte(f.String()), nil }
func (e EaseType) MarshalText() ([]byte, error)  { return []byte(e.String()), nil }
func (s StepType) MarshalText() ([]byte, error)  { return []byte(s.String()), nil }

func (t *NoteType) UnmarshalText(text []byte) error {
	i, err := unmarshalName(noteTypeNames, "note type", text)
	*t = NoteType(i)
	return err
}

func (f *FlickType) UnmarshalText(text []byte) error {
	i, err := unmarshalName(flickTypeNames, "flick type", text)
	*f = FlickType(i)
	return err
}

func (e *EaseType) UnmarshalText(text []byte) error {
	i, err := unmarshalName(easeTypeNames, "ease type", text)
	*e = EaseType(i)
	return err
}

func (s *StepType) UnmarshalText(text []byte) error {
	i, err := unmarshalName(stepTypeNames, "step type", text)
	*s = StepType(i)
	return err
}
