package score

// Stats are counts derived from a score
type Stats struct {
	Taps      int `json:"taps" yaml:"taps"`
	Flicks    int `json:"flicks" yaml:"flicks"`
	Traces    int `json:"traces" yaml:"traces"`
	Damages   int `json:"damages" yaml:"damages"`
	Holds     int `json:"holds" yaml:"holds"`
	Steps     int `json:"steps" yaml:"steps"`
	Criticals int `json:"criticals" yaml:"criticals"`
	Combo     int `json:"combo" yaml:"combo"`
}

// CalculateStats counts notes by role; only normal steps add combo among hold steps
func CalculateStats(s *Score) Stats {
	var st Stats
	for _, n := range s.Notes {
		if n.Critical && n.Type != NoteDamage {
			st.Criticals++
		}
		switch n.Type {
		case NoteTap:
			switch {
			case n.IsFlick():
				st.Flicks++
			case n.Trace:
				st.Traces++
			default:
				st.Taps++
			}
			st.Combo++
		case NoteDamage:
			st.Damages++
		case NoteHoldEnd:
			if n.IsFlick() {
				st.Flicks++
			}
		}
	}
	for _, h := range s.HoldNotes {
		st.Holds++
		st.Combo += 2
		for _, step := range h.Steps {
			st.Steps++
			if step.Type == StepNormal {
				st.Combo++
			}
		}
	}
	return st
}
