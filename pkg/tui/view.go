package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/chartwright/pkg/score"
)

// Color scheme
var (
	accent    = lipgloss.Color("#33CCBB")
	critical  = lipgloss.Color("#FFCC33")
	damage    = lipgloss.Color("#FF5566")
	softGray  = lipgloss.Color("#C0C0C0")
	darkGray  = lipgloss.Color("#333333")
	mutedGray = lipgloss.Color("#666666")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	rowStyle = lipgloss.NewStyle().
			Foreground(softGray)

	cursorStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	criticalStyle = lipgloss.NewStyle().
			Foreground(critical)

	damageStyle = lipgloss.NewStyle().
			Foreground(damage)

	statusStyle = lipgloss.NewStyle().
			Foreground(critical).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
)

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" OPEN CHART "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to editor • q: quit"))

	return s.String()
}

func (m Model) viewLoading() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" LOADING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Loading %s...", m.spinner.View(), filepath.Base(m.loading)))

	return boxStyle.Render(s.String())
}

func (m Model) viewEditor() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" " + m.ctx.Title() + " "))
	s.WriteString("\n")
	s.WriteString(m.viewStats())
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(m.viewNotes()))
	s.WriteString("\n")

	if data := m.ctx.PasteData(); data != nil {
		s.WriteString(criticalStyle.Render(fmt.Sprintf("PASTE %d notes • lane %+d • tick %+d", data.Len(), m.pasteLane, m.pasteTick)))
		s.WriteString("\n")
	}

	switch {
	case m.err != nil:
		s.WriteString(errorStyle.Render("✗ " + m.err.Error()))
	case m.status != "":
		s.WriteString(statusStyle.Render(m.status))
	}
	for _, w := range m.warnings {
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("warning: " + w))
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return s.String()
}

func (m Model) viewStats() string {
	st := m.ctx.Stats()
	return rowStyle.Render(fmt.Sprintf(
		"taps %d  flicks %d  traces %d  holds %d  steps %d  damage %d  critical %d  combo %d  selected %d",
		st.Taps, st.Flicks, st.Traces, st.Holds, st.Steps, st.Damages, st.Criticals, st.Combo, m.ctx.SelectionLen(),
	))
}

func (m Model) viewNotes() string {
	sc := m.ctx.Score()
	ids := sc.SortedNoteIDs()
	if len(ids) == 0 {
		return rowStyle.Render("empty chart")
	}

	var s strings.Builder
	s.WriteString(rowStyle.Render(fmt.Sprintf("   %5s %-8s %7s %4s %5s %-8s %-8s", "id", "type", "tick", "lane", "width", "flick", "segment")))

	end := min(m.offset+m.listHeight(), len(ids))
	for i := m.offset; i < end; i++ {
		n := sc.Notes[ids[i]]

		mark := " "
		if m.ctx.IsSelected(n.ID) {
			mark = "●"
		}
		pointer := " "
		if i == m.cursor {
			pointer = "▸"
		}

		flick := ""
		if n.IsFlick() {
			flick = n.Flick.String()
		}
		line := fmt.Sprintf("%s%s %5d %-8s %7d %4d %5d %-8s %-8s",
			pointer, mark, n.ID, n.Type, n.Tick, n.Lane, n.Width, flick, segment(sc, n))

		style := rowStyle
		switch {
		case i == m.cursor:
			style = cursorStyle
		case n.Type == score.NoteDamage:
			style = damageStyle
		case n.Critical:
			style = criticalStyle
		}
		s.WriteString("\n")
		s.WriteString(style.Render(line))
	}
	return s.String()
}

// segment describes the hold segment a note starts
func segment(sc *score.Score, n score.Note) string {
	switch n.Type {
	case score.NoteHold:
		if hold, ok := sc.HoldNotes[n.ID]; ok {
			return hold.Start.Ease.String()
		}
	case score.NoteHoldMid:
		if hold, ok := sc.HoldNotes[n.ParentID]; ok {
			if i := score.FindHoldStep(hold, n.ID); i >= 0 {
				return hold.Steps[i].Type.String() + "/" + hold.Steps[i].Ease.String()
			}
		}
	}
	return ""
}
