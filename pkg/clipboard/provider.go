package clipboard

import (
	"fmt"
	"io"
	"sync"

	"github.com/aymanbagabas/go-osc52/v2"
)

// Provider abstracts system clipboard access
type Provider interface {
	// Get returns the current clipboard content
	Get() (string, error)

	// Set sets the clipboard content
	Set(text string) error
}

// Memory is an in-process clipboard
type Memory struct {
	mu   sync.Mutex
	text string
}

// NewMemory creates an empty in-process clipboard
func NewMemory() *Memory {
	return &Memory{}
}

// Get returns the stored text
func (m *Memory) Get() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

// Set stores text
func (m *Memory) Set(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}

// Terminal copies to the host terminal's clipboard with OSC 52 escape
// sequences. Terminals rarely allow reading the clipboard back, so Get
// returns the last text set through this provider.
type Terminal struct {
	Memory
	out  io.Writer
	mode osc52.Mode
}

// NewTerminal creates a Terminal provider writing escape sequences to out.
// mode selects plain, tmux or screen passthrough.
func NewTerminal(out io.Writer, mode osc52.Mode) *Terminal {
	return &Terminal{out: out, mode: mode}
}

// Set stores text and sends it to the terminal clipboard
func (t *Terminal) Set(text string) error {
	if err := t.Memory.Set(text); err != nil {
		return err
	}
	seq := osc52.New(text).Mode(t.mode)
	if _, err := seq.WriteTo(t.out); err != nil {
		return fmt.Errorf("failed to write clipboard sequence: %w", err)
	}
	return nil
}
