package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/james-see/chartwright/pkg/clipboard"
	"github.com/james-see/chartwright/pkg/config"
	"github.com/james-see/chartwright/pkg/converter"
	"github.com/james-see/chartwright/pkg/score"
)

// writeChart saves a small score document and an empty config into a temp dir
func writeChart(t *testing.T) (dir, chart, cfg string) {
	t.Helper()
	dir = t.TempDir()

	sc := score.New()
	sc.Metadata.Title = "Song"
	sc.Metadata.Artist = "Artist"
	sc.Metadata.Author = "Charter"
	ids := score.NewIDAllocator(1)
	if _, err := sc.AddNote(ids, score.Note{Type: score.NoteTap, Tick: 0, Lane: 2, Width: 3, Critical: true}); err != nil {
		t.Fatalf("AddNote() error = %v", err)
	}
	if _, err := sc.AddHold(ids, false,
		score.HoldPoint{Tick: 480, Lane: 0, Width: 4},
		score.HoldPoint{Tick: 960, Lane: 4, Width: 4},
	); err != nil {
		t.Fatalf("AddHold() error = %v", err)
	}

	chart = filepath.Join(dir, "chart.json")
	if err := converter.New(ids).SaveFile(sc, chart); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	cfg = filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfg, nil, 0644); err != nil {
		t.Fatal(err)
	}
	return dir, chart, cfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInfoFormats(t *testing.T) {
	_, chart, cfg := writeChart(t)

	tests := []struct {
		format string
		want   []string
	}{
		{"text", []string{"Title:    Song", "Holds:    1 holds"}},
		{"json", []string{`"title": "Song"`, `"holds": 1`}},
		{"yaml", []string{"title: Song", "holds: 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := execute(t, "info", chart, "--config", cfg, "--format", tt.format)
			if err != nil {
				t.Fatalf("info error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("info --format %s output missing %q:\n%s", tt.format, want, out)
				}
			}
		})
	}

	if _, err := execute(t, "info", chart, "--config", cfg, "--format", "xml"); err == nil {
		t.Error("info with an unknown format should fail")
	}
}

func TestConvertAndValidate(t *testing.T) {
	dir, chart, cfg := writeChart(t)
	sus := filepath.Join(dir, "chart.sus")

	if _, err := execute(t, "convert", chart, "-o", sus, "--config", cfg); err != nil {
		t.Fatalf("convert error = %v", err)
	}
	out, err := execute(t, "validate", sus, "--config", cfg)
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(out, "ok (3 notes, 1 holds)") {
		t.Errorf("validate output = %q", out)
	}

	mid := filepath.Join(dir, "preview.mid")
	if _, err := execute(t, "midi", sus, "-o", mid, "--config", cfg, "--base-key", "48"); err != nil {
		t.Fatalf("midi error = %v", err)
	}
	data, err := os.ReadFile(mid)
	if err != nil || !bytes.HasPrefix(data, []byte("MThd")) {
		t.Errorf("midi output is not a MIDI file: %v", err)
	}
}

func TestConfigCommand(t *testing.T) {
	_, _, cfg := writeChart(t)
	out, err := execute(t, "config", "--config", cfg)
	if err != nil {
		t.Fatalf("config error = %v", err)
	}
	if !strings.Contains(out, "max_history = 1000") {
		t.Errorf("config output missing defaults:\n%s", out)
	}
}

func TestClipboardProvider(t *testing.T) {
	tests := []struct {
		name     string
		terminal bool
	}{
		{config.ClipboardMemory, false},
		{config.ClipboardOSC52, true},
		{config.ClipboardTmux, true},
		{config.ClipboardScreen, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := clipboardProvider(tt.name).(*clipboard.Terminal)
			if ok != tt.terminal {
				t.Errorf("clipboardProvider(%q) terminal = %v, want %v", tt.name, ok, tt.terminal)
			}
		})
	}
}
