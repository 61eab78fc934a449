package sus

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func sampleSUS() *SUS {
	s := New()
	s.Metadata.Data["title"] = "Test Song"
	s.Metadata.Data["artist"] = "Someone"
	s.Metadata.Requests = []string{"ticks_per_beat 480"}
	s.Metadata.WaveOffset = 0.25
	s.BarLengths = []BarLength{{Bar: 0, Length: 4}}
	s.BPMs = []BPM{{Tick: 0, BPM: 120}, {Tick: 1920, BPM: 180}}
	s.Taps = []Note{
		{Tick: 0, Lane: 2, Width: 3, Type: 1},
		{Tick: 480, Lane: 4, Width: 2, Type: 2},
	}
	s.Directionals = []Note{{Tick: 960, Lane: 6, Width: 3, Type: 1}}
	s.Slides = [][]Note{
		{
			{Tick: 0, Lane: 2, Width: 3, Type: SlideStart},
			{Tick: 240, Lane: 3, Width: 3, Type: SlideVisible},
			{Tick: 480, Lane: 4, Width: 3, Type: SlideEnd},
		},
		{
			{Tick: 0, Lane: 8, Width: 2, Type: SlideStart},
			{Tick: 480, Lane: 8, Width: 2, Type: SlideEnd},
		},
	}
	s.HiSpeeds = []HiSpeed{{Tick: 960, Speed: 1.5}}
	return s
}

func TestWriteParseRoundtrip(t *testing.T) {
	in := sampleSUS()

	var buf bytes.Buffer
	if err := Write(&buf, in); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := out.Metadata.Data["title"]; got != "Test Song" {
		t.Errorf("title = %q, want %q", got, "Test Song")
	}
	if out.Metadata.WaveOffset != 0.25 {
		t.Errorf("WaveOffset = %v, want 0.25", out.Metadata.WaveOffset)
	}
	if !reflect.DeepEqual(out.Metadata.Requests, in.Metadata.Requests) {
		t.Errorf("Requests = %v, want %v", out.Metadata.Requests, in.Metadata.Requests)
	}
	if !reflect.DeepEqual(out.Taps, in.Taps) {
		t.Errorf("Taps = %v, want %v", out.Taps, in.Taps)
	}
	if !reflect.DeepEqual(out.Directionals, in.Directionals) {
		t.Errorf("Directionals = %v, want %v", out.Directionals, in.Directionals)
	}
	if !reflect.DeepEqual(out.Slides, in.Slides) {
		t.Errorf("Slides = %v, want %v", out.Slides, in.Slides)
	}
	if !reflect.DeepEqual(out.BPMs, in.BPMs) {
		t.Errorf("BPMs = %v, want %v", out.BPMs, in.BPMs)
	}
	if !reflect.DeepEqual(out.HiSpeeds, in.HiSpeeds) {
		t.Errorf("HiSpeeds = %v, want %v", out.HiSpeeds, in.HiSpeeds)
	}
}

func TestWriteQuotesMetadata(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{"plain", "Song", "Song"},
		{"quotes", `Say "hi"`, `Say "hi"`},
		{"trailing quote", `ends with "`, `ends with "`},
		{"backslash", `C:\music\song.ogg`, `C:\music\song.ogg`},
		{"line break", "two\nlines", "two lines"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := New()
			in.Metadata.Data["title"] = tt.value

			var buf bytes.Buffer
			if err := Write(&buf, in); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			out, err := Parse(&buf)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := out.Metadata.Data["title"]; got != tt.expected {
				t.Errorf("title = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWriteCoincidentNotes(t *testing.T) {
	s := New()
	s.Taps = []Note{
		{Tick: 480, Lane: 5, Width: 3, Type: 1},
		{Tick: 480, Lane: 5, Width: 3, Type: 2},
	}

	var buf bytes.Buffer
	if err := Write(&buf, s); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := strings.Count(buf.String(), "#00015:"); got != 2 {
		t.Errorf("lines for lane 5 = %d, want 2\n%s", got, buf.String())
	}

	out, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(out.Taps) != 2 {
		t.Errorf("Taps = %d, want 2", len(out.Taps))
	}
}

func TestWriteRejectsNegativeTicks(t *testing.T) {
	s := New()
	s.Taps = []Note{{Tick: -1, Lane: 2, Width: 3, Type: 1}}

	if err := Write(&bytes.Buffer{}, s); err == nil {
		t.Error("Write() should reject a negative tick")
	}
}

func TestWriteSlideChannels(t *testing.T) {
	s := New()
	for i := 0; i < 37; i++ {
		s.Slides = append(s.Slides, []Note{
			{Tick: 0, Lane: 2, Width: 3, Type: SlideStart},
			{Tick: 1920, Lane: 2, Width: 3, Type: SlideEnd},
		})
	}
	if err := Write(&bytes.Buffer{}, s); !errors.Is(err, ErrTooManySlides) {
		t.Errorf("Write() error = %v, want ErrTooManySlides", err)
	}

	// a slide that starts after another ends reuses its channel
	s.Slides = [][]Note{
		{{Tick: 0, Lane: 2, Width: 3, Type: SlideStart}, {Tick: 480, Lane: 2, Width: 3, Type: SlideEnd}},
		{{Tick: 960, Lane: 4, Width: 3, Type: SlideStart}, {Tick: 1440, Lane: 4, Width: 3, Type: SlideEnd}},
	}
	var buf bytes.Buffer
	if err := Write(&buf, s); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if strings.Contains(buf.String(), "#000341:") {
		t.Errorf("second slide should reuse channel 0\n%s", buf.String())
	}
}

func TestParse(t *testing.T) {
	input := "\ufeff#TITLE \"Song\"\n" +
		"#WAVEOFFSET 0.5\n" +
		"#BPM01: 150\n" +
		"#00008: 01\n" +
		"#00002: 3\n" +
		"#00012: 1300\n" +
		"#00055: 0013\n" +
		"#00030a: 13002300\n" +
		"comment line\n"

	s, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if s.Metadata.Data["title"] != "Song" {
		t.Errorf("title = %q, want %q", s.Metadata.Data["title"], "Song")
	}
	if len(s.BPMs) != 1 || s.BPMs[0].BPM != 150 {
		t.Errorf("BPMs = %v", s.BPMs)
	}

	expectedTaps := []Note{{Tick: 0, Lane: 2, Width: 3, Type: 1}}
	if !reflect.DeepEqual(s.Taps, expectedTaps) {
		t.Errorf("Taps = %v, want %v", s.Taps, expectedTaps)
	}

	// bar 0 is three beats long: the second half starts at tick 720
	expectedDirs := []Note{{Tick: 720, Lane: 5, Width: 3, Type: 1}}
	if !reflect.DeepEqual(s.Directionals, expectedDirs) {
		t.Errorf("Directionals = %v, want %v", s.Directionals, expectedDirs)
	}

	if len(s.Slides) != 1 || len(s.Slides[0]) != 2 {
		t.Fatalf("Slides = %v, want one slide of two points", s.Slides)
	}
	if s.Slides[0][1].Tick != 720 {
		t.Errorf("slide end tick = %d, want 720", s.Slides[0][1].Tick)
	}
}

func TestParseKeepsOrphanSlidePoints(t *testing.T) {
	s, err := Parse(strings.NewReader("#00030a: 0023\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	expected := [][]Note{{{Tick: 960, Lane: 0, Width: 3, Type: SlideEnd}}}
	if !reflect.DeepEqual(s.Slides, expected) {
		t.Errorf("Slides = %v, want %v", s.Slides, expected)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"odd data", "#00010: 1"},
		{"undefined bpm", "#00008: 01"},
		{"bad bar length", "#00002: four"},
		{"bad offset", "#WAVEOFFSET soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Errorf("error = %v, want *ParseError", err)
			}
		})
	}
}

func TestBarTimeline(t *testing.T) {
	tl := newBarTimeline(480, []BarLength{{Bar: 2, Length: 3}})

	if got := tl.tick(3); got != 1920*2+1440 {
		t.Errorf("tick(3) = %d, want %d", got, 1920*2+1440)
	}
	m, off := tl.locate(1920*2 + 1500)
	if m != 3 || off != 60 {
		t.Errorf("locate() = (%d, %d), want (3, 60)", m, off)
	}
}
