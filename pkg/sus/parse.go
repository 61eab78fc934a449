package sus

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ParseError describes a malformed line
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sus: line %d: %s", e.Line, e.Msg)
}

type dataLine struct {
	num    int
	header string
	data   string
}

type slidePoint struct {
	Note
	channel int
}

// Parse reads a SUS chart
func Parse(r io.Reader) (*SUS, error) {
	s := New()
	var lines []dataLine

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	num := 0
	for scanner.Scan() {
		num++
		line := strings.TrimSpace(scanner.Text())
		if num == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if !strings.HasPrefix(line, "#") {
			continue
		}
		line = line[1:]

		colon := strings.IndexByte(line, ':')
		space := strings.IndexAny(line, " \t")
		if colon >= 0 && (space < 0 || colon < space) {
			lines = append(lines, dataLine{
				num:    num,
				header: strings.ToUpper(strings.TrimSpace(line[:colon])),
				data:   strings.TrimSpace(line[colon+1:]),
			})
			continue
		}

		if err := s.parseMetadata(num, line, space); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sus: %w", err)
	}

	tpb := s.ticksPerBeat()
	bpmDefs := make(map[int]float64)
	tilDefs := make(map[int]string)

	// bar lengths and definitions must be known before any event is placed
	for _, l := range lines {
		switch {
		case len(l.header) == 5 && isMeasure(l.header[:3]) && l.header[3:] == "02":
			m, _ := strconv.Atoi(l.header[:3])
			length, err := strconv.ParseFloat(l.data, 64)
			if err != nil {
				return nil, &ParseError{Line: l.num, Msg: fmt.Sprintf("invalid bar length %q", l.data)}
			}
			s.BarLengths = append(s.BarLengths, BarLength{Bar: m, Length: length})
		case strings.HasPrefix(l.header, "BPM") && len(l.header) == 5:
			key, ok := fromBase36(l.header[3:])
			if !ok {
				return nil, &ParseError{Line: l.num, Msg: fmt.Sprintf("invalid bpm key %q", l.header)}
			}
			v, err := strconv.ParseFloat(l.data, 64)
			if err != nil {
				return nil, &ParseError{Line: l.num, Msg: fmt.Sprintf("invalid bpm %q", l.data)}
			}
			bpmDefs[key] = v
		case strings.HasPrefix(l.header, "TIL") && len(l.header) == 5:
			key, ok := fromBase36(l.header[3:])
			if !ok {
				return nil, &ParseError{Line: l.num, Msg: fmt.Sprintf("invalid hi-speed key %q", l.header)}
			}
			tilDefs[key] = unquote(l.data)
		}
	}

	timeline := newBarTimeline(tpb, s.BarLengths)
	var points []slidePoint

	for _, l := range lines {
		if len(l.header) < 5 || !isMeasure(l.header[:3]) {
			continue
		}
		measure, _ := strconv.Atoi(l.header[:3])
		kind := l.header[3]

		switch {
		case len(l.header) == 5 && l.header[3:] == "08":
			err := eachPair(l, timeline, measure, func(tick int, pair string) error {
				key, ok := fromBase36(pair)
				if !ok {
					return &ParseError{Line: l.num, Msg: fmt.Sprintf("invalid bpm reference %q", pair)}
				}
				bpm, ok := bpmDefs[key]
				if !ok {
					return &ParseError{Line: l.num, Msg: fmt.Sprintf("undefined bpm %q", pair)}
				}
				s.BPMs = append(s.BPMs, BPM{Tick: tick, BPM: bpm})
				return nil
			})
			if err != nil {
				return nil, err
			}
		case len(l.header) == 5 && (kind == '1' || kind == '5'):
			lane, ok := fromBase36(l.header[4:])
			if !ok {
				return nil, &ParseError{Line: l.num, Msg: fmt.Sprintf("invalid lane in %q", l.header)}
			}
			err := eachPair(l, timeline, measure, func(tick int, pair string) error {
				n, err := pairNote(l, tick, lane, pair)
				if err != nil {
					return err
				}
				if kind == '1' {
					s.Taps = append(s.Taps, n)
				} else {
					s.Directionals = append(s.Directionals, n)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		case len(l.header) == 6 && kind == '3':
			lane, ok1 := fromBase36(l.header[4:5])
			channel, ok2 := fromBase36(l.header[5:])
			if !ok1 || !ok2 {
				return nil, &ParseError{Line: l.num, Msg: fmt.Sprintf("invalid slide header %q", l.header)}
			}
			err := eachPair(l, timeline, measure, func(tick int, pair string) error {
				n, err := pairNote(l, tick, lane, pair)
				if err != nil {
					return err
				}
				points = append(points, slidePoint{Note: n, channel: channel})
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	for key, data := range tilDefs {
		speeds, err := parseHiSpeeds(data, timeline)
		if err != nil {
			return nil, fmt.Errorf("sus: hi-speed %s: %w", toBase36(key, 2), err)
		}
		s.HiSpeeds = append(s.HiSpeeds, speeds...)
	}

	s.Slides = groupSlides(points)
	sortNotes(s.Taps)
	sortNotes(s.Directionals)
	sort.SliceStable(s.BPMs, func(i, j int) bool { return s.BPMs[i].Tick < s.BPMs[j].Tick })
	sort.SliceStable(s.HiSpeeds, func(i, j int) bool { return s.HiSpeeds[i].Tick < s.HiSpeeds[j].Tick })
	return s, nil
}

func (s *SUS) parseMetadata(num int, line string, space int) error {
	if space < 0 {
		s.Metadata.Data[strings.ToLower(line)] = ""
		return nil
	}
	key := strings.ToUpper(line[:space])
	value := unquote(strings.TrimSpace(line[space+1:]))

	parseFloat := func() (float64, error) {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, &ParseError{Line: num, Msg: fmt.Sprintf("invalid %s %q", key, value)}
		}
		return v, nil
	}

	var err error
	switch key {
	case "WAVEOFFSET":
		s.Metadata.WaveOffset, err = parseFloat()
	case "MOVIEOFFSET":
		s.Metadata.MovieOffset, err = parseFloat()
	case "BASEBPM":
		s.Metadata.BaseBPM, err = parseFloat()
	case "REQUEST":
		s.Metadata.Requests = append(s.Metadata.Requests, value)
	case "HISPEED", "MEASUREHS":
		// hi-speed definitions are applied globally
	default:
		s.Metadata.Data[strings.ToLower(key)] = value
	}
	return err
}

// ticksPerBeat honours a "ticks_per_beat" request
func (s *SUS) ticksPerBeat() int {
	for _, req := range s.Metadata.Requests {
		fields := strings.Fields(req)
		if len(fields) == 2 && fields[0] == "ticks_per_beat" {
			if v, err := strconv.Atoi(fields[1]); err == nil && v > 0 {
				return v
			}
		}
	}
	return DefaultTicksPerBeat
}

func eachPair(l dataLine, timeline *barTimeline, measure int, fn func(tick int, pair string) error) error {
	data := strings.Join(strings.Fields(l.data), "")
	if len(data)%2 != 0 {
		return &ParseError{Line: l.num, Msg: fmt.Sprintf("odd data length in %q", l.data)}
	}
	count := len(data) / 2
	if count == 0 {
		return nil
	}
	start := timeline.tick(measure)
	size := timeline.measureTicks(measure)
	for i := 0; i < count; i++ {
		pair := data[i*2 : i*2+2]
		if pair == "00" {
			continue
		}
		if err := fn(start+i*size/count, pair); err != nil {
			return err
		}
	}
	return nil
}

func pairNote(l dataLine, tick, lane int, pair string) (Note, error) {
	typ, ok1 := fromBase36(pair[:1])
	width, ok2 := fromBase36(pair[1:])
	if !ok1 || !ok2 {
		return Note{}, &ParseError{Line: l.num, Msg: fmt.Sprintf("invalid note data %q", pair)}
	}
	return Note{Tick: tick, Lane: lane, Width: width, Type: typ}, nil
}

func parseHiSpeeds(data string, timeline *barTimeline) ([]HiSpeed, error) {
	var out []HiSpeed
	for _, entry := range strings.Split(data, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		quote := strings.IndexByte(entry, '\'')
		colon := strings.IndexByte(entry, ':')
		if quote < 0 || colon < quote {
			return nil, fmt.Errorf("invalid entry %q", entry)
		}
		measure, err1 := strconv.Atoi(strings.TrimSpace(entry[:quote]))
		offset, err2 := strconv.Atoi(strings.TrimSpace(entry[quote+1 : colon]))
		speed, err3 := strconv.ParseFloat(strings.TrimSpace(entry[colon+1:]), 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("invalid entry %q", entry)
		}
		out = append(out, HiSpeed{Tick: timeline.tick(measure) + offset, Speed: speed})
	}
	return out, nil
}

// groupSlides splits each channel's points into slides at start and end markers.
// Points outside an open slide are kept so the converter can reject them.
func groupSlides(points []slidePoint) [][]Note {
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].channel != points[j].channel {
			return points[i].channel < points[j].channel
		}
		if points[i].Tick != points[j].Tick {
			return points[i].Tick < points[j].Tick
		}
		// an end closes the previous slide before a new one starts on the same tick
		return slideRank(points[i].Type) < slideRank(points[j].Type)
	})

	var slides [][]Note
	var current []Note
	channel := -1
	flush := func() {
		if len(current) > 0 {
			slides = append(slides, current)
		}
		current = nil
	}

	for _, p := range points {
		if p.channel != channel {
			flush()
			channel = p.channel
		}
		switch p.Type {
		case SlideStart:
			flush()
			current = []Note{p.Note}
		case SlideEnd:
			// an end without an open slide stays a group of its own
			current = append(current, p.Note)
			flush()
		default:
			current = append(current, p.Note)
		}
	}
	flush()

	sort.SliceStable(slides, func(i, j int) bool { return slides[i][0].Tick < slides[j][0].Tick })
	return slides
}

func slideRank(typ int) int {
	switch typ {
	case SlideEnd:
		return 0
	case SlideStart:
		return 2
	}
	return 1
}

func sortNotes(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Tick != notes[j].Tick {
			return notes[i].Tick < notes[j].Tick
		}
		return notes[i].Lane < notes[j].Lane
	})
}

func isMeasure(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

var quoteUnescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`)

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return quoteUnescaper.Replace(s[1 : len(s)-1])
	}
	return s
}
