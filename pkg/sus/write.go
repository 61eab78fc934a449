package sus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ErrTooManySlides is returned when more slides overlap than there are channels
var ErrTooManySlides = errors.New("sus: more than 36 overlapping slides")

// event is a value placed at a tick under a measure-relative header suffix
type event struct {
	tick   int
	header string
	value  string
}

type placed struct {
	offset int
	value  string
}

// Write encodes s as SUS text
func Write(w io.Writer, s *SUS) error {
	bw := bufio.NewWriter(w)
	timeline := newBarTimeline(s.ticksPerBeat(), s.BarLengths)

	writeMetadata(bw, &s.Metadata)
	fmt.Fprintln(bw)

	bars := append([]BarLength(nil), s.BarLengths...)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Bar < bars[j].Bar })
	for _, b := range bars {
		fmt.Fprintf(bw, "#%03d02: %s\n", b.Bar, formatFloat(b.Length))
	}
	fmt.Fprintln(bw)

	var events []event

	bpmKeys := make(map[float64]int)
	for _, bpm := range s.BPMs {
		key, ok := bpmKeys[bpm.BPM]
		if !ok {
			key = len(bpmKeys) + 1
			if key >= 36*36 {
				return errors.New("sus: too many distinct bpm values")
			}
			bpmKeys[bpm.BPM] = key
			fmt.Fprintf(bw, "#BPM%s: %s\n", toBase36(key, 2), formatFloat(bpm.BPM))
		}
		events = append(events, event{tick: bpm.Tick, header: "08", value: toBase36(key, 2)})
	}

	if len(s.HiSpeeds) > 0 {
		entries := make([]string, 0, len(s.HiSpeeds))
		for _, hs := range s.HiSpeeds {
			if hs.Tick < 0 {
				return fmt.Errorf("sus: hi-speed at negative tick %d", hs.Tick)
			}
			m, off := timeline.locate(hs.Tick)
			entries = append(entries, fmt.Sprintf("%d'%d:%s", m, off, formatFloat(hs.Speed)))
		}
		fmt.Fprintf(bw, "#TIL00: \"%s\"\n", strings.Join(entries, ", "))
		fmt.Fprintln(bw, "#HISPEED 00")
	}
	fmt.Fprintln(bw)

	for _, n := range s.Taps {
		ev, err := noteEvent(n, "1")
		if err != nil {
			return err
		}
		events = append(events, ev)
	}
	for _, n := range s.Directionals {
		ev, err := noteEvent(n, "5")
		if err != nil {
			return err
		}
		events = append(events, ev)
	}

	slideEvents, err := assignSlideChannels(s.Slides)
	if err != nil {
		return err
	}
	events = append(events, slideEvents...)

	if err := writeEvents(bw, timeline, events); err != nil {
		return err
	}
	return bw.Flush()
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r\n", " ", "\n", " ", "\r", " ")

// quote wraps a metadata value in double quotes; line breaks become spaces
func quote(v string) string {
	return `"` + quoteEscaper.Replace(v) + `"`
}

func writeMetadata(bw *bufio.Writer, m *Metadata) {
	known := []string{"title", "subtitle", "artist", "genre", "designer", "difficulty", "playlevel", "songid", "wave", "jacket"}
	written := make(map[string]bool)
	for _, key := range known {
		if v, ok := m.Data[key]; ok {
			fmt.Fprintf(bw, "#%s %s\n", strings.ToUpper(key), quote(v))
			written[key] = true
		}
	}

	var rest []string
	for key := range m.Data {
		if !written[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		fmt.Fprintf(bw, "#%s %s\n", strings.ToUpper(key), quote(m.Data[key]))
	}

	fmt.Fprintf(bw, "#WAVEOFFSET %s\n", formatFloat(m.WaveOffset))
	if m.MovieOffset != 0 {
		fmt.Fprintf(bw, "#MOVIEOFFSET %s\n", formatFloat(m.MovieOffset))
	}
	if m.BaseBPM != 0 {
		fmt.Fprintf(bw, "#BASEBPM %s\n", formatFloat(m.BaseBPM))
	}
	for _, req := range m.Requests {
		fmt.Fprintf(bw, "#REQUEST %s\n", quote(req))
	}
}

func noteEvent(n Note, kind string) (event, error) {
	if n.Lane < 0 || n.Lane >= 36 || n.Width < 1 || n.Width >= 36 || n.Type < 1 || n.Type >= 36 {
		return event{}, fmt.Errorf("sus: note %+v cannot be encoded", n)
	}
	return event{
		tick:   n.Tick,
		header: kind + toBase36(n.Lane, 1),
		value:  toBase36(n.Type, 1) + toBase36(n.Width, 1),
	}, nil
}

// assignSlideChannels places each slide on the lowest channel free at its start
func assignSlideChannels(slides [][]Note) ([]event, error) {
	order := make([]int, 0, len(slides))
	for i, slide := range slides {
		if len(slide) > 0 {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return slides[order[a]][0].Tick < slides[order[b]][0].Tick
	})

	var ends [36]int
	var used [36]bool
	var events []event
	for _, i := range order {
		slide := slides[i]
		start, end := slide[0].Tick, slide[0].Tick
		for _, p := range slide {
			if p.Tick < start {
				start = p.Tick
			}
			if p.Tick > end {
				end = p.Tick
			}
		}

		channel := -1
		for c := range ends {
			if !used[c] || ends[c] < start {
				channel = c
				break
			}
		}
		if channel < 0 {
			return nil, ErrTooManySlides
		}
		used[channel], ends[channel] = true, end

		for _, p := range slide {
			ev, err := noteEvent(p, "3")
			if err != nil {
				return nil, err
			}
			ev.header += toBase36(channel, 1)
			events = append(events, ev)
		}
	}
	return events, nil
}

// writeEvents groups events by measure and header; coincident events go on separate lines
func writeEvents(bw *bufio.Writer, timeline *barTimeline, events []event) error {
	type groupKey struct {
		measure int
		header  string
	}
	groups := make(map[groupKey][]placed)
	var keys []groupKey

	for _, ev := range events {
		if ev.tick < 0 {
			return fmt.Errorf("sus: event at negative tick %d", ev.tick)
		}
		m, off := timeline.locate(ev.tick)
		if m > 999 {
			return fmt.Errorf("sus: tick %d is beyond measure 999", ev.tick)
		}
		key := groupKey{measure: m, header: ev.header}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], placed{offset: off, value: ev.value})
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].measure != keys[j].measure {
			return keys[i].measure < keys[j].measure
		}
		return keys[i].header < keys[j].header
	})

	for _, key := range keys {
		size := timeline.measureTicks(key.measure)
		var lines [][]placed
		for _, p := range groups[key] {
			slot := -1
			for i, line := range lines {
				if !hasOffset(line, p.offset) {
					slot = i
					break
				}
			}
			if slot < 0 {
				lines = append(lines, nil)
				slot = len(lines) - 1
			}
			lines[slot] = append(lines[slot], p)
		}

		for _, line := range lines {
			g := size
			for _, p := range line {
				g = gcd(g, p.offset)
			}
			slots := make([]string, size/g)
			for i := range slots {
				slots[i] = "00"
			}
			for _, p := range line {
				slots[p.offset/g] = p.value
			}
			fmt.Fprintf(bw, "#%03d%s: %s\n", key.measure, key.header, strings.Join(slots, ""))
		}
	}
	return nil
}

func hasOffset(line []placed, offset int) bool {
	for _, p := range line {
		if p.offset == offset {
			return true
		}
	}
	return false
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
