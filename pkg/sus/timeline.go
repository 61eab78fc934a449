package sus

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func fromBase36(s string) (int, bool) {
	v, err := strconv.ParseInt(strings.ToLower(s), 36, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func toBase36(v, digits int) string {
	s := strconv.FormatInt(int64(v), 36)
	for len(s) < digits {
		s = "0" + s
	}
	return s
}

// barTimeline maps measures to ticks from a list of bar length changes
type barTimeline struct {
	ticksPerBeat int
	changes      []BarLength
}

func newBarTimeline(ticksPerBeat int, lengths []BarLength) *barTimeline {
	changes := append([]BarLength(nil), lengths...)
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Bar < changes[j].Bar })
	return &barTimeline{ticksPerBeat: ticksPerBeat, changes: changes}
}

func (b *barTimeline) lengthTicks(length float64) int {
	t := int(math.Round(length * float64(b.ticksPerBeat)))
	if t <= 0 {
		return 4 * b.ticksPerBeat
	}
	return t
}

// measureTicks returns the tick length of measure
func (b *barTimeline) measureTicks(measure int) int {
	length := 4.0
	for _, c := range b.changes {
		if c.Bar > measure {
			break
		}
		length = c.Length
	}
	return b.lengthTicks(length)
}

// tick returns the first tick of measure
func (b *barTimeline) tick(measure int) int {
	tick, at, length := 0, 0, 4.0
	for _, c := range b.changes {
		if c.Bar > measure {
			break
		}
		tick += (c.Bar - at) * b.lengthTicks(length)
		at, length = c.Bar, c.Length
	}
	return tick + (measure-at)*b.lengthTicks(length)
}

// locate returns the measure containing tick and the offset inside it
func (b *barTimeline) locate(tick int) (measure, offset int) {
	start := 0
	for {
		size := b.measureTicks(measure)
		if tick < start+size || tick < 0 {
			return measure, tick - start
		}
		start += size
		measure++
	}
}
