package converter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/chartwright/pkg/score"
	"github.com/james-see/chartwright/pkg/sus"
)

// Format represents a file format
type Format string

const (
	FormatSUS     Format = "sus"
	FormatJSON    Format = "json"
	FormatMIDI    Format = "midi"
	FormatUnknown Format = "unknown"
)

// ErrUnsupportedFormat is returned for formats that cannot be read or written
var ErrUnsupportedFormat = errors.New("unsupported format")

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".sus":
		return FormatSUS
	case ".json", ".chart":
		return FormatJSON
	case ".mid", ".midi":
		return FormatMIDI
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	trimmed := bytes.TrimLeft(data, "\ufeff \t\r\n")
	if len(trimmed) < 4 {
		return FormatUnknown
	}

	// Check for MIDI file signature "MThd"
	if string(trimmed[:4]) == "MThd" {
		return FormatMIDI
	}

	switch trimmed[0] {
	case '{':
		return FormatJSON
	case '#':
		return FormatSUS
	}
	return FormatUnknown
}

// Decode reads a score from data in the given format
func (c *Converter) Decode(data []byte, format Format) (*score.Score, error) {
	switch format {
	case FormatSUS:
		s, err := sus.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return c.SUSToScore(s)
	case FormatJSON:
		sc, err := DecodeScore(data)
		if err != nil {
			return nil, err
		}
		if next := sc.MaxID() + 1; next > c.ids.Peek() {
			c.ids.Reset(next)
		}
		return sc, nil
	default:
		return nil, fmt.Errorf("%w: cannot read %s", ErrUnsupportedFormat, format)
	}
}

// Encode writes sc in the given format
func (c *Converter) Encode(sc *score.Score, format Format) ([]byte, error) {
	switch format {
	case FormatSUS:
		s, err := c.ScoreToSUS(sc)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := sus.Write(&buf, s); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON:
		return EncodeScore(sc)
	case FormatMIDI:
		return c.midi.GenerateMIDI(sc)
	default:
		return nil, fmt.Errorf("%w: cannot write %s", ErrUnsupportedFormat, format)
	}
}

// LoadFile reads a score from a .sus or .json file
func (c *Converter) LoadFile(path string) (*score.Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	format := DetectFormat(path)
	if format == FormatUnknown {
		// Try to detect from content
		format = DetectFormatFromContent(data)
	}

	sc, err := c.Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filepath.Base(path), err)
	}
	return sc, nil
}

// SaveFile writes sc in the format implied by path
func (c *Converter) SaveFile(sc *score.Score, path string) error {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}

	data, err := c.Encode(sc, format)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// ConvertFile converts a file from one format to another
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	sc, err := c.LoadFile(inputPath)
	if err != nil {
		return err
	}
	warnings := c.Warnings()
	c.warnings = nil
	if err := c.SaveFile(sc, outputPath); err != nil {
		return err
	}
	c.warnings = append(warnings, c.warnings...)
	return nil
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"sus -> json",
		"sus -> midi",
		"json -> sus",
		"json -> midi",
		"sus -> sus",
		"json -> json",
	}
}
