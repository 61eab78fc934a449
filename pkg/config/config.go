// Package config loads chartwright settings from a TOML file and the environment
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "CHARTWRIGHT_"

// FileName is the default config file name inside the user config directory
const FileName = "config.toml"

// Clipboard backends
const (
	ClipboardMemory = "memory"
	ClipboardOSC52  = "osc52"
	ClipboardTmux   = "tmux"
	ClipboardScreen = "screen"
)

// Config holds every chartwright setting
type Config struct {
	Editor EditorConfig `toml:"editor"`
	Server ServerConfig `toml:"server"`
	MIDI   MIDIConfig   `toml:"midi"`
}

// EditorConfig configures editing sessions
type EditorConfig struct {
	MaxHistory int    `toml:"max_history"`
	Clipboard  string `toml:"clipboard"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Release     bool   `toml:"release"`
	MaxUpload   int64  `toml:"max_upload"`
	MaxSessions int    `toml:"max_sessions"`
}

// MIDIConfig configures the MIDI preview export
type MIDIConfig struct {
	BaseKey   int `toml:"base_key"`
	TapLength int `toml:"tap_length"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			MaxHistory: 1000,
			Clipboard:  ClipboardOSC52,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			MaxUpload:   10 << 20,
			MaxSessions: 64,
		},
		MIDI: MIDIConfig{
			BaseKey:   60,
			TapLength: 120,
		},
	}
}

// ParseError reports a malformed config file
type ParseError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DefaultPath returns the config file location under the user config directory
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "chartwright", FileName)
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error unless it was named explicitly.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.decode(path, bytes.NewReader(data)); err != nil {
				return nil, err
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads TOML settings from r over the defaults
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode("<reader>", r); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(source string, r io.Reader) error {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		perr := &ParseError{Path: source, Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return perr
	}
	return nil
}

// envBinding maps one environment variable onto a setting
type envBinding struct {
	name string
	set  func(c *Config, v string) error
}

var envBindings = []envBinding{
	{"EDITOR_MAX_HISTORY", func(c *Config, v string) error { return setInt(&c.Editor.MaxHistory, v) }},
	{"EDITOR_CLIPBOARD", func(c *Config, v string) error { c.Editor.Clipboard = strings.ToLower(v); return nil }},
	{"SERVER_HOST", func(c *Config, v string) error { c.Server.Host = v; return nil }},
	{"SERVER_PORT", func(c *Config, v string) error { return setInt(&c.Server.Port, v) }},
	{"SERVER_RELEASE", func(c *Config, v string) error { return setBool(&c.Server.Release, v) }},
	{"SERVER_MAX_UPLOAD", func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		c.Server.MaxUpload = n
		return nil
	}},
	{"SERVER_MAX_SESSIONS", func(c *Config, v string) error { return setInt(&c.Server.MaxSessions, v) }},
	{"MIDI_BASE_KEY", func(c *Config, v string) error { return setInt(&c.MIDI.BaseKey, v) }},
	{"MIDI_TAP_LENGTH", func(c *Config, v string) error { return setInt(&c.MIDI.TapLength, v) }},
}

// applyEnv overrides settings from CHARTWRIGHT_* variables found by lookup
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		name := EnvPrefix + b.name
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := b.set(c, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off", "":
		*dst = false
	default:
		return fmt.Errorf("not a boolean: %q", v)
	}
	return nil
}

// Validate checks settings for values no component can use
func (c *Config) Validate() error {
	var errs []error
	switch c.Editor.Clipboard {
	case ClipboardMemory, ClipboardOSC52, ClipboardTmux, ClipboardScreen:
	default:
		errs = append(errs, fmt.Errorf("editor.clipboard: unknown backend %q", c.Editor.Clipboard))
	}
	if c.Editor.MaxHistory < 1 {
		errs = append(errs, fmt.Errorf("editor.max_history must be positive, got %d", c.Editor.MaxHistory))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.MaxUpload < 1 {
		errs = append(errs, fmt.Errorf("server.max_upload must be positive, got %d", c.Server.MaxUpload))
	}
	if c.Server.MaxSessions < 1 {
		errs = append(errs, fmt.Errorf("server.max_sessions must be positive, got %d", c.Server.MaxSessions))
	}
	if c.MIDI.BaseKey < 0 || c.MIDI.BaseKey > 116 {
		errs = append(errs, fmt.Errorf("midi.base_key must be within [0, 116], got %d", c.MIDI.BaseKey))
	}
	if c.MIDI.TapLength < 1 {
		errs = append(errs, fmt.Errorf("midi.tap_length must be positive, got %d", c.MIDI.TapLength))
	}
	return errors.Join(errs...)
}

// Addr returns the server listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Write encodes the settings as TOML
func (c *Config) Write(w io.Writer) error {
	enc := toml.NewEncoder(w)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}
