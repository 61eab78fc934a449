// Package main is the entry point for the chartwright CLI
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/james-see/chartwright/pkg/api"
	"github.com/james-see/chartwright/pkg/clipboard"
	"github.com/james-see/chartwright/pkg/config"
	"github.com/james-see/chartwright/pkg/converter"
	"github.com/james-see/chartwright/pkg/editor"
	"github.com/james-see/chartwright/pkg/score"
	"github.com/james-see/chartwright/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	outputFile string
	infoFormat string
	serverHost string
	serverPort int
	baseKey    int
	tapLength  int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chartwright",
	Short: "Edit and convert SUS rhythm game charts",
	Long: `chartwright is a chart editor core for SUS rhythm game charts.

It converts between .sus files and the editable JSON score, renders a MIDI
preview, and ships a terminal editor and an HTTP API with undo and redo.

Examples:
  chartwright convert chart.sus -o chart.json
  chartwright sus2json chart.sus
  chartwright midi chart.sus -o preview.mid
  chartwright info chart.sus --format yaml
  chartwright edit chart.sus
  chartwright serve --port 8080`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Auto-detect and convert between formats",
	Long:  `Detects the input format and converts to the format implied by the output file extension.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var sus2jsonCmd = &cobra.Command{
	Use:   "sus2json <input.sus>",
	Short: "Convert SUS to a JSON score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return convertTo(cmd, args[0], ".json")
	},
}

var json2susCmd = &cobra.Command{
	Use:   "json2sus <input.json>",
	Short: "Convert a JSON score to SUS",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return convertTo(cmd, args[0], ".sus")
	},
}

var midiCmd = &cobra.Command{
	Use:   "midi <input>",
	Short: "Render a chart as a MIDI preview",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return convertTo(cmd, args[0], ".mid")
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <input>",
	Short: "Show chart metadata and note counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var validateCmd = &cobra.Command{
	Use:   "validate <input>",
	Short: "Check that a chart loads and its holds are well formed",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var editCmd = &cobra.Command{
	Use:     "edit [chart]",
	Aliases: []string{"tui"},
	Short:   "Launch the terminal chart editor",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runEdit,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default "+config.DefaultPath()+")")

	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	_ = convertCmd.MarkFlagRequired("output")

	sus2jsonCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .json file path")
	json2susCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .sus file path")

	midiCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
	midiCmd.Flags().IntVar(&baseKey, "base-key", converter.DefaultBaseKey, "MIDI key of lane 0")
	midiCmd.Flags().IntVar(&tapLength, "tap-length", converter.DefaultTapLength, "Length in ticks of a tap note")
	convertCmd.Flags().IntVar(&baseKey, "base-key", converter.DefaultBaseKey, "MIDI key of lane 0")
	convertCmd.Flags().IntVar(&tapLength, "tap-length", converter.DefaultTapLength, "Length in ticks of a tap note")

	infoCmd.Flags().StringVarP(&infoFormat, "format", "f", "text", "Output format (text, json, yaml)")

	serveCmd.Flags().StringVar(&serverHost, "host", "", "Listen address")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(sus2jsonCmd)
	rootCmd.AddCommand(json2susCmd)
	rootCmd.AddCommand(midiCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig reads the config file and applies flags the user set explicitly
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("base-key") {
		cfg.MIDI.BaseKey = baseKey
	}
	if flags.Changed("tap-length") {
		cfg.MIDI.TapLength = tapLength
	}
	if flags.Changed("host") {
		cfg.Server.Host = serverHost
	}
	if flags.Changed("port") {
		cfg.Server.Port = serverPort
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newConverter(cfg *config.Config) *converter.Converter {
	conv := converter.New(nil)
	conv.SetMIDIExporter(converter.NewMIDIExporterWithOptions(uint8(cfg.MIDI.BaseKey), cfg.MIDI.TapLength))
	return conv
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

func printWarnings(w io.Writer, warnings []string) {
	for _, warning := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	return convert(cmd, args[0], outputFile)
}

func convertTo(cmd *cobra.Command, input, defaultExt string) error {
	return convert(cmd, input, getOutputPath(input, defaultExt))
}

func convert(cmd *cobra.Command, input, output string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	conv := newConverter(cfg)
	if err := conv.ConvertFile(input, output); err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), conv.Warnings())
	fmt.Fprintf(cmd.OutOrStdout(), "Converted %s -> %s\n", input, output)
	return nil
}

// chartInfo is the machine readable summary printed by info
type chartInfo struct {
	File     string      `json:"file" yaml:"file"`
	Format   string      `json:"format" yaml:"format"`
	Title    string      `json:"title" yaml:"title"`
	Artist   string      `json:"artist" yaml:"artist"`
	Author   string      `json:"author" yaml:"author"`
	BPM      float64     `json:"bpm" yaml:"bpm"`
	Tempos   int         `json:"tempoChanges" yaml:"tempoChanges"`
	HiSpeeds int         `json:"hiSpeedChanges" yaml:"hiSpeedChanges"`
	Skills   int         `json:"skills" yaml:"skills"`
	Stats    score.Stats `json:"stats" yaml:"stats"`
	Warnings []string    `json:"warnings" yaml:"warnings"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	input := args[0]
	conv := newConverter(cfg)
	sc, err := conv.LoadFile(input)
	if err != nil {
		return err
	}

	info := chartInfo{
		File:     input,
		Format:   string(converter.DetectFormat(input)),
		Title:    sc.Metadata.Title,
		Artist:   sc.Metadata.Artist,
		Author:   sc.Metadata.Author,
		Tempos:   len(sc.TempoChanges),
		HiSpeeds: len(sc.HiSpeedChanges),
		Skills:   len(sc.Skills),
		Stats:    score.CalculateStats(sc),
		Warnings: append([]string{}, conv.Warnings()...),
	}
	if len(sc.TempoChanges) > 0 {
		info.BPM = sc.TempoChanges[0].BPM
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(infoFormat) {
	case "json":
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	case "yaml", "yml":
		data, err := yaml.Marshal(info)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
	case "text":
		printInfo(out, info)
	default:
		return fmt.Errorf("unknown info format %q", infoFormat)
	}
	return nil
}

func printInfo(w io.Writer, info chartInfo) {
	fmt.Fprintf(w, "File:     %s (%s)\n", info.File, info.Format)
	fmt.Fprintf(w, "Title:    %s\n", info.Title)
	fmt.Fprintf(w, "Artist:   %s\n", info.Artist)
	fmt.Fprintf(w, "Author:   %s\n", info.Author)
	fmt.Fprintf(w, "BPM:      %g (%d changes)\n", info.BPM, info.Tempos)

	st := info.Stats
	fmt.Fprintf(w, "Notes:    %d taps, %d flicks, %d traces, %d damage\n", st.Taps, st.Flicks, st.Traces, st.Damages)
	fmt.Fprintf(w, "Holds:    %d holds, %d steps\n", st.Holds, st.Steps)
	fmt.Fprintf(w, "Critical: %d\n", st.Criticals)
	fmt.Fprintf(w, "Combo:    %d\n", st.Combo)
	fmt.Fprintf(w, "Extras:   %d hi-speed changes, %d skills\n", info.HiSpeeds, info.Skills)
	printWarnings(w, info.Warnings)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	conv := newConverter(cfg)
	sc, err := conv.LoadFile(args[0])
	if err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	printWarnings(cmd.ErrOrStderr(), conv.Warnings())
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d notes, %d holds)\n", args[0], len(sc.Notes), len(sc.HoldNotes))
	return nil
}

// clipboardProvider maps the configured backend to a clipboard provider
func clipboardProvider(name string) clipboard.Provider {
	switch name {
	case config.ClipboardOSC52:
		return clipboard.NewTerminal(os.Stdout, osc52.DefaultMode)
	case config.ClipboardTmux:
		return clipboard.NewTerminal(os.Stdout, osc52.TmuxMode)
	case config.ClipboardScreen:
		return clipboard.NewTerminal(os.Stdout, osc52.ScreenMode)
	default:
		return clipboard.NewMemory()
	}
}

func runEdit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := tui.Options{
		Editor: editor.Options{
			Clipboard:  clipboardProvider(cfg.Editor.Clipboard),
			MaxHistory: cfg.Editor.MaxHistory,
		},
	}
	if len(args) == 1 {
		opts.Path = args[0]
	}
	return tui.Run(opts)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("Starting API server on %s...\n", cfg.Addr())
	return api.StartServer(cfg)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return cfg.Write(cmd.OutOrStdout())
}
