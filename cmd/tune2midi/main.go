// Package main is the entry point for tune2midi CLI
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/tune2midi/pkg/api"
	"github.com/james-see/tune2midi/pkg/converter"
	"github.com/james-see/tune2midi/pkg/converter/encodings"
	"github.com/james-see/tune2midi/pkg/instrument"
	"github.com/james-see/tune2midi/pkg/notation"
	"github.com/james-see/tune2midi/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile     string
	encodingName   string
	instrumentName string
	soundFontPath  string
	resolution     uint16
	channel        uint8
	velocity       uint8
	debug          bool
	serverPort     int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tune2midi",
	Short: "Convert parsed scores to MIDI",
	Long: `tune2midi converts an already-parsed score (notes, chords, bar lines,
repeats, numbered endings, key signatures and tempos) into timed MIDI events.

Scores are read from JSON or YAML documents.

Examples:
  tune2midi convert tune.yaml -o tune.mid
  tune2midi events tune.yaml --encoding zerovel
  tune2midi inspect tune.mid
  tune2midi instruments --soundfont piano.sf2
  tune2midi tui
  tune2midi serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger()
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <score>",
	Short: "Convert a score document to a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var eventsCmd = &cobra.Command{
	Use:   "events <score>",
	Short: "Print the timed events of a score",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvents,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>",
	Short: "Print the note, tempo and program events of a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var instrumentsCmd = &cobra.Command{
	Use:   "instruments",
	Short: "List selectable instruments",
	Args:  cobra.NoArgs,
	RunE:  runInstruments,
}

var encodingsCmd = &cobra.Command{
	Use:   "encodings",
	Short: "List output encodings",
	Args:  cobra.NoArgs,
	Run:   runEncodings,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&encodingName, "encoding", "e", "standard", "Output encoding (standard, zerovel)")
	flags.StringVarP(&instrumentName, "instrument", "i", "", "Instrument name or program number")
	flags.StringVar(&soundFontPath, "soundfont", "", "SoundFont (.sf2) to select instruments from")
	flags.Uint16Var(&resolution, "resolution", converter.DefaultResolution, "Ticks per quarter note")
	flags.Uint8Var(&channel, "channel", 0, "MIDI channel (0-15)")
	flags.Uint8Var(&velocity, "velocity", 100, "Note-on velocity (1-127)")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")

	// Convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// Add commands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(instrumentsCmd)
	rootCmd.AddCommand(encodingsCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func initLogger() {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	slog.SetDefault(slog.New(h))
}

func instrumentSource() instrument.Source {
	if soundFontPath != "" {
		return instrument.SoundFontFile(soundFontPath)
	}
	return instrument.GeneralMIDI()
}

func newConverter() (*converter.Converter, error) {
	enc, err := encodings.ByName(encodingName)
	if err != nil {
		return nil, err
	}
	if err := encodings.Configure(enc, channel, velocity); err != nil {
		return nil, err
	}

	conv := converter.New(enc)
	conv.SetInstrument(instrumentSource(), instrumentName)
	conv.SetResolution(resolution)
	conv.SetLogger(slog.Default())
	return conv, nil
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, ".mid")

	conv, err := newConverter()
	if err != nil {
		return err
	}

	fmt.Printf("Converting %s -> %s\n", input, output)
	if err := conv.ConvertFile(input, output); err != nil {
		return err
	}
	fmt.Println("Conversion complete!")
	return nil
}

func runEvents(cmd *cobra.Command, args []string) error {
	score, err := notation.LoadFile(args[0])
	if err != nil {
		return err
	}

	conv, err := newConverter()
	if err != nil {
		return err
	}

	seq, err := conv.Convert(score)
	if err != nil {
		return err
	}

	printSequence(seq)
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	seq, err := converter.ReadMIDIFile(args[0])
	if err != nil {
		return err
	}

	printSequence(seq)
	return nil
}

func printSequence(seq *converter.Sequence) {
	fmt.Printf("Resolution: %d ticks per quarter\n", seq.Resolution)
	fmt.Printf("Events:     %d\n", len(seq.Events))
	fmt.Printf("Duration:   %d ticks\n\n", seq.Duration())
	for _, ev := range seq.Events {
		fmt.Printf("%8d  %-14s % X\n", ev.Tick, ev.Kind, []byte(ev.Message))
	}
}

func runInstruments(cmd *cobra.Command, args []string) error {
	list, err := instrumentSource().Instruments()
	if err != nil {
		return err
	}
	for _, inst := range list {
		fmt.Println(inst)
	}
	return nil
}

func runEncodings(cmd *cobra.Command, args []string) {
	for _, info := range encodings.List() {
		fmt.Printf("%-10s %s\n", info.ID, info.Description)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(tui.Options{
		Instruments: instrumentSource(),
		Instrument:  instrumentName,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(api.Config{
		Port:      serverPort,
		SoundFont: soundFontPath,
		Logger:    slog.Default(),
	})
}
