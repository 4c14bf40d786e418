package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into selection, video, image/document, behavior,
// display, and utility. Negated flags (e.g. --no-video) are applied after
// Parse so Config defaults hold unless set.

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseFlags parses os.Args into cfg. On --help or --version it prints and
// exits. On error it returns non-nil (e.g. unknown flag, missing positional
// args). version is shown in help output.
func ParseFlags(cfg *Config, version string) error {
	fs := flag.NewFlagSet("gamepress", flag.ContinueOnError)
	fs.Usage = func() { printUsage(fs, version) }

	// Negated/override flags: we capture bools then apply to cfg after Parse,
	// so that defaults from DefaultConfig() hold unless the user passes the flag.
	var negated negatedFlags
	var configFile string

	fs.StringVar(&configFile, "config", "", "YAML config file (overlaid before flags)")

	defineSelectionFlags(fs, &negated)
	defineVideoFlags(fs, cfg)
	defineImageDocFlags(fs, cfg)
	defineBehaviorFlags(fs, cfg, &negated)
	defineDisplayFlags(fs, cfg, &negated)
	defineUtilityFlags(fs, &negated)

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	// The config file sits between defaults and flags, so flags passed on
	// this invocation must win: overlay the file, then re-parse.
	if configFile != "" {
		if err := LoadFile(configFile, cfg); err != nil {
			return err
		}
		if err := fs.Parse(os.Args[1:]); err != nil {
			return err
		}
	}

	applyNegatedFlags(cfg, &negated)

	if negated.showHelp {
		printUsage(fs, version)
		os.Exit(0)
	}
	if negated.showVersion {
		fmt.Fprintln(os.Stdout, "gamepress v"+version)
		os.Exit(0)
	}

	if err := parsePositionalArgs(fs, cfg); err != nil {
		return err
	}
	return applyCRFOverride(cfg)
}

// negatedFlags holds boolean flags that are applied after Parse.
// These either invert a default (e.g. noVideo -> OptimizeVideo=false) or
// trigger exit (showHelp, showVersion).
type negatedFlags struct {
	noGamelists bool
	noMedia     bool
	noVideo     bool
	noImages    bool
	noDocs      bool
	force       bool
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// defineSelectionFlags registers the processing toggles.
func defineSelectionFlags(fs *flag.FlagSet, n *negatedFlags) {
	fs.BoolVar(&n.noGamelists, "no-gamelists", false, "Skip gamelist relocation")
	fs.BoolVar(&n.noMedia, "no-media", false, "Skip media folders entirely")
	fs.BoolVar(&n.noVideo, "no-video", false, "Copy videos instead of transcoding")
	fs.BoolVar(&n.noImages, "no-images", false, "Copy images instead of re-encoding")
	fs.BoolVar(&n.noDocs, "no-docs", false, "Copy PDFs instead of recompressing")
}

// defineVideoFlags registers --codec, --crf, --preset, --audio-bitrate.
func defineVideoFlags(fs *flag.FlagSet, cfg *Config) {
	fs.Var(&codecFamilyValue{&cfg.VideoCodec}, "codec", "Video codec family: hevc | av1")
	fs.StringVar(&cfg.CRFOverride, "crf", "", "Fixed CRF for the active codec family")
	fs.StringVar(&cfg.HevcPreset, "preset", cfg.HevcPreset, "x265 preset (e.g. slow, medium)")
	fs.StringVar(&cfg.Av1Preset, "av1-preset", cfg.Av1Preset, "SVT-AV1 preset number (0-13)")
	fs.StringVar(&cfg.AudioBitrate, "audio-bitrate", cfg.AudioBitrate, "Opus VBR target bitrate")
}

// defineImageDocFlags registers --webp-quality and --pdf-jpeg-quality.
func defineImageDocFlags(fs *flag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.WebPQuality, "webp-quality", cfg.WebPQuality, "WebP quality (1-100)")
	fs.IntVar(&cfg.DocJPEGQuality, "pdf-jpeg-quality", cfg.DocJPEGQuality, "PDF raster quality (1-100)")
}

// defineBehaviorFlags registers dry-run, force, workers.
func defineBehaviorFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Preview only; do not transcode or copy")
	fs.BoolVar(&cfg.DryRun, "d", false, "Same as --dry-run")
	fs.BoolVar(&n.force, "force", false, "Reprocess assets whose destination already exists")
	fs.BoolVar(&n.force, "f", false, "Same as --force")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Parallel workers (0 = physical CPU cores)")
	fs.IntVar(&cfg.Workers, "j", cfg.Workers, "Same as --workers")
}

// defineDisplayFlags registers --color, --no-color, verbose, --check, --log.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")
	fs.StringVar(&cfg.LogFile, "log", "", "Append JSON logs to file")
	fs.StringVar(&cfg.LogFile, "l", "", "Same as --log")
}

// defineUtilityFlags registers --version and --help (exit after printing).
func defineUtilityFlags(fs *flag.FlagSet, n *negatedFlags) {
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies negated flag values into cfg (e.g. noVideo -> OptimizeVideo=false).
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noGamelists {
		cfg.ProcessGamelists = false
	}
	if n.noMedia {
		cfg.ProcessMedia = false
	}
	if n.noVideo {
		cfg.OptimizeVideo = false
	}
	if n.noImages {
		cfg.OptimizeImages = false
	}
	if n.noDocs {
		cfg.OptimizeDocs = false
	}
	if n.force {
		cfg.SkipExisting = false
	}
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parsePositionalArgs sets InputDir and OutputDir from the two positional args when not in CheckOnly mode.
func parsePositionalArgs(fs *flag.FlagSet, cfg *Config) error {
	args := fs.Args()
	if cfg.CheckOnly {
		return nil
	}
	if len(args) != 2 {
		return fmt.Errorf("need exactly input_dir and output_dir")
	}
	cfg.InputDir = NormalizeDirArg(args[0])
	cfg.OutputDir = NormalizeDirArg(args[1])
	return nil
}

// applyCRFOverride applies --crf to the active codec family's quality field.
func applyCRFOverride(cfg *Config) error {
	if cfg.CRFOverride == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(cfg.CRFOverride))
	if err != nil {
		return fmt.Errorf("crf must be a whole number (got %q)", cfg.CRFOverride)
	}
	if cfg.VideoCodec == CodecAV1 {
		cfg.Av1CRF = n
	} else {
		cfg.HevcCRF = n
	}
	return nil
}

// printUsage writes the help text to stderr. Column-aligned for readability.
func printUsage(fs *flag.FlagSet, version string) {
	const col1 = 28 // width of "  -x, --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "gamepress v" + version + " — game-library media optimizer"},
		{"", ""},
		{"  gamepress [OPTIONS] <input_dir> <output_dir>", ""},
		{"", ""},
		{"Selection", ""},
		{"  --no-gamelists", "Skip gamelist relocation"},
		{"  --no-media", "Skip media folders entirely"},
		{"  --no-video", "Copy videos instead of transcoding"},
		{"  --no-images", "Copy images instead of re-encoding"},
		{"  --no-docs", "Copy PDFs instead of recompressing"},
		{"", ""},
		{"Video", ""},
		{"  --codec <hevc|av1>", "Video codec family (default: hevc)"},
		{"  --crf <value>", "Fixed CRF for the active codec family"},
		{"  --preset <name>", "x265 preset (default: slow)"},
		{"  --av1-preset <0-13>", "SVT-AV1 preset (default: 6)"},
		{"  --audio-bitrate <rate>", "Opus VBR target (default: 128k)"},
		{"", ""},
		{"Images & documents", ""},
		{"  --webp-quality <1-100>", "WebP quality (default: 80)"},
		{"  --pdf-jpeg-quality <1-100>", "PDF raster quality (default: 75)"},
		{"", ""},
		{"Output & behavior", ""},
		{"  -f, --force", "Reprocess existing destinations"},
		{"  -d, --dry-run", "Preview only; do not transcode or copy"},
		{"  -j, --workers <n>", "Parallel workers (default: physical cores)"},
		{"  --config <path>", "YAML config file (overlaid before flags)"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append JSON logs to file"},
		{"  -c, --check", "System diagnostics (ffmpeg, encoders, gs, ocrmypdf)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(os.Stderr)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(os.Stderr, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(os.Stderr, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(os.Stderr, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// flag.Value adapter so the CodecFamily enum works with flag.Var.

type codecFamilyValue struct{ p *CodecFamily }

func (c *codecFamilyValue) String() string {
	if c.p == nil {
		return ""
	}
	return string(*c.p)
}

func (c *codecFamilyValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "hevc", "x265", "h265":
		*c.p = CodecHEVC
	case "av1", "svtav1":
		*c.p = CodecAV1
	default:
		return fmt.Errorf("invalid codec %q (use 'hevc' or 'av1')", s)
	}
	return nil
}
