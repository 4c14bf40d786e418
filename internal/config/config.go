// Package config holds runtime configuration: defaults, optional YAML file
// overlay, CLI flag parsing, and validation. A Config is built once at
// startup and treated as immutable for the rest of the run.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// --- Enum types for validated string fields ---

// CodecFamily selects the video encoder family.
type CodecFamily string

const (
	CodecHEVC CodecFamily = "hevc" // libx265 (default; faster, broadly compatible).
	CodecAV1  CodecFamily = "av1"  // libsvtav1 (opt-in; slower, denser).
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// optionally overlaid from a YAML file, and then mutated by [ParseFlags]
// before being passed (by pointer) to packages that need it. Fields are
// grouped by concern with inline documentation of defaults.
type Config struct {
	// Paths (set from positional args).
	InputDir  string
	OutputDir string

	// Selection toggles.
	ProcessGamelists bool // Default: true. Cleared by --no-gamelists.
	ProcessMedia     bool // Default: true. Cleared by --no-media.
	OptimizeVideo    bool // Default: true. Cleared by --no-video.
	OptimizeImages   bool // Default: true. Cleared by --no-images.
	OptimizeDocs     bool // Default: true. Cleared by --no-docs.

	// Video encoding.
	VideoCodec  CodecFamily
	HevcCRF     int    // Default: 23.
	Av1CRF      int    // Default: 28.
	HevcPreset  string // Default: "slow".
	Av1Preset   string // Default: "6" (SVT-AV1 preset number).
	VideoPixFmt string // Fixed default: "yuv420p10le".

	// Audio encoding (all tracks re-encoded, none dropped).
	AudioEncoder string // Fixed default: "libopus".
	AudioBitrate string // Default: "128k" (VBR target).

	// Image encoding.
	WebPQuality int // Default: 80.

	// Document compression.
	DocJPEGQuality int // Default: 75. Passed to ocrmypdf --jpeg-quality.

	// Behavior flags.
	DryRun       bool
	SkipExisting bool // Default: true. Cleared by --force.
	Workers      int  // Default: 0 (auto: physical CPU cores).

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional JSON log file path.
	CheckOnly bool      // Run --check diagnostics and exit.

	// Quality override (populated during flag parsing; applies to the
	// active codec family).
	CRFOverride string

	// ffmpeg probe constants (not user-configurable).
	FFmpegProbesize       string
	FFmpegAnalyzeDuration string
}

// DefaultConfig returns a Config with all defaults matching the legacy
// optimizer script. Used as the base before file and flag overrides.
func DefaultConfig() Config {
	return Config{
		ProcessGamelists:      true,
		ProcessMedia:          true,
		OptimizeVideo:         true,
		OptimizeImages:        true,
		OptimizeDocs:          true,
		VideoCodec:            CodecHEVC,
		HevcCRF:               23,
		Av1CRF:                28,
		HevcPreset:            "slow",
		Av1Preset:             "6",
		VideoPixFmt:           "yuv420p10le",
		AudioEncoder:          "libopus",
		AudioBitrate:          "128k",
		WebPQuality:           80,
		DocJPEGQuality:        75,
		DryRun:                false,
		SkipExisting:          true,
		Workers:               0,
		Verbose:               false,
		ColorMode:             ColorAuto,
		CheckOnly:             false,
		FFmpegProbesize:       "100M",
		FFmpegAnalyzeDuration: "100M",
	}
}

// ActiveCRF returns the constant-quality target for the selected codec family.
func (c *Config) ActiveCRF() int {
	if c.VideoCodec == CodecAV1 {
		return c.Av1CRF
	}
	return c.HevcCRF
}

// ActivePreset returns the encoder preset for the selected codec family.
func (c *Config) ActivePreset() string {
	if c.VideoCodec == CodecAV1 {
		return c.Av1Preset
	}
	return c.HevcPreset
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and numeric ranges. When not in CheckOnly
// mode it also requires non-empty input and output directories.
func (c *Config) Validate() error {
	switch c.VideoCodec {
	case CodecHEVC, CodecAV1:
		// valid
	default:
		return errors.New("invalid codec (use 'hevc' or 'av1')")
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.WebPQuality < 1 || c.WebPQuality > 100 {
		return fmt.Errorf("webp quality must be 1-100 (got %d)", c.WebPQuality)
	}
	if c.DocJPEGQuality < 1 || c.DocJPEGQuality > 100 {
		return fmt.Errorf("pdf jpeg quality must be 1-100 (got %d)", c.DocJPEGQuality)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0 (got %d)", c.Workers)
	}

	normalizedBitrate, err := normalizeAudioBitrate(c.AudioBitrate)
	if err != nil {
		return err
	}
	c.AudioBitrate = normalizedBitrate

	if c.CheckOnly {
		return nil
	}
	if c.InputDir == "" || c.OutputDir == "" {
		return errors.New("need exactly input_dir and output_dir")
	}
	return nil
}

// normalizeAudioBitrate validates and canonicalizes user bitrate input.
// Accepted forms: "128", "128k", "128K", "128kbps". Output is "<n>k".
func normalizeAudioBitrate(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", errors.New("audio bitrate must not be empty")
	}
	if strings.HasSuffix(s, "kbps") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "kbps"))
	} else if strings.HasSuffix(s, "k") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "k"))
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid audio bitrate %q (use positive Kbps value, e.g. 128k)", raw)
	}
	return fmt.Sprintf("%dk", n), nil
}

// ValidatePaths ensures the resolved output directory is not inside (or equal
// to) the resolved input directory. This prevents the pipeline from
// recursively discovering its own output files. Both arguments must be
// absolute, symlink-resolved paths.
func (c *Config) ValidatePaths(inputAbs, outputAbs string) error {
	sep := string(filepath.Separator)
	if outputAbs == inputAbs || strings.HasPrefix(outputAbs+sep, inputAbs+sep) {
		return errors.New("output directory must not be inside input directory")
	}
	return nil
}
