// Package ffmpeg builds and executes ffmpeg invocations for the video
// transcode path. The argument skeleton follows one shape for both codec
// families; only the encoder section differs.
package ffmpeg

import (
	"strconv"

	"github.com/backmassage/gamepress/internal/planner"
)

// Build constructs the complete ffmpeg argument slice for transcoding
// inputPath to outputPath under the given profile. The source file is
// opened read-only by ffmpeg; only outputPath is written.
//
// All audio tracks are mapped and re-encoded (none dropped); data streams
// are discarded; metadata and chapters are carried over.
func Build(p planner.VideoProfile, inputPath, outputPath string, verbose bool) []string {
	args := make([]string, 0, 40)

	// --- Preamble ---
	args = append(args, "ffmpeg", "-hide_banner", "-nostdin", "-y")

	if verbose {
		args = append(args, "-loglevel", "info", "-stats", "-stats_period", "1")
	} else {
		args = append(args, "-loglevel", "error")
	}

	args = append(args,
		"-probesize", p.Probesize,
		"-analyzeduration", p.AnalyzeDuration,
		"-ignore_unknown",
	)

	// --- Input ---
	args = append(args, "-i", inputPath)

	// --- Stream maps: primary video plus every audio track ---
	args = append(args, "-map", "0:v:0", "-map", "0:a?", "-dn")

	// --- Video codec ---
	args = appendVideoCodec(args, p)

	// --- Audio: re-encode all tracks to Opus VBR ---
	args = append(args,
		"-c:a", p.AudioEncoder,
		"-b:a", p.AudioBitrate,
		"-vbr", "on",
	)

	// --- Metadata and chapters ---
	args = append(args, "-map_metadata", "0", "-map_chapters", "0")

	// --- Output ---
	args = append(args, outputPath)

	return args
}

// appendVideoCodec adds the encoder-specific arguments for the profile's
// codec family.
func appendVideoCodec(args []string, p planner.VideoProfile) []string {
	switch p.Encoder {
	case "libsvtav1":
		args = append(args,
			"-c:v", "libsvtav1",
			"-crf", strconv.Itoa(p.CRF),
			"-preset", p.Preset,
			"-pix_fmt", p.PixFmt,
			"-svtav1-params", "tune=0",
		)
	default: // libx265
		args = append(args,
			"-c:v", "libx265",
			"-crf", strconv.Itoa(p.CRF),
			"-preset", p.Preset,
			"-profile:v", "main10",
			"-pix_fmt", p.PixFmt,
			"-x265-params", "log-level=error",
		)
	}
	return args
}
