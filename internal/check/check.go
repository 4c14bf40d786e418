// Package check provides system diagnostics (--check mode) and pre-run
// dependency validation (CheckDeps) for ffmpeg, ffprobe, Ghostscript, and
// ocrmypdf.
package check

import (
	"errors"
	"os/exec"
	"strings"

	"github.com/backmassage/gamepress/internal/config"
)

// Sentinel errors returned by CheckDeps when a required tool or encoder is
// missing.
var (
	ErrFfmpegNotFound      = errors.New("ffmpeg not found on PATH")
	ErrFfprobeNotFound     = errors.New("ffprobe not found on PATH")
	ErrGhostscriptNotFound = errors.New("ghostscript (gs) not found on PATH")
	ErrVideoEncodeFailed   = errors.New("selected video encoder failed a test encode")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// RunCheck runs the interactive --check flow: prints availability of ffmpeg,
// ffprobe, the HEVC/AV1 encoders, the Opus audio encoder, Ghostscript, and
// ocrmypdf. Diagnostics are scoped to the asset kinds the configuration has
// enabled. This is informational only, it does not stop on failure.
func RunCheck(cfg *config.Config, log Logger) {
	log.Info("=== System Check ===")

	if cfg.OptimizeVideo {
		checkFfmpeg(log)
		checkVideoEncoders(log)
		checkOpus(log)
	} else {
		log.Info("Video optimization disabled; skipping ffmpeg checks")
	}

	if cfg.OptimizeDocs {
		checkPDFTools(log)
	} else {
		log.Info("Document optimization disabled; skipping PDF tool checks")
	}

	if cfg.OptimizeImages {
		log.Info("WebP image encoding runs in-process; no external tool needed")
	}
}

// checkFfmpeg verifies ffmpeg is on PATH and logs its version string.
func checkFfmpeg(log Logger) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		log.Error("ffmpeg not found")
		return
	}
	out, err := exec.Command("ffmpeg", "-version").Output()
	if err != nil {
		log.Warn("ffmpeg found but -version failed: %v", err)
		return
	}
	log.Info("ffmpeg: %s", firstLine(string(out)))
}

// checkVideoEncoders lists HEVC/AV1 encoders and runs a test encode with each
// software encoder the profiles can select.
func checkVideoEncoders(log Logger) {
	log.Info("Video encoders:")
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").Output()
	if err != nil {
		log.Warn("Could not list encoders: %v", err)
		return
	}
	for _, line := range strings.Split(string(out), "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "hevc") || strings.Contains(lower, "265") ||
			strings.Contains(lower, "av1") {
			log.Info("  %s", strings.TrimSpace(line))
		}
	}

	if runSilent("ffmpeg", videoTestArgs("libx265")...) {
		log.Info("libx265 test encode: ok")
	} else {
		log.Error("libx265 test encode failed")
	}
	if runSilent("ffmpeg", videoTestArgs("libsvtav1")...) {
		log.Info("libsvtav1 test encode: ok")
	} else {
		log.Warn("libsvtav1 test encode failed (only needed with --codec av1)")
	}
}

// checkOpus runs a minimal Opus encode to verify the audio encoder works.
func checkOpus(log Logger) {
	if runSilent("ffmpeg",
		"-hide_banner", "-nostdin",
		"-f", "lavfi", "-i", "sine=frequency=1000:duration=0.1",
		"-c:a", "libopus", "-f", "null", "-",
	) {
		log.Info("libopus encoder: ok")
	} else {
		log.Error("libopus test encode failed")
	}
}

// checkPDFTools reports on Ghostscript and ocrmypdf availability.
func checkPDFTools(log Logger) {
	if out, err := exec.Command("gs", "--version").Output(); err == nil {
		log.Info("ghostscript: %s", firstLine(string(out)))
	} else {
		log.Error("ghostscript (gs) not found; PDF optimization unavailable")
	}
	if out, err := exec.Command("ocrmypdf", "--version").Output(); err == nil {
		log.Info("ocrmypdf: %s", firstLine(string(out)))
	} else {
		log.Warn("ocrmypdf not found; PDFs fall back to Ghostscript recompression")
	}
}

// CheckDeps is the pre-run validation. It verifies the tools the enabled
// asset kinds need: ffmpeg and ffprobe (plus a quick test encode with the
// selected encoder) when video optimization is on, Ghostscript when document
// optimization is on. ocrmypdf is never required; its availability is
// returned so the planner can pick the PDF strategy. Returns a sentinel
// error on failure.
func CheckDeps(cfg *config.Config) (ocrAvailable bool, err error) {
	if cfg.OptimizeVideo {
		if _, err := exec.LookPath("ffmpeg"); err != nil {
			return false, ErrFfmpegNotFound
		}
		if _, err := exec.LookPath("ffprobe"); err != nil {
			return false, ErrFfprobeNotFound
		}
		encoder := "libx265"
		if cfg.VideoCodec == config.CodecAV1 {
			encoder = "libsvtav1"
		}
		if !runSilent("ffmpeg", videoTestArgs(encoder)...) {
			return false, ErrVideoEncodeFailed
		}
	}

	if cfg.OptimizeDocs {
		if _, err := exec.LookPath("gs"); err != nil {
			return false, ErrGhostscriptNotFound
		}
		if _, err := exec.LookPath("ocrmypdf"); err == nil {
			ocrAvailable = true
		}
	}

	return ocrAvailable, nil
}

// --- internal helpers ---

// videoTestArgs returns the ffmpeg arguments for a minimal test encode with
// the given encoder.
func videoTestArgs(encoder string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=black:s=256x256:d=0.1",
		"-c:v", encoder,
		"-f", "null", "-",
	}
}

// firstLine returns the first line of a command's output, trimmed.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx > 0 {
		s = s[:idx]
	}
	return s
}

// runSilent runs a command and returns true if it exits with status 0.
// Both stdout and stderr are discarded.
func runSilent(name string, args ...string) bool {
	cmd := exec.Command(name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}
