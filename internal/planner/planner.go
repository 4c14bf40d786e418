// Package planner resolves the per-kind optimization profiles from the
// runtime configuration. Profiles are built once at startup and are
// immutable for the duration of a run; the codec invokers consume them to
// build their external tool invocations.
package planner

import "github.com/backmassage/gamepress/internal/config"

// VideoProfile is the parameter bundle for the video transcode path:
// MKV container, a constant-quality high-efficiency video encode, and all
// audio tracks re-encoded to Opus VBR.
type VideoProfile struct {
	Family    config.CodecFamily
	Encoder   string // "libx265" or "libsvtav1"
	CRF       int
	Preset    string
	PixFmt    string
	Container string // Extension without dot; always "mkv".

	AudioEncoder string // "libopus"
	AudioBitrate string // e.g. "128k"

	// ffmpeg input analysis limits; scraped clips occasionally carry broken
	// headers that need deeper probing.
	Probesize       string
	AnalyzeDuration string
}

// ImageProfile is the parameter bundle for the WebP re-encode path.
type ImageProfile struct {
	Quality float32 // 1-100.
}

// DocProfile is the parameter bundle for PDF recompression.
// UseOCR selects the ocrmypdf path (JPEG2000 plus lossy JBIG2 for scanned
// text); when false the Ghostscript wavelet-only fallback is used.
type DocProfile struct {
	UseOCR      bool
	JPEGQuality int
}

// Profiles is the complete per-run strategy table, one profile per
// optimizable kind.
type Profiles struct {
	Video VideoProfile
	Image ImageProfile
	Doc   DocProfile
}

// Build resolves Profiles from cfg. ocrAvailable reports whether the
// optional ocrmypdf tool was found during the startup dependency check.
func Build(cfg *config.Config, ocrAvailable bool) Profiles {
	encoder := "libx265"
	if cfg.VideoCodec == config.CodecAV1 {
		encoder = "libsvtav1"
	}

	return Profiles{
		Video: VideoProfile{
			Family:       cfg.VideoCodec,
			Encoder:      encoder,
			CRF:          cfg.ActiveCRF(),
			Preset:       cfg.ActivePreset(),
			PixFmt:       cfg.VideoPixFmt,
			Container:    "mkv",
			AudioEncoder:    cfg.AudioEncoder,
			AudioBitrate:    cfg.AudioBitrate,
			Probesize:       cfg.FFmpegProbesize,
			AnalyzeDuration: cfg.FFmpegAnalyzeDuration,
		},
		Image: ImageProfile{
			Quality: float32(cfg.WebPQuality),
		},
		Doc: DocProfile{
			UseOCR:      ocrAvailable,
			JPEGQuality: cfg.DocJPEGQuality,
		},
	}
}
