// Package asset defines the media asset value and its kind classification.
// Classification is a pure function of the file name; content sniffing for
// special cases (e.g. WebP hiding behind a .png extension) lives with the
// codec invokers.
package asset

import (
	"path/filepath"
	"strings"
)

// Kind is the closed set of media classifications the pipeline dispatches on.
type Kind int

const (
	KindUnknown  Kind = iota // Passed through unchanged; not a failure.
	KindVideo                // Transcode to MKV (x265/SVT-AV1 + Opus).
	KindImage                // Re-encode to WebP, keeping the original extension.
	KindDocument             // PDF recompression (ocrmypdf or Ghostscript).
	KindGamelist             // Relocated, never transcoded.
)

// String returns the lowercase label used in logs and reports.
func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindImage:
		return "image"
	case KindDocument:
		return "document"
	case KindGamelist:
		return "gamelist"
	default:
		return "unknown"
	}
}

// Asset is one source file subject to optimization. The source file is
// read-only for the entire run; all processing writes elsewhere.
type Asset struct {
	SourcePath string // Absolute path under the input root.
	RelPath    string // Path relative to the input root (destination key).
	Kind       Kind
	Size       int64 // Byte size at discovery time.
}

// System returns the system/console name an asset belongs to: the first
// component of its relative path (e.g. "megadrive/media/covers/x.png").
// Gamelists instead use the directory that directly contains them, so a
// gamelist keeps its system key regardless of nesting depth.
func (a Asset) System() string {
	if a.Kind == KindGamelist {
		return filepath.Base(filepath.Dir(a.RelPath))
	}
	rel := filepath.ToSlash(a.RelPath)
	if i := strings.IndexByte(rel, '/'); i > 0 {
		return rel[:i]
	}
	return ""
}

// GamelistName is the metadata file name relocated by the layout mapper.
const GamelistName = "gamelist.xml"

// Extension sets per kind (lowercase, with leading dot).
var (
	videoExtensions = map[string]bool{
		".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
		".m4v": true, ".webm": true, ".mpg": true, ".mpeg": true,
	}
	imageExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
	}
	documentExtensions = map[string]bool{
		".pdf": true,
	}
)

// Classify maps a file name to its Kind. Unrecognized extensions are
// KindUnknown, which the pipeline copies through rather than failing.
func Classify(name string) Kind {
	base := filepath.Base(name)
	if base == GamelistName {
		return KindGamelist
	}
	ext := strings.ToLower(filepath.Ext(base))
	switch {
	case videoExtensions[ext]:
		return KindVideo
	case imageExtensions[ext]:
		return KindImage
	case documentExtensions[ext]:
		return KindDocument
	default:
		return KindUnknown
	}
}

// Hidden reports whether a file should be excluded from discovery entirely:
// AppleDouble sidecars ("._foo") and other dotfiles left behind by scrapers.
func Hidden(name string) bool {
	return strings.HasPrefix(filepath.Base(name), ".")
}
