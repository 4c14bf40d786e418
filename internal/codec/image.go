package codec

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	// Register decoders for the content sniff in IsWebP: scrapers sometimes
	// deliver WebP bytes behind a .png/.jpg name.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/backmassage/gamepress/internal/planner"
)

// ImageInvoker re-encodes PNG/JPEG assets to lossy WebP in-process. No
// external tool is involved; the dependency check has nothing to verify
// for this path.
type ImageInvoker struct {
	Profile planner.ImageProfile
}

// Transcode decodes srcPath and writes a WebP candidate into scratchDir.
// The candidate carries a .webp extension here; the pipeline renames it to
// the source's original name on promotion, so extension-based resolvers
// keep working.
func (i *ImageInvoker) Transcode(ctx context.Context, srcPath, scratchDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Failure{Kind: FailTranscode, Path: srcPath, Err: err}
	}

	img, err := imaging.Open(srcPath)
	if err != nil {
		return "", &Failure{Kind: FailSourceUnreadable, Path: srcPath,
			Err: fmt.Errorf("decode: %w", err)}
	}

	candidate := filepath.Join(scratchDir, uuid.NewString()+".webp")
	f, err := os.Create(candidate)
	if err != nil {
		return "", &Failure{Kind: FailTranscode, Path: srcPath,
			Err: fmt.Errorf("scratch file: %w", err)}
	}

	encErr := webp.Encode(f, img, &webp.Options{Quality: i.Profile.Quality})
	closeErr := f.Close()
	if encErr != nil || closeErr != nil {
		os.Remove(candidate)
		if encErr == nil {
			encErr = closeErr
		}
		return "", &Failure{Kind: FailTranscode, Path: srcPath,
			Err: fmt.Errorf("webp encode: %w", encErr)}
	}

	if err := validateCandidate(candidate, srcPath); err != nil {
		os.Remove(candidate)
		return "", err
	}
	return candidate, nil
}

// IsWebP sniffs whether the file already contains WebP bytes regardless of
// its extension. Used by the image strategy to copy already-optimized
// sources through instead of re-encoding them.
func IsWebP(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	return err == nil && format == "webp"
}
