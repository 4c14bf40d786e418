package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/backmassage/gamepress/internal/asset"
	"github.com/backmassage/gamepress/internal/codec"
	"github.com/backmassage/gamepress/internal/config"
	"github.com/backmassage/gamepress/internal/layout"
	"github.com/backmassage/gamepress/internal/probe"
)

// minSourceBytes is the floor below which a source file is treated as
// corrupt rather than optimized. Scrapers occasionally leave zero-byte
// downloads behind.
const minSourceBytes = 64

// strategy maps an asset's kind to a codec invocation and applies the
// replacement policy. One strategy value is shared by all workers; it holds
// no per-asset state.
type strategy struct {
	cfg     *config.Config
	mapper  layout.Mapper
	scratch string

	video codec.Invoker
	image codec.Invoker
	doc   codec.Invoker

	probeFn   func(context.Context, string) (*probe.Result, error)
	skipVideo probe.SkipPredicate
}

// process takes one asset to a terminal state and returns the result for
// the aggregator. It never returns early on per-asset errors; those become
// OutcomeFailed results. The skip-existing check runs before the dry-run
// short circuit so a dry run reports exactly what a real run would do.
func (s *strategy) process(ctx context.Context, index int, a asset.Asset) result {
	start := time.Now()
	r := result{index: index, asset: a}
	dest := s.mapper.DestPath(a)

	switch {
	case s.skipExisting(a, dest):
		r.outcome = OutcomeSkipped
		r.existing = true
	case s.cfg.DryRun:
		r.outcome = OutcomeSkipped
	default:
		r.outcome, r.outBytes, r.err = s.dispatch(ctx, a, dest)
	}

	r.elapsed = time.Since(start)
	return r
}

func (s *strategy) dispatch(ctx context.Context, a asset.Asset, dest string) (Outcome, int64, error) {
	switch a.Kind {
	case asset.KindGamelist, asset.KindUnknown:
		return s.copyThrough(a, dest)
	case asset.KindVideo, asset.KindImage, asset.KindDocument:
		// Handled below after the size sanity check.
	}

	if a.Size < minSourceBytes {
		return keepOriginal(a, OutcomeFailed, dest,
			&codec.Failure{Kind: codec.FailSourceUnreadable, Path: a.SourcePath,
				Err: fmt.Errorf("source too small (%d bytes), possibly corrupt", a.Size)})
	}

	switch a.Kind {
	case asset.KindVideo:
		return s.processVideo(ctx, a, dest)
	case asset.KindImage:
		return s.processImage(ctx, a, dest)
	default:
		return s.processDocument(ctx, a, dest)
	}
}

// processVideo probes the source, copies through already-efficient encodes,
// and otherwise transcodes. A winning candidate lands under the MKV
// container extension; a kept original retains its name.
func (s *strategy) processVideo(ctx context.Context, a asset.Asset, dest string) (Outcome, int64, error) {
	if !s.cfg.OptimizeVideo {
		return s.copyThrough(a, dest)
	}

	pr, err := s.probeFn(ctx, a.SourcePath)
	if err != nil {
		return keepOriginal(a, OutcomeFailed, dest,
			&codec.Failure{Kind: codec.FailSourceUnreadable, Path: a.SourcePath,
				Err: fmt.Errorf("probe: %w", err)})
	}
	if !pr.HasVideo() {
		return keepOriginal(a, OutcomeFailed, dest,
			&codec.Failure{Kind: codec.FailClassification, Path: a.SourcePath,
				Err: fmt.Errorf("no video stream in a video-classified file")})
	}
	if s.skipVideo(pr) {
		return s.copyThrough(a, dest)
	}

	candidate, terr := s.video.Transcode(ctx, a.SourcePath, s.scratch)
	return resolve(ctx, a, candidate, terr, replaceExt(dest, ".mkv"), dest)
}

// processImage re-encodes to WebP unless the source already holds WebP
// bytes. Either way the destination keeps the original file name, so
// gamelist references stay valid.
func (s *strategy) processImage(ctx context.Context, a asset.Asset, dest string) (Outcome, int64, error) {
	if !s.cfg.OptimizeImages {
		return s.copyThrough(a, dest)
	}
	if codec.IsWebP(a.SourcePath) {
		return s.copyThrough(a, dest)
	}

	candidate, terr := s.image.Transcode(ctx, a.SourcePath, s.scratch)
	return resolve(ctx, a, candidate, terr, dest, dest)
}

func (s *strategy) processDocument(ctx context.Context, a asset.Asset, dest string) (Outcome, int64, error) {
	if !s.cfg.OptimizeDocs {
		return s.copyThrough(a, dest)
	}

	candidate, terr := s.doc.Transcode(ctx, a.SourcePath, s.scratch)
	return resolve(ctx, a, candidate, terr, dest, dest)
}

// copyThrough places an unmodified copy of the source at the destination.
func (s *strategy) copyThrough(a asset.Asset, dest string) (Outcome, int64, error) {
	return keepOriginal(a, OutcomeUnchanged, dest, nil)
}

// skipExisting reports whether a non-empty destination file already exists.
// Videos check both possible destinations, since a previous run may have
// promoted a replacement under the MKV extension.
func (s *strategy) skipExisting(a asset.Asset, dest string) bool {
	if !s.cfg.SkipExisting {
		return false
	}
	if nonEmptyFile(dest) {
		return true
	}
	if a.Kind == asset.KindVideo && nonEmptyFile(replaceExt(dest, ".mkv")) {
		return true
	}
	return false
}

func nonEmptyFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Size() > 0
}

// replaceExt swaps the extension of path for ext (with leading dot).
func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
