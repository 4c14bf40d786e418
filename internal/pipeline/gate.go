package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/backmassage/gamepress/internal/asset"
	"github.com/backmassage/gamepress/internal/codec"
	"github.com/backmassage/gamepress/internal/layout"
)

// resolve applies the size-gated replacement policy to one asset. A smaller
// candidate is promoted to replacedDest; anything else puts a copy of the
// original at originalDest, so the destination tree is complete either way.
// The two destinations differ only for video, where a replacement switches
// the container extension.
//
// The one exception is an interrupt: a transcode killed by context
// cancellation leaves no destination file at all, so the next run sees a
// missing destination and picks the asset up again instead of skipping it.
//
// The returned byte count is what actually landed in the destination tree.
func resolve(ctx context.Context, a asset.Asset, candidate string, tErr error, replacedDest, originalDest string) (Outcome, int64, error) {
	if tErr != nil {
		if ctx.Err() != nil {
			return OutcomeFailed, 0, tErr
		}
		return keepOriginal(a, OutcomeFailed, originalDest, tErr)
	}

	fi, err := os.Stat(candidate)
	if err != nil {
		return keepOriginal(a, OutcomeFailed, originalDest,
			&codec.Failure{Kind: codec.FailTranscode, Path: a.SourcePath,
				Err: fmt.Errorf("candidate vanished: %w", err)})
	}

	if fi.Size() < a.Size {
		if err := layout.Promote(candidate, replacedDest); err != nil {
			os.Remove(candidate)
			return keepOriginal(a, OutcomeFailed, originalDest,
				&codec.Failure{Kind: codec.FailDestinationWrite, Path: replacedDest, Err: err})
		}
		return OutcomeReplaced, fi.Size(), nil
	}

	// Candidate did not win; discard it and keep the original.
	os.Remove(candidate)
	return keepOriginal(a, OutcomeUnchanged, originalDest, nil)
}

// keepOriginal copies the untouched source into the destination tree and
// reports the given outcome. A copy failure downgrades the outcome to Failed
// and joins both errors so neither cause is lost.
func keepOriginal(a asset.Asset, outcome Outcome, originalDest string, cause error) (Outcome, int64, error) {
	if err := layout.CopyFile(a.SourcePath, originalDest); err != nil {
		werr := &codec.Failure{Kind: codec.FailDestinationWrite, Path: originalDest, Err: err}
		return OutcomeFailed, 0, errors.Join(cause, werr)
	}
	return outcome, a.Size, cause
}
