package codec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/backmassage/gamepress/internal/ffmpeg"
	"github.com/backmassage/gamepress/internal/planner"
)

// VideoInvoker transcodes a video asset to MKV via ffmpeg using the run's
// video profile (x265 or SVT-AV1 plus Opus audio).
type VideoInvoker struct {
	Profile planner.VideoProfile
	Verbose bool
}

// Transcode runs ffmpeg against srcPath, writing a uuid-named candidate
// into scratchDir. A cancelled context kills the encoder; the partial
// candidate is removed before returning.
func (v *VideoInvoker) Transcode(ctx context.Context, srcPath, scratchDir string) (string, error) {
	candidate := filepath.Join(scratchDir, uuid.NewString()+"."+v.Profile.Container)

	args := ffmpeg.Build(v.Profile, srcPath, candidate, v.Verbose)
	res := ffmpeg.Execute(ctx, args, v.Verbose)
	if res.Err != nil {
		os.Remove(candidate)
		kind := FailTranscode
		var execErr *exec.Error
		if errors.As(res.Err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			kind = FailMissingDependency
		}
		return "", &Failure{Kind: kind, Path: srcPath,
			Err: fmt.Errorf("ffmpeg: %w (%s)", res.Err, stderrTail(res.Stderr))}
	}

	if err := validateCandidate(candidate, srcPath); err != nil {
		os.Remove(candidate)
		return "", err
	}
	return candidate, nil
}
