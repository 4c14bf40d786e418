// Package codec wraps the external transcoders behind one narrow contract:
// given a source file and a scratch directory, produce a smaller candidate
// file or report a typed failure. Invokers never touch the source file and
// never write outside the scratch directory; promotion to the destination
// tree is the pipeline's job.
package codec

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// minCandidateBytes is the floor below which a candidate is considered
// truncated or corrupt. A zero-byte "win" must never pass the size gate.
const minCandidateBytes = 64

// Invoker produces a candidate file for one source asset. The returned path
// is inside scratchDir and owned by the caller. A nil error guarantees the
// candidate exists and passed the truncation check.
type Invoker interface {
	Transcode(ctx context.Context, srcPath, scratchDir string) (string, error)
}

// validateCandidate rejects missing, empty, or suspiciously small outputs.
// External tools can exit zero and still leave a truncated file behind
// (full disk, killed child); this is the last line before the size gate.
func validateCandidate(path, srcPath string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return &Failure{Kind: FailTranscode, Path: srcPath,
			Err: fmt.Errorf("candidate missing: %w", err)}
	}
	if fi.Size() < minCandidateBytes {
		return &Failure{Kind: FailTranscode, Path: srcPath,
			Err: fmt.Errorf("candidate truncated (%d bytes)", fi.Size())}
	}
	return nil
}

// stderrTail returns the last few lines of captured stderr for error
// messages, so a multi-screen ffmpeg dump doesn't swamp the report.
func stderrTail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, " | ")
}
