package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/backmassage/gamepress/internal/planner"
)

// External PDF tool names, also verified by the startup dependency check.
const (
	ToolOCRmyPDF    = "ocrmypdf"
	ToolGhostscript = "gs"
)

// DocInvoker recompresses PDF manuals. With OCR support available it runs
// ocrmypdf (JPEG2000 raster recompression plus lossy JBIG2 for scanned
// text pages); otherwise it falls back to Ghostscript's pdfwrite device,
// which recompresses rasters without the bilevel pass.
type DocInvoker struct {
	Profile planner.DocProfile
}

// Transcode runs the selected PDF tool against srcPath, writing a
// uuid-named candidate into scratchDir.
func (d *DocInvoker) Transcode(ctx context.Context, srcPath, scratchDir string) (string, error) {
	candidate := filepath.Join(scratchDir, uuid.NewString()+".pdf")

	var cmd *exec.Cmd
	if d.Profile.UseOCR {
		cmd = exec.CommandContext(ctx, ToolOCRmyPDF,
			"--optimize", "3",
			"--skip-text",
			"--jbig2-lossy",
			"--jpeg-quality", strconv.Itoa(d.Profile.JPEGQuality),
			"--output-type", "pdf",
			"--quiet",
			srcPath, candidate,
		)
	} else {
		cmd = exec.CommandContext(ctx, ToolGhostscript,
			"-sDEVICE=pdfwrite",
			"-dCompatibilityLevel=1.5",
			"-dPDFSETTINGS=/ebook",
			"-dNOPAUSE", "-dBATCH", "-dQUIET",
			"-sOutputFile="+candidate,
			srcPath,
		)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(candidate)
		kind := FailTranscode
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			kind = FailMissingDependency
		}
		return "", &Failure{Kind: kind, Path: srcPath,
			Err: fmt.Errorf("%s: %w (%s)", cmd.Path, err, stderrTail(stderr.String()))}
	}

	if err := validateCandidate(candidate, srcPath); err != nil {
		os.Remove(candidate)
		return "", err
	}
	return candidate, nil
}
