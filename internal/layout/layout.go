// Package layout maps source-relative asset paths to destination paths and
// moves finished files into place. Scraped trees keep per-system media under
// a "media" folder; the destination collects those under one downloaded_media
// tree and pulls every gamelist into a flat gamelists tree keyed by system,
// which is where frontends expect to find them.
package layout

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/gamepress/internal/asset"
)

// Destination tree names under the output root.
const (
	MediaTree    = "downloaded_media"
	GamelistTree = "gamelists"
)

// Mapper computes destination paths for assets relative to the output root.
type Mapper struct {
	OutputRoot string
}

// DestPath returns the absolute destination path for an asset, before any
// extension change the strategy may apply (video containers switch to .mkv
// on replacement).
func (m Mapper) DestPath(a asset.Asset) string {
	if a.Kind == asset.KindGamelist {
		return m.gamelistPath(a)
	}
	return m.mediaPath(a.RelPath)
}

// gamelistPath relocates a gamelist to the fixed system-keyed location,
// regardless of how deep it sat in the source tree.
func (m Mapper) gamelistPath(a asset.Asset) string {
	return filepath.Join(m.OutputRoot, GamelistTree, a.System(), asset.GamelistName)
}

// mediaPath collapses the per-system "media" component into the shared
// downloaded_media tree: megadrive/media/covers/x.png becomes
// downloaded_media/megadrive/covers/x.png. Paths that don't follow the
// scraper layout are mirrored verbatim under the output root.
func (m Mapper) mediaPath(relPath string) string {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	if len(parts) >= 3 && parts[1] == "media" {
		rest := append([]string{m.OutputRoot, MediaTree, parts[0]}, parts[2:]...)
		return filepath.Join(rest...)
	}
	return filepath.Join(m.OutputRoot, filepath.FromSlash(relPath))
}

// EnsureDir creates the parent directory of path. Safe to call repeatedly
// for siblings in the same directory.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Promote moves a scratch candidate into its final destination. Rename is
// attempted first; since the scratch directory lives under the output root
// it normally succeeds, but a cross-device fallback copy covers setups where
// the destination directory is a separate mount.
func Promote(candidate, dest string) error {
	if err := EnsureDir(dest); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}
	if err := os.Rename(candidate, dest); err == nil {
		return nil
	}
	if err := CopyFile(candidate, dest); err != nil {
		return err
	}
	return os.Remove(candidate)
}

// CopyFile copies src to dst, creating parent directories. The destination
// is truncated if it already exists.
func CopyFile(src, dst string) error {
	if err := EnsureDir(dst); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("close destination: %w", err)
	}
	return nil
}
