package pipeline

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/backmassage/gamepress/internal/asset"
	"github.com/backmassage/gamepress/internal/config"
)

// Discover walks the input root, classifies every regular file, and returns
// the assets selected by the config toggles, sorted by relative path for a
// deterministic processing and report order. Hidden files and directories
// (dotfiles, AppleDouble "._*" sidecars) are pruned.
func Discover(cfg *config.Config) ([]asset.Asset, error) {
	var assets []asset.Asset
	root := cfg.InputDir

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && asset.Hidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || asset.Hidden(d.Name()) {
			return nil
		}

		kind := asset.Classify(d.Name())
		if kind == asset.KindGamelist {
			if !cfg.ProcessGamelists {
				return nil
			}
		} else if !cfg.ProcessMedia {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		assets = append(assets, asset.Asset{
			SourcePath: path,
			RelPath:    rel,
			Kind:       kind,
			Size:       fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(assets, func(i, j int) bool { return assets[i].RelPath < assets[j].RelPath })
	return assets, nil
}
