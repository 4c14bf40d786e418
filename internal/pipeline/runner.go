// Package pipeline orchestrates asset discovery, concurrent per-asset
// processing, and batch summary reporting.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/cpu"
	"golang.org/x/sync/errgroup"

	"github.com/backmassage/gamepress/internal/asset"
	"github.com/backmassage/gamepress/internal/codec"
	"github.com/backmassage/gamepress/internal/config"
	"github.com/backmassage/gamepress/internal/display"
	"github.com/backmassage/gamepress/internal/layout"
	"github.com/backmassage/gamepress/internal/logging"
	"github.com/backmassage/gamepress/internal/planner"
	"github.com/backmassage/gamepress/internal/probe"
)

// Run is the top-level batch entry point. It discovers assets, builds the
// per-kind profiles, processes every asset through a bounded worker pool,
// and returns aggregate stats. Cancelling ctx stops dispatch and kills
// in-flight external processes; the returned stats cover exactly the assets
// that reached a terminal state.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, ocrAvailable bool) RunStats {
	var stats RunStats

	assets, err := Discover(cfg)
	if err != nil {
		log.Error("Asset discovery failed: %v", err)
		return stats
	}
	stats.Total = len(assets)
	if stats.Total == 0 {
		log.Warn("No assets found under %s", cfg.InputDir)
		return stats
	}

	var totalBytes int64
	for _, a := range assets {
		totalBytes += a.Size
	}

	profiles := planner.Build(cfg, ocrAvailable)
	logBatchHeader(cfg, log, &stats, totalBytes, profiles)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Error("Cannot create output directory: %v", err)
		return stats
	}

	// Scratch lives under the output root so candidate promotion is a
	// same-filesystem rename. Removed wholesale at exit, which also cleans
	// up any partials left by an interrupt.
	scratch := filepath.Join(cfg.OutputDir, ".gamepress-"+uuid.NewString())
	if !cfg.DryRun {
		if err := os.MkdirAll(scratch, 0o700); err != nil {
			log.Error("Cannot create scratch directory: %v", err)
			return stats
		}
		defer os.RemoveAll(scratch)
	}

	st := &strategy{
		cfg:       cfg,
		mapper:    layout.Mapper{OutputRoot: cfg.OutputDir},
		scratch:   scratch,
		video:     &codec.VideoInvoker{Profile: profiles.Video, Verbose: cfg.Verbose},
		image:     &codec.ImageInvoker{Profile: profiles.Image},
		doc:       &codec.DocInvoker{Profile: profiles.Doc},
		probeFn:   probe.Probe,
		skipVideo: probe.AlreadyEfficient,
	}

	return runBatch(ctx, cfg, log, st, assets, totalBytes)
}

// runBatch drives the worker pool and the aggregator over the discovered
// assets and returns the finished stats. Split from Run so the pool and
// interrupt semantics are exercised with injected invokers.
func runBatch(ctx context.Context, cfg *config.Config, log *logging.Logger, st *strategy, assets []asset.Asset, totalBytes int64) RunStats {
	stats := RunStats{Total: len(assets)}

	workers := workerCount(cfg)
	log.Debug("Worker pool: %d", workers)
	start := time.Now()

	results := make(chan result, workers)
	aggDone := make(chan struct{})
	est := NewEstimator(totalBytes)
	go func() {
		defer close(aggDone)
		aggregate(log, &stats, est, results)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, a := range assets {
		if gctx.Err() != nil {
			break
		}
		i, a := i, a
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			r := st.process(gctx, i, a)
			// An asset whose external process was killed by the interrupt
			// never reached a real terminal state; keep it out of the report.
			if gctx.Err() != nil && r.outcome == OutcomeFailed {
				return nil
			}
			results <- r
			return nil
		})
	}
	g.Wait()
	close(results)
	<-aggDone

	if ctx.Err() != nil {
		log.Warn("Interrupted; %d of %d assets reached a terminal state", stats.Done, stats.Total)
	}

	logSummary(cfg, log, &stats, time.Since(start))
	return stats
}

// workerCount resolves the worker pool size: the --workers flag when set,
// otherwise the physical core count. Encoding is CPU-bound; hyperthreads
// add contention rather than throughput for x265.
func workerCount(cfg *config.Config) int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	if n, err := cpu.Counts(false); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// aggregate is the single consumer of worker results. It owns the stats and
// the ETA estimator, and reorders completions so report lines follow
// discovery order even though workers finish out of order.
func aggregate(log *logging.Logger, stats *RunStats, est *Estimator, results <-chan result) {
	pending := make(map[int]result)
	next := 0

	for r := range results {
		pending[r.index] = r
		for {
			q, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			fold(log, stats, est, q)
		}
	}

	// An interrupt leaves gaps in the index sequence; flush whatever
	// completed after the gap, still in discovery order.
	rest := make([]int, 0, len(pending))
	for i := range pending {
		rest = append(rest, i)
	}
	sort.Ints(rest)
	for _, i := range rest {
		fold(log, stats, est, pending[i])
	}
}

// fold records one result and emits its report line.
func fold(log *logging.Logger, stats *RunStats, est *Estimator, r result) {
	stats.record(r)
	if r.outcome != OutcomeSkipped {
		est.Record(r.asset.Size)
	}

	switch r.outcome {
	case OutcomeReplaced:
		ratio := int64(100)
		if r.asset.Size > 0 {
			ratio = r.outBytes * 100 / r.asset.Size
		}
		log.Info("[%d/%d] replaced %s (%s, %d%% of original, %ds, ETA %s)",
			stats.Done, stats.Total, r.asset.RelPath, r.asset.Kind,
			ratio, int(r.elapsed.Seconds()), display.FormatETA(est.ETA()))
	case OutcomeUnchanged:
		log.Info("[%d/%d] unchanged %s (%s, kept original)",
			stats.Done, stats.Total, r.asset.RelPath, r.asset.Kind)
	case OutcomeSkipped:
		if r.existing {
			log.Debug("[%d/%d] skip (exists): %s", stats.Done, stats.Total, r.asset.RelPath)
		} else {
			log.Info("[%d/%d] [DRY] would process %s (%s, %s)",
				stats.Done, stats.Total, r.asset.RelPath, r.asset.Kind,
				display.FormatBytes(r.asset.Size))
		}
	case OutcomeFailed:
		log.Error("[%d/%d] failed %s: %v", stats.Done, stats.Total, r.asset.RelPath, r.err)
	}
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, stats *RunStats, totalBytes int64, profiles planner.Profiles) {
	log.Info("Found %d assets (%s)", stats.Total, display.FormatBytes(totalBytes))

	if cfg.OptimizeVideo {
		log.Info("Video: %s CRF %d preset %s -> MKV, audio %s %s",
			profiles.Video.Encoder, profiles.Video.CRF, profiles.Video.Preset,
			profiles.Video.AudioEncoder, profiles.Video.AudioBitrate)
	} else {
		log.Info("Video: copy through (optimization disabled)")
	}

	if cfg.OptimizeImages {
		log.Info("Images: WebP quality %d (original names kept)", cfg.WebPQuality)
	} else {
		log.Info("Images: copy through (optimization disabled)")
	}

	if cfg.OptimizeDocs {
		if profiles.Doc.UseOCR {
			log.Info("Documents: ocrmypdf optimize 3, JPEG quality %d", profiles.Doc.JPEGQuality)
		} else {
			log.Info("Documents: ghostscript /ebook (ocrmypdf not found)")
		}
	} else {
		log.Info("Documents: copy through (optimization disabled)")
	}

	if !cfg.ProcessGamelists {
		log.Info("Gamelists: excluded")
	}
	if !cfg.ProcessMedia {
		log.Info("Media: excluded")
	}
	if cfg.DryRun {
		log.Warn("Dry run: nothing will be written")
	}
}

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats, elapsed time.Duration) {
	log.Info("==============================")
	log.Info("Done: %d replaced, %d unchanged, %d skipped, %d failed",
		stats.Replaced, stats.Unchanged, stats.Skipped, stats.Failed)

	if cfg.DryRun {
		log.Info("Total space saved: n/a (dry run)")
		return
	}

	if elapsed > 0 && stats.TotalInputBytes > 0 {
		log.Info("Processed %s in %s (%s)",
			display.FormatBytes(stats.TotalInputBytes),
			elapsed.Round(time.Second),
			display.FormatRate(float64(stats.TotalInputBytes)/elapsed.Seconds()))
	}

	saved := stats.SpaceSaved()
	if saved >= 0 {
		log.Info("Total space saved: %s (input %s -> output %s)",
			display.FormatBytes(saved),
			display.FormatBytes(stats.TotalInputBytes),
			display.FormatBytes(stats.TotalOutputBytes))
	} else {
		log.Warn("Total space saved: -%s (overall output is larger)",
			display.FormatBytes(-saved))
	}
}
