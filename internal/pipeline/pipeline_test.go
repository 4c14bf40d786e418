package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/gamepress/internal/asset"
	"github.com/backmassage/gamepress/internal/codec"
	"github.com/backmassage/gamepress/internal/config"
	"github.com/backmassage/gamepress/internal/layout"
	"github.com/backmassage/gamepress/internal/logging"
	"github.com/backmassage/gamepress/internal/probe"
)

// fakeInvoker writes a candidate of a fixed size, or fails.
type fakeInvoker struct {
	size int64
	err  error
}

func (f *fakeInvoker) Transcode(_ context.Context, srcPath, scratchDir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	p := filepath.Join(scratchDir, "cand-"+filepath.Base(srcPath))
	if err := os.WriteFile(p, make([]byte, f.size), 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// blockingInvoker parks until its context is cancelled, then reports the
// kill the way a real external process does.
type blockingInvoker struct {
	started chan struct{}
}

func (b *blockingInvoker) Transcode(ctx context.Context, srcPath, _ string) (string, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return "", &codec.Failure{Kind: codec.FailTranscode, Path: srcPath, Err: ctx.Err()}
}

func probeWith(codecName string) func(context.Context, string) (*probe.Result, error) {
	return func(context.Context, string) (*probe.Result, error) {
		return &probe.Result{PrimaryVideo: &probe.VideoStream{Codec: codecName}}, nil
	}
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 64, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func testConfig(in, out string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.InputDir = in
	cfg.OutputDir = out
	cfg.ColorMode = config.ColorNever
	return &cfg
}

func newTestStrategy(t *testing.T, cfg *config.Config) *strategy {
	t.Helper()
	return &strategy{
		cfg:       cfg,
		mapper:    layout.Mapper{OutputRoot: cfg.OutputDir},
		scratch:   t.TempDir(),
		video:     &fakeInvoker{size: 100},
		image:     &fakeInvoker{size: 100},
		doc:       &fakeInvoker{size: 100},
		probeFn:   probeWith("h264"),
		skipVideo: probe.AlreadyEfficient,
	}
}

// --- Discovery ---

func TestDiscover(t *testing.T) {
	in := t.TempDir()
	writeFile(t, filepath.Join(in, "nes", "gamelist.xml"), 200)
	writeFile(t, filepath.Join(in, "nes", "media", "videos", "mario.mp4"), 500)
	writeFile(t, filepath.Join(in, "nes", "media", "covers", "mario.png"), 300)
	writeFile(t, filepath.Join(in, "nes", "media", "covers", "._mario.png"), 300)
	writeFile(t, filepath.Join(in, ".cache", "junk.mp4"), 500)
	writeFile(t, filepath.Join(in, "nes", "notes.txt"), 10)

	cfg := testConfig(in, t.TempDir())
	assets, err := Discover(cfg)
	require.NoError(t, err)

	var rels []string
	for _, a := range assets {
		rels = append(rels, filepath.ToSlash(a.RelPath))
	}
	assert.Equal(t, []string{
		"nes/gamelist.xml",
		"nes/media/covers/mario.png",
		"nes/media/videos/mario.mp4",
		"nes/notes.txt",
	}, rels)

	assert.Equal(t, asset.KindGamelist, assets[0].Kind)
	assert.Equal(t, asset.KindImage, assets[1].Kind)
	assert.Equal(t, asset.KindVideo, assets[2].Kind)
	assert.Equal(t, asset.KindUnknown, assets[3].Kind)
	assert.Equal(t, int64(500), assets[2].Size)
}

func TestDiscoverToggles(t *testing.T) {
	in := t.TempDir()
	writeFile(t, filepath.Join(in, "nes", "gamelist.xml"), 200)
	writeFile(t, filepath.Join(in, "nes", "media", "covers", "mario.png"), 300)

	cfg := testConfig(in, t.TempDir())
	cfg.ProcessMedia = false
	assets, err := Discover(cfg)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, asset.KindGamelist, assets[0].Kind)

	cfg.ProcessMedia = true
	cfg.ProcessGamelists = false
	assets, err = Discover(cfg)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, asset.KindImage, assets[0].Kind)
}

// --- Size-gated replacement ---

func TestResolveSmallerCandidateReplaces(t *testing.T) {
	in, out, scratch := t.TempDir(), t.TempDir(), t.TempDir()
	src := filepath.Join(in, "mario.mp4")
	writeFile(t, src, 500)
	cand := filepath.Join(scratch, "cand.mkv")
	writeFile(t, cand, 480)

	a := asset.Asset{SourcePath: src, RelPath: "mario.mp4", Kind: asset.KindVideo, Size: 500}
	outcome, bytes, err := resolve(context.Background(), a, cand, nil,
		filepath.Join(out, "mario.mkv"), filepath.Join(out, "mario.mp4"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplaced, outcome)
	assert.Equal(t, int64(480), bytes)

	fi, err := os.Stat(filepath.Join(out, "mario.mkv"))
	require.NoError(t, err)
	assert.Equal(t, int64(480), fi.Size())
	_, err = os.Stat(cand)
	assert.True(t, os.IsNotExist(err))
}

func TestResolveLargerCandidateKeepsOriginal(t *testing.T) {
	in, out, scratch := t.TempDir(), t.TempDir(), t.TempDir()
	src := filepath.Join(in, "mario.mp4")
	writeFile(t, src, 500)
	cand := filepath.Join(scratch, "cand.mkv")
	writeFile(t, cand, 520)

	a := asset.Asset{SourcePath: src, RelPath: "mario.mp4", Kind: asset.KindVideo, Size: 500}
	outcome, bytes, err := resolve(context.Background(), a, cand, nil,
		filepath.Join(out, "mario.mkv"), filepath.Join(out, "mario.mp4"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.Equal(t, int64(500), bytes)

	fi, err := os.Stat(filepath.Join(out, "mario.mp4"))
	require.NoError(t, err)
	assert.Equal(t, int64(500), fi.Size())
	_, err = os.Stat(filepath.Join(out, "mario.mkv"))
	assert.True(t, os.IsNotExist(err), "discarded candidate must not be promoted")
	_, err = os.Stat(cand)
	assert.True(t, os.IsNotExist(err))
}

func TestResolveTranscodeFailureRetainsOriginal(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	src := filepath.Join(in, "mario.mp4")
	writeFile(t, src, 500)

	terr := &codec.Failure{Kind: codec.FailTranscode, Path: src, Err: errors.New("boom")}
	a := asset.Asset{SourcePath: src, RelPath: "mario.mp4", Kind: asset.KindVideo, Size: 500}
	outcome, bytes, err := resolve(context.Background(), a, "", terr,
		filepath.Join(out, "mario.mkv"), filepath.Join(out, "mario.mp4"))
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, int64(500), bytes)
	assert.Equal(t, codec.FailTranscode, codec.KindOf(err))

	fi, statErr := os.Stat(filepath.Join(out, "mario.mp4"))
	require.NoError(t, statErr)
	assert.Equal(t, int64(500), fi.Size())
}

// --- Strategy dispatch ---

func TestVideoSizeGate(t *testing.T) {
	tests := []struct {
		name     string
		candSize int64
		outcome  Outcome
		wantDest string
	}{
		{"smaller wins, container switches", 480, OutcomeReplaced, "mario.mkv"},
		{"larger keeps original name", 520, OutcomeUnchanged, "mario.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := t.TempDir(), t.TempDir()
			src := filepath.Join(in, "nes", "media", "videos", "mario.mp4")
			writeFile(t, src, 500)

			cfg := testConfig(in, out)
			st := newTestStrategy(t, cfg)
			st.video = &fakeInvoker{size: tt.candSize}

			a := asset.Asset{SourcePath: src, RelPath: "nes/media/videos/mario.mp4",
				Kind: asset.KindVideo, Size: 500}
			r := st.process(context.Background(), 0, a)
			require.NoError(t, r.err)
			assert.Equal(t, tt.outcome, r.outcome)

			dest := filepath.Join(out, "downloaded_media", "nes", "videos", tt.wantDest)
			_, err := os.Stat(dest)
			assert.NoError(t, err)

			// Source stays untouched either way.
			fi, err := os.Stat(src)
			require.NoError(t, err)
			assert.Equal(t, int64(500), fi.Size())
		})
	}
}

func TestVideoAlreadyEfficientCopiesThrough(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	src := filepath.Join(in, "nes", "media", "videos", "mario.mkv")
	writeFile(t, src, 500)

	cfg := testConfig(in, out)
	st := newTestStrategy(t, cfg)
	st.probeFn = probeWith("hevc")
	st.video = &fakeInvoker{err: errors.New("must not be invoked")}

	a := asset.Asset{SourcePath: src, RelPath: "nes/media/videos/mario.mkv",
		Kind: asset.KindVideo, Size: 500}
	r := st.process(context.Background(), 0, a)
	require.NoError(t, r.err)
	assert.Equal(t, OutcomeUnchanged, r.outcome)

	_, err := os.Stat(filepath.Join(out, "downloaded_media", "nes", "videos", "mario.mkv"))
	assert.NoError(t, err)
}

func TestVideoFailureRetainsOriginal(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	src := filepath.Join(in, "nes", "media", "videos", "mario.mp4")
	writeFile(t, src, 500)

	cfg := testConfig(in, out)
	st := newTestStrategy(t, cfg)
	st.video = &fakeInvoker{err: &codec.Failure{Kind: codec.FailTranscode, Path: src}}

	a := asset.Asset{SourcePath: src, RelPath: "nes/media/videos/mario.mp4",
		Kind: asset.KindVideo, Size: 500}
	r := st.process(context.Background(), 0, a)
	assert.Equal(t, OutcomeFailed, r.outcome)
	require.Error(t, r.err)

	_, err := os.Stat(filepath.Join(out, "downloaded_media", "nes", "videos", "mario.mp4"))
	assert.NoError(t, err, "original must be retained on failure")
}

func TestImageKeepsOriginalExtension(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	src := filepath.Join(in, "nes", "media", "covers", "mario.png")
	writePNG(t, src)

	cfg := testConfig(in, out)
	st := newTestStrategy(t, cfg)
	st.image = &fakeInvoker{size: 10} // guaranteed smaller than any real PNG

	a := asset.Asset{SourcePath: src, RelPath: "nes/media/covers/mario.png",
		Kind: asset.KindImage, Size: fileSize(t, src)}
	r := st.process(context.Background(), 0, a)
	require.NoError(t, r.err)
	assert.Equal(t, OutcomeReplaced, r.outcome)

	_, err := os.Stat(filepath.Join(out, "downloaded_media", "nes", "covers", "mario.png"))
	assert.NoError(t, err, "replaced image keeps its .png name")
}

func TestGamelistRelocation(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	src := filepath.Join(in, "Systems", "NES", "gamelist.xml")
	writeFile(t, src, 200)

	cfg := testConfig(in, out)
	st := newTestStrategy(t, cfg)

	a := asset.Asset{SourcePath: src, RelPath: "Systems/NES/gamelist.xml",
		Kind: asset.KindGamelist, Size: 200}
	r := st.process(context.Background(), 0, a)
	require.NoError(t, r.err)
	assert.Equal(t, OutcomeUnchanged, r.outcome)

	_, err := os.Stat(filepath.Join(out, "gamelists", "NES", "gamelist.xml"))
	assert.NoError(t, err, "gamelist lands at the system-keyed path regardless of depth")
}

func TestSkipExisting(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	src := filepath.Join(in, "nes", "media", "videos", "mario.mp4")
	writeFile(t, src, 500)
	// A previous run already promoted a replacement.
	writeFile(t, filepath.Join(out, "downloaded_media", "nes", "videos", "mario.mkv"), 400)

	cfg := testConfig(in, out)
	st := newTestStrategy(t, cfg)
	st.video = &fakeInvoker{err: errors.New("must not be invoked")}

	a := asset.Asset{SourcePath: src, RelPath: "nes/media/videos/mario.mp4",
		Kind: asset.KindVideo, Size: 500}
	r := st.process(context.Background(), 0, a)
	assert.Equal(t, OutcomeSkipped, r.outcome)

	// --force processes it again.
	cfg.SkipExisting = false
	st.video = &fakeInvoker{size: 300}
	r = st.process(context.Background(), 0, a)
	assert.Equal(t, OutcomeReplaced, r.outcome)
}

func TestDryRunWritesNothing(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	src := filepath.Join(in, "nes", "media", "covers", "mario.png")
	writePNG(t, src)

	cfg := testConfig(in, out)
	cfg.DryRun = true
	st := newTestStrategy(t, cfg)
	st.image = &fakeInvoker{err: errors.New("must not be invoked")}

	a := asset.Asset{SourcePath: src, RelPath: "nes/media/covers/mario.png",
		Kind: asset.KindImage, Size: fileSize(t, src)}
	r := st.process(context.Background(), 0, a)
	assert.Equal(t, OutcomeSkipped, r.outcome)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInterruptedTranscodeLeavesNoDestination(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	src := filepath.Join(in, "nes", "media", "videos", "mario.mp4")
	writeFile(t, src, 500)

	cfg := testConfig(in, out)
	st := newTestStrategy(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st.video = &fakeInvoker{err: &codec.Failure{
		Kind: codec.FailTranscode, Path: src, Err: ctx.Err()}}

	a := asset.Asset{SourcePath: src, RelPath: "nes/media/videos/mario.mp4",
		Kind: asset.KindVideo, Size: 500}
	r := st.process(ctx, 0, a)
	assert.Equal(t, OutcomeFailed, r.outcome)

	// Neither destination may exist, or the next run would skip the asset.
	base := filepath.Join(out, "downloaded_media", "nes", "videos")
	_, err := os.Stat(filepath.Join(base, "mario.mp4"))
	assert.True(t, os.IsNotExist(err), "interrupted asset must leave no original copy")
	_, err = os.Stat(filepath.Join(base, "mario.mkv"))
	assert.True(t, os.IsNotExist(err))

	// With a live context the asset is picked up again, not skipped.
	st.video = &fakeInvoker{size: 300}
	r = st.process(context.Background(), 0, a)
	assert.Equal(t, OutcomeReplaced, r.outcome)
}

func TestInterruptionReportCoversOnlyTerminalAssets(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		writeFile(t, filepath.Join(in, "nes", "media", "videos", name), 500)
	}

	cfg := testConfig(in, out)
	cfg.Workers = 1
	st := newTestStrategy(t, cfg)
	blocker := &blockingInvoker{started: make(chan struct{}, 1)}
	st.video = blocker

	assets, err := Discover(cfg)
	require.NoError(t, err)
	require.Len(t, assets, 3)
	var totalBytes int64
	for _, a := range assets {
		totalBytes += a.Size
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-blocker.started
		cancel()
	}()

	stats := runBatch(ctx, cfg, runLogger(t, cfg), st, assets, totalBytes)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 0, stats.Done, "no asset reached a terminal state")
	assert.Equal(t, 0, stats.Failed)

	// No in-flight artifact at any destination path.
	_, err = os.Stat(filepath.Join(out, "downloaded_media"))
	assert.True(t, os.IsNotExist(err))
}

func TestDryRunDistinguishesExistingDestinations(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	existing := filepath.Join(in, "nes", "media", "covers", "done.png")
	fresh := filepath.Join(in, "nes", "media", "covers", "todo.png")
	writePNG(t, existing)
	writePNG(t, fresh)
	writeFile(t, filepath.Join(out, "downloaded_media", "nes", "covers", "done.png"), 50)

	cfg := testConfig(in, out)
	cfg.DryRun = true
	st := newTestStrategy(t, cfg)

	done := st.process(context.Background(), 0, asset.Asset{
		SourcePath: existing, RelPath: "nes/media/covers/done.png",
		Kind: asset.KindImage, Size: fileSize(t, existing)})
	assert.Equal(t, OutcomeSkipped, done.outcome)
	assert.True(t, done.existing, "pre-existing destination reports as skip, like a real run")

	todo := st.process(context.Background(), 0, asset.Asset{
		SourcePath: fresh, RelPath: "nes/media/covers/todo.png",
		Kind: asset.KindImage, Size: fileSize(t, fresh)})
	assert.Equal(t, OutcomeSkipped, todo.outcome)
	assert.False(t, todo.existing, "fresh asset reports as would-process")
}

func TestTinySourceFails(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	src := filepath.Join(in, "nes", "media", "videos", "stub.mp4")
	writeFile(t, src, 10)

	cfg := testConfig(in, out)
	st := newTestStrategy(t, cfg)

	a := asset.Asset{SourcePath: src, RelPath: "nes/media/videos/stub.mp4",
		Kind: asset.KindVideo, Size: 10}
	r := st.process(context.Background(), 0, a)
	assert.Equal(t, OutcomeFailed, r.outcome)
	assert.Equal(t, codec.FailSourceUnreadable, codec.KindOf(r.err))
}

// --- Stats and progress ---

func TestStatsRecord(t *testing.T) {
	var s RunStats
	s.record(result{asset: asset.Asset{Size: 500}, outcome: OutcomeReplaced, outBytes: 400})
	s.record(result{asset: asset.Asset{Size: 300}, outcome: OutcomeUnchanged, outBytes: 300})
	s.record(result{asset: asset.Asset{Size: 100}, outcome: OutcomeSkipped})
	s.record(result{asset: asset.Asset{Size: 200}, outcome: OutcomeFailed, outBytes: 200})

	assert.Equal(t, 4, s.Done)
	assert.Equal(t, 1, s.Replaced)
	assert.Equal(t, 1, s.Unchanged)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, int64(1000), s.TotalInputBytes, "skipped assets carry no bytes")
	assert.Equal(t, int64(900), s.TotalOutputBytes)
	assert.Equal(t, int64(100), s.SpaceSaved())
}

func TestEstimator(t *testing.T) {
	e := NewEstimator(1000)
	cur := time.Unix(1000, 0)
	e.now = func() time.Time { return cur }

	assert.Less(t, e.ETA(), time.Duration(0), "no estimate before two samples")

	e.Record(100)
	cur = cur.Add(10 * time.Second)
	e.Record(200)

	assert.InDelta(t, 20.0, e.Rate(), 0.01)
	assert.Equal(t, 35*time.Second, e.ETA())
}

// --- End to end ---

func runLogger(t *testing.T, cfg *config.Config) *logging.Logger {
	t.Helper()
	log, err := logging.NewLogger(cfg)
	require.NoError(t, err)
	return log
}

func TestRunImagesEndToEnd(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(in, "nes", "gamelist.xml"), 200)
	writePNG(t, filepath.Join(in, "nes", "media", "covers", "mario.png"))
	writeFile(t, filepath.Join(in, "nes", "notes.txt"), 100)

	cfg := testConfig(in, out)
	cfg.OptimizeVideo = false
	cfg.OptimizeDocs = false
	cfg.Workers = 2

	stats := Run(context.Background(), cfg, runLogger(t, cfg), false)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Done)
	assert.Equal(t, 0, stats.Failed)

	_, err := os.Stat(filepath.Join(out, "gamelists", "nes", "gamelist.xml"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "downloaded_media", "nes", "covers", "mario.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "nes", "notes.txt"))
	assert.NoError(t, err)

	// Scratch directory is gone.
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".gamepress-"), "scratch dir must be removed")
	}
}

func TestRunDryRun(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(in, "nes", "gamelist.xml"), 200)
	writePNG(t, filepath.Join(in, "nes", "media", "covers", "mario.png"))

	cfg := testConfig(in, out)
	cfg.DryRun = true

	stats := Run(context.Background(), cfg, runLogger(t, cfg), false)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Skipped)

	_, err := os.Stat(filepath.Join(out, "gamelists"))
	assert.True(t, os.IsNotExist(err))
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	fi, err := os.Stat(path)
	require.NoError(t, err)
	return fi.Size()
}
