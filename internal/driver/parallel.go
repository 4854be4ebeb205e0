// Package driver runs the regularizer over many module snapshots at once.
// Files are independent: each is loaded, rewritten and written back by its
// own worker, and a module is never touched by two goroutines.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"spvregular/internal/diag"
	"spvregular/internal/ir"
	"spvregular/internal/irfile"
	"spvregular/internal/observ"
	"spvregular/internal/regularize"
	"spvregular/internal/trace"
	"spvregular/internal/verify"
)

// ModuleExt is the file extension of module snapshots.
const ModuleExt = ".mp"

// DefaultMaxDiagnostics bounds the diagnostics kept per file.
const DefaultMaxDiagnostics = 256

// Options configures RunFiles and VerifyFiles.
type Options struct {
	// Jobs limits concurrent files; <= 0 means GOMAXPROCS.
	Jobs int
	// OutDir receives regularized modules under their base names. Empty
	// rewrites inputs in place.
	OutDir         string
	MaxDiagnostics int
	Regularize     regularize.Options
	// Regularized adds the representability checks to VerifyFiles.
	Regularized bool
	// Timings attaches an ObsTimings diagnostic to every result.
	Timings bool
	// Cache skips the pass for inputs it has seen; nil disables it.
	Cache    *DiskCache
	Observer PhaseObserver
}

// FileResult is the outcome for one input file.
type FileResult struct {
	Path   string
	Output string // empty when nothing was written
	Module string
	Cached bool
	Bag    *diag.Bag
	Timing *observ.Report
}

// Failed reports whether the file produced errors.
func (r *FileResult) Failed() bool {
	return r.Bag != nil && r.Bag.HasErrors()
}

// ListModules returns the sorted *.mp files under dir.
func ListModules(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ModuleExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

// ExpandInputs replaces directories in args with the modules they contain.
// Plain files are kept even without the module extension.
func ExpandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			out = append(out, arg)
			continue
		}
		files, err := ListModules(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

// RunFiles regularizes every path in parallel. Per-file failures land in the
// result bags; the returned error is only set on cancellation or when two
// inputs would be written to the same output.
func RunFiles(ctx context.Context, paths []string, opts Options) ([]FileResult, error) {
	outputs := make(map[string]string, len(paths))
	for _, path := range paths {
		out := outputPath(path, opts.OutDir)
		key, err := filepath.Abs(out)
		if err != nil {
			key = filepath.Clean(out)
		}
		if prev, dup := outputs[key]; dup {
			return nil, fmt.Errorf("%s and %s both write %s", prev, path, out)
		}
		outputs[key] = path
	}
	return forEachFile(ctx, paths, opts, "run", func(ctx context.Context, w *worker) {
		w.regularize(ctx, outputPath(w.res.Path, opts.OutDir))
	})
}

// VerifyFiles loads every path and reports verifier findings without
// modifying anything.
func VerifyFiles(ctx context.Context, paths []string, opts Options) ([]FileResult, error) {
	return forEachFile(ctx, paths, opts, "verify", func(_ context.Context, w *worker) {
		m, _ := w.load(false)
		if m == nil {
			return
		}
		done := w.phase("check")
		w.res.Bag.Merge(verify.Structure(m))
		if w.opts.Regularized {
			w.res.Bag.Merge(verify.Regularized(m))
		}
		done("")
	})
}

func outputPath(path, outDir string) string {
	if outDir == "" {
		return path
	}
	return filepath.Join(outDir, filepath.Base(path))
}

func forEachFile(ctx context.Context, paths []string, opts Options, kind string, fn func(context.Context, *worker)) ([]FileResult, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = DefaultMaxDiagnostics
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	tracer := trace.FromContext(ctx)
	batch := trace.Begin(tracer, trace.ScopeDriver, kind, 0)
	defer batch.End(fmt.Sprintf("%d files", len(paths)))

	// indices are unique per goroutine, no mutex needed
	results := make([]FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))

	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			w := &worker{
				opts: opts,
				res:  &results[i],
				span: trace.Begin(tracer, trace.ScopeDriver, path, batch.ID()),
			}
			w.res.Path = path
			w.res.Bag = diag.NewBag(opts.MaxDiagnostics)
			if opts.Timings {
				w.timer = observ.NewTimer()
			}
			fn(gctx, w)
			w.finish(kind)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

type worker struct {
	opts  Options
	res   *FileResult
	timer *observ.Timer
	span  *trace.Span
	data  []byte
}

// phase opens a timer phase and notifies the observer.
func (w *worker) phase(name string) func(note string) {
	idx := w.timer.Begin(name)
	started := time.Now()
	w.notify(PhaseEvent{Path: w.res.Path, Name: name, Status: PhaseStart})
	return func(note string) {
		w.timer.End(idx, note)
		w.notify(PhaseEvent{Path: w.res.Path, Name: name, Status: PhaseEnd, Elapsed: time.Since(started)})
	}
}

func (w *worker) notify(ev PhaseEvent) {
	if w.opts.Observer != nil {
		w.opts.Observer(ev)
	}
}

func (w *worker) fail(code diag.Code, format string, args ...any) {
	w.res.Bag.Add(diag.NewError(code, diag.NoLocation, fmt.Sprintf(format, args...)))
}

// load reads the input. The raw bytes stay on the worker for the cache key.
// With useCache a cached regularized module replaces the input.
func (w *worker) load(useCache bool) (*ir.Module, bool) {
	done := w.phase("load")
	defer done("")
	data, err := os.ReadFile(w.res.Path)
	if err != nil {
		w.fail(diag.IOLoadFileError, "failed to load file: %v", err)
		return nil, false
	}
	w.data = data
	if useCache && w.opts.Cache != nil {
		var payload DiskPayload
		hit, err := w.opts.Cache.Get(CacheKey(data, w.opts.Regularize), &payload)
		if err == nil && hit {
			if m, err := irfile.Unmarshal(payload.Output); err == nil {
				w.res.Cached = true
				w.res.Module = m.Name
				w.timer.Count("cache_hits", 1)
				return m, true
			}
		}
	}
	m, err := irfile.Unmarshal(data)
	if err != nil {
		w.fail(diag.IOLoadFileError, "failed to load file: %v", err)
		return nil, false
	}
	w.res.Module = m.Name
	return m, false
}

func (w *worker) regularize(ctx context.Context, out string) {
	// snapshots are a side effect of the pass, so they bypass the cache
	m, cached := w.load(!w.opts.Regularize.SaveRegularized)
	if m == nil {
		return
	}
	if !cached {
		ropts := w.opts.Regularize
		ropts.Timer = w.timer
		if ropts.SaveRegularized && ropts.SnapshotPath == "" {
			ropts.SnapshotPath = strings.TrimSuffix(out, ModuleExt) + ".regularized" + ModuleExt
		}
		done := w.phase("regularize")
		err := regularize.Run(ctx, m, ropts)
		done("")
		if err != nil {
			w.report(m, err)
			return
		}
		w.store(m)
	}

	done := w.phase("write")
	defer done(out)
	if err := irfile.WriteFile(out, m); err != nil {
		w.fail(diag.IOWriteFileError, "failed to write %s: %v", out, err)
		return
	}
	w.res.Output = out
}

// report turns a pass error into diagnostics. Verification failures are
// expanded into the findings that caused them.
func (w *worker) report(m *ir.Module, err error) {
	switch {
	case errors.Is(err, verify.ErrVerification):
		w.res.Bag.Merge(verify.Structure(m))
		w.res.Bag.Merge(verify.Regularized(m))
		if !w.res.Bag.HasErrors() {
			w.fail(diag.RegInvariant, "%v", err)
		}
	case errors.Is(err, regularize.ErrUnsupportedFuncPtr):
		w.fail(diag.RegUnsupportedFuncPtr, "%v", err)
	default:
		w.fail(diag.RegInvariant, "%v", err)
	}
}

func (w *worker) store(m *ir.Module) {
	if w.opts.Cache == nil || w.data == nil {
		return
	}
	output, err := irfile.Marshal(m)
	if err != nil {
		return
	}
	payload := &DiskPayload{
		Module:   m.Name,
		Source:   w.res.Path,
		Output:   output,
		Counters: w.timer.Report().Counters,
	}
	if err := w.opts.Cache.Put(CacheKey(w.data, w.opts.Regularize), payload); err != nil {
		w.res.Bag.Add(diag.New(diag.SevWarning, diag.IOWriteFileError, diag.NoLocation, "cache: "+err.Error()))
	}
}

func (w *worker) finish(kind string) {
	status := "ok"
	switch {
	case w.res.Failed():
		status = "failed"
	case w.res.Cached:
		status = "cached"
	}
	w.span.WithExtra("module", w.res.Module).End(status)
	if w.res.Failed() {
		w.notify(PhaseEvent{Path: w.res.Path, Status: PhaseFailed})
	} else {
		w.notify(PhaseEvent{Path: w.res.Path, Status: PhaseDone})
	}
	if w.timer == nil {
		return
	}
	report := w.timer.Report()
	w.res.Timing = &report
	appendTimingDiagnostic(w.res.Bag, timingPayload{
		Kind:     kind,
		Path:     w.res.Path,
		TotalMS:  report.TotalMS,
		Phases:   report.Phases,
		Counters: report.Counters,
	})
}
