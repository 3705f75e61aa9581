// Package driver orchestrates a vet run: discover snapshot files, decode
// them into signature modules, check every declaration in parallel and
// merge the diagnostics into one deterministic bag.
package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"tarn/internal/depgraph"
	"tarn/internal/diag"
	"tarn/internal/observ"
	"tarn/internal/sig"
	"tarn/internal/sigdb"
	"tarn/internal/snapshot"
	"tarn/internal/source"
	"tarn/internal/trace"
	"tarn/internal/ui"
	"tarn/internal/variance"
)

// DefaultMaxDiagnostics bounds one declaration's bag when Options leaves
// MaxDiagnostics at zero.
const DefaultMaxDiagnostics = 100

// Options configure one vet run.
type Options struct {
	Jobs           int    // max parallel declaration checks, 0 = GOMAXPROCS
	MaxDiagnostics int    // per-declaration cap, 0 = DefaultMaxDiagnostics
	TaskClass      string // intrinsic wrapper override, "" = variance default
	AttachSources  bool   // read source files from disk for excerpts
	EnableTimings  bool   // append an ObsTimings diagnostic to the bag
	Progress       ui.ProgressSink
}

// Result is everything one vet run produced.
type Result struct {
	FileSet *source.FileSet
	DB      *sigdb.DB
	Graph   *depgraph.Graph
	Bag     *diag.Bag
	Decls   int // declarations checked
	Params  int // type parameters compared
	Timer   *observ.Timer
}

// declJob is one unit of the parallel check phase.
type declJob struct {
	module  *sig.Module
	class   *sig.Class // nil for typedefs
	typedef *sig.Typedef
}

func (j declJob) name() string {
	if j.class != nil {
		return j.class.Name
	}
	return j.typedef.Name
}

// DiscoverSnapshots expands paths into a sorted list of snapshot files:
// directories are walked for *.tsig, files are taken as given.
func DiscoverSnapshots(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, snapshot.Ext) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	// Детерминированный порядок: от него зависят FileID и порядок модулей.
	sort.Strings(files)
	return files, nil
}

// Vet runs the whole pipeline over the given snapshot files. I/O and decode
// problems become diagnostics and the affected snapshot is skipped; the
// returned error reports only cancellation and invariant violations.
func Vet(ctx context.Context, files []string, opts Options) (*Result, error) {
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = DefaultMaxDiagnostics
	}
	sink := opts.Progress
	if sink == nil {
		sink = ui.NopSink{}
	}
	tracer := trace.FromContext(ctx)
	root := trace.Begin(tracer, trace.ScopeDriver, "vet", 0)
	defer root.End(fmt.Sprintf("files=%d", len(files)))

	res := &Result{
		FileSet: source.NewFileSet(),
		DB:      sigdb.New(),
		Graph:   depgraph.New(),
		Bag:     diag.NewBag(opts.MaxDiagnostics),
		Timer:   observ.NewTimer(),
	}

	loadPhase := res.Timer.Begin("load")
	span := trace.Begin(tracer, trace.ScopePass, "load", root.ID())
	jobs := res.loadModules(files, opts, sink, tracer, span.ID())
	span.End(fmt.Sprintf("decls=%d", len(jobs)))
	res.Timer.End(loadPhase, fmt.Sprintf("%d snapshots, %d declarations", len(files), len(jobs)))

	if len(jobs) == 0 {
		diag.ReportWarning(diag.BagReporter{Bag: res.Bag}, diag.ProjNoSnapshots, source.Span{},
			"no declarations to check").Emit()
	}

	checkPhase := res.Timer.Begin("check")
	span = trace.Begin(tracer, trace.ScopePass, "check", root.ID())
	err := res.checkAll(ctx, jobs, opts, sink, tracer, span.ID())
	span.End(fmt.Sprintf("params=%d", res.Params))
	res.Timer.End(checkPhase, fmt.Sprintf("%d declarations", res.Decls))
	if err != nil {
		return res, err
	}

	res.Bag.Sort()
	res.Bag.Dedup()
	if opts.EnableTimings {
		appendTimings(res.Bag, res.Timer)
	}
	return res, nil
}

// loadModules decodes every snapshot sequentially: декод мутирует общий
// FileSet, а стоит дёшево; параллелится только сама проверка.
func (r *Result) loadModules(files []string, opts Options, sink ui.ProgressSink, tracer trace.Tracer, parent uint64) []declJob {
	reporter := diag.BagReporter{Bag: r.Bag}
	var jobs []declJob

	for _, path := range files {
		sink.OnEvent(ui.Event{Name: path, Stage: ui.StageDecode, Status: ui.StatusWorking})
		span := trace.Begin(tracer, trace.ScopeDecl, "decode:"+path, parent)

		m, err := snapshot.Load(path, r.FileSet, reporter)
		if err != nil {
			// диагностика уже в bag
			span.End("error")
			sink.OnEvent(ui.Event{Name: path, Stage: ui.StageDecode, Status: ui.StatusError, Err: err})
			continue
		}
		r.DB.AddModule(m, reporter)
		for _, c := range m.Classes {
			jobs = append(jobs, declJob{module: m, class: c})
		}
		for _, td := range m.Typedefs {
			jobs = append(jobs, declJob{module: m, typedef: td})
		}

		span.End(fmt.Sprintf("decls=%d", m.DeclCount()))
		sink.OnEvent(ui.Event{Name: path, Stage: ui.StageDecode, Status: ui.StatusDone})
	}

	if opts.AttachSources {
		r.attachSources(reporter)
	}
	return jobs
}

// attachSources reads the source files named by snapshot file tables so
// diagnostics can render excerpts. A file that changed since the snapshot
// was produced is reported and left содержимым не подключённым: позиции
// в нём больше не совпадают.
func (r *Result) attachSources(reporter diag.Reporter) {
	for _, f := range r.FileSet.Files() {
		if f.HasContent() || f.Flags&source.FileFromSnapshot == 0 {
			continue
		}
		content, err := os.ReadFile(f.Path) // #nosec G304 -- paths come from snapshot tables
		if err != nil {
			continue // excerpts are best-effort
		}
		if !r.FileSet.AttachContent(f.ID, content) {
			diag.ReportWarning(reporter, diag.SnapSourceDrift, source.Span{},
				fmt.Sprintf("`%s` changed since its snapshot was produced; excerpts are disabled for it", f.Path)).
				WithNote(source.Span{}, "re-export the snapshot to restore excerpts").
				Emit()
		}
	}
}

// checkAll runs every declaration check in parallel. Each job writes into
// its own result slot, so no mutex guards the bags; merge order is the
// deterministic job order, not completion order.
func (r *Result) checkAll(ctx context.Context, jobs []declJob, opts Options, sink ui.ProgressSink, tracer trace.Tracer, parent uint64) error {
	if len(jobs) == 0 {
		return nil
	}
	workers := opts.Jobs
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	type slot struct {
		bag    *diag.Bag
		result variance.Result
	}
	slots := make([]slot, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(workers, len(jobs)))

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			name := job.name()
			sink.OnEvent(ui.Event{Name: name, Stage: ui.StageCheck, Status: ui.StatusWorking})
			span := trace.Begin(tracer, trace.ScopeDecl, "check:"+name, parent)

			bag := diag.NewBag(opts.MaxDiagnostics)
			// общие ноды снапшота могут привести к повторному `this`
			reporter := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
			vo := variance.Options{
				Registry:  r.DB,
				Reporter:  reporter,
				Deps:      r.Graph,
				TaskClass: opts.TaskClass,
			}

			var vr variance.Result
			if job.class != nil {
				vr = variance.CheckClass(vo, job.class)
			} else {
				vr = variance.CheckTypedef(vo, job.typedef.Name)
			}
			slots[i] = slot{bag: bag, result: vr}

			status := ui.StatusDone
			if bag.HasErrors() {
				status = ui.StatusError
			}
			span.End(fmt.Sprintf("params=%d deps=%d", vr.Params, len(vr.Deps)))
			sink.OnEvent(ui.Event{Name: name, Stage: ui.StageCheck, Status: status})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range slots {
		if slots[i].bag != nil {
			r.Bag.Merge(slots[i].bag)
		}
		r.Params += slots[i].result.Params
	}
	r.Decls = len(jobs)
	return nil
}
