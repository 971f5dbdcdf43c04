// # cmd/typewriter/app.go
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gobwas/glob"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"

	"github.com/chadrik/typewriter/internal/annotate"
	"github.com/chadrik/typewriter/internal/config"
	"github.com/chadrik/typewriter/internal/history"
	"github.com/chadrik/typewriter/internal/observability"
	"github.com/chadrik/typewriter/internal/pyparse"
	"github.com/chadrik/typewriter/internal/resolve"
	"github.com/chadrik/typewriter/internal/util"
	"github.com/chadrik/typewriter/internal/watcher"
)

type App struct {
	Config *config.Config
	Parser *pyparse.Parser
	Engine *annotate.Engine

	store      *history.Store
	metrics    *observability.Server
	fsWatcher  *watcher.Watcher
	teaProgram *tea.Program
}

// RunSummary aggregates one annotation pass for reporting and history.
type RunSummary struct {
	FilesProcessed int
	FilesChanged   int
	Annotated      int
	Skipped        int
	Duration       time.Duration
	Results        []*annotate.Result
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := slog.Default()

	var resolvers []resolve.Resolver
	if cfg.JSON.TypeInfo != "" {
		records, err := resolve.LoadTraceFile(cfg.JSON.TypeInfo)
		if err != nil {
			return nil, fmt.Errorf("load type info: %w", err)
		}
		tr := resolve.NewTraceResolver(records, cfg.Paths[0], logger)
		tr.SetMaxDrift(cfg.JSON.MaxLineDrift)
		resolvers = append(resolvers, tr)
	}
	if cfg.Command.Command != "" {
		var limiter *util.Limiter
		if cfg.Command.RateLimit > 0 {
			limiter = util.NewLimiter(cfg.Command.RateLimit, cfg.Command.Burst)
		}
		resolvers = append(resolvers, resolve.NewCommandResolver(cfg.Command.Command, limiter, logger))
	}
	if cfg.Docs.Format != "off" {
		resolvers = append(resolvers, resolve.NewDocResolver(cfg.Docs.Format, cfg.Docs.DefaultReturnType))
	}
	if cfg.Any.AutoAny {
		resolvers = append(resolvers, resolve.AnyResolver{})
	}
	chain := resolve.NewChain(logger, resolvers...)
	if chain.Empty() {
		return nil, fmt.Errorf("no signature sources configured; set json.type_info, command.command, docs.format or any.auto_any")
	}

	var budget *annotate.Budget
	if cfg.MaxAnnotations > 0 {
		budget = annotate.NewBudget(cfg.MaxAnnotations)
	}

	parser := pyparse.NewParser()
	engine := annotate.NewEngine(parser, chain, annotate.Options{
		Style:        cfg.Format.AnnotationStyle,
		CommentStyle: cfg.Format.CommentStyle,
		Budget:       budget,
	}, logger)

	app := &App{
		Config: cfg,
		Parser: parser,
		Engine: engine,
	}

	if cfg.Output.HistoryDB != "" {
		store, err := history.Open(cfg.Output.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		app.store = store
	}
	if cfg.Output.MetricsAddr != "" {
		app.metrics = observability.NewServer(cfg.Output.MetricsAddr)
		if err := app.metrics.Start(context.Background()); err != nil {
			return nil, err
		}
	}

	return app, nil
}

func (a *App) Close() {
	if a.fsWatcher != nil {
		_ = a.fsWatcher.Close()
	}
	if a.metrics != nil {
		_ = a.metrics.Stop(context.Background())
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// Run scans the configured paths and annotates every Python file found.
func (a *App) Run() (*RunSummary, error) {
	files, err := a.ScanDirectories(a.Config.Paths, a.Config.Exclude.Dirs, a.Config.Exclude.Files)
	if err != nil {
		return nil, err
	}
	return a.processFiles(files)
}

func (a *App) ScanDirectories(paths []string, excludeDirs, excludeFiles []string) ([]string, error) {
	var files []string

	dirGlobs := make([]glob.Glob, 0, len(excludeDirs))
	for _, p := range excludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
		}
		dirGlobs = append(dirGlobs, g)
	}

	fileGlobs := make([]glob.Glob, 0, len(excludeFiles))
	for _, p := range excludeFiles {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude file pattern %q: %w", p, err)
		}
		fileGlobs = append(fileGlobs, g)
	}

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)

			if d.IsDir() {
				for _, g := range dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}

			if pyparse.StripPy(base) == "" {
				return nil
			}

			for _, g := range fileGlobs {
				if g.Match(base) {
					return nil
				}
			}

			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

// processFiles runs the engine over the given files with up to
// cfg.Processes workers, then emits diffs or rewritten files sequentially
// so output never interleaves.
func (a *App) processFiles(files []string) (*RunSummary, error) {
	start := time.Now()
	results := make([]*annotate.Result, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(a.Config.Processes)
	for i, path := range files {
		g.Go(func() error {
			content, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("failed to read file", "path", path, "error", err)
				return nil
			}
			res, err := a.Engine.RewriteFile(ctx, path, content)
			if err != nil {
				slog.Warn("failed to annotate file", "path", path, "error", err)
				return nil
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &RunSummary{Duration: time.Since(start)}
	for _, res := range results {
		if res == nil {
			continue
		}
		summary.FilesProcessed++
		summary.Annotated += res.Annotated
		summary.Skipped += res.Skipped
		summary.Results = append(summary.Results, res)
		if !res.Changed {
			continue
		}
		summary.FilesChanged++
		if err := a.emit(res); err != nil {
			return nil, err
		}
	}

	a.recordRun(summary)
	return summary, nil
}

// emit writes one changed file according to the output configuration:
// in place, into the output directory, or as a unified diff on stdout.
func (a *App) emit(res *annotate.Result) error {
	switch {
	case a.Config.Output.Write:
		return os.WriteFile(res.Path, res.Output, 0644)
	case a.Config.Output.OutputDir != "":
		dest := filepath.Join(a.Config.Output.OutputDir, a.relPath(res.Path))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		return os.WriteFile(dest, res.Output, 0644)
	default:
		if a.teaProgram != nil {
			// the TUI lists pending changes itself and owns the terminal
			return nil
		}
		orig, err := os.ReadFile(res.Path)
		if err != nil {
			return err
		}
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(orig)),
			B:        difflib.SplitLines(string(res.Output)),
			FromFile: res.Path + " (original)",
			ToFile:   res.Path + " (annotated)",
			Context:  3,
		})
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	}
}

// relPath makes a path relative to the first configured root that contains
// it, for mirroring under the output directory.
func (a *App) relPath(path string) string {
	for _, root := range a.Config.Paths {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return filepath.Base(path)
}

func (a *App) recordRun(summary *RunSummary) {
	if a.store == nil {
		return
	}

	run := history.Run{
		Paths:          strings.Join(a.Config.Paths, " "),
		Style:          a.Config.Format.AnnotationStyle,
		FilesProcessed: summary.FilesProcessed,
		FilesChanged:   summary.FilesChanged,
		Annotated:      summary.Annotated,
		Skipped:        summary.Skipped,
		Duration:       summary.Duration,
	}
	run.CommitHash, run.CommitTimestamp = history.ResolveGitMetadata(a.Config.Paths[0])
	for _, res := range summary.Results {
		run.Files = append(run.Files, history.FileResult{
			Path:      res.Path,
			Annotated: res.Annotated,
			Skipped:   res.Skipped,
			Changed:   res.Changed,
		})
	}

	if _, err := a.store.SaveRun(run); err != nil {
		slog.Error("failed to record run", "error", err)
	}
}

func (a *App) StartWatcher() error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		a.HandleChanges,
	)
	if err != nil {
		return err
	}
	a.fsWatcher = w
	return w.Watch(a.Config.Paths)
}

func (a *App) HandleChanges(paths []string) {
	slog.Info("detected changes", "count", len(paths))
	sort.Strings(paths)

	summary, err := a.processFiles(paths)
	if err != nil {
		slog.Error("failed to process changes", "error", err)
		return
	}

	if a.teaProgram != nil {
		a.teaProgram.Send(updateMsg{summary: summary})
	} else {
		a.PrintSummary(summary)
	}
}

func (a *App) PrintSummary(summary *RunSummary) {
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Annotated %d functions across %d files (%d changed) in %v\n",
		summary.Annotated, summary.FilesProcessed, summary.FilesChanged, summary.Duration.Round(time.Millisecond))

	diags := 0
	for _, res := range summary.Results {
		for _, d := range res.Diagnostics {
			fmt.Printf("   %s:%s\n", res.Path, d)
			diags++
		}
	}
	if diags == 0 && summary.Skipped > 0 {
		fmt.Printf("   %d sites skipped\n", summary.Skipped)
	}
	fmt.Println(strings.Repeat("-", 40))
}

// WritePending writes the rewritten output of every changed result back to
// its source file. The watch TUI calls this when 'w' is pressed.
func (a *App) WritePending(summary *RunSummary) (int, error) {
	written := 0
	for _, res := range summary.Results {
		if !res.Changed {
			continue
		}
		if err := os.WriteFile(res.Path, res.Output, 0644); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (a *App) RunUI() error {
	m := initialModel(a.WritePending)
	p := tea.NewProgram(m, tea.WithAltScreen())
	a.teaProgram = p
	_, err := p.Run()
	return err
}
