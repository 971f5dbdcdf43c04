// Package annotate turns resolved signatures into source rewrites. The
// engine runs the whole per-file pass: extract sites, resolve each one,
// reconcile the signature against the declaration, synthesize edits and
// flush the import requirements the new annotations created.
package annotate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chadrik/typewriter/internal/edit"
	"github.com/chadrik/typewriter/internal/imports"
	"github.com/chadrik/typewriter/internal/observability"
	"github.com/chadrik/typewriter/internal/pyparse"
	"github.com/chadrik/typewriter/internal/resolve"
	"github.com/chadrik/typewriter/internal/sites"
)

// Options selects the annotation style for a run.
type Options struct {
	// Style is StyleInline for function annotations or StyleComment for
	// type comments.
	Style string

	// CommentStyle picks the type-comment layout; only read when Style is
	// StyleComment.
	CommentStyle string

	// Budget caps insertions across the run; nil means unlimited.
	Budget *Budget
}

// Diagnostic is one site the engine resolved but could not annotate. The
// file itself is still rewritten.
type Diagnostic struct {
	Line    int
	Func    string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d: %s: %s", d.Line, d.Func, d.Message)
}

// Result is the outcome of one file pass. Output equals the input when
// nothing changed.
type Result struct {
	Path        string
	Output      []byte
	Changed     bool
	Annotated   int
	Skipped     int
	Diagnostics []Diagnostic
}

// Engine rewrites files one at a time. It is safe for concurrent use; all
// per-file state lives in the pass.
type Engine struct {
	parser *pyparse.Parser
	chain  *resolve.Chain
	opts   Options
	log    *slog.Logger
}

func NewEngine(parser *pyparse.Parser, chain *resolve.Chain, opts Options, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if opts.Style == "" {
		opts.Style = StyleInline
	}
	if opts.CommentStyle == "" {
		opts.CommentStyle = CommentAuto
	}
	return &Engine{parser: parser, chain: chain, opts: opts, log: log}
}

// RewriteFile runs the full pass over one file. Parse failures abort the
// file; per-site failures degrade to diagnostics.
func (e *Engine) RewriteFile(ctx context.Context, path string, source []byte) (*Result, error) {
	start := time.Now()
	f, err := e.parser.ParseFile(path, source)
	observability.ParsingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.FilesProcessed.WithLabelValues("parse_error").Inc()
		return nil, err
	}
	defer f.Close()

	imp := imports.Scan(f)
	res := &Result{Path: path, Output: source}
	var edits []edit.Edit

	for _, site := range sites.Extract(f) {
		if site.Annotated {
			continue
		}
		if e.opts.Budget.Exhausted() {
			e.log.Debug("annotation budget exhausted", "path", path)
			break
		}
		sig, provider := e.chain.Resolve(ctx, site, path)
		if sig == nil {
			continue
		}

		args, ret, err := Reconcile(site, sig)
		if err != nil {
			e.skip(res, site, "arity", err)
			continue
		}

		// Type rewriting registers import requirements as a side effect;
		// roll them back if the annotation turns out to be unplaceable.
		restore := imp.Checkpoint()
		for i, a := range args {
			args[i] = imp.RewriteTypeString(a)
		}
		ret = imp.RewriteTypeString(ret)

		var siteEdits []edit.Edit
		if e.opts.Style == StyleComment {
			siteEdits, err = Comment(f, site, args, ret, e.opts.CommentStyle)
			if err != nil {
				restore()
				e.skip(res, site, "layout", err)
				continue
			}
		} else {
			siteEdits = Inline(f, site, args, ret)
		}

		edits = append(edits, siteEdits...)
		res.Annotated++
		e.opts.Budget.Spend()
		observability.AnnotationsApplied.WithLabelValues(provider).Inc()
		e.log.Info("annotated function",
			"path", path, "line", site.Line, "func", site.QualName, "provider", provider)
	}

	edits = append(edits, imp.Flush()...)
	if len(edits) == 0 {
		observability.FilesProcessed.WithLabelValues("unchanged").Inc()
		return res, nil
	}

	out, err := edit.Apply(source, edits)
	if err != nil {
		observability.FilesProcessed.WithLabelValues("edit_error").Inc()
		return nil, fmt.Errorf("apply edits to %s: %w", path, err)
	}
	res.Output = out
	res.Changed = !bytes.Equal(out, source)
	observability.FilesProcessed.WithLabelValues("rewritten").Inc()
	return res, nil
}

func (e *Engine) skip(res *Result, site *sites.FunctionSite, reason string, err error) {
	res.Skipped++
	res.Diagnostics = append(res.Diagnostics, Diagnostic{
		Line:    site.Line,
		Func:    site.QualName,
		Message: err.Error(),
	})
	observability.SitesSkipped.WithLabelValues(reason).Inc()

	var arity *ArityError
	if errors.As(err, &arity) {
		e.log.Warn("signature does not fit declaration",
			"path", res.Path, "line", site.Line, "func", site.QualName, "error", err)
		return
	}
	e.log.Warn("cannot place annotation",
		"path", res.Path, "line", site.Line, "func", site.QualName, "error", err)
}
