package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chadrik/typewriter/internal/sites"
)

// DefaultMaxDrift is how many lines a recorded signature may sit away from
// the site it is matched to. Decorators shift line numbers, so some drift
// is expected; more than this and the trace data is assumed stale.
const DefaultMaxDrift = 5

// TraceRecord is one collected signature. The legacy flattened form with a
// combined "type_comment" string is normalized into Signature on decode.
type TraceRecord struct {
	Path     string
	FuncName string
	Line     int
	Sig      Signature
}

func (r *TraceRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Path        string     `json:"path"`
		FuncName    string     `json:"func_name"`
		Line        int        `json:"line"`
		Signature   *Signature `json:"signature"`
		TypeComment string     `json:"type_comment"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Path = raw.Path
	r.FuncName = raw.FuncName
	r.Line = raw.Line
	switch {
	case raw.Signature != nil:
		r.Sig = *raw.Signature
	case raw.TypeComment != "":
		sig, ok := parseTypeComment(raw.TypeComment)
		if !ok {
			return fmt.Errorf("record for %q: malformed type_comment %q", raw.FuncName, raw.TypeComment)
		}
		r.Sig = *sig
	default:
		return fmt.Errorf("record for %q has neither signature nor type_comment", raw.FuncName)
	}
	return nil
}

// LoadTraceFile reads a JSON array of trace records.
func LoadTraceFile(path string) ([]TraceRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open type info file: %w", err)
	}
	var records []TraceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode type info file %s: %w", path, err)
	}
	return records, nil
}

// TraceResolver matches sites against pre-collected trace records by
// function name and file path, picking the record closest in line number.
type TraceResolver struct {
	byName   map[string][]TraceRecord
	topDir   string
	maxDrift int
	log      *slog.Logger
}

func NewTraceResolver(records []TraceRecord, topDir string, log *slog.Logger) *TraceResolver {
	if log == nil {
		log = slog.Default()
	}
	byName := make(map[string][]TraceRecord)
	for _, r := range records {
		byName[r.FuncName] = append(byName[r.FuncName], r)
	}
	return &TraceResolver{
		byName:   byName,
		topDir:   topDir,
		maxDrift: DefaultMaxDrift,
		log:      log,
	}
}

func (t *TraceResolver) Name() string { return "trace" }

// SetMaxDrift overrides the drift threshold and returns a restore func, so
// a temporary override can be scoped with defer.
func (t *TraceResolver) SetMaxDrift(n int) func() {
	old := t.maxDrift
	t.maxDrift = n
	return func() { t.maxDrift = old }
}

func (t *TraceResolver) Resolve(_ context.Context, site *sites.FunctionSite, path string) (*Signature, error) {
	if sig := t.lookup(site.QualName, site, path); sig != nil {
		return sig, nil
	}
	// Trace collectors cannot always recover the enclosing class of a
	// classmethod or staticmethod, so retry those under the bare name.
	if site.HasDecorator("classmethod") || site.HasDecorator("staticmethod") {
		if sig := t.lookup(site.Name, site, path); sig != nil {
			return sig, nil
		}
	}
	return nil, nil
}

func (t *TraceResolver) lookup(funcName string, site *sites.FunctionSite, path string) *Signature {
	var cands []TraceRecord
	for _, r := range t.byName[funcName] {
		if t.pathMatches(r.Path, path) {
			cands = append(cands, r)
		}
	}
	if len(cands) == 0 {
		return nil
	}
	// Nested functions and decorators produce duplicate names; take the
	// record nearest in line number.
	sort.Slice(cands, func(i, j int) bool {
		return abs(site.Line-cands[i].Line) < abs(site.Line-cands[j].Line)
	})
	best := cands[0]
	if abs(site.Line-best.Line) >= t.maxDrift {
		t.log.Warn(fmt.Sprintf("%s:%d: %q signature from line %d too far away -- skipping",
			path, site.Line, best.FuncName, best.Line))
		return nil
	}
	sig := best.Sig
	return &sig
}

func (t *TraceResolver) pathMatches(recorded, actual string) bool {
	if recorded == actual {
		return true
	}
	if t.topDir != "" {
		joined := filepath.Join(t.topDir, recorded)
		if absActual, err := filepath.Abs(actual); err == nil && joined == absActual {
			return true
		}
		if joined == actual {
			return true
		}
	}
	return strings.HasSuffix(actual, string(filepath.Separator)+recorded)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
