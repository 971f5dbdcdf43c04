package annotate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chadrik/typewriter/internal/pyparse"
	"github.com/chadrik/typewriter/internal/resolve"
	"github.com/chadrik/typewriter/internal/sites"
)

// tableResolver serves canned signatures by qualified name.
type tableResolver map[string]*resolve.Signature

func (tableResolver) Name() string { return "table" }

func (t tableResolver) Resolve(_ context.Context, site *sites.FunctionSite, _ string) (*resolve.Signature, error) {
	sig, ok := t[site.QualName]
	if !ok {
		return nil, nil
	}
	cp := *sig
	cp.ArgTypes = append([]string(nil), sig.ArgTypes...)
	return &cp, nil
}

func rewrite(t *testing.T, source string, opts Options, table tableResolver) *Result {
	t.Helper()
	eng := NewEngine(pyparse.NewParser(), resolve.NewChain(nil, table), opts, nil)
	res, err := eng.RewriteFile(context.Background(), "test.py", []byte(source))
	require.NoError(t, err)
	return res
}

func TestEngineInline(t *testing.T) {
	src := `def gcd(a, b=10):
    while b:
        a, b = b, a % b
    return a
`
	res := rewrite(t, src, Options{Style: StyleInline}, tableResolver{
		"gcd": {ArgTypes: []string{"int", "int"}, ReturnType: "int"},
	})
	want := `def gcd(a: int, b: int = 10) -> int:
    while b:
        a, b = b, a % b
    return a
`
	assert.Equal(t, want, string(res.Output))
	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.Annotated)
}

func TestEngineInlineAddsTypingImports(t *testing.T) {
	src := `def first(items):
    return items[0]
`
	res := rewrite(t, src, Options{Style: StyleInline}, tableResolver{
		"first": {ArgTypes: []string{"List[int]"}, ReturnType: "Optional[int]"},
	})
	want := `from typing import List
from typing import Optional
def first(items: List[int]) -> Optional[int]:
    return items[0]
`
	assert.Equal(t, want, string(res.Output))
}

func TestEngineInlineMethodReceiver(t *testing.T) {
	src := `class C(object):
    def m(self, x):
        print(x)
`
	res := rewrite(t, src, Options{Style: StyleInline}, tableResolver{
		"C.m": {ArgTypes: []string{"int"}, ReturnType: "None"},
	})
	want := `class C(object):
    def m(self, x: int) -> None:
        print(x)
`
	assert.Equal(t, want, string(res.Output))
}

func TestEngineGenerator(t *testing.T) {
	src := `def countdown(n):
    while n:
        yield n
        n -= 1
`
	res := rewrite(t, src, Options{Style: StyleInline}, tableResolver{
		"countdown": {ArgTypes: []string{"int"}, ReturnType: "int"},
	})
	want := `from typing import Iterator
def countdown(n: int) -> Iterator[int]:
    while n:
        yield n
        n -= 1
`
	assert.Equal(t, want, string(res.Output))
}

func TestEngineDeferredImport(t *testing.T) {
	src := `def load(raw):
    return parse(raw)
`
	res := rewrite(t, src, Options{Style: StyleInline}, tableResolver{
		"load": {ArgTypes: []string{"str"}, ReturnType: "mymod.Thing"},
	})
	want := `from typing import TYPE_CHECKING
if TYPE_CHECKING:
    from mymod import Thing
def load(raw: str) -> Thing:
    return parse(raw)
`
	assert.Equal(t, want, string(res.Output))
}

func TestEngineCommentShort(t *testing.T) {
	src := `def add(x, y):
    return x + y
`
	res := rewrite(t, src, Options{Style: StyleComment, CommentStyle: CommentSingle}, tableResolver{
		"add": {ArgTypes: []string{"int", "int"}, ReturnType: "int"},
	})
	want := `def add(x, y):
    # type: (int, int) -> int
    return x + y
`
	assert.Equal(t, want, string(res.Output))
}

func TestEngineCommentOneLiner(t *testing.T) {
	src := "def add(x, y): return x + y\n"
	res := rewrite(t, src, Options{Style: StyleComment, CommentStyle: CommentSingle}, tableResolver{
		"add": {ArgTypes: []string{"int", "int"}, ReturnType: "int"},
	})
	want := `def add(x, y):
    # type: (int, int) -> int
    return x + y
`
	assert.Equal(t, want, string(res.Output))
}

func TestEngineCommentLongForm(t *testing.T) {
	src := `def send(host,
         port,
         *args):
    return True
`
	res := rewrite(t, src, Options{Style: StyleComment, CommentStyle: CommentMulti}, tableResolver{
		"send": {ArgTypes: []string{"str", "int"}, ReturnType: "bool"},
	})
	want := `from typing import Any
def send(host,  # type: str
         port,  # type: int
         *args  # type: *Any
         ):
    # type: (...) -> bool
    return True
`
	assert.Equal(t, want, string(res.Output))
}

func TestEngineSkipsAnnotatedSites(t *testing.T) {
	src := `def f(x: int) -> int:
    return x
`
	res := rewrite(t, src, Options{Style: StyleInline}, tableResolver{
		"f": {ArgTypes: []string{"str"}, ReturnType: "str"},
	})
	assert.False(t, res.Changed)
	assert.Equal(t, src, string(res.Output))
	assert.Equal(t, 0, res.Annotated)
}

func TestEngineArityDiagnostic(t *testing.T) {
	src := `def f(x):
    return x
`
	res := rewrite(t, src, Options{Style: StyleInline}, tableResolver{
		"f": {ArgTypes: []string{"int", "str", "bool"}, ReturnType: "int"},
	})
	assert.False(t, res.Changed)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "1: f: source has 1 args, annotation has 3 -- skipping", res.Diagnostics[0].String())
}

func TestEngineBudget(t *testing.T) {
	src := `def a(x):
    return x


def b(x):
    return x
`
	table := tableResolver{
		"a": {ArgTypes: []string{"int"}, ReturnType: "int"},
		"b": {ArgTypes: []string{"int"}, ReturnType: "int"},
	}
	res := rewrite(t, src, Options{Style: StyleInline, Budget: NewBudget(1)}, table)
	assert.Equal(t, 1, res.Annotated)
	assert.Contains(t, string(res.Output), "def a(x: int) -> int:")
	assert.Contains(t, string(res.Output), "def b(x):")
}

func TestEngineIdempotent(t *testing.T) {
	table := tableResolver{
		"f": {ArgTypes: []string{"List[int]"}, ReturnType: "int"},
	}
	src := `def f(xs):
    return xs[0]
`
	for _, style := range []string{StyleInline, StyleComment} {
		first := rewrite(t, src, Options{Style: style}, table)
		require.True(t, first.Changed)
		second := rewrite(t, string(first.Output), Options{Style: style}, table)
		assert.False(t, second.Changed, "style %s", style)
		assert.Equal(t, string(first.Output), string(second.Output))
	}
}

func TestEngineParseError(t *testing.T) {
	eng := NewEngine(pyparse.NewParser(), resolve.NewChain(nil), Options{}, nil)
	_, err := eng.RewriteFile(context.Background(), "test.py", []byte("def broken(:\n"))
	assert.Error(t, err)
}

func TestBudgetPushPop(t *testing.T) {
	b := NewBudget(2)
	b.Push(1)
	assert.False(t, b.Exhausted())
	b.Spend()
	assert.True(t, b.Exhausted())
	b.Pop()
	assert.False(t, b.Exhausted())

	var unlimited *Budget
	assert.False(t, unlimited.Exhausted())
	unlimited.Spend()
}
