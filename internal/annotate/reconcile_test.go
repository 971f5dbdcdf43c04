package annotate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chadrik/typewriter/internal/pyparse"
	"github.com/chadrik/typewriter/internal/resolve"
	"github.com/chadrik/typewriter/internal/sites"
)

func firstSite(t *testing.T, source string) *sites.FunctionSite {
	t.Helper()
	f, err := pyparse.NewParser().ParseFile("test.py", []byte(source))
	require.NoError(t, err)
	t.Cleanup(f.Close)
	out := sites.Extract(f)
	require.NotEmpty(t, out)
	return out[0]
}

func TestReconcileExactMatch(t *testing.T) {
	site := firstSite(t, "def f(x, y):\n    return x\n")
	args, ret, err := Reconcile(site, &resolve.Signature{
		ArgTypes: []string{"int", "str"}, ReturnType: "bool",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"int", "str"}, args)
	assert.Equal(t, "bool", ret)
}

func TestReconcileSynthesizesVariadicSlots(t *testing.T) {
	site := firstSite(t, "def f(x, *args, **kwargs):\n    return x\n")
	args, _, err := Reconcile(site, &resolve.Signature{
		ArgTypes: []string{"int"}, ReturnType: "int",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"int", "*Any", "**Any"}, args)
}

func TestReconcileKeepsRecordedVariadics(t *testing.T) {
	site := firstSite(t, "def f(*args):\n    return args\n")
	args, _, err := Reconcile(site, &resolve.Signature{
		ArgTypes: []string{"*int"}, ReturnType: "Any",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"*int"}, args)
}

func TestReconcileReceiver(t *testing.T) {
	// A method whose record omits the receiver stays one short; the
	// synthesizer aligns from the right and leaves self untyped.
	site := firstSite(t, "class C(object):\n    def m(self, x):\n        return x\n")
	args, _, err := Reconcile(site, &resolve.Signature{
		ArgTypes: []string{"int"}, ReturnType: "int",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"int"}, args)

	// A free function with a parameter that merely looks like a receiver
	// gets an explicit Any instead.
	site = firstSite(t, "def f(self, x):\n    return x\n")
	args, _, err = Reconcile(site, &resolve.Signature{
		ArgTypes: []string{"int"}, ReturnType: "int",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Any", "int"}, args)
}

func TestReconcileArityMismatch(t *testing.T) {
	site := firstSite(t, "def f(x):\n    return x\n")
	_, _, err := Reconcile(site, &resolve.Signature{
		ArgTypes: []string{"int", "str", "bool"}, ReturnType: "int",
	})
	require.Error(t, err)
	var arity *ArityError
	require.True(t, errors.As(err, &arity))
	assert.Equal(t, 1, arity.Declared)
	assert.Equal(t, 3, arity.Resolved)
	assert.Equal(t, "source has 1 args, annotation has 3 -- skipping", err.Error())
}

func TestReconcileWidensUnreliableNone(t *testing.T) {
	site := firstSite(t, "def f(x):\n    return x\n")
	_, ret, err := Reconcile(site, &resolve.Signature{
		ArgTypes: []string{"int"}, ReturnType: "None",
	})
	require.NoError(t, err)
	assert.Equal(t, "Optional[Any]", ret)

	site = firstSite(t, "def f(x):\n    print(x)\n")
	_, ret, err = Reconcile(site, &resolve.Signature{
		ArgTypes: []string{"int"}, ReturnType: "None",
	})
	require.NoError(t, err)
	assert.Equal(t, "None", ret, "no return expression, None stands")
}

func TestReconcileGeneratorReturn(t *testing.T) {
	gen := "def g(n):\n    yield n\n"

	_, ret, err := Reconcile(firstSite(t, gen), &resolve.Signature{
		ArgTypes: []string{"int"}, ReturnType: "int",
	})
	require.NoError(t, err)
	assert.Equal(t, "Iterator[int]", ret)

	// Tracers see a generator that yielded nothing as returning None.
	_, ret, err = Reconcile(firstSite(t, gen), &resolve.Signature{
		ArgTypes: []string{"int"}, ReturnType: "Optional[int]",
	})
	require.NoError(t, err)
	assert.Equal(t, "Iterator[int]", ret)

	_, ret, err = Reconcile(firstSite(t, gen), &resolve.Signature{
		ArgTypes: []string{"int"}, ReturnType: "Iterator[str]",
	})
	require.NoError(t, err)
	assert.Equal(t, "Iterator[str]", ret)
}
