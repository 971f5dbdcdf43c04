package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chadrik/typewriter/internal/edit"
	"github.com/chadrik/typewriter/internal/pyparse"
)

func scan(t *testing.T, source string) (*pyparse.File, *FileImports) {
	t.Helper()
	f, err := pyparse.NewParser().ParseFile("mod1.py", []byte(source))
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f, Scan(f)
}

func flushed(t *testing.T, f *pyparse.File, fi *FileImports) string {
	t.Helper()
	out, err := edit.Apply(f.Source, fi.Flush())
	require.NoError(t, err)
	return string(out)
}

func TestResolveBinding(t *testing.T) {
	_, fi := scan(t, `import os
import os.path
import collections as coll
from typing import List, Dict as D
from pkg.mod import Cls as Alias
`)

	assert.Equal(t, "List", fi.ResolveBinding("typing", "List"))
	assert.Equal(t, "D", fi.ResolveBinding("typing", "Dict"))
	assert.Equal(t, "Alias", fi.ResolveBinding("pkg.mod", "Cls"))
	assert.Equal(t, "os.sep", fi.ResolveBinding("os", "sep"))
	assert.Equal(t, "coll.OrderedDict", fi.ResolveBinding("collections", "OrderedDict"))
	// `import os.path` binds both ("", os.path) and (os, path)
	assert.Equal(t, "os.path.join", fi.ResolveBinding("os.path", "join"))
	assert.Equal(t, "", fi.ResolveBinding("typing", "Optional"))
	assert.Equal(t, "", fi.ResolveBinding("other", "Thing"))
}

func TestRewriteTypeString(t *testing.T) {
	_, fi := scan(t, `from typing import List
from pkg.mod import Cls
`)

	assert.Equal(t, "List[Cls]", fi.RewriteTypeString("List[pkg.mod.Cls]"))
	// Optional is known from typing and gets requested
	assert.Equal(t, "Optional[int]", fi.RewriteTypeString("Optional[int]"))
	// module:name syntax names the module explicitly
	assert.Equal(t, "Other", fi.RewriteTypeString("pkg.sub:Other"))
	assert.Equal(t, "Callable[..., int]", fi.RewriteTypeString("Callable[..., int]"))

	r, ok := fi.reqs[bindingKey{"typing", "Optional"}]
	require.True(t, ok)
	assert.False(t, r.Deferred, "typing is a safe module")
	r, ok = fi.reqs[bindingKey{"pkg.sub", "Other"}]
	require.True(t, ok)
	assert.True(t, r.Deferred, "pkg.sub is not imported in this file")
}

func TestRewriteKeepsQualifiedNameWhenModuleImported(t *testing.T) {
	_, fi := scan(t, "import mod3\n")
	assert.Equal(t, "mod3.OtherClass", fi.RewriteTypeString("mod3.OtherClass"))
	assert.Empty(t, fi.reqs, "the existing module import already covers the name")
}

func TestRequestSkipsOwnModule(t *testing.T) {
	_, fi := scan(t, "x = 1\n")
	fi.Request("mod1", "MyClass")
	assert.Empty(t, fi.reqs)
}

func TestFlushTopLevelPlacement(t *testing.T) {
	f, fi := scan(t, `"""Module doc."""
import os

x = 1
`)
	fi.Request("typing", "Optional")
	out := flushed(t, f, fi)
	assert.Equal(t, `"""Module doc."""
import os
from typing import Optional

x = 1
`, out)
}

func TestFlushAfterDocstringWhenNoImports(t *testing.T) {
	f, fi := scan(t, `"""Module doc."""

x = 1
`)
	fi.Request("typing", "Any")
	out := flushed(t, f, fi)
	assert.Equal(t, `"""Module doc."""
from typing import Any

x = 1
`, out)
}

// An unconditionally imported module takes new entries at top level; an
// unimported one goes behind TYPE_CHECKING so the rewrite cannot create an
// import cycle.
func TestFlushDeferredPlacement(t *testing.T) {
	f, fi := scan(t, `from mod3 import Base

def f(x):
    return x
`)
	assert.Equal(t, "OtherClass", fi.RewriteTypeString("mod3.OtherClass"))
	assert.Equal(t, "MyClass", fi.RewriteTypeString("mod2.MyClass"))
	out := flushed(t, f, fi)
	assert.Equal(t, `from mod3 import Base
from mod3 import OtherClass
from typing import TYPE_CHECKING
if TYPE_CHECKING:
    from mod2 import MyClass

def f(x):
    return x
`, out)
}

func TestFlushAppendsToExistingTypeCheckingBlock(t *testing.T) {
	f, fi := scan(t, `from typing import TYPE_CHECKING

if TYPE_CHECKING:
    from mod2 import First

x = 1
`)
	fi.Request("mod4", "Second")
	out := flushed(t, f, fi)
	assert.Equal(t, `from typing import TYPE_CHECKING

if TYPE_CHECKING:
    from mod2 import First
    from mod4 import Second

x = 1
`, out)
}

func TestGuardedImportsCountAsBindings(t *testing.T) {
	_, fi := scan(t, `from typing import TYPE_CHECKING

if TYPE_CHECKING:
    from mod2 import MyClass
`)
	// already in scope for annotations, so no new request
	assert.Equal(t, "MyClass", fi.RewriteTypeString("mod2.MyClass"))
	assert.Empty(t, fi.reqs)
}

func TestFlushSortsAndDedups(t *testing.T) {
	f, fi := scan(t, "import os\n\nx = 1\n")
	fi.Request("typing", "Optional")
	fi.Request("typing", "List")
	fi.Request("typing", "List")
	fi.Request("os", "sep")
	out := flushed(t, f, fi)
	assert.Equal(t, `import os
from os import sep
from typing import List
from typing import Optional

x = 1
`, out)
}

func TestFlushIsIdempotent(t *testing.T) {
	f, fi := scan(t, "x = 1\n")
	fi.Request("typing", "Any")
	require.NotEmpty(t, fi.Flush())
	assert.Empty(t, fi.Flush(), "requirements are cleared by Flush")

	_ = f
}

func TestCheckpointRollsBackRequests(t *testing.T) {
	_, fi := scan(t, "x = 1\n")
	fi.Request("typing", "Any")
	restore := fi.Checkpoint()
	fi.Request("mod9", "Gone")
	require.Len(t, fi.reqs, 2)
	restore()
	require.Len(t, fi.reqs, 1)
	_, ok := fi.reqs[bindingKey{"typing", "Any"}]
	assert.True(t, ok)
}

func TestFlushUnterminatedFinalLine(t *testing.T) {
	f, fi := scan(t, "import os\nx = 1")
	fi.Request("typing", "Any")
	out := flushed(t, f, fi)
	assert.Equal(t, "import os\nfrom typing import Any\nx = 1", out)
}
