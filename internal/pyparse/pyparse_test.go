package pyparse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripPy(t *testing.T) {
	assert.Equal(t, "mod", StripPy("mod.py"))
	assert.Equal(t, "mod", StripPy("mod.pyi"))
	assert.Equal(t, "", StripPy("mod.txt"))
	assert.Equal(t, "", StripPy("mod"))
}

func TestCrawlUp(t *testing.T) {
	root := t.TempDir()
	pkg := filepath.Join(root, "pkg", "sub")
	require.NoError(t, os.MkdirAll(pkg, 0755))
	for _, dir := range []string{filepath.Join(root, "pkg"), pkg} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "__init__.py"), nil, 0644))
	}
	file := filepath.Join(pkg, "mod.py")
	require.NoError(t, os.WriteFile(file, []byte("x = 1\n"), 0644))

	top, mod := CrawlUp(file)
	assert.Equal(t, root, top)
	assert.Equal(t, "pkg.sub.mod", mod)

	_, mod = CrawlUp(filepath.Join(pkg, "__init__.py"))
	assert.Equal(t, "pkg.sub", mod)

	// no __init__ above means the file is its own top-level module
	loose := filepath.Join(root, "script.py")
	require.NoError(t, os.WriteFile(loose, nil, 0644))
	top, mod = CrawlUp(loose)
	assert.Equal(t, root, top)
	assert.Equal(t, "script", mod)
}

func TestParseFile(t *testing.T) {
	p := NewParser()

	f, err := p.ParseFile("a.py", []byte("def f(x):\n    return x\n"))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "a", f.Module)
	assert.Equal(t, "module", f.Root().Kind())

	_, err = p.ParseFile("b.py", []byte("def broken(:\n"))
	assert.Error(t, err)
}

func TestTextHelpers(t *testing.T) {
	src := []byte("def f():\n    pass\nx = 1")
	// offsets: line 2 starts at 9, line 3 at 18

	assert.Equal(t, uint(0), LineStart(src, 4))
	assert.Equal(t, uint(9), LineStart(src, 12))
	assert.Equal(t, uint(8), LineEnd(src, 4))
	assert.Equal(t, uint(len(src)), LineEnd(src, 19), "unterminated last line")
	assert.Equal(t, uint(9), NextLineStart(src, 0))
	assert.Equal(t, uint(len(src)), NextLineStart(src, 19))
	assert.Equal(t, "    ", Indentation(src, 13))
	assert.Equal(t, "", Indentation(src, 9))
}
