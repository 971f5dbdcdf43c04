// # cmd/typewriter/app_test.go
package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chadrik/typewriter/internal/config"
)

func TestApp_RunWithTraceFile(t *testing.T) {
	tmpDir := t.TempDir()

	source := "def gcd(a, b):\n    while b:\n        a, b = b, a % b\n    return a\n"
	srcPath := filepath.Join(tmpDir, "gcd.py")
	if err := os.WriteFile(srcPath, []byte(source), 0644); err != nil {
		t.Fatal(err)
	}

	traces := `[
  {"path": "gcd.py", "line": 1, "func_name": "gcd",
   "signature": {"arg_types": ["int", "int"], "return_type": "int"}}
]`
	tracePath := filepath.Join(tmpDir, "type_info.json")
	if err := os.WriteFile(tracePath, []byte(traces), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Paths = []string{tmpDir}
	cfg.JSON.TypeInfo = tracePath
	cfg.Output.Write = true

	app, err := NewApp(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	summary, err := app.Run()
	if err != nil {
		t.Fatal(err)
	}
	if summary.FilesProcessed != 1 || summary.FilesChanged != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Annotated != 1 {
		t.Fatalf("expected 1 annotated function, got %d", summary.Annotated)
	}

	out, err := os.ReadFile(srcPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "def gcd(a: int, b: int) -> int:") {
		t.Fatalf("expected inline annotations, got:\n%s", out)
	}

	// HandleChanges should re-process the now-annotated file without crash
	// or further changes.
	app.HandleChanges([]string{srcPath})
	after, _ := os.ReadFile(srcPath)
	if string(after) != string(out) {
		t.Fatal("expected a second pass to be idempotent")
	}
}

func TestApp_OutputDirLeavesSourceUntouched(t *testing.T) {
	tmpDir := t.TempDir()
	outDir := filepath.Join(tmpDir, "annotated")

	source := "def f():\n    pass\n"
	srcPath := filepath.Join(tmpDir, "f.py")
	if err := os.WriteFile(srcPath, []byte(source), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Paths = []string{tmpDir}
	cfg.Any.AutoAny = true
	cfg.Output.OutputDir = outDir

	app, err := NewApp(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	if _, err := app.Run(); err != nil {
		t.Fatal(err)
	}

	orig, _ := os.ReadFile(srcPath)
	if string(orig) != source {
		t.Fatal("source file should not be modified in output-dir mode")
	}

	copied, err := os.ReadFile(filepath.Join(outDir, "f.py"))
	if err != nil {
		t.Fatalf("expected annotated copy: %v", err)
	}
	if !strings.Contains(string(copied), "def f() -> None:") {
		t.Fatalf("expected annotated copy, got:\n%s", copied)
	}
}

func TestApp_RequiresSignatureSource(t *testing.T) {
	cfg := config.Default()
	if _, err := NewApp(cfg); err == nil {
		t.Fatal("expected error when no signature sources are configured")
	}
}

func TestApp_ScanDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	os.MkdirAll(filepath.Join(tmpDir, "pkg"), 0755)
	os.MkdirAll(filepath.Join(tmpDir, ".git"), 0755)
	os.WriteFile(filepath.Join(tmpDir, "a.py"), []byte("x = 1\n"), 0644)
	os.WriteFile(filepath.Join(tmpDir, "pkg", "b.pyi"), []byte("x: int\n"), 0644)
	os.WriteFile(filepath.Join(tmpDir, "pkg", "c_pb2.py"), []byte("x = 1\n"), 0644)
	os.WriteFile(filepath.Join(tmpDir, ".git", "d.py"), []byte("x = 1\n"), 0644)
	os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("no"), 0644)

	app := &App{Config: config.Default()}
	files, err := app.ScanDirectories([]string{tmpDir}, []string{".git"}, []string{"*_pb2.py"})
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %v", files)
	}
	if filepath.Base(files[0]) != "a.py" || filepath.Base(files[1]) != "b.pyi" {
		t.Fatalf("unexpected scan result: %v", files)
	}
}
