package history

import (
	"path/filepath"
	"testing"
	"time"
)

func TestStore_OpenInitializesSchemaAndSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 8, 13, 10, 0, 0, 0, time.UTC)
	first := Run{
		Timestamp:      base,
		Paths:          "./src",
		Style:          "py3",
		FilesProcessed: 8,
		FilesChanged:   3,
		Annotated:      12,
		Skipped:        2,
		Duration:       1500 * time.Millisecond,
		Files: []FileResult{
			{Path: "src/a.py", Annotated: 7, Changed: true},
			{Path: "src/b.py", Annotated: 5, Skipped: 2, Changed: true},
		},
	}
	second := Run{
		Timestamp:      base.Add(2 * time.Hour),
		Paths:          "./src",
		Style:          "py3",
		FilesProcessed: 8,
		Annotated:      1,
	}

	saved, err := store.SaveRun(first)
	if err != nil {
		t.Fatalf("save first run: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected a generated run id")
	}
	if _, err := store.SaveRun(second); err != nil {
		t.Fatalf("save second run: %v", err)
	}

	got, err := store.LoadRuns(base.Add(time.Hour))
	if err != nil {
		t.Fatalf("load runs: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 run after since filter, got %d", len(got))
	}
	if got[0].Annotated != 1 {
		t.Fatalf("expected annotated=1, got %d", got[0].Annotated)
	}

	all, err := store.LoadRuns(time.Time{})
	if err != nil {
		t.Fatalf("load all runs: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(all))
	}
	if all[0].Duration != 1500*time.Millisecond {
		t.Fatalf("expected duration to roundtrip, got %v", all[0].Duration)
	}

	files, err := store.LoadFileResults(saved.ID)
	if err != nil {
		t.Fatalf("load file results: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 file results, got %d", len(files))
	}
	if files[0].Path != "src/a.py" || !files[0].Changed {
		t.Fatalf("unexpected first file result: %+v", files[0])
	}
}

func TestStore_OpenRejectsDirectory(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("expected error opening a directory path")
	}
}

func TestBuildTrendReport(t *testing.T) {
	base := time.Date(2026, 8, 13, 0, 0, 0, 0, time.UTC)
	runs := []Run{
		{Timestamp: base, Annotated: 10, Skipped: 1},
		{Timestamp: base.Add(time.Hour), Annotated: 4},
		{Timestamp: base.Add(2 * time.Hour), Annotated: 6, FilesChanged: 2},
	}

	report, err := BuildTrendReport(runs, 90*time.Minute)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.RunCount != 3 {
		t.Fatalf("expected 3 points, got %d", report.RunCount)
	}
	last := report.Points[2]
	if last.CumulativeAnnotated != 20 {
		t.Fatalf("expected cumulative 20, got %d", last.CumulativeAnnotated)
	}
	if last.DeltaAnnotated != 2 {
		t.Fatalf("expected delta 2, got %d", last.DeltaAnnotated)
	}
	// window covers the last two runs only
	if last.AvgAnnotated != 5 {
		t.Fatalf("expected moving average 5, got %v", last.AvgAnnotated)
	}

	if _, err := BuildTrendReport(nil, 0); err == nil {
		t.Fatal("expected error for empty run list")
	}
}
