package history

import "time"

const SchemaVersion = 2

// Run is one recorded annotation pass over a set of paths.
type Run struct {
	ID              string       `json:"id"`
	SchemaVersion   int          `json:"schema_version"`
	Timestamp       time.Time    `json:"timestamp"`
	CommitHash      string       `json:"commit_hash,omitempty"`
	CommitTimestamp time.Time    `json:"commit_timestamp,omitempty"`
	Paths           string       `json:"paths"`
	Style           string       `json:"style"`
	FilesProcessed  int          `json:"files_processed"`
	FilesChanged    int          `json:"files_changed"`
	Annotated       int          `json:"annotated"`
	Skipped         int          `json:"skipped"`
	Duration        time.Duration `json:"duration"`
	Files           []FileResult `json:"files,omitempty"`
}

// FileResult is the per-file breakdown of a run.
type FileResult struct {
	Path      string `json:"path"`
	Annotated int    `json:"annotated"`
	Skipped   int    `json:"skipped"`
	Changed   bool   `json:"changed"`
}

// TrendPoint tracks annotation progress between consecutive runs.
type TrendPoint struct {
	Timestamp           time.Time `json:"timestamp"`
	CommitHash          string    `json:"commit_hash,omitempty"`
	Annotated           int       `json:"annotated"`
	Skipped             int       `json:"skipped"`
	FilesChanged        int       `json:"files_changed"`
	CumulativeAnnotated int       `json:"cumulative_annotated"`
	DeltaAnnotated      int       `json:"delta_annotated"`
	AvgAnnotated        float64   `json:"avg_annotated"`
	WindowHours         float64   `json:"window_hours"`
}

type TrendReport struct {
	SchemaVersion int          `json:"schema_version"`
	Since         time.Time    `json:"since"`
	Until         time.Time    `json:"until"`
	Window        string       `json:"window"`
	RunCount      int          `json:"run_count"`
	Points        []TrendPoint `json:"points"`
}
