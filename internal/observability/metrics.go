package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "typewriter_parsing_seconds",
		Help:    "Time spent parsing a Python source file.",
		Buckets: prometheus.DefBuckets,
	})

	FilesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "typewriter_files_processed_total",
		Help: "Total number of files processed, by outcome.",
	}, []string{"outcome"})

	AnnotationsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "typewriter_annotations_applied_total",
		Help: "Total number of function annotations inserted, by provider.",
	}, []string{"provider"})

	SitesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "typewriter_sites_skipped_total",
		Help: "Total number of annotatable sites skipped, by reason.",
	}, []string{"reason"})

	ImportsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "typewriter_imports_added_total",
		Help: "Total number of import statements inserted, by placement.",
	}, []string{"placement"})

	SubprocessFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "typewriter_subprocess_failures_total",
		Help: "Total number of external suggestion command failures.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "typewriter_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
