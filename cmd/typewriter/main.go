// # cmd/typewriter/main.go
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chadrik/typewriter/internal/config"
)

var (
	configPath     = flag.String("config", "./typewriter.toml", "Path to config file")
	typeInfo       = flag.String("type-info", "", "Path to collected call traces (overrides config)")
	command        = flag.String("command", "", "Suggestion command template (overrides config)")
	write          = flag.Bool("write", false, "Rewrite files in place instead of printing diffs")
	outputDir      = flag.String("output-dir", "", "Write annotated copies under this directory")
	maxAnnotations = flag.Int("max-annotations", -1, "Stop after this many annotations (overrides config)")
	metricsAddr    = flag.String("metrics-addr", "", "Expose prometheus metrics on this address (overrides config)")
	watch          = flag.Bool("watch", false, "Keep running and re-annotate changed files")
	ui             = flag.Bool("ui", false, "Enable terminal UI mode")
	verbose        = flag.Bool("verbose", false, "Enable verbose logging")
	version        = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("typewriter v%s\n", VERSION)
		os.Exit(0)
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stderr
	if *ui {
		// In UI mode, avoid terminal logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
				if err == nil {
					output = f
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) && *configPath == "./typewriter.toml" {
			cfg = config.Default()
		} else {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	// Flag overrides
	if flag.NArg() > 0 {
		cfg.Paths = flag.Args()
	}
	if *typeInfo != "" {
		cfg.JSON.TypeInfo = *typeInfo
	}
	if *command != "" {
		cfg.Command.Command = *command
	}
	if *write {
		cfg.Output.Write = true
	}
	if *outputDir != "" {
		cfg.Output.OutputDir = *outputDir
	}
	if *maxAnnotations >= 0 {
		cfg.MaxAnnotations = *maxAnnotations
	}
	if *metricsAddr != "" {
		cfg.Output.MetricsAddr = *metricsAddr
	}

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// Initial pass
	summary, err := app.Run()
	if err != nil {
		slog.Error("annotation run failed", "error", err)
		os.Exit(1)
	}

	if !*ui {
		app.PrintSummary(summary)
	}

	if !*watch {
		os.Exit(0)
	}

	// Watch mode
	if err := app.StartWatcher(); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	if *ui {
		if err := app.RunUI(); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
	} else {
		// Block forever
		select {}
	}
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "typewriter", "typewriter.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "typewriter", "typewriter.log")
	}

	return "typewriter.log"
}
