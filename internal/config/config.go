// # internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Paths          []string `toml:"paths"`
	MaxAnnotations int      `toml:"max_annotations"`
	Processes      int      `toml:"processes"`
	Exclude        Exclude  `toml:"exclude"`
	JSON           JSON     `toml:"json"`
	Command        Command  `toml:"command"`
	Docs           Docs     `toml:"docs"`
	Any            Any      `toml:"any"`
	Format         Format   `toml:"format"`
	Output         Output   `toml:"output"`
	Watch          Watch    `toml:"watch"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"` // glob patterns, e.g. "*_pb2.py"
}

type JSON struct {
	TypeInfo     string `toml:"type_info"` // path to the collected call traces
	MaxLineDrift int    `toml:"max_line_drift"`
}

type Command struct {
	Command   string  `toml:"command"` // template with {filename} {lineno} {funcname}
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

type Docs struct {
	Format            string `toml:"format"` // off, auto, rest, google, numpy
	DefaultReturnType string `toml:"default_return_type"`
}

type Any struct {
	AutoAny bool `toml:"auto_any"`
}

type Format struct {
	AnnotationStyle string `toml:"annotation_style"` // py3 or py2
	CommentStyle    string `toml:"comment_style"`    // auto, single, multi
}

type Output struct {
	Write       bool   `toml:"write"`
	OutputDir   string `toml:"output_dir"`
	HistoryDB   string `toml:"history_db"`
	MetricsAddr string `toml:"metrics_addr"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

// Default returns the configuration used when no typewriter.toml exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Paths) == 0 {
		c.Paths = []string{"."}
	}
	if c.Processes == 0 {
		c.Processes = 1
	}
	if c.JSON.MaxLineDrift == 0 {
		c.JSON.MaxLineDrift = 5
	}
	if c.Command.Burst == 0 {
		c.Command.Burst = 1
	}
	if c.Docs.Format == "" {
		c.Docs.Format = "off"
	}
	if c.Format.AnnotationStyle == "" {
		c.Format.AnnotationStyle = "py3"
	}
	if c.Format.CommentStyle == "" {
		c.Format.CommentStyle = "auto"
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
}

func (c *Config) Validate() error {
	switch c.Format.AnnotationStyle {
	case "py3", "py2":
	default:
		return fmt.Errorf("annotation_style must be py3 or py2, got %q", c.Format.AnnotationStyle)
	}
	switch c.Format.CommentStyle {
	case "auto", "single", "multi":
	default:
		return fmt.Errorf("comment_style must be auto, single or multi, got %q", c.Format.CommentStyle)
	}
	switch c.Docs.Format {
	case "off", "auto", "rest", "google", "numpy":
	default:
		return fmt.Errorf("docs format must be off, auto, rest, google or numpy, got %q", c.Docs.Format)
	}
	if c.MaxAnnotations < 0 {
		return fmt.Errorf("max_annotations must not be negative, got %d", c.MaxAnnotations)
	}
	if c.Processes < 1 {
		return fmt.Errorf("processes must be at least 1, got %d", c.Processes)
	}
	return nil
}
