// Package config loads the optional mountref.yaml session configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	mrerrors "github.com/go-drift/mountref/pkg/errors"
	"github.com/go-drift/mountref/pkg/extensions/debug"
	"github.com/go-drift/mountref/pkg/extensions/incremental"
	"github.com/go-drift/mountref/pkg/extensions/transition"
	"github.com/go-drift/mountref/pkg/extensions/visibility"
	"github.com/go-drift/mountref/pkg/geometry"
	"github.com/go-drift/mountref/pkg/logging"
)

// FileName is the configuration file looked up by LoadOptional.
const FileName = "mountref.yaml"

// DefaultTraceCapacity is the recorder size used when trace.capacity is unset.
const DefaultTraceCapacity = 512

// KnownExtensions lists the extension names accepted in the extensions list.
var KnownExtensions = []string{transition.Name, incremental.Name, visibility.Name, debug.Name}

// DefaultExtensions is used when the extensions list is empty.
var DefaultExtensions = []string{incremental.Name, visibility.Name}

// Config represents mountref.yaml.
type Config struct {
	Session     SessionConfig     `yaml:"session"`
	Log         LogConfig         `yaml:"log"`
	Trace       TraceConfig       `yaml:"trace"`
	Extensions  []string          `yaml:"extensions,omitempty"`
	Incremental IncrementalConfig `yaml:"incremental"`
	Visible     *geometry.Rect    `yaml:"visible,omitempty"`
}

// SessionConfig names the mount session.
type SessionConfig struct {
	Name          string `yaml:"name,omitempty"`
	RenderStateID int    `yaml:"renderStateId,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
}

// TraceConfig contains tracing settings.
type TraceConfig struct {
	Enabled  bool `yaml:"enabled"`
	Capacity int  `yaml:"capacity,omitempty"`
}

// IncrementalConfig toggles incremental mounting.
type IncrementalConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root             string
	Name             string
	RenderStateID    int
	LogLevel         zerolog.Level
	TraceEnabled     bool
	TraceCapacity    int
	Extensions       []string
	DelegateMounting bool
	Visible          geometry.Rect
	HasVisible       bool
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, configError("config.Load", fmt.Errorf("failed to parse %s: %w", path, err))
	}
	return &cfg, nil
}

// LoadOptional reads mountref.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	return cfg, nil
}

// Resolve loads mountref.yaml from dir (if present) and resolves defaults.
func Resolve(dir string) (*Resolved, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	return cfg.Resolve(dir)
}

// Resolve applies defaults to cfg and validates it. dir is used to derive
// the session name when none is configured.
func (cfg *Config) Resolve(dir string) (*Resolved, error) {
	const op = "config.Resolve"

	name := strings.TrimSpace(cfg.Session.Name)
	if name == "" {
		name = defaultName(dir)
	}

	level := zerolog.InfoLevel
	if raw := strings.TrimSpace(cfg.Log.Level); raw != "" {
		lvl, ok := logging.ParseLevel(raw)
		if !ok {
			return nil, configError(op, fmt.Errorf("unknown log level %q", raw))
		}
		level = lvl
	}

	capacity := cfg.Trace.Capacity
	if capacity < 0 {
		return nil, configError(op, fmt.Errorf("trace.capacity must not be negative, got %d", capacity))
	}
	if capacity == 0 {
		capacity = DefaultTraceCapacity
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	seen := make(map[string]bool, len(exts))
	resolved := make([]string, 0, len(exts))
	for _, raw := range exts {
		ext := strings.ToLower(strings.TrimSpace(raw))
		if !slices.Contains(KnownExtensions, ext) {
			return nil, configError(op, fmt.Errorf("unknown extension %q (known: %s)", raw, strings.Join(KnownExtensions, ", ")))
		}
		if seen[ext] {
			return nil, configError(op, fmt.Errorf("extension %q listed twice", ext))
		}
		if ext == transition.Name && seen[incremental.Name] {
			return nil, configError(op, fmt.Errorf("extension %q must be listed before %q", transition.Name, incremental.Name))
		}
		seen[ext] = true
		if ext == incremental.Name && cfg.Incremental.Enabled != nil && !*cfg.Incremental.Enabled {
			continue
		}
		resolved = append(resolved, ext)
	}

	r := &Resolved{
		Root:             dir,
		Name:             name,
		RenderStateID:    cfg.Session.RenderStateID,
		LogLevel:         level,
		TraceEnabled:     cfg.Trace.Enabled,
		TraceCapacity:    capacity,
		Extensions:       resolved,
		DelegateMounting: slices.Contains(resolved, incremental.Name),
	}
	if cfg.Visible != nil {
		if cfg.Visible.IsEmpty() {
			return nil, configError(op, fmt.Errorf("visible rect %s is empty", cfg.Visible))
		}
		r.Visible = *cfg.Visible
		r.HasVisible = true
	}
	return r, nil
}

// defaultName uses the last element of the module path in dir's go.mod,
// falling back to the directory name.
func defaultName(dir string) string {
	base := filepath.Base(dir)
	if data, err := os.ReadFile(filepath.Join(dir, "go.mod")); err == nil {
		if path := modfile.ModulePath(data); path != "" {
			if prefix, _, ok := module.SplitPathVersion(path); ok {
				path = prefix
			}
			parts := strings.Split(path, "/")
			base = parts[len(parts)-1]
		}
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "mountref"
	}
	return base
}

func configError(op string, err error) error {
	return &mrerrors.MountError{Op: op, Kind: mrerrors.KindConfig, Err: err}
}
