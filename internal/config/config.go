// Package config loads the TOML configuration shared by the CLI and the
// HTTP server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/editor"
	"github.com/meikuraledutech/flowchart/filestore"
	"github.com/meikuraledutech/flowchart/geom"
	"github.com/meikuraledutech/flowchart/history"
	"github.com/meikuraledutech/flowchart/interact"
	"github.com/meikuraledutech/flowchart/redis"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the whole configuration file.
type Config struct {
	Editor Editor `toml:"editor"`
	Store  Store  `toml:"store"`
	Server Server `toml:"server"`
	Log    Log    `toml:"log"`
}

type Editor struct {
	GridStep            float64 `toml:"grid_step"`
	DragThreshold       float64 `toml:"drag_threshold"`
	PortRadius          float64 `toml:"port_radius"`
	ConnectionTolerance float64 `toml:"connection_tolerance"`
	HistoryLimit        int     `toml:"history_limit"`
	NodeWidth           float64 `toml:"node_width"`
	NodeHeight          float64 `toml:"node_height"`
}

type Store struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	DatabaseURL   string   `toml:"database_url"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	RedisPrefix   string   `toml:"redis_prefix"`
	RedisTTL      Duration `toml:"redis_ttl"`
}

type Server struct {
	Addr string `toml:"addr"`
}

type Log struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as a string such as "90m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	ic := interact.DefaultConfig()
	return Config{
		Editor: Editor{
			GridStep:            ic.GridStep,
			DragThreshold:       ic.DragThreshold,
			PortRadius:          ic.PortRadius,
			ConnectionTolerance: ic.ConnectionTolerance,
			HistoryLimit:        history.DefaultLimit,
			NodeWidth:           flowchart.DefaultNodeSize.W,
			NodeHeight:          flowchart.DefaultNodeSize.H,
		},
		Store: Store{
			Backend:     BackendFile,
			Dir:         filestore.DefaultDir,
			RedisAddr:   "localhost:6379",
			RedisPrefix: redis.DefaultPrefix,
		},
		Server: Server{Addr: ":3000"},
		Log:    Log{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file yields the defaults. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		_, err := toml.DecodeFile(path, &cfg)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// Parse decodes TOML text over the defaults. No environment overrides are
// applied.
func Parse(data string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
	}
}

// Validate checks values that would make the editor misbehave.
func (c Config) Validate() error {
	switch {
	case c.Editor.GridStep <= 0:
		return fmt.Errorf("config: editor.grid_step must be positive")
	case c.Editor.DragThreshold < 0:
		return fmt.Errorf("config: editor.drag_threshold must not be negative")
	case c.Editor.HistoryLimit < 0:
		return fmt.Errorf("config: editor.history_limit must not be negative")
	case c.Editor.NodeWidth <= 0 || c.Editor.NodeHeight <= 0:
		return fmt.Errorf("config: editor node size must be positive")
	}
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("config: store.database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// EditorConfig converts the [editor] section.
func (c Config) EditorConfig() editor.Config {
	return editor.Config{
		Interact: interact.Config{
			GridStep:            c.Editor.GridStep,
			DragThreshold:       c.Editor.DragThreshold,
			PortRadius:          c.Editor.PortRadius,
			ConnectionTolerance: c.Editor.ConnectionTolerance,
		},
		HistoryLimit: c.Editor.HistoryLimit,
		NodeSize:     geom.Size{W: c.Editor.NodeWidth, H: c.Editor.NodeHeight},
	}
}
