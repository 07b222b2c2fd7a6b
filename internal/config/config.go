// Package config reads server settings from flags with environment fallbacks.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr            string
	AllowOrigins    string
	AIDepth         int
	ArchiveDir      string
	ArchiveInterval time.Duration
}

var ErrInvalidConfig = errors.New("invalid configuration")

// Load parses args (without the program name). Unset flags fall back to the
// RSG_* environment variables, then to defaults.
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	addr := fs.String("addr", getenv("RSG_ADDR", ":3000"), "listen address")
	origins := fs.String("allow-origins", getenv("RSG_ALLOW_ORIGINS", "http://localhost:5173"), "comma-separated CORS origins")
	depth := fs.Int("ai-depth", getenvInt("RSG_AI_DEPTH", 2), "search depth of the automated opponent")
	archiveDir := fs.String("archive-dir", getenv("RSG_ARCHIVE_DIR", ""), "directory for finished-game parquet files (empty disables)")
	interval := fs.Duration("archive-interval", getenvDuration("RSG_ARCHIVE_INTERVAL", time.Minute), "how often finished games are flushed")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Addr:            *addr,
		AllowOrigins:    *origins,
		AIDepth:         *depth,
		ArchiveDir:      strings.TrimSpace(*archiveDir),
		ArchiveInterval: *interval,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: empty listen address", ErrInvalidConfig)
	}
	if c.AIDepth < 1 || c.AIDepth > 4 {
		return fmt.Errorf("%w: ai depth %d outside 1..4", ErrInvalidConfig, c.AIDepth)
	}
	if c.ArchiveDir != "" && c.ArchiveInterval <= 0 {
		return fmt.Errorf("%w: archive interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// Origins returns the CORS origins as a list.
func (c Config) Origins() []string {
	out := []string{}
	for _, o := range strings.Split(c.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
