// SPDX-License-Identifier: Unlicense OR MIT

// Package config assembles the process-wide Config struct from
// command-line flags and builds the per-component loggers every other
// package takes as a constructor argument.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Config holds every tunable the compositor needs at startup. Every
// other package takes its own slice of this as constructor arguments
// rather than reading globals, matching gio's app.Option pattern.
type Config struct {
	// Address is the 9P connection target as a "tcp!host!port" dial
	// string, e.g. "tcp!host!567".
	Address string

	// MaxShift bounds the scroll detector's search radius in pixels.
	MaxShift int

	// MaxPipelineDepth caps the outstanding-write pipeline depth.
	MaxPipelineDepth int

	// TileScratchBound is the byte bound for a tile's compressed
	// payload before falling back to raw.
	TileScratchBound int

	// LogLevel is one of zerolog's level names ("debug", "info",
	// "warn", "error").
	LogLevel string

	// KeymapPath is the 9P path to the remote key-map file, normally
	// "/dev/kbmap".
	KeymapPath string
}

// defaults are conservative values safe for a first connection.
func defaults() Config {
	return Config{
		Address:          "tcp!localhost!567",
		MaxShift:         32,
		MaxPipelineDepth: 8,
		TileScratchBound: 512,
		LogLevel:         "info",
		KeymapPath:       "/dev/kbmap",
	}
}

// Parse builds a Config from args (normally os.Args[1:]), starting
// from defaults(). CLI ergonomics are out of scope for this process,
// so this is the stdlib flag package with no enrichment beyond what
// correctness requires.
func Parse(args []string) (Config, error) {
	cfg := defaults()
	fs := flag.NewFlagSet("p9wl", flag.ContinueOnError)
	fs.StringVar(&cfg.Address, "addr", cfg.Address, "9P connection target for the remote draw device")
	fs.IntVar(&cfg.MaxShift, "max-shift", cfg.MaxShift, "maximum scroll-detector search radius in pixels")
	fs.IntVar(&cfg.MaxPipelineDepth, "max-depth", cfg.MaxPipelineDepth, "ceiling on outstanding pipelined writes")
	fs.IntVar(&cfg.TileScratchBound, "tile-scratch", cfg.TileScratchBound, "byte bound for a tile's compressed payload")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "zerolog level: debug, info, warn, error")
	fs.StringVar(&cfg.KeymapPath, "keymap", cfg.KeymapPath, "9P path to the remote key-map file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewLogger builds the root logger at cfg's configured level, writing
// to stderr. Component loggers are derived from it via
// logger.With().Str("component", name).Logger(), the helix-style
// component-tagged convention.
func NewLogger(cfg Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("config: parse log level %q: %w", cfg.LogLevel, err)
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(), nil
}

// Component returns a logger tagged with the given component name.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
