// Package config loads process configuration (spec.md §6) and watches an
// optional bridge-registry override file, generalizing the teacher's
// load-and-periodically-flush world file into a load-and-watch for the
// Bridge Registry's read-mostly static catalog.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"github.com/brovakt/canal/engine"
)

// Config is the small set of optional, enumerated settings spec.md §6
// allows (apiKey, debug). Both have zero-value defaults.
type Config struct {
	APIKey string
	Debug  bool
}

// Load reads a .env file if present (silently ignored if absent, matching
// the teacher's cmd.CMD.PersistentPreRunE), then layers real environment
// variables on top.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{APIKey: os.Getenv("API_KEY")}
	if v := os.Getenv("DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}
	return cfg
}

// bridgeOverride is the JSON shape accepted by the bridge-registry
// override file: a full replacement catalog, keyed the same way as
// engine.Bridge.
type bridgeOverride struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	AxisBearing float64 `json:"axis_bearing"`
	IsTarget    bool    `json:"is_target"`
	Order       int     `json:"order"`
}

// BridgeStore holds the live *engine.BridgeRegistry and, if a path was
// given, watches it for edits and swaps in a freshly built registry
// without requiring a restart.
type BridgeStore struct {
	reg *atomicRegistry
	log *slog.Logger
}

// NewBridgeStore builds a BridgeStore seeded from the built-in default
// catalog (or, if path is non-empty and the file exists, from the file).
// When path is non-empty it is watched with fsnotify for subsequent edits.
func NewBridgeStore(path string, log *slog.Logger) (*BridgeStore, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "bridge_store")

	s := &BridgeStore{reg: newAtomicRegistry(engine.NewDefaultBridgeRegistry()), log: log}

	if path == "" {
		return s, nil
	}

	if err := s.reloadFromFile(path); err != nil {
		log.Warn("bridge override file unreadable at startup, using defaults", "path", path, "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("bridge override watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch bridge override file: %w", err)
	}

	go s.watchLoop(watcher, path)

	return s, nil
}

func (s *BridgeStore) watchLoop(watcher *fsnotify.Watcher, path string) {
	defer watcher.Close()
	for event := range watcher.Events {
		if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			continue
		}
		if err := s.reloadFromFile(path); err != nil {
			s.log.Error("failed to reload bridge override", "error", err)
			continue
		}
		s.log.Info("reloaded bridge registry from override file", "path", path)
	}
}

func (s *BridgeStore) reloadFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var overrides []bridgeOverride
	if err := json.Unmarshal(raw, &overrides); err != nil {
		return fmt.Errorf("parse bridge override JSON: %w", err)
	}
	bridges := make([]engine.Bridge, len(overrides))
	for i, o := range overrides {
		bridges[i] = engine.Bridge{
			ID: o.ID, Name: o.Name, Lat: o.Lat, Lon: o.Lon,
			AxisBearing: o.AxisBearing, IsTarget: o.IsTarget, Order: o.Order,
		}
	}
	reg, err := engine.NewBridgeRegistry(bridges)
	if err != nil {
		return fmt.Errorf("build bridge registry from override: %w", err)
	}
	s.reg.store(reg)
	return nil
}

// Registry returns the currently active bridge registry.
func (s *BridgeStore) Registry() *engine.BridgeRegistry {
	return s.reg.load()
}
