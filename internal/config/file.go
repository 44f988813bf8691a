package config

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/strottos/padre/internal/logger"
)

// FileConfig is the on-disk shape of ~/.padre/padre.yaml — a plain map of
// tunable name to value, following the teacher's internal/config/wing.go
// convention of a thin YAML struct mirroring the runtime config.
type FileConfig struct {
	Tunables map[string]int64 `yaml:",inline"`
}

// DefaultPath returns ~/.padre/padre.yaml, creating no directories.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".padre/padre.yaml"
	}
	return filepath.Join(home, ".padre", "padre.yaml")
}

// LoadFile reads tunables from path into the store. A missing file is not
// an error — the store keeps its built-in defaults.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var m map[string]int64
	if err := yaml.Unmarshal(data, &m); err != nil {
		return err
	}
	s.LoadMap(m)
	return nil
}

// SaveFile writes the current snapshot to path.
func (s *Store) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s.Snapshot())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// WatchFile reloads the store every time path changes on disk, so an
// editor's setConfig request and a hand edit of padre.yaml can never race
// each other outside the store's own mutex. The watch goroutine exits when
// stop is closed.
func (s *Store) WatchFile(path string, stop <-chan struct{}) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.Close()
		return err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.LoadFile(path); err != nil {
					logger.Warn("config: reload failed", "path", path, "err", err)
					continue
				}
				logger.Info("config: reloaded from disk", "path", path)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("config: watcher error", "err", err)
			case <-stop:
				return
			}
		}
	}()
	return nil
}
