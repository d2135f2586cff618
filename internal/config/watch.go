package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
)

const reloadDebounce = 250 * time.Millisecond

// Manager holds the current configuration and republishes it when the
// config file changes on disk.
type Manager struct {
	path  string
	flags *pflag.FlagSet

	mu   sync.RWMutex
	cfg  *Config
	subs []chan *Config
}

// NewManager creates a Manager for the file at path. Flags set on fs keep
// overriding file values across reloads.
func NewManager(path string, fs *pflag.FlagSet) *Manager {
	return &Manager{path: path, flags: fs}
}

// Load reads the configuration and makes it current.
func (m *Manager) Load() (*Config, error) {
	cfg, err := Load(m.path, m.flags)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return cfg, nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Subscribe returns a channel that receives each reloaded configuration.
// Slow subscribers miss updates rather than block the watcher.
func (m *Manager) Subscribe(buffer int) <-chan *Config {
	ch := make(chan *Config, buffer)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

func (m *Manager) publish(cfg *Config) {
	m.mu.RLock()
	subs := append([]chan *Config{}, m.subs...)
	m.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- cfg:
		default:
		}
	}
}

// Watch reloads the file after writes settle and publishes valid results.
// Invalid files are reported through onError and ignored. It returns when
// ctx is done, or at once when the Manager has no file.
func (m *Manager) Watch(ctx context.Context, onError func(error)) error {
	if m.path == "" {
		return nil
	}
	dir := filepath.Dir(m.path)
	file := filepath.Join(dir, filepath.Base(m.path))

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory so editors that replace the file are seen.
	if err := w.Add(dir); err != nil {
		return err
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() {
			cfg, err := m.Load()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				return
			}
			m.publish(cfg)
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) == file && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
