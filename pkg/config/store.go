package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Veraticus/irc-away-ntfy/pkg/logx"
)

const reloadDebounce = 250 * time.Millisecond

// Store holds the active configuration and swaps it when the config file
// changes on disk. Readers always see a complete, validated Config.
type Store struct {
	path string
	log  logx.Logger

	mu   sync.RWMutex
	cfg  *Config
	subs []chan *Config
}

// NewStore creates a store seeded with an already validated config.
func NewStore(path string, cfg *Config, log logx.Logger) *Store {
	return &Store{path: path, cfg: cfg, log: log}
}

// Get returns the current configuration. Callers must not mutate it.
func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set replaces the current configuration and notifies subscribers.
func (s *Store) Set(cfg *Config) {
	s.mu.Lock()
	s.cfg = cfg
	subs := append([]chan *Config(nil), s.subs...)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- cfg:
		default:
			// slow subscriber, it will read Get() anyway
		}
	}
}

// Subscribe returns a channel receiving every successfully applied reload.
func (s *Store) Subscribe(buffer int) <-chan *Config {
	ch := make(chan *Config, buffer)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// Reload re-reads the config file. An invalid file leaves the current
// configuration in place and returns the error.
func (s *Store) Reload() error {
	cfg, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.Set(cfg)
	return nil
}

// Watch reloads the configuration whenever the file is written, until ctx
// is cancelled. The parent directory is watched so editors that replace the
// file via rename are handled.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	dir := filepath.Dir(s.path)
	file := filepath.Clean(s.path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

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
			if ctx.Err() != nil {
				return
			}
			if err := s.Reload(); err != nil {
				s.log.Warn("config reload rejected, keeping previous config", logx.String("path", s.path), logx.Err(err))
				return
			}
			s.log.Info("config reloaded", logx.String("path", s.path), logx.String("plugin", s.Get().Notifier.Plugin))
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
			if filepath.Clean(ev.Name) != file {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("config watcher error", logx.Err(err))
		}
	}
}
