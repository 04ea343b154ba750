package instrument

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"

	"kuber/internal/logger"

	"github.com/fsnotify/fsnotify"
	_ "modernc.org/sqlite"
)

// Store holds the instrument master in memory, loaded from the sqlite file
// produced by the instrument downloader. The file is never written by us.
type Store struct {
	mu   sync.RWMutex
	path string
	rows []Instrument
}

func OpenStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// All returns the loaded snapshot. Callers must not mutate it.
func (s *Store) All() []Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Reload re-reads the master file. On failure the previous snapshot stays.
func (s *Store) Reload() error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", s.path))
	if err != nil {
		return fmt.Errorf("opening instrument master failed: %w", err)
	}
	defer db.Close()
	rows, err := db.Query(`SELECT tradingsymbol, symboltoken, exchange, COALESCE(name, ''), COALESCE(lotsize, 1) FROM instruments`)
	if err != nil {
		return fmt.Errorf("reading instrument master failed: %w", err)
	}
	defer rows.Close()
	var loaded []Instrument
	for rows.Next() {
		var inst Instrument
		if err := rows.Scan(&inst.Symbol, &inst.Token, &inst.Exchange, &inst.Name, &inst.LotSize); err != nil {
			return err
		}
		loaded = append(loaded, inst)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(loaded) == 0 {
		return fmt.Errorf("instrument master %s is empty", s.path)
	}
	s.mu.Lock()
	s.rows = loaded
	s.mu.Unlock()
	logger.Infof("instrument master loaded: %d rows from %s", len(loaded), s.path)
	return nil
}

// Watch reloads the snapshot whenever the master file is replaced. onReload,
// if set, runs after each successful reload (the resolver rebuilds its index
// there). Blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, onReload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}
	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := s.Reload(); err != nil {
				logger.Warnf("instrument master reload failed, keeping previous snapshot: %v", err)
				continue
			}
			if onReload != nil {
				onReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("instrument watcher: %v", err)
		}
	}
}
