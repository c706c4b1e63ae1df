// Package watch provides the daemon that keeps the external artifact in
// step with out-of-process registry writes.
//
// The daemon watches the registry database file for changes (any process
// may mutate it), debounces the burst of events a single transaction
// produces, and rebuilds the artifact once per quiet period. An optional
// notify hook fires after each rebuild.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pl018/project-manager-cli/internal/manager"
)

// Config holds daemon tuning.
type Config struct {
	// DebounceInterval is how long a change must sit quiet before the
	// artifact is rebuilt. Batches rapid successive writes.
	DebounceInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 200 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// Daemon rebuilds the artifact whenever the registry database changes.
type Daemon struct {
	mgr    *manager.Manager
	dbPath string
	config *Config

	// notify runs after each successful rebuild, e.g. a dashboard
	// broadcast. May be nil.
	notify func()

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon watching the database at dbPath.
func New(mgr *manager.Manager, dbPath string, config *Config) (*Daemon, error) {
	if mgr == nil {
		return nil, fmt.Errorf("manager cannot be nil")
	}
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		mgr:         mgr,
		dbPath:      dbPath,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// OnChange sets a hook invoked after each successful artifact rebuild.
// Must be called before Start.
func (d *Daemon) OnChange(fn func()) {
	d.notify = fn
}

// Start runs the daemon until ctx is cancelled.
//
// It performs an initial artifact rebuild, then watches the database
// directory. SQLite writes touch the main file plus its -wal and -shm
// companions; all of them count as registry changes.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("starting watch daemon")

	if err := d.mgr.Sync(d.ctx); err != nil {
		return fmt.Errorf("initial artifact rebuild failed: %w", err)
	}

	// The directory is watched, not the file: atomic replaces and WAL
	// checkpoints would otherwise drop the watch.
	dir := filepath.Dir(d.dbPath)
	if err := d.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	d.config.Logger.Printf("watching %s", dir)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChangeQueue()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop shuts the daemon down and waits for its goroutines.
func (d *Daemon) Stop() error {
	d.cancel()
	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("error closing watcher: %v", err)
	}
	d.wg.Wait()
	d.config.Logger.Println("watch daemon stopped")
	return nil
}

// watchFileEvents queues database file events for debounced processing.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !d.isRegistryFile(event.Name) {
				continue
			}
			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("watcher error: %v", err)
		}
	}
}

// isRegistryFile reports whether a path is the database or one of its
// SQLite companion files.
func (d *Daemon) isRegistryFile(path string) bool {
	base := filepath.Base(path)
	dbBase := filepath.Base(d.dbPath)
	return base == dbBase || strings.HasPrefix(base, dbBase+"-")
}

// queueChange records a pending change with its arrival time.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()
	d.changeQueue[path] = time.Now()
}

// processChangeQueue drains the queue once changes have sat quiet for the
// debounce interval, then rebuilds the artifact once for the whole batch.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			if !d.drainQuietChanges() {
				continue
			}
			if err := d.mgr.Sync(d.ctx); err != nil {
				d.config.Logger.Printf("artifact rebuild failed: %v", err)
				continue
			}
			d.config.Logger.Println("artifact rebuilt")
			if d.notify != nil {
				d.notify()
			}
		}
	}
}

// drainQuietChanges removes settled entries from the queue and reports
// whether any were ready.
func (d *Daemon) drainQuietChanges() bool {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	now := time.Now()
	ready := false
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		delete(d.changeQueue, path)
		ready = true
	}
	return ready
}
