// Package watcher monitors intake directories for new or changed
// documents and emits them once they are stable.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"veridoc/internal/metadata"
)

// Event is a document that has been stable for the debounce interval
// and is ready for analysis.
type Event struct {
	Path      string
	Size      int64
	Timestamp time.Time
}

// Options configure a Watcher.
type Options struct {
	Paths           []string
	IncludePatterns []string
	ExcludePatterns []string
	Debounce        time.Duration
	MaxFileSize     int64 // 0 means unlimited
}

// Watcher monitors directories for supported documents.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	opts      Options

	// State tracking: path -> last modification time
	state   map[string]time.Time
	stateMu sync.RWMutex

	events chan Event
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a new intake watcher.
func New(opts Options) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		opts:      opts,
		state:     make(map[string]time.Time),
		events:    make(chan Event, 100),
		errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the channel of intake events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start begins watching all configured paths. Documents already
// present in the directories are tracked and emitted once stable, so
// files dropped while the service was down are not missed.
func (w *Watcher) Start() error {
	for _, path := range w.opts.Paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return err
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if err := w.fsWatcher.Add(absPath); err != nil {
				return err
			}

			entries, err := os.ReadDir(absPath)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				if !entry.IsDir() {
					w.trackFile(filepath.Join(absPath, entry.Name()))
				}
			}
		} else {
			// Watch a single file by watching its directory.
			dir := filepath.Dir(absPath)
			if err := w.fsWatcher.Add(dir); err != nil {
				return err
			}
			w.trackFile(absPath)
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()

	return nil
}

// Stop gracefully shuts down the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsWatcher.Close()
}

// wanted reports whether a path is a document this watcher should
// emit: a supported format, matching the include patterns and not the
// exclude patterns.
func (w *Watcher) wanted(path string) bool {
	if _, err := metadata.FormatForPath(path); err != nil {
		return false
	}

	base := filepath.Base(path)
	for _, pattern := range w.opts.ExcludePatterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return false
		}
	}
	if len(w.opts.IncludePatterns) == 0 {
		return true
	}
	for _, pattern := range w.opts.IncludePatterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// trackFile adds a file to state tracking.
func (w *Watcher) trackFile(path string) {
	if !w.wanted(path) {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	w.stateMu.Lock()
	w.state[path] = info.ModTime()
	w.stateMu.Unlock()
}

// eventLoop handles fsnotify events.
func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !w.wanted(event.Name) {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}

			w.stateMu.Lock()
			w.state[event.Name] = time.Now()
			w.stateMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// debounceLoop emits files that have been quiet for the debounce
// interval.
func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	tick := w.opts.Debounce / 2
	if tick < 50*time.Millisecond {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case now := <-ticker.C:
			w.emitStableFiles(now)
		}
	}
}

// emitStableFiles finds files unchanged for the debounce interval and
// emits them. File I/O happens without the state lock so the event
// loop is never blocked behind a slow disk.
func (w *Watcher) emitStableFiles(now time.Time) {
	threshold := now.Add(-w.opts.Debounce)

	type candidate struct {
		path    string
		lastMod time.Time
	}
	var stable []candidate
	w.stateMu.RLock()
	for path, lastMod := range w.state {
		if lastMod.Before(threshold) {
			stable = append(stable, candidate{path: path, lastMod: lastMod})
		}
	}
	w.stateMu.RUnlock()

	if len(stable) == 0 {
		return
	}

	type checked struct {
		candidate
		size int64
		skip bool
		err  error
	}
	results := make([]checked, len(stable))
	for i, c := range stable {
		info, err := os.Stat(c.path)
		if err != nil {
			results[i] = checked{candidate: c, err: err}
			continue
		}
		skip := w.opts.MaxFileSize > 0 && info.Size() > w.opts.MaxFileSize
		results[i] = checked{candidate: c, size: info.Size(), skip: skip}
	}

	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	for _, r := range results {
		if r.err != nil {
			// File vanished between tracking and emission.
			delete(w.state, r.path)
			continue
		}
		if r.skip {
			delete(w.state, r.path)
			continue
		}

		// Check whether the file changed while we were checking it.
		currentLastMod, exists := w.state[r.path]
		if !exists || currentLastMod != r.lastMod {
			continue
		}

		select {
		case w.events <- Event{Path: r.path, Size: r.size, Timestamp: now}:
			// Remove from state so the file is not re-emitted until
			// the next modification.
			delete(w.state, r.path)
		default:
			// Channel full, try again on the next tick.
		}
	}
}

// WatchedPaths returns the list of paths being watched.
func (w *Watcher) WatchedPaths() []string {
	return w.opts.Paths
}

// TrackedFiles returns the current number of tracked files.
func (w *Watcher) TrackedFiles() int {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return len(w.state)
}
