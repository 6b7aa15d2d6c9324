// Package dirwatch announces files created under the directories named by
// "watch" configuration lines. Each directory is watched recursively and
// subdirectories created later are picked up as they appear.
package dirwatch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/firefly-engineering/devel79ctl/internal/audit"
	"github.com/firefly-engineering/devel79ctl/internal/config"
	"github.com/firefly-engineering/devel79ctl/internal/errors"
	"github.com/firefly-engineering/devel79ctl/internal/logging"
)

// Event is a file created under a watched directory.
type Event struct {
	Watch config.Watch

	// Name is the path relative to the watched directory.
	Name string
	Path string
}

// Message returns the announcement for the event.
func (e Event) Message() string {
	return fmt.Sprintf("%s: %s", e.Watch.Message, e.Name)
}

// Watcher watches a set of directories. Start and Stop may be called
// repeatedly as the server comes and goes.
type Watcher struct {
	watches  []config.Watch
	machine  string
	auditLog *audit.Logger
	onFile   func(Event)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithMachine sets the machine name used in audit events.
func WithMachine(machine string) Option {
	return func(w *Watcher) {
		w.machine = machine
	}
}

// WithAuditLogger records every announced file.
func WithAuditLogger(logger *audit.Logger) Option {
	return func(w *Watcher) {
		w.auditLog = logger
	}
}

// OnFile registers the callback invoked for every created file. It runs
// on the watcher's goroutine.
func OnFile(fn func(Event)) Option {
	return func(w *Watcher) {
		w.onFile = fn
	}
}

// New creates a Watcher for watches. Nothing is watched until Start.
func New(watches []config.Watch, opts ...Option) *Watcher {
	w := &Watcher{watches: watches}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Len returns the number of configured directories.
func (w *Watcher) Len() int {
	return len(w.watches)
}

// Active reports whether the directories are being watched.
func (w *Watcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done != nil
}

// Start begins watching every directory until Stop or ctx ends. Either
// all directories are watched or none is.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done != nil {
		return errors.ValidationError("Directory monitor is already active.")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ExitGeneralError, errors.KindGeneral, "Directory monitor could not be started.", err)
	}

	for _, watch := range w.watches {
		info, err := os.Stat(watch.Directory)
		if err != nil || !info.IsDir() {
			fsw.Close()
			return errors.ValidationError(fmt.Sprintf("Directory '%s' for watching does not exist.", watch.Directory))
		}
		if _, err := addTree(fsw, watch.Directory); err != nil {
			fsw.Close()
			return errors.Wrap(errors.ExitGeneralError, errors.KindGeneral,
				fmt.Sprintf("Directory '%s' could not be watched.", watch.Directory), err)
		}
		logging.Debug("watching directory", "name", watch.Name, "directory", watch.Directory)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(ctx, fsw, w.done)
	return nil
}

// Stop stops watching and waits for the watcher goroutine to exit. It
// does nothing when the watcher is not active.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if done == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	defer fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				w.created(fsw, event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("directory watch error", "error", err)
		}
	}
}

// created handles a new path. A new directory is added to the watch and
// the files already in it are announced, since they may have been
// created before the watch was in place.
func (w *Watcher) created(fsw *fsnotify.Watcher, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		w.announce(path)
		return
	}

	files, err := addTree(fsw, path)
	if err != nil {
		logging.Warn("failed to watch new directory", "path", path, "error", err)
	}
	for _, file := range files {
		w.announce(file)
	}
}

func (w *Watcher) announce(path string) {
	for _, watch := range w.watches {
		name, ok := within(watch.Directory, path)
		if !ok {
			continue
		}
		event := Event{Watch: watch, Name: name, Path: path}
		logging.Debug("file created", "watch", watch.Name, "path", path)
		if w.onFile != nil {
			w.onFile(event)
		}
		w.record(event)
	}
}

func (w *Watcher) record(event Event) {
	if w.auditLog == nil {
		return
	}
	if err := w.auditLog.LogEvent(audit.EventFile, w.machine, event.Watch.Name+": "+event.Name); err != nil {
		logging.Debug("failed to record event", "type", audit.EventFile, "error", err)
	}
}

// addTree watches dir and every directory below it, returning the files
// found on the way.
func addTree(fsw *fsnotify.Watcher, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			logging.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			files = append(files, path)
			return nil
		}
		return fsw.Add(path)
	})
	return files, err
}

// within returns path relative to dir, if it lies below dir.
func within(dir, path string) (string, bool) {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
