package identity

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"countdowntodo-sync/internal/logging"
	"countdowntodo-sync/internal/models"
)

// ApplyFunc stores a freshly parsed mapping set.
type ApplyFunc func([]models.IdentityMapping) error

// Watcher re-imports a mapping seed file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors which replace the file through a rename are still picked up.
type Watcher struct {
	path   string
	apply  ApplyFunc
	logger *logging.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// reloaded is signalled after every reload attempt; used by tests.
	reloaded chan error
}

func NewWatcher(path string, apply ApplyFunc, logger *logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Watcher{
		path:     abs,
		apply:    apply,
		logger:   logger,
		watcher:  fw,
		done:     make(chan struct{}),
		reloaded: make(chan error, 16),
	}, nil
}

// Start imports the file once and then follows changes to it.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("watcher already running")
	}
	if err := w.reload(); err != nil {
		return err
	}
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.running = true
	w.wg.Add(1)
	go w.loop()
	return nil
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	w.wg.Wait()
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			err := w.reload()
			if err != nil {
				w.logger.Warnf("mapping reload from %s failed: %v", w.path, err)
			}
			select {
			case w.reloaded <- err:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("mapping watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() error {
	ms, err := LoadFile(w.path)
	if err != nil {
		return err
	}
	if err := w.apply(ms); err != nil {
		return err
	}
	w.logger.Infof("loaded %d identity mappings from %s", len(ms), w.path)
	return nil
}
