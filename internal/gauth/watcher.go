package gauth

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// SecretWatcher watches the client secret file for changes and reloads
// the holder's OAuth config when the file is rewritten. This lets an
// operator rotate the OAuth client without restarting the server.
type SecretWatcher struct {
	watcher *fsnotify.Watcher
	holder  *Holder
	path    string
	logger  *log.Logger

	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewSecretWatcher creates a watcher for the holder's secret file.
// Returns an error if the holder was built from inline credentials and
// has no file to watch.
func NewSecretWatcher(holder *Holder, logger *log.Logger) (*SecretWatcher, error) {
	if holder.cfg.SecretFile == "" {
		return nil, fmt.Errorf("no client secret file configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if logger == nil {
		logger = log.Default()
	}

	return &SecretWatcher{
		watcher: watcher,
		holder:  holder,
		path:    holder.cfg.SecretFile,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the secret file's directory.
//
// The parent directory is watched rather than the file itself so that
// atomic replace (write temp file, rename over) is observed as a create
// event instead of silently dropping the watch.
func (sw *SecretWatcher) Start() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.running {
		return fmt.Errorf("watcher already running")
	}

	dir := filepath.Dir(sw.path)
	if err := sw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	sw.running = true
	sw.wg.Add(1)
	go sw.processEvents()

	return nil
}

// Stop stops watching and blocks until the event goroutine has exited.
func (sw *SecretWatcher) Stop() error {
	sw.mu.Lock()
	if !sw.running {
		sw.mu.Unlock()
		return nil
	}
	sw.running = false
	sw.mu.Unlock()

	close(sw.done)

	if err := sw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	sw.wg.Wait()
	return nil
}

func (sw *SecretWatcher) processEvents() {
	defer sw.wg.Done()

	for {
		select {
		case <-sw.done:
			return

		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(sw.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			sw.logger.Printf("Client secret file changed, reloading")
			if err := sw.holder.Reload(); err != nil {
				sw.logger.Printf("Error reloading client secret: %v", err)
			}

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Printf("Watcher error: %v", err)
		}
	}
}
