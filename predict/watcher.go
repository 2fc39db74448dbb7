package predict

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDelay lets the writer finish before the artifact is re-read.
// Deploys replace the file with a rename or a short burst of writes.
const reloadDelay = 200 * time.Millisecond

// Watcher reloads the service's model whenever the artifact on disk changes.
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchModel watches the model artifact at path and reloads it into service
// on every write or replace. The parent directory is watched because editors
// and deploy scripts typically swap the file by rename.
func WatchModel(service *Service, modelType, path string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create model watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{watcher: fsWatcher, done: make(chan struct{})}
	target := filepath.Clean(path)

	go func() {
		defer close(w.done)
		for {
			select {
			case event, ok := <-fsWatcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				time.Sleep(reloadDelay)
				if err := service.Reload(modelType, path); err != nil {
					logger.Warn("model reload failed, keeping previous model",
						zap.String("path", path), zap.Error(err))
				}
			case err, ok := <-fsWatcher.Errors:
				if !ok {
					return
				}
				logger.Warn("model watcher error", zap.Error(err))
			}
		}
	}()

	logger.Info("watching model artifact", zap.String("path", path))
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
