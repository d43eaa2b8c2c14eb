package monitoring

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ArtifactWatcher reports changes to artifact files after they were loaded.
// Loaded artifacts are never replaced; a change means a restart is needed.
type ArtifactWatcher struct {
	watcher  *fsnotify.Watcher
	paths    map[string]bool
	logger   *zap.Logger
	onChange func(path string)

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewArtifactWatcher watches the directories holding paths. onChange may be
// nil.
func NewArtifactWatcher(logger *zap.Logger, onChange func(path string), paths ...string) (*ArtifactWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &ArtifactWatcher{
		watcher:  watcher,
		paths:    make(map[string]bool, len(paths)),
		logger:   logger.Named("artifact_watcher"),
		onChange: onChange,
		done:     make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		w.paths[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	// editors and deploy tools replace files, so watch the parent directory
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *ArtifactWatcher) run() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("artifact watch error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

func (w *ArtifactWatcher) handle(event fsnotify.Event) {
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	if event.Op&relevant == 0 {
		return
	}
	path, err := filepath.Abs(event.Name)
	if err != nil || !w.paths[path] {
		return
	}
	w.logger.Warn("artifact changed on disk; restart to serve it",
		zap.String("path", path),
		zap.String("op", event.Op.String()))
	if w.onChange != nil {
		w.onChange(path)
	}
}

// Close stops watching. It is safe to call more than once.
func (w *ArtifactWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
