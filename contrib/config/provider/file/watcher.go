package file

import (
	"errors"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/omalloc/limitio/contrib/config"
)

var _ config.Watcher = (*watcher)(nil)

// ErrWatcherStopped is returned from Next after Stop.
var ErrWatcherStopped = errors.New("file watcher stopped")

type watcher struct {
	f    *file
	fw   *fsnotify.Watcher
	exit chan struct{}
}

func newWatcher(f *file) (config.Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// watch the directory; editors replace files instead of writing in place
	if err := fw.Add(filepath.Dir(f.path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &watcher{
		f:    f,
		fw:   fw,
		exit: make(chan struct{}),
	}, nil
}

// Next implements config.Watcher.
func (w *watcher) Next() ([]*config.KeyValue, error) {
	for {
		select {
		case <-w.exit:
			return nil, ErrWatcherStopped
		case event, ok := <-w.fw.Events:
			if !ok {
				return nil, ErrWatcherStopped
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.f.path) {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			return w.f.Load()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil, ErrWatcherStopped
			}
			return nil, err
		}
	}
}

// Stop implements config.Watcher.
func (w *watcher) Stop() error {
	select {
	case <-w.exit:
	default:
		close(w.exit)
	}
	return w.fw.Close()
}
