package file

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/omalloc/limitio/contrib/config"
)

var _ config.Source = (*file)(nil)

type file struct {
	path string
}

// NewSource new a file source.
func NewSource(path string) config.Source {
	return &file{path: path}
}

// Load implements config.Source.
func (f *file) Load() ([]*config.KeyValue, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	return []*config.KeyValue{
		{
			Key:    filepath.Base(f.path),
			Value:  data,
			Format: format(f.path),
		},
	}, nil
}

// Watch implements config.Source.
func (f *file) Watch() (config.Watcher, error) {
	return newWatcher(f)
}

func format(path string) string {
	if ext := filepath.Ext(path); len(ext) > 1 {
		return strings.TrimPrefix(ext, ".")
	}
	return ""
}
