package app

import (
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileLoader reads the file a URL points at
type FileLoader interface {
	Load(u *url.URL) ([]byte, error)
}

// FileLoaderFunc adapts a function to a FileLoader
type FileLoaderFunc func(u *url.URL) ([]byte, error)

func (f FileLoaderFunc) Load(u *url.URL) ([]byte, error) {
	return f(u)
}

var (
	loadersMu sync.RWMutex
	loaders   = map[string]FileLoader{
		"":     FileLoaderFunc(loadLocal),
		"file": FileLoaderFunc(loadLocal),
	}
)

// RegisterFileLoader makes scheme loadable through LoadFile. It panics when
// the scheme is taken.
func RegisterFileLoader(scheme string, loader FileLoader) {
	loadersMu.Lock()
	defer loadersMu.Unlock()

	if _, ok := loaders[scheme]; ok {
		panic("app: file loader already registered for " + scheme)
	}
	loaders[scheme] = loader
}

// LoadFile reads fileURL with the loader registered for its scheme. Plain
// paths are read from local disk.
func LoadFile(fileURL string) ([]byte, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid file url %s", fileURL)
	}

	loadersMu.RLock()
	loader, ok := loaders[u.Scheme]
	loadersMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unsupported file scheme %q", u.Scheme)
	}

	return loader.Load(u)
}

func loadLocal(u *url.URL) ([]byte, error) {
	// file://relative/path parses the first segment as the host
	path := filepath.Join(u.Host, u.Path)
	if u.Host == "" {
		path = u.Path
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s", path)
	}
	return data, nil
}
