// Package web holds the monitoring page.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path/filepath"
	"runtime"
)

//go:embed dist/*
var staticAssets embed.FS

// Assets returns the files of the monitoring page. With fromSource set, the
// files are read from SourceDir on every request, so edits to the page show
// up without rebuilding the binary.
func Assets(fromSource bool) http.FileSystem {
	if fromSource {
		return http.Dir(SourceDir())
	}

	sub, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}

// SourceDir returns the dist directory of the source tree this package was
// built from.
func SourceDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot locate the monitoring page sources")
	}

	return filepath.Join(filepath.Dir(file), "dist")
}
