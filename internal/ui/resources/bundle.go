package resources

import (
	"fmt"
	"net/http"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/evanw/esbuild/pkg/api"
)

// Bundle is the compiled client-side glue script. The heavy lifting on the
// client is datastar's; the bundle only carries small page helpers, so it
// is built in memory at server startup.
type Bundle struct {
	JS      []byte
	CSS     []byte
	BuiltAt time.Time
}

// srcDir locates the bundle sources relative to this file.
func srcDir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return filepath.Join(StaticDirectoryPath, "src")
	}
	return filepath.Join(filepath.Dir(filename), "static", "src")
}

// BuildBundle compiles static/src/app.js into a single IIFE bundle.
func BuildBundle(minify bool) (*Bundle, error) {
	opts := api.BuildOptions{
		EntryPoints: []string{filepath.Join(srcDir(), "app.js")},
		Bundle:      true,
		Write:       false,
		Outdir:      "out",
		Platform:    api.PlatformBrowser,
		Format:      api.FormatIIFE,
		Target:      api.ES2020,
		TreeShaking: api.TreeShakingTrue,
		Sourcemap:   api.SourceMapNone,
		LogLevel:    api.LogLevelWarning,
	}
	if minify {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	}

	result := api.Build(opts)
	if len(result.Errors) > 0 {
		var msg string
		for _, e := range result.Errors {
			if e.Location != nil {
				msg += fmt.Sprintf("%s:%d: %s\n", e.Location.File, e.Location.Line, e.Text)
			} else {
				msg += e.Text + "\n"
			}
		}
		return nil, fmt.Errorf("esbuild errors:\n%s", msg)
	}

	b := &Bundle{BuiltAt: time.Now()}
	for _, f := range result.OutputFiles {
		switch filepath.Ext(f.Path) {
		case ".js":
			b.JS = f.Contents
		case ".css":
			b.CSS = f.Contents
		}
	}
	if b.JS == nil {
		return nil, fmt.Errorf("esbuild produced no JavaScript output")
	}
	return b, nil
}

// Serve writes the bundle's JS to the response.
func (b *Bundle) Serve(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Content-Length", strconv.Itoa(len(b.JS)))
	_, _ = w.Write(b.JS)
}
