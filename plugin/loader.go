// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package plugin loads dspatch components from shared libraries built with
// Go's plugin build mode. It mirrors the degrade-to-empty behavior of the
// original dlopen/dlsym-based loader: a failed load is not an error a
// caller must branch on, it just leaves the Loader permanently unloaded,
// and every subsequent call reports absence rather than panicking.
package plugin

import (
	"log/slog"
	"plugin"
	"sync"

	"github.com/pkg/errors"

	"github.com/mfkiwl/dspatch"
)

// CreateParams is the parameter map a plugin's GetCreateParams symbol
// returns, describing the construction parameters a Create call accepts.
type CreateParams map[string]any

// getCreateParamsFunc and createFunc are the signatures a plugin must
// export its "GetCreateParams" and "Create" symbols as.
type getCreateParamsFunc func() CreateParams
type createFunc func(params CreateParams) dspatch.Processor

// Loader opens a Go plugin (a .so built with `go build -buildmode=plugin`)
// and looks up its GetCreateParams and Create symbols. If the open fails,
// or either symbol is missing or has the wrong type, the Loader is left
// unloaded: IsLoaded reports false, GetCreateParams returns an empty map,
// and Create returns nil. None of that is treated as an error by Loader's
// own methods — the original engine's contract is "absent", not "panic".
type Loader struct {
	mu sync.Mutex

	loaded          bool
	getCreateParams getCreateParamsFunc
	create          createFunc
}

// Open attempts to load the plugin at path. It never returns an error;
// callers check IsLoaded.
func Open(path string) *Loader {
	l := &Loader{}
	l.load(path)
	return l
}

func (l *Loader) load(path string) {
	if err := l.tryLoad(path); err != nil {
		slog.Warn("plugin load failed", "path", path, "err", err)
	}
}

func (l *Loader) tryLoad(path string) error {
	p, err := plugin.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening plugin %q", path)
	}
	gcp, err := p.Lookup("GetCreateParams")
	if err != nil {
		return errors.Wrapf(err, "looking up GetCreateParams in %q", path)
	}
	create, err := p.Lookup("Create")
	if err != nil {
		return errors.Wrapf(err, "looking up Create in %q", path)
	}
	gcpFn, ok := gcp.(func() CreateParams)
	if !ok {
		return errors.Errorf("plugin %q: GetCreateParams has unexpected signature %T", path, gcp)
	}
	createFn, ok := create.(func(CreateParams) dspatch.Processor)
	if !ok {
		return errors.Errorf("plugin %q: Create has unexpected signature %T", path, create)
	}
	l.mu.Lock()
	l.getCreateParams = gcpFn
	l.create = createFn
	l.loaded = true
	l.mu.Unlock()
	return nil
}

// IsLoaded reports whether the plugin opened successfully and exposes both
// required symbols with the expected signature.
func (l *Loader) IsLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// GetCreateParams returns the plugin's declared construction parameters,
// or an empty map if the plugin is not loaded.
func (l *Loader) GetCreateParams() CreateParams {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded {
		return CreateParams{}
	}
	return l.getCreateParams()
}

// Create constructs a new Processor from the plugin with the given
// parameters, or returns nil if the plugin is not loaded.
func (l *Loader) Create(params CreateParams) dspatch.Processor {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded {
		return nil
	}
	return l.create(params)
}
