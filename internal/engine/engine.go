// Package engine defines the database engine adapter contract.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
)

// ErrEngineFailure indicates a dump/restore/clone subprocess failed.
// Not retried automatically: redoing a multi-gigabyte dump blindly is
// worse than letting an operator re-run.
var ErrEngineFailure = errors.New("database engine failure")

// Options holds engine connection settings (host, port, user, password).
type Options map[string]string

// Engine adapts one database server type. Dump produces a
// gzip-compressed SQL stream; Restore and Clone consume one. All three
// stream through the subprocess, the full artifact is never held in
// memory.
type Engine interface {
	// Name returns the engine identifier ("mysql", "postgres")
	Name() string

	// Dump streams a compressed dump of database. The returned reader
	// surfaces subprocess failures on Read or Close.
	Dump(ctx context.Context, database string) (io.ReadCloser, error)

	// Restore loads a compressed dump into database, which must exist.
	// Destructive: statements in the dump overwrite existing data.
	Restore(ctx context.Context, database string, r io.Reader) error

	// Clone drops targetDatabase if it exists, recreates it, and loads
	// the compressed dump into it.
	Clone(ctx context.Context, targetDatabase string, r io.Reader) error
}

// Factory builds an Engine from connection options.
type Factory func(options Options) (Engine, error)

// Registry is an explicit engine-name to factory mapping, assembled
// once at process start and injected where needed. No init()-time
// self-registration: the full set of engines is visible at the call
// site that builds it.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry from the given mapping.
func NewRegistry(factories map[string]Factory) *Registry {
	return &Registry{factories: factories}
}

// Create instantiates the named engine.
func (r *Registry) Create(name string, options Options) (Engine, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (available: %v)", name, r.Names())
	}
	return factory(options)
}

// Names returns the registered engine names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
