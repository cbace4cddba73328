// Package backend resolves a configured backend name to a storage adapter.
package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/records-service/internal/config"
	"github.com/spec-kit/records-service/internal/storage"
)

// DefaultName is used when no backend is configured.
const DefaultName = "postgres"

// Deps carries what a constructor may need to build an adapter.
type Deps struct {
	Config *config.Config
	Logger *zap.Logger
}

// Constructor builds an adapter. It must not perform I/O; connections are
// established lazily or by Initialize.
type Constructor[T any] func(deps Deps) (storage.Store[T], error)

// Registry maps backend names to constructors for one record type.
type Registry[T any] struct {
	constructors map[string]Constructor[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{constructors: make(map[string]Constructor[T])}
}

// Register adds or replaces the constructor for name.
func (r *Registry[T]) Register(name string, ctor Constructor[T]) {
	r.constructors[normalize(name)] = ctor
}

// Names returns the supported backend names in sorted order.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the adapter registered under name. The name is matched
// case-insensitively; empty selects DefaultName.
func (r *Registry[T]) Open(name string, deps Deps) (storage.Store[T], error) {
	key := normalize(name)
	if key == "" {
		key = DefaultName
	}
	ctor, ok := r.constructors[key]
	if !ok {
		return nil, fmt.Errorf("unsupported backend %q (supported: %s)", key, strings.Join(r.Names(), ", "))
	}
	return ctor(deps)
}

// Bootstrap opens the named adapter and initializes it once. Failures are
// returned as-is; callers are expected to stop.
func Bootstrap[T any](ctx context.Context, r *Registry[T], name string, deps Deps) (storage.Store[T], error) {
	store, err := r.Open(name, deps)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initialize %s backend: %w", displayName(name), err)
	}
	deps.logger().Info("storage backend ready", zap.String("backend", displayName(name)))
	return store, nil
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func displayName(name string) string {
	if key := normalize(name); key != "" {
		return key
	}
	return DefaultName
}
