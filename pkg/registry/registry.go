// Package registry resolves task services by name. Services are registered
// explicitly at startup; nothing is discovered from the filesystem.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/harrisonrobin/tasksync/pkg/config"
	"github.com/harrisonrobin/tasksync/pkg/service"
)

var (
	ErrDuplicate      = errors.New("task service already registered")
	ErrUnknownService = errors.New("unknown task service")
)

// Factory builds a task service from configuration.
type Factory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.TaskService, error)

type entry struct {
	factory     Factory
	description string
}

type Registry struct {
	entries map[string]entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a factory under name.
func (r *Registry) Register(name, description string, f Factory) error {
	if name == "" || f == nil {
		return fmt.Errorf("invalid registration for %q", name)
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.entries[name] = entry{factory: f, description: description}
	return nil
}

// Open builds the service registered under name.
func (r *Registry) Open(ctx context.Context, name string, cfg *config.Config, logger *slog.Logger) (service.TaskService, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownService, name, r.Names())
	}
	svc, err := e.factory(ctx, cfg, logger.With("service", name))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s service: %w", name, err)
	}
	return svc, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Description returns the description given at registration.
func (r *Registry) Description(name string) string {
	return r.entries[name].description
}
