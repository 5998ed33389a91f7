package notifiers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Builder creates a Notifier from a config entry.
type Builder func(ctx context.Context, cfg NotifierConfig, log Logger) (Notifier, error)

// Registry maps notifier types to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry with optional pre-registered builders.
func NewRegistry(builders map[string]Builder) *Registry {
	r := &Registry{builders: make(map[string]Builder, len(builders))}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// DefaultRegistry wires up the built-in sinks.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Builder{
		TypeHTTP:      newHTTPNotifier,
		TypeSQS:       newSQSNotifier,
		TypeSNS:       newSNSNotifier,
		TypeGCPPubSub: newGCPPubSubNotifier,
	})
}

// Register associates a builder with a notifier type.
func (r *Registry) Register(typ string, builder Builder) {
	if typ = strings.TrimSpace(strings.ToLower(typ)); typ == "" || builder == nil {
		return
	}

	r.mu.Lock()
	r.builders[typ] = builder
	r.mu.Unlock()
}

// Build returns the notifier built for cfg.
func (r *Registry) Build(ctx context.Context, cfg NotifierConfig, log Logger) (Notifier, error) {
	r.mu.RLock()
	builder := r.builders[strings.ToLower(cfg.Type)]
	r.mu.RUnlock()

	if builder == nil {
		return nil, fmt.Errorf("no notifier registered for type %q", cfg.Type)
	}
	return builder(ctx, cfg, ensureLogger(log))
}

// BuildAll instantiates notifiers for cfgs. Already built notifiers are closed on failure.
func (r *Registry) BuildAll(ctx context.Context, cfgs []NotifierConfig, log Logger) ([]Notifier, error) {
	var built []Notifier
	for _, cfg := range cfgs {
		n, err := r.Build(ctx, cfg, log)
		if err != nil {
			closeErr := closeAll(built)
			return nil, errors.Join(fmt.Errorf("notifier %q: %w", cfg.ID, err), closeErr)
		}
		built = append(built, n)
	}
	return built, nil
}

func closeAll(ns []Notifier) error {
	var errs []error
	for _, n := range ns {
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s notifier[%s]: %w", n.Type(), n.ID(), err))
		}
	}
	return errors.Join(errs...)
}
