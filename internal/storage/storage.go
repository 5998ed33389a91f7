package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-graph/internal/domain"
)

// Package storage keeps a local ledger of objects published through the Graph API.

// Ledger records published objects keyed by the id the Graph API assigned them.
type Ledger interface {
	Close() error
	Record(op domain.Operation) error
	Lookup(id string) (domain.Operation, bool, error)
	Forget(id string) error
	List() ([]domain.Operation, error)
}

// Options controls retention characteristics for concrete ledger implementations.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultEntryTTL        = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewLedger creates the configured storage backend.
func NewLedger(typ, path string, opts Options) (Ledger, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopLedger{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopLedger struct{}

func (noopLedger) Close() error                                  { return nil }
func (noopLedger) Record(domain.Operation) error                 { return nil }
func (noopLedger) Lookup(string) (domain.Operation, bool, error) { return domain.Operation{}, false, nil }
func (noopLedger) Forget(string) error                           { return nil }
func (noopLedger) List() ([]domain.Operation, error)             { return nil, nil }
