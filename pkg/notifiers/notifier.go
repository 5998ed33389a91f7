package notifiers

import (
	"context"
	"time"

	"github.com/samvad-hq/samvad-graph/internal/domain"
)

// Notifier sends operation events to a downstream sink.
type Notifier interface {
	ID() string
	Type() string
	Notify(ctx context.Context, evt Event) error
	Close() error
}

// Event is the payload delivered to every sink.
type Event struct {
	Operation domain.Operation `json:"operation"`
	EmittedAt time.Time        `json:"emitted_at"`
}

// NewEvent wraps op in an Event stamped with the current time.
func NewEvent(op domain.Operation) Event {
	return Event{Operation: op, EmittedAt: time.Now().UTC()}
}

// Logger defines the logging surface notifiers rely on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}
