package bitacora

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventKind identifies the mutation that fired an event.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event is published after a mutation has committed.
type Event struct {
	ID        string                 `json:"id"`
	Kind      EventKind              `json:"kind"`
	EntryID   int64                  `json:"entryId"`
	PatientID int64                  `json:"patientId"`
	ActorID   int64                  `json:"actorId"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Listener receives committed mutation events. Implementations must be safe
// for synchronous invocation on the request path.
type Listener interface {
	Handle(ctx context.Context, e Event) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, e Event) error

func (f ListenerFunc) Handle(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Notifier invokes a fixed list of listeners, in attachment order,
// synchronously, after the triggering write has committed. Each invocation
// is isolated: a listener error or panic is logged and the remaining
// listeners still run; the caller's result is never affected.
type Notifier struct {
	listeners []Listener
	logger    zerolog.Logger
}

// NewNotifier builds a notifier over a fixed listener list configured at
// startup; there is no attach/detach at request time.
func NewNotifier(logger zerolog.Logger, listeners ...Listener) *Notifier {
	return &Notifier{listeners: listeners, logger: logger}
}

// Notify delivers the event to every listener. Delivery is in-process and
// best-effort; there is no persistence or retry.
func (n *Notifier) Notify(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	for i, l := range n.listeners {
		n.deliver(ctx, i, l, e)
	}
}

func (n *Notifier) deliver(ctx context.Context, idx int, l Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error().
				Int("listener", idx).
				Str("event_id", e.ID).
				Str("kind", string(e.Kind)).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("notifier listener panicked")
		}
	}()
	if err := l.Handle(ctx, e); err != nil {
		n.logger.Warn().
			Int("listener", idx).
			Str("event_id", e.ID).
			Str("kind", string(e.Kind)).
			Err(err).
			Msg("notifier listener failed")
	}
}

// LogListener records every event to the structured log.
func LogListener(logger zerolog.Logger) Listener {
	return ListenerFunc(func(_ context.Context, e Event) error {
		logger.Info().
			Str("event_id", e.ID).
			Str("kind", string(e.Kind)).
			Int64("entry_id", e.EntryID).
			Int64("patient_id", e.PatientID).
			Int64("actor_id", e.ActorID).
			Msg("bitacora event")
		return nil
	})
}

// PushTrigger is the outbound channel surface the push listener needs;
// satisfied by the platform push client.
type PushTrigger interface {
	Trigger(ctx context.Context, channel, event string, payload interface{}) error
}

// PushListener forwards events to the external push channel.
func PushListener(client PushTrigger, channel string) Listener {
	return ListenerFunc(func(ctx context.Context, e Event) error {
		return client.Trigger(ctx, channel, "eventoBitacora", e)
	})
}
