package orchestrators

import (
	"context"
	"log/slog"

	eventStore "mms/internal/adapters/storage/event"
	domain "mms/internal/domain/event"
)

// CreateEventDeps holds external dependencies for creating an event.
type CreateEventDeps struct {
	EventStore eventStore.Store
}

// ExecuteCreateEvent validates and persists a new event.
// PRE: ev carries no id
// POST: Returns the generated id, or ErrDuplicateNameDate when another event
//
//	already holds the same normalized (name, date) identity
//
// INVARIANT: member history entries match events by value, so two live
// events must never share a normalized name and calendar date
func ExecuteCreateEvent(ctx context.Context, ev domain.Event, deps CreateEventDeps) (string, error) {
	ev.Date = domain.NormalizeDate(ev.Date)
	if err := ev.Validate(); err != nil {
		return "", err
	}

	existing, err := deps.EventStore.List(ctx)
	if err != nil {
		return "", err
	}
	key := ev.Key()
	for i := range existing {
		if existing[i].Key() == key {
			return "", domain.ErrDuplicateNameDate
		}
	}

	id, err := deps.EventStore.Save(ctx, ev)
	if err != nil {
		return "", err
	}

	slog.Info("event_created", "event_id", id, "name", ev.Name, "date", ev.Date, "type", ev.Type)
	return id, nil
}
