package orchestrators

import (
	"context"
	"log/slog"

	eventStore "mms/internal/adapters/storage/event"
	memberStore "mms/internal/adapters/storage/member"
	domain "mms/internal/domain/event"
)

// UpdateEventInput carries the new identity for an existing event.
type UpdateEventInput struct {
	EventID string
	Name    string
	Date    string
}

// UpdateEventDeps holds external dependencies for the event update.
type UpdateEventDeps struct {
	EventStore  eventStore.Store
	MemberStore memberStore.Store
}

// UpdateEventResult reports the event update and, when the identity changed,
// the propagation into member histories.
type UpdateEventResult struct {
	IdentityChanged bool
	Updated         bool
	Propagation     PropagateResult
}

// ExecuteUpdateEvent renames or reschedules an event and writes the change
// forward into every member history entry referencing the old identity.
// PRE: EventID exists
// POST: Matching member history entries are rewritten in place (see
//
//	ExecutePropagateEventChange), then the event document takes the new
//	name/date; the document keeps its old identity when any propagation
//	chunk failed, so a retry still matches the remaining stale entries
//
// INVARIANT: the new normalized identity must not collide with another event
func ExecuteUpdateEvent(ctx context.Context, input UpdateEventInput, deps UpdateEventDeps) (UpdateEventResult, error) {
	old, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return UpdateEventResult{}, err
	}

	newDate := domain.NormalizeDate(input.Date)
	newKey := domain.NewKey(input.Name, newDate)
	identityChanged := newKey != old.Key()

	result := UpdateEventResult{IdentityChanged: identityChanged}
	if identityChanged {
		existing, err := deps.EventStore.List(ctx)
		if err != nil {
			return UpdateEventResult{}, err
		}
		for i := range existing {
			if existing[i].ID != old.ID && existing[i].Key() == newKey {
				return UpdateEventResult{}, domain.ErrDuplicateNameDate
			}
		}

		result.Propagation, err = ExecutePropagateEventChange(ctx, PropagateEventChangeInput{
			EventType: old.Type,
			OldName:   old.Name,
			OldDate:   old.Date,
			NewName:   input.Name,
			NewDate:   newDate,
		}, PropagateEventChangeDeps{MemberStore: deps.MemberStore})
		if err != nil {
			return result, err
		}
		if result.Propagation.FailedChunks > 0 || result.Propagation.Error != "" {
			slog.Warn("event_update_propagation_partial",
				"event_id", old.ID,
				"failed_chunks", result.Propagation.FailedChunks,
			)
			return result, nil
		}
	}

	if err := deps.EventStore.Update(ctx, old.ID, map[string]any{
		"name": input.Name,
		"date": newDate,
	}); err != nil {
		return result, err
	}
	result.Updated = true

	slog.Info("event_updated",
		"event_id", old.ID,
		"identity_changed", identityChanged,
		"members_matched", result.Propagation.MembersMatched,
	)
	return result, nil
}
