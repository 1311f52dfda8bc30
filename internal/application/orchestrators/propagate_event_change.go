package orchestrators

import (
	"context"
	"log/slog"

	memberStore "mms/internal/adapters/storage/member"
	"mms/internal/adapters/storage"
	eventDomain "mms/internal/domain/event"
	domain "mms/internal/domain/member"
)

// PropagateEventChangeInput identifies an event rename/reschedule to write
// forward into member attendance histories. The old identity is matched by
// value: history entries carry no event id.
type PropagateEventChangeInput struct {
	EventType string
	OldName   string
	OldDate   string
	NewName   string
	NewDate   string
}

// PropagateEventChangeDeps holds external dependencies for propagation.
type PropagateEventChangeDeps struct {
	MemberStore memberStore.Store
}

// PropagateResult reports the outcome of one propagation run. FailedChunks
// counts batch commits that did not land; committed chunks stay committed,
// and re-running the same propagation is safe because matching is by value.
type PropagateResult struct {
	MembersMatched int
	Chunks         int
	FailedChunks   int
	Error          string
}

// ExecutePropagateEventChange rewrites the event identity inside every
// member history entry matching the old (name, date) pair.
// PRE: EventType is ISM, NCS, or ISS
// POST: Matching entries carry the new name/date, all other entry fields are
//
//	untouched; updates are committed in chunks of at most the store's
//	atomic batch limit
//
// INVARIANT: running the same propagation twice yields the same final state
// as running it once
func ExecutePropagateEventChange(ctx context.Context, input PropagateEventChangeInput, deps PropagateEventChangeDeps) (PropagateResult, error) {
	members, err := deps.MemberStore.List(ctx)
	if err != nil {
		return PropagateResult{Error: err.Error()}, nil
	}

	oldKey := eventDomain.NewKey(input.OldName, input.OldDate)
	newDate := eventDomain.NormalizeDate(input.NewDate)

	var ops []storage.UpdateOp
	for i := range members {
		fields, matched := renameFields(&members[i], input.EventType, oldKey, input.NewName, newDate)
		if matched {
			ops = append(ops, storage.UpdateOp{ID: members[i].ID, Fields: fields})
		}
	}

	chunks := chunkUpdateOps(ops)
	failed := commitChunks(ctx, deps.MemberStore.BatchUpdate, chunks)

	slog.Info("event_change_propagated",
		"type", input.EventType,
		"old_name", input.OldName,
		"new_name", input.NewName,
		"members_matched", len(ops),
		"chunks", len(chunks),
		"failed_chunks", failed,
	)

	return PropagateResult{
		MembersMatched: len(ops),
		Chunks:         len(chunks),
		FailedChunks:   failed,
	}, nil
}

// renameFields rewrites matching history entries on one member and returns
// the partial update to persist. ISM entries carry no date, so they match on
// normalized name alone; NCS and ISS match on the full (name, date) key.
func renameFields(m *domain.Member, eventType string, oldKey eventDomain.Key, newName, newDate string) (map[string]any, bool) {
	matched := false
	switch eventType {
	case eventDomain.TypeISM:
		list := make([]domain.ISMAttendance, len(m.ISMAttendance))
		copy(list, m.ISMAttendance)
		for i := range list {
			if eventDomain.NewKey(list[i].EventName, "").Name == oldKey.Name {
				list[i].EventName = newName
				matched = true
			}
		}
		if matched {
			return map[string]any{"ismAttendance": list}, true
		}
	case eventDomain.TypeNCS:
		list := make([]domain.NCSAttendance, len(m.NCSEvents))
		copy(list, m.NCSEvents)
		for i := range list {
			if oldKey.Matches(list[i].EventName, list[i].Date) {
				list[i].EventName = newName
				list[i].Date = newDate
				matched = true
			}
		}
		if matched {
			return map[string]any{"ncsEvents": list}, true
		}
	case eventDomain.TypeISS:
		list := make([]domain.ISSAttendance, len(m.ISSEvents))
		copy(list, m.ISSEvents)
		for i := range list {
			if oldKey.Matches(list[i].EventName, list[i].Date) {
				list[i].EventName = newName
				list[i].Date = newDate
				matched = true
			}
		}
		if matched {
			return map[string]any{"issEvents": list}, true
		}
	}
	return nil, false
}
