package orchestrators

import (
	"context"
	"log/slog"

	eventStore "mms/internal/adapters/storage/event"
	memberStore "mms/internal/adapters/storage/member"
	"mms/internal/adapters/storage"
	eventDomain "mms/internal/domain/event"
	"mms/internal/domain/eligibility"
	domain "mms/internal/domain/member"
)

// DeleteEventDeps holds external dependencies for event deletion.
type DeleteEventDeps struct {
	EventStore  eventStore.Store
	MemberStore memberStore.Store
}

// DeleteEventResult reports the outcome of an event deletion, including the
// propagation into member histories.
type DeleteEventResult struct {
	MembersMatched int
	Chunks         int
	FailedChunks   int
	Deleted        bool
	Error          string
}

// ExecuteDeleteEvent removes an event and writes the removal forward into
// every member history entry matching the event's normalized identity.
// PRE: ev is the stored event about to be deleted
// POST: Matching history entries are removed, cached counters are
//
//	decremented floored at zero, then the event document is deleted;
//	the document survives when any propagation chunk failed, so a retry
//	can finish the job (propagation is idempotent)
func ExecuteDeleteEvent(ctx context.Context, ev eventDomain.Event, deps DeleteEventDeps) (DeleteEventResult, error) {
	members, err := deps.MemberStore.List(ctx)
	if err != nil {
		return DeleteEventResult{Error: err.Error()}, nil
	}

	key := ev.Key()
	var ops []storage.UpdateOp
	for i := range members {
		fields, matched := removalFields(&members[i], ev.Type, key)
		if matched {
			ops = append(ops, storage.UpdateOp{ID: members[i].ID, Fields: fields})
		}
	}

	chunks := chunkUpdateOps(ops)
	failed := commitChunks(ctx, deps.MemberStore.BatchUpdate, chunks)

	result := DeleteEventResult{
		MembersMatched: len(ops),
		Chunks:         len(chunks),
		FailedChunks:   failed,
	}

	if failed > 0 {
		slog.Warn("event_delete_propagation_partial", "event", ev.Name, "failed_chunks", failed)
		return result, nil
	}

	if err := deps.EventStore.Delete(ctx, ev.ID); err != nil {
		result.Error = err.Error()
		return result, nil
	}
	result.Deleted = true

	slog.Info("event_deleted",
		"event", ev.Name,
		"date", ev.Date,
		"type", ev.Type,
		"members_matched", len(ops),
		"chunks", len(chunks),
	)
	return result, nil
}

// removalFields strips every history entry matching the event key from one
// member and returns the partial update to persist, with the corresponding
// cached counters decremented and floored at zero.
func removalFields(m *domain.Member, eventType string, key eventDomain.Key) (map[string]any, bool) {
	switch eventType {
	case eventDomain.TypeISM:
		kept := []domain.ISMAttendance{}
		for _, rec := range m.ISMAttendance {
			if eventDomain.NewKey(rec.EventName, "").Name == key.Name {
				continue
			}
			kept = append(kept, rec)
		}
		if len(kept) == len(m.ISMAttendance) {
			return nil, false
		}
		return map[string]any{"ismAttendance": kept}, true

	case eventDomain.TypeNCS:
		kept := []domain.NCSAttendance{}
		removedTotal := 0
		removedValid := 0
		for _, rec := range m.NCSEvents {
			if key.Matches(rec.EventName, rec.Date) {
				removedTotal++
				if eligibility.NCSRecordValid(m, rec) {
					removedValid++
				}
				continue
			}
			kept = append(kept, rec)
		}
		if removedTotal == 0 {
			return nil, false
		}
		fields := map[string]any{
			"ncsEvents":        kept,
			"ncsTotalAttended": floorAtZero(m.NCSTotalAttended - removedTotal),
		}
		if m.NCSAttended != nil {
			fields["ncsAttended"] = floorAtZero(*m.NCSAttended - removedValid)
		}
		return fields, true

	case eventDomain.TypeISS:
		kept := []domain.ISSAttendance{}
		removed := 0
		for _, rec := range m.ISSEvents {
			if key.Matches(rec.EventName, rec.Date) {
				removed++
				continue
			}
			kept = append(kept, rec)
		}
		if removed == 0 {
			return nil, false
		}
		return map[string]any{
			"issEvents":   kept,
			"issAttended": floorAtZero(m.ISSAttended - removed),
		}, true
	}
	return nil, false
}

func floorAtZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
