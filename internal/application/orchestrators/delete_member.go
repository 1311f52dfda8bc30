package orchestrators

import (
	"context"
	"log/slog"

	eventStore "mms/internal/adapters/storage/event"
	memberStore "mms/internal/adapters/storage/member"
	"mms/internal/adapters/storage"
)

// DeleteMemberDeps holds external dependencies for member deletion.
type DeleteMemberDeps struct {
	MemberStore memberStore.Store
	EventStore  eventStore.Store
}

// DeleteMemberResult reports the outcome of a member deletion, including the
// cascade out of event attendance maps.
type DeleteMemberResult struct {
	EventsMatched int
	Chunks        int
	FailedChunks  int
	Deleted       bool
	Error         string
}

// ExecuteDeleteMember removes the member's id from the attendance map of
// every event referencing it, then deletes the member document.
// PRE: memberID is non-empty
// POST: No event attendance map references the member; the member document
//
//	is deleted only after the cascade fully committed, so a retry after
//	partial failure can finish the job (unsetting an absent attendee is
//	a no-op)
func ExecuteDeleteMember(ctx context.Context, memberID string, deps DeleteMemberDeps) (DeleteMemberResult, error) {
	events, err := deps.EventStore.List(ctx)
	if err != nil {
		return DeleteMemberResult{Error: err.Error()}, nil
	}

	var ops []storage.UpdateOp
	for i := range events {
		if events[i].HasAttendee(memberID) {
			ops = append(ops, storage.UpdateOp{
				ID:    events[i].ID,
				Unset: []string{"attendance." + memberID},
			})
		}
	}

	chunks := chunkUpdateOps(ops)
	failed := commitChunks(ctx, deps.EventStore.BatchUpdate, chunks)

	result := DeleteMemberResult{
		EventsMatched: len(ops),
		Chunks:        len(chunks),
		FailedChunks:  failed,
	}

	if failed > 0 {
		slog.Warn("member_delete_cascade_partial", "member_id", memberID, "failed_chunks", failed)
		return result, nil
	}

	if err := deps.MemberStore.Delete(ctx, memberID); err != nil {
		result.Error = err.Error()
		return result, nil
	}
	result.Deleted = true

	slog.Info("member_deleted", "member_id", memberID, "events_matched", len(ops))
	return result, nil
}
