package orchestrators

import (
	"context"
	"log/slog"

	memberStore "mms/internal/adapters/storage/member"
	domain "mms/internal/domain/member"
)

// AddMemberDeps holds external dependencies for adding a member.
type AddMemberDeps struct {
	MemberStore memberStore.Store
}

// ExecuteAddMember validates and persists a new member record.
// PRE: m carries no id
// POST: Returns the generated id, or ErrDuplicateCampusID when the natural
//
//	key is already taken
//
// INVARIANT: the duplicate check is read-then-write; without a store-side
// uniqueness constraint two concurrent adds of the same campus id can both
// pass (known gap, unlike the import path's atomic upsert)
func ExecuteAddMember(ctx context.Context, m domain.Member, deps AddMemberDeps) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}

	if m.CampusID != "" {
		_, found, err := deps.MemberStore.FindByCampusID(ctx, m.CampusID)
		if err != nil {
			return "", err
		}
		if found {
			return "", domain.ErrDuplicateCampusID
		}
	}

	id, err := deps.MemberStore.Save(ctx, m)
	if err != nil {
		return "", err
	}

	slog.Info("member_added", "member_id", id, "campus_id", m.CampusID)
	return id, nil
}
