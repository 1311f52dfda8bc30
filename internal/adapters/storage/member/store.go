package member

import (
	"context"

	"mms/internal/adapters/storage"
	domain "mms/internal/domain/member"
)

// Upsert outcome tags, part of the import result contract.
const (
	ActionAdded   = "added"
	ActionUpdated = "updated"
)

// Store persists Member state. Subscribe delivers full-collection snapshots
// on every change until the returned stop function is called.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Member, error)
	FindByCampusID(ctx context.Context, campusID string) (domain.Member, bool, error)
	List(ctx context.Context) ([]domain.Member, error)
	Save(ctx context.Context, value domain.Member) (string, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	UpsertByCampusID(ctx context.Context, campusID string, fields map[string]any) (id string, action string, err error)
	Delete(ctx context.Context, id string) error
	BatchUpdate(ctx context.Context, ops []storage.UpdateOp) error
	Subscribe(ctx context.Context, onSnapshot func([]domain.Member), onError func(error)) (stop func(), err error)
}
