package event

import (
	"context"

	"mms/internal/adapters/storage"
	domain "mms/internal/domain/event"
)

// Store persists Event state. Subscribe delivers full-collection snapshots
// on every change until the returned stop function is called.
//
// Events carry no uniqueness index on (name, date): the normalized-key
// invariant is enforced by the callers that create and rename events,
// because normalization is a domain rule the store cannot express.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
	Save(ctx context.Context, value domain.Event) (string, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
	SetAttendee(ctx context.Context, eventID, memberID string, data map[string]any) error
	RemoveAttendee(ctx context.Context, eventID, memberID string) error
	BatchUpdate(ctx context.Context, ops []storage.UpdateOp) error
	Subscribe(ctx context.Context, onSnapshot func([]domain.Event), onError func(error)) (stop func(), err error)
}
