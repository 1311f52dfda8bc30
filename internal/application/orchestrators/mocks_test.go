package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mms/internal/adapters/email"
	"mms/internal/adapters/storage"
	memberStore "mms/internal/adapters/storage/member"
	eventDomain "mms/internal/domain/event"
	domain "mms/internal/domain/member"
)

// mockMemberStore implements memberStore.Store in memory for testing.
// BatchUpdate and UpsertByCampusID record their calls; batchErr makes every
// batch commit fail.
type mockMemberStore struct {
	mu       sync.Mutex
	byID     map[string]domain.Member
	order    []string
	nextID   int
	listErr  error
	batchErr error
	batches  [][]storage.UpdateOp
	updates  map[string][]map[string]any
	deleted  []string
	upserts  []string
}

func newMockMemberStore() *mockMemberStore {
	return &mockMemberStore{
		byID:    make(map[string]domain.Member),
		updates: make(map[string][]map[string]any),
	}
}

func (s *mockMemberStore) add(m domain.Member) {
	if m.ID == "" {
		s.nextID++
		m.ID = fmt.Sprintf("m-%d", s.nextID)
	}
	s.byID[m.ID] = m
	s.order = append(s.order, m.ID)
}

// GetByID implements memberStore.Store.
// PRE: id is non-empty
// POST: returns member or error if not found
func (s *mockMemberStore) GetByID(_ context.Context, id string) (domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return domain.Member{}, errors.New("member not found")
	}
	return m, nil
}

// FindByCampusID implements memberStore.Store.
// POST: found is false with a nil error when no member holds the key
func (s *mockMemberStore) FindByCampusID(_ context.Context, campusID string) (domain.Member, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if s.byID[id].CampusID == campusID {
			return s.byID[id], true, nil
		}
	}
	return domain.Member{}, false, nil
}

// List implements memberStore.Store.
// POST: returns all stored members in insertion order
func (s *mockMemberStore) List(_ context.Context) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Member, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

// Save implements memberStore.Store.
// POST: member is persisted and its generated id returned
func (s *mockMemberStore) Save(_ context.Context, m domain.Member) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(m)
	return s.order[len(s.order)-1], nil
}

// Update implements memberStore.Store.
// POST: the partial update is recorded per id
func (s *mockMemberStore) Update(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[id] = append(s.updates[id], fields)
	return nil
}

// UpsertByCampusID implements memberStore.Store.
// POST: action is "added" for a new campus id, "updated" otherwise
func (s *mockMemberStore) UpsertByCampusID(_ context.Context, campusID string, fields map[string]any) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, campusID)
	for _, id := range s.order {
		if s.byID[id].CampusID == campusID {
			s.updates[id] = append(s.updates[id], fields)
			return id, memberStore.ActionUpdated, nil
		}
	}
	s.add(domain.Member{CampusID: campusID})
	return s.order[len(s.order)-1], memberStore.ActionAdded, nil
}

// Delete implements memberStore.Store.
// POST: the member id is recorded as deleted
func (s *mockMemberStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	delete(s.byID, id)
	return nil
}

// BatchUpdate implements memberStore.Store.
// POST: the chunk is recorded; fails as a unit when batchErr is set
func (s *mockMemberStore) BatchUpdate(_ context.Context, ops []storage.UpdateOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batchErr != nil {
		return s.batchErr
	}
	s.batches = append(s.batches, ops)
	return nil
}

// Subscribe implements memberStore.Store.
func (s *mockMemberStore) Subscribe(_ context.Context, _ func([]domain.Member), _ func(error)) (func(), error) {
	return func() {}, nil
}

// mockEventStore implements eventStore.Store in memory for testing.
type mockEventStore struct {
	mu        sync.Mutex
	byID      map[string]eventDomain.Event
	order     []string
	nextID    int
	batchErr  error
	batches   [][]storage.UpdateOp
	updates   map[string][]map[string]any
	deleted   []string
	attendees map[string]map[string]map[string]any
	removed   []string
}

func newMockEventStore() *mockEventStore {
	return &mockEventStore{
		byID:      make(map[string]eventDomain.Event),
		updates:   make(map[string][]map[string]any),
		attendees: make(map[string]map[string]map[string]any),
	}
}

func (s *mockEventStore) add(ev eventDomain.Event) string {
	if ev.ID == "" {
		s.nextID++
		ev.ID = fmt.Sprintf("e-%d", s.nextID)
	}
	s.byID[ev.ID] = ev
	s.order = append(s.order, ev.ID)
	return ev.ID
}

// GetByID implements eventStore.Store.
// POST: returns event or error if not found
func (s *mockEventStore) GetByID(_ context.Context, id string) (eventDomain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.byID[id]
	if !ok {
		return eventDomain.Event{}, errors.New("event not found")
	}
	return ev, nil
}

// List implements eventStore.Store.
func (s *mockEventStore) List(_ context.Context) ([]eventDomain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]eventDomain.Event, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

// Save implements eventStore.Store.
func (s *mockEventStore) Save(_ context.Context, ev eventDomain.Event) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(ev), nil
}

// Update implements eventStore.Store.
// POST: the partial update is recorded and name/date applied
func (s *mockEventStore) Update(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[id] = append(s.updates[id], fields)
	ev := s.byID[id]
	if name, ok := fields["name"].(string); ok {
		ev.Name = name
	}
	if date, ok := fields["date"].(string); ok {
		ev.Date = date
	}
	s.byID[id] = ev
	return nil
}

// Delete implements eventStore.Store.
func (s *mockEventStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	delete(s.byID, id)
	return nil
}

// SetAttendee implements eventStore.Store.
func (s *mockEventStore) SetAttendee(_ context.Context, eventID, memberID string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attendees[eventID] == nil {
		s.attendees[eventID] = make(map[string]map[string]any)
	}
	s.attendees[eventID][memberID] = data
	return nil
}

// RemoveAttendee implements eventStore.Store.
// POST: removing an absent attendee is a no-op
func (s *mockEventStore) RemoveAttendee(_ context.Context, eventID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, eventID+"/"+memberID)
	delete(s.attendees[eventID], memberID)
	return nil
}

// BatchUpdate implements eventStore.Store.
func (s *mockEventStore) BatchUpdate(_ context.Context, ops []storage.UpdateOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batchErr != nil {
		return s.batchErr
	}
	s.batches = append(s.batches, ops)
	return nil
}

// Subscribe implements eventStore.Store.
func (s *mockEventStore) Subscribe(_ context.Context, _ func([]eventDomain.Event), _ func(error)) (func(), error) {
	return func() {}, nil
}

// mockEmailSender records sent requests.
type mockEmailSender struct {
	mu      sync.Mutex
	sent    []email.SendRequest
	sendErr error
}

// Send implements email.Sender.
func (s *mockEmailSender) Send(_ context.Context, req email.SendRequest) (email.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return email.SendResult{}, s.sendErr
	}
	s.sent = append(s.sent, req)
	return email.SendResult{MessageID: "msg-1"}, nil
}
