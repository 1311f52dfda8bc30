package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"mms/internal/adapters/storage"
	"mms/internal/application/activity"
	"mms/internal/application/realtime"
	eventDomain "mms/internal/domain/event"
	memberDomain "mms/internal/domain/member"
)

// errNotFound matches the sentinel the handlers map to 404.
var errNotFound = mongo.ErrNoDocuments

// stubMemberStore implements the member store interface in memory.
type stubMemberStore struct {
	mu     sync.Mutex
	byID   map[string]memberDomain.Member
	order  []string
	nextID int
}

func newStubMemberStore() *stubMemberStore {
	return &stubMemberStore{byID: make(map[string]memberDomain.Member)}
}

func (s *stubMemberStore) add(m memberDomain.Member) string {
	s.nextID++
	if m.ID == "" {
		m.ID = fmt.Sprintf("m-%d", s.nextID)
	}
	s.byID[m.ID] = m
	s.order = append(s.order, m.ID)
	return m.ID
}

func (s *stubMemberStore) GetByID(_ context.Context, id string) (memberDomain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return memberDomain.Member{}, fmt.Errorf("member not found: %w", errNotFound)
	}
	return m, nil
}

func (s *stubMemberStore) FindByCampusID(_ context.Context, campusID string) (memberDomain.Member, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if s.byID[id].CampusID == campusID {
			return s.byID[id], true, nil
		}
	}
	return memberDomain.Member{}, false, nil
}

func (s *stubMemberStore) List(_ context.Context) ([]memberDomain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]memberDomain.Member, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *stubMemberStore) Save(_ context.Context, m memberDomain.Member) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(m), nil
}

func (s *stubMemberStore) Update(_ context.Context, id string, _ map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("member not found")
	}
	return nil
}

func (s *stubMemberStore) UpsertByCampusID(_ context.Context, campusID string, _ map[string]any) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if s.byID[id].CampusID == campusID {
			return id, "updated", nil
		}
	}
	return s.add(memberDomain.Member{CampusID: campusID}), "added", nil
}

func (s *stubMemberStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *stubMemberStore) BatchUpdate(_ context.Context, _ []storage.UpdateOp) error { return nil }

func (s *stubMemberStore) Subscribe(_ context.Context, _ func([]memberDomain.Member), _ func(error)) (func(), error) {
	return func() {}, nil
}

// stubEventStore implements the event store interface in memory.
type stubEventStore struct {
	mu     sync.Mutex
	byID   map[string]eventDomain.Event
	order  []string
	nextID int
}

func newStubEventStore() *stubEventStore {
	return &stubEventStore{byID: make(map[string]eventDomain.Event)}
}

func (s *stubEventStore) add(ev eventDomain.Event) string {
	s.nextID++
	if ev.ID == "" {
		ev.ID = fmt.Sprintf("e-%d", s.nextID)
	}
	s.byID[ev.ID] = ev
	s.order = append(s.order, ev.ID)
	return ev.ID
}

func (s *stubEventStore) GetByID(_ context.Context, id string) (eventDomain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.byID[id]
	if !ok {
		return eventDomain.Event{}, fmt.Errorf("event not found: %w", errNotFound)
	}
	return ev, nil
}

func (s *stubEventStore) List(_ context.Context) ([]eventDomain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]eventDomain.Event, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *stubEventStore) Save(_ context.Context, ev eventDomain.Event) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(ev), nil
}

func (s *stubEventStore) Update(_ context.Context, id string, _ map[string]any) error { return nil }

func (s *stubEventStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *stubEventStore) SetAttendee(_ context.Context, _, _ string, _ map[string]any) error {
	return nil
}

func (s *stubEventStore) RemoveAttendee(_ context.Context, _, _ string) error { return nil }

func (s *stubEventStore) BatchUpdate(_ context.Context, _ []storage.UpdateOp) error { return nil }

func (s *stubEventStore) Subscribe(_ context.Context, _ func([]eventDomain.Event), _ func(error)) (func(), error) {
	return func() {}, nil
}

func newTestMux(t *testing.T) (http.Handler, *stubMemberStore, *stubEventStore) {
	t.Helper()
	ms := newStubMemberStore()
	es := newStubEventStore()
	s := &Stores{MemberStore: ms, EventStore: es}
	m := &Managers{
		Members: realtime.NewManager[memberDomain.Member]("members", ms, time.Nanosecond),
		Events:  realtime.NewManager[eventDomain.Event]("events", es, time.Nanosecond),
	}
	return NewMux(context.Background(), s, m, activity.NewRegistry()), ms, es
}

func TestHealthEndpoint(t *testing.T) {
	mux, _, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rec.Code)
	}
}

func TestAddMember_DuplicateCampusIDConflicts(t *testing.T) {
	mux, ms, _ := newTestMux(t)
	ms.add(memberDomain.Member{CampusID: "01111111", FullName: "ALICE TAN"})

	body := `{"campusId":"01111111","fullName":"ALICE AGAIN","membershipType":"Ordinary A","degree":"Undergraduate"}`
	req := httptest.NewRequest("POST", "/api/members", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d want 409, body=%s", rec.Code, rec.Body.String())
	}
}

func TestAddMember_CreatesAndReturnsID(t *testing.T) {
	mux, _, _ := newTestMux(t)
	body := `{"campusId":"01111111","fullName":"ALICE TAN","membershipType":"Ordinary A","degree":"Undergraduate"}`
	req := httptest.NewRequest("POST", "/api/members", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d want 201, body=%s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp["id"] == "" {
		t.Fatalf("body=%s want an id", rec.Body.String())
	}
}

func TestListMembers_ServesSnapshot(t *testing.T) {
	mux, ms, _ := newTestMux(t)
	ms.add(memberDomain.Member{CampusID: "01111111", FullName: "ALICE TAN"})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/members", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rec.Code)
	}
	var list []memberDomain.Member
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(list) != 1 || list[0].FullName != "ALICE TAN" {
		t.Errorf("list=%v", list)
	}
}

func TestCreateEvent_DuplicateIdentityConflicts(t *testing.T) {
	mux, _, es := newTestMux(t)
	es.add(eventDomain.Event{Name: "Welfare Drive", Date: "2024-03-01", Type: eventDomain.TypeISM})

	body := `{"name":"welfare drive","date":"2024-03-01T18:00:00Z","type":"ISM"}`
	req := httptest.NewRequest("POST", "/api/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d want 409, body=%s", rec.Code, rec.Body.String())
	}
}

func TestGetEvent_UnknownIs404(t *testing.T) {
	mux, _, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/events/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rec.Code)
	}
}

func TestRecordAttendance_RequiresMemberID(t *testing.T) {
	mux, _, es := newTestMux(t)
	evID := es.add(eventDomain.Event{Name: "ISS Welcome", Date: "2024-08-01", Type: eventDomain.TypeISS})

	req := httptest.NewRequest("POST", "/api/events/"+evID+"/attendance", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rec.Code)
	}
}

func TestRealtimeStatus_ReportsBothCollections(t *testing.T) {
	mux, _, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/realtime/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rec.Code)
	}
	var status map[string]collectionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if _, ok := status["members"]; !ok {
		t.Error("missing members status")
	}
	if _, ok := status["events"]; !ok {
		t.Error("missing events status")
	}
}

func TestRealtimeControls_UnknownCollectionIs404(t *testing.T) {
	mux, _, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/realtime/widgets/start", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rec.Code)
	}
}

func TestActivitySignal_UnknownIs404(t *testing.T) {
	mux, _, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/activity/hibernate", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rec.Code)
	}
}

func TestImportMembers_MissingFileIs400(t *testing.T) {
	mux, _, _ := newTestMux(t)
	req := httptest.NewRequest("POST", "/api/members/import", strings.NewReader("not a form"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rec.Code)
	}
}

func TestMemberTemplate_ServesCSV(t *testing.T) {
	mux, _, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/members/template", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type=%q want text/csv", ct)
	}
	if !strings.Contains(rec.Body.String(), "Campus ID") {
		t.Error("template body missing header row")
	}
}
