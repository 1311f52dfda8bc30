// Package web exposes the JSON API over the membership stores, the
// attendance orchestrators and the realtime subscription managers.
package web

import (
	"context"
	"net/http"
	"time"

	"mms/internal/adapters/email"
	eventStore "mms/internal/adapters/storage/event"
	memberStore "mms/internal/adapters/storage/member"
	"mms/internal/application/activity"
	"mms/internal/application/realtime"
	eventDomain "mms/internal/domain/event"
	memberDomain "mms/internal/domain/member"
)

// Stores holds all storage dependencies.
type Stores struct {
	MemberStore memberStore.Store
	EventStore  eventStore.Store
}

// Managers holds the realtime subscription manager per collection.
type Managers struct {
	Members *realtime.Manager[memberDomain.Member]
	Events  *realtime.Manager[eventDomain.Event]
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global realtime managers (set by NewMux)
var managers *Managers

// Global activity registry (set by NewMux)
var signals *activity.Registry

// Application context for work that outlives a request (set by NewMux)
var appCtx context.Context = context.Background()

// Global email sender instance (set by SetEmailSender)
var emailSender email.Sender

// importReportTo is the address import summaries are mailed to.
var importReportTo string

// timeNow is a variable for testability.
var timeNow = time.Now

// SetEmailSender sets the global email sender and the import report recipient.
func SetEmailSender(sender email.Sender, reportTo string) {
	emailSender = sender
	importReportTo = reportTo
}

// NewMux wires HTTP handlers for the app. ctx is the application lifetime
// context used by work that outlives a single request.
func NewMux(ctx context.Context, s *Stores, m *Managers, reg *activity.Registry) http.Handler {
	appCtx = ctx
	stores = s
	managers = m
	signals = reg

	mux := http.NewServeMux()
	registerRoutes(mux)
	return mux
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)

	mux.HandleFunc("GET /api/members", handleListMembers)
	mux.HandleFunc("POST /api/members", handleAddMember)
	mux.HandleFunc("GET /api/members/{id}", handleGetMember)
	mux.HandleFunc("PATCH /api/members/{id}", handleUpdateMember)
	mux.HandleFunc("DELETE /api/members/{id}", handleDeleteMember)

	mux.HandleFunc("POST /api/members/import", handleImportMembers)
	mux.HandleFunc("GET /api/members/export", handleExportMembers)
	mux.HandleFunc("GET /api/members/template", handleMemberTemplate)

	mux.HandleFunc("GET /api/events", handleListEvents)
	mux.HandleFunc("POST /api/events", handleCreateEvent)
	mux.HandleFunc("GET /api/events/{id}", handleGetEvent)
	mux.HandleFunc("PATCH /api/events/{id}", handleUpdateEvent)
	mux.HandleFunc("DELETE /api/events/{id}", handleDeleteEvent)

	mux.HandleFunc("POST /api/events/{id}/attendance", handleRecordAttendance)
	mux.HandleFunc("DELETE /api/events/{id}/attendance/{memberId}", handleRemoveAttendee)

	mux.HandleFunc("GET /api/realtime/status", handleRealtimeStatus)
	mux.HandleFunc("POST /api/realtime/{collection}/start", handleRealtimeStart)
	mux.HandleFunc("POST /api/realtime/{collection}/stop", handleRealtimeStop)
	mux.HandleFunc("POST /api/realtime/{collection}/fetch", handleRealtimeFetch)
	mux.HandleFunc("POST /api/activity/{signal}", handleActivitySignal)
}
