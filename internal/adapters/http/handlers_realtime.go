package web

import (
	"net/http"
	"time"

	eventStore "mms/internal/adapters/storage/event"
	memberStore "mms/internal/adapters/storage/member"
	"mms/internal/application/activity"
)

// collectionStatus is the wire shape of one manager's state.
type collectionStatus struct {
	State    string     `json:"state"`
	Count    int        `json:"count"`
	LastSync *time.Time `json:"lastSync,omitempty"`
	Error    string     `json:"error,omitempty"`
}

func statusOf[T any](state string, items []T, lastSync time.Time, err error) collectionStatus {
	s := collectionStatus{State: state, Count: len(items)}
	if !lastSync.IsZero() {
		s.LastSync = &lastSync
	}
	if err != nil {
		s.Error = err.Error()
	}
	return s
}

func handleRealtimeStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]collectionStatus{
		memberStore.CollectionName: statusOf(string(managers.Members.State()), managers.Members.Items(), managers.Members.LastSync(), managers.Members.Err()),
		eventStore.CollectionName:  statusOf(string(managers.Events.State()), managers.Events.Items(), managers.Events.LastSync(), managers.Events.Err()),
	})
}

// realtimeControls resolves the path's collection name to its manager's
// control functions. Generic managers differ in type parameter, so the
// controls are surfaced as closures. Start runs against the application
// context, not the request's, because the subscription outlives the request.
func realtimeControls(collection string) (start func(), stop func(), fetch func(r *http.Request, force bool) error, ok bool) {
	switch collection {
	case memberStore.CollectionName:
		m := managers.Members
		return func() { m.Start(appCtx) }, m.Stop, func(r *http.Request, force bool) error { return m.Fetch(r.Context(), force) }, true
	case eventStore.CollectionName:
		m := managers.Events
		return func() { m.Start(appCtx) }, m.Stop, func(r *http.Request, force bool) error { return m.Fetch(r.Context(), force) }, true
	}
	return nil, nil, nil, false
}

func handleRealtimeStart(w http.ResponseWriter, r *http.Request) {
	start, _, _, ok := realtimeControls(r.PathValue("collection"))
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}
	start()
	w.WriteHeader(http.StatusNoContent)
}

func handleRealtimeStop(w http.ResponseWriter, r *http.Request) {
	_, stop, _, ok := realtimeControls(r.PathValue("collection"))
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}
	stop()
	w.WriteHeader(http.StatusNoContent)
}

func handleRealtimeFetch(w http.ResponseWriter, r *http.Request) {
	_, _, fetch, ok := realtimeControls(r.PathValue("collection"))
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}
	if err := fetch(r, r.URL.Query().Get("force") == "true"); err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleActivitySignal broadcasts a disconnect or reconnect signal from the
// external idle-detection source.
func handleActivitySignal(w http.ResponseWriter, r *http.Request) {
	var sig activity.Signal
	switch r.PathValue("signal") {
	case string(activity.SignalDisconnect):
		sig = activity.SignalDisconnect
	case string(activity.SignalReconnect):
		sig = activity.SignalReconnect
	default:
		http.Error(w, "unknown signal", http.StatusNotFound)
		return
	}
	signals.Broadcast(sig)
	w.WriteHeader(http.StatusNoContent)
}
