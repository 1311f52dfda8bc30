package web

import (
	"errors"
	"net/http"

	"mms/internal/application/orchestrators"
	domain "mms/internal/domain/event"
)

func handleListEvents(w http.ResponseWriter, r *http.Request) {
	if managers != nil && managers.Events != nil {
		force := r.URL.Query().Get("force") == "true"
		if err := managers.Events.Fetch(r.Context(), force); err != nil {
			internalError(w, err)
			return
		}
		items := managers.Events.Items()
		if items == nil {
			items = []domain.Event{}
		}
		writeJSON(w, http.StatusOK, items)
		return
	}

	list, err := stores.EventStore.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	if list == nil {
		list = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, list)
}

func handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := stores.EventStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		notFoundOrInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var ev domain.Event
	if err := strictDecode(r, &ev); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := orchestrators.ExecuteCreateEvent(r.Context(), ev, orchestrators.CreateEventDeps{
		EventStore: stores.EventStore,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateNameDate) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// handleUpdateEvent renames an event and propagates the identity change
// into every member's embedded attendance entries.
func handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		Date string `json:"date"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteUpdateEvent(r.Context(), orchestrators.UpdateEventInput{
		EventID: r.PathValue("id"),
		Name:    body.Name,
		Date:    body.Date,
	}, orchestrators.UpdateEventDeps{
		EventStore:  stores.EventStore,
		MemberStore: stores.MemberStore,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateNameDate) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		notFoundOrInternal(w, err)
		return
	}
	if !result.Updated {
		writeJSON(w, http.StatusConflict, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := stores.EventStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		notFoundOrInternal(w, err)
		return
	}

	result, err := orchestrators.ExecuteDeleteEvent(r.Context(), ev, orchestrators.DeleteEventDeps{
		EventStore:  stores.EventStore,
		MemberStore: stores.MemberStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	if !result.Deleted {
		writeJSON(w, http.StatusConflict, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
