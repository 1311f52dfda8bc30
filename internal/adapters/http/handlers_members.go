package web

import (
	"errors"
	"net/http"

	"mms/internal/application/orchestrators"
	domain "mms/internal/domain/member"
)

// handleListMembers serves the cached snapshot, refreshing it through the
// throttled fetch path first.
func handleListMembers(w http.ResponseWriter, r *http.Request) {
	if managers != nil && managers.Members != nil {
		force := r.URL.Query().Get("force") == "true"
		if err := managers.Members.Fetch(r.Context(), force); err != nil {
			internalError(w, err)
			return
		}
		items := managers.Members.Items()
		if items == nil {
			items = []domain.Member{}
		}
		writeJSON(w, http.StatusOK, items)
		return
	}

	list, err := stores.MemberStore.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	if list == nil {
		list = []domain.Member{}
	}
	writeJSON(w, http.StatusOK, list)
}

func handleGetMember(w http.ResponseWriter, r *http.Request) {
	m, err := stores.MemberStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		notFoundOrInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func handleAddMember(w http.ResponseWriter, r *http.Request) {
	var m domain.Member
	if err := strictDecode(r, &m); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := orchestrators.ExecuteAddMember(r.Context(), m, orchestrators.AddMemberDeps{
		MemberStore: stores.MemberStore,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateCampusID):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, domain.ErrCampusIDRequired):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			internalError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var fields map[string]any
	if err := strictDecode(r, &fields); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	delete(fields, "_id")
	if len(fields) == 0 {
		http.Error(w, "no fields to update", http.StatusBadRequest)
		return
	}

	// Moving the natural key onto another member's value is a conflict.
	if raw, ok := fields["campusId"].(string); ok && raw != "" {
		existing, found, err := stores.MemberStore.FindByCampusID(r.Context(), raw)
		if err != nil {
			internalError(w, err)
			return
		}
		if found && existing.ID != id {
			http.Error(w, domain.ErrDuplicateCampusID.Error(), http.StatusConflict)
			return
		}
	}

	if err := stores.MemberStore.Update(r.Context(), id, fields); err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteMember removes the member and sweeps their attendee entries
// out of every event document first.
func handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	result, err := orchestrators.ExecuteDeleteMember(r.Context(), r.PathValue("id"), orchestrators.DeleteMemberDeps{
		MemberStore: stores.MemberStore,
		EventStore:  stores.EventStore,
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
