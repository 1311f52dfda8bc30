package web

import (
	"net/http"

	"mms/internal/application/orchestrators"
)

// handleRecordAttendance marks a member present at an event, updating both
// the event's attendance map and the member's embedded history.
func handleRecordAttendance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MemberID    string `json:"memberId"`
		Session1    bool   `json:"session1"`
		Session2    bool   `json:"session2"`
		SubsidyUsed *int   `json:"subsidyUsed"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.MemberID == "" {
		http.Error(w, "memberId is required", http.StatusBadRequest)
		return
	}

	err := orchestrators.ExecuteRecordAttendance(r.Context(), orchestrators.RecordAttendanceInput{
		EventID:     r.PathValue("id"),
		MemberID:    body.MemberID,
		Session1:    body.Session1,
		Session2:    body.Session2,
		SubsidyUsed: body.SubsidyUsed,
	}, orchestrators.RecordAttendanceDeps{
		EventStore:  stores.EventStore,
		MemberStore: stores.MemberStore,
	})
	if err != nil {
		notFoundOrInternal(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleRemoveAttendee(w http.ResponseWriter, r *http.Request) {
	err := orchestrators.ExecuteRemoveAttendee(r.Context(), r.PathValue("id"), r.PathValue("memberId"), orchestrators.RecordAttendanceDeps{
		EventStore:  stores.EventStore,
		MemberStore: stores.MemberStore,
	})
	if err != nil {
		notFoundOrInternal(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
