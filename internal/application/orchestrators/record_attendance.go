package orchestrators

import (
	"context"
	"log/slog"
	"time"

	eventStore "mms/internal/adapters/storage/event"
	memberStore "mms/internal/adapters/storage/member"
	eventDomain "mms/internal/domain/event"
	"mms/internal/domain/eligibility"
	domain "mms/internal/domain/member"
)

// RecordAttendanceInput marks one member's attendance at one event. For NCS
// events Session1/Session2 carry the attended sessions; for ISM events
// SubsidyUsed overrides the computed next subsidy rate when set.
type RecordAttendanceInput struct {
	EventID     string
	MemberID    string
	Session1    bool
	Session2    bool
	SubsidyUsed *int
}

// RecordAttendanceDeps holds external dependencies for attendance marking.
type RecordAttendanceDeps struct {
	EventStore  eventStore.Store
	MemberStore memberStore.Store
}

// ExecuteRecordAttendance writes one attendance fact to both of its homes:
// the authoritative history list on the member and the mirror entry in the
// event's attendance map.
// PRE: the event and member both exist
// POST: Re-marking an already-recorded NCS event updates its sessions in
//
//	place instead of duplicating the entry; cached counters stay in step
//	with the history lists
func ExecuteRecordAttendance(ctx context.Context, input RecordAttendanceInput, deps RecordAttendanceDeps) error {
	ev, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return err
	}
	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return err
	}

	var fields map[string]any
	var payload map[string]any

	switch ev.Type {
	case eventDomain.TypeISM:
		rate := eligibility.MemberNextSubsidyRate(&m)
		if input.SubsidyUsed != nil {
			rate = *input.SubsidyUsed
		}
		now := time.Now()
		list := append(append([]domain.ISMAttendance{}, m.ISMAttendance...), domain.ISMAttendance{
			EventName:   ev.Name,
			SubsidyUsed: rate,
			Timestamp:   now,
		})
		fields = map[string]any{"ismAttendance": list}
		payload = map[string]any{"subsidyUsed": rate, "timestamp": now}

	case eventDomain.TypeNCS:
		rec := domain.NCSAttendance{
			EventName: ev.Name,
			Date:      eventDomain.NormalizeDate(ev.Date),
			Session1:  input.Session1,
			Session2:  input.Session2,
		}
		fields = ncsUpsertFields(&m, ev.Key(), rec)
		payload = map[string]any{"session1": input.Session1, "session2": input.Session2}

	case eventDomain.TypeISS:
		key := ev.Key()
		already := false
		for _, rec := range m.ISSEvents {
			if key.Matches(rec.EventName, rec.Date) {
				already = true
				break
			}
		}
		if !already {
			list := append(append([]domain.ISSAttendance{}, m.ISSEvents...), domain.ISSAttendance{
				EventName: ev.Name,
				Date:      eventDomain.NormalizeDate(ev.Date),
			})
			fields = map[string]any{
				"issEvents":   list,
				"issAttended": m.ISSAttended + 1,
			}
		}
		payload = map[string]any{"attended": true}
	}

	if fields != nil {
		if err := deps.MemberStore.Update(ctx, m.ID, fields); err != nil {
			return err
		}
	}
	if err := deps.EventStore.SetAttendee(ctx, ev.ID, m.ID, payload); err != nil {
		return err
	}

	slog.Info("attendance_recorded", "event_id", ev.ID, "member_id", m.ID, "type", ev.Type)
	return nil
}

// ncsUpsertFields merges one NCS record into the member's history: an entry
// matching the event key is replaced, anything else is appended. The cached
// counters move by the difference the merge makes.
func ncsUpsertFields(m *domain.Member, key eventDomain.Key, rec domain.NCSAttendance) map[string]any {
	list := make([]domain.NCSAttendance, len(m.NCSEvents))
	copy(list, m.NCSEvents)

	replacedValid := 0
	replaced := false
	for i := range list {
		if key.Matches(list[i].EventName, list[i].Date) {
			// Preserve an existing administrative override on re-mark.
			rec.ForceValid = list[i].ForceValid
			rec.ForceValidReason = list[i].ForceValidReason
			if eligibility.NCSRecordValid(m, list[i]) {
				replacedValid = 1
			}
			list[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, rec)
	}

	fields := map[string]any{"ncsEvents": list}
	if !replaced {
		fields["ncsTotalAttended"] = m.NCSTotalAttended + 1
	}
	if m.NCSAttended != nil {
		newValid := 0
		if eligibility.NCSRecordValid(m, rec) {
			newValid = 1
		}
		fields["ncsAttended"] = floorAtZero(*m.NCSAttended - replacedValid + newValid)
	}
	return fields
}

// ExecuteRemoveAttendee undoes one member's attendance at one event on both
// sides of the mirror.
// POST: The member's matching history entry is gone with its counters
//
//	decremented floored at zero, and the member's id is unset from the
//	event's attendance map; both steps are idempotent
func ExecuteRemoveAttendee(ctx context.Context, eventID, memberID string, deps RecordAttendanceDeps) error {
	ev, err := deps.EventStore.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	m, err := deps.MemberStore.GetByID(ctx, memberID)
	if err != nil {
		return err
	}

	if fields, matched := removalFields(&m, ev.Type, ev.Key()); matched {
		if err := deps.MemberStore.Update(ctx, m.ID, fields); err != nil {
			return err
		}
	}
	if err := deps.EventStore.RemoveAttendee(ctx, ev.ID, m.ID); err != nil {
		return err
	}

	slog.Info("attendee_removed", "event_id", ev.ID, "member_id", m.ID)
	return nil
}
