package eligibility

import (
	event "mms/internal/domain/event"
	domain "mms/internal/domain/member"
)

// Graduation requirement thresholds by number of tracks held.
const (
	RequiredBothTracks  = 5
	RequiredSingleTrack = 3
)

// NCSRecordValid reports whether one NCS attendance record counts toward the
// member's graduation requirement.
// PRE: rec belongs to m's ncsEvents history
// POST: evaluation order is override, sessions, class, declaration date
// INVARIANT: a single-session record without forceValid is never valid
func NCSRecordValid(m *domain.Member, rec domain.NCSAttendance) bool {
	// Administrative override wins unconditionally.
	if rec.ForceValid {
		return true
	}
	if !rec.Session1 || !rec.Session2 {
		return false
	}
	if m.MembershipType != domain.TypeOrdinaryA {
		return true
	}
	// Ordinary A without a declaration date is grandfathered.
	if m.OrdinaryADeclarationDate == "" {
		return true
	}
	eventDay := event.NormalizeDate(rec.Date)
	declarationDay := event.NormalizeDate(m.OrdinaryADeclarationDate)
	// Calendar-date comparison, inclusive of the declaration day itself.
	return eventDay >= declarationDay
}

// ValidNCSCount returns the number of NCS records counting toward
// graduation for m.
// INVARIANT: a cached ncsAttended value takes precedence over recomputation
// so administrative corrections are never silently recomputed away
func ValidNCSCount(m *domain.Member) int {
	if m.NCSAttended != nil {
		return *m.NCSAttended
	}
	count := 0
	for _, rec := range m.NCSEvents {
		if NCSRecordValid(m, rec) {
			count++
		}
	}
	return count
}

// RequiredNCS returns the valid-NCS count a member must reach to graduate:
// 5 with both tracks, 3 with one, 0 with none.
func RequiredNCS(tracks []string) int {
	seen := make(map[string]bool, len(tracks))
	for _, t := range tracks {
		seen[t] = true
	}
	switch len(seen) {
	case 0:
		return 0
	case 1:
		return RequiredSingleTrack
	default:
		return RequiredBothTracks
	}
}

// GraduationComplete reports whether m has met its graduation requirement.
// POST: false whenever the member has no tracks (required count is zero)
func GraduationComplete(m *domain.Member) bool {
	required := RequiredNCS(m.Tracks)
	return required > 0 && ValidNCSCount(m) >= required
}
