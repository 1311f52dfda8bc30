package event

import (
	"errors"
	"strings"
	"time"
)

// Event types.
const (
	TypeISM = "ISM"
	TypeNCS = "NCS"
	TypeISS = "ISS"
)

// Domain errors
var (
	ErrDuplicateNameDate = errors.New("an event with this name and date already exists")
)

// Event holds state for the concept. Attendance maps a member id to that
// member's attendance payload for this event; the payload is stored opaque
// so its fields round-trip unchanged.
type Event struct {
	ID         string                    `bson:"_id,omitempty" json:"id"`
	Name       string                    `bson:"name" json:"name"`
	Date       string                    `bson:"date" json:"date"` // YYYY-MM-DD
	Type       string                    `bson:"type" json:"type"`
	Attendance map[string]map[string]any `bson:"attendance" json:"attendance"`
	CreatedAt  time.Time                 `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time                 `bson:"updatedAt" json:"updatedAt"`
}

// Validate checks if the Event has valid data.
// PRE: Event struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Name must not be empty, Type must be ISM, NCS, or ISS
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return errors.New("event name cannot be empty")
	}
	if NormalizeDate(e.Date) == "" {
		return errors.New("event date must be set")
	}
	if e.Type != TypeISM && e.Type != TypeNCS && e.Type != TypeISS {
		return errors.New("event type must be 'ISM', 'NCS', or 'ISS'")
	}
	return nil
}

// Key returns the normalized identity used to match this event against
// denormalized member history entries.
func (e *Event) Key() Key {
	return NewKey(e.Name, e.Date)
}

// HasAttendee reports whether memberID appears in the attendance map.
// INVARIANT: Attendance map is not mutated
func (e *Event) HasAttendee(memberID string) bool {
	_, ok := e.Attendance[memberID]
	return ok
}

// Key is the normalized (name, calendar date) identity of an event. Member
// history entries carry no event id, so this value identity is the only way
// to match them back to an event. Two live events must never share a Key.
type Key struct {
	Name string
	Date string
}

// NewKey builds a Key from a raw name and date.
// POST: Name is lower-trimmed, Date is reduced to its calendar date
func NewKey(name, date string) Key {
	return Key{
		Name: strings.ToLower(strings.TrimSpace(name)),
		Date: NormalizeDate(date),
	}
}

// Matches reports whether a raw (name, date) pair denotes this key.
func (k Key) Matches(name, date string) bool {
	return NewKey(name, date) == k
}

// NormalizeDate reduces a date value to its local calendar date in
// YYYY-MM-DD form, stripping any time of day. Unparseable values are
// returned trimmed so matching stays purely value-based.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339, "2006-01-02T15:04:05", "02/01/2006", "2/1/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		return s[:10]
	}
	return s
}
