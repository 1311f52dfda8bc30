package member

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// Membership types. Exco is not a type of its own: it is the IsExco flag
// layered on Ordinary A, so an Exco member keeps an Ordinary A tier history.
const (
	TypeOrdinaryA = "Ordinary A"
	TypeOrdinaryB = "Ordinary B"
	TypeAssociate = "Associate"
)

// Student statuses (stored under the wire field "degree").
const (
	StatusUndergraduate = "Undergraduate"
	StatusPostgraduate  = "Postgraduate"
	StatusGraduated     = "Graduated"
)

// Graduation tracks. A member holds at most two.
const (
	TrackITT  = "ITT"
	TrackMBOT = "MBOT"
)

// MaxTracks is the most tracks a member may hold.
const MaxTracks = 2

// Schools recognised by the dashboard.
var Schools = []string{
	"Accountancy",
	"Business",
	"Economics",
	"Computing & Information Systems",
	"Law",
	"Social Sciences",
	"College of Integrative Studies",
}

// Domain errors
var (
	ErrDuplicateCampusID = errors.New("a member with this campus ID already exists")
	ErrCampusIDRequired  = errors.New("campus ID is required")
)

// ISMAttendance is one denormalized ISM attendance fact on a member.
type ISMAttendance struct {
	EventName   string    `bson:"eventName" json:"eventName"`
	SubsidyUsed int       `bson:"subsidyUsed" json:"subsidyUsed"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
}

// NCSAttendance is one denormalized NCS attendance fact on a member.
// Date is a calendar date in YYYY-MM-DD form.
type NCSAttendance struct {
	EventName        string `bson:"eventName" json:"eventName"`
	Date             string `bson:"date" json:"date"`
	Session1         bool   `bson:"session1" json:"session1"`
	Session2         bool   `bson:"session2" json:"session2"`
	ForceValid       bool   `bson:"forceValid" json:"forceValid"`
	ForceValidReason string `bson:"forceValidReason,omitempty" json:"forceValidReason,omitempty"`
}

// ISSAttendance is one denormalized ISS attendance fact on a member.
type ISSAttendance struct {
	EventName string `bson:"eventName" json:"eventName"`
	Date      string `bson:"date" json:"date"`
}

// DynamicField is a free-form admin-defined key/value pair.
type DynamicField struct {
	Key   string `bson:"key" json:"key"`
	Value string `bson:"value" json:"value"`
}

// Member holds state for the concept. Field names in tags are the storage
// contract; export and re-import depend on them and they must not change.
type Member struct {
	ID             string   `bson:"_id,omitempty" json:"id"`
	CampusID       string   `bson:"campusId" json:"campusId"`
	FullName       string   `bson:"fullName" json:"fullName"`
	SchoolEmail    string   `bson:"schoolEmail" json:"schoolEmail"`
	TelegramHandle string   `bson:"telegramHandle" json:"telegramHandle"`
	PhoneNumber    string   `bson:"phoneNumber" json:"phoneNumber"`
	MembershipType string   `bson:"membershipType" json:"membershipType"`
	IsExco         bool     `bson:"isExco" json:"isExco"`
	StudentStatus  string   `bson:"degree" json:"degree"`
	School         string   `bson:"school" json:"school"`
	AdmitYear      int      `bson:"admitYear" json:"admitYear"`
	Tracks         []string `bson:"tracks" json:"tracks"`

	// OrdinaryADeclarationDate is the calendar date (YYYY-MM-DD) the member
	// declared Ordinary A. Empty means grandfathered: all history counts.
	OrdinaryADeclarationDate string `bson:"ordinaryADeclarationDate,omitempty" json:"ordinaryADeclarationDate,omitempty"`

	ISMAttendance []ISMAttendance `bson:"ismAttendance" json:"ismAttendance"`
	NCSEvents     []NCSAttendance `bson:"ncsEvents" json:"ncsEvents"`
	ISSEvents     []ISSAttendance `bson:"issEvents" json:"issEvents"`

	// NCSAttended is the cached valid-NCS count. When present it takes
	// precedence over recomputation so admin corrections survive.
	NCSAttended      *int `bson:"ncsAttended,omitempty" json:"ncsAttended,omitempty"`
	NCSTotalAttended int  `bson:"ncsTotalAttended" json:"ncsTotalAttended"`
	ISSAttended      int  `bson:"issAttended" json:"issAttended"`

	ISMSignup          bool   `bson:"ismSignup" json:"ismSignup"`
	ContributionPaid   bool   `bson:"contributionPaid" json:"contributionPaid"`
	ScholarshipAwarded bool   `bson:"scholarshipAwarded" json:"scholarshipAwarded"`
	ReasonForOrdinaryB string `bson:"reasonForOrdinaryB" json:"reasonForOrdinaryB"`

	// SubsidyOverride, when set, replaces the computed next subsidy rate.
	SubsidyOverride *int `bson:"subsidyOverride,omitempty" json:"subsidyOverride,omitempty"`

	DynamicFields   []DynamicField `bson:"dynamicFields" json:"dynamicFields"`
	AddedToTelegram bool           `bson:"addedToTelegram" json:"addedToTelegram"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether email has the expected user@host.tld shape.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: FullName must not be empty, enumerated fields hold canonical values
func (m *Member) Validate() error {
	if strings.TrimSpace(m.FullName) == "" {
		return errors.New("member name cannot be empty")
	}
	if len(m.FullName) > MaxNameLength {
		return errors.New("member name cannot exceed 100 characters")
	}
	if m.SchoolEmail != "" && !IsValidEmail(m.SchoolEmail) {
		return errors.New("member email must be valid")
	}
	if m.MembershipType != TypeOrdinaryA && m.MembershipType != TypeOrdinaryB && m.MembershipType != TypeAssociate {
		return errors.New("membership type must be 'Ordinary A', 'Ordinary B', or 'Associate'")
	}
	if m.IsExco && m.MembershipType != TypeOrdinaryA {
		return errors.New("only Ordinary A members can be Exco")
	}
	if m.StudentStatus != StatusUndergraduate && m.StudentStatus != StatusPostgraduate && m.StudentStatus != StatusGraduated {
		return errors.New("student status must be 'Undergraduate', 'Postgraduate', or 'Graduated'")
	}
	if len(m.Tracks) > MaxTracks {
		return errors.New("member cannot hold more than 2 tracks")
	}
	for _, t := range m.Tracks {
		if t != TrackITT && t != TrackMBOT {
			return errors.New("track must be 'ITT' or 'MBOT'")
		}
	}
	return nil
}

// SubsidyHistory returns the ordered list of subsidy percentages this member
// has already used, extracted from the ISM attendance history.
// INVARIANT: history order follows ismAttendance order; no entries are skipped
func (m *Member) SubsidyHistory() []int {
	history := make([]int, 0, len(m.ISMAttendance))
	for _, a := range m.ISMAttendance {
		history = append(history, a.SubsidyUsed)
	}
	return history
}

// FormatPhoneNumber strips a phone number down to its digits.
func FormatPhoneNumber(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatTelegramHandle ensures a telegram handle carries the @ prefix.
func FormatTelegramHandle(handle string) string {
	trimmed := strings.TrimSpace(handle)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "@") {
		return trimmed
	}
	return "@" + trimmed
}
