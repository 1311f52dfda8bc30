package orchestrators

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	memberStore "mms/internal/adapters/storage/member"
	"mms/internal/domain/eligibility"
	domain "mms/internal/domain/member"
)

// exportColumns is the export header row. Column titles are part of the
// import/export round-trip contract.
var exportColumns = []string{
	"Campus ID",
	"Full Name",
	"Admit Year",
	"Student Status",
	"School",
	"Membership Type",
	"Ordinary A Declaration Date",
	"Tracks (comma-separated)",
	"School Email",
	"Telegram Handle",
	"Added to Telegram Group (1=Yes, 0=No)",
	"Phone Number",
	"ISM Attendance",
	"Total ISM Count",
	"Next Subsidy Rate",
	"Total NCS Attended",
	"Valid NCS (Counting Toward Graduation)",
	"NCS Events (comma-separated)",
	"ISS Attended",
	"ISS Events (comma-separated)",
	"Scholarship Eligible",
	"Scholarship Awarded",
	"Reason for Ordinary B",
	"Dynamic Fields",
	"Created At",
	"Updated At",
}

// ExportMembersDeps holds external dependencies for the export orchestrator.
type ExportMembersDeps struct {
	MemberStore memberStore.Store
}

// ExecuteExportMembers writes every member as one CSV row on w.
// POST: Returns the number of member rows written; attendance histories are
//
//	flattened into the same textual forms the import parses back
func ExecuteExportMembers(ctx context.Context, w io.Writer, deps ExportMembersDeps) (int, error) {
	members, err := deps.MemberStore.List(ctx)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		return 0, err
	}
	for i := range members {
		if err := cw.Write(exportRow(&members[i])); err != nil {
			return i, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(members), err
	}

	slog.Info("members_exported", "count", len(members))
	return len(members), nil
}

func exportRow(m *domain.Member) []string {
	membershipType := m.MembershipType
	if m.IsExco {
		membershipType = "Exco"
	}
	scholarshipEligible := "NO"
	if eligibility.ScholarshipEligible(m) {
		scholarshipEligible = "YES"
	}

	return []string{
		m.CampusID,
		m.FullName,
		strconv.Itoa(m.AdmitYear),
		m.StudentStatus,
		m.School,
		membershipType,
		m.OrdinaryADeclarationDate,
		strings.Join(m.Tracks, ", "),
		m.SchoolEmail,
		m.TelegramHandle,
		boolDigit(m.AddedToTelegram),
		m.PhoneNumber,
		FlattenISMAttendance(m.ISMAttendance),
		strconv.Itoa(len(m.ISMAttendance)),
		fmt.Sprintf("%d%%", eligibility.MemberNextSubsidyRate(m)),
		strconv.Itoa(m.NCSTotalAttended),
		strconv.Itoa(eligibility.ValidNCSCount(m)),
		FlattenNCSEvents(m.NCSEvents),
		strconv.Itoa(m.ISSAttended),
		FlattenISSEvents(m.ISSEvents),
		scholarshipEligible,
		boolWord(m.ScholarshipAwarded),
		m.ReasonForOrdinaryB,
		flattenDynamicFields(m.DynamicFields),
		formatTimestamp(m.CreatedAt),
		formatTimestamp(m.UpdatedAt),
	}
}

// FlattenISMAttendance joins ISM history as "name:rate" pairs, the same form
// the import parses.
func FlattenISMAttendance(records []domain.ISMAttendance) string {
	parts := make([]string, 0, len(records))
	for _, rec := range records {
		parts = append(parts, fmt.Sprintf("%s:%d", rec.EventName, rec.SubsidyUsed))
	}
	return strings.Join(parts, ", ")
}

// FlattenNCSEvents joins NCS history using bracket notation: the bare name
// when both sessions were attended and nothing was forced, otherwise the
// attended session numbers and an F:reason marker inside brackets.
func FlattenNCSEvents(records []domain.NCSAttendance) string {
	parts := make([]string, 0, len(records))
	for _, rec := range records {
		var sessions []string
		if rec.Session1 {
			sessions = append(sessions, "1")
		}
		if rec.Session2 {
			sessions = append(sessions, "2")
		}

		var bracket []string
		if !(rec.Session1 && rec.Session2) {
			bracket = append(bracket, strings.Join(sessions, ","))
		}
		if rec.ForceValid {
			bracket = append(bracket, "F:"+rec.ForceValidReason)
		}

		if len(bracket) == 0 {
			parts = append(parts, rec.EventName)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s[%s]", rec.EventName, strings.Join(bracket, ",")))
	}
	return strings.Join(parts, ", ")
}

// FlattenISSEvents joins ISS history names with semicolons.
func FlattenISSEvents(records []domain.ISSAttendance) string {
	parts := make([]string, 0, len(records))
	for _, rec := range records {
		parts = append(parts, rec.EventName)
	}
	return strings.Join(parts, "; ")
}

func flattenDynamicFields(fields []domain.DynamicField) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Key+": "+f.Value)
	}
	return strings.Join(parts, "; ")
}

func boolDigit(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func boolWord(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// WriteMemberTemplate writes an empty import sheet: the import header row
// plus one example row showing the expected value formats.
func WriteMemberTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{
		"Campus ID", "Full Name", "School Email", "Admit Year",
		"Membership Type", "Student Status", "School",
		"Tracks (comma-separated)", "Telegram Handle", "Phone Number",
		"ISM Attendance", "NCS Attended", "ISS Attended",
		"Scholarship Awarded", "Reason for Ordinary B",
		"Subsidy Override (%)", "ISM Signup", "Contribution Paid",
	}
	example := []string{
		"01234567", "JOHN DOE", "johndoe@email.com", "2024",
		"Ordinary A", "Undergraduate", "Computing & Information Systems",
		"ITT, MBOT", "@johndoe", "91234567",
		"ISM Beijing 2024:90, ISM Shanghai 2024:70", "0", "0",
		"FALSE", "", "", "FALSE", "FALSE",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.Write(example); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
