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

	"mms/internal/adapters/email"
	memberStore "mms/internal/adapters/storage/member"
	domain "mms/internal/domain/member"
	"mms/internal/domain/eligibility"
)

// Import modes. Full mode demands the complete column set and overwrites
// every listed field; partial mode validates and merges only the columns
// actually present, leaving everything else on the target record untouched.
const (
	ImportModeFull    = "full"
	ImportModePartial = "partial"
)

// ImportMembersInput carries the parsed CSV reader and import options.
// PRE: Reader is a valid CSV stream with a header row.
// POST: Returns aggregate counts and per-row errors; writes are skipped when DryRun=true.
// INVARIANT: Existing members are never deleted; IDs are preserved on update.
type ImportMembersInput struct {
	Reader     io.Reader
	Mode       string
	DryRun     bool
	OnProgress func(ImportProgress)
}

// ImportProgress is one incremental progress notification during an import run.
type ImportProgress struct {
	Current    int
	Total      int
	Percentage int
}

// ImportRowError describes why one CSV row failed validation.
type ImportRowError struct {
	Row    int
	Errors []string
}

// ImportRowFailure describes a store failure while writing one valid row.
type ImportRowFailure struct {
	Row      int
	CampusID string
	Error    string
}

// MemberDraft is one validated, normalized row ready to upsert. Fields maps
// storage wire names to their parsed values; in partial mode it holds only
// the columns present in the input.
type MemberDraft struct {
	Row      int
	CampusID string
	Fields   map[string]any
}

// ImportParseResult is the outcome of the parse/validate stage.
type ImportParseResult struct {
	Valid     []MemberDraft
	Invalid   []ImportRowError
	TotalRows int
	Unknown   []string
}

// ImportMembersResult holds aggregate counts and per-row errors from an import run.
type ImportMembersResult struct {
	TotalRows int
	Added     int
	Updated   int
	Invalid   []ImportRowError
	Failed    []ImportRowFailure
	DryRun    bool
	Unknown   []string
}

// ImportMembersDeps holds external dependencies for the import orchestrator.
// EmailSender and ReportTo are optional; when both are set a summary email
// is sent after each non-dry run.
type ImportMembersDeps struct {
	MemberStore memberStore.Store
	EmailSender email.Sender
	ReportTo    string
}

// ImportValidationError is returned when the CSV structure is invalid (e.g. missing required columns).
type ImportValidationError struct {
	Message string
}

// Error implements the error interface.
func (e *ImportValidationError) Error() string {
	return e.Message
}

var knownColumns = map[string]bool{
	"CAMPUS ID": true, "FULL NAME": true, "SCHOOL EMAIL": true,
	"ADMIT YEAR": true, "MEMBERSHIP TYPE": true, "STUDENT STATUS": true,
	"SCHOOL": true, "TRACKS (COMMA-SEPARATED)": true, "TELEGRAM HANDLE": true,
	"PHONE NUMBER": true, "ISM ATTENDANCE": true, "NCS ATTENDED": true,
	"ISS ATTENDED": true, "SCHOLARSHIP AWARDED": true,
	"REASON FOR ORDINARY B": true, "SUBSIDY OVERRIDE (%)": true,
	"ISM SIGNUP": true, "CONTRIBUTION PAID": true,
}

// ParseMemberRows validates and normalizes raw CSV rows into member drafts.
// PRE: r contains a CSV with a header row including CAMPUS ID and FULL NAME
// POST: Every input row lands in Valid or Invalid; a campus id repeated
//
//	within the file is an error on the second and later occurrences
//
// INVARIANT: unrecognized enumerated values fail the row; malformed ISM and
// track sub-entries are dropped silently (documented import behavior)
func ParseMemberRows(r io.Reader, mode string) (ImportParseResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return ImportParseResult{}, err
	}

	colIdx := make(map[string]int, len(header))
	var unknownCols []string
	for i, h := range header {
		name := strings.ToUpper(strings.TrimSpace(h))
		colIdx[name] = i
		if !knownColumns[name] {
			unknownCols = append(unknownCols, h)
		}
	}

	if _, ok := colIdx["CAMPUS ID"]; !ok {
		return ImportParseResult{}, &ImportValidationError{Message: "CSV missing required column: CAMPUS ID"}
	}
	if _, ok := colIdx["FULL NAME"]; !ok {
		return ImportParseResult{}, &ImportValidationError{Message: "CSV missing required column: FULL NAME"}
	}

	has := func(col string) bool {
		_, ok := colIdx[col]
		return ok
	}
	getCol := func(row []string, col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	result := ImportParseResult{Unknown: unknownCols}
	seenCampusIDs := make(map[string]bool)
	rowNum := 1

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		result.TotalRows++
		if err != nil {
			// A malformed row fails that row only; parsing continues.
			result.Invalid = append(result.Invalid, ImportRowError{Row: rowNum, Errors: []string{err.Error()}})
			continue
		}

		var errs []string
		fields := make(map[string]any)

		campusID := getCol(row, "CAMPUS ID")
		if campusID == "" {
			errs = append(errs, "Campus ID is required")
		} else if seenCampusIDs[campusID] {
			errs = append(errs, "Duplicate Campus ID in this file")
		} else {
			seenCampusIDs[campusID] = true
		}

		fullName := getCol(row, "FULL NAME")
		if fullName == "" {
			errs = append(errs, "Full Name is required")
		} else {
			fields["fullName"] = strings.ToUpper(fullName)
		}

		full := mode != ImportModePartial

		if rawEmail := getCol(row, "SCHOOL EMAIL"); rawEmail != "" {
			if !domain.IsValidEmail(rawEmail) {
				errs = append(errs, "Invalid email format")
			} else {
				fields["schoolEmail"] = strings.ToLower(rawEmail)
			}
		} else if full {
			errs = append(errs, "School Email is required")
		}

		if rawYear := getCol(row, "ADMIT YEAR"); rawYear != "" {
			year, err := strconv.Atoi(rawYear)
			if err != nil {
				errs = append(errs, "Admit Year must be a number")
			} else {
				fields["admitYear"] = year
			}
		} else if full {
			errs = append(errs, "Admit Year is required")
		}

		if rawType := getCol(row, "MEMBERSHIP TYPE"); rawType != "" {
			membershipType, isExco, ok := domain.NormalizeMembershipType(rawType)
			if !ok {
				errs = append(errs, "Invalid Membership Type. Must be one of: Exco, Ordinary A, Ordinary B, Associate")
			} else {
				fields["membershipType"] = membershipType
				fields["isExco"] = isExco
			}
		} else if full {
			errs = append(errs, "Membership Type is required")
		}

		if rawStatus := getCol(row, "STUDENT STATUS"); rawStatus != "" {
			status, ok := domain.NormalizeStudentStatus(rawStatus)
			if !ok {
				errs = append(errs, "Invalid Student Status. Must be one of: Undergraduate, Postgraduate, Graduated")
			} else {
				fields["degree"] = status
			}
		} else if full {
			fields["degree"] = domain.StatusUndergraduate
		}

		if rawSchool := getCol(row, "SCHOOL"); rawSchool != "" {
			school, ok := domain.NormalizeSchool(rawSchool)
			if !ok {
				errs = append(errs, "Invalid School: "+rawSchool)
			} else {
				fields["school"] = school
			}
		} else if full {
			errs = append(errs, "School is required")
		}

		if has("TRACKS (COMMA-SEPARATED)") {
			if raw := getCol(row, "TRACKS (COMMA-SEPARATED)"); raw != "" || full {
				fields["tracks"] = parseTracks(raw)
			}
		}
		if has("TELEGRAM HANDLE") {
			if raw := getCol(row, "TELEGRAM HANDLE"); raw != "" || full {
				fields["telegramHandle"] = domain.FormatTelegramHandle(raw)
			}
		}
		if has("PHONE NUMBER") {
			if raw := getCol(row, "PHONE NUMBER"); raw != "" || full {
				fields["phoneNumber"] = domain.FormatPhoneNumber(raw)
			}
		}
		if has("ISM ATTENDANCE") {
			if raw := getCol(row, "ISM ATTENDANCE"); raw != "" || full {
				fields["ismAttendance"] = parseISMAttendance(raw, time.Now())
			}
		}
		if has("NCS ATTENDED") || full {
			n, _ := strconv.Atoi(getCol(row, "NCS ATTENDED"))
			fields["ncsAttended"] = n
		}
		if has("ISS ATTENDED") || full {
			n, _ := strconv.Atoi(getCol(row, "ISS ATTENDED"))
			fields["issAttended"] = n
		}
		if has("SCHOLARSHIP AWARDED") || full {
			fields["scholarshipAwarded"] = parseBooleanField(getCol(row, "SCHOLARSHIP AWARDED"))
		}
		if has("ISM SIGNUP") || full {
			fields["ismSignup"] = parseBooleanField(getCol(row, "ISM SIGNUP"))
		}
		if has("CONTRIBUTION PAID") || full {
			fields["contributionPaid"] = parseBooleanField(getCol(row, "CONTRIBUTION PAID"))
		}
		if has("REASON FOR ORDINARY B") {
			if raw := getCol(row, "REASON FOR ORDINARY B"); raw != "" || full {
				fields["reasonForOrdinaryB"] = raw
			}
		}
		if raw := getCol(row, "SUBSIDY OVERRIDE (%)"); raw != "" {
			// Out-of-range overrides are ignored, not errors.
			if rate, err := strconv.Atoi(raw); err == nil && eligibility.IsValidRate(rate) {
				fields["subsidyOverride"] = rate
			}
		}

		if len(errs) > 0 {
			result.Invalid = append(result.Invalid, ImportRowError{Row: rowNum, Errors: errs})
			continue
		}
		result.Valid = append(result.Valid, MemberDraft{Row: rowNum, CampusID: campusID, Fields: fields})
	}

	return result, nil
}

// parseTracks splits a comma-joined track list, normalizing each entry and
// silently dropping anything unrecognized.
func parseTracks(raw string) []string {
	var tracks []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		track, ok := domain.NormalizeTrack(part)
		if !ok || seen[track] {
			continue
		}
		seen[track] = true
		tracks = append(tracks, track)
	}
	if tracks == nil {
		return []string{}
	}
	return tracks
}

// parseISMAttendance parses the "EventName:subsidyRate, ..." column into
// attendance records, silently dropping malformed entries.
func parseISMAttendance(raw string, now time.Time) []domain.ISMAttendance {
	records := []domain.ISMAttendance{}
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		rate, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if name == "" || err != nil {
			continue
		}
		records = append(records, domain.ISMAttendance{
			EventName:   name,
			SubsidyUsed: rate,
			Timestamp:   now,
		})
	}
	return records
}

// parseBooleanField accepts TRUE/FALSE, 1/0, yes/no in any casing; anything
// else (including empty) is false.
func parseBooleanField(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// ExecuteImportMembers parses a CSV stream and reconciles its rows against
// the member collection by campus id.
// PRE: Input.Reader contains a CSV with at least CAMPUS ID and FULL NAME columns
// POST: Each valid draft is upserted atomically and tagged added or updated;
//
//	row failures are collected, never fatal to the batch; progress is
//	reported per draft; a summary email is sent when configured
//
// INVARIANT: When DryRun=true no writes occur; partial success is always
// preferred to all-or-nothing
func ExecuteImportMembers(ctx context.Context, input ImportMembersInput, deps ImportMembersDeps) (ImportMembersResult, error) {
	parsed, err := ParseMemberRows(input.Reader, input.Mode)
	if err != nil {
		return ImportMembersResult{}, err
	}

	result := ImportMembersResult{
		TotalRows: parsed.TotalRows,
		Invalid:   parsed.Invalid,
		DryRun:    input.DryRun,
		Unknown:   parsed.Unknown,
	}

	total := len(parsed.Valid)
	for i, draft := range parsed.Valid {
		if input.DryRun {
			_, found, err := deps.MemberStore.FindByCampusID(ctx, draft.CampusID)
			if err != nil {
				result.Failed = append(result.Failed, ImportRowFailure{Row: draft.Row, CampusID: draft.CampusID, Error: err.Error()})
			} else if found {
				result.Updated++
			} else {
				result.Added++
			}
		} else {
			_, action, err := deps.MemberStore.UpsertByCampusID(ctx, draft.CampusID, draft.Fields)
			if err != nil {
				slog.Error("members_import_upsert_failed", "row", draft.Row, "campus_id", draft.CampusID, "err", err)
				result.Failed = append(result.Failed, ImportRowFailure{Row: draft.Row, CampusID: draft.CampusID, Error: err.Error()})
			} else if action == memberStore.ActionAdded {
				result.Added++
			} else {
				result.Updated++
			}
		}

		if input.OnProgress != nil {
			input.OnProgress(ImportProgress{
				Current:    i + 1,
				Total:      total,
				Percentage: ((i+1)*100 + total/2) / total,
			})
		}
	}

	slog.Info("members_import",
		"mode", input.Mode,
		"dry_run", input.DryRun,
		"total", result.TotalRows,
		"added", result.Added,
		"updated", result.Updated,
		"invalid", len(result.Invalid),
		"failed", len(result.Failed),
	)

	if !input.DryRun && deps.EmailSender != nil && deps.ReportTo != "" {
		sendImportReport(ctx, deps, result)
	}

	return result, nil
}

// sendImportReport emails the aggregate counts of a finished import run.
// Failures are logged, never surfaced: the import itself already succeeded.
func sendImportReport(ctx context.Context, deps ImportMembersDeps, result ImportMembersResult) {
	html := fmt.Sprintf(
		"<h2>Member import report</h2><p>Rows: %d</p><ul><li>Added: %d</li><li>Updated: %d</li><li>Invalid rows: %d</li><li>Write failures: %d</li></ul>",
		result.TotalRows, result.Added, result.Updated, len(result.Invalid), len(result.Failed),
	)
	_, err := deps.EmailSender.Send(ctx, email.SendRequest{
		To:      []string{deps.ReportTo},
		Subject: fmt.Sprintf("Member import: %d added, %d updated", result.Added, result.Updated),
		HTML:    html,
	})
	if err != nil {
		slog.Error("members_import_report_failed", "err", err)
	}
}
