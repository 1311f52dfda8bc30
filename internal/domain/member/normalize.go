package member

import "strings"

// Synonym tables for bulk-import normalization. Keys are lower-trimmed
// input values; values are the canonical form stored on the record.

var membershipTypeSynonyms = map[string]string{
	"exco":       "Exco",
	"ordinary a": TypeOrdinaryA,
	"ordinary b": TypeOrdinaryB,
	"associate":  TypeAssociate,
}

var studentStatusSynonyms = map[string]string{
	"undergraduate": StatusUndergraduate,
	"postgraduate":  StatusPostgraduate,
	"graduated":     StatusGraduated,
}

var schoolSynonyms = map[string]string{
	"accountancy":                     "Accountancy",
	"business":                        "Business",
	"economics":                       "Economics",
	"computing & information systems": "Computing & Information Systems",
	"computing and information systems": "Computing & Information Systems",
	"computing": "Computing & Information Systems",
	"scis":      "Computing & Information Systems",
	"law":       "Law",
	"social sciences": "Social Sciences",
	"soss":            "Social Sciences",
	"college of integrative studies": "College of Integrative Studies",
	"cis":                            "College of Integrative Studies",
	"integrative":                    "College of Integrative Studies",
}

var trackSynonyms = map[string]string{
	"itt":  TrackITT,
	"mbot": TrackMBOT,
}

func canonical(table map[string]string, raw string) (string, bool) {
	v, ok := table[strings.ToLower(strings.TrimSpace(raw))]
	return v, ok
}

// NormalizeMembershipType maps a raw membership type to its canonical form.
// "Exco" input collapses to Ordinary A with the exco flag set.
// PRE: raw may carry any casing or surrounding whitespace
// POST: ok is false when raw matches no known type; no coercion happens
func NormalizeMembershipType(raw string) (membershipType string, isExco bool, ok bool) {
	v, found := canonical(membershipTypeSynonyms, raw)
	if !found {
		return "", false, false
	}
	if v == "Exco" {
		return TypeOrdinaryA, true, true
	}
	return v, false, true
}

// NormalizeStudentStatus maps a raw student status to its canonical form.
func NormalizeStudentStatus(raw string) (string, bool) {
	return canonical(studentStatusSynonyms, raw)
}

// NormalizeSchool maps a raw school name or abbreviation to its canonical form.
func NormalizeSchool(raw string) (string, bool) {
	return canonical(schoolSynonyms, raw)
}

// NormalizeTrack maps a raw track value to its canonical form.
func NormalizeTrack(raw string) (string, bool) {
	return canonical(trackSynonyms, raw)
}
