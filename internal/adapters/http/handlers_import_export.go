package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"mms/internal/application/orchestrators"
)

// maxImportSize caps uploaded CSVs at 8 MiB.
const maxImportSize = 8 << 20

// handleImportMembers ingests a CSV upload and reconciles it against the
// members collection. Multipart field "file" carries the CSV; form values
// "mode" (full|partial) and "dryRun" (true|false) select the behavior.
func handleImportMembers(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	mode := r.FormValue("mode")
	if mode == "" {
		mode = orchestrators.ImportModeFull
	}
	if mode != orchestrators.ImportModeFull && mode != orchestrators.ImportModePartial {
		http.Error(w, "mode must be full or partial", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteImportMembers(r.Context(), orchestrators.ImportMembersInput{
		Reader: file,
		Mode:   mode,
		DryRun: r.FormValue("dryRun") == "true",
	}, orchestrators.ImportMembersDeps{
		MemberStore: stores.MemberStore,
		EmailSender: emailSender,
		ReportTo:    importReportTo,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleExportMembers streams the full roster as a CSV download.
func handleExportMembers(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("members-%s.csv", timeNow().Format(time.DateOnly))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	if _, err := orchestrators.ExecuteExportMembers(r.Context(), w, orchestrators.ExportMembersDeps{
		MemberStore: stores.MemberStore,
	}); err != nil {
		// Headers are already out, so the truncated body is the only signal left.
		slog.Error("members_export_failed", "error", err)
		return
	}
}

// handleMemberTemplate serves the blank import template.
func handleMemberTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=member-import-template.csv")
	_ = orchestrators.WriteMemberTemplate(w)
}
