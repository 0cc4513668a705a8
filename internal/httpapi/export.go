package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cyber-sensei/backend/internal/progress"
)

var statusTitle = cases.Title(language.English)

// statusLabel renders a status band for humans, e.g. "In Progress".
func statusLabel(s progress.Status) string {
	return statusTitle.String(strings.ReplaceAll(string(s), "_", " "))
}

// handleDashboardExport renders the learner's dashboard as an .xlsx
// workbook for offline reporting.
func (s *Server) handleDashboardExport(w http.ResponseWriter, r *http.Request) {
	learnerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	d, err := s.estimator.Dashboard(r.Context(), learnerID)
	if err != nil {
		writeError(w, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Dashboard"
	f.SetSheetName(f.GetSheetName(0), sheet)

	rows := [][]any{
		{"Topics tracked", d.TotalTopics},
		{"Topics mastered", d.Mastered},
		{"Overall progress", fmt.Sprintf("%.0f%%", d.ProgressPercent)},
		{},
		{"Topic", "Mastery", "Status"},
	}
	for _, t := range d.Topics {
		rows = append(rows, []any{t.Name, t.Mastery, statusLabel(t.Status)})
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			writeError(w, fmt.Errorf("build export: %w", err))
			return
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			writeError(w, fmt.Errorf("build export: %w", err))
			return
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="dashboard-%d.xlsx"`, learnerID))
	if err := f.Write(w); err != nil {
		slog.Error("writing dashboard export", "learner_id", learnerID, "error", err)
	}
}
