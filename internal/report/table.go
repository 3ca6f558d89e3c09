package report

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonesrussell/bookwatch/internal/domain"
)

// RenderSummary writes the run summary and its change list as console
// tables.
func RenderSummary(out io.Writer, summary *domain.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "State", "Pages", "Records", "OK", "Failed", "Skipped", "Changes"})
	t.AppendRow(table.Row{
		summary.RunID,
		summary.State,
		summary.PagesCrawled,
		summary.TotalRecords,
		summary.Succeeded,
		summary.Failed,
		summary.Skipped,
		len(summary.Changes),
	})
	t.Render()

	if len(summary.Changes) == 0 {
		return
	}

	changes := table.NewWriter()
	changes.SetOutputMirror(out)
	changes.SetStyle(table.StyleLight)
	changes.AppendHeader(table.Row{"Type", "Record", "Name", "Changed Fields"})
	for i := range summary.Changes {
		change := &summary.Changes[i]
		changes.AppendRow(table.Row{
			change.ChangeType,
			change.RecordID,
			change.RecordName,
			joinFields(change.ChangedFields),
		})
	}
	changes.Render()
}

// joinFields keeps the changed-fields cell readable for wide records.
func joinFields(fields []string) string {
	const maxShown = 5

	if len(fields) <= maxShown {
		return strings.Join(fields, ", ")
	}
	return strings.Join(fields[:maxShown], ", ") + ", ..."
}
