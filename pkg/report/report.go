// Package report renders a summary of a catalog for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/tstromberg/tagflow/pkg/catalog"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Table returns a table of every item with its tag count.
func Table(d *catalog.Document) *table.Table {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ID", "Filename", "# Tags").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, i := range d.Items {
		t.Row(i.ID, i.Filename, strconv.Itoa(len(i.Tags)))
	}
	return t
}

// Summary writes the processing summary for d, stored at path, to w.
func Summary(w io.Writer, d *catalog.Document, path string) error {
	_, err := fmt.Fprintf(w, "\n%s\n%s\n\n%s\n%s\n",
		titleStyle.Render("Processing Summary Report:"),
		Table(d).Render(),
		doneStyle.Render(fmt.Sprintf("Metadata persisted to %s (%d items)", path, len(d.Items))),
		titleStyle.Render("Pipeline execution complete"),
	)
	return err
}
