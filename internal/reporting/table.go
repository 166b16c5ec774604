package reporting

import (
	"fmt"
	"io"
	"strings"

	"mcpask/internal/color"

	"github.com/mattn/go-runewidth"
)

// ServerStatus is the connection outcome shown in a server table.
type ServerStatus string

const (
	StatusConnected ServerStatus = "connected"
	StatusFailed    ServerStatus = "failed"
	StatusDisabled  ServerStatus = "disabled"
)

// ServerRow is one line of the table printed by WriteServerTable.
type ServerRow struct {
	Name   string
	Status ServerStatus
	// Detail is the server implementation for connected rows and the error
	// text for failed ones.
	Detail string
	Tools  []string
}

const maxDetailWidth = 72

// WriteServerTable prints rows as an aligned table. Column widths are
// measured in terminal cells so names with wide characters stay aligned.
func WriteServerTable(w io.Writer, rows []ServerRow, styles color.Styles) {
	nameWidth := runewidth.StringWidth("SERVER")
	for _, row := range rows {
		nameWidth = max(nameWidth, runewidth.StringWidth(row.Name))
	}
	statusWidth := len(StatusConnected)

	fmt.Fprintln(w, styles.Header.Render(
		runewidth.FillRight("SERVER", nameWidth)+"  "+runewidth.FillRight("STATUS", statusWidth)+"  DETAIL"))

	for _, row := range rows {
		status := runewidth.FillRight(string(row.Status), statusWidth)
		switch row.Status {
		case StatusConnected:
			status = styles.Success.Render(status)
		case StatusFailed:
			status = styles.Failure.Render(status)
		default:
			status = styles.Muted.Render(status)
		}

		detail := runewidth.Truncate(strings.ReplaceAll(row.Detail, "\n", " "), maxDetailWidth, "…")
		fmt.Fprintf(w, "%s  %s  %s\n", runewidth.FillRight(row.Name, nameWidth), status, detail)

		if len(row.Tools) > 0 {
			indent := strings.Repeat(" ", nameWidth+2)
			fmt.Fprintln(w, indent+styles.Muted.Render("tools: "+strings.Join(row.Tools, ", ")))
		}
	}
}
