// Package agenda prints events as a Markdown table for terminals.
package agenda

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"ms-events/internal/events/ical"
	"ms-events/internal/models"
)

// MaxCell bounds the display width of a single cell.
const MaxCell = 40

var header = []string{"ID", "Date", "From", "To", "Name", "Location"}

// Table renders events in the order given. Widths are measured in terminal
// cells so wide runes stay aligned.
func Table(events []models.Event) string {
	rows := make([][]string, 0, len(events)+1)
	rows = append(rows, header)
	for i := range events {
		e := &events[i]
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.Date,
			e.TimeFrom,
			e.TimeTo,
			cell(e.Name),
			cell(ical.Location(e)),
		})
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, c := range row {
			if w := runewidth.StringWidth(c); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	var sb strings.Builder
	for r, row := range rows {
		writeRow(&sb, row, widths)
		if r == 0 {
			sep := make([]string, len(widths))
			for i, w := range widths {
				sep[i] = strings.Repeat("-", w)
			}
			writeRow(&sb, sep, widths)
		}
	}
	return sb.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "/")
	return runewidth.Truncate(s, MaxCell, "...")
}

func writeRow(sb *strings.Builder, row []string, widths []int) {
	sb.WriteString("|")
	for i, c := range row {
		sb.WriteString(" ")
		sb.WriteString(runewidth.FillRight(c, widths[i]))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}
