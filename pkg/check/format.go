package check

import (
	"strconv"
	"strings"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatRow renders data on a single line, like "[1 2.5 -3]".
func formatRow(data []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(formatFloat(f))
	}
	b.WriteByte(']')
	return b.String()
}

// formatRows stacks rows of equal length, one per line, with columns
// right-aligned so corresponding elements line up.
func formatRows(rows ...[]float64) string {
	cells := make([][]string, len(rows))
	var widths []int
	for i, row := range rows {
		cells[i] = make([]string, len(row))
		for j, f := range row {
			s := formatFloat(f)
			cells[i][j] = s
			if j >= len(widths) {
				widths = append(widths, 0)
			}
			if len(s) > widths[j] {
				widths[j] = len(s)
			}
		}
	}

	var b strings.Builder
	for i, row := range cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteByte('[')
		for j, s := range row {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strings.Repeat(" ", widths[j]-len(s)))
			b.WriteString(s)
		}
		b.WriteByte(']')
	}
	return b.String()
}
