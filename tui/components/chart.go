package components

import (
	"fmt"
	"math"
	"strings"
)

// chartBlocks run from empty (index 0) to a full cell (index 8).
var chartBlocks = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

const chartLabelWidth = 8

// RenderChart draws data (oldest to newest, kbit/s) as a filled area chart
// with a Y axis starting at zero. ceiling, when positive, fixes the top of
// the axis, typically to the line's available rate; values above it are
// clipped. width and height include the axis labels and the title row.
func RenderChart(data []float64, width, height int, title string, ceiling float64) string {
	width = max(width, 10)
	height = max(height, 4)
	cols := max(width-chartLabelWidth, 2)
	rows := max(height-1, 2)

	lines := make([]string, 0, rows+1)
	lines = append(lines, centerText(title, width))

	if len(data) > cols {
		data = data[len(data)-cols:]
	}

	top := ceiling
	if top <= 0 {
		for _, v := range data {
			top = math.Max(top, v)
		}
	}
	if top <= 0 {
		top = 1
	}

	pad := strings.Repeat(" ", cols-len(data))
	for row := rows - 1; row >= 0; row-- {
		lo := top * float64(row) / float64(rows)
		hi := top * float64(row+1) / float64(rows)

		label := strings.Repeat(" ", chartLabelWidth)
		if len(data) > 0 {
			label = fmt.Sprintf("%*s ", chartLabelWidth-1, FormatRate(hi))
		}

		var sb strings.Builder
		sb.WriteString(label)
		sb.WriteString(pad)
		for _, v := range data {
			sb.WriteRune(cellRune(v, lo, hi))
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

// cellRune picks the block that shows how much of [lo, hi) v fills.
func cellRune(v, lo, hi float64) rune {
	switch {
	case v <= lo:
		return chartBlocks[0]
	case v >= hi:
		return chartBlocks[8]
	}
	idx := int(math.Round((v - lo) / (hi - lo) * 8))
	return chartBlocks[min(max(idx, 0), 8)]
}

// centerText centers s within the given width, padding with spaces.
func centerText(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(s)-pad)
}
