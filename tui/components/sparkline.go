package components

import (
	"fmt"
	"slices"
	"strings"
)

// sparkBlocks are the eight bar heights, lowest first.
var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders data as one row of block characters scaled between the
// window's min and max, newest on the right, left-padded to width. A flat
// window renders at mid height.
func Sparkline(data []float64, width int) string {
	if len(data) > width {
		data = data[len(data)-width:]
	}
	out := []rune(strings.Repeat(" ", width-len(data)))
	if len(data) == 0 {
		return string(out)
	}
	lo, hi := slices.Min(data), slices.Max(data)
	top := len(sparkBlocks) - 1
	for _, v := range data {
		level := 3
		if hi > lo {
			level = min(int((v-lo)/(hi-lo)*float64(top)), top)
		}
		out = append(out, sparkBlocks[level])
	}
	return string(out)
}

// FormatRate renders a kbit/s value compactly for axis labels: "820K",
// "1.5M", "2.1G".
func FormatRate(kbps float64) string {
	switch {
	case kbps == 0:
		return "0"
	case kbps >= 1_000_000:
		return fmt.Sprintf("%.1fG", kbps/1_000_000)
	case kbps >= 1_000:
		return fmt.Sprintf("%.1fM", kbps/1_000)
	case kbps >= 10:
		return fmt.Sprintf("%.0fK", kbps)
	default:
		return fmt.Sprintf("%.1fK", kbps)
	}
}

// FormatRateUnit renders a kbit/s value with its unit: "820 kbit/s",
// "1.50 Mbit/s".
func FormatRateUnit(kbps float64) string {
	switch {
	case kbps >= 1_000_000:
		return fmt.Sprintf("%.2f Gbit/s", kbps/1_000_000)
	case kbps >= 1_000:
		return fmt.Sprintf("%.2f Mbit/s", kbps/1_000)
	default:
		return fmt.Sprintf("%.0f kbit/s", kbps)
	}
}
