package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/san-kum/pmgrav/internal/metrics"
)

// ProgressBar renders percent in [0, 1] as a bar width cells wide.
func ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Sparkline samples values into at most width bar characters.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}
	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		idx := int((values[i*step] - lo) / span * float64(len(chars)-1))
		b.WriteRune(chars[max(0, min(idx, len(chars)-1))])
	}
	return b.String()
}

// PhaseTable lists the slowest phases with their share of a step.
func PhaseTable(stats metrics.PerfStats, limit int) []string {
	phases := stats.Phases()
	if limit > 0 && len(phases) > limit {
		phases = phases[:limit]
	}
	lines := make([]string, 0, len(phases))
	for _, name := range phases {
		pct := stats.PhasePct[name]
		lines = append(lines, fmt.Sprintf("%-16s %s %5.1f%%", name, ProgressBar(pct/100, 10), pct))
	}
	return lines
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%dµs", d.Microseconds())
}
