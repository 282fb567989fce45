package render

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// zeroWidthSpace breaks mass-mention tokens without changing how they read.
const zeroWidthSpace = "\u200b"

var massMentions = strings.NewReplacer(
	"@everyone", "@"+zeroWidthSpace+"everyone",
	"@here", "@"+zeroWidthSpace+"here",
)

// Sanitize neutralises mass mentions in user text that is echoed back into
// a channel.
func Sanitize(text string) string {
	return massMentions.Replace(text)
}

// Truncate shortens s to width terminal columns, keeping ANSI styling
// intact and ending with an ellipsis when cut. A non-positive width
// leaves s unchanged.
func Truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	if width <= 1 {
		return "…"
	}
	return ansi.Truncate(s, width, "…")
}

// Plain removes ANSI escape sequences.
func Plain(s string) string {
	return ansi.Strip(s)
}

// Bar draws a fixed-width progress bar for value out of total.
func Bar(value, total float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = int(math.Round(value / total * float64(width)))
	}
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Countdown formats a remaining duration as "4m 30s", rounding up to the
// next second. Elapsed durations render as "0s".
func Countdown(remaining time.Duration) string {
	if remaining <= 0 {
		return "0s"
	}
	secs := int(math.Ceil(remaining.Seconds()))
	m, s := secs/60, secs%60
	switch {
	case m == 0:
		return fmt.Sprintf("%ds", s)
	case s == 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%dm %ds", m, s)
	}
}

// plural returns "1 message" or "3 messages".
func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
