package scoring

import "fmt"

// Conclusion summarizes a report without declaring a winner.
type Conclusion struct {
	NearParity bool
	// LeaderSide is 0 for Side A, 1 for Side B, or -1 at parity.
	LeaderSide int
	LeaderName string
	Margin     float64
	Text       string
}

// SideLabels are the display names of the two sides, indexed by side.
var SideLabels = [2]string{"Side A", "Side B"}

// Conclude compares the totals of the two debaters. Totals closer than
// ParityMargin are reported as near parity; otherwise the side with the
// higher structural score is named. A debater with no scored messages
// counts as zero.
func Conclude(r Report, debaters [2]string) Conclusion {
	var totals [2]float64
	var names [2]string
	for side, id := range debaters {
		names[side] = id
		if b, ok := r.Get(id); ok {
			totals[side] = b.Total
			if b.AuthorName != "" {
				names[side] = b.AuthorName
			}
		}
	}

	leader, trailer := 0, 1
	if totals[1] > totals[0] {
		leader, trailer = 1, 0
	}
	margin := totals[leader] - totals[trailer]

	if margin < ParityMargin {
		return Conclusion{
			NearParity: true,
			LeaderSide: -1,
			Margin:     margin,
			Text:       "Both sides finished near parity on structure.",
		}
	}

	return Conclusion{
		LeaderSide: leader,
		LeaderName: names[leader],
		Margin:     margin,
		Text: fmt.Sprintf("%s (%s) earned the higher structural score.",
			SideLabels[leader], names[leader]),
	}
}
