// Package scoring computes the structural, non-authoritative score of a
// finished debate transcript.
//
// The heuristics are deliberately crude proxies (length for substance,
// punctuation for clarity, connectives for structure, exclamation marks for
// calmness). Scores are relative to the other author in the same session,
// so they say nothing about a debater outside that session.
package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/Iron-Ham/arena/internal/debate"
)

// MaxMetric is the ceiling of each normalized metric; totals range over
// [0, 4*MaxMetric].
const MaxMetric = 10.0

// ParityMargin is the total-score gap below which a debate is reported as
// near parity.
const ParityMargin = 3.0

const (
	substanceLength  = 50
	substancePoints  = 2
	clarityCap       = 5
	calmnessBase     = 10
	exclamationCost  = 2
	calmnessScale    = 2.0
	sentenceEnders   = ".?!。？！"
	exclamationMarks = "!！"
)

// Connectives are the transition words counted by the structure metric.
// Each distinct word counts at most once per message.
var Connectives = []string{
	"however",
	"therefore",
	"because",
	"in other words",
	"moreover",
	"for example",
	"also",
	"しかし",
	"したがって",
	"なぜなら",
	"つまり",
	"また",
}

// Breakdown holds one author's normalized metrics.
type Breakdown struct {
	AuthorID    string
	AuthorName  string
	Messages    int
	Consistency float64
	Clarity     float64
	Structure   float64
	Calmness    float64
	Total       float64
}

// Report is the scoring result for a whole transcript. Authors are listed in
// order of first appearance.
type Report struct {
	Authors []Breakdown
	Entries int
}

// Get returns the breakdown for an author.
func (r Report) Get(authorID string) (Breakdown, bool) {
	for _, b := range r.Authors {
		if b.AuthorID == authorID {
			return b, true
		}
	}
	return Breakdown{}, false
}

// raw accumulates un-normalized metric sums for one author.
type raw struct {
	consistency int
	clarity     int
	structure   int
	calmness    int
}

// Score computes per-author breakdowns for the transcript. It is pure: the
// same transcript always yields the same report.
func Score(entries []debate.Entry) Report {
	report := Report{Entries: len(entries)}
	if len(entries) == 0 {
		return report
	}

	index := make(map[string]int)
	var sums []raw
	for _, e := range entries {
		i, ok := index[e.AuthorID]
		if !ok {
			i = len(report.Authors)
			index[e.AuthorID] = i
			report.Authors = append(report.Authors, Breakdown{AuthorID: e.AuthorID, AuthorName: e.AuthorName})
			sums = append(sums, raw{})
		}
		report.Authors[i].Messages++

		s := &sums[i]
		s.consistency += consistencyPoints(e.Content)
		s.clarity += clarityPoints(e.Content)
		s.structure += structurePoints(e.Content)
		s.calmness += calmnessPoints(e.Content)
	}

	var maxCons, maxClar, maxStruct int
	for _, s := range sums {
		maxCons = max(maxCons, s.consistency)
		maxClar = max(maxClar, s.clarity)
		maxStruct = max(maxStruct, s.structure)
	}

	for i, s := range sums {
		b := &report.Authors[i]
		b.Consistency = relative(s.consistency, maxCons)
		b.Clarity = relative(s.clarity, maxClar)
		b.Structure = relative(s.structure, maxStruct)
		// The denominator is the whole transcript, not this author's
		// message count.
		b.Calmness = min(MaxMetric, float64(s.calmness)/float64(len(entries))*calmnessScale)
		b.Total = b.Consistency + b.Clarity + b.Structure + b.Calmness
	}

	return report
}

func relative(value, best int) float64 {
	if best <= 0 {
		return 0
	}
	return min(MaxMetric, float64(value)/float64(best)*MaxMetric)
}

func consistencyPoints(content string) int {
	if utf8.RuneCountInString(content) > substanceLength {
		return substancePoints
	}
	return 0
}

func clarityPoints(content string) int {
	return min(countRunes(content, sentenceEnders), clarityCap)
}

func structurePoints(content string) int {
	lower := strings.ToLower(content)
	n := 0
	for _, w := range Connectives {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}

func calmnessPoints(content string) int {
	return max(calmnessBase-exclamationCost*countRunes(content, exclamationMarks), 0)
}

func countRunes(s, set string) int {
	n := 0
	for _, r := range s {
		if strings.ContainsRune(set, r) {
			n++
		}
	}
	return n
}
