// Package moderation classifies debate messages as acceptable or rejected.
//
// A [Filter] is built once from a prohibited-word list and an ordered list
// of personal-attack patterns, and is immutable afterwards, so a single
// Filter can be shared by every session without locking.
package moderation

import (
	"fmt"
	"regexp"
	"strings"
)

// ReasonPersonalAttack is the rejection reason for any attack-pattern match.
const ReasonPersonalAttack = "personal attack pattern"

// Rule identifies which check rejected a message.
type Rule string

const (
	RuleNone           Rule = ""
	RuleProhibitedWord Rule = "prohibited_word"
	RulePersonalAttack Rule = "personal_attack"
)

// Verdict is the outcome of classifying one message.
type Verdict struct {
	Accepted bool
	Rule     Rule
	Reason   string
}

// accepted is the shared Verdict for clean messages.
var accepted = Verdict{Accepted: true}

// DefaultAttackPatterns are second-person-pronoun-plus-insult constructions.
// Order matters: the first match wins.
var DefaultAttackPatterns = []string{
	`(?i)\byou(?:'re| are)\s+(?:an?\s+)?(?:idiot|stupid|moron|fool|clueless|ignorant)\b`,
	`(?i)\byou\s+(?:idiot|moron|fool)\b`,
	`(?i)\byour\s+(?:stupid|idiotic|moronic)\b`,
	`お前[はが]`,
	`あなた[はが].*?馬鹿`,
	`君[はが].*?無知`,
	`てめー`,
	`貴様`,
}

// Filter rejects messages containing prohibited words or matching an
// attack pattern.
type Filter struct {
	words    []string
	patterns []*regexp.Regexp
}

// New compiles a Filter. Words are matched case-insensitively as
// substrings; blank entries are dropped. Patterns are Go regular
// expressions evaluated in order.
func New(words, patterns []string) (*Filter, error) {
	f := &Filter{}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			f.words = append(f.words, w)
		}
	}
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("moderation: attack pattern %d: %w", i, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// MustNew is like New but panics on an invalid pattern.
func MustNew(words, patterns []string) *Filter {
	f, err := New(words, patterns)
	if err != nil {
		panic(err)
	}
	return f
}

// Default returns a Filter with no prohibited words and the default attack
// patterns.
func Default() *Filter {
	return MustNew(nil, DefaultAttackPatterns)
}

// Classify checks text against the prohibited words, then the attack
// patterns. It never mutates any state.
func (f *Filter) Classify(text string) Verdict {
	if f == nil {
		return accepted
	}

	lower := strings.ToLower(text)
	for _, w := range f.words {
		if strings.Contains(lower, w) {
			return Verdict{
				Rule:   RuleProhibitedWord,
				Reason: fmt.Sprintf("prohibited word %q", w),
			}
		}
	}

	for _, re := range f.patterns {
		if re.MatchString(text) {
			return Verdict{Rule: RulePersonalAttack, Reason: ReasonPersonalAttack}
		}
	}

	return accepted
}

// Words returns a copy of the normalized prohibited-word list.
func (f *Filter) Words() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.words))
	copy(out, f.words)
	return out
}

// PatternCount returns how many attack patterns the filter evaluates.
func (f *Filter) PatternCount() int {
	if f == nil {
		return 0
	}
	return len(f.patterns)
}
