// Package painscore provides the keyword-based pre-filter used by source
// adapters to cheaply rank raw posts before the classifier sees them.
package painscore

import (
	"regexp"
	"strings"
)

// Keyword categories with their scoring weights. A category counts at most
// once per text regardless of how many of its keywords match.
var categories = []struct {
	name     string
	weight   int
	keywords []string
}{
	{"pain", 20, []string{
		"hate", "frustrated", "annoying", "tedious", "painful", "nightmare",
		"terrible", "awful", "sucks", "irritating", "exhausting", "draining",
	}},
	{"time", 15, []string{
		"hours", "waste", "slow", "taking forever", "time-consuming",
		"forever", "daily", "weekly", "every day", "every week", "constantly",
	}},
	{"seeking", 10, []string{
		"looking for", "need", "want", "wish", "alternative to", "better than",
		"replacement for", "instead of", "searching for", "trying to find",
	}},
	{"problems", 10, []string{
		"can't", "unable", "doesn't work", "broken", "missing", "lack of",
		"no way to", "impossible", "failing", "error", "bug", "issue",
	}},
	{"business", 25, []string{
		"losing money", "costing", "revenue", "customers leaving", "churn",
		"expensive", "paying too much", "budget", "roi", "profit",
	}},
	{"workflow", 15, []string{
		"manual", "repetitive", "copy-paste", "switching between", "juggling",
		"back and forth", "multiple tools", "scattered", "disorganized",
	}},
}

var frequencyWords = []string{
	"daily", "weekly", "every day", "every week", "constantly", "always",
}

// Patterns like "10 hours", "$500", "3 times", "40%" indicate measurable pain.
var numberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+\s*(hours?|minutes?|days?|weeks?|months?)`),
	regexp.MustCompile(`\$\d+`),
	regexp.MustCompile(`\d+\s*times?`),
	regexp.MustCompile(`\d+%`),
}

// Keywords returns all pain keywords as a flat list, for sources that search
// by keyword when the caller supplies none.
func Keywords() []string {
	var all []string
	for _, c := range categories {
		all = append(all, c.keywords...)
	}
	return all
}

// Score calculates a 0-100 pain intensity score from keyword matches.
func Score(text string) int {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)

	score := 0
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				score += c.weight
				break
			}
		}
	}

	for _, w := range frequencyWords {
		if strings.Contains(lower, w) {
			score += 10
			break
		}
	}

	for _, p := range numberPatterns {
		if p.MatchString(lower) {
			score += 5
			break
		}
	}

	if score > 100 {
		return 100
	}
	return score
}

var spamMarkers = []string{
	"buy now", "click here", "limited offer", "dm me", "check out my",
	"promo code", "discount code", "affiliate",
}

// LikelySpam flags obvious promotional noise. Deliberately conservative:
// heterogeneous sources produce plenty of rough-but-genuine text.
func LikelySpam(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, m := range spamMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}

	letters, uppers := 0, 0
	for _, r := range text {
		if r >= 'a' && r <= 'z' {
			letters++
		}
		if r >= 'A' && r <= 'Z' {
			letters++
			uppers++
		}
	}
	if letters > 20 && uppers*10 > letters*8 && strings.Count(text, "!") >= 3 {
		return true
	}
	return false
}
