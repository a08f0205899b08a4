// Package assistant routes free-form utterances to campus data lookups.
package assistant

import (
	"strings"
	"unicode"
)

// Intent is the closed set of things an utterance can ask for.
type Intent string

const (
	IntentGreeting   Intent = "greeting"
	IntentThanks     Intent = "thanks"
	IntentTraffic    Intent = "traffic"
	IntentParking    Intent = "parking"
	IntentLibrary    Intent = "library"
	IntentFood       Intent = "food"
	IntentElevator   Intent = "elevator"
	IntentClassroom  Intent = "classroom"
	IntentCoursePlan Intent = "coursePlan"
	IntentUnmatched  Intent = "unmatched"
)

// Predicate tests a lower-cased utterance.
type Predicate func(lower string) bool

// Rule pairs a predicate with the intent it selects.
type Rule struct {
	Intent Intent
	Match  Predicate
}

// Keywords matches when any phrase occurs as a substring, or any word
// occurs as a whole word. Short words go in words so that "go" does not
// match "google" and "eat" does not match "great".
func Keywords(phrases []string, words []string) Predicate {
	return func(lower string) bool {
		for _, p := range phrases {
			if strings.Contains(lower, p) {
				return true
			}
		}
		if len(words) == 0 {
			return false
		}
		for _, tok := range tokenize(lower) {
			for _, w := range words {
				if tok == w {
					return true
				}
			}
		}
		return false
	}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// DefaultRules is evaluated top to bottom; the first match wins. An
// utterance naming several categories resolves to the earliest one, e.g.
// "I'm hungry, what's the traffic like" is traffic.
var DefaultRules = []Rule{
	{IntentClassroom, Keywords([]string{"classroom", "empty room", "free room", "lecture hall"}, []string{"room", "rooms"})},
	{IntentElevator, Keywords([]string{"elevator"}, []string{"lift", "lifts"})},
	{IntentTraffic, Keywords([]string{"traffic", "commute", "congestion"}, []string{"home", "go", "drive", "route"})},
	{IntentParking, Keywords([]string{"parking", "car park"}, []string{"park"})},
	{IntentCoursePlan, Keywords([]string{"course", "timetable"}, []string{"plan", "planner"})},
	{IntentLibrary, Keywords([]string{"library", "study space", "study spot"}, []string{"study"})},
	{IntentFood, Keywords([]string{"food", "hungry", "canteen", "lunch", "dinner", "breakfast"}, []string{"eat", "eating"})},
	{IntentThanks, Keywords([]string{"thank"}, []string{"thx", "cheers"})},
	{IntentGreeting, Keywords([]string{"good morning", "good afternoon", "good evening"}, []string{"hi", "hello", "hey"})},
}

// Classify returns the intent of the first matching rule.
func Classify(rules []Rule, utterance string) Intent {
	lower := strings.ToLower(strings.TrimSpace(utterance))
	if lower == "" {
		return IntentUnmatched
	}
	for _, r := range rules {
		if r.Match(lower) {
			return r.Intent
		}
	}
	return IntentUnmatched
}

// mode is the secondary choice inside a category handler.
type mode int

const (
	modeSummary mode = iota
	modeBest
	modeWorst
)

var (
	bestWords  = Keywords([]string{"recommend", "best", "suggest", "should i"}, nil)
	worstWords = Keywords([]string{"avoid", "worst", "busiest"}, nil)
)

func modeOf(lower string) mode {
	switch {
	case bestWords(lower):
		return modeBest
	case worstWords(lower):
		return modeWorst
	default:
		return modeSummary
	}
}
