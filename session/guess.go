/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import "regexp"

type guessPattern struct {
	intent string
	re     *regexp.Regexp
}

// Evaluated in order; the first match wins.
var guessPatterns = []guessPattern{
	{intent: "is-it", re: regexp.MustCompile(`(?i)is it .+\?`)},
	{intent: "thinking-of", re: regexp.MustCompile(`(?i)are you thinking of .+\?`)},
	{intent: "could-it-be", re: regexp.MustCompile(`(?i)could it be .+\?`)},
	{intent: "my-guess", re: regexp.MustCompile(`(?i)my guess is .+`)},
	{intent: "i-think", re: regexp.MustCompile(`(?i)i think it'?s .+`)},
	{intent: "final-guess", re: regexp.MustCompile(`(?i)final guess:? .+`)},
}

// ClassifyGuess reports whether a completed model turn is a guess, and which
// phrasing identified it.
func ClassifyGuess(text string) (string, bool) {
	for _, p := range guessPatterns {
		if p.re.MatchString(text) {
			return p.intent, true
		}
	}
	return "", false
}

func IsGuess(text string) bool {
	_, ok := ClassifyGuess(text)
	return ok
}
