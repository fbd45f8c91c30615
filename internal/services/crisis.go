package services

import (
	"strings"
	"unicode"
)

// crisisPhrases are matched against normalised text. Any hit flags the entry
// for the support banner; nothing is blocked.
var crisisPhrases = []string{
	"suicide",
	"suicidal",
	"kill myself",
	"end my life",
	"take my life",
	"end it all",
	"self harm",
	"cut myself",
	"hurt myself",
	"harm myself",
	"want to die",
	"wish i was dead",
	"not worth living",
	"better off dead",
	"end myself",
	"unalive",
}

var leetReplacer = strings.NewReplacer(
	"@", "a",
	"4", "a",
	"3", "e",
	"!", "i",
	"1", "i",
	"0", "o",
	"$", "s",
	"5", "s",
	"7", "t",
	"+", "t",
	"а", "a", // Cyrillic
	"е", "e",
	"і", "i",
	"о", "o",
	"р", "p",
)

// NormalizeText lowercases, undoes common character substitutions, drops
// everything but letters and collapses repeated letters and whitespace.
func NormalizeText(text string) string {
	cleaned := leetReplacer.Replace(strings.ToLower(text))

	var b strings.Builder
	var last rune
	lastWasLetter := false
	for _, r := range cleaned {
		if !unicode.IsLetter(r) {
			r = ' '
		}
		isLetter := r != ' '
		if isLetter && lastWasLetter && r == last {
			continue
		}
		b.WriteRune(r)
		last = r
		lastWasLetter = isLetter
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// DetectCrisisLanguage reports whether any of texts contains crisis language
// and which phrases matched. Single words must match whole words.
func DetectCrisisLanguage(texts ...string) (bool, []string) {
	var matched []string
	seen := map[string]bool{}
	for _, text := range texts {
		cleaned := NormalizeText(text)
		if cleaned == "" {
			continue
		}
		words := strings.Fields(cleaned)
		for _, phrase := range crisisPhrases {
			// Collapse the phrase the same way so "kill" and "kil" line up.
			p := NormalizeText(phrase)
			if seen[p] || !strings.Contains(cleaned, p) {
				continue
			}
			if !strings.Contains(p, " ") && !containsWord(words, p) {
				continue
			}
			seen[p] = true
			matched = append(matched, phrase)
		}
	}
	return len(matched) > 0, matched
}

func containsWord(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}
