package mask

import (
	"strings"
	"unicode"
)

// ResolvePhrases sucht jede Phrase wörtlich im Inhalt und liefert für jedes
// Vorkommen ein inklusives Paar, sortiert nach Start.
//
// Phrasen aus Wortzeichen und Leerraum müssen an Wortgrenzen stehen
// ("sky" trifft nicht "skylark"). Phrasen mit Satz- oder Sonderzeichen werden
// als reiner Teilstring gesucht, damit z.B. "O(n log n)" gefunden wird.
// Gesucht wird case-sensitiv und ohne Überlappung innerhalb einer Phrase.
func ResolvePhrases(content string, phrases []string) []Pair {
	text := []rune(content)
	var pairs []Pair
	for _, phrase := range phrases {
		if strings.TrimSpace(phrase) == "" {
			continue
		}
		pat := []rune(phrase)
		bounded := !hasSymbol(pat)
		for pos := 0; pos <= len(text)-len(pat); {
			idx := indexRunes(text, pat, pos)
			if idx < 0 {
				break
			}
			end := idx + len(pat)
			if bounded && !(isBoundary(text, idx) && isBoundary(text, end)) {
				pos = idx + 1
				continue
			}
			pairs = append(pairs, Pair{Start: idx, End: end - 1})
			pos = end
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	return Sorted(pairs)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func hasSymbol(phrase []rune) bool {
	for _, r := range phrase {
		if !isWordRune(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// isBoundary meldet, ob zwischen text[i-1] und text[i] eine Wortgrenze liegt.
func isBoundary(text []rune, i int) bool {
	before := i > 0 && isWordRune(text[i-1])
	after := i < len(text) && isWordRune(text[i])
	return before != after
}

func indexRunes(text, pat []rune, from int) int {
outer:
	for i := from; i+len(pat) <= len(text); i++ {
		for j := range pat {
			if text[i+j] != pat[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
