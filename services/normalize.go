package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	ligatures = strings.NewReplacer(
		"ﬁ", "fi",
		"ﬂ", "fl",
		"ﬀ", "ff",
		"ﬃ", "ffi",
		"ﬄ", "ffl",
		"ﬆ", "st",
	)
	// "Wieder-\nholung" -> "Wiederholung", nur vor Kleinbuchstaben
	hyphenBreakRE = regexp.MustCompile(`([\p{L}\p{N}])-\r?\n([\p{Ll}])`)
	blankRE       = regexp.MustCompile("[\t\f\v ]+")
	multiSpaceRE  = regexp.MustCompile(` {2,}`)
	multiBreakRE  = regexp.MustCompile(`\n{3,}`)
	pageNumberRE  = regexp.MustCompile(`^(?:[Pp](?:age|\.)?\s*|[Ss](?:eite|\.)\s*)?\d+(?:\s*/\s*\d+)?$`)
)

// NormalizeText bereinigt eingefügten Text (etwa aus PDFs) vor der Extraktion:
// Ligaturen, NFC, Silbentrennung am Zeilenende, Seitenzahlen und Leerraum.
// Motifs werden als rune-Offsets maskiert, daher ist NFC hier Pflicht.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = ligatures.Replace(s)
	s = norm.NFC.String(s)
	s = hyphenBreakRE.ReplaceAllString(s, "$1$2")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if pageNumberRE.MatchString(strings.TrimSpace(l)) {
			continue
		}
		kept = append(kept, l)
	}
	s = strings.Join(kept, "\n")

	s = blankRE.ReplaceAllString(s, " ")
	s = multiSpaceRE.ReplaceAllString(s, " ")
	lines = strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRightFunc(lines[i], unicode.IsSpace)
	}
	s = strings.Join(lines, "\n")
	s = multiBreakRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
