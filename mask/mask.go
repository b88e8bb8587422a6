// Package mask beschreibt Cloze-Deletion-Masken: Zeichenbereiche eines Textes,
// die beim Wiedervorlegen ausgeblendet werden.
//
// Alle Offsets zählen Zeichen (Runes), nicht Bytes, und sind inklusiv:
// Pair{Start: 4, End: 6} deckt in "The sky is blue" genau "sky" ab.
package mask

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultToken ist das Standard-Maskenzeichen.
const DefaultToken = "*"

// ErrMalformedMask signalisiert eine verletzte Masken-Invariante.
var ErrMalformedMask = errors.New("malformed mask")

// Pair ist ein inklusiver Zeichenbereich [Start, End].
// Auf der Leitung wird es als [start, end] serialisiert.
type Pair struct {
	Start int
	End   int
}

// Len gibt die Anzahl der abgedeckten Zeichen zurück.
func (p Pair) Len() int {
	return p.End - p.Start + 1
}

func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.Start, p.End})
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: pair must be [start, end]: %v", ErrMalformedMask, err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("%w: pair must have exactly two elements, got %d", ErrMalformedMask, len(raw))
	}
	p.Start, p.End = raw[0], raw[1]
	return nil
}

// Sorted gibt eine nach Start aufsteigend sortierte Kopie zurück (stabil).
func Sorted(pairs []Pair) []Pair {
	out := make([]Pair, len(pairs))
	copy(out, pairs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Validate prüft die Paare gegen den Inhalt. Grenzen werden je Paar geprüft,
// Überlappungen nach Sortierung nach Start.
func Validate(content string, pairs []Pair) error {
	n := len([]rune(content))
	for _, p := range pairs {
		switch {
		case p.Start < 0:
			return fmt.Errorf("%w: start %d is negative", ErrMalformedMask, p.Start)
		case p.Start > p.End:
			return fmt.Errorf("%w: start %d is after end %d", ErrMalformedMask, p.Start, p.End)
		case p.End >= n:
			return fmt.Errorf("%w: end %d is outside content of length %d", ErrMalformedMask, p.End, n)
		}
	}
	sorted := Sorted(pairs)
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start <= sorted[i-1].End {
			return fmt.Errorf("%w: [%d, %d] overlaps [%d, %d]", ErrMalformedMask,
				sorted[i].Start, sorted[i].End, sorted[i-1].Start, sorted[i-1].End)
		}
	}
	return nil
}

// Render ersetzt jeden Bereich durch token, von links nach rechts.
// Der laufende shift gleicht die Längendifferenz zwischen Bereich und Token aus,
// daher funktionieren auch mehrstellige Tokens. Die Paare müssen gültig sein.
func Render(content string, pairs []Pair, token string) (string, error) {
	if err := Validate(content, pairs); err != nil {
		return "", err
	}
	out := []rune(content)
	tok := []rune(token)
	shift := 0
	for _, p := range Sorted(pairs) {
		s, e := p.Start-shift, p.End-shift
		spliced := make([]rune, 0, len(out)-p.Len()+len(tok))
		spliced = append(spliced, out[:s]...)
		spliced = append(spliced, tok...)
		spliced = append(spliced, out[e+1:]...)
		out = spliced
		shift += p.Len() - len(tok)
	}
	return string(out), nil
}

// ExtractSpans liefert den Lösungsschlüssel: die maskierten Teilstrings in
// der Reihenfolge der Paare (nicht neu sortiert).
func ExtractSpans(content string, pairs []Pair) ([]string, error) {
	if err := Validate(content, pairs); err != nil {
		return nil, err
	}
	runes := []rune(content)
	spans := make([]string, 0, len(pairs))
	for _, p := range pairs {
		spans = append(spans, string(runes[p.Start:p.End+1]))
	}
	return spans, nil
}

// Normalize sortiert die Paare, entfernt Duplikate und fasst überlappende
// Bereiche zu ihrer Vereinigung zusammen.
func Normalize(pairs []Pair) []Pair {
	sorted := Sorted(pairs)
	out := make([]Pair, 0, len(sorted))
	for _, p := range sorted {
		if last := len(out) - 1; last >= 0 && p.Start <= out[last].End {
			if p.End > out[last].End {
				out[last].End = p.End
			}
			continue
		}
		out = append(out, p)
	}
	return out
}

// String formatiert Paare wie auf der Leitung, z.B. "[[4,6],[11,14]]".
func String(pairs []Pair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("[%d,%d]", p.Start, p.End)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
