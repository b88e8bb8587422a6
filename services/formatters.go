package services

import (
	"fmt"
	"strings"

	"reprise/models"
)

// Formatter wandelt ein Reprisal-Set in zustellbaren Klartext.
type Formatter func(batch []models.Reprisal) (string, error)

// SimpleFormatter gibt die Motif-Inhalte zeilenweise aus, ohne Masken.
func SimpleFormatter(batch []models.Reprisal) (string, error) {
	lines := make([]string, 0, len(batch))
	for _, r := range batch {
		if r.Motif == nil {
			return "", fmt.Errorf("reprisal %s has no motif loaded", r.UUID)
		}
		lines = append(lines, r.Motif.Content)
	}
	return strings.Join(lines, "\n"), nil
}

// ClozeFormatter nummeriert die Reprisals, zeigt maskierten Text, sofern eine
// Cloze-Deletion hängt, und hängt einen Lösungsteil an.
func ClozeFormatter(token string) Formatter {
	return func(batch []models.Reprisal) (string, error) {
		var body, answers strings.Builder
		for i, r := range batch {
			if r.Motif == nil {
				return "", fmt.Errorf("reprisal %s has no motif loaded", r.UUID)
			}
			text := r.Motif.Content
			if r.ClozeDeletion != nil {
				masked, err := r.ClozeDeletion.Masked(r.Motif.Content, token)
				if err != nil {
					return "", fmt.Errorf("reprisal %s: %w", r.UUID, err)
				}
				words, err := r.ClozeDeletion.MaskedWords(r.Motif.Content)
				if err != nil {
					return "", fmt.Errorf("reprisal %s: %w", r.UUID, err)
				}
				text = masked
				if len(words) > 0 {
					fmt.Fprintf(&answers, "%d. %s\n", i+1, strings.Join(words, ", "))
				}
			}
			fmt.Fprintf(&body, "%d. %s", i+1, text)
			if title := r.Motif.CitationTitle(); title != "" {
				fmt.Fprintf(&body, " (%s)", title)
			}
			body.WriteString("\n")
		}
		if answers.Len() > 0 {
			body.WriteString("\nAnswers\n")
			body.WriteString(answers.String())
		}
		return strings.TrimRight(body.String(), "\n"), nil
	}
}
