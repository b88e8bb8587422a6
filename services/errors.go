package services

import (
	"errors"
	"fmt"

	"reprise/providers"
	"reprise/repository"
)

var (
	// ErrNoValidMasks: die Generierung hat keinen verwendbaren Maskensatz ergeben.
	ErrNoValidMasks = errors.New("no valid masks")
	// ErrInvalidResponseFormat: die Textgenerierung hat unlesbar geantwortet.
	ErrInvalidResponseFormat = errors.New("invalid response format")
	// ErrGenerationUnavailable: die Textgenerierung war nicht erreichbar oder hat abgelehnt.
	ErrGenerationUnavailable = errors.New("text generation unavailable")
	// ErrNothingExtracted: aus dem Text konnte kein Motif gewonnen werden.
	ErrNothingExtracted = errors.New("no motifs extracted")
	// ErrDeliveryFailed: die Übergabe an den Zusteller ist gescheitert.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrRunLocked: ein anderer Lauf hält gerade den Lock.
	ErrRunLocked = errors.New("another run holds the lock")
	// ErrScheduleConflict: Schedule verweist auf ein unbekanntes Reprisal-Set.
	ErrScheduleConflict = repository.ErrScheduleConflict
)

// generationError ordnet einen Provider-Fehler der Fehler-Taxonomie zu.
func generationError(err error) error {
	if errors.Is(err, providers.ErrMalformedResponse) {
		return fmt.Errorf("%w: %w", ErrInvalidResponseFormat, err)
	}
	return fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
}
