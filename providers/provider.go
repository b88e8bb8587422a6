package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reprise/mask"
)

// ErrMalformedResponse signalisiert eine Antwort, die nicht dem vereinbarten Format entspricht.
var ErrMalformedResponse = errors.New("malformed provider response")

// TextGenerator ist das Interface für die externe Textgenerierung.
type TextGenerator interface {
	// ProposeClozeSets liefert bis zu nMax Sätze wörtlicher Phrasen, die maskiert werden sollen.
	ProposeClozeSets(ctx context.Context, content string, nMax int) ([][]string, error)

	// JudgeClozeSet beurteilt, ob ein aufgelöster Maskensatz brauchbar ist.
	JudgeClozeSet(ctx context.Context, content string, pairs []mask.Pair) (bool, error)

	// ExtractMotifs zerlegt freien Text in eigenständige Motifs.
	ExtractMotifs(ctx context.Context, text string) ([]string, error)
}

// Deliverer übergibt fertig formatierten Text zur verzögerten Zustellung.
type Deliverer interface {
	Send(ctx context.Context, text string, deliverAt time.Time) error

	// Name gibt den eindeutigen Namen des Zustellers zurück (z.B. "mailgun").
	Name() string
}

// TransientError markiert einen Transportfehler, bei dem sich ein erneuter Versuch lohnt.
type TransientError struct {
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient meldet, ob err (oder ein umhüllter Fehler) vorübergehend ist.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RetryableStatus meldet, ob ein HTTP-Status einen erneuten Versuch rechtfertigt.
func RetryableStatus(code int) bool {
	return code == 429 || code >= 500
}
