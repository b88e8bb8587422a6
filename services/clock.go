package services

import (
	"time"

	"github.com/google/uuid"
)

// Clock liefert die aktuelle Zeit. In Tests wird eine feste Uhr eingesetzt.
type Clock interface {
	Now() time.Time
}

// SystemClock ist die echte Uhr.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IDGenerator erzeugt eindeutige Kennungen, etwa für Reprisal-Sets.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator erzeugt zufällige UUIDs (v4).
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }
