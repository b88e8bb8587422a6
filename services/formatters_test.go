package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"reprise/mask"
	"reprise/models"
)

func reprisalFor(content string, title string, pairs ...mask.Pair) models.Reprisal {
	m := &models.Motif{UUID: content, Content: content}
	if title != "" {
		m.Citation = &models.Citation{Title: title}
	}
	r := models.Reprisal{MotifUUID: m.UUID, Motif: m}
	if len(pairs) > 0 {
		r.ClozeDeletion = &models.ClozeDeletion{MotifUUID: m.UUID, MaskTuples: datatypes.JSONSlice[mask.Pair](pairs)}
	}
	return r
}

func TestSimpleFormatter(t *testing.T) {
	text, err := SimpleFormatter([]models.Reprisal{
		reprisalFor("First motif", ""),
		reprisalFor("Second motif", "Some Book", mask.Pair{Start: 0, End: 5}),
	})
	require.NoError(t, err)
	assert.Equal(t, "First motif\nSecond motif", text)
}

func TestClozeFormatter(t *testing.T) {
	batch := []models.Reprisal{
		reprisalFor("The sky is blue", "Colours", mask.Pair{Start: 4, End: 6}, mask.Pair{Start: 11, End: 14}),
		reprisalFor("Water boils at 100 degrees", ""),
		reprisalFor("George Washington was the first president", "", mask.Pair{Start: 0, End: 16}),
	}

	text, err := ClozeFormatter("___")(batch)
	require.NoError(t, err)
	assert.Equal(t, `1. The ___ is ___ (Colours)
2. Water boils at 100 degrees
3. ___ was the first president

Answers
1. sky, blue
3. George Washington`, text)
}

func TestClozeFormatterWithoutMasks(t *testing.T) {
	text, err := ClozeFormatter("*")([]models.Reprisal{reprisalFor("Plain text", "")})
	require.NoError(t, err)
	assert.Equal(t, "1. Plain text", text)
}

func TestFormattersRejectMissingMotif(t *testing.T) {
	batch := []models.Reprisal{{UUID: "r-1"}}
	_, err := SimpleFormatter(batch)
	assert.Error(t, err)
	_, err = ClozeFormatter("*")(batch)
	assert.Error(t, err)
}

func TestClozeFormatterMalformedMask(t *testing.T) {
	batch := []models.Reprisal{reprisalFor("short", "", mask.Pair{Start: 2, End: 10})}
	_, err := ClozeFormatter("*")(batch)
	assert.ErrorIs(t, err, mask.ErrMalformedMask)
}
