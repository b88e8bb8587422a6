package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reprise/mask"
	"reprise/providers"
	"reprise/repository"
)

func newClozeService(gen *fakeGenerator) *ClozeService {
	return &ClozeService{
		Generator: gen,
		Logger:    zap.NewNop(),
		MaxSets:   3,
		Retry:     RetryPolicy{Attempts: 2, Backoff: time.Millisecond},
	}
}

func TestGenerateResolvesPhrasesLocally(t *testing.T) {
	gen := &fakeGenerator{proposals: [][]string{
		{"blue", "sky"},
		{"O(n log n)"},
	}}
	svc := newClozeService(gen)

	sets, err := svc.Generate(context.Background(), "The sky is blue and the time complexity is O(n log n)", 2)
	require.NoError(t, err)
	assert.Equal(t, [][]mask.Pair{
		{{4, 6}, {11, 14}},
		{{43, 52}},
	}, sets)
	assert.Equal(t, 2, gen.lastNMax)
}

func TestGenerateSkipsEmptyAndDuplicateSets(t *testing.T) {
	gen := &fakeGenerator{proposals: [][]string{
		{"purple"},
		{"sky"},
		{"sky", "sky"},
		{"blue sky", "sky"},
	}}
	svc := newClozeService(gen)

	sets, err := svc.Generate(context.Background(), "The blue sky", 5)
	require.NoError(t, err)
	// "blue sky" und "sky" überlappen und werden zu einem Bereich vereinigt.
	assert.Equal(t, [][]mask.Pair{{{9, 11}}, {{4, 11}}}, sets)
}

func TestGenerateTruncatesToNMax(t *testing.T) {
	gen := &fakeGenerator{proposals: [][]string{{"The"}, {"sky"}, {"blue"}}}
	svc := newClozeService(gen)

	sets, err := svc.Generate(context.Background(), "The sky is blue", 2)
	require.NoError(t, err)
	assert.Len(t, sets, 2)
}

func TestGenerateDefaultsNMax(t *testing.T) {
	gen := &fakeGenerator{proposals: [][]string{{"sky"}}}
	svc := newClozeService(gen)

	_, err := svc.Generate(context.Background(), "The sky is blue", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, gen.lastNMax)
}

func TestGenerateNoValidMasks(t *testing.T) {
	gen := &fakeGenerator{proposals: [][]string{{"purple"}, {"Sky"}, {}}}
	svc := newClozeService(gen)

	_, err := svc.Generate(context.Background(), "The sky is blue", 3)
	assert.ErrorIs(t, err, ErrNoValidMasks)
}

func TestGenerateProviderErrors(t *testing.T) {
	tests := []struct {
		name  string
		errs  []error
		want  error
		calls int
	}{
		{"malformed response", []error{fmt.Errorf("%w: bad json", providers.ErrMalformedResponse)}, ErrInvalidResponseFormat, 1},
		{"permanent failure", []error{errors.New("401 unauthorized")}, ErrGenerationUnavailable, 1},
		{"transient twice", []error{&providers.TransientError{StatusCode: 503, Err: errors.New("down")}, &providers.TransientError{StatusCode: 503, Err: errors.New("down")}}, ErrGenerationUnavailable, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{proposals: [][]string{{"sky"}}, proposeErr: tt.errs}
			svc := newClozeService(gen)

			_, err := svc.Generate(context.Background(), "The sky is blue", 1)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.calls, gen.proposeCalls)
		})
	}
}

func TestGenerateRetriesTransientOnce(t *testing.T) {
	gen := &fakeGenerator{
		proposals:  [][]string{{"sky"}},
		proposeErr: []error{&providers.TransientError{Err: errors.New("connection reset")}},
	}
	svc := newClozeService(gen)

	sets, err := svc.Generate(context.Background(), "The sky is blue", 1)
	require.NoError(t, err)
	assert.Equal(t, [][]mask.Pair{{{4, 6}}}, sets)
	assert.Equal(t, 2, gen.proposeCalls)
}

func TestGenerateQualityFilter(t *testing.T) {
	gen := &fakeGenerator{
		proposals: [][]string{{"The"}, {"sky", "blue"}},
		verdicts:  map[string]bool{"[[0,2]]": false},
	}
	svc := newClozeService(gen)

	svc.QualityCheck = false
	sets, err := svc.Generate(context.Background(), "The sky is blue", 2)
	require.NoError(t, err)
	assert.Len(t, sets, 2)
	assert.Zero(t, gen.judgeCalls)

	svc.QualityCheck = true
	sets, err = svc.Generate(context.Background(), "The sky is blue", 2)
	require.NoError(t, err)
	assert.Equal(t, [][]mask.Pair{{{4, 6}, {11, 14}}}, sets)
	assert.Equal(t, 2, gen.judgeCalls)
}

func TestGenerateQualityFilterRejectsAll(t *testing.T) {
	gen := &fakeGenerator{
		proposals: [][]string{{"The"}},
		verdicts:  map[string]bool{"[[0,2]]": false},
	}
	svc := newClozeService(gen)
	svc.QualityCheck = true

	_, err := svc.Generate(context.Background(), "The sky is blue", 1)
	assert.ErrorIs(t, err, ErrNoValidMasks)
}

func TestGenerateJudgeFailureIsSurfaced(t *testing.T) {
	gen := &fakeGenerator{
		proposals: [][]string{{"sky"}},
		judgeErr:  fmt.Errorf("%w: missing acceptable", providers.ErrMalformedResponse),
	}
	svc := newClozeService(gen)
	svc.QualityCheck = true

	_, err := svc.Generate(context.Background(), "The sky is blue", 1)
	assert.ErrorIs(t, err, ErrInvalidResponseFormat)
}

func TestGenerateForMotifPersists(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	m, err := s.motifs.Add(ctx, "The sky is blue", nil)
	require.NoError(t, err)

	gen := &fakeGenerator{proposals: [][]string{{"sky"}, {"blue"}}}
	svc := NewClozeService(gen, s.motifs, s.clozes, zap.NewNop())

	created, err := svc.GenerateForMotif(ctx, m.UUID, 0)
	require.NoError(t, err)
	require.Len(t, created, 2)

	stored, err := s.clozes.ListByMotif(ctx, m.UUID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	_, err = svc.GenerateForMotif(ctx, "missing", 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
