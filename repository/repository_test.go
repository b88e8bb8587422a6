package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"reprise/mask"
	"reprise/models"
)

var epoch = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func addMotif(t *testing.T, repo *MotifRepository, content string, minute int) *models.Motif {
	t.Helper()
	m := &models.Motif{Content: content, CreatedAt: epoch.Add(time.Duration(minute) * time.Minute)}
	require.NoError(t, repo.Create(context.Background(), m))
	return m
}

func TestMotifListOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewMotifRepository(db)
	ctx := context.Background()

	third := addMotif(t, repo, "third", 3)
	first := addMotif(t, repo, "first", 1)
	second := addMotif(t, repo, "second", 2)

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{first.UUID, second.UUID, third.UUID}, []string{got[0].UUID, got[1].UUID, got[2].UUID})

	page, total, err := repo.ListPaginated(ctx, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, third.UUID, page[0].UUID)
}

func TestMotifCitation(t *testing.T) {
	db := newTestDB(t)
	motifs := NewMotifRepository(db)
	citations := NewCitationRepository(db)
	ctx := context.Background()

	c, err := citations.GetOrCreateByTitle(ctx, "  Thinking, Fast and Slow ")
	require.NoError(t, err)
	again, err := citations.GetOrCreateByTitle(ctx, "Thinking, Fast and Slow")
	require.NoError(t, err)
	assert.Equal(t, c.UUID, again.UUID)

	m, err := motifs.Add(ctx, "System 1 operates automatically.", &c.UUID)
	require.NoError(t, err)

	loaded, err := motifs.Get(ctx, m.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Thinking, Fast and Slow", loaded.CitationTitle())

	cleared, err := motifs.SetCitation(ctx, m.UUID, nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.CitationUUID)

	missing := "does-not-exist"
	_, err = motifs.Add(ctx, "orphan", &missing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMotifGetNotFound(t *testing.T) {
	repo := NewMotifRepository(newTestDB(t))
	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), "nope"), ErrNotFound)
}

func TestClozeDeletionValidation(t *testing.T) {
	db := newTestDB(t)
	motifs := NewMotifRepository(db)
	cds := NewClozeDeletionRepository(db)
	ctx := context.Background()

	m := addMotif(t, motifs, "The sky is blue", 0)

	cd, err := cds.Add(ctx, m.UUID, []mask.Pair{{11, 14}, {4, 6}})
	require.NoError(t, err)
	assert.Equal(t, []mask.Pair{{4, 6}, {11, 14}}, cd.Pairs())

	loaded, err := cds.Get(ctx, cd.UUID)
	require.NoError(t, err)
	assert.Equal(t, []mask.Pair{{4, 6}, {11, 14}}, loaded.Pairs())
	masked, err := loaded.Masked(m.Content, "*")
	require.NoError(t, err)
	assert.Equal(t, "The * is *", masked)

	_, err = cds.Add(ctx, m.UUID, []mask.Pair{{11, 15}})
	assert.ErrorIs(t, err, mask.ErrMalformedMask)

	_, err = cds.Add(ctx, m.UUID, nil)
	assert.ErrorIs(t, err, mask.ErrMalformedMask)

	_, err = cds.Update(ctx, cd.UUID, []mask.Pair{{4, 8}, {8, 10}})
	assert.ErrorIs(t, err, mask.ErrMalformedMask)

	updated, err := cds.Update(ctx, cd.UUID, []mask.Pair{{0, 2}})
	require.NoError(t, err)
	assert.Equal(t, []mask.Pair{{0, 2}}, updated.Pairs())

	list, err := cds.ListByMotif(ctx, m.UUID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []mask.Pair{{0, 2}}, list[0].Pairs())

	_, err = cds.Add(ctx, "missing", []mask.Pair{{0, 1}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClozeDeletionAddAll(t *testing.T) {
	db := newTestDB(t)
	motifs := NewMotifRepository(db)
	cds := NewClozeDeletionRepository(db)
	ctx := context.Background()
	m := addMotif(t, motifs, "The sky is blue", 0)

	created, err := cds.AddAll(ctx, m.UUID, [][]mask.Pair{{{4, 6}}, {{11, 14}, {0, 2}}})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, []mask.Pair{{0, 2}, {11, 14}}, created[1].Pairs())

	// ein ungültiger Satz verwirft alle
	_, err = cds.AddAll(ctx, m.UUID, [][]mask.Pair{{{4, 6}}, {{11, 40}}})
	assert.ErrorIs(t, err, mask.ErrMalformedMask)

	_, err = cds.AddAll(ctx, "missing", [][]mask.Pair{{{0, 1}}})
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := cds.ListByMotif(ctx, m.UUID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestClozeDeletionAddAllRollsBackOnInsertError(t *testing.T) {
	db := newTestDB(t)
	motifs := NewMotifRepository(db)
	cds := NewClozeDeletionRepository(db)
	ctx := context.Background()
	m := addMotif(t, motifs, "The sky is blue", 0)

	inserts := 0
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_second_cloze", func(tx *gorm.DB) {
		if tx.Statement.Table != "cloze_deletions" {
			return
		}
		inserts++
		if inserts == 2 {
			tx.AddError(errors.New("disk full"))
		}
	}))

	_, err := cds.AddAll(ctx, m.UUID, [][]mask.Pair{{{4, 6}}, {{11, 14}}, {{0, 2}}})
	require.Error(t, err)

	list, err := cds.ListByMotif(ctx, m.UUID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReprisalMotifMismatch(t *testing.T) {
	db := newTestDB(t)
	motifs := NewMotifRepository(db)
	cds := NewClozeDeletionRepository(db)
	reprisals := NewReprisalRepository(db)
	ctx := context.Background()

	a := addMotif(t, motifs, "alpha beta", 0)
	b := addMotif(t, motifs, "gamma delta", 1)
	cd, err := cds.Add(ctx, a.UUID, []mask.Pair{{0, 4}})
	require.NoError(t, err)

	err = reprisals.AddSet(ctx, []*models.Reprisal{
		{MotifUUID: a.UUID, SetUUID: "set-1"},
		{MotifUUID: b.UUID, SetUUID: "set-1", ClozeDeletionUUID: &cd.UUID},
	})
	assert.ErrorIs(t, err, ErrMotifMismatch)

	// Die Transaktion wurde vollständig zurückgerollt.
	ok, err := reprisals.SetExists(ctx, "set-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReprisalCounts(t *testing.T) {
	db := newTestDB(t)
	motifs := NewMotifRepository(db)
	reprisals := NewReprisalRepository(db)
	ctx := context.Background()

	a := addMotif(t, motifs, "a", 0)
	b := addMotif(t, motifs, "b", 1)
	c := addMotif(t, motifs, "c", 2)

	require.NoError(t, reprisals.AddSet(ctx, []*models.Reprisal{
		{MotifUUID: a.UUID, SetUUID: "s1"},
		{MotifUUID: b.UUID, SetUUID: "s1"},
	}))
	require.NoError(t, reprisals.Add(ctx, &models.Reprisal{MotifUUID: a.UUID, SetUUID: "s2"}))

	counts, err := motifs.ReprisalCounts(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, a.UUID, counts[0].Motif.UUID)
	assert.Equal(t, 2, counts[0].ReprisalCount)
	assert.Equal(t, 1, counts[1].ReprisalCount)
	assert.Equal(t, c.UUID, counts[2].Motif.UUID)
	assert.Equal(t, 0, counts[2].ReprisalCount)

	set, err := reprisals.ListBySet(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, set, 2)
	require.NotNil(t, set[0].Motif)
}

func TestMotifDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	motifs := NewMotifRepository(db)
	cds := NewClozeDeletionRepository(db)
	reprisals := NewReprisalRepository(db)
	ctx := context.Background()

	m := addMotif(t, motifs, "The sky is blue", 0)
	cd, err := cds.Add(ctx, m.UUID, []mask.Pair{{4, 6}})
	require.NoError(t, err)
	require.NoError(t, reprisals.Add(ctx, &models.Reprisal{MotifUUID: m.UUID, SetUUID: "s", ClozeDeletionUUID: &cd.UUID}))

	require.NoError(t, motifs.Delete(ctx, m.UUID))

	var n int64
	require.NoError(t, db.Model(&models.ClozeDeletion{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Reprisal{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestClozeDeletionDeleteKeepsHistory(t *testing.T) {
	db := newTestDB(t)
	motifs := NewMotifRepository(db)
	cds := NewClozeDeletionRepository(db)
	reprisals := NewReprisalRepository(db)
	ctx := context.Background()

	m := addMotif(t, motifs, "The sky is blue", 0)
	cd, err := cds.Add(ctx, m.UUID, []mask.Pair{{4, 6}})
	require.NoError(t, err)
	require.NoError(t, reprisals.Add(ctx, &models.Reprisal{MotifUUID: m.UUID, SetUUID: "s", ClozeDeletionUUID: &cd.UUID}))

	require.NoError(t, cds.Delete(ctx, cd.UUID))
	assert.ErrorIs(t, cds.Delete(ctx, cd.UUID), ErrNotFound)

	set, err := reprisals.ListBySet(ctx, "s")
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Nil(t, set[0].ClozeDeletionUUID)
}

func TestUpdateContentDropsStaleMasks(t *testing.T) {
	db := newTestDB(t)
	motifs := NewMotifRepository(db)
	cds := NewClozeDeletionRepository(db)
	ctx := context.Background()

	m := addMotif(t, motifs, "The sky is blue", 0)
	_, err := cds.Add(ctx, m.UUID, []mask.Pair{{4, 6}})
	require.NoError(t, err)
	_, err = cds.Add(ctx, m.UUID, []mask.Pair{{11, 14}})
	require.NoError(t, err)

	updated, err := motifs.UpdateContent(ctx, m.UUID, "The sky")
	require.NoError(t, err)
	assert.Equal(t, "The sky", updated.Content)
	require.Len(t, updated.ClozeDeletions, 1)
	assert.Equal(t, []mask.Pair{{4, 6}}, updated.ClozeDeletions[0].Pairs())
}

func TestScheduleCoverageAndConflict(t *testing.T) {
	db := newTestDB(t)
	motifs := NewMotifRepository(db)
	reprisals := NewReprisalRepository(db)
	schedules := NewScheduleRepository(db)
	ctx := context.Background()

	_, err := schedules.Add(ctx, "unknown-set", epoch)
	assert.ErrorIs(t, err, ErrScheduleConflict)
	assert.Contains(t, err.Error(), "reprisal set unknown-set not found")

	m := addMotif(t, motifs, "x", 0)
	require.NoError(t, reprisals.Add(ctx, &models.Reprisal{MotifUUID: m.UUID, SetUUID: "set-a"}))

	_, err = schedules.Add(ctx, "set-a", epoch)
	require.NoError(t, err)

	tol := 30 * time.Minute
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"exact", epoch, true},
		{"inside before", epoch.Add(-29 * time.Minute), true},
		{"inside after", epoch.Add(29 * time.Minute), true},
		{"boundary is exclusive", epoch.Add(30 * time.Minute), false},
		{"far away", epoch.Add(8 * time.Hour), false},
		{"other zone same instant", epoch.In(time.FixedZone("CET", 3600)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := schedules.HasCoverage(ctx, tt.at, tol)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = schedules.Add(ctx, "set-a", epoch.Add(8*time.Hour))
	require.NoError(t, err)
	list, err := schedules.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].ScheduledFor.Equal(epoch.Add(8*time.Hour)))
}
