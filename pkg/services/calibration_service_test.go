package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/apperrors"
	"github.com/lumara-health/labelling-engine/pkg/models"
)

type calibrationServiceFixture struct {
	caseRepo  *mockCaseRepository
	labelRepo *mockLabelRepository
	poolRepo  *mockCalibrationRepository
	svc       *CalibrationService
}

func newCalibrationServiceFixture() *calibrationServiceFixture {
	caseRepo := newMockCaseRepository()
	labelRepo := newMockLabelRepository(caseRepo)
	poolRepo := newMockCalibrationRepository()
	return &calibrationServiceFixture{
		caseRepo:  caseRepo,
		labelRepo: labelRepo,
		poolRepo:  poolRepo,
		svc:       NewCalibrationService(poolRepo, caseRepo, labelRepo, zap.NewNop()),
	}
}

func (f *calibrationServiceFixture) newLabelledCase(categorySets ...[]string) *models.Case {
	c := f.caseRepo.add(&models.Case{
		Text:   "Ein Kalibrierungsfall mit mehreren unabhängigen Labels.",
		Status: models.CaseStatusLabeled,
	})
	for _, keys := range categorySets {
		l := labelWithCategories(uuid.New(), keys...)
		l.CaseID = c.ID
		f.labelRepo.add(l)
	}
	return c
}

func TestCalibrationService_Add(t *testing.T) {
	f := newCalibrationServiceFixture()
	c := f.newLabelledCase()

	require.NoError(t, f.svc.Add(context.Background(), c.ID))

	member, err := f.poolRepo.IsActiveMember(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, member)

	// Adding again is idempotent.
	assert.NoError(t, f.svc.Add(context.Background(), c.ID))
}

func TestCalibrationService_Add_UnknownCase(t *testing.T) {
	f := newCalibrationServiceFixture()
	err := f.svc.Add(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCalibrationService_RemoveAndReactivate(t *testing.T) {
	f := newCalibrationServiceFixture()
	c := f.newLabelledCase()

	require.NoError(t, f.svc.Add(context.Background(), c.ID))
	require.NoError(t, f.svc.Remove(context.Background(), c.ID))

	member, err := f.poolRepo.IsActiveMember(context.Background(), c.ID)
	require.NoError(t, err)
	assert.False(t, member)

	// Removal deactivates; re-adding brings the entry back.
	require.NoError(t, f.svc.Add(context.Background(), c.ID))
	member, err = f.poolRepo.IsActiveMember(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, member)
}

func TestCalibrationService_Remove_NotMember(t *testing.T) {
	f := newCalibrationServiceFixture()
	err := f.svc.Remove(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCalibrationService_Cases(t *testing.T) {
	f := newCalibrationServiceFixture()
	c := f.newLabelledCase(
		[]string{"burnout", "anxiety"},
		[]string{"burnout", "depression"},
	)
	require.NoError(t, f.svc.Add(context.Background(), c.ID))

	views, err := f.svc.Cases(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)

	view := views[0]
	assert.Equal(t, c.ID, view.Case.ID)
	assert.Len(t, view.Labels, 2)
	require.NotNil(t, view.Agreement)
	assert.Equal(t, 2, view.Agreement.RaterCount)
	assert.True(t, view.Agreement.HasConflict)
}

func TestCalibrationService_Agreement_UnknownCase(t *testing.T) {
	f := newCalibrationServiceFixture()
	_, err := f.svc.Agreement(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCalibrationService_Stats(t *testing.T) {
	f := newCalibrationServiceFixture()

	// One single-rater member, one agreeing pair, one conflicting pair.
	single := f.newLabelledCase([]string{"burnout"})
	agreeing := f.newLabelledCase([]string{"burnout"}, []string{"burnout"})
	conflicting := f.newLabelledCase([]string{"burnout"}, []string{"anxiety"})

	for _, c := range []*models.Case{single, agreeing, conflicting} {
		require.NoError(t, f.svc.Add(context.Background(), c.ID))
	}

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.PoolSize)
	assert.Equal(t, 2, stats.MultiRater)
	assert.Equal(t, 1, stats.Conflicts)
	require.NotNil(t, stats.MeanSimilarity)
	assert.InDelta(t, 0.5, *stats.MeanSimilarity, 1e-9)
}

func TestCalibrationService_Stats_EmptyPool(t *testing.T) {
	f := newCalibrationServiceFixture()

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Zero(t, stats.PoolSize)
	assert.Zero(t, stats.MultiRater)
	assert.Nil(t, stats.MeanSimilarity)
}
