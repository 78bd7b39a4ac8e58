package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/apperrors"
	"github.com/lumara-health/labelling-engine/pkg/models"
)

type caseServiceFixture struct {
	caseRepo        *mockCaseRepository
	labelRepo       *mockLabelRepository
	calibrationRepo *mockCalibrationRepository
	svc             *CaseService
}

func newCaseServiceFixture() *caseServiceFixture {
	caseRepo := newMockCaseRepository()
	labelRepo := newMockLabelRepository(caseRepo)
	calibrationRepo := newMockCalibrationRepository()
	return &caseServiceFixture{
		caseRepo:        caseRepo,
		labelRepo:       labelRepo,
		calibrationRepo: calibrationRepo,
		svc:             NewCaseService(caseRepo, labelRepo, calibrationRepo, zap.NewNop()),
	}
}

func TestCaseService_Create_Defaults(t *testing.T) {
	f := newCaseServiceFixture()
	creatorID := uuid.New()

	c, err := f.svc.Create(context.Background(), creatorID, &models.CreateCaseInput{
		Text: "Seit Wochen kann ich nachts nicht mehr schlafen.",
	})
	require.NoError(t, err)

	assert.Equal(t, "de", c.Language)
	assert.Equal(t, models.CaseSourceManual, c.Source)
	assert.Equal(t, models.CaseStatusNew, c.Status)
	assert.Equal(t, creatorID, c.CreatedBy)
}

func TestCaseService_Create_TextTooShort(t *testing.T) {
	f := newCaseServiceFixture()

	_, err := f.svc.Create(context.Background(), uuid.New(), &models.CreateCaseInput{
		Text: "zu kurz",
	})
	verrs, ok := models.AsValidationErrors(err)
	require.True(t, ok)
	assert.Equal(t, "text", verrs[0].Field)
}

func TestCaseService_Import_MixedValidity(t *testing.T) {
	f := newCaseServiceFixture()

	result, err := f.svc.Import(context.Background(), uuid.New(), []models.ImportCaseItem{
		{Text: "Der erste Fall ist lang genug für den Import."},
		{Text: "kurz"},
		{Text: "Der dritte Fall ist ebenfalls lang genug für den Import."},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	// Error indexes are 1-based and keep the portal's established format.
	assert.True(t, strings.HasPrefix(result.Errors[0], "Fall 2: "), result.Errors[0])

	// Imported cases carry the IMPORT source.
	for _, c := range f.caseRepo.cases {
		assert.Equal(t, models.CaseSourceImport, c.Source)
	}
}

func TestCaseService_Import_DatabaseFailureIsPerItem(t *testing.T) {
	f := newCaseServiceFixture()
	f.caseRepo.importErrs = map[int]error{1: assert.AnError}

	result, err := f.svc.Import(context.Background(), uuid.New(), []models.ImportCaseItem{
		{Text: "Der erste Fall ist lang genug für den Import."},
		{Text: "Der zweite Fall ist lang genug für den Import."},
		{Text: "Der dritte Fall ist ebenfalls lang genug für den Import."},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "Fall 2: "), result.Errors[0])
}

func TestCaseService_Import_Bounds(t *testing.T) {
	f := newCaseServiceFixture()

	_, err := f.svc.Import(context.Background(), uuid.New(), nil)
	_, ok := models.AsValidationErrors(err)
	assert.True(t, ok)

	tooMany := make([]models.ImportCaseItem, models.MaxImportBatch+1)
	for i := range tooMany {
		tooMany[i] = models.ImportCaseItem{Text: "Ein ausreichend langer Beispieltext."}
	}
	_, err = f.svc.Import(context.Background(), uuid.New(), tooMany)
	_, ok = models.AsValidationErrors(err)
	assert.True(t, ok)
}

func TestCaseService_Get_Decorated(t *testing.T) {
	f := newCaseServiceFixture()
	c := f.caseRepo.add(&models.Case{
		Text:   "Ein Fall mit einem Label und Pool-Mitgliedschaft.",
		Status: models.CaseStatusLabeled,
	})
	f.labelRepo.add(&models.Label{
		CaseID:            c.ID,
		RaterID:           uuid.New(),
		PrimaryCategories: []models.PrimaryCategory{{Key: "burnout", Rank: 1}},
	})
	require.NoError(t, f.calibrationRepo.Upsert(context.Background(), c.ID))

	got, err := f.svc.Get(context.Background(), c.ID)
	require.NoError(t, err)

	assert.Equal(t, c.ID, got.ID)
	assert.Len(t, got.Labels, 1)
	assert.True(t, got.InCalibration)
}

func TestCaseService_Get_NotFound(t *testing.T) {
	f := newCaseServiceFixture()

	_, err := f.svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCaseService_Get_EmptyLabelsNotNil(t *testing.T) {
	f := newCaseServiceFixture()
	c := f.caseRepo.add(&models.Case{Text: "Ein Fall ohne jedes Label bisher."})

	got, err := f.svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Labels)
	assert.Empty(t, got.Labels)
	assert.False(t, got.InCalibration)
}

func TestCaseService_NextUnlabeled_EmptyQueue(t *testing.T) {
	f := newCaseServiceFixture()

	got, err := f.svc.NextUnlabeled(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCaseService_UpdateStatus(t *testing.T) {
	f := newCaseServiceFixture()
	c := f.caseRepo.add(&models.Case{
		Text:   "Ein Fall, der zur Überprüfung geparkt wird.",
		Status: models.CaseStatusLabeled,
	})

	require.NoError(t, f.svc.UpdateStatus(context.Background(), c.ID, models.CaseStatusReview))
	assert.Equal(t, models.CaseStatusReview, f.caseRepo.cases[c.ID].Status)

	err := f.svc.UpdateStatus(context.Background(), c.ID, "ARCHIVED")
	_, ok := models.AsValidationErrors(err)
	assert.True(t, ok)
}

func TestCaseService_List_Pagination(t *testing.T) {
	f := newCaseServiceFixture()
	for i := 0; i < 5; i++ {
		f.caseRepo.add(&models.Case{Text: "Ein ausreichend langer Beispieltext für die Liste."})
	}

	list, err := f.svc.List(context.Background(), &models.CaseFilters{Limit: 2, Offset: 2})
	require.NoError(t, err)

	assert.Equal(t, 5, list.Total)
	assert.Len(t, list.Cases, 2)
}
