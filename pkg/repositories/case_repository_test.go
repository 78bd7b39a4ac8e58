package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumara-health/labelling-engine/pkg/apperrors"
	"github.com/lumara-health/labelling-engine/pkg/models"
	"github.com/lumara-health/labelling-engine/pkg/testhelpers"
)

func TestCaseRepository_CreateAndGet(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewCaseRepository(testDB.DB)
	ctx := context.Background()

	c := &models.Case{
		Text:      "Ein Fall für den Roundtrip durch die Datenbank.",
		Language:  "de",
		Source:    models.CaseSourceManual,
		Status:    models.CaseStatusNew,
		Metadata:  map[string]any{"origin": "test"},
		CreatedBy: uuid.New(),
	}
	require.NoError(t, repo.Create(ctx, c))
	assert.NotEqual(t, uuid.Nil, c.ID)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Text, got.Text)
	assert.Equal(t, "test", got.Metadata["origin"])
}

func TestCaseRepository_GetByID_NotFound(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewCaseRepository(testDB.DB)

	got, err := repo.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCaseRepository_ImportBatch_SavepointPerItem(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewCaseRepository(testDB.DB)
	ctx := context.Background()

	creatorID := uuid.New()
	mkCase := func(source models.CaseSource) *models.Case {
		return &models.Case{
			Text:      "Ein ausreichend langer Text für den Batch-Import.",
			Language:  "de",
			Source:    source,
			Status:    models.CaseStatusNew,
			CreatedBy: creatorID,
		}
	}

	// The middle row violates the source check constraint; its savepoint rolls
	// back without aborting the batch.
	batch := []*models.Case{
		mkCase(models.CaseSourceImport),
		mkCase("SCRAPED"),
		mkCase(models.CaseSourceImport),
	}

	itemErrs, err := repo.ImportBatch(ctx, batch)
	require.NoError(t, err)
	require.Len(t, itemErrs, 3)

	assert.NoError(t, itemErrs[0])
	assert.Error(t, itemErrs[1])
	assert.NoError(t, itemErrs[2])

	for _, i := range []int{0, 2} {
		got, err := repo.GetByID(ctx, batch[i].ID)
		require.NoError(t, err)
		assert.Equal(t, models.CaseSourceImport, got.Source)
	}
}

func TestCaseRepository_NextUnlabeled(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	caseRepo := NewCaseRepository(testDB.DB)
	taxRepo := NewTaxonomyRepository(testDB.DB)
	labelRepo := NewLabelRepository(testDB.DB)
	ctx := context.Background()

	// The container is shared across the package; clear leftover NEW cases so
	// the FIFO assertion sees only this test's rows.
	_, err := testDB.DB.Exec(ctx, `TRUNCATE cases CASCADE`)
	require.NoError(t, err)

	raterID := uuid.New()
	tv := createTestTaxonomyVersion(t, taxRepo)

	older := createTestCase(t, caseRepo)
	newer := createTestCase(t, caseRepo)

	// The queue is FIFO over NEW cases.
	next, err := caseRepo.NextUnlabeled(ctx, raterID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, older.ID, next.ID)

	// Once the rater has labelled the older case it leaves their queue, even
	// though labelling promoted it out of NEW anyway for everyone else.
	require.NoError(t, labelRepo.CreateWithPromotion(ctx, testLabel(older.ID, raterID, tv.ID)))

	next, err = caseRepo.NextUnlabeled(ctx, raterID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, newer.ID, next.ID)
}

func TestCaseRepository_UpdateStatusAndDelete(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewCaseRepository(testDB.DB)
	ctx := context.Background()

	c := createTestCase(t, repo)

	require.NoError(t, repo.UpdateStatus(ctx, c.ID, models.CaseStatusReview))
	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusReview, got.Status)

	require.NoError(t, repo.Delete(ctx, c.ID))
	gone, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, c.ID, models.CaseStatusNew), apperrors.ErrNotFound)
}
