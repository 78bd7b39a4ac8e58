package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/models"
)

type exportServiceFixture struct {
	caseRepo  *mockCaseRepository
	labelRepo *mockLabelRepository
	poolRepo  *mockCalibrationRepository
	taxRepo   *mockTaxonomyRepository
	version   *models.TaxonomyVersion
	svc       *ExportService
}

func newExportServiceFixture(t *testing.T) *exportServiceFixture {
	t.Helper()

	caseRepo := newMockCaseRepository()
	labelRepo := newMockLabelRepository(caseRepo)
	poolRepo := newMockCalibrationRepository()
	taxRepo := &mockTaxonomyRepository{}

	tv, err := taxRepo.EnsureVersion(context.Background(), models.DefaultTaxonomyVersion,
		"", DefaultTaxonomySchema(models.DefaultTaxonomyVersion), true)
	require.NoError(t, err)

	return &exportServiceFixture{
		caseRepo:  caseRepo,
		labelRepo: labelRepo,
		poolRepo:  poolRepo,
		taxRepo:   taxRepo,
		version:   tv,
		svc:       NewExportService(caseRepo, labelRepo, poolRepo, taxRepo, zap.NewNop()),
	}
}

func (f *exportServiceFixture) addLabelledCase(text string, uncertain bool, categorySets ...[]string) *models.Case {
	c := f.caseRepo.add(&models.Case{
		Text:   text,
		Status: models.CaseStatusLabeled,
	})
	at := time.Now().UTC()
	for i, keys := range categorySets {
		l := labelWithCategories(uuid.New(), keys...)
		l.CaseID = c.ID
		l.TaxonomyVersionID = f.version.ID
		l.Uncertain = uncertain
		l.Subcategories = models.SubcategoryMap{}
		l.Intensity = models.IntensityMap{}
		// Spread timestamps so the oldest-label tie-break is deterministic.
		l.CreatedAt = at.Add(time.Duration(i) * time.Second)
		f.labelRepo.add(l)
	}
	return c
}

func jsonlOptions() *models.ExportOptions {
	return &models.ExportOptions{Format: models.ExportFormatJSONL}
}

func TestExportService_Preview(t *testing.T) {
	f := newExportServiceFixture(t)

	f.addLabelledCase("Ein exportierbarer Fall mit einem Label.", false, []string{"burnout"})
	f.addLabelledCase("Ein unsicherer Fall, der ausgefiltert wird.", true, []string{"anxiety"})

	// A labelled case with no label rows counts toward the total but is never
	// exported.
	f.caseRepo.add(&models.Case{Text: "Nie annotiert trotz Status.", Status: models.CaseStatusLabeled})

	// A conflicting calibration case is excluded and reported.
	conflicted := f.addLabelledCase("Zwei Rater, kein gemeinsames Thema.", false,
		[]string{"burnout"}, []string{"anxiety"})
	require.NoError(t, f.poolRepo.Upsert(context.Background(), conflicted.ID))

	preview, err := f.svc.Preview(context.Background(), jsonlOptions())
	require.NoError(t, err)

	assert.Equal(t, 4, preview.TotalCases)
	assert.Equal(t, 1, preview.ExportedCases)
	assert.Equal(t, 2, preview.ExcludedCases)
	require.Len(t, preview.Conflicts, 1)
	assert.Equal(t, conflicted.ID, preview.Conflicts[0].CaseID)
	assert.Equal(t, 2, preview.Conflicts[0].RaterCount)
	assert.Equal(t, []string{"anxiety", "burnout"}, preview.Conflicts[0].DisagreementCategories)
}

func TestExportService_Preview_IncludeUncertain(t *testing.T) {
	f := newExportServiceFixture(t)
	f.addLabelledCase("Ein unsicherer Fall für den Export.", true, []string{"anxiety"})

	opts := jsonlOptions()
	opts.IncludeUncertain = true

	preview, err := f.svc.Preview(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, preview.ExportedCases)
}

func TestExportService_Preview_CountsUnlabelledCases(t *testing.T) {
	f := newExportServiceFixture(t)

	f.addLabelledCase("Ein exportierbarer Fall mit einem Label.", false, []string{"burnout"})
	f.caseRepo.add(&models.Case{Text: "In REVIEW geparkt, ohne Label.", Status: models.CaseStatusReview})

	preview, err := f.svc.Preview(context.Background(), jsonlOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, preview.TotalCases)
	assert.Equal(t, 1, preview.ExportedCases)
	assert.Equal(t, 1, preview.ExcludedCases)
}

func TestExportService_PreviewMatchesExport(t *testing.T) {
	f := newExportServiceFixture(t)

	f.addLabelledCase("Ein exportierbarer Fall mit einem Label.", false, []string{"burnout"})
	f.addLabelledCase("Ein zweiter exportierbarer Fall.", false, []string{"anxiety"})
	f.addLabelledCase("Ein unsicherer Fall, der ausgefiltert wird.", true, []string{"depression"})
	f.caseRepo.add(&models.Case{Text: "Nie annotiert trotz Status.", Status: models.CaseStatusLabeled})
	conflicted := f.addLabelledCase("Zwei Rater, kein gemeinsames Thema.", false,
		[]string{"burnout"}, []string{"anxiety"})
	require.NoError(t, f.poolRepo.Upsert(context.Background(), conflicted.ID))

	opts := jsonlOptions()
	preview, err := f.svc.Preview(context.Background(), opts)
	require.NoError(t, err)
	result, err := f.svc.Export(context.Background(), opts)
	require.NoError(t, err)

	// The dry run and the real export run the same collection pass, so their
	// numbers agree on identical data.
	assert.Equal(t, preview.TotalCases, result.Report.TotalCases)
	assert.Equal(t, preview.ExportedCases, result.Report.ExportedCases)
	assert.Equal(t, preview.ExcludedCases, result.Report.ExcludedCases)
	assert.Equal(t, preview.Conflicts, result.Report.Conflicts)

	lines := strings.Split(string(result.Content), "\n")
	assert.Len(t, lines, preview.ExportedCases)
}

func TestExportService_Export_ConflictExcludedDespiteIncludeUncertain(t *testing.T) {
	f := newExportServiceFixture(t)
	conflicted := f.addLabelledCase("Zwei Rater, kein gemeinsames Thema.", false,
		[]string{"burnout"}, []string{"anxiety"})
	require.NoError(t, f.poolRepo.Upsert(context.Background(), conflicted.ID))

	opts := jsonlOptions()
	opts.IncludeUncertain = true

	// IncludeUncertain relaxes the uncertainty filter only; rater disagreement
	// still keeps the case out of the training data.
	result, err := f.svc.Export(context.Background(), opts)
	require.NoError(t, err)

	assert.Empty(t, result.Content)
	assert.Equal(t, 0, result.Report.ExportedCases)
	require.Len(t, result.Report.Conflicts, 1)
	assert.Equal(t, conflicted.ID, result.Report.Conflicts[0].CaseID)
	assert.NotContains(t, string(result.Content), conflicted.ID.String())
}

func TestExportService_Export_JSONL(t *testing.T) {
	f := newExportServiceFixture(t)
	c := f.addLabelledCase("Ein exportierbarer Fall mit einem Label.", false, []string{"burnout"})

	result, err := f.svc.Export(context.Background(), jsonlOptions())
	require.NoError(t, err)

	assert.Equal(t, "application/x-ndjson", result.ContentType)
	assert.True(t, strings.HasPrefix(result.Filename, "labels_export_"))
	assert.True(t, strings.HasSuffix(result.Filename, ".jsonl"))

	lines := strings.Split(string(result.Content), "\n")
	require.Len(t, lines, 1)

	// Field order is part of the format contract.
	expected := `{"id":"` + c.ID.String() + `","text":"Ein exportierbarer Fall mit einem Label.",` +
		`"taxonomy_version":"v0.1","labels_main":[{"key":"burnout","rank":1}],` +
		`"labels_sub":{},"intensity":{},"related_topics":[],"uncertain":false}`
	assert.Equal(t, expected, lines[0])

	require.NotNil(t, result.Report)
	assert.Equal(t, "v0.1", result.Report.TaxonomyVersion)
	assert.Equal(t, 1, result.Report.ExportedCases)
	assert.Equal(t, 1, result.Report.CategoryDistribution["burnout"])

	_, err = time.Parse(time.RFC3339, result.Report.ExportedAt)
	assert.NoError(t, err)
}

func TestExportService_Export_OldestLabelWins(t *testing.T) {
	f := newExportServiceFixture(t)
	// Two agreeing raters; the record must come from the older label.
	f.addLabelledCase("Zwei Rater, ein gemeinsames Thema, ältestes Label zählt.", false,
		[]string{"burnout"}, []string{"burnout", "anxiety"})

	result, err := f.svc.Export(context.Background(), jsonlOptions())
	require.NoError(t, err)

	var rec models.ExportedRecord
	require.NoError(t, json.Unmarshal(result.Content, &rec))
	require.Len(t, rec.LabelsMain, 1)
	assert.Equal(t, "burnout", rec.LabelsMain[0].Key)
}

func TestGenerateCSV(t *testing.T) {
	records := []*models.ExportedRecord{
		{
			ID:              "case-1",
			Text:            "Er sagte \"genug\"\nund ging.",
			TaxonomyVersion: "v0.1",
			LabelsMain: []models.PrimaryCategory{
				{Key: "anxiety", Rank: 2},
				{Key: "burnout", Rank: 1},
			},
			LabelsSub:     models.SubcategoryMap{"burnout": {"exhaustion"}},
			Intensity:     models.IntensityMap{},
			RelatedTopics: []models.RelatedTopic{{Key: "depression", Strength: models.StrengthSometimes}},
			Uncertain:     true,
		},
	}

	out, err := generateCSV(records)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,text,taxonomy_version,category_1,category_2,category_3,subcategories,intensity,related_topics,uncertain", lines[0])

	// Newlines collapse to spaces, embedded quotes double, categories land in
	// their rank slots.
	assert.Equal(t, `case-1,"Er sagte ""genug"" und ging.",v0.1,burnout,anxiety,,`+
		`"{""burnout"":[""exhaustion""]}","{}",`+
		`"[{""key"":""depression"",""strength"":""SOMETIMES""}]",true`, lines[1])
}

func TestGenerateCSV_RoundTrip(t *testing.T) {
	records := []*models.ExportedRecord{
		{
			ID:              "case-1",
			Text:            "Er sagte \"genug\"\nund ging.",
			TaxonomyVersion: "v0.1",
			LabelsMain:      []models.PrimaryCategory{{Key: "burnout", Rank: 1}},
			LabelsSub:       models.SubcategoryMap{"burnout": {"exhaustion"}},
			Intensity:       models.IntensityMap{},
			RelatedTopics:   []models.RelatedTopic{},
			Uncertain:       false,
		},
	}

	out, err := generateCSV(records)
	require.NoError(t, err)

	// A standard CSV reader must get the original cell values back, doubled
	// quotes undone.
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, rows[1], 10)

	assert.Equal(t, "case-1", rows[1][0])
	assert.Equal(t, `Er sagte "genug" und ging.`, rows[1][1])
	assert.Equal(t, "burnout", rows[1][3])
	assert.Empty(t, rows[1][4])

	var subs models.SubcategoryMap
	require.NoError(t, json.Unmarshal([]byte(rows[1][6]), &subs))
	assert.Equal(t, records[0].LabelsSub, subs)
}

func TestGenerateJSONL_Empty(t *testing.T) {
	out, err := generateJSONL(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
