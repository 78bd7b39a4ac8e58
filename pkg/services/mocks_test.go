package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lumara-health/labelling-engine/pkg/apperrors"
	"github.com/lumara-health/labelling-engine/pkg/models"
)

// mockCaseRepository is an in-memory CaseRepository for testing.
type mockCaseRepository struct {
	cases     map[uuid.UUID]*models.Case
	order     []uuid.UUID
	createErr error
	// importErrs lets a test fail specific batch indexes.
	importErrs map[int]error
}

func newMockCaseRepository() *mockCaseRepository {
	return &mockCaseRepository{cases: make(map[uuid.UUID]*models.Case)}
}

func (m *mockCaseRepository) add(c *models.Case) *models.Case {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.cases[c.ID] = c
	m.order = append(m.order, c.ID)
	return c
}

func (m *mockCaseRepository) Create(ctx context.Context, c *models.Case) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.add(c)
	return nil
}

func (m *mockCaseRepository) ImportBatch(ctx context.Context, cases []*models.Case) ([]error, error) {
	errs := make([]error, len(cases))
	for i, c := range cases {
		if err := m.importErrs[i]; err != nil {
			errs[i] = err
			continue
		}
		m.add(c)
	}
	return errs, nil
}

func (m *mockCaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	return m.cases[id], nil
}

func (m *mockCaseRepository) List(ctx context.Context, filters *models.CaseFilters) ([]*models.Case, int, error) {
	var all []*models.Case
	for _, id := range m.order {
		c := m.cases[id]
		if filters.Status != "" && c.Status != filters.Status {
			continue
		}
		if filters.Source != "" && c.Source != filters.Source {
			continue
		}
		all = append(all, c)
	}
	total := len(all)
	if filters.Offset < len(all) {
		all = all[filters.Offset:]
	} else {
		all = nil
	}
	if filters.Limit > 0 && len(all) > filters.Limit {
		all = all[:filters.Limit]
	}
	return all, total, nil
}

func (m *mockCaseRepository) NextUnlabeled(ctx context.Context, raterID uuid.UUID) (*models.Case, error) {
	for _, id := range m.order {
		c := m.cases[id]
		if c.Status == models.CaseStatusNew {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCaseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CaseStatus) error {
	c, ok := m.cases[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	c.Status = status
	return nil
}

func (m *mockCaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.cases[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.cases, id)
	return nil
}

func (m *mockCaseRepository) ForEachLabelled(ctx context.Context, from, to *time.Time, fn func(*models.Case) error) error {
	for _, id := range m.order {
		c := m.cases[id]
		if c.Status != models.CaseStatusLabeled && c.Status != models.CaseStatusReview {
			continue
		}
		if from != nil && c.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && c.CreatedAt.After(*to) {
			continue
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// mockLabelRepository is an in-memory LabelRepository for testing. When cases
// is set, CreateWithPromotion promotes NEW cases the way the real repository
// does in its transaction.
type mockLabelRepository struct {
	labels map[uuid.UUID]*models.Label
	order  []uuid.UUID
	cases  *mockCaseRepository
}

func newMockLabelRepository(cases *mockCaseRepository) *mockLabelRepository {
	return &mockLabelRepository{
		labels: make(map[uuid.UUID]*models.Label),
		cases:  cases,
	}
}

func (m *mockLabelRepository) add(l *models.Label) *models.Label {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	m.labels[l.ID] = l
	m.order = append(m.order, l.ID)
	return l
}

func (m *mockLabelRepository) CreateWithPromotion(ctx context.Context, label *models.Label) error {
	for _, l := range m.labels {
		if l.CaseID == label.CaseID && l.RaterID == label.RaterID && l.Current() {
			return apperrors.ErrAlreadyLabelled
		}
	}
	m.add(label)
	if m.cases != nil {
		if c := m.cases.cases[label.CaseID]; c != nil && c.Status == models.CaseStatusNew {
			c.Status = models.CaseStatusLabeled
		}
	}
	return nil
}

func (m *mockLabelRepository) Supersede(ctx context.Context, oldID uuid.UUID, replacement *models.Label) error {
	old, ok := m.labels[oldID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if !old.Current() {
		return apperrors.ErrAlreadySuperseded
	}
	if replacement.ID == uuid.Nil {
		replacement.ID = uuid.New()
	}
	old.SupersededByID = &replacement.ID
	m.add(replacement)
	return nil
}

func (m *mockLabelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Label, error) {
	return m.labels[id], nil
}

func (m *mockLabelRepository) CurrentForCase(ctx context.Context, caseID uuid.UUID) ([]*models.Label, error) {
	var out []*models.Label
	for _, id := range m.order {
		l := m.labels[id]
		if l.CaseID == caseID && l.Current() {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockLabelRepository) CurrentForCases(ctx context.Context, caseIDs []uuid.UUID) (map[uuid.UUID][]*models.Label, error) {
	out := make(map[uuid.UUID][]*models.Label)
	for _, caseID := range caseIDs {
		labels, _ := m.CurrentForCase(ctx, caseID)
		if len(labels) > 0 {
			out[caseID] = labels
		}
	}
	return out, nil
}

func (m *mockLabelRepository) CurrentForRater(ctx context.Context, caseID, raterID uuid.UUID) (*models.Label, error) {
	for _, id := range m.order {
		l := m.labels[id]
		if l.CaseID == caseID && l.RaterID == raterID && l.Current() {
			return l, nil
		}
	}
	return nil, nil
}

func (m *mockLabelRepository) CurrentByRater(ctx context.Context, raterID uuid.UUID) ([]*models.Label, error) {
	var out []*models.Label
	for _, id := range m.order {
		l := m.labels[id]
		if l.RaterID == raterID && l.Current() {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// mockTaxonomyRepository is an in-memory TaxonomyRepository for testing.
type mockTaxonomyRepository struct {
	versions []*models.TaxonomyVersion
}

func (m *mockTaxonomyRepository) EnsureVersion(ctx context.Context, version, description string, schema *models.TaxonomySchema, active bool) (*models.TaxonomyVersion, error) {
	for _, tv := range m.versions {
		if tv.Version == version {
			return tv, nil
		}
	}
	tv := &models.TaxonomyVersion{
		ID:          uuid.New(),
		Version:     version,
		Description: description,
		Schema:      *schema,
		IsActive:    active,
		CreatedAt:   time.Now().UTC(),
	}
	m.versions = append(m.versions, tv)
	return tv, nil
}

func (m *mockTaxonomyRepository) GetActive(ctx context.Context) (*models.TaxonomyVersion, error) {
	for _, tv := range m.versions {
		if tv.IsActive {
			return tv, nil
		}
	}
	return nil, nil
}

func (m *mockTaxonomyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TaxonomyVersion, error) {
	for _, tv := range m.versions {
		if tv.ID == id {
			return tv, nil
		}
	}
	return nil, nil
}

func (m *mockTaxonomyRepository) List(ctx context.Context) ([]*models.TaxonomyVersion, error) {
	return m.versions, nil
}

// mockCalibrationRepository is an in-memory CalibrationRepository for testing.
type mockCalibrationRepository struct {
	entries map[uuid.UUID]*models.CalibrationPoolEntry
}

func newMockCalibrationRepository() *mockCalibrationRepository {
	return &mockCalibrationRepository{entries: make(map[uuid.UUID]*models.CalibrationPoolEntry)}
}

func (m *mockCalibrationRepository) Upsert(ctx context.Context, caseID uuid.UUID) error {
	if e, ok := m.entries[caseID]; ok {
		e.IsActive = true
		return nil
	}
	m.entries[caseID] = &models.CalibrationPoolEntry{
		CaseID:   caseID,
		IsActive: true,
		AddedAt:  time.Now().UTC(),
	}
	return nil
}

func (m *mockCalibrationRepository) Deactivate(ctx context.Context, caseID uuid.UUID) error {
	e, ok := m.entries[caseID]
	if !ok || !e.IsActive {
		return apperrors.ErrNotFound
	}
	e.IsActive = false
	return nil
}

func (m *mockCalibrationRepository) IsActiveMember(ctx context.Context, caseID uuid.UUID) (bool, error) {
	e, ok := m.entries[caseID]
	return ok && e.IsActive, nil
}

func (m *mockCalibrationRepository) ActiveMembers(ctx context.Context, caseIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)
	for _, id := range caseIDs {
		if e, ok := m.entries[id]; ok && e.IsActive {
			out[id] = true
		}
	}
	return out, nil
}

func (m *mockCalibrationRepository) ListActive(ctx context.Context) ([]*models.CalibrationPoolEntry, error) {
	var out []*models.CalibrationPoolEntry
	for _, e := range m.entries {
		if e.IsActive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return out, nil
}

// mockModelRunRepository is an in-memory ModelRunRepository for testing.
type mockModelRunRepository struct {
	runs []*models.ModelRun
}

func (m *mockModelRunRepository) Create(ctx context.Context, run *models.ModelRun) error {
	run.ID = uuid.New()
	run.CreatedAt = time.Now().UTC()
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockModelRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ModelRun, error) {
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockModelRunRepository) List(ctx context.Context) ([]*models.ModelRun, error) {
	out := make([]*models.ModelRun, len(m.runs))
	copy(out, m.runs)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
