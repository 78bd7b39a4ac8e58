package services

import (
	"sort"

	"github.com/google/uuid"

	"github.com/lumara-health/labelling-engine/pkg/models"
)

// AgreementConflictThreshold is the mean pairwise Jaccard similarity below
// which a calibration case counts as conflicted.
const AgreementConflictThreshold = 0.5

// jaccard computes the Jaccard similarity of two key sets. Two empty sets
// agree perfectly.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection

	return float64(intersection) / float64(union)
}

// ComputeAgreement derives inter-rater agreement for one case from its
// current labels. With fewer than two raters there is nothing to compare:
// similarity is 1 and no conflict is reported. CohensKappa is reserved and
// always null.
func ComputeAgreement(caseID uuid.UUID, labels []*models.Label) *models.AgreementMetrics {
	if len(labels) < 2 {
		return &models.AgreementMetrics{
			CaseID:            caseID,
			RaterCount:        len(labels),
			JaccardSimilarity: 1,
			CategoryAgreement: []models.CategoryAgreement{},
			HasConflict:       false,
		}
	}

	sets := make([]map[string]struct{}, len(labels))
	for i, l := range labels {
		sets[i] = l.PrimaryKeySet()
	}

	// Mean pairwise Jaccard over all rater pairs.
	totalJaccard := 0.0
	pairCount := 0
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			totalJaccard += jaccard(sets[i], sets[j])
			pairCount++
		}
	}
	avgJaccard := totalJaccard / float64(pairCount)

	// Per-category agreement: a category agrees only when every rater
	// selected it at the same rank.
	allCategories := make(map[string]struct{})
	for _, s := range sets {
		for k := range s {
			allCategories[k] = struct{}{}
		}
	}
	categories := make([]string, 0, len(allCategories))
	for k := range allCategories {
		categories = append(categories, k)
	}
	sort.Strings(categories)

	agreement := make([]models.CategoryAgreement, 0, len(categories))
	for _, category := range categories {
		var ranks []int
		for _, l := range labels {
			for _, pc := range l.PrimaryCategories {
				if pc.Key == category {
					ranks = append(ranks, pc.Rank)
					break
				}
			}
		}

		allSelected := len(ranks) == len(labels)
		sameRank := allSelected
		for _, r := range ranks {
			if r != ranks[0] {
				sameRank = false
				break
			}
		}

		ca := models.CategoryAgreement{Category: category, AgreedRanks: []int{}, DisagreedRanks: []int{}}
		if sameRank {
			ca.AgreedRanks = ranks
		} else {
			ca.DisagreedRanks = ranks
		}
		agreement = append(agreement, ca)
	}

	return &models.AgreementMetrics{
		CaseID:            caseID,
		RaterCount:        len(labels),
		JaccardSimilarity: avgJaccard,
		CategoryAgreement: agreement,
		HasConflict:       avgJaccard < AgreementConflictThreshold,
	}
}

// ConflictingCategories runs the export-time pairwise conflict test: if any
// rater pair's Jaccard similarity falls below the threshold, the case is
// conflicted and the disagreement categories are those not shared by every
// sub-threshold pair (the pair union minus the pair intersection). Returns
// false when no pair conflicts.
func ConflictingCategories(labels []*models.Label) ([]string, bool) {
	if len(labels) < 2 {
		return nil, false
	}

	sets := make([]map[string]struct{}, len(labels))
	for i, l := range labels {
		sets[i] = l.PrimaryKeySet()
	}

	hasConflict := false
	disagreement := make(map[string]struct{})

	for i := 0; i < len(sets) && !hasConflict; i++ {
		for j := i + 1; j < len(sets); j++ {
			if jaccard(sets[i], sets[j]) >= AgreementConflictThreshold {
				continue
			}
			hasConflict = true
			for k := range sets[i] {
				if _, ok := sets[j][k]; !ok {
					disagreement[k] = struct{}{}
				}
			}
			for k := range sets[j] {
				if _, ok := sets[i][k]; !ok {
					disagreement[k] = struct{}{}
				}
			}
		}
	}

	if !hasConflict {
		return nil, false
	}

	categories := make([]string, 0, len(disagreement))
	for k := range disagreement {
		categories = append(categories, k)
	}
	sort.Strings(categories)
	return categories, true
}
