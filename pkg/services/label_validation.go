package services

import (
	"fmt"

	"github.com/lumara-health/labelling-engine/pkg/models"
)

// validateAgainstTaxonomy checks the taxonomy-dependent half of label
// validation: every selected key must exist in the schema, subcategory and
// intensity selections must belong to selected primary categories, and
// related topics must be valid keys disjoint from the primaries. Structural
// checks (counts, ranks, snippet ranges) run in models.LabelInput first.
func validateAgainstTaxonomy(in *models.LabelInput, schema *models.TaxonomySchema) models.ValidationErrors {
	var errs models.ValidationErrors
	topicIDs := schema.TopicIDs()

	selected := make(map[string]struct{}, len(in.PrimaryCategories))
	for _, pc := range in.PrimaryCategories {
		selected[pc.Key] = struct{}{}
		if _, ok := topicIDs[pc.Key]; !ok {
			errs = append(errs, models.ValidationError{
				Field:   "primary_categories",
				Message: fmt.Sprintf("unknown category: %s", pc.Key),
			})
		}
	}

	for categoryKey, subKeys := range in.Subcategories {
		if _, ok := selected[categoryKey]; !ok {
			errs = append(errs, models.ValidationError{
				Field:   "subcategories",
				Message: fmt.Sprintf("subcategories for unselected category: %s", categoryKey),
			})
			continue
		}
		valid := schema.SubTopicIDs(categoryKey)
		for _, subKey := range subKeys {
			if _, ok := valid[subKey]; !ok {
				errs = append(errs, models.ValidationError{
					Field:   "subcategories",
					Message: fmt.Sprintf("invalid subcategory %q for category %q", subKey, categoryKey),
				})
			}
		}
	}

	for categoryKey, intensityIDs := range in.Intensity {
		if _, ok := selected[categoryKey]; !ok {
			errs = append(errs, models.ValidationError{
				Field:   "intensity",
				Message: fmt.Sprintf("intensity markers for unselected category: %s", categoryKey),
			})
			continue
		}
		valid := schema.IntensityIDs(categoryKey)
		for _, id := range intensityIDs {
			if _, ok := valid[id]; !ok {
				errs = append(errs, models.ValidationError{
					Field:   "intensity",
					Message: fmt.Sprintf("invalid intensity marker %q for category %q", id, categoryKey),
				})
			}
		}
	}

	for _, rt := range in.RelatedTopics {
		if _, ok := topicIDs[rt.Key]; !ok {
			errs = append(errs, models.ValidationError{
				Field:   "related_topics",
				Message: fmt.Sprintf("unknown related topic: %s", rt.Key),
			})
			continue
		}
		if _, ok := selected[rt.Key]; ok {
			errs = append(errs, models.ValidationError{
				Field:   "related_topics",
				Message: fmt.Sprintf("%q is already a primary category", rt.Key),
			})
		}
	}

	return errs
}

// ValidateLabel runs structural then taxonomy validation, mirroring the
// labelling form: taxonomy checks only run once the structure holds, so the
// rater is not flooded with follow-on errors.
func ValidateLabel(in *models.LabelInput, schema *models.TaxonomySchema, textLength int) models.ValidationErrors {
	errs := in.ValidateStructure(textLength)
	if len(errs) > 0 {
		return errs
	}
	return validateAgainstTaxonomy(in, schema)
}
