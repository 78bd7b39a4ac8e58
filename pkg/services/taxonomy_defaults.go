package services

import "github.com/lumara-health/labelling-engine/pkg/models"

// DefaultTaxonomySchema builds the built-in German mental-health topic tree
// for the given version string. It seeds the bootstrap taxonomy version and
// is frozen into the version row; later taxonomy changes go through new
// versions, never by mutating this tree.
func DefaultTaxonomySchema(version string) *models.TaxonomySchema {
	return &models.TaxonomySchema{
		Version:   version,
		Topics:    defaultTopics(),
		Intensity: defaultIntensity(),
	}
}

func defaultTopics() []models.TaxonomyTopic {
	return []models.TaxonomyTopic{
		{
			ID: "family", LabelKey: "Familie",
			SubTopics: []models.TaxonomySubTopic{
				{ID: "divorce", LabelKey: "Scheidung/Trennung", Weight: 1.0},
				{ID: "parenting", LabelKey: "Erziehung", Weight: 0.8},
				{ID: "family_conflicts", LabelKey: "Familienkonflikte", Weight: 0.9},
				{ID: "generation_conflicts", LabelKey: "Generationenkonflikte", Weight: 0.7},
			},
		},
		{
			ID: "anxiety", LabelKey: "Angst",
			SubTopics: []models.TaxonomySubTopic{
				{ID: "social_anxiety", LabelKey: "Soziale Angst", Weight: 1.0},
				{ID: "panic_attacks", LabelKey: "Panikattacken", Weight: 1.0},
				{ID: "phobias", LabelKey: "Phobien", Weight: 0.8},
				{ID: "generalized_anxiety", LabelKey: "Generalisierte Angst", Weight: 0.9},
			},
		},
		{
			ID: "depression", LabelKey: "Depression",
			SubTopics: []models.TaxonomySubTopic{
				{ID: "chronic_sadness", LabelKey: "Chronische Traurigkeit", Weight: 1.0},
				{ID: "lack_motivation", LabelKey: "Antriebslosigkeit", Weight: 0.8},
				{ID: "grief", LabelKey: "Trauer", Weight: 0.9},
				{ID: "loneliness", LabelKey: "Einsamkeit", Weight: 0.8},
			},
		},
		{
			ID: "relationships", LabelKey: "Beziehungen",
			SubTopics: []models.TaxonomySubTopic{
				{ID: "couple_conflicts", LabelKey: "Paarkonflikte", Weight: 1.0},
				{ID: "breakup", LabelKey: "Trennung", Weight: 0.9},
				{ID: "dating_issues", LabelKey: "Dating-Probleme", Weight: 0.7},
				{ID: "intimacy", LabelKey: "Intimität", Weight: 0.8},
			},
		},
		{
			ID: "burnout", LabelKey: "Burnout",
			SubTopics: []models.TaxonomySubTopic{
				{ID: "work_stress", LabelKey: "Arbeitsstress", Weight: 1.0},
				{ID: "exhaustion", LabelKey: "Erschöpfung", Weight: 0.9},
				{ID: "work_life_balance", LabelKey: "Work-Life-Balance", Weight: 0.7},
			},
		},
		{
			ID: "trauma", LabelKey: "Trauma",
			SubTopics: []models.TaxonomySubTopic{
				{ID: "ptsd", LabelKey: "PTBS", Weight: 1.0},
				{ID: "childhood_trauma", LabelKey: "Kindheitstrauma", Weight: 1.0},
				{ID: "accident_trauma", LabelKey: "Unfalltrauma", Weight: 0.9},
				{ID: "loss", LabelKey: "Verlust", Weight: 0.8},
			},
		},
		{
			ID: "addiction", LabelKey: "Sucht",
			SubTopics: []models.TaxonomySubTopic{
				{ID: "alcohol", LabelKey: "Alkohol", Weight: 1.0},
				{ID: "drugs", LabelKey: "Drogen", Weight: 1.0},
				{ID: "behavioral_addiction", LabelKey: "Verhaltenssucht", Weight: 0.8},
				{ID: "gaming", LabelKey: "Gaming", Weight: 0.7},
			},
		},
		{
			ID: "eating_disorders", LabelKey: "Essstörungen",
			SubTopics: []models.TaxonomySubTopic{
				{ID: "anorexia", LabelKey: "Magersucht", Weight: 1.0},
				{ID: "bulimia", LabelKey: "Bulimie", Weight: 1.0},
				{ID: "binge_eating", LabelKey: "Essanfälle", Weight: 0.9},
			},
		},
		{
			ID: "adhd", LabelKey: "ADHS",
			SubTopics: []models.TaxonomySubTopic{
				{ID: "concentration", LabelKey: "Konzentration", Weight: 1.0},
				{ID: "impulsivity", LabelKey: "Impulsivität", Weight: 0.9},
				{ID: "adult_adhd", LabelKey: "ADHS Erwachsene", Weight: 0.8},
			},
		},
		{
			ID: "self_care", LabelKey: "Selbstfürsorge",
			SubTopics: []models.TaxonomySubTopic{
				{ID: "self_esteem", LabelKey: "Selbstwert", Weight: 0.8},
				{ID: "boundaries", LabelKey: "Grenzen setzen", Weight: 0.7},
				{ID: "life_changes", LabelKey: "Lebensveränderungen", Weight: 0.7},
			},
		},
		{
			ID: "stress", LabelKey: "Stress",
			SubTopics: []models.TaxonomySubTopic{
				{ID: "chronic_stress", LabelKey: "Chronischer Stress", Weight: 1.0},
				{ID: "exam_anxiety", LabelKey: "Prüfungsangst", Weight: 0.8},
				{ID: "performance_pressure", LabelKey: "Leistungsdruck", Weight: 0.9},
			},
		},
		{
			ID: "sleep", LabelKey: "Schlaf",
			SubTopics: []models.TaxonomySubTopic{
				{ID: "insomnia", LabelKey: "Schlaflosigkeit", Weight: 1.0},
				{ID: "nightmares", LabelKey: "Albträume", Weight: 0.9},
				{ID: "sleep_anxiety", LabelKey: "Schlafangst", Weight: 0.8},
			},
		},
	}
}

func defaultIntensity() map[string][]models.TaxonomyIntensity {
	statements := []models.TaxonomyIntensity{
		{ID: "dep_daily", TopicID: "depression", Weight: 2},
		{ID: "dep_sleep", TopicID: "depression", Weight: 1},
		{ID: "dep_work", TopicID: "depression", Weight: 2},
		{ID: "dep_isolation", TopicID: "depression", Weight: 2},
		{ID: "dep_hopeless", TopicID: "depression", Weight: 3},

		{ID: "anx_daily", TopicID: "anxiety", Weight: 2},
		{ID: "anx_avoid", TopicID: "anxiety", Weight: 2},
		{ID: "anx_physical", TopicID: "anxiety", Weight: 1},
		{ID: "anx_panic", TopicID: "anxiety", Weight: 3},
		{ID: "anx_work", TopicID: "anxiety", Weight: 2},

		{ID: "fam_daily", TopicID: "family", Weight: 2},
		{ID: "fam_communication", TopicID: "family", Weight: 1},
		{ID: "fam_avoidance", TopicID: "family", Weight: 2},
		{ID: "fam_children", TopicID: "family", Weight: 3},

		{ID: "rel_daily", TopicID: "relationships", Weight: 2},
		{ID: "rel_trust", TopicID: "relationships", Weight: 2},
		{ID: "rel_communication", TopicID: "relationships", Weight: 1},
		{ID: "rel_separation", TopicID: "relationships", Weight: 3},

		{ID: "burn_exhausted", TopicID: "burnout", Weight: 2},
		{ID: "burn_work", TopicID: "burnout", Weight: 2},
		{ID: "burn_cynical", TopicID: "burnout", Weight: 2},
		{ID: "burn_physical", TopicID: "burnout", Weight: 3},
		{ID: "burn_weekend", TopicID: "burnout", Weight: 1},

		{ID: "trauma_flashbacks", TopicID: "trauma", Weight: 3},
		{ID: "trauma_avoid", TopicID: "trauma", Weight: 2},
		{ID: "trauma_sleep", TopicID: "trauma", Weight: 2},
		{ID: "trauma_trust", TopicID: "trauma", Weight: 2},
		{ID: "trauma_daily", TopicID: "trauma", Weight: 3},

		{ID: "add_control", TopicID: "addiction", Weight: 2},
		{ID: "add_daily", TopicID: "addiction", Weight: 3},
		{ID: "add_relationships", TopicID: "addiction", Weight: 2},
		{ID: "add_withdrawal", TopicID: "addiction", Weight: 3},
		{ID: "add_hide", TopicID: "addiction", Weight: 1},

		{ID: "eat_thoughts", TopicID: "eating_disorders", Weight: 2},
		{ID: "eat_control", TopicID: "eating_disorders", Weight: 2},
		{ID: "eat_physical", TopicID: "eating_disorders", Weight: 3},
		{ID: "eat_social", TopicID: "eating_disorders", Weight: 2},

		{ID: "adhd_focus", TopicID: "adhd", Weight: 2},
		{ID: "adhd_organize", TopicID: "adhd", Weight: 2},
		{ID: "adhd_impulsive", TopicID: "adhd", Weight: 2},
		{ID: "adhd_work", TopicID: "adhd", Weight: 2},
		{ID: "adhd_relationships", TopicID: "adhd", Weight: 1},

		{ID: "self_worth", TopicID: "self_care", Weight: 2},
		{ID: "self_boundaries", TopicID: "self_care", Weight: 2},
		{ID: "self_neglect", TopicID: "self_care", Weight: 1},
		{ID: "self_overwhelm", TopicID: "self_care", Weight: 2},

		{ID: "stress_constant", TopicID: "stress", Weight: 2},
		{ID: "stress_physical", TopicID: "stress", Weight: 2},
		{ID: "stress_sleep", TopicID: "stress", Weight: 1},
		{ID: "stress_control", TopicID: "stress", Weight: 3},

		{ID: "sleep_falling", TopicID: "sleep", Weight: 1},
		{ID: "sleep_staying", TopicID: "sleep", Weight: 2},
		{ID: "sleep_daily", TopicID: "sleep", Weight: 2},
		{ID: "sleep_nightmares", TopicID: "sleep", Weight: 2},
		{ID: "sleep_medication", TopicID: "sleep", Weight: 3},
	}

	byTopic := make(map[string][]models.TaxonomyIntensity)
	for _, s := range statements {
		s.LabelKey = s.ID
		byTopic[s.TopicID] = append(byTopic[s.TopicID], s)
	}
	return byTopic
}
