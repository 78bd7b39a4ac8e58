package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/apperrors"
	"github.com/lumara-health/labelling-engine/pkg/llm"
	"github.com/lumara-health/labelling-engine/pkg/models"
)

const maxGeneratedCases = 20

const suggestSystemMessage = `You are an assistant that pre-labels German-language ` +
	`mental-health case vignettes against a fixed taxonomy. Respond with a single ` +
	`JSON object and nothing else.`

const generateSystemMessage = `You write realistic, anonymous German-language ` +
	`case vignettes describing a person's mental-health situation, for use as ` +
	`labelling training data. Respond with a single JSON object and nothing else.`

// SuggestionService produces AI pre-fills for the labelling form and seeds
// synthetic cases. Suggestions are advisory only; a rater always reviews and
// submits the label through the normal validation path.
type SuggestionService struct {
	client   llm.Client
	taxonomy *TaxonomyService
	cases    *CaseService
	logger   *zap.Logger
}

// NewSuggestionService creates a new SuggestionService. client may be nil
// when no provider is configured.
func NewSuggestionService(client llm.Client, taxonomy *TaxonomyService, cases *CaseService, logger *zap.Logger) *SuggestionService {
	return &SuggestionService{
		client:   client,
		taxonomy: taxonomy,
		cases:    cases,
		logger:   logger.Named("suggestion-service"),
	}
}

// rawSuggestion is the shape we ask the model for. All fields are
// re-validated against the taxonomy before anything reaches the caller.
type rawSuggestion struct {
	Main []struct {
		Key        string  `json:"key"`
		Confidence float64 `json:"confidence"`
	} `json:"main"`
	Sub                map[string][]string `json:"sub"`
	Intensity          map[string][]string `json:"intensity"`
	Related            []struct {
		Key      string `json:"key"`
		Strength string `json:"strength"`
	} `json:"related"`
	UncertainSuggested bool   `json:"uncertain_suggested"`
	RationaleShort     string `json:"rationale_short"`
}

// Suggest returns an AI pre-fill for the given case. Provider and parse
// failures degrade to an empty suggestion with the uncertainty flag set, so
// the labelling form stays usable when the model misbehaves.
func (s *SuggestionService) Suggest(ctx context.Context, caseID uuid.UUID) (*models.LabelSuggestion, error) {
	if s.client == nil {
		return nil, apperrors.ErrNotConfigured
	}

	cw, err := s.cases.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}

	tv, err := s.taxonomy.ActiveVersion(ctx)
	if err != nil {
		return nil, err
	}
	schema := &tv.Schema

	prompt, err := buildSuggestPrompt(cw.Text, schema)
	if err != nil {
		return nil, err
	}

	response, err := s.client.Complete(ctx, suggestSystemMessage, prompt)
	if err != nil {
		s.logger.Warn("Suggestion request failed, returning empty suggestion",
			zap.String("case_id", caseID.String()),
			zap.Error(err))
		return models.EmptySuggestion(), nil
	}

	raw, err := llm.ParseJSONResponse[rawSuggestion](response)
	if err != nil {
		s.logger.Warn("Suggestion response unparseable, returning empty suggestion",
			zap.String("case_id", caseID.String()),
			zap.Error(err))
		return models.EmptySuggestion(), nil
	}

	suggestion := normalizeSuggestion(&raw, schema)

	s.logger.Debug("Suggestion generated",
		zap.String("case_id", caseID.String()),
		zap.Int("main_categories", len(suggestion.Main)),
		zap.String("model", s.client.Model()))

	return suggestion, nil
}

// GenerateCases asks the model for count synthetic vignettes about topicKey
// and imports them as AI_SEEDED cases through the normal import validation.
func (s *SuggestionService) GenerateCases(ctx context.Context, adminID uuid.UUID, topicKey string, count int) (*models.ImportResult, error) {
	if s.client == nil {
		return nil, apperrors.ErrNotConfigured
	}
	if count < 1 || count > maxGeneratedCases {
		return nil, models.ValidationErrors{{
			Field:   "count",
			Message: fmt.Sprintf("count must be between 1 and %d", maxGeneratedCases),
		}}
	}

	tv, err := s.taxonomy.ActiveVersion(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := tv.Schema.TopicIDs()[topicKey]; !ok {
		return nil, models.ValidationErrors{{Field: "topic", Message: "unknown taxonomy topic: " + topicKey}}
	}

	prompt := fmt.Sprintf(
		"Write %d distinct case vignettes about the topic %q. Each vignette is "+
			"a first-person German text between 50 and 1500 characters. Respond as "+
			`{"cases":[{"text":"..."}]}.`,
		count, topicKey)

	response, err := s.client.Complete(ctx, generateSystemMessage, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate cases: %w", err)
	}

	type generatedCases struct {
		Cases []struct {
			Text string `json:"text"`
		} `json:"cases"`
	}
	parsed, err := llm.ParseJSONResponse[generatedCases](response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated cases: %w", err)
	}
	if len(parsed.Cases) == 0 {
		return nil, fmt.Errorf("model returned no cases")
	}

	items := make([]models.ImportCaseItem, 0, len(parsed.Cases))
	for _, c := range parsed.Cases {
		items = append(items, models.ImportCaseItem{
			Text:     c.Text,
			Language: "de",
			Metadata: map[string]any{"seed_topic": topicKey, "model": s.client.Model()},
		})
	}

	result, err := s.cases.importWithSource(ctx, adminID, items, models.CaseSourceAISeeded)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Seeded AI cases",
		zap.String("topic", topicKey),
		zap.Int("requested", count),
		zap.Int("imported", result.Imported))

	return result, nil
}

// buildSuggestPrompt renders the case text with the taxonomy the model must
// choose from.
func buildSuggestPrompt(caseText string, schema *models.TaxonomySchema) (string, error) {
	type promptTopic struct {
		Key       string   `json:"key"`
		SubTopics []string `json:"subTopics"`
		Intensity []string `json:"intensity"`
	}

	topics := make([]promptTopic, 0, len(schema.Topics))
	for _, t := range schema.Topics {
		pt := promptTopic{Key: t.ID, SubTopics: []string{}, Intensity: []string{}}
		for _, st := range t.SubTopics {
			pt.SubTopics = append(pt.SubTopics, st.ID)
		}
		for _, in := range schema.Intensity[t.ID] {
			pt.Intensity = append(pt.Intensity, in.ID)
		}
		topics = append(topics, pt)
	}

	taxonomyJSON, err := json.Marshal(topics)
	if err != nil {
		return "", fmt.Errorf("failed to marshal taxonomy for prompt: %w", err)
	}

	var b strings.Builder
	b.WriteString("Taxonomy (use only these keys):\n")
	b.Write(taxonomyJSON)
	b.WriteString("\n\nCase text:\n")
	b.WriteString(caseText)
	b.WriteString("\n\nSelect 1 to 3 main topics ordered by dominance, plus matching ")
	b.WriteString("subtopics and intensity statements from the selected topics only, and ")
	b.WriteString("related topics (present but not dominant, strength OFTEN or SOMETIMES). ")
	b.WriteString(`Respond as {"main":[{"key":"...","confidence":0.0}],` +
		`"sub":{"topic":["subtopic"]},"intensity":{"topic":["statement"]},` +
		`"related":[{"key":"...","strength":"SOMETIMES"}],` +
		`"uncertain_suggested":false,"rationale_short":"..."}`)

	return b.String(), nil
}

// normalizeSuggestion enforces the taxonomy on model output: unknown keys are
// dropped, main categories are capped at three and re-ranked by confidence,
// sub and intensity entries survive only under a selected main topic, and
// related topics must be disjoint from the main selection.
func normalizeSuggestion(raw *rawSuggestion, schema *models.TaxonomySchema) *models.LabelSuggestion {
	topicIDs := schema.TopicIDs()

	main := make([]models.CategorySuggestion, 0, models.MaxPrimaryCategories)
	seen := make(map[string]bool)
	for _, m := range raw.Main {
		if _, ok := topicIDs[m.Key]; !ok || seen[m.Key] {
			continue
		}
		seen[m.Key] = true
		main = append(main, models.CategorySuggestion{Key: m.Key, Confidence: m.Confidence})
	}
	sort.SliceStable(main, func(i, j int) bool { return main[i].Confidence > main[j].Confidence })
	if len(main) > models.MaxPrimaryCategories {
		main = main[:models.MaxPrimaryCategories]
	}
	for i := range main {
		main[i].Rank = i + 1
	}

	selected := make(map[string]bool, len(main))
	for _, m := range main {
		selected[m.Key] = true
	}

	sub := models.SubcategoryMap{}
	for topic, ids := range raw.Sub {
		if !selected[topic] {
			continue
		}
		valid := schema.SubTopicIDs(topic)
		kept := dedupeMembers(ids, valid)
		if len(kept) > 0 {
			sub[topic] = kept
		}
	}

	intensity := models.IntensityMap{}
	for topic, ids := range raw.Intensity {
		if !selected[topic] {
			continue
		}
		valid := schema.IntensityIDs(topic)
		kept := dedupeMembers(ids, valid)
		if len(kept) > 0 {
			intensity[topic] = kept
		}
	}

	related := make([]models.RelatedTopic, 0, len(raw.Related))
	seenRelated := make(map[string]bool)
	for _, r := range raw.Related {
		if _, ok := topicIDs[r.Key]; !ok || selected[r.Key] || seenRelated[r.Key] {
			continue
		}
		seenRelated[r.Key] = true
		strength := models.StrengthSometimes
		if strings.EqualFold(r.Strength, string(models.StrengthOften)) {
			strength = models.StrengthOften
		}
		related = append(related, models.RelatedTopic{Key: r.Key, Strength: strength})
	}

	if len(main) == 0 {
		return models.EmptySuggestion()
	}

	return &models.LabelSuggestion{
		Main:               main,
		Sub:                sub,
		Intensity:          intensity,
		Related:            related,
		UncertainSuggested: raw.UncertainSuggested,
		RationaleShort:     raw.RationaleShort,
	}
}

// dedupeMembers keeps ids that are in valid, preserving order, without
// duplicates.
func dedupeMembers(ids []string, valid map[string]struct{}) []string {
	kept := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := valid[id]; !ok || seen[id] {
			continue
		}
		seen[id] = true
		kept = append(kept, id)
	}
	return kept
}
