package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTaxonomyVersion is the well-known bootstrap version. First use of
// the labelling surface creates it if absent.
const DefaultTaxonomyVersion = "v0.1"

// TaxonomySubTopic is one selectable subtopic under a main topic.
type TaxonomySubTopic struct {
	ID       string  `json:"id"`
	LabelKey string  `json:"labelKey"`
	Weight   float64 `json:"weight"`
}

// TaxonomyTopic is a main topic with its subtopics.
type TaxonomyTopic struct {
	ID        string             `json:"id"`
	LabelKey  string             `json:"labelKey"`
	SubTopics []TaxonomySubTopic `json:"subTopics"`
}

// TaxonomyIntensity is one intensity statement attached to a topic.
type TaxonomyIntensity struct {
	ID       string  `json:"id"`
	TopicID  string  `json:"topicId"`
	LabelKey string  `json:"labelKey"`
	Weight   float64 `json:"weight"`
}

// TaxonomySchema is the full category tree frozen into one taxonomy version.
// Labels reference a version id, so the tree a label was made against stays
// reconstructible after the taxonomy evolves.
type TaxonomySchema struct {
	Version   string                         `json:"version"`
	Topics    []TaxonomyTopic                `json:"topics"`
	Intensity map[string][]TaxonomyIntensity `json:"intensity"`
}

// TopicIDs returns the set of main topic ids.
func (s *TaxonomySchema) TopicIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Topics))
	for _, t := range s.Topics {
		ids[t.ID] = struct{}{}
	}
	return ids
}

// SubTopicIDs returns the set of subtopic ids under topicID, empty when the
// topic is unknown.
func (s *TaxonomySchema) SubTopicIDs(topicID string) map[string]struct{} {
	for _, t := range s.Topics {
		if t.ID != topicID {
			continue
		}
		ids := make(map[string]struct{}, len(t.SubTopics))
		for _, st := range t.SubTopics {
			ids[st.ID] = struct{}{}
		}
		return ids
	}
	return map[string]struct{}{}
}

// IntensityIDs returns the set of intensity statement ids for topicID.
func (s *TaxonomySchema) IntensityIDs(topicID string) map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Intensity[topicID]))
	for _, st := range s.Intensity[topicID] {
		ids[st.ID] = struct{}{}
	}
	return ids
}

// TaxonomyVersion is a persisted, immutable snapshot of the category tree.
type TaxonomyVersion struct {
	ID          uuid.UUID      `json:"id"`
	Version     string         `json:"version"`
	Description string         `json:"description,omitempty"`
	Schema      TaxonomySchema `json:"schema"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
}
