package models

// CategorySuggestion is one AI-proposed primary category with confidence.
type CategorySuggestion struct {
	Key        string  `json:"key"`
	Rank       int     `json:"rank"`
	Confidence float64 `json:"confidence"`
}

// LabelSuggestion is an AI pre-fill for the labelling form. It is advisory:
// the rater reviews and submits a LabelInput, so suggestions never enter the
// ledger directly.
type LabelSuggestion struct {
	Main               []CategorySuggestion `json:"main"`
	Sub                SubcategoryMap       `json:"sub"`
	Intensity          IntensityMap         `json:"intensity"`
	Related            []RelatedTopic       `json:"related"`
	UncertainSuggested bool                 `json:"uncertainSuggested"`
	RationaleShort     string               `json:"rationaleShort"`
}

// EmptySuggestion is the soft fallback when the provider fails or returns
// unusable output: nothing pre-filled, uncertainty flagged for the rater.
func EmptySuggestion() *LabelSuggestion {
	return &LabelSuggestion{
		Main:               []CategorySuggestion{},
		Sub:                SubcategoryMap{},
		Intensity:          IntensityMap{},
		Related:            []RelatedTopic{},
		UncertainSuggested: true,
	}
}
