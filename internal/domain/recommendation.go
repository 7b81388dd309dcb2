package domain

// Recommendation is a scored, explained suggestion
type Recommendation struct {
	Exercise   ExerciseMeta `json:"exercise"`
	Score      float64      `json:"score"`
	Reasons    []string     `json:"reasons"`
	Confidence float64      `json:"confidence"`
}

// SearchResult is one ranked catalog hit
type SearchResult struct {
	Exercise       ExerciseMeta `json:"exercise"`
	RelevanceScore float64      `json:"relevanceScore"`
	MatchedFields  []string     `json:"matchedFields"`
	Highlight      string       `json:"highlight,omitempty"`
}

// HasField reports whether the given field contributed to the match
func (r SearchResult) HasField(field string) bool {
	for _, f := range r.MatchedFields {
		if f == field {
			return true
		}
	}
	return false
}
