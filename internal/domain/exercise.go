package domain

import "strings"

// ExerciseMeta is the catalog view of a practice exercise
type ExerciseMeta struct {
	ID            string     `json:"id" yaml:"id"`
	Href          string     `json:"href" yaml:"href"`
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description,omitempty" yaml:"description"`
	Category      string     `json:"category,omitempty" yaml:"category"`
	Difficulty    Difficulty `json:"difficulty,omitempty" yaml:"difficulty"`
	Tags          []string   `json:"tags,omitempty" yaml:"tags"`
	EstimatedTime string     `json:"estimatedTime,omitempty" yaml:"estimated_time"`
}

// Key returns the identifier progress records are stored under.
// Catalog entries without an explicit ID fall back to their href.
func (m ExerciseMeta) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return m.Href
}

// HasTag reports whether the exercise carries the given tag
func (m ExerciseMeta) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Difficulty represents exercise difficulty level
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Level maps a difficulty label onto its ordinal.
// beginner/easy = 1, intermediate/medium = 2, advanced/hard = 3.
// Unknown or empty labels count as beginner.
func (d Difficulty) Level() int {
	switch strings.ToLower(string(d)) {
	case "beginner", "easy":
		return 1
	case "intermediate", "medium":
		return 2
	case "advanced", "hard":
		return 3
	default:
		return 1
	}
}

// IsValid checks if the difficulty is a recognized label
func (d Difficulty) IsValid() bool {
	switch strings.ToLower(string(d)) {
	case "beginner", "easy", "intermediate", "medium", "advanced", "hard":
		return true
	}
	return false
}
