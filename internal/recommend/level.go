package recommend

import (
	"math"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/practicum/internal/domain"
)

// MaxKeywords caps ExtractKeywords output
const MaxKeywords = 10

var punctuation = regexp.MustCompile(`[^\w\s]`)

// ExtractKeywords lowercases text, strips punctuation and keeps the first
// MaxKeywords words longer than three characters.
func ExtractKeywords(text string) []string {
	cleaned := punctuation.ReplaceAllString(strings.ToLower(text), "")

	var keywords []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 3 {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == MaxKeywords {
			break
		}
	}
	return keywords
}

// EstimateUserLevel is the rounded mean difficulty level of completed
// exercises in category, or across all progress when category is empty.
// It is 1 without any completed exercise.
func EstimateUserLevel(progress []domain.ExerciseProgress, category string) int {
	sum, n := 0, 0
	for _, p := range progress {
		if category != "" && p.Category != category {
			continue
		}
		if !p.IsCompleted {
			continue
		}
		sum += p.Difficulty.Level()
		n++
	}
	if n == 0 {
		return 1
	}
	return int(math.Floor(float64(sum)/float64(n) + 0.5))
}
