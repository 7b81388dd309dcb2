package domain

import "time"

// Default presentation values for bookmark organization
const (
	DefaultCollectionColor = "#3B82F6"
	DefaultCollectionIcon  = "folder"
	DefaultTagColor        = "#6B7280"
)

// BookmarkCollection is a user-authored group of bookmarked exercises
type BookmarkCollection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ExerciseIDs []string  `json:"exerciseIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
}

// Contains reports whether the collection holds the exercise
func (c *BookmarkCollection) Contains(exerciseID string) bool {
	return indexOf(c.ExerciseIDs, exerciseID) >= 0
}

// Clone returns a deep copy
func (c *BookmarkCollection) Clone() BookmarkCollection {
	out := *c
	out.ExerciseIDs = append([]string(nil), c.ExerciseIDs...)
	return out
}

// BookmarkTag is a user-authored label over bookmarked exercises
type BookmarkTag struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	ExerciseIDs []string `json:"exerciseIds"`
}

// Contains reports whether the tag is applied to the exercise
func (t *BookmarkTag) Contains(exerciseID string) bool {
	return indexOf(t.ExerciseIDs, exerciseID) >= 0
}

// Clone returns a deep copy
func (t *BookmarkTag) Clone() BookmarkTag {
	out := *t
	out.ExerciseIDs = append([]string(nil), t.ExerciseIDs...)
	return out
}

// CollectionUpdate carries optional changes for a collection.
// Nil fields are left untouched.
type CollectionUpdate struct {
	Name        *string
	Description *string
	Color       *string
	Icon        *string
}

// TagUpdate carries optional changes for a tag
type TagUpdate struct {
	Name  *string
	Color *string
}

// BookmarkStatistics summarizes bookmarked exercises
type BookmarkStatistics struct {
	TotalBookmarks         int                `json:"totalBookmarks"`
	CompletedBookmarks     int                `json:"completedBookmarks"`
	CompletionRate         float64            `json:"completionRate"`
	TotalTimeSpentMs       int64              `json:"totalTimeSpentMs"`
	AverageTimePerBookmark float64            `json:"averageTimePerBookmarkMs"`
	TotalCollections       int                `json:"totalCollections"`
	TotalTags              int                `json:"totalTags"`
	CategoryDistribution   map[string]int     `json:"categoryDistribution"`
	DifficultyDistribution map[string]int     `json:"difficultyDistribution"`
	RecentlyBookmarked     []ExerciseProgress `json:"recentlyBookmarked"`
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
