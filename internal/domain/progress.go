package domain

import "time"

// ExerciseProgress is the persisted per-exercise state for one learner
type ExerciseProgress struct {
	ExerciseID      string     `json:"exerciseId"`
	Href            string     `json:"href"`
	Title           string     `json:"title"`
	StartedAt       time.Time  `json:"startedAt"`
	LastAccessedAt  time.Time  `json:"lastAccessedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	TimeSpentMs     int64      `json:"timeSpentMs"`
	ReadingProgress float64    `json:"readingProgressPct"`
	Difficulty      Difficulty `json:"difficulty,omitempty"`
	Category        string     `json:"category,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	IsCompleted     bool       `json:"isCompleted"`
	IsBookmarked    bool       `json:"isBookmarked"`
	Attempts        int        `json:"attempts"`
	Notes           string     `json:"notes,omitempty"`
}

// NewExerciseProgress creates a fresh record from catalog metadata
func NewExerciseProgress(id string, meta ExerciseMeta, now time.Time) *ExerciseProgress {
	return &ExerciseProgress{
		ExerciseID:     id,
		Href:           meta.Href,
		Title:          meta.Title,
		StartedAt:      now,
		LastAccessedAt: now,
		Difficulty:     meta.Difficulty,
		Category:       meta.Category,
		Tags:           append([]string(nil), meta.Tags...),
	}
}

// IsInProgress reports whether reading has started but the exercise is not done
func (p *ExerciseProgress) IsInProgress() bool {
	return p.ReadingProgress > 0 && p.ReadingProgress < 100 && !p.IsCompleted
}

// Clone returns a deep copy safe to hand out to callers
func (p *ExerciseProgress) Clone() ExerciseProgress {
	c := *p
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		c.CompletedAt = &t
	}
	c.Tags = append([]string(nil), p.Tags...)
	return c
}

// ExerciseSession is one contiguous engagement window with an exercise
type ExerciseSession struct {
	ExerciseID     string     `json:"exerciseId"`
	SessionStart   time.Time  `json:"sessionStart"`
	SessionEnd     *time.Time `json:"sessionEnd,omitempty"`
	DurationMs     int64      `json:"durationMs"`
	ProgressBefore float64    `json:"progressBefore"`
	ProgressAfter  float64    `json:"progressAfter"`
	Completed      bool       `json:"completed"`
}

// IsOpen reports whether the session has not been closed yet
func (s *ExerciseSession) IsOpen() bool {
	return s.SessionEnd == nil
}

// Rollup aggregates progress for a category or difficulty
type Rollup struct {
	Total       int   `json:"total"`
	Completed   int   `json:"completed"`
	TimeSpentMs int64 `json:"timeSpentMs"`
}

// WeeklyProgress is one bucket of the weekly time series.
// Week is the Sunday that starts the bucket, formatted YYYY-MM-DD.
type WeeklyProgress struct {
	Week               string `json:"week"`
	ExercisesCompleted int    `json:"exercisesCompleted"`
	TimeSpentMs        int64  `json:"timeSpentMs"`
}

// Statistics summarizes a learner's progress
type Statistics struct {
	TotalExercises      int               `json:"totalExercises"`
	CompletedExercises  int               `json:"completedExercises"`
	InProgressExercises int               `json:"inProgressExercises"`
	BookmarkedExercises int               `json:"bookmarkedExercises"`
	TotalTimeSpentMs    int64             `json:"totalTimeSpentMs"`
	AverageTimeMs       float64           `json:"averageTimePerExerciseMs"`
	AverageProgress     float64           `json:"averageProgress"`
	CompletionRate      float64           `json:"completionRate"`
	Streak              int               `json:"streak"`
	LastActiveDate      *time.Time        `json:"lastActiveDate,omitempty"`
	Categories          map[string]Rollup `json:"categoriesProgress"`
	Difficulties        map[string]Rollup `json:"difficultyProgress"`
	Weekly              []WeeklyProgress  `json:"weeklyProgress"`
}
