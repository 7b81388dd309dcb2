package progress

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/felixgeelhaar/practicum/internal/domain"
	"github.com/felixgeelhaar/practicum/internal/storage"
)

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func completedOn(id string, at time.Time) domain.ExerciseProgress {
	return domain.ExerciseProgress{
		ExerciseID:      id,
		IsCompleted:     true,
		CompletedAt:     &at,
		ReadingProgress: 100,
		LastAccessedAt:  at,
	}
}

func TestStreak(t *testing.T) {
	today := day(2024, 1, 10, 18)

	tests := []struct {
		name    string
		records []domain.ExerciseProgress
		want    int
	}{
		{"none", nil, 0},
		{
			"three consecutive days then a gap",
			[]domain.ExerciseProgress{
				completedOn("a", day(2024, 1, 10, 8)),
				completedOn("b", day(2024, 1, 9, 20)),
				completedOn("c", day(2024, 1, 8, 7)),
				completedOn("d", day(2024, 1, 6, 12)),
			},
			3,
		},
		{
			"several completions on one day",
			[]domain.ExerciseProgress{
				completedOn("a", day(2024, 1, 10, 8)),
				completedOn("b", day(2024, 1, 10, 9)),
				completedOn("c", day(2024, 1, 9, 9)),
			},
			2,
		},
		{
			"nothing today",
			[]domain.ExerciseProgress{
				completedOn("a", day(2024, 1, 9, 8)),
				completedOn("b", day(2024, 1, 8, 8)),
			},
			0,
		},
		{
			"incomplete records ignored",
			[]domain.ExerciseProgress{
				completedOn("a", day(2024, 1, 10, 8)),
				{ExerciseID: "b", ReadingProgress: 50, LastAccessedAt: day(2024, 1, 9, 8)},
			},
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Streak(tt.records, today); got != tt.want {
				t.Errorf("Streak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWeekly(t *testing.T) {
	sessions := []domain.ExerciseSession{
		// Wednesday 2024-01-10, week starts Sunday 2024-01-07
		{SessionStart: day(2024, 1, 10, 9), DurationMs: 1000, Completed: true},
		{SessionStart: day(2024, 1, 13, 9), DurationMs: 500},
		// Sunday 2024-01-14 starts its own week
		{SessionStart: day(2024, 1, 14, 9), DurationMs: 200, Completed: true},
	}

	weeks := Weekly(sessions, time.UTC)
	if len(weeks) != 2 {
		t.Fatalf("len(Weekly()) = %d, want 2", len(weeks))
	}
	if weeks[0] != (domain.WeeklyProgress{Week: "2024-01-07", ExercisesCompleted: 1, TimeSpentMs: 1500}) {
		t.Errorf("weeks[0] = %+v", weeks[0])
	}
	if weeks[1] != (domain.WeeklyProgress{Week: "2024-01-14", ExercisesCompleted: 1, TimeSpentMs: 200}) {
		t.Errorf("weeks[1] = %+v", weeks[1])
	}
}

func TestWeekly_KeepsLastTwelve(t *testing.T) {
	var sessions []domain.ExerciseSession
	start := day(2023, 1, 1, 12) // a Sunday
	for i := 0; i < 20; i++ {
		sessions = append(sessions, domain.ExerciseSession{SessionStart: start.AddDate(0, 0, 7*i), DurationMs: int64(i)})
	}

	weeks := Weekly(sessions, time.UTC)
	if len(weeks) != WeeklyBuckets {
		t.Fatalf("len(Weekly()) = %d, want %d", len(weeks), WeeklyBuckets)
	}
	if weeks[0].TimeSpentMs != 8 || weeks[len(weeks)-1].TimeSpentMs != 19 {
		t.Errorf("Weekly() kept %+v .. %+v, want the most recent weeks", weeks[0], weeks[len(weeks)-1])
	}
}

func TestComputeStatistics(t *testing.T) {
	now := day(2024, 1, 10, 18)
	records := []domain.ExerciseProgress{
		completedOn("a", day(2024, 1, 10, 8)),
		{ExerciseID: "b", ReadingProgress: 50, TimeSpentMs: 3000, Category: "web", Difficulty: "beginner", IsBookmarked: true, LastAccessedAt: day(2024, 1, 10, 12)},
		{ExerciseID: "c", Category: "web", LastAccessedAt: day(2024, 1, 2, 12)},
	}
	records[0].Category = "algorithms"
	records[0].Difficulty = "advanced"
	records[0].TimeSpentMs = 1000

	stats := ComputeStatistics(records, nil, now)

	if stats.TotalExercises != 3 || stats.CompletedExercises != 1 || stats.InProgressExercises != 1 || stats.BookmarkedExercises != 1 {
		t.Errorf("counts = %+v", stats)
	}
	if stats.TotalTimeSpentMs != 4000 {
		t.Errorf("TotalTimeSpentMs = %d, want 4000", stats.TotalTimeSpentMs)
	}
	if stats.AverageProgress != 50 {
		t.Errorf("AverageProgress = %v, want 50", stats.AverageProgress)
	}
	if got := stats.CompletionRate; got < 33.3 || got > 33.4 {
		t.Errorf("CompletionRate = %v, want ~33.3", got)
	}
	if stats.Streak != 1 {
		t.Errorf("Streak = %d, want 1", stats.Streak)
	}
	if stats.LastActiveDate == nil || !stats.LastActiveDate.Equal(day(2024, 1, 10, 12)) {
		t.Errorf("LastActiveDate = %v", stats.LastActiveDate)
	}
	if got := stats.Categories["web"]; got != (domain.Rollup{Total: 2, TimeSpentMs: 3000}) {
		t.Errorf("Categories[web] = %+v", got)
	}
	if got := stats.Difficulties["advanced"]; got != (domain.Rollup{Total: 1, Completed: 1, TimeSpentMs: 1000}) {
		t.Errorf("Difficulties[advanced] = %+v", got)
	}
	if _, ok := stats.Difficulties[""]; ok {
		t.Error("records without difficulty should not get a rollup")
	}
}

func TestComputeStatistics_Empty(t *testing.T) {
	stats := ComputeStatistics(nil, nil, time.Now())
	if stats.TotalExercises != 0 || stats.CompletionRate != 0 || stats.AverageProgress != 0 {
		t.Errorf("stats = %+v, want zero values", stats)
	}
	if stats.LastActiveDate != nil {
		t.Errorf("LastActiveDate = %v, want nil", stats.LastActiveDate)
	}
}

func TestStore_StatisticsStreakAcrossDays(t *testing.T) {
	clock := newTestClock()
	clock.now = day(2024, 1, 8, 10)
	s := NewStore(context.Background(), nil, WithClock(clock.Now))
	ctx := context.Background()

	for _, id := range []string{"x", "y", "z"} {
		s.StartExercise(ctx, id, domain.ExerciseMeta{Title: id})
		s.CompleteExercise(ctx, id)
		clock.Advance(24 * time.Hour)
	}
	clock.Advance(-24 * time.Hour) // today is 2024-01-10

	stats := s.Statistics()
	if stats.Streak != 3 {
		t.Errorf("Streak = %d, want 3", stats.Streak)
	}
	if len(stats.Weekly) != 1 || stats.Weekly[0].ExercisesCompleted != 3 {
		t.Errorf("Weekly = %+v", stats.Weekly)
	}
}

func TestStore_ExportImportRoundTrip(t *testing.T) {
	src, clock := newTestStore(t, nil)
	ctx := context.Background()

	src.StartExercise(ctx, sortingMeta.ID, sortingMeta)
	clock.Advance(time.Minute)
	src.CompleteExercise(ctx, sortingMeta.ID)
	src.ToggleBookmark(ctx, graphMeta.ID, graphMeta)
	src.AddNote(ctx, graphMeta.ID, "revisit")

	data, err := src.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}

	kv := storage.NewMemory()
	dst := NewStore(ctx, kv)
	if err := dst.ImportJSON(ctx, data); err != nil {
		t.Fatalf("ImportJSON() error = %v", err)
	}

	want, got := src.ExportData(), dst.ExportData()
	assertSameDump(t, want, got)

	// Import persists
	assertSameDump(t, want, NewStore(ctx, kv).ExportData())
}

func assertSameDump(t *testing.T, want, got Export) {
	t.Helper()

	wantJSON, err := json.Marshal(map[string]any{"p": want.Progress, "s": want.Sessions})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	gotJSON, err := json.Marshal(map[string]any{"p": got.Progress, "s": got.Sessions})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(wantJSON) != string(gotJSON) {
		t.Errorf("dump mismatch:\n got %s\nwant %s", gotJSON, wantJSON)
	}
}

func TestStore_ImportJSON_Rejects(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()
	s.StartExercise(ctx, sortingMeta.ID, sortingMeta)

	bad := []string{
		"not json",
		`{"sessions":{}}`,
		`{"progress":{"x":{"exerciseId":"x","readingProgressPct":140}}}`,
	}
	for _, payload := range bad {
		if err := s.ImportJSON(ctx, []byte(payload)); err == nil {
			t.Errorf("ImportJSON(%q) should fail", payload)
		}
	}
	if _, ok := s.GetProgress(sortingMeta.ID); !ok {
		t.Error("rejected import must leave the store untouched")
	}
}

func TestStore_ClearAll(t *testing.T) {
	kv := storage.NewMemory()
	s, _ := newTestStore(t, kv)
	ctx := context.Background()

	s.StartExercise(ctx, sortingMeta.ID, sortingMeta)
	s.CompleteExercise(ctx, sortingMeta.ID)
	s.ClearAll(ctx)

	if len(s.All()) != 0 || len(s.Sessions()) != 0 {
		t.Error("ClearAll() should drop every record and session")
	}
	if keys := kv.Keys(); len(keys) != 0 {
		t.Errorf("storage keys after ClearAll() = %v, want none", keys)
	}
}
