package search

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/felixgeelhaar/practicum/internal/cache"
	"github.com/felixgeelhaar/practicum/internal/catalog"
	"github.com/felixgeelhaar/practicum/internal/domain"
)

type completedList []domain.ExerciseProgress

func (c completedList) Completed() []domain.ExerciseProgress { return c }

var (
	sorting = domain.ExerciseMeta{
		ID: "algorithms/sorting-basics", Title: "Array Sorting Basics",
		Description: "Sort arrays with classic algorithms",
		Category:    "algorithms", Difficulty: domain.DifficultyBeginner,
		Tags: []string{"arrays", "sorting"},
	}
	graphs = domain.ExerciseMeta{
		ID: "algorithms/graph-traversal", Title: "Graph Traversal",
		Description: "Walk graphs depth first and breadth first",
		Category:    "algorithms", Difficulty: domain.DifficultyAdvanced,
		Tags: []string{"graphs", "recursion"},
	}
	binary = domain.ExerciseMeta{
		ID: "algorithms/binary-search", Title: "Binary Search",
		Description: "Search sorted arrays by halving",
		Category:    "algorithms", Difficulty: domain.DifficultyIntermediate,
		Tags: []string{"arrays", "searching"},
	}
	html = domain.ExerciseMeta{
		ID: "web/html-basics", Title: "HTML Basics",
		Category: "web", Difficulty: domain.DifficultyBeginner,
		Tags: []string{"html"},
	}
)

func keys(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Exercise.Key()
	}
	return out
}

func newTestEngine(completed ...domain.ExerciseProgress) *Engine {
	return NewEngine(catalog.NewStatic(sorting, graphs, binary, html), completedList(completed))
}

func TestSearch_TitleMatch(t *testing.T) {
	engine := newTestEngine()

	results := engine.Search(context.Background(), Options{Query: "sorting"})
	if len(results) == 0 {
		t.Fatal("Search() returned nothing")
	}
	top := results[0]
	if top.Exercise.Title != "Array Sorting Basics" {
		t.Fatalf("top = %q, want Array Sorting Basics", top.Exercise.Title)
	}
	if top.RelevanceScore <= 0 {
		t.Errorf("RelevanceScore = %v, want > 0", top.RelevanceScore)
	}
	if !top.HasField(FieldTitle) {
		t.Errorf("MatchedFields = %v, want title", top.MatchedFields)
	}
	if top.Highlight != "Array Sorting Basics" {
		t.Errorf("Highlight = %q", top.Highlight)
	}
}

func TestSearch_DifficultyOrder(t *testing.T) {
	engine := NewEngine(catalog.NewStatic(sorting, graphs, binary), completedList{})

	results := engine.Search(context.Background(), Options{Query: "", SortBy: SortDifficulty, SortOrder: OrderAsc})

	want := []string{"algorithms/sorting-basics", "algorithms/binary-search", "algorithms/graph-traversal"}
	if got := keys(results); !reflect.DeepEqual(got, want) {
		t.Errorf("Search() = %v, want %v", got, want)
	}

	results = engine.Search(context.Background(), Options{SortBy: SortDifficulty})
	if got := keys(results); got[0] != "algorithms/graph-traversal" {
		t.Errorf("desc first = %s, want graph-traversal", got[0])
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		ex     domain.ExerciseMeta
		query  string
		score  float64
		fields []string
	}{
		{"full title", sorting, "sorting", 1.0 + 0.3, []string{FieldTitle, FieldTags}},
		{"title terms", sorting, "basics of array", 0.6 + 0.2 + 0.3, []string{FieldTitle, FieldDescription, FieldTags}},
		{"description", graphs, "depth first", 0.7, []string{FieldDescription}},
		{"category", html, "web", 0.5, []string{FieldCategory}},
		{"difficulty", binary, "intermediate", 0.2, []string{FieldDifficulty}},
		{"tags", binary, "arrays", 0.7 + 0.3, []string{FieldDescription, FieldTags}},
		{"short terms ignored", html, "zz qq", 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.ex, tt.query)
			if math.Abs(got.RelevanceScore-tt.score) > 1e-9 {
				t.Errorf("RelevanceScore = %v, want %v", got.RelevanceScore, tt.score)
			}
			if !reflect.DeepEqual(got.MatchedFields, tt.fields) {
				t.Errorf("MatchedFields = %v, want %v", got.MatchedFields, tt.fields)
			}
		})
	}
}

func TestScore_DescriptionHighlight(t *testing.T) {
	long := domain.ExerciseMeta{
		Title:       "Trees",
		Description: strings.Repeat("ü", 150) + " balanced",
	}

	got := Score(long, "balanced")
	want := strings.Repeat("ü", HighlightRunes) + "…"
	if got.Highlight != want {
		t.Errorf("Highlight = %q, want %q", got.Highlight, want)
	}
}

func TestSearch_Filters(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"category", Options{Categories: []string{"web"}}, []string{"web/html-basics"}},
		{"difficulty", Options{Difficulties: []domain.Difficulty{"advanced", "intermediate"}, SortBy: SortDifficulty, SortOrder: OrderAsc},
			[]string{"algorithms/binary-search", "algorithms/graph-traversal"}},
		{"all tags required", Options{Tags: []string{"arrays", "sorting"}}, []string{"algorithms/sorting-basics"}},
		{"unknown tag", Options{Tags: []string{"arrays", "html"}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keys(engine.Search(ctx, tt.opts)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearch_Completed(t *testing.T) {
	engine := newTestEngine(domain.ExerciseProgress{ExerciseID: "algorithms/sorting-basics", IsCompleted: true})
	ctx := context.Background()

	for _, r := range engine.Search(ctx, Options{Query: "sorting"}) {
		if r.Exercise.Key() == "algorithms/sorting-basics" {
			t.Fatal("completed exercise returned without IncludeCompleted")
		}
	}

	results := engine.Search(ctx, Options{Query: "sorting", IncludeCompleted: true})
	if len(results) == 0 || results[0].Exercise.Key() != "algorithms/sorting-basics" {
		t.Errorf("IncludeCompleted = %v", keys(results))
	}
}

func TestSearch_SortAndLimit(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	results := engine.Search(ctx, Options{Query: "arrays"})
	for i := 1; i < len(results); i++ {
		if results[i].RelevanceScore > results[i-1].RelevanceScore {
			t.Fatalf("results not in descending relevance: %v", keys(results))
		}
	}

	byCategory := engine.Search(ctx, Options{SortBy: SortCategory, SortOrder: OrderAsc})
	if last := byCategory[len(byCategory)-1]; last.Exercise.Category != "web" {
		t.Errorf("last category = %s, want web", last.Exercise.Category)
	}

	recent := engine.Search(ctx, Options{SortBy: SortRecent})
	want := []string{"algorithms/sorting-basics", "algorithms/graph-traversal", "algorithms/binary-search", "web/html-basics"}
	if got := keys(recent); !reflect.DeepEqual(got, want) {
		t.Errorf("recent sort = %v, want catalog order %v", got, want)
	}

	if got := engine.Search(ctx, Options{Limit: 2}); len(got) != 2 {
		t.Errorf("Limit 2 len = %d", len(got))
	}
}

func TestSearch_CatalogFailure(t *testing.T) {
	failing := catalog.Func(func(context.Context, string) ([]domain.ExerciseMeta, error) {
		return nil, errors.New("catalog down")
	})
	engine := NewEngine(failing, completedList{})

	got := engine.Search(context.Background(), Options{Query: "x"})
	if got == nil || len(got) != 0 {
		t.Errorf("Search() = %#v, want empty", got)
	}
}

func TestSearch_Cached(t *testing.T) {
	calls := 0
	counting := catalog.Func(func(context.Context, string) ([]domain.ExerciseMeta, error) {
		calls++
		return []domain.ExerciseMeta{sorting}, nil
	})
	memo := cache.New[[]domain.SearchResult]("search")
	engine := NewEngine(counting, completedList{}, WithCache(memo))

	engine.Search(context.Background(), Options{Query: "sorting"})
	engine.Search(context.Background(), Options{Query: "sorting", SortBy: SortRelevance, SortOrder: OrderDesc})
	engine.Search(context.Background(), Options{Query: "arrays"})

	if calls != 2 {
		t.Errorf("catalog calls = %d, want 2", calls)
	}
}
