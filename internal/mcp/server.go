package mcp

import (
	"context"
	"fmt"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/practicum/internal/app"
	"github.com/felixgeelhaar/practicum/internal/catalog"
	"github.com/felixgeelhaar/practicum/internal/domain"
	"github.com/felixgeelhaar/practicum/internal/recommend"
	"github.com/felixgeelhaar/practicum/internal/search"
)

// Server exposes practicum to MCP clients
type Server struct {
	mcpServer *server.Server
	app       *app.App
}

// Config contains configuration for the MCP server
type Config struct {
	App     *app.App
	Version string
}

// NewServer creates a new MCP server for practicum
func NewServer(cfg Config) *Server {
	s := &Server{app: cfg.App}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "practicum",
		Version: version,
	}, server.WithInstructions(`
Practicum tracks exercise progress and suggests what to practice next.

Discovery:
- practicum_catalog: Browse the catalog with filters
- practicum_search: Ranked free-text search
- practicum_recommend: Personalized recommendations with reasons
- practicum_related: Exercises similar to one exercise
- practicum_path: Ordered learning path

Progress:
- practicum_start: Open an exercise session
- practicum_progress: Report reading progress (0-100)
- practicum_complete: Mark an exercise complete
- practicum_end: Close the open session
- practicum_bookmark: Toggle a bookmark
- practicum_note: Attach a note
- practicum_stats: Learning statistics and streak
`))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("practicum_catalog").
		Description("List catalog exercises filtered by category, difficulty, tags or text.").
		Handler(s.handleCatalog)

	s.mcpServer.Tool("practicum_search").
		Description("Search exercises by free text, ranked by relevance.").
		Handler(s.handleSearch)

	s.mcpServer.Tool("practicum_recommend").
		Description("Get personalized exercise recommendations with reasons.").
		Handler(s.handleRecommend)

	s.mcpServer.Tool("practicum_related").
		Description("Find exercises similar to a given exercise.").
		Handler(s.handleRelated)

	s.mcpServer.Tool("practicum_path").
		Description("Get a learning path ordered by difficulty progression.").
		Handler(s.handlePath)

	s.mcpServer.Tool("practicum_start").
		Description("Start working on an exercise. Closes any other open session.").
		Handler(s.handleStart)

	s.mcpServer.Tool("practicum_progress").
		Description("Report reading progress for the open exercise.").
		Handler(s.handleProgress)

	s.mcpServer.Tool("practicum_complete").
		Description("Mark an exercise as completed.").
		Handler(s.handleComplete)

	s.mcpServer.Tool("practicum_end").
		Description("End the open session for an exercise.").
		Handler(s.handleEnd)

	s.mcpServer.Tool("practicum_bookmark").
		Description("Toggle the bookmark on an exercise.").
		Handler(s.handleBookmark)

	s.mcpServer.Tool("practicum_note").
		Description("Attach a note to an exercise with progress.").
		Handler(s.handleNote)

	s.mcpServer.Tool("practicum_stats").
		Description("Get learning statistics, streak and weekly activity.").
		Handler(s.handleStats)
}

// Input/Output types for tools

type CatalogInput struct {
	Query      string   `json:"query,omitempty" jsonschema:"description=Text matched against title or description or tags"`
	Category   string   `json:"category,omitempty" jsonschema:"description=Category or all"`
	Difficulty string   `json:"difficulty,omitempty" jsonschema:"description=beginner or intermediate or advanced or all"`
	Tags       []string `json:"tags,omitempty" jsonschema:"description=Every tag must be present"`
	SortBy     string   `json:"sort_by,omitempty" jsonschema:"description=Sort key,enum=title,enum=difficulty,enum=estimatedTime"`
	SortOrder  string   `json:"sort_order,omitempty" jsonschema:"description=Sort direction,enum=asc,enum=desc"`
}

type CatalogOutput struct {
	Exercises []domain.ExerciseMeta `json:"exercises"`
	Total     int                   `json:"total"`
}

type SearchInput struct {
	Query            string   `json:"query" jsonschema:"description=Free-text query"`
	Categories       []string `json:"categories,omitempty" jsonschema:"description=Allowed categories"`
	Difficulties     []string `json:"difficulties,omitempty" jsonschema:"description=Allowed difficulties"`
	Tags             []string `json:"tags,omitempty" jsonschema:"description=Every tag must be present"`
	IncludeCompleted bool     `json:"include_completed,omitempty" jsonschema:"description=Include completed exercises"`
	SortBy           string   `json:"sort_by,omitempty" jsonschema:"description=Sort key,enum=relevance,enum=difficulty,enum=category"`
	SortOrder        string   `json:"sort_order,omitempty" jsonschema:"description=Sort direction,enum=asc,enum=desc"`
	Limit            int      `json:"limit,omitempty" jsonschema:"description=Maximum results"`
}

type SearchOutput struct {
	Results []domain.SearchResult `json:"results"`
}

type RecommendInput struct {
	Limit            int   `json:"limit,omitempty" jsonschema:"description=Maximum recommendations (default from config)"`
	IncludeCompleted *bool `json:"include_completed,omitempty" jsonschema:"description=Include completed exercises"`
}

type RecommendationsOutput struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
}

type RelatedInput struct {
	ExerciseID string `json:"exercise_id" jsonschema:"description=Exercise ID in format pack/exercise"`
	Limit      int    `json:"limit,omitempty" jsonschema:"description=Maximum results (default 5)"`
}

type PathInput struct {
	Category   string `json:"category,omitempty" jsonschema:"description=Restrict to one category"`
	Difficulty string `json:"difficulty,omitempty" jsonschema:"description=Target difficulty"`
}

type ExerciseInput struct {
	ExerciseID string `json:"exercise_id" jsonschema:"description=Exercise ID in format pack/exercise"`
}

type ProgressInput struct {
	ExerciseID string  `json:"exercise_id" jsonschema:"description=Exercise ID in format pack/exercise"`
	Percent    float64 `json:"percent" jsonschema:"description=Reading progress 0-100"`
}

type NoteInput struct {
	ExerciseID string `json:"exercise_id" jsonschema:"description=Exercise ID in format pack/exercise"`
	Note       string `json:"note" jsonschema:"description=Note text that replaces any previous note"`
}

type ProgressOutput struct {
	Progress *domain.ExerciseProgress `json:"progress,omitempty"`
	Message  string                   `json:"message"`
}

type StatsInput struct{}

// Tool handlers

func (s *Server) handleCatalog(ctx context.Context, input CatalogInput) (CatalogOutput, error) {
	items, err := s.app.Content.FilteredExercises(ctx, catalog.ScopeAll, catalog.FilterOptions{
		Query:      input.Query,
		Category:   input.Category,
		Difficulty: input.Difficulty,
		Tags:       input.Tags,
		SortBy:     input.SortBy,
		SortOrder:  input.SortOrder,
	})
	if err != nil {
		return CatalogOutput{}, fmt.Errorf("list catalog: %w", err)
	}
	return CatalogOutput{Exercises: items, Total: len(items)}, nil
}

func (s *Server) handleSearch(ctx context.Context, input SearchInput) (SearchOutput, error) {
	difficulties := make([]domain.Difficulty, len(input.Difficulties))
	for i, d := range input.Difficulties {
		difficulties[i] = domain.Difficulty(d)
	}

	results := s.app.Search.Search(ctx, search.Options{
		Query:            input.Query,
		Categories:       input.Categories,
		Difficulties:     difficulties,
		Tags:             input.Tags,
		IncludeCompleted: input.IncludeCompleted,
		SortBy:           input.SortBy,
		SortOrder:        input.SortOrder,
		Limit:            input.Limit,
	})
	return SearchOutput{Results: results}, nil
}

func (s *Server) handleRecommend(ctx context.Context, input RecommendInput) (RecommendationsOutput, error) {
	settings := s.app.DefaultSettings()
	if input.Limit > 0 {
		settings.MaxRecommendations = input.Limit
	}
	if input.IncludeCompleted != nil {
		settings.IncludeCompleted = *input.IncludeCompleted
	}
	return RecommendationsOutput{Recommendations: s.app.Recommend.GetRecommendations(ctx, settings)}, nil
}

func (s *Server) handleRelated(ctx context.Context, input RelatedInput) (RecommendationsOutput, error) {
	if input.ExerciseID == "" {
		return RecommendationsOutput{}, fmt.Errorf("exercise_id is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = recommend.DefaultRelatedLimit
	}
	return RecommendationsOutput{Recommendations: s.app.Recommend.GetRelatedExercises(ctx, input.ExerciseID, limit)}, nil
}

func (s *Server) handlePath(ctx context.Context, input PathInput) (RecommendationsOutput, error) {
	path := s.app.Recommend.GetLearningPath(ctx, input.Category, domain.Difficulty(input.Difficulty))
	return RecommendationsOutput{Recommendations: path}, nil
}

func (s *Server) handleStart(ctx context.Context, input ExerciseInput) (ProgressOutput, error) {
	meta, err := s.app.Exercise(ctx, input.ExerciseID)
	if err != nil {
		return ProgressOutput{}, err
	}

	s.app.Progress.StartExercise(ctx, meta.Key(), meta)
	return s.progressOutput(meta.Key(), fmt.Sprintf("Started %s", meta.Title)), nil
}

func (s *Server) handleProgress(_ context.Context, input ProgressInput) (ProgressOutput, error) {
	if _, ok := s.app.Progress.GetProgress(input.ExerciseID); !ok {
		return ProgressOutput{}, fmt.Errorf("%w: %s has not been started", domain.ErrExerciseNotFound, input.ExerciseID)
	}
	s.app.Progress.UpdateProgress(input.ExerciseID, input.Percent)
	return s.progressOutput(input.ExerciseID, "Progress recorded"), nil
}

func (s *Server) handleComplete(ctx context.Context, input ExerciseInput) (ProgressOutput, error) {
	if _, ok := s.app.Progress.GetProgress(input.ExerciseID); !ok {
		return ProgressOutput{}, fmt.Errorf("%w: %s has not been started", domain.ErrExerciseNotFound, input.ExerciseID)
	}
	s.app.Progress.CompleteExercise(ctx, input.ExerciseID)
	return s.progressOutput(input.ExerciseID, "Exercise completed"), nil
}

func (s *Server) handleEnd(ctx context.Context, input ExerciseInput) (ProgressOutput, error) {
	if !s.app.Progress.EndSession(ctx, input.ExerciseID) {
		return ProgressOutput{Message: "No open session for this exercise"}, nil
	}
	return s.progressOutput(input.ExerciseID, "Session ended"), nil
}

func (s *Server) handleBookmark(ctx context.Context, input ExerciseInput) (ProgressOutput, error) {
	meta, err := s.app.Exercise(ctx, input.ExerciseID)
	if err != nil {
		return ProgressOutput{}, err
	}

	msg := "Bookmark removed"
	if s.app.Progress.ToggleBookmark(ctx, meta.Key(), meta) {
		msg = "Bookmarked"
	}
	return s.progressOutput(meta.Key(), msg), nil
}

func (s *Server) handleNote(ctx context.Context, input NoteInput) (ProgressOutput, error) {
	if !s.app.Progress.AddNote(ctx, input.ExerciseID, input.Note) {
		return ProgressOutput{}, fmt.Errorf("%w: %s has not been started", domain.ErrExerciseNotFound, input.ExerciseID)
	}
	return s.progressOutput(input.ExerciseID, "Note saved"), nil
}

func (s *Server) handleStats(_ context.Context, _ StatsInput) (domain.Statistics, error) {
	return s.app.Progress.Statistics(), nil
}

func (s *Server) progressOutput(id, msg string) ProgressOutput {
	out := ProgressOutput{Message: msg}
	if p, ok := s.app.Progress.GetProgress(id); ok {
		out.Progress = &p
	}
	return out
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
