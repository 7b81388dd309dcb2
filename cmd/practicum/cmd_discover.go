package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/practicum/internal/app"
	"github.com/felixgeelhaar/practicum/internal/catalog"
	"github.com/felixgeelhaar/practicum/internal/domain"
	"github.com/felixgeelhaar/practicum/internal/recommend"
	"github.com/felixgeelhaar/practicum/internal/search"
)

func newCatalogCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "catalog", Short: "Browse the exercise catalog"}

	var opts catalog.FilterOptions
	list := &cobra.Command{
		Use:   "list",
		Short: "List exercises",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				items, err := a.Content.FilteredExercises(cmd.Context(), catalog.ScopeAll, opts)
				if err != nil {
					return err
				}
				if c.jsonOut {
					return printJSON(cmd.OutOrStdout(), items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No exercises found")
					return nil
				}
				for _, ex := range items {
					fmt.Fprintf(cmd.OutOrStdout(), "%-35s %-13s %s\n", ex.Key(), ex.Difficulty, ex.Title)
				}
				return nil
			})
		},
	}
	list.Flags().StringVar(&opts.Query, "query", "", "text to match")
	list.Flags().StringVar(&opts.Category, "category", "", "category filter")
	list.Flags().StringVar(&opts.Difficulty, "difficulty", "", "difficulty filter")
	list.Flags().StringSliceVar(&opts.Tags, "tags", nil, "required tags")
	list.Flags().StringVar(&opts.SortBy, "sort", "", "title|difficulty|estimatedTime")
	list.Flags().StringVar(&opts.SortOrder, "order", "asc", "asc|desc")

	show := &cobra.Command{
		Use:   "show <exercise-id>",
		Short: "Show exercise details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				ex, err := a.Exercise(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if c.jsonOut {
					return printJSON(cmd.OutOrStdout(), ex)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%s\n", ex.Title)
				fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", len(ex.Title)))
				fmt.Fprintf(w, "ID:          %s\n", ex.Key())
				fmt.Fprintf(w, "Category:    %s\n", ex.Category)
				fmt.Fprintf(w, "Difficulty:  %s\n", ex.Difficulty)
				if ex.EstimatedTime != "" {
					fmt.Fprintf(w, "Time:        %s\n", ex.EstimatedTime)
				}
				if len(ex.Tags) > 0 {
					fmt.Fprintf(w, "Tags:        %s\n", strings.Join(ex.Tags, ", "))
				}
				crumbs := catalog.Breadcrumbs(ex.Href)
				if len(crumbs) > 0 {
					titles := make([]string, len(crumbs))
					for i, b := range crumbs {
						titles[i] = b.Title
					}
					fmt.Fprintf(w, "Path:        %s\n", strings.Join(titles, " > "))
				}
				if ex.Description != "" {
					fmt.Fprintf(w, "\n%s\n", ex.Description)
				}
				return nil
			})
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				s, err := a.Content.Stats(cmd.Context(), catalog.ScopeAll)
				if err != nil {
					return err
				}
				if c.jsonOut {
					return printJSON(cmd.OutOrStdout(), s)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Exercises:   %d\n", s.TotalExercises)
				fmt.Fprintf(w, "Categories:  %d\n", s.TotalCategories)
				printCounts(w, "Difficulty", s.DifficultyBreakdown)
				printCounts(w, "Category", s.CategoryBreakdown)
				return nil
			})
		},
	}

	tags := &cobra.Command{
		Use:   "tags",
		Short: "List tags used in the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				values, err := a.Content.AvailableTags(cmd.Context(), catalog.ScopeAll)
				if err != nil {
					return err
				}
				return printLines(cmd.OutOrStdout(), c.jsonOut, values)
			})
		},
	}

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List catalog categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				values, err := a.Content.AvailableCategories(cmd.Context(), catalog.ScopeAll)
				if err != nil {
					return err
				}
				return printLines(cmd.OutOrStdout(), c.jsonOut, values)
			})
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load the catalog from disk and report problems",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if err := a.ReloadCatalog(); err != nil {
					return err
				}
				s := a.Registry.Stats()
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %d packs, %d exercises\n", s.PackCount, s.ExerciseCount)
				return nil
			})
		},
	}

	cmd.AddCommand(list, show, stats, tags, categories, validate)
	return cmd
}

func newSearchCmd(c *cli) *cobra.Command {
	var opts search.Options
	var difficulties []string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search exercises ranked by relevance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Query = args[0]
			}
			for _, d := range difficulties {
				opts.Difficulties = append(opts.Difficulties, domain.Difficulty(d))
			}
			return c.withApp(cmd.Context(), func(a *app.App) error {
				results := a.Search.Search(cmd.Context(), opts)
				if c.jsonOut {
					return printJSON(cmd.OutOrStdout(), results)
				}
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No matches")
					return nil
				}
				w := cmd.OutOrStdout()
				for _, r := range results {
					fmt.Fprintf(w, "%5.2f  %-35s %s\n", r.RelevanceScore, r.Exercise.Key(), r.Exercise.Title)
					if r.Highlight != "" {
						fmt.Fprintf(w, "       %s\n", r.Highlight)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&opts.Categories, "category", nil, "allowed categories")
	cmd.Flags().StringSliceVar(&difficulties, "difficulty", nil, "allowed difficulties")
	cmd.Flags().StringSliceVar(&opts.Tags, "tags", nil, "required tags")
	cmd.Flags().BoolVar(&opts.IncludeCompleted, "include-completed", false, "include completed exercises")
	cmd.Flags().StringVar(&opts.SortBy, "sort", search.SortRelevance, "relevance|difficulty|category")
	cmd.Flags().StringVar(&opts.SortOrder, "order", search.OrderDesc, "asc|desc")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum results")
	return cmd
}

func newRecommendCmd(c *cli) *cobra.Command {
	var limit int
	var includeCompleted bool

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Suggest exercises to practice next",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				settings := a.DefaultSettings()
				if limit > 0 {
					settings.MaxRecommendations = limit
				}
				if cmd.Flags().Changed("include-completed") {
					settings.IncludeCompleted = includeCompleted
				}
				return c.printRecommendations(cmd.OutOrStdout(), a.Recommend.GetRecommendations(cmd.Context(), settings))
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum recommendations")
	cmd.Flags().BoolVar(&includeCompleted, "include-completed", false, "include completed exercises")
	return cmd
}

func newRelatedCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "related <exercise-id>",
		Short: "List exercises similar to one exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				return c.printRecommendations(cmd.OutOrStdout(), a.Recommend.GetRelatedExercises(cmd.Context(), args[0], limit))
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", recommend.DefaultRelatedLimit, "maximum results")
	return cmd
}

func newPathCmd(c *cli) *cobra.Command {
	var category, difficulty string

	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show a learning path ordered by difficulty progression",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				path := a.Recommend.GetLearningPath(cmd.Context(), category, domain.Difficulty(difficulty))
				return c.printRecommendations(cmd.OutOrStdout(), path)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "restrict to one category")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "target difficulty")
	return cmd
}

func (c *cli) printRecommendations(w io.Writer, recs []domain.Recommendation) error {
	if c.jsonOut {
		return printJSON(w, recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "Nothing to recommend yet")
		return nil
	}
	for i, r := range recs {
		fmt.Fprintf(w, "%2d. %-35s %s (%.0f%%)\n", i+1, r.Exercise.Key(), r.Exercise.Title, r.Confidence*100)
		if len(r.Reasons) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(r.Reasons, "; "))
		}
	}
	return nil
}

func printCounts(w io.Writer, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "\nBy %s\n", label)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-20s %d\n", k, counts[k])
	}
}

func printLines(w io.Writer, asJSON bool, values []string) error {
	if asJSON {
		return printJSON(w, values)
	}
	for _, v := range values {
		fmt.Fprintln(w, v)
	}
	return nil
}
