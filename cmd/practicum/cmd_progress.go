package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/practicum/internal/app"
	"github.com/felixgeelhaar/practicum/internal/domain"
)

func newStartCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "start <exercise-id>",
		Short: "Start working on an exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				meta, err := a.Exercise(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				a.Progress.StartExercise(cmd.Context(), meta.Key(), meta)
				return c.printRecord(cmd.OutOrStdout(), a, meta.Key(), "Started "+meta.Title)
			})
		},
	}
}

func newProgressCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <exercise-id> <percent>",
		Short: "Record reading progress (0-100)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid percent %q: %w", args[1], err)
			}
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if err := requireRecord(a, args[0]); err != nil {
					return err
				}
				a.Progress.UpdateProgress(args[0], pct)
				return c.printRecord(cmd.OutOrStdout(), a, args[0], "Progress recorded")
			})
		},
	}
}

func newCompleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <exercise-id>",
		Short: "Mark an exercise as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if err := requireRecord(a, args[0]); err != nil {
					return err
				}
				a.Progress.CompleteExercise(cmd.Context(), args[0])
				return c.printRecord(cmd.OutOrStdout(), a, args[0], "✓ Completed")
			})
		},
	}
}

func newEndCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "end <exercise-id>",
		Short: "End the open session for an exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if !a.Progress.EndSession(cmd.Context(), args[0]) {
					fmt.Fprintln(cmd.OutOrStdout(), "No open session for this exercise")
					return nil
				}
				return c.printRecord(cmd.OutOrStdout(), a, args[0], "Session ended")
			})
		},
	}
}

func newBookmarkCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmark <exercise-id>",
		Short: "Toggle the bookmark on an exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				meta, err := a.Exercise(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				msg := "Bookmark removed"
				if a.Progress.ToggleBookmark(cmd.Context(), meta.Key(), meta) {
					msg = "★ Bookmarked"
				}
				return c.printRecord(cmd.OutOrStdout(), a, meta.Key(), msg)
			})
		},
	}
	cmd.AddCommand(newBookmarksSearchCmd(c), newBookmarksStatsCmd(c))
	return cmd
}

func newNoteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "note <exercise-id> <text>",
		Short: "Attach a note to an exercise",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if !a.Progress.AddNote(cmd.Context(), args[0], args[1]) {
					return fmt.Errorf("%w: %s has not been started", domain.ErrExerciseNotFound, args[0])
				}
				return c.printRecord(cmd.OutOrStdout(), a, args[0], "Note saved")
			})
		},
	}
}

func newShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <exercise-id>",
		Short: "Show progress for an exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if err := requireRecord(a, args[0]); err != nil {
					return err
				}
				if err := c.printRecord(cmd.OutOrStdout(), a, args[0], ""); err != nil {
					return err
				}
				if c.jsonOut {
					return nil
				}
				tags := a.Bookmarks.ExerciseTags(args[0])
				for _, t := range tags {
					fmt.Fprintf(cmd.OutOrStdout(), "  #%s\n", t.Name)
				}
				return nil
			})
		},
	}
}

func newListCmd(c *cli) *cobra.Command {
	var filter string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List progress records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				var records []domain.ExerciseProgress
				switch filter {
				case "all", "":
					records = a.Progress.All()
					sort.Slice(records, func(i, j int) bool { return records[i].ExerciseID < records[j].ExerciseID })
				case "completed":
					records = a.Progress.Completed()
				case "in-progress":
					records = a.Progress.InProgress()
				case "bookmarked":
					records = a.Progress.Bookmarked()
				case "recent":
					records = a.Progress.Recent(limit)
				default:
					return fmt.Errorf("unknown filter: %s (valid: all, completed, in-progress, bookmarked, recent)", filter)
				}
				if limit > 0 && len(records) > limit {
					records = records[:limit]
				}
				return c.printRecords(cmd.OutOrStdout(), records)
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "all|completed|in-progress|bookmarked|recent")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records (recent defaults to 10)")
	return cmd
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show learning statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				stats := a.Progress.Statistics()
				if c.jsonOut {
					return printJSON(cmd.OutOrStdout(), stats)
				}

				w := cmd.OutOrStdout()
				fmt.Fprintln(w, "Learning Statistics")
				fmt.Fprintln(w, "===================")
				fmt.Fprintf(w, "Exercises:     %d\n", stats.TotalExercises)
				fmt.Fprintf(w, "Completed:     %d (%.1f%%)\n", stats.CompletedExercises, stats.CompletionRate)
				fmt.Fprintf(w, "In Progress:   %d\n", stats.InProgressExercises)
				fmt.Fprintf(w, "Bookmarked:    %d\n", stats.BookmarkedExercises)
				fmt.Fprintf(w, "Time Spent:    %s\n", formatMs(float64(stats.TotalTimeSpentMs)))
				fmt.Fprintf(w, "Avg per Ex.:   %s\n", formatMs(stats.AverageTimeMs))
				fmt.Fprintf(w, "Avg Progress:  %s %.0f%%\n", renderProgressBar(stats.AverageProgress, 20), stats.AverageProgress)
				fmt.Fprintf(w, "Streak:        %d day(s)\n", stats.Streak)

				if len(stats.Categories) > 0 {
					fmt.Fprintln(w, "\nBy Category")
					fmt.Fprintln(w, "-----------")
					keys := make([]string, 0, len(stats.Categories))
					for k := range stats.Categories {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					for _, k := range keys {
						r := stats.Categories[k]
						fmt.Fprintf(w, "%-20s %d/%d\n", k, r.Completed, r.Total)
					}
				}

				if len(stats.Weekly) > 0 {
					fmt.Fprintln(w, "\nWeekly Activity")
					fmt.Fprintln(w, "---------------")
					for _, wk := range stats.Weekly {
						fmt.Fprintf(w, "%s  %d completed, %s\n", wk.Week, wk.ExercisesCompleted, formatMs(float64(wk.TimeSpentMs)))
					}
				}
				return nil
			})
		},
	}
}

func newExportCmd(c *cli) *cobra.Command {
	var output string
	var bookmarks bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export progress (or bookmarks) as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				var data []byte
				var err error
				if bookmarks {
					data, err = a.Bookmarks.ExportBookmarks()
				} else {
					data, err = a.Progress.ExportJSON()
				}
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				}
				if err := os.WriteFile(output, data, 0644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported to %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	cmd.Flags().BoolVar(&bookmarks, "bookmarks", false, "export collections and tags instead of progress")
	return cmd
}

func newImportCmd(c *cli) *cobra.Command {
	var bookmarks bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import progress (or bookmarks) from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if bookmarks {
					err = a.Bookmarks.ImportBookmarks(cmd.Context(), data)
				} else {
					err = a.Progress.ImportJSON(cmd.Context(), data)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&bookmarks, "bookmarks", false, "import collections and tags instead of progress")
	return cmd
}

func newResetCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all progress, collections and tags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			return c.withApp(cmd.Context(), func(a *app.App) error {
				a.Progress.ClearAll(cmd.Context())
				a.Bookmarks.ClearAll(cmd.Context())
				fmt.Fprintln(cmd.OutOrStdout(), "✓ All learning data cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func requireRecord(a *app.App, id string) error {
	if _, ok := a.Progress.GetProgress(id); !ok {
		return fmt.Errorf("%w: %s has not been started", domain.ErrExerciseNotFound, id)
	}
	return nil
}

func (c *cli) printRecord(w io.Writer, a *app.App, id, msg string) error {
	p, ok := a.Progress.GetProgress(id)
	if c.jsonOut {
		if !ok {
			return printJSON(w, map[string]string{"message": msg})
		}
		return printJSON(w, p)
	}
	if msg != "" {
		fmt.Fprintln(w, msg)
	}
	if !ok {
		return nil
	}

	status := "in progress"
	if p.IsCompleted {
		status = "completed"
	}
	fmt.Fprintf(w, "%s (%s)\n", p.Title, p.ExerciseID)
	fmt.Fprintf(w, "  %s %.0f%%  %s\n", renderProgressBar(p.ReadingProgress, 20), p.ReadingProgress, status)
	fmt.Fprintf(w, "  attempts: %d  time: %s  last: %s\n", p.Attempts, formatMs(float64(p.TimeSpentMs)), p.LastAccessedAt.Format(time.RFC3339))
	if p.IsBookmarked {
		fmt.Fprintln(w, "  ★ bookmarked")
	}
	if p.Notes != "" {
		fmt.Fprintf(w, "  note: %s\n", p.Notes)
	}
	return nil
}

func (c *cli) printRecords(w io.Writer, records []domain.ExerciseProgress) error {
	if c.jsonOut {
		return printJSON(w, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No progress yet. Start an exercise with 'practicum start <id>'")
		return nil
	}
	for _, p := range records {
		mark := " "
		if p.IsCompleted {
			mark = "✓"
		}
		fmt.Fprintf(w, "%s %-35s %s %3.0f%%  %s\n", mark, p.ExerciseID, renderProgressBar(p.ReadingProgress, 10), p.ReadingProgress, p.Title)
	}
	return nil
}

func formatMs(ms float64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}
