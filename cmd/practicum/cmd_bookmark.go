package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/practicum/internal/app"
	"github.com/felixgeelhaar/practicum/internal/bookmark"
	"github.com/felixgeelhaar/practicum/internal/domain"
)

func newBookmarksSearchCmd(c *cli) *cobra.Command {
	var category, difficulty string

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search bookmarked exercises",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				var records []domain.ExerciseProgress
				switch {
				case len(args) == 1:
					records = a.Bookmarks.SearchBookmarks(args[0])
				case category != "":
					records = a.Bookmarks.FilterByCategory(category)
				case difficulty != "":
					records = a.Bookmarks.FilterByDifficulty(domain.Difficulty(difficulty))
				default:
					records = a.Bookmarks.Bookmarked()
				}
				return c.printRecords(cmd.OutOrStdout(), records)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only bookmarks in this category")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "only bookmarks at this difficulty")
	return cmd
}

func newBookmarksStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize bookmarked exercises",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				stats := a.Bookmarks.Statistics()
				if c.jsonOut {
					return printJSON(cmd.OutOrStdout(), stats)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Bookmarks:    %d\n", stats.TotalBookmarks)
				fmt.Fprintf(w, "Completed:    %d (%.1f%%)\n", stats.CompletedBookmarks, stats.CompletionRate)
				fmt.Fprintf(w, "Time Spent:   %s\n", formatMs(float64(stats.TotalTimeSpentMs)))
				fmt.Fprintf(w, "Collections:  %d\n", stats.TotalCollections)
				fmt.Fprintf(w, "Tags:         %d\n", stats.TotalTags)
				printCounts(w, "Category", stats.CategoryDistribution)
				printCounts(w, "Difficulty", stats.DifficultyDistribution)
				return nil
			})
		},
	}
}

func newCollectionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "collection", Short: "Organize bookmarks into collections"}

	var in bookmark.NewCollection
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			return c.withApp(cmd.Context(), func(a *app.App) error {
				col, err := a.Bookmarks.CreateCollection(cmd.Context(), in)
				if err != nil {
					return err
				}
				if c.jsonOut {
					return printJSON(cmd.OutOrStdout(), col)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Created collection %s (%s)\n", col.Name, col.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&in.Description, "description", "", "collection description")
	create.Flags().StringVar(&in.Color, "color", "", "display color")
	create.Flags().StringVar(&in.Icon, "icon", "", "display icon")

	list := &cobra.Command{
		Use:   "list",
		Short: "List collections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				cols := a.Bookmarks.AllCollections()
				if c.jsonOut {
					return printJSON(cmd.OutOrStdout(), cols)
				}
				if len(cols) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No collections")
					return nil
				}
				for _, col := range cols {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s %d exercise(s)\n", col.ID, col.Name, len(col.ExerciseIDs))
				}
				return nil
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <collection-id>",
		Short: "List exercises in a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				col, ok := a.Bookmarks.GetCollection(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, args[0])
				}
				if !c.jsonOut {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\n", col.Name)
					if col.Description != "" {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\n", col.Description)
					}
					fmt.Fprintln(cmd.OutOrStdout())
				}
				return c.printRecords(cmd.OutOrStdout(), a.Bookmarks.CollectionExercises(col.ID))
			})
		},
	}

	var newName, newDescription string
	update := &cobra.Command{
		Use:   "rename <collection-id>",
		Short: "Rename or redescribe a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd domain.CollectionUpdate
			if cmd.Flags().Changed("name") {
				upd.Name = &newName
			}
			if cmd.Flags().Changed("description") {
				upd.Description = &newDescription
			}
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if err := a.Bookmarks.UpdateCollection(cmd.Context(), args[0], upd); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Collection updated")
				return nil
			})
		},
	}
	update.Flags().StringVar(&newName, "name", "", "new name")
	update.Flags().StringVar(&newDescription, "description", "", "new description")

	add := &cobra.Command{
		Use:   "add <collection-id> <exercise-id>",
		Short: "Add an exercise to a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if _, err := a.Bookmarks.AddToCollection(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s\n", args[1])
				return nil
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <collection-id> <exercise-id>",
		Short: "Remove an exercise from a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				removed, err := a.Bookmarks.RemoveFromCollection(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return reportRemoval(cmd.OutOrStdout(), removed, args[1])
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <collection-id>",
		Short: "Delete a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				return reportRemoval(cmd.OutOrStdout(), a.Bookmarks.DeleteCollection(cmd.Context(), args[0]), args[0])
			})
		},
	}

	cmd.AddCommand(create, list, show, update, add, remove, del)
	return cmd
}

func newTagCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "tag", Short: "Label exercises with personal tags"}

	var color string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				tag, err := a.Bookmarks.CreateTag(cmd.Context(), args[0], color)
				if err != nil {
					return err
				}
				if c.jsonOut {
					return printJSON(cmd.OutOrStdout(), tag)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Created tag #%s (%s)\n", tag.Name, tag.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&color, "color", "", "display color")

	list := &cobra.Command{
		Use:   "list",
		Short: "List tags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				tags := a.Bookmarks.AllTags()
				if c.jsonOut {
					return printJSON(cmd.OutOrStdout(), tags)
				}
				if len(tags) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tags")
					return nil
				}
				for _, t := range tags {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  #%-20s %d exercise(s)\n", t.ID, t.Name, len(t.ExerciseIDs))
				}
				return nil
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <tag-id>",
		Short: "List exercises with a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if _, ok := a.Bookmarks.GetTag(args[0]); !ok {
					return fmt.Errorf("%w: %s", domain.ErrTagNotFound, args[0])
				}
				return c.printRecords(cmd.OutOrStdout(), a.Bookmarks.TagExercises(args[0]))
			})
		},
	}

	apply := &cobra.Command{
		Use:   "apply <tag-id> <exercise-id>",
		Short: "Apply a tag to an exercise",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if _, err := a.Bookmarks.AddTagToExercise(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Tagged %s\n", args[1])
				return nil
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <tag-id> <exercise-id>",
		Short: "Remove a tag from an exercise",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				removed, err := a.Bookmarks.RemoveTagFromExercise(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return reportRemoval(cmd.OutOrStdout(), removed, args[1])
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <tag-id>",
		Short: "Delete a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				return reportRemoval(cmd.OutOrStdout(), a.Bookmarks.DeleteTag(cmd.Context(), args[0]), args[0])
			})
		},
	}

	cmd.AddCommand(create, list, show, apply, remove, del)
	return cmd
}

func reportRemoval(w io.Writer, removed bool, id string) error {
	if removed {
		fmt.Fprintf(w, "✓ Removed %s\n", id)
	} else {
		fmt.Fprintf(w, "Nothing to remove for %s\n", id)
	}
	return nil
}
