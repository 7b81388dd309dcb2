package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/practicum/internal/app"
	"github.com/felixgeelhaar/practicum/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return newRootCmd().ExecuteContext(ctx)
}

// cli carries state shared by every command
type cli struct {
	cfg     *config.LocalConfig
	logFile *os.File
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "practicum",
		Short:         "Practicum - exercise progress, search and recommendations",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return c.init()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if c.logFile != nil {
				c.logFile.Close()
			}
		},
	}
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print JSON instead of text")

	root.AddCommand(newMCPCmd(c))
	root.AddCommand(newCatalogCmd(c))
	root.AddCommand(newSearchCmd(c))
	root.AddCommand(newRecommendCmd(c))
	root.AddCommand(newRelatedCmd(c))
	root.AddCommand(newPathCmd(c))
	root.AddCommand(newStartCmd(c))
	root.AddCommand(newProgressCmd(c))
	root.AddCommand(newCompleteCmd(c))
	root.AddCommand(newEndCmd(c))
	root.AddCommand(newBookmarkCmd(c))
	root.AddCommand(newNoteCmd(c))
	root.AddCommand(newShowCmd(c))
	root.AddCommand(newListCmd(c))
	root.AddCommand(newStatsCmd(c))
	root.AddCommand(newExportCmd(c))
	root.AddCommand(newImportCmd(c))
	root.AddCommand(newResetCmd(c))
	root.AddCommand(newCollectionCmd(c))
	root.AddCommand(newTagCmd(c))
	root.AddCommand(newEventsCmd(c))
	root.AddCommand(newConfigCmd(c))
	return root
}

func (c *cli) init() error {
	home, err := config.EnsureHomeDir()
	if err != nil {
		return fmt.Errorf("ensure home dir: %w", err)
	}

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg

	c.logFile, err = setupLogging(home, parseLogLevel(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	return nil
}

func (c *cli) openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, c.cfg, app.WithLogger(slog.Default()))
}

// withApp opens the app, runs fn and closes the app, flushing progress
func (c *cli) withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := c.openApp(ctx)
	if err != nil {
		return err
	}
	runErr := fn(a)
	if err := a.Close(ctx); err != nil && runErr == nil {
		return fmt.Errorf("close: %w", err)
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// renderProgressBar draws pct (0-100) as a bar of width cells
func renderProgressBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	empty := width - filled

	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}
