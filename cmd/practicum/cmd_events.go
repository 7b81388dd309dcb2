package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/practicum/internal/events"
)

func newEventsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "events", Short: "Inspect the progress event stream"}

	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print progress events from the broker until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.Events.AMQPURL == "" {
				return fmt.Errorf("events.amqp_url is not configured")
			}

			conn, err := events.Dial(c.cfg.Events.AMQPURL, c.cfg.Events.Queue, slog.Default())
			if err != nil {
				return err
			}
			defer conn.Close()

			if !c.jsonOut {
				fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s (Ctrl+C to stop)\n", conn.Queue())
			}
			return conn.Consume(cmd.Context(), func(_ context.Context, msg events.Message) error {
				if c.jsonOut {
					return printJSON(cmd.OutOrStdout(), msg)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s %-35s %s\n",
					msg.OccurredAt.Format(time.RFC3339), msg.Type, msg.ExerciseID, msg.UserID)
				return nil
			})
		},
	}

	cmd.AddCommand(tail)
	return cmd
}
