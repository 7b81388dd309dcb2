package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/felixgeelhaar/practicum/internal/mcp"
)

func newMCPCmd(c *cli) *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server (stdio by default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
				defer done()
				if err := a.Close(closeCtx); err != nil {
					slog.Error("shutdown error", "error", err)
				}
			}()

			go a.Run(ctx)

			srv := mcpserver.NewServer(mcpserver.Config{App: a, Version: Version})
			if httpAddr != "" {
				slog.Info("serving MCP over HTTP", "addr", httpAddr)
				return srv.ServeHTTP(ctx, httpAddr)
			}
			return srv.ServeStdio(ctx)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve over HTTP at this address instead of stdio")
	return cmd
}
