package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"lattice/internal/server"
)

// serveCmd implements 'lattice serve'.
func serveCmd() *cobra.Command {
	var addr string
	var debug bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Run: func(_ *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			store, err := getStore()
			if err != nil {
				printError(err)
			}

			srv := server.New(store, logger)
			logger.Info("listening", slog.String("addr", addr))
			if err := srv.Engine().Run(addr); err != nil {
				logger.Error("server stopped", slog.String("error", err.Error()))
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}
