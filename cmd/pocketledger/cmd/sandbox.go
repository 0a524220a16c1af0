package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/pocketledger/internal/sandbox"
)

func newSandboxCmd(o *rootOptions) *cobra.Command {
	var (
		port     int
		tokenTTL time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run an in-memory backend for trying the client",
		Long: `Start an in-memory implementation of the finance backend API under /api.
All data is lost when the process exits. API docs are served at /api/docs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sb := sandbox.New(sandbox.WithTokenTTL(tokenTTL), sandbox.WithLogger(o.logger))

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           middleware.Logger(sb.Handler()),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			// Graceful shutdown on SIGINT/SIGTERM.
			done := make(chan error, 1)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					done <- fmt.Errorf("server failed: %w", err)
					return
				}
				done <- nil
			}()

			out := cmd.OutOrStdout()
			printBanner(out)
			fmt.Fprintf(out, "Sandbox API on http://localhost:%d/api (docs at /api/docs)\n", port)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case sig := <-quit:
				fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(ctx); err != nil {
					return fmt.Errorf("server shutdown failed: %w", err)
				}
				return nil
			case err := <-done:
				return err
			}
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 3000, "Port to listen on")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", sandbox.DefaultTokenTTL, "Lifetime of issued tokens")
	return cmd
}
