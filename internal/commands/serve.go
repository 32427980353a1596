package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/extracto-dev/extracto/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the import API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			if addr == "" {
				addr = e.cfg.Server.Addr
			}
			srv := server.New(e.ingest, e.ledger, e.rec, e.logger, server.Options{
				DefaultUser: e.user,
				BodyLimit:   int(e.cfg.MaxUploadBytes()) + 1<<20,
				DataDir:     e.cfg.DataDir(),
			})

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Listen(addr) }()

			select {
			case err := <-errCh:
				return fmt.Errorf("serving on %s: %w", addr, err)
			case <-cmd.Context().Done():
			}

			e.logger.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("shutting down: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr from the config)")

	return cmd
}
