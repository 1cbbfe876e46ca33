package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"atelier/internal/config"
	"atelier/internal/imagesearch"
	"atelier/internal/store"
	"atelier/internal/uploads"
	"atelier/internal/webapp"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalogue HTTP API in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				service, err := ctx.stylistService(cmd, cfg, st)
				if err != nil {
					return err
				}
				addr := cfg.Paths.APIBind
				if trimmed := strings.TrimSpace(bind); trimmed != "" {
					addr = trimmed
				}
				logger := ctx.logger(cmd)
				server, err := webapp.New(webapp.Options{
					Bind:    addr,
					Token:   cfg.Paths.APIToken,
					Store:   st,
					Uploads: uploads.New(cfg.Paths.UploadDir, cfg.Uploads),
					Stylist: service,
					Search:  imagesearch.New(cfg.ImageSearch),
					Logger:  logger,

					PublicBaseURL: cfg.Paths.PublicBaseURL,
				})
				if err != nil {
					return err
				}
				return serveUntilDone(runCtx, cmd, server)
			})
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind")
	return cmd
}

func serveUntilDone(ctx context.Context, cmd *cobra.Command, server *webapp.Server) error {
	if err := server.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s (Ctrl+C to stop)\n", server.Addr())
	<-ctx.Done()
	server.Stop()
	return nil
}
