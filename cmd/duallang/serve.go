package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/duallang/duallang/pkg/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		listen     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the translation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if listen != "" {
				a.cfg.Listen = listen
			}
			srv := server.New(a.cfg, a.session, a.tracker)

			log.Printf("starting duallang with config: %s (engine %s, cache %s)",
				configPath, a.cfg.Settings.Engine, a.cfg.Cache.Backend)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.Flags().StringVar(&listen, "listen", "", "override listen address")
	return cmd
}
