package main

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/sketchroom"
	"pkt.systems/sketchroom/internal/appconfig"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var noHTTP bool
	var noSocket bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start sketchroom servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Auth.TokenSecret) == "" {
				return errors.New("auth.token_secret is required; set it in the config or via an environment reference")
			}
			if noHTTP && noSocket {
				return errors.New("at least one of the http and socket servers must stay enabled")
			}

			opts := make([]sketchroom.ServerOption, 0, 2)
			if !noHTTP {
				opts = append(opts, sketchroom.WithHTTP())
			}
			if !noSocket {
				opts = append(opts, sketchroom.WithSocket())
			}
			server, err := sketchroom.New(cfg, logger, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if !noHTTP {
				logger.Info("http server listening", "addr", cfg.HTTP.Addr)
			}
			if !noSocket {
				logger.Info("socket server listening", "addr", cfg.Socket.Addr)
			}
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&noHTTP, "no-http", false, "disable the HTTP API server")
	cmd.Flags().BoolVar(&noSocket, "no-socket", false, "disable the room broadcast socket server")
	return cmd
}
