package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/layer-3/burner/config"
	transport "github.com/layer-3/burner/transport/http"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var listenAddr string

func init() {
	ServeCmd.Flags().StringVar(&listenAddr, "listen", "", "address to listen on (overrides BURNER_LISTEN_ADDR)")
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the burner page and its API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		SetLogger(cfg.LogLevel)
		logFlags(cmd.Flags())
		if listenAddr != "" {
			cfg.ListenAddr = listenAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		go a.shell.RunSweeper(ctx, cfg.SessionSweepInterval, cfg.SessionIdleTTL)

		router := transport.SetupRouter(transport.RouterConfig{
			Shell:         a.shell,
			Burners:       a.burners,
			VRF:           a.vrf,
			Sessions:      a.sessions,
			SecureCookies: cfg.SecureCookies,
			Logger:        log.WithField("component", "http"),
		})

		server := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.WithFields(log.Fields{
				"addr":       cfg.ListenAddr,
				"rpc":        cfg.RPCURL,
				"derivation": cfg.Derivation,
			}).Info("serving")
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
		}
		return nil
	},
}
