package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/layer-3/burner"
	"github.com/layer-3/burner/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	randomSession string
	randomCount   int
	randomServer  string
)

func init() {
	RandomCmd.Flags().StringVar(&randomSession, "session", "cli", "session whose burner accounts are used")
	RandomCmd.Flags().IntVar(&randomCount, "count", 1, "number of random numbers to generate")
	RandomCmd.Flags().StringVar(&randomServer, "server", "", "url of a running burner server; runs in process when empty")
}

var RandomCmd = &cobra.Command{
	Use:   "random",
	Short: "bootstrap a burner account and generate random numbers without the page",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if randomServer != "" {
			SetLogger("")
			logFlags(cmd.Flags())
			return remoteRandom(ctx, randomServer, randomCount, cmd.OutOrStdout())
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		SetLogger(cfg.LogLevel)
		logFlags(cmd.Flags())

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.shell.Bootstrap(ctx, randomSession); err != nil {
			return fmt.Errorf("bootstrap failed: %w", err)
		}

		active, err := a.burners.Active(ctx, randomSession)
		if err != nil {
			return err
		}
		if active == nil {
			return fmt.Errorf("session %q has no burner account", randomSession)
		}
		log.WithField("account", active.Address.String()).Info("using burner account")

		for i := 0; i < randomCount; i++ {
			result, err := a.vrf.Generate(ctx, randomSession)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", result.Value, result.Transaction.Hash)
		}
		return nil
	},
}

// remoteRandom drives a running server the way the page does
func remoteRandom(ctx context.Context, server string, count int, out io.Writer) error {
	client, err := burner.NewClient(server)
	if err != nil {
		return err
	}

	view, err := client.WaitReady(ctx)
	if err != nil {
		return err
	}
	if view.State == "error" {
		return fmt.Errorf("bootstrap failed: %s", view.Error)
	}
	if view.Active == nil {
		if _, err := client.CreateAccount(ctx); err != nil {
			return err
		}
	}

	for i := 0; i < count; i++ {
		result, err := client.Generate(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d\t%s\n", result.Value, result.Transaction.Hash)
	}
	return nil
}
