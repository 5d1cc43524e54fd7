package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ahwlsqja/volrank/node"
)

func init() {
	d := node.DefaultConfig()
	flags := startCmd.Flags()
	flags.String("abci-addr", d.ABCIAddr, "ABCI listen address")
	flags.String("transport", d.Transport, "ABCI transport (socket|grpc)")
	flags.String("db-backend", d.DBBackend, "State store (goleveldb|memdb)")
	flags.String("data-dir", d.DataDir, "State directory, relative to home unless absolute")
	flags.Bool("metrics", d.MetricsEnabled, "Serve Prometheus metrics")
	flags.String("metrics-addr", d.MetricsAddr, "Prometheus listen address")
	mustBind("abci_addr", flags.Lookup("abci-addr"))
	mustBind("transport", flags.Lookup("transport"))
	mustBind("db_backend", flags.Lookup("db-backend"))
	mustBind("data_dir", flags.Lookup("data-dir"))
	mustBind("metrics_enabled", flags.Lookup("metrics"))
	mustBind("metrics_addr", flags.Lookup("metrics-addr"))
}

// startCmd runs the ABCI server until interrupted.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Serve the application to CometBFT",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		n, err := node.NewNode(cfg, logger)
		if err != nil {
			return err
		}
		if err := n.Start(); err != nil {
			n.Stop()
			return err
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		var runErr error
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig.String())
		case err := <-n.MetricsErr():
			runErr = fmt.Errorf("metrics server failed: %w", err)
		}

		if err := n.Stop(); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	},
}
