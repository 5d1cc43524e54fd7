// Package main provides the entry point for the volrank daemon.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ahwlsqja/volrank/node"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:           "volrankd",
	Short:         "Volume ledger with a bounded top-3 leaderboard, served over ABCI",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaultHome := node.DefaultConfig().Home
	if dir, err := os.UserHomeDir(); err == nil {
		defaultHome = filepath.Join(dir, ".volrank")
	}

	flags := rootCmd.PersistentFlags()
	flags.String("home", defaultHome, "Directory for config and data")
	flags.String("log-level", node.DefaultConfig().LogLevel, "Log level (debug|info|error|none)")
	flags.String("log-format", node.DefaultConfig().LogFormat, "Log format (plain|json)")
	mustBind("home", flags.Lookup("home"))
	mustBind("log_level", flags.Lookup("log-level"))
	mustBind("log_format", flags.Lookup("log-format"))

	rootCmd.AddCommand(startCmd, txCmd, queryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the node config from flags, environment and volrank.toml.
func loadConfig() (*node.Config, error) {
	return node.LoadConfig(v)
}

// newLogger builds a TM logger filtered at cfg.LogLevel.
func newLogger(cfg *node.Config) (log.Logger, error) {
	var logger log.Logger
	if cfg.LogFormat == node.LogFormatJSON {
		logger = log.NewTMJSONLogger(log.NewSyncWriter(os.Stderr))
	} else {
		logger = log.NewTMLogger(log.NewSyncWriter(os.Stderr))
	}

	option, err := log.AllowLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return log.NewFilter(logger, option), nil
}

func mustBind(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
