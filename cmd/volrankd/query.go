package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahwlsqja/volrank/abci"
	"github.com/ahwlsqja/volrank/types"
)

var (
	remoteAddr    string
	remoteTimeout time.Duration
)

func init() {
	flags := queryCmd.PersistentFlags()
	flags.StringVar(&remoteAddr, "remote", "", "Query a running node's gRPC ABCI endpoint (host:port) instead of the local store")
	flags.DurationVar(&remoteTimeout, "timeout", 10*time.Second, "Timeout for remote queries")

	queryCmd.AddCommand(queryInfoCmd, queryTopCmd, queryMinAccCmd, queryVolCmd, queryPoolCmd, queryRewardCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read committed state",
	Long: "Read committed state from the goleveldb store under --home, or from a running " +
		"node started with --transport grpc when --remote is set. A local memdb backend is refused.",
}

var queryInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the last committed height and app hash",
	Args:  cobra.NoArgs,
	RunE: withQuerier(func(ctx context.Context, q abci.Inspector, cmd *cobra.Command, args []string) error {
		status, err := abci.GetStatus(ctx, q)
		if err != nil {
			return err
		}
		return printJSON(cmd, status)
	}),
}

var queryTopCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the three leaderboard slots in iteration order",
	Args:  cobra.NoArgs,
	RunE: withQuerier(func(ctx context.Context, q abci.Inspector, cmd *cobra.Command, args []string) error {
		slots, err := abci.GetTop(ctx, q)
		if err != nil {
			return err
		}
		return printJSON(cmd, slots)
	}),
}

var queryMinAccCmd = &cobra.Command{
	Use:   "minacc",
	Short: "Show the leaderboard member with the smallest volume",
	Args:  cobra.NoArgs,
	RunE: withQuerier(func(ctx context.Context, q abci.Inspector, cmd *cobra.Command, args []string) error {
		resp, err := abci.GetMinAccount(ctx, q)
		if err != nil {
			return err
		}
		return printJSON(cmd, resp)
	}),
}

var queryVolCmd = &cobra.Command{
	Use:   "vol [account]",
	Short: "Show the ledger volume of an account",
	Args:  cobra.ExactArgs(1),
	RunE: withQuerier(func(ctx context.Context, q abci.Inspector, cmd *cobra.Command, args []string) error {
		acc := types.Account(args[0])
		vol, err := abci.GetVolume(ctx, q, acc)
		if err != nil {
			return err
		}
		return printJSON(cmd, abci.VolumeResponse{Account: acc, Volume: vol})
	}),
}

var queryPoolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Show the reward pool size",
	Args:  cobra.NoArgs,
	RunE: withQuerier(func(ctx context.Context, q abci.Inspector, cmd *cobra.Command, args []string) error {
		pool, err := abci.GetPool(ctx, q)
		if err != nil {
			return err
		}
		return printJSON(cmd, abci.PoolResponse{Pool: pool})
	}),
}

var queryRewardCmd = &cobra.Command{
	Use:   "reward",
	Short: "Split the pool between the leaderboard slots",
	Args:  cobra.NoArgs,
	RunE: withQuerier(func(ctx context.Context, q abci.Inspector, cmd *cobra.Command, args []string) error {
		rewards, err := abci.GetRewards(ctx, q)
		if err != nil {
			return err
		}
		return printJSON(cmd, rewards)
	}),
}

type queryFunc func(ctx context.Context, q abci.Inspector, cmd *cobra.Command, args []string) error

// withQuerier runs fn against a remote gRPC node when --remote is set, otherwise
// against an application restored from the local store.
func withQuerier(fn queryFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if remoteAddr != "" {
			config := abci.DefaultClientConfig(remoteAddr)
			config.Timeout = remoteTimeout
			client, err := abci.NewClient(config)
			if err != nil {
				return err
			}
			defer client.Close()
			return fn(ctx, client, cmd, args)
		}

		app, closeStore, err := openLocalApp()
		if err != nil {
			return err
		}
		defer closeStore()
		return fn(ctx, app, cmd, args)
	}
}
