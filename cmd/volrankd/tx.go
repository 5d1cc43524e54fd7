package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/spf13/cobra"

	"github.com/ahwlsqja/volrank/abci"
	"github.com/ahwlsqja/volrank/node"
	"github.com/ahwlsqja/volrank/types"
)

func init() {
	txCmd.AddCommand(txUpdateCmd, txDeleteCmd, txSetPoolCmd, txResetPoolCmd, txClearCmd)
}

// txCmd executes operations directly against the local store as a one-transaction block.
// The node must not be running on the same home.
var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Apply an operation to the local state as a new block",
	Long: "Apply an operation to the goleveldb state under --home as a new block. " +
		"The node must not be running on the same home, and the memdb backend is refused " +
		"because its state would be gone before the next command.",
}

var txUpdateCmd = &cobra.Command{
	Use:   "update [account] [amount]",
	Short: "Add amount to the account's volume",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := types.ParseVolume(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		return applyOperation(cmd, abci.NewUpdateOperation(types.Account(args[0]), amount))
	},
}

var txDeleteCmd = &cobra.Command{
	Use:   "delete [account]",
	Short: "Remove the account from the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyOperation(cmd, abci.NewDeleteOperation(types.Account(args[0])))
	},
}

var txSetPoolCmd = &cobra.Command{
	Use:   "set-pool [pool]",
	Short: "Set the reward pool size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid pool %q: %w", args[0], err)
		}
		return applyOperation(cmd, abci.NewSetPoolOperation(uint32(pool)))
	},
}

var txResetPoolCmd = &cobra.Command{
	Use:   "reset-pool",
	Short: "Restore the default reward pool size",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyOperation(cmd, abci.Operation{Type: abci.OpSetPoolToDefault})
	},
}

var txClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the ledger and the leaderboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyOperation(cmd, abci.Operation{Type: abci.OpClear})
	},
}

type txResult struct {
	Height  int64             `json:"height"`
	Code    uint32            `json:"code"`
	Log     string            `json:"log,omitempty"`
	AppHash string            `json:"app_hash"`
	Events  []abcitypes.Event `json:"events,omitempty"`
}

// applyOperation finalizes and commits a block holding op at the next height.
func applyOperation(cmd *cobra.Command, op abci.Operation) error {
	tx, err := op.Encode()
	if err != nil {
		return err
	}

	app, closeStore, err := openLocalApp()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	height := app.Height() + 1
	resp, err := app.FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{
		Height: height,
		Txs:    [][]byte{tx},
	})
	if err != nil {
		return err
	}
	if _, err := app.Commit(ctx, &abcitypes.RequestCommit{}); err != nil {
		return err
	}

	res := resp.TxResults[0]
	if err := printJSON(cmd, txResult{
		Height:  height,
		Code:    res.Code,
		Log:     res.Log,
		AppHash: fmt.Sprintf("%X", resp.AppHash),
		Events:  res.Events,
	}); err != nil {
		return err
	}
	if res.Code != abci.CodeTypeOK {
		return fmt.Errorf("%s failed with code %d", op.Type, res.Code)
	}
	return nil
}

// openLocalApp restores the application from the store under --home. The returned
// func closes the store.
func openLocalApp() (*abci.Application, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ValidateOffline(); err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := node.OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	app, err := abci.NewApplication(store, nil, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return app, store.Close, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
