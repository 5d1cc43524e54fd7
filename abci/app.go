// Package abci connects the volume leaderboard to CometBFT through the ABCI++
// interface. CometBFT is the host: it delivers calls one at a time, and a call
// that fails leaves no trace in state.
package abci

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/libs/log"

	"github.com/ahwlsqja/volrank/leaderboard"
	"github.com/ahwlsqja/volrank/metrics"
	"github.com/ahwlsqja/volrank/persistence"
)

const (
	// AppName is reported in Info.
	AppName = "volrank"
	// Version is the application software version.
	Version = "1.0.0"
	// AppVersion is the ABCI protocol version of the state machine.
	AppVersion uint64 = 1
)

// GenesisState is the optional app_state of the genesis file.
type GenesisState struct {
	Pool *uint32 `json:"pool,omitempty"`
}

// Application runs the tracker as an ABCI application.
type Application struct {
	abci.BaseApplication

	mu sync.RWMutex

	// State
	tracker   *leaderboard.Tracker // FinalizeBlock에서 변경되는 작업 상태
	committed *leaderboard.Tracker // Query가 읽는 커밋된 상태

	store   persistence.Store
	metrics metrics.Recorder
	logger  log.Logger

	// Committed height and app hash
	height  int64
	appHash []byte

	// Finalized but not yet committed
	pendingHeight int64
	pendingHash   []byte
}

var (
	_ abci.Application = (*Application)(nil)
	_ Inspector        = (*Application)(nil)
)

// NewApplication creates an application and restores the last committed state from store.
func NewApplication(store persistence.Store, rec metrics.Recorder, logger log.Logger) (*Application, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if rec == nil {
		rec = &metrics.NullMetrics{}
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	snap, err := store.LoadState()
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	app := &Application{
		store:   store,
		metrics: rec,
		logger:  logger,
	}

	trackerLogger := logger.With("module", "leaderboard")
	if snap == nil {
		app.tracker = leaderboard.NewTracker(trackerLogger)
	} else {
		app.tracker, err = leaderboard.Restore(snap.State, trackerLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to restore state at height %d: %w", snap.Height, err)
		}
		app.height = snap.Height
		app.appHash = snap.AppHash
		logger.Info("restored state", "height", snap.Height, "ledger", app.tracker.LedgerLen(), "top", app.tracker.TopLen())
	}
	app.committed = app.tracker.Clone()
	app.pendingHeight = app.height
	app.pendingHash = app.appHash
	app.observe()

	return app, nil
}

// Info returns application info.
func (app *Application) Info(_ context.Context, _ *abci.RequestInfo) (*abci.ResponseInfo, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	return &abci.ResponseInfo{
		Data:             AppName,
		Version:          Version,
		AppVersion:       AppVersion,
		LastBlockHeight:  app.height,
		LastBlockAppHash: app.appHash,
	}, nil
}

// InitChain initializes the state from genesis.
func (app *Application) InitChain(_ context.Context, req *abci.RequestInitChain) (*abci.ResponseInitChain, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	tracker := leaderboard.NewTracker(app.logger.With("module", "leaderboard"))
	if len(req.AppStateBytes) > 0 {
		var genesis GenesisState
		if err := json.Unmarshal(req.AppStateBytes, &genesis); err != nil {
			return nil, fmt.Errorf("invalid genesis app state: %w", err)
		}
		if genesis.Pool != nil {
			tracker.SetPool(*genesis.Pool)
		}
	}

	hash, err := persistence.StateHash(tracker.Export())
	if err != nil {
		return nil, err
	}

	app.tracker = tracker
	app.committed = tracker.Clone()
	app.pendingHash = hash
	app.observe()

	app.logger.Info("init chain", "chain_id", req.ChainId, "pool", tracker.Pool())
	return &abci.ResponseInitChain{AppHash: hash}, nil
}

// CheckTx validates a transaction before it enters the mempool.
func (app *Application) CheckTx(_ context.Context, req *abci.RequestCheckTx) (*abci.ResponseCheckTx, error) {
	if _, err := DecodeOperation(req.Tx); err != nil {
		return &abci.ResponseCheckTx{Code: codeForError(err), Log: err.Error()}, nil
	}
	return &abci.ResponseCheckTx{Code: CodeTypeOK}, nil
}

// PrepareProposal drops undecodable transactions and keeps the rest in mempool
// order up to MaxTxBytes.
func (app *Application) PrepareProposal(_ context.Context, req *abci.RequestPrepareProposal) (*abci.ResponsePrepareProposal, error) {
	txs := make([][]byte, 0, len(req.Txs))
	var total int64
	for _, tx := range req.Txs {
		if _, err := DecodeOperation(tx); err != nil {
			continue
		}
		if req.MaxTxBytes > 0 && total+int64(len(tx)) > req.MaxTxBytes {
			break
		}
		total += int64(len(tx))
		txs = append(txs, tx)
	}
	return &abci.ResponsePrepareProposal{Txs: txs}, nil
}

// ProcessProposal rejects proposals carrying transactions that cannot be decoded.
func (app *Application) ProcessProposal(_ context.Context, req *abci.RequestProcessProposal) (*abci.ResponseProcessProposal, error) {
	for _, tx := range req.Txs {
		if _, err := DecodeOperation(tx); err != nil {
			app.logger.Info("rejecting proposal", "height", req.Height, "err", err)
			return &abci.ResponseProcessProposal{Status: abci.ResponseProcessProposal_REJECT}, nil
		}
	}
	return &abci.ResponseProcessProposal{Status: abci.ResponseProcessProposal_ACCEPT}, nil
}

// FinalizeBlock executes the block's transactions in order against the working state.
func (app *Application) FinalizeBlock(_ context.Context, req *abci.RequestFinalizeBlock) (*abci.ResponseFinalizeBlock, error) {
	start := time.Now()

	app.mu.Lock()
	defer app.mu.Unlock()

	results := make([]*abci.ExecTxResult, len(req.Txs))
	for i, tx := range req.Txs {
		results[i] = app.deliverTx(tx)
	}

	hash, err := persistence.StateHash(app.tracker.Export())
	if err != nil {
		return nil, fmt.Errorf("failed to compute app hash: %w", err)
	}
	app.pendingHeight = req.Height
	app.pendingHash = hash

	app.metrics.RecordBlockExecutionTime(time.Since(start))
	app.observe()

	return &abci.ResponseFinalizeBlock{
		TxResults: results,
		AppHash:   hash,
	}, nil
}

// deliverTx executes a single transaction. A failed call returns a non-zero code
// and leaves the tracker untouched.
func (app *Application) deliverTx(tx []byte) *abci.ExecTxResult {
	op, err := DecodeOperation(tx)
	if err != nil {
		app.metrics.RecordOperation("unknown", metrics.ResultInvalid)
		return &abci.ExecTxResult{Code: codeForError(err), Log: err.Error()}
	}

	event, err := app.execute(op)
	if err != nil {
		app.metrics.RecordOperation(op.Type, metrics.ResultAborted)
		app.logger.Debug("operation aborted", "op", op.Type, "account", op.Account, "err", err)
		return &abci.ExecTxResult{Code: codeForError(err), Log: err.Error()}
	}

	app.metrics.RecordOperation(op.Type, metrics.ResultOK)
	return &abci.ExecTxResult{
		Code:   CodeTypeOK,
		Log:    "success",
		Events: []abci.Event{event},
	}
}

func (app *Application) execute(op *Operation) (abci.Event, error) {
	switch op.Type {
	case OpUpdateList:
		out, err := app.tracker.Update(op.Account, *op.Amount)
		if err != nil {
			return abci.Event{}, err
		}
		if out.Action == leaderboard.ActionEvicted {
			app.metrics.IncrementEvictions()
		}
		return updateEvent(*op.Amount, out), nil
	case OpDelete:
		app.tracker.Delete(op.Account)
	case OpSetPool:
		app.tracker.SetPool(*op.Pool)
	case OpSetPoolToDefault:
		app.tracker.SetPoolToDefault()
	case OpClear:
		app.tracker.Clear()
	default:
		return abci.Event{}, fmt.Errorf("%w: %q", ErrUnknownOperation, op.Type)
	}
	return operationEvent(op), nil
}

// Commit persists the finalized state and publishes it to queries.
func (app *Application) Commit(_ context.Context, _ *abci.RequestCommit) (*abci.ResponseCommit, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	snap := &persistence.Snapshot{
		Height:  app.pendingHeight,
		AppHash: app.pendingHash,
		State:   app.tracker.Export(),
	}
	if err := app.store.SaveState(snap); err != nil {
		return nil, fmt.Errorf("failed to save state at height %d: %w", snap.Height, err)
	}

	app.height = app.pendingHeight
	app.appHash = app.pendingHash
	app.committed = app.tracker.Clone()
	app.metrics.SetBlockHeight(app.height)

	return &abci.ResponseCommit{}, nil
}

// Query answers read-only calls from the committed state.
func (app *Application) Query(_ context.Context, req *abci.RequestQuery) (*abci.ResponseQuery, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	value, err := handleQuery(app.committed, req.Path, req.Data)
	if err != nil {
		return &abci.ResponseQuery{
			Code:   codeForError(err),
			Log:    err.Error(),
			Height: app.height,
		}, nil
	}
	return &abci.ResponseQuery{
		Code:   CodeTypeOK,
		Key:    req.Data,
		Value:  value,
		Height: app.height,
	}, nil
}

// Height returns the last committed height.
func (app *Application) Height() int64 {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.height
}

// AppHash returns the last committed app hash.
func (app *Application) AppHash() []byte {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.appHash
}

// observe refreshes the state gauges from the working tracker.
func (app *Application) observe() {
	app.metrics.SetLedgerSize(app.tracker.LedgerLen())
	app.metrics.SetTopSize(app.tracker.TopLen())
	app.metrics.SetPool(app.tracker.Pool())
}
