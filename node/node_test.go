package node

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	abcitypes "github.com/cometbft/cometbft/abci/types"

	"github.com/ahwlsqja/volrank/abci"
	"github.com/ahwlsqja/volrank/types"
)

func testConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.Home = t.TempDir()
	cfg.ABCIAddr = "tcp://127.0.0.1:0"
	cfg.MetricsEnabled = false
	return cfg
}

func TestNode_StartStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBBackend = BackendMemDB

	n, err := NewNode(cfg, nil)
	if err != nil {
		t.Fatalf("NewNode failed: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !n.IsRunning() {
		t.Error("Expected node running")
	}
	if err := n.Start(); err == nil {
		t.Error("Expected error on second Start")
	}
	if err := n.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if n.IsRunning() {
		t.Error("Expected node stopped")
	}
	if err := n.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
}

func TestNode_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transport = "udp"
	if _, err := NewNode(cfg, nil); err == nil {
		t.Fatal("Expected error for invalid config")
	}
}

func TestNode_ReopensLevelStore(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	n, err := NewNode(cfg, nil)
	if err != nil {
		t.Fatalf("NewNode failed: %v", err)
	}
	tx, err := abci.NewUpdateOperation("alice", types.NewVolume(12)).Encode()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := n.App().FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{Height: 1, Txs: [][]byte{tx}}); err != nil {
		t.Fatalf("FinalizeBlock failed: %v", err)
	}
	if _, err := n.App().Commit(ctx, &abcitypes.RequestCommit{}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := n.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	n2, err := NewNode(cfg, nil)
	if err != nil {
		t.Fatalf("NewNode after restart failed: %v", err)
	}
	defer n2.Stop()

	if n2.App().Height() != 1 {
		t.Errorf("Expected height 1, got %d", n2.App().Height())
	}
	vol, err := abci.GetVolume(ctx, n2.App(), "alice")
	if err != nil {
		t.Fatalf("GetVolume failed: %v", err)
	}
	if vol == nil || vol.String() != "12" {
		t.Errorf("Expected alice volume 12, got %v", vol)
	}
}

// freeAddr returns a loopback address with a port that was free a moment ago.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestNode_GRPCRemoteQuery(t *testing.T) {
	addr := freeAddr(t)
	cfg := testConfig(t)
	cfg.DBBackend = BackendMemDB
	cfg.Transport = TransportGRPC
	cfg.ABCIAddr = "tcp://" + addr

	n, err := NewNode(cfg, nil)
	if err != nil {
		t.Fatalf("NewNode failed: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer n.Stop()

	ctx := context.Background()
	tx, err := abci.NewUpdateOperation("alice", types.NewVolume(5)).Encode()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := n.App().FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{Height: 1, Txs: [][]byte{tx}}); err != nil {
		t.Fatalf("FinalizeBlock failed: %v", err)
	}
	if _, err := n.App().Commit(ctx, &abcitypes.RequestCommit{}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	clientCfg := abci.DefaultClientConfig(addr)
	clientCfg.Timeout = 5 * time.Second
	client, err := abci.NewClient(clientCfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	top, err := abci.GetTop(ctx, client)
	if err != nil {
		t.Fatalf("GetTop failed: %v", err)
	}
	want := types.TopSlots{"alice", types.DefaultAccount, types.DefaultAccount}
	if top != want {
		t.Errorf("Expected top %v, got %v", want, top)
	}

	vol, err := abci.GetVolume(ctx, client, "alice")
	if err != nil {
		t.Fatalf("GetVolume failed: %v", err)
	}
	if vol == nil || vol.String() != "5" {
		t.Errorf("Expected alice volume 5, got %v", vol)
	}

	// 없는 계정은 에러가 아니라 null
	vol, err = abci.GetVolume(ctx, client, "nobody")
	if err != nil {
		t.Fatalf("GetVolume failed: %v", err)
	}
	if vol != nil {
		t.Errorf("Expected no volume for unknown account, got %s", vol)
	}

	status, err := abci.GetStatus(ctx, client)
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if status.Height != 1 {
		t.Errorf("Expected height 1, got %d", status.Height)
	}
	if status.AppHash != fmt.Sprintf("%X", n.App().AppHash()) {
		t.Errorf("Expected app hash %X, got %s", n.App().AppHash(), status.AppHash)
	}
}
