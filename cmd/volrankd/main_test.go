package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ahwlsqja/volrank/abci"
	"github.com/ahwlsqja/volrank/node"
	"github.com/ahwlsqja/volrank/types"
)

func run(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--home", home, "--log-level", "none"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestOfflineTxAndQuery(t *testing.T) {
	home := t.TempDir()

	for _, args := range [][]string{
		{"tx", "update", "alice", "33"},
		{"tx", "update", "bob", "20"},
		{"tx", "update", "carol", "46"},
		{"tx", "set-pool", "1000"},
	} {
		if _, err := run(t, home, args...); err != nil {
			t.Fatalf("%v failed: %v", args, err)
		}
	}

	out, err := run(t, home, "query", "top")
	if err != nil {
		t.Fatalf("query top failed: %v", err)
	}
	var slots types.TopSlots
	if err := json.Unmarshal([]byte(out), &slots); err != nil {
		t.Fatalf("failed to decode %q: %v", out, err)
	}
	want := types.TopSlots{"alice", "bob", "carol"}
	if slots != want {
		t.Errorf("Expected %v, got %v", want, slots)
	}

	out, err = run(t, home, "query", "pool")
	if err != nil {
		t.Fatalf("query pool failed: %v", err)
	}
	var pool struct {
		Pool uint32 `json:"pool"`
	}
	if err := json.Unmarshal([]byte(out), &pool); err != nil {
		t.Fatalf("failed to decode %q: %v", out, err)
	}
	if pool.Pool != 1000 {
		t.Errorf("Expected pool 1000, got %d", pool.Pool)
	}
}

func TestOfflineTxRejectsSentinel(t *testing.T) {
	home := t.TempDir()
	if _, err := run(t, home, "tx", "update", "default", "1"); err == nil {
		t.Fatal("Expected error for reserved account")
	}
	if _, err := run(t, home, "tx", "update", "alice", "not-a-number"); err == nil {
		t.Fatal("Expected error for malformed amount")
	}
}

func TestQueryInfoReportsCommittedHeight(t *testing.T) {
	home := t.TempDir()
	for i := 0; i < 2; i++ {
		if _, err := run(t, home, "tx", "update", "alice", "1"); err != nil {
			t.Fatalf("tx update failed: %v", err)
		}
	}

	out, err := run(t, home, "query", "info")
	if err != nil {
		t.Fatalf("query info failed: %v", err)
	}
	var status abci.NodeStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("failed to decode %q: %v", out, err)
	}
	if status.App != abci.AppName {
		t.Errorf("Expected app %s, got %s", abci.AppName, status.App)
	}
	if status.Height != 2 {
		t.Errorf("Expected height 2, got %d", status.Height)
	}
	if status.AppHash == "" {
		t.Error("Expected app hash")
	}
}

func TestOfflineCommandsRefuseMemDB(t *testing.T) {
	home := t.TempDir()
	t.Setenv("VOLRANK_DB_BACKEND", "memdb")

	if _, err := run(t, home, "tx", "update", "alice", "1"); !errors.Is(err, node.ErrEphemeralBackend) {
		t.Errorf("Expected ErrEphemeralBackend from tx, got %v", err)
	}
	if _, err := run(t, home, "query", "top"); !errors.Is(err, node.ErrEphemeralBackend) {
		t.Errorf("Expected ErrEphemeralBackend from query, got %v", err)
	}
}
