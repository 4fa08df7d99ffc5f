package ledgerdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"freightgrid.dev/internal/protocol"
	"freightgrid.dev/internal/sim/world"
)

func TestLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := l.WriteTick(world.TickLogEntry{Tick: 7, Digest: "abc", Commands: 2}); err != nil {
		t.Fatalf("write tick: %v", err)
	}
	if err := l.RecordTransaction(protocol.Transaction{Tick: 7, NodeID: 3, Resource: "coal", Amount: 40}); err != nil {
		t.Fatalf("record txn: %v", err)
	}
	if err := l.RecordTransaction(protocol.Transaction{Tick: 8, NodeID: 4, Resource: "coal", Amount: -48}); err != nil {
		t.Fatalf("record txn: %v", err)
	}
	if err := l.WriteAudit(world.AuditEntry{Tick: 7, Seq: 1, Actor: "NODE:3", Action: "IDLE_SET"}); err != nil {
		t.Fatalf("write audit: %v", err)
	}

	// Close drains the buffer and commits.
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var digest string
	if err := db.QueryRow(`SELECT digest FROM ticks WHERE tick=7`).Scan(&digest); err != nil {
		t.Fatalf("query tick: %v", err)
	}
	if digest != "abc" {
		t.Fatalf("digest = %q, want abc", digest)
	}

	var sum int64
	if err := db.QueryRow(`SELECT SUM(amount) FROM transactions WHERE resource='coal'`).Scan(&sum); err != nil {
		t.Fatalf("query txns: %v", err)
	}
	if sum != -8 {
		t.Fatalf("coal balance = %d, want -8", sum)
	}

	var audits int
	if err := db.QueryRow(`SELECT COUNT(*) FROM audits`).Scan(&audits); err != nil {
		t.Fatalf("query audits: %v", err)
	}
	if audits != 1 {
		t.Fatalf("audits = %d, want 1", audits)
	}
}

func TestLedgerCloseIdempotent(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	// Writes after close are silently dropped.
	if err := l.WriteTick(world.TickLogEntry{Tick: 1}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
}
