package ledgerdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"freightgrid.dev/internal/protocol"
	"freightgrid.dev/internal/sim/catalogs"
	"freightgrid.dev/internal/sim/world"
)

// Ledger is an async sqlite index over the tick stream: per-tick digests,
// currency transactions and audit events. Writes are buffered through a
// channel and applied by a single writer goroutine in batched
// transactions; when the buffer is full, entries are dropped rather than
// stalling the sim, the JSONL logs being the durable record.
type Ledger struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqTxn
	reqAudit
)

type req struct {
	kind  reqKind
	tick  world.TickLogEntry
	txn   protocol.Transaction
	audit world.AuditEntry
}

func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	l := &Ledger{
		db: db,
		ch: make(chan req, 65536),
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.loop()
	}()
	return l, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only workload; NORMAL is enough durability for
	// a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			commands INTEGER NOT NULL,
			transactions INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			tick INTEGER NOT NULL,
			node_id INTEGER NOT NULL,
			resource TEXT NOT NULL,
			amount INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_txn_node_tick ON transactions(node_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_txn_resource ON transactions(resource, tick);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			code TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_tick ON audits(actor, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) Close() error {
	var err error
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		l.wg.Wait()
		err = l.db.Close()
	})
	return err
}

func (l *Ledger) WriteTick(entry world.TickLogEntry) error {
	l.enqueue(req{kind: reqTick, tick: entry})
	return nil
}

func (l *Ledger) RecordTransaction(t protocol.Transaction) error {
	l.enqueue(req{kind: reqTxn, txn: t})
	return nil
}

func (l *Ledger) WriteAudit(entry world.AuditEntry) error {
	l.enqueue(req{kind: reqAudit, audit: entry})
	return nil
}

func (l *Ledger) enqueue(r req) {
	if l == nil || l.closed.Load() {
		return
	}
	select {
	case l.ch <- r:
	default:
		// Drop when the indexer falls behind.
	}
}

// UpsertCatalogs records the catalog digests and canonical JSON so a
// ledger file is self-describing about the definitions it ran under.
// Synchronous; call at startup before the world loop.
func (l *Ledger) UpsertCatalogs(cats *catalogs.Catalogs) error {
	if l == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	// Canonicalize to sorted def lists for stable JSON.
	resources := make([]catalogs.ResourceDef, 0, len(cats.Resources.Palette))
	for _, id := range cats.Resources.Palette {
		resources = append(resources, cats.Resources.Defs[id])
	}
	buildings := make([]catalogs.BuildingDef, 0, len(cats.Buildings.Palette))
	for _, id := range cats.Buildings.Palette {
		buildings = append(buildings, cats.Buildings.Defs[id])
	}

	type row struct {
		name   string
		digest string
		body   any
	}
	rows := []row{
		{name: "resources", digest: cats.Resources.Digest, body: resources},
		{name: "buildings", digest: cats.Buildings.Digest, body: buildings},
	}

	tx, err := l.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		b, err := json.Marshal(r.body)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(r.name, r.digest, string(b), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (l *Ledger) loop() {
	ctx := context.Background()

	insertTick, _ := l.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,digest,commands,transactions) VALUES(?,?,?,?)`)
	insertTxn, _ := l.db.Prepare(`INSERT INTO transactions(tick,node_id,resource,amount) VALUES(?,?,?,?)`)
	insertAudit, _ := l.db.Prepare(`INSERT OR REPLACE INTO audits(tick,seq,actor,action,code,raw_json) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertTxn, insertAudit} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx          *sql.Tx
		opCount     int
		lastCommit  = time.Now()
		commitEvery = 1000
		commitWait  = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
	}

	for r := range l.ch {
		begin()
		if tx == nil {
			continue
		}
		var err error
		switch r.kind {
		case reqTick:
			if insertTick != nil {
				_, err = tx.Stmt(insertTick).Exec(int64(r.tick.Tick), r.tick.Digest, r.tick.Commands, len(r.tick.Transactions))
				opCount++
			}
		case reqTxn:
			if insertTxn != nil {
				_, err = tx.Stmt(insertTxn).Exec(int64(r.txn.Tick), r.txn.NodeID, r.txn.Resource, r.txn.Amount)
				opCount++
			}
		case reqAudit:
			if insertAudit != nil {
				raw, _ := json.Marshal(r.audit)
				_, err = tx.Stmt(insertAudit).Exec(int64(r.audit.Tick), int64(r.audit.Seq), r.audit.Actor, r.audit.Action, r.audit.Code, string(raw))
				opCount++
			}
		}
		if err != nil {
			rollback()
			continue
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitWait {
			commit()
		}
	}
	commit()
}
