package world

import (
	"math/rand"
	"sort"
	"sync/atomic"

	"freightgrid.dev/internal/protocol"
	"freightgrid.dev/internal/sim/catalogs"
	"freightgrid.dev/internal/sim/tuning"
)

type (
	StorageID int
	NodeID    int
	CarID     int
)

// World is a single-threaded authoritative simulation. All state must be
// accessed only from the world loop goroutine; tests drive it by calling
// step directly.
type World struct {
	cfg      WorldConfig
	tune     tuning.Tuning
	catalogs *catalogs.Catalogs

	tick    atomic.Uint64
	metrics atomic.Value

	// All randomness (transfer shuffles, recipe tie-breaks, depot target
	// picks, deadlock jitter) flows through this seeded source so ticks
	// replay identically for a given seed and command stream.
	rng *rand.Rand

	grid    *Grid
	planner *planner

	storages  map[StorageID]*Storage
	storageAt map[Cell]StorageID // tile -> storage
	nodes     map[NodeID]*Node
	cars      map[CarID]*Car

	// Externally raised "requires update" markers; consumed (and cleared)
	// by the consolidator refresh pass at the start of each tick.
	dirtyNodes map[NodeID]bool

	nextStorageNum int
	nextNodeNum    int
	nextCarNum     int

	// Per-tick outputs.
	txns           []protocol.Transaction
	auditsThisTick []AuditEntry
	auditSeq       uint64

	// Optional sinks (may be nil).
	tickLogger  TickLogger
	auditLogger AuditLogger
	txnSink     TransactionSink

	// External request channels, drained by Run at tick boundaries.
	inbox   chan CommandEnvelope
	attach  chan AttachRequest
	detach  chan string
	stop    chan struct{}

	observers map[string]*observerClient
}

func New(cfg WorldConfig, tune tuning.Tuning, cats *catalogs.Catalogs) (*World, error) {
	cfg.applyDefaults()
	w := &World{
		cfg:      cfg,
		tune:     tune,
		catalogs: cats,

		rng: rand.New(rand.NewSource(cfg.Seed)),

		grid: newGrid(cfg.Width, cfg.Height),

		storages:   map[StorageID]*Storage{},
		storageAt:  map[Cell]StorageID{},
		nodes:      map[NodeID]*Node{},
		cars:       map[CarID]*Car{},
		dirtyNodes: map[NodeID]bool{},

		inbox:  make(chan CommandEnvelope, 256),
		attach: make(chan AttachRequest, 16),
		detach: make(chan string, 16),
		stop:   make(chan struct{}),

		observers: map[string]*observerClient{},
	}
	w.planner = newPlanner(w.grid, tune)
	w.metrics.Store(WorldMetrics{})
	return w, nil
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Tuning() tuning.Tuning { return w.tune }

// Deterministic iteration orders. Map iteration order must never leak into
// sim behavior, so every per-tick loop goes through one of these.

func (w *World) sortedNodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(w.nodes))
	for id := range w.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *World) sortedCarIDs() []CarID {
	ids := make([]CarID, 0, len(w.cars))
	for id := range w.cars {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// WorldMetrics is a read-only snapshot for the HTTP metrics endpoint.
type WorldMetrics struct {
	Tick      uint64  `json:"tick"`
	Nodes     int     `json:"nodes"`
	Storages  int     `json:"storages"`
	Cars      int     `json:"cars"`
	IdleNodes int     `json:"idle_nodes"`
	StepMS    float64 `json:"step_ms"`
}

func (w *World) Metrics() WorldMetrics {
	m, _ := w.metrics.Load().(WorldMetrics)
	return m
}

// SetSinks wires the optional persistence sinks. Call before Run.
func (w *World) SetSinks(tick TickLogger, audit AuditLogger, txn TransactionSink) {
	w.tickLogger = tick
	w.auditLogger = audit
	w.txnSink = txn
}
