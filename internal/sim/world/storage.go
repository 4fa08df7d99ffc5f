package world

import "sort"

// Storage is one buffered quantity of a single resource at a location.
// Invariant: 0 <= Amount <= Capacity. Only the transfer primitives and the
// rebalancer mutate Amount.
type Storage struct {
	Resource string
	Amount   float64
	Capacity float64
}

func (s *Storage) free() float64 { return s.Capacity - s.Amount }

// Consolidator is the set of storages a node is logistically connected to
// (its orthogonal neighbor tiles). Membership is by id, not pointer: a
// member may have been removed since the last refresh, so every access
// re-checks existence in the arena.
type Consolidator struct {
	Members []StorageID
}

// Node is one fixed map entity participating in the simulation. Kind is a
// closed enum; each kind owns exactly the state struct it needs.
type NodeKind uint8

const (
	KindStorage NodeKind = iota
	KindProduction
	KindExport
	KindImport
	KindDepot
)

func (k NodeKind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindProduction:
		return "production"
	case KindExport:
		return "export"
	case KindImport:
		return "import"
	case KindDepot:
		return "depot"
	}
	return "unknown"
}

type Node struct {
	ID       NodeID
	Building string // catalog id
	Kind     NodeKind
	Pos      Cell

	Consolidator Consolidator

	// Set/cleared by the external construction system; nodes under
	// construction are excluded from production, trade and rebalancing.
	UnderConstruction bool

	Stats *Statistics

	Production *ProductionState // KindProduction
	Trade      *TradeState      // KindExport / KindImport
	Depot      *DepotState      // KindDepot

	Storage StorageID // KindStorage: the owned storage, 0 otherwise
}

// storage resolves a storage id, treating a dangling reference as "nothing
// found" (removed concurrently with consolidator staleness).
func (w *World) storage(id StorageID) *Storage {
	return w.storages[id]
}

func (w *World) node(id NodeID) *Node {
	return w.nodes[id]
}

// MarkDirty raises the external "requires update" signal for a node; its
// consolidator is recomputed on the next tick.
func (w *World) MarkDirty(id NodeID) {
	if _, ok := w.nodes[id]; ok {
		w.dirtyNodes[id] = true
	}
}

// markNeighborsDirty raises the update signal on the node at t and on any
// node orthogonally adjacent to it. Placement/removal calls this so
// consolidators pick up topology changes.
func (w *World) markNeighborsDirty(t Cell) {
	if id, ok := w.grid.buildingAt(t); ok {
		w.dirtyNodes[id] = true
	}
	for _, d := range cardinalDirs {
		if id, ok := w.grid.buildingAt(t.step(d)); ok {
			w.dirtyNodes[id] = true
		}
	}
}

// systemConsolidate consumes the dirty markers and recomputes each flagged
// node's consolidator from its orthogonal neighbor tiles. Runs before
// production so the tick never reads a stale membership it was told about.
func (w *World) systemConsolidate(nowTick uint64) {
	if len(w.dirtyNodes) == 0 {
		return
	}
	ids := make([]NodeID, 0, len(w.dirtyNodes))
	for id := range w.dirtyNodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		delete(w.dirtyNodes, id)
		n := w.node(id)
		if n == nil {
			continue
		}
		w.refreshConsolidator(n)
	}
	_ = nowTick
}

// refreshConsolidator rebuilds membership from the node's own tile plus
// its orthogonal neighbors. The own tile matters for storage nodes, whose
// consolidator is how vehicles parked on them reach the stored goods.
func (w *World) refreshConsolidator(n *Node) {
	members := n.Consolidator.Members[:0]
	add := func(t Cell) {
		if sid, ok := w.storageAt[t]; ok && w.storage(sid) != nil {
			members = append(members, sid)
		}
	}
	add(n.Pos)
	for _, d := range cardinalDirs {
		add(n.Pos.step(d))
	}
	n.Consolidator.Members = members
}
