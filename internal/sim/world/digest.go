package world

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// stateDigest hashes the mutable sim state in a fixed order. Two worlds
// fed the same seed and command stream must produce identical digests
// every tick; the determinism test and the tick log rely on this.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	fmt.Fprintf(h, "tick=%d\n", nowTick)

	sids := make([]StorageID, 0, len(w.storages))
	for id := range w.storages {
		sids = append(sids, id)
	}
	sort.Slice(sids, func(i, j int) bool { return sids[i] < sids[j] })
	for _, id := range sids {
		s := w.storages[id]
		fmt.Fprintf(h, "storage=%d res=%s amt=%.9f cap=%.9f\n", id, s.Resource, s.Amount, s.Capacity)
	}

	for _, id := range w.sortedNodeIDs() {
		n := w.nodes[id]
		idle := false
		if n.Production != nil {
			idle = n.Production.Idle
		}
		fmt.Fprintf(h, "node=%d kind=%s pos=%d,%d idle=%v uc=%v\n", id, n.Kind, n.Pos.X, n.Pos.Y, idle, n.UnderConstruction)
	}

	for _, id := range w.sortedCarIDs() {
		c := w.cars[id]
		fmt.Fprintf(h, "car=%d pos=%d,%d dir=%s res=%s amt=%.9f\n", id, c.Pos.X, c.Pos.Y, c.Dir, c.Storage.Resource, c.Storage.Amount)
		if c.Waypoints != nil {
			fmt.Fprintf(h, "car=%d wp=%d blocked=%d\n", id, len(c.Waypoints.Path), c.Waypoints.BlockedTicks)
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}
