package world

import "math"

// systemRebalance levels out same-resource storages connected to a node.
// Per node and tick it moves at most one transfer between the single most
// unequal pair across all resources, so per-tick work stays bounded and
// fill levels converge gradually rather than snapping to equal.
func (w *World) systemRebalance(nowTick uint64) {
	for _, id := range w.sortedNodeIDs() {
		n := w.nodes[id]
		if n.UnderConstruction || len(n.Consolidator.Members) < 2 {
			continue
		}
		w.stepRebalance(n, nowTick)
	}
}

func (w *World) stepRebalance(n *Node, nowTick uint64) {
	// Group live members by resource, preserving consolidator order.
	byResource := map[string][]*Storage{}
	var resources []string
	for _, id := range n.Consolidator.Members {
		s := w.storage(id)
		if s == nil {
			continue
		}
		if _, seen := byResource[s.Resource]; !seen {
			resources = append(resources, s.Resource)
		}
		byResource[s.Resource] = append(byResource[s.Resource], s)
	}

	// Pick the globally most unequal pair across all resources.
	var from, to *Storage
	bestDiff := 0.0
	for _, res := range resources {
		group := byResource[res]
		if len(group) < 2 {
			continue
		}
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				diff := math.Abs(a.Amount - b.Amount)
				if diff <= bestDiff {
					continue
				}
				bestDiff = diff
				if a.Amount >= b.Amount {
					from, to = a, b
				} else {
					from, to = b, a
				}
			}
		}
	}
	if from == nil || bestDiff <= amountEpsilon {
		return
	}

	move := math.Min(bestDiff/2, w.tune.MaxStorageTransfer)
	// Clamp against capacity; with unequal capacities half the difference
	// can exceed the emptier storage's free space.
	move = math.Min(move, to.free())
	move = math.Min(move, from.Amount)
	if move <= amountEpsilon {
		return
	}
	from.Amount -= move
	to.Amount += move
	_ = nowTick
}
