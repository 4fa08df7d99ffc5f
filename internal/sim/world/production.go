package world

import (
	"fmt"

	"freightgrid.dev/internal/sim/catalogs"
)

// ProductionState is the per-node recipe list plus the idle marker.
type ProductionState struct {
	Products []ProductSlot

	// Idle is set when no active recipe was viable last tick and cleared
	// the tick production resumes. Rendering reads it; the sim only
	// toggles it.
	Idle bool
}

type ProductSlot struct {
	Def    catalogs.ProductDef
	Active bool
}

func nodeActor(id NodeID) string { return fmt.Sprintf("NODE:%d", id) }

// systemProduction runs the per-tick recipe decision for every production
// node. One recipe fires per node per tick; ties between simultaneously
// viable recipes are broken uniformly at random so no recipe monopolizes a
// multi-recipe building.
func (w *World) systemProduction(nowTick uint64) {
	for _, id := range w.sortedNodeIDs() {
		n := w.nodes[id]
		if n.Production == nil || n.UnderConstruction {
			continue
		}
		w.stepProduction(n, nowTick)
	}
}

func (w *World) stepProduction(n *Node, nowTick uint64) {
	c := &n.Consolidator

	type candidate struct {
		slot     *ProductSlot
		modifier float64
	}
	var viable []candidate

	for i := range n.Production.Products {
		slot := &n.Production.Products[i]
		if !slot.Active {
			continue
		}
		p := &slot.Def

		ok := true
		for _, r := range p.Requisites {
			if !w.HasInStorage(c, r.Resource, r.Rate) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		// An unavailable enhancer contributes modifier 1.0; it never
		// blocks viability.
		modifier := 1.0
		for _, e := range p.Enhancers {
			if w.HasInStorage(c, e.Resource, e.Rate) {
				modifier *= e.Modifier
			}
		}

		if !w.HasSpaceInStorage(c, p.Output, p.Rate*modifier) {
			continue
		}
		viable = append(viable, candidate{slot: slot, modifier: modifier})
	}

	if len(viable) == 0 {
		w.setIdle(n, nowTick, true)
		return
	}

	w.rng.Shuffle(len(viable), func(i, j int) {
		viable[i], viable[j] = viable[j], viable[i]
	})
	pick := viable[0]
	p := &pick.slot.Def

	// Consume requisites. Availability was checked this same synchronous
	// step and nothing else ran for this node in between, so the fetches
	// cannot fail; the primitive still re-checks before mutating.
	for _, r := range p.Requisites {
		if !w.FetchFromStorage(c, r.Resource, r.Rate) {
			w.setIdle(n, nowTick, true)
			return
		}
		n.Stats.Consumption.Track(r.Resource, r.Rate)
	}

	// Consume whichever enhancers are actually available now. Requisite
	// consumption may have drained a shared storage, so the modifier is
	// the product over enhancers actually consumed.
	modifier := 1.0
	for _, e := range p.Enhancers {
		if w.FetchFromStorage(c, e.Resource, e.Rate) {
			modifier *= e.Modifier
			n.Stats.Consumption.Track(e.Resource, e.Rate)
		}
	}

	out := p.Rate * modifier
	w.DistributeToStorage(nowTick, nodeActor(n.ID), c, p.Output, out)
	n.Stats.Production.Track(p.Output, out)
	w.setIdle(n, nowTick, false)

	// Byproducts are best-effort: produced only when space is available,
	// and never rolled back against the primary output.
	for _, b := range p.Byproducts {
		amt := b.Rate * modifier
		if !w.HasSpaceInStorage(c, b.Resource, amt) {
			continue
		}
		w.DistributeToStorage(nowTick, nodeActor(n.ID), c, b.Resource, amt)
		n.Stats.Production.Track(b.Resource, amt)
	}
}

func (w *World) setIdle(n *Node, nowTick uint64, idle bool) {
	if n.Production == nil || n.Production.Idle == idle {
		return
	}
	n.Production.Idle = idle
	action := "IDLE_CLEAR"
	if idle {
		action = "IDLE_SET"
	}
	w.auditEvent(nowTick, nodeActor(n.ID), action, "", nil)
}

// SetProductActive toggles a recipe's enable flag by output resource id.
func (w *World) SetProductActive(id NodeID, output string, active bool) bool {
	n := w.node(id)
	if n == nil || n.Production == nil {
		return false
	}
	for i := range n.Production.Products {
		if n.Production.Products[i].Def.Output == output {
			n.Production.Products[i].Active = active
			return true
		}
	}
	return false
}
