package world

import (
	"math"

	"freightgrid.dev/internal/protocol"
)

// TradeState configures an import or export station: an ordered resource
// list where the first resource with a nonzero transferable amount is
// processed and ends the node's tick (mirroring production's one-recipe-
// per-tick discipline).
type TradeState struct {
	Resources []string
}

func (w *World) systemTrade(nowTick uint64) {
	for _, id := range w.sortedNodeIDs() {
		n := w.nodes[id]
		if n.Trade == nil || n.UnderConstruction {
			continue
		}
		switch n.Kind {
		case KindExport:
			w.stepExport(n, nowTick)
		case KindImport:
			w.stepImport(n, nowTick)
		}
	}
}

func (w *World) stepExport(n *Node, nowTick uint64) {
	c := &n.Consolidator
	for _, res := range n.Trade.Resources {
		amount := math.Min(w.totalInStorage(c, res), w.tune.MaxTradeAmount)
		if amount <= amountEpsilon {
			continue
		}
		if !w.FetchFromStorage(c, res, amount) {
			continue
		}
		n.Stats.Export.Track(res, amount)
		unitCost := w.catalogs.MustResource(res).UnitCost
		w.emitTransaction(protocol.Transaction{
			Tick:     nowTick,
			NodeID:   int(n.ID),
			Resource: res,
			Amount:   int64(math.Round(amount * float64(unitCost))),
		})
		return
	}
}

func (w *World) stepImport(n *Node, nowTick uint64) {
	c := &n.Consolidator
	for _, res := range n.Trade.Resources {
		amount := math.Min(w.totalSpaceInStorage(c, res), w.tune.MaxTradeAmount)
		if amount <= amountEpsilon {
			continue
		}
		w.DistributeToStorage(nowTick, nodeActor(n.ID), c, res, amount)
		n.Stats.Import.Track(res, amount)
		unitCost := w.catalogs.MustResource(res).UnitCost
		surcharge := float64(w.tune.ImportSurchargePct) / 100.0
		w.emitTransaction(protocol.Transaction{
			Tick:     nowTick,
			NodeID:   int(n.ID),
			Resource: res,
			Amount:   -int64(math.Round(amount * float64(unitCost) * surcharge)),
		})
		return
	}
}

// emitTransaction hands a currency event to the external account ledger.
// The core never reads a balance.
func (w *World) emitTransaction(t protocol.Transaction) {
	w.txns = append(w.txns, t)
	if w.txnSink != nil {
		_ = w.txnSink.RecordTransaction(t)
	}
}
