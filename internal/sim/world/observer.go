package world

import (
	"encoding/json"

	"freightgrid.dev/internal/protocol"
)

// Observers are read-only stream clients (rendering/UI). They receive one
// STATE message per tick; a slow client gets the latest state, not a
// backlog.

type observerClient struct {
	ID  string
	Out chan []byte
}

type AttachRequest struct {
	ID  string
	Out chan []byte
}

func (w *World) Attach(req AttachRequest) { w.attach <- req }
func (w *World) Detach(id string)         { w.detach <- id }

func (w *World) handleAttach(req AttachRequest) {
	if req.ID == "" || req.Out == nil {
		return
	}
	w.observers[req.ID] = &observerClient{ID: req.ID, Out: req.Out}
}

func (w *World) handleDetach(id string) {
	delete(w.observers, id)
}

// buildState assembles the per-tick observer broadcast.
func (w *World) buildState(nowTick uint64, digest string) protocol.StateMsg {
	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Digest:          digest,
	}

	for _, id := range w.sortedCarIDs() {
		c := w.cars[id]
		msg.Vehicles = append(msg.Vehicles, protocol.VehicleView{
			ID:        int(id),
			Pos:       [2]int{c.Pos.X, c.Pos.Y},
			Direction: c.Dir.String(),
			Resource:  c.Storage.Resource,
			Amount:    c.Storage.Amount,
		})
	}

	for _, id := range w.sortedNodeIDs() {
		n := w.nodes[id]
		if n.Production != nil && n.Production.Idle {
			msg.IdleNodes = append(msg.IdleNodes, int(id))
		}
		if n.Stats == nil {
			continue
		}
		ns := protocol.NodeStats{
			NodeID:      int(id),
			Production:  n.Stats.Production.clone(),
			Consumption: n.Stats.Consumption.clone(),
			Export:      n.Stats.Export.clone(),
			Import:      n.Stats.Import.clone(),
		}
		if ns.Production != nil || ns.Consumption != nil || ns.Export != nil || ns.Import != nil {
			msg.Stats = append(msg.Stats, ns)
		}
	}

	msg.Transactions = append(msg.Transactions, w.txns...)
	return msg
}

func (w *World) broadcastState(nowTick uint64, digest string) {
	if len(w.observers) == 0 {
		return
	}
	b, err := json.Marshal(w.buildState(nowTick, digest))
	if err != nil {
		return
	}
	for _, cl := range w.observers {
		sendLatest(cl.Out, b)
	}
}

// sendLatest delivers b without blocking, evicting one stale message if
// the channel is full.
func sendLatest(out chan []byte, b []byte) {
	select {
	case out <- b:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- b:
	default:
	}
}

func (w *World) replyErr(clientID, cmdID, code, message string) {
	cl := w.observers[clientID]
	if cl == nil {
		return
	}
	b, err := json.Marshal(protocol.ErrMsg{
		Type:            protocol.TypeErr,
		ProtocolVersion: protocol.Version,
		ID:              cmdID,
		Code:            code,
		Message:         message,
	})
	if err != nil {
		return
	}
	sendLatest(cl.Out, b)
}
