package world

import (
	"fmt"
	"time"

	"freightgrid.dev/internal/protocol"
)

// CommandEnvelope carries one client command into the world loop.
type CommandEnvelope struct {
	ClientID string
	Cmd      protocol.CmdMsg
}

// Submit queues a command for the next tick boundary. Returns false when
// the inbox is full; the caller should report backpressure to the client.
func (w *World) Submit(env CommandEnvelope) bool {
	select {
	case w.inbox <- env:
		return true
	default:
		return false
	}
}

// Step runs exactly one tick synchronously. Tests and the runtime loop
// both come through here; nothing else may mutate sim state.
func (w *World) Step() {
	w.stepInternal(nil)
}

func (w *World) stepInternal(commands []CommandEnvelope) {
	started := time.Now()
	nowTick := w.tick.Load()

	for _, env := range commands {
		w.applyCommand(nowTick, env)
	}

	// System order is fixed: consolidators first so no system reads a
	// stale membership, motion last so vehicles act on this tick's
	// instructions and freshly planned paths.
	w.systemConsolidate(nowTick)
	w.systemProduction(nowTick)
	w.systemTrade(nowTick)
	w.systemRebalance(nowTick)
	w.systemInstructions(nowTick)
	w.systemPathfinding(nowTick)
	w.systemMotion(nowTick)

	digest := w.stateDigest(nowTick)

	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{
			Tick:         nowTick,
			Digest:       digest,
			Commands:     len(commands),
			Transactions: append([]protocol.Transaction(nil), w.txns...),
		})
	}

	w.broadcastState(nowTick, digest)

	w.txns = w.txns[:0]
	w.auditsThisTick = w.auditsThisTick[:0]

	idle := 0
	for _, n := range w.nodes {
		if n.Production != nil && n.Production.Idle {
			idle++
		}
	}
	w.metrics.Store(WorldMetrics{
		Tick:      nowTick,
		Nodes:     len(w.nodes),
		Storages:  len(w.storages),
		Cars:      len(w.cars),
		IdleNodes: idle,
		StepMS:    float64(time.Since(started).Microseconds()) / 1000.0,
	})
	w.tick.Add(1)
}

func (w *World) applyCommand(nowTick uint64, env CommandEnvelope) {
	cmd := env.Cmd
	switch cmd.Cmd {
	case "SET_RECIPE_ACTIVE":
		if cmd.Active == nil {
			w.replyErr(env.ClientID, cmd.ID, protocol.ErrBadRequest, "SET_RECIPE_ACTIVE requires active")
			return
		}
		if !w.SetProductActive(NodeID(cmd.NodeID), cmd.Product, *cmd.Active) {
			w.replyErr(env.ClientID, cmd.ID, protocol.ErrInvalidTarget,
				fmt.Sprintf("node %d has no product %q", cmd.NodeID, cmd.Product))
			return
		}
		w.auditEvent(nowTick, "CLIENT:"+env.ClientID, "SET_RECIPE_ACTIVE", "", map[string]any{
			"node_id": cmd.NodeID,
			"product": cmd.Product,
			"active":  *cmd.Active,
		})

	case "SET_PROGRAM":
		prog, err := decodeProgram(cmd.Instructions)
		if err != nil {
			w.replyErr(env.ClientID, cmd.ID, protocol.ErrBadRequest, err.Error())
			return
		}
		for _, ins := range prog {
			if ins.Resource == "" {
				continue
			}
			if _, err := w.catalogs.Resource(ins.Resource); err != nil {
				w.replyErr(env.ClientID, cmd.ID, protocol.ErrNoResource, err.Error())
				return
			}
		}
		if !w.SetProgram(CarID(cmd.CarID), prog, true) {
			w.replyErr(env.ClientID, cmd.ID, protocol.ErrInvalidTarget,
				fmt.Sprintf("car %d is not user-controlled", cmd.CarID))
			return
		}
		w.auditEvent(nowTick, "CLIENT:"+env.ClientID, "SET_PROGRAM", "", map[string]any{
			"car_id":       cmd.CarID,
			"instructions": len(prog),
		})

	default:
		w.replyErr(env.ClientID, cmd.ID, protocol.ErrBadRequest, "unknown cmd "+cmd.Cmd)
	}
}

// decodeProgram validates wire instructions and converts them to sim
// instructions. Targets arrive in tile units and are mapped onto the
// vehicle grid.
func decodeProgram(in []protocol.Instruction) ([]Instruction, error) {
	out := make([]Instruction, 0, len(in))
	for i, wi := range in {
		var op InstructionOp
		switch wi.Op {
		case "NOP":
			op = OpNop
		case "GOTO":
			op = OpGoTo
		case "LOAD":
			op = OpLoad
		case "WAIT_FOR_LOAD":
			op = OpWaitForLoad
		case "UNLOAD":
			op = OpUnload
		case "WAIT_FOR_UNLOAD":
			op = OpWaitForUnload
		default:
			return nil, fmt.Errorf("instruction %d: unknown op %q", i, wi.Op)
		}
		ins := Instruction{Op: op, Resource: wi.Resource}
		if op == OpGoTo {
			if wi.Target == nil {
				return nil, fmt.Errorf("instruction %d: GOTO requires target", i)
			}
			ins.Target = tileToVehicle(Cell{X: wi.Target[0], Y: wi.Target[1]})
		}
		out = append(out, ins)
	}
	return out, nil
}
