package world

import "freightgrid.dev/internal/protocol"

// systemInstructions runs each car's controller: user programs execute the
// skip-then-dispatch cycle over their instruction list; depot cars follow
// the depot's pickup/delivery policy.
func (w *World) systemInstructions(nowTick uint64) {
	for _, id := range w.sortedCarIDs() {
		car := w.cars[id]
		switch car.Controller {
		case ControllerUser:
			w.stepUserProgram(car, nowTick)
		case ControllerDepot:
			w.stepDepotCar(car, nowTick)
		}
	}
}

// stepUserProgram first walks past instructions whose skip condition
// already holds (GoTo: at target; Load: full; Unload: empty), wrapping at
// the end of the list. A tick that skipped anything does not also act; the
// instruction it landed on runs next tick. Only when the current
// instruction was not skippable is it dispatched.
func (w *World) stepUserProgram(car *Car, nowTick uint64) {
	prog := car.Program
	if prog == nil || !prog.Active || len(prog.Instructions) == 0 {
		return
	}
	if prog.Current >= len(prog.Instructions) {
		prog.Current = 0
	}

	skipped := false
	for range prog.Instructions {
		if !w.shouldSkip(car, prog.Instructions[prog.Current]) {
			break
		}
		prog.Current = (prog.Current + 1) % len(prog.Instructions)
		skipped = true
	}
	if skipped {
		return
	}

	ins := prog.Instructions[prog.Current]
	switch ins.Op {
	case OpNop:
		// Handled by the skip pass; nothing to dispatch.
	case OpGoTo:
		w.requestGoTo(car, ins.Target)
	case OpLoad:
		if w.requestLoad(car, ins.Resource, nowTick) {
			prog.Current = (prog.Current + 1) % len(prog.Instructions)
		}
	case OpWaitForLoad:
		// Keeps retrying every tick; the skip check advances it once the
		// car is full.
		w.requestLoad(car, ins.Resource, nowTick)
	case OpUnload:
		if w.requestUnload(car, ins.Resource, nowTick) {
			prog.Current = (prog.Current + 1) % len(prog.Instructions)
		}
	case OpWaitForUnload:
		w.requestUnload(car, ins.Resource, nowTick)
	}
}

func (w *World) shouldSkip(car *Car, ins Instruction) bool {
	switch ins.Op {
	case OpNop:
		return true
	case OpGoTo:
		return car.Pos == ins.Target
	case OpLoad, OpWaitForLoad:
		return car.storageFull()
	case OpUnload, OpWaitForUnload:
		return car.storageEmpty()
	}
	return false
}

// requestGoTo raises a destination request. Idempotent: an existing
// pending destination or active waypoints win.
func (w *World) requestGoTo(car *Car, target Cell) {
	if car.Pos == target || car.Destination != nil || car.Waypoints != nil {
		return
	}
	t := target
	car.Destination = &t
}

// requestLoad moves one transfer unit from the consolidator of the node at
// the car's current tile into the car. Returns true on a completed
// transfer.
func (w *World) requestLoad(car *Car, resource string, nowTick uint64) bool {
	c := w.consolidatorAt(car, nowTick)
	if c == nil {
		return false
	}
	if car.Storage.Amount > amountEpsilon && car.Storage.Resource != resource {
		return false
	}
	unit := w.tune.CarTransfer
	if car.Storage.free() < unit {
		return false
	}
	if !w.FetchFromStorage(c, resource, unit) {
		return false
	}
	car.Storage.Resource = resource
	car.Storage.Amount += unit
	return true
}

// requestUnload is the symmetric push from car storage into the node
// consolidator at the car's tile.
func (w *World) requestUnload(car *Car, resource string, nowTick uint64) bool {
	c := w.consolidatorAt(car, nowTick)
	if c == nil {
		return false
	}
	if car.Storage.Resource != resource || car.storageEmpty() {
		return false
	}
	unit := w.tune.CarTransfer
	if car.Storage.Amount < unit {
		unit = car.Storage.Amount
	}
	if !w.HasSpaceInStorage(c, resource, unit) {
		return false
	}
	w.DistributeToStorage(nowTick, carActor(car.ID), c, resource, unit)
	car.Storage.Amount -= unit
	if car.storageEmpty() {
		car.Storage.Amount = 0
		car.Storage.Resource = ""
	}
	return true
}

// consolidatorAt resolves the consolidator exposed by the node at the
// car's current tile. A load/unload issued somewhere without one is a
// contract violation upstream (bad program or drifted car) and is logged,
// not fatal.
func (w *World) consolidatorAt(car *Car, nowTick uint64) *Consolidator {
	tile := car.Pos.tile()
	id, ok := w.grid.buildingAt(tile)
	if !ok {
		w.auditEvent(nowTick, carActor(car.ID), "TRANSFER_NOWHERE", protocol.ErrInvalidTarget, map[string]any{
			"tile": [2]int{tile.X, tile.Y},
		})
		return nil
	}
	n := w.node(id)
	if n == nil {
		w.auditEvent(nowTick, carActor(car.ID), "TRANSFER_NOWHERE", protocol.ErrDanglingRef, map[string]any{
			"node_id": int(id),
		})
		return nil
	}
	return &n.Consolidator
}

// stepDepotCar applies the depot policy: load at pickup cells until full,
// unload at delivery cells until empty, otherwise head to a uniformly
// random cell of the appropriate set.
func (w *World) stepDepotCar(car *Car, nowTick uint64) {
	depot := w.node(car.DepotID)
	if depot == nil || depot.Depot == nil {
		// Fatal-for-this-vehicle configuration error: log and stall.
		w.auditEvent(nowTick, carActor(car.ID), "DEPOT_MISSING", protocol.ErrDanglingRef, map[string]any{
			"depot_id": int(car.DepotID),
		})
		return
	}
	d := depot.Depot

	if containsCell(d.Pickups, car.Pos) && !car.storageFull() {
		w.requestLoad(car, w.depotLoadResource(car), nowTick)
		return
	}
	if containsCell(d.Deliveries, car.Pos) && !car.storageEmpty() {
		w.requestUnload(car, car.Storage.Resource, nowTick)
		return
	}
	if car.storageEmpty() {
		if len(d.Pickups) == 0 {
			w.auditEvent(nowTick, carActor(car.ID), "DEPOT_NO_TARGET", protocol.ErrInvalidTarget, nil)
			return
		}
		w.requestGoTo(car, d.Pickups[w.rng.Intn(len(d.Pickups))])
		return
	}
	if len(d.Deliveries) == 0 {
		w.auditEvent(nowTick, carActor(car.ID), "DEPOT_NO_TARGET", protocol.ErrInvalidTarget, nil)
		return
	}
	w.requestGoTo(car, d.Deliveries[w.rng.Intn(len(d.Deliveries))])
}

// depotLoadResource picks what a depot car should load at a pickup stop:
// its current cargo if any, otherwise the first resource (in stable order)
// the local consolidator can supply one unit of.
func (w *World) depotLoadResource(car *Car) string {
	if car.Storage.Amount > amountEpsilon {
		return car.Storage.Resource
	}
	tile := car.Pos.tile()
	id, ok := w.grid.buildingAt(tile)
	if !ok {
		return ""
	}
	n := w.node(id)
	if n == nil {
		return ""
	}
	seen := map[string]bool{}
	var best string
	for _, sid := range n.Consolidator.Members {
		s := w.storage(sid)
		if s == nil || s.Amount < w.tune.CarTransfer || seen[s.Resource] {
			continue
		}
		seen[s.Resource] = true
		if best == "" || s.Resource < best {
			best = s.Resource
		}
	}
	return best
}

func containsCell(cells []Cell, c Cell) bool {
	for _, x := range cells {
		if x == c {
			return true
		}
	}
	return false
}
