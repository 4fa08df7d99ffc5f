package world

import "freightgrid.dev/internal/protocol"

// systemPathfinding resolves pending destination requests into waypoints
// using the shared planner. A request with no route is dropped; the
// issuing instruction is still pending and will re-raise it.
func (w *World) systemPathfinding(nowTick uint64) {
	for _, id := range w.sortedCarIDs() {
		car := w.cars[id]
		if car.Destination == nil || car.Waypoints != nil {
			continue
		}
		target := *car.Destination
		path, ok := w.planner.findPath(car.Pos, target)
		car.Destination = nil
		if !ok {
			w.auditEvent(nowTick, carActor(car.ID), "PATH_FAIL", protocol.ErrNoPath, map[string]any{
				"target": [2]int{target.X, target.Y},
			})
			continue
		}
		car.Waypoints = &Waypoints{Path: path}
	}
	w.planner.resetTickBudget()
}

// systemMotion advances every car with waypoints by at most one vehicle
// cell, against a per-tick occupancy snapshot that is updated as cars
// move so later cars see earlier moves. Blocked cars accumulate
// blocked_ticks; past a randomized threshold they reroute one cell away
// from the blockage rather than waiting forever.
func (w *World) systemMotion(nowTick uint64) {
	occupied := make(map[Cell]CarID, len(w.cars))
	for id, car := range w.cars {
		occupied[car.Pos] = id
	}

	for _, id := range w.sortedCarIDs() {
		car := w.cars[id]
		wp := car.Waypoints
		if wp == nil {
			continue
		}
		if len(wp.Path) == 0 {
			car.Waypoints = nil
			continue
		}

		next := wp.Path[0]
		if next == car.Pos {
			wp.Path = wp.Path[1:]
			if len(wp.Path) == 0 {
				car.Waypoints = nil
			}
			continue
		}

		dir := directionToward(car.Pos, next)
		cand := w.grid.clampVehicle(car.Pos.step(dir))

		if other, taken := occupied[cand]; (taken && other != car.ID) || cand == car.Pos {
			wp.BlockedTicks++
			w.maybeEscapeDeadlock(car, dir, nowTick)
			continue
		}

		delete(occupied, car.Pos)
		occupied[cand] = car.ID
		car.Pos = cand
		car.Dir = dir
		wp.BlockedTicks = 0

		if cand == next {
			wp.Path = wp.Path[1:]
			if len(wp.Path) == 0 {
				car.Waypoints = nil
			}
		}
	}
}

// directionToward picks the cardinal step toward the target, preferring
// the axis with the larger remaining distance.
func directionToward(from, to Cell) Direction {
	dx := to.X - from.X
	dy := to.Y - from.Y
	absX, absY := dx, dy
	if absX < 0 {
		absX = -absX
	}
	if absY < 0 {
		absY = -absY
	}
	if absX >= absY && dx != 0 {
		if dx > 0 {
			return DirEast
		}
		return DirWest
	}
	if dy > 0 {
		return DirSouth
	}
	if dy < 0 {
		return DirNorth
	}
	return DirNone
}

// laneLegal is the lane-parity discipline of the doubled vehicle grid:
// northbound traffic runs on odd columns, southbound on even columns,
// eastbound on even rows, westbound on odd rows. The planner only expands
// lane-legal steps, so opposite-direction flows occupy separate parallel
// lanes and planned paths never require a car to drive against one.
// Deadlock escapes are exempt; an emergency sidestep may cut across.
func laneLegal(d Direction, from Cell) bool {
	switch d {
	case DirNorth:
		return from.X%2 == 1
	case DirSouth:
		return from.X%2 == 0
	case DirEast:
		return from.Y%2 == 0
	case DirWest:
		return from.Y%2 == 1
	}
	return false
}

// maybeEscapeDeadlock forces an ad-hoc one-cell detour once a car has been
// blocked for the baseline threshold plus a random jitter. The jitter
// keeps herds of mutually blocked cars from all un-deadlocking in
// lock-step; the detour aims roughly away from the blockage, occasionally
// with a random offset, clamped to the map. Heuristic, not a guaranteed
// resolution.
func (w *World) maybeEscapeDeadlock(car *Car, blockedDir Direction, nowTick uint64) {
	limit := w.tune.BlockedTicksLimit + w.rng.Int63n(w.tune.BlockedJitter)
	if car.Waypoints.BlockedTicks < limit {
		return
	}

	esc := car.Pos.step(blockedDir.opposite())
	if w.rng.Intn(4) == 0 {
		esc.X += w.rng.Intn(3) - 1
		esc.Y += w.rng.Intn(3) - 1
	}
	esc = w.grid.clampVehicle(esc)
	if esc == car.Pos {
		// Cornered; try again next tick with fresh jitter.
		return
	}
	w.auditEvent(nowTick, carActor(car.ID), "DEADLOCK_ESCAPE", "", map[string]any{
		"blocked_ticks": car.Waypoints.BlockedTicks,
		"to":            [2]int{esc.X, esc.Y},
	})
	car.Waypoints = &Waypoints{Path: []Cell{esc}}
}
