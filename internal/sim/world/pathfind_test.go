package world

import "testing"

func TestFindPathReachesGoal(t *testing.T) {
	w := testWorld(t, 17)
	start := tileToVehicle(Cell{X: 2, Y: 2})
	goal := tileToVehicle(Cell{X: 6, Y: 2})

	path, ok := w.planner.findPath(start, goal)
	if !ok {
		t.Fatal("no path on an open map")
	}
	if path[len(path)-1] != goal {
		t.Fatalf("path ends at %v, want %v", path[len(path)-1], goal)
	}
	// Steps are adjacent and lane-legal.
	prev := start
	for _, c := range path {
		d := directionToward(prev, c)
		if prev.step(d) != c {
			t.Fatalf("non-adjacent step %v -> %v", prev, c)
		}
		if !laneLegal(d, prev) {
			t.Fatalf("lane-illegal step %v -> %v", prev, c)
		}
		prev = c
	}
}

func TestFindPathPrefersStreets(t *testing.T) {
	w := testWorld(t, 17)
	// A street detour: terrain costs 8 per cell, street 1, so the planner
	// should route along the street row even when it is longer.
	for x := 0; x < 10; x++ {
		if err := w.PlaceStreet(Cell{X: x, Y: 4}); err != nil {
			t.Fatalf("street: %v", err)
		}
	}
	start := tileToVehicle(Cell{X: 1, Y: 4})
	goal := tileToVehicle(Cell{X: 8, Y: 4})

	path, ok := w.planner.findPath(start, goal)
	if !ok {
		t.Fatal("no path")
	}
	onStreet := 0
	for _, c := range path {
		if w.grid.flag(c.tile()) == tileStreet {
			onStreet++
		}
	}
	if onStreet < len(path)/2 {
		t.Fatalf("only %d of %d cells on street", onStreet, len(path))
	}
}

func TestFindPathSameCellAndOutOfBounds(t *testing.T) {
	w := testWorld(t, 17)
	c := tileToVehicle(Cell{X: 2, Y: 2})
	if _, ok := w.planner.findPath(c, c); ok {
		t.Fatal("path to self")
	}
	if _, ok := w.planner.findPath(c, Cell{X: -2, Y: 0}); ok {
		t.Fatal("path to out-of-bounds goal")
	}
}

func TestPlannerPatchesChangedTiles(t *testing.T) {
	w := testWorld(t, 17)
	w.planner.rebuild()

	target := Cell{X: 5, Y: 5}
	if err := w.PlaceBlockedTile(target); err != nil {
		t.Fatalf("block: %v", err)
	}
	base := tileToVehicle(target)
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			v := Cell{X: base.X + dx, Y: base.Y + dy}
			if got := w.planner.costs[w.planner.index(v)]; got != w.tune.CostBlocked {
				t.Fatalf("cost at %v = %v, want blocked", v, got)
			}
		}
	}
	if !w.planner.valid {
		t.Fatal("cache invalidated by a single patch")
	}
}

func TestPlannerRebuildsPastThreshold(t *testing.T) {
	w := testWorld(t, 17)
	w.planner.rebuild()

	for i := 0; i <= w.tune.RebuildThreshold; i++ {
		w.planner.noteTileChanged(Cell{X: i % 16, Y: i / 16})
	}
	if w.planner.valid {
		t.Fatal("cache still valid past the per-tick change budget")
	}

	// The next request rebuilds lazily.
	if _, ok := w.planner.findPath(tileToVehicle(Cell{X: 1, Y: 1}), tileToVehicle(Cell{X: 3, Y: 1})); !ok {
		t.Fatal("no path after rebuild")
	}
	if !w.planner.valid {
		t.Fatal("findPath did not rebuild the cache")
	}
}

func TestPathfindingSystemResolvesAndFails(t *testing.T) {
	w := testWorld(t, 17)
	car := spawnUserCar(t, w, Cell{X: 2, Y: 2})
	goal := tileToVehicle(Cell{X: 5, Y: 2})
	g := goal
	car.Destination = &g

	w.systemPathfinding(0)
	if car.Destination != nil {
		t.Fatal("destination not consumed")
	}
	if car.Waypoints == nil || car.Waypoints.Path[len(car.Waypoints.Path)-1] != goal {
		t.Fatal("waypoints missing or wrong goal")
	}

	// Unreachable request: dropped with an audit entry, no waypoints.
	car.Waypoints = nil
	bad := Cell{X: -4, Y: -4}
	car.Destination = &bad
	w.systemPathfinding(1)
	if car.Destination != nil || car.Waypoints != nil {
		t.Fatal("failed request left state behind")
	}
	if !hasAudit(w, "PATH_FAIL") {
		t.Fatal("missing PATH_FAIL audit")
	}
}
