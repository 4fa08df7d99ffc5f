package world

import (
	"container/heap"

	"freightgrid.dev/internal/sim/tuning"
)

// planner is the shared path cache for one map: a per-vehicle-cell cost
// field derived from tile flags and building occupancy. Costs are patched
// incrementally as tiles change; when too many tiles change in one tick
// the whole field is discarded and rebuilt lazily on the next request.
//
// Occupied building cells are near-impassable rather than infinite so
// paths tolerate transient occupancy instead of failing outright.
type planner struct {
	grid *Grid
	tune tuning.Tuning

	w, h  int // vehicle grid dims
	costs []float64
	valid bool

	dirtyThisTick int
}

func newPlanner(g *Grid, tune tuning.Tuning) *planner {
	return &planner{
		grid: g,
		tune: tune,
		w:    g.W * 2,
		h:    g.H * 2,
	}
}

func (p *planner) index(v Cell) int { return v.Y*p.w + v.X }

func (p *planner) cellCost(v Cell) float64 {
	t := v.tile()
	if !p.grid.inBounds(t) {
		return p.tune.CostBlocked
	}
	if _, occupied := p.grid.buildingAt(t); occupied {
		return p.tune.CostOccupied
	}
	switch p.grid.flag(t) {
	case tileStreet:
		return p.tune.CostStreet
	case tileBlocked:
		return p.tune.CostBlocked
	default:
		return p.tune.CostTerrain
	}
}

func (p *planner) rebuild() {
	p.costs = make([]float64, p.w*p.h)
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			v := Cell{X: x, Y: y}
			p.costs[p.index(v)] = p.cellCost(v)
		}
	}
	p.valid = true
}

// noteTileChanged patches the four vehicle cells covering a changed tile
// into the cache, or invalidates the cache wholesale once the per-tick
// change budget is exceeded.
func (p *planner) noteTileChanged(t Cell) {
	p.dirtyThisTick++
	if p.dirtyThisTick > p.tune.RebuildThreshold {
		p.valid = false
		return
	}
	if !p.valid {
		return
	}
	base := tileToVehicle(t)
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			v := Cell{X: base.X + dx, Y: base.Y + dy}
			if p.grid.vehicleInBounds(v) {
				p.costs[p.index(v)] = p.cellCost(v)
			}
		}
	}
}

func (p *planner) resetTickBudget() { p.dirtyThisTick = 0 }

type pathNode struct {
	cell   Cell
	g      float64
	f      float64
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int            { return len(pq) }
func (pq pathQueue) Less(i, j int) bool  { return pq[i].f < pq[j].f }
func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func (p *planner) heuristic(a, b Cell) float64 {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return float64(dx+dy) * p.tune.CostStreet
}

// findPath computes a cheapest 4-connected path on the vehicle grid from
// start (exclusive) to goal (inclusive). Returns false when no route
// exists within the map.
func (p *planner) findPath(start, goal Cell) ([]Cell, bool) {
	if !p.grid.vehicleInBounds(start) || !p.grid.vehicleInBounds(goal) {
		return nil, false
	}
	if start == goal {
		return nil, false
	}
	if !p.valid {
		p.rebuild()
	}

	open := &pathQueue{}
	heap.Init(open)
	heap.Push(open, &pathNode{cell: start, g: 0, f: p.heuristic(start, goal)})
	gScore := map[int]float64{p.index(start): 0}
	closed := map[int]struct{}{}

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		currIdx := p.index(current.cell)
		if _, seen := closed[currIdx]; seen {
			continue
		}
		closed[currIdx] = struct{}{}
		if current.cell == goal {
			return reconstructPath(current), true
		}

		for _, d := range cardinalDirs {
			if !laneLegal(d, current.cell) {
				continue
			}
			nc := current.cell.step(d)
			if !p.grid.vehicleInBounds(nc) {
				continue
			}
			idx := p.index(nc)
			if _, seen := closed[idx]; seen {
				continue
			}
			tentativeG := current.g + p.costs[idx]
			if prev, ok := gScore[idx]; ok && tentativeG >= prev {
				continue
			}
			gScore[idx] = tentativeG
			heap.Push(open, &pathNode{
				cell:   nc,
				g:      tentativeG,
				f:      tentativeG + p.heuristic(nc, goal),
				parent: current,
			})
		}
	}
	return nil, false
}

// reconstructPath unwinds the parent chain, dropping the start cell.
func reconstructPath(end *pathNode) []Cell {
	var rev []Cell
	for node := end; node.parent != nil; node = node.parent {
		rev = append(rev, node.cell)
	}
	path := make([]Cell, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i])
	}
	return path
}
