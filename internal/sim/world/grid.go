package world

// Cell is a grid coordinate. Tiles and the doubled vehicle grid share the
// type; vehicle cells are twice the tile resolution (tile (x,y) spans
// vehicle cells [2x,2x+1] x [2y,2y+1]).
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Cell) tile() Cell { return Cell{X: c.X >> 1, Y: c.Y >> 1} }

func tileToVehicle(t Cell) Cell { return Cell{X: t.X * 2, Y: t.Y * 2} }

type Direction uint8

const (
	DirNone Direction = iota
	DirNorth
	DirEast
	DirSouth
	DirWest
)

func (d Direction) String() string {
	switch d {
	case DirNorth:
		return "N"
	case DirEast:
		return "E"
	case DirSouth:
		return "S"
	case DirWest:
		return "W"
	}
	return "-"
}

func (d Direction) opposite() Direction {
	switch d {
	case DirNorth:
		return DirSouth
	case DirSouth:
		return DirNorth
	case DirEast:
		return DirWest
	case DirWest:
		return DirEast
	}
	return DirNone
}

func (c Cell) step(d Direction) Cell {
	switch d {
	case DirNorth:
		return Cell{X: c.X, Y: c.Y - 1}
	case DirSouth:
		return Cell{X: c.X, Y: c.Y + 1}
	case DirEast:
		return Cell{X: c.X + 1, Y: c.Y}
	case DirWest:
		return Cell{X: c.X - 1, Y: c.Y}
	}
	return c
}

var cardinalDirs = [...]Direction{DirNorth, DirEast, DirSouth, DirWest}

type tileFlag uint8

const (
	tilePlain tileFlag = iota
	tileStreet
	tileBlocked // permanently unbuildable/impassable terrain
)

// Grid owns tile flags and building occupancy. It is the map/topology
// service the rest of the sim queries; it does not own storages or nodes.
type Grid struct {
	W, H  int
	tiles []tileFlag

	buildings map[Cell]NodeID // occupied (vehicle-impassable) building tiles
}

func newGrid(w, h int) *Grid {
	return &Grid{
		W:         w,
		H:         h,
		tiles:     make([]tileFlag, w*h),
		buildings: map[Cell]NodeID{},
	}
}

func (g *Grid) inBounds(t Cell) bool {
	return t.X >= 0 && t.Y >= 0 && t.X < g.W && t.Y < g.H
}

func (g *Grid) flag(t Cell) tileFlag {
	if !g.inBounds(t) {
		return tileBlocked
	}
	return g.tiles[t.Y*g.W+t.X]
}

func (g *Grid) setFlag(t Cell, f tileFlag) {
	if !g.inBounds(t) {
		return
	}
	g.tiles[t.Y*g.W+t.X] = f
}

func (g *Grid) buildingAt(t Cell) (NodeID, bool) {
	id, ok := g.buildings[t]
	return id, ok
}

// vehicleInBounds checks a cell on the doubled vehicle grid.
func (g *Grid) vehicleInBounds(v Cell) bool {
	return v.X >= 0 && v.Y >= 0 && v.X < g.W*2 && v.Y < g.H*2
}

func (g *Grid) clampVehicle(v Cell) Cell {
	if v.X < 0 {
		v.X = 0
	}
	if v.Y < 0 {
		v.Y = 0
	}
	if v.X >= g.W*2 {
		v.X = g.W*2 - 1
	}
	if v.Y >= g.H*2 {
		v.Y = g.H*2 - 1
	}
	return v
}
