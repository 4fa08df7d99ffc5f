package world

import "fmt"

// Car is a grid-bound vehicle. Pos/Dir are in vehicle-grid units (twice
// the tile resolution); rendering reads them, the motion system writes
// them.
type Car struct {
	ID  CarID
	Pos Cell
	Dir Direction

	Storage Storage // cargo hold; Resource mutates as cargo changes

	Controller ControllerKind
	Program    *Program // ControllerUser
	DepotID    NodeID   // ControllerDepot

	// Destination and Waypoints never coexist: a destination request is
	// replaced by waypoints once the planner resolves it.
	Destination *Cell
	Waypoints   *Waypoints
}

type ControllerKind uint8

const (
	ControllerUser ControllerKind = iota
	ControllerDepot
)

// Program is a user-authored instruction list executed round-robin.
type Program struct {
	Instructions []Instruction
	Current      int
	Active       bool
}

type InstructionOp uint8

const (
	OpNop InstructionOp = iota
	OpGoTo
	OpLoad
	OpWaitForLoad
	OpUnload
	OpWaitForUnload
)

func (op InstructionOp) String() string {
	switch op {
	case OpNop:
		return "NOP"
	case OpGoTo:
		return "GOTO"
	case OpLoad:
		return "LOAD"
	case OpWaitForLoad:
		return "WAIT_FOR_LOAD"
	case OpUnload:
		return "UNLOAD"
	case OpWaitForUnload:
		return "WAIT_FOR_UNLOAD"
	}
	return "UNKNOWN"
}

type Instruction struct {
	Op       InstructionOp
	Target   Cell   // GoTo, vehicle-grid units
	Resource string // Load/Unload variants
}

// Waypoints is the resolved step-by-step path a car is following, consumed
// one cell per tick by the motion system.
type Waypoints struct {
	Path         []Cell
	BlockedTicks int64
}

// DepotState is policy data only: pickup and delivery cells (vehicle-grid
// units) consulted each tick by depot-controlled cars.
type DepotState struct {
	Pickups    []Cell
	Deliveries []Cell
}

func carActor(id CarID) string { return fmt.Sprintf("CAR:%d", id) }

func (c *Car) storageFull() bool  { return c.Storage.free() <= amountEpsilon }
func (c *Car) storageEmpty() bool { return c.Storage.Amount <= amountEpsilon }

// SetProgram replaces a user-controlled car's instruction list.
func (w *World) SetProgram(id CarID, instructions []Instruction, active bool) bool {
	car := w.cars[id]
	if car == nil || car.Controller != ControllerUser {
		return false
	}
	car.Program = &Program{Instructions: instructions, Active: active}
	car.Destination = nil
	car.Waypoints = nil
	return true
}
