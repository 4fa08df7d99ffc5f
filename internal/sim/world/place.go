package world

import (
	"fmt"

	"freightgrid.dev/internal/sim/catalogs"
)

// Placement API. The construction/UI layer calls these; each mutation
// raises the consolidator update signal on the affected neighborhood and
// patches the path planner's cache.

func (w *World) PlaceStreet(t Cell) error {
	if !w.grid.inBounds(t) {
		return fmt.Errorf("street out of bounds at %v", t)
	}
	if _, occupied := w.grid.buildingAt(t); occupied {
		return fmt.Errorf("tile %v occupied", t)
	}
	w.grid.setFlag(t, tileStreet)
	w.planner.noteTileChanged(t)
	return nil
}

func (w *World) PlaceBlockedTile(t Cell) error {
	if !w.grid.inBounds(t) {
		return fmt.Errorf("blocked tile out of bounds at %v", t)
	}
	w.grid.setFlag(t, tileBlocked)
	w.planner.noteTileChanged(t)
	return nil
}

// PlaceBuilding creates a node for a production/export/import/depot
// building spec. Storage buildings go through PlaceStorage, which also
// binds the stored resource.
func (w *World) PlaceBuilding(buildingID string, t Cell) (NodeID, error) {
	def, err := w.catalogs.Building(buildingID)
	if err != nil {
		return 0, err
	}
	if def.Kind == "storage" {
		return 0, fmt.Errorf("building %q is a storage; use PlaceStorage", buildingID)
	}
	if err := w.checkBuildSite(t); err != nil {
		return 0, err
	}

	n := w.newNode(def, t)
	switch def.Kind {
	case "production":
		slots := make([]ProductSlot, 0, len(def.Products))
		for _, p := range def.Products {
			slots = append(slots, ProductSlot{Def: p, Active: true})
		}
		n.Kind = KindProduction
		n.Production = &ProductionState{Products: slots}
	case "export":
		n.Kind = KindExport
		n.Trade = &TradeState{Resources: append([]string(nil), def.Trade...)}
	case "import":
		n.Kind = KindImport
		n.Trade = &TradeState{Resources: append([]string(nil), def.Trade...)}
	case "depot":
		n.Kind = KindDepot
		n.Depot = &DepotState{}
	default:
		return 0, fmt.Errorf("building %q: unplaceable kind %q", buildingID, def.Kind)
	}

	w.commitNode(n, t)
	return n.ID, nil
}

// PlaceStorage creates a storage node holding one resource.
func (w *World) PlaceStorage(buildingID string, t Cell, resource string, amount float64) (NodeID, StorageID, error) {
	def, err := w.catalogs.Building(buildingID)
	if err != nil {
		return 0, 0, err
	}
	if def.Kind != "storage" {
		return 0, 0, fmt.Errorf("building %q is not a storage", buildingID)
	}
	if _, err := w.catalogs.Resource(resource); err != nil {
		return 0, 0, err
	}
	if err := w.checkBuildSite(t); err != nil {
		return 0, 0, err
	}
	if amount < 0 || amount > def.Capacity {
		return 0, 0, fmt.Errorf("storage amount %v outside [0,%v]", amount, def.Capacity)
	}

	w.nextStorageNum++
	sid := StorageID(w.nextStorageNum)
	w.storages[sid] = &Storage{Resource: resource, Amount: amount, Capacity: def.Capacity}
	w.storageAt[t] = sid

	n := w.newNode(def, t)
	n.Kind = KindStorage
	n.Storage = sid
	w.commitNode(n, t)
	return n.ID, sid, nil
}

// SetDepotTargets replaces a depot's pickup/delivery cell sets (vehicle-
// grid units).
func (w *World) SetDepotTargets(id NodeID, pickups, deliveries []Cell) error {
	n := w.node(id)
	if n == nil || n.Depot == nil {
		return fmt.Errorf("node %d is not a depot", id)
	}
	n.Depot.Pickups = append([]Cell(nil), pickups...)
	n.Depot.Deliveries = append([]Cell(nil), deliveries...)
	return nil
}

// SetUnderConstruction is driven by the external construction system.
func (w *World) SetUnderConstruction(id NodeID, v bool) {
	if n := w.node(id); n != nil {
		n.UnderConstruction = v
	}
}

// RemoveNode tears down a node and its owned storage. Consolidators that
// still reference the storage see a dangling id until their next refresh;
// every access checks existence, so that is safe.
func (w *World) RemoveNode(id NodeID) {
	n := w.node(id)
	if n == nil {
		return
	}
	delete(w.nodes, id)
	delete(w.grid.buildings, n.Pos)
	delete(w.dirtyNodes, id)
	if n.Storage != 0 {
		delete(w.storages, n.Storage)
		delete(w.storageAt, n.Pos)
	}
	w.planner.noteTileChanged(n.Pos)
	w.markNeighborsDirty(n.Pos)
	w.auditEvent(w.tick.Load(), "WORLD", "NODE_REMOVED", "", map[string]any{
		"node_id":  int(id),
		"building": n.Building,
	})
}

// SpawnCar places a vehicle at a tile. Depot-controlled cars need the
// depot node id; user-controlled cars start with an empty inactive
// program (see SetProgram).
func (w *World) SpawnCar(t Cell, controller ControllerKind, depotID NodeID) (CarID, error) {
	if !w.grid.inBounds(t) {
		return 0, fmt.Errorf("car out of bounds at %v", t)
	}
	w.nextCarNum++
	id := CarID(w.nextCarNum)
	car := &Car{
		ID:         id,
		Pos:        tileToVehicle(t),
		Dir:        DirNone,
		Storage:    Storage{Capacity: w.tune.CarCapacity},
		Controller: controller,
		DepotID:    depotID,
	}
	if controller == ControllerUser {
		car.Program = &Program{}
	}
	w.cars[id] = car
	return id, nil
}

func (w *World) checkBuildSite(t Cell) error {
	if !w.grid.inBounds(t) {
		return fmt.Errorf("build site out of bounds at %v", t)
	}
	if w.grid.flag(t) == tileBlocked {
		return fmt.Errorf("tile %v is blocked", t)
	}
	if _, occupied := w.grid.buildingAt(t); occupied {
		return fmt.Errorf("tile %v occupied", t)
	}
	return nil
}

func (w *World) newNode(def catalogs.BuildingDef, t Cell) *Node {
	w.nextNodeNum++
	return &Node{
		ID:       NodeID(w.nextNodeNum),
		Building: def.ID,
		Pos:      t,
		Stats:    newStatistics(),
	}
}

func (w *World) commitNode(n *Node, t Cell) {
	w.nodes[n.ID] = n
	w.grid.buildings[t] = n.ID
	w.planner.noteTileChanged(t)
	w.markNeighborsDirty(t)
	w.dirtyNodes[n.ID] = true
}
