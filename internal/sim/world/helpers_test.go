package world

import (
	"testing"

	"freightgrid.dev/internal/sim/catalogs"
	"freightgrid.dev/internal/sim/tuning"
)

func testCatalogs() *catalogs.Catalogs {
	resources := []catalogs.ResourceDef{
		{ID: "coal", Name: "Coal", UnitCost: 10},
		{ID: "gadget", Name: "Gadget", UnitCost: 20},
		{ID: "limestone", Name: "Limestone", UnitCost: 5},
		{ID: "slag", Name: "Slag", UnitCost: 1},
		{ID: "widget", Name: "Widget", UnitCost: 20},
	}
	buildings := []catalogs.BuildingDef{
		{ID: "bin", Name: "Bin", Kind: "storage", Capacity: 10},
		{ID: "depot", Name: "Depot", Kind: "depot"},
		{ID: "duo", Name: "Duo Works", Kind: "production", Products: []catalogs.ProductDef{
			{Output: "widget", Rate: 1},
			{Output: "gadget", Rate: 1},
		}},
		{ID: "exporter", Name: "Export Station", Kind: "export", Trade: []string{"coal"}},
		{ID: "importer", Name: "Import Station", Kind: "import", Trade: []string{"coal"}},
		{ID: "mill", Name: "Mill", Kind: "production", Products: []catalogs.ProductDef{
			{
				Output:     "widget",
				Rate:       1,
				Requisites: []catalogs.ResourceAmt{{Resource: "coal", Rate: 2}},
				Byproducts: []catalogs.ResourceAmt{{Resource: "slag", Rate: 1}},
				Enhancers:  []catalogs.EnhancerDef{{Resource: "limestone", Rate: 1, Modifier: 2}},
			},
		}},
		{ID: "mine", Name: "Mine", Kind: "production", Products: []catalogs.ProductDef{
			{Output: "coal", Rate: 1},
		}},
		{ID: "store", Name: "Store", Kind: "storage", Capacity: 100},
	}

	cats := &catalogs.Catalogs{}
	cats.Resources.Defs = map[string]catalogs.ResourceDef{}
	for _, r := range resources {
		cats.Resources.Defs[r.ID] = r
		cats.Resources.Palette = append(cats.Resources.Palette, r.ID)
	}
	cats.Resources.Digest = "test"
	cats.Buildings.Defs = map[string]catalogs.BuildingDef{}
	for _, b := range buildings {
		cats.Buildings.Defs[b.ID] = b
		cats.Buildings.Palette = append(cats.Buildings.Palette, b.ID)
	}
	cats.Buildings.Digest = "test"
	return cats
}

func testWorld(t *testing.T, seed int64) *World {
	t.Helper()
	w, err := New(WorldConfig{Width: 16, Height: 16, Seed: seed}, tuning.Defaults(), testCatalogs())
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

func mustPlaceStorage(t *testing.T, w *World, building string, pos Cell, resource string, amount float64) (NodeID, StorageID) {
	t.Helper()
	nid, sid, err := w.PlaceStorage(building, pos, resource, amount)
	if err != nil {
		t.Fatalf("place storage %s at %v: %v", building, pos, err)
	}
	return nid, sid
}

func mustPlaceBuilding(t *testing.T, w *World, building string, pos Cell) NodeID {
	t.Helper()
	id, err := w.PlaceBuilding(building, pos)
	if err != nil {
		t.Fatalf("place %s at %v: %v", building, pos, err)
	}
	return id
}

func hasAudit(w *World, action string) bool {
	for _, e := range w.auditsThisTick {
		if e.Action == action {
			return true
		}
	}
	return false
}

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-6
}
