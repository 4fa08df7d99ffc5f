package world

import "testing"

func TestRebalanceConverges(t *testing.T) {
	w := testWorld(t, 11)
	_, a := mustPlaceStorage(t, w, "store", Cell{X: 2, Y: 2}, "coal", 100)
	_, b := mustPlaceStorage(t, w, "store", Cell{X: 3, Y: 2}, "coal", 0)
	w.systemConsolidate(0)

	for tick := uint64(0); tick < 10; tick++ {
		w.systemRebalance(tick)
	}

	sa, sb := w.storage(a), w.storage(b)
	if !almostEqual(sa.Amount+sb.Amount, 100) {
		t.Fatalf("total = %v, want 100 conserved", sa.Amount+sb.Amount)
	}
	if !almostEqual(sa.Amount, 50) || !almostEqual(sb.Amount, 50) {
		t.Fatalf("amounts = %v/%v, want 50/50", sa.Amount, sb.Amount)
	}
}

func TestRebalancePerTickCap(t *testing.T) {
	w := testWorld(t, 11)
	nid, a := mustPlaceStorage(t, w, "store", Cell{X: 2, Y: 2}, "coal", 100)
	_, b := mustPlaceStorage(t, w, "store", Cell{X: 3, Y: 2}, "coal", 0)
	w.systemConsolidate(0)

	// Run a single node's pass: one transfer, capped at 10.
	w.stepRebalance(w.node(nid), 0)
	if got := w.storage(a).Amount; !almostEqual(got, 90) {
		t.Fatalf("from = %v, want 90", got)
	}
	if got := w.storage(b).Amount; !almostEqual(got, 10) {
		t.Fatalf("to = %v, want 10", got)
	}
}

func TestRebalanceIgnoresDifferentResources(t *testing.T) {
	w := testWorld(t, 11)
	_, a := mustPlaceStorage(t, w, "store", Cell{X: 2, Y: 2}, "coal", 100)
	_, b := mustPlaceStorage(t, w, "store", Cell{X: 3, Y: 2}, "widget", 0)
	w.systemConsolidate(0)

	w.systemRebalance(0)
	if !almostEqual(w.storage(a).Amount, 100) || !almostEqual(w.storage(b).Amount, 0) {
		t.Fatal("cross-resource rebalance happened")
	}
}

func TestRebalanceNearEqualIsStable(t *testing.T) {
	w := testWorld(t, 11)
	_, a := mustPlaceStorage(t, w, "store", Cell{X: 2, Y: 2}, "coal", 50)
	_, b := mustPlaceStorage(t, w, "store", Cell{X: 3, Y: 2}, "coal", 50)
	w.systemConsolidate(0)

	w.systemRebalance(0)
	if !almostEqual(w.storage(a).Amount, 50) || !almostEqual(w.storage(b).Amount, 50) {
		t.Fatal("equal storages moved goods")
	}
}

func TestRebalanceClampsToCapacity(t *testing.T) {
	w := testWorld(t, 11)
	// Big store next to a small bin of the same resource.
	mustPlaceStorage(t, w, "store", Cell{X: 2, Y: 2}, "coal", 100)
	_, b := mustPlaceStorage(t, w, "bin", Cell{X: 3, Y: 2}, "coal", 9)
	w.systemConsolidate(0)

	for tick := uint64(0); tick < 5; tick++ {
		w.systemRebalance(tick)
	}
	sb := w.storage(b)
	if sb.Amount > sb.Capacity+1e-9 {
		t.Fatalf("bin over capacity: %v > %v", sb.Amount, sb.Capacity)
	}
}
