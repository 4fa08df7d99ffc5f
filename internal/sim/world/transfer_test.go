package world

import "testing"

func TestFetchAllOrNothing(t *testing.T) {
	w := testWorld(t, 1)
	nid, _ := mustPlaceStorage(t, w, "store", Cell{X: 2, Y: 2}, "coal", 3)
	mustPlaceStorage(t, w, "store", Cell{X: 3, Y: 2}, "coal", 4)
	w.systemConsolidate(0)

	c := &w.node(nid).Consolidator
	if len(c.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(c.Members))
	}

	// More than the combined stock: nothing moves.
	if w.FetchFromStorage(c, "coal", 8) {
		t.Fatal("fetch of 8 from 7 succeeded")
	}
	if got := w.totalInStorage(c, "coal"); !almostEqual(got, 7) {
		t.Fatalf("total after failed fetch = %v, want 7", got)
	}

	// Exactly the combined stock drains both.
	if !w.FetchFromStorage(c, "coal", 7) {
		t.Fatal("fetch of 7 from 7 failed")
	}
	if got := w.totalInStorage(c, "coal"); !almostEqual(got, 0) {
		t.Fatalf("total after fetch = %v, want 0", got)
	}
}

func TestFetchIgnoresOtherResources(t *testing.T) {
	w := testWorld(t, 1)
	nid, _ := mustPlaceStorage(t, w, "store", Cell{X: 2, Y: 2}, "coal", 5)
	mustPlaceStorage(t, w, "store", Cell{X: 3, Y: 2}, "widget", 5)
	w.systemConsolidate(0)

	c := &w.node(nid).Consolidator
	if w.HasInStorage(c, "coal", 6) {
		t.Fatal("widget stock counted toward coal")
	}
	if !w.FetchFromStorage(c, "coal", 5) {
		t.Fatal("fetch failed")
	}
	if got := w.totalInStorage(c, "widget"); !almostEqual(got, 5) {
		t.Fatalf("widget total = %v, want 5 untouched", got)
	}
}

func TestDistributeConservesAndDropsOverflow(t *testing.T) {
	w := testWorld(t, 1)
	nid, _ := mustPlaceStorage(t, w, "bin", Cell{X: 2, Y: 2}, "coal", 8)
	mustPlaceStorage(t, w, "bin", Cell{X: 3, Y: 2}, "coal", 9)
	w.systemConsolidate(0)

	c := &w.node(nid).Consolidator

	// 3 free in total; distributing 5 fills both and drops 2 with an
	// audit entry.
	w.DistributeToStorage(0, "TEST", c, "coal", 5)
	if got := w.totalInStorage(c, "coal"); !almostEqual(got, 20) {
		t.Fatalf("total = %v, want 20 (both bins full)", got)
	}
	if !hasAudit(w, "DISTRIBUTE_OVERFLOW") {
		t.Fatal("missing DISTRIBUTE_OVERFLOW audit entry")
	}
}

func TestNonPositiveAmountPanics(t *testing.T) {
	w := testWorld(t, 1)
	nid, _ := mustPlaceStorage(t, w, "store", Cell{X: 2, Y: 2}, "coal", 5)
	w.systemConsolidate(0)
	c := &w.node(nid).Consolidator

	defer func() {
		if recover() == nil {
			t.Fatal("fetch of 0 did not panic")
		}
	}()
	w.FetchFromStorage(c, "coal", 0)
}

func TestDanglingMemberIsNothingFound(t *testing.T) {
	w := testWorld(t, 1)
	nid, _ := mustPlaceStorage(t, w, "store", Cell{X: 2, Y: 2}, "coal", 5)
	other, _ := mustPlaceStorage(t, w, "store", Cell{X: 3, Y: 2}, "coal", 5)
	w.systemConsolidate(0)

	// Remove the neighbor without refreshing: the consolidator now holds a
	// dangling id, which reads as absent rather than exploding.
	w.RemoveNode(other)
	c := &w.node(nid).Consolidator
	if got := w.totalInStorage(c, "coal"); !almostEqual(got, 5) {
		t.Fatalf("total with dangling member = %v, want 5", got)
	}
	if w.HasInStorage(c, "coal", 6) {
		t.Fatal("dangling member counted as stock")
	}
}
