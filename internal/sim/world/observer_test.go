package world

import (
	"encoding/json"
	"testing"

	"freightgrid.dev/internal/protocol"
)

func TestBuildStateCarriesSimView(t *testing.T) {
	w := testWorld(t, 31)
	mill := mustPlaceBuilding(t, w, "mill", Cell{X: 2, Y: 2})
	mustPlaceStorage(t, w, "store", Cell{X: 1, Y: 2}, "coal", 0) // starved
	mustPlaceBuilding(t, w, "exporter", Cell{X: 5, Y: 2})
	mustPlaceStorage(t, w, "store", Cell{X: 4, Y: 2}, "coal", 20)
	id, err := w.SpawnCar(Cell{X: 6, Y: 6}, ControllerUser, 0)
	if err != nil {
		t.Fatalf("car: %v", err)
	}
	w.cars[id].Storage.Resource = "coal"
	w.cars[id].Storage.Amount = 2

	w.systemConsolidate(0)
	w.systemProduction(0)
	w.systemTrade(0)

	msg := w.buildState(0, "digest")
	if msg.Type != protocol.TypeState || msg.Digest != "digest" {
		t.Fatalf("bad header %+v", msg)
	}
	if len(msg.Vehicles) != 1 {
		t.Fatalf("vehicles = %d, want 1", len(msg.Vehicles))
	}
	v := msg.Vehicles[0]
	if v.Resource != "coal" || !almostEqual(v.Amount, 2) || v.Pos != [2]int{12, 12} {
		t.Fatalf("vehicle view %+v", v)
	}
	foundIdle := false
	for _, nid := range msg.IdleNodes {
		if nid == int(mill) {
			foundIdle = true
		}
	}
	if !foundIdle {
		t.Fatalf("starved mill not in idle list %v", msg.IdleNodes)
	}
	if len(msg.Transactions) != 1 || msg.Transactions[0].Amount != 40 {
		t.Fatalf("transactions %+v", msg.Transactions)
	}
}

func TestBroadcastDropsStaleFrameForSlowClient(t *testing.T) {
	w := testWorld(t, 31)
	out := make(chan []byte, 1)
	w.handleAttach(AttachRequest{ID: "slow", Out: out})

	w.broadcastState(0, "first")
	w.broadcastState(1, "second")

	var msg protocol.StateMsg
	if err := json.Unmarshal(<-out, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Digest != "second" {
		t.Fatalf("digest = %q, want the latest frame", msg.Digest)
	}
	select {
	case <-out:
		t.Fatal("stale frame still queued")
	default:
	}
}

func TestDetachStopsDelivery(t *testing.T) {
	w := testWorld(t, 31)
	out := make(chan []byte, 1)
	w.handleAttach(AttachRequest{ID: "c", Out: out})
	w.handleDetach("c")

	w.broadcastState(0, "x")
	select {
	case <-out:
		t.Fatal("detached client received a frame")
	default:
	}
}
