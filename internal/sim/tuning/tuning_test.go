package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.TickRateHz != 5 || d.MaxTradeAmount != 4 || d.CarCapacity != 4 {
		t.Fatalf("unexpected defaults %+v", d)
	}
}

func TestLoadOverridesAndBackfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("max_trade_amount: 8\ncost_street: 2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tune, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tune.MaxTradeAmount != 8 || tune.CostStreet != 2 {
		t.Fatalf("overrides not applied: %+v", tune)
	}
	if tune.TickRateHz != 5 || tune.CarTransfer != 1 {
		t.Fatalf("defaults not backfilled: %+v", tune)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}
