package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	// Logistics.
	MaxStorageTransfer float64 `yaml:"max_storage_transfer"` // rebalancer per-tick cap
	MaxTradeAmount     float64 `yaml:"max_trade_amount"`     // import/export per-tick cap
	CarTransfer        float64 `yaml:"car_transfer"`         // load/unload granularity
	CarCapacity        float64 `yaml:"car_capacity"`

	ImportSurchargePct int `yaml:"import_surcharge_pct"` // e.g. 120 = pay 1.2x unit cost

	// Pathfinding.
	CostStreet        float64 `yaml:"cost_street"`
	CostTerrain       float64 `yaml:"cost_terrain"`
	CostOccupied      float64 `yaml:"cost_occupied"`
	CostBlocked       float64 `yaml:"cost_blocked"`
	RebuildThreshold  int     `yaml:"rebuild_threshold"`   // dirty cells per tick before full cache rebuild
	BlockedTicksLimit int64   `yaml:"blocked_ticks_limit"` // deadlock suspicion baseline
	BlockedJitter     int64   `yaml:"blocked_jitter"`      // randomized window above the baseline
}

func Defaults() Tuning {
	var t Tuning
	t.applyDefaults()
	return t
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	return t, nil
}

func (t *Tuning) applyDefaults() {
	if t.TickRateHz <= 0 {
		t.TickRateHz = 5
	}
	if t.MaxStorageTransfer <= 0 {
		t.MaxStorageTransfer = 10
	}
	if t.MaxTradeAmount <= 0 {
		t.MaxTradeAmount = 4
	}
	if t.CarTransfer <= 0 {
		t.CarTransfer = 1
	}
	if t.CarCapacity <= 0 {
		t.CarCapacity = 4
	}
	if t.ImportSurchargePct <= 0 {
		t.ImportSurchargePct = 120
	}
	if t.CostStreet <= 0 {
		t.CostStreet = 1
	}
	if t.CostTerrain <= 0 {
		t.CostTerrain = 8
	}
	if t.CostOccupied <= 0 {
		t.CostOccupied = 200
	}
	if t.CostBlocked <= 0 {
		t.CostBlocked = 10000
	}
	if t.RebuildThreshold <= 0 {
		t.RebuildThreshold = 64
	}
	if t.BlockedTicksLimit <= 0 {
		t.BlockedTicksLimit = 6
	}
	if t.BlockedJitter <= 0 {
		t.BlockedJitter = 4
	}
}
