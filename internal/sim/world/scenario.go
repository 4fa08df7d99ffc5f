package world

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a declarative world setup: terrain, buildings, stocked
// storages, depots with their routes, and vehicles. Coordinates are tile
// units; depot pickup/delivery cells are mapped onto the vehicle grid at
// apply time.
type Scenario struct {
	Name    string `yaml:"name"`
	Streets []Rect `yaml:"streets"`
	Blocked []Rect `yaml:"blocked"`

	Storages  []ScenarioStorage  `yaml:"storages"`
	Buildings []ScenarioBuilding `yaml:"buildings"`
	Depots    []ScenarioDepot    `yaml:"depots"`
	Cars      []ScenarioCar      `yaml:"cars"`
}

type Rect struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

type ScenarioStorage struct {
	Building string  `yaml:"building"`
	X        int     `yaml:"x"`
	Y        int     `yaml:"y"`
	Resource string  `yaml:"resource"`
	Amount   float64 `yaml:"amount"`
}

type ScenarioBuilding struct {
	Building string `yaml:"building"`
	X        int    `yaml:"x"`
	Y        int    `yaml:"y"`
}

type ScenarioDepot struct {
	Building   string   `yaml:"building"`
	X          int      `yaml:"x"`
	Y          int      `yaml:"y"`
	Pickups    [][2]int `yaml:"pickups"`
	Deliveries [][2]int `yaml:"deliveries"`
	Cars       int      `yaml:"cars"`
}

type ScenarioCar struct {
	X          int    `yaml:"x"`
	Y          int    `yaml:"y"`
	Controller string `yaml:"controller"` // "user" or "depot"
	Depot      int    `yaml:"depot"`      // index into Depots for controller=depot
}

func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return &sc, nil
}

// ApplyScenario populates an empty world. It is not transactional; a
// failure partway leaves the already applied entities in place, so
// callers treat any error as fatal at startup.
func (w *World) ApplyScenario(sc *Scenario) error {
	for _, r := range sc.Streets {
		for y := r.Y; y < r.Y+r.H; y++ {
			for x := r.X; x < r.X+r.W; x++ {
				if err := w.PlaceStreet(Cell{X: x, Y: y}); err != nil {
					return err
				}
			}
		}
	}
	for _, r := range sc.Blocked {
		for y := r.Y; y < r.Y+r.H; y++ {
			for x := r.X; x < r.X+r.W; x++ {
				if err := w.PlaceBlockedTile(Cell{X: x, Y: y}); err != nil {
					return err
				}
			}
		}
	}

	for _, s := range sc.Storages {
		if _, _, err := w.PlaceStorage(s.Building, Cell{X: s.X, Y: s.Y}, s.Resource, s.Amount); err != nil {
			return fmt.Errorf("storage at %d,%d: %w", s.X, s.Y, err)
		}
	}
	for _, b := range sc.Buildings {
		if _, err := w.PlaceBuilding(b.Building, Cell{X: b.X, Y: b.Y}); err != nil {
			return fmt.Errorf("building at %d,%d: %w", b.X, b.Y, err)
		}
	}

	depotIDs := make([]NodeID, 0, len(sc.Depots))
	for _, d := range sc.Depots {
		id, err := w.PlaceBuilding(d.Building, Cell{X: d.X, Y: d.Y})
		if err != nil {
			return fmt.Errorf("depot at %d,%d: %w", d.X, d.Y, err)
		}
		pickups := make([]Cell, 0, len(d.Pickups))
		for _, p := range d.Pickups {
			pickups = append(pickups, tileToVehicle(Cell{X: p[0], Y: p[1]}))
		}
		deliveries := make([]Cell, 0, len(d.Deliveries))
		for _, p := range d.Deliveries {
			deliveries = append(deliveries, tileToVehicle(Cell{X: p[0], Y: p[1]}))
		}
		if err := w.SetDepotTargets(id, pickups, deliveries); err != nil {
			return err
		}
		depotIDs = append(depotIDs, id)
		for i := 0; i < d.Cars; i++ {
			if _, err := w.SpawnCar(Cell{X: d.X, Y: d.Y}, ControllerDepot, id); err != nil {
				return err
			}
		}
	}

	for _, c := range sc.Cars {
		switch c.Controller {
		case "", "user":
			if _, err := w.SpawnCar(Cell{X: c.X, Y: c.Y}, ControllerUser, 0); err != nil {
				return err
			}
		case "depot":
			if c.Depot < 0 || c.Depot >= len(depotIDs) {
				return fmt.Errorf("car at %d,%d references depot %d, have %d", c.X, c.Y, c.Depot, len(depotIDs))
			}
			if _, err := w.SpawnCar(Cell{X: c.X, Y: c.Y}, ControllerDepot, depotIDs[c.Depot]); err != nil {
				return err
			}
		default:
			return fmt.Errorf("car at %d,%d: unknown controller %q", c.X, c.Y, c.Controller)
		}
	}
	return nil
}
