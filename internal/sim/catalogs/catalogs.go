package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Catalogs holds the declarative resource/building specifications loaded at
// startup. The sim treats them as read-only; a reference to an id that is
// not in the catalog is a data-integrity error caught at load time.
type Catalogs struct {
	Resources ResourceCatalog
	Buildings BuildingCatalog
}

type ResourceCatalog struct {
	Defs    map[string]ResourceDef
	Palette []string // sorted ids
	Digest  string
}

type ResourceDef struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	UnitCost int64  `yaml:"unit_cost" json:"unit_cost"`
	CarTile  string `yaml:"car_tile,omitempty" json:"car_tile,omitempty"`
}

type BuildingCatalog struct {
	Defs    map[string]BuildingDef
	Palette []string
	Digest  string
}

type BuildingDef struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// Kind: "production", "export", "import", "storage", "depot".
	Kind string `yaml:"kind" json:"kind"`
	Cost int64  `yaml:"cost" json:"cost"`

	Products []ProductDef `yaml:"products,omitempty" json:"products,omitempty"`
	Trade    []string     `yaml:"trade,omitempty" json:"trade,omitempty"` // resource ids, in priority order
	Capacity float64      `yaml:"capacity,omitempty" json:"capacity,omitempty"`
}

type ProductDef struct {
	Output     string        `yaml:"output" json:"output"`
	Rate       float64       `yaml:"rate" json:"rate"`
	Requisites []ResourceAmt `yaml:"requisites,omitempty" json:"requisites,omitempty"`
	Byproducts []ResourceAmt `yaml:"byproducts,omitempty" json:"byproducts,omitempty"`
	Enhancers  []EnhancerDef `yaml:"enhancers,omitempty" json:"enhancers,omitempty"`
}

type ResourceAmt struct {
	Resource string  `yaml:"resource" json:"resource"`
	Rate     float64 `yaml:"rate" json:"rate"`
}

type EnhancerDef struct {
	Resource string  `yaml:"resource" json:"resource"`
	Rate     float64 `yaml:"rate" json:"rate"`
	Modifier float64 `yaml:"modifier" json:"modifier"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadResources(filepath.Join(configDir, "resources.yaml"), &c.Resources); err != nil {
		return nil, err
	}
	if err := loadBuildings(filepath.Join(configDir, "buildings.yaml"), &c.Buildings); err != nil {
		return nil, err
	}
	if err := c.validateRefs(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Resource looks up a resource definition; missing ids are an upstream
// data-integrity error.
func (c *Catalogs) Resource(id string) (ResourceDef, error) {
	d, ok := c.Resources.Defs[id]
	if !ok {
		return ResourceDef{}, fmt.Errorf("unknown resource %q", id)
	}
	return d, nil
}

func (c *Catalogs) Building(id string) (BuildingDef, error) {
	d, ok := c.Buildings.Defs[id]
	if !ok {
		return BuildingDef{}, fmt.Errorf("unknown building %q", id)
	}
	return d, nil
}

// MustResource is for sim-internal paths where the id was validated at
// load time; a miss there is a programming error.
func (c *Catalogs) MustResource(id string) ResourceDef {
	d, err := c.Resource(id)
	if err != nil {
		panic(err)
	}
	return d
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadResources(path string, out *ResourceCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var defs []ResourceDef
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("resources.yaml: %w", err)
	}
	out.Defs = map[string]ResourceDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("resources.yaml: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("resources.yaml: duplicate id %q", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	palJSON, _ := json.Marshal(ids)
	out.Digest = sha256Hex(palJSON)
	return nil
}

func loadBuildings(path string, out *BuildingCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var defs []BuildingDef
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("buildings.yaml: %w", err)
	}
	out.Defs = map[string]BuildingDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("buildings.yaml: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("buildings.yaml: duplicate id %q", d.ID)
		}
		switch d.Kind {
		case "production", "export", "import", "storage", "depot":
		default:
			return fmt.Errorf("buildings.yaml: %q: unknown kind %q", d.ID, d.Kind)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	palJSON, _ := json.Marshal(ids)
	out.Digest = sha256Hex(palJSON)
	return nil
}

// validateRefs rejects building specs that reference unknown resources, so
// the sim never has to handle a missing catalog key mid-tick.
func (c *Catalogs) validateRefs() error {
	for _, id := range c.Buildings.Palette {
		b := c.Buildings.Defs[id]
		for _, p := range b.Products {
			if p.Output == "" || p.Rate <= 0 {
				return fmt.Errorf("building %q: product needs output and rate>0", id)
			}
			if _, ok := c.Resources.Defs[p.Output]; !ok {
				return fmt.Errorf("building %q: unknown output %q", id, p.Output)
			}
			for _, r := range p.Requisites {
				if r.Rate <= 0 {
					return fmt.Errorf("building %q: requisite %q rate must be >0", id, r.Resource)
				}
				if _, ok := c.Resources.Defs[r.Resource]; !ok {
					return fmt.Errorf("building %q: unknown requisite %q", id, r.Resource)
				}
			}
			for _, r := range p.Byproducts {
				if r.Rate <= 0 {
					return fmt.Errorf("building %q: byproduct %q rate must be >0", id, r.Resource)
				}
				if _, ok := c.Resources.Defs[r.Resource]; !ok {
					return fmt.Errorf("building %q: unknown byproduct %q", id, r.Resource)
				}
			}
			for _, e := range p.Enhancers {
				if e.Rate <= 0 || e.Modifier <= 0 {
					return fmt.Errorf("building %q: enhancer %q needs rate>0 and modifier>0", id, e.Resource)
				}
				if _, ok := c.Resources.Defs[e.Resource]; !ok {
					return fmt.Errorf("building %q: unknown enhancer %q", id, e.Resource)
				}
			}
		}
		for _, r := range b.Trade {
			if _, ok := c.Resources.Defs[r]; !ok {
				return fmt.Errorf("building %q: unknown trade resource %q", id, r)
			}
		}
		if b.Kind == "storage" && b.Capacity <= 0 {
			return fmt.Errorf("building %q: storage needs capacity>0", id)
		}
	}
	return nil
}
