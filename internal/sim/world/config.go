package world

type WorldConfig struct {
	ID     string
	Width  int // map width in tiles
	Height int // map height in tiles
	Seed   int64

	TickRateHz int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.Width <= 0 {
		c.Width = 64
	}
	if c.Height <= 0 {
		c.Height = 64
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 5
	}
}
