package domain

// CelestialBody is read-only reference data supplied by the platform catalog.
type CelestialBody struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`

	// ValidityTime is how long, in hours, an observation of this body stays
	// current. Zero means the configured default window applies.
	ValidityTime int `json:"validityTime,omitempty"`
}

// Catalog is an immutable, id-indexed set of celestial bodies.
type Catalog struct {
	bodies []CelestialBody
	byID   map[int]int
}

// NewCatalog builds a catalog preserving the order bodies were received in.
// A repeated id keeps its first occurrence.
func NewCatalog(bodies []CelestialBody) *Catalog {
	c := &Catalog{
		bodies: make([]CelestialBody, 0, len(bodies)),
		byID:   make(map[int]int, len(bodies)),
	}
	for _, b := range bodies {
		if _, dup := c.byID[b.ID]; dup {
			continue
		}
		c.byID[b.ID] = len(c.bodies)
		c.bodies = append(c.bodies, b)
	}
	return c
}

// Lookup returns the body with the given id.
func (c *Catalog) Lookup(id int) (CelestialBody, bool) {
	if c == nil {
		return CelestialBody{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return CelestialBody{}, false
	}
	return c.bodies[i], true
}

// Contains reports whether id is part of the catalog.
func (c *Catalog) Contains(id int) bool {
	_, ok := c.Lookup(id)
	return ok
}

// Bodies returns a copy of the catalog contents.
func (c *Catalog) Bodies() []CelestialBody {
	if c == nil {
		return nil
	}
	out := make([]CelestialBody, len(c.bodies))
	copy(out, c.bodies)
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.bodies)
}

// PreviewImage resolves the image shown for the selected body, or fallback
// when nothing is selected or the catalog does not know the id.
func PreviewImage(c *Catalog, id int, fallback string) string {
	if b, ok := c.Lookup(id); ok && b.Image != "" {
		return b.Image
	}
	return fallback
}
