package topology

// Catalog holds the loaded networks in declaration order.
// It is immutable once built; hot-reload creates a new Catalog and swaps atomically.
type Catalog struct {
	byID    map[string]*Network
	ordered []*Network
}

// NewCatalog allocates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[string]*Network)}
}

// Add registers a network. A later network with the same id replaces the earlier one.
func (c *Catalog) Add(n *Network) {
	if _, ok := c.byID[n.ID]; ok {
		for i, existing := range c.ordered {
			if existing.ID == n.ID {
				c.ordered[i] = n
			}
		}
	} else {
		c.ordered = append(c.ordered, n)
	}
	c.byID[n.ID] = n
}

// Network returns a network by id (nil if not found).
func (c *Catalog) Network(id string) *Network {
	return c.byID[id]
}

// Networks returns all networks in declaration order.
func (c *Catalog) Networks() []*Network {
	return c.ordered
}

// Len returns the number of networks.
func (c *Catalog) Len() int {
	return len(c.ordered)
}
