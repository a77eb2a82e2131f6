package definition

// Chain is a loaded inheritance chain, ordered from the most-derived definition to the root
type Chain struct {
	definitions []*Definition
	byName      map[string]*Definition
}

func newChain() *Chain {
	return &Chain{byName: map[string]*Definition{}}
}

// NewChain builds a chain from already-parsed definitions, most-derived first, and prepares its root
func NewChain(definitions ...*Definition) *Chain {
	c := newChain()
	for _, d := range definitions {
		c.append(d)
	}
	c.prepareRoot()
	return c
}

func (c *Chain) append(d *Definition) {
	c.definitions = append(c.definitions, d)
	c.byName[d.Name] = d
}

// prepareRoot replaces the root's nested setting tree with its flattened overrides.
// Only the root enumerates every setting along with its type.
func (c *Chain) prepareRoot() {
	root, ok := c.Root()
	if !ok {
		return
	}

	if root.Settings != nil {
		root.Overrides = Flatten(root.Settings)
	} else {
		root.Overrides = nil
	}
	root.Settings = nil
}

// Leaf returns the most-derived definition, or nil for an empty chain
func (c *Chain) Leaf() *Definition {
	if len(c.definitions) == 0 {
		return nil
	}
	return c.definitions[0]
}

// Root returns the definition that inherits from nothing. A chain cut short by a missing file has none.
func (c *Chain) Root() (*Definition, bool) {
	if len(c.definitions) == 0 {
		return nil, false
	}
	last := c.definitions[len(c.definitions)-1]
	if !last.IsRoot() {
		return nil, false
	}
	return last, true
}

func (c *Chain) Get(name string) (*Definition, bool) {
	d, ok := c.byName[name]
	return d, ok
}

func (c *Chain) Definitions() []*Definition {
	return append([]*Definition{}, c.definitions...)
}

func (c *Chain) Len() int {
	return len(c.definitions)
}

// Names lists definition names from most-derived to root
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.definitions))
	for _, d := range c.definitions {
		names = append(names, d.Name)
	}
	return names
}
