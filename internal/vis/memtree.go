package vis

// MemTree is a plain in-memory Tree. It backs the hosts' JSON output
// and the forwarder tests.
type MemTree struct {
	elements   []*MemElement
	connectors []*MemConnector
	root       *ElementHandle
}

// MemElement is one element of a MemTree.
type MemElement struct {
	tree *MemTree

	// Tag is the element's tag name.
	Tag string

	// Parent is the owning element, if attached.
	Parent *ElementHandle

	// Attributes is the element's attribute bag.
	Attributes map[string]string
}

// MemConnector is one connector of a MemTree.
type MemConnector struct {
	// Attributes is the connector's own attribute bag.
	Attributes map[string]string

	// StartPin and EndPin are the connector's endpoints.
	StartPin MemPin
	EndPin   MemPin
}

// MemPin is one endpoint of a MemConnector.
type MemPin struct {
	// Target is the element the pin is attached to, if any.
	Target *ElementHandle

	// Attributes is the pin's attribute bag.
	Attributes map[string]string
}

// NewMemTree constructs an empty tree.
func NewMemTree() *MemTree {
	return &MemTree{}
}

// AddElement creates a new element with a tag name.
func (t *MemTree) AddElement(tagName string) ElementHandle {
	t.elements = append(t.elements, &MemElement{
		tree:       t,
		Tag:        tagName,
		Attributes: make(map[string]string),
	})
	return ElementHandle(len(t.elements) - 1)
}

// AddConnector creates a new connector.
func (t *MemTree) AddConnector() ConnectorHandle {
	t.connectors = append(t.connectors, &MemConnector{
		Attributes: make(map[string]string),
		StartPin:   MemPin{Attributes: make(map[string]string)},
		EndPin:     MemPin{Attributes: make(map[string]string)},
	})
	return ConnectorHandle(len(t.connectors) - 1)
}

// Element finds an element by its handle.
func (t *MemTree) Element(handle ElementHandle) (Element, error) {
	if int(handle) < 0 || int(handle) >= len(t.elements) {
		return nil, ErrInvalidHandle
	}
	return t.elements[handle], nil
}

// Connector finds a connector by its handle.
func (t *MemTree) Connector(handle ConnectorHandle) (Connector, error) {
	if int(handle) < 0 || int(handle) >= len(t.connectors) {
		return nil, ErrInvalidHandle
	}
	return t.connectors[handle], nil
}

// SetRoot designates the root element.
func (t *MemTree) SetRoot(handle *ElementHandle) error {
	if handle != nil && (int(*handle) < 0 || int(*handle) >= len(t.elements)) {
		return ErrInvalidHandle
	}
	t.root = handle
	return nil
}

// Root returns the designated root element, if any.
func (t *MemTree) Root() *ElementHandle {
	return t.root
}

// Elements exposes the element storage for inspection.
func (t *MemTree) Elements() []*MemElement {
	return t.elements
}

// Connectors exposes the connector storage for inspection.
func (t *MemTree) Connectors() []*MemConnector {
	return t.connectors
}

func (e *MemElement) Attribute(name string) (string, bool) {
	value, ok := e.Attributes[name]
	return value, ok
}

func (e *MemElement) SetAttribute(name string, value *string) {
	if value == nil {
		delete(e.Attributes, name)
		return
	}
	e.Attributes[name] = *value
}

// InsertInto reparents the element, refusing assignments that would
// make it its own ancestor.
func (e *MemElement) InsertInto(parent *ElementHandle) error {
	if parent == nil {
		e.Parent = nil
		return nil
	}
	if int(*parent) < 0 || int(*parent) >= len(e.tree.elements) {
		return ErrInvalidHandle
	}
	// Walk up from the prospective parent looking for self
	self := e.handle()
	for ancestor := parent; ancestor != nil; {
		if *ancestor == self {
			return ErrCycle
		}
		ancestor = e.tree.elements[*ancestor].Parent
	}
	target := *parent
	e.Parent = &target
	return nil
}

func (e *MemElement) handle() ElementHandle {
	for i, candidate := range e.tree.elements {
		if candidate == e {
			return ElementHandle(i)
		}
	}
	return -1
}

func (c *MemConnector) Attribute(name string) (string, bool) {
	value, ok := c.Attributes[name]
	return value, ok
}

func (c *MemConnector) SetAttribute(name string, value *string) {
	if value == nil {
		delete(c.Attributes, name)
		return
	}
	c.Attributes[name] = *value
}

func (c *MemConnector) Start() Pin {
	return &c.StartPin
}

func (c *MemConnector) End() Pin {
	return &c.EndPin
}

func (p *MemPin) Attribute(name string) (string, bool) {
	value, ok := p.Attributes[name]
	return value, ok
}

func (p *MemPin) SetAttribute(name string, value *string) {
	if value == nil {
		delete(p.Attributes, name)
		return
	}
	p.Attributes[name] = *value
}

// AttachTo hangs the pin on an element; nil detaches it.
func (p *MemPin) AttachTo(target *ElementHandle) error {
	if target == nil {
		p.Target = nil
		return nil
	}
	handle := *target
	p.Target = &handle
	return nil
}
