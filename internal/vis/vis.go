// Package vis defines the visualization tree contract the forwarder
// drives, plus an in-memory implementation of it.
package vis

import "errors"

// ErrInvalidHandle reports the use of a stale or foreign handle.
var ErrInvalidHandle = errors.New("invalid visualization entity handle")

// ErrCycle reports a parent assignment that would create a cycle in
// the element tree.
var ErrCycle = errors.New("parent assignment would create a cycle")

// ElementHandle is an owning handle to a visualization element.
type ElementHandle int

// ConnectorHandle is an owning handle to a visualization connector.
type ConnectorHandle int

// AttributeMap is a container of string attributes.
type AttributeMap interface {
	// Attribute gets the value of an attribute, if present.
	Attribute(name string) (string, bool)

	// SetAttribute updates an attribute; a nil value removes it.
	SetAttribute(name string, value *string)
}

// Element is a visualization tree element.
type Element interface {
	AttributeMap

	// InsertInto updates the parent of the element; nil detaches it.
	// Fails with ErrCycle if the assignment would create a cycle.
	InsertInto(parent *ElementHandle) error
}

// Connector is a visualization tree connector with two pins.
type Connector interface {
	AttributeMap

	// Start gets the start pin.
	Start() Pin

	// End gets the end pin.
	End() Pin
}

// Pin is one endpoint of a connector.
type Pin interface {
	AttributeMap

	// AttachTo updates the element the pin hangs on; nil detaches.
	AttachTo(target *ElementHandle) error
}

// Tree is a container for a visualization tree. Garbage collection of
// detached entities is the implementation's concern.
type Tree interface {
	// AddElement creates a new element with a tag name.
	AddElement(tagName string) ElementHandle

	// AddConnector creates a new connector.
	AddConnector() ConnectorHandle

	// Element finds an element by its handle.
	Element(handle ElementHandle) (Element, error)

	// Connector finds a connector by its handle.
	Connector(handle ConnectorHandle) (Connector, error)

	// SetRoot designates the root element; nil clears it.
	SetRoot(handle *ElementHandle) error
}
