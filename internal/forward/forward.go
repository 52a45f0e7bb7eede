// Package forward diffs cascade results against the visualization
// tree, creating, updating, and detaching visuals as entities come
// and go.
package forward

import (
	"github.com/stateviz/stateviz/internal/cascade"
	"github.com/stateviz/stateviz/internal/log"
	"github.com/stateviz/stateviz/internal/style"
	"github.com/stateviz/stateviz/internal/vis"
)

// Renderer owns a visualization tree and mirrors the latest property
// mapping into it.
type Renderer struct {
	tree vis.Tree

	// currentRoot is the entity whose visual is the tree root.
	currentRoot *cascade.Selectable

	// current tracks the visual and cached properties of every
	// rendered entity.
	current map[cascade.Selectable]*entityRendering
}

// entityRendering couples an entity's visual handle with the
// properties it was last rendered with.
type entityRendering struct {
	element     vis.ElementHandle
	connector   vis.ConnectorHandle
	isConnector bool
	properties  *cascade.PropertyMap
}

// NewRenderer constructs a renderer over a tree.
func NewRenderer(tree vis.Tree) *Renderer {
	return &Renderer{
		tree:    tree,
		current: make(map[cascade.Selectable]*entityRendering),
	}
}

// Tree returns the underlying visualization tree.
func (r *Renderer) Tree() vis.Tree {
	return r.tree
}

// UpdateRoot changes the entity whose visual roots the tree.
func (r *Renderer) UpdateRoot(root *cascade.Selectable) {
	if selectableEqual(root, r.currentRoot) {
		return
	}
	r.currentRoot = root
	r.forwardUpdateRoot()
}

func selectableEqual(a, b *cascade.Selectable) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Update mirrors a new property mapping into the tree.
func (r *Renderer) Update(mapping cascade.EntityPropertyMapping) {
	updated := make(map[cascade.Selectable]*entityRendering, len(mapping))
	for key, properties := range mapping {
		if rendering := r.updateOrCreateRendering(key, properties); rendering != nil {
			updated[key] = rendering
		}
	}
	// What remains in the old mapping was rendered but no longer is;
	// detach those visuals and let the tree collect them
	for _, rendering := range r.current {
		r.removeRendering(rendering)
	}
	r.current = updated
	// Inter-entity relationships are only resolved now, after all
	// recreation is complete
	r.updateInterEntityRelations()
	// The root's visual may have been recreated
	r.forwardUpdateRoot()
}

// updateOrCreateRendering reuses the existing visual when the display
// mode is unchanged, and otherwise rebuilds it.
func (r *Renderer) updateOrCreateRendering(key cascade.Selectable, properties *cascade.PropertyMap) *entityRendering {
	if existing, ok := r.current[key]; ok {
		delete(r.current, key)
		if displayEqual(existing.properties.Display, properties.Display) {
			r.updateAttributes(existing, properties)
			return existing
		}
		r.removeRendering(existing)
	}
	return r.tryCreateRendering(properties)
}

func displayEqual(a, b *cascade.DisplayMode) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// removeRendering detaches a visual from the tree structure.
func (r *Renderer) removeRendering(rendering *entityRendering) {
	if rendering.isConnector {
		connector, err := r.tree.Connector(rendering.connector)
		if err != nil {
			return
		}
		connector.Start().AttachTo(nil)
		connector.End().AttachTo(nil)
		return
	}
	if element, err := r.tree.Element(rendering.element); err == nil {
		element.InsertInto(nil)
	}
}

// tryCreateRendering builds a visual for an entity. Entities without
// a display mode are not rendered at all.
func (r *Renderer) tryCreateRendering(properties *cascade.PropertyMap) *entityRendering {
	if properties.Display == nil {
		return nil
	}
	rendering := &entityRendering{properties: properties}
	if properties.Display.Connector {
		rendering.isConnector = true
		rendering.connector = r.tree.AddConnector()
		connector, err := r.tree.Connector(rendering.connector)
		if err != nil {
			return nil
		}
		setAttributes(connector, properties.Attributes)
		r.setFragmentAttributes(connector, properties)
	} else {
		rendering.element = r.tree.AddElement(properties.Display.Tag)
		element, err := r.tree.Element(rendering.element)
		if err != nil {
			return nil
		}
		setAttributes(element, properties.Attributes)
	}
	return rendering
}

// updateAttributes diffs the attribute bags of a live visual.
func (r *Renderer) updateAttributes(rendering *entityRendering, properties *cascade.PropertyMap) {
	if rendering.isConnector {
		connector, err := r.tree.Connector(rendering.connector)
		if err != nil {
			return
		}
		updateAttributeMap(connector, rendering.properties.Attributes, properties.Attributes)
		updateAttributeMap(connector.Start(),
			fragmentBag(rendering.properties, style.FragmentStart),
			fragmentBag(properties, style.FragmentStart))
		updateAttributeMap(connector.End(),
			fragmentBag(rendering.properties, style.FragmentEnd),
			fragmentBag(properties, style.FragmentEnd))
	} else {
		element, err := r.tree.Element(rendering.element)
		if err != nil {
			return
		}
		updateAttributeMap(element, rendering.properties.Attributes, properties.Attributes)
	}
	rendering.properties = properties
}

// updateInterEntityRelations resolves parent and pin references in a
// second pass, after every visual exists. Parent assignments that
// would create a cycle are retried once after detaching the child; a
// second failure means the stylesheet itself is cyclic.
func (r *Renderer) updateInterEntityRelations() {
	type retry struct {
		child  vis.ElementHandle
		parent *vis.ElementHandle
	}
	var retries []retry
	for _, rendering := range r.current {
		if rendering.isConnector {
			connector, err := r.tree.Connector(rendering.connector)
			if err != nil {
				continue
			}
			connector.Start().AttachTo(r.resolveElement(rendering.properties.Parent))
			connector.End().AttachTo(r.resolveElement(rendering.properties.Target))
			continue
		}
		element, err := r.tree.Element(rendering.element)
		if err != nil {
			continue
		}
		parent := r.resolveElement(rendering.properties.Parent)
		if err := element.InsertInto(parent); err != nil {
			// This can be an intended parent-child swap, which cannot
			// happen unless one side is disconnected first
			element.InsertInto(nil)
			retries = append(retries, retry{child: rendering.element, parent: parent})
		}
	}
	for _, item := range retries {
		element, err := r.tree.Element(item.child)
		if err != nil {
			continue
		}
		if err := element.InsertInto(item.parent); err != nil {
			log.Warnf("stylesheet requests a cyclic parent chain; leaving element detached")
		}
	}
}

// resolveElement maps an entity reference to the handle of its
// element visual. References to connectors, unrendered entities, and
// missing entities resolve to nil.
func (r *Renderer) resolveElement(key *cascade.Selectable) *vis.ElementHandle {
	if key == nil {
		return nil
	}
	rendering, ok := r.current[*key]
	if !ok || rendering.isConnector {
		return nil
	}
	handle := rendering.element
	return &handle
}

func (r *Renderer) forwardUpdateRoot() {
	var handle *vis.ElementHandle
	if r.currentRoot != nil {
		handle = r.resolveElement(r.currentRoot)
	}
	r.tree.SetRoot(handle)
}

func (r *Renderer) setFragmentAttributes(connector vis.Connector, properties *cascade.PropertyMap) {
	setAttributes(connector.Start(), fragmentBag(properties, style.FragmentStart))
	setAttributes(connector.End(), fragmentBag(properties, style.FragmentEnd))
}

func fragmentBag(properties *cascade.PropertyMap, fragment style.FragmentKey) map[string]string {
	return properties.FragmentAttributes[fragment]
}

func setAttributes(target vis.AttributeMap, values map[string]string) {
	for key, value := range values {
		v := value
		target.SetAttribute(key, &v)
	}
}

// updateAttributeMap applies additions and updates, then removes the
// attributes that disappeared.
func updateAttributeMap(target vis.AttributeMap, old, fresh map[string]string) {
	for key, value := range fresh {
		v := value
		target.SetAttribute(key, &v)
	}
	for key := range old {
		if _, ok := fresh[key]; !ok {
			target.SetAttribute(key, nil)
		}
	}
}
