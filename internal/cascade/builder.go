package cascade

import (
	"github.com/stateviz/stateviz/internal/state"
	"github.com/stateviz/stateviz/internal/style"
)

// entityPropertyKey addresses one property of one entity.
type entityPropertyKey struct {
	entity Selectable
	key    style.Key
}

// rulePropertyValue is a value assigned to a property together with
// the information that decides precedence.
type rulePropertyValue struct {
	value PropertyValue

	// staticPrecedence is the index of the assigning rule.
	staticPrecedence int

	// passive marks values assigned as the side effect of another
	// assignment. Passive values always lose to explicit ones.
	passive bool
}

// mappingBuilder accumulates property assignments with precedence and
// synthesizes the automatic defaults, then finalizes them into an
// EntityPropertyMapping.
type mappingBuilder struct {
	properties map[entityPropertyKey]rulePropertyValue

	// autoStack carries the context needed to auto-assign parents,
	// one frame per traversal depth.
	autoStack []autoAssignmentContext
}

// autoAssignmentContext tracks the nearest explicitly displayed
// ancestor, which adopts displayed descendants by default.
type autoAssignmentContext struct {
	parent *Selectable
}

func newMappingBuilder() *mappingBuilder {
	return &mappingBuilder{
		properties: make(map[entityPropertyKey]rulePropertyValue),
		autoStack:  []autoAssignmentContext{{}},
	}
}

// push opens a context frame; the new frame inherits the current one.
func (b *mappingBuilder) push() {
	b.autoStack = append(b.autoStack, b.autoStack[len(b.autoStack)-1])
}

// pop closes a context frame. The bottom frame is never popped.
func (b *mappingBuilder) pop() {
	if len(b.autoStack) > 1 {
		b.autoStack = b.autoStack[:len(b.autoStack)-1]
	}
}

// prevAutoFrame is the second-to-last frame: the context of the
// entity's predecessors.
func (b *mappingBuilder) prevAutoFrame() *autoAssignmentContext {
	if len(b.autoStack) > 1 {
		return &b.autoStack[len(b.autoStack)-2]
	}
	return nil
}

// writeProperty stores a value unless an assignment with greater
// precedence is already present. Reports whether the write happened.
func (b *mappingBuilder) writeProperty(key entityPropertyKey, value rulePropertyValue) bool {
	existing, ok := b.properties[key]
	if !ok {
		b.properties[key] = value
		return true
	}
	// Passive assignments always take lower priority; otherwise the
	// later evaluation wins at equal rule index
	better := func(v rulePropertyValue) (bool, int) { return !v.passive, v.staticPrecedence }
	newActive, newPrec := better(value)
	oldActive, oldPrec := better(existing)
	if (newActive && !oldActive) || (newActive == oldActive && newPrec >= oldPrec) {
		b.properties[key] = value
		return true
	}
	return false
}

// selectedEntity notifies the builder that a rule selected an entity.
// Selected edges get the passive connector defaults: display as a
// connector from the edge's source to its target.
func (b *mappingBuilder) selectedEntity(target Selectable, walkNode state.NodeID, precedence int) {
	if !target.IsEdge() {
		return
	}
	b.writeProperty(
		entityPropertyKey{entity: target, key: style.Key{Kind: style.KeyDisplay}},
		rulePropertyValue{value: StringValue(connectorName), staticPrecedence: precedence, passive: true},
	)
	b.writeProperty(
		entityPropertyKey{entity: target, key: style.Key{Kind: style.KeyParent}},
		rulePropertyValue{value: SelectionValue(NodeSelectable(target.Node)), staticPrecedence: precedence, passive: true},
	)
	b.writeProperty(
		entityPropertyKey{entity: target, key: style.Key{Kind: style.KeyTarget}},
		rulePropertyValue{value: SelectionValue(NodeSelectable(walkNode)), staticPrecedence: precedence, passive: true},
	)
}

// assign stores an explicit property assignment and maintains the
// parent auto-assignment state.
func (b *mappingBuilder) assign(target Selectable, key style.Key, value PropertyValue, precedence int) {
	written := b.writeProperty(
		entityPropertyKey{entity: target, key: key},
		rulePropertyValue{value: value, staticPrecedence: precedence},
	)
	if !written || key.Kind != style.KeyDisplay {
		return
	}
	if target.IsNode() {
		// An explicitly displayed node becomes the default parent of
		// its displayed successors, and is itself adopted by the
		// nearest displayed ancestor
		adopted := target
		b.autoStack[len(b.autoStack)-1].parent = &adopted
		if prev := b.prevAutoFrame(); prev != nil && prev.parent != nil {
			b.writeProperty(
				entityPropertyKey{entity: target, key: style.Key{Kind: style.KeyParent}},
				rulePropertyValue{value: SelectionValue(*prev.parent), staticPrecedence: precedence, passive: true},
			)
		}
	}
	if target.IsExtra() {
		// An extra is adopted by its owner
		b.writeProperty(
			entityPropertyKey{entity: target, key: style.Key{Kind: style.KeyParent}},
			rulePropertyValue{value: SelectionValue(target.WithoutExtra()), staticPrecedence: precedence, passive: true},
		)
	}
}

// build finalizes the accumulated assignments into the mapping.
// Attribute values are serialized to strings; selections serialize as
// the value of the selected node.
func (b *mappingBuilder) build(graph state.Graph) EntityPropertyMapping {
	mapping := make(EntityPropertyMapping)
	entityProperties := func(entity Selectable) *PropertyMap {
		if existing, ok := mapping[entity]; ok {
			return existing
		}
		created := NewPropertyMap()
		mapping[entity] = created
		return created
	}
	for key, assigned := range b.properties {
		switch key.key.Kind {
		case style.KeyAttribute:
			value := toTrueValue(assigned.value, graph)
			if value.Kind != PVUnset {
				entityProperties(key.entity).Attributes[key.key.Name] = value.String()
			}
		case style.KeyFragmentAttribute:
			value := toTrueValue(assigned.value, graph)
			if value.Kind != PVUnset {
				properties := entityProperties(key.entity)
				fragment := properties.FragmentAttributes[key.key.Fragment]
				if fragment == nil {
					fragment = make(map[string]string)
					properties.FragmentAttributes[key.key.Fragment] = fragment
				}
				fragment[key.key.Name] = value.String()
			}
		case style.KeyDisplay:
			value := toTrueValue(assigned.value, graph)
			if value.Kind != PVUnset {
				mode := displayModeFromName(value.String())
				entityProperties(key.entity).Display = &mode
			}
		case style.KeyParent:
			if assigned.value.Kind == PVSelection {
				selection := assigned.value.Sel
				entityProperties(key.entity).Parent = &selection
			}
		case style.KeyTarget:
			if assigned.value.Kind == PVSelection {
				selection := assigned.value.Sel
				entityProperties(key.entity).Target = &selection
			}
		case style.KeyDetach:
			// Accepted but not forwarded
		}
	}
	return mapping
}

// toTrueValue resolves a selection to the selected node's own value
// for serialization.
func toTrueValue(value PropertyValue, graph state.Graph) PropertyValue {
	if value.Kind != PVSelection {
		return value
	}
	if value.Sel.IsNode() && graph != nil {
		if node, ok := graph.Get(value.Sel.Node); ok && node.Value != nil {
			return ValueOf(*node.Value)
		}
	}
	return UnsetValue()
}
