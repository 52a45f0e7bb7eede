package forward

import (
	"testing"

	"github.com/stateviz/stateviz/internal/cascade"
	"github.com/stateviz/stateviz/internal/state"
	"github.com/stateviz/stateviz/internal/vis"
)

func entity(i int) cascade.Selectable {
	return cascade.NodeSelectable(state.FrameID(i))
}

func elementProperties(tag string) *cascade.PropertyMap {
	properties := cascade.NewPropertyMap()
	mode := cascade.ElementMode(tag)
	properties.Display = &mode
	return properties
}

func connectorProperties(parent, target cascade.Selectable) *cascade.PropertyMap {
	properties := cascade.NewPropertyMap()
	mode := cascade.ConnectorMode()
	properties.Display = &mode
	properties.Parent = &parent
	properties.Target = &target
	return properties
}

// findElement returns the first element with the given tag, failing the
// test if there is none.
func findElement(t *testing.T, tree *vis.MemTree, tag string) *vis.MemElement {
	t.Helper()
	for _, element := range tree.Elements() {
		if element.Tag == tag {
			return element
		}
	}
	t.Fatalf("no element with tag %q", tag)
	return nil
}

func TestUpdate_CreatesElementWithAttributes(t *testing.T) {
	tree := vis.NewMemTree()
	renderer := NewRenderer(tree)

	properties := elementProperties("cell")
	properties.Attributes["value"] = "42"
	renderer.Update(cascade.EntityPropertyMapping{entity(0): properties})

	if len(tree.Elements()) != 1 {
		t.Fatalf("expected 1 element, got %d", len(tree.Elements()))
	}
	element := findElement(t, tree, "cell")
	if element.Attributes["value"] != "42" {
		t.Errorf("attributes = %v", element.Attributes)
	}
}

func TestUpdate_ParentAssignment(t *testing.T) {
	tree := vis.NewMemTree()
	renderer := NewRenderer(tree)

	parent := elementProperties("box")
	child := elementProperties("cell")
	parentKey := entity(0)
	child.Parent = &parentKey
	renderer.Update(cascade.EntityPropertyMapping{
		entity(0): parent,
		entity(1): child,
	})

	childElement := findElement(t, tree, "cell")
	parentElement := findElement(t, tree, "box")
	if childElement.Parent == nil {
		t.Fatal("child should have a parent")
	}
	if got, _ := tree.Element(*childElement.Parent); got != parentElement {
		t.Error("child is attached to the wrong parent")
	}
}

func TestUpdate_ConnectorPins(t *testing.T) {
	tree := vis.NewMemTree()
	renderer := NewRenderer(tree)

	renderer.Update(cascade.EntityPropertyMapping{
		entity(0): elementProperties("a"),
		entity(1): elementProperties("b"),
		entity(2): connectorProperties(entity(0), entity(1)),
	})

	if len(tree.Connectors()) != 1 {
		t.Fatalf("expected 1 connector, got %d", len(tree.Connectors()))
	}
	connector := tree.Connectors()[0]
	start := findElement(t, tree, "a")
	end := findElement(t, tree, "b")
	if connector.StartPin.Target == nil || connector.EndPin.Target == nil {
		t.Fatal("both pins should be attached")
	}
	if got, _ := tree.Element(*connector.StartPin.Target); got != start {
		t.Error("start pin attached to the wrong element")
	}
	if got, _ := tree.Element(*connector.EndPin.Target); got != end {
		t.Error("end pin attached to the wrong element")
	}
}

func TestUpdate_PinsDetachWhenTargetIsNotAnElement(t *testing.T) {
	tree := vis.NewMemTree()
	renderer := NewRenderer(tree)

	// The parent points at another connector, the target at a missing
	// entity; both pins must end up detached
	renderer.Update(cascade.EntityPropertyMapping{
		entity(0): connectorProperties(entity(1), entity(9)),
		entity(1): connectorProperties(entity(0), entity(0)),
	})

	for _, connector := range tree.Connectors() {
		if connector.StartPin.Target != nil || connector.EndPin.Target != nil {
			t.Error("pins pointing at non-elements should be detached")
		}
	}
}

func TestUpdate_RemovedEntityIsDetached(t *testing.T) {
	tree := vis.NewMemTree()
	renderer := NewRenderer(tree)

	parentKey := entity(0)
	child := elementProperties("cell")
	child.Parent = &parentKey
	renderer.Update(cascade.EntityPropertyMapping{
		entity(0): elementProperties("box"),
		entity(1): child,
	})
	if findElement(t, tree, "cell").Parent == nil {
		t.Fatal("precondition: child attached")
	}

	// The child entity disappears from the next mapping
	renderer.Update(cascade.EntityPropertyMapping{
		entity(0): elementProperties("box"),
	})
	if findElement(t, tree, "cell").Parent != nil {
		t.Error("removed entity's visual should be detached")
	}
}

func TestUpdate_UnsetDisplayRemovesVisual(t *testing.T) {
	tree := vis.NewMemTree()
	renderer := NewRenderer(tree)

	renderer.Update(cascade.EntityPropertyMapping{entity(0): elementProperties("cell")})
	// An entry with no display mode is not rendered
	bare := cascade.NewPropertyMap()
	bare.Attributes["x"] = "1"
	renderer.Update(cascade.EntityPropertyMapping{entity(0): bare})

	if len(renderer.current) != 0 {
		t.Errorf("expected no live renderings, got %d", len(renderer.current))
	}
	if findElement(t, tree, "cell").Parent != nil {
		t.Error("the stale visual should be detached")
	}
}

func TestUpdate_DisplayChangeRecreatesVisual(t *testing.T) {
	tree := vis.NewMemTree()
	renderer := NewRenderer(tree)

	renderer.Update(cascade.EntityPropertyMapping{entity(0): elementProperties("cell")})
	renderer.Update(cascade.EntityPropertyMapping{entity(0): elementProperties("kvt")})

	// The old element stays in storage (collection is the tree's
	// concern) but the rendering moved to the new one
	if len(tree.Elements()) != 2 {
		t.Fatalf("expected 2 stored elements, got %d", len(tree.Elements()))
	}
	rendering := renderer.current[entity(0)]
	if rendering == nil {
		t.Fatal("entity should still be rendered")
	}
	element, _ := tree.Element(rendering.element)
	if element.(*vis.MemElement).Tag != "kvt" {
		t.Errorf("rendered tag = %q, want kvt", element.(*vis.MemElement).Tag)
	}
}

func TestUpdate_AttributeDiff(t *testing.T) {
	tree := vis.NewMemTree()
	renderer := NewRenderer(tree)

	first := elementProperties("cell")
	first.Attributes["keep"] = "1"
	first.Attributes["drop"] = "2"
	renderer.Update(cascade.EntityPropertyMapping{entity(0): first})

	second := elementProperties("cell")
	second.Attributes["keep"] = "3"
	second.Attributes["add"] = "4"
	renderer.Update(cascade.EntityPropertyMapping{entity(0): second})

	if len(tree.Elements()) != 1 {
		t.Fatalf("unchanged display must not recreate the element, have %d", len(tree.Elements()))
	}
	attributes := tree.Elements()[0].Attributes
	if attributes["keep"] != "3" || attributes["add"] != "4" {
		t.Errorf("attributes = %v", attributes)
	}
	if _, ok := attributes["drop"]; ok {
		t.Errorf("dropped attribute survived: %v", attributes)
	}
}

func TestUpdate_ParentChildSwapPreservesBoth(t *testing.T) {
	tree := vis.NewMemTree()
	renderer := NewRenderer(tree)

	key0, key1 := entity(0), entity(1)
	a := elementProperties("a")
	b := elementProperties("b")
	b.Parent = &key0
	renderer.Update(cascade.EntityPropertyMapping{key0: a, key1: b})

	// Swap the relationship
	a2 := elementProperties("a")
	a2.Parent = &key1
	b2 := elementProperties("b")
	renderer.Update(cascade.EntityPropertyMapping{key0: a2, key1: b2})

	if len(tree.Elements()) != 2 {
		t.Fatalf("swap must not destroy elements, have %d", len(tree.Elements()))
	}
	elementA := findElement(t, tree, "a")
	elementB := findElement(t, tree, "b")
	if elementA.Parent == nil {
		t.Fatal("a should now be the child")
	}
	if got, _ := tree.Element(*elementA.Parent); got != elementB {
		t.Error("a should be parented to b")
	}
	if elementB.Parent != nil {
		t.Error("b should have no parent after the swap")
	}
}

func TestUpdateRoot(t *testing.T) {
	tree := vis.NewMemTree()
	renderer := NewRenderer(tree)

	key := entity(0)
	renderer.Update(cascade.EntityPropertyMapping{key: elementProperties("cell")})
	renderer.UpdateRoot(&key)

	if tree.Root() == nil {
		t.Fatal("tree root should be set")
	}
	if got, _ := tree.Element(*tree.Root()); got != findElement(t, tree, "cell") {
		t.Error("root handle points at the wrong element")
	}

	renderer.UpdateRoot(nil)
	if tree.Root() != nil {
		t.Error("clearing the root should propagate")
	}
}

func TestUpdate_FragmentAttributesReachPins(t *testing.T) {
	tree := vis.NewMemTree()
	renderer := NewRenderer(tree)

	properties := connectorProperties(entity(1), entity(2))
	properties.FragmentAttributes[0] = map[string]string{"shape": "arrow"}
	renderer.Update(cascade.EntityPropertyMapping{entity(0): properties})

	connector := tree.Connectors()[0]
	if connector.StartPin.Attributes["shape"] != "arrow" {
		t.Errorf("start pin attributes = %v", connector.StartPin.Attributes)
	}
}
