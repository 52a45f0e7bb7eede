package state

// MemGraph is a plain in-memory implementation of RootedGraph. It is
// used by hosts that run the cascade over a snapshot instead of a live
// debugger session, and by tests.
type MemGraph struct {
	nodes map[NodeID]*Node
	root  NodeID
}

// NewMemGraph creates a graph containing only a root node.
func NewMemGraph() *MemGraph {
	root := RootID()
	return &MemGraph{
		nodes: map[NodeID]*Node{root: {Class: ClassRoot}},
		root:  root,
	}
}

// Root returns the id of the root node.
func (g *MemGraph) Root() NodeID {
	return g.root
}

// Get finds a node by its id.
func (g *MemGraph) Get(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// AddNode inserts a node under the given id. An existing node with the
// same id is replaced.
func (g *MemGraph) AddNode(id NodeID, node *Node) {
	g.nodes[id] = node
}

// RemoveNode removes a node by its id. Edges that point at the removed
// node are not touched; callers own edge consistency.
func (g *MemGraph) RemoveNode(id NodeID) {
	delete(g.nodes, id)
}

// Link adds an edge from one node to another. It is a no-op if the
// source node does not exist.
func (g *MemGraph) Link(from NodeID, label EdgeLabel, to NodeID) {
	if n, ok := g.nodes[from]; ok {
		n.Successors = append(n.Successors, Edge{Label: label, To: to})
	}
}

// Nodes returns the ids of all nodes in the graph, in no defined order.
func (g *MemGraph) Nodes() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}
