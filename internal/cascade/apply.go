package cascade

import (
	"sort"

	"github.com/stateviz/stateviz/internal/state"
	"github.com/stateviz/stateviz/internal/style"
)

// Apply evaluates a compiled stylesheet against a graph and produces
// the resolved entity to property mapping. Rules fire in declaration
// order across rules and in depth-first traversal order across graph
// sites; clauses evaluate in source order with variable assignments
// visible to everything fired later in the enclosing subtree.
func Apply(sheet *CompiledStylesheet, graph state.RootedGraph) EntityPropertyMapping {
	walker := &cascadeWalker{
		sheet:   sheet,
		graph:   graph,
		seen:    make(map[sequencePoint]struct{}),
		pool:    NewVariablePool(),
		builder: newMappingBuilder(),
	}
	states := make([]selectorState, len(sheet.rules))
	for i := range sheet.rules {
		states[i] = selectorState{rule: i}
	}
	walker.runFrom(graph.Root(), states, nil)
	return walker.builder.build(graph)
}

// selectorState is one active position of one rule's state machine.
type selectorState struct {
	rule  int
	instr int
}

func (s selectorState) advance() selectorState {
	return selectorState{rule: s.rule, instr: s.instr + 1}
}

func (s selectorState) jump(instr int) selectorState {
	return selectorState{rule: s.rule, instr: instr}
}

// sequencePoint is a (node, rule, instruction) triple; each can be
// passed at most once, which guarantees the walk halts.
type sequencePoint struct {
	node  state.NodeID
	state selectorState
}

// traversedEdge is the edge context of one traversal step: the edge
// the walker just descended along and the magic values it implies.
type traversedEdge struct {
	source state.NodeID
	label  state.EdgeLabel
}

// parkedState is a state blocked on an edge matcher, waiting for the
// walker to descend along an accepted edge.
type parkedState struct {
	matcher style.EdgeMatcher
	state   selectorState
}

// ruleMatch is a rule whose selector reached its terminal state at
// the current node.
type ruleMatch struct {
	rule int

	// onNode is true when the selector committed to the node, false
	// when it selects the edge that led here.
	onNode bool
}

type cascadeWalker struct {
	sheet   *CompiledStylesheet
	graph   state.RootedGraph
	seen    map[sequencePoint]struct{}
	pool    *VariablePool
	builder *mappingBuilder
}

// evalContext builds the evaluation context for a node, with the
// magic values of the edge that led to it.
func (w *cascadeWalker) evalContext(node state.NodeID, via *traversedEdge) *EvalContext {
	origin := node
	ctx := &EvalContext{
		Graph:  w.graph,
		Origin: &origin,
		Pool:   w.pool,
	}
	if via != nil {
		switch via.label.Kind {
		case state.KindIndex:
			index := via.label.Index
			ctx.EdgeIndex = &index
		case state.KindNamed:
			name := via.label.Name
			disc := via.label.Disc
			ctx.EdgeName = &name
			ctx.EdgeDisc = &disc
		}
	}
	return ctx
}

func (w *cascadeWalker) runFrom(node state.NodeID, states []selectorState, via *traversedEdge) {
	parked := w.resolveNode(node, states, via)
	// Stop once there is nothing else to explore
	if len(parked) == 0 {
		return
	}
	current, ok := w.graph.Get(node)
	if !ok {
		return
	}
	for _, edge := range current.Successors {
		var advanced []selectorState
		for _, p := range parked {
			if p.matcher.Matches(edge.Label) {
				advanced = append(advanced, p.state.advance())
			}
		}
		if len(advanced) == 0 {
			continue
		}
		w.pool.Push()
		w.builder.push()
		w.runFrom(edge.To, advanced, &traversedEdge{source: node, label: edge.Label})
		w.builder.pop()
		w.pool.Pop()
	}
}

// resolveNode computes the transitive closure of selector states
// reachable at a node through non-edge-consuming instructions, fires
// the rules that reached their end, and returns the states parked on
// edge matchers.
func (w *cascadeWalker) resolveNode(node state.NodeID, states []selectorState, via *traversedEdge) []parkedState {
	type openState struct {
		state selectorState
		// committed is true once the state passed a MatchNode here
		committed bool
	}
	visited := make(map[selectorState]struct{})
	open := make([]openState, 0, len(states))
	for _, s := range states {
		open = append(open, openState{state: s})
	}
	var parked []parkedState
	var matches []ruleMatch
	ctx := w.evalContext(node, via)

	for len(open) > 0 {
		top := open[len(open)-1]
		open = open[:len(open)-1]
		program := w.sheet.rules[top.state.rule].program
		if top.state.instr >= len(program) {
			// The machine reached its end: the rule matched
			matches = append(matches, ruleMatch{rule: top.state.rule, onNode: top.committed})
			continue
		}
		// Skip states we have already been in; this prevents infinite
		// loops caused by poorly written selectors
		if _, ok := visited[top.state]; ok {
			continue
		}
		visited[top.state] = struct{}{}
		switch instr := program[top.state.instr]; instr.op {
		case opMatchEdge:
			// Traversing an edge is only permitted once the node has
			// been committed; this is what makes the walk finite
			if top.committed {
				parked = append(parked, parkedState{matcher: instr.matcher, state: top.state})
			}
		case opMatchNode:
			point := sequencePoint{node: node, state: top.state}
			if _, ok := w.seen[point]; !ok {
				w.seen[point] = struct{}{}
				open = append(open, openState{state: top.state.advance(), committed: true})
			}
		case opRestrict:
			if Evaluate(instr.condition, ctx).IsTruthy() {
				open = append(open, openState{state: top.state.advance(), committed: top.committed})
			}
		case opBranch:
			open = append(open, openState{state: top.state.jump(instr.target), committed: top.committed})
			open = append(open, openState{state: top.state.advance(), committed: top.committed})
		case opJump:
			open = append(open, openState{state: top.state.jump(instr.target), committed: top.committed})
		}
	}

	// Fire matched rules in declaration order, once per selection
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].rule < matches[j].rule })
	fired := make(map[ruleMatch]struct{}, len(matches))
	for _, match := range matches {
		if _, ok := fired[match]; ok {
			continue
		}
		fired[match] = struct{}{}
		w.fireRule(match, node, via, ctx)
	}
	return parked
}

// fireRule applies one matched rule's body at a node.
func (w *cascadeWalker) fireRule(match ruleMatch, node state.NodeID, via *traversedEdge, ctx *EvalContext) {
	rule := &w.sheet.rules[match.rule]
	var target Selectable
	if match.onNode {
		target = NodeSelectable(node)
	} else {
		// The rule selects the edge just traversed to reach the node.
		// Reaching the terminal without having traversed one means
		// there is nothing to select.
		if via == nil {
			return
		}
		target = EdgeSelectable(via.source, via.label)
	}
	if rule.extra != nil {
		target = target.WithExtra(*rule.extra)
	}
	w.builder.selectedEntity(target, node, match.rule)
	for _, clause := range rule.clauses {
		value := Evaluate(clause.Value, ctx)
		if clause.Key.Kind == style.KeyVariable {
			// Later clauses and everything fired below the selected
			// node observe the new binding
			w.pool.Insert(clause.Key.Name, value)
			continue
		}
		w.builder.assign(target, clause.Key, value, match.rule)
	}
}
