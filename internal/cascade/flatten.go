package cascade

import "github.com/stateviz/stateviz/internal/style"

// The compiled selector is a flat state machine. Its transitions are
// the instructions of the program; its states are their indices. The
// input of the machine is state nodes and edges in the order they
// appear in the graph.

type opcode int

const (
	// opMatchEdge consumes one edge accepted by the matcher. It must
	// alternate with opMatchNode transitions: a node match can only
	// trigger once per run, which places an upper bound on how many
	// times each edge can be traversed and keeps resolution finite.
	opMatchEdge opcode = iota

	// opMatchNode matches the current node. It is the sequence point
	// that bounds traversal.
	opMatchNode

	// opRestrict takes no input; it passes only if the condition
	// evaluates truthy.
	opRestrict

	// opJump is an epsilon transition to an explicit state.
	opJump

	// opBranch forks to both the explicit state and the fallthrough.
	opBranch
)

type instruction struct {
	op        opcode
	matcher   style.EdgeMatcher // opMatchEdge
	condition style.Expression  // opRestrict
	target    int               // opJump, opBranch
}

// CompiledRule is one rule of a compiled stylesheet: the selector's
// state machine plus the original body.
type CompiledRule struct {
	program []instruction
	clauses []style.Clause
	extra   *string
}

// CompiledStylesheet is a stylesheet preprocessed for the cascade.
type CompiledStylesheet struct {
	rules []CompiledRule
}

// Compile flattens every rule's selector into its state machine.
func Compile(sheet *style.Stylesheet) *CompiledStylesheet {
	compiled := &CompiledStylesheet{rules: make([]CompiledRule, 0, len(sheet.Rules))}
	for _, rule := range sheet.Rules {
		compiled.rules = append(compiled.rules, CompiledRule{
			program: flattenSelector(rule.Selector),
			clauses: rule.Clauses,
			extra:   rule.Selector.Extra,
		})
	}
	return compiled
}

func flattenSelector(selector style.Selector) []instruction {
	var program []instruction
	program = flattenPath(selector.Path, program)
	// Unless the selector matches an edge, match the node at the end
	if !selector.SelectsEdge {
		program = append(program, instruction{op: opMatchNode})
	}
	return program
}

func flattenPath(path style.SelectorPath, program []instruction) []instruction {
	for _, segment := range path {
		program = flattenSegment(segment, program)
	}
	return program
}

func flattenSegment(segment style.Segment, program []instruction) []instruction {
	switch s := segment.(type) {
	case style.MatchSegment:
		// Commit to the current node before an edge is matched
		program = append(program, instruction{op: opMatchNode})
		program = append(program, instruction{op: opMatchEdge, matcher: s.Matcher})
	case style.ManySegment:
		/*        +--------------+
		 *       v                \
		 * --> ( ) --> (path) --> ( )   ( ) -->
		 *       \                      ^
		 *     ^  +--------------------+
		 *     |
		 *     +--start
		 */
		start := len(program)
		// Exit the loop through a branch at its start; the target is
		// patched once the loop body length is known
		program = append(program, instruction{op: opBranch})
		program = flattenPath(s.Path, program)
		program = append(program, instruction{op: opJump, target: start})
		program[start].target = len(program)
	case style.AltSegment:
		start := len(program)
		branchCount := len(s.Paths)
		// One branch transition per non-first alternative; targets
		// are patched as the alternatives are emitted
		for i := 0; i < branchCount-1; i++ {
			program = append(program, instruction{op: opBranch})
		}
		var exits []int
		for i, branch := range s.Paths {
			if i > 0 {
				program[start+i-1].target = len(program)
			}
			program = flattenPath(branch, program)
			if i < branchCount-1 {
				exits = append(exits, len(program))
				program = append(program, instruction{op: opJump})
			}
		}
		for _, exit := range exits {
			program[exit].target = len(program)
		}
	case style.CondSegment:
		program = append(program, instruction{op: opRestrict, condition: s.Condition})
	}
	return program
}
