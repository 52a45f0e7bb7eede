package dsl

import (
	"github.com/stateviz/stateviz/internal/state"
	"github.com/stateviz/stateviz/internal/style"
)

// maxExpressionDepth bounds recursion through nested expressions and
// selector constructs. Exceeding it is the fatal ErrStackOverflow.
const maxExpressionDepth = 512

// ParseStylesheet parses a stylesheet source string.
//
// The parser recovers from errors by discarding unparsable input; the
// returned stylesheet is the parsable portion of the source.
// Recoverable errors are delivered through the handler (which may be
// nil) with line numbers, debounced so a single typo does not produce
// a cascade of reports. A non-nil error return means the parser
// failed irrecoverably.
func ParseStylesheet(source string, handler ErrorHandler) (*style.Stylesheet, error) {
	p := &parser{
		tokens: tokenize(source),
		filter: newFilteredErrorHandler(handler),
	}
	sheet := p.parseSheet()
	if p.fatal != nil {
		return nil, p.fatal
	}
	return sheet, nil
}

type parser struct {
	tokens []token
	pos    int
	filter *filteredErrorHandler
	depth  int
	fatal  error
}

// cur returns the current token, reporting and draining any lexical
// errors that precede it.
func (p *parser) cur() token {
	for p.tokens[p.pos].typ == tokErr {
		t := p.tokens[p.pos]
		p.filter.handleError(ParseError{Line: t.line, Err: t.err})
		p.pos++
	}
	return p.tokens[p.pos]
}

// next consumes and returns the current token.
func (p *parser) next() token {
	t := p.cur()
	if t.typ != tokEOF {
		p.pos++
		p.filter.tokenParsed()
	}
	return t
}

// peekAfter inspects the token after the current one without
// consuming anything.
func (p *parser) peekAfter() token {
	_ = p.cur()
	i := p.pos + 1
	for i < len(p.tokens) && p.tokens[i].typ == tokErr {
		i++
	}
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *parser) report(at token, err error) {
	p.filter.handleError(ParseError{Line: at.line, Err: err})
}

// reportUnexpected reports the context-free "wrong token here" error,
// distinguishing end of input.
func (p *parser) reportUnexpected(at token) {
	if at.typ == tokEOF {
		p.report(at, ErrUnexpectedEnd)
	} else {
		p.report(at, ErrUnexpectedToken)
	}
}

// expectOp consumes a specific operator token or reports and fails.
func (p *parser) expectOp(text string) bool {
	t := p.cur()
	if t.isOp(text) {
		p.next()
		return true
	}
	p.reportUnexpected(t)
	return false
}

// enter guards recursion depth; a false return means the parser has
// failed fatally.
func (p *parser) enter() bool {
	if p.fatal != nil {
		return false
	}
	p.depth++
	if p.depth > maxExpressionDepth {
		p.fatal = ErrStackOverflow
		return false
	}
	return true
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) parseSheet() *style.Stylesheet {
	sheet := &style.Stylesheet{}
	for p.cur().typ != tokEOF && p.fatal == nil {
		if rule, keep := p.parseRule(); keep {
			sheet.Rules = append(sheet.Rules, rule)
		}
	}
	return sheet
}

// parseRule parses one rule. The second return value is false when
// the rule must be discarded due to a structural error.
func (p *parser) parseRule() (style.Rule, bool) {
	discard := false
	selector, ok := p.parseSelector()
	if !ok {
		discard = true
		// Resynchronize at the body so the rest of the sheet parses
		for !p.cur().isOp("{") && p.cur().typ != tokEOF {
			p.next()
		}
	}
	if p.cur().typ == tokEOF {
		if !discard {
			p.report(p.cur(), ErrUnexpectedEnd)
		}
		return style.Rule{}, false
	}
	if !p.cur().isOp("{") {
		// A selector not followed by a body
		p.reportUnexpected(p.cur())
		discard = true
		for !p.cur().isOp("{") && p.cur().typ != tokEOF {
			p.next()
		}
		if p.cur().typ == tokEOF {
			return style.Rule{}, false
		}
	}
	p.next() // consume the brace
	clauses, ok := p.parseBody()
	if !ok || discard || p.fatal != nil {
		return style.Rule{}, false
	}
	return style.Rule{Selector: selector, Clauses: clauses}, true
}

// parseBody parses the clause list of a rule, including the closing
// brace. A false return means the whole rule must be discarded.
func (p *parser) parseBody() ([]style.Clause, bool) {
	var clauses []style.Clause
	for {
		t := p.cur()
		if t.isOp("}") {
			p.next()
			return clauses, true
		}
		if t.typ == tokEOF || p.fatal != nil {
			// Imagine the closing brace being there; we are at the
			// end of input, so further recovery makes no sense and
			// the body parsed so far is kept.
			p.filter.handleError(ParseError{Line: t.line, Err: ErrUnterminatedRule})
			return clauses, true
		}
		clause, ok := p.parseClause()
		if !ok {
			// A bad clause discards the entire rule
			for !p.cur().isOp("}") && p.cur().typ != tokEOF {
				p.next()
			}
			if p.cur().isOp("}") {
				p.next()
			}
			return nil, false
		}
		if clause != nil {
			clauses = append(clauses, *clause)
		}
		if p.cur().isOp(";") {
			p.next()
		} else if !p.cur().isOp("}") && p.cur().typ != tokEOF {
			// Clauses must be separated
			p.reportUnexpected(p.cur())
			for !p.cur().isOp("}") && p.cur().typ != tokEOF {
				p.next()
			}
			if p.cur().isOp("}") {
				p.next()
			}
			return nil, false
		}
	}
}

// parseClause parses one `key: value` clause. A nil clause with a
// true return means the clause was parsed but dropped (bad fragment
// key); false means a structural error.
func (p *parser) parseClause() (*style.Clause, bool) {
	t := p.cur()
	var key style.Key
	keep := true
	switch t.typ {
	case tokQuoted:
		p.next()
		key = style.AttributeKey(t.text)
	case tokIdent:
		p.next()
		if p.cur().isOp("/") {
			p.next()
			name := p.cur()
			if name.typ != tokIdent && name.typ != tokQuoted {
				p.reportUnexpected(name)
				return nil, false
			}
			p.next()
			fragment, err := fragmentKeyFromName(t.text)
			if err != nil {
				p.report(t, err)
				keep = false
			}
			key = style.FragmentAttributeKey(fragment, name.text)
		} else {
			key = unquotedStyleKey(t.text)
		}
	default:
		p.reportUnexpected(t)
		return nil, false
	}
	if !p.expectOp(":") {
		return nil, false
	}
	value, ok := p.parseRValue()
	if !ok {
		return nil, false
	}
	if !keep {
		return nil, true
	}
	return &style.Clause{Key: key, Value: value}, true
}

// parseRValue parses the right-hand side of a clause. A lone unquoted
// token that is not a recognized literal coerces to a string.
func (p *parser) parseRValue() (style.Expression, bool) {
	t := p.cur()
	if t.typ == tokIdent {
		after := p.peekAfter()
		if after.isOp(";") || after.isOp("}") || after.typ == tokEOF {
			p.next()
			if expr, err := literalExpressionByName(t.text); err == nil {
				return expr, true
			}
			return style.String{V: t.text}, true
		}
	}
	return p.parseExpression()
}

// Selector parsing

func (p *parser) parseSelector() (style.Selector, bool) {
	sel := style.Selector{}
	rooted := false
	if p.cur().typ == tokRoot {
		p.next()
		rooted = true
	}
	path, ok := p.parsePath(false)
	if !ok {
		return sel, false
	}
	if p.cur().typ == tokEdge {
		p.next()
		sel.SelectsEdge = true
	}
	if p.cur().typ == tokExtra {
		p.next()
		extra := ""
		if p.cur().isOp("(") {
			p.next()
			name := p.cur()
			if name.typ != tokIdent {
				p.reportUnexpected(name)
				return sel, false
			}
			p.next()
			if !p.expectOp(")") {
				return sel, false
			}
			extra = name.text
		}
		sel.Extra = &extra
	}
	if !rooted {
		path = append(style.SelectorPath{style.AnythingAnyNumberOfTimes()}, path...)
	}
	sel.Path = path
	return sel, true
}

// parsePath parses selector segments up to a terminator. Inner paths
// (inside .many and .alt) stop at ')' and ','; the top level stops at
// the rule body and the pseudo-element markers.
func (p *parser) parsePath(inner bool) (style.SelectorPath, bool) {
	if !p.enter() {
		return nil, false
	}
	defer p.leave()
	var path style.SelectorPath
	for {
		t := p.cur()
		if inner && (t.isOp(")") || t.isOp(",")) {
			return path, true
		}
		if !inner && (t.isOp("{") || t.typ == tokEdge || t.typ == tokExtra) {
			return path, true
		}
		if t.typ == tokEOF {
			if inner {
				p.report(t, ErrUnexpectedEnd)
				return nil, false
			}
			return path, true
		}
		segment, ok := p.parseSegment()
		if !ok {
			return nil, false
		}
		path = append(path, segment...)
	}
}

// parseSegment parses one selector segment. Computed index matchers
// expand to two segments, hence the slice return.
func (p *parser) parseSegment() ([]style.Segment, bool) {
	t := p.cur()
	switch {
	case t.typ == tokIdent:
		p.next()
		label, err := edgeLabelFromName(t.text)
		if err != nil {
			p.report(t, err)
			label = state.Main
		}
		return []style.Segment{style.MatchSegment{Matcher: style.ExactEdge(label)}}, true
	case t.typ == tokQuoted:
		p.next()
		if p.cur().isOp("#") {
			p.next()
			disc := p.cur()
			if disc.typ != tokInt {
				p.reportUnexpected(disc)
				return nil, false
			}
			p.next()
			label := state.Named(t.text, int(disc.num))
			return []style.Segment{style.MatchSegment{Matcher: style.ExactEdge(label)}}, true
		}
		return []style.Segment{style.MatchSegment{Matcher: style.NamedEdge(t.text)}}, true
	case t.isOp("*"):
		p.next()
		return []style.Segment{style.MatchSegment{Matcher: style.AnyEdge()}}, true
	case t.isOp("%"):
		p.next()
		return []style.Segment{style.MatchSegment{Matcher: style.AnyNamedEdge()}}, true
	case t.isOp("["):
		p.next()
		if p.cur().isOp("]") {
			p.next()
			return []style.Segment{style.MatchSegment{Matcher: style.AnyIndexEdge()}}, true
		}
		index, ok := p.parseExpression()
		if !ok || !p.expectOp("]") {
			return nil, false
		}
		if literal, ok := index.(style.Int); ok {
			matcher := style.ExactEdge(state.Index(literal.V))
			return []style.Segment{style.MatchSegment{Matcher: matcher}}, true
		}
		return []style.Segment{
			style.MatchSegment{Matcher: style.AnyIndexEdge()},
			style.CondSegment{Condition: indexMatchCondition(index)},
		}, true
	case t.typ == tokMany:
		p.next()
		if !p.expectOp("(") {
			return nil, false
		}
		path, ok := p.parsePath(true)
		if !ok || !p.expectOp(")") {
			return nil, false
		}
		return []style.Segment{style.ManySegment{Path: path}}, true
	case t.typ == tokAlt:
		p.next()
		if !p.expectOp("(") {
			return nil, false
		}
		var paths []style.SelectorPath
		for {
			path, ok := p.parsePath(true)
			if !ok {
				return nil, false
			}
			paths = append(paths, path)
			if p.cur().isOp(",") {
				p.next()
				continue
			}
			break
		}
		if !p.expectOp(")") {
			return nil, false
		}
		return []style.Segment{style.AltSegment{Paths: paths}}, true
	case t.typ == tokIf:
		p.next()
		if !p.expectOp("(") {
			return nil, false
		}
		condition, ok := p.parseExpression()
		if !ok || !p.expectOp(")") {
			return nil, false
		}
		return []style.Segment{style.CondSegment{Condition: condition}}, true
	case t.isOp(":"):
		p.next()
		name := p.cur()
		switch name.typ {
		case tokIdent:
			p.next()
			return []style.Segment{style.CondSegment{Condition: typeMatchCondition(name.text, true)}}, true
		case tokQuoted:
			p.next()
			return []style.Segment{style.CondSegment{Condition: typeMatchCondition(name.text, false)}}, true
		default:
			p.reportUnexpected(name)
			return nil, false
		}
	default:
		p.reportUnexpected(t)
		return nil, false
	}
}

// Expression parsing

func (p *parser) parseExpression() (style.Expression, bool) {
	return p.parseTernary()
}

func (p *parser) parseTernary() (style.Expression, bool) {
	if !p.enter() {
		return nil, false
	}
	defer p.leave()
	cond, ok := p.parseBinary(0)
	if !ok {
		return nil, false
	}
	if !p.cur().isOp("?") {
		return cond, true
	}
	p.next()
	then, ok := p.parseTernary()
	if !ok {
		return nil, false
	}
	if !p.expectOp(":") {
		return nil, false
	}
	els, ok := p.parseTernary()
	if !ok {
		return nil, false
	}
	return style.Conditional{Cond: cond, Then: then, Else: els}, true
}

// binaryPrecedence maps operator spellings to their operators and
// binding strengths. All binary operators are left-associative.
var binaryPrecedence = map[string]struct {
	op   style.BinaryOp
	prec int
}{
	"||": {style.OpOr, 1},
	"&&": {style.OpAnd, 2},
	"==": {style.OpEq, 3},
	"!=": {style.OpNe, 3},
	"<":  {style.OpLt, 4},
	"<=": {style.OpLe, 4},
	">":  {style.OpGt, 4},
	">=": {style.OpGe, 4},
	"+":  {style.BinaryPlus, 5},
	"-":  {style.BinaryMinus, 5},
	"*":  {style.OpMul, 6},
	"/":  {style.OpDiv, 6},
	"%":  {style.OpMod, 6},
}

func (p *parser) parseBinary(minPrec int) (style.Expression, bool) {
	if !p.enter() {
		return nil, false
	}
	defer p.leave()
	left, ok := p.parseUnary()
	if !ok {
		return nil, false
	}
	for {
		t := p.cur()
		if t.typ != tokOp {
			return left, true
		}
		entry, found := binaryPrecedence[t.text]
		if !found || entry.prec < minPrec {
			return left, true
		}
		p.next()
		right, ok := p.parseBinary(entry.prec + 1)
		if !ok {
			return nil, false
		}
		left = style.Binary{Left: left, Op: entry.op, Right: right}
	}
}

func (p *parser) parseUnary() (style.Expression, bool) {
	if !p.enter() {
		return nil, false
	}
	defer p.leave()
	t := p.cur()
	var op style.UnaryOp
	switch {
	case t.isOp("+"):
		op = style.UnaryPlus
	case t.isOp("-"):
		op = style.UnaryMinus
	case t.isOp("!"):
		op = style.UnaryNot
	default:
		return p.parsePrimary()
	}
	p.next()
	operand, ok := p.parseUnary()
	if !ok {
		return nil, false
	}
	return style.Unary{Op: op, Operand: operand}, true
}

func (p *parser) parsePrimary() (style.Expression, bool) {
	t := p.cur()
	switch {
	case t.isOp("("):
		p.next()
		expr, ok := p.parseExpression()
		if !ok || !p.expectOp(")") {
			return nil, false
		}
		return expr, true
	case t.typ == tokQuoted:
		p.next()
		return style.String{V: t.text}, true
	case t.typ == tokInt:
		p.next()
		return style.Int{V: t.num}, true
	case t.typ == tokIdent:
		p.next()
		if p.cur().isOp("(") {
			p.next()
			operand, ok := p.parseExpression()
			if !ok || !p.expectOp(")") {
				return nil, false
			}
			fn, err := unaryFunctionByName(t.text)
			if err != nil {
				p.report(t, err)
				fn = style.Unary{Op: style.UnaryPlus}
			}
			fn.Operand = operand
			return fn, true
		}
		expr, err := literalExpressionByName(t.text)
		if err != nil {
			p.report(t, err)
			return style.Unset{}, true
		}
		return expr, true
	case t.isOp("@"):
		p.next()
		if !p.cur().isOp("(") {
			return style.Select{Selector: &style.LimitedSelector{}}, true
		}
		p.next()
		selector, ok := p.parseLimitedSelector()
		if !ok || !p.expectOp(")") {
			return nil, false
		}
		return style.Select{Selector: selector}, true
	default:
		p.reportUnexpected(t)
		return nil, false
	}
}

func (p *parser) parseLimitedSelector() (*style.LimitedSelector, bool) {
	if !p.enter() {
		return nil, false
	}
	defer p.leave()
	selector := &style.LimitedSelector{}
	if p.cur().isOp("(") {
		p.next()
		origin, ok := p.parseExpression()
		if !ok || !p.expectOp(")") {
			return nil, false
		}
		selector.Origin = origin
	}
	for {
		t := p.cur()
		switch {
		case t.typ == tokIdent:
			p.next()
			label, err := edgeLabelFromName(t.text)
			if err != nil {
				p.report(t, err)
				label = state.Main
			}
			selector.Path = append(selector.Path, style.ExactStep(label))
		case t.typ == tokQuoted:
			p.next()
			disc := 0
			if p.cur().isOp("#") {
				p.next()
				discTok := p.cur()
				if discTok.typ != tokInt {
					p.reportUnexpected(discTok)
					return nil, false
				}
				p.next()
				disc = int(discTok.num)
			}
			selector.Path = append(selector.Path, style.ExactStep(state.Named(t.text, disc)))
		case t.isOp("["):
			p.next()
			index, ok := p.parseExpression()
			if !ok || !p.expectOp("]") {
				return nil, false
			}
			if literal, ok := index.(style.Int); ok {
				selector.Path = append(selector.Path, style.ExactStep(state.Index(literal.V)))
			} else {
				selector.Path = append(selector.Path, style.DynIndexStep(index))
			}
		case t.typ == tokExtra:
			p.next()
			extra := ""
			if p.cur().isOp("(") {
				p.next()
				name := p.cur()
				if name.typ != tokIdent {
					p.reportUnexpected(name)
					return nil, false
				}
				p.next()
				if !p.expectOp(")") {
					return nil, false
				}
				extra = name.text
			}
			selector.Extra = &extra
			return selector, true
		default:
			return selector, true
		}
	}
}
