package dsl

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Token vocabulary of the stylesheet language. Rules are tried in
// order; the Bad* rules turn common mistakes into recoverable errors
// instead of aborting the lexer.
var sheetLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "BlockComment", Pattern: `/\*[^*]*\*+([^/*][^*]*\*+)*/`},
	{Name: "BadBlockComment", Pattern: `(?s)/\*.*`},
	{Name: "LineComment", Pattern: `//[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "EdgeKw", Pattern: `::edge`},
	{Name: "ExtraKw", Pattern: `::extra`},
	{Name: "RootKw", Pattern: `::`},
	{Name: "IfKw", Pattern: `\.if`},
	{Name: "ManyKw", Pattern: `\.many`},
	{Name: "AltKw", Pattern: `\.alt`},
	{Name: "Quoted", Pattern: `"[^"\n]*"`},
	{Name: "BadQuoted", Pattern: `"[^"\n]*`},
	{Name: "BadNumber", Pattern: `\d+[a-zA-Z][a-zA-Z\d]*`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Ident", Pattern: `-*[a-zA-Z][a-zA-Z\d\-]*`},
	{Name: "BadIdent", Pattern: `-{2,}`},
	{Name: "Op2", Pattern: `==|!=|<=|>=|&&|\|\|`},
	{Name: "Op", Pattern: `[+\-!*/%<>?@;:,{}()\[\]#]`},
	{Name: "Unknown", Pattern: `.`},
})

// tokenType identifies the tokens the parser consumes.
type tokenType int

const (
	tokEOF tokenType = iota
	tokErr // a lexical error carried in the stream
	tokIdent
	tokQuoted
	tokInt
	tokRoot  // ::
	tokEdge  // ::edge
	tokExtra // ::extra
	tokIf    // .if
	tokMany  // .many
	tokAlt   // .alt
	tokOp    // operators and delimiters, identified by their text
)

// token is one unit of parser input, with its source line.
type token struct {
	typ  tokenType
	text string
	num  uint64 // tokInt only
	err  error  // tokErr only
	line int
}

// isOp tests an operator/delimiter token against its spelling.
func (t token) isOp(text string) bool {
	return t.typ == tokOp && t.text == text
}

// tokenize runs the lexer over a source string. Trivia is dropped;
// lexical errors stay in the stream as tokErr tokens so the parser
// reports them in source order through its shared error filter. The
// returned slice is terminated by a tokEOF token.
func tokenize(source string) []token {
	symbols := sheetLexer.Symbols()
	names := make(map[lexer.TokenType]string, len(symbols))
	for name, typ := range symbols {
		names[typ] = name
	}

	var tokens []token
	line := 1
	lex, err := sheetLexer.LexString("", source)
	if err != nil {
		tokens = append(tokens, token{typ: tokErr, err: ErrUnknownCharacter, line: line})
		return append(tokens, token{typ: tokEOF, line: line})
	}
	for {
		raw, err := lex.Next()
		if err != nil {
			tokens = append(tokens, token{typ: tokErr, err: ErrUnknownCharacter, line: line})
			break
		}
		if raw.EOF() {
			break
		}
		line = raw.Pos.Line
		switch names[raw.Type] {
		case "Whitespace", "LineComment", "BlockComment":
			// Trivia; a block comment may span lines, which the
			// position of the next token accounts for.
		case "BadBlockComment":
			tokens = append(tokens, token{typ: tokErr, err: ErrUnterminatedComment, line: line})
		case "BadQuoted":
			tokens = append(tokens, token{typ: tokErr, err: ErrUnterminatedString, line: line})
		case "BadNumber":
			tokens = append(tokens, token{typ: tokErr, err: ErrBadInteger, line: line})
		case "BadIdent":
			tokens = append(tokens, token{typ: tokErr, err: ErrInvalidIdentifier, line: line})
		case "Unknown":
			tokens = append(tokens, token{typ: tokErr, err: ErrUnknownCharacter, line: line})
		case "Ident":
			tokens = append(tokens, token{typ: tokIdent, text: raw.Value, line: line})
		case "Quoted":
			tokens = append(tokens, token{
				typ:  tokQuoted,
				text: strings.TrimSuffix(strings.TrimPrefix(raw.Value, `"`), `"`),
				line: line,
			})
		case "Int":
			value, err := strconv.ParseUint(raw.Value, 10, 64)
			if err != nil {
				tokens = append(tokens, token{typ: tokErr, err: ErrBadInteger, line: line})
				continue
			}
			tokens = append(tokens, token{typ: tokInt, text: raw.Value, num: value, line: line})
		case "RootKw":
			tokens = append(tokens, token{typ: tokRoot, text: raw.Value, line: line})
		case "EdgeKw":
			tokens = append(tokens, token{typ: tokEdge, text: raw.Value, line: line})
		case "ExtraKw":
			tokens = append(tokens, token{typ: tokExtra, text: raw.Value, line: line})
		case "IfKw":
			tokens = append(tokens, token{typ: tokIf, text: raw.Value, line: line})
		case "ManyKw":
			tokens = append(tokens, token{typ: tokMany, text: raw.Value, line: line})
		case "AltKw":
			tokens = append(tokens, token{typ: tokAlt, text: raw.Value, line: line})
		default:
			tokens = append(tokens, token{typ: tokOp, text: raw.Value, line: line})
		}
	}
	return append(tokens, token{typ: tokEOF, line: line})
}
