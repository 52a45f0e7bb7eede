package gdbmi

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var outputLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Ident", Pattern: `[a-zA-Z][a-zA-Z0-9_-]*`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Punct", Pattern: `[\^*,={}\[\]]`},
	{Name: "EOL", Pattern: `\r?\n`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

// recordAST is the top-level AST node for one output line.
type recordAST struct {
	Token  string         `parser:"@Number?"`
	Result *resultBodyAST `parser:"( '^' @@"`
	Exec   *execBodyAST   `parser:"| '*' @@ ) EOL?"`
}

type resultBodyAST struct {
	Class   string      `parser:"@Ident"`
	Results []*entryAST `parser:"( ',' @@ )*"`
}

type execBodyAST struct {
	Class   string      `parser:"@Ident"`
	Results []*entryAST `parser:"( ',' @@ )*"`
}

// entryAST: <key> = <value>
type entryAST struct {
	Key   string    `parser:"@Ident '='"`
	Value *valueAST `parser:"@@"`
}

// valueAST: a string constant, a tuple, or a list.
type valueAST struct {
	Str   *string   `parser:"  @String"`
	Tuple *tupleAST `parser:"| @@"`
	List  *listAST  `parser:"| @@"`
}

type tupleAST struct {
	Entries []*entryAST `parser:"'{' ( @@ ( ',' @@ )* )? '}'"`
}

type listAST struct {
	Items []*listItemAST `parser:"'[' ( @@ ( ',' @@ )* )? ']'"`
}

// listItemAST: lists may hold plain values or named entries.
type listItemAST struct {
	Entry *entryAST `parser:"  @@"`
	Value *valueAST `parser:"| @@"`
}

var recordParser = participle.MustBuild[recordAST](
	participle.Lexer(outputLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// ParseRecord parses a single line of GDB/MI output. Result records
// (`^`) and async-exec records (`*`) are supported.
func ParseRecord(input string) (*Record, error) {
	ast, err := recordParser.ParseString("", input)
	if err != nil {
		return nil, SyntaxError(input)
	}
	return convertRecord(ast, input)
}

func convertRecord(ast *recordAST, input string) (*Record, error) {
	switch {
	case ast.Result != nil:
		class := ResultClass(ast.Result.Class)
		switch class {
		case ClassDone, ClassRunning, ClassConnected, ClassError, ClassExit:
		default:
			return nil, SyntaxError(input)
		}
		results, err := convertEntries(ast.Result.Results)
		if err != nil {
			return nil, err
		}
		return &Record{Result: &ResultRecord{
			Token:   ast.Token,
			Class:   class,
			Results: results,
		}}, nil
	case ast.Exec != nil:
		class := AsyncExecClass(ast.Exec.Class)
		if class != ExecRunning && class != ExecStopped {
			return nil, SyntaxError(input)
		}
		results, err := convertEntries(ast.Exec.Results)
		if err != nil {
			return nil, err
		}
		return &Record{Exec: &AsyncExecRecord{
			Class:   class,
			Results: results,
		}}, nil
	default:
		return nil, SyntaxError(input)
	}
}

func convertEntries(entries []*entryAST) (Tuple, error) {
	tuple := make(Tuple, 0, len(entries))
	for _, e := range entries {
		value, err := convertValue(e.Value)
		if err != nil {
			return nil, err
		}
		tuple = append(tuple, Entry{Key: e.Key, Value: value})
	}
	return tuple, nil
}

func convertValue(ast *valueAST) (Value, error) {
	switch {
	case ast.Str != nil:
		unescaped, err := unescape(*ast.Str)
		if err != nil {
			return Value{}, err
		}
		return ConstVal(unescaped), nil
	case ast.Tuple != nil:
		tuple, err := convertEntries(ast.Tuple.Entries)
		if err != nil {
			return Value{}, err
		}
		return TupleVal(tuple), nil
	case ast.List != nil:
		return convertList(ast.List)
	default:
		return Value{}, BadValueType()
	}
}

func convertList(ast *listAST) (Value, error) {
	if len(ast.Items) == 0 {
		return ListVal(nil), nil
	}
	if ast.Items[0].Entry != nil {
		// Named items make this a tuple list. Mixing named and plain
		// items in one list is not valid output.
		entries := make([]*entryAST, 0, len(ast.Items))
		for _, item := range ast.Items {
			if item.Entry == nil {
				return Value{}, BadValueType()
			}
			entries = append(entries, item.Entry)
		}
		tuple, err := convertEntries(entries)
		if err != nil {
			return Value{}, err
		}
		return TupleListVal(tuple), nil
	}
	values := make([]Value, 0, len(ast.Items))
	for _, item := range ast.Items {
		if item.Value == nil {
			return Value{}, BadValueType()
		}
		value, err := convertValue(item.Value)
		if err != nil {
			return Value{}, err
		}
		values = append(values, value)
	}
	return ListVal(values), nil
}

// unescape resolves C-style escapes in a double-quoted literal.
// Bytes above 0x7F are rejected; GDB/MI payloads are ASCII.
func unescape(quoted string) (string, error) {
	if len(quoted) < 2 || quoted[0] != '"' || quoted[len(quoted)-1] != '"' {
		return "", BadValue(quoted)
	}
	s := quoted[1 : len(quoted)-1]
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c > 0x7F {
			return "", BadValue(quoted)
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", BadValue(quoted)
		}
		switch s[i] {
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'v':
			b.WriteByte('\v')
		case 'f':
			b.WriteByte('\f')
		case 'r':
			b.WriteByte('\r')
		case '"':
			b.WriteByte('"')
		case '\'':
			b.WriteByte('\'')
		case '\\':
			b.WriteByte('\\')
		case 'x':
			if i+2 >= len(s) {
				return "", BadValue(quoted)
			}
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil || v > 0x7F {
				return "", BadValue(quoted)
			}
			b.WriteByte(byte(v))
			i += 2
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := 0
			digits := 0
			for i < len(s) && digits < 3 && s[i] >= '0' && s[i] <= '7' {
				v = v*8 + int(s[i]-'0')
				i++
				digits++
			}
			i--
			if v > 0x7F {
				return "", BadValue(quoted)
			}
			b.WriteByte(byte(v))
		default:
			return "", BadValue(quoted)
		}
	}
	return b.String(), nil
}
