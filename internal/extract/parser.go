package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Parser is the structural extractor. It understands class declarations
// with inheritance, forward declarations, nested classes, scalar and
// array properties, comments and preprocessor lines.
type Parser struct{}

// NewParser creates a structural parser.
func NewParser() *Parser {
	return &Parser{}
}

// Name implements Extractor.
func (p *Parser) Name() string { return "parser" }

// Extract implements Extractor. Cancellation of ctx is checked before
// every class declaration and aborts with ctx.Err().
func (p *Parser) Extract(ctx context.Context, text string) ([]*Entity, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &parseState{ctx: ctx, src: strings.TrimPrefix(text, "\ufeff")}
	return s.parseFile()
}

// MaxNestingDepth bounds nested class bodies and arrays combined.
const MaxNestingDepth = 512

type parseState struct {
	ctx   context.Context
	src   string
	pos   int
	depth int
}

// nest enters one level of nesting opened at the given offset.
func (s *parseState) nest(at int) error {
	if s.depth >= MaxNestingDepth {
		return s.errorf(at, "nesting too deep (limit %d)", MaxNestingDepth)
	}
	s.depth++
	return nil
}

func (s *parseState) eof() bool { return s.pos >= len(s.src) }

func (s *parseState) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *parseState) peekAt(n int) byte {
	if s.pos+n >= len(s.src) {
		return 0
	}
	return s.src[s.pos+n]
}

func (s *parseState) errorf(at int, format string, args ...any) *ParseError {
	line, col := position(s.src, at)
	return &ParseError{Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
}

// found describes the byte at the cursor for error messages.
func (s *parseState) found() string {
	if s.eof() {
		return "end of input"
	}
	r, _ := utf8.DecodeRuneInString(s.src[s.pos:])
	return fmt.Sprintf("%q", r)
}

func position(src string, at int) (line, col int) {
	if at > len(src) {
		at = len(src)
	}
	head := src[:at]
	line = 1 + strings.Count(head, "\n")
	lineStart := strings.LastIndexByte(head, '\n') + 1
	col = utf8.RuneCountInString(head[lineStart:]) + 1
	return line, col
}

func (s *parseState) parseFile() ([]*Entity, error) {
	var out []*Entity
	for {
		if err := s.skipSpace(); err != nil {
			return nil, err
		}
		if s.eof() {
			return out, nil
		}
		if s.peek() == '}' {
			return nil, s.errorf(s.pos, "unexpected '}'")
		}
		// Top-level properties carry no class and are dropped.
		entity, _, err := s.parseStatement()
		if err != nil {
			return nil, err
		}
		if entity != nil {
			out = append(out, entity)
		}
	}
}

// parseBody reads statements up to and including the closing brace.
func (s *parseState) parseBody(e *Entity, open int) error {
	for {
		if err := s.skipSpace(); err != nil {
			return err
		}
		if s.eof() {
			return s.errorf(open, "unterminated body of class %s", e.Name)
		}
		if s.peek() == '}' {
			s.pos++
			return nil
		}
		child, prop, err := s.parseStatement()
		if err != nil {
			return err
		}
		if child != nil {
			e.Properties = append(e.Properties, Property{Key: child.Name, Value: ClassValue(child)})
		}
		if prop != nil {
			e.Properties = append(e.Properties, *prop)
		}
	}
}

func (s *parseState) parseStatement() (*Entity, *Property, error) {
	start := s.pos
	if s.peek() == ';' {
		s.pos++
		return nil, nil, nil
	}

	word := s.ident()
	if word == "" {
		return nil, nil, s.errorf(start, "unexpected %s", s.found())
	}

	switch word {
	case "class":
		e, err := s.parseClass()
		return e, nil, err
	case "delete":
		return nil, nil, s.parseDelete()
	case "enum":
		return nil, nil, s.skipEnum()
	}

	prop, err := s.parseProperty(word)
	return nil, prop, err
}

func (s *parseState) parseClass() (*Entity, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.skipSpace(); err != nil {
		return nil, err
	}

	nameAt := s.pos
	name := s.ident()
	if name == "" {
		return nil, s.errorf(nameAt, "expected class name, found %s", s.found())
	}
	e := &Entity{Name: name}

	if err := s.skipSpace(); err != nil {
		return nil, err
	}
	if s.peek() == ':' {
		s.pos++
		if err := s.skipSpace(); err != nil {
			return nil, err
		}
		parentAt := s.pos
		e.Parent = s.ident()
		if e.Parent == "" {
			return nil, s.errorf(parentAt, "expected parent class name after %s:, found %s", name, s.found())
		}
		if err := s.skipSpace(); err != nil {
			return nil, err
		}
	}

	switch s.peek() {
	case ';':
		s.pos++
		return e, nil
	case '{':
		open := s.pos
		if err := s.nest(open); err != nil {
			return nil, err
		}
		s.pos++
		err := s.parseBody(e, open)
		s.depth--
		if err != nil {
			return nil, err
		}
		if err := s.skipSpace(); err != nil {
			return nil, err
		}
		// The trailing semicolon is optional.
		if s.peek() == ';' {
			s.pos++
		}
		return e, nil
	default:
		return nil, s.errorf(s.pos, "expected '{' or ';' after class %s, found %s", name, s.found())
	}
}

func (s *parseState) parseDelete() error {
	if err := s.skipSpace(); err != nil {
		return err
	}
	at := s.pos
	if s.ident() == "" {
		return s.errorf(at, "expected class name after delete, found %s", s.found())
	}
	return s.expect(';', "after delete")
}

// skipEnum consumes an enum block; its constants are not class data.
func (s *parseState) skipEnum() error {
	if err := s.skipSpace(); err != nil {
		return err
	}
	open := s.pos
	if s.peek() != '{' {
		return s.errorf(s.pos, "expected '{' after enum, found %s", s.found())
	}
	end := strings.IndexByte(s.src[s.pos:], '}')
	if end < 0 {
		return s.errorf(open, "unterminated enum")
	}
	s.pos += end + 1
	if err := s.skipSpace(); err != nil {
		return err
	}
	if s.peek() == ';' {
		s.pos++
	}
	return nil
}

func (s *parseState) parseProperty(key string) (*Property, error) {
	if err := s.skipSpace(); err != nil {
		return nil, err
	}
	if s.peek() == '[' {
		s.pos++
		if err := s.expect(']', "in array property "+key); err != nil {
			return nil, err
		}
		if err := s.skipSpace(); err != nil {
			return nil, err
		}
	}

	switch {
	case s.peek() == '=':
		s.pos++
	case s.peek() == '+' && s.peekAt(1) == '=':
		s.pos += 2
	default:
		return nil, s.errorf(s.pos, "expected '=' after %s, found %s", key, s.found())
	}

	if err := s.skipSpace(); err != nil {
		return nil, err
	}

	var (
		v   Value
		err error
	)
	if s.peek() == '{' {
		v, err = s.parseArray()
	} else {
		v, err = s.parseScalar(key)
	}
	if err != nil {
		return nil, err
	}

	if err := s.expect(';', "after value of "+key); err != nil {
		return nil, err
	}
	return &Property{Key: key, Value: v}, nil
}

func (s *parseState) parseScalar(key string) (Value, error) {
	start := s.pos
	raw, err := s.capture(";}")
	if err != nil {
		return Value{}, err
	}
	if raw == "" {
		return Value{}, s.errorf(start, "missing value for %s", key)
	}
	return classify(raw), nil
}

func (s *parseState) parseArray() (Value, error) {
	open := s.pos
	if err := s.nest(open); err != nil {
		return Value{}, err
	}
	defer func() { s.depth-- }()
	s.pos++ // '{'
	var elems []Value

	for {
		if err := s.skipSpace(); err != nil {
			return Value{}, err
		}
		if s.eof() {
			return Value{}, s.errorf(open, "unterminated array")
		}
		if s.peek() == '}' {
			s.pos++
			return Array(elems...), nil
		}

		var v Value
		if s.peek() == '{' {
			nested, err := s.parseArray()
			if err != nil {
				return Value{}, err
			}
			v = nested
		} else {
			start := s.pos
			raw, err := s.capture(",};")
			if err != nil {
				return Value{}, err
			}
			if raw == "" {
				return Value{}, s.errorf(start, "empty array element")
			}
			v = classify(raw)
		}
		elems = append(elems, v)

		if err := s.skipSpace(); err != nil {
			return Value{}, err
		}
		if s.eof() {
			return Value{}, s.errorf(open, "unterminated array")
		}
		switch s.peek() {
		case ',':
			s.pos++
		case '}':
		default:
			return Value{}, s.errorf(s.pos, "expected ',' or '}' in array, found %s", s.found())
		}
	}
}

// capture returns the trimmed raw text up to the first stop byte found
// outside quotes and parentheses. The cursor is left on the stop byte.
func (s *parseState) capture(stops string) (string, error) {
	start := s.pos
	depth := 0
	for !s.eof() {
		c := s.src[s.pos]
		if c == '"' || c == '\'' {
			if err := s.skipString(); err != nil {
				return "", err
			}
			continue
		}
		if depth == 0 && strings.IndexByte(stops, c) >= 0 {
			break
		}
		switch c {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		}
		s.pos++
	}
	return strings.TrimSpace(s.src[start:s.pos]), nil
}

// skipString moves past a quoted literal. A doubled quote is an escaped quote.
func (s *parseState) skipString() error {
	open := s.pos
	q := s.src[s.pos]
	s.pos++
	for !s.eof() {
		c := s.src[s.pos]
		switch {
		case c == q && s.peekAt(1) == q:
			s.pos += 2
		case c == q:
			s.pos++
			return nil
		case c == '\n':
			return s.errorf(open, "unterminated string")
		default:
			s.pos++
		}
	}
	return s.errorf(open, "unterminated string")
}

func (s *parseState) expect(c byte, where string) error {
	if err := s.skipSpace(); err != nil {
		return err
	}
	if s.peek() != c {
		return s.errorf(s.pos, "expected '%c' %s, found %s", c, where, s.found())
	}
	s.pos++
	return nil
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (s *parseState) ident() string {
	start := s.pos
	for !s.eof() && isIdentByte(s.src[s.pos]) {
		s.pos++
	}
	return s.src[start:s.pos]
}

// skipSpace skips whitespace, comments and preprocessor directives.
func (s *parseState) skipSpace() error {
	for !s.eof() {
		c := s.src[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v':
			s.pos++
		case c == '/' && s.peekAt(1) == '/':
			s.skipLine()
		case c == '/' && s.peekAt(1) == '*':
			end := strings.Index(s.src[s.pos+2:], "*/")
			if end < 0 {
				return s.errorf(s.pos, "unterminated block comment")
			}
			s.pos += end + 4
		case c == '#' && s.atLineStart():
			s.skipDirective()
		default:
			return nil
		}
	}
	return nil
}

func (s *parseState) skipLine() {
	if i := strings.IndexByte(s.src[s.pos:], '\n'); i >= 0 {
		s.pos += i + 1
		return
	}
	s.pos = len(s.src)
}

// skipDirective consumes a preprocessor line including backslash continuations.
func (s *parseState) skipDirective() {
	for !s.eof() {
		c := s.src[s.pos]
		if c == '\\' {
			next := s.peekAt(1)
			if next == '\n' {
				s.pos += 2
				continue
			}
			if next == '\r' && s.peekAt(2) == '\n' {
				s.pos += 3
				continue
			}
		}
		s.pos++
		if c == '\n' {
			return
		}
	}
}

func (s *parseState) atLineStart() bool {
	for i := s.pos - 1; i >= 0; i-- {
		switch s.src[i] {
		case ' ', '\t':
			continue
		case '\n':
			return true
		default:
			return false
		}
	}
	return true
}
