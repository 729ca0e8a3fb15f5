// Package extract turns the text of one config file into class entities.
//
// Two strategies implement Extractor: Parser understands the full
// class/property grammar and nesting; PatternScanner only recovers
// name and parent pairs with a regular expression. Callers must not
// depend on which one is in use.
package extract

import (
	"context"
	"fmt"
)

// ValueKind enumerates the closed set of property value variants.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindInteger
	KindBoolean
	KindArray
	KindReference
	KindExpression
	KindMacro
	KindClass
)

// String returns the lowercase variant name.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindArray:
		return "array"
	case KindReference:
		return "reference"
	case KindExpression:
		return "expression"
	case KindMacro:
		return "macro"
	case KindClass:
		return "class"
	default:
		return "unknown"
	}
}

// Value is a tagged union. Only the fields for Kind are meaningful:
//   - KindString: Text (unescaped)
//   - KindNumber: Num
//   - KindInteger: Int
//   - KindBoolean: Bool
//   - KindArray: Elems
//   - KindReference: Text (identifier)
//   - KindExpression: Text (raw source)
//   - KindMacro: Count and Text (macro argument)
//   - KindClass: Class
type Value struct {
	Kind  ValueKind
	Text  string
	Num   float64
	Int   int64
	Bool  bool
	Count int
	Elems []Value
	Class *Entity
}

// Constructors keep call sites short in the parser and in tests.

func String(s string) Value { return Value{Kind: KindString, Text: s} }
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func Integer(i int64) Value { return Value{Kind: KindInteger, Int: i} }
func Boolean(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }
func Array(elems ...Value) Value { return Value{Kind: KindArray, Elems: elems} }
func Reference(name string) Value { return Value{Kind: KindReference, Text: name} }
func Expression(raw string) Value { return Value{Kind: KindExpression, Text: raw} }
func Macro(count int, name string) Value {
	return Value{Kind: KindMacro, Count: count, Text: name}
}
func ClassValue(e *Entity) Value { return Value{Kind: KindClass, Class: e} }

// Property is one key/value pair in declaration order.
type Property struct {
	Key   string
	Value Value
}

// Entity is one class declaration. Name is empty for anonymous entities
// and Parent is empty when there is no inheritance clause. Nested classes
// appear as KindClass properties keyed by their name.
type Entity struct {
	Name       string
	Parent     string
	Properties []Property
}

// Children returns the nested class entities in declaration order.
func (e *Entity) Children() []*Entity {
	var out []*Entity
	for _, p := range e.Properties {
		if p.Value.Kind == KindClass && p.Value.Class != nil {
			out = append(out, p.Value.Class)
		}
	}
	return out
}

// Extractor converts one file's text into class entities.
type Extractor interface {
	// Name identifies the strategy in logs and statistics.
	Name() string

	// Extract returns top-level entities in source order. A failure
	// to interpret the text is reported as a *ParseError.
	Extract(ctx context.Context, text string) ([]*Entity, error)
}

// ParseError carries a human-readable location hint.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Line, e.Column)
}

// Location returns the "line L, column C" hint alone.
func (e *ParseError) Location() string {
	return fmt.Sprintf("line %d, column %d", e.Line, e.Column)
}

// ByName returns the extractor registered under name ("parser" or "pattern").
func ByName(name string) (Extractor, error) {
	switch name {
	case "", "parser":
		return NewParser(), nil
	case "pattern":
		return NewPatternScanner(), nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", name)
	}
}
