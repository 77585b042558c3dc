// Package parser implements a recursive-descent reader for the WebAssembly
// text format, building a *wasm.Module directly rather than an
// intermediate AST.
package parser

import (
	"fmt"
	"strings"

	"github.com/jasonwyatt/wasmkit/wasm"
	"github.com/jasonwyatt/wasmkit/wat/internal/token"
)

// Parser consumes a token stream for one module and resolves symbolic
// $names against the index spaces they were declared in.
type Parser struct {
	mod *wasm.Module

	typeMap   map[string]uint32
	funcMap   map[string]uint32
	globalMap map[string]uint32
	memMap    map[string]uint32
	tableMap  map[string]uint32

	tokens []token.Token
	labels []string
	pos    int
}

// New returns a parser over tokens.
func New(tokens []token.Token) *Parser {
	return &Parser{
		tokens:    tokens,
		typeMap:   make(map[string]uint32),
		funcMap:   make(map[string]uint32),
		globalMap: make(map[string]uint32),
		memMap:    make(map[string]uint32),
		tableMap:  make(map[string]uint32),
	}
}

// Parse consumes the whole token stream as a single module.
func (p *Parser) Parse() (*wasm.Module, error) {
	return p.parseModule()
}

func (p *Parser) peek() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) *token.Token {
	if p.pos+offset >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos+offset]
}

func (p *Parser) next() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

func (p *Parser) expect(typ token.Type) (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of input, expected %v", typ)
	}
	if t.Type != typ {
		return nil, fmt.Errorf("line %d: expected %v, got %q", t.Line, typ, t.Value)
	}
	return t, nil
}

// skipParen consumes a single arbitrary parenthesized form, used to skip
// clauses this reduced parser does not interpret.
func (p *Parser) skipParen() error {
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		t := p.next()
		if t == nil {
			return fmt.Errorf("unexpected end of input while skipping form")
		}
		switch t.Type {
		case token.LParen:
			depth++
		case token.RParen:
			depth--
		}
	}
	return nil
}

func (p *Parser) pushLabel(name string) {
	p.labels = append(p.labels, name)
}

func (p *Parser) popLabel() {
	if len(p.labels) > 0 {
		p.labels = p.labels[:len(p.labels)-1]
	}
}

func (p *Parser) resolveLabel(name string) (uint32, bool) {
	for i := len(p.labels) - 1; i >= 0; i-- {
		if p.labels[i] == name {
			return uint32(len(p.labels) - 1 - i), true
		}
	}
	return 0, false
}

// parseLabel consumes an optional "$name" label on a block/loop/if.
func (p *Parser) parseLabel() string {
	t := p.peek()
	if t != nil && t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		p.next()
		return t.Value
	}
	return ""
}

func (p *Parser) parseValType() (wasm.ValType, error) {
	t, err := p.expect(token.Ident)
	if err != nil {
		return 0, err
	}
	switch t.Value {
	case "i32":
		return wasm.ValI32, nil
	case "i64":
		return wasm.ValI64, nil
	case "f32":
		return wasm.ValF32, nil
	case "f64":
		return wasm.ValF64, nil
	case "funcref":
		return wasm.ValFuncRef, nil
	case "externref":
		return wasm.ValExtern, nil
	default:
		return 0, fmt.Errorf("line %d: unknown value type %q", t.Line, t.Value)
	}
}

// parseIdx reads either a numeric index or a "$name" resolved via nameMap.
func (p *Parser) parseIdx(nameMap map[string]uint32) (uint32, error) {
	t := p.peek()
	if t == nil {
		return 0, fmt.Errorf("expected index, got end of input")
	}
	if t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		p.next()
		if idx, ok := nameMap[t.Value]; ok {
			return idx, nil
		}
		return 0, fmt.Errorf("line %d: unknown identifier %q", t.Line, t.Value)
	}
	return p.parseU32()
}

func (p *Parser) findOrAddType(ft wasm.FuncType) uint32 {
	return p.mod.AddType(ft)
}
