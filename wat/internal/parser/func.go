package parser

import (
	"fmt"
	"strings"

	"github.com/jasonwyatt/wasmkit/wasm"
	"github.com/jasonwyatt/wasmkit/wat/internal/token"
)

// parseFunc reads a (func ...) module field: an optional name, an
// optional inline (export "name"), an optional (import "m" "n") making it
// an import instead of a definition, its type (inline param/result and/or
// a (type $t) reference), its locals, and its body.
func (p *Parser) parseFunc() error {
	var name string
	localMap := make(map[string]uint32)
	var localIdx uint32
	ft := wasm.FuncType{}
	haveType := false
	var locals []wasm.LocalEntry
	var code []wasm.Instruction

	if t := p.peek(); t != nil && t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		name = t.Value
		p.next()
	}

	// Inline (export "name") clauses, zero or more.
	var inlineExports []string
	for {
		t := p.peek()
		if t == nil || t.Type != token.LParen || p.peekAt(1) == nil || p.peekAt(1).Value != "export" {
			break
		}
		p.next()
		p.next()
		exp, err := p.expect(token.String)
		if err != nil {
			return err
		}
		inlineExports = append(inlineExports, exp.Value)
		if _, err := p.expect(token.RParen); err != nil {
			return err
		}
	}

	// Inline (import "m" "n") makes this a function import rather than a
	// definition.
	if t := p.peek(); t != nil && t.Type == token.LParen && p.peekAt(1) != nil && p.peekAt(1).Value == "import" {
		p.next()
		p.next()
		modName, err := p.expect(token.String)
		if err != nil {
			return err
		}
		fieldName, err := p.expect(token.String)
		if err != nil {
			return err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return err
		}
		sig, err := p.parseFuncTypeBody()
		if err != nil {
			return err
		}
		typeIdx := p.findOrAddType(sig)
		idx := uint32(p.mod.NumImportedFuncs())
		p.mod.Imports = append(p.mod.Imports, wasm.Import{
			Module: modName.Value,
			Name:   fieldName.Value,
			Desc:   wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: typeIdx},
		})
		if name != "" {
			p.funcMap[name] = idx
			p.mod.FuncNames[name] = idx
		}
		for _, exp := range inlineExports {
			p.mod.Exports = append(p.mod.Exports, wasm.Export{Name: exp, Kind: wasm.KindFunc, Idx: idx})
		}
		if _, err := p.expect(token.RParen); err != nil {
			return err
		}
		return nil
	}

	// Optional (type $t) reference. When present it alone supplies the
	// signature: inline (param ...)/(result ...) forms after it are not
	// accepted, and its params get no local names.
	if t := p.peek(); t != nil && t.Type == token.LParen && p.peekAt(1) != nil && p.peekAt(1).Value == "type" {
		p.next()
		p.next()
		idx, err := p.parseIdx(p.typeMap)
		if err != nil {
			return err
		}
		if int(idx) < len(p.mod.Types) {
			ft = p.mod.Types[idx]
			localIdx = uint32(len(ft.Params))
		}
		haveType = true
		if _, err := p.expect(token.RParen); err != nil {
			return err
		}
	}

	if !haveType {
		sig, err := p.parseFuncTypeBodyNamed(localMap)
		if err != nil {
			return err
		}
		ft = sig
		localIdx = uint32(len(ft.Params))
	}

	funcIdx := uint32(p.mod.NumFuncs())
	if name != "" {
		p.funcMap[name] = funcIdx
		p.mod.FuncNames[name] = funcIdx
	}
	for _, exp := range inlineExports {
		p.mod.Exports = append(p.mod.Exports, wasm.Export{Name: exp, Kind: wasm.KindFunc, Idx: funcIdx})
	}

	// Local declarations: zero or more (local [$x] t) or (local t t t ...).
	for {
		t := p.peek()
		if t == nil || t.Type != token.LParen || p.peekAt(1) == nil || p.peekAt(1).Value != "local" {
			break
		}
		p.next()
		p.next()
		if t2 := p.peek(); t2 != nil && t2.Type == token.Ident && strings.HasPrefix(t2.Value, "$") {
			lname := t2.Value
			p.next()
			vt, err := p.parseValType()
			if err != nil {
				return err
			}
			localMap[lname] = localIdx
			localIdx++
			locals = append(locals, wasm.LocalEntry{Count: 1, Type: vt})
		} else {
			for {
				pt := p.peek()
				if pt == nil || pt.Type == token.RParen {
					break
				}
				vt, err := p.parseValType()
				if err != nil {
					return err
				}
				locals = append(locals, wasm.LocalEntry{Count: 1, Type: vt})
				localIdx++
			}
		}
		if _, err := p.expect(token.RParen); err != nil {
			return err
		}
	}

	body, err := p.parseInstrs(localMap)
	if err != nil {
		return fmt.Errorf("func %s: %w", name, err)
	}
	code = append(body, wasm.Instruction{Opcode: wasm.OpEnd})
	if err := wasm.ResolveBlockTargets(code); err != nil {
		return fmt.Errorf("func %s: %w", name, err)
	}

	typeIdx := p.findOrAddType(ft)
	p.mod.Funcs = append(p.mod.Funcs, typeIdx)
	p.mod.Code = append(p.mod.Code, wasm.FuncBody{Locals: locals, Code: code})

	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	return nil
}
