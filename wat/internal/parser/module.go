package parser

import (
	"fmt"
	"strings"

	"github.com/jasonwyatt/wasmkit/wasm"
	"github.com/jasonwyatt/wasmkit/wat/internal/token"
)

func (p *Parser) parseModule() (*wasm.Module, error) {
	p.mod = &wasm.Module{
		FuncNames:   map[string]uint32{},
		TypeNames:   map[string]uint32{},
		TableNames:  map[string]uint32{},
		MemNames:    map[string]uint32{},
		GlobalNames: map[string]uint32{},
	}

	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	if _, err := p.expectIdentValue("module"); err != nil {
		return nil, err
	}

	// Optional module name.
	if t := p.peek(); t != nil && t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		p.next()
	}

	for {
		t := p.peek()
		if t == nil {
			return nil, fmt.Errorf("unexpected end of input in module")
		}
		if t.Type == token.RParen {
			p.next()
			break
		}
		if err := p.parseModuleField(); err != nil {
			return nil, err
		}
	}

	return p.mod, nil
}

func (p *Parser) parseModuleField() error {
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	kw, err := p.expect(token.Ident)
	if err != nil {
		return err
	}

	switch kw.Value {
	case "type":
		return p.parseTypeField()
	case "import":
		return p.parseImportField()
	case "func":
		return p.parseFunc()
	case "table":
		return p.parseTableField()
	case "memory":
		return p.parseMemoryField()
	case "global":
		return p.parseGlobalField()
	case "export":
		return p.parseExportField()
	case "start":
		return p.parseStartField()
	case "elem":
		return p.parseElemField()
	case "data":
		return p.parseDataField()
	default:
		// Unknown/unsupported top-level form: skip it rather than fail
		// the whole module.
		depth := 1
		for depth > 0 {
			t := p.next()
			if t == nil {
				return fmt.Errorf("unexpected end of input while skipping %q", kw.Value)
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
}

func (p *Parser) parseTypeField() error {
	var name string
	if t := p.peek(); t != nil && t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		name = t.Value
		p.next()
	}
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	if _, err := p.expectIdentValue("func"); err != nil {
		return err
	}
	ft, err := p.parseFuncTypeBody()
	if err != nil {
		return err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	idx := uint32(len(p.mod.Types))
	p.mod.Types = append(p.mod.Types, ft)
	if name != "" {
		p.typeMap[name] = idx
		p.mod.TypeNames[name] = idx
	}
	return nil
}

// parseFuncTypeBodyNamed reads zero or more (param ...) then (result ...)
// clauses, tracking named params in localMap if non-nil.
func (p *Parser) parseFuncTypeBodyNamed(localMap map[string]uint32) (wasm.FuncType, error) {
	var ft wasm.FuncType
	var localIdx uint32
	for {
		t := p.peek()
		if t == nil || t.Type != token.LParen {
			break
		}
		next := p.peekAt(1)
		if next == nil || next.Type != token.Ident {
			break
		}
		switch next.Value {
		case "param":
			p.next()
			p.next()
			if t2 := p.peek(); t2 != nil && t2.Type == token.Ident && strings.HasPrefix(t2.Value, "$") {
				name := t2.Value
				p.next()
				vt, err := p.parseValType()
				if err != nil {
					return ft, err
				}
				ft.Params = append(ft.Params, vt)
				if localMap != nil {
					localMap[name] = localIdx
				}
				localIdx++
			} else {
				for {
					pt := p.peek()
					if pt == nil || pt.Type == token.RParen {
						break
					}
					vt, err := p.parseValType()
					if err != nil {
						return ft, err
					}
					ft.Params = append(ft.Params, vt)
					localIdx++
				}
			}
			if _, err := p.expect(token.RParen); err != nil {
				return ft, err
			}
		case "result":
			p.next()
			p.next()
			for {
				pt := p.peek()
				if pt == nil || pt.Type == token.RParen {
					break
				}
				vt, err := p.parseValType()
				if err != nil {
					return ft, err
				}
				ft.Results = append(ft.Results, vt)
			}
			if _, err := p.expect(token.RParen); err != nil {
				return ft, err
			}
		default:
			return ft, nil
		}
	}
	return ft, nil
}

func (p *Parser) parseFuncTypeBody() (wasm.FuncType, error) {
	return p.parseFuncTypeBodyNamed(nil)
}

func (p *Parser) parseLimits() (wasm.Limits, error) {
	min, err := p.parseU32()
	if err != nil {
		return wasm.Limits{}, err
	}
	lim := wasm.Limits{Min: min}
	if t := p.peek(); t != nil && t.Type == token.Number {
		max, err := p.parseU32()
		if err != nil {
			return lim, err
		}
		lim.Max = &max
	}
	return lim, nil
}

func (p *Parser) parseImportField() error {
	modName, err := p.expect(token.String)
	if err != nil {
		return err
	}
	fieldName, err := p.expect(token.String)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	descKw, err := p.expect(token.Ident)
	if err != nil {
		return err
	}

	var name string
	if t := p.peek(); t != nil && t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		name = t.Value
		p.next()
	}

	imp := wasm.Import{Module: modName.Value, Name: fieldName.Value}

	switch descKw.Value {
	case "func":
		var typeIdx uint32
		haveType := false
		if t := p.peek(); t != nil && t.Type == token.LParen && p.peekAt(1) != nil && p.peekAt(1).Value == "type" {
			p.next()
			p.next()
			idx, err := p.parseIdx(p.typeMap)
			if err != nil {
				return err
			}
			typeIdx = idx
			haveType = true
			if _, err := p.expect(token.RParen); err != nil {
				return err
			}
		}
		ft, err := p.parseFuncTypeBody()
		if err != nil {
			return err
		}
		if !haveType {
			typeIdx = p.findOrAddType(ft)
		}
		imp.Desc = wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: typeIdx}
		idx := uint32(p.mod.NumImportedFuncs())
		p.mod.Imports = append(p.mod.Imports, imp)
		if name != "" {
			p.funcMap[name] = idx
		}

	case "table":
		lim, err := p.parseLimits()
		if err != nil {
			return err
		}
		et, err := p.parseValType()
		if err != nil {
			return err
		}
		tt := wasm.TableType{Limits: lim, ElemType: et}
		imp.Desc = wasm.ImportDesc{Kind: wasm.KindTable, Table: &tt}
		p.mod.Imports = append(p.mod.Imports, imp)
		if name != "" {
			p.tableMap[name] = uint32(p.mod.NumImportedTables() - 1)
		}

	case "memory":
		lim, err := p.parseLimits()
		if err != nil {
			return err
		}
		mt := wasm.MemoryType{Limits: lim}
		imp.Desc = wasm.ImportDesc{Kind: wasm.KindMemory, Memory: &mt}
		p.mod.Imports = append(p.mod.Imports, imp)
		if name != "" {
			p.memMap[name] = uint32(p.mod.NumImportedMemories() - 1)
		}

	case "global":
		gt, err := p.parseGlobalType()
		if err != nil {
			return err
		}
		imp.Desc = wasm.ImportDesc{Kind: wasm.KindGlobal, Global: &gt}
		p.mod.Imports = append(p.mod.Imports, imp)
		if name != "" {
			p.globalMap[name] = uint32(p.mod.NumImportedGlobals() - 1)
		}

	default:
		return fmt.Errorf("unknown import desc %q", descKw.Value)
	}

	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	return nil
}

func (p *Parser) parseGlobalType() (wasm.GlobalType, error) {
	if t := p.peek(); t != nil && t.Type == token.LParen {
		p.next()
		if _, err := p.expectIdentValue("mut"); err != nil {
			return wasm.GlobalType{}, err
		}
		vt, err := p.parseValType()
		if err != nil {
			return wasm.GlobalType{}, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return wasm.GlobalType{}, err
		}
		return wasm.GlobalType{Val: vt, Mutable: true}, nil
	}
	vt, err := p.parseValType()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	return wasm.GlobalType{Val: vt}, nil
}

func (p *Parser) parseTableField() error {
	var name string
	if t := p.peek(); t != nil && t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		name = t.Value
		p.next()
	}
	lim, err := p.parseLimits()
	if err != nil {
		return err
	}
	et, err := p.parseValType()
	if err != nil {
		return err
	}
	idx := uint32(p.mod.NumTables())
	p.mod.Tables = append(p.mod.Tables, wasm.TableType{Limits: lim, ElemType: et})
	if name != "" {
		p.tableMap[name] = idx
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	return nil
}

func (p *Parser) parseMemoryField() error {
	var name string
	if t := p.peek(); t != nil && t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		name = t.Value
		p.next()
	}
	lim, err := p.parseLimits()
	if err != nil {
		return err
	}
	idx := uint32(p.mod.NumMemories())
	p.mod.Memories = append(p.mod.Memories, wasm.MemoryType{Limits: lim})
	if name != "" {
		p.memMap[name] = idx
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	return nil
}

func (p *Parser) parseGlobalField() error {
	var name string
	if t := p.peek(); t != nil && t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		name = t.Value
		p.next()
	}
	gt, err := p.parseGlobalType()
	if err != nil {
		return err
	}
	init, err := p.parseInstrs(nil)
	if err != nil {
		return err
	}
	init = append(init, wasm.Instruction{Opcode: wasm.OpEnd})
	idx := uint32(p.mod.NumGlobals())
	p.mod.Globals = append(p.mod.Globals, wasm.Global{Type: gt, Init: init})
	if name != "" {
		p.globalMap[name] = idx
		p.mod.GlobalNames[name] = idx
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	return nil
}

func (p *Parser) parseExportField() error {
	nameTok, err := p.expect(token.String)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	kindTok, err := p.expect(token.Ident)
	if err != nil {
		return err
	}
	var kind wasm.ExternKind
	var idxMap map[string]uint32
	switch kindTok.Value {
	case "func":
		kind = wasm.KindFunc
		idxMap = p.funcMap
	case "table":
		kind = wasm.KindTable
		idxMap = p.tableMap
	case "memory":
		kind = wasm.KindMemory
		idxMap = p.memMap
	case "global":
		kind = wasm.KindGlobal
		idxMap = p.globalMap
	default:
		return fmt.Errorf("unknown export desc %q", kindTok.Value)
	}
	idx, err := p.parseIdx(idxMap)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	p.mod.Exports = append(p.mod.Exports, wasm.Export{Name: nameTok.Value, Kind: kind, Idx: idx})
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	return nil
}

func (p *Parser) parseStartField() error {
	idx, err := p.parseIdx(p.funcMap)
	if err != nil {
		return err
	}
	p.mod.Start = &idx
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	return nil
}

func (p *Parser) parseElemField() error {
	tableIdx := uint32(0)
	if t := p.peek(); t != nil && t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		idx, err := p.parseIdx(p.tableMap)
		if err != nil {
			return err
		}
		tableIdx = idx
	} else if t != nil && t.Type == token.Number {
		idx, err := p.parseU32()
		if err != nil {
			return err
		}
		tableIdx = idx
	}

	var offset []wasm.Instruction
	if t := p.peek(); t != nil && t.Type == token.LParen && p.peekAt(1) != nil && p.peekAt(1).Value == "offset" {
		p.next()
		p.next()
		off, err := p.parseInstrs(nil)
		if err != nil {
			return err
		}
		offset = append(off, wasm.Instruction{Opcode: wasm.OpEnd})
		if _, err := p.expect(token.RParen); err != nil {
			return err
		}
	} else {
		off, err := p.parseFoldedOperands(nil)
		if err != nil {
			return err
		}
		offset = append(off, wasm.Instruction{Opcode: wasm.OpEnd})
	}

	var funcs []uint32
	for {
		t := p.peek()
		if t == nil || t.Type == token.RParen {
			break
		}
		idx, err := p.parseIdx(p.funcMap)
		if err != nil {
			return err
		}
		funcs = append(funcs, idx)
	}

	p.mod.Elements = append(p.mod.Elements, wasm.Element{TableIdx: tableIdx, Offset: offset, Funcs: funcs})
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	return nil
}

func (p *Parser) parseDataField() error {
	memIdx := uint32(0)
	if t := p.peek(); t != nil && t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		idx, err := p.parseIdx(p.memMap)
		if err != nil {
			return err
		}
		memIdx = idx
	} else if t != nil && t.Type == token.Number {
		idx, err := p.parseU32()
		if err != nil {
			return err
		}
		memIdx = idx
	}

	var offset []wasm.Instruction
	if t := p.peek(); t != nil && t.Type == token.LParen && p.peekAt(1) != nil && p.peekAt(1).Value == "offset" {
		p.next()
		p.next()
		off, err := p.parseInstrs(nil)
		if err != nil {
			return err
		}
		offset = append(off, wasm.Instruction{Opcode: wasm.OpEnd})
		if _, err := p.expect(token.RParen); err != nil {
			return err
		}
	} else {
		off, err := p.parseFoldedOperands(nil)
		if err != nil {
			return err
		}
		offset = append(off, wasm.Instruction{Opcode: wasm.OpEnd})
	}

	var data []byte
	for {
		t := p.peek()
		if t == nil || t.Type == token.RParen {
			break
		}
		str, err := p.expect(token.String)
		if err != nil {
			return err
		}
		data = append(data, DecodeStringLiteral(str.Value)...)
	}

	p.mod.Data = append(p.mod.Data, wasm.DataSegment{MemIdx: memIdx, Offset: offset, Bytes: data})
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	return nil
}
