package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jasonwyatt/wasmkit/wasm"
	"github.com/jasonwyatt/wasmkit/wat/internal/token"
)

// parseInstrs reads a sequence of plain and folded instructions up to the
// next unmatched ')', flattening folded forms "(op a b)" into the
// postfix order a; b; op that the stack machine expects.
func (p *Parser) parseInstrs(localMap map[string]uint32) ([]wasm.Instruction, error) {
	var out []wasm.Instruction

	for {
		t := p.peek()
		if t == nil || t.Type == token.RParen {
			return out, nil
		}

		if t.Type == token.LParen {
			p.next()
			nameTok, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			instrs, err := p.parseOneInstr(nameTok.Value, nameTok.Line, localMap, true)
			if err != nil {
				return nil, err
			}
			out = append(out, instrs...)
			if _, err := p.expect(token.RParen); err != nil {
				return nil, err
			}
			continue
		}

		if t.Type != token.Ident {
			return nil, fmt.Errorf("line %d: expected instruction, got %q", t.Line, t.Value)
		}
		p.next()
		instrs, err := p.parseOneInstr(t.Value, t.Line, localMap, false)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	}
}

// parseOneInstr parses one instruction named by name. folded is true when
// it was read as "(name ...)"; its operands (and, for block/loop/if, its
// nested body) are read from the same parenthesized form and must be
// flattened into the returned slice in stack order.
func (p *Parser) parseOneInstr(name string, line int, localMap map[string]uint32, folded bool) ([]wasm.Instruction, error) {
	switch name {
	case "block", "loop":
		return p.parseBlockLike(name, localMap, folded)
	case "if":
		return p.parseIf(localMap, folded)
	case "br", "br_if":
		op := wasm.OpBr
		if name == "br_if" {
			op = wasm.OpBrIf
		}
		var operands []wasm.Instruction
		if folded {
			ops, err := p.parseFoldedOperands(localMap)
			if err != nil {
				return nil, err
			}
			operands = ops
		}
		idx, err := p.parseLabelIdx()
		if err != nil {
			return nil, err
		}
		return append(operands, wasm.Instruction{Opcode: op, Imm: wasm.BranchImm{LabelIdx: idx}}), nil

	case "br_table":
		var labels []uint32
		for {
			t := p.peek()
			if t == nil || (t.Type != token.Number && !(t.Type == token.Ident && strings.HasPrefix(t.Value, "$"))) {
				break
			}
			idx, err := p.parseLabelIdx()
			if err != nil {
				return nil, err
			}
			labels = append(labels, idx)
		}
		if len(labels) == 0 {
			return nil, fmt.Errorf("line %d: br_table requires at least one label", line)
		}
		def := labels[len(labels)-1]
		labels = labels[:len(labels)-1]
		return []wasm.Instruction{{Opcode: wasm.OpBrTable, Imm: wasm.BrTableImm{Labels: labels, Default: def}}}, nil

	case "call":
		var operands []wasm.Instruction
		if folded {
			ops, err := p.parseFoldedOperands(localMap)
			if err != nil {
				return nil, err
			}
			operands = ops
		}
		idx, err := p.parseIdx(p.funcMap)
		if err != nil {
			return nil, err
		}
		return append(operands, wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: idx}}), nil

	case "call_indirect":
		tableIdx := uint32(0)
		if t := p.peek(); t != nil && t.Type == token.LParen && p.peekAt(1) != nil && p.peekAt(1).Type == token.Ident && p.peekAt(1).Value != "type" && p.peekAt(1).Value != "param" && p.peekAt(1).Value != "result" {
			idx, err := p.parseIdx(p.tableMap)
			if err == nil {
				tableIdx = idx
			}
		}
		ft := wasm.FuncType{}
		var typeIdx uint32
		haveType := false
		for {
			t := p.peek()
			if t == nil || t.Type != token.LParen {
				break
			}
			if p.peekAt(1) == nil || p.peekAt(1).Type != token.Ident {
				break
			}
			switch p.peekAt(1).Value {
			case "type":
				p.next()
				p.next()
				idx, err := p.parseIdx(p.typeMap)
				if err != nil {
					return nil, err
				}
				typeIdx = idx
				haveType = true
				if _, err := p.expect(token.RParen); err != nil {
					return nil, err
				}
			case "param":
				p.next()
				p.next()
				for {
					pt := p.peek()
					if pt == nil || pt.Type == token.RParen {
						p.next()
						break
					}
					vt, err := p.parseValType()
					if err != nil {
						return nil, err
					}
					ft.Params = append(ft.Params, vt)
				}
			case "result":
				p.next()
				p.next()
				for {
					pt := p.peek()
					if pt == nil || pt.Type == token.RParen {
						p.next()
						break
					}
					vt, err := p.parseValType()
					if err != nil {
						return nil, err
					}
					ft.Results = append(ft.Results, vt)
				}
			default:
				goto doneClauses
			}
		}
	doneClauses:
		if !haveType {
			typeIdx = p.findOrAddType(ft)
		}
		var operands []wasm.Instruction
		if folded {
			ops, err := p.parseFoldedOperands(localMap)
			if err != nil {
				return nil, err
			}
			operands = ops
		}
		return append(operands, wasm.Instruction{Opcode: wasm.OpCallIndirect, Imm: wasm.CallIndirectImm{TypeIdx: typeIdx, TableIdx: tableIdx}}), nil

	case "local.get", "local.set", "local.tee":
		var op wasm.Opcode
		switch name {
		case "local.get":
			op = wasm.OpLocalGet
		case "local.set":
			op = wasm.OpLocalSet
		case "local.tee":
			op = wasm.OpLocalTee
		}
		var operands []wasm.Instruction
		if folded {
			ops, err := p.parseFoldedOperands(localMap)
			if err != nil {
				return nil, err
			}
			operands = ops
		}
		idx, err := p.parseIdx(localMap)
		if err != nil {
			return nil, err
		}
		return append(operands, wasm.Instruction{Opcode: op, Imm: wasm.LocalImm{Idx: idx}}), nil

	case "global.get", "global.set":
		op := wasm.OpGlobalGet
		if name == "global.set" {
			op = wasm.OpGlobalSet
		}
		var operands []wasm.Instruction
		if folded {
			ops, err := p.parseFoldedOperands(localMap)
			if err != nil {
				return nil, err
			}
			operands = ops
		}
		idx, err := p.parseIdx(p.globalMap)
		if err != nil {
			return nil, err
		}
		return append(operands, wasm.Instruction{Opcode: op, Imm: wasm.GlobalImm{Idx: idx}}), nil

	case "i32.const":
		v, err := p.parseI32()
		if err != nil {
			return nil, err
		}
		return []wasm.Instruction{{Opcode: wasm.OpI32Const, Imm: wasm.ConstI32Imm{Value: v}}}, nil
	case "i64.const":
		v, err := p.parseI64()
		if err != nil {
			return nil, err
		}
		return []wasm.Instruction{{Opcode: wasm.OpI64Const, Imm: wasm.ConstI64Imm{Value: v}}}, nil
	case "f32.const":
		v, err := p.parseF32()
		if err != nil {
			return nil, err
		}
		return []wasm.Instruction{{Opcode: wasm.OpF32Const, Imm: wasm.ConstF32Imm{Value: v}}}, nil
	case "f64.const":
		v, err := p.parseF64()
		if err != nil {
			return nil, err
		}
		return []wasm.Instruction{{Opcode: wasm.OpF64Const, Imm: wasm.ConstF64Imm{Value: v}}}, nil
	}

	if op, ok := memOpcodes[name]; ok {
		memImm, err := p.parseMemArg(op)
		if err != nil {
			return nil, err
		}
		var operands []wasm.Instruction
		if folded {
			ops, err := p.parseFoldedOperands(localMap)
			if err != nil {
				return nil, err
			}
			operands = ops
		}
		return append(operands, wasm.Instruction{Opcode: op, Imm: memImm}), nil
	}

	if sub, ok := truncSatOpcodes[name]; ok {
		var operands []wasm.Instruction
		if folded {
			ops, err := p.parseFoldedOperands(localMap)
			if err != nil {
				return nil, err
			}
			operands = ops
		}
		return append(operands, wasm.Instruction{Opcode: wasm.OpPrefixFC, Imm: sub}), nil
	}

	if op, ok := plainOpcodes[name]; ok {
		var operands []wasm.Instruction
		if folded {
			ops, err := p.parseFoldedOperands(localMap)
			if err != nil {
				return nil, err
			}
			operands = ops
		}
		return append(operands, wasm.Instruction{Opcode: op}), nil
	}

	return nil, fmt.Errorf("line %d: unknown instruction %q", line, name)
}

// parseFoldedOperands reads any remaining instruction sequences inside a
// folded form before its own operator, i.e. "(i32.add (local.get $x) (i32.const 1))".
func (p *Parser) parseFoldedOperands(localMap map[string]uint32) ([]wasm.Instruction, error) {
	var out []wasm.Instruction
	for {
		t := p.peek()
		if t == nil || t.Type != token.LParen {
			return out, nil
		}
		p.next()
		nameTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		instrs, err := p.parseOneInstr(nameTok.Value, nameTok.Line, localMap, true)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseLabelIdx() (uint32, error) {
	t := p.peek()
	if t != nil && t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		p.next()
		if idx, ok := p.resolveLabel(t.Value); ok {
			return idx, nil
		}
		return 0, fmt.Errorf("line %d: unknown label %q", t.Line, t.Value)
	}
	return p.parseU32()
}

func (p *Parser) parseBlockType() (wasm.BlockType, error) {
	// (result t)? shorthand, or a (type $t) reference; a bare type index
	// is not accepted.
	if t := p.peek(); t != nil && t.Type == token.LParen {
		if p.peekAt(1) != nil && p.peekAt(1).Type == token.Ident {
			switch p.peekAt(1).Value {
			case "result":
				p.next()
				p.next()
				vt, err := p.parseValType()
				if err != nil {
					return 0, err
				}
				if _, err := p.expect(token.RParen); err != nil {
					return 0, err
				}
				switch vt {
				case wasm.ValI32:
					return wasm.BlockTypeI32, nil
				case wasm.ValI64:
					return wasm.BlockTypeI64, nil
				case wasm.ValF32:
					return wasm.BlockTypeF32, nil
				case wasm.ValF64:
					return wasm.BlockTypeF64, nil
				}
				return 0, fmt.Errorf("unsupported block result type")
			case "type":
				p.next()
				p.next()
				idx, err := p.parseIdx(p.typeMap)
				if err != nil {
					return 0, err
				}
				if _, err := p.expect(token.RParen); err != nil {
					return 0, err
				}
				return wasm.BlockType(idx), nil
			}
		}
	}
	return wasm.BlockTypeVoid, nil
}

// parseBlockLike parses "block"/"loop" in either flat or folded form.
func (p *Parser) parseBlockLike(name string, localMap map[string]uint32, folded bool) ([]wasm.Instruction, error) {
	label := p.parseLabel()
	bt, err := p.parseBlockType()
	if err != nil {
		return nil, err
	}
	op := wasm.OpBlock
	if name == "loop" {
		op = wasm.OpLoop
	}
	out := []wasm.Instruction{{Opcode: op, Imm: &wasm.BlockImm{Type: bt, ElseIdx: -1, EndIdx: -1}}}

	p.pushLabel(label)
	body, err := p.parseInstrs(localMap)
	p.popLabel()
	if err != nil {
		return nil, err
	}
	out = append(out, body...)
	out = append(out, wasm.Instruction{Opcode: wasm.OpEnd})
	return out, nil
}

// parseIf parses "if" in either flat ("if ... then ... else ... end") or
// folded ("(if cond (then ...) (else ...))") form.
func (p *Parser) parseIf(localMap map[string]uint32, folded bool) ([]wasm.Instruction, error) {
	label := p.parseLabel()
	bt, err := p.parseBlockType()
	if err != nil {
		return nil, err
	}

	var cond []wasm.Instruction
	if folded {
		// A folded if may have operand expressions before (then ...): any
		// LParen that isn't "then"/"else" is the condition.
		for {
			t := p.peek()
			if t == nil || t.Type != token.LParen {
				break
			}
			next := p.peekAt(1)
			if next != nil && next.Type == token.Ident && (next.Value == "then" || next.Value == "else") {
				break
			}
			p.next()
			nameTok, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			instrs, err := p.parseOneInstr(nameTok.Value, nameTok.Line, localMap, true)
			if err != nil {
				return nil, err
			}
			cond = append(cond, instrs...)
			if _, err := p.expect(token.RParen); err != nil {
				return nil, err
			}
		}
	}

	out := append(cond, wasm.Instruction{Opcode: wasm.OpIf, Imm: &wasm.BlockImm{Type: bt, ElseIdx: -1, EndIdx: -1}})

	p.pushLabel(label)
	if folded {
		if _, err := p.expect(token.LParen); err != nil {
			return nil, err
		}
		if _, err := p.expectIdentValue("then"); err != nil {
			return nil, err
		}
		thenBody, err := p.parseInstrs(localMap)
		if err != nil {
			return nil, err
		}
		out = append(out, thenBody...)
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}

		if t := p.peek(); t != nil && t.Type == token.LParen && p.peekAt(1) != nil && p.peekAt(1).Value == "else" {
			p.next()
			p.next()
			out = append(out, wasm.Instruction{Opcode: wasm.OpElse})
			elseBody, err := p.parseInstrs(localMap)
			if err != nil {
				return nil, err
			}
			out = append(out, elseBody...)
			if _, err := p.expect(token.RParen); err != nil {
				return nil, err
			}
		}
	} else {
		thenBody, err := p.parseInstrs(localMap)
		if err != nil {
			return nil, err
		}
		out = append(out, thenBody...)
		if t := p.peek(); t != nil && t.Type == token.Ident && t.Value == "else" {
			p.next()
			out = append(out, wasm.Instruction{Opcode: wasm.OpElse})
			elseBody, err := p.parseInstrs(localMap)
			if err != nil {
				return nil, err
			}
			out = append(out, elseBody...)
		}
		if _, err := p.expectIdentValue("end"); err != nil {
			return nil, err
		}
	}
	p.popLabel()

	out = append(out, wasm.Instruction{Opcode: wasm.OpEnd})
	return out, nil
}

func (p *Parser) expectIdentValue(v string) (*token.Token, error) {
	t, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if t.Value != v {
		return nil, fmt.Errorf("line %d: expected %q, got %q", t.Line, v, t.Value)
	}
	return t, nil
}

// parseMemArg reads the optional "offset=N" and "align=N" text immediates
// that may follow a load/store mnemonic.
func (p *Parser) parseMemArg(op wasm.Opcode) (wasm.MemImm, error) {
	imm := wasm.MemImm{Align: defaultAlign(op)}
	for {
		t := p.peek()
		if t == nil || t.Type != token.Ident {
			break
		}
		if strings.HasPrefix(t.Value, "offset=") {
			p.next()
			n, err := strconv.ParseUint(strings.TrimPrefix(t.Value, "offset="), 0, 32)
			if err != nil {
				return imm, fmt.Errorf("line %d: invalid offset %q", t.Line, t.Value)
			}
			imm.Offset = uint32(n)
			continue
		}
		if strings.HasPrefix(t.Value, "align=") {
			p.next()
			n, err := strconv.ParseUint(strings.TrimPrefix(t.Value, "align="), 0, 32)
			if err != nil {
				return imm, fmt.Errorf("line %d: invalid align %q", t.Line, t.Value)
			}
			// WAT writes the natural alignment, not its log2; store the
			// exponent the binary format (and MemImm) expects.
			exp := uint32(0)
			for (uint32(1) << exp) < uint32(n) {
				exp++
			}
			imm.Align = exp
			continue
		}
		break
	}
	return imm, nil
}
