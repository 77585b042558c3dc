package wasm

import (
	"bytes"
	"io"

	werrors "github.com/jasonwyatt/wasmkit/errors"
	"github.com/jasonwyatt/wasmkit/wasm/internal/binary"
)

// ParseModule decodes a binary WebAssembly module from data.
func ParseModule(data []byte) (*Module, error) {
	r := binary.NewReader(bytes.NewReader(data))

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, werrors.Wrap(werrors.PhaseParse, werrors.KindUnexpectedEOF, err, "reading magic")
	}
	if magic != Magic {
		return nil, werrors.New(werrors.PhaseParse, werrors.KindMalformed, "bad magic number 0x%08x", magic)
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, werrors.Wrap(werrors.PhaseParse, werrors.KindUnexpectedEOF, err, "reading version")
	}
	if version != Version {
		return nil, werrors.New(werrors.PhaseParse, werrors.KindUnknownBinaryVersion, "unsupported binary version %d", version)
	}

	m := &Module{}
	lastOrdered := SectionID(0)
	for {
		idByte, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, werrors.Wrap(werrors.PhaseParse, werrors.KindUnexpectedEOF, err, "reading section id")
		}
		id := SectionID(idByte)
		size, err := r.ReadU32()
		if err != nil {
			return nil, werrors.Wrap(werrors.PhaseParse, werrors.KindUnexpectedEOF, err, "reading section %s size", id)
		}
		startPos := r.Position()
		body, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, werrors.Wrap(werrors.PhaseParse, werrors.KindUnexpectedEOF, err, "reading section %s body", id)
		}
		sr := binary.NewReader(bytes.NewReader(body))

		if id == SectionCustom {
			name, err := sr.ReadName()
			if err != nil {
				return nil, werrors.Wrap(werrors.PhaseParse, werrors.KindMalformed, err, "custom section name")
			}
			rest, err := sr.ReadRemaining()
			if err != nil {
				return nil, err
			}
			m.CustomSections = append(m.CustomSections, CustomSection{Name: name, Data: rest})
			continue
		}

		if id <= lastOrdered {
			return nil, werrors.New(werrors.PhaseParse, werrors.KindMalformed, "section %s out of order", id)
		}
		lastOrdered = id

		if err := decodeSection(id, sr, m); err != nil {
			return nil, err
		}
		if sr.Position() != len(body) {
			return nil, werrors.New(werrors.PhaseParse, werrors.KindSectionSizeMismatch, "section %s: declared size %d, consumed %d", id, size, sr.Position())
		}
		_ = startPos
	}
	return m, nil
}

func decodeSection(id SectionID, r *binary.Reader, m *Module) error {
	switch id {
	case SectionType:
		return decodeTypeSection(r, m)
	case SectionImport:
		return decodeImportSection(r, m)
	case SectionFunction:
		return decodeFunctionSection(r, m)
	case SectionTable:
		return decodeTableSection(r, m)
	case SectionMemory:
		return decodeMemorySection(r, m)
	case SectionGlobal:
		return decodeGlobalSection(r, m)
	case SectionExport:
		return decodeExportSection(r, m)
	case SectionStart:
		return decodeStartSection(r, m)
	case SectionElement:
		return decodeElementSection(r, m)
	case SectionCode:
		return decodeCodeSection(r, m)
	case SectionData:
		return decodeDataSection(r, m)
	default:
		return werrors.New(werrors.PhaseParse, werrors.KindSectionIDUnknown, "unknown section id %d", id)
	}
}

func readValType(r *binary.Reader) (ValType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	vt := ValType(b)
	if !vt.IsNum() && !vt.IsRef() {
		return 0, werrors.New(werrors.PhaseParse, werrors.KindMalformed, "invalid value type byte 0x%02x", b)
	}
	return vt, nil
}

func decodeTypeSection(r *binary.Reader, m *Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Types = make([]FuncType, 0, n)
	for i := uint32(0); i < n; i++ {
		tag, err := r.ReadByte()
		if err != nil {
			return err
		}
		if tag != 0x60 {
			return werrors.New(werrors.PhaseParse, werrors.KindMalformed, "expected functype tag 0x60, got 0x%02x", tag)
		}
		params, err := readValTypeVec(r)
		if err != nil {
			return err
		}
		results, err := readValTypeVec(r)
		if err != nil {
			return err
		}
		m.Types = append(m.Types, FuncType{Params: params, Results: results})
	}
	return nil
}

func readValTypeVec(r *binary.Reader) ([]ValType, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	out := make([]ValType, n)
	for i := range out {
		vt, err := readValType(r)
		if err != nil {
			return nil, err
		}
		out[i] = vt
	}
	return out, nil
}

func readLimits(r *binary.Reader) (Limits, error) {
	flag, err := r.ReadByte()
	if err != nil {
		return Limits{}, err
	}
	min, err := r.ReadU32()
	if err != nil {
		return Limits{}, err
	}
	lim := Limits{Min: min}
	if flag == 1 {
		max, err := r.ReadU32()
		if err != nil {
			return Limits{}, err
		}
		lim.Max = &max
	} else if flag != 0 {
		return Limits{}, werrors.New(werrors.PhaseParse, werrors.KindMalformed, "invalid limits flag %d", flag)
	}
	return lim, nil
}

func decodeImportSection(r *binary.Reader, m *Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		mod, err := r.ReadName()
		if err != nil {
			return err
		}
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kindByte, err := r.ReadByte()
		if err != nil {
			return err
		}
		desc := ImportDesc{Kind: ExternKind(kindByte)}
		switch desc.Kind {
		case KindFunc:
			idx, err := r.ReadU32()
			if err != nil {
				return err
			}
			desc.TypeIdx = idx
		case KindTable:
			elemType, err := readValType(r)
			if err != nil {
				return err
			}
			limits, err := readLimits(r)
			if err != nil {
				return err
			}
			desc.Table = &TableType{ElemType: elemType, Limits: limits}
		case KindMemory:
			limits, err := readLimits(r)
			if err != nil {
				return err
			}
			desc.Memory = &MemoryType{Limits: limits}
		case KindGlobal:
			vt, err := readValType(r)
			if err != nil {
				return err
			}
			mutByte, err := r.ReadByte()
			if err != nil {
				return err
			}
			desc.Global = &GlobalType{Val: vt, Mutable: mutByte == 1}
		default:
			return werrors.New(werrors.PhaseParse, werrors.KindMalformed, "invalid import kind %d", kindByte)
		}
		m.Imports = append(m.Imports, Import{Module: mod, Name: name, Desc: desc})
	}
	return nil
}

func decodeFunctionSection(r *binary.Reader, m *Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Funcs = make([]uint32, n)
	for i := range m.Funcs {
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		m.Funcs[i] = idx
	}
	return nil
}

func decodeTableSection(r *binary.Reader, m *Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		elemType, err := readValType(r)
		if err != nil {
			return err
		}
		limits, err := readLimits(r)
		if err != nil {
			return err
		}
		m.Tables = append(m.Tables, TableType{ElemType: elemType, Limits: limits})
	}
	return nil
}

func decodeMemorySection(r *binary.Reader, m *Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		limits, err := readLimits(r)
		if err != nil {
			return err
		}
		m.Memories = append(m.Memories, MemoryType{Limits: limits})
	}
	return nil
}

func decodeGlobalSection(r *binary.Reader, m *Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		vt, err := readValType(r)
		if err != nil {
			return err
		}
		mutByte, err := r.ReadByte()
		if err != nil {
			return err
		}
		init, err := decodeExpr(r)
		if err != nil {
			return err
		}
		m.Globals = append(m.Globals, Global{Type: GlobalType{Val: vt, Mutable: mutByte == 1}, Init: init})
	}
	return nil
}

func decodeExportSection(r *binary.Reader, m *Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kindByte, err := r.ReadByte()
		if err != nil {
			return err
		}
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		m.Exports = append(m.Exports, Export{Name: name, Kind: ExternKind(kindByte), Idx: idx})
	}
	return nil
}

func decodeStartSection(r *binary.Reader, m *Module) error {
	idx, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Start = &idx
	return nil
}

func decodeElementSection(r *binary.Reader, m *Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		flag, err := r.ReadU32()
		if err != nil {
			return err
		}
		if flag != 0 {
			return werrors.New(werrors.PhaseParse, werrors.KindMalformed, "unsupported element segment flag %d", flag)
		}
		offset, err := decodeExpr(r)
		if err != nil {
			return err
		}
		count, err := r.ReadU32()
		if err != nil {
			return err
		}
		funcs := make([]uint32, count)
		for j := range funcs {
			idx, err := r.ReadU32()
			if err != nil {
				return err
			}
			funcs[j] = idx
		}
		m.Elements = append(m.Elements, Element{TableIdx: 0, Offset: offset, Funcs: funcs})
	}
	return nil
}

func decodeCodeSection(r *binary.Reader, m *Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		size, err := r.ReadU32()
		if err != nil {
			return err
		}
		bodyBytes, err := r.ReadBytes(int(size))
		if err != nil {
			return err
		}
		br := binary.NewReader(bytes.NewReader(bodyBytes))
		localCount, err := br.ReadU32()
		if err != nil {
			return err
		}
		locals := make([]LocalEntry, localCount)
		for j := range locals {
			count, err := br.ReadU32()
			if err != nil {
				return err
			}
			vt, err := readValType(br)
			if err != nil {
				return err
			}
			locals[j] = LocalEntry{Count: count, Type: vt}
		}
		code, err := decodeExpr(br)
		if err != nil {
			return err
		}
		if br.Position() != len(bodyBytes) {
			return werrors.New(werrors.PhaseParse, werrors.KindSectionSizeMismatch, "function body: declared size %d, consumed %d", size, br.Position())
		}
		m.Code = append(m.Code, FuncBody{Locals: locals, Code: code})
	}
	return nil
}

func decodeDataSection(r *binary.Reader, m *Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		flag, err := r.ReadU32()
		if err != nil {
			return err
		}
		if flag != 0 {
			return werrors.New(werrors.PhaseParse, werrors.KindMalformed, "unsupported data segment flag %d", flag)
		}
		offset, err := decodeExpr(r)
		if err != nil {
			return err
		}
		length, err := r.ReadU32()
		if err != nil {
			return err
		}
		data, err := r.ReadBytes(int(length))
		if err != nil {
			return err
		}
		m.Data = append(m.Data, DataSegment{MemIdx: 0, Offset: offset, Bytes: data})
	}
	return nil
}

// decodeExpr decodes an instruction sequence up to and including its
// terminating `end`, resolving block/loop/if else/end indices in the
// same pass via an explicit stack of open block positions.
func decodeExpr(r *binary.Reader) ([]Instruction, error) {
	var out []Instruction
	var openBlocks []int // indices into out of block/loop/if instructions awaiting their end

	for {
		opByte, err := r.ReadByte()
		if err != nil {
			return nil, werrors.Wrap(werrors.PhaseParse, werrors.KindUnexpectedEOF, err, "reading opcode")
		}
		op := Opcode(opByte)

		switch op {
		case OpBlock, OpLoop, OpIf:
			bt, err := decodeBlockType(r)
			if err != nil {
				return nil, err
			}
			out = append(out, Instruction{Opcode: op, Imm: &BlockImm{Type: bt, ElseIdx: -1, EndIdx: -1}})
			openBlocks = append(openBlocks, len(out)-1)

		case OpElse:
			if len(openBlocks) == 0 {
				return nil, werrors.New(werrors.PhaseParse, werrors.KindMalformed, "else without matching if")
			}
			top := openBlocks[len(openBlocks)-1]
			blk := out[top].Imm.(*BlockImm)
			blk.ElseIdx = len(out)
			out = append(out, Instruction{Opcode: op})

		case OpEnd:
			if len(openBlocks) > 0 {
				top := openBlocks[len(openBlocks)-1]
				openBlocks = openBlocks[:len(openBlocks)-1]
				blk := out[top].Imm.(*BlockImm)
				blk.EndIdx = len(out)
				out = append(out, Instruction{Opcode: op})
				continue
			}
			// Top-level end: terminates this expression.
			out = append(out, Instruction{Opcode: op})
			return out, nil

		default:
			instr, err := decodeInstr(r, op)
			if err != nil {
				return nil, err
			}
			out = append(out, instr)
		}
	}
}

func decodeBlockType(r *binary.Reader) (BlockType, error) {
	bt, err := r.ReadS32()
	if err != nil {
		return 0, err
	}
	return BlockType(bt), nil
}

func decodeInstr(r *binary.Reader, op Opcode) (Instruction, error) {
	switch op {
	case OpUnreachable, OpNop, OpReturn, OpDrop, OpSelect:
		return Instruction{Opcode: op}, nil

	case OpBr, OpBrIf:
		idx, err := r.ReadU32()
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Opcode: op, Imm: BranchImm{LabelIdx: idx}}, nil

	case OpBrTable:
		n, err := r.ReadU32()
		if err != nil {
			return Instruction{}, err
		}
		labels := make([]uint32, n)
		for i := range labels {
			l, err := r.ReadU32()
			if err != nil {
				return Instruction{}, err
			}
			labels[i] = l
		}
		def, err := r.ReadU32()
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Opcode: op, Imm: BrTableImm{Labels: labels, Default: def}}, nil

	case OpCall:
		idx, err := r.ReadU32()
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Opcode: op, Imm: CallImm{FuncIdx: idx}}, nil

	case OpCallIndirect:
		typeIdx, err := r.ReadU32()
		if err != nil {
			return Instruction{}, err
		}
		tableIdx, err := r.ReadByte()
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Opcode: op, Imm: CallIndirectImm{TypeIdx: typeIdx, TableIdx: uint32(tableIdx)}}, nil

	case OpLocalGet, OpLocalSet, OpLocalTee:
		idx, err := r.ReadU32()
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Opcode: op, Imm: LocalImm{Idx: idx}}, nil

	case OpGlobalGet, OpGlobalSet:
		idx, err := r.ReadU32()
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Opcode: op, Imm: GlobalImm{Idx: idx}}, nil

	case OpI32Load, OpI64Load, OpF32Load, OpF64Load,
		OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U,
		OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U,
		OpI32Store, OpI64Store, OpF32Store, OpF64Store,
		OpI32Store8, OpI32Store16, OpI64Store8, OpI64Store16, OpI64Store32:
		align, err := r.ReadU32()
		if err != nil {
			return Instruction{}, err
		}
		offset, err := r.ReadU32()
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Opcode: op, Imm: MemImm{Align: align, Offset: offset}}, nil

	case OpMemorySize, OpMemoryGrow:
		b, err := r.ReadByte()
		if err != nil {
			return Instruction{}, err
		}
		if b != 0 {
			return Instruction{}, werrors.New(werrors.PhaseParse, werrors.KindMemArgZeroFlag, "memory.size/grow reserved byte must be 0")
		}
		return Instruction{Opcode: op, Imm: MemOpImm{MemIdx: 0}}, nil

	case OpI32Const:
		v, err := r.ReadS32()
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Opcode: op, Imm: ConstI32Imm{Value: v}}, nil

	case OpI64Const:
		v, err := r.ReadS64()
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Opcode: op, Imm: ConstI64Imm{Value: v}}, nil

	case OpF32Const:
		v, err := r.ReadF32LE()
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Opcode: op, Imm: ConstF32Imm{Value: v}}, nil

	case OpF64Const:
		v, err := r.ReadF64LE()
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Opcode: op, Imm: ConstF64Imm{Value: v}}, nil

	case OpPrefixFC:
		sub, err := r.ReadU32()
		if err != nil {
			return Instruction{}, err
		}
		if sub > uint32(OpMiscI64TruncSatF64U) {
			return Instruction{}, werrors.New(werrors.PhaseParse, werrors.KindUnknownOpcode, "unknown 0xFC sub-opcode %d", sub)
		}
		return Instruction{Opcode: OpPrefixFC, Imm: Opcode(sub)}, nil

	case OpI32Extend8S, OpI32Extend16S, OpI64Extend8S, OpI64Extend16S, OpI64Extend32S:
		return Instruction{Opcode: op}, nil

	default:
		// All remaining numeric comparison/arithmetic/conversion opcodes
		// carry no immediate.
		if isPlainNumeric(op) {
			return Instruction{Opcode: op}, nil
		}
		return Instruction{}, werrors.New(werrors.PhaseParse, werrors.KindUnknownOpcode, "unknown opcode 0x%02x", byte(op))
	}
}

func isPlainNumeric(op Opcode) bool {
	return op >= OpI32Eqz && op <= OpF64ReinterpretI64
}
