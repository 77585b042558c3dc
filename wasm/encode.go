package wasm

import (
	"bytes"

	werrors "github.com/jasonwyatt/wasmkit/errors"
	"github.com/jasonwyatt/wasmkit/wasm/internal/binary"
)

// Encode serializes m back to the binary format. Round-tripping a module
// produced by ParseModule through Encode then ParseModule again yields an
// equivalent module (spec.md's binary round-trip property), though the
// known sections are re-emitted in section-id order (1-11) and every
// custom section after them, in their original relative order, rather
// than in verbatim byte order.
func (m *Module) Encode() ([]byte, error) {
	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	if len(m.Types) > 0 {
		if err := writeSection(w, SectionType, encodeTypeSection(m)); err != nil {
			return nil, err
		}
	}
	if len(m.Imports) > 0 {
		if err := writeSection(w, SectionImport, encodeImportSection(m)); err != nil {
			return nil, err
		}
	}
	if len(m.Funcs) > 0 {
		if err := writeSection(w, SectionFunction, encodeFunctionSection(m)); err != nil {
			return nil, err
		}
	}
	if len(m.Tables) > 0 {
		if err := writeSection(w, SectionTable, encodeTableSection(m)); err != nil {
			return nil, err
		}
	}
	if len(m.Memories) > 0 {
		if err := writeSection(w, SectionMemory, encodeMemorySection(m)); err != nil {
			return nil, err
		}
	}
	if len(m.Globals) > 0 {
		if err := writeSection(w, SectionGlobal, encodeGlobalSection(m)); err != nil {
			return nil, err
		}
	}
	if len(m.Exports) > 0 {
		if err := writeSection(w, SectionExport, encodeExportSection(m)); err != nil {
			return nil, err
		}
	}
	if m.Start != nil {
		sub := binary.NewWriter()
		sub.WriteU32(*m.Start)
		if err := writeSection(w, SectionStart, sub.Bytes()); err != nil {
			return nil, err
		}
	}
	if len(m.Elements) > 0 {
		if err := writeSection(w, SectionElement, encodeElementSection(m)); err != nil {
			return nil, err
		}
	}
	if len(m.Code) > 0 {
		if err := writeSection(w, SectionCode, encodeCodeSection(m)); err != nil {
			return nil, err
		}
	}
	if len(m.Data) > 0 {
		if err := writeSection(w, SectionData, encodeDataSection(m)); err != nil {
			return nil, err
		}
	}
	for _, cs := range m.CustomSections {
		sub := binary.NewWriter()
		sub.WriteName(cs.Name)
		sub.WriteBytes(cs.Data)
		if err := writeSection(w, SectionCustom, sub.Bytes()); err != nil {
			return nil, err
		}
	}

	return w.Bytes(), nil
}

func writeSection(w *binary.Writer, id SectionID, body []byte) error {
	w.Byte(byte(id))
	w.WriteU32(uint32(len(body)))
	w.WriteBytes(body)
	return nil
}

func writeValType(w *binary.Writer, vt ValType) {
	w.Byte(byte(vt))
}

func writeLimits(w *binary.Writer, l Limits) {
	if l.Max != nil {
		w.Byte(1)
		w.WriteU32(l.Min)
		w.WriteU32(*l.Max)
	} else {
		w.Byte(0)
		w.WriteU32(l.Min)
	}
}

func encodeTypeSection(m *Module) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(m.Types)))
	for _, ft := range m.Types {
		w.Byte(0x60)
		w.WriteU32(uint32(len(ft.Params)))
		for _, p := range ft.Params {
			writeValType(w, p)
		}
		w.WriteU32(uint32(len(ft.Results)))
		for _, r := range ft.Results {
			writeValType(w, r)
		}
	}
	return w.Bytes()
}

func encodeImportSection(m *Module) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(m.Imports)))
	for _, imp := range m.Imports {
		w.WriteName(imp.Module)
		w.WriteName(imp.Name)
		w.Byte(byte(imp.Desc.Kind))
		switch imp.Desc.Kind {
		case KindFunc:
			w.WriteU32(imp.Desc.TypeIdx)
		case KindTable:
			writeValType(w, imp.Desc.Table.ElemType)
			writeLimits(w, imp.Desc.Table.Limits)
		case KindMemory:
			writeLimits(w, imp.Desc.Memory.Limits)
		case KindGlobal:
			writeValType(w, imp.Desc.Global.Val)
			if imp.Desc.Global.Mutable {
				w.Byte(1)
			} else {
				w.Byte(0)
			}
		}
	}
	return w.Bytes()
}

func encodeFunctionSection(m *Module) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(m.Funcs)))
	for _, idx := range m.Funcs {
		w.WriteU32(idx)
	}
	return w.Bytes()
}

func encodeTableSection(m *Module) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(m.Tables)))
	for _, t := range m.Tables {
		writeValType(w, t.ElemType)
		writeLimits(w, t.Limits)
	}
	return w.Bytes()
}

func encodeMemorySection(m *Module) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(m.Memories)))
	for _, mem := range m.Memories {
		writeLimits(w, mem.Limits)
	}
	return w.Bytes()
}

func encodeGlobalSection(m *Module) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(m.Globals)))
	for _, g := range m.Globals {
		writeValType(w, g.Type.Val)
		if g.Type.Mutable {
			w.Byte(1)
		} else {
			w.Byte(0)
		}
		encodeExpr(w, g.Init)
	}
	return w.Bytes()
}

func encodeExportSection(m *Module) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(m.Exports)))
	for _, e := range m.Exports {
		w.WriteName(e.Name)
		w.Byte(byte(e.Kind))
		w.WriteU32(e.Idx)
	}
	return w.Bytes()
}

func encodeElementSection(m *Module) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(m.Elements)))
	for _, el := range m.Elements {
		w.WriteU32(0) // flag: active, table index 0
		encodeExpr(w, el.Offset)
		w.WriteU32(uint32(len(el.Funcs)))
		for _, f := range el.Funcs {
			w.WriteU32(f)
		}
	}
	return w.Bytes()
}

func encodeCodeSection(m *Module) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(m.Code)))
	for _, body := range m.Code {
		sub := binary.NewWriter()
		sub.WriteU32(uint32(len(body.Locals)))
		for _, l := range body.Locals {
			sub.WriteU32(l.Count)
			writeValType(sub, l.Type)
		}
		encodeExpr(sub, body.Code)
		w.WriteU32(uint32(sub.Len()))
		w.WriteBytes(sub.Bytes())
	}
	return w.Bytes()
}

func encodeDataSection(m *Module) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(m.Data)))
	for _, d := range m.Data {
		w.WriteU32(0) // flag: active, memory index 0
		encodeExpr(w, d.Offset)
		w.WriteU32(uint32(len(d.Bytes)))
		w.WriteBytes(d.Bytes)
	}
	return w.Bytes()
}

func encodeExpr(w *binary.Writer, instrs []Instruction) {
	for _, instr := range instrs {
		encodeInstr(w, instr)
	}
}

func encodeInstr(w *binary.Writer, instr Instruction) {
	switch imm := instr.Imm.(type) {
	case *BlockImm:
		w.Byte(byte(instr.Opcode))
		w.WriteS32(int32(imm.Type))
	case BranchImm:
		w.Byte(byte(instr.Opcode))
		w.WriteU32(imm.LabelIdx)
	case BrTableImm:
		w.Byte(byte(instr.Opcode))
		w.WriteU32(uint32(len(imm.Labels)))
		for _, l := range imm.Labels {
			w.WriteU32(l)
		}
		w.WriteU32(imm.Default)
	case CallImm:
		w.Byte(byte(instr.Opcode))
		w.WriteU32(imm.FuncIdx)
	case CallIndirectImm:
		w.Byte(byte(instr.Opcode))
		w.WriteU32(imm.TypeIdx)
		w.Byte(byte(imm.TableIdx))
	case LocalImm:
		w.Byte(byte(instr.Opcode))
		w.WriteU32(imm.Idx)
	case GlobalImm:
		w.Byte(byte(instr.Opcode))
		w.WriteU32(imm.Idx)
	case MemImm:
		w.Byte(byte(instr.Opcode))
		w.WriteU32(imm.Align)
		w.WriteU32(imm.Offset)
	case MemOpImm:
		w.Byte(byte(instr.Opcode))
		w.Byte(0)
	case ConstI32Imm:
		w.Byte(byte(instr.Opcode))
		w.WriteS32(imm.Value)
	case ConstI64Imm:
		w.Byte(byte(instr.Opcode))
		w.WriteS64(imm.Value)
	case ConstF32Imm:
		w.Byte(byte(instr.Opcode))
		w.WriteF32LE(imm.Value)
	case ConstF64Imm:
		w.Byte(byte(instr.Opcode))
		w.WriteF64LE(imm.Value)
	case Opcode: // 0xFC sub-opcode
		w.Byte(byte(instr.Opcode))
		w.WriteU32(uint32(imm))
	default:
		w.Byte(byte(instr.Opcode))
	}
}

// EncodeInstructions encodes a standalone instruction stream, the
// counterpart of DecodeInstructions.
func EncodeInstructions(instrs []Instruction) []byte {
	w := binary.NewWriter()
	encodeExpr(w, instrs)
	return w.Bytes()
}

// DecodeInstructions decodes a standalone, `end`-terminated instruction
// stream from data.
func DecodeInstructions(data []byte) ([]Instruction, error) {
	r := binary.NewReader(bytes.NewReader(data))
	instrs, err := decodeExpr(r)
	if err != nil {
		return nil, werrors.Wrap(werrors.PhaseParse, werrors.KindMalformed, err, "decoding instruction stream")
	}
	return instrs, nil
}
