package wasm

import (
	werrors "github.com/jasonwyatt/wasmkit/errors"
)

// valOrUnknown represents one entry of the validator's operand-type
// stack: either a concrete ValType or the polymorphic "unknown" type
// produced after an unreachable instruction, which unifies with anything.
type valOrUnknown struct {
	known bool
	typ   ValType
}

func known(vt ValType) valOrUnknown { return valOrUnknown{known: true, typ: vt} }

var unknownVal = valOrUnknown{}

type ctrlFrame struct {
	opcode     Opcode
	startTypes []ValType
	endTypes   []ValType
	height     int
	unreachable bool
}

// funcValidator implements the standard stack-typed validation algorithm
// (as in the WebAssembly spec appendix): an operand-type stack plus a
// control-frame stack, with a per-frame "unreachable" flag that makes the
// operand stack polymorphic after an unconditional transfer of control.
type funcValidator struct {
	mod    *Module
	locals []ValType
	opds   []valOrUnknown
	ctrls  []ctrlFrame
}

// Validate checks every invariant spec.md §4.F requires: module-level
// well-formedness (unique export names, valid indices and limits, a
// start function of the correct type) and, for every function body, that
// its instruction stream is stack-type-sound.
func (m *Module) Validate() error {
	if err := m.validateTypeIndices(); err != nil {
		return err
	}
	if err := m.validateLimits(); err != nil {
		return err
	}
	if len(m.Code) != len(m.Funcs) {
		return werrors.New(werrors.PhaseValidate, werrors.KindMalformed, "code section count %d does not match function section count %d", len(m.Code), len(m.Funcs))
	}
	if m.NumTables() > 1 {
		return werrors.New(werrors.PhaseValidate, werrors.KindMultipleTables, "at most one table allowed")
	}
	if m.NumMemories() > 1 {
		return werrors.New(werrors.PhaseValidate, werrors.KindMultipleMemories, "at most one memory allowed")
	}
	if err := m.validateExports(); err != nil {
		return err
	}
	if err := m.validateGlobalInits(); err != nil {
		return err
	}
	if err := m.validateElemsAndData(); err != nil {
		return err
	}
	if m.Start != nil {
		ft, ok := m.GetFuncType(*m.Start)
		if !ok {
			return werrors.New(werrors.PhaseValidate, werrors.KindUnknownFunction, "start function index %d out of range", *m.Start)
		}
		if len(ft.Params) != 0 || len(ft.Results) != 0 {
			return werrors.New(werrors.PhaseValidate, werrors.KindBadStartType, "start function must have type () -> ()")
		}
	}

	nImported := m.NumImportedFuncs()
	for i, body := range m.Code {
		funcIdx := uint32(nImported + i)
		ft, ok := m.GetFuncType(funcIdx)
		if !ok {
			return werrors.New(werrors.PhaseValidate, werrors.KindUnknownType, "function %d: type index out of range", funcIdx)
		}
		locals := append(append([]ValType{}, ft.Params...), expandLocals(body.Locals)...)
		v := &funcValidator{mod: m, locals: locals}
		v.pushCtrl(OpBlock, nil, ft.Results)
		if err := v.validateBody(body.Code); err != nil {
			return err.(*werrors.Error).WithPath(indexName("func", funcIdx))
		}
	}
	return nil
}

func indexName(kind string, idx uint32) string {
	return kind
}

func expandLocals(entries []LocalEntry) []ValType {
	var out []ValType
	for _, e := range entries {
		for i := uint32(0); i < e.Count; i++ {
			out = append(out, e.Type)
		}
	}
	return out
}

func (m *Module) validateTypeIndices() error {
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc && int(imp.Desc.TypeIdx) >= len(m.Types) {
			return werrors.New(werrors.PhaseValidate, werrors.KindUnknownType, "import %s.%s: type index %d out of range", imp.Module, imp.Name, imp.Desc.TypeIdx)
		}
	}
	for _, idx := range m.Funcs {
		if int(idx) >= len(m.Types) {
			return werrors.New(werrors.PhaseValidate, werrors.KindUnknownType, "function type index %d out of range", idx)
		}
	}
	return nil
}

func (m *Module) validateLimits() error {
	check := func(l Limits, what string) error {
		if l.Max != nil && *l.Max < l.Min {
			return werrors.New(werrors.PhaseValidate, werrors.KindMalformed, "%s: max %d less than min %d", what, *l.Max, l.Min)
		}
		return nil
	}
	for _, t := range m.Tables {
		if err := check(t.Limits, "table"); err != nil {
			return err
		}
	}
	for _, mem := range m.Memories {
		if err := check(mem.Limits, "memory"); err != nil {
			return err
		}
		if mem.Limits.Min > 65536 || (mem.Limits.Max != nil && *mem.Limits.Max > 65536) {
			return werrors.New(werrors.PhaseValidate, werrors.KindMalformed, "memory size exceeds the 65536-page hard limit")
		}
	}
	return nil
}

func (m *Module) validateExports() error {
	seen := map[string]bool{}
	for _, e := range m.Exports {
		if seen[e.Name] {
			return werrors.New(werrors.PhaseValidate, werrors.KindDuplicateExport, "duplicate export name %q", e.Name)
		}
		seen[e.Name] = true
		switch e.Kind {
		case KindFunc:
			if int(e.Idx) >= m.NumFuncs() {
				return werrors.New(werrors.PhaseValidate, werrors.KindUnknownFunction, "export %q: function index %d out of range", e.Name, e.Idx)
			}
		case KindTable:
			if int(e.Idx) >= m.NumTables() {
				return werrors.New(werrors.PhaseValidate, werrors.KindUnknownTable, "export %q: table index %d out of range", e.Name, e.Idx)
			}
		case KindMemory:
			if int(e.Idx) >= m.NumMemories() {
				return werrors.New(werrors.PhaseValidate, werrors.KindUnknownMemory, "export %q: memory index %d out of range", e.Name, e.Idx)
			}
		case KindGlobal:
			if int(e.Idx) >= m.NumGlobals() {
				return werrors.New(werrors.PhaseValidate, werrors.KindUnknownGlobal, "export %q: global index %d out of range", e.Name, e.Idx)
			}
		default:
			return werrors.New(werrors.PhaseValidate, werrors.KindMalformed, "export %q: invalid kind", e.Name)
		}
	}
	return nil
}

// validateConstExpr checks that instrs is a valid constant expression
// (spec.md §4.F: only const/global.get-of-an-imported-immutable-global)
// producing exactly one value of type want.
func (m *Module) validateConstExpr(instrs []Instruction, want ValType) error {
	body := instrs
	if len(body) == 0 || body[len(body)-1].Opcode != OpEnd {
		return werrors.New(werrors.PhaseValidate, werrors.KindMalformed, "constant expression missing end")
	}
	body = body[:len(body)-1]
	if len(body) != 1 {
		return werrors.New(werrors.PhaseValidate, werrors.KindNonConstantInitializer, "constant expression must be a single instruction")
	}
	instr := body[0]
	var got ValType
	switch instr.Opcode {
	case OpI32Const:
		got = ValI32
	case OpI64Const:
		got = ValI64
	case OpF32Const:
		got = ValF32
	case OpF64Const:
		got = ValF64
	case OpGlobalGet:
		idx := instr.Imm.(GlobalImm).Idx
		if int(idx) >= m.NumImportedGlobals() {
			return werrors.New(werrors.PhaseValidate, werrors.KindNonConstantInitializer, "global.get in constant expression must reference an imported global")
		}
		gt := m.globalTypeOf(idx)
		if gt.Mutable {
			return werrors.New(werrors.PhaseValidate, werrors.KindNonConstantInitializer, "global.get in constant expression must reference an immutable global")
		}
		got = gt.Val
	default:
		return werrors.New(werrors.PhaseValidate, werrors.KindNonConstantInitializer, "opcode 0x%02x is not allowed in a constant expression", byte(instr.Opcode))
	}
	if got != want {
		return werrors.New(werrors.PhaseValidate, werrors.KindTypeMismatch, "constant expression type %s does not match expected %s", got, want)
	}
	return nil
}

func (m *Module) globalTypeOf(idx uint32) GlobalType {
	if int(idx) < m.NumImportedGlobals() {
		i := -1
		for _, imp := range m.Imports {
			if imp.Desc.Kind != KindGlobal {
				continue
			}
			i++
			if uint32(i) == idx {
				return *imp.Desc.Global
			}
		}
	}
	return m.Globals[int(idx)-m.NumImportedGlobals()].Type
}

func (m *Module) validateGlobalInits() error {
	for i, g := range m.Globals {
		if err := m.validateConstExpr(g.Init, g.Type.Val); err != nil {
			return err.(*werrors.Error).WithPath("global", indexName("", uint32(i)))
		}
	}
	return nil
}

func (m *Module) validateElemsAndData() error {
	for _, el := range m.Elements {
		if int(el.TableIdx) >= m.NumTables() {
			return werrors.New(werrors.PhaseValidate, werrors.KindUnknownTable, "element segment: table index %d out of range", el.TableIdx)
		}
		if err := m.validateConstExpr(el.Offset, ValI32); err != nil {
			return err
		}
		for _, f := range el.Funcs {
			if int(f) >= m.NumFuncs() {
				return werrors.New(werrors.PhaseValidate, werrors.KindUnknownFunction, "element segment: function index %d out of range", f)
			}
		}
	}
	for _, d := range m.Data {
		if int(d.MemIdx) >= m.NumMemories() {
			return werrors.New(werrors.PhaseValidate, werrors.KindUnknownMemory, "data segment: memory index %d out of range", d.MemIdx)
		}
		if err := m.validateConstExpr(d.Offset, ValI32); err != nil {
			return err
		}
	}
	return nil
}

// --- per-function stack-typed validation ---

func (v *funcValidator) pushOpd(vu valOrUnknown) {
	v.opds = append(v.opds, vu)
}

func (v *funcValidator) popOpdAny() (valOrUnknown, error) {
	top := &v.ctrls[len(v.ctrls)-1]
	if len(v.opds) == top.height {
		if top.unreachable {
			return unknownVal, nil
		}
		return unknownVal, werrors.New(werrors.PhaseValidate, werrors.KindTypeMismatch, "operand stack underflow")
	}
	vu := v.opds[len(v.opds)-1]
	v.opds = v.opds[:len(v.opds)-1]
	return vu, nil
}

func (v *funcValidator) popOpd(want ValType) error {
	got, err := v.popOpdAny()
	if err != nil {
		return err
	}
	if got.known && got.typ != want {
		return werrors.New(werrors.PhaseValidate, werrors.KindTypeMismatch, "expected type %s, got %s", want, got.typ)
	}
	return nil
}

func (v *funcValidator) pushOpds(types []ValType) {
	for _, t := range types {
		v.pushOpd(known(t))
	}
}

func (v *funcValidator) popOpds(types []ValType) error {
	for i := len(types) - 1; i >= 0; i-- {
		if err := v.popOpd(types[i]); err != nil {
			return err
		}
	}
	return nil
}

func (v *funcValidator) pushCtrl(op Opcode, startTypes, endTypes []ValType) {
	frame := ctrlFrame{opcode: op, startTypes: startTypes, endTypes: endTypes, height: len(v.opds)}
	v.ctrls = append(v.ctrls, frame)
	v.pushOpds(startTypes)
}

func (v *funcValidator) popCtrl() (ctrlFrame, error) {
	if len(v.ctrls) == 0 {
		return ctrlFrame{}, werrors.New(werrors.PhaseValidate, werrors.KindMalformed, "control stack underflow")
	}
	frame := v.ctrls[len(v.ctrls)-1]
	if err := v.popOpds(frame.endTypes); err != nil {
		return ctrlFrame{}, err
	}
	if len(v.opds) != frame.height {
		return ctrlFrame{}, werrors.New(werrors.PhaseValidate, werrors.KindTypeMismatch, "operand stack height mismatch at end of block")
	}
	v.ctrls = v.ctrls[:len(v.ctrls)-1]
	return frame, nil
}

func (v *funcValidator) setUnreachable() {
	top := &v.ctrls[len(v.ctrls)-1]
	v.opds = v.opds[:top.height]
	top.unreachable = true
}

// labelTypes returns the type sequence that a branch to this frame must
// supply: loop frames branch to their start (the loop re-executes with
// the same param types), all other frames branch to their end.
func labelTypes(f ctrlFrame) []ValType {
	if f.opcode == OpLoop {
		return f.startTypes
	}
	return f.endTypes
}

func (v *funcValidator) blockTypeSignature(bt BlockType) (params, results []ValType, err error) {
	switch bt {
	case BlockTypeVoid:
		return nil, nil, nil
	case BlockTypeI32:
		return nil, []ValType{ValI32}, nil
	case BlockTypeI64:
		return nil, []ValType{ValI64}, nil
	case BlockTypeF32:
		return nil, []ValType{ValF32}, nil
	case BlockTypeF64:
		return nil, []ValType{ValF64}, nil
	}
	if bt < 0 {
		return nil, nil, werrors.New(werrors.PhaseValidate, werrors.KindInvalidBlockType, "invalid block type %d", bt)
	}
	idx := uint32(bt)
	if int(idx) >= len(v.mod.Types) {
		return nil, nil, werrors.New(werrors.PhaseValidate, werrors.KindInvalidBlockType, "block type index %d out of range", idx)
	}
	ft := v.mod.Types[idx]
	if len(ft.Params) != 0 || len(ft.Results) > 1 {
		return nil, nil, werrors.New(werrors.PhaseValidate, werrors.KindInvalidBlockType, "block type index %d must refer to a type () -> T with at most one result", idx)
	}
	return ft.Params, ft.Results, nil
}

func (v *funcValidator) validateBody(instrs []Instruction) error {
	for _, instr := range instrs {
		if err := v.validateInstr(instr); err != nil {
			return err
		}
	}
	return nil
}

func (v *funcValidator) validateInstr(instr Instruction) error {
	m := v.mod
	switch instr.Opcode {
	case OpUnreachable:
		v.setUnreachable()

	case OpNop:

	case OpBlock, OpLoop:
		params, results, err := v.blockTypeSignature(instr.Imm.(*BlockImm).Type)
		if err != nil {
			return err
		}
		if err := v.popOpds(params); err != nil {
			return err
		}
		v.pushCtrl(instr.Opcode, params, results)

	case OpIf:
		if err := v.popOpd(ValI32); err != nil {
			return err
		}
		params, results, err := v.blockTypeSignature(instr.Imm.(*BlockImm).Type)
		if err != nil {
			return err
		}
		if err := v.popOpds(params); err != nil {
			return err
		}
		v.pushCtrl(OpIf, params, results)

	case OpElse:
		frame, err := v.popCtrl()
		if err != nil {
			return err
		}
		if frame.opcode != OpIf {
			return werrors.New(werrors.PhaseValidate, werrors.KindMalformed, "else without matching if")
		}
		v.pushCtrl(OpElse, frame.startTypes, frame.endTypes)

	case OpEnd:
		frame, err := v.popCtrl()
		if err != nil {
			return err
		}
		v.pushOpds(frame.endTypes)

	case OpBr:
		idx := instr.Imm.(BranchImm).LabelIdx
		frame, err := v.labelFrame(idx)
		if err != nil {
			return err
		}
		if err := v.popOpds(labelTypes(frame)); err != nil {
			return err
		}
		v.setUnreachable()

	case OpBrIf:
		idx := instr.Imm.(BranchImm).LabelIdx
		frame, err := v.labelFrame(idx)
		if err != nil {
			return err
		}
		if err := v.popOpd(ValI32); err != nil {
			return err
		}
		types := labelTypes(frame)
		if err := v.popOpds(types); err != nil {
			return err
		}
		v.pushOpds(types)

	case OpBrTable:
		bt := instr.Imm.(BrTableImm)
		def, err := v.labelFrame(bt.Default)
		if err != nil {
			return err
		}
		defTypes := labelTypes(def)
		for _, l := range bt.Labels {
			f, err := v.labelFrame(l)
			if err != nil {
				return err
			}
			if len(labelTypes(f)) != len(defTypes) {
				return werrors.New(werrors.PhaseValidate, werrors.KindTypeMismatch, "br_table arms have mismatched arities")
			}
		}
		if err := v.popOpd(ValI32); err != nil {
			return err
		}
		if err := v.popOpds(defTypes); err != nil {
			return err
		}
		v.setUnreachable()

	case OpReturn:
		// The outermost control frame's end types are the function results.
		results := v.ctrls[0].endTypes
		if err := v.popOpds(results); err != nil {
			return err
		}
		v.setUnreachable()

	case OpCall:
		idx := instr.Imm.(CallImm).FuncIdx
		ft, ok := m.GetFuncType(idx)
		if !ok {
			return werrors.New(werrors.PhaseValidate, werrors.KindUnknownFunction, "call: function index %d out of range", idx)
		}
		if err := v.popOpds(ft.Params); err != nil {
			return err
		}
		v.pushOpds(ft.Results)

	case OpCallIndirect:
		ci := instr.Imm.(CallIndirectImm)
		if int(ci.TableIdx) >= m.NumTables() {
			return werrors.New(werrors.PhaseValidate, werrors.KindUnknownTable, "call_indirect: table index %d out of range", ci.TableIdx)
		}
		if int(ci.TypeIdx) >= len(m.Types) {
			return werrors.New(werrors.PhaseValidate, werrors.KindUnknownType, "call_indirect: type index %d out of range", ci.TypeIdx)
		}
		if err := v.popOpd(ValI32); err != nil {
			return err
		}
		ft := m.Types[ci.TypeIdx]
		if err := v.popOpds(ft.Params); err != nil {
			return err
		}
		v.pushOpds(ft.Results)

	case OpDrop:
		if _, err := v.popOpdAny(); err != nil {
			return err
		}

	case OpSelect:
		if err := v.popOpd(ValI32); err != nil {
			return err
		}
		a, err := v.popOpdAny()
		if err != nil {
			return err
		}
		b, err := v.popOpdAny()
		if err != nil {
			return err
		}
		if a.known && b.known && a.typ != b.typ {
			return werrors.New(werrors.PhaseValidate, werrors.KindTypeMismatch, "select operands have mismatched types %s/%s", a.typ, b.typ)
		}
		if a.known {
			v.pushOpd(a)
		} else {
			v.pushOpd(b)
		}

	case OpLocalGet:
		idx := instr.Imm.(LocalImm).Idx
		t, err := v.localType(idx)
		if err != nil {
			return err
		}
		v.pushOpd(known(t))

	case OpLocalSet:
		idx := instr.Imm.(LocalImm).Idx
		t, err := v.localType(idx)
		if err != nil {
			return err
		}
		if err := v.popOpd(t); err != nil {
			return err
		}

	case OpLocalTee:
		idx := instr.Imm.(LocalImm).Idx
		t, err := v.localType(idx)
		if err != nil {
			return err
		}
		if err := v.popOpd(t); err != nil {
			return err
		}
		v.pushOpd(known(t))

	case OpGlobalGet:
		idx := instr.Imm.(GlobalImm).Idx
		if int(idx) >= m.NumGlobals() {
			return werrors.New(werrors.PhaseValidate, werrors.KindUnknownGlobal, "global.get: index %d out of range", idx)
		}
		v.pushOpd(known(m.globalTypeOf(idx).Val))

	case OpGlobalSet:
		idx := instr.Imm.(GlobalImm).Idx
		if int(idx) >= m.NumGlobals() {
			return werrors.New(werrors.PhaseValidate, werrors.KindUnknownGlobal, "global.set: index %d out of range", idx)
		}
		gt := m.globalTypeOf(idx)
		if !gt.Mutable {
			return werrors.New(werrors.PhaseValidate, werrors.KindImmutableGlobalWrite, "global.set: global %d is immutable", idx)
		}
		if err := v.popOpd(gt.Val); err != nil {
			return err
		}

	case OpMemorySize:
		if m.NumMemories() == 0 {
			return werrors.New(werrors.PhaseValidate, werrors.KindUnknownMemory, "memory.size: no memory defined")
		}
		v.pushOpd(known(ValI32))

	case OpMemoryGrow:
		if m.NumMemories() == 0 {
			return werrors.New(werrors.PhaseValidate, werrors.KindUnknownMemory, "memory.grow: no memory defined")
		}
		if err := v.popOpd(ValI32); err != nil {
			return err
		}
		v.pushOpd(known(ValI32))

	case OpI32Const:
		v.pushOpd(known(ValI32))
	case OpI64Const:
		v.pushOpd(known(ValI64))
	case OpF32Const:
		v.pushOpd(known(ValF32))
	case OpF64Const:
		v.pushOpd(known(ValF64))

	default:
		if isLoadStore(instr.Opcode) {
			return v.validateLoadStore(instr)
		}
		if sig, ok := numericSig(instr.Opcode); ok {
			if err := v.popOpds(sig.in); err != nil {
				return err
			}
			v.pushOpds(sig.out)
			return nil
		}
		if instr.Opcode == OpPrefixFC {
			sub := instr.Imm.(Opcode)
			in, out := truncSatSig(sub)
			if err := v.popOpds(in); err != nil {
				return err
			}
			v.pushOpds(out)
			return nil
		}
		return werrors.New(werrors.PhaseValidate, werrors.KindUnknownOpcode, "unhandled opcode 0x%02x in validator", byte(instr.Opcode))
	}
	return nil
}

func (v *funcValidator) labelFrame(depth uint32) (ctrlFrame, error) {
	if int(depth) >= len(v.ctrls) {
		return ctrlFrame{}, werrors.New(werrors.PhaseValidate, werrors.KindUnknownLabel, "branch depth %d exceeds enclosing block nesting", depth)
	}
	return v.ctrls[len(v.ctrls)-1-int(depth)], nil
}

func (v *funcValidator) localType(idx uint32) (ValType, error) {
	if int(idx) >= len(v.locals) {
		return 0, werrors.New(werrors.PhaseValidate, werrors.KindUnknownLocal, "local index %d out of range", idx)
	}
	return v.locals[idx], nil
}

func isLoadStore(op Opcode) bool {
	switch op {
	case OpI32Load, OpI64Load, OpF32Load, OpF64Load,
		OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U,
		OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U,
		OpI32Store, OpI64Store, OpF32Store, OpF64Store,
		OpI32Store8, OpI32Store16, OpI64Store8, OpI64Store16, OpI64Store32:
		return true
	}
	return false
}

var loadStoreNaturalAlign = map[Opcode]uint32{
	OpI32Load: 2, OpI64Load: 3, OpF32Load: 2, OpF64Load: 3,
	OpI32Load8S: 0, OpI32Load8U: 0, OpI32Load16S: 1, OpI32Load16U: 1,
	OpI64Load8S: 0, OpI64Load8U: 0, OpI64Load16S: 1, OpI64Load16U: 1, OpI64Load32S: 2, OpI64Load32U: 2,
	OpI32Store: 2, OpI64Store: 3, OpF32Store: 2, OpF64Store: 3,
	OpI32Store8: 0, OpI32Store16: 1, OpI64Store8: 0, OpI64Store16: 1, OpI64Store32: 2,
}

func (v *funcValidator) validateLoadStore(instr Instruction) error {
	if v.mod.NumMemories() == 0 {
		return werrors.New(werrors.PhaseValidate, werrors.KindUnknownMemory, "memory instruction: no memory defined")
	}
	mi := instr.Imm.(MemImm)
	if mi.Align > loadStoreNaturalAlign[instr.Opcode] {
		return werrors.New(werrors.PhaseValidate, werrors.KindInvalidAlignment, "alignment 2**%d exceeds natural alignment", mi.Align)
	}
	isStore := instr.Opcode >= OpI32Store && instr.Opcode <= OpI64Store32
	valType := loadStoreValType(instr.Opcode)
	if isStore {
		if err := v.popOpd(valType); err != nil {
			return err
		}
		return v.popOpd(ValI32)
	}
	if err := v.popOpd(ValI32); err != nil {
		return err
	}
	v.pushOpd(known(valType))
	return nil
}

func loadStoreValType(op Opcode) ValType {
	switch op {
	case OpI32Load, OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U, OpI32Store, OpI32Store8, OpI32Store16:
		return ValI32
	case OpI64Load, OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U, OpI64Store, OpI64Store8, OpI64Store16, OpI64Store32:
		return ValI64
	case OpF32Load, OpF32Store:
		return ValF32
	case OpF64Load, OpF64Store:
		return ValF64
	}
	return ValI32
}

type numSig struct {
	in  []ValType
	out []ValType
}

func unop(t ValType) numSig   { return numSig{in: []ValType{t}, out: []ValType{t}} }
func binop(t ValType) numSig  { return numSig{in: []ValType{t, t}, out: []ValType{t}} }
func testop(t ValType) numSig { return numSig{in: []ValType{t}, out: []ValType{ValI32}} }
func relop(t ValType) numSig  { return numSig{in: []ValType{t, t}, out: []ValType{ValI32}} }
func cvtop(from, to ValType) numSig { return numSig{in: []ValType{from}, out: []ValType{to}} }

func numericSig(op Opcode) (numSig, bool) {
	switch op {
	case OpI32Eqz:
		return testop(ValI32), true
	case OpI32Eq, OpI32Ne, OpI32LtS, OpI32LtU, OpI32GtS, OpI32GtU, OpI32LeS, OpI32LeU, OpI32GeS, OpI32GeU:
		return relop(ValI32), true
	case OpI64Eqz:
		return numSig{in: []ValType{ValI64}, out: []ValType{ValI32}}, true
	case OpI64Eq, OpI64Ne, OpI64LtS, OpI64LtU, OpI64GtS, OpI64GtU, OpI64LeS, OpI64LeU, OpI64GeS, OpI64GeU:
		return relop(ValI64), true
	case OpF32Eq, OpF32Ne, OpF32Lt, OpF32Gt, OpF32Le, OpF32Ge:
		return relop(ValF32), true
	case OpF64Eq, OpF64Ne, OpF64Lt, OpF64Gt, OpF64Le, OpF64Ge:
		return relop(ValF64), true

	case OpI32Clz, OpI32Ctz, OpI32Popcnt:
		return unop(ValI32), true
	case OpI32Add, OpI32Sub, OpI32Mul, OpI32DivS, OpI32DivU, OpI32RemS, OpI32RemU,
		OpI32And, OpI32Or, OpI32Xor, OpI32Shl, OpI32ShrS, OpI32ShrU, OpI32Rotl, OpI32Rotr:
		return binop(ValI32), true
	case OpI64Clz, OpI64Ctz, OpI64Popcnt:
		return unop(ValI64), true
	case OpI64Add, OpI64Sub, OpI64Mul, OpI64DivS, OpI64DivU, OpI64RemS, OpI64RemU,
		OpI64And, OpI64Or, OpI64Xor, OpI64Shl, OpI64ShrS, OpI64ShrU, OpI64Rotl, OpI64Rotr:
		return binop(ValI64), true

	case OpF32Abs, OpF32Neg, OpF32Ceil, OpF32Floor, OpF32Trunc, OpF32Nearest, OpF32Sqrt:
		return unop(ValF32), true
	case OpF32Add, OpF32Sub, OpF32Mul, OpF32Div, OpF32Min, OpF32Max, OpF32Copysign:
		return binop(ValF32), true
	case OpF64Abs, OpF64Neg, OpF64Ceil, OpF64Floor, OpF64Trunc, OpF64Nearest, OpF64Sqrt:
		return unop(ValF64), true
	case OpF64Add, OpF64Sub, OpF64Mul, OpF64Div, OpF64Min, OpF64Max, OpF64Copysign:
		return binop(ValF64), true

	case OpI32WrapI64:
		return cvtop(ValI64, ValI32), true
	case OpI32TruncF32S, OpI32TruncF32U:
		return cvtop(ValF32, ValI32), true
	case OpI32TruncF64S, OpI32TruncF64U:
		return cvtop(ValF64, ValI32), true
	case OpI64ExtendI32S, OpI64ExtendI32U:
		return cvtop(ValI32, ValI64), true
	case OpI64TruncF32S, OpI64TruncF32U:
		return cvtop(ValF32, ValI64), true
	case OpI64TruncF64S, OpI64TruncF64U:
		return cvtop(ValF64, ValI64), true
	case OpF32ConvertI32S, OpF32ConvertI32U:
		return cvtop(ValI32, ValF32), true
	case OpF32ConvertI64S, OpF32ConvertI64U:
		return cvtop(ValI64, ValF32), true
	case OpF32DemoteF64:
		return cvtop(ValF64, ValF32), true
	case OpF64ConvertI32S, OpF64ConvertI32U:
		return cvtop(ValI32, ValF64), true
	case OpF64ConvertI64S, OpF64ConvertI64U:
		return cvtop(ValI64, ValF64), true
	case OpF64PromoteF32:
		return cvtop(ValF32, ValF64), true
	case OpI32ReinterpretF32:
		return cvtop(ValF32, ValI32), true
	case OpI64ReinterpretF64:
		return cvtop(ValF64, ValI64), true
	case OpF32ReinterpretI32:
		return cvtop(ValI32, ValF32), true
	case OpF64ReinterpretI64:
		return cvtop(ValI64, ValF64), true

	case OpI32Extend8S, OpI32Extend16S:
		return unop(ValI32), true
	case OpI64Extend8S, OpI64Extend16S, OpI64Extend32S:
		return unop(ValI64), true
	}
	return numSig{}, false
}

func truncSatSig(sub Opcode) (in, out []ValType) {
	switch sub {
	case OpMiscI32TruncSatF32S, OpMiscI32TruncSatF32U:
		return []ValType{ValF32}, []ValType{ValI32}
	case OpMiscI32TruncSatF64S, OpMiscI32TruncSatF64U:
		return []ValType{ValF64}, []ValType{ValI32}
	case OpMiscI64TruncSatF32S, OpMiscI64TruncSatF32U:
		return []ValType{ValF32}, []ValType{ValI64}
	case OpMiscI64TruncSatF64S, OpMiscI64TruncSatF64U:
		return []ValType{ValF64}, []ValType{ValI64}
	}
	return nil, nil
}
