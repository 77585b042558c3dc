package runtime

import (
	"context"

	werrors "github.com/jasonwyatt/wasmkit/errors"
	"github.com/jasonwyatt/wasmkit/wasm"
	"go.uber.org/zap"
)

// Limits bounds the two structural resources a runaway or malicious
// module could otherwise exhaust: recursive call depth and the size of
// the operand stack of any single activation.
type Limits struct {
	MaxCallStackDepth     int
	MaxOperandStackValues int
}

// DefaultLimits mirrors the recommendation in spec.md §4.I.
var DefaultLimits = Limits{MaxCallStackDepth: 1024, MaxOperandStackValues: 1 << 20}

// Interpreter walks a function's flattened, branch-resolved instruction
// stream using three interleaved stacks: the operand stack (Go slice of
// Value), an implicit label (control-frame) stack per call, and the Go
// call stack itself standing in for the activation stack (spec.md §4.G
// "activation stack") — each nested call/call_indirect recurses into
// Interpreter.call, with depth tracked explicitly so recursion that would
// overflow the Go stack instead traps first.
type Interpreter struct {
	Store  *Store
	Limits Limits
	Logger *zap.Logger
	depth  int
}

// NewInterpreter constructs an interpreter bound to store.
func NewInterpreter(store *Store, limits Limits, logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{Store: store, Limits: limits, Logger: logger}
}

// label is one entry of a call's control-frame stack, tracking enough to
// implement br/br_if/br_table/return without re-scanning the instruction
// stream: the operand-stack height to restore to, how many values a
// branch to it carries, and where to jump.
type label struct {
	isLoop      bool
	arity       int
	stackHeight int
	startPC     int // first instruction of the loop body (branch target for loop labels)
	endPC       int // index of the matching `end` (branch target for non-loop labels)
}

// Call invokes the function at funcAddr with args already matching its
// parameter types, returning its results or a *errors.Error trap.
func (in *Interpreter) Call(ctx context.Context, funcAddr uint32, args []Value) ([]Value, error) {
	return in.call(ctx, nil, funcAddr, args)
}

// call is Call made on behalf of caller, the instance whose call or
// call_indirect reached funcAddr (nil when the host calls in directly). A
// host function receives caller's memory 0, or nil if caller has none.
func (in *Interpreter) call(ctx context.Context, caller *ModuleInstance, funcAddr uint32, args []Value) ([]Value, error) {
	fn := in.Store.Func(funcAddr)
	if fn.IsHost() {
		var mem *MemoryInstance
		if caller != nil && len(caller.MemAddrs) > 0 {
			mem = in.Store.Memory(caller.MemAddrs[0])
		}
		return fn.Host(ctx, mem, args)
	}

	in.depth++
	defer func() { in.depth-- }()
	if in.depth > in.Limits.MaxCallStackDepth {
		return nil, werrors.New(werrors.PhaseRuntime, werrors.KindCallStackExhausted, "call stack depth exceeded %d", in.Limits.MaxCallStackDepth)
	}

	locals := make([]Value, len(args)+fn.Body.NumLocals())
	copy(locals, args)

	return in.run(ctx, fn.Module, fn.Type, fn.Body.Code, locals)
}

func (in *Interpreter) run(ctx context.Context, mod *ModuleInstance, ft wasm.FuncType, code []wasm.Instruction, locals []Value) ([]Value, error) {
	stack := make([]Value, 0, 16)
	var labels []label
	pc := 0

	push := func(v Value) { stack = append(stack, v) }
	pop := func() Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	branchTo := func(depth uint32) {
		ti := len(labels) - 1 - int(depth)
		target := labels[ti]
		if target.isLoop {
			vals := append([]Value(nil), stack[len(stack)-target.arity:]...)
			labels = labels[:ti+1]
			stack = stack[:target.stackHeight]
			stack = append(stack, vals...)
			pc = target.startPC + 1
		} else {
			vals := append([]Value(nil), stack[len(stack)-target.arity:]...)
			labels = labels[:ti]
			stack = stack[:target.stackHeight]
			stack = append(stack, vals...)
			pc = target.endPC + 1
		}
	}

	for {
		if len(stack) > in.Limits.MaxOperandStackValues {
			return nil, werrors.New(werrors.PhaseRuntime, werrors.KindCallStackExhausted, "operand stack exceeded %d values", in.Limits.MaxOperandStackValues)
		}
		instr := code[pc]
		switch instr.Opcode {
		case wasm.OpUnreachable:
			return nil, werrors.New(werrors.PhaseRuntime, werrors.KindUnreachable, "unreachable instruction executed")

		case wasm.OpNop:
			pc++

		case wasm.OpBlock:
			blk := instr.Imm.(*wasm.BlockImm)
			results := in.blockResultArity(mod, blk.Type)
			labels = append(labels, label{arity: results, stackHeight: len(stack), endPC: blk.EndIdx})
			pc++

		case wasm.OpLoop:
			blk := instr.Imm.(*wasm.BlockImm)
			params := in.blockParamArity(mod, blk.Type)
			labels = append(labels, label{isLoop: true, arity: params, stackHeight: len(stack), startPC: pc, endPC: blk.EndIdx})
			pc++

		case wasm.OpIf:
			blk := instr.Imm.(*wasm.BlockImm)
			cond := pop()
			results := in.blockResultArity(mod, blk.Type)
			if cond.I32() != 0 {
				labels = append(labels, label{arity: results, stackHeight: len(stack), endPC: blk.EndIdx})
				pc++
			} else if blk.ElseIdx >= 0 {
				labels = append(labels, label{arity: results, stackHeight: len(stack), endPC: blk.EndIdx})
				pc = blk.ElseIdx + 1
			} else {
				pc = blk.EndIdx + 1
			}

		case wasm.OpElse:
			top := labels[len(labels)-1]
			labels = labels[:len(labels)-1]
			pc = top.endPC + 1

		case wasm.OpEnd:
			if len(labels) == 0 {
				return finalResults(stack, len(ft.Results)), nil
			}
			labels = labels[:len(labels)-1]
			pc++

		case wasm.OpBr:
			branchTo(instr.Imm.(wasm.BranchImm).LabelIdx)

		case wasm.OpBrIf:
			cond := pop()
			if cond.I32() != 0 {
				branchTo(instr.Imm.(wasm.BranchImm).LabelIdx)
			} else {
				pc++
			}

		case wasm.OpBrTable:
			bt := instr.Imm.(wasm.BrTableImm)
			idx := uint32(pop().I32())
			target := bt.Default
			if idx < uint32(len(bt.Labels)) {
				target = bt.Labels[idx]
			}
			branchTo(target)

		case wasm.OpReturn:
			return finalResults(stack, len(ft.Results)), nil

		case wasm.OpCall:
			idx := instr.Imm.(wasm.CallImm).FuncIdx
			addr := mod.FuncAddrs[idx]
			callee := in.Store.Func(addr)
			args := popN(&stack, len(callee.Type.Params))
			results, err := in.call(ctx, mod, addr, args)
			if err != nil {
				return nil, err
			}
			stack = append(stack, results...)
			pc++

		case wasm.OpCallIndirect:
			ci := instr.Imm.(wasm.CallIndirectImm)
			tableAddr := mod.TableAddrs[ci.TableIdx]
			table := in.Store.Table(tableAddr)
			elemIdx := uint32(pop().I32())
			if int(elemIdx) >= len(table.Elems) {
				return nil, werrors.New(werrors.PhaseRuntime, werrors.KindUndefinedElement, "call_indirect: index %d out of table bounds", elemIdx)
			}
			funcAddr := table.Elems[elemIdx]
			if funcAddr < 0 {
				return nil, werrors.New(werrors.PhaseRuntime, werrors.KindUndefinedElement, "call_indirect: table entry %d is uninitialized", elemIdx)
			}
			callee := in.Store.Func(uint32(funcAddr))
			want := mod.Types[ci.TypeIdx]
			if !callee.Type.Equal(want) {
				return nil, werrors.New(werrors.PhaseRuntime, werrors.KindIndirectCallMismatch, "call_indirect: table entry has a different type than required")
			}
			args := popN(&stack, len(callee.Type.Params))
			results, err := in.call(ctx, mod, uint32(funcAddr), args)
			if err != nil {
				return nil, err
			}
			stack = append(stack, results...)
			pc++

		case wasm.OpDrop:
			pop()
			pc++

		case wasm.OpSelect:
			cond := pop()
			b := pop()
			a := pop()
			if cond.I32() != 0 {
				push(a)
			} else {
				push(b)
			}
			pc++

		case wasm.OpLocalGet:
			push(locals[instr.Imm.(wasm.LocalImm).Idx])
			pc++
		case wasm.OpLocalSet:
			locals[instr.Imm.(wasm.LocalImm).Idx] = pop()
			pc++
		case wasm.OpLocalTee:
			v := stack[len(stack)-1]
			locals[instr.Imm.(wasm.LocalImm).Idx] = v
			pc++

		case wasm.OpGlobalGet:
			addr := mod.GlobalAddrs[instr.Imm.(wasm.GlobalImm).Idx]
			push(in.Store.Global(addr).Value)
			pc++
		case wasm.OpGlobalSet:
			addr := mod.GlobalAddrs[instr.Imm.(wasm.GlobalImm).Idx]
			in.Store.Global(addr).Value = pop()
			pc++

		case wasm.OpMemorySize:
			mem := in.Store.Memory(mod.MemAddrs[0])
			push(ValueI32(int32(mem.Pages())))
			pc++
		case wasm.OpMemoryGrow:
			mem := in.Store.Memory(mod.MemAddrs[0])
			delta := pop().I32()
			push(ValueI32(mem.Grow(uint32(delta))))
			pc++

		case wasm.OpI32Const:
			push(ValueI32(instr.Imm.(wasm.ConstI32Imm).Value))
			pc++
		case wasm.OpI64Const:
			push(ValueI64(instr.Imm.(wasm.ConstI64Imm).Value))
			pc++
		case wasm.OpF32Const:
			push(ValueF32(instr.Imm.(wasm.ConstF32Imm).Value))
			pc++
		case wasm.OpF64Const:
			push(ValueF64(instr.Imm.(wasm.ConstF64Imm).Value))
			pc++

		default:
			if isMemOp(instr.Opcode) {
				mem := in.Store.Memory(mod.MemAddrs[0])
				if err := execMemOp(instr, mem, &stack); err != nil {
					return nil, err
				}
				pc++
				continue
			}
			if instr.Opcode == wasm.OpPrefixFC {
				if err := execTruncSat(instr.Imm.(wasm.Opcode), &stack); err != nil {
					return nil, err
				}
				pc++
				continue
			}
			if err := execNumeric(instr.Opcode, &stack); err != nil {
				return nil, err
			}
			pc++
		}
	}
}

func finalResults(stack []Value, n int) []Value {
	out := make([]Value, n)
	copy(out, stack[len(stack)-n:])
	return out
}

func popN(stack *[]Value, n int) []Value {
	s := *stack
	args := append([]Value(nil), s[len(s)-n:]...)
	*stack = s[:len(s)-n]
	return args
}

func (in *Interpreter) blockResultArity(mod *ModuleInstance, bt wasm.BlockType) int {
	if bt >= 0 {
		return len(mod.Types[bt].Results)
	}
	if bt == wasm.BlockTypeVoid {
		return 0
	}
	return 1
}

func (in *Interpreter) blockParamArity(mod *ModuleInstance, bt wasm.BlockType) int {
	if bt >= 0 {
		return len(mod.Types[bt].Params)
	}
	return 0
}
