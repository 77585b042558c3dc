// Package errors provides the structured error type used across every
// phase of wasmkit: lexing, parsing, validation, linking, instantiation,
// and runtime traps.
package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which stage of building or running a module produced
// the error.
type Phase string

const (
	PhaseLex          Phase = "lex"
	PhaseParse        Phase = "parse"
	PhaseValidate     Phase = "validate"
	PhaseLink         Phase = "link"
	PhaseInstantiate  Phase = "instantiate"
	PhaseRuntime      Phase = "runtime"
)

// Kind categorizes the error within its phase. Values match the taxonomy
// in spec.md §7.
type Kind string

const (
	// Lex / parse (binary and text).
	KindUnexpectedEOF       Kind = "unexpected_eof"
	KindMalformed           Kind = "malformed"
	KindLexError            Kind = "lex_error"
	KindUnknownOpcode       Kind = "unknown_opcode"
	KindUnknownBinaryVersion Kind = "unknown_binary_version"
	KindSectionIDUnknown    Kind = "section_id_unknown"
	KindSectionSizeMismatch Kind = "section_size_mismatch"
	KindInvalidBlockType    Kind = "invalid_block_type"
	KindInvalidAlignment    Kind = "invalid_alignment"
	KindMemArgZeroFlag      Kind = "memarg_zero_flag_non_zero"
	KindNestedEndMissing    Kind = "nested_end_missing"
	KindParseError          Kind = "parse_error"

	// Validation.
	KindTypeMismatch          Kind = "type_mismatch"
	KindUnknownLabel          Kind = "unknown_label"
	KindUnknownLocal          Kind = "unknown_local"
	KindUnknownGlobal         Kind = "unknown_global"
	KindUnknownFunction       Kind = "unknown_function"
	KindUnknownTable          Kind = "unknown_table"
	KindUnknownMemory         Kind = "unknown_memory"
	KindUnknownType           Kind = "unknown_type"
	KindImmutableGlobalWrite  Kind = "immutable_global_write"
	KindNonConstantInitializer Kind = "non_constant_initializer"
	KindDuplicateExport       Kind = "duplicate_export"
	KindBadStartType          Kind = "bad_start_type"
	KindMultipleMemories      Kind = "multiple_memories"
	KindMultipleTables        Kind = "multiple_tables"
	KindMultipleStarts        Kind = "multiple_starts"

	// Linking / instantiation.
	KindImportNotFound   Kind = "import_not_found"
	KindImportMismatch   Kind = "import_mismatch"
	KindCyclicImports    Kind = "cyclic_imports"
	KindExportNotFound   Kind = "export_not_found"
	KindWrongExportKind  Kind = "wrong_export_kind"
	KindImmutableGlobal  Kind = "immutable_global"
	KindSegmentOutOfRange Kind = "segment_out_of_range"
	KindInitializerTrap  Kind = "initializer_trap"
	KindIllegalArgument  Kind = "illegal_argument"

	// Traps.
	KindUnreachable              Kind = "unreachable"
	KindIntegerDivideByZero      Kind = "integer_divide_by_zero"
	KindIntegerOverflow          Kind = "integer_overflow"
	KindInvalidConversionToInt   Kind = "invalid_conversion_to_integer"
	KindMemoryOutOfBounds        Kind = "memory_out_of_bounds"
	KindIndirectCallMismatch     Kind = "indirect_call_type_mismatch"
	KindUndefinedElement         Kind = "undefined_element"
	KindCallStackExhausted       Kind = "call_stack_exhausted"
	KindUninitialized            Kind = "uninitialized"
	KindHostError                Kind = "host_error"
)

// Error is the structured error type returned by every wasmkit package.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	// Path names, from outermost to innermost, what the error concerns:
	// e.g. []string{"module_a", "func $fib", "instr 12"}.
	Path []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Phase and Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// New constructs an *Error with a formatted detail message.
func New(phase Phase, kind Kind, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{Phase: phase, Kind: kind, Detail: detail}
}

// Wrap constructs an *Error that carries an underlying cause.
func Wrap(phase Phase, kind Kind, cause error, detail string, args ...any) *Error {
	e := New(phase, kind, detail, args...)
	e.Cause = cause
	return e
}

// WithPath returns a shallow copy of e with Path set.
func (e *Error) WithPath(path ...string) *Error {
	c := *e
	c.Path = path
	return &c
}

// IsTrap reports whether err is a runtime trap, i.e. a *Error with
// Phase == PhaseRuntime.
func IsTrap(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Phase == PhaseRuntime
}
