package runtime

import (
	"encoding/binary"
	"math"

	werrors "github.com/jasonwyatt/wasmkit/errors"
)

// PageSize is the fixed granularity WebAssembly linear memory grows by.
const PageSize = 65536

// MaxPages is the hard ceiling on memory size (2^16 pages = 4GiB of
// 32-bit-addressable space).
const MaxPages = 65536

// MemoryInstance is a module's linear memory: a contiguous, growable byte
// slice plus an optional page ceiling (spec.md §4.H).
type MemoryInstance struct {
	Data []byte
	Max  *uint32 // pages
}

// NewMemoryInstance allocates a memory instance of minPages initial pages.
func NewMemoryInstance(minPages uint32, maxPages *uint32) *MemoryInstance {
	return &MemoryInstance{Data: make([]byte, int(minPages)*PageSize), Max: maxPages}
}

// Pages returns the current size in pages.
func (m *MemoryInstance) Pages() uint32 {
	return uint32(len(m.Data) / PageSize)
}

// Grow attempts to grow the memory by delta pages, returning the
// previous size in pages, or -1 if the growth would exceed the memory's
// own maximum or the engine-wide hard limit (spec.md: "memory.grow ...
// returns -1 instead of trapping on failure").
func (m *MemoryInstance) Grow(delta uint32) int32 {
	prev := m.Pages()
	next := uint64(prev) + uint64(delta)
	if next > MaxPages {
		return -1
	}
	if m.Max != nil && next > uint64(*m.Max) {
		return -1
	}
	m.Data = append(m.Data, make([]byte, uint64(delta)*PageSize)...)
	return int32(prev)
}

func (m *MemoryInstance) bounds(offset, size uint32) ([]byte, error) {
	end := uint64(offset) + uint64(size)
	if end > uint64(len(m.Data)) {
		return nil, werrors.New(werrors.PhaseRuntime, werrors.KindMemoryOutOfBounds, "access at offset %d size %d exceeds memory of %d bytes", offset, size, len(m.Data))
	}
	return m.Data[offset:end], nil
}

func (m *MemoryInstance) ReadByte(offset uint32) (byte, error) {
	b, err := m.bounds(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *MemoryInstance) WriteByte(offset uint32, v byte) error {
	b, err := m.bounds(offset, 1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

func (m *MemoryInstance) ReadU16(offset uint32) (uint16, error) {
	b, err := m.bounds(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (m *MemoryInstance) WriteU16(offset uint32, v uint16) error {
	b, err := m.bounds(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, v)
	return nil
}

func (m *MemoryInstance) ReadU32(offset uint32) (uint32, error) {
	b, err := m.bounds(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *MemoryInstance) WriteU32(offset uint32, v uint32) error {
	b, err := m.bounds(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

func (m *MemoryInstance) ReadU64(offset uint32) (uint64, error) {
	b, err := m.bounds(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (m *MemoryInstance) WriteU64(offset uint32, v uint64) error {
	b, err := m.bounds(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

func (m *MemoryInstance) ReadF32(offset uint32) (float32, error) {
	bits, err := m.ReadU32(offset)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func (m *MemoryInstance) WriteF32(offset uint32, v float32) error {
	return m.WriteU32(offset, math.Float32bits(v))
}

func (m *MemoryInstance) ReadF64(offset uint32) (float64, error) {
	bits, err := m.ReadU64(offset)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func (m *MemoryInstance) WriteF64(offset uint32, v float64) error {
	return m.WriteU64(offset, math.Float64bits(v))
}

// Read implements the host-facing wasmkit.Memory interface.
func (m *MemoryInstance) Read(offset, length uint32) ([]byte, error) {
	b, err := m.bounds(offset, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, b)
	return out, nil
}

// Write implements the host-facing wasmkit.Memory interface.
func (m *MemoryInstance) Write(offset uint32, data []byte) error {
	b, err := m.bounds(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

func (m *MemoryInstance) Size() uint32 { return uint32(len(m.Data)) }
