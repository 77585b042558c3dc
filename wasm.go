package wasmkit

// Memory is the host-facing view of a module instance's linear memory,
// implemented by *runtime.MemoryInstance. Host functions registered
// against a Program receive one of these directly rather than importing
// the runtime package themselves.
type Memory interface {
	Read(offset, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error

	ReadByte(offset uint32) (byte, error)
	WriteByte(offset uint32, v byte) error
	ReadU16(offset uint32) (uint16, error)
	WriteU16(offset uint32, v uint16) error
	ReadU32(offset uint32) (uint32, error)
	WriteU32(offset uint32, v uint32) error
	ReadU64(offset uint32) (uint64, error)
	WriteU64(offset uint32, v uint64) error
	ReadF32(offset uint32) (float32, error)
	WriteF32(offset uint32, v float32) error
	ReadF64(offset uint32) (float64, error)
	WriteF64(offset uint32, v float64) error

	Size() uint32
}

// Allocator is a convention some guest modules export rather than a
// capability this engine implements: a pair of "alloc"/"free" (or
// equivalent) exported functions a host calls, via Program.Call, before
// writing data the guest will read. It exists here only to document the
// pattern for embedders; nothing in this module requires a guest to
// implement it.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
