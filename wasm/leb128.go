package wasm

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	werrors "github.com/jasonwyatt/wasmkit/errors"
)

// ReadLEB128u reads an unsigned LEB128-encoded value of at most 32 bits.
// The final byte of a maximal-length (5-byte) encoding may only set the
// bits that actually fall within the 32-bit result; any higher bit set in
// that byte is rejected as Malformed rather than silently truncated.
func ReadLEB128u(r io.ByteReader) (uint32, error) {
	var result uint32
	var shift uint
	for i := 0; ; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if i == 4 && b&0x70 != 0 {
			return 0, werrors.New(werrors.PhaseParse, werrors.KindMalformed, "LEB128 u32: unused high bits set in final byte")
		}
		if shift >= 35 {
			return 0, werrors.New(werrors.PhaseParse, werrors.KindMalformed, "LEB128 u32 overflow")
		}
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

// ReadLEB128u64 reads an unsigned LEB128-encoded value of at most 64 bits.
// The final byte of a maximal-length (10-byte) encoding may only set its
// lowest bit (bit 63 of the result); anything higher is Malformed.
func ReadLEB128u64(r io.ByteReader) (uint64, error) {
	var result uint64
	var shift uint
	for i := 0; ; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if i == 9 && b&0x7E != 0 {
			return 0, werrors.New(werrors.PhaseParse, werrors.KindMalformed, "LEB128 u64: unused high bits set in final byte")
		}
		if shift >= 70 {
			return 0, werrors.New(werrors.PhaseParse, werrors.KindMalformed, "LEB128 u64 overflow")
		}
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

// ReadLEB128s reads a signed LEB128-encoded value of at most 32 bits. Per
// spec.md §8's LEB128 corner case, the final byte of a maximal-length
// (5-byte) encoding carries only 4 value bits (28..31); its remaining
// bits must all equal the sign bit those 4 bits produce, or the encoding
// is rejected as Malformed rather than having its extra bits silently
// discarded.
func ReadLEB128s(r io.ByteReader) (int32, error) {
	var result int32
	var shift uint
	var b byte
	var err error
	for i := 0; ; i++ {
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		if i == 4 {
			signBit := (b >> 3) & 1
			extra := b >> 4
			want := byte(0)
			if signBit == 1 {
				want = 0x7
			}
			if extra != want {
				return 0, werrors.New(werrors.PhaseParse, werrors.KindMalformed, "LEB128 s32: non-canonical sign bits in final byte")
			}
		}
		if shift >= 35 {
			return 0, werrors.New(werrors.PhaseParse, werrors.KindMalformed, "LEB128 s32 overflow")
		}
		result |= int32(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 32 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

// ReadLEB128s64 reads a signed LEB128-encoded value of at most 64 bits.
// The final byte of a maximal-length (10-byte) encoding carries only 1
// value bit (bit 63); its remaining bits must match that bit's sign
// extension, or the encoding is Malformed.
func ReadLEB128s64(r io.ByteReader) (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for i := 0; ; i++ {
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		if i == 9 {
			signBit := b & 1
			extra := b >> 1
			want := byte(0)
			if signBit == 1 {
				want = 0x3F
			}
			if extra != want {
				return 0, werrors.New(werrors.PhaseParse, werrors.KindMalformed, "LEB128 s64: non-canonical sign bits in final byte")
			}
		}
		if shift >= 70 {
			return 0, werrors.New(werrors.PhaseParse, werrors.KindMalformed, "LEB128 s64 overflow")
		}
		result |= int64(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

// WriteLEB128u appends an unsigned LEB128 encoding of v to buf.
func WriteLEB128u(buf *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			buf.WriteByte(b | 0x80)
		} else {
			buf.WriteByte(b)
			return
		}
	}
}

// WriteLEB128u64 appends an unsigned LEB128 encoding of v to buf.
func WriteLEB128u64(buf *bytes.Buffer, v uint64) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			buf.WriteByte(b | 0x80)
		} else {
			buf.WriteByte(b)
			return
		}
	}
}

// WriteLEB128s appends a signed LEB128 encoding of v to buf.
func WriteLEB128s(buf *bytes.Buffer, v int32) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}

// WriteLEB128s64 appends a signed LEB128 encoding of v to buf.
func WriteLEB128s64(buf *bytes.Buffer, v int64) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}

// ReadFloat32 reads a little-endian IEEE-754 single-precision float.
func ReadFloat32(r io.Reader) (float32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[:])), nil
}

// ReadFloat64 reads a little-endian IEEE-754 double-precision float.
func ReadFloat64(r io.Reader) (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

// WriteFloat32 appends the little-endian encoding of f to buf.
func WriteFloat32(buf *bytes.Buffer, f float32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(f))
	buf.Write(tmp[:])
}

// WriteFloat64 appends the little-endian encoding of f to buf.
func WriteFloat64(buf *bytes.Buffer, f float64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
	buf.Write(tmp[:])
}
