package wasm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLEB128UnsignedRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 300, 1 << 20, 1<<32 - 1}
	for _, v := range cases {
		var buf bytes.Buffer
		WriteLEB128u(&buf, v)
		got, err := ReadLEB128u(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestLEB128Unsigned64RoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 1 << 40, 1<<64 - 1}
	for _, v := range cases {
		var buf bytes.Buffer
		WriteLEB128u64(&buf, v)
		got, err := ReadLEB128u64(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestLEB128SignedRoundTrip(t *testing.T) {
	cases := []int32{0, 1, -1, 63, -64, 1000, -1000, 1<<31 - 1, -(1 << 31)}
	for _, v := range cases {
		var buf bytes.Buffer
		WriteLEB128s(&buf, v)
		got, err := ReadLEB128s(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestLEB128Signed64RoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 63, -64, 1 << 40, -(1 << 40), 1<<63 - 1, -(1 << 63)}
	for _, v := range cases {
		var buf bytes.Buffer
		WriteLEB128s64(&buf, v)
		got, err := ReadLEB128s64(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

// TestLEB128SignedMaximalLengthAccepted covers the legal (if non-minimal)
// 5-byte encoding of -1, where every continuation byte carries all-ones
// and the final byte's unused bits correctly sign-extend.
func TestLEB128SignedMaximalLengthAccepted(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F}
	got, err := ReadLEB128s(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, int32(-1), got)
}

// TestLEB128SignedNonCanonicalSignBitRejected is spec.md §8's literal
// LEB128 corner case: a 5-byte i32 encoding whose final byte's unused
// high bits disagree with the sign the low bits establish must be
// rejected at parse time as Malformed.
func TestLEB128SignedNonCanonicalSignBitRejected(t *testing.T) {
	data := []byte{0x80, 0x80, 0x80, 0x80, 0x70}
	_, err := ReadLEB128s(bytes.NewReader(data))
	require.Error(t, err)
}
