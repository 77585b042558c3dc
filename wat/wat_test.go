package wat_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jasonwyatt/wasmkit/wat"
)

// The folded and flat instruction syntaxes are two spellings of the same
// instruction sequence; both must produce an equivalent module.
func TestFoldedAndFlatInstructionsAreEquivalent(t *testing.T) {
	folded := `
	(module
	  (func $f (param $a i32) (param $b i32) (result i32)
	    (i32.add (local.get $a) (local.get $b)))
	  (export "f" (func $f)))
	`
	flat := `
	(module
	  (func $f (param $a i32) (param $b i32) (result i32)
	    local.get $a
	    local.get $b
	    i32.add)
	  (export "f" (func $f)))
	`
	mFolded, err := wat.Compile(folded)
	require.NoError(t, err)
	mFlat, err := wat.Compile(flat)
	require.NoError(t, err)

	dataFolded, err := mFolded.Encode()
	require.NoError(t, err)
	dataFlat, err := mFlat.Encode()
	require.NoError(t, err)
	require.Equal(t, dataFolded, dataFlat, "folded and flat spellings of the same instructions must encode identically")
}

func TestParseRejectsMalformedSource(t *testing.T) {
	_, err := wat.Parse(`(module (func $f (result i32)`)
	require.Error(t, err)
}
