package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizePositions(t *testing.T) {
	tokens, err := Tokenize("mod.wat", "(module\n  (func))")
	require.NoError(t, err)
	require.NotEmpty(t, tokens)
	require.Equal(t, "mod.wat", tokens[0].File)
	require.Equal(t, 1, tokens[0].Line)
	require.Equal(t, 1, tokens[0].Col)
	require.Equal(t, 0, tokens[0].Offset)

	// "func" token starts on line 2, after two leading spaces and a paren.
	var funcTok *Token
	for i := range tokens {
		if tokens[i].Value == "func" {
			funcTok = &tokens[i]
			break
		}
	}
	require.NotNil(t, funcTok)
	require.Equal(t, 2, funcTok.Line)
	require.Equal(t, 4, funcTok.Col)
}

func TestTokenizeRejectsUnterminatedString(t *testing.T) {
	_, err := Tokenize("", `(data "abc)`)
	require.Error(t, err)
}

func TestTokenizeRejectsUnterminatedBlockComment(t *testing.T) {
	_, err := Tokenize("", `(module (; comment never closes`)
	require.Error(t, err)
}

func TestTokenizeRejectsUnexpectedCharacter(t *testing.T) {
	_, err := Tokenize("", `(module #)`)
	require.Error(t, err)
}

func TestTokenizeAcceptsWellFormedBlockComment(t *testing.T) {
	tokens, err := Tokenize("", `(module (; a nested (; comment ;) here ;) (func))`)
	require.NoError(t, err)
	require.NotEmpty(t, tokens)
}
