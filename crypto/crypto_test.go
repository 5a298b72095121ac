package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFieldsIsUnambiguous(t *testing.T) {
	assert.NotEqual(t, HashFields([]byte("ab"), []byte("c")), HashFields([]byte("a"), []byte("bc")))
	assert.Equal(t, HashFields([]byte("x")), HashFields([]byte("x")))
	assert.Len(t, Hash(nil), 64)
}

func TestSignVerify(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.Equal(t, pub, priv.Public())

	sig := Sign(priv, []byte("game 7"))
	require.NoError(t, Verify(pub, []byte("game 7"), sig))
	require.NoError(t, VerifyFrom(pub.Hex(), []byte("game 7"), sig))
	assert.ErrorIs(t, Verify(pub, []byte("game 8"), sig), ErrBadSignature)
	assert.Error(t, Verify(pub, []byte("game 7"), "zz"))
}

func TestIdentityParsing(t *testing.T) {
	_, pub, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.True(t, IsPubKeyHex(pub.Hex()))
	assert.False(t, IsPubKeyHex("abcd"))
	assert.False(t, IsPubKeyHex("owner"))
	assert.False(t, IsPubKeyHex(""))
}
