package credcipher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyIV(t *testing.T) ([]byte, []byte) {
	t.Helper()

	key := []byte("0123456789abcdef0123456789abcdef")
	iv := []byte("fedcba9876543210")
	return key, iv
}

func TestNew(t *testing.T) {
	key, iv := testKeyIV(t)

	_, err := New(key[:16], iv)
	assert.ErrorIs(t, err, ErrInvalidKeyLength)

	_, err = New(key, iv[:8])
	assert.ErrorIs(t, err, ErrInvalidIVLength)

	c, err := New(key, iv)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestCipher_RoundTrip(t *testing.T) {
	key, iv := testKeyIV(t)
	c, err := New(key, iv)
	require.NoError(t, err)

	cases := []string{
		"hunter2",
		"s3cr3t:with:colons",
		"unicode pässwörd ✉",
		strings.Repeat("x", 257),
	}

	for _, plain := range cases {
		stored, err := c.Encrypt(plain)
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9a-f]{32}:[0-9a-f]+$`, stored)

		got, err := c.Decrypt(stored)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestCipher_Encrypt_EmptyPlaintext(t *testing.T) {
	key, iv := testKeyIV(t)
	c, err := New(key, iv)
	require.NoError(t, err)

	_, err = c.Encrypt("")
	assert.ErrorIs(t, err, ErrPlaintextEmpty)
}

func TestCipher_Decrypt_StoredIVSurvivesRotation(t *testing.T) {
	key, iv := testKeyIV(t)

	old, err := New(key, iv)
	require.NoError(t, err)

	stored, err := old.Encrypt("legacy-password")
	require.NoError(t, err)

	// Same key, different default IV: the stored value must still decrypt
	// because the IV travels with the ciphertext.
	rotated, err := New(key, []byte("0000000011111111"))
	require.NoError(t, err)

	got, err := rotated.Decrypt(stored)
	require.NoError(t, err)
	assert.Equal(t, "legacy-password", got)
}

func TestCipher_Decrypt_Malformed(t *testing.T) {
	key, iv := testKeyIV(t)
	c, err := New(key, iv)
	require.NoError(t, err)

	cases := map[string]string{
		"no separator":     "deadbeef",
		"empty":            "",
		"bad iv hex":       "zz:deadbeef",
		"short iv":         "dead:deadbeefdeadbeefdeadbeefdeadbeef",
		"bad data hex":     strings.Repeat("ab", 16) + ":nothex",
		"empty ciphertext": strings.Repeat("ab", 16) + ":",
		"partial block":    strings.Repeat("ab", 16) + ":" + strings.Repeat("ab", 15),
	}

	for name, stored := range cases {
		_, err := c.Decrypt(stored)
		assert.ErrorIs(t, err, ErrMalformedValue, name)
	}
}

func TestCipher_Decrypt_WrongKey(t *testing.T) {
	key, iv := testKeyIV(t)
	c, err := New(key, iv)
	require.NoError(t, err)

	stored, err := c.Encrypt("hunter2")
	require.NoError(t, err)

	other, err := New([]byte("ffffffffffffffffffffffffffffffff"), iv)
	require.NoError(t, err)

	got, err := other.Decrypt(stored)
	if err == nil {
		// A wrong key can by chance produce valid padding; the plaintext
		// must still not match.
		assert.NotEqual(t, "hunter2", got)
		return
	}
	assert.ErrorIs(t, err, ErrDecryptFailed)
}
