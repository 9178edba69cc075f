package secrets

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString(bytesOf(32, 0x42))
}

func bytesOf(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestBoxRoundTrip(t *testing.T) {
	box, err := NewBox(testKey())
	require.NoError(t, err)

	sealed, err := box.Encrypt("sk-live-abc123")
	require.NoError(t, err)
	assert.NotEqual(t, "sk-live-abc123", sealed)

	plain, err := box.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk-live-abc123", plain)
}

func TestBoxEmptyPassthrough(t *testing.T) {
	box, err := NewBox(testKey())
	require.NoError(t, err)

	sealed, err := box.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", sealed)

	plain, err := box.Decrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", plain)
}

func TestBoxWrongKeyFails(t *testing.T) {
	box1, err := NewBox(testKey())
	require.NoError(t, err)
	box2, err := NewBox(base64.StdEncoding.EncodeToString(bytesOf(32, 0x43)))
	require.NoError(t, err)

	sealed, err := box1.Encrypt("secret")
	require.NoError(t, err)
	_, err = box2.Decrypt(sealed)
	assert.Error(t, err)
}

func TestBoxRejectsBadKey(t *testing.T) {
	_, err := NewBox("not-base64!!!")
	assert.Error(t, err)

	_, err = NewBox(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

func TestBoxRejectsGarbagePayload(t *testing.T) {
	box, err := NewBox(testKey())
	require.NoError(t, err)

	_, err = box.Decrypt(base64.StdEncoding.EncodeToString([]byte("xx")))
	assert.Error(t, err)
}
