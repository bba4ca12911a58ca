package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersAtIsDeterministic(t *testing.T) {
	auth := &RequestAuth{Key: "key-1", Secret: "secret-1"}

	h1 := auth.HeadersAt("POST", "/api/orders", `{"orders":[]}`, 1700000000)
	h2 := auth.HeadersAt("POST", "/api/orders", `{"orders":[]}`, 1700000000)
	assert.Equal(t, h1, h2)

	assert.Equal(t, "key-1", h1["X-WN-API-KEY"])
	assert.Equal(t, "1700000000", h1["X-WN-TIMESTAMP"])

	// Recompute the signature independently.
	mac := hmac.New(sha256.New, []byte("secret-1"))
	mac.Write([]byte("1700000000" + "POST" + "/api/orders" + `{"orders":[]}`))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, h1["X-WN-SIGNATURE"])
}

func TestHeadersVaryWithInputs(t *testing.T) {
	auth := &RequestAuth{Key: "key-1", Secret: "secret-1"}
	base := auth.HeadersAt("POST", "/api/orders", "body", 1700000000)

	assert.NotEqual(t, base["X-WN-SIGNATURE"],
		auth.HeadersAt("GET", "/api/orders", "body", 1700000000)["X-WN-SIGNATURE"])
	assert.NotEqual(t, base["X-WN-SIGNATURE"],
		auth.HeadersAt("POST", "/api/wallet", "body", 1700000000)["X-WN-SIGNATURE"])
	assert.NotEqual(t, base["X-WN-SIGNATURE"],
		auth.HeadersAt("POST", "/api/orders", "body", 1700000001)["X-WN-SIGNATURE"])
}

func TestRequestAuthStringRedactsSecret(t *testing.T) {
	auth := &RequestAuth{Key: "key-123456", Secret: "super-secret-value"}
	s := auth.String()
	assert.NotContains(t, s, "super-secret-value")
	assert.Contains(t, s, "****")
}

func TestSealOpenRoundtrip(t *testing.T) {
	blob, err := SealToken("session-token-abc", "hunter2")
	require.NoError(t, err)

	token, err := OpenToken(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "session-token-abc", token)
}

func TestOpenTokenWrongPassword(t *testing.T) {
	blob, err := SealToken("session-token-abc", "hunter2")
	require.NoError(t, err)

	_, err = OpenToken(blob, "wrong")
	assert.Error(t, err)
}

func TestSealRejectsEmptyInputs(t *testing.T) {
	_, err := SealToken("", "hunter2")
	assert.Error(t, err)
	_, err = SealToken("token", "")
	assert.Error(t, err)
}

func TestSealIsSalted(t *testing.T) {
	a, err := SealToken("token", "pw")
	require.NoError(t, err)
	b, err := SealToken("token", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "identical inputs must not produce identical blobs")
}

func TestSealTokenFileRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.sealed")

	require.NoError(t, SealTokenToFile(path, "tok", "pw"))

	token, err := OpenTokenFromFile(path, "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}

func TestOpenTokenFromMissingFile(t *testing.T) {
	_, err := OpenTokenFromFile(filepath.Join(t.TempDir(), "nope.sealed"), "pw")
	assert.Error(t, err)
}
