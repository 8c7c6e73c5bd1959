package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("achievement-1", "achievements/evidence/cert.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	ownerID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "achievement-1", ownerID)
	require.Equal(t, "achievements/evidence/cert.pdf", path)
	require.True(t, expiresAt.Equal(parsedExpiry))
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("event-1", "events/circulars/poster.png")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrTokenExpired)

	ownerID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "event-1", ownerID)
	require.Equal(t, "events/circulars/poster.png", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("request-1", "permission_requests/docs/a.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "request-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	require.ErrorIs(t, err, ErrTokenInvalid)

	other := NewSignedURLSigner("other", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)
}

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.SaveStream("achievements/evidence/a.txt", strings.NewReader("proof"))
	require.NoError(t, err)

	file, err := store.Open(name)
	require.NoError(t, err)
	buf := make([]byte, 5)
	_, err = file.Read(buf)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	require.Equal(t, "proof", string(buf))

	require.NoError(t, store.Delete(name))
	require.NoError(t, store.Delete(name))
	_, err = store.Open(name)
	require.Error(t, err)
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../secret.txt", "events/../../x.png", "/etc/passwd", ""} {
		_, err := store.Open(key)
		require.ErrorIs(t, err, ErrOutsideRoot, key)
	}
	_, err = store.SaveStream("../up.txt", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrOutsideRoot)
}
