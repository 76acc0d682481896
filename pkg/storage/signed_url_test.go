package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("2026/10/receipt-1.jpg")
	require.NoError(t, err)
	assert.NotContains(t, token, "/")
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	key, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "2026/10/receipt-1.jpg", key)
}

func TestVerifyExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Sign("a.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Sign("a.pdf")
	require.NoError(t, err)

	other, _, err := signer.Sign("b.pdf")
	require.NoError(t, err)
	swapped := strings.SplitN(other, ".", 2)[0] + token[strings.IndexByte(token, '.'):]

	for _, bad := range []string{swapped, "garbage", "", token + "x"} {
		_, err := signer.Verify(bad)
		assert.ErrorIs(t, err, ErrInvalidToken, bad)
	}

	_, err = NewSignedURLSigner("other", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignRequiresSecret(t *testing.T) {
	_, _, err := NewSignedURLSigner("", time.Hour).Sign("a.pdf")
	assert.Error(t, err)
}
