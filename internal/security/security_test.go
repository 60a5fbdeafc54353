package security

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Cheap parameters keep the suite fast; the encoding is identical.
var testParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher(2, testParams)
	ctx := context.Background()

	encoded, err := h.Hash(ctx, "correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := h.Verify(ctx, "correct horse", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, "wrong horse", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_SaltsDiffer(t *testing.T) {
	h := NewPasswordHasher(1, testParams)

	a, err := h.Hash(context.Background(), "password")
	require.NoError(t, err)
	b, err := h.Hash(context.Background(), "password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestPasswordHasher_VerifyBcrypt(t *testing.T) {
	// Password hash for "password" (bcrypt)
	legacy := "$2a$10$92IXUNpkjO0rOQ5byMi.Ye4oKoEa3Ro9llC/.og/at2.uheWG/igi"
	h := NewPasswordHasher(1, testParams)

	ok, err := h.Verify(context.Background(), "password", legacy)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(context.Background(), "other", legacy)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_VerifyRejectsUnknownFormats(t *testing.T) {
	h := NewPasswordHasher(1, testParams)

	tests := []struct {
		name    string
		encoded string
		wantErr error
	}{
		{name: "plain text", encoded: "password", wantErr: ErrUnsupportedHash},
		{name: "truncated argon2id", encoded: "$argon2id$v=19$m=8192", wantErr: ErrMalformedHash},
		{name: "bad params", encoded: "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5", wantErr: ErrMalformedHash},
		{name: "future version", encoded: "$argon2id$v=20$m=8192,t=1,p=1$c2FsdA$a2V5", wantErr: ErrUnsupportedHash},
		{name: "zero time", encoded: "$argon2id$v=19$m=8192,t=0,p=1$c2FsdA$a2V5", wantErr: ErrMalformedHash},
		{name: "zero threads", encoded: "$argon2id$v=19$m=8192,t=1,p=0$c2FsdA$a2V5", wantErr: ErrMalformedHash},
		{name: "zero memory", encoded: "$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5", wantErr: ErrMalformedHash},
		{name: "empty key", encoded: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$", wantErr: ErrMalformedHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := h.Verify(context.Background(), "password", tt.encoded)
			assert.False(t, ok)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPasswordHasher_HonoursContext(t *testing.T) {
	h := NewPasswordHasher(1, testParams)
	require.True(t, h.sem.TryAcquire(1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "password")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPasswordHasher_VerifyDummy(t *testing.T) {
	h := NewPasswordHasher(1, testParams)

	require.NoError(t, h.VerifyDummy(context.Background(), "anything"))
	assert.True(t, strings.HasPrefix(h.dummy, "$argon2id$v=19$m=8192,t=1,p=1$"), "dummy uses the hasher's own cost")

	first := h.dummy
	require.NoError(t, h.VerifyDummy(context.Background(), "something else"))
	assert.Equal(t, first, h.dummy, "dummy hash is built once")

	// The dummy verify waits for a hashing slot like a real one.
	require.True(t, h.sem.TryAcquire(1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.VerifyDummy(ctx, "anything"), context.Canceled)
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(64)
	require.NoError(t, err)
	b, err := GenerateSecret(64)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 64)
	assert.NotEqual(t, a, b)
}

func TestDigester_Sum(t *testing.T) {
	d := NewDigester("key")

	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	assert.Equal(t,
		"f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8",
		d.Sum("The quick brown fox jumps over the lazy dog"),
	)
	assert.NotEqual(t, d.Sum("value"), NewDigester("other").Sum("value"))
}
