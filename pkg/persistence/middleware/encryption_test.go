package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/persistence/middleware"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func encrypted(t *testing.T, next ports.SessionStore, active []byte, fallback ...[]byte) ports.SessionStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, encrypted(t, memory.NewStore(), generateKey(t)))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, underlying, generateKey(t))
	ctx := context.Background()

	s := domain.NewSession("c1", "welcome", 1, "greet")
	s.Context["phone"] = "+55 11 99999-0000"
	s.History = []string{"start", "greet"}
	require.NoError(t, secure.Create(ctx, s))

	stored, err := underlying.Load(ctx, "c1")
	require.NoError(t, err)
	assert.NotContains(t, stored.Context, "phone")
	assert.Contains(t, stored.Context, middleware.EncryptedKey)
	assert.Empty(t, stored.History)
	assert.Equal(t, domain.StatusRunning, stored.Status, "status stays visible to the store")

	loaded, err := secure.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "+55 11 99999-0000", loaded.Context["phone"])
	assert.Equal(t, []string{"start", "greet"}, loaded.History)

	loaded.Step++
	loaded.Status = domain.StatusFailed
	loaded.Detail = "order 123 for Ana"
	require.NoError(t, secure.Save(ctx, loaded))

	stored, err = underlying.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, stored.Detail)
	assert.Equal(t, uint64(1), stored.Step)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	oldStore := encrypted(t, underlying, oldKey)
	ctx := context.Background()

	s := domain.NewSession("rotation", "welcome", 1, "greet")
	s.Context["data"] = "encrypted-with-old-key"
	require.NoError(t, oldStore.Create(ctx, s))

	newStore := encrypted(t, underlying, newKey, oldKey)
	loaded, err := newStore.Load(ctx, "rotation")
	require.NoError(t, err)
	assert.Equal(t, "encrypted-with-old-key", loaded.Context["data"])

	loaded.Step++
	loaded.Context["data"] = "encrypted-with-new-key"
	require.NoError(t, newStore.Save(ctx, loaded))

	_, err = oldStore.Load(ctx, "rotation")
	assert.Error(t, err, "old key alone cannot read data sealed with the new key")
}

func TestEncryptionMiddleware_Errors(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrKeySize)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.ErrorIs(t, err, middleware.ErrKeySize)

	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Create(ctx, domain.NewSession("plain", "welcome", 1, "greet")))
	_, err = encrypted(t, underlying, generateKey(t)).Load(ctx, "plain")
	assert.ErrorContains(t, err, "envelope")
}
