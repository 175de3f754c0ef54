package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"password", "^card_"})
	require.NoError(t, err)
	store := mw(underlying)
	ctx := context.Background()

	s := domain.NewSession("pii", "welcome", 1, "greet")
	s.Context["username"] = "jdoe"
	s.Context["user_password"] = "secret123"
	s.Context["card_number"] = "4111111111111111"
	s.Context["discard_reason"] = "none"
	require.NoError(t, store.Create(ctx, s))

	assert.Equal(t, "secret123", s.Context["user_password"], "caller's session is not modified")

	stored, err := store.Load(ctx, "pii")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.Context["username"])
	assert.Equal(t, middleware.Mask, stored.Context["user_password"])
	assert.Equal(t, middleware.Mask, stored.Context["card_number"])
	assert.Equal(t, "none", stored.Context["discard_reason"])
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"otp"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, pii, enc)
	ctx := context.Background()

	s := domain.NewSession("chain", "welcome", 1, "greet")
	s.Context["otp"] = "123456"
	s.Context["name"] = "Ana"
	require.NoError(t, store.Create(ctx, s))

	loaded, err := store.Load(ctx, "chain")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Context["otp"])
	assert.Equal(t, "Ana", loaded.Context["name"])

	raw, err := underlying.Load(ctx, "chain")
	require.NoError(t, err)
	assert.NotContains(t, raw.Context, "name")
}
