package kms_test

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/kms"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/utils"
)

func TestStaticProvider_ExplicitKey(t *testing.T) {
	secret := make([]byte, constants.MasterKeySize)
	_, err := rand.Read(secret)
	require.NoError(t, err)

	provider := kms.NewStaticProvider(config.MasterKeyConfig{
		Provider: "static",
		Key:      utils.Base64Encode(secret),
	})

	got, err := provider.MasterSecret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestStaticProvider_ExplicitKey_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "not base64", key: "%%%not-base64%%%"},
		{name: "too short", key: utils.Base64Encode(make([]byte, 16))},
		{name: "too long", key: utils.Base64Encode(make([]byte, 48))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := kms.NewStaticProvider(config.MasterKeyConfig{Provider: "static", Key: tt.key})

			got, err := provider.MasterSecret(context.Background())
			assert.Nil(t, got)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, constants.ErrCodeEncryptionFailed))
		})
	}
}

func TestStaticProvider_PassphraseDerivation(t *testing.T) {
	ctx := context.Background()

	first := kms.NewStaticProvider(config.MasterKeyConfig{Provider: "static", Passphrase: "correct horse battery staple"})
	a, err := first.MasterSecret(ctx)
	require.NoError(t, err)
	assert.Len(t, a, constants.MasterKeySize)

	// Same passphrase and salt derive the same secret across restarts.
	second := kms.NewStaticProvider(config.MasterKeyConfig{Provider: "static", Passphrase: "correct horse battery staple"})
	b, err := second.MasterSecret(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// A different salt or passphrase changes the derived secret.
	salted := kms.NewStaticProvider(config.MasterKeyConfig{Provider: "static", Passphrase: "correct horse battery staple", Salt: "tenant-a"})
	c, err := salted.MasterSecret(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	other := kms.NewStaticProvider(config.MasterKeyConfig{Provider: "static", Passphrase: "open sesame"})
	d, err := other.MasterSecret(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

func TestStaticProvider_MissingMaterial(t *testing.T) {
	provider := kms.NewStaticProvider(config.MasterKeyConfig{Provider: "static"})

	got, err := provider.MasterSecret(context.Background())
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, constants.ErrCodeEncryptionFailed))
}
