// Package kms_test provides tests for the kms package.
package kms_test

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	vault "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/kms"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/utils"
)

func vaultClientFor(t *testing.T, url string) *vault.Client {
	t.Helper()
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = url
	client, err := vault.NewClient(vaultConfig)
	require.NoError(t, err)
	return client
}

func TestVaultProvider_MasterSecret(t *testing.T) {
	secret := make([]byte, constants.MasterKeySize)
	_, err := rand.Read(secret)
	require.NoError(t, err)

	// Mock Vault server answering the KV-v2 read.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/climbauth/master-key", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"data": map[string]interface{}{
					"key": utils.Base64Encode(secret),
				},
			},
		})
	}))
	defer ts.Close()

	cfg := config.VaultConfig{
		Address:    ts.URL,
		MountPath:  "secret",
		SecretPath: "climbauth/master-key",
		Field:      "key",
	}
	provider := kms.NewVaultProvider(cfg, vaultClientFor(t, ts.URL), logger.NewNoopLogger())

	got, err := provider.MasterSecret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestVaultProvider_MasterSecret_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "secret missing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"errors":[]}`))
			},
		},
		{
			name: "field missing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"data":{"data":{"other":"value"}}}`))
			},
		},
		{
			name: "not base64",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"data":{"data":{"key":"%%%not-base64%%%"}}}`))
			},
		},
		{
			name: "wrong length",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				short := utils.Base64Encode(make([]byte, 16))
				_, _ = w.Write([]byte(`{"data":{"data":{"key":"` + short + `"}}}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			cfg := config.VaultConfig{
				Address:    ts.URL,
				MountPath:  "secret",
				SecretPath: "climbauth/master-key",
				Field:      "key",
			}
			provider := kms.NewVaultProvider(cfg, vaultClientFor(t, ts.URL), logger.NewNoopLogger())

			got, err := provider.MasterSecret(context.Background())
			assert.Nil(t, got)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, constants.ErrCodeEncryptionFailed))
		})
	}
}
