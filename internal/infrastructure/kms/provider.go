// Package kms resolves the master secret that seals private signing keys
// at rest. Production deployments read it from HashiCorp Vault; dev and
// single-node profiles use the static provider.
package kms

import (
	"context"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// MasterKeyProvider yields the 32-byte master secret for the at-rest key
// cipher. Implementations must return exactly 32 bytes or an error; the
// caller never pads or truncates.
type MasterKeyProvider interface {
	MasterSecret(ctx context.Context) ([]byte, error)
}

// NewProvider selects the provider named by cfg.Provider. Anything other
// than "vault" resolves to the static provider, which covers both the
// explicit "static" value and the default.
//
// Parameters:
//   - cfg: master key configuration (provider name, static material)
//   - vaultCfg: vault connection settings, used only for the vault provider
//   - log: structured logger
//
// Returns:
//   - MasterKeyProvider: the selected provider
//   - error: vault client construction failure
func NewProvider(cfg config.MasterKeyConfig, vaultCfg config.VaultConfig, log logger.Logger) (MasterKeyProvider, error) {
	switch cfg.Provider {
	case "vault":
		client, err := NewVaultClient(vaultCfg)
		if err != nil {
			return nil, err
		}
		return NewVaultProvider(vaultCfg, client, log), nil
	default:
		return NewStaticProvider(cfg), nil
	}
}
