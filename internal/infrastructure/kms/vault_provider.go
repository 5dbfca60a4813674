package kms

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/utils"
)

var _ MasterKeyProvider = (*VaultProvider)(nil)

// VaultProvider reads the master secret from a Vault KV-v2 mount. The
// secret value is stored base64-encoded under a single field.
type VaultProvider struct {
	client *vault.Client
	config config.VaultConfig
	log    logger.Logger
}

// NewVaultClient builds a Vault API client from configuration.
func NewVaultClient(cfg config.VaultConfig) (*vault.Client, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeInternal, "failed to create vault client")
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	return client, nil
}

// NewVaultProvider creates a Vault-backed master key provider.
//
// Parameters:
//   - cfg: vault address, mount and secret path
//   - client: configured vault API client
//   - log: structured logger
//
// Returns:
//   - *VaultProvider: ready provider
func NewVaultProvider(cfg config.VaultConfig, client *vault.Client, log logger.Logger) *VaultProvider {
	return &VaultProvider{
		client: client,
		config: cfg,
		log:    log.WithComponent("vault_provider"),
	}
}

// MasterSecret reads and decodes the master secret from Vault.
func (p *VaultProvider) MasterSecret(ctx context.Context) ([]byte, error) {
	path := fmt.Sprintf("%s/data/%s", p.config.MountPath, p.config.SecretPath)

	secret, err := p.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		p.log.Error(ctx, "failed to read master key from vault", err, logger.String("path", path))
		return nil, errors.Wrap(err, constants.ErrCodeEncryptionFailed, "could not retrieve master key from vault")
	}
	if secret == nil || secret.Data["data"] == nil {
		return nil, errors.ErrEncryptionFailed(fmt.Sprintf("master key not found in vault at %s", path))
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, errors.ErrEncryptionFailed("invalid secret format in vault")
	}

	encoded, ok := data[p.config.Field].(string)
	if !ok {
		return nil, errors.ErrEncryptionFailed(
			fmt.Sprintf("field %s not found or not a string in vault secret", p.config.Field))
	}

	raw, err := utils.Base64Decode(encoded)
	if err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeEncryptionFailed, "master key in vault is not valid base64")
	}
	if len(raw) != constants.MasterKeySize {
		return nil, errors.ErrEncryptionFailed(
			fmt.Sprintf("master key must be %d bytes, got %d", constants.MasterKeySize, len(raw)))
	}

	p.log.Info(ctx, "master key loaded from vault", logger.String("path", path))
	return raw, nil
}
