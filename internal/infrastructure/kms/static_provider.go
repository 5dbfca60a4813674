package kms

import (
	"context"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/utils"
)

// Argon2id parameters for passphrase derivation. The derivation runs once
// at startup, so the cost can sit above interactive-login settings.
const (
	argonTime      = 3
	argonMemoryKiB = 64 * 1024
	argonThreads   = 4

	// defaultSalt keeps dev profiles working without any salt config. A
	// production deployment uses the vault provider or an explicit salt.
	defaultSalt = "climbauth-master-key-v1"
)

var _ MasterKeyProvider = (*StaticProvider)(nil)

// StaticProvider resolves the master secret from configuration: either a
// base64-encoded 32-byte key, or an Argon2id derivation from a passphrase
// for dev profiles.
type StaticProvider struct {
	config config.MasterKeyConfig
}

// NewStaticProvider creates a config-backed master key provider.
func NewStaticProvider(cfg config.MasterKeyConfig) *StaticProvider {
	return &StaticProvider{config: cfg}
}

// MasterSecret decodes or derives the master secret.
func (p *StaticProvider) MasterSecret(ctx context.Context) ([]byte, error) {
	if p.config.Key != "" {
		raw, err := utils.Base64Decode(p.config.Key)
		if err != nil {
			return nil, errors.Wrap(err, constants.ErrCodeEncryptionFailed, "master key is not valid base64")
		}
		if len(raw) != constants.MasterKeySize {
			return nil, errors.ErrEncryptionFailed(
				fmt.Sprintf("master key must be %d bytes, got %d", constants.MasterKeySize, len(raw)))
		}
		return raw, nil
	}

	if p.config.Passphrase != "" {
		salt := p.config.Salt
		if salt == "" {
			salt = defaultSalt
		}
		return argon2.IDKey(
			[]byte(p.config.Passphrase),
			[]byte(salt),
			argonTime,
			argonMemoryKiB,
			argonThreads,
			constants.MasterKeySize,
		), nil
	}

	return nil, errors.ErrEncryptionFailed("static master key provider needs key or passphrase")
}
