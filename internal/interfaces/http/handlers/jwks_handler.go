package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	jose "github.com/go-jose/go-jose/v4"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// JWKSHandler publishes the public half of every usable signing key so
// resource servers can verify tokens offline. Keys appear here from the
// moment they are created until their expiry; a rotated-out key stays
// listed through its grace period.
type JWKSHandler struct {
	keys   service.KeyManager
	logger logger.Logger
}

// NewJWKSHandler creates the handler.
func NewJWKSHandler(keys service.KeyManager, log logger.Logger) *JWKSHandler {
	return &JWKSHandler{
		keys:   keys,
		logger: log.WithComponent("jwks_handler"),
	}
}

// GetJWKS serves the key set document.
func (h *JWKSHandler) GetJWKS(c *gin.Context) {
	keys, err := h.keys.PublicKeys(c.Request.Context())
	if err != nil {
		h.logger.Error(c.Request.Context(), "Failed to load public keys", err)
		WriteError(c, err)
		return
	}

	set := jose.JSONWebKeySet{Keys: make([]jose.JSONWebKey, 0, len(keys))}
	for _, key := range keys {
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key:       key.PublicKey,
			KeyID:     key.KID,
			Use:       "sig",
			Algorithm: string(constants.AlgorithmRS256),
		})
	}
	c.JSON(http.StatusOK, set)
}
