package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/http/middleware"
	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/modules/gateway"
	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/shared/apperr"
)

// AdminGatewayHandler exposes the gateway credential surface. Authentication
// for the admin area is handled by the surrounding deployment, not here.
type AdminGatewayHandler struct {
	Logger  *slog.Logger
	Configs *gateway.ConfigRepo
}

func NewAdminGatewayHandler(logger *slog.Logger, configs *gateway.ConfigRepo) *AdminGatewayHandler {
	return &AdminGatewayHandler{Logger: logger, Configs: configs}
}

// GET /api/admin/gateway-config
// The secret key is never echoed back, only whether one is set.
func (h *AdminGatewayHandler) Get(c *gin.Context) {
	cfg, err := h.Configs.GetActive(c.Request.Context())
	if err != nil {
		if errors.Is(err, gateway.ErrConfigIncomplete) {
			c.JSON(http.StatusOK, gin.H{"configured": false})
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"configured":        cfg.Complete(),
		"gateway_name":      cfg.GatewayName,
		"merchant_code":     cfg.MerchantCode,
		"terminal":          cfg.Terminal,
		"environment":       cfg.Environment,
		"signature_version": cfg.SignatureVersion,
		"public_base_url":   cfg.PublicBaseURL,
		"secret_key_set":    cfg.SecretKey != "",
	})
}

type gatewayConfigInput struct {
	MerchantCode     string `json:"merchant_code" binding:"omitempty,max=9"`
	Terminal         string `json:"terminal" binding:"omitempty,numeric,max=3"`
	SecretKey        string `json:"secret_key" binding:"omitempty,max=500"`
	Environment      string `json:"environment" binding:"omitempty,oneof=test production"`
	SignatureVersion string `json:"signature_version" binding:"omitempty,oneof=HMAC_SHA256_V1 HMAC_SHA512_V2"`
	PublicBaseURL    string `json:"public_base_url" binding:"omitempty,url,max=200"`
}

// PUT /api/admin/gateway-config
func (h *AdminGatewayHandler) Update(c *gin.Context) {
	var in gatewayConfigInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Datos de configuración no válidos.", nil))
		return
	}

	cfg, err := h.Configs.Upsert(c.Request.Context(), gateway.UpsertConfigInput{
		MerchantCode:     in.MerchantCode,
		Terminal:         in.Terminal,
		SecretKey:        in.SecretKey,
		Environment:      in.Environment,
		SignatureVersion: in.SignatureVersion,
		PublicBaseURL:    in.PublicBaseURL,
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	h.Logger.Info("gateway config updated",
		"request_id", middleware.GetRequestID(c),
		"merchant_code", cfg.MerchantCode,
		"environment", cfg.Environment,
		"secret_key_set", cfg.SecretKey != "")

	c.JSON(http.StatusOK, gin.H{
		"configured":        cfg.Complete(),
		"merchant_code":     cfg.MerchantCode,
		"terminal":          cfg.Terminal,
		"environment":       cfg.Environment,
		"signature_version": cfg.SignatureVersion,
		"public_base_url":   cfg.PublicBaseURL,
	})
}
