package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/calyptra/shoprec/internal/services"
)

type HealthHandler struct {
	logger *logrus.Logger
	health *services.HealthService
}

func NewHealthHandler(logger *logrus.Logger, health *services.HealthService) *HealthHandler {
	return &HealthHandler{logger: logger, health: health}
}

func (h *HealthHandler) Check(c *gin.Context) {
	status := h.health.Check(c.Request.Context())

	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
