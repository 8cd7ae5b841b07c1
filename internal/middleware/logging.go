package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger routes gin's per-request log line through the service logger as a
// structured entry. Latency is reported in milliseconds; the error field
// only appears when the handler chain recorded one.
func Logger(logger *logrus.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		entry := logger.WithFields(logrus.Fields{
			"status":     param.StatusCode,
			"method":     param.Method,
			"path":       param.Path,
			"query":      param.Request.URL.RawQuery,
			"client_ip":  param.ClientIP,
			"latency_ms": param.Latency.Milliseconds(),
		})
		if param.ErrorMessage != "" {
			entry = entry.WithField("error", param.ErrorMessage)
		}
		entry.Info("Request completed")

		return ""
	})
}

// Recovery logs the panic value with request context and answers with the
// standard error envelope instead of an empty 500.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(logrus.Fields{
			"panic":  recovered,
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Panic recovered")

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_SERVER_ERROR",
				"message": "Internal server error",
			},
		})
	})
}
