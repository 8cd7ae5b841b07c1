package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/calyptra/shoprec/internal/config"
)

func CORS(cfg *config.Config) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.Security.CORS.AllowedOrigins,
		AllowMethods:     cfg.Security.CORS.AllowedMethods,
		AllowHeaders:     cfg.Security.CORS.AllowedHeaders,
		AllowCredentials: true,
	})
}
