package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/calyptra/shoprec/internal/services"
	"github.com/calyptra/shoprec/pkg/models"
)

var validate = validator.New()

type RecommendationHandler struct {
	recommendations services.RecommendationProvider
	logger          *logrus.Logger
}

func NewRecommendationHandler(recommendations services.RecommendationProvider, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommendations: recommendations,
		logger:          logger,
	}
}

// Get returns the freshest recommendation set for a user, generating one
// when none exists or refresh=true is passed.
func (h *RecommendationHandler) Get(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	method := models.ParseMethod(c.DefaultQuery("method", string(models.MethodHybrid)))
	limit := parseLimit(c, 0)
	refresh := c.Query("refresh") == "true"

	rec, cacheHit, err := h.recommendations.GetOrGenerate(c.Request.Context(), userID, method, limit, refresh)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to get recommendations")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "RECOMMENDATION_FAILED",
				"message": "Failed to get recommendations",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.RecommendationResponse{
		UserID:      rec.UserID,
		Method:      rec.Method,
		GeneratedAt: rec.CreatedAt,
		CacheHit:    cacheHit,
		Items:       rec.Items,
	})
}

type generateRequest struct {
	Method string `json:"method" validate:"omitempty,oneof=collaborative_filtering content_based hybrid trending recent_activity"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

// Generate forces a new recommendation set for the user.
func (h *RecommendationHandler) Generate(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "INVALID_REQUEST_BODY",
					"message": "Request body must be valid JSON",
				},
			})
			return
		}
	}

	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	method := models.ParseMethod(req.Method)

	rec, err := h.recommendations.Generate(c.Request.Context(), userID, method, req.Limit)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to generate recommendations")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "RECOMMENDATION_GENERATION_FAILED",
				"message": "Failed to generate recommendations",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, models.RecommendationResponse{
		UserID:      rec.UserID,
		Method:      rec.Method,
		GeneratedAt: rec.CreatedAt,
		CacheHit:    false,
		Items:       rec.Items,
	})
}

func parseUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "Invalid user ID format",
			},
		})
		return uuid.Nil, false
	}
	return userID, true
}

func parseLimit(c *gin.Context, fallback int) int {
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			return limit
		}
	}
	return fallback
}
