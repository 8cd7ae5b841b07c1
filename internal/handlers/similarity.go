package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/calyptra/shoprec/internal/services"
	"github.com/calyptra/shoprec/pkg/models"
)

type SimilarityHandler struct {
	similarity services.SimilarityProvider
	logger     *logrus.Logger
}

func NewSimilarityHandler(similarity services.SimilarityProvider, logger *logrus.Logger) *SimilarityHandler {
	return &SimilarityHandler{
		similarity: similarity,
		logger:     logger,
	}
}

// Similar returns products similar to the given one.
func (h *SimilarityHandler) Similar(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_PRODUCT_ID",
				"message": "Invalid product ID format",
			},
		})
		return
	}

	limit := parseLimit(c, 10)

	products, err := h.similarity.SimilarProducts(c.Request.Context(), productID, limit)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": gin.H{
					"code":    "PRODUCT_NOT_FOUND",
					"message": "Product not found in catalog",
				},
			})
			return
		}

		h.logger.WithError(err).WithField("product_id", productID).Error("Similar product lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "SIMILARITY_LOOKUP_FAILED",
				"message": "Failed to look up similar products",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.SimilarProductsResponse{
		ProductID: productID,
		Products:  products,
	})
}

// Recompute triggers the catalog-wide similarity maintenance run.
func (h *SimilarityHandler) Recompute(c *gin.Context) {
	if err := h.similarity.Recompute(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("Similarity recompute failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "RECOMPUTE_FAILED",
				"message": "Failed to recompute content similarity",
			},
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "recomputed"})
}
