package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/calyptra/shoprec/internal/services"
)

type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
	Similarity     *SimilarityHandler
}

func New(logger *logrus.Logger, services *services.Services) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, services.Health),
		Recommendation: NewRecommendationHandler(services.Recommendation, logger),
		Similarity:     NewSimilarityHandler(services.ContentSimilarity, logger),
	}
}
