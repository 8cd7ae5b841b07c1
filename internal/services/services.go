package services

import (
	"github.com/sirupsen/logrus"

	"github.com/calyptra/shoprec/internal/config"
	"github.com/calyptra/shoprec/internal/database"
)

type Services struct {
	Store             *Store
	Health            *HealthService
	Recommendation    *RecommendationService
	ContentSimilarity *ContentSimilarityService
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	store := NewStore(db.PG, logger)

	return &Services{
		Store:             store,
		Health:            NewHealthService(logger, db),
		Recommendation:    NewRecommendationService(store, db.Redis, &cfg.Recommendation, logger),
		ContentSimilarity: NewContentSimilarityService(store, logger),
	}, nil
}
