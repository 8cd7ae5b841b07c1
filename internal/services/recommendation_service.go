package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/calyptra/shoprec/internal/config"
	"github.com/calyptra/shoprec/pkg/models"
)

// RecommendationService dispatches to the strategy implementations and
// materializes their results. Each generation is a self-contained
// synchronous computation; concurrent generations for the same user may
// both materialize, and the freshest row wins.
type RecommendationService struct {
	store   RecommendationDataStore
	redis   *redis.Client
	cfg     *config.RecommendationConfig
	weights models.ActionWeights
	logger  *logrus.Logger
}

func NewRecommendationService(
	store RecommendationDataStore,
	redisClient *redis.Client,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
) *RecommendationService {
	return &RecommendationService{
		store:   store,
		redis:   redisClient,
		cfg:     cfg,
		weights: cfg.ActionWeights.Weights(),
		logger:  logger,
	}
}

// Generate runs the requested strategy and persists the result as a new
// Recommendation with 1-based positions. Unknown methods run hybrid.
func (s *RecommendationService) Generate(ctx context.Context, userID uuid.UUID, method models.Method, limit int) (*models.Recommendation, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	start := time.Now()

	var scored []models.ScoredProduct
	switch method {
	case models.MethodCollaborative:
		scored = s.collaborativeFiltering(ctx, userID, limit)
	case models.MethodContentBased:
		scored = s.contentBased(ctx, userID, limit)
	case models.MethodTrending:
		scored = s.trending(ctx, limit)
	case models.MethodRecentActivity:
		scored = s.recentActivity(ctx, userID, limit)
	case models.MethodHybrid:
		scored = s.hybrid(ctx, userID, limit)
	default:
		method = models.MethodHybrid
		scored = s.hybrid(ctx, userID, limit)
	}

	rec := &models.Recommendation{
		ID:        uuid.New(),
		UserID:    userID,
		Method:    method,
		CreatedAt: time.Now().UTC(),
		Items:     materializeItems(scored),
	}

	if err := s.store.CreateRecommendation(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist recommendation: %w", err)
	}

	s.cacheRecommendation(ctx, rec)

	generationsTotal.WithLabelValues(string(method)).Inc()
	generationDuration.WithLabelValues(string(method)).Observe(time.Since(start).Seconds())

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"method":  method,
		"items":   len(rec.Items),
	}).Debug("Recommendation generated")

	return rec, nil
}

// GetOrGenerate returns the freshest stored recommendation for the
// (user, method) pair when one exists inside the staleness window,
// otherwise it generates a new one with the given limit (non-positive
// means the configured default). The second return value reports whether
// the result came from cache.
func (s *RecommendationService) GetOrGenerate(ctx context.Context, userID uuid.UUID, method models.Method, limit int, forceRefresh bool) (*models.Recommendation, bool, error) {
	if !forceRefresh {
		if rec := s.cachedRecommendation(ctx, userID, method); rec != nil {
			return rec, true, nil
		}

		rec, err := s.store.LatestRecommendation(ctx, userID, method)
		if err != nil {
			s.logger.WithError(err).Warn("Stored recommendation lookup failed")
		} else if rec != nil && time.Since(rec.CreatedAt) < s.cfg.CacheTTL {
			s.cacheRecommendation(ctx, rec)
			return rec, true, nil
		}
	}

	rec, err := s.Generate(ctx, userID, method, limit)
	return rec, false, err
}

// materializeItems assigns sequential 1-based positions matching sort
// order.
func materializeItems(scored []models.ScoredProduct) []models.RecommendationItem {
	items := make([]models.RecommendationItem, 0, len(scored))
	for i, sp := range scored {
		items = append(items, models.RecommendationItem{
			ProductID: sp.Product.ID,
			Score:     sp.Score,
			Position:  i + 1,
		})
	}
	return items
}

func (s *RecommendationService) cacheKey(userID uuid.UUID, method models.Method) string {
	return fmt.Sprintf("recommendations:%s:%s", userID.String(), method)
}

func (s *RecommendationService) cachedRecommendation(ctx context.Context, userID uuid.UUID, method models.Method) *models.Recommendation {
	if s.redis == nil {
		return nil
	}

	cached, err := s.redis.Get(ctx, s.cacheKey(userID, method)).Result()
	if err != nil {
		return nil
	}

	var rec models.Recommendation
	if err := json.Unmarshal([]byte(cached), &rec); err != nil {
		return nil
	}
	return &rec
}

func (s *RecommendationService) cacheRecommendation(ctx context.Context, rec *models.Recommendation) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return
	}

	if err := s.redis.Set(ctx, s.cacheKey(rec.UserID, rec.Method), data, s.cfg.CacheTTL).Err(); err != nil {
		s.logger.WithError(err).Warn("Failed to cache recommendation")
	}
}
