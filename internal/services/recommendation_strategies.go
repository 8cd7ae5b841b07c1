package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/calyptra/shoprec/pkg/models"
)

// Every strategy returns a (possibly empty) ordered list of scored
// products. Failures never escape a strategy: insufficient data and store
// errors fall through the chain collaborative → content-based → trending →
// featured, and only total data unavailability yields an empty list.

// collaborativeFiltering recommends products that users with a similar
// interaction profile engaged with and the target has not.
func (s *RecommendationService) collaborativeFiltering(ctx context.Context, userID uuid.UUID, limit int) []models.ScoredProduct {
	records, err := s.store.AllInteractions(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Collaborative filtering: interaction load failed")
		strategyFallbacks.WithLabelValues("collaborative_filtering", "content_based").Inc()
		return s.contentBased(ctx, userID, limit)
	}

	// Too few records means user-user similarity is noise.
	if len(records) < s.cfg.MinInteractions {
		strategyFallbacks.WithLabelValues("collaborative_filtering", "content_based").Inc()
		return s.contentBased(ctx, userID, limit)
	}

	matrix := BuildInteractionMatrix(records, s.weights)
	similar := matrix.TopSimilarUsers(userID, s.cfg.SimilarUserCount)
	if len(similar) == 0 {
		strategyFallbacks.WithLabelValues("collaborative_filtering", "content_based").Inc()
		return s.contentBased(ctx, userID, limit)
	}

	seen := matrix.UserProducts(userID)

	// Accumulate similarity-weighted interaction values per candidate.
	// Candidate order is first-contribution order so score ties stay
	// deterministic.
	scores := make(map[uuid.UUID]float64)
	var order []uuid.UUID
	for _, su := range similar {
		row, ok := matrix.Row(su.UserID)
		if !ok {
			continue
		}
		for col, value := range row {
			if value <= 0 {
				continue
			}
			productID := matrix.ProductIDs[col]
			if _, interacted := seen[productID]; interacted {
				continue
			}
			if _, ok := scores[productID]; !ok {
				order = append(order, productID)
			}
			scores[productID] += su.Score * value
		}
	}

	catalog, err := s.store.ProductsByIDs(ctx, order)
	if err != nil {
		s.logger.WithError(err).Warn("Collaborative filtering: product lookup failed")
		strategyFallbacks.WithLabelValues("collaborative_filtering", "content_based").Inc()
		return s.contentBased(ctx, userID, limit)
	}

	results := make([]models.ScoredProduct, 0, len(order))
	for _, productID := range order {
		product, ok := catalog[productID]
		if !ok {
			// Removed from the catalog since the interaction was
			// recorded; skip rather than abort.
			continue
		}
		results = append(results, models.ScoredProduct{Product: product, Score: scores[productID]})
	}

	if len(results) == 0 {
		strategyFallbacks.WithLabelValues("collaborative_filtering", "content_based").Inc()
		return s.contentBased(ctx, userID, limit)
	}

	sortScoredDesc(results)
	return truncateScored(results, limit)
}

// contentBased recommends products that resemble what the user already
// engaged with, scored by category, brand and price-band affinity weighted
// by how strongly the user interacted with each source product.
func (s *RecommendationService) contentBased(ctx context.Context, userID uuid.UUID, limit int) []models.ScoredProduct {
	interactions, err := s.store.UserInteractions(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Warn("Content-based filtering: interaction load failed")
		strategyFallbacks.WithLabelValues("content_based", "trending").Inc()
		return s.trending(ctx, limit)
	}
	if len(interactions) == 0 {
		strategyFallbacks.WithLabelValues("content_based", "trending").Inc()
		return s.trending(ctx, limit)
	}

	userProducts := make(map[uuid.UUID]float64)
	for _, i := range interactions {
		userProducts[i.ProductID] += i.WeightedValue(s.weights)
	}

	products, err := s.store.AvailableProducts(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Content-based filtering: catalog load failed")
		strategyFallbacks.WithLabelValues("content_based", "trending").Inc()
		return s.trending(ctx, limit)
	}

	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var results []models.ScoredProduct
	for _, candidate := range products {
		if _, interacted := userProducts[candidate.ID]; interacted {
			continue
		}

		score := 0.0
		for sourceID, weight := range userProducts {
			source, ok := byID[sourceID]
			if !ok {
				// Source product gone from the catalog; skip it.
				continue
			}
			score += productAffinity(candidate, source) * weight
		}

		if score > 0 {
			results = append(results, models.ScoredProduct{Product: candidate, Score: score})
		}
	}

	sortScoredDesc(results)
	return truncateScored(results, limit)
}

// hybrid blends collaborative and content-based results with fixed weights.
// Each side is asked for twice the limit so the merged set has candidates
// to rank.
func (s *RecommendationService) hybrid(ctx context.Context, userID uuid.UUID, limit int) []models.ScoredProduct {
	cf := s.collaborativeFiltering(ctx, userID, limit*2)
	cb := s.contentBased(ctx, userID, limit*2)

	merged := make(map[uuid.UUID]*models.ScoredProduct)
	var order []uuid.UUID

	for _, sp := range cf {
		weighted := sp
		weighted.Score = sp.Score * s.cfg.Hybrid.CollaborativeWeight
		merged[sp.Product.ID] = &weighted
		order = append(order, sp.Product.ID)
	}

	for _, sp := range cb {
		if existing, ok := merged[sp.Product.ID]; ok {
			existing.Score += sp.Score * s.cfg.Hybrid.ContentWeight
			continue
		}
		weighted := sp
		weighted.Score = sp.Score * s.cfg.Hybrid.ContentWeight
		merged[sp.Product.ID] = &weighted
		order = append(order, sp.Product.ID)
	}

	if len(order) == 0 {
		strategyFallbacks.WithLabelValues("hybrid", "trending").Inc()
		return s.trending(ctx, limit)
	}

	results := make([]models.ScoredProduct, 0, len(order))
	for _, id := range order {
		results = append(results, *merged[id])
	}

	sortScoredDesc(results)
	return truncateScored(results, limit)
}

// trending ranks products by total interaction count inside the recency
// window. It is the universal fallback and only returns empty when the
// store is entirely unavailable.
func (s *RecommendationService) trending(ctx context.Context, limit int) []models.ScoredProduct {
	since := time.Now().Add(-s.cfg.TrendingWindow)
	counts, err := s.store.TrendingCounts(ctx, since, limit)
	if err != nil {
		s.logger.WithError(err).Warn("Trending: count aggregation failed")
		return s.featuredFallback(ctx, limit)
	}

	ids := make([]uuid.UUID, 0, len(counts))
	for _, c := range counts {
		ids = append(ids, c.ProductID)
	}

	catalog, err := s.store.ProductsByIDs(ctx, ids)
	if err != nil {
		s.logger.WithError(err).Warn("Trending: product lookup failed")
		return s.featuredFallback(ctx, limit)
	}

	results := make([]models.ScoredProduct, 0, len(counts))
	for _, c := range counts {
		product, ok := catalog[c.ProductID]
		if !ok {
			continue
		}
		results = append(results, models.ScoredProduct{Product: product, Score: c.Total})
	}

	if len(results) == 0 {
		return s.featuredFallback(ctx, limit)
	}
	return results
}

// featuredFallback returns the catalog's featured products, each scored
// 1.0 to keep the (product, score) contract uniform. An empty result here
// means total data unavailability.
func (s *RecommendationService) featuredFallback(ctx context.Context, limit int) []models.ScoredProduct {
	featured, err := s.store.FeaturedProducts(ctx, limit)
	if err != nil {
		s.logger.WithError(err).Error("Featured fallback unavailable")
		return []models.ScoredProduct{}
	}

	results := make([]models.ScoredProduct, 0, len(featured))
	for _, p := range featured {
		results = append(results, models.ScoredProduct{Product: p, Score: 1.0})
	}
	return results
}

// recentActivity recommends products that share a brand or category with
// the user's most recently touched products. Brand matches score 0.8,
// category matches 0.6; the first assignment for a product wins.
func (s *RecommendationService) recentActivity(ctx context.Context, userID uuid.UUID, limit int) []models.ScoredProduct {
	recent, err := s.store.RecentUserInteractions(ctx, userID, s.cfg.RecentInteractionCount)
	if err != nil {
		s.logger.WithError(err).Warn("Recent activity: interaction load failed")
		strategyFallbacks.WithLabelValues("recent_activity", "trending").Inc()
		return s.trending(ctx, limit)
	}
	if len(recent) == 0 {
		strategyFallbacks.WithLabelValues("recent_activity", "trending").Inc()
		return s.trending(ctx, limit)
	}

	recentSet := make(map[uuid.UUID]struct{})
	var recentIDs []uuid.UUID
	for _, i := range recent {
		if _, ok := recentSet[i.ProductID]; !ok {
			recentSet[i.ProductID] = struct{}{}
			recentIDs = append(recentIDs, i.ProductID)
		}
	}

	products, err := s.store.AvailableProducts(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Recent activity: catalog load failed")
		strategyFallbacks.WithLabelValues("recent_activity", "trending").Inc()
		return s.trending(ctx, limit)
	}

	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	assigned := make(map[uuid.UUID]float64)
	var order []uuid.UUID

	assign := func(candidate models.Product, score float64) {
		if _, recent := recentSet[candidate.ID]; recent {
			return
		}
		if _, ok := assigned[candidate.ID]; ok {
			return
		}
		assigned[candidate.ID] = score
		order = append(order, candidate.ID)
	}

	for _, recentID := range recentIDs {
		source, ok := byID[recentID]
		if !ok {
			continue
		}
		if source.BrandID != nil {
			for _, candidate := range products {
				if candidate.ID == source.ID || candidate.BrandID == nil {
					continue
				}
				if *candidate.BrandID == *source.BrandID {
					assign(candidate, 0.8)
				}
			}
		}
		for _, candidate := range products {
			if candidate.ID == source.ID {
				continue
			}
			if candidate.CategoryID == source.CategoryID {
				assign(candidate, 0.6)
			}
		}
	}

	results := make([]models.ScoredProduct, 0, len(order))
	for _, id := range order {
		results = append(results, models.ScoredProduct{Product: byID[id], Score: assigned[id]})
	}

	sortScoredDesc(results)
	return truncateScored(results, limit)
}

// productAffinity is the content similarity heuristic between two
// products: shared category 0.3, shared brand 0.2, and up to 0.1 for
// prices within 20% of each other.
func productAffinity(a, b models.Product) float64 {
	score := 0.0
	if a.CategoryID == b.CategoryID {
		score += 0.3
	}
	if a.BrandID != nil && b.BrandID != nil && *a.BrandID == *b.BrandID {
		score += 0.2
	}
	if ratio, ok := priceDiffRatio(a.Price, b.Price); ok && ratio < 0.2 {
		score += (1 - ratio) * 0.1
	}
	return score
}

// priceDiffRatio returns |a-b| / max(a,b). Equal prices short-circuit to
// a zero ratio so two zero prices never divide by zero.
func priceDiffRatio(a, b float64) (float64, bool) {
	if a == b {
		return 0, true
	}
	max := math.Max(a, b)
	if max <= 0 {
		return 0, false
	}
	return math.Abs(a-b) / max, true
}

func sortScoredDesc(list []models.ScoredProduct) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Score > list[j].Score
	})
}

func truncateScored(list []models.ScoredProduct, limit int) []models.ScoredProduct {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}
