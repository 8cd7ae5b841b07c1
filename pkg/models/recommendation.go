package models

import (
	"time"

	"github.com/google/uuid"
)

// Method identifies the strategy that produced a recommendation set.
type Method string

const (
	MethodCollaborative  Method = "collaborative_filtering"
	MethodContentBased   Method = "content_based"
	MethodHybrid         Method = "hybrid"
	MethodTrending       Method = "trending"
	MethodRecentActivity Method = "recent_activity"
)

// ParseMethod maps a caller-supplied method name to a Method. Unknown
// values fall back to hybrid.
func ParseMethod(s string) Method {
	switch Method(s) {
	case MethodCollaborative, MethodContentBased, MethodHybrid,
		MethodTrending, MethodRecentActivity:
		return Method(s)
	default:
		return MethodHybrid
	}
}

// Recommendation is a materialized, immutable recommendation set. Later
// generations for the same (user, method) append new rows; freshness is
// decided by CreatedAt.
type Recommendation struct {
	ID        uuid.UUID            `json:"id"`
	UserID    uuid.UUID            `json:"user_id"`
	Method    Method               `json:"method"`
	CreatedAt time.Time            `json:"created_at"`
	Items     []RecommendationItem `json:"items"`
}

// RecommendationItem is one ranked entry. Position is 1-based and matches
// sort order at materialization time.
type RecommendationItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Score     float64   `json:"score"`
	Position  int       `json:"position"`
}

type RecommendationResponse struct {
	UserID      uuid.UUID            `json:"user_id"`
	Method      Method               `json:"method"`
	GeneratedAt time.Time            `json:"generated_at"`
	CacheHit    bool                 `json:"cache_hit"`
	Items       []RecommendationItem `json:"items"`
}

type SimilarProductsResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Products  []ScoredProduct `json:"products"`
}
