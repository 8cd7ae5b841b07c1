package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/calyptra/shoprec/pkg/models"
)

// ProductCount is one row of the trending aggregation: total interaction
// count for a product across all users inside the window.
type ProductCount struct {
	ProductID uuid.UUID
	Total     float64
}

// InteractionStore reads the interaction log owned by the event-recording
// side of the system.
type InteractionStore interface {
	AllInteractions(ctx context.Context) ([]models.Interaction, error)
	UserInteractions(ctx context.Context, userID uuid.UUID) ([]models.Interaction, error)
	RecentUserInteractions(ctx context.Context, userID uuid.UUID, limit int) ([]models.Interaction, error)
	TrendingCounts(ctx context.Context, since time.Time, limit int) ([]ProductCount, error)
}

// InteractionWriter upserts interaction events coming off the topic.
// Repeated (user, product, action) events increment the stored count.
type InteractionWriter interface {
	UpsertInteraction(ctx context.Context, event models.InteractionEvent) error
}

// ProductCatalog reads catalog data from the commerce side of the system.
type ProductCatalog interface {
	AvailableProducts(ctx context.Context) ([]models.Product, error)
	FeaturedProducts(ctx context.Context, limit int) ([]models.Product, error)
	ProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// RecommendationStore persists materialized recommendation sets.
// Recommendations are append-only; the freshest row wins.
type RecommendationStore interface {
	CreateRecommendation(ctx context.Context, rec *models.Recommendation) error
	LatestRecommendation(ctx context.Context, userID uuid.UUID, method models.Method) (*models.Recommendation, error)
}

// SimilarityStore persists catalog-wide similarity runs and their
// per-product vectors.
type SimilarityStore interface {
	SaveSimilarityRun(ctx context.Context, run models.SimilarityRun, records []models.SimilarityRecord) error
	SimilarityForProduct(ctx context.Context, productID uuid.UUID) (*models.SimilarityRecord, *models.SimilarityRun, error)
}

// RecommendationDataStore is everything the strategy layer touches.
type RecommendationDataStore interface {
	InteractionStore
	ProductCatalog
	RecommendationStore
}

// SimilarityDataStore is everything the content similarity engine touches.
type SimilarityDataStore interface {
	ProductCatalog
	SimilarityStore
}

// RecommendationProvider is the surface the HTTP layer uses to generate
// and fetch recommendation sets.
type RecommendationProvider interface {
	Generate(ctx context.Context, userID uuid.UUID, method models.Method, limit int) (*models.Recommendation, error)
	GetOrGenerate(ctx context.Context, userID uuid.UUID, method models.Method, limit int, forceRefresh bool) (*models.Recommendation, bool, error)
}

// SimilarityProvider is the surface the HTTP layer uses for product
// similarity lookups and maintenance.
type SimilarityProvider interface {
	Recompute(ctx context.Context) error
	SimilarProducts(ctx context.Context, productID uuid.UUID, limit int) ([]models.ScoredProduct, error)
}
