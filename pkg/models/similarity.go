package models

import (
	"time"

	"github.com/google/uuid"
)

// SimilarityRun is one catalog-wide similarity computation. ProductIDs is
// the exact catalog ordering the run's vectors are indexed by; vectors from
// one run are meaningless against another run's ordering.
type SimilarityRun struct {
	ID         uuid.UUID   `json:"id"`
	ProductIDs []uuid.UUID `json:"product_ids"`
	CreatedAt  time.Time   `json:"created_at"`
}

// SimilarityRecord is one product's cosine similarity row against every
// product in its run's ordering.
type SimilarityRecord struct {
	ProductID uuid.UUID `json:"product_id"`
	RunID     uuid.UUID `json:"run_id"`
	Vector    []float64 `json:"vector"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidFor reports whether the record can be consumed positionally against
// a catalog of the given size. A vector computed over a differently-sized
// catalog is stale and must be recomputed, never read.
func (r SimilarityRecord) ValidFor(run SimilarityRun, catalogSize int) bool {
	return len(r.Vector) == len(run.ProductIDs) && len(r.Vector) == catalogSize
}
