package services

import (
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/calyptra/shoprec/pkg/models"
)

// InteractionMatrix is the dense user-by-product weight matrix one
// recommendation request computes over. Row and column order is the
// first-seen order of the source records, which keeps similarity lookups
// positionally aligned for the lifetime of the matrix.
type InteractionMatrix struct {
	UserIDs    []uuid.UUID
	ProductIDs []uuid.UUID

	userIndex    map[uuid.UUID]int
	productIndex map[uuid.UUID]int
	rows         [][]float64
}

// SimilarUser pairs a user with its cosine similarity to the target.
type SimilarUser struct {
	UserID uuid.UUID
	Score  float64
}

// BuildInteractionMatrix folds interaction records into weighted cells:
// cell(user, product) = Σ count × action weight. Pairs with no record stay
// at zero.
func BuildInteractionMatrix(records []models.Interaction, weights models.ActionWeights) *InteractionMatrix {
	m := &InteractionMatrix{
		userIndex:    make(map[uuid.UUID]int),
		productIndex: make(map[uuid.UUID]int),
	}

	for _, r := range records {
		if _, ok := m.userIndex[r.UserID]; !ok {
			m.userIndex[r.UserID] = len(m.UserIDs)
			m.UserIDs = append(m.UserIDs, r.UserID)
		}
		if _, ok := m.productIndex[r.ProductID]; !ok {
			m.productIndex[r.ProductID] = len(m.ProductIDs)
			m.ProductIDs = append(m.ProductIDs, r.ProductID)
		}
	}

	m.rows = make([][]float64, len(m.UserIDs))
	for i := range m.rows {
		m.rows[i] = make([]float64, len(m.ProductIDs))
	}

	for _, r := range records {
		row := m.userIndex[r.UserID]
		col := m.productIndex[r.ProductID]
		m.rows[row][col] += r.WeightedValue(weights)
	}

	return m
}

// Empty reports whether the matrix holds no users. Callers treat an empty
// matrix as insufficient data and fall back.
func (m *InteractionMatrix) Empty() bool {
	return len(m.UserIDs) == 0
}

// Row returns a user's weight vector.
func (m *InteractionMatrix) Row(userID uuid.UUID) ([]float64, bool) {
	idx, ok := m.userIndex[userID]
	if !ok {
		return nil, false
	}
	return m.rows[idx], true
}

// UserProducts returns the set of products a user has interacted with.
func (m *InteractionMatrix) UserProducts(userID uuid.UUID) map[uuid.UUID]struct{} {
	products := make(map[uuid.UUID]struct{})
	row, ok := m.Row(userID)
	if !ok {
		return products
	}
	for col, value := range row {
		if value > 0 {
			products[m.ProductIDs[col]] = struct{}{}
		}
	}
	return products
}

// TopSimilarUsers returns the k users most similar to the target by cosine
// similarity over matrix rows, excluding the target itself. Ties keep
// matrix row order; the sort is stable, never randomized.
func (m *InteractionMatrix) TopSimilarUsers(target uuid.UUID, k int) []SimilarUser {
	targetRow, ok := m.Row(target)
	if !ok || m.Empty() {
		return nil
	}

	similar := make([]SimilarUser, 0, len(m.UserIDs)-1)
	for i, userID := range m.UserIDs {
		if userID == target {
			continue
		}
		similar = append(similar, SimilarUser{
			UserID: userID,
			Score:  cosineSimilarity(targetRow, m.rows[i]),
		})
	}

	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].Score > similar[j].Score
	})

	if len(similar) > k {
		similar = similar[:k]
	}
	return similar
}

// cosineSimilarity is the normalized dot product of two equal-length
// vectors. Zero vectors yield zero similarity.
func cosineSimilarity(a, b []float64) float64 {
	norm := floats.Norm(a, 2) * floats.Norm(b, 2)
	if norm == 0 {
		return 0
	}
	return floats.Dot(a, b) / norm
}
