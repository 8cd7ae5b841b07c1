package models

import (
	"time"

	"github.com/google/uuid"
)

// ActionType identifies the kind of user-product interaction.
type ActionType string

const (
	ActionView     ActionType = "view"
	ActionSearch   ActionType = "search"
	ActionCart     ActionType = "cart"
	ActionWishlist ActionType = "wishlist"
	ActionPurchase ActionType = "purchase"
)

// ActionWeights maps an action kind to its importance weight when building
// the interaction matrix.
type ActionWeights map[ActionType]float64

// DefaultActionWeights returns the standard weighting: purchases count far
// more than views, cart adds sit in between.
func DefaultActionWeights() ActionWeights {
	return ActionWeights{
		ActionView:     1.0,
		ActionSearch:   1.5,
		ActionCart:     3.0,
		ActionWishlist: 2.0,
		ActionPurchase: 5.0,
	}
}

// Weight returns the weight for an action, defaulting to 1.0 for unknown
// action kinds so malformed data never zeroes out a signal.
func (w ActionWeights) Weight(action ActionType) float64 {
	if weight, ok := w[action]; ok {
		return weight
	}
	return 1.0
}

// Interaction is one (user, product, action) record. There is at most one
// record per triple; repeated events increment Count and refresh UpdatedAt.
type Interaction struct {
	UserID    uuid.UUID  `json:"user_id"`
	ProductID uuid.UUID  `json:"product_id"`
	Action    ActionType `json:"action"`
	Count     int        `json:"count"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// WeightedValue is the interaction's contribution to the matrix cell.
func (i Interaction) WeightedValue(weights ActionWeights) float64 {
	return float64(i.Count) * weights.Weight(i.Action)
}

// InteractionEvent is the wire format consumed from the interaction topic.
type InteractionEvent struct {
	UserID    uuid.UUID  `json:"user_id"`
	ProductID uuid.UUID  `json:"product_id"`
	Action    ActionType `json:"action"`
	Timestamp time.Time  `json:"timestamp"`
}
