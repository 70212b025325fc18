package generation

import (
	"github.com/google/uuid"

	"epistola/internal/store"
)

// VariantCriteria selects a variant by attribute matching. Every required
// pair must match; optional pairs only break ties between candidates.
type VariantCriteria struct {
	Required map[string]string `json:"required"`
	Optional map[string]string `json:"optional,omitempty"`
}

// ResolveVariant returns the single variant matching the criteria.
//
// Tie-break order among candidates satisfying all required attributes:
// most optional-attribute matches, then the template's default variant,
// then lowest creation order.
func ResolveVariant(variants []store.Variant, defaultID *uuid.UUID, criteria VariantCriteria) (uuid.UUID, error) {
	var best *store.Variant
	bestScore := -1

	for i := range variants {
		v := &variants[i]
		if !matchesRequired(v, criteria.Required) {
			continue
		}

		score := 0
		for k, want := range criteria.Optional {
			if v.Attributes[k] == want {
				score++
			}
		}

		switch {
		case score > bestScore:
			best, bestScore = v, score
		case score == bestScore && best != nil:
			if preferred(v, best, defaultID) {
				best = v
			}
		}
	}

	if best == nil {
		return uuid.Nil, ErrNoMatchingVariant
	}
	return best.ID, nil
}

func matchesRequired(v *store.Variant, required map[string]string) bool {
	for k, want := range required {
		if v.Attributes[k] != want {
			return false
		}
	}
	return true
}

// preferred decides whether challenger beats incumbent at equal score.
func preferred(challenger, incumbent *store.Variant, defaultID *uuid.UUID) bool {
	if defaultID != nil {
		challengerDefault := challenger.ID == *defaultID
		incumbentDefault := incumbent.ID == *defaultID
		if challengerDefault != incumbentDefault {
			return challengerDefault
		}
	}
	return challenger.Position < incumbent.Position
}
