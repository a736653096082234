package deck

import (
	"context"

	"deck-builder-be/pkg/store"
)

// SlideSearcher is the retrieval gateway: given a query it returns ranked
// slide candidates. Implementations must be stateless and idempotent.
type SlideSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]store.SlideCandidate, error)
}

// Policy bundles the bounded-loop constants of the build workflow. The zero
// value is not usable; construct with DefaultPolicy and override from config.
type Policy struct {
	// MaxAttempts bounds the search/offer/critique loop per position before
	// the judge escalation.
	MaxAttempts int

	// MaxRevisionRounds bounds whole-deck revision passes before forced
	// completion. Each round performs at most one replace pass.
	MaxRevisionRounds int

	// SearchLimit is the per-attempt retrieval result cap.
	SearchLimit int

	// InitialSearchLimit is the result cap for the pre-outline corpus search.
	InitialSearchLimit int

	// MaxCandidatesForOffer caps how many candidates the offer prompt sees.
	MaxCandidatesForOffer int

	// GatewayTimeout applies per reasoning/retrieval call.
	GatewayTimeoutSeconds int
}

// DefaultPolicy returns the documented defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:           3,
		MaxRevisionRounds:     1,
		SearchLimit:           10,
		InitialSearchLimit:    30,
		MaxCandidatesForOffer: 5,
		GatewayTimeoutSeconds: 60,
	}
}
