package service

import (
	"context"

	"FinFolio/internal/domain/models"
)

// Advisor is the language-model capability the pipeline depends on.
type Advisor interface {
	// ParseProfile extracts a structured profile (including suggested tickers)
	// from a free-text investment request.
	ParseProfile(ctx context.Context, request string) (models.Profile, error)
	// ProposeAllocation suggests weights over the given universe.
	ProposeAllocation(ctx context.Context, in models.ProposalInput) (models.Proposal, error)
	// Commentary writes the narrative analysis of a validated portfolio.
	Commentary(ctx context.Context, in models.CommentaryInput) (string, error)
}
