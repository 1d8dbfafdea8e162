package store

import (
	"context"
	"fmt"

	"mobilepro.local/hunt-gateway/internal/quiz"
	"mobilepro.local/hunt-gateway/internal/roster"
)

// SeedDocument is the initial roster and question bank.
func SeedDocument() Document {
	districts := roster.SeedDistricts()
	stores := roster.SeedStores()
	return Document{
		Districts: districts,
		Stores:    stores,
		Users:     roster.SeedUsers(districts, stores),
		Questions: quiz.SeedQuestions(),
	}
}

// Seed loads SeedDocument the first time it runs against st. It reports
// whether anything was written.
func Seed(ctx context.Context, st Store) (bool, error) {
	done, err := st.Initialized(ctx)
	if err != nil {
		return false, fmt.Errorf("check seed marker: %w", err)
	}
	if done {
		return false, nil
	}
	if err := st.Import(ctx, SeedDocument()); err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	if err := st.MarkInitialized(ctx); err != nil {
		return false, fmt.Errorf("set seed marker: %w", err)
	}
	return true, nil
}
