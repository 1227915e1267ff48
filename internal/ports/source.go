package ports

import (
	"context"

	"continuity/internal/domain"
)

// NovelSource loads the externally owned inputs of the engine
type NovelSource interface {
	// LoadNovel reads the full novel state from path
	LoadNovel(ctx context.Context, path string) (*domain.NovelState, error)

	// LoadGenerated reads a generated chapter together with its extraction
	// payload from path
	LoadGenerated(ctx context.Context, path string) (*domain.GeneratedChapter, error)
}
