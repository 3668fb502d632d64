// Package retrieval fetches transcript context for a section, scoped to a
// single encounter.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

var (
	ErrScopeRequired      = errors.New("retrieval: encounter id required")
	ErrIsolationViolation = errors.New("retrieval: chunk from another encounter")
)

// ChunkStore persists chunks and searches them within one encounter.
type ChunkStore interface {
	StoreChunks(ctx context.Context, encounterID string, chunks []domain.Chunk) error
	SearchChunks(ctx context.Context, encounterID, query string, k int) ([]domain.Chunk, error)
}

type Retriever struct {
	log   *logger.Logger
	store ChunkStore
}

func NewRetriever(log *logger.Logger, store ChunkStore) *Retriever {
	return &Retriever{log: log.With("service", "ContextRetriever"), store: store}
}

// Retrieve returns at most k chunks of encounterID relevant to query. A
// blank query or no match is an empty result.
func (r *Retriever) Retrieve(ctx context.Context, encounterID, query string, k int) ([]domain.Chunk, error) {
	if strings.TrimSpace(encounterID) == "" {
		return nil, ErrScopeRequired
	}
	if strings.TrimSpace(query) == "" || k <= 0 {
		return []domain.Chunk{}, nil
	}
	found, err := r.store.SearchChunks(ctx, encounterID, query, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve chunks: %w", err)
	}
	for _, c := range found {
		if c.EncounterID != encounterID {
			r.log.Error("Chunk store returned foreign chunk", "encounter_id", encounterID, "chunk_id", c.ChunkID)
			return nil, fmt.Errorf("%w: chunk %s", ErrIsolationViolation, c.ChunkID)
		}
	}
	if len(found) > k {
		found = found[:k]
	}
	if found == nil {
		found = []domain.Chunk{}
	}
	r.log.Debug("Context retrieved", "encounter_id", encounterID, "k", k, "returned", len(found))
	return found, nil
}

// BuildQuery is the retrieval query for a section.
func BuildQuery(section domain.SectionRequest) string {
	return fmt.Sprintf("Information for %s: %s", section.Name, section.Prompt)
}

// ContextText joins chunk contents one per line.
func ContextText(chunks []domain.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, "\n")
}
