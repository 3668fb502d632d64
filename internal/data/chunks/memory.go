package chunks

import (
	"context"
	"sort"
	"sync"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
)

// MemoryStore keeps chunks in process, partitioned by encounter.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]domain.Chunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]domain.Chunk)}
}

func (s *MemoryStore) StoreChunks(ctx context.Context, encounterID string, chunks []domain.Chunk) error {
	if encounterID == "" {
		return ErrEncounterRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	part := s.data[encounterID]
	if part == nil {
		part = make(map[string]domain.Chunk, len(chunks))
		s.data[encounterID] = part
	}
	for _, c := range chunks {
		c.EncounterID = encounterID
		c.LineNumbers = append([]int(nil), c.LineNumbers...)
		part[c.ChunkID] = c
	}
	return nil
}

func (s *MemoryStore) SearchChunks(ctx context.Context, encounterID, query string, k int) ([]domain.Chunk, error) {
	if encounterID == "" {
		return nil, ErrEncounterRequired
	}
	s.mu.RLock()
	part := s.data[encounterID]
	candidates := make([]domain.Chunk, 0, len(part))
	for _, c := range part {
		candidates = append(candidates, c)
	}
	s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Index < candidates[j].Index })
	return Rank(candidates, query, k), nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
