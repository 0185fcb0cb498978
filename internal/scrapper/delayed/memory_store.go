package delayed

import (
	"context"
	"sync"

	"github.com/central-university-dev/linktracker/internal/domain/models"
)

type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string][]*models.LinkUpdate
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string][]*models.LinkUpdate)}
}

func (s *MemoryStore) Append(_ context.Context, bucket string, update *models.LinkUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets[bucket] = append(s.buckets[bucket], update.WithChats(update.TgChatIDs))

	return nil
}

func (s *MemoryStore) Drain(_ context.Context, bucket string) ([]*models.LinkUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updates := s.buckets[bucket]
	delete(s.buckets, bucket)

	if updates == nil {
		return []*models.LinkUpdate{}, nil
	}

	return updates, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
