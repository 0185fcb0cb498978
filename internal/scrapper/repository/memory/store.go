package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/central-university-dev/linktracker/internal/common"
	"github.com/central-university-dev/linktracker/internal/domain/errors"
	"github.com/central-university-dev/linktracker/internal/domain/models"
)

type subscriptionKey struct {
	linkID int64
	chatID int64
}

// Store keeps links, chats and subscriptions in process memory. Returned
// values are copies.
type Store struct {
	mu         sync.RWMutex
	links      map[int64]*models.Link
	linksByURL map[string]int64
	chats      map[int64]*models.Chat
	filters    map[subscriptionKey][]string
	nextID     int64
}

// LinkRepository and ChatRepository are views over the same Store.
type LinkRepository struct {
	*Store
}

type ChatRepository struct {
	*Store
}

func NewStore() *Store {
	return &Store{
		links:      make(map[int64]*models.Link),
		linksByURL: make(map[string]int64),
		chats:      make(map[int64]*models.Chat),
		filters:    make(map[subscriptionKey][]string),
		nextID:     1,
	}
}

func (s *Store) Links() *LinkRepository {
	return &LinkRepository{Store: s}
}

func (s *Store) Chats() *ChatRepository {
	return &ChatRepository{Store: s}
}

func (r *LinkRepository) Save(_ context.Context, link *models.Link) error {
	if link.Type == "" {
		link.Type = common.NewLinkAnalyzer().AnalyzeLink(link.URL)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.linksByURL[link.URL]; exists {
		stored := r.links[id]
		stored.Type = link.Type
		stored.Tags = mergeTags(stored.Tags, link.Tags)

		link.ID = stored.ID
		link.CreatedAt = stored.CreatedAt

		return nil
	}

	if link.ID == 0 {
		link.ID = r.nextID
	}

	if link.ID >= r.nextID {
		r.nextID = link.ID + 1
	}

	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	stored := cloneLink(link)
	stored.Subscribers = nil

	r.links[link.ID] = stored
	r.linksByURL[link.URL] = link.ID

	return nil
}

func (r *LinkRepository) AddSubscription(_ context.Context, chatID, linkID int64, filters []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, exists := r.links[linkID]
	if !exists {
		return &errors.ErrLinkNotFound{URL: fmt.Sprintf("id=%d", linkID)}
	}

	if _, exists := r.chats[chatID]; !exists {
		return &errors.ErrChatNotFound{ChatID: chatID}
	}

	if !containsID(link.Subscribers, chatID) {
		link.Subscribers = append(link.Subscribers, chatID)
	}

	r.filters[subscriptionKey{linkID: linkID, chatID: chatID}] = append([]string(nil), filters...)

	return nil
}

// FindDue pages through links ordered by id.
func (r *LinkRepository) FindDue(_ context.Context, limit, offset int) ([]*models.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.links))
	for id := range r.links {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if offset >= len(ids) {
		return []*models.Link{}, nil
	}

	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	result := make([]*models.Link, 0, len(ids))
	for _, id := range ids {
		result = append(result, cloneLink(r.links[id]))
	}

	return result, nil
}

// UpdateLastSeen never moves LastSeen backwards.
func (r *LinkRepository) UpdateLastSeen(_ context.Context, linkID int64, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, exists := r.links[linkID]
	if !exists {
		return &errors.ErrLinkNotFound{URL: fmt.Sprintf("id=%d", linkID)}
	}

	if lastSeen.After(link.LastSeen) {
		link.LastSeen = lastSeen
	}

	return nil
}

func (r *LinkRepository) GetFilters(_ context.Context, linkID, chatID int64) ([]models.FilterPredicate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	raw := r.filters[subscriptionKey{linkID: linkID, chatID: chatID}]

	predicates := make([]models.FilterPredicate, 0, len(raw))
	for _, value := range raw {
		if predicate, ok := models.ParseFilter(value); ok {
			predicates = append(predicates, predicate)
		}
	}

	return predicates, nil
}

// Save upserts the chat delivery settings.
func (r *ChatRepository) Save(_ context.Context, chat *models.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if chat.NotificationMode == "" {
		chat.NotificationMode = models.NotificationModeInstant
	}

	if existing, exists := r.chats[chat.ID]; exists {
		chat.CreatedAt = existing.CreatedAt
	} else if chat.CreatedAt.IsZero() {
		chat.CreatedAt = time.Now()
	}

	stored := *chat
	r.chats[chat.ID] = &stored

	return nil
}

func (r *ChatRepository) FindByID(_ context.Context, id int64) (*models.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chat, exists := r.chats[id]
	if !exists {
		return nil, &errors.ErrChatNotFound{ChatID: id}
	}

	result := *chat

	return &result, nil
}

func cloneLink(link *models.Link) *models.Link {
	clone := *link
	clone.Tags = append([]string(nil), link.Tags...)
	clone.Subscribers = append([]int64(nil), link.Subscribers...)

	return &clone
}

func mergeTags(existing, added []string) []string {
	for _, tag := range added {
		found := false

		for _, current := range existing {
			if current == tag {
				found = true
				break
			}
		}

		if !found {
			existing = append(existing, tag)
		}
	}

	return existing
}

func containsID(ids []int64, id int64) bool {
	for _, current := range ids {
		if current == id {
			return true
		}
	}

	return false
}
