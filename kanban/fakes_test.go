package kanban

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"kanban-api/domain"
)

type fakeStore struct {
	mu       sync.Mutex
	items    map[int64]domain.Item
	version  int
	failOnID int64
	err      error
}

func newFakeStore(items ...domain.Item) *fakeStore {
	s := &fakeStore{items: map[int64]domain.Item{}}
	for _, it := range items {
		s.version++
		it.ETag = strconv.Itoa(s.version)
		s.items[it.ID] = it
	}
	return s
}

func (s *fakeStore) ListItems(ctx context.Context, accountID, funnelID int64) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := []domain.Item{}
	for _, it := range s.items {
		if it.AccountID == accountID && it.FunnelID == funnelID {
			out = append(out, it)
		}
	}
	domain.SortByPosition(out)
	return out, nil
}

func (s *fakeStore) GetItem(ctx context.Context, accountID, id int64) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.AccountID != accountID {
		return domain.Item{}, domain.ErrNotFound
	}
	return it, nil
}

func (s *fakeStore) InsertItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.Item{}, s.err
	}
	if _, exists := s.items[item.ID]; exists {
		return domain.Item{}, domain.ErrConflict
	}
	s.version++
	item.ETag = strconv.Itoa(s.version)
	s.items[item.ID] = item
	return item, nil
}

func (s *fakeStore) ReplaceItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[item.ID]
	if !ok || cur.AccountID != item.AccountID {
		return domain.Item{}, domain.ErrNotFound
	}
	if cur.ETag != item.ETag {
		return domain.Item{}, domain.ErrConflict
	}
	s.version++
	item.ETag = strconv.Itoa(s.version)
	s.items[item.ID] = item
	return item, nil
}

func (s *fakeStore) DeleteItem(ctx context.Context, accountID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.AccountID != accountID {
		return domain.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// ReplaceItems stages every write and commits only when all of them succeed.
func (s *fakeStore) ReplaceItems(ctx context.Context, accountID int64, items []domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := make(map[int64]domain.Item, len(items))
	version := s.version
	for _, item := range items {
		if item.ID == s.failOnID {
			return errors.New("write rejected")
		}
		cur, ok := s.items[item.ID]
		if !ok || cur.AccountID != accountID {
			return domain.ErrNotFound
		}
		if cur.ETag != item.ETag {
			return domain.ErrConflict
		}
		version++
		item.ETag = strconv.Itoa(version)
		staged[item.ID] = item
	}
	for id, item := range staged {
		s.items[id] = item
	}
	s.version = version
	return nil
}

func (s *fakeStore) item(id int64) domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id]
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

type fakeDirectory struct {
	funnels       map[int64]domain.Funnel
	conversations map[int64]domain.Conversation
	users         map[int64]domain.User
	attachments   map[int64][]domain.Attachment
	err           error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		funnels:       map[int64]domain.Funnel{},
		conversations: map[int64]domain.Conversation{},
		users:         map[int64]domain.User{},
		attachments:   map[int64][]domain.Attachment{},
	}
}

func (d *fakeDirectory) Funnel(ctx context.Context, accountID, funnelID int64) (domain.Funnel, error) {
	f, ok := d.funnels[funnelID]
	if !ok || f.AccountID != accountID {
		return domain.Funnel{}, domain.ErrNotFound
	}
	return f, nil
}

func (d *fakeDirectory) ConversationByDisplayID(ctx context.Context, accountID, displayID int64) (domain.Conversation, error) {
	if d.err != nil {
		return domain.Conversation{}, d.err
	}
	for _, c := range d.conversations {
		if c.AccountID == accountID && c.DisplayID == displayID {
			return c, nil
		}
	}
	return domain.Conversation{}, domain.ErrNotFound
}

func (d *fakeDirectory) ConversationByID(ctx context.Context, accountID, id int64) (domain.Conversation, error) {
	if d.err != nil {
		return domain.Conversation{}, d.err
	}
	c, ok := d.conversations[id]
	if !ok || c.AccountID != accountID {
		return domain.Conversation{}, domain.ErrNotFound
	}
	return c, nil
}

func (d *fakeDirectory) User(ctx context.Context, id int64) (domain.User, error) {
	u, ok := d.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (d *fakeDirectory) Attachments(ctx context.Context, accountID, itemID int64) ([]domain.Attachment, error) {
	return d.attachments[itemID], nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
	misses  int
	keys    []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) Fetch(ctx context.Context, key string, ttl time.Duration, compute func() ([]byte, error)) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
	if data, ok := c.entries[key]; ok {
		c.hits++
		return data, true, nil
	}
	c.misses++
	data, err := compute()
	if err != nil {
		return nil, false, err
	}
	c.entries[key] = data
	return data, false, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.ItemEvent
}

func (n *recordingNotifier) Publish(ctx context.Context, ev domain.ItemEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Events() []domain.ItemEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.ItemEvent(nil), n.events...)
}

type seqIDs struct {
	mu   sync.Mutex
	next int64
}

func (g *seqIDs) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.next, nil
}

func ptr[T any](v T) *T { return &v }
