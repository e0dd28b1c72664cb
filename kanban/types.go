package kanban

import (
	"context"
	"time"

	"kanban-api/domain"
)

// Store persists items. Implementations scope every lookup to the account.
type Store interface {
	// ListItems returns the funnel's items ordered by position, then id.
	ListItems(ctx context.Context, accountID, funnelID int64) ([]domain.Item, error)
	GetItem(ctx context.Context, accountID, id int64) (domain.Item, error)
	InsertItem(ctx context.Context, item domain.Item) (domain.Item, error)
	// ReplaceItem writes the item if it still matches item.ETag.
	ReplaceItem(ctx context.Context, item domain.Item) (domain.Item, error)
	DeleteItem(ctx context.Context, accountID, id int64) error
	// ReplaceItems writes all items of one account atomically: either every
	// item is stored or none is.
	ReplaceItems(ctx context.Context, accountID int64, items []domain.Item) error
}

// Directory resolves the entities denormalized into item_details. Lookups
// that find nothing return domain.ErrNotFound.
type Directory interface {
	Funnel(ctx context.Context, accountID, funnelID int64) (domain.Funnel, error)
	ConversationByDisplayID(ctx context.Context, accountID, displayID int64) (domain.Conversation, error)
	ConversationByID(ctx context.Context, accountID, id int64) (domain.Conversation, error)
	User(ctx context.Context, id int64) (domain.User, error)
	Attachments(ctx context.Context, accountID, itemID int64) ([]domain.Attachment, error)
}

// Cache returns the cached value for key or fills it with compute. Cache
// failures must not surface; only compute errors are returned. hit reports
// whether the value came from the cache.
type Cache interface {
	Fetch(ctx context.Context, key string, ttl time.Duration, compute func() ([]byte, error)) (value []byte, hit bool, err error)
}

// Notifier announces committed changes. Delivery is best effort.
type Notifier interface {
	Publish(ctx context.Context, ev domain.ItemEvent)
}

// IDGenerator hands out item identifiers.
type IDGenerator interface {
	NextID() (int64, error)
}
