package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"kanban-api/domain"
)

// maxTransactionActions is the table service's entity group transaction limit.
const maxTransactionActions = 100

// ItemStore persists kanban items, one partition per account.
type ItemStore struct {
	table table
}

func NewItemStore(t table) *ItemStore {
	return &ItemStore{table: t}
}

// ListItems returns the funnel's items ordered by position, then id.
func (s *ItemStore) ListItems(ctx context.Context, accountID, funnelID int64) ([]domain.Item, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s' and FunnelID eq %dL", partitionKey(accountID), funnelID)
	recs, err := s.table.list(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]domain.Item, 0, len(recs))
	for _, rec := range recs {
		it, err := decodeItem(rec)
		if err != nil {
			return nil, err
		}
		if it.AccountID != accountID || it.FunnelID != funnelID {
			continue
		}
		items = append(items, it)
	}
	domain.SortByPosition(items)
	return items, nil
}

func (s *ItemStore) GetItem(ctx context.Context, accountID, id int64) (domain.Item, error) {
	rec, err := s.table.get(ctx, partitionKey(accountID), rowKey(id))
	if err != nil {
		return domain.Item{}, err
	}
	return decodeItem(rec)
}

func (s *ItemStore) InsertItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	payload, err := encodeItem(item)
	if err != nil {
		return domain.Item{}, err
	}
	etag, err := s.table.add(ctx, payload)
	if err != nil {
		return domain.Item{}, err
	}
	item.ETag = string(etag)
	return item, nil
}

// ReplaceItem overwrites the item if it is still at the version it was read at.
func (s *ItemStore) ReplaceItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	payload, err := encodeItem(item)
	if err != nil {
		return domain.Item{}, err
	}
	etag, err := s.table.replace(ctx, payload, ifMatch(item))
	if err != nil {
		return domain.Item{}, err
	}
	item.ETag = string(etag)
	return item, nil
}

func (s *ItemStore) DeleteItem(ctx context.Context, accountID, id int64) error {
	return s.table.remove(ctx, partitionKey(accountID), rowKey(id))
}

// ReplaceItems writes every item in a single entity group transaction. All
// items must belong to accountID, which is the transaction's partition.
func (s *ItemStore) ReplaceItems(ctx context.Context, accountID int64, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	if len(items) > maxTransactionActions {
		return fmt.Errorf("transaction of %d items exceeds the limit of %d", len(items), maxTransactionActions)
	}
	actions := make([]aztables.TransactionAction, 0, len(items))
	for _, it := range items {
		if it.AccountID != accountID {
			return fmt.Errorf("item %d belongs to account %d, not %d", it.ID, it.AccountID, accountID)
		}
		payload, err := encodeItem(it)
		if err != nil {
			return err
		}
		etag := ifMatch(it)
		actions = append(actions, aztables.TransactionAction{
			ActionType: aztables.TransactionTypeUpdateReplace,
			Entity:     payload,
			IfMatch:    &etag,
		})
	}
	return s.table.transact(ctx, actions)
}

func ifMatch(it domain.Item) azcore.ETag {
	if it.ETag == "" {
		return azcore.ETagAny
	}
	return azcore.ETag(it.ETag)
}

// Ping checks that the items table answers. A missing probe row is healthy.
func (s *ItemStore) Ping(ctx context.Context) error {
	_, err := s.table.get(ctx, "healthz", "healthz")
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}
