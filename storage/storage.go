package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"kanban-api/domain"
)

// Tables names the tables the service reads and writes.
type Tables struct {
	Items         string
	Funnels       string
	Conversations string
	Users         string
	Attachments   string
}

// Storage provides access to underlying persistence mechanisms.
type Storage struct {
	Items     *ItemStore
	Directory *Directory
	queue     *azqueue.QueueClient
}

var retryStatusCodes = []int{408, 429, 500, 502, 503, 504}

// New creates a Storage instance from the given connection string.
func New(connStr string, tables Tables, eventsQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	s := &Storage{
		Items: NewItemStore(azTable{svc.NewClient(tables.Items)}),
		Directory: NewDirectory(
			azTable{svc.NewClient(tables.Funnels)},
			azTable{svc.NewClient(tables.Conversations)},
			azTable{svc.NewClient(tables.Users)},
			azTable{svc.NewClient(tables.Attachments)},
		),
	}
	if eventsQueue == "" {
		return s, nil
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	s.queue, err = azqueue.NewQueueClientFromConnectionString(connStr, eventsQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Enqueue sends one message to the events queue. It is a no-op when no queue
// is configured.
func (s *Storage) Enqueue(ctx context.Context, msg string) error {
	if s.queue == nil {
		return nil
	}
	_, err := s.queue.EnqueueMessage(ctx, msg, nil)
	return err
}

// record is a raw table entity and the version it was read at.
type record struct {
	value []byte
	etag  azcore.ETag
}

// table is the subset of a table client the stores use.
type table interface {
	get(ctx context.Context, pk, rk string) (record, error)
	add(ctx context.Context, payload []byte) (azcore.ETag, error)
	replace(ctx context.Context, payload []byte, etag azcore.ETag) (azcore.ETag, error)
	remove(ctx context.Context, pk, rk string) error
	list(ctx context.Context, filter string) ([]record, error)
	transact(ctx context.Context, actions []aztables.TransactionAction) error
}

type azTable struct {
	client *aztables.Client
}

func (t azTable) get(ctx context.Context, pk, rk string) (record, error) {
	resp, err := t.client.GetEntity(ctx, pk, rk, nil)
	if err != nil {
		return record{}, translate(err)
	}
	return record{value: resp.Value, etag: resp.ETag}, nil
}

func (t azTable) add(ctx context.Context, payload []byte) (azcore.ETag, error) {
	resp, err := t.client.AddEntity(ctx, payload, nil)
	if err != nil {
		return "", translate(err)
	}
	return resp.ETag, nil
}

func (t azTable) replace(ctx context.Context, payload []byte, etag azcore.ETag) (azcore.ETag, error) {
	resp, err := t.client.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &etag, UpdateMode: aztables.UpdateModeReplace})
	if err != nil {
		return "", translate(err)
	}
	return resp.ETag, nil
}

func (t azTable) remove(ctx context.Context, pk, rk string) error {
	et := azcore.ETagAny
	_, err := t.client.DeleteEntity(ctx, pk, rk, &aztables.DeleteEntityOptions{IfMatch: &et})
	return translate(err)
}

func (t azTable) list(ctx context.Context, filter string) ([]record, error) {
	pager := t.client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	out := []record{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, translate(err)
		}
		for _, e := range resp.Entities {
			var meta struct {
				ETag string `json:"odata.etag"`
			}
			if err := domain.JSON.Unmarshal(e, &meta); err != nil {
				return nil, err
			}
			out = append(out, record{value: e, etag: azcore.ETag(meta.ETag)})
		}
	}
	return out, nil
}

func (t azTable) transact(ctx context.Context, actions []aztables.TransactionAction) error {
	_, err := t.client.SubmitTransaction(ctx, actions, nil)
	return translate(err)
}

// translate maps table service failures onto domain errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
		case http.StatusConflict, http.StatusPreconditionFailed:
			return fmt.Errorf("%w: %w", domain.ErrConflict, err)
		}
	}
	return err
}

func partitionKey(accountID int64) string {
	return strconv.FormatInt(accountID, 10)
}

// rowKey pads ids so lexical row order matches numeric order.
func rowKey(id int64) string {
	return fmt.Sprintf("%020d", id)
}
