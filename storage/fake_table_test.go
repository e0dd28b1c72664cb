package storage

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"kanban-api/domain"
)

type memTable struct {
	mu       sync.Mutex
	rows     map[string]record
	version  int
	filters  []string
	failWith error
}

func newMemTable() *memTable {
	return &memTable{rows: map[string]record{}}
}

func keysOf(payload []byte) (string, string, error) {
	var keys struct {
		PartitionKey string `json:"PartitionKey"`
		RowKey       string `json:"RowKey"`
	}
	if err := domain.JSON.Unmarshal(payload, &keys); err != nil {
		return "", "", err
	}
	return keys.PartitionKey, keys.RowKey, nil
}

func (m *memTable) nextETag() azcore.ETag {
	m.version++
	return azcore.ETag("W/\"" + strconv.Itoa(m.version) + "\"")
}

func (m *memTable) seed(v any) {
	payload, err := domain.JSON.Marshal(v)
	if err != nil {
		panic(err)
	}
	if _, err := m.add(context.Background(), payload); err != nil {
		panic(err)
	}
}

func (m *memTable) get(ctx context.Context, pk, rk string) (record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return record{}, m.failWith
	}
	rec, ok := m.rows[pk+"|"+rk]
	if !ok {
		return record{}, translate(&azcore.ResponseError{StatusCode: http.StatusNotFound})
	}
	return rec, nil
}

func (m *memTable) add(ctx context.Context, payload []byte) (azcore.ETag, error) {
	pk, rk, err := keysOf(payload)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return "", m.failWith
	}
	if _, exists := m.rows[pk+"|"+rk]; exists {
		return "", translate(&azcore.ResponseError{StatusCode: http.StatusConflict})
	}
	etag := m.nextETag()
	m.rows[pk+"|"+rk] = record{value: payload, etag: etag}
	return etag, nil
}

func (m *memTable) checkLocked(key string, etag azcore.ETag) error {
	cur, ok := m.rows[key]
	if !ok {
		return translate(&azcore.ResponseError{StatusCode: http.StatusNotFound})
	}
	if etag != azcore.ETagAny && cur.etag != etag {
		return translate(&azcore.ResponseError{StatusCode: http.StatusPreconditionFailed})
	}
	return nil
}

func (m *memTable) replace(ctx context.Context, payload []byte, etag azcore.ETag) (azcore.ETag, error) {
	pk, rk, err := keysOf(payload)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked(pk+"|"+rk, etag); err != nil {
		return "", err
	}
	next := m.nextETag()
	m.rows[pk+"|"+rk] = record{value: payload, etag: next}
	return next, nil
}

func (m *memTable) remove(ctx context.Context, pk, rk string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[pk+"|"+rk]; !ok {
		return translate(&azcore.ResponseError{StatusCode: http.StatusNotFound})
	}
	delete(m.rows, pk+"|"+rk)
	return nil
}

// list honours only the PartitionKey clause of filter; callers re-check the
// remaining predicates.
func (m *memTable) list(ctx context.Context, filter string) ([]record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, filter)
	prefix := ""
	if rest, ok := strings.CutPrefix(filter, "PartitionKey eq '"); ok {
		if pk, _, ok := strings.Cut(rest, "'"); ok {
			prefix = pk + "|"
		}
	}
	out := []record{}
	for key, rec := range m.rows {
		if strings.HasPrefix(key, prefix) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memTable) transact(ctx context.Context, actions []aztables.TransactionAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	staged := map[string][]byte{}
	for _, a := range actions {
		pk, rk, err := keysOf(a.Entity)
		if err != nil {
			return err
		}
		etag := azcore.ETagAny
		if a.IfMatch != nil {
			etag = *a.IfMatch
		}
		if err := m.checkLocked(pk+"|"+rk, etag); err != nil {
			return err
		}
		staged[pk+"|"+rk] = a.Entity
	}
	for key, payload := range staged {
		m.rows[key] = record{value: payload, etag: m.nextETag()}
	}
	return nil
}
