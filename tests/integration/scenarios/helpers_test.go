package scenarios

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	integration "kanbantest"
	"kanbantest/internal/httpclient"
)

type item struct {
	ID                    int64          `json:"id"`
	AccountID             int64          `json:"account_id"`
	FunnelID              int64          `json:"funnel_id"`
	FunnelStage           string         `json:"funnel_stage"`
	Position              int            `json:"position"`
	ConversationDisplayID *int64         `json:"conversation_display_id"`
	CustomAttributes      map[string]any `json:"custom_attributes"`
	ItemDetails           map[string]any `json:"item_details"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

type errorsBody struct {
	Errors map[string][]string `json:"errors"`
}

var accountSeq atomic.Int64

// newAccountID returns an account id no other run has used.
func newAccountID() int64 {
	return time.Now().UnixMilli()*100 + accountSeq.Add(1)%100
}

func apiBase(t *testing.T) string {
	t.Helper()
	base := os.Getenv("API_BASE")
	if base == "" {
		base = "http://localhost:8080"
	}
	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Skipf("skipping, API not reachable: %v", err)
	}
	resp.Body.Close()
	return base
}

func newClient(t *testing.T, role string, accountIDs ...int64) *httpclient.Client {
	t.Helper()
	base := apiBase(t)
	bearer, err := integration.TestToken("integration-user", role, accountIDs...)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return httpclient.New(base, bearer)
}

func itemsPath(accountID int64) string {
	return fmt.Sprintf("/api/v1/accounts/%d/kanban_items", accountID)
}

// seedFunnel writes a funnel row straight into the funnels table.
func seedFunnel(t *testing.T, ctx context.Context, accountID, funnelID int64, stages ...string) {
	t.Helper()
	connStr := os.Getenv("STORAGE_CONNECTION_STRING_LOCAL")
	if connStr == "" {
		t.Skip("STORAGE_CONNECTION_STRING_LOCAL must be set to seed funnels")
	}
	tableName := os.Getenv("FUNNELS_TABLE")
	if tableName == "" {
		tableName = "Funnels"
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		t.Fatalf("service client: %v", err)
	}
	stageMap := make(map[string]any, len(stages))
	for _, s := range stages {
		stageMap[s] = map[string]any{"name": s}
	}
	stagesJSON, err := json.Marshal(stageMap)
	if err != nil {
		t.Fatalf("encode stages: %v", err)
	}
	entity, err := json.Marshal(map[string]any{
		"PartitionKey":         strconv.FormatInt(accountID, 10),
		"RowKey":               fmt.Sprintf("%020d", funnelID),
		"FunnelID":             strconv.FormatInt(funnelID, 10),
		"FunnelID@odata.type":  "Edm.Int64",
		"AccountID":            strconv.FormatInt(accountID, 10),
		"AccountID@odata.type": "Edm.Int64",
		"Name":                 "Integration funnel",
		"Active":               true,
		"Stages":               string(stagesJSON),
		"Settings":             "{}",
	})
	if err != nil {
		t.Fatalf("encode funnel: %v", err)
	}
	if _, err := svc.NewClient(tableName).UpsertEntity(ctx, entity, nil); err != nil {
		t.Fatalf("seed funnel %d: %v", funnelID, err)
	}
}

func createItem(t *testing.T, client *httpclient.Client, accountID int64, fields map[string]any) item {
	t.Helper()
	var created item
	resp, err := client.PostJSON(itemsPath(accountID), map[string]any{"kanban_item": fields}, &created)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("create item: status %d err %v", statusOf(resp), err)
	}
	return created
}

func listItems(t *testing.T, client *httpclient.Client, accountID, funnelID int64) []item {
	t.Helper()
	var items []item
	resp, err := client.GetJSON(fmt.Sprintf("%s?funnel_id=%d", itemsPath(accountID), funnelID), &items)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list items: status %d err %v", statusOf(resp), err)
	}
	return items
}

func idsOf(items []item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
