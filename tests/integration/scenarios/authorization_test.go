package scenarios

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"kanbantest/internal/httpclient"
)

func TestAuthorization(t *testing.T) {
	ctx := context.Background()
	accountID := newAccountID()
	admin := newClient(t, "administrator", accountID)
	seedFunnel(t, ctx, accountID, 40, "lead")
	created := createItem(t, admin, accountID, map[string]any{"funnel_id": 40, "funnel_stage": "lead"})
	path := fmt.Sprintf("%s/%d", itemsPath(accountID), created.ID)

	agent := newClient(t, "agent", accountID)
	if resp, err := agent.Delete(path); err != nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("agent delete: expected 403, got %d err %v", statusOf(resp), err)
	}

	outsider := newClient(t, "administrator", accountID+1)
	if resp, err := outsider.GetJSON(path, nil); err != nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign account: expected 403, got %d err %v", statusOf(resp), err)
	}

	anonymous := httpclient.New(apiBase(t), "")
	if resp, err := anonymous.GetJSON(path, nil); err != nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d err %v", statusOf(resp), err)
	}

	if resp, err := admin.Delete(path); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("admin delete: status %d err %v", statusOf(resp), err)
	}
}
