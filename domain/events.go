package domain

import "time"

const (
	EventItemCreated    = "kanban_item.created"
	EventItemUpdated    = "kanban_item.updated"
	EventItemDeleted    = "kanban_item.deleted"
	EventItemMoved      = "kanban_item.moved"
	EventItemsReordered = "kanban_item.reordered"
)

// ItemEvent announces a committed change to one or more items.
type ItemEvent struct {
	Type        string    `json:"type"`
	AccountID   int64     `json:"accountId"`
	ItemIDs     []int64   `json:"itemIds"`
	FunnelID    int64     `json:"funnelId,omitempty"`
	FunnelStage string    `json:"funnelStage,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}
