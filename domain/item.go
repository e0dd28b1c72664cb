package domain

import (
	"cmp"
	"slices"
	"time"
)

// Item is a single kanban card belonging to an account and a funnel.
type Item struct {
	ID                    int64          `json:"id"`
	AccountID             int64          `json:"account_id"`
	FunnelID              int64          `json:"funnel_id"`
	FunnelStage           string         `json:"funnel_stage"`
	Position              int            `json:"position"`
	ConversationDisplayID *int64         `json:"conversation_display_id"`
	TimerStartedAt        *time.Time     `json:"timer_started_at"`
	TimerDuration         *int64         `json:"timer_duration"`
	CustomAttributes      map[string]any `json:"custom_attributes"`
	ItemDetails           ItemDetails    `json:"item_details"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`

	// ETag is the storage version the item was read at.
	ETag string `json:"-"`
}

// NewItem builds an unsaved item for account from caller supplied fields.
func NewItem(accountID int64, p ItemParams) Item {
	it := Item{
		AccountID:        accountID,
		CustomAttributes: map[string]any{},
	}
	it.Apply(p)
	return it
}

// Apply assigns every supplied field. item_details is replaced as a whole.
func (it *Item) Apply(p ItemParams) {
	if p.FunnelID != nil {
		it.FunnelID = *p.FunnelID
	}
	if p.FunnelStage != nil {
		it.FunnelStage = *p.FunnelStage
	}
	if p.Position != nil {
		it.Position = *p.Position
	}
	if p.ConversationDisplayID.Set {
		it.ConversationDisplayID = p.ConversationDisplayID.Value
	}
	if p.TimerStartedAt.Set {
		it.TimerStartedAt = p.TimerStartedAt.Value
	}
	if p.TimerDuration.Set {
		it.TimerDuration = p.TimerDuration.Value
	}
	if p.CustomAttributes != nil {
		it.CustomAttributes = p.CustomAttributes
	}
	if p.ItemDetails != nil {
		it.ItemDetails = *p.ItemDetails
	}
}

// Touch stamps a write. updated_at always lands in a later whole second than
// the previous value because cache keys are derived from the Unix second.
func (it *Item) Touch(now time.Time) {
	now = now.UTC()
	if !it.UpdatedAt.IsZero() && now.Unix() <= it.UpdatedAt.Unix() {
		now = time.Unix(it.UpdatedAt.Unix()+1, 0).UTC()
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now
}

// MoveToStage places the item in stage at position.
func (it *Item) MoveToStage(stage string, position int) {
	it.FunnelStage = stage
	it.Position = position
}

// Serialize renders the item payload served to clients and cached.
func (it Item) Serialize() ([]byte, error) {
	if it.CustomAttributes == nil {
		it.CustomAttributes = map[string]any{}
	}
	return JSON.Marshal(it)
}

// PositionUpdate is one entry of a reorder batch.
type PositionUpdate struct {
	ID          int64
	Position    int
	FunnelStage string
}

// SortByPosition orders items for display: position ascending, then id.
func SortByPosition(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
