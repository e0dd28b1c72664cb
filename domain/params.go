package domain

import "time"

// Optional distinguishes an absent field from an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a set optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a set optional holding no value.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// ItemParams holds the permitted attributes of a create or update request.
// Nil pointers and unset optionals mean "not supplied".
type ItemParams struct {
	FunnelID              *int64
	FunnelStage           *string
	Position              *int
	ConversationDisplayID Optional[int64]
	TimerStartedAt        Optional[time.Time]
	TimerDuration         Optional[int64]
	CustomAttributes      map[string]any
	ItemDetails           *ItemDetails
}

// MirrorConversationID copies item_details.conversation_id into
// conversation_display_id when the caller supplied one.
func (p *ItemParams) MirrorConversationID() {
	if p.ItemDetails == nil || p.ItemDetails.ConversationID == nil {
		return
	}
	p.ConversationDisplayID = Some(*p.ItemDetails.ConversationID)
}
