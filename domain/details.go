package domain

import (
	"bytes"

	"github.com/bytedance/sonic"
)

const (
	detailConversationID = "conversation_id"
	detailAgentID        = "agent_id"
	detailConversation   = "conversation"
	detailFunnel         = "funnel"
	detailAgent          = "agent"
	detailAttachments    = "attachments"
)

// ItemDetails is the denormalized document stored on every item. Known keys
// are typed; every other key supplied by callers is kept verbatim in Extra.
// A known key whose value does not fit its type is also kept in Extra so that
// arbitrary caller data survives a round trip.
type ItemDetails struct {
	ConversationID *int64
	AgentID        *int64
	Conversation   *ConversationSnapshot
	Funnel         *FunnelSnapshot
	Agent          *UserSnapshot
	Attachments    []Attachment
	Extra          map[string]any
}

// ParseItemDetails decodes a caller supplied document. Anything that is not a
// JSON object becomes an empty document.
func ParseItemDetails(raw []byte) (ItemDetails, error) {
	var d ItemDetails
	err := d.UnmarshalJSON(raw)
	return d, err
}

// Map renders the document as a plain mapping.
func (d ItemDetails) Map() map[string]any {
	out := make(map[string]any, len(d.Extra)+6)
	for k, v := range d.Extra {
		out[k] = v
	}
	if d.ConversationID != nil {
		out[detailConversationID] = *d.ConversationID
	}
	if d.AgentID != nil {
		out[detailAgentID] = *d.AgentID
	}
	if d.Conversation != nil {
		out[detailConversation] = d.Conversation
	}
	if d.Funnel != nil {
		out[detailFunnel] = d.Funnel
	}
	if d.Agent != nil {
		out[detailAgent] = d.Agent
	}
	if d.Attachments != nil {
		out[detailAttachments] = d.Attachments
	}
	return out
}

func (d ItemDetails) MarshalJSON() ([]byte, error) {
	return JSON.Marshal(d.Map())
}

func (d *ItemDetails) UnmarshalJSON(data []byte) error {
	*d = ItemDetails{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	var fields map[string]sonic.NoCopyRawMessage
	if err := JSON.Unmarshal(data, &fields); err != nil {
		return err
	}
	for key, raw := range fields {
		if err := d.set(key, raw); err != nil {
			return err
		}
	}
	return nil
}

func (d *ItemDetails) set(key string, raw []byte) error {
	if !IsNull(raw) {
		switch key {
		case detailConversationID:
			if id, ok := ParseID(raw); ok {
				d.ConversationID = &id
				return nil
			}
		case detailAgentID:
			if id, ok := ParseID(raw); ok {
				d.AgentID = &id
				return nil
			}
		case detailConversation:
			var snap ConversationSnapshot
			if JSON.Unmarshal(raw, &snap) == nil {
				d.Conversation = &snap
				return nil
			}
		case detailFunnel:
			var snap FunnelSnapshot
			if JSON.Unmarshal(raw, &snap) == nil {
				d.Funnel = &snap
				return nil
			}
		case detailAgent:
			var snap UserSnapshot
			if JSON.Unmarshal(raw, &snap) == nil {
				d.Agent = &snap
				return nil
			}
		case detailAttachments:
			var list []Attachment
			if JSON.Unmarshal(raw, &list) == nil {
				d.Attachments = list
				return nil
			}
		}
	}
	var v any
	if err := JSON.Unmarshal(raw, &v); err != nil {
		return err
	}
	if d.Extra == nil {
		d.Extra = map[string]any{}
	}
	d.Extra[key] = v
	return nil
}

// HasConversation reports whether the document references a conversation.
func (d ItemDetails) HasConversation() bool {
	return d.ConversationID != nil
}
