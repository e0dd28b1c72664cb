package storage

import (
	"time"

	"kanban-api/domain"
)

const edmInt64 = "Edm.Int64"

// itemEntity is the table representation of a kanban item. Maps are stored as
// JSON strings; timestamps as Unix nanoseconds.
type itemEntity struct {
	PartitionKey              string  `json:"PartitionKey"`
	RowKey                    string  `json:"RowKey"`
	ItemID                    int64   `json:"ItemID,string"`
	ItemIDType                string  `json:"ItemID@odata.type"`
	AccountID                 int64   `json:"AccountID,string"`
	AccountIDType             string  `json:"AccountID@odata.type"`
	FunnelID                  int64   `json:"FunnelID,string"`
	FunnelIDType              string  `json:"FunnelID@odata.type"`
	FunnelStage               string  `json:"FunnelStage"`
	Position                  int     `json:"Position"`
	ConversationDisplayID     *int64  `json:"ConversationDisplayID,omitempty,string"`
	ConversationDisplayIDType *string `json:"ConversationDisplayID@odata.type,omitempty"`
	TimerStartedAt            *int64  `json:"TimerStartedAt,omitempty,string"`
	TimerStartedAtType        *string `json:"TimerStartedAt@odata.type,omitempty"`
	TimerDuration             *int64  `json:"TimerDuration,omitempty,string"`
	TimerDurationType         *string `json:"TimerDuration@odata.type,omitempty"`
	CustomAttributes          string  `json:"CustomAttributes"`
	ItemDetails               string  `json:"ItemDetails"`
	CreatedAt                 int64   `json:"CreatedAt,string"`
	CreatedAtType             string  `json:"CreatedAt@odata.type"`
	UpdatedAt                 int64   `json:"UpdatedAt,string"`
	UpdatedAtType             string  `json:"UpdatedAt@odata.type"`
}

func int64Type(v *int64) *string {
	if v == nil {
		return nil
	}
	t := edmInt64
	return &t
}

func unixNano(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	n := t.UnixNano()
	return &n
}

func fromUnixNano(n *int64) *time.Time {
	if n == nil {
		return nil
	}
	t := time.Unix(0, *n).UTC()
	return &t
}

func encodeItem(it domain.Item) ([]byte, error) {
	attrs := it.CustomAttributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	customAttributes, err := domain.JSON.MarshalToString(attrs)
	if err != nil {
		return nil, err
	}
	details, err := domain.JSON.MarshalToString(it.ItemDetails)
	if err != nil {
		return nil, err
	}
	timerStartedAt := unixNano(it.TimerStartedAt)
	ent := itemEntity{
		PartitionKey:              partitionKey(it.AccountID),
		RowKey:                    rowKey(it.ID),
		ItemID:                    it.ID,
		ItemIDType:                edmInt64,
		AccountID:                 it.AccountID,
		AccountIDType:             edmInt64,
		FunnelID:                  it.FunnelID,
		FunnelIDType:              edmInt64,
		FunnelStage:               it.FunnelStage,
		Position:                  it.Position,
		ConversationDisplayID:     it.ConversationDisplayID,
		ConversationDisplayIDType: int64Type(it.ConversationDisplayID),
		TimerStartedAt:            timerStartedAt,
		TimerStartedAtType:        int64Type(timerStartedAt),
		TimerDuration:             it.TimerDuration,
		TimerDurationType:         int64Type(it.TimerDuration),
		CustomAttributes:          customAttributes,
		ItemDetails:               details,
		CreatedAt:                 it.CreatedAt.UnixNano(),
		CreatedAtType:             edmInt64,
		UpdatedAt:                 it.UpdatedAt.UnixNano(),
		UpdatedAtType:             edmInt64,
	}
	return domain.JSON.Marshal(ent)
}

func decodeItem(rec record) (domain.Item, error) {
	var ent itemEntity
	if err := domain.JSON.Unmarshal(rec.value, &ent); err != nil {
		return domain.Item{}, err
	}
	attrs := map[string]any{}
	if ent.CustomAttributes != "" {
		if err := domain.JSON.UnmarshalFromString(ent.CustomAttributes, &attrs); err != nil {
			return domain.Item{}, err
		}
	}
	var details domain.ItemDetails
	if ent.ItemDetails != "" {
		if err := details.UnmarshalJSON([]byte(ent.ItemDetails)); err != nil {
			return domain.Item{}, err
		}
	}
	return domain.Item{
		ID:                    ent.ItemID,
		AccountID:             ent.AccountID,
		FunnelID:              ent.FunnelID,
		FunnelStage:           ent.FunnelStage,
		Position:              ent.Position,
		ConversationDisplayID: ent.ConversationDisplayID,
		TimerStartedAt:        fromUnixNano(ent.TimerStartedAt),
		TimerDuration:         ent.TimerDuration,
		CustomAttributes:      attrs,
		ItemDetails:           details,
		CreatedAt:             time.Unix(0, ent.CreatedAt).UTC(),
		UpdatedAt:             time.Unix(0, ent.UpdatedAt).UTC(),
		ETag:                  string(rec.etag),
	}, nil
}

type funnelEntity struct {
	PartitionKey string  `json:"PartitionKey"`
	RowKey       string  `json:"RowKey"`
	FunnelID     int64   `json:"FunnelID,string"`
	AccountID    int64   `json:"AccountID,string"`
	Name         string  `json:"Name"`
	Description  *string `json:"Description,omitempty"`
	Active       bool    `json:"Active"`
	Stages       string  `json:"Stages"`
	Settings     string  `json:"Settings"`
}

func (e funnelEntity) toDomain() (domain.Funnel, error) {
	f := domain.Funnel{
		ID:          e.FunnelID,
		AccountID:   e.AccountID,
		Name:        e.Name,
		Description: e.Description,
		Active:      e.Active,
		Stages:      map[string]any{},
		Settings:    map[string]any{},
	}
	if err := decodeMap(e.Stages, &f.Stages); err != nil {
		return domain.Funnel{}, err
	}
	if err := decodeMap(e.Settings, &f.Settings); err != nil {
		return domain.Funnel{}, err
	}
	return f, nil
}

type conversationEntity struct {
	PartitionKey         string  `json:"PartitionKey"`
	RowKey               string  `json:"RowKey"`
	ConversationID       int64   `json:"ConversationID,string"`
	DisplayID            int64   `json:"DisplayID,string"`
	AccountID            int64   `json:"AccountID,string"`
	InboxID              int64   `json:"InboxID,string"`
	Status               string  `json:"Status"`
	Priority             *string `json:"Priority,omitempty"`
	TeamID               *int64  `json:"TeamID,omitempty,string"`
	CampaignID           *int64  `json:"CampaignID,omitempty,string"`
	AssigneeID           *int64  `json:"AssigneeID,omitempty,string"`
	SnoozedUntil         *int64  `json:"SnoozedUntil,omitempty,string"`
	WaitingSince         *int64  `json:"WaitingSince,omitempty,string"`
	FirstReplyCreatedAt  *int64  `json:"FirstReplyCreatedAt,omitempty,string"`
	LastActivityAt       *int64  `json:"LastActivityAt,omitempty,string"`
	AdditionalAttributes string  `json:"AdditionalAttributes"`
	CustomAttributes     string  `json:"CustomAttributes"`
	UUID                 string  `json:"UUID"`
	CreatedAt            int64   `json:"CreatedAt,string"`
	UpdatedAt            int64   `json:"UpdatedAt,string"`
	CachedLabelList      string  `json:"CachedLabelList"`
	UnreadCount          int     `json:"UnreadCount"`
	MessagesCount        int     `json:"MessagesCount"`
	Contact              string  `json:"Contact"`
	InboxName            string  `json:"InboxName"`
	InboxChannelType     string  `json:"InboxChannelType"`
}

// contactDocument is the contact embedded in a conversation row.
type contactDocument struct {
	ID                   int64          `json:"id"`
	Name                 string         `json:"name"`
	Email                *string        `json:"email"`
	PhoneNumber          *string        `json:"phone_number"`
	AvatarURL            string         `json:"avatar_url"`
	AdditionalAttributes map[string]any `json:"additional_attributes"`
}

func (e conversationEntity) toDomain() (domain.Conversation, error) {
	c := domain.Conversation{
		ID:                   e.ConversationID,
		DisplayID:            e.DisplayID,
		AccountID:            e.AccountID,
		InboxID:              e.InboxID,
		Status:               e.Status,
		Priority:             e.Priority,
		TeamID:               e.TeamID,
		CampaignID:           e.CampaignID,
		AssigneeID:           e.AssigneeID,
		SnoozedUntil:         fromUnixNano(e.SnoozedUntil),
		WaitingSince:         fromUnixNano(e.WaitingSince),
		FirstReplyCreatedAt:  fromUnixNano(e.FirstReplyCreatedAt),
		LastActivityAt:       fromUnixNano(e.LastActivityAt),
		AdditionalAttributes: map[string]any{},
		CustomAttributes:     map[string]any{},
		UUID:                 e.UUID,
		CreatedAt:            time.Unix(0, e.CreatedAt).UTC(),
		UpdatedAt:            time.Unix(0, e.UpdatedAt).UTC(),
		CachedLabelList:      e.CachedLabelList,
		UnreadCount:          e.UnreadCount,
		MessagesCount:        e.MessagesCount,
		Inbox:                domain.Inbox{ID: e.InboxID, Name: e.InboxName, ChannelType: e.InboxChannelType},
	}
	if err := decodeMap(e.AdditionalAttributes, &c.AdditionalAttributes); err != nil {
		return domain.Conversation{}, err
	}
	if err := decodeMap(e.CustomAttributes, &c.CustomAttributes); err != nil {
		return domain.Conversation{}, err
	}
	if e.Contact != "" {
		var doc contactDocument
		if err := domain.JSON.UnmarshalFromString(e.Contact, &doc); err != nil {
			return domain.Conversation{}, err
		}
		c.Contact = &domain.Contact{
			ID:                   doc.ID,
			Name:                 doc.Name,
			Email:                doc.Email,
			PhoneNumber:          doc.PhoneNumber,
			AvatarURL:            doc.AvatarURL,
			AdditionalAttributes: doc.AdditionalAttributes,
		}
	}
	return c, nil
}

type userEntity struct {
	PartitionKey       string `json:"PartitionKey"`
	RowKey             string `json:"RowKey"`
	UserID             int64  `json:"UserID,string"`
	Name               string `json:"Name"`
	Email              string `json:"Email"`
	AvatarURL          string `json:"AvatarURL"`
	AvailabilityStatus string `json:"AvailabilityStatus"`
}

type attachmentEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	AttachmentID int64  `json:"AttachmentID,string"`
	ItemID       int64  `json:"ItemID,string"`
	FileType     string `json:"FileType"`
	FileName     string `json:"FileName"`
	DataURL      string `json:"DataURL"`
	ThumbURL     string `json:"ThumbURL"`
	FileSize     int64  `json:"FileSize,string"`
}

func decodeMap(raw string, dst *map[string]any) error {
	if raw == "" {
		return nil
	}
	return domain.JSON.UnmarshalFromString(raw, dst)
}
