package domain

import (
	"strings"
	"time"
)

// Funnel is a named pipeline of stages. It is owned by the funnels read model.
type Funnel struct {
	ID          int64
	AccountID   int64
	Name        string
	Description *string
	Active      bool
	Stages      map[string]any
	Settings    map[string]any
}

// HasStage reports whether stage is one of the funnel's declared stages. A
// funnel without declared stages accepts any stage.
func (f Funnel) HasStage(stage string) bool {
	if len(f.Stages) == 0 {
		return true
	}
	if _, ok := f.Stages[stage]; ok {
		return true
	}
	for _, v := range f.Stages {
		if m, ok := v.(map[string]any); ok {
			if name, _ := m["name"].(string); name == stage {
				return true
			}
		}
	}
	return false
}

// FunnelSnapshot is the public funnel projection embedded in item_details.
type FunnelSnapshot struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Active      bool           `json:"active"`
	Stages      map[string]any `json:"stages"`
	Settings    map[string]any `json:"settings"`
}

func (f Funnel) Snapshot() FunnelSnapshot {
	return FunnelSnapshot{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Active:      f.Active,
		Stages:      f.Stages,
		Settings:    f.Settings,
	}
}

// User is an agent of the platform.
type User struct {
	ID                 int64
	Name               string
	Email              string
	AvatarURL          string
	AvailabilityStatus string
}

// UserSnapshot is used for both the item's agent and a conversation assignee.
type UserSnapshot struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	AvatarURL          string `json:"avatar_url"`
	AvailabilityStatus string `json:"availability_status"`
}

func (u User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		AvatarURL:          u.AvatarURL,
		AvailabilityStatus: u.AvailabilityStatus,
	}
}

type Contact struct {
	ID                   int64
	Name                 string
	Email                *string
	PhoneNumber          *string
	AvatarURL            string
	AdditionalAttributes map[string]any
}

type ContactSnapshot struct {
	ID                   int64          `json:"id"`
	Name                 string         `json:"name"`
	Email                *string        `json:"email"`
	PhoneNumber          *string        `json:"phone_number"`
	Thumbnail            string         `json:"thumbnail"`
	AdditionalAttributes map[string]any `json:"additional_attributes"`
}

type Inbox struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ChannelType string `json:"channel_type"`
}

// Conversation is the subset of a support conversation the kanban board
// needs. Counters and the label cache are maintained by the conversations
// read model.
type Conversation struct {
	ID                   int64
	DisplayID            int64
	AccountID            int64
	InboxID              int64
	Status               string
	Priority             *string
	TeamID               *int64
	CampaignID           *int64
	AssigneeID           *int64
	SnoozedUntil         *time.Time
	WaitingSince         *time.Time
	FirstReplyCreatedAt  *time.Time
	LastActivityAt       *time.Time
	AdditionalAttributes map[string]any
	CustomAttributes     map[string]any
	UUID                 string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	CachedLabelList      string
	UnreadCount          int
	MessagesCount        int
	Contact              *Contact
	Inbox                Inbox
}

// LabelListArray splits the comma separated label cache.
func (c Conversation) LabelListArray() []string {
	labels := []string{}
	for _, label := range strings.Split(c.CachedLabelList, ",") {
		if label = strings.TrimSpace(label); label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}

// ConversationSnapshot is the conversation projection stored under
// item_details.conversation. Field names are part of the public contract.
type ConversationSnapshot struct {
	ID                   int64            `json:"id"`
	DisplayID            int64            `json:"display_id"`
	InboxID              int64            `json:"inbox_id"`
	AccountID            int64            `json:"account_id"`
	Status               string           `json:"status"`
	Priority             *string          `json:"priority"`
	TeamID               *int64           `json:"team_id"`
	CampaignID           *int64           `json:"campaign_id"`
	SnoozedUntil         *time.Time       `json:"snoozed_until"`
	WaitingSince         *time.Time       `json:"waiting_since"`
	FirstReplyCreatedAt  *time.Time       `json:"first_reply_created_at"`
	LastActivityAt       *time.Time       `json:"last_activity_at"`
	AdditionalAttributes map[string]any   `json:"additional_attributes"`
	CustomAttributes     map[string]any   `json:"custom_attributes"`
	UUID                 string           `json:"uuid"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
	LabelList            []string         `json:"label_list"`
	UnreadCount          int              `json:"unread_count"`
	Assignee             *UserSnapshot    `json:"assignee"`
	Contact              *ContactSnapshot `json:"contact"`
	MessagesCount        int              `json:"messages_count"`
	Inbox                Inbox            `json:"inbox"`
}

// Snapshot projects the conversation. assignee may be nil when the
// conversation is unassigned or the user no longer exists.
func (c Conversation) Snapshot(assignee *User) ConversationSnapshot {
	snap := ConversationSnapshot{
		ID:                   c.ID,
		DisplayID:            c.DisplayID,
		InboxID:              c.InboxID,
		AccountID:            c.AccountID,
		Status:               c.Status,
		Priority:             c.Priority,
		TeamID:               c.TeamID,
		CampaignID:           c.CampaignID,
		SnoozedUntil:         c.SnoozedUntil,
		WaitingSince:         c.WaitingSince,
		FirstReplyCreatedAt:  c.FirstReplyCreatedAt,
		LastActivityAt:       c.LastActivityAt,
		AdditionalAttributes: c.AdditionalAttributes,
		CustomAttributes:     c.CustomAttributes,
		UUID:                 c.UUID,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
		LabelList:            c.LabelListArray(),
		UnreadCount:          c.UnreadCount,
		MessagesCount:        c.MessagesCount,
		Inbox:                c.Inbox,
	}
	if assignee != nil {
		a := assignee.Snapshot()
		snap.Assignee = &a
	}
	if c.Contact != nil {
		snap.Contact = &ContactSnapshot{
			ID:                   c.Contact.ID,
			Name:                 c.Contact.Name,
			Email:                c.Contact.Email,
			PhoneNumber:          c.Contact.PhoneNumber,
			Thumbnail:            c.Contact.AvatarURL,
			AdditionalAttributes: c.Contact.AdditionalAttributes,
		}
	}
	return snap
}

// Attachment is the serialized form of a file attached to an item.
type Attachment struct {
	ID       int64  `json:"id"`
	FileType string `json:"file_type"`
	FileName string `json:"file_name"`
	DataURL  string `json:"data_url"`
	ThumbURL string `json:"thumb_url"`
	FileSize int64  `json:"file_size"`
}
