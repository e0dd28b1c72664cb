package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"kanban-api/domain"
)

const usersPartition = "user"

// Directory reads the funnels, conversations, users and attachments that
// items are denormalized from. The tables are owned by other services.
type Directory struct {
	funnels       table
	conversations table
	users         table
	attachments   table
}

func NewDirectory(funnels, conversations, users, attachments table) *Directory {
	return &Directory{funnels: funnels, conversations: conversations, users: users, attachments: attachments}
}

func (d *Directory) Funnel(ctx context.Context, accountID, funnelID int64) (domain.Funnel, error) {
	rec, err := d.funnels.get(ctx, partitionKey(accountID), rowKey(funnelID))
	if err != nil {
		return domain.Funnel{}, err
	}
	var ent funnelEntity
	if err := domain.JSON.Unmarshal(rec.value, &ent); err != nil {
		return domain.Funnel{}, fmt.Errorf("decode funnel %d: %w", funnelID, err)
	}
	return ent.toDomain()
}

func (d *Directory) ConversationByID(ctx context.Context, accountID, id int64) (domain.Conversation, error) {
	rec, err := d.conversations.get(ctx, partitionKey(accountID), rowKey(id))
	if err != nil {
		return domain.Conversation{}, err
	}
	var ent conversationEntity
	if err := domain.JSON.Unmarshal(rec.value, &ent); err != nil {
		return domain.Conversation{}, fmt.Errorf("decode conversation %d: %w", id, err)
	}
	return ent.toDomain()
}

// ConversationByDisplayID finds the conversation with the given
// account-scoped display id.
func (d *Directory) ConversationByDisplayID(ctx context.Context, accountID, displayID int64) (domain.Conversation, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s' and DisplayID eq %dL", partitionKey(accountID), displayID)
	recs, err := d.conversations.list(ctx, filter)
	if err != nil {
		return domain.Conversation{}, err
	}
	for _, rec := range recs {
		var ent conversationEntity
		if err := domain.JSON.Unmarshal(rec.value, &ent); err != nil {
			return domain.Conversation{}, fmt.Errorf("decode conversation: %w", err)
		}
		if ent.AccountID == accountID && ent.DisplayID == displayID {
			return ent.toDomain()
		}
	}
	return domain.Conversation{}, domain.ErrNotFound
}

func (d *Directory) User(ctx context.Context, id int64) (domain.User, error) {
	rec, err := d.users.get(ctx, usersPartition, rowKey(id))
	if err != nil {
		return domain.User{}, err
	}
	var ent userEntity
	if err := domain.JSON.Unmarshal(rec.value, &ent); err != nil {
		return domain.User{}, fmt.Errorf("decode user %d: %w", id, err)
	}
	return domain.User{
		ID:                 ent.UserID,
		Name:               ent.Name,
		Email:              ent.Email,
		AvatarURL:          ent.AvatarURL,
		AvailabilityStatus: ent.AvailabilityStatus,
	}, nil
}

// Attachments lists the item's attachments ordered by id.
func (d *Directory) Attachments(ctx context.Context, accountID, itemID int64) ([]domain.Attachment, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s' and ItemID eq %dL", partitionKey(accountID), itemID)
	recs, err := d.attachments.list(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := []domain.Attachment{}
	for _, rec := range recs {
		var ent attachmentEntity
		if err := domain.JSON.Unmarshal(rec.value, &ent); err != nil {
			return nil, fmt.Errorf("decode attachment: %w", err)
		}
		if ent.ItemID != itemID {
			continue
		}
		out = append(out, domain.Attachment{
			ID:       ent.AttachmentID,
			FileType: ent.FileType,
			FileName: ent.FileName,
			DataURL:  ent.DataURL,
			ThumbURL: ent.ThumbURL,
			FileSize: ent.FileSize,
		})
	}
	slices.SortFunc(out, func(a, b domain.Attachment) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}
