package kanban

import (
	"context"
	"errors"
	"fmt"

	"kanban-api/domain"
)

// denormalize rebuilds item_details from the related entities. It runs
// synchronously before every save. Missing conversations and agents only
// omit their block; any other lookup failure aborts the write.
func (s *Service) denormalize(ctx context.Context, item *domain.Item, funnel domain.Funnel) error {
	details := &item.ItemDetails

	attachments, err := s.dir.Attachments(ctx, item.AccountID, item.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("load attachments of item %d: %w", item.ID, err)
	}
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	details.Attachments = attachments

	funnelSnap := funnel.Snapshot()
	details.Funnel = &funnelSnap

	conv, found, err := s.resolveConversation(ctx, item)
	if err != nil {
		return err
	}
	if found {
		assignee, err := s.lookupUser(ctx, conv.AssigneeID)
		if err != nil {
			return err
		}
		snap := conv.Snapshot(assignee)
		details.Conversation = &snap
	}

	agent, err := s.lookupUser(ctx, details.AgentID)
	if err != nil {
		return err
	}
	if agent != nil {
		snap := agent.Snapshot()
		details.Agent = &snap
	}
	return nil
}

// resolveConversation prefers the display id. When it resolves, the internal
// id is written back into item_details.conversation_id. The stored internal
// id is only consulted when no display id is set.
func (s *Service) resolveConversation(ctx context.Context, item *domain.Item) (domain.Conversation, bool, error) {
	var (
		conv domain.Conversation
		err  error
	)
	switch {
	case item.ConversationDisplayID != nil:
		conv, err = s.dir.ConversationByDisplayID(ctx, item.AccountID, *item.ConversationDisplayID)
		if err == nil {
			id := conv.ID
			item.ItemDetails.ConversationID = &id
		}
	case item.ItemDetails.ConversationID != nil:
		conv, err = s.dir.ConversationByID(ctx, item.AccountID, *item.ItemDetails.ConversationID)
	default:
		return domain.Conversation{}, false, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Conversation{}, false, nil
	}
	if err != nil {
		return domain.Conversation{}, false, fmt.Errorf("load conversation: %w", err)
	}
	return conv, true, nil
}

func (s *Service) lookupUser(ctx context.Context, id *int64) (*domain.User, error) {
	if id == nil {
		return nil, nil
	}
	user, err := s.dir.User(ctx, *id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", *id, err)
	}
	return &user, nil
}
