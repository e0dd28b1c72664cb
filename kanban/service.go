package kanban

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

const (
	// DefaultCacheTTL bounds how long a serialized item stays cached after insertion.
	DefaultCacheTTL = 5 * time.Minute
	// MaxReorderBatch is the largest reorder accepted in one transaction.
	MaxReorderBatch = 100
)

// Deps are the collaborators of a Service. Store, Directory, Policy and IDs
// are required.
type Deps struct {
	Store     Store
	Directory Directory
	Cache     Cache
	Policy    Policy
	Notifier  Notifier
	IDs       IDGenerator
	Logger    *log.Logger
	CacheTTL  time.Duration
	Now       func() time.Time
}

// Service implements the kanban item operations.
type Service struct {
	store    Store
	dir      Directory
	cache    Cache
	policy   Policy
	notifier Notifier
	ids      IDGenerator
	log      *log.Logger
	ttl      time.Duration
	now      func() time.Time
}

// DebugSnapshot is the diagnostic summary of a funnel.
type DebugSnapshot struct {
	ItemsCount          int
	FirstItemSample     []byte
	HasConversationData bool
}

// NewService validates deps and fills optional collaborators with defaults.
func NewService(d Deps) *Service {
	if d.Store == nil || d.Directory == nil || d.Policy == nil || d.IDs == nil {
		panic("kanban.NewService: store, directory, policy and id generator are required")
	}
	s := &Service{
		store:    d.Store,
		dir:      d.Directory,
		cache:    d.Cache,
		policy:   d.Policy,
		notifier: d.Notifier,
		ids:      d.IDs,
		log:      d.Logger,
		ttl:      d.CacheTTL,
		now:      d.Now,
	}
	if s.cache == nil {
		s.cache = uncached{}
	}
	if s.notifier == nil {
		s.notifier = discard{}
	}
	if s.log == nil {
		s.log = log.New()
	}
	if s.ttl <= 0 {
		s.ttl = DefaultCacheTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Index returns the serialized items of a funnel in board order. Each item is
// served through the cache independently.
func (s *Service) Index(ctx context.Context, rc RequestContext, funnelID int64) ([][]byte, error) {
	if err := s.authorize(ctx, rc, Resource{AccountID: rc.AccountID}, ActionIndex); err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx, rc.AccountID, funnelID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	out := make([][]byte, 0, len(items))
	for _, item := range items {
		data, err := s.serialize(ctx, item)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// Show returns one serialized item.
func (s *Service) Show(ctx context.Context, rc RequestContext, id int64) ([]byte, error) {
	if err := s.authorize(ctx, rc, Resource{AccountID: rc.AccountID, ItemID: id}, ActionShow); err != nil {
		return nil, err
	}
	item, err := s.store.GetItem(ctx, rc.AccountID, id)
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	return s.serialize(ctx, item)
}

func (s *Service) serialize(ctx context.Context, item domain.Item) ([]byte, error) {
	data, _, err := s.cache.Fetch(ctx, CacheKey(item.ID, item.UpdatedAt), s.ttl, item.Serialize)
	if err != nil {
		return nil, fmt.Errorf("serialize item %d: %w", item.ID, err)
	}
	return data, nil
}

// Create builds, denormalizes and stores a new item.
func (s *Service) Create(ctx context.Context, rc RequestContext, p domain.ItemParams) (domain.Item, error) {
	p.MirrorConversationID()
	item := domain.NewItem(rc.AccountID, p)

	if err := s.authorize(ctx, rc, Resource{AccountID: rc.AccountID}, ActionCreate); err != nil {
		return domain.Item{}, err
	}
	funnel, err := s.validate(ctx, item)
	if err != nil {
		return domain.Item{}, err
	}
	id, err := s.ids.NextID()
	if err != nil {
		return domain.Item{}, fmt.Errorf("generate item id: %w", err)
	}
	item.ID = id
	if err := s.denormalize(ctx, &item, funnel); err != nil {
		return domain.Item{}, err
	}
	item.Touch(s.now())

	saved, err := s.store.InsertItem(ctx, item)
	if err != nil {
		return domain.Item{}, fmt.Errorf("insert item: %w", err)
	}
	s.publish(ctx, domain.EventItemCreated, saved)
	return saved, nil
}

// Update assigns the supplied fields, re-denormalizes and stores the item.
func (s *Service) Update(ctx context.Context, rc RequestContext, id int64, p domain.ItemParams) (domain.Item, error) {
	if err := s.authorize(ctx, rc, Resource{AccountID: rc.AccountID, ItemID: id}, ActionUpdate); err != nil {
		return domain.Item{}, err
	}
	item, err := s.store.GetItem(ctx, rc.AccountID, id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("get item %d: %w", id, err)
	}

	p.MirrorConversationID()
	item.Apply(p)

	funnel, err := s.validate(ctx, item)
	if err != nil {
		return domain.Item{}, err
	}
	if err := s.denormalize(ctx, &item, funnel); err != nil {
		return domain.Item{}, err
	}
	item.Touch(s.now())

	saved, err := s.store.ReplaceItem(ctx, item)
	if err != nil {
		return domain.Item{}, fmt.Errorf("replace item %d: %w", id, err)
	}
	s.publish(ctx, domain.EventItemUpdated, saved)
	return saved, nil
}

// MoveToStage moves the item to the end of stage within its funnel. Moving
// to the current stage is a no-op.
func (s *Service) MoveToStage(ctx context.Context, rc RequestContext, id int64, stage string) error {
	if err := s.authorize(ctx, rc, Resource{AccountID: rc.AccountID, ItemID: id}, ActionMoveToStage); err != nil {
		return err
	}
	item, err := s.store.GetItem(ctx, rc.AccountID, id)
	if err != nil {
		return fmt.Errorf("get item %d: %w", id, err)
	}

	stage = strings.TrimSpace(stage)
	if stage == "" {
		verr := domain.NewValidationError()
		verr.Add("funnel_stage", "can't be blank")
		return verr
	}
	funnel, err := s.dir.Funnel(ctx, rc.AccountID, item.FunnelID)
	switch {
	case err == nil:
		if !funnel.HasStage(stage) {
			verr := domain.NewValidationError()
			verr.Add("funnel_stage", "is not included in the list")
			return verr
		}
	case errors.Is(err, domain.ErrNotFound):
	default:
		return fmt.Errorf("load funnel %d: %w", item.FunnelID, err)
	}
	if item.FunnelStage == stage {
		return nil
	}

	siblings, err := s.store.ListItems(ctx, rc.AccountID, item.FunnelID)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	position := 0
	for _, sib := range siblings {
		if sib.ID != item.ID && sib.FunnelStage == stage && sib.Position >= position {
			position = sib.Position + 1
		}
	}
	item.MoveToStage(stage, position)
	item.Touch(s.now())

	saved, err := s.store.ReplaceItem(ctx, item)
	if err != nil {
		return fmt.Errorf("replace item %d: %w", id, err)
	}
	s.publish(ctx, domain.EventItemMoved, saved)
	return nil
}

// Reorder applies a batch of positions as one transaction. Every item is
// looked up inside the account first; an unknown id aborts the whole batch.
func (s *Service) Reorder(ctx context.Context, rc RequestContext, positions []domain.PositionUpdate) error {
	if err := s.authorize(ctx, rc, Resource{AccountID: rc.AccountID}, ActionReorder); err != nil {
		return err
	}
	if err := validatePositions(positions); err != nil {
		return err
	}
	if len(positions) == 0 {
		return nil
	}

	now := s.now()
	items := make([]domain.Item, 0, len(positions))
	ids := make([]int64, 0, len(positions))
	for _, pos := range positions {
		item, err := s.store.GetItem(ctx, rc.AccountID, pos.ID)
		if err != nil {
			return fmt.Errorf("reorder item %d: %w", pos.ID, err)
		}
		item.Position = pos.Position
		item.FunnelStage = pos.FunnelStage
		item.Touch(now)
		items = append(items, item)
		ids = append(ids, item.ID)
	}
	if err := s.store.ReplaceItems(ctx, rc.AccountID, items); err != nil {
		return fmt.Errorf("reorder transaction: %w", err)
	}
	s.notifier.Publish(ctx, domain.ItemEvent{
		Type:       domain.EventItemsReordered,
		AccountID:  rc.AccountID,
		ItemIDs:    ids,
		OccurredAt: now.UTC(),
	})
	return nil
}

// Destroy hard-deletes the item.
func (s *Service) Destroy(ctx context.Context, rc RequestContext, id int64) error {
	if err := s.authorize(ctx, rc, Resource{AccountID: rc.AccountID, ItemID: id}, ActionDestroy); err != nil {
		return err
	}
	if err := s.store.DeleteItem(ctx, rc.AccountID, id); err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	s.notifier.Publish(ctx, domain.ItemEvent{
		Type:       domain.EventItemDeleted,
		AccountID:  rc.AccountID,
		ItemIDs:    []int64{id},
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// Debug summarizes a funnel for diagnostics. The sample is serialized
// directly, bypassing the cache.
func (s *Service) Debug(ctx context.Context, rc RequestContext, funnelID int64) (DebugSnapshot, error) {
	if err := s.authorize(ctx, rc, Resource{AccountID: rc.AccountID}, ActionIndex); err != nil {
		return DebugSnapshot{}, err
	}
	items, err := s.store.ListItems(ctx, rc.AccountID, funnelID)
	if err != nil {
		return DebugSnapshot{}, fmt.Errorf("list items: %w", err)
	}
	snap := DebugSnapshot{ItemsCount: len(items)}
	if len(items) > 0 {
		if snap.FirstItemSample, err = items[0].Serialize(); err != nil {
			return DebugSnapshot{}, fmt.Errorf("serialize item %d: %w", items[0].ID, err)
		}
	}
	for _, item := range items {
		if item.ItemDetails.HasConversation() {
			snap.HasConversationData = true
			break
		}
	}
	return snap, nil
}

func (s *Service) authorize(ctx context.Context, rc RequestContext, res Resource, action Action) error {
	err := s.policy.Check(ctx, rc.Actor, res, action)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrForbidden) {
		s.log.WithFields(log.Fields{
			"action":     string(action),
			"account_id": rc.AccountID,
			"item_id":    res.ItemID,
			"user_id":    rc.Actor.UserID,
		}).Debug("kanban.authorization.denied")
		return err
	}
	return fmt.Errorf("authorize %s: %w", action, err)
}

// validate checks the item's attributes and returns its funnel, which the
// denormalization step embeds.
func (s *Service) validate(ctx context.Context, item domain.Item) (domain.Funnel, error) {
	verr := domain.NewValidationError()
	var funnel domain.Funnel
	if item.FunnelID <= 0 {
		verr.Add("funnel", "must exist")
	} else {
		f, err := s.dir.Funnel(ctx, item.AccountID, item.FunnelID)
		switch {
		case err == nil:
			funnel = f
		case errors.Is(err, domain.ErrNotFound):
			verr.Add("funnel", "must exist")
		default:
			return domain.Funnel{}, fmt.Errorf("load funnel %d: %w", item.FunnelID, err)
		}
	}
	if strings.TrimSpace(item.FunnelStage) == "" {
		verr.Add("funnel_stage", "can't be blank")
	}
	if item.Position < 0 {
		verr.Add("position", "must be greater than or equal to 0")
	}
	if item.TimerDuration != nil && *item.TimerDuration < 0 {
		verr.Add("timer_duration", "must be greater than or equal to 0")
	}
	return funnel, verr.OrNil()
}

func validatePositions(positions []domain.PositionUpdate) error {
	verr := domain.NewValidationError()
	if len(positions) > MaxReorderBatch {
		verr.Add("positions", fmt.Sprintf("is too long (maximum is %d entries)", MaxReorderBatch))
		return verr
	}
	seen := make(map[int64]struct{}, len(positions))
	for i, pos := range positions {
		field := "positions[" + strconv.Itoa(i) + "]"
		if _, dup := seen[pos.ID]; dup {
			verr.Add(field+".id", "is duplicated")
		}
		seen[pos.ID] = struct{}{}
		if pos.Position < 0 {
			verr.Add(field+".position", "must be greater than or equal to 0")
		}
		if strings.TrimSpace(pos.FunnelStage) == "" {
			verr.Add(field+".funnel_stage", "can't be blank")
		}
	}
	return verr.OrNil()
}

func (s *Service) publish(ctx context.Context, eventType string, item domain.Item) {
	s.notifier.Publish(ctx, domain.ItemEvent{
		Type:        eventType,
		AccountID:   item.AccountID,
		ItemIDs:     []int64{item.ID},
		FunnelID:    item.FunnelID,
		FunnelStage: item.FunnelStage,
		OccurredAt:  item.UpdatedAt,
	})
}

type uncached struct{}

func (uncached) Fetch(_ context.Context, _ string, _ time.Duration, compute func() ([]byte, error)) ([]byte, bool, error) {
	data, err := compute()
	return data, false, err
}

type discard struct{}

func (discard) Publish(context.Context, domain.ItemEvent) {}
