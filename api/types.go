package api

import (
	"context"

	"kanban-api/domain"
	"kanban-api/kanban"
)

// Items is the kanban item service as seen by the handlers.
type Items interface {
	Index(ctx context.Context, rc kanban.RequestContext, funnelID int64) ([][]byte, error)
	Show(ctx context.Context, rc kanban.RequestContext, id int64) ([]byte, error)
	Create(ctx context.Context, rc kanban.RequestContext, p domain.ItemParams) (domain.Item, error)
	Update(ctx context.Context, rc kanban.RequestContext, id int64, p domain.ItemParams) (domain.Item, error)
	MoveToStage(ctx context.Context, rc kanban.RequestContext, id int64, stage string) error
	Reorder(ctx context.Context, rc kanban.RequestContext, positions []domain.PositionUpdate) error
	Destroy(ctx context.Context, rc kanban.RequestContext, id int64) error
	Debug(ctx context.Context, rc kanban.RequestContext, funnelID int64) (kanban.DebugSnapshot, error)
}

// Authenticator is implemented by types able to resolve the actor from an
// Authorization header.
type Authenticator interface {
	ActorFromAuthHeader(string) (kanban.Actor, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Options tunes the routes registered by Register.
type Options struct {
	// DebugEndpoint exposes GET .../kanban_items/debug.
	DebugEndpoint bool
	// Environment is reported by the debug endpoint.
	Environment string
	Checks      map[string]HealthCheck
}
