package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
	"kanban-api/kanban"
)

const (
	itemsRoute         = "/api/v1/accounts/:account_id/kanban_items"
	healthCheckTimeout = 2 * time.Second
)

type handlers struct {
	items Items
	auth  Authenticator
	log   *log.Logger
	opts  Options
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, items Items, auth Authenticator, logger *log.Logger, opts Options) {
	if logger == nil {
		panic("Logger is not initialized")
	}
	h := &handlers{items: items, auth: auth, log: logger, opts: opts}
	e.JSONSerializer = sonicSerializer{}

	g := e.Group(itemsRoute, GzipRequestMiddleware())
	g.GET("", h.scoped(itemsRoute, "index", h.index))
	if opts.DebugEndpoint {
		g.GET("/debug", h.scoped(itemsRoute+"/debug", "debug", h.debug))
	}
	g.GET("/:id", h.scoped(itemsRoute+"/:id", "show", h.show))
	g.POST("", h.scoped(itemsRoute, "create", h.create))
	g.PATCH("/:id", h.scoped(itemsRoute+"/:id", "update", h.update))
	g.PUT("/:id", h.scoped(itemsRoute+"/:id", "update", h.update))
	g.DELETE("/:id", h.scoped(itemsRoute+"/:id", "destroy", h.destroy))
	g.POST("/:id/move_to_stage", h.scoped(itemsRoute+"/:id/move_to_stage", "move_to_stage", h.moveToStage))
	g.POST("/reorder", h.scoped(itemsRoute+"/reorder", "reorder", h.reorder))

	e.GET("/healthz", healthz(opts.Checks, logger))
}

func (h *handlers) index(c echo.Context, rc kanban.RequestContext, m *requestMetrics) error {
	// A missing or malformed funnel_id matches no funnel.
	funnelID, _ := strconv.ParseInt(strings.TrimSpace(c.QueryParam("funnel_id")), 10, 64)

	start := time.Now()
	payloads, err := h.items.Index(c.Request().Context(), rc, funnelID)
	m.ObserveService(time.Since(start))
	if err != nil {
		return writeError(c, m, err)
	}
	m.SetItemsReturned(len(payloads))
	return c.JSONBlob(http.StatusOK, joinArray(payloads))
}

func (h *handlers) show(c echo.Context, rc kanban.RequestContext, m *requestMetrics) error {
	id, err := itemID(c)
	if err != nil {
		return writeError(c, m, err)
	}
	start := time.Now()
	payload, err := h.items.Show(c.Request().Context(), rc, id)
	m.ObserveService(time.Since(start))
	if err != nil {
		return writeError(c, m, err)
	}
	m.SetItemsReturned(1)
	return c.JSONBlob(http.StatusOK, payload)
}

func (h *handlers) create(c echo.Context, rc kanban.RequestContext, m *requestMetrics) error {
	p, err := h.bindItemParams(c)
	if err != nil {
		return writeError(c, m, err)
	}
	start := time.Now()
	item, err := h.items.Create(c.Request().Context(), rc, p)
	m.ObserveService(time.Since(start))
	if err != nil {
		return writeError(c, m, err)
	}
	return h.writeItem(c, m, item)
}

func (h *handlers) update(c echo.Context, rc kanban.RequestContext, m *requestMetrics) error {
	id, err := itemID(c)
	if err != nil {
		return writeError(c, m, err)
	}
	p, err := h.bindItemParams(c)
	if err != nil {
		return writeError(c, m, err)
	}
	start := time.Now()
	item, err := h.items.Update(c.Request().Context(), rc, id, p)
	m.ObserveService(time.Since(start))
	if err != nil {
		return writeError(c, m, err)
	}
	return h.writeItem(c, m, item)
}

func (h *handlers) destroy(c echo.Context, rc kanban.RequestContext, m *requestMetrics) error {
	id, err := itemID(c)
	if err != nil {
		return writeError(c, m, err)
	}
	start := time.Now()
	err = h.items.Destroy(c.Request().Context(), rc, id)
	m.ObserveService(time.Since(start))
	if err != nil {
		return writeError(c, m, err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *handlers) moveToStage(c echo.Context, rc kanban.RequestContext, m *requestMetrics) error {
	id, err := itemID(c)
	if err != nil {
		return writeError(c, m, err)
	}
	obj, err := readObject(c.Request().Body)
	if err != nil {
		return writeError(c, m, err)
	}
	stage, found := stageParam(obj)
	if !found {
		stage = c.QueryParam("funnel_stage")
	}
	start := time.Now()
	err = h.items.MoveToStage(c.Request().Context(), rc, id, stage)
	m.ObserveService(time.Since(start))
	if err != nil {
		return writeError(c, m, err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *handlers) reorder(c echo.Context, rc kanban.RequestContext, m *requestMetrics) error {
	obj, err := readObject(c.Request().Body)
	if err != nil {
		return writeError(c, m, err)
	}
	positions, err := parsePositions(obj)
	if err != nil {
		return writeError(c, m, err)
	}
	start := time.Now()
	err = h.items.Reorder(c.Request().Context(), rc, positions)
	m.ObserveService(time.Since(start))
	if err != nil {
		return writeError(c, m, err)
	}
	return c.NoContent(http.StatusOK)
}

type debugResponse struct {
	Environment         string                 `json:"environment"`
	GoVersion           string                 `json:"go_version"`
	EchoVersion         string                 `json:"echo_version"`
	ItemsCount          int                    `json:"kanban_items_count"`
	FirstItemSample     sonic.NoCopyRawMessage `json:"first_item_sample"`
	HasConversationData bool                   `json:"has_conversation_data"`
}

func (h *handlers) debug(c echo.Context, rc kanban.RequestContext, m *requestMetrics) error {
	funnelID, _ := strconv.ParseInt(strings.TrimSpace(c.QueryParam("funnel_id")), 10, 64)
	start := time.Now()
	snap, err := h.items.Debug(c.Request().Context(), rc, funnelID)
	m.ObserveService(time.Since(start))
	if err != nil {
		return writeError(c, m, err)
	}
	sample := sonic.NoCopyRawMessage(snap.FirstItemSample)
	if len(sample) == 0 {
		sample = sonic.NoCopyRawMessage("null")
	}
	m.SetItemsReturned(snap.ItemsCount)
	return c.JSON(http.StatusOK, debugResponse{
		Environment:         h.opts.Environment,
		GoVersion:           runtime.Version(),
		EchoVersion:         echo.Version,
		ItemsCount:          snap.ItemsCount,
		FirstItemSample:     sample,
		HasConversationData: snap.HasConversationData,
	})
}

func (h *handlers) bindItemParams(c echo.Context) (domain.ItemParams, error) {
	obj, err := readObject(c.Request().Body)
	if err != nil {
		return domain.ItemParams{}, err
	}
	return parseItemParams(obj)
}

func (h *handlers) writeItem(c echo.Context, m *requestMetrics, item domain.Item) error {
	payload, err := item.Serialize()
	if err != nil {
		return writeError(c, m, fmt.Errorf("serialize item %d: %w", item.ID, err))
	}
	m.SetItemsReturned(1)
	return c.JSONBlob(http.StatusOK, payload)
}

func itemID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("item %q: %w", c.Param("id"), domain.ErrNotFound)
	}
	return id, nil
}

func joinArray(payloads [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, p := range payloads {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(p)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

type healthResponse struct {
	Status string            `json:"status"`
	Failed map[string]string `json:"failed,omitempty"`
}

func healthz(checks map[string]HealthCheck, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
		defer cancel()

		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warnf("health check failed, check: %s, err: %v", name, err)
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Failed: failed})
		}
		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	}
}
