package api

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"kanban-api/domain"
	"kanban-api/kanban"
)

// itemHandler serves one request once the account and actor are known.
type itemHandler func(c echo.Context, rc kanban.RequestContext, m *requestMetrics) error

// scoped resolves the request context before calling fn and emits the
// request's observability event afterwards.
func (h *handlers) scoped(route, action string, fn itemHandler) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), h.log, route, action)
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			m.Log(c.Response().Status, err)
		}()

		rc, rcErr := h.requestContext(c, m)
		if rcErr != nil {
			return writeError(c, m, rcErr)
		}
		return fn(c, rc, m)
	}
}

func (h *handlers) requestContext(c echo.Context, m *requestMetrics) (kanban.RequestContext, error) {
	accountID, err := strconv.ParseInt(c.Param("account_id"), 10, 64)
	if err != nil || accountID <= 0 {
		return kanban.RequestContext{}, fmt.Errorf("account %q: %w", c.Param("account_id"), domain.ErrNotFound)
	}
	m.SetAccount(accountID)

	authStart := time.Now()
	actor, err := h.auth.ActorFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	m.ObserveAuth(time.Since(authStart))
	if err != nil {
		return kanban.RequestContext{}, err
	}
	if !actor.MemberOf(accountID) {
		return kanban.RequestContext{}, fmt.Errorf("user %s is not a member of account %d: %w", actor.UserID, accountID, domain.ErrForbidden)
	}
	return kanban.RequestContext{AccountID: accountID, Actor: actor}, nil
}

// GzipRequestMiddleware decompresses gzip-encoded request bodies so handlers can
// work with plain JSON payloads. Requests with invalid gzip payloads are
// rejected with a 400 response.
func GzipRequestMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !hasGzipEncoding(req.Header.Get(echo.HeaderContentEncoding)) {
				return next(c)
			}

			body := req.Body
			gr, err := gzip.NewReader(body)
			if err != nil {
				_ = body.Close()
				return echo.NewHTTPError(http.StatusBadRequest, "invalid gzip body")
			}

			req.Body = &gzipReadCloser{Reader: gr, body: body}
			req.ContentLength = -1
			req.Header.Del(echo.HeaderContentEncoding)
			req.Header.Del(echo.HeaderContentLength)

			return next(c)
		}
	}
}

func hasGzipEncoding(header string) bool {
	for _, enc := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(enc), "gzip") {
			return true
		}
	}
	return false
}

type gzipReadCloser struct {
	*gzip.Reader
	body io.Closer
}

func (g *gzipReadCloser) Close() error {
	err := g.Reader.Close()
	if cerr := g.body.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
