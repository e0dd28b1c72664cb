package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"kanban-api/domain"
)

var errMalformedBody = errors.New("malformed request body")

type errorsResponse struct {
	Errors map[string][]string `json:"errors"`
}

// statusFor maps a service error onto its HTTP status and error stage.
func statusFor(err error) (int, string) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "auth"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "authorization"
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "validation"
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, "decode_body"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "service"
	}
}

// writeError renders err and records it on the request metrics.
func writeError(c echo.Context, m *requestMetrics, err error) error {
	status, stage := statusFor(err)
	m.SetErrorStage(stage)
	m.SetError(err)
	switch status {
	case http.StatusUnprocessableEntity:
		var verr *domain.ValidationError
		errors.As(err, &verr)
		return c.JSON(status, errorsResponse{Errors: verr.Fields})
	case http.StatusBadRequest:
		return c.JSON(status, map[string]string{"error": err.Error()})
	case http.StatusInternalServerError:
		return c.JSON(status, map[string]string{"error": http.StatusText(status)})
	default:
		return c.NoContent(status)
	}
}
