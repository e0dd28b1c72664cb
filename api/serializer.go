package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"kanban-api/domain"
)

// sonicSerializer is the echo JSON serializer backed by the shared sonic
// configuration used for item payloads.
type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := domain.JSON.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i any) error {
	if err := domain.JSON.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errMalformedBody.Error()).SetInternal(err)
	}
	return nil
}
