package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	nebulajson "github.com/ajitpratap0/nebula-ml/pkg/json"
)

// serializer encodes request and response bodies with the pooled JSON
// codec
type serializer struct{}

func (serializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := nebulajson.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (serializer) Deserialize(c echo.Context, i interface{}) error {
	if err := nebulajson.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body: "+err.Error()).SetInternal(err)
	}
	return nil
}
