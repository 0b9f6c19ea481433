package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/logger"
)

// ErrorBody is the body of a failed call
type ErrorBody struct {
	Error ErrorMessage `json:"error"`
}

// ErrorMessage describes a failure. Kind is one of the error types, or
// "request" when the HTTP request itself could not be read or routed.
type ErrorMessage struct {
	Kind    string                 `json:"kind"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

const kindRequest = "request"

// StatusFor maps an error type to its HTTP status
func StatusFor(t nebulaerrors.ErrorType) int {
	switch t {
	case nebulaerrors.ErrorTypeSchema, nebulaerrors.ErrorTypeParse, nebulaerrors.ErrorTypeConfig:
		return http.StatusBadRequest
	case nebulaerrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case nebulaerrors.ErrorTypeState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		status int
		body   ErrorBody
	)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		body.Error = ErrorMessage{Kind: kindRequest, Message: fmt.Sprint(he.Message)}
	} else {
		kind := nebulaerrors.TypeOf(err)
		status = StatusFor(kind)
		body.Error = ErrorMessage{Kind: string(kind), Message: err.Error()}
		var ne *nebulaerrors.Error
		if errors.As(err, &ne) {
			body.Error.Details = ne.Details
		}
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request().Context(), s.logger).Error("request failed", zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.logger.Warn("cannot write error response", zap.Error(err))
	}
}
