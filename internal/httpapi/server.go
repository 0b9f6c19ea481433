// Package httpapi exposes the operation service over HTTP.
//
// Every operation is a POST of a row table to /v1/operations/:operation.
// Responses carry the result table with its descriptor, or an error body
// naming the error kind.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ml/internal/service"
	"github.com/ajitpratap0/nebula-ml/pkg/config"
	"github.com/ajitpratap0/nebula-ml/pkg/logger"
	"github.com/ajitpratap0/nebula-ml/pkg/table"
)

// HeaderRequestID carries the caller's request ID. One is generated when
// absent.
const HeaderRequestID = "X-Request-ID"

const apiRoot = "/v1"

// OperationRequest is the body of an operation call
type OperationRequest struct {
	Rows [][]table.Cell `json:"rows"`
}

// OperationResponse is the body of a successful operation call
type OperationResponse struct {
	Table *table.Table `json:"table"`
}

// Server is the HTTP front of a service.Service
type Server struct {
	echo   *echo.Echo
	http   *http.Server
	svc    *service.Service
	health *healthProbe
	logger *zap.Logger
}

// Options tunes the server
type Options struct {
	Server        config.ServerConfig
	EnableMetrics bool
}

// New builds the server and its routes
func New(svc *service.Service, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		echo:   echo.New(),
		svc:    svc,
		health: newHealthProbe(svc.Registry()),
		logger: log.With(zap.String("component", "http")),
	}
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = serializer{}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(s.requestID)
	e.Use(s.accessLog)

	e.GET("/healthz", s.healthz)
	if opts.EnableMetrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
	e.GET(apiRoot+"/operations", s.listOperations)
	e.POST(apiRoot+"/operations/:operation", s.invoke)

	s.http = &http.Server{
		Addr:         opts.Server.Listen,
		Handler:      e,
		ReadTimeout:  opts.Server.ReadTimeout,
		WriteTimeout: opts.Server.WriteTimeout,
	}
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	s.logger.Info("listening", zap.String("addr", s.http.Addr))
	if err := s.echo.StartServer(s.http); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight calls
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		id := req.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(HeaderRequestID, id)
		ctx := logger.ContextWith(req.Context(), logger.RequestIDKey, id)
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		begin := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		req := c.Request()
		logger.FromContext(req.Context(), s.logger).Debug("request served",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", c.Response().Status),
			zap.Duration("latency", time.Since(begin)))
		return nil
	}
}

func (s *Server) invoke(c echo.Context) error {
	var body OperationRequest
	if err := c.Bind(&body); err != nil {
		return err
	}
	tbl, err := s.svc.Invoke(c.Request().Context(), c.Param("operation"), body.Rows)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, OperationResponse{Table: tbl})
}

func (s *Server) listOperations(c echo.Context) error {
	ops := table.Operations()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}
	return c.JSON(http.StatusOK, map[string][]string{"operations": names})
}
