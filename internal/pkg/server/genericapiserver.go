package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"github.com/kiosk404/warden/pkg/logger"
)

// GenericAPIServer contains state for a warden api server.
type GenericAPIServer struct {
	*gin.Engine

	address         string
	healthz         bool
	enableProfiling bool
	shutdownTimeout time.Duration
	middlewares     []gin.HandlerFunc

	httpServer *http.Server
}

func initGenericAPIServer(s *GenericAPIServer) {
	s.Setup()
	s.InstallMiddlewares()
	s.InstallAPIs()
}

// Setup logs every registered route in debug mode.
func (s *GenericAPIServer) Setup() {
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {
		logger.Debug("%-6s %-s --> %s (%d handlers)", httpMethod, absolutePath, handlerName, nuHandlers)
	}
}

// InstallMiddlewares installs the generic middlewares followed by the configured ones.
func (s *GenericAPIServer) InstallMiddlewares() {
	s.Use(gin.Recovery())
	s.Use(requestLogger())
	for _, m := range s.middlewares {
		s.Use(m)
	}
}

// InstallAPIs installs the generic apis.
func (s *GenericAPIServer) InstallAPIs() {
	if s.healthz {
		s.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
	if s.enableProfiling {
		pprof.Register(s.Engine)
	}
}

// Run spawns the http server. It only returns when the server fails to
// start or is closed.
func (s *GenericAPIServer) Run() error {
	s.httpServer = &http.Server{
		Addr:    s.address,
		Handler: s,
	}

	logger.Info("[Server] start to listening the incoming requests on http address: %s", s.address)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("[Server] server on %s stopped", s.address)
	return nil
}

// Close graceful shutdown the api server.
func (s *GenericAPIServer) Close() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Warn("[Server] shutdown http server failed: %v", err)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("[Server] %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
