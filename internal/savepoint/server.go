package savepoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server serves the save endpoint on a local address.
type Server struct {
	addr       string
	router     *gin.Engine
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer creates a server listening on addr once started.
func NewServer(addr string, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		addr:   addr,
		router: gin.New(),
		logger: logger,
	}
	s.router.Use(gin.Recovery(), s.loggingMiddleware())

	s.router.GET("/health", s.health)
	api := s.router.Group("/api")
	{
		api.POST("/save-file", s.saveFile)
		api.POST("/select-folder", s.selectFolder)
	}
	return s
}

// Handler returns the HTTP handler (for tests).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting save endpoint", zap.String("address", s.addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.stop()
	case err := <-errCh:
		return fmt.Errorf("serving %s: %w", s.addr, err)
	}
}

func (s *Server) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	s.logger.Info("Save endpoint stopped")
	return nil
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) saveFile(c *gin.Context) {
	var req SaveFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request: " + err.Error()})
		return
	}

	want, ok := mimeTypes[req.Type]
	if !ok {
		c.JSON(http.StatusBadRequest, Response{Error: fmt.Sprintf("unsupported type %q", req.Type)})
		return
	}
	content, err := decodeDataURI(req.ContentBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}
	if got := mimetype.Detect(content); !got.Is(want) {
		c.JSON(http.StatusBadRequest, Response{Error: fmt.Sprintf("content is %s, not %s", got, req.Type)})
		return
	}

	path, err := filepath.Abs(req.FilePath)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid file path: " + err.Error()})
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.logger.Error("Failed to create directory", zap.String("path", path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Error: err.Error()})
		return
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		s.logger.Error("Failed to write file", zap.String("path", path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Error: err.Error()})
		return
	}

	s.logger.Info("File saved", zap.String("path", path), zap.Int("bytes", len(content)))
	c.JSON(http.StatusOK, Response{Success: true, Path: path})
}

func (s *Server) selectFolder(c *gin.Context) {
	var req SelectFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request: " + err.Error()})
		return
	}
	if req.Path == "" {
		c.JSON(http.StatusOK, Response{Error: Cancelled})
		return
	}

	path, err := filepath.Abs(req.Path)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid path: " + err.Error()})
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		c.JSON(http.StatusOK, Response{Error: err.Error()})
		return
	}
	if !info.IsDir() {
		c.JSON(http.StatusOK, Response{Error: path + " is not a directory"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Path: path})
}
