package control

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"VaultSentinel/internal/model"
	"VaultSentinel/internal/recorder"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Server is the local HTTP control API.
type Server struct {
	addr string
	op   Operator
	rec  recorder.Recorder
	log  *zap.Logger
}

// NewServer builds the API on addr. rec may be nil.
func NewServer(addr string, op Operator, rec recorder.Recorder, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Server{addr: addr, op: op, rec: rec, log: log}
}

// Router returns the gin engine with every route mounted.
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	api.GET("/status", s.handleStatus)
	api.POST("/start", s.handleStart)
	api.POST("/stop", s.handleStop)
	api.GET("/params", s.handleParams)
	api.PATCH("/params", s.handleSetParams)
	api.GET("/skims", s.handleSkims)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("control api listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("control api shutdown", zap.Error(err))
	}
	return ctx.Err()
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.op.Status())
}

func (s *Server) handleStart(c *gin.Context) {
	if err := s.op.Start(); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, s.op.Status())
}

func (s *Server) handleStop(c *gin.Context) {
	s.op.Stop()
	c.JSON(http.StatusOK, s.op.Status())
}

func (s *Server) handleParams(c *gin.Context) {
	c.JSON(http.StatusOK, s.op.Params())
}

func (s *Server) handleSetParams(c *gin.Context) {
	var u model.PolicyUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json body")
		return
	}
	if u.Empty() {
		writeError(c, http.StatusBadRequest, "no policy field given")
		return
	}
	p, err := s.op.SetParams(u)
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleSkims(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	skims, err := s.rec.RecentSkims(limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if skims == nil {
		skims = []model.SkimEvent{}
	}
	c.JSON(http.StatusOK, skims)
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
