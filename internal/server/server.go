package server

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jeefy/recordchat/internal/models"
	"github.com/jeefy/recordchat/internal/nlp"
	"github.com/jeefy/recordchat/internal/store"
)

const (
	searchLimit    = 50
	maxQueryLength = 256
	maxBodyBytes   = 1 << 20 // 1MB
)

// Assistant answers chat messages the intent processor leaves without payload.
type Assistant interface {
	Respond(ctx context.Context, msg string) models.ChatResponse
}

// Options carries the optional parts of a Server.
type Options struct {
	// Development exposes error details in 500 responses.
	Development bool
	// Backend is reported by /health.
	Backend string
	Logger  *zap.Logger
	// Static holds index.html, app.js and style.css. Nil disables the UI.
	Static fs.FS
}

type Server struct {
	store     store.Store
	nlp       *nlp.Processor
	assistant Assistant
	router    *gin.Engine

	log     *zap.Logger
	dev     bool
	backend string
	now     func() time.Time
}

func New(st store.Store, proc *nlp.Processor, asst Assistant, opts Options) (*Server, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		store:     st,
		nlp:       proc,
		assistant: asst,
		router:    gin.New(),
		log:       log,
		dev:       opts.Development,
		backend:   opts.Backend,
		now:       time.Now,
	}
	s.router.Use(
		requestID(),
		accessLog(log),
		gin.CustomRecovery(s.recoverPanic),
		cors.Default(),
		limitBody(maxBodyBytes),
	)
	s.routes()
	if opts.Static != nil {
		if err := s.staticRoutes(opts.Static); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) routes() {
	s.router.GET("/search", s.handleSearch)
	s.router.GET("/records", s.handleRecords)
	s.router.POST("/update", s.handleUpdate)
	s.router.POST("/chat", s.handleChat)
	s.router.GET("/health", s.handleHealth)
}

func (s *Server) staticRoutes(static fs.FS) error {
	index, err := fs.ReadFile(static, "index.html")
	if err != nil {
		return fmt.Errorf("static index: %w", err)
	}
	// http.FileServer redirects /index.html to ./, so the page is served
	// from memory instead.
	s.router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	})
	hfs := http.FS(static)
	s.router.StaticFileFS("/app.js", "app.js", hfs)
	s.router.StaticFileFS("/style.css", "style.css", hfs)
	return nil
}

func (s *Server) recoverPanic(c *gin.Context, recovered interface{}) {
	s.internalError(c, "An internal server error occurred", fmt.Errorf("panic: %v", recovered))
}

// internalError logs err and writes a generic 500. The detail is only
// included in development mode.
func (s *Server) internalError(c *gin.Context, msg string, err error) {
	s.log.Error(msg,
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	body := gin.H{"success": false, "message": msg}
	if s.dev && err != nil {
		body["error"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}
