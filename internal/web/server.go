package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/rallypoint/internal/recommend"
	"github.com/spigell/rallypoint/internal/store"
)

const (
	defaultListen            = ":8000"
	defaultShutdownTimeout   = 10 * time.Second
	defaultEnrichConcurrency = 4
)

//go:embed templates/*.html static/*
var assets embed.FS

// Storage is the persistence the handlers depend on.
type Storage interface {
	AddProject(ctx context.Context, p store.Project) (*store.Project, error)
	ListProjects(ctx context.Context) ([]store.Project, error)
	AddPosting(ctx context.Context, p store.Posting) (*store.Posting, error)
	ListPostings(ctx context.Context) ([]store.Posting, error)
	Ping(ctx context.Context) error
}

// Recommender enriches posting descriptions at read time.
type Recommender interface {
	Recommend(ctx context.Context, description string) *recommend.Recommendation
}

type Config struct {
	Listen          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// EnrichConcurrency bounds parallel recommendations per /postings request.
	EnrichConcurrency int
}

type Server struct {
	cfg         Config
	router      *gin.Engine
	storage     Storage
	recommender Recommender
	logger      *zap.Logger
}

func New(cfg Config, storage Storage, recommender Recommender, logger *zap.Logger) (*Server, error) {
	if storage == nil {
		return nil, errors.New("storage is required")
	}
	if recommender == nil {
		return nil, errors.New("recommender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = defaultListen
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.EnrichConcurrency <= 0 {
		cfg.EnrichConcurrency = defaultEnrichConcurrency
	}

	s := &Server{
		cfg:         cfg,
		storage:     storage,
		recommender: recommender,
		logger:      logger,
	}

	router, err := s.routes()
	if err != nil {
		return nil, err
	}
	s.router = router

	return s, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() (*gin.Engine, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", requestIDHeader}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(requestID(), requestLogger(s.logger), recovery(s.logger), cors.New(corsConfig), errorResponder(s.logger))

	r.GET("/", s.index)
	r.POST("/", s.submitProject)
	r.POST("/submit_request", s.submitProject)
	r.GET("/success", s.success)

	r.GET("/admin", s.admin)
	r.POST("/admin", s.createPosting)
	r.POST("/admin/post_job", s.createPosting)

	r.GET("/postings", s.postings)

	r.StaticFS("/static", http.FS(static))
	r.NoRoute(s.notFound)

	api := r.Group("/api/v1")
	{
		api.GET("/health", s.health)
		api.GET("/postings", s.apiPostings)
		api.POST("/recommend", s.apiRecommend)
	}

	return r, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("listen", s.cfg.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server", zap.Duration("timeout", s.cfg.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
	"timestamp": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04")
	},
	"rate": func(v float64) string {
		return fmt.Sprintf("$%.2f/hr", v)
	},
}
