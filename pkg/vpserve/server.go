// Package vpserve is the optional HTTP wrapper around pkg/labeler: a thin
// synchronous request/response surface analogous to the original system's
// JNI shim, but shaped as an ordinary Gin server. pkg/labeler has no
// dependency on this package and is fully usable as a library without it.
package vpserve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vplabeler/core/internal/config"
	"github.com/vplabeler/core/internal/logging"
	"github.com/vplabeler/core/pkg/labeler"
	"github.com/vplabeler/core/pkg/modelcache"
	"github.com/vplabeler/core/pkg/vpio"
	"github.com/vplabeler/core/pkg/vpmodel"
)

// Server wraps one compiled-model labeler in an HTTP API.
type Server struct {
	config     *config.Config
	logger     *logging.Logger
	router     *gin.Engine
	httpServer *http.Server

	cache *modelcache.Cache

	// now returns the UTC calendar day key used to address the model
	// cache; overridable in tests.
	now func() string
}

// New creates a server from cfg, wiring routes and the model cache.
func New(cfg *config.Config, log *logging.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("vpserve: nil config")
	}
	if log == nil {
		log = logging.Default()
	}

	s := &Server{
		config: cfg,
		logger: log,
		cache:  modelcache.New(cfg.Model.CacheSize),
		now:    todayUTC,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

func todayUTC() string {
	return time.Now().UTC().Format("2006-01-02")
}

// Router returns the Gin router for adding custom endpoints.
func (s *Server) Router() *gin.Engine { return s.router }

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("vpserve starting", "host", s.config.Server.Host, "port", s.config.Server.Port)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("vpserve: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("vpserve shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("graceful shutdown failed", "error", err)
		return s.httpServer.Close()
	}
	return nil
}

// currentModel resolves today's cached labeler, loading it from disk and
// populating the cache on a miss. Returns an error if no model path is
// configured or the file cannot be parsed.
func (s *Server) currentModel() (*labeler.Labeler, error) {
	day := s.now()

	if m, ok := s.cache.Get(day); ok {
		return m, nil
	}

	m, err := s.loadModelFromDisk()
	if err != nil {
		return nil, err
	}
	s.cache.Put(day, m)
	return m, nil
}

func (s *Server) loadModelFromDisk() (*labeler.Labeler, error) {
	if s.config.Model.Path == "" {
		return nil, fmt.Errorf("vpserve: no model path configured (VPLABEL_MODEL_PATH)")
	}

	f, err := os.Open(s.config.Model.Path)
	if err != nil {
		return nil, fmt.Errorf("vpserve: open model file: %w", err)
	}
	defer f.Close()

	if s.config.Model.ListFormat {
		entries, err := vpio.ReadNodeListStream(f, decodeCompiledNode)
		if err != nil {
			return nil, fmt.Errorf("vpserve: read node-list model: %w", err)
		}
		nodes := make([]vpmodel.CompiledNode, len(entries))
		for i, e := range entries {
			nodes[i] = e.(vpmodel.CompiledNode)
		}
		return labeler.BuildFromList(nodes)
	}

	var root vpmodel.CompiledNode
	if err := vpio.ReadTextproto(f, &root); err != nil {
		return nil, fmt.Errorf("vpserve: read single-root model: %w", err)
	}
	return labeler.Build(root)
}

func decodeCompiledNode(payload []byte) (any, error) {
	var n vpmodel.CompiledNode
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, err
	}
	return n, nil
}
