package vpserve

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	loggingMW := newLoggingMiddleware(s.logger)
	recoveryMW := newRecoveryMiddleware(s.logger)

	s.router.Use(recoveryMW.Recovery())
	s.router.Use(loggingMW.RequestLogger())

	v1 := s.router.Group("/v1")
	{
		v1.POST("/label", s.handleLabel)
		v1.POST("/label:batch", s.handleLabelBatch)
	}

	s.router.GET("/healthz", s.handleHealth)
}
