package server

import (
	"context"
	"net/http"
	"time"

	"impostor/internal/config"
	"impostor/internal/game"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	engine  *game.Engine
	ws      *wsHub
	cfg     config.Config
	limiter *rateLimiter
	log     logrus.FieldLogger
	timeout time.Duration
}

func New(engine *game.Engine, cfg config.Config, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	registerValidators()
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Server{
		engine:  engine,
		ws:      newWSHub(),
		cfg:     cfg,
		limiter: newRateLimiter(cfg.RateLimitPerMinute),
		log:     log,
		timeout: timeout,
	}
}

// Notifier pushes fresh room state to this server's websocket subscribers.
func (s *Server) Notifier() game.Notifier {
	return game.NotifierFunc(s.pushRoomState)
}

func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests())
	router.Use(cors.New(s.corsConfig()))

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	api := router.Group("/api/rooms", s.identify)
	api.POST("", s.handleCreateRoom)
	api.GET("/:key", s.handleGetRoom)
	api.POST("/:key/join", s.handleJoinRoom)
	api.POST("/:key/start", s.handleStartGame)
	api.POST("/:key/reset", s.handleResetGame)
	api.POST("/:key/leave", s.handleLeaveRoom)

	router.GET("/ws/rooms/:key", s.identify, s.handleWebsocket)
	return router
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Authorization",
			"Accept-Language",
			userIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
		cfg.AllowCredentials = true
	}
	return cfg
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.timeout)
}
