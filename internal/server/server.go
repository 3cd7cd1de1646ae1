// Package server is the devstack's HTTP surface: the collaborator REST
// endpoints the client core consumes, plus the websocket broker upgrade.
package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hopalong/core/internal/chathub"
	"hopalong/core/internal/observability"
	"hopalong/core/internal/storage"
)

const accountIDKey = "account_id"

// Server wires the devstack handlers together.
type Server struct {
	engine      *gin.Engine
	store       storage.Storage
	hub         *chathub.Hub
	tokens      *TokenService
	log         *slog.Logger
	matchWindow time.Duration
}

func New(store storage.Storage, hub *chathub.Hub, tokens *TokenService, logger *slog.Logger, matchWindow time.Duration) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:       store,
		hub:         hub,
		tokens:      tokens,
		log:         logger,
		matchWindow: matchWindow,
	}
	s.engine = s.buildEngine()
	return s
}

// Handler exposes the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) buildEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe)

	r.POST("/api/auth/login", s.handleLogin)
	r.POST("/api/autocomplete", s.handleAutocomplete)

	authed := r.Group("/", s.requireSession)
	authed.POST("/api/route/findMatch", s.handleFindMatch)
	authed.POST("/api/route/create", s.handleCreateRide)
	authed.POST("/api/route/merge", s.handleMergeRide)
	authed.GET("/api/rides/previous", s.handlePreviousRides)
	authed.GET("/api/rides/:id", s.handleRideByID)
	authed.POST("/chat/subscribe", s.handleChatSubscribe)
	authed.POST("/chat/previous", s.handleChatPrevious)
	authed.POST("/chat/send", s.handleChatSend)

	r.GET("/connection/websocket", s.handleWebSocket)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()

	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	status := strconv.Itoa(c.Writer.Status())
	observability.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	s.log.Info("http_request",
		"method", c.Request.Method,
		"path", path,
		"status", c.Writer.Status(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// requireSession resolves the bearer token into an account id.
func (s *Server) requireSession(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if len(header) < 8 || header[:7] != "Bearer " {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authorization token missing"})
		return
	}
	accountID, err := s.tokens.VerifySession(header[7:])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
		return
	}
	c.Set(accountIDKey, accountID)
	c.Next()
}

func (s *Server) accountID(c *gin.Context) string {
	return c.GetString(accountIDKey)
}
