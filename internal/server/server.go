// Package server is the thin HTTP layer over the tiered read path and
// the refresh trigger. It holds no catalog logic: every response body is
// an already-materialized artifact (or a mechanical projection of one).
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/everstacklabs/modelfeed/internal/read"
	"github.com/everstacklabs/modelfeed/internal/refresh"
)

// servedFromHeader reports which tier answered a read.
const servedFromHeader = "X-Served-From"

// Server wires the HTTP routes to the reader and refresher.
type Server struct {
	reader     *read.Tiered
	refresher  *refresh.Refresher
	adminToken string
}

// New creates a Server. An empty adminToken disables the manual refresh
// endpoint entirely.
func New(reader *read.Tiered, refresher *refresh.Refresher, adminToken string) *Server {
	return &Server{
		reader:     reader,
		refresher:  refresher,
		adminToken: adminToken,
	}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/healthz", s.handleHealth)

	v1 := r.Group("/v1")
	{
		v1.GET("/models", s.handleModels)
		v1.GET("/models/:id", s.handleModel)
		v1.GET("/providers", s.handleProviders)
		v1.GET("/metadata", s.handleMetadata)
	}

	admin := r.Group("/admin")
	admin.Use(s.adminAuth())
	{
		admin.POST("/refresh", s.handleRefresh)
	}

	return r
}

// Run starts the HTTP server on addr.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// corsMiddleware allows browser consumers of the read-only API.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// adminAuth guards the manual trigger: the request is rejected before
// any refresh work begins.
func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.adminToken == "" {
			respondError(c, http.StatusForbidden, "admin endpoints disabled")
			c.Abort()
			return
		}
		authz := c.GetHeader("Authorization")
		if authz != "Bearer "+s.adminToken {
			respondError(c, http.StatusUnauthorized, "invalid admin token")
			c.Abort()
			return
		}
		c.Next()
	}
}
