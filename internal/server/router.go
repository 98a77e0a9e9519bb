package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/deepfakex/server/internal/analysis"
	"github.com/deepfakex/server/internal/auth"
	"github.com/deepfakex/server/internal/config"
	"github.com/deepfakex/server/internal/metrics"
	"github.com/deepfakex/server/internal/stash"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config          config.Config
	DB              *pgxpool.Pool
	Stash           stash.Stash
	AuthService     *auth.Service
	AnalysisService *analysis.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	if deps.Stash != nil {
		router.GET("/uploads/:filename", serveUpload(deps.Stash))
	}

	api := router.Group("/api")
	if deps.AuthService != nil {
		auth.RegisterRoutes(api, deps.AuthService)

		protected := api.Group("/")
		protected.Use(auth.AuthMiddleware(deps.AuthService))

		auth.RegisterProtectedRoutes(protected, deps.AuthService)
		if deps.AnalysisService != nil {
			analysis.RegisterRoutes(protected, deps.AnalysisService)
		}
	}

	return router
}

// serveUpload streams a stashed image back to the client. Backed by the
// active stash so disk and object-storage deployments share one route.
func serveUpload(fileStore stash.Stash) gin.HandlerFunc {
	return func(c *gin.Context) {
		reader, err := fileStore.Open(c.Request.Context(), c.Param("filename"))
		if err != nil {
			if errors.Is(err, stash.ErrFileNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "file not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to read file"})
			return
		}
		defer reader.Close()

		if _, err := io.Copy(c.Writer, reader); err != nil {
			c.Status(http.StatusInternalServerError)
		}
	}
}
