package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/library"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIPrefix groups every library route.
const APIPrefix = "/api/booklibrary"

var errMissingLibraryService = errors.New("library service dependency required")

type Dependencies struct {
	LibraryService *library.Service
	Logger         *zap.Logger
	// AllowedOrigins defaults to any origin when empty.
	AllowedOrigins []string
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.LibraryService == nil {
		return nil, errMissingLibraryService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(accessLogMiddleware(logger))
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		library: deps.LibraryService,
		logger:  logger,
	}

	router.GET("/healthz", handler.handleHealth)

	api := router.Group(APIPrefix)
	api.GET("/pre-defined-books", handler.handleListCatalog)
	api.GET("/books-by-category/:category", handler.handleListCatalogByCategory)
	api.GET("/search", handler.handleSearchCatalog)
	api.GET("/user-library", handler.handleListBooks)
	api.GET("/get-single-book/:id", handler.handleGetBook)
	api.POST("/user-create-book", handler.handleCreateBook)
	api.PUT("/user-update-book/:id", handler.handleUpdateBook)
	api.DELETE("/user-delete-book/:id", handler.handleDeleteBook)
	api.GET("/stats/overview", handler.handleStats)

	return router, nil
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || containsWildcard(allowedOrigins) {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func accessLogMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

type httpHandler struct {
	library *library.Service
	logger  *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
