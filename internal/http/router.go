package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leafread/leafread/internal/database"
	"github.com/leafread/leafread/internal/navigator"
	"github.com/leafread/leafread/internal/pagecache"
	"github.com/leafread/leafread/internal/pagination"
)

// RouterConfig carries every dependency the router needs, improving
// testability and keeping the constructor signature flat.
type RouterConfig struct {
	Database          *database.Database
	PaginationService *pagination.Service
	PaginationOptions pagination.Options
	Cache             *pagecache.Cache // nil when caching is disabled
	SessionManager    *SessionManager  // nil disables session restore
	Navigator         *navigator.Navigator
	TaskClient        TaskEnqueuer // nil when the task queue is disabled
	Version           string
	Logger            *zap.Logger
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	books := NewBooksController(cfg.Database, cfg.TaskClient)
	paginate := NewPaginationController(cfg.Database, cfg.PaginationService, cfg.PaginationOptions)
	reader := NewReaderController(cfg.Database, cfg.PaginationService, cfg.PaginationOptions, cfg.SessionManager, cfg.Navigator, cfg.Logger)
	cache := NewCacheController(cfg.Cache)

	router.GET("/health", health.Status)

	router.GET("/read", reader.Read)

	api := router.Group("/api")
	{
		api.POST("/books", books.CreateBook)
		api.GET("/books", books.GetAllBooks)
		api.GET("/books/:bookId", books.GetBook)
		api.GET("/books/:bookId/pages", paginate.GetBookPages)

		api.POST("/paginate", paginate.Paginate)
		api.POST("/position", reader.UpdatePosition)

		api.GET("/cache/stats", cache.Stats)
		api.DELETE("/cache", cache.Clear)
	}

	return router
}

// NewPositionHistory builds the navigator's history over the durable
// position store. Exposed for the entrypoint wiring.
func NewPositionHistory(store PositionStore) navigator.History {
	return newPositionHistory(store)
}
