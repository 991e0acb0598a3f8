package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leafread/leafread/internal/pagecache"
)

type CacheController struct {
	cache *pagecache.Cache
}

func NewCacheController(cache *pagecache.Cache) *CacheController {
	return &CacheController{cache: cache}
}

func (controller *CacheController) Stats(c *gin.Context) {
	if controller.cache == nil {
		c.IndentedJSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	stats, err := controller.cache.Stats()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"enabled": true, "stats": stats})
}

func (controller *CacheController) Clear(c *gin.Context) {
	if controller.cache == nil {
		c.IndentedJSON(http.StatusOK, gin.H{"enabled": false, "removed": 0})
		return
	}
	removed, err := controller.cache.Clear()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"enabled": true, "removed": removed})
}
