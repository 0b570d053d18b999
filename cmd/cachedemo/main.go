package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cachecore/internal/cache"
)

// main wires one MemoryCache instance into a tiny Gin server: the cache
// itself has no wire protocol, no CLI, and no file format of its own, so
// a caller decides how to expose it.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer logger.Sync()

	store := cache.New[string, string](cache.Config[string]{
		Comparer:             cache.CaseInsensitiveComparer{},
		Capacity:             256,
		ExpirationWindow:     5 * time.Minute,
		UseSlidingExpiration: true,
		PollingInterval:      30 * time.Second,
		Logger:               logger,
	})

	ginRouter := setupRoutes(store)

	port := ":8080" // customizable based on the environment
	log.Printf("cachedemo starting on port %s", port)
	log.Println("API endpoints:")
	log.Println("  GET    /health")
	log.Println("  GET    /stats")
	log.Println("  GET    /keys")
	log.Println("  GET    /entries/:key")
	log.Println("  POST   /entries/:key")
	log.Println("  DELETE /entries/:key")

	if err := ginRouter.Run(port); err != nil {
		log.Fatal("failed to start server: ", err)
	}
}

func setupRoutes(store *cache.MemoryCache[string, string]) *gin.Engine {
	ginRouter := gin.Default()

	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := ginRouter.Group("/")
	{
		api.GET("/stats", func(c *gin.Context) {
			count, err := store.Count()
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			polling, err := store.IsPolling()
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"cache_id": store.ID().String(),
				"count":    count,
				"polling":  polling,
			})
		})

		api.GET("/keys", func(c *gin.Context) {
			keys, err := store.Keys()
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"keys": keys})
		})

		api.GET("/entries/:key", func(c *gin.Context) {
			value, err := store.Get(c.Param("key"))
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"key": c.Param("key"), "value": value})
		})

		api.POST("/entries/:key", func(c *gin.Context) {
			var body struct {
				Value string `json:"value" binding:"required"`
			}
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := store.Put(c.Param("key"), body.Value); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"key": c.Param("key"), "value": body.Value})
		})

		api.DELETE("/entries/:key", func(c *gin.Context) {
			removed, err := store.Remove(c.Param("key"))
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"removed": removed})
		})
	}

	return ginRouter
}
