package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports 503 when the database (or Redis, if configured) does not
// answer within two seconds.
func Health(db pinger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		checkCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{"database": "ok"}
		healthy := true
		if err := db.Ping(checkCtx); err != nil {
			log.Println("[HEALTH] [ERROR] database ping failed:", err)
			checks["database"] = "unavailable"
			healthy = false
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Ping(checkCtx).Err(); err != nil {
				log.Println("[HEALTH] [ERROR] redis ping failed:", err)
				checks["redis"] = "unavailable"
				healthy = false
			}
		}

		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": checks})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
	}
}
