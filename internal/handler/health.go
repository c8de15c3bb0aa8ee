package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *pgxpool.Pool and by the Redis ping adapter.
type Pinger interface {
	Ping(ctx context.Context) error
}

type redisCheck struct {
	rdb *redis.Client
}

func NewRedisCheck(rdb *redis.Client) Pinger {
	return redisCheck{rdb: rdb}
}

func (r redisCheck) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

type HealthHandler struct {
	storageDriver string
	checks        map[string]Pinger
}

func NewHealthHandler(storageDriver string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		storageDriver: storageDriver,
		checks:        checks,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":       state,
		"service":      "journal-chat",
		"storage":      h.storageDriver,
		"dependencies": deps,
	})
}
