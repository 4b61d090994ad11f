package handler

import (
	"context"
	"net/http"
	"time"

	"clinic-booking/pkg/response"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

type HealthHandler struct {
	db          *gorm.DB
	redisClient *redis.Client
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:          db,
		redisClient: redisClient,
	}
}

// Check reports 503 when Postgres is down. Redis is optional for booking, so a
// failed ping only degrades the status.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
	}
	status := http.StatusOK

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if h.redisClient == nil {
		checks["redis"] = "disabled"
	} else if err := h.redisClient.Ping(ctx).Err(); err != nil {
		checks["redis"] = "degraded"
	}

	if status != http.StatusOK {
		response.JSON(w, status, response.Response{Success: false, Message: "Service unavailable", Data: checks})
		return
	}
	response.Success(w, status, "ok", checks)
}
