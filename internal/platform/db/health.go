package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the connection-pool snapshot reported by the health check.
// JSON names follow the Spanish wire contract of the rest of the API.
type PoolStats struct {
	TotalConns      int32  `json:"conexionesTotales"`
	IdleConns       int32  `json:"conexionesLibres"`
	AcquiredConns   int32  `json:"conexionesEnUso"`
	MaxConns        int32  `json:"conexionesMax"`
	AcquireCount    int64  `json:"adquisiciones"`
	AcquireDuration string `json:"duracionAdquisicion"`
}

// GetPoolStats snapshots the pool counters.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// healthPayload builds the response body for a ping outcome. Split out so
// the shape is testable without a live pool.
func healthPayload(stats *PoolStats, pingErr error) (int, map[string]interface{}) {
	if pingErr != nil {
		return http.StatusServiceUnavailable, map[string]interface{}{
			"estado": "fuera de servicio",
			"error":  pingErr.Error(),
			"pool":   stats,
		}
	}
	return http.StatusOK, map[string]interface{}{
		"estado": "ok",
		"pool":   stats,
	}
}

// HealthHandler pings the database and reports pool statistics.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		status, body := healthPayload(GetPoolStats(pool), pool.Ping(ctx))
		return c.JSON(status, body)
	}
}
