package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/calyptra/shoprec/internal/database"
)

var healthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "shoprec_health_check_status",
	Help: "Health check status (1 = healthy, 0 = unhealthy)",
}, []string{"service"})

type HealthService struct {
	logger *logrus.Logger
	db     *database.Database
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func NewHealthService(logger *logrus.Logger, db *database.Database) *HealthService {
	return &HealthService{logger: logger, db: db}
}

// Check pings every backing store. PostgreSQL is critical; Redis is not,
// since the service degrades to uncached reads without it.
func (hs *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Services:  make(map[string]string),
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := hs.db.PG.Ping(checkCtx); err != nil {
		hs.logger.WithError(err).Error("PostgreSQL health check failed")
		status.Services["postgresql"] = "unhealthy"
		status.Status = "unhealthy"
		healthCheckStatus.WithLabelValues("postgresql").Set(0)
	} else {
		status.Services["postgresql"] = "healthy"
		healthCheckStatus.WithLabelValues("postgresql").Set(1)
	}

	if err := hs.db.Redis.Ping(checkCtx).Err(); err != nil {
		hs.logger.WithError(err).Warn("Redis health check failed")
		status.Services["redis"] = "unhealthy"
		if status.Status == "healthy" {
			status.Status = "degraded"
		}
		healthCheckStatus.WithLabelValues("redis").Set(0)
	} else {
		status.Services["redis"] = "healthy"
		healthCheckStatus.WithLabelValues("redis").Set(1)
	}

	return status
}
