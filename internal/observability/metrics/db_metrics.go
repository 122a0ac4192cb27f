package metrics

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger, cfg config) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "devices",
			Help: "Registered device rows",
		},
		func() float64 {
			return queryCount(db, logger, fmt.Sprintf("SELECT COUNT(*) FROM %s", cfg.devicesTable))
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "sensors",
			Help: "Registered sensor rows",
		},
		func() float64 {
			return queryCount(db, logger, fmt.Sprintf("SELECT COUNT(*) FROM %s", cfg.sensorsTable))
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
