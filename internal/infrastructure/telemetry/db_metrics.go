package telemetry

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// PoolMetrics samples the connection pool of the SQL session backend.
type PoolMetrics struct {
	connections    *Gauge
	connectionsMax *Gauge
	waits          *Gauge

	sqlDB    *sql.DB
	interval time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewPoolMetrics registers pool gauges for sqlDB. interval defaults to 15s.
func NewPoolMetrics(meter metric.Meter, sqlDB *sql.DB, interval time.Duration, logger *zap.Logger) (*PoolMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}

	connections, err := NewGauge(meter, "console.db.pool.connections", "Connections in the pool by state", "{connection}")
	if err != nil {
		return nil, err
	}
	connectionsMax, err := NewGauge(meter, "console.db.pool.connections_max", "Maximum open connections", "{connection}")
	if err != nil {
		return nil, err
	}
	waits, err := NewGauge(meter, "console.db.pool.wait_count", "Total connections waited for", "{wait}")
	if err != nil {
		return nil, err
	}

	return &PoolMetrics{
		connections:    connections,
		connectionsMax: connectionsMax,
		waits:          waits,
		sqlDB:          sqlDB,
		interval:       interval,
		logger:         logger,
		stopCh:         make(chan struct{}),
	}, nil
}

// Start samples immediately and then every interval until Stop or ctx ends.
func (m *PoolMetrics) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.collect(ctx)
		for {
			select {
			case <-ticker.C:
				m.collect(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	m.logger.Debug("Started pool stats collection", zap.Duration("interval", m.interval))
}

func (m *PoolMetrics) collect(ctx context.Context) {
	stats := m.sqlDB.Stats()
	m.connectionsMax.Record(ctx, int64(stats.MaxOpenConnections))
	m.connections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.connections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.connections.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
	m.waits.Record(ctx, stats.WaitCount)
}

// Stop ends collection. Safe to call multiple times.
func (m *PoolMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}

// Close implements io.Closer.
func (m *PoolMetrics) Close() error {
	m.Stop()
	return nil
}
