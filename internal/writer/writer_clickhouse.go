package writer

import (
	"context"
	"fmt"
	"time"

	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/factory"
	"Go2ResSpectra/internal/model"
	"Go2ResSpectra/internal/resources"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	log "github.com/sirupsen/logrus"
)

func init() {
	factory.RegisterWriter("clickhouse", func(def config.WriterDef) (model.Writer, error) {
		return NewClickHouseWriter(def.ClickHouse)
	})
}

const createClickHouseTable = `
CREATE TABLE IF NOT EXISTS resource_metrics (
    Timestamp      DateTime64(3),
    ActivationTime Float64,
    Node           String,
    Resource       String,
    Field          String,
    Average        Float64,
    Samples        UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Node, Resource, Timestamp);
`

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn driver.Conn
	now  func() time.Time
}

// NewClickHouseWriter connects to ClickHouse and ensures the table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	conn, err := connectClickHouse(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createClickHouseTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Info("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseWriter{conn: conn, now: time.Now}, nil
}

func connectClickHouse(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// Name returns the writer type.
func (w *ClickHouseWriter) Name() string { return "clickhouse" }

// Write inserts one row per averaged field into resource_metrics.
func (w *ClickHouseWriter) Write(ctx context.Context, result resources.Result) error {
	rows := result.Rows()
	if len(rows) == 0 {
		return nil // Nothing to write
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO resource_metrics")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	ts := activationTime(result, w.now)
	for _, row := range rows {
		if err := batch.Append(ts, result.Timestamp, row.Node, row.Resource, row.Field, row.Average, uint64(row.Samples)); err != nil {
			return fmt.Errorf("failed to append row to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Infof("Wrote %d resource averages to ClickHouse", len(rows))
	return nil
}

// Close closes the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
