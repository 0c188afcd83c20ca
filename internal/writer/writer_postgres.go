package writer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/factory"
	"Go2ResSpectra/internal/model"
	"Go2ResSpectra/internal/resources"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

func init() {
	factory.RegisterWriter("postgres", func(def config.WriterDef) (model.Writer, error) {
		return NewPostgresWriter(def.Postgres)
	})
}

var postgresColumns = []string{"ts", "activation_time", "node", "resource", "field", "average", "samples"}

func createPostgresTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    ts              timestamptz NOT NULL,
    activation_time double precision NOT NULL,
    node            text NOT NULL,
    resource        text NOT NULL,
    field           text NOT NULL,
    average         double precision NOT NULL,
    samples         bigint NOT NULL
)`, pgx.Identifier{table}.Sanitize())
}

// PostgresWriter implements the model.Writer interface for Postgres/Timescale.
type PostgresWriter struct {
	mu    sync.Mutex // pgx.Conn is not safe for concurrent use
	conn  *pgx.Conn
	table string
	now   func() time.Time
}

// NewPostgresWriter connects to Postgres and ensures the table exists.
func NewPostgresWriter(cfg config.PostgresConfig) (*PostgresWriter, error) {
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := conn.Exec(ctx, createPostgresTable(cfg.Table)); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Infof("Successfully connected to Postgres and ensured table '%s' exists.", cfg.Table)

	return &PostgresWriter{conn: conn, table: cfg.Table, now: time.Now}, nil
}

// Name returns the writer type.
func (w *PostgresWriter) Name() string { return "postgres" }

// Write copies one row per averaged field into the table.
func (w *PostgresWriter) Write(ctx context.Context, result resources.Result) error {
	values := postgresRows(result, activationTime(result, w.now))
	if len(values) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.conn.CopyFrom(ctx, pgx.Identifier{w.table}, postgresColumns, pgx.CopyFromRows(values))
	if err != nil {
		return fmt.Errorf("failed to copy rows: %w", err)
	}

	log.Infof("Wrote %d resource averages to Postgres table '%s'", n, w.table)
	return nil
}

func postgresRows(result resources.Result, ts time.Time) [][]any {
	rows := result.Rows()
	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, []any{ts, result.Timestamp, row.Node, row.Resource, row.Field, row.Average, int64(row.Samples)})
	}
	return values
}

// Close closes the connection.
func (w *PostgresWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.Close(context.Background())
}
