package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

const insertBatchSize = 500

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresStore reads and writes machine samples in PostgreSQL
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore opens dsn and verifies the connection
func NewPostgresStore(dsn, table string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := NewPostgresStoreWithDB(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB wraps an existing connection pool
func NewPostgresStoreWithDB(db *sql.DB, table string) (*PostgresStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	return &PostgresStore{db: db, table: table}, nil
}

func (s *PostgresStore) Name() string {
	return "postgres"
}

// Migrate creates the sample table and its timestamp index
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema, err := postgresFS.ReadFile("migrations/001_cnc_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	stmt := strings.NewReplacer(
		"{{table}}", s.table,
		"{{table_name}}", strings.ReplaceAll(s.table, ".", "_"),
	).Replace(string(schema))

	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// LoadSamples returns the samples with start <= ts <= end, ordered by ts
func (s *PostgresStore) LoadSamples(ctx context.Context, start, end time.Time) ([]models.Sample, error) {
	query := fmt.Sprintf(`SELECT cnc_value, program_name, cycle_time, ts FROM %s WHERE ts >= $1 AND ts <= $2 ORDER BY ts`, s.table)

	rows, err := s.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("sample query failed: %w", err)
	}
	defer rows.Close()

	var samples []models.Sample
	for rows.Next() {
		var sample models.Sample
		var program sql.NullString
		var cycle sql.NullFloat64

		if err := rows.Scan(&sample.SignalValue, &program, &cycle, &sample.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}

		sample.ProgramIdentifier = program.String
		sample.CycleDuration = cycle.Float64
		samples = append(samples, sample)
	}

	return samples, rows.Err()
}

// SaveSamples inserts samples in batches inside one transaction
func (s *PostgresStore) SaveSamples(ctx context.Context, samples []models.Sample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	saved := 0
	for start := 0; start < len(samples); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(samples) {
			end = len(samples)
		}

		query, args := s.insertStatement(samples[start:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to insert samples %d-%d: %w", start, end-1, err)
		}
		saved += end - start
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit samples: %w", err)
	}

	return saved, nil
}

func (s *PostgresStore) insertStatement(batch []models.Sample) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.table)
	b.WriteString(" (cnc_value, program_name, cycle_time, ts) VALUES ")

	args := make([]any, 0, len(batch)*4)
	for i, smp := range batch {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "($%d,$%d,$%d,$%d)", len(args)+1, len(args)+2, len(args)+3, len(args)+4)

		args = append(args,
			smp.SignalValue,
			sql.NullString{String: smp.ProgramIdentifier, Valid: smp.ProgramIdentifier != ""},
			smp.CycleDuration,
			smp.Timestamp,
		)
	}

	return b.String(), args
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Store = (*PostgresStore)(nil)
