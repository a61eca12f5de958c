// Package pgstore provides a PostgreSQL implementation of history.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/argus/internal/history"
)

var tracer = otel.Tracer("github.com/linnemanlabs/argus/internal/history/pgstore")

//go:embed schema.sql
var schema string

// Store persists history records in PostgreSQL. The seq column preserves
// append order; rows are insert-only.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Append inserts one record at the end of the sequence.
func (s *Store) Append(ctx context.Context, rec *history.Record) error {
	ctx, span := tracer.Start(ctx, "pgstore.Append", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	alertJSON, techJSON, repJSON, assessJSON, err := marshalRecord(rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	query := `INSERT INTO history_records (id, alert, technique, reputation, assessment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.pool.Exec(ctx, query,
		rec.ID, alertJSON, techJSON, repJSON, assessJSON, rec.CreatedAt,
	); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (*history.Record, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT id, alert, technique, reputation, assessment, created_at
		FROM history_records WHERE id = $1`
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	return rec, true, nil
}

// List returns all records in append order.
func (s *Store) List(ctx context.Context) ([]history.Record, error) {
	ctx, span := tracer.Start(ctx, "pgstore.List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT id, alert, technique, reputation, assessment, created_at
		FROM history_records ORDER BY seq`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []history.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func marshalRecord(rec *history.Record) (alertJSON, techJSON, repJSON, assessJSON []byte, err error) {
	if alertJSON, err = json.Marshal(rec.Alert); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal alert: %w", err)
	}
	if techJSON, err = json.Marshal(rec.Technique); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal technique: %w", err)
	}
	if repJSON, err = json.Marshal(rec.Reputation); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal reputation: %w", err)
	}
	if assessJSON, err = json.Marshal(rec.Assessment); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal assessment: %w", err)
	}
	return alertJSON, techJSON, repJSON, assessJSON, nil
}

func scanRecord(row pgx.Row) (*history.Record, error) {
	var (
		rec        history.Record
		alertJSON  []byte
		techJSON   []byte
		repJSON    []byte
		assessJSON []byte
		createdAt  time.Time
	)
	if err := row.Scan(&rec.ID, &alertJSON, &techJSON, &repJSON, &assessJSON, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}

	if err := json.Unmarshal(alertJSON, &rec.Alert); err != nil {
		return nil, fmt.Errorf("decode alert: %w", err)
	}
	if err := json.Unmarshal(techJSON, &rec.Technique); err != nil {
		return nil, fmt.Errorf("decode technique: %w", err)
	}
	if err := json.Unmarshal(repJSON, &rec.Reputation); err != nil {
		return nil, fmt.Errorf("decode reputation: %w", err)
	}
	if err := json.Unmarshal(assessJSON, &rec.Assessment); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}
	rec.CreatedAt = createdAt
	return &rec, nil
}
