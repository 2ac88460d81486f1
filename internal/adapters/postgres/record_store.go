// Package postgres — хранилище предсказаний поверх pgx. Каждая
// мутация выполняется одним атомарным запросом, многооператорные
// транзакции не нужны. Фильтр по owner_id присутствует в каждом
// запросе без исключений.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kubanez-create/Calibration/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
    id             BIGSERIAL PRIMARY KEY,
    owner_id       BIGINT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL,
    description    VARCHAR(200) NOT NULL,
    category       VARCHAR(50) NOT NULL,
    unit           VARCHAR(30) NOT NULL,
    low_50         DOUBLE PRECISION NOT NULL,
    high_50        DOUBLE PRECISION NOT NULL,
    low_90         DOUBLE PRECISION NOT NULL,
    high_90        DOUBLE PRECISION NOT NULL,
    actual_outcome DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS idx_predictions_owner ON predictions (owner_id);`

const columns = "id, owner_id, created_at, description, category, unit, low_50, high_50, low_90, high_90, actual_outcome"

type RecordStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRecordStore подключается к базе и выполняет идемпотентный
// бутстрап схемы.
func NewRecordStore(ctx context.Context, dsn string, logger *slog.Logger) (*RecordStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db pool init: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("schema bootstrap: %w", err)
	}
	logger.Info("all tables are ready")
	return &RecordStore{pool: pool, logger: logger}, nil
}

func (r *RecordStore) Close() {
	r.pool.Close()
}

// Ping используется ручкой /healthz.
func (r *RecordStore) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *RecordStore) Insert(ctx context.Context, p domain.Prediction) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO predictions
		    (owner_id, created_at, description, category, unit, low_50, high_50, low_90, high_90, actual_outcome)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)
		 RETURNING id`,
		p.OwnerID, p.CreatedAt, p.Description, p.Category, p.Unit,
		p.Low50, p.High50, p.Low90, p.High90,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	return id, nil
}

func (r *RecordStore) UpdateBounds(ctx context.Context, ownerID, id int64, low50, high50, low90, high90 float64) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE predictions
		    SET low_50 = $3, high_50 = $4, low_90 = $5, high_90 = $6
		  WHERE owner_id = $1 AND id = $2`,
		ownerID, id, low50, high50, low90, high90)
	if err != nil {
		return 0, fmt.Errorf("update bounds: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *RecordStore) SetOutcome(ctx context.Context, ownerID, id int64, outcome float64) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE predictions SET actual_outcome = $3
		  WHERE owner_id = $1 AND id = $2`,
		ownerID, id, outcome)
	if err != nil {
		return 0, fmt.Errorf("set outcome: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *RecordStore) Delete(ctx context.Context, ownerID, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM predictions WHERE owner_id = $1 AND id = $2`,
		ownerID, id)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *RecordStore) ListByOwner(ctx context.Context, ownerID int64, onlyMissingOutcome bool, offset, limit int) ([]domain.Prediction, error) {
	query := `SELECT ` + columns + ` FROM predictions WHERE owner_id = $1`
	if onlyMissingOutcome {
		query += ` AND actual_outcome IS NULL`
	}
	query += ` ORDER BY id ASC OFFSET $2 LIMIT $3`

	rows, err := r.pool.Query(ctx, query, ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list by owner: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *RecordStore) CountByOwner(ctx context.Context, ownerID int64, onlyMissingOutcome bool) (int64, error) {
	query := `SELECT COUNT(*) FROM predictions WHERE owner_id = $1`
	if onlyMissingOutcome {
		query += ` AND actual_outcome IS NULL`
	}
	var n int64
	if err := r.pool.QueryRow(ctx, query, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count by owner: %w", err)
	}
	return n, nil
}

func (r *RecordStore) DistinctCategories(ctx context.Context, ownerID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT category FROM predictions WHERE owner_id = $1 ORDER BY category`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *RecordStore) ListResolved(ctx context.Context, ownerID int64, category string) ([]domain.Prediction, error) {
	query := `SELECT ` + columns + ` FROM predictions
		WHERE owner_id = $1 AND actual_outcome IS NOT NULL`
	args := []any{ownerID}
	if category != "" {
		query += ` AND lower(category) = lower($2)`
		args = append(args, category)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list resolved: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanAll(rows pgxRows) ([]domain.Prediction, error) {
	var out []domain.Prediction
	for rows.Next() {
		var p domain.Prediction
		if err := rows.Scan(
			&p.ID, &p.OwnerID, &p.CreatedAt, &p.Description, &p.Category,
			&p.Unit, &p.Low50, &p.High50, &p.Low90, &p.High90, &p.Outcome,
		); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
