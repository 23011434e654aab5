package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promotion-prediction-service/internal/core/domain"
	ports "promotion-prediction-service/internal/core/ports/output"
)

const schema = `
	CREATE TABLE IF NOT EXISTS prediction (
		id             UUID PRIMARY KEY,
		created_at     TIMESTAMPTZ NOT NULL,
		request_id     TEXT NOT NULL DEFAULT '',
		model_name     TEXT NOT NULL,
		model_version  TEXT NOT NULL DEFAULT '',
		model_checksum TEXT NOT NULL,
		features       JSONB NOT NULL,
		substitutions  JSONB NOT NULL DEFAULT '[]',
		prediction     SMALLINT NOT NULL,
		probability    DOUBLE PRECISION NOT NULL,
		cached         BOOLEAN NOT NULL DEFAULT FALSE,
		latency_ms     DOUBLE PRECISION NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS prediction_created_at_idx ON prediction (created_at DESC);
	CREATE INDEX IF NOT EXISTS prediction_model_name_idx ON prediction (model_name);
`

const selectColumns = `id, created_at, request_id, model_name, model_version, model_checksum,
		features, substitutions, prediction, probability, cached, latency_ms`

type predictionRepo struct {
	pool *pgxpool.Pool
}

// NewPredictionRepository creates a new prediction history repository
func NewPredictionRepository(pool *pgxpool.Pool) ports.PredictionRepository {
	return &predictionRepo{pool: pool}
}

// EnsureSchema creates the prediction table when it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create prediction schema: %w", err)
	}
	return nil
}

func (r *predictionRepo) Save(ctx context.Context, p *domain.Prediction) error {
	features, err := json.Marshal(p.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	subs := p.Substitutions
	if subs == nil {
		subs = []domain.CategorySubstitution{}
	}
	substitutions, err := json.Marshal(subs)
	if err != nil {
		return fmt.Errorf("encode substitutions: %w", err)
	}

	query := `
		INSERT INTO prediction (id, created_at, request_id, model_name, model_version, model_checksum,
			features, substitutions, prediction, probability, cached, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.pool.Exec(ctx, query,
		p.ID,
		p.CreatedAt,
		p.RequestID,
		p.ModelName,
		p.ModelVersion,
		p.ModelChecksum,
		features,
		substitutions,
		p.Result.Prediction,
		p.Result.Probability,
		p.Cached,
		p.LatencyMS,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (r *predictionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Prediction, error) {
	query := `SELECT ` + selectColumns + ` FROM prediction WHERE id = $1`
	p, err := scanPrediction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPredictionNotFound
		}
		return nil, fmt.Errorf("get prediction by id: %w", err)
	}
	return p, nil
}

func (r *predictionRepo) List(ctx context.Context, filter ports.PredictionListFilter) ([]*domain.Prediction, int, error) {
	whereClause, args := buildWhere(filter)

	countQuery := "SELECT COUNT(*) FROM prediction WHERE " + whereClause
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count predictions: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM prediction
		WHERE %s
		ORDER BY created_at %s
		LIMIT $%d OFFSET $%d
	`, selectColumns, whereClause, orderDirection(filter.Order), len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	predictions := []*domain.Prediction{}
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate predictions: %w", err)
	}

	return predictions, total, nil
}

func buildWhere(filter ports.PredictionListFilter) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.ModelName != "" {
		conditions = append(conditions, fmt.Sprintf("model_name = $%d", argPos))
		args = append(args, filter.ModelName)
		argPos++
	}
	if filter.Label != nil {
		conditions = append(conditions, fmt.Sprintf("prediction = $%d", argPos))
		args = append(args, *filter.Label)
		argPos++
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, filter.Since)
		argPos++
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argPos))
		args = append(args, filter.Until)
	}

	if len(conditions) == 0 {
		return "1=1", args
	}
	return strings.Join(conditions, " AND "), args
}

func orderDirection(order string) string {
	if strings.EqualFold(order, "asc") {
		return "ASC"
	}
	return "DESC"
}

func scanPrediction(row pgx.Row) (*domain.Prediction, error) {
	var (
		p             domain.Prediction
		features      []byte
		substitutions []byte
	)
	err := row.Scan(
		&p.ID,
		&p.CreatedAt,
		&p.RequestID,
		&p.ModelName,
		&p.ModelVersion,
		&p.ModelChecksum,
		&features,
		&substitutions,
		&p.Result.Prediction,
		&p.Result.Probability,
		&p.Cached,
		&p.LatencyMS,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(features, &p.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	if len(substitutions) > 0 {
		if err := json.Unmarshal(substitutions, &p.Substitutions); err != nil {
			return nil, fmt.Errorf("decode substitutions: %w", err)
		}
	}
	return &p, nil
}
