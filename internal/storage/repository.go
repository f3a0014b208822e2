package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/itinera/internal/export"
)

const (
	tablePlans = "plans"

	// DefaultListLimit and MaxListLimit bound ListPlans.
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Plan is a stored plan: the fitted record plus the figures used to list it.
type Plan struct {
	ID           uuid.UUID     `json:"id"`
	City         string        `json:"city"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	Budget       float64       `json:"budget"`
	LuxuryLevel  string        `json:"luxury_level"`
	Buffer       float64       `json:"buffer"`
	Total        float64       `json:"total"`
	Target       float64       `json:"target"`
	WithinTarget bool          `json:"within_target"`
	Strategy     string        `json:"strategy"`
	Record       export.Record `json:"record"`
	CreatedAt    time.Time     `json:"created_at"`
}

// PlanSummary is one row of ListPlans.
type PlanSummary struct {
	ID           uuid.UUID `json:"id"`
	City         string    `json:"city"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	LuxuryLevel  string    `json:"luxury_level"`
	Total        float64   `json:"total"`
	WithinTarget bool      `json:"within_target"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListFilter narrows ListPlans. Zero fields do not filter.
type ListFilter struct {
	City         string
	LuxuryLevel  string
	WithinTarget *bool
	Limit        int
}

// Repository provides database access for plan records.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// SavePlan inserts p, assigning an ID when it has none, and fills CreatedAt.
func (r *Repository) SavePlan(ctx context.Context, p *Plan) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	recordJSON, err := json.Marshal(p.Record)
	if err != nil {
		return fmt.Errorf("marshaling plan record for %s: %w", p.City, err)
	}

	const q = `
		INSERT INTO plans (id, city, start_date, end_date, budget, luxury_level, buffer,
		                   total, target, within_target, strategy, record)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	err = r.q.QueryRow(ctx, q,
		p.ID, p.City, p.Start, p.End, p.Budget, p.LuxuryLevel, p.Buffer,
		p.Total, p.Target, p.WithinTarget, p.Strategy, recordJSON,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting plan for %s: %w", p.City, err)
	}

	return nil
}

// GetPlan retrieves a plan by id.
// Returns nil, nil when no plan has that id.
func (r *Repository) GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	const q = `
		SELECT id, city, start_date, end_date, budget, luxury_level, buffer,
		       total, target, within_target, strategy, record, created_at
		FROM plans
		WHERE id = $1
	`

	var p Plan
	var recordJSON []byte

	err := r.q.QueryRow(ctx, q, id).Scan(
		&p.ID,
		&p.City,
		&p.Start,
		&p.End,
		&p.Budget,
		&p.LuxuryLevel,
		&p.Buffer,
		&p.Total,
		&p.Target,
		&p.WithinTarget,
		&p.Strategy,
		&recordJSON,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying plan %s: %w", id, err)
	}

	if err := json.Unmarshal(recordJSON, &p.Record); err != nil {
		return nil, fmt.Errorf("unmarshaling plan record %s: %w", id, err)
	}

	return &p, nil
}

// ListPlans returns the newest plans matching f.
func (r *Repository) ListPlans(ctx context.Context, f ListFilter) ([]PlanSummary, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	query := builder().
		Select("id", "city", "start_date", "end_date", "luxury_level", "total", "within_target", "created_at").
		From(tablePlans).
		OrderBy("created_at DESC").
		Limit(uint64(limit))

	if f.City != "" {
		query = query.Where(sq.Expr("lower(city) = lower(?)", f.City))
	}
	if f.LuxuryLevel != "" {
		query = query.Where(sq.Eq{"luxury_level": f.LuxuryLevel})
	}
	if f.WithinTarget != nil {
		query = query.Where(sq.Eq{"within_target": *f.WithinTarget})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building plan list query: %w", err)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	defer rows.Close()

	results := []PlanSummary{}
	for rows.Next() {
		var s PlanSummary
		var id string
		if err := rows.Scan(
			&id,
			&s.City,
			&s.Start,
			&s.End,
			&s.LuxuryLevel,
			&s.Total,
			&s.WithinTarget,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning plan row: %w", err)
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing plan id %q: %w", id, err)
		}
		results = append(results, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan rows: %w", err)
	}

	return results, nil
}
