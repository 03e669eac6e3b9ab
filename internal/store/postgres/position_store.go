package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/alpacabot/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given connection pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionSelectCols = `id, symbol, strategy_tag, status, side,
	open_time, open_price, quantity, commission_open,
	close_time, close_price, commission_close, tags, notes`

func scanPositionRow(row pgx.Row) (domain.PositionRecord, error) {
	var rec domain.PositionRecord
	var status, side string
	var strategyTag, notes *string
	var tags map[string]string

	err := row.Scan(
		&rec.ID, &rec.Symbol, &strategyTag, &status, &side,
		&rec.OpenTime, &rec.OpenPrice, &rec.Quantity, &rec.CommissionOpen,
		&rec.CloseTime, &rec.ClosePrice, &rec.CommissionClose, &tags, &notes,
	)
	if err != nil {
		return domain.PositionRecord{}, err
	}
	rec.Status = domain.PositionStatus(status)
	rec.Side = domain.Direction(side)
	rec.Tags = tags
	if strategyTag != nil {
		rec.StrategyTag = *strategyTag
	}
	if notes != nil {
		rec.Notes = *notes
	}
	return rec, nil
}

func scanPositionRows(rows pgx.Rows) ([]domain.PositionRecord, error) {
	var recs []domain.PositionRecord
	for rows.Next() {
		rec, err := scanPositionRow(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Create inserts a new position record.
func (s *PositionStore) Create(ctx context.Context, rec domain.PositionRecord) error {
	const query = `
		INSERT INTO positions (
			id, symbol, strategy_tag, status, side,
			open_time, open_price, quantity, commission_open,
			close_time, close_price, commission_close, tags, notes, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14, NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Symbol, rec.StrategyTag,
		string(rec.Status), string(rec.Side),
		rec.OpenTime, rec.OpenPrice, rec.Quantity, rec.CommissionOpen,
		rec.CloseTime, rec.ClosePrice, rec.CommissionClose, rec.Tags, rec.Notes,
	)
	if err != nil {
		return fmt.Errorf("postgres: create position %s: %w", rec.ID, err)
	}
	return nil
}

// Close marks an open position as closed with the closing fill's details.
func (s *PositionStore) Close(ctx context.Context, id string, closeTime time.Time, closePrice, commission float64) error {
	const query = `
		UPDATE positions SET
			status           = 'CLOSED',
			close_time       = $2,
			close_price      = $3,
			commission_close = $4,
			updated_at       = NOW()
		WHERE id = $1 AND status = 'OPEN'`

	tag, err := s.pool.Exec(ctx, query, id, closeTime, closePrice, commission)
	if err != nil {
		return fmt.Errorf("postgres: close position %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetOpen returns all open position records, oldest first.
func (s *PositionStore) GetOpen(ctx context.Context) ([]domain.PositionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE status = 'OPEN'
		 ORDER BY open_time ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: get open positions: %w", err)
	}
	defer rows.Close()

	recs, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open positions: %w", err)
	}
	return recs, nil
}

// GetByID retrieves a single position record by its ID.
func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.PositionRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions WHERE id = $1`, id)

	rec, err := scanPositionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PositionRecord{}, domain.ErrNotFound
		}
		return domain.PositionRecord{}, fmt.Errorf("postgres: get position %s: %w", id, err)
	}
	return rec, nil
}

// ListClosedBefore returns closed positions whose close time is before cutoff.
func (s *PositionStore) ListClosedBefore(ctx context.Context, cutoff time.Time) ([]domain.PositionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE status = 'CLOSED' AND close_time < $1
		 ORDER BY close_time ASC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: list closed positions: %w", err)
	}
	defer rows.Close()

	recs, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan closed positions: %w", err)
	}
	return recs, nil
}

var _ domain.PositionStore = (*PositionStore)(nil)
