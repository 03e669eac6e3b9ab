package postgres

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/alpacabot/internal/domain"
)

// BarStore implements domain.BarStore using PostgreSQL. Price history is
// spread over per-source tables named by the universe, so the table name is a
// query input rather than a constant.
type BarStore struct {
	pool *pgxpool.Pool
}

// NewBarStore creates a new BarStore backed by the given connection pool.
func NewBarStore(pool *pgxpool.Pool) *BarStore {
	return &BarStore{pool: pool}
}

// tableNameRe restricts price source table names to plain identifiers.
// Table names cannot be bound as query parameters, so anything else is
// rejected before interpolation.
var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// LatestBars returns the most recent n bars for symbol from the given table,
// ordered oldest to newest. Fewer than n rows may be returned when the
// history is short.
func (s *BarStore) LatestBars(ctx context.Context, table, symbol string, n int) ([]domain.Bar, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("postgres: invalid price source table %q", table)
	}

	query := fmt.Sprintf(`
		SELECT symbol, time, open, high, low, close, volume
		FROM (
			SELECT symbol, time, open, high, low, close, volume
			FROM %s
			WHERE symbol = $1
			ORDER BY time DESC
			LIMIT $2
		) latest
		ORDER BY time ASC`, table)

	rows, err := s.pool.Query(ctx, query, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("postgres: latest bars %s/%s: %w", table, symbol, err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		if err := rows.Scan(&b.Symbol, &b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("postgres: scan bar %s/%s: %w", table, symbol, err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read bars %s/%s: %w", table, symbol, err)
	}
	return bars, nil
}

var _ domain.BarStore = (*BarStore)(nil)
