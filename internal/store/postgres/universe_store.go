package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/alpacabot/internal/domain"
)

// UniverseStore implements domain.UniverseStore using PostgreSQL.
type UniverseStore struct {
	pool *pgxpool.Pool
}

// NewUniverseStore creates a new UniverseStore backed by the given connection pool.
func NewUniverseStore(pool *pgxpool.Pool) *UniverseStore {
	return &UniverseStore{pool: pool}
}

// ActiveUniverse returns the active symbols for the week starting at
// weekStart, each with the table its price history lives in. Entries without
// a price source table are omitted.
func (s *UniverseStore) ActiveUniverse(ctx context.Context, weekStart time.Time) ([]domain.UniverseEntry, error) {
	const query = `
		SELECT symbol, price_source_table
		FROM universe
		WHERE week_start_date = $1 AND is_active = TRUE AND price_source_table IS NOT NULL
		ORDER BY symbol ASC`

	rows, err := s.pool.Query(ctx, query, weekStart)
	if err != nil {
		return nil, fmt.Errorf("postgres: active universe for %s: %w", weekStart.Format("2006-01-02"), err)
	}
	defer rows.Close()

	var entries []domain.UniverseEntry
	for rows.Next() {
		var e domain.UniverseEntry
		if err := rows.Scan(&e.Symbol, &e.PriceSourceTable); err != nil {
			return nil, fmt.Errorf("postgres: scan universe entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read universe rows: %w", err)
	}
	return entries, nil
}

var _ domain.UniverseStore = (*UniverseStore)(nil)
