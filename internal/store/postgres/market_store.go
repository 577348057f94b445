package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sportpools/matchpool/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, creator, match_id, entry_fee, total_pool,
	participant_count, home_count, draw_count, away_count,
	status, outcome, created_at`

// Upsert inserts or updates a single market snapshot.
func (s *MarketStore) Upsert(ctx context.Context, m domain.MarketSnapshot) error {
	const query = `
		INSERT INTO markets (
			id, creator, match_id, entry_fee, total_pool,
			participant_count, home_count, draw_count, away_count,
			status, outcome, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, NULLIF($11, ''), $12, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			entry_fee         = EXCLUDED.entry_fee,
			total_pool        = EXCLUDED.total_pool,
			participant_count = EXCLUDED.participant_count,
			home_count        = EXCLUDED.home_count,
			draw_count        = EXCLUDED.draw_count,
			away_count        = EXCLUDED.away_count,
			status            = EXCLUDED.status,
			outcome           = EXCLUDED.outcome,
			updated_at        = NOW()`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Creator, m.MatchID,
		int64(m.EntryFee), int64(m.TotalPool),
		int64(m.ParticipantCount), int64(m.HomeCount), int64(m.DrawCount), int64(m.AwayCount),
		string(m.Status), string(m.Outcome), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.ID, err)
	}
	return nil
}

// scanMarket scans a single market row into a domain.MarketSnapshot.
func scanMarket(row pgx.Row) (domain.MarketSnapshot, error) {
	var m domain.MarketSnapshot
	var status string
	var outcome *string
	var entryFee, totalPool, pCount, hCount, dCount, aCount int64

	err := row.Scan(
		&m.ID, &m.Creator, &m.MatchID, &entryFee, &totalPool,
		&pCount, &hCount, &dCount, &aCount,
		&status, &outcome, &m.CreatedAt,
	)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}

	m.EntryFee = uint64(entryFee)
	m.TotalPool = uint64(totalPool)
	m.ParticipantCount = uint64(pCount)
	m.HomeCount = uint64(hCount)
	m.DrawCount = uint64(dCount)
	m.AwayCount = uint64(aCount)
	m.Status = domain.MarketStatus(status)
	if outcome != nil {
		m.Outcome = domain.Outcome(*outcome)
	}
	return m, nil
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.MarketSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.MarketSnapshot{}, domain.ErrNotFound
		}
		return domain.MarketSnapshot{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// GetByMatchID retrieves all markets opened on a given football match.
func (s *MarketStore) GetByMatchID(ctx context.Context, matchID string) ([]domain.MarketSnapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketCols+` FROM markets WHERE match_id = $1 ORDER BY created_at DESC`, matchID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get markets by match %s: %w", matchID, err)
	}
	defer rows.Close()

	return collectMarkets(rows)
}

// List returns markets with the given status, with pagination and optional
// time filtering.
func (s *MarketStore) List(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.MarketSnapshot, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE status = $1`
	args := []any{string(status)}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	return collectMarkets(rows)
}

// SetResolved marks a market as resolved with the given outcome.
func (s *MarketStore) SetResolved(ctx context.Context, id string, outcome domain.Outcome) error {
	const query = `
		UPDATE markets
		SET status = 'resolved', outcome = $2, updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, string(outcome))
	if err != nil {
		return fmt.Errorf("postgres: resolve market %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the total number of markets in the database.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

func collectMarkets(rows pgx.Rows) ([]domain.MarketSnapshot, error) {
	var markets []domain.MarketSnapshot
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: market rows: %w", err)
	}
	return markets, nil
}
