package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sportpools/matchpool/internal/domain"
)

// SettlementStore implements domain.SettlementStore using PostgreSQL.
type SettlementStore struct {
	pool *pgxpool.Pool
}

// NewSettlementStore creates a new SettlementStore backed by the given pool.
func NewSettlementStore(pool *pgxpool.Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

const settlementCols = `id, market_id, match_id, outcome, total_pool,
	creator_fee, platform_fee, participant_pool,
	winner_count, per_winner, remainder, settled_at`

// Insert writes a settlement record. The market_id UNIQUE constraint makes
// double settlement a hard failure, surfaced as domain.ErrAlreadySettled.
func (s *SettlementStore) Insert(ctx context.Context, rec domain.SettlementRecord) error {
	const query = `
		INSERT INTO settlements (
			id, market_id, match_id, outcome, total_pool,
			creator_fee, platform_fee, participant_pool,
			winner_count, per_winner, remainder, settled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (market_id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query,
		rec.ID, rec.MarketID, rec.MatchID, string(rec.Outcome),
		int64(rec.TotalPool), int64(rec.CreatorFee), int64(rec.PlatformFee),
		int64(rec.ParticipantPool), int64(rec.WinnerCount), int64(rec.PerWinner),
		int64(rec.Remainder), rec.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert settlement for %s: %w", rec.MarketID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadySettled
	}
	return nil
}

// GetByMarket retrieves the settlement record for a market.
func (s *SettlementStore) GetByMarket(ctx context.Context, marketID string) (domain.SettlementRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+settlementCols+` FROM settlements WHERE market_id = $1`, marketID)

	rec, err := scanSettlement(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.SettlementRecord{}, domain.ErrNotFound
		}
		return domain.SettlementRecord{}, fmt.Errorf("postgres: get settlement for %s: %w", marketID, err)
	}
	return rec, nil
}

// ListRecent returns settlement records ordered newest first.
func (s *SettlementStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.SettlementRecord, error) {
	query := `SELECT ` + settlementCols + ` FROM settlements WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND settled_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND settled_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY settled_at DESC"

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
		return nil, fmt.Errorf("postgres: list settlements: %w", err)
	}
	defer rows.Close()

	return collectSettlements(rows)
}

// ListBefore returns settlement records settled strictly before the given
// time, oldest first. The archiver uses this to select cold rows.
func (s *SettlementStore) ListBefore(ctx context.Context, before time.Time) ([]domain.SettlementRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+settlementCols+` FROM settlements WHERE settled_at < $1 ORDER BY settled_at`,
		before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settlements before %s: %w", before, err)
	}
	defer rows.Close()

	return collectSettlements(rows)
}

func scanSettlement(row pgx.Row) (domain.SettlementRecord, error) {
	var rec domain.SettlementRecord
	var outcome string
	var totalPool, creatorFee, platformFee, participantPool int64
	var winnerCount, perWinner, remainder int64

	err := row.Scan(
		&rec.ID, &rec.MarketID, &rec.MatchID, &outcome, &totalPool,
		&creatorFee, &platformFee, &participantPool,
		&winnerCount, &perWinner, &remainder, &rec.SettledAt,
	)
	if err != nil {
		return domain.SettlementRecord{}, err
	}

	rec.Outcome = domain.Outcome(outcome)
	rec.TotalPool = uint64(totalPool)
	rec.CreatorFee = uint64(creatorFee)
	rec.PlatformFee = uint64(platformFee)
	rec.ParticipantPool = uint64(participantPool)
	rec.WinnerCount = uint64(winnerCount)
	rec.PerWinner = uint64(perWinner)
	rec.Remainder = uint64(remainder)
	return rec, nil
}

func collectSettlements(rows pgx.Rows) ([]domain.SettlementRecord, error) {
	var recs []domain.SettlementRecord
	for rows.Next() {
		rec, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan settlement: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: settlement rows: %w", err)
	}
	return recs, nil
}
