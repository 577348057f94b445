package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sportpools/matchpool/internal/domain"
)

// ParticipantStore implements domain.ParticipantStore using PostgreSQL.
type ParticipantStore struct {
	pool *pgxpool.Pool
}

// NewParticipantStore creates a new ParticipantStore backed by the given pool.
func NewParticipantStore(pool *pgxpool.Pool) *ParticipantStore {
	return &ParticipantStore{pool: pool}
}

const participantCols = `market_id, wallet, prediction, withdrawn, joined_at`

// Upsert inserts or updates a participant entry. A re-joining wallet keeps
// its original joined_at.
func (s *ParticipantStore) Upsert(ctx context.Context, p domain.ParticipantSnapshot) error {
	const query = `
		INSERT INTO participants (market_id, wallet, prediction, withdrawn, joined_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (market_id, wallet) DO UPDATE SET
			prediction = EXCLUDED.prediction,
			withdrawn  = EXCLUDED.withdrawn`

	_, err := s.pool.Exec(ctx, query,
		p.MarketID, p.Wallet, string(p.Prediction), p.Withdrawn, p.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert participant %s/%s: %w", p.MarketID, p.Wallet, err)
	}
	return nil
}

// Get retrieves a single participant entry by market and wallet.
func (s *ParticipantStore) Get(ctx context.Context, marketID, wallet string) (domain.ParticipantSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+participantCols+` FROM participants WHERE market_id = $1 AND wallet = $2`,
		marketID, wallet)

	p, err := scanParticipant(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ParticipantSnapshot{}, domain.ErrNotFound
		}
		return domain.ParticipantSnapshot{}, fmt.Errorf("postgres: get participant %s/%s: %w", marketID, wallet, err)
	}
	return p, nil
}

// ListByMarket returns all participant entries for a market, withdrawn ones
// included.
func (s *ParticipantStore) ListByMarket(ctx context.Context, marketID string) ([]domain.ParticipantSnapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+participantCols+` FROM participants WHERE market_id = $1 ORDER BY joined_at`,
		marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list participants for %s: %w", marketID, err)
	}
	defer rows.Close()

	return collectParticipants(rows)
}

// ListByOutcome returns the active (non-withdrawn) participants who predicted
// the given outcome. Settlement uses this to enumerate winners.
func (s *ParticipantStore) ListByOutcome(ctx context.Context, marketID string, outcome domain.Outcome) ([]domain.ParticipantSnapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+participantCols+` FROM participants
		 WHERE market_id = $1 AND prediction = $2 AND NOT withdrawn
		 ORDER BY joined_at`,
		marketID, string(outcome))
	if err != nil {
		return nil, fmt.Errorf("postgres: list %s participants for %s: %w", outcome, marketID, err)
	}
	defer rows.Close()

	return collectParticipants(rows)
}

func scanParticipant(row pgx.Row) (domain.ParticipantSnapshot, error) {
	var p domain.ParticipantSnapshot
	var prediction string
	err := row.Scan(&p.MarketID, &p.Wallet, &prediction, &p.Withdrawn, &p.JoinedAt)
	if err != nil {
		return domain.ParticipantSnapshot{}, err
	}
	p.Prediction = domain.Outcome(prediction)
	return p, nil
}

func collectParticipants(rows pgx.Rows) ([]domain.ParticipantSnapshot, error) {
	var parts []domain.ParticipantSnapshot
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan participant: %w", err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: participant rows: %w", err)
	}
	return parts, nil
}
