package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketStore persists market snapshots.
type MarketStore interface {
	Upsert(ctx context.Context, market MarketSnapshot) error
	GetByID(ctx context.Context, id string) (MarketSnapshot, error)
	GetByMatchID(ctx context.Context, matchID string) ([]MarketSnapshot, error)
	List(ctx context.Context, status MarketStatus, opts ListOpts) ([]MarketSnapshot, error)
	SetResolved(ctx context.Context, id string, outcome Outcome) error
	Count(ctx context.Context) (int64, error)
}

// ParticipantStore persists participant entries.
type ParticipantStore interface {
	Upsert(ctx context.Context, p ParticipantSnapshot) error
	Get(ctx context.Context, marketID, wallet string) (ParticipantSnapshot, error)
	ListByMarket(ctx context.Context, marketID string) ([]ParticipantSnapshot, error)
	ListByOutcome(ctx context.Context, marketID string, outcome Outcome) ([]ParticipantSnapshot, error)
}

// SettlementStore persists settlement records.
type SettlementStore interface {
	Insert(ctx context.Context, rec SettlementRecord) error
	GetByMarket(ctx context.Context, marketID string) (SettlementRecord, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]SettlementRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]SettlementRecord, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
