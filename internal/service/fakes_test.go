package service

import (
	"context"
	"sync"
	"time"

	"github.com/sportpools/matchpool/internal/domain"
)

// In-memory store and cache fakes shared by the service tests.

type memMarkets struct {
	mu      sync.Mutex
	markets map[string]domain.MarketSnapshot
}

func newMemMarkets(markets ...domain.MarketSnapshot) *memMarkets {
	m := &memMarkets{markets: make(map[string]domain.MarketSnapshot)}
	for _, mk := range markets {
		m.markets[mk.ID] = mk
	}
	return m
}

func (m *memMarkets) Upsert(_ context.Context, market domain.MarketSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markets[market.ID] = market
	return nil
}

func (m *memMarkets) GetByID(_ context.Context, id string) (domain.MarketSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.markets[id]
	if !ok {
		return domain.MarketSnapshot{}, domain.ErrNotFound
	}
	return mk, nil
}

func (m *memMarkets) GetByMatchID(_ context.Context, matchID string) ([]domain.MarketSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MarketSnapshot
	for _, mk := range m.markets {
		if mk.MatchID == matchID {
			out = append(out, mk)
		}
	}
	return out, nil
}

func (m *memMarkets) List(_ context.Context, status domain.MarketStatus, _ domain.ListOpts) ([]domain.MarketSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MarketSnapshot
	for _, mk := range m.markets {
		if status == "" || mk.Status == status {
			out = append(out, mk)
		}
	}
	return out, nil
}

func (m *memMarkets) SetResolved(_ context.Context, id string, outcome domain.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.markets[id]
	if !ok {
		return domain.ErrNotFound
	}
	mk.Status = domain.MarketResolved
	mk.Outcome = outcome
	m.markets[id] = mk
	return nil
}

func (m *memMarkets) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.markets)), nil
}

type memParticipants struct {
	entries []domain.ParticipantSnapshot
}

func (p *memParticipants) Upsert(_ context.Context, e domain.ParticipantSnapshot) error {
	p.entries = append(p.entries, e)
	return nil
}

func (p *memParticipants) Get(_ context.Context, marketID, wallet string) (domain.ParticipantSnapshot, error) {
	for _, e := range p.entries {
		if e.MarketID == marketID && e.Wallet == wallet {
			return e, nil
		}
	}
	return domain.ParticipantSnapshot{}, domain.ErrNotFound
}

func (p *memParticipants) ListByMarket(_ context.Context, marketID string) ([]domain.ParticipantSnapshot, error) {
	var out []domain.ParticipantSnapshot
	for _, e := range p.entries {
		if e.MarketID == marketID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (p *memParticipants) ListByOutcome(_ context.Context, marketID string, outcome domain.Outcome) ([]domain.ParticipantSnapshot, error) {
	var out []domain.ParticipantSnapshot
	for _, e := range p.entries {
		if e.MarketID == marketID && e.Prediction == outcome && !e.Withdrawn {
			out = append(out, e)
		}
	}
	return out, nil
}

type memSettlements struct {
	mu   sync.Mutex
	recs map[string]domain.SettlementRecord
}

func newMemSettlements() *memSettlements {
	return &memSettlements{recs: make(map[string]domain.SettlementRecord)}
}

func (s *memSettlements) Insert(_ context.Context, rec domain.SettlementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[rec.MarketID]; ok {
		return domain.ErrAlreadySettled
	}
	s.recs[rec.MarketID] = rec
	return nil
}

func (s *memSettlements) GetByMarket(_ context.Context, marketID string) (domain.SettlementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[marketID]
	if !ok {
		return domain.SettlementRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (s *memSettlements) ListRecent(context.Context, domain.ListOpts) ([]domain.SettlementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SettlementRecord
	for _, rec := range s.recs {
		out = append(out, rec)
	}
	return out, nil
}

func (s *memSettlements) ListBefore(context.Context, time.Time) ([]domain.SettlementRecord, error) {
	return s.ListRecent(context.Background(), domain.ListOpts{})
}

type memAudit struct {
	events []string
}

func (a *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.events = append(a.events, event)
	return nil
}

func (a *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type memScores struct {
	matches map[string]domain.MatchSnapshot
}

func (c *memScores) Set(_ context.Context, m domain.MatchSnapshot) error {
	if c.matches == nil {
		c.matches = make(map[string]domain.MatchSnapshot)
	}
	c.matches[m.MatchID] = m
	return nil
}

func (c *memScores) Get(_ context.Context, matchID string) (domain.MatchSnapshot, error) {
	m, ok := c.matches[matchID]
	if !ok {
		return domain.MatchSnapshot{}, domain.ErrNotFound
	}
	return m, nil
}

type memBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	streamed  map[string][][]byte
}

func newMemBus() *memBus {
	return &memBus{
		published: make(map[string][][]byte),
		streamed:  make(map[string][][]byte),
	}
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *memBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streamed[stream] = append(b.streamed[stream], payload)
	return nil
}

type memLocks struct {
	held map[string]bool
}

func (l *memLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	return func() { delete(l.held, key) }, nil
}

type memPayoutCache struct {
	mu      sync.Mutex
	entries map[string]domain.PayoutResult
	sets    int
}

func (c *memPayoutCache) Set(_ context.Context, marketID, viewer string, res domain.PayoutResult, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]domain.PayoutResult)
	}
	c.entries[marketID+"/"+viewer] = res
	c.sets++
	return nil
}

func (c *memPayoutCache) Get(_ context.Context, marketID, viewer string) (domain.PayoutResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.entries[marketID+"/"+viewer]
	if !ok {
		return domain.PayoutResult{}, domain.ErrNotFound
	}
	return res, nil
}

func (c *memPayoutCache) InvalidateMarket(_ context.Context, marketID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if len(k) > len(marketID) && k[:len(marketID)] == marketID && k[len(marketID)] == '/' {
			delete(c.entries, k)
		}
	}
	return nil
}

func i64(v int64) *int64 { return &v }
