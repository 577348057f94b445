// Package engine implements the settlement logic core of the matchpool
// prediction market: fee-policy arithmetic, display-state classification,
// payout calculation, and error classification with recovery advice.
//
// Everything in this package is purely functional over the snapshots it is
// handed. No call blocks or performs I/O, and every function is safe to
// invoke concurrently; the only mutable state in the subsystem is the
// explicitly injected ErrorHistory ring buffer.
package engine

import "fmt"

// BpsDenominator is the basis-point scale: 10,000 bps = 100%.
const BpsDenominator = 10_000

// FeePolicy is the process-wide, read-only fee configuration. It is validated
// once at startup and never mutated; changing fees requires a restart.
type FeePolicy struct {
	CreatorBps  uint64
	PlatformBps uint64
}

// FeeSplit is the result of applying a FeePolicy to a pool. The three
// components always sum exactly to TotalPool: the participant pool is
// computed by subtraction, so remainder lamports from the truncating fee
// divisions accrue to the winners by construction.
type FeeSplit struct {
	TotalPool       uint64
	CreatorFee      uint64
	PlatformFee     uint64
	ParticipantPool uint64
}

// ParticipantBps returns the basis points left for the participant pool.
func (p FeePolicy) ParticipantBps() uint64 {
	return BpsDenominator - p.CreatorBps - p.PlatformBps
}

// Validate checks that the configured fees do not exceed 100%. Callers must
// treat a failure as a startup-fatal misconfiguration: the engine must not be
// constructed from an invalid policy.
func (p FeePolicy) Validate() error {
	if p.CreatorBps+p.PlatformBps > BpsDenominator {
		return fmt.Errorf("engine: fee policy creator=%d + platform=%d bps exceeds %d",
			p.CreatorBps, p.PlatformBps, BpsDenominator)
	}
	return nil
}

// Split divides pool into creator fee, platform fee, and participant pool.
// Each fee is floor(pool * bps / 10000); all arithmetic is integer.
func (p FeePolicy) Split(pool uint64) (FeeSplit, error) {
	creator, err := mulDiv(pool, p.CreatorBps, BpsDenominator)
	if err != nil {
		return FeeSplit{}, fmt.Errorf("engine: split creator fee: %w", err)
	}
	platform, err := mulDiv(pool, p.PlatformBps, BpsDenominator)
	if err != nil {
		return FeeSplit{}, fmt.Errorf("engine: split platform fee: %w", err)
	}

	// creator + platform <= pool because the bps sum is capped at the
	// denominator, so the subtraction cannot underflow.
	return FeeSplit{
		TotalPool:       pool,
		CreatorFee:      creator,
		PlatformFee:     platform,
		ParticipantPool: pool - creator - platform,
	}, nil
}

// CreatorReward returns the creator's cut of pool, independent of outcome.
func (p FeePolicy) CreatorReward(pool uint64) (uint64, error) {
	reward, err := mulDiv(pool, p.CreatorBps, BpsDenominator)
	if err != nil {
		return 0, fmt.Errorf("engine: creator reward: %w", err)
	}
	return reward, nil
}

// SettleSplit computes the full settlement of a resolved pool: the fee split
// plus the per-winner share and the remainder left by floor division. The
// transaction layer emits transfers from these exact numbers, so they must
// stay byte-identical with what the payout calculator shows.
func (p FeePolicy) SettleSplit(pool, winnerCount uint64) (FeeSplit, uint64, uint64, error) {
	split, err := p.Split(pool)
	if err != nil {
		return FeeSplit{}, 0, 0, err
	}
	if winnerCount == 0 {
		// No winners: the whole participant pool stays behind.
		return split, 0, split.ParticipantPool, nil
	}
	perWinner := split.ParticipantPool / winnerCount
	remainder := split.ParticipantPool - perWinner*winnerCount
	return split, perWinner, remainder, nil
}
