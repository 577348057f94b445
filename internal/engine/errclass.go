package engine

import (
	"strings"
	"sync"
	"time"
)

// ErrorKind is the failure taxonomy for anything that can go wrong upstream
// of or inside a payout calculation.
type ErrorKind string

const (
	ErrorNetwork      ErrorKind = "network"
	ErrorTimeout      ErrorKind = "timeout"
	ErrorValidation   ErrorKind = "validation"
	ErrorExchangeRate ErrorKind = "exchange_rate"
	ErrorCalculation  ErrorKind = "calculation"
	ErrorCorruption   ErrorKind = "data_corruption"
	ErrorUnknown      ErrorKind = "unknown"
)

// ErrorSeverity grades how bad a classified failure is for the user.
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "low"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityHigh     ErrorSeverity = "high"
	SeverityCritical ErrorSeverity = "critical"
)

// RecoveryStrategy tells the caller what to do about a classified failure.
type RecoveryStrategy string

const (
	// RecoveryRetryAuto: transient transport failure, retry without asking.
	RecoveryRetryAuto RecoveryStrategy = "retry_automatic"
	// RecoveryFallback: show the lamport-denominated value and skip the
	// fiat conversion.
	RecoveryFallback RecoveryStrategy = "fallback_value"
	// RecoveryRetryManual: offer the user a retry affordance.
	RecoveryRetryManual RecoveryStrategy = "retry_manual"
	// RecoveryRefresh: the data cannot be trusted, force a full reload.
	RecoveryRefresh RecoveryStrategy = "refresh"
)

// EngineError is the structured record handed to callers for logging and
// telemetry when a computation could not produce a real payout.
type EngineError struct {
	Kind       ErrorKind        `json:"kind"`
	Severity   ErrorSeverity    `json:"severity"`
	Recovery   RecoveryStrategy `json:"recovery"`
	Message    string           `json:"message"`
	Retryable  bool             `json:"retryable"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Error implements the error interface.
func (e EngineError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// errorVocabulary maps each kind to the substrings that identify it. Matching
// is case-insensitive and ordered: timeouts are checked before network so
// "request timeout on connection" classifies as a timeout.
var errorVocabulary = []struct {
	kind     ErrorKind
	keywords []string
}{
	{ErrorTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{ErrorNetwork, []string{"network", "connection", "dial", "refused", "unreachable", "fetch failed", "reset by peer"}},
	{ErrorValidation, []string{"validation", "invalid", "mismatch", "negative", "out of range", "snapshot"}},
	{ErrorExchangeRate, []string{"exchange rate", "currency", "fiat", "conversion", "price feed", "quote"}},
	{ErrorCorruption, []string{"corrupt", "checksum", "inconsistent", "malformed", "truncated"}},
	{ErrorCalculation, []string{"calculation", "overflow", "divide", "division", "arithmetic"}},
}

var errorSeverities = map[ErrorKind]ErrorSeverity{
	ErrorNetwork:      SeverityMedium,
	ErrorTimeout:      SeverityMedium,
	ErrorValidation:   SeverityHigh,
	ErrorExchangeRate: SeverityLow,
	ErrorCalculation:  SeverityMedium,
	ErrorCorruption:   SeverityHigh,
	ErrorUnknown:      SeverityMedium,
}

var errorRecoveries = map[ErrorKind]RecoveryStrategy{
	ErrorNetwork:      RecoveryRetryAuto,
	ErrorTimeout:      RecoveryRetryAuto,
	ErrorValidation:   RecoveryRefresh,
	ErrorExchangeRate: RecoveryFallback,
	ErrorCalculation:  RecoveryRetryManual,
	ErrorCorruption:   RecoveryRefresh,
	ErrorUnknown:      RecoveryRetryManual,
}

// ClassifyError maps a raw failure message onto the taxonomy by keyword
// matching, then assigns severity and recovery strategy for the matched kind.
// Unknown failures mentioning a panic or fatal condition escalate to critical
// and force a refresh.
func ClassifyError(message string) EngineError {
	lower := strings.ToLower(message)

	kind := ErrorUnknown
	for _, entry := range errorVocabulary {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				kind = entry.kind
				break
			}
		}
		if kind != ErrorUnknown {
			break
		}
	}

	severity := errorSeverities[kind]
	recovery := errorRecoveries[kind]
	if kind == ErrorUnknown && (strings.Contains(lower, "panic") || strings.Contains(lower, "fatal")) {
		severity = SeverityCritical
		recovery = RecoveryRefresh
	}

	return EngineError{
		Kind:       kind,
		Severity:   severity,
		Recovery:   recovery,
		Message:    message,
		Retryable:  recovery == RecoveryRetryAuto || recovery == RecoveryRetryManual,
		OccurredAt: time.Now().UTC(),
	}
}

// RecoveryAdvisor classifies failures while enforcing a per-key retry budget.
// Once a key has failed MaxAttempts times the advisor stops suggesting
// retries and instructs the caller to force a full data refresh. Keys are
// whatever granularity the caller retries at, typically a market ID.
type RecoveryAdvisor struct {
	mu          sync.Mutex
	maxAttempts int
	attempts    map[string]int
	history     *ErrorHistory
}

// NewRecoveryAdvisor creates an advisor with the given retry budget. A
// non-positive budget means one attempt. The history buffer may be nil.
func NewRecoveryAdvisor(maxAttempts int, history *ErrorHistory) *RecoveryAdvisor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RecoveryAdvisor{
		maxAttempts: maxAttempts,
		attempts:    make(map[string]int),
		history:     history,
	}
}

// Advise classifies the failure, records it, and counts one attempt against
// key. When the budget is exhausted the returned error is non-retryable and
// its recovery strategy is a forced refresh regardless of kind.
func (a *RecoveryAdvisor) Advise(key, failure string) EngineError {
	engErr := ClassifyError(failure)

	a.mu.Lock()
	a.attempts[key]++
	exhausted := a.attempts[key] >= a.maxAttempts && engErr.Retryable
	a.mu.Unlock()

	if exhausted {
		engErr.Retryable = false
		engErr.Recovery = RecoveryRefresh
	}

	if a.history != nil {
		a.history.Append(engErr)
	}
	return engErr
}

// Reset clears the attempt counter for key after a successful computation.
func (a *RecoveryAdvisor) Reset(key string) {
	a.mu.Lock()
	delete(a.attempts, key)
	a.mu.Unlock()
}

// Attempts returns how many failures have been counted against key.
func (a *RecoveryAdvisor) Attempts(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempts[key]
}
