package domain

import "debond-math/internal/fixedpoint"

// BondClass is the ledger view of one bond class, as supplied by callers.
// Corresponds to bond_classes table in PostgreSQL.
type BondClass struct {
	ClassID       string            `json:"class_id"`
	Position      BondPosition      `json:"position"`
	BenchmarkIR   fixedpoint.Amount `json:"benchmark_ir"`
	Liquidity     LiquidityState    `json:"liquidity"`
	MaturityTime  int64             `json:"maturity_time"`  // unix seconds
	NonceDuration int64             `json:"nonce_duration"` // seconds
	UpdatedAt     int64             `json:"updated_at"`     // unix milliseconds
}

// Evaluation is one journaled engine call.
// Corresponds to evaluations table in PostgreSQL.
type Evaluation struct {
	EvaluationID string            `json:"evaluation_id"` // deterministic hash
	Operation    string            `json:"operation"`
	Args         map[string]string `json:"args"`
	Result       string            `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
	ErrorKind    string            `json:"error_kind,omitempty"`
	AsOf         int64             `json:"as_of"`      // caller clock, unix seconds
	CreatedAt    int64             `json:"created_at"` // unix milliseconds
}

// RateSnapshot is the periodic per-class output of the snapshot job.
// Corresponds to rate_snapshots table in ClickHouse.
type RateSnapshot struct {
	SnapshotID     string            `json:"snapshot_id"`
	ClassID        string            `json:"class_id"`
	TakenAt        int64             `json:"taken_at"` // unix seconds
	FixedRate      fixedpoint.Amount `json:"fixed_rate"`
	FloatingRate   fixedpoint.Amount `json:"floating_rate"`
	Deficit        fixedpoint.Amount `json:"deficit"`
	InCrisis       bool              `json:"in_crisis"`
	RedemptionTime int64             `json:"redemption_time"` // unix seconds
}
