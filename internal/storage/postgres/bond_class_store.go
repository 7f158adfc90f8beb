package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"debond-math/internal/domain"
	"debond-math/internal/fixedpoint"
	"debond-math/internal/storage"
)

// BondClassStore implements storage.BondClassStore using PostgreSQL.
// Amounts are written and read as text so NUMERIC keeps every digit.
type BondClassStore struct {
	pool *Pool
}

// NewBondClassStore creates a new BondClassStore.
func NewBondClassStore(pool *Pool) *BondClassStore {
	return &BondClassStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BondClassStore = (*BondClassStore)(nil)

const bondClassSelect = `
	SELECT
		class_id,
		fixed_rate_bond::text, floating_rate_bond::text, benchmark_ir::text,
		sum_of_liquidity_flow::text, sum_of_liquidity_of_last_nonce::text, last_month_liquidity_flow::text,
		maturity_time, nonce_duration, updated_at
	FROM bond_classes
`

// Upsert inserts or replaces a bond class.
func (s *BondClassStore) Upsert(ctx context.Context, c *domain.BondClass) (err error) {
	if c == nil || c.ClassID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("upsert_bond_class", start, err) }(time.Now())

	query := `
		INSERT INTO bond_classes (
			class_id,
			fixed_rate_bond, floating_rate_bond, benchmark_ir,
			sum_of_liquidity_flow, sum_of_liquidity_of_last_nonce, last_month_liquidity_flow,
			maturity_time, nonce_duration, updated_at
		) VALUES (
			$1,
			$2::text::numeric, $3::text::numeric, $4::text::numeric,
			$5::text::numeric, $6::text::numeric, $7::text::numeric,
			$8, $9, $10
		)
		ON CONFLICT (class_id) DO UPDATE SET
			fixed_rate_bond = EXCLUDED.fixed_rate_bond,
			floating_rate_bond = EXCLUDED.floating_rate_bond,
			benchmark_ir = EXCLUDED.benchmark_ir,
			sum_of_liquidity_flow = EXCLUDED.sum_of_liquidity_flow,
			sum_of_liquidity_of_last_nonce = EXCLUDED.sum_of_liquidity_of_last_nonce,
			last_month_liquidity_flow = EXCLUDED.last_month_liquidity_flow,
			maturity_time = EXCLUDED.maturity_time,
			nonce_duration = EXCLUDED.nonce_duration,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		c.ClassID,
		c.Position.FixedRateBond.String(), c.Position.FloatingRateBond.String(), c.BenchmarkIR.String(),
		c.Liquidity.SumOfLiquidityFlow.String(), c.Liquidity.SumOfLiquidityOfLastNonce.String(), c.Liquidity.LastMonthLiquidityFlow.String(),
		c.MaturityTime, c.NonceDuration, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert bond class: %w", err)
	}
	return nil
}

// GetByID retrieves a bond class. Returns ErrNotFound if not exists.
func (s *BondClassStore) GetByID(ctx context.Context, classID string) (c *domain.BondClass, err error) {
	defer func(start time.Time) { observe("get_bond_class", start, err) }(time.Now())

	c, err = scanBondClass(s.pool.QueryRow(ctx, bondClassSelect+` WHERE class_id = $1`, classID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get bond class by id: %w", err)
	}
	return c, nil
}

// List retrieves all bond classes ordered by class_id ASC.
func (s *BondClassStore) List(ctx context.Context) (result []*domain.BondClass, err error) {
	defer func(start time.Time) { observe("list_bond_classes", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, bondClassSelect+` ORDER BY class_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list bond classes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanBondClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bond class: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bond classes: %w", err)
	}
	return result, nil
}

func scanBondClass(row pgx.Row) (*domain.BondClass, error) {
	var c domain.BondClass
	var fixed, floating, ir, flow, lastNonce, lastMonth string

	err := row.Scan(
		&c.ClassID,
		&fixed, &floating, &ir,
		&flow, &lastNonce, &lastMonth,
		&c.MaturityTime, &c.NonceDuration, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		column string
		raw    string
		dst    *fixedpoint.Amount
	}{
		{"fixed_rate_bond", fixed, &c.Position.FixedRateBond},
		{"floating_rate_bond", floating, &c.Position.FloatingRateBond},
		{"benchmark_ir", ir, &c.BenchmarkIR},
		{"sum_of_liquidity_flow", flow, &c.Liquidity.SumOfLiquidityFlow},
		{"sum_of_liquidity_of_last_nonce", lastNonce, &c.Liquidity.SumOfLiquidityOfLastNonce},
		{"last_month_liquidity_flow", lastMonth, &c.Liquidity.LastMonthLiquidityFlow},
	} {
		v, err := parseAmount(f.column, f.raw)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return &c, nil
}
