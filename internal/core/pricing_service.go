package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PricingService supplies contract terms and monthly schedule quotas.
// All queries are read-only; the engine never writes pricing.
type PricingService interface {
	// CustomerPricing returns the active pricing record per customer.
	// If the table carries duplicates for one customer, the last row read
	// wins; the engine does not deduplicate.
	CustomerPricing(ctx context.Context) (map[string]CustomerPricing, error)

	// BranchPricing returns the active pricing record per branch, same
	// duplicate semantics as CustomerPricing.
	BranchPricing(ctx context.Context) (map[string]BranchPricing, error)

	// MonthlySchedules returns the visit quotas defined for the given
	// calendar month.
	MonthlySchedules(ctx context.Context, year, month int) ([]MonthlyScheduleRequirement, error)
}

type pricingService struct {
	pool *pgxpool.Pool
}

// NewPricingService constructs a PricingService backed by the given pool.
func NewPricingService(pool *pgxpool.Pool) PricingService {
	return &pricingService{pool: pool}
}

func (s *pricingService) CustomerPricing(ctx context.Context) (map[string]CustomerPricing, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT customer_id, monthly_price, per_visit_price FROM customer_pricing")
	if err != nil {
		return nil, fmt.Errorf("failed to query customer pricing: %w", err)
	}
	defer rows.Close()

	out := map[string]CustomerPricing{}
	for rows.Next() {
		var p CustomerPricing
		if err := rows.Scan(&p.CustomerID, &p.MonthlyPrice, &p.PerVisitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan customer pricing: %w", err)
		}
		out[p.CustomerID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("customer pricing row iteration error: %w", err)
	}
	return out, nil
}

func (s *pricingService) BranchPricing(ctx context.Context) (map[string]BranchPricing, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT branch_id, monthly_price, per_visit_price FROM branch_pricing")
	if err != nil {
		return nil, fmt.Errorf("failed to query branch pricing: %w", err)
	}
	defer rows.Close()

	out := map[string]BranchPricing{}
	for rows.Next() {
		var p BranchPricing
		if err := rows.Scan(&p.BranchID, &p.MonthlyPrice, &p.PerVisitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan branch pricing: %w", err)
		}
		out[p.BranchID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("branch pricing row iteration error: %w", err)
	}
	return out, nil
}

func (s *pricingService) MonthlySchedules(ctx context.Context, year, month int) ([]MonthlyScheduleRequirement, error) {
	const q = `
		SELECT ms.id, ms.operator_id, COALESCE(o.name, ''),
		       ms.customer_id, ms.branch_id, ms.visits_required
		FROM monthly_schedules ms
		LEFT JOIN operators o ON o.id = ms.operator_id
		WHERE ms.year = $1 AND ms.month = $2
		ORDER BY ms.id`
	rows, err := s.pool.Query(ctx, q, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly schedules: %w", err)
	}
	defer rows.Close()

	var out []MonthlyScheduleRequirement
	for rows.Next() {
		var m MonthlyScheduleRequirement
		if err := rows.Scan(&m.ID, &m.OperatorID, &m.OperatorName, &m.CustomerID, &m.BranchID, &m.VisitsRequired); err != nil {
			return nil, fmt.Errorf("failed to scan monthly schedule: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly schedule row iteration error: %w", err)
	}
	return out, nil
}
