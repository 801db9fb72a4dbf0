package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// VisitFilters narrows the cohort query. Nil fields are not applied.
type VisitFilters struct {
	OperatorID *string
	CustomerID *string
	BranchID   *string
	Status     *VisitStatus
	Checked    *bool
}

// VisitService supplies the visit cohort for a time window and filter set,
// each visit carrying its nested material sales and sale line items.
type VisitService interface {
	// ListVisits returns visits with from <= visit_date < to matching the
	// filters, ordered by visit_date then id. The returned slice is the
	// cohort handed to Attribute, so the filters also shape the
	// monthly-fee distribution base.
	ListVisits(ctx context.Context, from, to time.Time, f VisitFilters) ([]Visit, error)
}

type visitService struct {
	pool *pgxpool.Pool
}

// NewVisitService constructs a VisitService backed by the given pool.
func NewVisitService(pool *pgxpool.Pool) VisitService {
	return &visitService{pool: pool}
}

func (s *visitService) ListVisits(ctx context.Context, from, to time.Time, f VisitFilters) ([]Visit, error) {
	q := `
		SELECT v.id, v.customer_id, c.name,
		       v.branch_id, b.name,
		       v.operator_id, o.name,
		       v.visit_date, v.status, v.is_checked
		FROM visits v
		JOIN customers c       ON c.id = v.customer_id
		LEFT JOIN branches b   ON b.id = v.branch_id
		LEFT JOIN operators o  ON o.id = v.operator_id
		WHERE v.visit_date >= $1
		  AND v.visit_date <  $2`

	args := []any{from, to}
	if f.OperatorID != nil {
		args = append(args, *f.OperatorID)
		q += fmt.Sprintf(" AND v.operator_id = $%d", len(args))
	}
	if f.CustomerID != nil {
		args = append(args, *f.CustomerID)
		q += fmt.Sprintf(" AND v.customer_id = $%d", len(args))
	}
	if f.BranchID != nil {
		args = append(args, *f.BranchID)
		q += fmt.Sprintf(" AND v.branch_id = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		q += fmt.Sprintf(" AND v.status = $%d", len(args))
	}
	if f.Checked != nil {
		args = append(args, *f.Checked)
		q += fmt.Sprintf(" AND v.is_checked = $%d", len(args))
	}
	q += " ORDER BY v.visit_date ASC, v.id ASC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	index := map[string]int{}
	var ids []string
	for rows.Next() {
		var v Visit
		if err := rows.Scan(
			&v.ID, &v.CustomerID, &v.CustomerName,
			&v.BranchID, &v.BranchName,
			&v.OperatorID, &v.OperatorName,
			&v.VisitDate, &v.Status, &v.IsChecked,
		); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		index[v.ID] = len(visits)
		ids = append(ids, v.ID)
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("visit row iteration error: %w", err)
	}
	if len(visits) == 0 {
		return visits, nil
	}

	if err := s.attachSales(ctx, visits, index, ids); err != nil {
		return nil, err
	}
	return visits, nil
}

// attachSales loads material sales and their line items for the given visit
// ids and nests them under their visits. Product name and unit come from a
// left join: a deleted product leaves the line with empty name/unit, which
// the attributor rolls up under the unknown-product sentinel.
func (s *visitService) attachSales(ctx context.Context, visits []Visit, index map[string]int, ids []string) error {
	const salesQ = `
		SELECT id, visit_id, total_amount
		FROM material_sales
		WHERE visit_id = ANY($1)
		ORDER BY visit_id, id`
	rows, err := s.pool.Query(ctx, salesQ, ids)
	if err != nil {
		return fmt.Errorf("failed to query material sales: %w", err)
	}
	defer rows.Close()

	saleIndex := map[string]struct{ visit, sale int }{}
	var saleIDs []string
	for rows.Next() {
		var sale MaterialSale
		if err := rows.Scan(&sale.ID, &sale.VisitID, &sale.TotalAmount); err != nil {
			return fmt.Errorf("failed to scan material sale: %w", err)
		}
		vi, ok := index[sale.VisitID]
		if !ok {
			continue
		}
		visits[vi].Sales = append(visits[vi].Sales, sale)
		saleIndex[sale.ID] = struct{ visit, sale int }{vi, len(visits[vi].Sales) - 1}
		saleIDs = append(saleIDs, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("material sale row iteration error: %w", err)
	}
	if len(saleIDs) == 0 {
		return nil
	}

	const itemsQ = `
		SELECT li.sale_id,
		       COALESCE(p.name, ''),
		       COALESCE(p.unit, ''),
		       li.quantity,
		       li.unit_price
		FROM sale_line_items li
		LEFT JOIN products p ON p.id = li.product_id
		WHERE li.sale_id = ANY($1)
		ORDER BY li.sale_id, li.id`
	itemRows, err := s.pool.Query(ctx, itemsQ, saleIDs)
	if err != nil {
		return fmt.Errorf("failed to query sale line items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var saleID string
		var item SaleLineItem
		if err := itemRows.Scan(&saleID, &item.ProductName, &item.Unit, &item.Quantity, &item.UnitPrice); err != nil {
			return fmt.Errorf("failed to scan sale line item: %w", err)
		}
		pos, ok := saleIndex[saleID]
		if !ok {
			continue
		}
		sale := &visits[pos.visit].Sales[pos.sale]
		sale.Items = append(sale.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return fmt.Errorf("sale line item row iteration error: %w", err)
	}
	return nil
}

// MonthWindow returns the half-open [start, end) interval covering the given
// calendar month in loc.
func MonthWindow(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}
