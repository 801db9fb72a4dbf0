package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type VisitStatus string

const (
	VisitPlanned   VisitStatus = "planned"
	VisitCompleted VisitStatus = "completed"
	VisitCancelled VisitStatus = "cancelled"
)

// UnknownProduct is the sentinel key under which sale line items without a
// resolvable product reference are rolled up. Their quantities still count.
const UnknownProduct = "unknown product"

// Visit is one service call at a customer site. CustomerID is always set;
// branch and operator references are optional.
type Visit struct {
	ID           string         `json:"id"`
	CustomerID   string         `json:"customer_id"`
	CustomerName string         `json:"customer_name"`
	BranchID     *string        `json:"branch_id,omitempty"`
	BranchName   *string        `json:"branch_name,omitempty"`
	OperatorID   *string        `json:"operator_id,omitempty"`
	OperatorName *string        `json:"operator_name,omitempty"`
	VisitDate    time.Time      `json:"visit_date"`
	Status       VisitStatus    `json:"status"`
	IsChecked    bool           `json:"is_checked"`
	Sales        []MaterialSale `json:"sales,omitempty"`
}

// MaterialSale is a batch of products sold during one visit. A visit may
// carry several sales; downstream distinct-visit counting relies on VisitID.
type MaterialSale struct {
	ID          string          `json:"id"`
	VisitID     string          `json:"visit_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []SaleLineItem  `json:"items,omitempty"`
}

// SaleLineItem is one product line inside a MaterialSale. An empty
// ProductName means the product reference could not be resolved.
type SaleLineItem struct {
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CustomerPricing holds the contract terms for one customer. Either field
// may be nil (not configured). A monthly fee outranks a per-visit fee during
// attribution; the two are never combined.
type CustomerPricing struct {
	CustomerID    string           `json:"customer_id"`
	MonthlyPrice  *decimal.Decimal `json:"monthly_price,omitempty"`
	PerVisitPrice *decimal.Decimal `json:"per_visit_price,omitempty"`
}

// BranchPricing mirrors CustomerPricing at branch granularity. Branch terms
// outrank customer terms for visits attributed to that branch.
type BranchPricing struct {
	BranchID      string           `json:"branch_id"`
	MonthlyPrice  *decimal.Decimal `json:"monthly_price,omitempty"`
	PerVisitPrice *decimal.Decimal `json:"per_visit_price,omitempty"`
}

// MonthlyScheduleRequirement is a visit quota for one operator against a
// customer and/or one of its branches within a calendar month.
type MonthlyScheduleRequirement struct {
	ID             string  `json:"id"`
	OperatorID     string  `json:"operator_id"`
	OperatorName   string  `json:"operator_name,omitempty"`
	CustomerID     *string `json:"customer_id,omitempty"`
	BranchID       *string `json:"branch_id,omitempty"`
	VisitsRequired int     `json:"visits_required"`
}

// MaterialLineUsage is a flattened (product, quantity, unit) tuple retained
// per visit for material-usage breakdowns.
type MaterialLineUsage struct {
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	Amount      decimal.Decimal `json:"amount"`
}

// AugmentedVisit is a Visit plus its attributed revenue. Derived only —
// recomputed for every (cohort, pricing) pair, never persisted.
// TotalRevenue == MaterialRevenue + ServiceRevenue always holds.
type AugmentedVisit struct {
	Visit
	MaterialRevenue decimal.Decimal     `json:"material_revenue"`
	ServiceRevenue  decimal.Decimal     `json:"service_revenue"`
	TotalRevenue    decimal.Decimal     `json:"total_revenue"`
	MaterialItems   []MaterialLineUsage `json:"material_items,omitempty"`
}

// CustomerRevenueRollup is the per-customer revenue aggregate. Every visit
// contributes to exactly one customer rollup.
type CustomerRevenueRollup struct {
	CustomerID string          `json:"customer_id"`
	Name       string          `json:"name"`
	Material   decimal.Decimal `json:"material"`
	Service    decimal.Decimal `json:"service"`
	Total      decimal.Decimal `json:"total"`
	VisitCount int             `json:"visit_count"`
}

// BranchRevenueRollup is the per-branch revenue aggregate. Visits without a
// branch reference are absent here but still present in the customer rollup.
type BranchRevenueRollup struct {
	BranchID   string          `json:"branch_id"`
	Name       string          `json:"name"`
	Material   decimal.Decimal `json:"material"`
	Service    decimal.Decimal `json:"service"`
	Total      decimal.Decimal `json:"total"`
	VisitCount int             `json:"visit_count"`
}

// OperatorDay is one calendar day inside an operator's monthly breakdown.
type OperatorDay struct {
	Date       string          `json:"date"` // YYYY-MM-DD
	Total      decimal.Decimal `json:"total"`
	VisitCount int             `json:"visit_count"`
}

// OperatorRevenueSummary is the per-operator monthly total with a per-day
// breakdown, ordered by date.
type OperatorRevenueSummary struct {
	OperatorID   string          `json:"operator_id"`
	Name         string          `json:"name"`
	MonthlyTotal decimal.Decimal `json:"monthly_total"`
	Days         []OperatorDay   `json:"days"`
}

// MaterialBreakdownEntry accumulates one product's quantity and amount.
type MaterialBreakdownEntry struct {
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
	Unit        string          `json:"unit"`
}

// BranchMaterialUsage is the per-branch slice of a customer's material usage.
type BranchMaterialUsage struct {
	BranchID        string                   `json:"branch_id"`
	Name            string                   `json:"name"`
	TotalSales      decimal.Decimal          `json:"total_sales"`
	VisitsWithSales int                      `json:"visits_with_sales"`
	Materials       []MaterialBreakdownEntry `json:"materials"`
}

// CustomerMaterialUsage summarises material sales for one customer.
// VisitsWithSales counts distinct visit ids having at least one sale, not
// sale records — one visit with three sales counts once.
type CustomerMaterialUsage struct {
	CustomerID      string                   `json:"customer_id"`
	Name            string                   `json:"name"`
	TotalSales      decimal.Decimal          `json:"total_sales"`
	VisitsWithSales int                      `json:"visits_with_sales"`
	Materials       []MaterialBreakdownEntry `json:"materials"`
	Branches        []BranchMaterialUsage    `json:"branches"`
}

// Aggregation is the full output of one aggregation pass, finalized into
// deterministically ordered slices ready for display.
type Aggregation struct {
	Customers     []CustomerRevenueRollup  `json:"customers"`
	Branches      []BranchRevenueRollup    `json:"branches"`
	Operators     []OperatorRevenueSummary `json:"operators"`
	MaterialUsage []CustomerMaterialUsage  `json:"material_usage"`
}

// ScheduleProgress is the completion state of one monthly schedule quota.
type ScheduleProgress struct {
	Schedule   MonthlyScheduleRequirement `json:"schedule"`
	DoneCount  int                        `json:"done_count"`
	Remaining  int                        `json:"remaining"`
	IsComplete bool                       `json:"is_complete"`
}
