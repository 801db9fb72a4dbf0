package core_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"pestcrm/internal/core"

	"github.com/shopspring/decimal"
)

func augmented(id, customerID string, branchID, operatorID *string, day int, material, service string) core.AugmentedVisit {
	v := core.Visit{
		ID:         id,
		CustomerID: customerID,
		BranchID:   branchID,
		OperatorID: operatorID,
		VisitDate:  time.Date(2026, 3, day, 14, 30, 0, 0, time.UTC),
		Status:     core.VisitCompleted,
	}
	m, s := dec(material), dec(service)
	return core.AugmentedVisit{
		Visit:           v,
		MaterialRevenue: m,
		ServiceRevenue:  s,
		TotalRevenue:    m.Add(s),
	}
}

func sumCustomerTotals(agg core.Aggregation) decimal.Decimal {
	total := decimal.Zero
	for _, c := range agg.Customers {
		total = total.Add(c.Total)
	}
	return total
}

func sumBranchTotals(agg core.Aggregation) decimal.Decimal {
	total := decimal.Zero
	for _, b := range agg.Branches {
		total = total.Add(b.Total)
	}
	return total
}

func TestAggregate_CustomerTotalConservation(t *testing.T) {
	visits := []core.AugmentedVisit{
		augmented("v1", "cust-x", strPtr("branch-y"), strPtr("op-1"), 3, "150", "100"),
		augmented("v2", "cust-x", nil, nil, 5, "0", "100"),
		augmented("v3", "cust-z", nil, strPtr("op-1"), 5, "20", "0"),
	}

	agg := core.Aggregate(visits)

	visitSum := decimal.Zero
	for _, v := range visits {
		visitSum = visitSum.Add(v.TotalRevenue)
	}
	if !sumCustomerTotals(agg).Equal(visitSum) {
		t.Errorf("customer totals %s != visit totals %s", sumCustomerTotals(agg), visitSum)
	}

	// v2 and v3 have no branch, so branch totals must be strictly less here.
	if !sumBranchTotals(agg).LessThan(visitSum) {
		t.Errorf("branch totals %s should be < visit totals %s", sumBranchTotals(agg), visitSum)
	}
}

func TestAggregate_BranchEqualityWhenAllBranched(t *testing.T) {
	visits := []core.AugmentedVisit{
		augmented("v1", "cust-x", strPtr("branch-y"), nil, 3, "10", "90"),
		augmented("v2", "cust-z", strPtr("branch-w"), nil, 4, "5", "45"),
	}

	agg := core.Aggregate(visits)
	if !sumBranchTotals(agg).Equal(sumCustomerTotals(agg)) {
		t.Errorf("branch totals %s != customer totals %s with every visit branched", sumBranchTotals(agg), sumCustomerTotals(agg))
	}
}

func TestAggregate_OperatorDailyBreakdown(t *testing.T) {
	op := strPtr("op-1")
	visits := []core.AugmentedVisit{
		augmented("v1", "cust-x", nil, op, 3, "0", "100"),
		augmented("v2", "cust-x", nil, op, 3, "50", "100"),
		augmented("v3", "cust-z", nil, op, 7, "0", "200"),
		augmented("v4", "cust-z", nil, nil, 7, "0", "999"), // no operator, excluded here
	}

	agg := core.Aggregate(visits)
	if len(agg.Operators) != 1 {
		t.Fatalf("expected 1 operator summary, got %d", len(agg.Operators))
	}
	o := agg.Operators[0]
	if !o.MonthlyTotal.Equal(dec("450")) {
		t.Errorf("monthly total = %s, want 450", o.MonthlyTotal)
	}
	if len(o.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(o.Days))
	}
	if o.Days[0].Date != "2026-03-03" || o.Days[0].VisitCount != 2 || !o.Days[0].Total.Equal(dec("250")) {
		t.Errorf("day 0 = %+v, want 2026-03-03/2 visits/250", o.Days[0])
	}
	if o.Days[1].Date != "2026-03-07" || o.Days[1].VisitCount != 1 || !o.Days[1].Total.Equal(dec("200")) {
		t.Errorf("day 1 = %+v, want 2026-03-07/1 visit/200", o.Days[1])
	}
}

func TestAggregate_VisitsWithSalesDistinct(t *testing.T) {
	// One visit carrying three separate sales must count once.
	v := augmented("v1", "cust-x", nil, nil, 3, "90", "0")
	v.Sales = []core.MaterialSale{
		{ID: "s1", VisitID: "v1", TotalAmount: dec("30")},
		{ID: "s2", VisitID: "v1", TotalAmount: dec("30")},
		{ID: "s3", VisitID: "v1", TotalAmount: dec("30")},
	}
	w := augmented("v2", "cust-x", nil, nil, 4, "10", "0")
	w.Sales = []core.MaterialSale{{ID: "s4", VisitID: "v2", TotalAmount: dec("10")}}

	agg := core.Aggregate([]core.AugmentedVisit{v, w})
	if len(agg.MaterialUsage) != 1 {
		t.Fatalf("expected 1 material usage entry, got %d", len(agg.MaterialUsage))
	}
	u := agg.MaterialUsage[0]
	if u.VisitsWithSales != 2 {
		t.Errorf("visitsWithSales = %d, want 2", u.VisitsWithSales)
	}
	if !u.TotalSales.Equal(dec("100")) {
		t.Errorf("total sales = %s, want 100", u.TotalSales)
	}
}

func TestAggregate_MaterialBreakdown(t *testing.T) {
	branchY := strPtr("branch-y")
	v := augmented("v1", "cust-x", branchY, nil, 3, "100", "0")
	v.Sales = []core.MaterialSale{{ID: "s1", VisitID: "v1", TotalAmount: dec("100")}}
	v.MaterialItems = []core.MaterialLineUsage{
		{ProductName: "rodent bait", Quantity: dec("4"), Unit: "box", Amount: dec("60")},
		{ProductName: "gel bait", Quantity: dec("2"), Unit: "tube", Amount: dec("40")},
		{ProductName: core.UnknownProduct, Quantity: dec("1"), Unit: "pcs", Amount: dec("0")},
	}

	agg := core.Aggregate([]core.AugmentedVisit{v})
	u := agg.MaterialUsage[0]

	if len(u.Materials) != 3 {
		t.Fatalf("expected 3 material entries, got %d", len(u.Materials))
	}
	// Lexicographic product order.
	if u.Materials[0].ProductName != "gel bait" || u.Materials[1].ProductName != "rodent bait" || u.Materials[2].ProductName != core.UnknownProduct {
		t.Errorf("material order = %q %q %q", u.Materials[0].ProductName, u.Materials[1].ProductName, u.Materials[2].ProductName)
	}
	if len(u.Branches) != 1 || u.Branches[0].BranchID != "branch-y" {
		t.Fatalf("expected branch-y usage slice, got %+v", u.Branches)
	}
	if !u.Branches[0].TotalSales.Equal(dec("100")) {
		t.Errorf("branch total sales = %s, want 100", u.Branches[0].TotalSales)
	}
}

func TestAggregate_SortedByTotalDescending(t *testing.T) {
	visits := []core.AugmentedVisit{
		augmented("v1", "cust-a", nil, nil, 3, "0", "10"),
		augmented("v2", "cust-b", nil, nil, 3, "0", "300"),
		augmented("v3", "cust-c", nil, nil, 3, "0", "50"),
	}

	agg := core.Aggregate(visits)
	if agg.Customers[0].CustomerID != "cust-b" || agg.Customers[1].CustomerID != "cust-c" || agg.Customers[2].CustomerID != "cust-a" {
		t.Errorf("customer order = %s %s %s, want b c a", agg.Customers[0].CustomerID, agg.Customers[1].CustomerID, agg.Customers[2].CustomerID)
	}
}

func TestAggregate_DoubleRunIdentical(t *testing.T) {
	op := strPtr("op-1")
	visits := []core.AugmentedVisit{
		augmented("v1", "cust-x", strPtr("branch-y"), op, 3, "150", "100"),
		augmented("v2", "cust-x", nil, op, 5, "0", "100"),
		augmented("v3", "cust-z", strPtr("branch-w"), nil, 5, "20", "0"),
	}
	visits[0].Sales = []core.MaterialSale{{ID: "s1", VisitID: "v1", TotalAmount: dec("150")}}
	visits[0].MaterialItems = []core.MaterialLineUsage{
		{ProductName: "spray", Quantity: dec("1"), Unit: "can", Amount: dec("150")},
	}

	first, err := json.Marshal(core.Aggregate(visits))
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(core.Aggregate(visits))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("two aggregation runs over identical input differ:\n%s\n%s", first, second)
	}
}
