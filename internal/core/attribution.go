package core

import (
	"log"

	"github.com/shopspring/decimal"
)

// Attribute converts a raw visit cohort into augmented visits carrying
// material, service, and total revenue.
//
// The cohort must be the exact filtered visit set for the selected month:
// it doubles as the denominator base for monthly-fee distribution, so a
// narrower filter deliberately concentrates a monthly fee over fewer visits.
//
// Service revenue is picked by strict precedence, first applicable rule wins:
//  1. distributed branch monthly fee
//  2. distributed customer monthly fee
//  3. branch per-visit fee
//  4. customer per-visit fee
//  5. zero
//
// Rules are mutually exclusive and never summed, so a customer billed
// monthly is never also billed per visit. Missing pricing records, missing
// product references, and empty cohorts all degrade to zero-valued fields.
// Deterministic and idempotent for a fixed (cohort, pricing) pair.
func Attribute(cohort []Visit, customerPricing map[string]CustomerPricing, branchPricing map[string]BranchPricing) []AugmentedVisit {
	visitsByCustomer := make(map[string]int64, len(customerPricing))
	visitsByBranch := make(map[string]int64, len(branchPricing))
	for _, v := range cohort {
		if v.CustomerID != "" {
			visitsByCustomer[v.CustomerID]++
		}
		if v.BranchID != nil {
			visitsByBranch[*v.BranchID]++
		}
	}

	// A monthly fee is spread evenly across the owner's cohort visits.
	// No visits in the cohort means no distributed revenue: a flat fee is
	// never invented for an owner that was not serviced this month.
	distributedByCustomer := make(map[string]decimal.Decimal, len(customerPricing))
	for id, p := range customerPricing {
		if p.MonthlyPrice == nil || !p.MonthlyPrice.IsPositive() {
			continue
		}
		if n := visitsByCustomer[id]; n > 0 {
			distributedByCustomer[id] = p.MonthlyPrice.Div(decimal.NewFromInt(n))
		}
	}
	distributedByBranch := make(map[string]decimal.Decimal, len(branchPricing))
	for id, p := range branchPricing {
		if p.MonthlyPrice == nil || !p.MonthlyPrice.IsPositive() {
			continue
		}
		if n := visitsByBranch[id]; n > 0 {
			distributedByBranch[id] = p.MonthlyPrice.Div(decimal.NewFromInt(n))
		}
	}

	out := make([]AugmentedVisit, 0, len(cohort))
	for _, v := range cohort {
		av := AugmentedVisit{Visit: v}
		av.MaterialRevenue, av.MaterialItems = sumMaterialSales(v)
		av.ServiceRevenue = pickServiceRevenue(v, distributedByCustomer, distributedByBranch, customerPricing, branchPricing)
		av.TotalRevenue = av.MaterialRevenue.Add(av.ServiceRevenue)
		out = append(out, av)
	}
	return out
}

// sumMaterialSales totals a visit's sale amounts and flattens its line items
// for downstream material-usage breakdowns. A negative sale total or a
// negative line quantity is excluded from the sums and logged; the rest of
// the visit still counts.
func sumMaterialSales(v Visit) (decimal.Decimal, []MaterialLineUsage) {
	total := decimal.Zero
	var items []MaterialLineUsage
	for _, sale := range v.Sales {
		if sale.TotalAmount.IsNegative() {
			log.Printf("attribution: sale %s on visit %s has negative total %s, excluded", sale.ID, v.ID, sale.TotalAmount)
			continue
		}
		total = total.Add(sale.TotalAmount)
		for _, item := range sale.Items {
			if item.Quantity.IsNegative() {
				log.Printf("attribution: line item %q on sale %s has negative quantity %s, excluded", item.ProductName, sale.ID, item.Quantity)
				continue
			}
			name := item.ProductName
			if name == "" {
				name = UnknownProduct
			}
			items = append(items, MaterialLineUsage{
				ProductName: name,
				Quantity:    item.Quantity,
				Unit:        item.Unit,
				Amount:      item.Quantity.Mul(item.UnitPrice),
			})
		}
	}
	return total, items
}

func pickServiceRevenue(
	v Visit,
	distributedByCustomer, distributedByBranch map[string]decimal.Decimal,
	customerPricing map[string]CustomerPricing,
	branchPricing map[string]BranchPricing,
) decimal.Decimal {
	if v.BranchID != nil {
		if d, ok := distributedByBranch[*v.BranchID]; ok && d.IsPositive() {
			return d
		}
	}
	if d, ok := distributedByCustomer[v.CustomerID]; ok {
		return d
	}
	if v.BranchID != nil {
		if p, ok := branchPricing[*v.BranchID]; ok && p.PerVisitPrice != nil {
			return *p.PerVisitPrice
		}
	}
	if p, ok := customerPricing[v.CustomerID]; ok && p.PerVisitPrice != nil {
		return *p.PerVisitPrice
	}
	return decimal.Zero
}
