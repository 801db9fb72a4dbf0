package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Aggregate rolls an attributed visit list up into the four views the
// calendar screen shows: per-customer revenue, per-branch revenue,
// per-operator daily/monthly revenue, and per-customer material usage.
//
// One streaming pass accumulates into keyed maps; finalization converts the
// maps into deterministically ordered slices (revenue rollups by total
// descending, id as tie-break; operator days by date; material breakdowns by
// product name) and discards the accumulators. A visit missing a branch or
// operator reference is skipped only for the rollups it cannot be keyed
// into; it always reaches the customer rollup.
func Aggregate(visits []AugmentedVisit) Aggregation {
	customers := make(map[string]*CustomerRevenueRollup)
	branches := make(map[string]*BranchRevenueRollup)
	operators := make(map[string]*operatorAcc)
	usage := make(map[string]*materialAcc)

	for i := range visits {
		v := &visits[i]

		c, ok := customers[v.CustomerID]
		if !ok {
			c = &CustomerRevenueRollup{CustomerID: v.CustomerID, Name: v.CustomerName}
			customers[v.CustomerID] = c
		}
		c.Material = c.Material.Add(v.MaterialRevenue)
		c.Service = c.Service.Add(v.ServiceRevenue)
		c.Total = c.Total.Add(v.TotalRevenue)
		c.VisitCount++

		if v.BranchID != nil {
			b, ok := branches[*v.BranchID]
			if !ok {
				b = &BranchRevenueRollup{BranchID: *v.BranchID, Name: strOrEmpty(v.BranchName)}
				branches[*v.BranchID] = b
			}
			b.Material = b.Material.Add(v.MaterialRevenue)
			b.Service = b.Service.Add(v.ServiceRevenue)
			b.Total = b.Total.Add(v.TotalRevenue)
			b.VisitCount++
		}

		if v.OperatorID != nil {
			o, ok := operators[*v.OperatorID]
			if !ok {
				o = &operatorAcc{id: *v.OperatorID, name: strOrEmpty(v.OperatorName), days: map[string]*OperatorDay{}}
				operators[*v.OperatorID] = o
			}
			o.total = o.total.Add(v.TotalRevenue)
			day := v.VisitDate.Format("2006-01-02")
			d, ok := o.days[day]
			if !ok {
				d = &OperatorDay{Date: day}
				o.days[day] = d
			}
			d.Total = d.Total.Add(v.TotalRevenue)
			d.VisitCount++
		}

		accumulateMaterialUsage(usage, v)
	}

	return Aggregation{
		Customers:     finalizeCustomers(customers),
		Branches:      finalizeBranches(branches),
		Operators:     finalizeOperators(operators),
		MaterialUsage: finalizeMaterialUsage(usage),
	}
}

// ── Accumulators ──────────────────────────────────────────────────────────────

type operatorAcc struct {
	id    string
	name  string
	total decimal.Decimal
	days  map[string]*OperatorDay
}

type breakdownAcc struct {
	name            string
	totalSales      decimal.Decimal
	visitsWithSales map[string]struct{}
	materials       map[string]*MaterialBreakdownEntry
}

type materialAcc struct {
	breakdownAcc
	branches map[string]*breakdownAcc
}

func newBreakdownAcc(name string) breakdownAcc {
	return breakdownAcc{
		name:            name,
		visitsWithSales: map[string]struct{}{},
		materials:       map[string]*MaterialBreakdownEntry{},
	}
}

func (a *breakdownAcc) add(v *AugmentedVisit) {
	if len(v.Sales) == 0 && v.MaterialRevenue.IsZero() {
		return
	}
	a.totalSales = a.totalSales.Add(v.MaterialRevenue)
	// Keyed by visit id, not incremented per sale: one visit with several
	// MaterialSale records must count once.
	if len(v.Sales) > 0 {
		a.visitsWithSales[v.ID] = struct{}{}
	}
	for _, item := range v.MaterialItems {
		m, ok := a.materials[item.ProductName]
		if !ok {
			m = &MaterialBreakdownEntry{ProductName: item.ProductName, Unit: item.Unit}
			a.materials[item.ProductName] = m
		}
		m.Quantity = m.Quantity.Add(item.Quantity)
		m.Amount = m.Amount.Add(item.Amount)
	}
}

func accumulateMaterialUsage(usage map[string]*materialAcc, v *AugmentedVisit) {
	if len(v.Sales) == 0 {
		return
	}
	u, ok := usage[v.CustomerID]
	if !ok {
		u = &materialAcc{breakdownAcc: newBreakdownAcc(v.CustomerName), branches: map[string]*breakdownAcc{}}
		usage[v.CustomerID] = u
	}
	u.add(v)
	if v.BranchID != nil {
		b, ok := u.branches[*v.BranchID]
		if !ok {
			acc := newBreakdownAcc(strOrEmpty(v.BranchName))
			b = &acc
			u.branches[*v.BranchID] = b
		}
		b.add(v)
	}
}

// ── Finalization ──────────────────────────────────────────────────────────────

func finalizeCustomers(m map[string]*CustomerRevenueRollup) []CustomerRevenueRollup {
	out := make([]CustomerRevenueRollup, 0, len(m))
	for _, c := range m {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	return out
}

func finalizeBranches(m map[string]*BranchRevenueRollup) []BranchRevenueRollup {
	out := make([]BranchRevenueRollup, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].BranchID < out[j].BranchID
	})
	return out
}

func finalizeOperators(m map[string]*operatorAcc) []OperatorRevenueSummary {
	out := make([]OperatorRevenueSummary, 0, len(m))
	for _, o := range m {
		days := make([]OperatorDay, 0, len(o.days))
		for _, d := range o.days {
			days = append(days, *d)
		}
		sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
		out = append(out, OperatorRevenueSummary{
			OperatorID:   o.id,
			Name:         o.name,
			MonthlyTotal: o.total,
			Days:         days,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MonthlyTotal.Equal(out[j].MonthlyTotal) {
			return out[i].MonthlyTotal.GreaterThan(out[j].MonthlyTotal)
		}
		return out[i].OperatorID < out[j].OperatorID
	})
	return out
}

func finalizeBreakdown(a *breakdownAcc) (int, []MaterialBreakdownEntry) {
	materials := make([]MaterialBreakdownEntry, 0, len(a.materials))
	for _, m := range a.materials {
		materials = append(materials, *m)
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].ProductName < materials[j].ProductName })
	return len(a.visitsWithSales), materials
}

func finalizeMaterialUsage(m map[string]*materialAcc) []CustomerMaterialUsage {
	out := make([]CustomerMaterialUsage, 0, len(m))
	for id, u := range m {
		visits, materials := finalizeBreakdown(&u.breakdownAcc)
		cu := CustomerMaterialUsage{
			CustomerID:      id,
			Name:            u.name,
			TotalSales:      u.totalSales,
			VisitsWithSales: visits,
			Materials:       materials,
		}
		for bid, b := range u.branches {
			bv, bm := finalizeBreakdown(b)
			cu.Branches = append(cu.Branches, BranchMaterialUsage{
				BranchID:        bid,
				Name:            b.name,
				TotalSales:      b.totalSales,
				VisitsWithSales: bv,
				Materials:       bm,
			})
		}
		sort.Slice(cu.Branches, func(i, j int) bool { return cu.Branches[i].BranchID < cu.Branches[j].BranchID })
		out = append(out, cu)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalSales.Equal(out[j].TotalSales) {
			return out[i].TotalSales.GreaterThan(out[j].TotalSales)
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	return out
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
