package core_test

import (
	"context"
	"os"
	"testing"
	"time"

	"pestcrm/internal/core"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live CRM database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE sale_line_items, material_sales, visits, monthly_schedules,
		               customer_pricing, branch_pricing, products, branches, operators, customers CASCADE;

		INSERT INTO customers (id, name) VALUES
		('cust-x', 'Harbor Mills Bakery'),
		('cust-z', 'Northgate Hotels');

		INSERT INTO branches (id, customer_id, name) VALUES
		('branch-y', 'cust-x', 'Harbor Mills — Dockside');

		INSERT INTO operators (id, name) VALUES
		('op-1', 'Dana Reyes');

		INSERT INTO products (id, name, unit) VALUES
		('prod-gel', 'Cockroach gel bait', 'tube');

		INSERT INTO customer_pricing (customer_id, monthly_price, per_visit_price) VALUES
		('cust-x', 200, NULL),
		('cust-z', NULL, 55);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func seedVisit(t *testing.T, pool *pgxpool.Pool, customerID string, branchID, operatorID *string, day int, status core.VisitStatus) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO visits (id, customer_id, branch_id, operator_id, visit_date, status, is_checked)
		VALUES ($1, $2, $3, $4, $5, $6, false)`,
		id, customerID, branchID, operatorID,
		time.Date(2026, 3, day, 10, 0, 0, 0, time.UTC), string(status))
	if err != nil {
		t.Fatalf("Failed to seed visit: %v", err)
	}
	return id
}

func TestEngine_EndToEnd(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	branchY := "branch-y"
	op1 := "op-1"

	visitA := seedVisit(t, pool, "cust-x", nil, &op1, 3, core.VisitCompleted)
	visitB := seedVisit(t, pool, "cust-x", &branchY, &op1, 5, core.VisitCompleted)
	seedVisit(t, pool, "cust-z", nil, nil, 7, core.VisitPlanned)

	saleID := uuid.NewString()
	if _, err := pool.Exec(ctx, `
		INSERT INTO material_sales (id, visit_id, total_amount) VALUES ($1, $2, 150)`,
		saleID, visitB); err != nil {
		t.Fatalf("Failed to seed sale: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO sale_line_items (id, sale_id, product_id, quantity, unit_price)
		VALUES ($1, $2, 'prod-gel', 3, 50)`,
		uuid.NewString(), saleID); err != nil {
		t.Fatalf("Failed to seed line item: %v", err)
	}

	visitSvc := core.NewVisitService(pool)
	pricingSvc := core.NewPricingService(pool)

	from, to := core.MonthWindow(2026, time.March, time.UTC)
	cohort, err := visitSvc.ListVisits(ctx, from, to, core.VisitFilters{})
	if err != nil {
		t.Fatalf("ListVisits failed: %v", err)
	}
	if len(cohort) != 3 {
		t.Fatalf("expected 3 visits, got %d", len(cohort))
	}

	customerPricing, err := pricingSvc.CustomerPricing(ctx)
	if err != nil {
		t.Fatalf("CustomerPricing failed: %v", err)
	}
	branchPricing, err := pricingSvc.BranchPricing(ctx)
	if err != nil {
		t.Fatalf("BranchPricing failed: %v", err)
	}

	augmented := core.Attribute(cohort, customerPricing, branchPricing)
	byID := map[string]core.AugmentedVisit{}
	for _, av := range augmented {
		byID[av.ID] = av
	}

	// Customer X: monthly 200 over 2 cohort visits = 100 each.
	if got := byID[visitA]; !got.ServiceRevenue.Equal(dec("100")) || !got.TotalRevenue.Equal(dec("100")) {
		t.Errorf("visit A: service=%s total=%s, want 100/100", got.ServiceRevenue, got.TotalRevenue)
	}
	if got := byID[visitB]; !got.MaterialRevenue.Equal(dec("150")) || !got.TotalRevenue.Equal(dec("250")) {
		t.Errorf("visit B: material=%s total=%s, want 150/250", got.MaterialRevenue, got.TotalRevenue)
	}
	if got := byID[visitB]; len(got.MaterialItems) != 1 || got.MaterialItems[0].ProductName != "Cockroach gel bait" {
		t.Errorf("visit B material items = %+v, want the seeded gel bait line", got.MaterialItems)
	}

	agg := core.Aggregate(augmented)
	total := dec("0")
	for _, c := range agg.Customers {
		total = total.Add(c.Total)
	}
	// 100 + 250 + 55 (cust-z per-visit).
	if !total.Equal(dec("405")) {
		t.Errorf("customer rollup total = %s, want 405", total)
	}
}

func TestVisitService_Filters(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	branchY := "branch-y"
	op1 := "op-1"
	seedVisit(t, pool, "cust-x", &branchY, &op1, 3, core.VisitCompleted)
	seedVisit(t, pool, "cust-x", nil, nil, 4, core.VisitPlanned)
	seedVisit(t, pool, "cust-z", nil, nil, 5, core.VisitCompleted)

	visitSvc := core.NewVisitService(pool)
	from, to := core.MonthWindow(2026, time.March, time.UTC)

	status := core.VisitCompleted
	got, err := visitSvc.ListVisits(ctx, from, to, core.VisitFilters{Status: &status})
	if err != nil {
		t.Fatalf("ListVisits failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("status filter: expected 2 visits, got %d", len(got))
	}

	got, err = visitSvc.ListVisits(ctx, from, to, core.VisitFilters{BranchID: &branchY})
	if err != nil {
		t.Fatalf("ListVisits failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("branch filter: expected 1 visit, got %d", len(got))
	}

	custZ := "cust-z"
	got, err = visitSvc.ListVisits(ctx, from, to, core.VisitFilters{CustomerID: &custZ})
	if err != nil {
		t.Fatalf("ListVisits failed: %v", err)
	}
	if len(got) != 1 || got[0].CustomerName != "Northgate Hotels" {
		t.Errorf("customer filter: got %+v", got)
	}
}

func TestPricingService_Schedules(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	if _, err := pool.Exec(ctx, `
		INSERT INTO monthly_schedules (id, operator_id, branch_id, year, month, visits_required)
		VALUES ('sch-1', 'op-1', 'branch-y', 2026, 3, 4)`); err != nil {
		t.Fatalf("Failed to seed schedule: %v", err)
	}

	branchY := "branch-y"
	op1 := "op-1"
	for day := 3; day <= 5; day++ {
		seedVisit(t, pool, "cust-x", &branchY, &op1, day, core.VisitCompleted)
	}

	pricingSvc := core.NewPricingService(pool)
	schedules, err := pricingSvc.MonthlySchedules(ctx, 2026, 3)
	if err != nil {
		t.Fatalf("MonthlySchedules failed: %v", err)
	}
	if len(schedules) != 1 || schedules[0].OperatorName != "Dana Reyes" {
		t.Fatalf("schedules = %+v", schedules)
	}

	visitSvc := core.NewVisitService(pool)
	from, to := core.MonthWindow(2026, time.March, time.UTC)
	cohort, err := visitSvc.ListVisits(ctx, from, to, core.VisitFilters{})
	if err != nil {
		t.Fatalf("ListVisits failed: %v", err)
	}

	progress := core.TrackSchedules(schedules, cohort, core.ScheduleTrackerOptions{})
	if progress[0].DoneCount != 3 || progress[0].Remaining != 1 || progress[0].IsComplete {
		t.Errorf("progress = %+v, want done 3 remaining 1 incomplete", progress[0])
	}
}
