package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallgrid/voltera/internal/auth/domain"
	billingdomain "github.com/smallgrid/voltera/internal/billing/domain"
	clientdomain "github.com/smallgrid/voltera/internal/client/domain"
	"github.com/smallgrid/voltera/internal/clock"
	"github.com/smallgrid/voltera/internal/pricing"
	tariffdomain "github.com/smallgrid/voltera/internal/tariff/domain"
	"github.com/smallgrid/voltera/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDay = time.Date(2024, time.January, 1, 12, 30, 0, 0, time.UTC)

func setupBillingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&authdomain.User{},
		&tariffdomain.Tariff{},
		&clientdomain.Client{},
		&billingdomain.PaymentRequest{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newBillingService(t *testing.T, db *gorm.DB, at time.Time) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Service{
		db:      db,
		log:     zap.NewNop(),
		genID:   node,
		clk:     clock.Fixed{At: at},
		pricing: pricing.DefaultRegistry(),
	}
}

func seedMeteredClient(t *testing.T, db *gorm.DB, node *snowflake.Node, username string, unitPrice decimal.Decimal) (snowflake.ID, snowflake.ID) {
	t.Helper()
	now := time.Now().UTC()

	tariff := tariffdomain.Tariff{
		ID:            node.Generate(),
		Name:          "metered",
		PaymentMethod: tariffdomain.PaymentMethodPerKWh,
		PricePerKWh:   &unitPrice,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.Create(&tariff).Error; err != nil {
		t.Fatalf("create tariff: %v", err)
	}

	user := authdomain.User{
		ID:           node.Generate(),
		Username:     username,
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	client := clientdomain.Client{
		ID:             node.Generate(),
		UserID:         user.ID,
		ClientType:     clientdomain.ClientTypeIndividual,
		TariffID:       &tariff.ID,
		ContractNumber: "contract-" + username,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	return user.ID, client.ID
}

func TestCreateComputesAmountAndDueDate(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := newBillingService(t, db, testDay)
	userID, clientID := seedMeteredClient(t, db, svc.genID, "alice", decimal.RequireFromString("5.00"))

	record, err := svc.Create(context.Background(), userID, billingdomain.CreateRequest{
		MeterReading: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if record.ClientID != clientID {
		t.Fatalf("client id = %v, want %v", record.ClientID, clientID)
	}
	if want := decimal.RequireFromString("50.00"); !record.AmountDue.Equal(want) {
		t.Fatalf("amount due = %s, want %s", record.AmountDue, want)
	}
	if want := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC); !record.RequestDate.Equal(want) {
		t.Fatalf("request date = %v, want %v", record.RequestDate, want)
	}
	if want := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC); !record.PaymentDueDate.Equal(want) {
		t.Fatalf("due date = %v, want %v", record.PaymentDueDate, want)
	}
	if record.IsPaid || record.IsOverdue {
		t.Fatalf("new request must start unpaid and not overdue, got paid=%v overdue=%v", record.IsPaid, record.IsOverdue)
	}
}

func TestCreateFixedTariffIgnoresReading(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := newBillingService(t, db, testDay)

	now := time.Now().UTC()
	flat := decimal.RequireFromString("1200.00")
	tariff := tariffdomain.Tariff{
		ID:            svc.genID.Generate(),
		Name:          "flat",
		PaymentMethod: tariffdomain.PaymentMethodFixed,
		FixedPayment:  &flat,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.Create(&tariff).Error; err != nil {
		t.Fatalf("create tariff: %v", err)
	}
	user := authdomain.User{ID: svc.genID.Generate(), Username: "bob", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	client := clientdomain.Client{
		ID:             svc.genID.Generate(),
		UserID:         user.ID,
		ClientType:     clientdomain.ClientTypeLegal,
		TariffID:       &tariff.ID,
		ContractNumber: "contract-bob",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}

	record, err := svc.Create(context.Background(), user.ID, billingdomain.CreateRequest{
		MeterReading: decimal.NewFromInt(9999),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !record.AmountDue.Equal(flat) {
		t.Fatalf("amount due = %s, want %s", record.AmountDue, flat)
	}
}

func TestCreateRejectsNegativeReading(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := newBillingService(t, db, testDay)
	userID, _ := seedMeteredClient(t, db, svc.genID, "carol", decimal.NewFromInt(5))

	_, err := svc.Create(context.Background(), userID, billingdomain.CreateRequest{
		MeterReading: decimal.NewFromInt(-1),
	})
	if !errors.Is(err, billingdomain.ErrInvalidReading) {
		t.Fatalf("expected invalid reading, got %v", err)
	}

	var count int64
	if err := db.Model(&billingdomain.PaymentRequest{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected reading must not persist, found %d rows", count)
	}
}

func TestCreateRequiresClientWithTariff(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := newBillingService(t, db, testDay)

	// No client record at all.
	_, err := svc.Create(context.Background(), svc.genID.Generate(), billingdomain.CreateRequest{
		MeterReading: decimal.NewFromInt(1),
	})
	if !errors.Is(err, billingdomain.ErrNotEligible) {
		t.Fatalf("expected not eligible for unknown user, got %v", err)
	}

	// Client exists but has no tariff assigned.
	now := time.Now().UTC()
	user := authdomain.User{ID: svc.genID.Generate(), Username: "dave", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	client := clientdomain.Client{
		ID:             svc.genID.Generate(),
		UserID:         user.ID,
		ClientType:     clientdomain.ClientTypeIndividual,
		ContractNumber: "contract-dave",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}

	_, err = svc.Create(context.Background(), user.ID, billingdomain.CreateRequest{
		MeterReading: decimal.NewFromInt(1),
	})
	if !errors.Is(err, billingdomain.ErrNotEligible) {
		t.Fatalf("expected not eligible without tariff, got %v", err)
	}
}

func TestMarkPaidClearsOverdue(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := newBillingService(t, db, testDay)
	userID, clientID := seedMeteredClient(t, db, svc.genID, "erin", decimal.NewFromInt(5))

	// Already past due and flagged.
	record := billingdomain.PaymentRequest{
		ID:             svc.genID.Generate(),
		ClientID:       clientID,
		MeterReading:   decimal.NewFromInt(10),
		RequestDate:    testDay.AddDate(0, -2, 0),
		PaymentDueDate: testDay.AddDate(0, -1, 0),
		AmountDue:      decimal.NewFromInt(50),
		IsOverdue:      true,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("create request: %v", err)
	}

	paid, err := svc.MarkPaid(context.Background(), userID, record.ID.String())
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !paid.IsPaid {
		t.Fatal("request must be paid")
	}
	if paid.IsOverdue {
		t.Fatal("paid request must never stay overdue")
	}
}

func TestMarkPaidRejectsNonOwner(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := newBillingService(t, db, testDay)
	ownerID, clientID := seedMeteredClient(t, db, svc.genID, "frank", decimal.NewFromInt(5))
	otherID, _ := seedMeteredClient(t, db, svc.genID, "grace", decimal.NewFromInt(5))

	record, err := svc.Create(context.Background(), ownerID, billingdomain.CreateRequest{
		MeterReading: decimal.NewFromInt(3),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.MarkPaid(context.Background(), otherID, record.ID.String())
	if !errors.Is(err, billingdomain.ErrUnauthorized) {
		t.Fatalf("expected ownership rejection, got %v", err)
	}

	var stored billingdomain.PaymentRequest
	if err := db.Where("client_id = ?", clientID).First(&stored).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.IsPaid {
		t.Fatal("rejected attempt must not mutate the request")
	}
}

func TestMarkPaidUnknownRequest(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := newBillingService(t, db, testDay)
	userID, _ := seedMeteredClient(t, db, svc.genID, "heidi", decimal.NewFromInt(5))

	if _, err := svc.MarkPaid(context.Background(), userID, "not-a-number"); !errors.Is(err, billingdomain.ErrInvalidID) {
		t.Fatalf("expected invalid id, got %v", err)
	}
	missing := svc.genID.Generate()
	if _, err := svc.MarkPaid(context.Background(), userID, missing.String()); !errors.Is(err, billingdomain.ErrRequestNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReconcileOverdueFlagsAndClears(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := newBillingService(t, db, testDay)
	_, clientID := seedMeteredClient(t, db, svc.genID, "ivan", decimal.NewFromInt(5))

	today := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	mk := func(due time.Time, paid, overdue bool) snowflake.ID {
		record := billingdomain.PaymentRequest{
			ID:             svc.genID.Generate(),
			ClientID:       clientID,
			MeterReading:   decimal.NewFromInt(1),
			RequestDate:    due.AddDate(0, 0, -billingdomain.DueDateOffsetDays),
			PaymentDueDate: due,
			AmountDue:      decimal.NewFromInt(5),
			IsPaid:         paid,
			IsOverdue:      overdue,
		}
		if err := db.Create(&record).Error; err != nil {
			t.Fatalf("create request: %v", err)
		}
		return record.ID
	}

	pastUnpaid := mk(today.AddDate(0, 0, -1), false, false)   // must be flagged
	pastPaid := mk(today.AddDate(0, 0, -1), true, true)       // paid, must be cleared
	futureFlagged := mk(today.AddDate(0, 0, 5), false, true)  // stale flag, must be cleared
	futureUnpaid := mk(today.AddDate(0, 0, 5), false, false)  // untouched
	dueToday := mk(today, false, false)                       // due today is not yet overdue

	result, err := svc.ReconcileOverdue(context.Background(), testDay)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Flagged != 1 || result.Cleared != 2 {
		t.Fatalf("result = %+v, want 1 flagged / 2 cleared", result)
	}

	wantOverdue := map[snowflake.ID]bool{
		pastUnpaid:    true,
		pastPaid:      false,
		futureFlagged: false,
		futureUnpaid:  false,
		dueToday:      false,
	}
	for id, want := range wantOverdue {
		var record billingdomain.PaymentRequest
		if err := db.Where("id = ?", id).First(&record).Error; err != nil {
			t.Fatalf("reload %v: %v", id, err)
		}
		if record.IsOverdue != want {
			t.Fatalf("request %v overdue = %v, want %v", id, record.IsOverdue, want)
		}
	}

	// A second pass at the same date touches nothing.
	again, err := svc.ReconcileOverdue(context.Background(), testDay)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if again.Flagged != 0 || again.Cleared != 0 {
		t.Fatalf("second pass must be a no-op, got %+v", again)
	}
}

func TestListByClientReconcilesAndOrders(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := newBillingService(t, db, testDay)
	_, clientID := seedMeteredClient(t, db, svc.genID, "judy", decimal.NewFromInt(5))
	_, otherClientID := seedMeteredClient(t, db, svc.genID, "kate", decimal.NewFromInt(5))

	base := time.Date(2023, time.December, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		record := billingdomain.PaymentRequest{
			ID:             svc.genID.Generate(),
			ClientID:       clientID,
			MeterReading:   decimal.NewFromInt(int64(i)),
			RequestDate:    base,
			PaymentDueDate: base.AddDate(0, 0, -1), // already past due
			AmountDue:      decimal.NewFromInt(5),
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
			UpdatedAt:      base.Add(time.Duration(i) * time.Hour),
		}
		if err := db.Create(&record).Error; err != nil {
			t.Fatalf("create request: %v", err)
		}
	}
	other := billingdomain.PaymentRequest{
		ID:             svc.genID.Generate(),
		ClientID:       otherClientID,
		MeterReading:   decimal.NewFromInt(1),
		RequestDate:    base,
		PaymentDueDate: base.AddDate(0, 1, 0),
		AmountDue:      decimal.NewFromInt(5),
		CreatedAt:      base,
		UpdatedAt:      base,
	}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("create other request: %v", err)
	}

	page, err := svc.ListByClient(context.Background(), clientID, pagination.Pagination{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 3 {
		t.Fatalf("total = %d, want 3", page.TotalCount)
	}
	if len(page.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(page.Items))
	}
	if !page.Items[0].CreatedAt.After(page.Items[1].CreatedAt) {
		t.Fatal("items must be ordered newest first")
	}
	for _, item := range page.Items {
		if item.ClientID != clientID {
			t.Fatalf("leaked request from client %v", item.ClientID)
		}
		if !item.IsOverdue {
			t.Fatal("listing must reconcile overdue flags before returning")
		}
	}
}
