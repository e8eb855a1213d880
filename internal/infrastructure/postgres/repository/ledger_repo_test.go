package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedOrganization(t *testing.T, db *gorm.DB) *domain.Organization {
	t.Helper()
	org := &domain.Organization{
		ID:               "org_1",
		GatewayAccountID: "acct_1",
		SettlementModel:  domain.SettlementDirect,
		Currency:         "inr",
		OrderStoreURL:    "https://orders.example/v1/graphql",
		OrderStoreSecret: "secret",
		Fees:             domain.FeeSchedule{FixedFee: 50, PercentFee: decimal.RequireFromString("2.5")},
	}
	require.NoError(t, db.Create(mappers.ToGORMOrganization(org)).Error)
	return org
}

func newPendingRequest() *domain.PaymentRequest {
	return &domain.PaymentRequest{
		ID:                 "pr_1",
		OrganizationID:     "org_1",
		Amount:             10000,
		TransferAmount:     9700,
		Currency:           "inr",
		SettlementModel:    domain.SettlementDirect,
		PaymentMethodToken: "pm_1",
		CustomerGatewayID:  "cus_1",
		TransferGroup:      "cart_1",
		Status:             domain.StatusPending,
	}
}

func TestLedgerRepository_Organization(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDefaultLedgerRepository(db)
	seedOrganization(t, db)
	ctx := context.Background()

	org, err := repo.GetOrganization(ctx, "org_1")
	require.NoError(t, err)
	assert.Equal(t, "acct_1", org.GatewayAccountID)
	assert.Equal(t, domain.SettlementDirect, org.SettlementModel)
	assert.True(t, decimal.RequireFromString("2.5").Equal(org.Fees.PercentFee))
	assert.Equal(t, int64(50), org.Fees.FixedFee)

	byAccount, err := repo.GetOrganizationByGatewayAccount(ctx, "acct_1")
	require.NoError(t, err)
	assert.Equal(t, "org_1", byAccount.ID)

	_, err = repo.GetOrganization(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetOrganizationByGatewayAccount(ctx, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedgerRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDefaultLedgerRepository(db)
	seedOrganization(t, db)
	ctx := context.Background()

	require.NoError(t, repo.CreatePaymentRequest(ctx, newPendingRequest()))

	got, err := repo.GetPaymentRequest(ctx, "pr_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, int64(9700), got.TransferAmount)
	assert.Empty(t, got.StatusHistory)

	byCart, err := repo.FindPaymentRequest(ctx, "org_1", "cart_1")
	require.NoError(t, err)
	assert.Equal(t, "pr_1", byCart.ID)

	_, err = repo.FindPaymentRequest(ctx, "org_1", "cart_2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	dup := newPendingRequest()
	dup.ID = "pr_2"
	assert.Error(t, repo.CreatePaymentRequest(ctx, dup), "one payment request per cart")
}

func TestLedgerRepository_RecordCheckpointAppendsHistory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDefaultLedgerRepository(db)
	seedOrganization(t, db)
	ctx := context.Background()
	require.NoError(t, repo.CreatePaymentRequest(ctx, newPendingRequest()))

	got, err := repo.RecordCheckpoint(ctx, "pr_1", domain.Checkpoint{
		Name:            "charge.created",
		Status:          domain.StatusRequiresAction,
		GatewayChargeID: "pi_1",
		Payload:         json.RawMessage(`{"id":"pi_1","status":"requires_action"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRequiresAction, got.Status)
	assert.Equal(t, "pi_1", got.GatewayChargeID)
	assert.True(t, got.HasChargeForAttempt())
	require.Len(t, got.StatusHistory, 1)
	assert.Equal(t, int64(1), got.StatusHistory[0].Seq)
	assert.JSONEq(t, `{"id":"pi_1","status":"requires_action"}`, string(got.StatusHistory[0].Payload))

	got, err = repo.RecordCheckpoint(ctx, "pr_1", domain.Checkpoint{
		Name:    "charge.retrieved",
		Status:  domain.StatusSucceeded,
		Payload: json.RawMessage(`{"id":"pi_1","status":"succeeded"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, got.Status)
	require.Len(t, got.StatusHistory, 2)
	assert.Equal(t, int64(2), got.StatusHistory[0].Seq, "newest entry first")
	assert.Equal(t, "charge.retrieved", got.StatusHistory[0].Source)

	byGateway, err := repo.FindPaymentRequestByGatewayID(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "pr_1", byGateway.ID)
}

func TestLedgerRepository_TerminalStatusIsNotRegressed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDefaultLedgerRepository(db)
	seedOrganization(t, db)
	ctx := context.Background()
	require.NoError(t, repo.CreatePaymentRequest(ctx, newPendingRequest()))

	_, err := repo.RecordCheckpoint(ctx, "pr_1", domain.Checkpoint{Name: "charge.created", Status: domain.StatusSucceeded})
	require.NoError(t, err)

	got, err := repo.RecordCheckpoint(ctx, "pr_1", domain.Checkpoint{
		Name:    "event.payment_intent.requires_action",
		Status:  domain.StatusRequiresAction,
		Payload: json.RawMessage(`{"late":true}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, got.Status)
	require.Len(t, got.StatusHistory, 2)
	assert.Equal(t, domain.StatusRequiresAction, got.StatusHistory[0].Status, "observed status is still recorded")
}

func TestLedgerRepository_CapturedCheckpointSettlesTerminalRequest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDefaultLedgerRepository(db)
	seedOrganization(t, db)
	ctx := context.Background()
	require.NoError(t, repo.CreatePaymentRequest(ctx, newPendingRequest()))

	_, err := repo.RecordCheckpoint(ctx, "pr_1", domain.Checkpoint{Name: "charge.created", Status: domain.StatusFailed, GatewayChargeID: "pi_2"})
	require.NoError(t, err)

	got, err := repo.RecordCheckpoint(ctx, "pr_1", domain.Checkpoint{Name: "event.payment_intent.succeeded", Status: domain.StatusSucceeded, GatewayChargeID: "pi_1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status, "a plain checkpoint cannot leave a terminal status")

	got, err = repo.RecordCheckpoint(ctx, "pr_1", domain.Checkpoint{
		Name:            "charge.captured_late",
		Status:          domain.StatusSucceeded,
		GatewayChargeID: "pi_1",
		Captured:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, got.Status)
	assert.Equal(t, "pi_1", got.GatewayChargeID)
	require.Len(t, got.StatusHistory, 3)
}

func TestLedgerRepository_Reattempt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDefaultLedgerRepository(db)
	seedOrganization(t, db)
	ctx := context.Background()
	require.NoError(t, repo.CreatePaymentRequest(ctx, newPendingRequest()))

	_, err := repo.RecordCheckpoint(ctx, "pr_1", domain.Checkpoint{Name: "charge.created", Status: domain.StatusCancelled, GatewayChargeID: "pi_1"})
	require.NoError(t, err)

	got, err := repo.Reattempt(ctx, "pr_1", "pm_2")
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryAttempt)
	assert.Equal(t, "pm_2", got.PaymentMethodToken)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, "pi_1", got.GatewayChargeID)
	assert.False(t, got.HasChargeForAttempt())
	assert.Equal(t, "cart_1", got.TransferGroup)
	assert.Equal(t, int64(10000), got.Amount)
	require.Len(t, got.StatusHistory, 2)
	assert.Equal(t, "reattempt", got.StatusHistory[0].Source)

	var count int64
	require.NoError(t, db.Model(&models.PaymentRequestModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = repo.Reattempt(ctx, "missing", "pm")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedgerRepository_HistoryNeverShrinks(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDefaultLedgerRepository(db)
	seedOrganization(t, db)
	ctx := context.Background()
	require.NoError(t, repo.CreatePaymentRequest(ctx, newPendingRequest()))

	steps := []domain.Checkpoint{
		{Name: "invoice.created", GatewayInvoiceID: "in_1"},
		{Name: "invoice.finalized"},
		{Name: "invoice.payment_attempted", GatewayChargeID: "pi_1"},
		{Name: "charge.retrieved", Status: domain.StatusProcessing},
		{Name: "charge.retrieved", Status: domain.StatusProcessing},
		{Name: "event.invoice.paid", Status: domain.StatusSucceeded},
		{Name: "event.invoice.payment_failed", Status: domain.StatusFailed},
	}
	last := 0
	for _, cp := range steps {
		got, err := repo.RecordCheckpoint(ctx, "pr_1", cp)
		require.NoError(t, err)
		assert.Greater(t, len(got.StatusHistory), last)
		last = len(got.StatusHistory)
	}

	got, err := repo.GetPaymentRequest(ctx, "pr_1")
	require.NoError(t, err)
	assert.Len(t, got.StatusHistory, len(steps))
	assert.Equal(t, domain.StatusSucceeded, got.Status)
	assert.Equal(t, "in_1", got.GatewayInvoiceID)
	for i, e := range got.StatusHistory {
		assert.Equal(t, int64(len(steps)-i), e.Seq)
	}
}

func TestLedgerRepository_CustomerContact(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDefaultLedgerRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.CustomerContactModel{
		PaymentMethodToken: "pm_1", FirstName: "Ann", LastName: "Lee", PhoneNumber: "9876543210",
	}).Error)

	contact, err := repo.GetCustomerContact(ctx, "pm_1")
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", contact.DisplayName())

	_, err = repo.GetCustomerContact(ctx, "pm_x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedgerRepository_OrderSyncBacklog(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDefaultLedgerRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.AddPendingOrderSync(ctx, "pr_1", "order store down"))
	require.NoError(t, repo.AddPendingOrderSync(ctx, "pr_2", "timeout"))
	require.NoError(t, repo.AddPendingOrderSync(ctx, "pr_1", "still down"))

	pending, err := repo.ListPendingOrderSyncs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	byID := map[string]domain.PendingOrderSync{}
	for _, p := range pending {
		byID[p.PaymentRequestID] = p
	}
	assert.Equal(t, 2, byID["pr_1"].Attempts)
	assert.Equal(t, "still down", byID["pr_1"].Reason)
	assert.Equal(t, 1, byID["pr_2"].Attempts)

	require.NoError(t, repo.ResolvePendingOrderSync(ctx, "pr_1"))
	pending, err = repo.ListPendingOrderSyncs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "pr_2", pending[0].PaymentRequestID)
}
