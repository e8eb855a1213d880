package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/postgres/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLedgerRepository is the ledger store. History rows are only ever
// inserted; scalar status changes go through the forward-only guard.
type DefaultLedgerRepository struct {
	DB *gorm.DB
}

func NewDefaultLedgerRepository(db *gorm.DB) *DefaultLedgerRepository {
	return &DefaultLedgerRepository{DB: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func (r *DefaultLedgerRepository) GetOrganization(ctx context.Context, organizationID string) (*domain.Organization, error) {
	var org models.OrganizationModel
	if err := r.DB.WithContext(ctx).First(&org, "id = ?", organizationID).Error; err != nil {
		return nil, notFound(err)
	}
	return mappers.ToDomainOrganization(&org), nil
}

func (r *DefaultLedgerRepository) GetOrganizationByGatewayAccount(ctx context.Context, gatewayAccountID string) (*domain.Organization, error) {
	if gatewayAccountID == "" {
		return nil, domain.ErrNotFound
	}
	var org models.OrganizationModel
	if err := r.DB.WithContext(ctx).First(&org, "gateway_account_id = ?", gatewayAccountID).Error; err != nil {
		return nil, notFound(err)
	}
	return mappers.ToDomainOrganization(&org), nil
}

func (r *DefaultLedgerRepository) CreatePaymentRequest(ctx context.Context, req *domain.PaymentRequest) error {
	model := mappers.ToGORMPaymentRequest(req)
	if model.Status == "" {
		model.Status = string(domain.StatusPending)
	}
	if err := r.DB.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	req.CreatedAt = model.CreatedAt
	req.UpdatedAt = model.UpdatedAt
	return nil
}

func withHistory(db *gorm.DB) *gorm.DB {
	return db.Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq DESC")
	})
}

func (r *DefaultLedgerRepository) GetPaymentRequest(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	return r.loadRequest(r.DB.WithContext(ctx), id)
}

func (r *DefaultLedgerRepository) loadRequest(db *gorm.DB, id string) (*domain.PaymentRequest, error) {
	var model models.PaymentRequestModel
	if err := withHistory(db).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return mappers.ToDomainPaymentRequest(&model), nil
}

func (r *DefaultLedgerRepository) FindPaymentRequest(ctx context.Context, organizationID, transferGroup string) (*domain.PaymentRequest, error) {
	var model models.PaymentRequestModel
	err := withHistory(r.DB.WithContext(ctx)).
		Where("organization_id = ? AND transfer_group = ?", organizationID, transferGroup).
		First(&model).Error
	if err != nil {
		return nil, notFound(err)
	}
	return mappers.ToDomainPaymentRequest(&model), nil
}

func (r *DefaultLedgerRepository) FindPaymentRequestByGatewayID(ctx context.Context, gatewayID string) (*domain.PaymentRequest, error) {
	if gatewayID == "" {
		return nil, domain.ErrNotFound
	}
	var model models.PaymentRequestModel
	err := withHistory(r.DB.WithContext(ctx)).
		Where("gateway_charge_id = ? OR gateway_invoice_id = ?", gatewayID, gatewayID).
		Order("updated_at DESC").
		First(&model).Error
	if err != nil {
		return nil, notFound(err)
	}
	return mappers.ToDomainPaymentRequest(&model), nil
}

func (r *DefaultLedgerRepository) RecordCheckpoint(ctx context.Context, id string, cp domain.Checkpoint) (*domain.PaymentRequest, error) {
	var out *domain.PaymentRequest

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.PaymentRequestModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "id = ?", id).Error; err != nil {
			return notFound(err)
		}

		now := time.Now()
		seq, err := appendHistory(tx, &current, cp.Status, cp.Name, cp.Payload, now)
		if err != nil {
			return err
		}

		updates := map[string]any{
			"history_seq": seq,
			"updated_at":  now,
		}
		if cp.Moves(domain.PaymentStatus(current.Status)) {
			updates["status"] = string(cp.Status)
		}
		if cp.GatewayChargeID != "" {
			updates["gateway_charge_id"] = cp.GatewayChargeID
			updates["charge_attempt"] = current.RetryAttempt
		}
		if cp.GatewayInvoiceID != "" {
			updates["gateway_invoice_id"] = cp.GatewayInvoiceID
		}
		if err := tx.Model(&models.PaymentRequestModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("update payment request: %w", err)
		}

		out, err = r.loadRequest(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *DefaultLedgerRepository) Reattempt(ctx context.Context, id, paymentMethodToken string) (*domain.PaymentRequest, error) {
	var out *domain.PaymentRequest

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.PaymentRequestModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "id = ?", id).Error; err != nil {
			return notFound(err)
		}

		attempt := current.RetryAttempt + 1
		payload, err := json.Marshal(map[string]any{
			"retry_attempt":   attempt,
			"previous_status": current.Status,
		})
		if err != nil {
			return err
		}

		now := time.Now()
		current.RetryAttempt = attempt
		seq, err := appendHistory(tx, &current, domain.StatusPending, "reattempt", payload, now)
		if err != nil {
			return err
		}

		updates := map[string]any{
			"retry_attempt":        attempt,
			"payment_method_token": paymentMethodToken,
			"status":               string(domain.StatusPending),
			"history_seq":          seq,
			"updated_at":           now,
		}
		if err := tx.Model(&models.PaymentRequestModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("update payment request: %w", err)
		}

		out, err = r.loadRequest(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// appendHistory inserts the next history row of the locked request.
func appendHistory(tx *gorm.DB, current *models.PaymentRequestModel, status domain.PaymentStatus, source string, payload json.RawMessage, at time.Time) (int64, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	entry := models.StatusHistoryModel{
		PaymentRequestID: current.ID,
		Seq:              current.HistorySeq + 1,
		Status:           string(status),
		Source:           source,
		RetryAttempt:     current.RetryAttempt,
		Payload:          datatypes.JSON(payload),
		RecordedAt:       at,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, fmt.Errorf("append status history: %w", err)
	}
	return entry.Seq, nil
}

func (r *DefaultLedgerRepository) GetCustomerContact(ctx context.Context, paymentMethodToken string) (*domain.CustomerContact, error) {
	var contact models.CustomerContactModel
	if err := r.DB.WithContext(ctx).First(&contact, "payment_method_token = ?", paymentMethodToken).Error; err != nil {
		return nil, notFound(err)
	}
	return mappers.ToDomainCustomerContact(&contact), nil
}

func (r *DefaultLedgerRepository) AddPendingOrderSync(ctx context.Context, paymentRequestID, reason string) error {
	now := time.Now()
	entry := models.OrderSyncBacklogModel{
		PaymentRequestID: paymentRequestID,
		Reason:           reason,
		Attempts:         1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "payment_request_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"reason":     reason,
			"attempts":   gorm.Expr("order_sync_backlog.attempts + 1"),
			"updated_at": now,
		}),
	}).Create(&entry).Error
}

func (r *DefaultLedgerRepository) ListPendingOrderSyncs(ctx context.Context, limit int) ([]domain.PendingOrderSync, error) {
	var rows []models.OrderSyncBacklogModel
	if err := r.DB.WithContext(ctx).Order("updated_at ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.PendingOrderSync, 0, len(rows))
	for i := range rows {
		out = append(out, mappers.ToDomainPendingOrderSync(&rows[i]))
	}
	return out, nil
}

func (r *DefaultLedgerRepository) ResolvePendingOrderSync(ctx context.Context, paymentRequestID string) error {
	return r.DB.WithContext(ctx).
		Where("payment_request_id = ?", paymentRequestID).
		Delete(&models.OrderSyncBacklogModel{}).Error
}
