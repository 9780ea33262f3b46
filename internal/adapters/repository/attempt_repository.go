package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/ledgerworks/payments/internal/core/ports"
	"gorm.io/gorm"
)

// GormAttemptRepository implements ports.AttemptRepository using GORM.
type GormAttemptRepository struct {
	db *gorm.DB
}

// NewGormAttemptRepository creates a new GormAttemptRepository.
func NewGormAttemptRepository(db *gorm.DB) *GormAttemptRepository {
	return &GormAttemptRepository{db: db}
}

var _ ports.AttemptRepository = (*GormAttemptRepository)(nil)

func (r *GormAttemptRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&attemptModel{}).
		Where("reference = ?", reference).
		Count(&count).Error
	return count > 0, err
}

func (r *GormAttemptRepository) Create(ctx context.Context, attempt *domain.PaymentAttempt) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&attemptModel{}).
			Where("order_id = ? AND status = ?", attempt.OrderID, string(domain.AttemptStatusOpen)).
			Update("status", string(domain.AttemptStatusSuperseded)).Error; err != nil {
			return err
		}
		return tx.Create(toAttemptModel(attempt)).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateReference
	}
	return err
}

func (r *GormAttemptRepository) SetCheckoutURL(ctx context.Context, reference, checkoutURL string) error {
	return r.db.WithContext(ctx).
		Model(&attemptModel{}).
		Where("reference = ? AND (checkout_url = '' OR checkout_url IS NULL)", reference).
		Update("checkout_url", checkoutURL).Error
}

func (r *GormAttemptRepository) MarkSettled(ctx context.Context, reference string, status domain.AttemptStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&attemptModel{}).
		Where("reference = ? AND status = ?", reference, string(domain.AttemptStatusOpen)).
		Updates(map[string]interface{}{
			"status":     string(status),
			"settled_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormAttemptRepository) FindByReference(ctx context.Context, reference string) (*domain.PaymentAttempt, error) {
	var m attemptModel
	if err := r.db.WithContext(ctx).First(&m, "reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAttemptNotFound
		}
		return nil, err
	}
	return m.toDomain(), nil
}
