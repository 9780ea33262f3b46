package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/ledgerworks/payments/internal/core/ports"
	"gorm.io/gorm"
)

// GormOrderRepository implements ports.OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository.
func NewGormOrderRepository(db *gorm.DB) ports.OrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m, err := toOrderModel(order)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *GormOrderRepository) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	var m orderModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return m.toDomain()
}

// TransitionStatus issues a single conditional UPDATE. Concurrent callers race
// on the status predicate and exactly one of them sees a row affected.
func (r *GormOrderRepository) TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&orderModel{}).
		Where("id = ? AND status = ?", orderID, string(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
