package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledgerworks/payments/internal/core/domain"
	"gorm.io/gorm"
)

// GormContractRepository implements ports.ContractRepository and
// ports.ContractNumberSource using GORM.
type GormContractRepository struct {
	db *gorm.DB
}

// NewGormContractRepository creates a new GormContractRepository.
func NewGormContractRepository(db *gorm.DB) *GormContractRepository {
	return &GormContractRepository{db: db}
}

// Create inserts the contract. Both the contract number and the order id are
// unique; a violation is reported as the matching domain error.
func (r *GormContractRepository) Create(ctx context.Context, contract *domain.ServiceContract) error {
	err := r.db.WithContext(ctx).Create(toContractModel(contract)).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}

	existing, findErr := r.FindByOrderID(ctx, contract.OrderID)
	if findErr != nil {
		return findErr
	}
	if existing != nil {
		return domain.ErrContractExists
	}
	return domain.ErrDuplicateContractNumber
}

func (r *GormContractRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.ServiceContract, error) {
	var m contractModel
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

// Next returns max+1 of the numbers already issued for prefix and year. The
// sequence is zero-padded to six digits and grows past that, so numbers are
// ordered by length before text. Two
// concurrent callers may get the same number; the unique index on Create
// rejects the loser.
func (r *GormContractRepository) Next(ctx context.Context, prefix string, year int) (string, error) {
	stem := fmt.Sprintf("%s-%04d-", prefix, year)

	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&contractModel{}).
		Where("contract_number LIKE ?", stem+"%").
		Order("LENGTH(contract_number) DESC, contract_number DESC").
		Limit(1).
		Pluck("contract_number", &numbers).Error; err != nil {
		return "", err
	}

	next := 1
	if len(numbers) > 0 {
		seq, err := strconv.Atoi(strings.TrimPrefix(numbers[0], stem))
		if err != nil {
			return "", fmt.Errorf("unexpected contract number %q: %w", numbers[0], err)
		}
		next = seq + 1
	}
	return fmt.Sprintf("%s%06d", stem, next), nil
}
