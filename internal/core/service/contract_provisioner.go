package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/ledgerworks/payments/internal/core/ports"
	"go.uber.org/zap"
)

const (
	maxContractNumberAttempts = 5
	defaultTermMonths         = 24
	defaultContractPrefix     = "CN"
	dateLayout                = "2006-01-02"
)

// ContractConfig controls contract numbering and duration.
type ContractConfig struct {
	NumberPrefix  string
	TermMonths    int
	NotifyTimeout time.Duration
}

// ContractProvisioner creates the service contract for a paid order.
type ContractProvisioner struct {
	contracts ports.ContractRepository
	numbers   ports.ContractNumberSource
	notifier  ports.Notifier
	cfg       ContractConfig
	now       func() time.Time
	logger    *zap.Logger
}

// NewContractProvisioner creates a new contract provisioner.
func NewContractProvisioner(
	contracts ports.ContractRepository,
	numbers ports.ContractNumberSource,
	notifier ports.Notifier,
	cfg ContractConfig,
	logger *zap.Logger,
) *ContractProvisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = defaultContractPrefix
	}
	if cfg.TermMonths <= 0 {
		cfg.TermMonths = defaultTermMonths
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 5 * time.Second
	}
	return &ContractProvisioner{
		contracts: contracts,
		numbers:   numbers,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
}

// Provision creates the contract for a paid order, or returns the existing one.
// The contract starts at UTC midnight of the settlement date and runs for the
// configured number of months.
func (p *ContractProvisioner) Provision(ctx context.Context, order *domain.Order, settledAt time.Time) (*domain.ServiceContract, error) {
	if order.Status != domain.OrderStatusPaid {
		return nil, fmt.Errorf("%w: order %s is %s", domain.ErrContractProvision, order.ID, order.Status)
	}

	existing, err := p.contracts.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up contract for order %s: %w", order.ID, err)
	}
	if existing != nil {
		return existing, nil
	}

	start := startOfDay(settledAt)
	contract := &domain.ServiceContract{
		UserID:        order.UserID,
		OrderID:       order.ID,
		ServiceName:   serviceName(order.Items),
		PriceMinor:    order.TotalMinor,
		Currency:      order.Currency,
		StartDate:     start,
		EndDate:       start.AddDate(0, p.cfg.TermMonths, 0),
		Status:        domain.ContractStatusActive,
		PaymentStatus: domain.ContractPaymentStatusPaid,
	}

	for i := 0; i < maxContractNumberAttempts; i++ {
		number, err := p.numbers.Next(ctx, p.cfg.NumberPrefix, start.Year())
		if err != nil {
			return nil, fmt.Errorf("failed to allocate contract number: %w", err)
		}
		contract.ID = uuid.NewString()
		contract.ContractNumber = number
		contract.CreatedAt = p.now().UTC()

		err = p.contracts.Create(ctx, contract)
		switch {
		case err == nil:
			p.logger.Info("Contract provisioned",
				zap.String("contract_number", contract.ContractNumber),
				zap.String("order_id", order.ID),
				zap.String("end_date", contract.EndDate.Format(dateLayout)),
			)
			p.notify(ctx, contract)
			return contract, nil
		case errors.Is(err, domain.ErrDuplicateContractNumber):
			p.logger.Warn("Contract number taken, retrying", zap.String("contract_number", number))
			continue
		case errors.Is(err, domain.ErrContractExists):
			return p.contracts.FindByOrderID(ctx, order.ID)
		default:
			return nil, fmt.Errorf("failed to create contract: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: no free contract number after %d attempts", domain.ErrContractProvision, maxContractNumberAttempts)
}

func (p *ContractProvisioner) notify(ctx context.Context, c *domain.ServiceContract) {
	if p.notifier == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(ctx, p.cfg.NotifyTimeout)
	defer cancel()

	err := p.notifier.NotifyContractProvisioned(notifyCtx, domain.ContractNotification{
		ContractNumber: c.ContractNumber,
		OrderID:        c.OrderID,
		UserID:         c.UserID,
		ServiceName:    c.ServiceName,
		PriceMinor:     c.PriceMinor,
		Currency:       c.Currency,
		StartDate:      c.StartDate.Format(dateLayout),
		EndDate:        c.EndDate.Format(dateLayout),
		PaymentStatus:  c.PaymentStatus,
	})
	if err != nil {
		p.logger.Warn("Contract notification failed",
			zap.String("contract_number", c.ContractNumber),
			zap.Error(err),
		)
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func serviceName(items []domain.OrderItem) string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		if it.ServiceName != "" {
			names = append(names, it.ServiceName)
		}
	}
	return strings.Join(names, ", ")
}
