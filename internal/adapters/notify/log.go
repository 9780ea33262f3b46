package notify

import (
	"context"

	"github.com/ledgerworks/payments/internal/core/domain"
	"go.uber.org/zap"
)

// LogNotifier only logs notifications. Used when NOTIFY_DRIVER=log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) NotifyContractProvisioned(_ context.Context, n domain.ContractNotification) error {
	l.logger.Info("Contract notification",
		zap.String("contract_number", n.ContractNumber),
		zap.String("order_id", n.OrderID),
		zap.String("user_id", n.UserID),
		zap.String("start_date", n.StartDate),
		zap.String("end_date", n.EndDate),
	)
	return nil
}
