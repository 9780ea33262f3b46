package service

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/ledgerworks/payments/internal/core/domain"
)

// ReferenceFunc generates a candidate payment reference for an order.
type ReferenceFunc func(orderID string) string

// NewReferenceGenerator returns a ReferenceFunc producing ORDER-<order-id>-<id>
// references, where id is a snowflake (millisecond timestamp, node, sequence).
// Each process should run with a distinct node id.
func NewReferenceGenerator(nodeID int64) (ReferenceFunc, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return func(orderID string) string {
		return domain.ExternalTransactionID(orderID, node.Generate().Int64())
	}, nil
}
