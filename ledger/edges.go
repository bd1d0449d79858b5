package ledger

import (
	"billsplit-backend/models"

	"github.com/google/uuid"
)

// BuildPaymentEdges reduces a bill's shares to directed debtor-to-payer
// obligations. The payer's own share yields no edge and zero-amount shares
// are skipped. Obligations are never netted across bills; each bill keeps
// its own auditable star of edges pointing at its payer.
func BuildPaymentEdges(paidBy uuid.UUID, shares []models.Share) []models.PaymentEdge {
	edges := make([]models.PaymentEdge, 0, len(shares))
	for _, share := range shares {
		if share.UserID == paidBy || share.Amount <= 0 {
			continue
		}
		edges = append(edges, models.PaymentEdge{
			From:         share.UserID,
			To:           paidBy,
			Amount:       share.Amount,
			Status:       share.PaymentStatus,
			MarkedPaidAt: share.MarkedPaidAt,
			ConfirmedAt:  share.ConfirmedAt,
		})
	}
	return edges
}
