package ledger

import (
	"billsplit-backend/models"

	"github.com/google/uuid"
)

// Summarize folds the given bills into a per-user aggregate. On bills the
// user paid, every other participant's unconfirmed share counts toward
// TotalOwed and every confirmed one toward TotalSettled. On bills someone
// else paid, the user's own share counts toward TotalOwing or TotalSettled
// the same way. Accumulation is commutative, so the result does not depend
// on bill order. Bills the user has no part in are ignored.
func Summarize(userID uuid.UUID, bills []models.Bill) models.BillSummary {
	var summary models.BillSummary

	for _, bill := range bills {
		if bill.PaidBy == userID {
			summary.BillCount++
			for _, share := range bill.Splits {
				if share.UserID == userID {
					continue
				}
				if share.Settled() {
					summary.TotalSettled += share.Amount
				} else {
					summary.TotalOwed += share.Amount
				}
			}
			continue
		}

		involved := false
		for _, share := range bill.Splits {
			if share.UserID != userID {
				continue
			}
			involved = true
			if share.Settled() {
				summary.TotalSettled += share.Amount
			} else {
				summary.TotalOwing += share.Amount
			}
		}
		if involved {
			summary.BillCount++
		}
	}

	summary.TotalOwed = roundToTwo(summary.TotalOwed)
	summary.TotalOwing = roundToTwo(summary.TotalOwing)
	summary.TotalSettled = roundToTwo(summary.TotalSettled)
	summary.Balance = roundToTwo(summary.TotalOwed - summary.TotalOwing)

	return summary
}
