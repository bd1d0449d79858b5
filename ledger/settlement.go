package ledger

import (
	"fmt"
	"time"

	"billsplit-backend/models"

	"github.com/google/uuid"
)

// Role is the acting user's relationship to a payment edge: the share's
// owner is the debtor, the bill's payer is the creditor.
type Role string

const (
	RoleDebtor   Role = "debtor"
	RoleCreditor Role = "creditor"
	RoleNone     Role = "none"
)

// SettlementAction is one of the four transitions a payment edge supports.
type SettlementAction string

const (
	ActionMarkPaid      SettlementAction = "mark_paid"
	ActionCancelPayment SettlementAction = "cancel_payment"
	ActionConfirm       SettlementAction = "confirm"
	ActionUndoConfirm   SettlementAction = "undo_confirm"
)

// settlementRule describes one legal transition: who holds the authority,
// which status it moves from, and which status it lands on.
type settlementRule struct {
	by     Role
	from   models.PaymentStatus
	target models.PaymentStatus
	verb   string
}

var settlementRules = map[SettlementAction]settlementRule{
	ActionMarkPaid: {
		by:     RoleDebtor,
		from:   models.PaymentUnpaid,
		target: models.PaymentPendingConfirmation,
		verb:   "mark a payment as paid",
	},
	ActionCancelPayment: {
		by:     RoleDebtor,
		from:   models.PaymentPendingConfirmation,
		target: models.PaymentUnpaid,
		verb:   "cancel a pending payment",
	},
	ActionConfirm: {
		by:     RoleCreditor,
		from:   models.PaymentPendingConfirmation,
		target: models.PaymentConfirmed,
		verb:   "confirm a payment",
	},
	ActionUndoConfirm: {
		by:     RoleCreditor,
		from:   models.PaymentConfirmed,
		target: models.PaymentPendingConfirmation,
		verb:   "undo a confirmation",
	},
}

// RoleFor resolves the acting user's role on the payment edge derived from
// share. A user who is neither the share's owner nor the payer has no role.
func RoleFor(share *models.Share, paidBy, actingUserID uuid.UUID) Role {
	switch actingUserID {
	case share.UserID:
		return RoleDebtor
	case paidBy:
		return RoleCreditor
	default:
		return RoleNone
	}
}

// ApplyTransition advances share through the settlement lifecycle in place.
//
// The acting role must hold the authority for the action. Re-applying an
// action whose target status is already current is a no-op, so a double
// confirm neither errors nor touches ConfirmedAt. Any other mismatch between
// the current status and the action's source status is a conflict; there is
// no path from unpaid straight to confirmed and none from confirmed straight
// to unpaid.
func ApplyTransition(share *models.Share, action SettlementAction, acting Role, now time.Time) error {
	rule, ok := settlementRules[action]
	if !ok {
		return ValidationError{Message: fmt.Sprintf("unknown settlement action: %s", action)}
	}

	if acting != rule.by {
		return AuthorizationError{Message: fmt.Sprintf("only the %s can %s", rule.by, rule.verb)}
	}

	if share.PaymentStatus == rule.target {
		return nil
	}
	if share.PaymentStatus != rule.from {
		return ConflictError{Message: fmt.Sprintf("cannot %s while the share is %s", rule.verb, share.PaymentStatus)}
	}

	switch action {
	case ActionMarkPaid:
		share.MarkedPaidAt = &now
	case ActionCancelPayment:
		share.MarkedPaidAt = nil
	case ActionConfirm:
		share.ConfirmedAt = &now
	case ActionUndoConfirm:
		share.ConfirmedAt = nil
	}
	share.PaymentStatus = rule.target

	return nil
}
