package ledger

import (
	"testing"
	"time"

	"billsplit-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleFor(t *testing.T) {
	debtor := uuid.New()
	payer := uuid.New()
	stranger := uuid.New()
	share := &models.Share{UserID: debtor, Amount: 25}

	assert.Equal(t, RoleDebtor, RoleFor(share, payer, debtor))
	assert.Equal(t, RoleCreditor, RoleFor(share, payer, payer))
	assert.Equal(t, RoleNone, RoleFor(share, payer, stranger))
}

func TestApplyTransition(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	newShare := func(status models.PaymentStatus) *models.Share {
		s := &models.Share{
			ID:            uuid.New(),
			UserID:        uuid.New(),
			Amount:        25,
			PaymentStatus: status,
		}
		earlier := now.Add(-time.Hour)
		switch status {
		case models.PaymentPendingConfirmation:
			s.MarkedPaidAt = &earlier
		case models.PaymentConfirmed:
			s.MarkedPaidAt = &earlier
			s.ConfirmedAt = &earlier
		}
		return s
	}

	tests := []struct {
		name       string
		status     models.PaymentStatus
		action     SettlementAction
		role       Role
		wantStatus models.PaymentStatus
		wantAuthz  bool
		wantConf   bool
	}{
		{name: "debtor marks unpaid share paid", status: models.PaymentUnpaid, action: ActionMarkPaid, role: RoleDebtor, wantStatus: models.PaymentPendingConfirmation},
		{name: "creditor cannot mark paid", status: models.PaymentUnpaid, action: ActionMarkPaid, role: RoleCreditor, wantAuthz: true},
		{name: "creditor cannot confirm straight from unpaid", status: models.PaymentUnpaid, action: ActionConfirm, role: RoleCreditor, wantConf: true},
		{name: "debtor cannot confirm", status: models.PaymentUnpaid, action: ActionConfirm, role: RoleDebtor, wantAuthz: true},
		{name: "cancel on unpaid share is a no-op", status: models.PaymentUnpaid, action: ActionCancelPayment, role: RoleDebtor, wantStatus: models.PaymentUnpaid},
		{name: "undo confirm needs a confirmed share", status: models.PaymentUnpaid, action: ActionUndoConfirm, role: RoleCreditor, wantConf: true},

		{name: "creditor confirms pending payment", status: models.PaymentPendingConfirmation, action: ActionConfirm, role: RoleCreditor, wantStatus: models.PaymentConfirmed},
		{name: "debtor retracts pending payment", status: models.PaymentPendingConfirmation, action: ActionCancelPayment, role: RoleDebtor, wantStatus: models.PaymentUnpaid},
		{name: "creditor cannot retract for the debtor", status: models.PaymentPendingConfirmation, action: ActionCancelPayment, role: RoleCreditor, wantAuthz: true},
		{name: "re-marking pending share is a no-op", status: models.PaymentPendingConfirmation, action: ActionMarkPaid, role: RoleDebtor, wantStatus: models.PaymentPendingConfirmation},
		{name: "undo confirm on pending share is a no-op", status: models.PaymentPendingConfirmation, action: ActionUndoConfirm, role: RoleCreditor, wantStatus: models.PaymentPendingConfirmation},

		{name: "creditor undoes a confirmation", status: models.PaymentConfirmed, action: ActionUndoConfirm, role: RoleCreditor, wantStatus: models.PaymentPendingConfirmation},
		{name: "debtor cannot undo a confirmation", status: models.PaymentConfirmed, action: ActionUndoConfirm, role: RoleDebtor, wantAuthz: true},
		{name: "cannot mark a confirmed share paid again", status: models.PaymentConfirmed, action: ActionMarkPaid, role: RoleDebtor, wantConf: true},
		{name: "cannot cancel a confirmed payment", status: models.PaymentConfirmed, action: ActionCancelPayment, role: RoleDebtor, wantConf: true},

		{name: "outsiders cannot mark paid", status: models.PaymentUnpaid, action: ActionMarkPaid, role: RoleNone, wantAuthz: true},
		{name: "outsiders cannot confirm", status: models.PaymentPendingConfirmation, action: ActionConfirm, role: RoleNone, wantAuthz: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			share := newShare(tt.status)
			err := ApplyTransition(share, tt.action, tt.role, now)

			switch {
			case tt.wantAuthz:
				var authzErr AuthorizationError
				require.ErrorAs(t, err, &authzErr)
				assert.Equal(t, tt.status, share.PaymentStatus, "failed transition must not change state")
			case tt.wantConf:
				var confErr ConflictError
				require.ErrorAs(t, err, &confErr)
				assert.Equal(t, tt.status, share.PaymentStatus, "failed transition must not change state")
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantStatus, share.PaymentStatus)
			}
		})
	}

	t.Run("MarkPaidStampsMarkedPaidAt", func(t *testing.T) {
		share := newShare(models.PaymentUnpaid)

		require.NoError(t, ApplyTransition(share, ActionMarkPaid, RoleDebtor, now))

		require.NotNil(t, share.MarkedPaidAt)
		assert.Equal(t, now, *share.MarkedPaidAt)
		assert.Nil(t, share.ConfirmedAt)
	})

	t.Run("CancelClearsMarkedPaidAt", func(t *testing.T) {
		share := newShare(models.PaymentPendingConfirmation)

		require.NoError(t, ApplyTransition(share, ActionCancelPayment, RoleDebtor, now))

		assert.Nil(t, share.MarkedPaidAt)
		assert.Equal(t, models.PaymentUnpaid, share.PaymentStatus)
	})

	t.Run("ConfirmStampsConfirmedAt", func(t *testing.T) {
		share := newShare(models.PaymentPendingConfirmation)

		require.NoError(t, ApplyTransition(share, ActionConfirm, RoleCreditor, now))

		require.NotNil(t, share.ConfirmedAt)
		assert.Equal(t, now, *share.ConfirmedAt)
		require.NotNil(t, share.MarkedPaidAt, "confirming keeps the debtor's mark-paid timestamp")
	})

	t.Run("RepeatedConfirmKeepsOriginalTimestamp", func(t *testing.T) {
		share := newShare(models.PaymentConfirmed)
		original := *share.ConfirmedAt

		err := ApplyTransition(share, ActionConfirm, RoleCreditor, now.Add(time.Minute))

		require.NoError(t, err)
		assert.Equal(t, models.PaymentConfirmed, share.PaymentStatus)
		require.NotNil(t, share.ConfirmedAt)
		assert.Equal(t, original, *share.ConfirmedAt)
	})

	t.Run("UndoConfirmClearsConfirmedAt", func(t *testing.T) {
		share := newShare(models.PaymentConfirmed)

		require.NoError(t, ApplyTransition(share, ActionUndoConfirm, RoleCreditor, now))

		assert.Nil(t, share.ConfirmedAt)
		require.NotNil(t, share.MarkedPaidAt, "reverting to pending keeps the debtor's claim")
		assert.Equal(t, models.PaymentPendingConfirmation, share.PaymentStatus)
	})

	t.Run("UnknownActionIsRejected", func(t *testing.T) {
		share := newShare(models.PaymentUnpaid)

		err := ApplyTransition(share, SettlementAction("settle_everything"), RoleDebtor, now)

		var ve ValidationError
		require.ErrorAs(t, err, &ve)
	})
}

func TestSettlementRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	share := &models.Share{ID: uuid.New(), UserID: uuid.New(), Amount: 40, PaymentStatus: models.PaymentUnpaid}

	require.NoError(t, ApplyTransition(share, ActionMarkPaid, RoleDebtor, now))
	require.NoError(t, ApplyTransition(share, ActionConfirm, RoleCreditor, now.Add(time.Minute)))
	assert.True(t, share.Settled())

	require.NoError(t, ApplyTransition(share, ActionUndoConfirm, RoleCreditor, now.Add(2*time.Minute)))
	assert.False(t, share.Settled())
	assert.Equal(t, models.PaymentPendingConfirmation, share.PaymentStatus)

	require.NoError(t, ApplyTransition(share, ActionCancelPayment, RoleDebtor, now.Add(3*time.Minute)))
	assert.Equal(t, models.PaymentUnpaid, share.PaymentStatus)
	assert.Nil(t, share.MarkedPaidAt)
	assert.Nil(t, share.ConfirmedAt)
}
