package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"billsplit-backend/ledger"
	"billsplit-backend/metrics"
	"billsplit-backend/models"
	"billsplit-backend/utils"
)

const summaryTTL = 5 * time.Minute

func summaryKey(userID uuid.UUID) string {
	return "summary:" + userID.String()
}

// BillService owns the bill lifecycle: creating bills with computed shares,
// settling individual payment edges, and aggregating per-user summaries.
// The cache client may be nil, in which case summaries are always recomputed.
type BillService struct {
	db            *gorm.DB
	cache         *redis.Client
	logger        *slog.Logger
	notifications *NotificationService
	metrics       *metrics.Metrics
}

func NewBillService(db *gorm.DB, cache *redis.Client, logger *slog.Logger, notifications *NotificationService, m *metrics.Metrics) *BillService {
	return &BillService{
		db:            db,
		cache:         cache,
		logger:        logger,
		notifications: notifications,
		metrics:       m,
	}
}

// CreateBill validates the request, computes the shares for the chosen split
// method, and persists the bill with its shares. A bill is never left without
// shares: if the share insert fails the bill row is deleted again.
func (s *BillService) CreateBill(ctx context.Context, actorID uuid.UUID, req *models.CreateBillRequest) (*models.BillResponse, error) {
	if req.TotalAmount <= 0 {
		return nil, ledger.ValidationError{Message: "total amount must be greater than zero"}
	}

	paidBy, err := uuid.Parse(req.PaidBy)
	if err != nil {
		return nil, ledger.ValidationError{Message: fmt.Sprintf("invalid user ID: %s", req.PaidBy)}
	}

	participantIDs, err := parseUserIDs(req.Participants)
	if err != nil {
		return nil, err
	}
	if len(participantIDs) == 0 {
		return nil, ledger.ValidationError{Message: "at least one participant is required"}
	}

	participants := make(map[uuid.UUID]bool, len(participantIDs))
	for _, id := range participantIDs {
		if participants[id] {
			return nil, ledger.ValidationError{Message: fmt.Sprintf("duplicate participant: %s", id)}
		}
		participants[id] = true
	}
	if !participants[paidBy] {
		return nil, ledger.ValidationError{Message: "payer must be one of the participants"}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", participantIDs).Count(&count).Error; err != nil {
		return nil, err
	}
	if int(count) != len(participantIDs) {
		return nil, ledger.ValidationError{Message: "one or more participants do not exist"}
	}

	var groupID *uuid.UUID
	if req.GroupID != "" {
		gid, err := uuid.Parse(req.GroupID)
		if err != nil {
			return nil, ledger.ValidationError{Message: fmt.Sprintf("invalid group ID: %s", req.GroupID)}
		}

		var group models.Group
		if err := s.db.WithContext(ctx).First(&group, gid).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ledger.NotFoundError{Resource: "group", ID: gid}
			}
			return nil, err
		}

		memberIDs, err := s.groupMemberIDs(ctx, gid)
		if err != nil {
			return nil, err
		}
		if !memberIDs[actorID] {
			return nil, ledger.AuthorizationError{Message: "you are not a member of this group"}
		}
		for _, id := range participantIDs {
			if !memberIDs[id] {
				return nil, ledger.ValidationError{Message: fmt.Sprintf("participant %s is not a member of the group", id)}
			}
		}
		groupID = &gid
	}

	shares, err := computeShares(req.SplitMethod, req.TotalAmount, participantIDs, req.Splits, req.Items)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	bill := models.Bill{
		GroupID:     groupID,
		CreatedBy:   actorID,
		PaidBy:      paidBy,
		Title:       req.Title,
		Description: req.Description,
		TotalAmount: req.TotalAmount,
		Currency:    currency,
		Category:    req.Category,
		SplitMethod: req.SplitMethod,
	}

	if err := s.db.WithContext(ctx).Create(&bill).Error; err != nil {
		return nil, fmt.Errorf("create bill: %w", err)
	}

	for i := range shares {
		shares[i].BillID = bill.ID
	}
	if err := s.db.WithContext(ctx).Create(&shares).Error; err != nil {
		// Undo the partial write so no bill ever exists without shares.
		s.db.WithContext(ctx).Where("bill_id = ?", bill.ID).Delete(&models.Share{})
		s.db.WithContext(ctx).Delete(&bill)
		return nil, fmt.Errorf("create shares: %w", err)
	}

	s.metrics.BillsCreated.Inc()

	var creator models.User
	if err := s.db.WithContext(ctx).First(&creator, actorID).Error; err == nil {
		s.logActivity(groupID, actorID, "bill_added", bill.ID,
			fmt.Sprintf("%s added \"%s\" (%s %.2f)", creator.Name, bill.Title, bill.Currency, bill.TotalAmount))
	}

	var payer models.User
	if err := s.db.WithContext(ctx).First(&payer, paidBy).Error; err == nil {
		s.notifications.NotifyBillAdded(bill, shares, payer)
	}

	s.invalidateSummaries(ctx, participantIDs...)

	s.logger.Info("bill created",
		"bill_id", bill.ID,
		"total", bill.TotalAmount,
		"split_method", bill.SplitMethod,
		"participants", len(participantIDs))

	return s.buildBillResponse(ctx, bill.ID)
}

// GetBill returns a single bill with its shares and derived payment edges.
// Only the bill's participants, its creator, or fellow group members may view it.
func (s *BillService) GetBill(ctx context.Context, billID, viewerID uuid.UUID) (*models.BillResponse, error) {
	bill, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	allowed := bill.PaidBy == viewerID || bill.CreatedBy == viewerID
	for _, share := range bill.Splits {
		if share.UserID == viewerID {
			allowed = true
		}
	}
	if !allowed && bill.GroupID != nil {
		memberIDs, err := s.groupMemberIDs(ctx, *bill.GroupID)
		if err != nil {
			return nil, err
		}
		allowed = memberIDs[viewerID]
	}
	if !allowed {
		return nil, ledger.AuthorizationError{Message: "you are not part of this bill"}
	}

	resp := billResponseFrom(*bill)
	return &resp, nil
}

// ListBills returns the bills the user participates in, newest first. With a
// group ID it instead returns that group's bills, gated on membership.
func (s *BillService) ListBills(ctx context.Context, userID uuid.UUID, groupID *uuid.UUID, offset, limit int) ([]models.BillResponse, error) {
	query := s.db.WithContext(ctx).
		Preload("Splits").Preload("Splits.User").Preload("Payer").
		Order("created_at DESC").
		Offset(offset).Limit(limit)

	if groupID != nil {
		memberIDs, err := s.groupMemberIDs(ctx, *groupID)
		if err != nil {
			return nil, err
		}
		if !memberIDs[userID] {
			return nil, ledger.AuthorizationError{Message: "you are not a member of this group"}
		}
		query = query.Where("group_id = ?", *groupID)
	} else {
		var billIDs []uuid.UUID
		if err := s.db.WithContext(ctx).Model(&models.Share{}).
			Where("user_id = ?", userID).
			Pluck("bill_id", &billIDs).Error; err != nil {
			return nil, err
		}
		if len(billIDs) > 0 {
			query = query.Where("paid_by = ? OR id IN ?", userID, billIDs)
		} else {
			query = query.Where("paid_by = ?", userID)
		}
	}

	var bills []models.Bill
	if err := query.Find(&bills).Error; err != nil {
		return nil, err
	}

	responses := make([]models.BillResponse, 0, len(bills))
	for _, bill := range bills {
		responses = append(responses, billResponseFrom(bill))
	}
	return responses, nil
}

// UpdateBill applies partial edits. Any change that affects the split (total,
// method, payer, participants, split values, items) recomputes and replaces
// every share, which also resets their settlement state. Only the creator may
// edit a bill.
func (s *BillService) UpdateBill(ctx context.Context, billID, actorID uuid.UUID, req *models.UpdateBillRequest) (*models.BillResponse, error) {
	bill, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill.CreatedBy != actorID {
		return nil, ledger.AuthorizationError{Message: "only the bill creator can update it"}
	}

	edit, err := planBillEdit(bill, req)
	if err != nil {
		return nil, err
	}

	if edit.reSplit {
		participantIDs, err := s.resolveParticipants(ctx, bill, req.Participants)
		if err != nil {
			return nil, err
		}

		found := false
		for _, id := range participantIDs {
			if id == edit.paidBy {
				found = true
			}
		}
		if !found {
			return nil, ledger.ValidationError{Message: "payer must be one of the participants"}
		}

		newShares, err := computeShares(edit.method, edit.total, participantIDs, req.Splits, req.Items)
		if err != nil {
			return nil, err
		}

		oldIDs := make([]uuid.UUID, 0, len(bill.Splits))
		affected := []uuid.UUID{bill.PaidBy, edit.paidBy}
		for _, share := range bill.Splits {
			oldIDs = append(oldIDs, share.ID)
			affected = append(affected, share.UserID)
		}
		affected = append(affected, participantIDs...)

		for i := range newShares {
			newShares[i].BillID = bill.ID
		}

		// Shares and bill columns swap together; a failed edit rolls back to
		// the previous state.
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&newShares).Error; err != nil {
				return fmt.Errorf("replace shares: %w", err)
			}
			if len(oldIDs) > 0 {
				if err := tx.Where("id IN ?", oldIDs).Delete(&models.Share{}).Error; err != nil {
					return fmt.Errorf("drop replaced shares: %w", err)
				}
			}
			if len(edit.updates) > 0 {
				if err := tx.Model(bill).Updates(edit.updates).Error; err != nil {
					return fmt.Errorf("update bill: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		s.invalidateSummaries(ctx, affected...)
	} else if len(edit.updates) > 0 {
		if err := s.db.WithContext(ctx).Model(bill).Updates(edit.updates).Error; err != nil {
			return nil, fmt.Errorf("update bill: %w", err)
		}
	}

	var editor models.User
	if err := s.db.WithContext(ctx).First(&editor, actorID).Error; err == nil {
		title := bill.Title
		if req.Title != "" {
			title = req.Title
		}
		s.logActivity(bill.GroupID, actorID, "bill_updated", bill.ID,
			fmt.Sprintf("%s updated \"%s\"", editor.Name, title))
	}

	return s.buildBillResponse(ctx, billID)
}

// DeleteBill removes the bill and its shares. Only the creator may delete.
func (s *BillService) DeleteBill(ctx context.Context, billID, actorID uuid.UUID) error {
	bill, err := s.loadBill(ctx, billID)
	if err != nil {
		return err
	}
	if bill.CreatedBy != actorID {
		return ledger.AuthorizationError{Message: "only the bill creator can delete it"}
	}

	var actor models.User
	if err := s.db.WithContext(ctx).First(&actor, actorID).Error; err == nil {
		s.logActivity(bill.GroupID, actorID, "bill_deleted", uuid.Nil,
			fmt.Sprintf("%s deleted \"%s\" (%s %.2f)", actor.Name, bill.Title, bill.Currency, bill.TotalAmount))
	}

	affected := []uuid.UUID{bill.PaidBy}
	for _, share := range bill.Splits {
		affected = append(affected, share.UserID)
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bill_id = ?", billID).Delete(&models.Share{}).Error; err != nil {
			return fmt.Errorf("delete shares: %w", err)
		}
		if err := tx.Delete(&models.Bill{}, billID).Error; err != nil {
			return fmt.Errorf("delete bill: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}

	s.metrics.BillsDeleted.Inc()
	s.invalidateSummaries(ctx, affected...)

	s.logger.Info("bill deleted", "bill_id", billID)
	return nil
}

// MarkPaid records the debtor's claim that they paid their share.
func (s *BillService) MarkPaid(ctx context.Context, billID, debtorUserID, actingUserID uuid.UUID) (*models.BillResponse, error) {
	return s.applySettlement(ctx, billID, debtorUserID, actingUserID, ledger.ActionMarkPaid)
}

// CancelPayment retracts a pending mark before the creditor confirms it.
func (s *BillService) CancelPayment(ctx context.Context, billID, debtorUserID, actingUserID uuid.UUID) (*models.BillResponse, error) {
	return s.applySettlement(ctx, billID, debtorUserID, actingUserID, ledger.ActionCancelPayment)
}

// ConfirmPayment acknowledges receipt and settles the payment edge.
func (s *BillService) ConfirmPayment(ctx context.Context, billID, debtorUserID, actingUserID uuid.UUID) (*models.BillResponse, error) {
	return s.applySettlement(ctx, billID, debtorUserID, actingUserID, ledger.ActionConfirm)
}

// UndoConfirmation reverts a confirmation back to pending, keeping the
// debtor's mark intact.
func (s *BillService) UndoConfirmation(ctx context.Context, billID, debtorUserID, actingUserID uuid.UUID) (*models.BillResponse, error) {
	return s.applySettlement(ctx, billID, debtorUserID, actingUserID, ledger.ActionUndoConfirm)
}

func (s *BillService) applySettlement(ctx context.Context, billID, debtorUserID, actingUserID uuid.UUID, action ledger.SettlementAction) (*models.BillResponse, error) {
	var bill models.Bill
	if err := s.db.WithContext(ctx).First(&bill, billID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.NotFoundError{Resource: "bill", ID: billID}
		}
		return nil, err
	}

	var share models.Share
	if err := s.db.WithContext(ctx).
		Where("bill_id = ? AND user_id = ?", billID, debtorUserID).
		First(&share).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.NotFoundError{Resource: "payment edge", ID: debtorUserID}
		}
		return nil, err
	}

	// The payer's own share and zero-amount shares never form a payment edge.
	if share.UserID == bill.PaidBy || share.Amount <= 0 {
		return nil, ledger.NotFoundError{Resource: "payment edge", ID: debtorUserID}
	}

	role := ledger.RoleFor(&share, bill.PaidBy, actingUserID)
	previous := share.PaymentStatus

	if err := ledger.ApplyTransition(&share, action, role, time.Now()); err != nil {
		return nil, err
	}

	if share.PaymentStatus != previous {
		result := s.db.WithContext(ctx).Model(&models.Share{}).
			Where("id = ? AND version = ?", share.ID, share.Version).
			Updates(map[string]interface{}{
				"payment_status": share.PaymentStatus,
				"marked_paid_at": share.MarkedPaidAt,
				"confirmed_at":   share.ConfirmedAt,
				"version":        share.Version + 1,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ledger.ConflictError{Message: "share was modified concurrently, reload the bill and retry"}
		}

		s.metrics.SettlementTransitions.WithLabelValues(string(action)).Inc()
		s.afterSettlement(ctx, bill, share, action)
		s.invalidateSummaries(ctx, bill.PaidBy, share.UserID)

		s.logger.Info("settlement transition",
			"bill_id", billID,
			"debtor", share.UserID,
			"action", action,
			"from", previous,
			"to", share.PaymentStatus)
	}

	return s.buildBillResponse(ctx, billID)
}

func (s *BillService) afterSettlement(ctx context.Context, bill models.Bill, share models.Share, action ledger.SettlementAction) {
	switch action {
	case ledger.ActionMarkPaid:
		var debtor models.User
		if err := s.db.WithContext(ctx).First(&debtor, share.UserID).Error; err != nil {
			return
		}
		s.logActivity(bill.GroupID, debtor.ID, "payment_marked", bill.ID,
			fmt.Sprintf("%s marked %s %.2f as paid for \"%s\"", debtor.Name, bill.Currency, share.Amount, bill.Title))
		s.notifications.NotifyPaymentMarked(bill, debtor, share.Amount)

	case ledger.ActionConfirm:
		var creditor models.User
		if err := s.db.WithContext(ctx).First(&creditor, bill.PaidBy).Error; err != nil {
			return
		}
		s.logActivity(bill.GroupID, creditor.ID, "payment_confirmed", bill.ID,
			fmt.Sprintf("%s confirmed a payment of %s %.2f for \"%s\"", creditor.Name, bill.Currency, share.Amount, bill.Title))
		s.notifications.NotifyPaymentConfirmed(bill, creditor, share.UserID, share.Amount)
	}
}

// Summary aggregates every bill the user touches into their ledger totals.
// Results are cached briefly; any bill or settlement mutation invalidates the
// affected users' entries.
func (s *BillService) Summary(ctx context.Context, userID uuid.UUID) (*models.BillSummary, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, summaryKey(userID)).Result(); err == nil {
			var cached models.BillSummary
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				s.metrics.SummaryCacheHits.Inc()
				return &cached, nil
			}
		}
		s.metrics.SummaryCacheMisses.Inc()
	}

	bills, err := s.billsInvolving(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := ledger.Summarize(userID, bills)

	if s.cache != nil {
		if raw, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, summaryKey(userID), raw, summaryTTL).Err(); err != nil {
				s.logger.Warn("summary cache write failed", "user_id", userID, "error", err)
			}
		}
	}

	return &summary, nil
}

// FriendBalances reports, per counterparty, the net of unconfirmed payment
// edges between them and the user. Positive means the friend owes the user.
// This is a reporting view on top of the ledger; the underlying obligations
// stay per bill and are never consolidated.
func (s *BillService) FriendBalances(ctx context.Context, userID uuid.UUID) ([]models.FriendBalance, error) {
	bills, err := s.billsInvolving(ctx, userID)
	if err != nil {
		return nil, err
	}

	net := make(map[uuid.UUID]float64)
	for _, bill := range bills {
		for _, edge := range ledger.BuildPaymentEdges(bill.PaidBy, bill.Splits) {
			if edge.Status == models.PaymentConfirmed {
				continue
			}
			switch {
			case edge.To == userID:
				net[edge.From] += edge.Amount
			case edge.From == userID:
				net[edge.To] -= edge.Amount
			}
		}
	}

	var balances []models.FriendBalance
	for friendID, amount := range net {
		amount = utils.RoundToTwo(amount)
		if math.Abs(amount) < 0.01 {
			continue
		}

		var friend models.User
		if err := s.db.WithContext(ctx).First(&friend, friendID).Error; err != nil {
			continue
		}

		balances = append(balances, models.FriendBalance{
			UserID:    friend.ID,
			Name:      friend.Name,
			Email:     friend.Email,
			AvatarURL: friend.AvatarURL,
			Amount:    amount,
			Currency:  "USD",
		})
	}

	sort.Slice(balances, func(i, j int) bool {
		return balances[i].Name < balances[j].Name
	})
	return balances, nil
}

// billsInvolving loads every bill the user either paid or holds a share in,
// shares included.
func (s *BillService) billsInvolving(ctx context.Context, userID uuid.UUID) ([]models.Bill, error) {
	var billIDs []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Share{}).
		Where("user_id = ?", userID).
		Pluck("bill_id", &billIDs).Error; err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Preload("Splits")
	if len(billIDs) > 0 {
		query = query.Where("paid_by = ? OR id IN ?", userID, billIDs)
	} else {
		query = query.Where("paid_by = ?", userID)
	}

	var bills []models.Bill
	if err := query.Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

func (s *BillService) loadBill(ctx context.Context, billID uuid.UUID) (*models.Bill, error) {
	var bill models.Bill
	if err := s.db.WithContext(ctx).
		Preload("Splits").Preload("Splits.User").Preload("Payer").
		First(&bill, billID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.NotFoundError{Resource: "bill", ID: billID}
		}
		return nil, err
	}
	return &bill, nil
}

func (s *BillService) buildBillResponse(ctx context.Context, billID uuid.UUID) (*models.BillResponse, error) {
	bill, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	resp := billResponseFrom(*bill)
	return &resp, nil
}

// billResponseFrom shapes a bill for the API. The bill must have Splits,
// Splits.User and Payer preloaded.
func billResponseFrom(bill models.Bill) models.BillResponse {
	resp := models.BillResponse{
		ID:          bill.ID,
		GroupID:     bill.GroupID,
		CreatedBy:   bill.CreatedBy,
		PaidBy:      bill.PaidBy,
		PayerName:   bill.Payer.Name,
		Title:       bill.Title,
		Description: bill.Description,
		TotalAmount: bill.TotalAmount,
		Currency:    bill.Currency,
		Category:    bill.Category,
		SplitMethod: bill.SplitMethod,
		CreatedAt:   bill.CreatedAt,
		UpdatedAt:   bill.UpdatedAt,
	}
	for i := range bill.Splits {
		resp.Splits = append(resp.Splits, bill.Splits[i].ToResponse())
	}
	resp.Payments = ledger.BuildPaymentEdges(bill.PaidBy, bill.Splits)
	return resp
}

// resolveParticipants returns the requested participant IDs, or the bill's
// current share holders (in share creation order) when none are given.
func (s *BillService) resolveParticipants(ctx context.Context, bill *models.Bill, requested []string) ([]uuid.UUID, error) {
	if len(requested) > 0 {
		participantIDs, err := parseUserIDs(requested)
		if err != nil {
			return nil, err
		}
		seen := make(map[uuid.UUID]bool, len(participantIDs))
		for _, id := range participantIDs {
			if seen[id] {
				return nil, ledger.ValidationError{Message: fmt.Sprintf("duplicate participant: %s", id)}
			}
			seen[id] = true
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", participantIDs).Count(&count).Error; err != nil {
			return nil, err
		}
		if int(count) != len(participantIDs) {
			return nil, ledger.ValidationError{Message: "one or more participants do not exist"}
		}
		return participantIDs, nil
	}

	var shares []models.Share
	if err := s.db.WithContext(ctx).
		Where("bill_id = ?", bill.ID).
		Order("created_at, id").
		Find(&shares).Error; err != nil {
		return nil, err
	}
	participantIDs := make([]uuid.UUID, 0, len(shares))
	for _, share := range shares {
		participantIDs = append(participantIDs, share.UserID)
	}
	if len(participantIDs) == 0 {
		return nil, ledger.ValidationError{Message: "at least one participant is required"}
	}
	return participantIDs, nil
}

func (s *BillService) groupMemberIDs(ctx context.Context, groupID uuid.UUID) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	members := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		members[id] = true
	}
	return members, nil
}

func (s *BillService) logActivity(groupID *uuid.UUID, userID uuid.UUID, activityType string, referenceID uuid.UUID, description string) {
	if groupID == nil {
		return
	}
	if err := s.db.Create(&models.Activity{
		GroupID:     *groupID,
		UserID:      userID,
		Type:        activityType,
		ReferenceID: referenceID,
		Description: description,
	}).Error; err != nil {
		s.logger.Warn("activity write failed", "group_id", *groupID, "type", activityType, "error", err)
	}
}

func (s *BillService) invalidateSummaries(ctx context.Context, userIDs ...uuid.UUID) {
	if s.cache == nil {
		return
	}
	seen := make(map[uuid.UUID]bool, len(userIDs))
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if !seen[id] {
			seen[id] = true
			keys = append(keys, summaryKey(id))
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("summary cache invalidation failed", "error", err)
	}
}

func parseUserIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, ledger.ValidationError{Message: fmt.Sprintf("invalid user ID: %s", r)}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// billEdit is the persistence plan for a partial update: the column updates
// to apply, and whether the shares must be recomputed.
type billEdit struct {
	updates map[string]interface{}
	reSplit bool
	total   float64
	method  models.SplitMethod
	paidBy  uuid.UUID
}

// planBillEdit resolves a partial update request against the current bill.
// Any field that affects the split (total, method, payer, participants, split
// values, items) flags the shares for replacement.
func planBillEdit(bill *models.Bill, req *models.UpdateBillRequest) (billEdit, error) {
	edit := billEdit{
		updates: map[string]interface{}{},
		total:   bill.TotalAmount,
		method:  bill.SplitMethod,
		paidBy:  bill.PaidBy,
	}

	if req.Title != "" {
		edit.updates["title"] = req.Title
	}
	if req.Description != "" {
		edit.updates["description"] = req.Description
	}
	if req.Category != "" {
		edit.updates["category"] = req.Category
	}

	if req.TotalAmount > 0 {
		edit.total = req.TotalAmount
		edit.updates["total_amount"] = edit.total
	}
	if req.SplitMethod != "" {
		edit.method = req.SplitMethod
		edit.updates["split_method"] = edit.method
	}
	if req.PaidBy != "" {
		pid, err := uuid.Parse(req.PaidBy)
		if err != nil {
			return billEdit{}, ledger.ValidationError{Message: fmt.Sprintf("invalid user ID: %s", req.PaidBy)}
		}
		edit.paidBy = pid
		edit.updates["paid_by"] = pid
	}

	edit.reSplit = req.TotalAmount > 0 || req.SplitMethod != "" || req.PaidBy != "" ||
		len(req.Participants) > 0 || len(req.Splits) > 0 || len(req.Items) > 0

	return edit, nil
}

// computeShares dispatches to the split calculator for the chosen method.
func computeShares(method models.SplitMethod, total float64, participantIDs []uuid.UUID, splits []models.ShareInput, items []models.BillItemInput) ([]models.Share, error) {
	switch method {
	case models.SplitEqual:
		return ledger.EqualSplit(total, participantIDs), nil

	case models.SplitCustom:
		if len(splits) == 0 {
			return nil, ledger.ValidationError{Message: "splits required for custom split method"}
		}
		values, err := normalizeShareValues(participantIDs, splits)
		if err != nil {
			return nil, err
		}
		if err := ledger.ValidateCustomSplit(values, total); err != nil {
			return nil, err
		}
		return ledger.CustomSplit(values), nil

	case models.SplitPercentage:
		if len(splits) == 0 {
			return nil, ledger.ValidationError{Message: "splits required for percentage split method"}
		}
		values, err := normalizeShareValues(participantIDs, splits)
		if err != nil {
			return nil, err
		}
		if err := ledger.ValidatePercentageSplit(values); err != nil {
			return nil, err
		}
		return ledger.PercentageSplit(total, values), nil

	case models.SplitItemBased:
		if len(items) == 0 {
			return nil, ledger.ValidationError{Message: "items required for item_based split method"}
		}
		billItems, err := parseBillItems(participantIDs, items)
		if err != nil {
			return nil, err
		}
		return ledger.ItemBasedSplit(billItems, participantIDs), nil

	default:
		return nil, ledger.ValidationError{Message: fmt.Sprintf("invalid split method: %s", method)}
	}
}

// normalizeShareValues parses the split inputs and pads them so every
// participant has exactly one entry; participants without an explicit value
// get zero.
func normalizeShareValues(participantIDs []uuid.UUID, inputs []models.ShareInput) ([]ledger.ShareValue, error) {
	participants := make(map[uuid.UUID]bool, len(participantIDs))
	for _, id := range participantIDs {
		participants[id] = true
	}

	byUser := make(map[uuid.UUID]float64, len(inputs))
	for _, in := range inputs {
		uid, err := uuid.Parse(in.UserID)
		if err != nil {
			return nil, ledger.ValidationError{Message: fmt.Sprintf("invalid user ID: %s", in.UserID)}
		}
		if !participants[uid] {
			return nil, ledger.ValidationError{Message: fmt.Sprintf("split user %s is not a participant", uid)}
		}
		if _, dup := byUser[uid]; dup {
			return nil, ledger.ValidationError{Message: fmt.Sprintf("duplicate split entry for user: %s", uid)}
		}
		byUser[uid] = in.Value
	}

	values := make([]ledger.ShareValue, 0, len(participantIDs))
	for _, id := range participantIDs {
		values = append(values, ledger.ShareValue{UserID: id, Value: byUser[id]})
	}
	return values, nil
}

func parseBillItems(participantIDs []uuid.UUID, inputs []models.BillItemInput) ([]ledger.BillItem, error) {
	participants := make(map[uuid.UUID]bool, len(participantIDs))
	for _, id := range participantIDs {
		participants[id] = true
	}

	items := make([]ledger.BillItem, 0, len(inputs))
	for _, in := range inputs {
		if in.Price < 0 {
			return nil, ledger.ValidationError{Message: fmt.Sprintf("item %q has a negative price", in.Name)}
		}
		assigned := make([]uuid.UUID, 0, len(in.AssignedTo))
		for _, raw := range in.AssignedTo {
			uid, err := uuid.Parse(raw)
			if err != nil {
				return nil, ledger.ValidationError{Message: fmt.Sprintf("invalid user ID: %s", raw)}
			}
			if !participants[uid] {
				return nil, ledger.ValidationError{Message: fmt.Sprintf("item %q is assigned to %s who is not a participant", in.Name, uid)}
			}
			assigned = append(assigned, uid)
		}
		items = append(items, ledger.BillItem{Name: in.Name, Price: in.Price, AssignedTo: assigned})
	}
	return items, nil
}
