package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"billsplit-backend/models"
	"billsplit-backend/services"
	"billsplit-backend/utils"
)

type BillHandler struct {
	bills *services.BillService
}

func NewBillHandler(bills *services.BillService) *BillHandler {
	return &BillHandler{bills: bills}
}

// POST /api/bills
func (h *BillHandler) CreateBill(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	resp, err := h.bills.CreateBill(c.Request.Context(), userID, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Bill created", resp)
}

// GET /api/bills?group_id=...
func (h *BillHandler) ListBills(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var pagination utils.PaginationQuery
	c.ShouldBindQuery(&pagination)

	var groupID *uuid.UUID
	if raw := c.Query("group_id"); raw != "" {
		gid, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequest(c, "Invalid group ID")
			return
		}
		groupID = &gid
	}

	resp, err := h.bills.ListBills(c.Request.Context(), userID, groupID, pagination.Offset(), pagination.Limit)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", resp)
}

// GET /api/groups/:id/bills
func (h *BillHandler) ListGroupBills(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	var pagination utils.PaginationQuery
	c.ShouldBindQuery(&pagination)

	resp, err := h.bills.ListBills(c.Request.Context(), userID, &groupID, pagination.Offset(), pagination.Limit)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", resp)
}

// GET /api/bills/:id
func (h *BillHandler) GetBill(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid bill ID")
		return
	}

	resp, err := h.bills.GetBill(c.Request.Context(), billID, userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", resp)
}

// PUT /api/bills/:id
func (h *BillHandler) UpdateBill(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid bill ID")
		return
	}

	var req models.UpdateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	resp, err := h.bills.UpdateBill(c.Request.Context(), billID, userID, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Bill updated", resp)
}

// DELETE /api/bills/:id
func (h *BillHandler) DeleteBill(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid bill ID")
		return
	}

	if err := h.bills.DeleteBill(c.Request.Context(), billID, userID); err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Bill deleted", nil)
}

// POST /api/bills/:id/payments/:uid/mark-paid
func (h *BillHandler) MarkPaid(c *gin.Context) {
	h.settle(c, h.bills.MarkPaid, "Payment marked as paid")
}

// POST /api/bills/:id/payments/:uid/cancel
func (h *BillHandler) CancelPayment(c *gin.Context) {
	h.settle(c, h.bills.CancelPayment, "Payment cancelled")
}

// POST /api/bills/:id/payments/:uid/confirm
func (h *BillHandler) ConfirmPayment(c *gin.Context) {
	h.settle(c, h.bills.ConfirmPayment, "Payment confirmed")
}

// POST /api/bills/:id/payments/:uid/undo-confirm
func (h *BillHandler) UndoConfirmation(c *gin.Context) {
	h.settle(c, h.bills.UndoConfirmation, "Confirmation undone")
}

// settle parses the shared path shape of the four settlement endpoints:
// the bill and the debtor whose payment edge is being acted on. The acting
// user comes from the session.
func (h *BillHandler) settle(c *gin.Context, apply func(ctx context.Context, billID, debtorUserID, actingUserID uuid.UUID) (*models.BillResponse, error), message string) {
	userID := utils.GetCurrentUserID(c)

	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid bill ID")
		return
	}
	debtorID, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		utils.BadRequest(c, "Invalid user ID")
		return
	}

	resp, err := apply(c.Request.Context(), billID, debtorID, userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, message, resp)
}

// GET /api/summary
func (h *BillHandler) GetSummary(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	summary, err := h.bills.Summary(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", summary)
}

// GET /api/balances
func (h *BillHandler) GetFriendBalances(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	balances, err := h.bills.FriendBalances(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", balances)
}
