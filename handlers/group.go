package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"billsplit-backend/models"
	"billsplit-backend/services"
	"billsplit-backend/utils"
)

type GroupHandler struct {
	db            *gorm.DB
	invitations   *services.InvitationService
	notifications *services.NotificationService
	logger        *slog.Logger
}

func NewGroupHandler(db *gorm.DB, invitations *services.InvitationService, notifications *services.NotificationService, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{db: db, invitations: invitations, notifications: notifications, logger: logger}
}

// POST /api/groups
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	groupType := req.Type
	if groupType == "" {
		groupType = "other"
	}

	group := models.Group{
		Name:        req.Name,
		Description: req.Description,
		Type:        groupType,
		CreatedBy:   userID,
	}

	if err := h.db.Create(&group).Error; err != nil {
		h.logger.Error("group create failed", "error", err)
		utils.InternalError(c, "Failed to create group")
		return
	}

	h.db.Create(&models.GroupMember{
		GroupID: group.ID,
		UserID:  userID,
		Role:    "admin",
	})

	// Members can arrive as user IDs or as emails of people not signed up yet.
	for _, memberInput := range req.Members {
		memberUUID, err := uuid.Parse(memberInput)
		if err != nil {
			var user models.User
			if dbErr := h.db.Where("email = ?", memberInput).First(&user).Error; dbErr == nil {
				memberUUID = user.ID
			} else {
				go h.invitations.InviteToGroup(context.Background(), group.ID, userID, memberInput, "")
				continue
			}
		}

		if memberUUID != userID {
			h.db.Create(&models.GroupMember{
				GroupID: group.ID,
				UserID:  memberUUID,
				Role:    "member",
			})
		}
	}

	var creator models.User
	h.db.First(&creator, userID)
	h.db.Create(&models.Activity{
		GroupID:     group.ID,
		UserID:      userID,
		Type:        "group_created",
		ReferenceID: group.ID,
		Description: fmt.Sprintf("%s created group \"%s\"", creator.Name, group.Name),
	})

	utils.SuccessResponse(c, http.StatusCreated, "Group created", h.buildGroupResponse(group.ID))
}

// GET /api/groups
func (h *GroupHandler) GetGroups(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var groupIDs []uuid.UUID
	h.db.Model(&models.GroupMember{}).Where("user_id = ?", userID).Pluck("group_id", &groupIDs)

	var groups []models.Group
	if len(groupIDs) > 0 {
		h.db.Where("id IN ?", groupIDs).Order("created_at DESC").Find(&groups)
	}

	var responses []models.GroupResponse
	for _, g := range groups {
		responses = append(responses, h.buildGroupResponse(g.ID))
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}

// GET /api/groups/:id
func (h *GroupHandler) GetGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	if !h.isMember(groupID, userID) {
		utils.Forbidden(c, "You are not a member of this group")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", h.buildGroupResponse(groupID))
}

// PUT /api/groups/:id
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	if !h.isMember(groupID, userID) {
		utils.Forbidden(c, "You are not a member of this group")
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Type        string `json:"type"`
		ImageURL    string `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Type != "" {
		updates["type"] = req.Type
	}
	if req.ImageURL != "" {
		updates["image_url"] = req.ImageURL
	}

	h.db.Model(&models.Group{}).Where("id = ?", groupID).Updates(updates)

	utils.SuccessResponse(c, http.StatusOK, "Group updated", h.buildGroupResponse(groupID))
}

// POST /api/groups/:id/members
func (h *GroupHandler) AddMember(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	if !h.isMember(groupID, userID) {
		utils.Forbidden(c, "You are not a member of this group")
		return
	}

	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var targetUser models.User
	found := false

	if req.UserID != "" {
		if memberUUID, err := uuid.Parse(req.UserID); err == nil {
			if err := h.db.First(&targetUser, memberUUID).Error; err == nil {
				found = true
			}
		}
	}
	if !found && req.Email != "" {
		if err := h.db.Where("email = ?", req.Email).First(&targetUser).Error; err == nil {
			found = true
		}
	}
	if !found && req.Phone != "" {
		if err := h.db.Where("phone = ?", req.Phone).First(&targetUser).Error; err == nil {
			found = true
		}
	}

	if !found {
		// Not registered yet; leave an invitation instead.
		go h.invitations.InviteToGroup(context.Background(), groupID, userID, req.Email, req.Phone)
		utils.SuccessResponse(c, http.StatusOK, "Invitation sent", nil)
		return
	}

	var existing models.GroupMember
	if err := h.db.Where("group_id = ? AND user_id = ?", groupID, targetUser.ID).First(&existing).Error; err == nil {
		utils.BadRequest(c, "User is already a member of this group")
		return
	}

	h.db.Create(&models.GroupMember{
		GroupID: groupID,
		UserID:  targetUser.ID,
		Role:    "member",
	})

	var adder models.User
	h.db.First(&adder, userID)
	var group models.Group
	h.db.First(&group, groupID)

	h.db.Create(&models.Activity{
		GroupID:     groupID,
		UserID:      userID,
		Type:        "member_joined",
		Description: fmt.Sprintf("%s added %s to %s", adder.Name, targetUser.Name, group.Name),
	})

	h.notifications.NotifyMemberAdded(group, adder, targetUser)

	utils.SuccessResponse(c, http.StatusOK, "Member added", targetUser.ToResponse())
}

// DELETE /api/groups/:id/members/:uid
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	memberUID, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		utils.BadRequest(c, "Invalid user ID")
		return
	}

	// Members may leave on their own; removing someone else takes admin.
	var membership models.GroupMember
	h.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&membership)
	if membership.Role != "admin" && userID != memberUID {
		utils.Forbidden(c, "Only admins can remove other members")
		return
	}

	h.db.Where("group_id = ? AND user_id = ?", groupID, memberUID).Delete(&models.GroupMember{})

	var removedUser models.User
	h.db.First(&removedUser, memberUID)
	var group models.Group
	h.db.First(&group, groupID)

	h.db.Create(&models.Activity{
		GroupID:     groupID,
		UserID:      userID,
		Type:        "member_left",
		Description: fmt.Sprintf("%s left %s", removedUser.Name, group.Name),
	})

	utils.SuccessResponse(c, http.StatusOK, "Member removed", nil)
}

// POST /api/groups/:id/invite
func (h *GroupHandler) Invite(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	if !h.isMember(groupID, userID) {
		utils.Forbidden(c, "You are not a member of this group")
		return
	}

	var req models.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if req.Email == "" && req.Phone == "" {
		utils.BadRequest(c, "Email or phone required")
		return
	}

	go h.invitations.InviteToGroup(context.Background(), groupID, userID, req.Email, req.Phone)

	utils.SuccessResponse(c, http.StatusOK, "Invitation sent", nil)
}

func (h *GroupHandler) isMember(groupID, userID uuid.UUID) bool {
	var count int64
	h.db.Model(&models.GroupMember{}).Where("group_id = ? AND user_id = ?", groupID, userID).Count(&count)
	return count > 0
}

func (h *GroupHandler) buildGroupResponse(groupID uuid.UUID) models.GroupResponse {
	var group models.Group
	h.db.Preload("Members").Preload("Members.User").First(&group, groupID)

	var memberResponses []models.GroupMemberResponse
	for _, m := range group.Members {
		memberResponses = append(memberResponses, models.GroupMemberResponse{
			UserID:    m.UserID,
			Name:      m.User.Name,
			Email:     m.User.Email,
			AvatarURL: m.User.AvatarURL,
			Role:      m.Role,
			JoinedAt:  m.JoinedAt,
		})
	}

	return models.GroupResponse{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		Type:        group.Type,
		ImageURL:    group.ImageURL,
		CreatedBy:   group.CreatedBy,
		Members:     memberResponses,
		CreatedAt:   group.CreatedAt,
	}
}
