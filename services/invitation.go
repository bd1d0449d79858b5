package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"billsplit-backend/models"
)

// InvitationService handles inviting people to groups, whether or not they
// have registered yet, and folds pending invitations in at registration.
// Both entry points run fire-and-forget from the handlers, so failures are
// logged rather than returned.
type InvitationService struct {
	db            *gorm.DB
	logger        *slog.Logger
	notifications *NotificationService
}

func NewInvitationService(db *gorm.DB, logger *slog.Logger, notifications *NotificationService) *InvitationService {
	return &InvitationService{db: db, logger: logger, notifications: notifications}
}

// InviteToGroup adds a registered user straight to the group, or records a
// pending invitation and emails the address otherwise. Re-inviting someone
// with a pending invitation is a no-op. Callers dispatch it in a goroutine,
// so failures surface in the log, not as a return value.
func (s *InvitationService) InviteToGroup(ctx context.Context, groupID, invitedBy uuid.UUID, email, phone string) {
	if email == "" && phone == "" {
		s.logger.Warn("invitation dropped, no email or phone", "group_id", groupID, "invited_by", invitedBy)
		return
	}

	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, groupID).Error; err != nil {
		s.logger.Warn("invitation group lookup failed", "group_id", groupID, "error", err)
		return
	}

	query := s.db.WithContext(ctx).Where("group_id = ? AND status = ?", groupID, models.InvitationPending)
	if email != "" {
		query = query.Where("email = ?", email)
	} else {
		query = query.Where("phone = ?", phone)
	}
	var existing models.Invitation
	if err := query.First(&existing).Error; err == nil {
		s.logger.Debug("invitation already pending", "group_id", groupID, "email", email)
		return
	}

	if email != "" {
		var user models.User
		if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err == nil {
			if err := s.addMember(ctx, group, invitedBy, user); err != nil {
				s.logger.Warn("adding invited member failed", "group_id", groupID, "user_id", user.ID, "error", err)
			}
			return
		}
	}

	invitation := models.Invitation{
		GroupID:   groupID,
		InvitedBy: invitedBy,
		Email:     email,
		Phone:     phone,
		Status:    models.InvitationPending,
	}
	if err := s.db.WithContext(ctx).Create(&invitation).Error; err != nil {
		s.logger.Warn("invitation create failed", "group_id", groupID, "email", email, "error", err)
		return
	}

	if email != "" {
		var inviter models.User
		if err := s.db.WithContext(ctx).First(&inviter, invitedBy).Error; err == nil {
			s.notifications.NotifyInvitation(email, inviter.Name, group.Name)
		}
	}

	s.logger.Info("invitation created", "group_id", groupID, "email", email)
}

// addMember enrolls an already-registered user directly.
func (s *InvitationService) addMember(ctx context.Context, group models.Group, invitedBy uuid.UUID, user models.User) error {
	var member models.GroupMember
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", group.ID, user.ID).
		First(&member).Error
	if err == nil {
		return nil
	}

	if err := s.db.WithContext(ctx).Create(&models.GroupMember{
		GroupID: group.ID,
		UserID:  user.ID,
		Role:    "member",
	}).Error; err != nil {
		return fmt.Errorf("add member: %w", err)
	}

	var inviter models.User
	if err := s.db.WithContext(ctx).First(&inviter, invitedBy).Error; err == nil {
		s.notifications.NotifyMemberAdded(group, inviter, user)
	}

	s.db.WithContext(ctx).Create(&models.Activity{
		GroupID:     group.ID,
		UserID:      user.ID,
		Type:        "member_joined",
		Description: user.Name + " joined " + group.Name,
	})

	return nil
}

// AcceptPending enrolls a newly registered user into every group holding a
// pending invitation for their email or phone.
func (s *InvitationService) AcceptPending(ctx context.Context, user models.User) {
	var invitations []models.Invitation
	if err := s.db.WithContext(ctx).
		Where("(email = ? OR phone = ?) AND status = ?", user.Email, user.Phone, models.InvitationPending).
		Find(&invitations).Error; err != nil {
		s.logger.Warn("pending invitation lookup failed", "user_id", user.ID, "error", err)
		return
	}

	for _, inv := range invitations {
		if err := s.db.WithContext(ctx).Create(&models.GroupMember{
			GroupID: inv.GroupID,
			UserID:  user.ID,
			Role:    "member",
		}).Error; err != nil {
			s.logger.Warn("invitation accept failed", "invitation_id", inv.ID, "error", err)
			continue
		}

		s.db.WithContext(ctx).Model(&inv).Update("status", models.InvitationAccepted)

		var group models.Group
		if err := s.db.WithContext(ctx).First(&group, inv.GroupID).Error; err == nil {
			s.db.WithContext(ctx).Create(&models.Activity{
				GroupID:     inv.GroupID,
				UserID:      user.ID,
				Type:        "member_joined",
				Description: user.Name + " joined " + group.Name,
			})
		}

		s.logger.Info("invitation accepted", "invitation_id", inv.ID, "group_id", inv.GroupID, "user_id", user.ID)
	}
}
