package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentStatus is the settlement lifecycle of a single share:
// unpaid -> pending_confirmation -> confirmed, with undo edges back.
type PaymentStatus string

const (
	PaymentUnpaid              PaymentStatus = "unpaid"
	PaymentPendingConfirmation PaymentStatus = "pending_confirmation"
	PaymentConfirmed           PaymentStatus = "confirmed"
)

type SplitMethod string

const (
	SplitEqual      SplitMethod = "equal"
	SplitCustom     SplitMethod = "custom"
	SplitPercentage SplitMethod = "percentage"
	SplitItemBased  SplitMethod = "item_based"
)

type Bill struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID     *uuid.UUID  `gorm:"type:uuid;index" json:"group_id,omitempty"`
	CreatedBy   uuid.UUID   `gorm:"type:uuid" json:"created_by"`
	PaidBy      uuid.UUID   `gorm:"type:uuid" json:"paid_by"`
	Payer       User        `gorm:"foreignKey:PaidBy" json:"payer,omitempty"`
	Title       string      `gorm:"not null;size:255" json:"title"`
	Description string      `json:"description,omitempty"`
	TotalAmount float64     `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Currency    string      `gorm:"default:USD;size:3" json:"currency"`
	Category    string      `gorm:"size:50" json:"category"` // food, transport, rent, utilities, entertainment, other
	SplitMethod SplitMethod `gorm:"not null;size:20" json:"split_method"`
	Splits      []Share     `gorm:"foreignKey:BillID" json:"splits,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (b *Bill) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

type Share struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	BillID        uuid.UUID     `gorm:"type:uuid;index" json:"bill_id"`
	UserID        uuid.UUID     `gorm:"type:uuid" json:"user_id"`
	User          User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount        float64       `gorm:"type:decimal(12,2);not null" json:"amount"`
	Percentage    *float64      `gorm:"type:decimal(5,2)" json:"percentage,omitempty"`
	PaymentStatus PaymentStatus `gorm:"not null;size:24;default:unpaid" json:"payment_status"`
	MarkedPaidAt  *time.Time    `json:"marked_paid_at,omitempty"`
	ConfirmedAt   *time.Time    `json:"confirmed_at,omitempty"`
	Version       int           `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (s *Share) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Settled reports whether the payer has confirmed this share. The boolean is
// always derived from PaymentStatus, never stored.
func (s *Share) Settled() bool {
	return s.PaymentStatus == PaymentConfirmed
}

// PaymentEdge is a directed debtor-to-payer obligation derived from a share.
// It is recomputed on demand and never stored; its status and timestamps live
// on the underlying share.
type PaymentEdge struct {
	From         uuid.UUID     `json:"from_user_id"`
	To           uuid.UUID     `json:"to_user_id"`
	Amount       float64       `json:"amount"`
	Status       PaymentStatus `json:"status"`
	MarkedPaidAt *time.Time    `json:"marked_paid_at,omitempty"`
	ConfirmedAt  *time.Time    `json:"confirmed_at,omitempty"`
}

// BillSummary is a per-user aggregate over every bill the user participates
// in, recomputed on demand.
type BillSummary struct {
	TotalOwed    float64 `json:"total_owed"`
	TotalOwing   float64 `json:"total_owing"`
	TotalSettled float64 `json:"total_settled"`
	Balance      float64 `json:"balance"`
	BillCount    int     `json:"bill_count"`
}

// Request structs
type CreateBillRequest struct {
	Title        string          `json:"title" binding:"required"`
	Description  string          `json:"description"`
	TotalAmount  float64         `json:"total_amount" binding:"required,gt=0"`
	Currency     string          `json:"currency"`
	Category     string          `json:"category"`
	GroupID      string          `json:"group_id"`
	PaidBy       string          `json:"paid_by" binding:"required"`
	Participants []string        `json:"participants" binding:"required,min=1"`
	SplitMethod  SplitMethod     `json:"split_method" binding:"required,oneof=equal custom percentage item_based"`
	Splits       []ShareInput    `json:"splits"` // required for custom and percentage
	Items        []BillItemInput `json:"items"`  // required for item_based
}

type ShareInput struct {
	UserID string  `json:"user_id" binding:"required"`
	Value  float64 `json:"value"` // custom amount or percentage, per split method
}

type BillItemInput struct {
	Name       string   `json:"name"`
	Price      float64  `json:"price" binding:"gte=0"`
	AssignedTo []string `json:"assigned_to"`
}

type UpdateBillRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	TotalAmount  float64         `json:"total_amount"`
	Category     string          `json:"category"`
	PaidBy       string          `json:"paid_by"`
	Participants []string        `json:"participants"`
	SplitMethod  SplitMethod     `json:"split_method"`
	Splits       []ShareInput    `json:"splits"`
	Items        []BillItemInput `json:"items"`
}

// Response
type BillResponse struct {
	ID          uuid.UUID       `json:"id"`
	GroupID     *uuid.UUID      `json:"group_id,omitempty"`
	CreatedBy   uuid.UUID       `json:"created_by"`
	PaidBy      uuid.UUID       `json:"paid_by"`
	PayerName   string          `json:"payer_name"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	TotalAmount float64         `json:"total_amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category,omitempty"`
	SplitMethod SplitMethod     `json:"split_method"`
	Splits      []ShareResponse `json:"splits"`
	Payments    []PaymentEdge   `json:"payments"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ShareResponse struct {
	UserID        uuid.UUID     `json:"user_id"`
	UserName      string        `json:"user_name,omitempty"`
	Amount        float64       `json:"amount"`
	Percentage    *float64      `json:"percentage,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Settled       bool          `json:"settled"`
	MarkedPaidAt  *time.Time    `json:"marked_paid_at,omitempty"`
	SettledAt     *time.Time    `json:"settled_at,omitempty"`
}

func (s *Share) ToResponse() ShareResponse {
	return ShareResponse{
		UserID:        s.UserID,
		UserName:      s.User.Name,
		Amount:        s.Amount,
		Percentage:    s.Percentage,
		PaymentStatus: s.PaymentStatus,
		Settled:       s.Settled(),
		MarkedPaidAt:  s.MarkedPaidAt,
		SettledAt:     s.ConfirmedAt,
	}
}
