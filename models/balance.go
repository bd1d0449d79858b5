package models

import "github.com/google/uuid"

// FriendBalance is a reporting view of where a user stands with one
// counterparty, accumulated over unsettled payment edges. The ledger itself
// never nets obligations across bills; this view layers the per-friend
// arithmetic on top for dashboards.
type FriendBalance struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Amount    float64   `json:"amount"` // positive = they owe you, negative = you owe them
	Currency  string    `json:"currency"`
}
