package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FriendRequest struct {
	ID          string     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SenderID    string     `gorm:"type:uuid;not null;index" json:"sender_id"`
	RecipientID string     `gorm:"type:uuid;not null;index" json:"recipient_id"`
	PairKey     string     `gorm:"type:varchar(80);not null;index" json:"-"`
	Status      string     `gorm:"type:varchar(20);default:'pending';not null" json:"status"` // pending, accepted, declined, cancelled
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ResolvedAt  *time.Time `gorm:"type:timestamp" json:"resolved_at,omitempty"`

	// Relationships
	Sender    User `gorm:"foreignKey:SenderID;references:ID" json:"sender,omitempty"`
	Recipient User `gorm:"foreignKey:RecipientID;references:ID" json:"recipient,omitempty"`
}

// BeforeCreate hook to generate UUID and normalize the pair key
func (r *FriendRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.PairKey == "" {
		r.PairKey = PairKey(r.SenderID, r.RecipientID)
	}
	return nil
}

// TableName specifies the table name
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// IsPending reports whether the request is still awaiting a decision.
func (r *FriendRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// IsResolved reports whether the request reached a terminal state.
func (r *FriendRequest) IsResolved() bool {
	return r.Status == RequestStatusAccepted ||
		r.Status == RequestStatusDeclined ||
		r.Status == RequestStatusCancelled
}

// Friend request status constants
const (
	RequestStatusPending   = "pending"
	RequestStatusAccepted  = "accepted"
	RequestStatusDeclined  = "declined"
	RequestStatusCancelled = "cancelled"
)
