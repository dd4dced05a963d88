package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Friendship is the undirected edge created when a friend request is
// accepted. UserAID/UserBID are stored in sorted order so that one row
// represents the pair regardless of who sent the original request.
type Friendship struct {
	ID        string    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserAID   string    `gorm:"type:uuid;not null;index" json:"user_a_id"`
	UserBID   string    `gorm:"type:uuid;not null;index" json:"user_b_id"`
	PairKey   string    `gorm:"type:varchar(80);not null;uniqueIndex" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	UserA User `gorm:"foreignKey:UserAID;references:ID" json:"user_a,omitempty"`
	UserB User `gorm:"foreignKey:UserBID;references:ID" json:"user_b,omitempty"`
}

// BeforeCreate hook to generate UUID and normalize the edge ordering
func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.UserAID, f.UserBID = SortPair(f.UserAID, f.UserBID)
	if f.PairKey == "" {
		f.PairKey = PairKey(f.UserAID, f.UserBID)
	}
	return nil
}

// TableName specifies the table name
func (Friendship) TableName() string {
	return "friendships"
}

// OtherUserID returns the edge endpoint that is not userID.
func (f *Friendship) OtherUserID(userID string) string {
	if f.UserAID == userID {
		return f.UserBID
	}
	return f.UserAID
}
