package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID               string    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Username         string    `gorm:"type:varchar(50);unique;not null" json:"username"`
	FullName         string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Email            string    `gorm:"type:varchar(255);unique;not null" json:"email"`
	NativeLanguage   string    `gorm:"type:varchar(50);index" json:"native_language"`
	LearningLanguage string    `gorm:"type:varchar(50);index" json:"learning_language"`
	Location         string    `gorm:"type:varchar(100)" json:"location"`
	Bio              string    `gorm:"type:text" json:"bio,omitempty"`
	AvatarURL        string    `gorm:"type:text" json:"avatar_url,omitempty"`
	IsActive         bool      `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}
