package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Subject string    `gorm:"type:text;not null;uniqueIndex:idx_users_subject" json:"subject"`

	Email     string `gorm:"type:text;not null" json:"email"`
	FirstName string `gorm:"type:text" json:"first_name,omitempty"`
	LastName  string `gorm:"type:text" json:"last_name,omitempty"`
	AvatarURL string `gorm:"type:text" json:"avatar_url,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// User <-> Project
	Projects []Project `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (User) TableName() string { return "users" }
