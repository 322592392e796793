package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is a chat message role string, "user" or "assistant".
type Role = string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn entry in a project's conversation. Rows are
// append-only; edits and deletes are not exposed.
type ChatMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_chat_project_ts,priority:1" json:"project_id"`

	Role    string `gorm:"type:text;not null;check:role IN ('user','assistant')" json:"role"`
	Content string `gorm:"type:text;not null" json:"content"`

	// Timestamp is assigned by the caller at submit time, not at insert time,
	// so a user message keeps its position even when the assistant reply
	// arrives much later.
	Timestamp time.Time `gorm:"not null;index:idx_chat_project_ts,priority:2" json:"timestamp"`

	AuthorID *uuid.UUID `gorm:"type:uuid;index" json:"author_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	// ChatMessage <-> Project
	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// ChatMessage <-> User
	Author *User `gorm:"foreignKey:AuthorID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE;" json:"-"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
