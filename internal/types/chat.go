package types

import (
	"time"

	"github.com/google/uuid"
)

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is scoped to one program when ProgramID is set, otherwise to the user's trip.
type ChatMessage struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	ProgramID *uuid.UUID `json:"program_id,omitempty"`
	Role      ChatRole   `json:"role"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
}

type ActionType string

const (
	ActionAdd    ActionType = "add"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

// ProgramAction is a storage side effect requested by the model in a global chat reply.
type ProgramAction struct {
	Type      ActionType   `json:"type" validate:"required,oneof=add update delete"`
	ProgramID string       `json:"program_id,omitempty"`
	Program   ProgramPatch `json:"program"`
}

// ActionExecuted tells the caller which cached views to invalidate.
type ActionExecuted struct {
	Type    ActionType `json:"type"`
	Program *Program   `json:"program,omitempty"`
}
