package store

import (
	"context"
	"time"
)

// Fixed storage keys for engine state blobs. Other subsystems treat the
// blob contents as opaque.
const (
	KeyCustomTriggers  = "custom_emotion_triggers"
	KeyCustomMemories  = "custom_memory_keywords"
	KeyLearnedPatterns = "learned_associations"
)

// Message roles.
const (
	RoleUser    = "user"
	RolePersona = "persona"
)

// Message is one persisted chat turn.
type Message struct {
	ID         string
	SessionKey string
	Role       string // RoleUser or RolePersona
	Content    string
	CreatedAt  time.Time
}

// StateStore is the durable state backing for engine blobs and chat
// history. Blob reads return ("", nil) when the key has never been
// written.
type StateStore interface {
	GetBlob(ctx context.Context, key string) (string, error)
	SetBlob(ctx context.Context, key, value string) error
	DeleteBlob(ctx context.Context, key string) error

	AppendMessage(ctx context.Context, msg Message) error
	RecentMessages(ctx context.Context, sessionKey string, limit int) ([]Message, error)
	ClearSession(ctx context.Context, sessionKey string) error

	Close() error
}
