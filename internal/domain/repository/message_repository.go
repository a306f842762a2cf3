package repository

import (
	"context"
	"time"

	"chatsync/internal/domain/entity"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) error
	GetByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error)

	// ListPage returns up to limit messages ordered by createdAt
	// descending, continuing after the opaque cursor when non-empty. The
	// returned cursor is empty once the final page is reached.
	ListPage(ctx context.Context, conversationID string, limit int, cursor string) ([]*entity.Message, string, error)

	// Subscribe emits the most recent limit messages on every change
	// within that window until ctx is cancelled.
	Subscribe(ctx context.Context, conversationID string, limit int) (<-chan []*entity.Message, error)

	// AddToMemberSet idempotently adds userID to the named set field
	// (readBy or deliveredTo) of each message, chunking the writes into
	// sequential atomic batches. A crash mid-sequence leaves a prefix
	// applied; the operation is safe to repeat.
	AddToMemberSet(ctx context.Context, conversationID string, messageIDs []string, field, userID string) error

	SetReaction(ctx context.Context, conversationID, messageID, userID, emoji string) error
	RemoveReaction(ctx context.Context, conversationID, messageID, userID string) error

	SetContent(ctx context.Context, conversationID, messageID, content string, editedAt time.Time) error
	SetDeletedForEveryone(ctx context.Context, conversationID, messageID string, at time.Time) error
	AddDeletedFor(ctx context.Context, conversationID, messageID, userID string) error

	// DeleteAll removes every message of a conversation via chunked
	// batched deletes and reports how many were removed.
	DeleteAll(ctx context.Context, conversationID string) (int, error)
}
