package repository

import (
	"context"

	"chatsync/internal/domain/entity"
)

// Per-member flag fields tracked on the conversation document.
const (
	FlagArchived = "archived"
	FlagPinned   = "pinned"
	FlagMuted    = "muted"
)

type ConversationRepository interface {
	Create(ctx context.Context, conv *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)

	// ListByMember returns every conversation containing userID, ordered
	// by updatedAt descending.
	ListByMember(ctx context.Context, userID string) ([]*entity.Conversation, error)

	// FindDirectBetween scans userA's direct conversations for one that
	// also contains userB. Linear scan: the backing store cannot filter
	// on "array contains both X and Y" in a single query.
	FindDirectBetween(ctx context.Context, userA, userB string) (*entity.Conversation, error)

	UpdateMetadata(ctx context.Context, id string, fields map[string]interface{}) error

	AddMembers(ctx context.Context, id string, memberIDs []string, profiles map[string]entity.MemberProfile) error

	// RemoveMember removes target from the conversation inside a store
	// transaction, re-checking the sole-admin invariant against the
	// document state at commit time. Returns the number of members
	// remaining; 0 means the conversation document itself was deleted.
	RemoveMember(ctx context.Context, id, target string) (remaining int, err error)

	// AddAdmin grants admin rights to an existing member.
	AddAdmin(ctx context.Context, id, userID string) error

	SetFlag(ctx context.Context, id, userID, flag string, value bool) error
	ResetUnread(ctx context.Context, id, userID string) error

	// IncrementUnread bumps unread counters for the given members as a
	// read-less relative write, so concurrent senders never lose updates.
	IncrementUnread(ctx context.Context, id string, memberIDs []string) error

	SetLastMessage(ctx context.Context, id string, preview *entity.MessagePreview) error

	Delete(ctx context.Context, id string) error

	// Subscribe emits the full ordered conversation list for userID on
	// every underlying change until ctx is cancelled.
	Subscribe(ctx context.Context, userID string) (<-chan []*entity.Conversation, error)
}

// ProfileRepository resolves identity snapshots at the moment a member is
// added to a conversation. Profiles are frozen copies, never re-queried.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*entity.MemberProfile, error)
}
