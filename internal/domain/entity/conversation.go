package entity

import "time"

type ConversationKind string

const (
	KindDirect ConversationKind = "direct"
	KindGroup  ConversationKind = "group"
)

// MemberProfile is a denormalized snapshot of a member's identity taken
// when the member joins. It is intentionally never refreshed afterward:
// a renamed user keeps their old name in existing conversations. This is
// a deliberate staleness trade-off to keep the read path free of per-render
// profile lookups.
type MemberProfile struct {
	DisplayName string `json:"display_name" firestore:"displayName"`
	PhotoURL    string `json:"photo_url,omitempty" firestore:"photoUrl,omitempty"`
}

// MessagePreview is the denormalized "last message" snapshot kept on the
// conversation document so the chat list renders without touching the
// messages subcollection.
type MessagePreview struct {
	Content    string      `json:"content" firestore:"content"`
	SenderID   string      `json:"sender_id" firestore:"senderId"`
	SenderName string      `json:"sender_name" firestore:"senderName"`
	Type       MessageType `json:"type" firestore:"type"`
	SentAt     time.Time   `json:"sent_at" firestore:"sentAt"`
}

type Conversation struct {
	ID          string           `json:"id" firestore:"id"`
	Kind        ConversationKind `json:"kind" firestore:"kind"`
	Name        string           `json:"name,omitempty" firestore:"name,omitempty"`
	Description string           `json:"description,omitempty" firestore:"description,omitempty"`
	PhotoURL    string           `json:"photo_url,omitempty" firestore:"photoUrl,omitempty"`

	MemberIDs      []string                 `json:"member_ids" firestore:"memberIds"`
	MemberProfiles map[string]MemberProfile `json:"member_profiles" firestore:"memberProfiles"`
	AdminIDs       []string                 `json:"admin_ids" firestore:"adminIds"`
	CreatedBy      string                   `json:"created_by" firestore:"createdBy"`

	LastMessage *MessagePreview `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`

	// Per-member maps, keyed by member id. An entry exists for every
	// current member and is removed when that member leaves.
	UnreadCounts map[string]int64 `json:"unread_counts" firestore:"unreadCounts"`
	Archived     map[string]bool  `json:"archived" firestore:"archived"`
	Pinned       map[string]bool  `json:"pinned" firestore:"pinned"`
	Muted        map[string]bool  `json:"muted" firestore:"muted"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (c *Conversation) IsMember(userID string) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Conversation) IsAdmin(userID string) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// SoleAdmin reports whether userID is the only admin of the conversation.
func (c *Conversation) SoleAdmin(userID string) bool {
	return len(c.AdminIDs) == 1 && c.AdminIDs[0] == userID
}
