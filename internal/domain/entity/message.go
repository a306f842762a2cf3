package entity

import "time"

type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeVideo MessageType = "video"
	TypeAudio MessageType = "audio"
	TypeFile  MessageType = "file"
)

// DeletedPlaceholder replaces the content of a message once it has been
// deleted for everyone. The document itself is retained so ordering and
// counts stay stable for all viewers.
const DeletedPlaceholder = "This message was deleted"

// MediaRef points at an uploaded attachment. Present iff the message type
// is not text.
type MediaRef struct {
	URL             string  `json:"url" firestore:"url"`
	FileName        string  `json:"file_name,omitempty" firestore:"fileName,omitempty"`
	FileSize        int64   `json:"file_size,omitempty" firestore:"fileSize,omitempty"`
	MimeType        string  `json:"mime_type,omitempty" firestore:"mimeType,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty" firestore:"durationSeconds,omitempty"`
	ThumbnailURL    string  `json:"thumbnail_url,omitempty" firestore:"thumbnailUrl,omitempty"`
}

// ReplySnapshot is an immutable copy of the message being replied to,
// taken at send time. Editing or deleting the original later does not
// change the snapshot.
type ReplySnapshot struct {
	MessageID  string `json:"message_id" firestore:"messageId"`
	Content    string `json:"content" firestore:"content"`
	SenderName string `json:"sender_name" firestore:"senderName"`
}

type Message struct {
	ID             string      `json:"id" firestore:"id"`
	ConversationID string      `json:"conversation_id" firestore:"conversationId"`
	SenderID       string      `json:"sender_id" firestore:"senderId"`
	SenderName     string      `json:"sender_name" firestore:"senderName"`
	SenderPhotoURL string      `json:"sender_photo_url,omitempty" firestore:"senderPhotoUrl,omitempty"`
	Content        string      `json:"content" firestore:"content"`
	Type           MessageType `json:"type" firestore:"type"`

	Media   *MediaRef      `json:"media,omitempty" firestore:"media,omitempty"`
	ReplyTo *ReplySnapshot `json:"reply_to,omitempty" firestore:"replyTo,omitempty"`

	ReadBy      []string          `json:"read_by" firestore:"readBy"`
	DeliveredTo []string          `json:"delivered_to" firestore:"deliveredTo"`
	Reactions   map[string]string `json:"reactions" firestore:"reactions"`

	// DeletedFor hides the message from individual viewers without
	// affecting anyone else.
	DeletedFor           []string `json:"deleted_for" firestore:"deletedFor"`
	IsDeletedForEveryone bool     `json:"is_deleted_for_everyone" firestore:"isDeletedForEveryone"`

	IsEdited bool       `json:"is_edited" firestore:"isEdited"`
	EditedAt *time.Time `json:"edited_at,omitempty" firestore:"editedAt,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// HiddenFor reports whether the message is deleted-for-self for userID.
func (m *Message) HiddenFor(userID string) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

func (m *Message) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}
