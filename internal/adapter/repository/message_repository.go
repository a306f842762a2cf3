package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"chatsync/internal/adapter/docstore"
	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	apperrors "chatsync/pkg/errors"
)

const (
	fieldReadBy      = "readBy"
	fieldDeliveredTo = "deliveredTo"
)

type docMessageRepository struct {
	store docstore.Store
}

func NewMessageRepository(store docstore.Store) repository.MessageRepository {
	return &docMessageRepository{store: store}
}

func (r *docMessageRepository) Create(ctx context.Context, msg *entity.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	if err := r.store.Put(ctx, messagesPath(msg.ConversationID), msg.ID, messageToDoc(msg)); err != nil {
		return wrapStoreErr("Message", err)
	}
	return nil
}

func (r *docMessageRepository) GetByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	snap, err := r.store.Get(ctx, messagesPath(conversationID), messageID)
	if err != nil {
		return nil, wrapStoreErr("Message", err)
	}
	return messageFromDoc(snap.ID, snap.Data), nil
}

// pageCursor is the decoded form of the opaque pagination cursor. It pins
// a position by (createdAt, id) so the page boundary stays stable under
// concurrent inserts, unlike a raw offset.
type pageCursor struct {
	CreatedAtNanos int64  `json:"t"`
	ID             string `json:"id"`
}

func encodeCursor(m *entity.Message) string {
	raw, _ := json.Marshal(pageCursor{CreatedAtNanos: m.CreatedAt.UnixNano(), ID: m.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(cursor string) (*pageCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, apperrors.BadRequest("malformed pagination cursor", err)
	}
	var c pageCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, apperrors.BadRequest("malformed pagination cursor", err)
	}
	return &c, nil
}

func (r *docMessageRepository) ListPage(ctx context.Context, conversationID string, limit int, cursor string) ([]*entity.Message, string, error) {
	q := messageWindowQuery(conversationID, limit)
	if cursor != "" {
		c, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		q.StartAfter = []interface{}{time.Unix(0, c.CreatedAtNanos), c.ID}
	}

	snaps, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, "", wrapStoreErr("Message", err)
	}

	messages := make([]*entity.Message, 0, len(snaps))
	for _, snap := range snaps {
		messages = append(messages, messageFromDoc(snap.ID, snap.Data))
	}

	next := ""
	if limit > 0 && len(messages) == limit {
		next = encodeCursor(messages[len(messages)-1])
	}
	return messages, next, nil
}

func (r *docMessageRepository) Subscribe(ctx context.Context, conversationID string, limit int) (<-chan []*entity.Message, error) {
	snaps, err := r.store.Subscribe(ctx, messageWindowQuery(conversationID, limit))
	if err != nil {
		return nil, wrapStoreErr("Message", err)
	}

	out := make(chan []*entity.Message, 1)
	go func() {
		defer close(out)
		for batch := range snaps {
			messages := make([]*entity.Message, 0, len(batch))
			for _, snap := range batch {
				messages = append(messages, messageFromDoc(snap.ID, snap.Data))
			}
			select {
			case out <- messages:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (r *docMessageRepository) AddToMemberSet(ctx context.Context, conversationID string, messageIDs []string, field, userID string) error {
	path := messagesPath(conversationID)
	now := time.Now()

	// One update per message, chunked into sequential atomic batches.
	// Each chunk commits independently; a crash mid-sequence leaves a
	// prefix applied, and repeating the call is harmless because the
	// writes are array unions.
	for start := 0; start < len(messageIDs); start += docstore.MaxBatchSize {
		end := start + docstore.MaxBatchSize
		if end > len(messageIDs) {
			end = len(messageIDs)
		}

		batch := r.store.Batch()
		for _, id := range messageIDs[start:end] {
			batch.Update(path, id, []docstore.Update{
				{Path: field, Value: docstore.ArrayUnion(userID)},
				{Path: "updatedAt", Value: now},
			})
		}
		if err := batch.Commit(ctx); err != nil {
			return wrapStoreErr("Message", err)
		}
	}
	return nil
}

func (r *docMessageRepository) SetReaction(ctx context.Context, conversationID, messageID, userID, emoji string) error {
	err := r.store.Update(ctx, messagesPath(conversationID), messageID, []docstore.Update{
		{Path: "reactions." + userID, Value: emoji},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return wrapStoreErr("Message", err)
	}
	return nil
}

func (r *docMessageRepository) RemoveReaction(ctx context.Context, conversationID, messageID, userID string) error {
	err := r.store.Update(ctx, messagesPath(conversationID), messageID, []docstore.Update{
		{Path: "reactions." + userID, Value: docstore.DeleteField()},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return wrapStoreErr("Message", err)
	}
	return nil
}

func (r *docMessageRepository) SetContent(ctx context.Context, conversationID, messageID, content string, editedAt time.Time) error {
	err := r.store.Update(ctx, messagesPath(conversationID), messageID, []docstore.Update{
		{Path: "content", Value: content},
		{Path: "isEdited", Value: true},
		{Path: "editedAt", Value: editedAt},
		{Path: "updatedAt", Value: editedAt},
	})
	if err != nil {
		return wrapStoreErr("Message", err)
	}
	return nil
}

func (r *docMessageRepository) SetDeletedForEveryone(ctx context.Context, conversationID, messageID string, at time.Time) error {
	err := r.store.Update(ctx, messagesPath(conversationID), messageID, []docstore.Update{
		{Path: "isDeletedForEveryone", Value: true},
		{Path: "content", Value: entity.DeletedPlaceholder},
		{Path: "media", Value: docstore.DeleteField()},
		{Path: "updatedAt", Value: at},
	})
	if err != nil {
		return wrapStoreErr("Message", err)
	}
	return nil
}

func (r *docMessageRepository) AddDeletedFor(ctx context.Context, conversationID, messageID, userID string) error {
	err := r.store.Update(ctx, messagesPath(conversationID), messageID, []docstore.Update{
		{Path: "deletedFor", Value: docstore.ArrayUnion(userID)},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return wrapStoreErr("Message", err)
	}
	return nil
}

func (r *docMessageRepository) DeleteAll(ctx context.Context, conversationID string) (int, error) {
	path := messagesPath(conversationID)
	snaps, err := r.store.Query(ctx, docstore.Query{Path: path})
	if err != nil {
		return 0, wrapStoreErr("Message", err)
	}

	deleted := 0
	for start := 0; start < len(snaps); start += docstore.MaxBatchSize {
		end := start + docstore.MaxBatchSize
		if end > len(snaps) {
			end = len(snaps)
		}

		batch := r.store.Batch()
		for _, snap := range snaps[start:end] {
			batch.Delete(path, snap.ID)
		}
		if err := batch.Commit(ctx); err != nil {
			return deleted, wrapStoreErr("Message", err)
		}
		deleted += end - start
	}
	return deleted, nil
}

func messageWindowQuery(conversationID string, limit int) docstore.Query {
	return docstore.Query{
		Path: messagesPath(conversationID),
		OrderBy: []docstore.Order{
			{Path: "createdAt", Desc: true},
			{Path: "id", Desc: true},
		},
		Limit: limit,
	}
}
