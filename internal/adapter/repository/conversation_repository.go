package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"chatsync/internal/adapter/docstore"
	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	apperrors "chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

const conversationsPath = "conversations"

func messagesPath(conversationID string) string {
	return conversationsPath + "/" + conversationID + "/messages"
}

type docConversationRepository struct {
	store docstore.Store
}

func NewConversationRepository(store docstore.Store) repository.ConversationRepository {
	return &docConversationRepository{store: store}
}

func (r *docConversationRepository) Create(ctx context.Context, conv *entity.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}

	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	if err := r.store.Put(ctx, conversationsPath, conv.ID, conversationToDoc(conv)); err != nil {
		return wrapStoreErr("Conversation", err)
	}
	return nil
}

func (r *docConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	snap, err := r.store.Get(ctx, conversationsPath, id)
	if err != nil {
		return nil, wrapStoreErr("Conversation", err)
	}
	return conversationFromDoc(snap.ID, snap.Data), nil
}

func (r *docConversationRepository) ListByMember(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	snaps, err := r.store.Query(ctx, memberFeedQuery(userID))
	if err != nil {
		return nil, wrapStoreErr("Conversation", err)
	}

	convs := make([]*entity.Conversation, 0, len(snaps))
	for _, snap := range snaps {
		convs = append(convs, conversationFromDoc(snap.ID, snap.Data))
	}
	return convs, nil
}

func (r *docConversationRepository) FindDirectBetween(ctx context.Context, userA, userB string) (*entity.Conversation, error) {
	snaps, err := r.store.Query(ctx, docstore.Query{
		Path: conversationsPath,
		Filters: []docstore.Filter{
			{Path: "kind", Op: docstore.OpEqual, Value: string(entity.KindDirect)},
			{Path: "memberIds", Op: docstore.OpArrayContains, Value: userA},
		},
	})
	if err != nil {
		return nil, wrapStoreErr("Conversation", err)
	}

	// Linear scan over userA's direct conversations: the store cannot
	// filter on "array contains both X and Y" in one query.
	for _, snap := range snaps {
		conv := conversationFromDoc(snap.ID, snap.Data)
		if conv.IsMember(userB) {
			return conv, nil
		}
	}
	return nil, apperrors.NotFound("Direct conversation", nil)
}

func (r *docConversationRepository) UpdateMetadata(ctx context.Context, id string, fields map[string]interface{}) error {
	updates := make([]docstore.Update, 0, len(fields)+1)
	for path, value := range fields {
		updates = append(updates, docstore.Update{Path: path, Value: value})
	}
	updates = append(updates, docstore.Update{Path: "updatedAt", Value: time.Now()})

	if err := r.store.Update(ctx, conversationsPath, id, updates); err != nil {
		return wrapStoreErr("Conversation", err)
	}
	return nil
}

func (r *docConversationRepository) AddMembers(ctx context.Context, id string, memberIDs []string, profiles map[string]entity.MemberProfile) error {
	values := make([]interface{}, len(memberIDs))
	for i, m := range memberIDs {
		values[i] = m
	}

	updates := []docstore.Update{
		{Path: "memberIds", Value: docstore.ArrayUnion(values...)},
	}
	for _, m := range memberIDs {
		updates = append(updates,
			docstore.Update{Path: "memberProfiles." + m, Value: map[string]interface{}(profileToDoc(profiles[m]))},
			docstore.Update{Path: "unreadCounts." + m, Value: int64(0)},
			docstore.Update{Path: repository.FlagArchived + "." + m, Value: false},
			docstore.Update{Path: repository.FlagPinned + "." + m, Value: false},
			docstore.Update{Path: repository.FlagMuted + "." + m, Value: false},
		)
	}
	updates = append(updates, docstore.Update{Path: "updatedAt", Value: time.Now()})

	if err := r.store.Update(ctx, conversationsPath, id, updates); err != nil {
		return wrapStoreErr("Conversation", err)
	}
	return nil
}

func (r *docConversationRepository) RemoveMember(ctx context.Context, id, target string) (int, error) {
	remaining := 0

	// The sole-admin invariant is re-checked inside the transaction so
	// two concurrent admin departures cannot both pass a stale check.
	err := r.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		snap, err := tx.Get(conversationsPath, id)
		if err != nil {
			return err
		}
		conv := conversationFromDoc(snap.ID, snap.Data)

		if !conv.IsMember(target) {
			return apperrors.NotFound("Member", nil)
		}
		if len(conv.MemberIDs) > 1 && conv.SoleAdmin(target) {
			return apperrors.InvariantViolation("cannot remove the only admin while other members remain; transfer admin rights first")
		}

		if len(conv.MemberIDs) == 1 {
			remaining = 0
			return tx.Delete(conversationsPath, id)
		}

		remaining = len(conv.MemberIDs) - 1
		return tx.Update(conversationsPath, id, []docstore.Update{
			{Path: "memberIds", Value: docstore.ArrayRemove(target)},
			{Path: "adminIds", Value: docstore.ArrayRemove(target)},
			{Path: "memberProfiles." + target, Value: docstore.DeleteField()},
			{Path: "unreadCounts." + target, Value: docstore.DeleteField()},
			{Path: repository.FlagArchived + "." + target, Value: docstore.DeleteField()},
			{Path: repository.FlagPinned + "." + target, Value: docstore.DeleteField()},
			{Path: repository.FlagMuted + "." + target, Value: docstore.DeleteField()},
			{Path: "updatedAt", Value: time.Now()},
		})
	})
	if err != nil {
		return 0, wrapStoreErr("Conversation", err)
	}
	return remaining, nil
}

func (r *docConversationRepository) AddAdmin(ctx context.Context, id, userID string) error {
	err := r.store.Update(ctx, conversationsPath, id, []docstore.Update{
		{Path: "adminIds", Value: docstore.ArrayUnion(userID)},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return wrapStoreErr("Conversation", err)
	}
	return nil
}

func (r *docConversationRepository) SetFlag(ctx context.Context, id, userID, flag string, value bool) error {
	err := r.store.Update(ctx, conversationsPath, id, []docstore.Update{
		{Path: flag + "." + userID, Value: value},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return wrapStoreErr("Conversation", err)
	}
	return nil
}

// ResetUnread deliberately leaves updatedAt alone: the chat list orders
// by updatedAt, and one member catching up on a conversation must not
// reorder everyone's list the way a new message does.
func (r *docConversationRepository) ResetUnread(ctx context.Context, id, userID string) error {
	err := r.store.Update(ctx, conversationsPath, id, []docstore.Update{
		{Path: "unreadCounts." + userID, Value: int64(0)},
	})
	if err != nil {
		return wrapStoreErr("Conversation", err)
	}
	return nil
}

func (r *docConversationRepository) IncrementUnread(ctx context.Context, id string, memberIDs []string) error {
	if len(memberIDs) == 0 {
		return nil
	}

	updates := make([]docstore.Update, 0, len(memberIDs))
	for _, m := range memberIDs {
		updates = append(updates, docstore.Update{
			Path:  "unreadCounts." + m,
			Value: docstore.Increment(1),
		})
	}
	if err := r.store.Update(ctx, conversationsPath, id, updates); err != nil {
		return wrapStoreErr("Conversation", err)
	}
	return nil
}

func (r *docConversationRepository) SetLastMessage(ctx context.Context, id string, preview *entity.MessagePreview) error {
	err := r.store.Update(ctx, conversationsPath, id, []docstore.Update{
		{Path: "lastMessage", Value: map[string]interface{}(previewToDoc(preview))},
		{Path: "updatedAt", Value: preview.SentAt},
	})
	if err != nil {
		return wrapStoreErr("Conversation", err)
	}
	return nil
}

func (r *docConversationRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, conversationsPath, id); err != nil {
		return wrapStoreErr("Conversation", err)
	}
	return nil
}

func (r *docConversationRepository) Subscribe(ctx context.Context, userID string) (<-chan []*entity.Conversation, error) {
	snaps, err := r.store.Subscribe(ctx, memberFeedQuery(userID))
	if err != nil {
		return nil, wrapStoreErr("Conversation", err)
	}

	out := make(chan []*entity.Conversation, 1)
	go func() {
		defer close(out)
		for batch := range snaps {
			convs := make([]*entity.Conversation, 0, len(batch))
			for _, snap := range batch {
				convs = append(convs, conversationFromDoc(snap.ID, snap.Data))
			}
			select {
			case out <- convs:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func memberFeedQuery(userID string) docstore.Query {
	return docstore.Query{
		Path: conversationsPath,
		Filters: []docstore.Filter{
			{Path: "memberIds", Op: docstore.OpArrayContains, Value: userID},
		},
		OrderBy: []docstore.Order{{Path: "updatedAt", Desc: true}},
	}
}

func wrapStoreErr(resource string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, docstore.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	if errors.Is(err, docstore.ErrUnavailable) {
		return apperrors.Unavailable("document store unavailable", err)
	}
	logger.Error("unexpected store error for %s: %v", resource, err)
	return apperrors.Internal("document store operation failed", err)
}
