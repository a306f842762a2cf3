package usecase

import (
	"context"
	"time"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type MessageUseCase struct {
	msgRepo  repository.MessageRepository
	convRepo repository.ConversationRepository
}

func NewMessageUseCase(msgRepo repository.MessageRepository, convRepo repository.ConversationRepository) *MessageUseCase {
	return &MessageUseCase{
		msgRepo:  msgRepo,
		convRepo: convRepo,
	}
}

type SendMessageInput struct {
	ConversationID string
	Body           entity.Body
	ReplyToID      string
}

type MessagePage struct {
	Messages   []*entity.Message
	NextCursor string
}

// Send persists the message, then refreshes the conversation's last
// message preview, then bumps unread counters for the other members. The
// first two failures abort the send; the counter bump is a best-effort
// UX aid and only logs on failure.
func (uc *MessageUseCase) Send(ctx context.Context, senderID string, input SendMessageInput) (*entity.Message, error) {
	if input.Body == nil {
		return nil, errors.BadRequest("message body is required", nil)
	}
	if input.Body.MessageType() == entity.TypeText && input.Body.Text() == "" {
		return nil, errors.BadRequest("text message content cannot be empty", nil)
	}

	conv, err := uc.convRepo.GetByID(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsMember(senderID) {
		return nil, errors.Forbidden("only members can send messages", nil)
	}

	profile := conv.MemberProfiles[senderID]

	msg := &entity.Message{
		ConversationID: input.ConversationID,
		SenderID:       senderID,
		SenderName:     profile.DisplayName,
		SenderPhotoURL: profile.PhotoURL,
		Content:        input.Body.Text(),
		Type:           input.Body.MessageType(),
		Media:          input.Body.MediaRef(),
		ReadBy:         []string{senderID},
		DeliveredTo:    []string{},
		Reactions:      map[string]string{},
		DeletedFor:     []string{},
	}

	if input.ReplyToID != "" {
		original, err := uc.msgRepo.GetByID(ctx, input.ConversationID, input.ReplyToID)
		if err != nil {
			return nil, err
		}
		// Frozen at send time: later edits or deletes of the original do
		// not rewrite the snapshot.
		msg.ReplyTo = &entity.ReplySnapshot{
			MessageID:  original.ID,
			Content:    original.Content,
			SenderName: original.SenderName,
		}
	}

	if err := uc.msgRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	preview := &entity.MessagePreview{
		Content:    msg.Content,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Type:       msg.Type,
		SentAt:     msg.CreatedAt,
	}
	if err := uc.convRepo.SetLastMessage(ctx, input.ConversationID, preview); err != nil {
		return nil, err
	}

	recipients := make([]string, 0, len(conv.MemberIDs)-1)
	for _, m := range conv.MemberIDs {
		if m != senderID {
			recipients = append(recipients, m)
		}
	}
	if err := uc.convRepo.IncrementUnread(ctx, input.ConversationID, recipients); err != nil {
		logger.BestEffort("increment unread counters for conversation "+input.ConversationID, err)
	}

	return msg, nil
}

func (uc *MessageUseCase) GetPage(ctx context.Context, viewerID, conversationID string, limit int, cursor string) (*MessagePage, error) {
	if _, err := uc.memberConversation(ctx, conversationID, viewerID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	messages, next, err := uc.msgRepo.ListPage(ctx, conversationID, limit, cursor)
	if err != nil {
		return nil, err
	}
	return &MessagePage{
		Messages:   filterHidden(messages, viewerID),
		NextCursor: next,
	}, nil
}

// Subscribe emits the viewer's projection of the most recent limit
// messages on every change in that window.
func (uc *MessageUseCase) Subscribe(ctx context.Context, viewerID, conversationID string, limit int) (<-chan []*entity.Message, error) {
	if _, err := uc.memberConversation(ctx, conversationID, viewerID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}

	in, err := uc.msgRepo.Subscribe(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}

	out := make(chan []*entity.Message, 1)
	go func() {
		defer close(out)
		for batch := range in {
			select {
			case out <- filterHidden(batch, viewerID):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// MarkRead adds userID to readBy of each message and resets the user's
// unread counter on the conversation. No-op on empty input.
func (uc *MessageUseCase) MarkRead(ctx context.Context, conversationID, userID string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if _, err := uc.memberConversation(ctx, conversationID, userID); err != nil {
		return err
	}

	if err := uc.msgRepo.AddToMemberSet(ctx, conversationID, messageIDs, "readBy", userID); err != nil {
		return err
	}
	return uc.convRepo.ResetUnread(ctx, conversationID, userID)
}

func (uc *MessageUseCase) MarkDelivered(ctx context.Context, conversationID, userID string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if _, err := uc.memberConversation(ctx, conversationID, userID); err != nil {
		return err
	}
	return uc.msgRepo.AddToMemberSet(ctx, conversationID, messageIDs, "deliveredTo", userID)
}

// AddReaction sets the member's single reaction, replacing any prior one.
func (uc *MessageUseCase) AddReaction(ctx context.Context, conversationID, messageID, userID, emoji string) error {
	if emoji == "" {
		return errors.BadRequest("reaction emoji is required", nil)
	}
	if _, err := uc.memberConversation(ctx, conversationID, userID); err != nil {
		return err
	}
	if _, err := uc.msgRepo.GetByID(ctx, conversationID, messageID); err != nil {
		return err
	}
	return uc.msgRepo.SetReaction(ctx, conversationID, messageID, userID, emoji)
}

func (uc *MessageUseCase) RemoveReaction(ctx context.Context, conversationID, messageID, userID string) error {
	if _, err := uc.memberConversation(ctx, conversationID, userID); err != nil {
		return err
	}
	return uc.msgRepo.RemoveReaction(ctx, conversationID, messageID, userID)
}

func (uc *MessageUseCase) Edit(ctx context.Context, conversationID, messageID, userID, newContent string) error {
	if newContent == "" {
		return errors.BadRequest("message content cannot be empty", nil)
	}

	msg, err := uc.msgRepo.GetByID(ctx, conversationID, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return errors.Forbidden("only the sender can edit a message", nil)
	}
	if msg.IsDeletedForEveryone {
		return errors.BadRequest("a deleted message cannot be edited", nil)
	}

	return uc.msgRepo.SetContent(ctx, conversationID, messageID, newContent, time.Now())
}

// DeleteForEveryone replaces the content with a fixed placeholder and
// blanks the media reference. The document is retained so ordering and
// counts stay stable for all viewers.
func (uc *MessageUseCase) DeleteForEveryone(ctx context.Context, conversationID, messageID, userID string) error {
	msg, err := uc.msgRepo.GetByID(ctx, conversationID, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return errors.Forbidden("only the sender can delete a message for everyone", nil)
	}
	if msg.IsDeletedForEveryone {
		return nil
	}
	return uc.msgRepo.SetDeletedForEveryone(ctx, conversationID, messageID, time.Now())
}

// DeleteForSelf hides the message from the caller only.
func (uc *MessageUseCase) DeleteForSelf(ctx context.Context, conversationID, messageID, userID string) error {
	if _, err := uc.memberConversation(ctx, conversationID, userID); err != nil {
		return err
	}
	if _, err := uc.msgRepo.GetByID(ctx, conversationID, messageID); err != nil {
		return err
	}
	return uc.msgRepo.AddDeletedFor(ctx, conversationID, messageID, userID)
}

func (uc *MessageUseCase) memberConversation(ctx context.Context, conversationID, userID string) (*entity.Conversation, error) {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsMember(userID) {
		return nil, errors.Forbidden("you are not a member of this conversation", nil)
	}
	return conv, nil
}

func filterHidden(messages []*entity.Message, viewerID string) []*entity.Message {
	out := make([]*entity.Message, 0, len(messages))
	for _, m := range messages {
		if !m.HiddenFor(viewerID) {
			out = append(out, m)
		}
	}
	return out
}
