package usecase

import (
	"context"

	"chatsync/internal/domain/entity"
)

// SyncUseCase bundles the live feeds a connected client consumes: its
// conversation list and the message window of whichever conversation it
// has open.
type SyncUseCase struct {
	convUC *ConversationUseCase
	msgUC  *MessageUseCase
}

func NewSyncUseCase(convUC *ConversationUseCase, msgUC *MessageUseCase) *SyncUseCase {
	return &SyncUseCase{convUC: convUC, msgUC: msgUC}
}

// ConversationFeed streams the user's full conversation list whenever
// any of their conversations changes.
func (uc *SyncUseCase) ConversationFeed(ctx context.Context, userID string) (<-chan []*entity.Conversation, error) {
	return uc.convUC.Subscribe(ctx, userID)
}

// MessageFeed streams the viewer's projection of the most recent
// messages of a conversation.
func (uc *SyncUseCase) MessageFeed(ctx context.Context, viewerID, conversationID string, limit int) (<-chan []*entity.Message, error) {
	return uc.msgUC.Subscribe(ctx, viewerID, conversationID, limit)
}
