package usecase

import (
	"context"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

type ConversationUseCase struct {
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	profileRepo repository.ProfileRepository
}

func NewConversationUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	profileRepo repository.ProfileRepository,
) *ConversationUseCase {
	return &ConversationUseCase{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		profileRepo: profileRepo,
	}
}

type CreateGroupInput struct {
	Name        string
	Description string
	PhotoURL    string
	MemberIDs   []string
}

type UpdateMetadataInput struct {
	Name        *string
	Description *string
	PhotoURL    *string
}

// CreateDirect creates (or returns the existing) two-member conversation
// between userID and recipientID. Idempotency against concurrent creation
// is the caller's responsibility; the existing-conversation lookup keeps
// the common path free of duplicates.
func (uc *ConversationUseCase) CreateDirect(ctx context.Context, userID, recipientID string) (*entity.Conversation, error) {
	if userID == recipientID {
		return nil, errors.BadRequest("cannot start a conversation with yourself", nil)
	}

	existing, err := uc.convRepo.FindDirectBetween(ctx, userID, recipientID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	profiles, err := uc.resolveProfiles(ctx, []string{userID, recipientID})
	if err != nil {
		return nil, err
	}

	conv := &entity.Conversation{
		Kind:           entity.KindDirect,
		MemberIDs:      []string{userID, recipientID},
		MemberProfiles: profiles,
		AdminIDs:       []string{},
		CreatedBy:      userID,
		UnreadCounts:   map[string]int64{userID: 0, recipientID: 0},
		Archived:       map[string]bool{userID: false, recipientID: false},
		Pinned:         map[string]bool{userID: false, recipientID: false},
		Muted:          map[string]bool{userID: false, recipientID: false},
	}
	if err := uc.convRepo.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// FindExistingDirect looks up the direct conversation between two users
// without creating one.
func (uc *ConversationUseCase) FindExistingDirect(ctx context.Context, userID, otherID string) (*entity.Conversation, error) {
	return uc.convRepo.FindDirectBetween(ctx, userID, otherID)
}

func (uc *ConversationUseCase) CreateGroup(ctx context.Context, creatorID string, input CreateGroupInput) (*entity.Conversation, error) {
	if input.Name == "" {
		return nil, errors.BadRequest("group name is required", nil)
	}
	if len(input.MemberIDs) == 0 {
		return nil, errors.BadRequest("group must have at least one member", nil)
	}

	members := uniqueWith(input.MemberIDs, creatorID)

	profiles, err := uc.resolveProfiles(ctx, members)
	if err != nil {
		return nil, err
	}

	unread := make(map[string]int64, len(members))
	archived := make(map[string]bool, len(members))
	pinned := make(map[string]bool, len(members))
	muted := make(map[string]bool, len(members))
	for _, m := range members {
		unread[m] = 0
		archived[m] = false
		pinned[m] = false
		muted[m] = false
	}

	conv := &entity.Conversation{
		Kind:           entity.KindGroup,
		Name:           input.Name,
		Description:    input.Description,
		PhotoURL:       input.PhotoURL,
		MemberIDs:      members,
		MemberProfiles: profiles,
		AdminIDs:       []string{creatorID},
		CreatedBy:      creatorID,
		UnreadCounts:   unread,
		Archived:       archived,
		Pinned:         pinned,
		Muted:          muted,
	}
	if err := uc.convRepo.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (uc *ConversationUseCase) GetByID(ctx context.Context, userID, conversationID string) (*entity.Conversation, error) {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsMember(userID) {
		return nil, errors.Forbidden("you are not a member of this conversation", nil)
	}
	return conv, nil
}

func (uc *ConversationUseCase) ListForUser(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	return uc.convRepo.ListByMember(ctx, userID)
}

func (uc *ConversationUseCase) UpdateMetadata(ctx context.Context, conversationID, actorID string, input UpdateMetadataInput) error {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.IsAdmin(actorID) {
		return errors.Forbidden("only admins can update conversation details", nil)
	}

	fields := make(map[string]interface{})
	if input.Name != nil {
		if *input.Name == "" {
			return errors.BadRequest("group name cannot be empty", nil)
		}
		fields["name"] = *input.Name
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.PhotoURL != nil {
		fields["photoUrl"] = *input.PhotoURL
	}
	if len(fields) == 0 {
		return errors.BadRequest("no metadata fields to update", nil)
	}

	return uc.convRepo.UpdateMetadata(ctx, conversationID, fields)
}

func (uc *ConversationUseCase) AddMembers(ctx context.Context, conversationID, actorID string, newMemberIDs []string) error {
	if len(newMemberIDs) == 0 {
		return errors.BadRequest("no members to add", nil)
	}

	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.IsAdmin(actorID) {
		return errors.Forbidden("only admins can add members", nil)
	}

	toAdd := make([]string, 0, len(newMemberIDs))
	for _, m := range uniqueWith(newMemberIDs) {
		if !conv.IsMember(m) {
			toAdd = append(toAdd, m)
		}
	}
	if len(toAdd) == 0 {
		return nil
	}

	profiles, err := uc.resolveProfiles(ctx, toAdd)
	if err != nil {
		return err
	}
	return uc.convRepo.AddMembers(ctx, conversationID, toAdd, profiles)
}

func (uc *ConversationUseCase) RemoveMember(ctx context.Context, conversationID, actorID, targetID string) error {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.IsAdmin(actorID) {
		return errors.Forbidden("only admins can remove members", nil)
	}

	remaining, err := uc.convRepo.RemoveMember(ctx, conversationID, targetID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		uc.purgeMessages(ctx, conversationID)
	}
	return nil
}

// LeaveConversation removes the caller from the conversation. A sole
// remaining member leaving (necessarily also the sole admin) deletes the
// conversation and its messages instead of orphaning it.
func (uc *ConversationUseCase) LeaveConversation(ctx context.Context, conversationID, userID string) error {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.IsMember(userID) {
		return errors.NotFound("Member", nil)
	}

	remaining, err := uc.convRepo.RemoveMember(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		uc.purgeMessages(ctx, conversationID)
	}
	return nil
}

// PromoteAdmin grants admin rights to another member, which is how a sole
// admin hands over the group before leaving.
func (uc *ConversationUseCase) PromoteAdmin(ctx context.Context, conversationID, actorID, targetID string) error {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.Kind != entity.KindGroup {
		return errors.BadRequest("direct conversations have no admins", nil)
	}
	if !conv.IsAdmin(actorID) {
		return errors.Forbidden("only admins can promote members", nil)
	}
	if !conv.IsMember(targetID) {
		return errors.NotFound("Member", nil)
	}
	if conv.IsAdmin(targetID) {
		return nil
	}
	return uc.convRepo.AddAdmin(ctx, conversationID, targetID)
}

func (uc *ConversationUseCase) SetArchived(ctx context.Context, conversationID, userID string, value bool) error {
	return uc.setFlag(ctx, conversationID, userID, repository.FlagArchived, value)
}

func (uc *ConversationUseCase) SetPinned(ctx context.Context, conversationID, userID string, value bool) error {
	return uc.setFlag(ctx, conversationID, userID, repository.FlagPinned, value)
}

func (uc *ConversationUseCase) SetMuted(ctx context.Context, conversationID, userID string, value bool) error {
	return uc.setFlag(ctx, conversationID, userID, repository.FlagMuted, value)
}

func (uc *ConversationUseCase) setFlag(ctx context.Context, conversationID, userID, flag string, value bool) error {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.IsMember(userID) {
		return errors.Forbidden("you are not a member of this conversation", nil)
	}
	return uc.convRepo.SetFlag(ctx, conversationID, userID, flag, value)
}

func (uc *ConversationUseCase) DeleteConversation(ctx context.Context, conversationID, actorID string) error {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.CreatedBy != actorID {
		return errors.Forbidden("only the creator can delete a conversation", nil)
	}

	// Messages go first so a crash mid-cascade leaves no orphaned
	// subcollection behind a still-listed conversation.
	deleted, err := uc.msgRepo.DeleteAll(ctx, conversationID)
	if err != nil {
		return err
	}
	logger.Info("cascade deleted %d messages for conversation %s", deleted, conversationID)

	return uc.convRepo.Delete(ctx, conversationID)
}

func (uc *ConversationUseCase) Subscribe(ctx context.Context, userID string) (<-chan []*entity.Conversation, error) {
	return uc.convRepo.Subscribe(ctx, userID)
}

func (uc *ConversationUseCase) purgeMessages(ctx context.Context, conversationID string) {
	deleted, err := uc.msgRepo.DeleteAll(ctx, conversationID)
	if err != nil {
		logger.BestEffort("purge messages of emptied conversation "+conversationID, err)
		return
	}
	logger.Info("deleted emptied conversation %s and its %d messages", conversationID, deleted)
}

func (uc *ConversationUseCase) resolveProfiles(ctx context.Context, memberIDs []string) (map[string]entity.MemberProfile, error) {
	profiles := make(map[string]entity.MemberProfile, len(memberIDs))
	for _, m := range memberIDs {
		profile, err := uc.profileRepo.GetProfile(ctx, m)
		if err != nil {
			return nil, err
		}
		profiles[m] = *profile
	}
	return profiles, nil
}

// uniqueWith returns ids deduplicated, with the extra ids appended when
// missing.
func uniqueWith(ids []string, extra ...string) []string {
	seen := make(map[string]struct{}, len(ids)+len(extra))
	out := make([]string, 0, len(ids)+len(extra))
	for _, id := range append(append([]string{}, ids...), extra...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
