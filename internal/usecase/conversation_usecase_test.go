package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/adapter/docstore"
	adapterrepo "chatsync/internal/adapter/repository"
	"chatsync/internal/domain/entity"
	"chatsync/pkg/errors"
)

type testEnv struct {
	store  *docstore.MemoryStore
	convUC *ConversationUseCase
	msgUC  *MessageUseCase
}

func newTestEnv(t *testing.T, userIDs ...string) *testEnv {
	t.Helper()

	store := docstore.NewMemoryStore()
	for _, id := range userIDs {
		err := store.Put(context.Background(), "users", id, docstore.Doc{
			"displayName": "User " + id,
			"photoUrl":    "https://example.com/" + id + ".jpg",
		})
		require.NoError(t, err)
	}

	convRepo := adapterrepo.NewConversationRepository(store)
	msgRepo := adapterrepo.NewMessageRepository(store)
	profileRepo := adapterrepo.NewProfileRepository(store)

	return &testEnv{
		store:  store,
		convUC: NewConversationUseCase(convRepo, msgRepo, profileRepo),
		msgUC:  NewMessageUseCase(msgRepo, convRepo),
	}
}

func TestCreateDirectConversation(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	assert.Equal(t, entity.KindDirect, conv.Kind)
	assert.ElementsMatch(t, []string{"alice", "bob"}, conv.MemberIDs)
	assert.Empty(t, conv.AdminIDs)
	assert.Equal(t, "User bob", conv.MemberProfiles["bob"].DisplayName)
	assert.Equal(t, int64(0), conv.UnreadCounts["alice"])
	assert.Equal(t, int64(0), conv.UnreadCounts["bob"])

	// A second request for the same pair returns the existing
	// conversation instead of creating a duplicate.
	again, err := env.convUC.CreateDirect(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)
}

func TestCreateDirectWithSelf(t *testing.T) {
	env := newTestEnv(t, "alice")

	_, err := env.convUC.CreateDirect(context.Background(), "alice", "alice")
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestCreateGroup(t *testing.T) {
	env := newTestEnv(t, "alice", "bob", "carol")
	ctx := context.Background()

	conv, err := env.convUC.CreateGroup(ctx, "alice", CreateGroupInput{
		Name:      "Weekend Plans",
		MemberIDs: []string{"bob", "carol", "bob"},
	})
	require.NoError(t, err)

	assert.Equal(t, entity.KindGroup, conv.Kind)
	assert.Equal(t, "Weekend Plans", conv.Name)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, conv.MemberIDs)
	assert.Equal(t, []string{"alice"}, conv.AdminIDs)
	assert.Equal(t, "alice", conv.CreatedBy)
	assert.Len(t, conv.MemberProfiles, 3)
}

func TestCreateGroupValidation(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	_, err := env.convUC.CreateGroup(ctx, "alice", CreateGroupInput{MemberIDs: []string{"bob"}})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = env.convUC.CreateGroup(ctx, "alice", CreateGroupInput{Name: "Empty"})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestGetByIDRequiresMembership(t *testing.T) {
	env := newTestEnv(t, "alice", "bob", "mallory")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = env.convUC.GetByID(ctx, "mallory", conv.ID)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestUpdateMetadataRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateGroup(ctx, "alice", CreateGroupInput{
		Name:      "Project",
		MemberIDs: []string{"bob"},
	})
	require.NoError(t, err)

	name := "Project X"
	err = env.convUC.UpdateMetadata(ctx, conv.ID, "bob", UpdateMetadataInput{Name: &name})
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	err = env.convUC.UpdateMetadata(ctx, conv.ID, "alice", UpdateMetadataInput{Name: &name})
	require.NoError(t, err)

	got, err := env.convUC.GetByID(ctx, "alice", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Project X", got.Name)
}

func TestAddMembers(t *testing.T) {
	env := newTestEnv(t, "alice", "bob", "carol", "dave")
	ctx := context.Background()

	conv, err := env.convUC.CreateGroup(ctx, "alice", CreateGroupInput{
		Name:      "Team",
		MemberIDs: []string{"bob"},
	})
	require.NoError(t, err)

	err = env.convUC.AddMembers(ctx, conv.ID, "bob", []string{"carol"})
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	// Already-present ids are skipped, new ones get fresh per-member state.
	err = env.convUC.AddMembers(ctx, conv.ID, "alice", []string{"bob", "carol", "dave"})
	require.NoError(t, err)

	got, err := env.convUC.GetByID(ctx, "alice", conv.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol", "dave"}, got.MemberIDs)
	assert.Equal(t, "User carol", got.MemberProfiles["carol"].DisplayName)
	assert.Equal(t, int64(0), got.UnreadCounts["dave"])
	assert.False(t, got.Archived["dave"])
}

func TestSoleAdminCannotLeaveGroupWithMembers(t *testing.T) {
	env := newTestEnv(t, "alice", "bob", "carol")
	ctx := context.Background()

	conv, err := env.convUC.CreateGroup(ctx, "alice", CreateGroupInput{
		Name:      "Handover",
		MemberIDs: []string{"bob", "carol"},
	})
	require.NoError(t, err)

	err = env.convUC.LeaveConversation(ctx, conv.ID, "alice")
	assert.True(t, errors.Is(err, "INVARIANT_VIOLATION"))

	// After handing over admin rights the departure goes through.
	require.NoError(t, env.convUC.PromoteAdmin(ctx, conv.ID, "alice", "bob"))
	require.NoError(t, env.convUC.LeaveConversation(ctx, conv.ID, "alice"))

	got, err := env.convUC.GetByID(ctx, "bob", conv.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, got.MemberIDs)
	assert.Equal(t, []string{"bob"}, got.AdminIDs)
	assert.NotContains(t, got.UnreadCounts, "alice")
	assert.NotContains(t, got.MemberProfiles, "alice")
}

func TestRemoveMemberInDirectConversation(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	// Direct conversations have no admins, so nobody can eject the other
	// party; leaving is the only way out.
	err = env.convUC.RemoveMember(ctx, conv.ID, "alice", "bob")
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestRemoveMemberRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, "alice", "bob", "carol")
	ctx := context.Background()

	conv, err := env.convUC.CreateGroup(ctx, "alice", CreateGroupInput{
		Name:      "Team",
		MemberIDs: []string{"bob", "carol"},
	})
	require.NoError(t, err)

	err = env.convUC.RemoveMember(ctx, conv.ID, "bob", "carol")
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	require.NoError(t, env.convUC.RemoveMember(ctx, conv.ID, "alice", "carol"))

	got, err := env.convUC.GetByID(ctx, "alice", conv.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, got.MemberIDs)
}

func TestLastMemberLeavingDeletesConversation(t *testing.T) {
	env := newTestEnv(t, "alice")
	ctx := context.Background()

	conv, err := env.convUC.CreateGroup(ctx, "alice", CreateGroupInput{
		Name:      "Notes to self",
		MemberIDs: []string{"alice"},
	})
	require.NoError(t, err)

	_, err = env.msgUC.Send(ctx, "alice", SendMessageInput{
		ConversationID: conv.ID,
		Body:           entity.TextBody{Content: "remember the milk"},
	})
	require.NoError(t, err)

	require.NoError(t, env.convUC.LeaveConversation(ctx, conv.ID, "alice"))

	_, err = env.convUC.GetByID(ctx, "alice", conv.ID)
	assert.True(t, errors.Is(err, "NOT_FOUND"))

	snaps, err := env.store.Query(ctx, docstore.Query{Path: "conversations/" + conv.ID + "/messages"})
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestPromoteAdmin(t *testing.T) {
	env := newTestEnv(t, "alice", "bob", "mallory")
	ctx := context.Background()

	group, err := env.convUC.CreateGroup(ctx, "alice", CreateGroupInput{
		Name:      "Team",
		MemberIDs: []string{"bob"},
	})
	require.NoError(t, err)

	err = env.convUC.PromoteAdmin(ctx, group.ID, "bob", "bob")
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	err = env.convUC.PromoteAdmin(ctx, group.ID, "alice", "mallory")
	assert.True(t, errors.Is(err, "NOT_FOUND"))

	direct, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	err = env.convUC.PromoteAdmin(ctx, direct.ID, "alice", "bob")
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestPerMemberFlags(t *testing.T) {
	env := newTestEnv(t, "alice", "bob", "mallory")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	require.NoError(t, env.convUC.SetArchived(ctx, conv.ID, "alice", true))
	require.NoError(t, env.convUC.SetMuted(ctx, conv.ID, "alice", true))

	got, err := env.convUC.GetByID(ctx, "bob", conv.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived["alice"])
	assert.True(t, got.Muted["alice"])
	assert.False(t, got.Archived["bob"])
	assert.False(t, got.Muted["bob"])

	err = env.convUC.SetPinned(ctx, conv.ID, "mallory", true)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestDeleteConversation(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateGroup(ctx, "alice", CreateGroupInput{
		Name:      "Disposable",
		MemberIDs: []string{"bob"},
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := env.msgUC.Send(ctx, "bob", SendMessageInput{
			ConversationID: conv.ID,
			Body:           entity.TextBody{Content: "hello"},
		})
		require.NoError(t, err)
	}

	err = env.convUC.DeleteConversation(ctx, conv.ID, "bob")
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	require.NoError(t, env.convUC.DeleteConversation(ctx, conv.ID, "alice"))

	_, err = env.convUC.GetByID(ctx, "alice", conv.ID)
	assert.True(t, errors.Is(err, "NOT_FOUND"))

	snaps, err := env.store.Query(ctx, docstore.Query{Path: "conversations/" + conv.ID + "/messages"})
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestListForUserOrdersByActivity(t *testing.T) {
	env := newTestEnv(t, "alice", "bob", "carol")
	ctx := context.Background()

	first, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	second, err := env.convUC.CreateDirect(ctx, "alice", "carol")
	require.NoError(t, err)

	// Activity in the older conversation bumps it to the top of the feed.
	_, err = env.msgUC.Send(ctx, "bob", SendMessageInput{
		ConversationID: first.ID,
		Body:           entity.TextBody{Content: "ping"},
	})
	require.NoError(t, err)

	convs, err := env.convUC.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, first.ID, convs[0].ID)
	assert.Equal(t, second.ID, convs[1].ID)
}

func TestConversationSubscribe(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	feed, err := env.convUC.Subscribe(ctx, "alice")
	require.NoError(t, err)

	initial := <-feed
	require.Len(t, initial, 1)
	assert.Equal(t, conv.ID, initial[0].ID)

	require.NoError(t, env.convUC.SetPinned(ctx, conv.ID, "alice", true))

	update := <-feed
	require.Len(t, update, 1)
	assert.True(t, update[0].Pinned["alice"])
}
