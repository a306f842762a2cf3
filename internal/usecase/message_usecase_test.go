package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/domain/entity"
	"chatsync/pkg/errors"
)

func sendText(t *testing.T, env *testEnv, conversationID, sender, content string) *entity.Message {
	t.Helper()
	msg, err := env.msgUC.Send(context.Background(), sender, SendMessageInput{
		ConversationID: conversationID,
		Body:           entity.TextBody{Content: content},
	})
	require.NoError(t, err)
	return msg
}

func TestSendTextMessage(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	msg := sendText(t, env, conv.ID, "alice", "hey there")

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "alice", msg.SenderID)
	assert.Equal(t, "User alice", msg.SenderName)
	assert.Equal(t, entity.TypeText, msg.Type)
	assert.Equal(t, []string{"alice"}, msg.ReadBy)

	got, err := env.convUC.GetByID(ctx, "bob", conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, "hey there", got.LastMessage.Content)
	assert.Equal(t, "alice", got.LastMessage.SenderID)
	assert.Equal(t, int64(0), got.UnreadCounts["alice"])
	assert.Equal(t, int64(1), got.UnreadCounts["bob"])
}

func TestSendValidation(t *testing.T) {
	env := newTestEnv(t, "alice", "bob", "mallory")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = env.msgUC.Send(ctx, "alice", SendMessageInput{ConversationID: conv.ID})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = env.msgUC.Send(ctx, "alice", SendMessageInput{
		ConversationID: conv.ID,
		Body:           entity.TextBody{},
	})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = env.msgUC.Send(ctx, "mallory", SendMessageInput{
		ConversationID: conv.ID,
		Body:           entity.TextBody{Content: "let me in"},
	})
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestSendMediaMessage(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	msg, err := env.msgUC.Send(ctx, "alice", SendMessageInput{
		ConversationID: conv.ID,
		Body: entity.ImageBody{
			Caption: "sunset",
			Media:   entity.MediaRef{URL: "https://cdn.example.com/sunset.jpg", MimeType: "image/jpeg", FileSize: 123456},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, entity.TypeImage, msg.Type)
	assert.Equal(t, "sunset", msg.Content)
	require.NotNil(t, msg.Media)
	assert.Equal(t, "https://cdn.example.com/sunset.jpg", msg.Media.URL)
}

func TestUnreadCountsAccumulate(t *testing.T) {
	env := newTestEnv(t, "alice", "bob", "carol")
	ctx := context.Background()

	conv, err := env.convUC.CreateGroup(ctx, "alice", CreateGroupInput{
		Name:      "Team",
		MemberIDs: []string{"bob", "carol"},
	})
	require.NoError(t, err)

	sendText(t, env, conv.ID, "alice", "one")
	sendText(t, env, conv.ID, "alice", "two")
	sendText(t, env, conv.ID, "bob", "three")

	got, err := env.convUC.GetByID(ctx, "alice", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UnreadCounts["alice"])
	assert.Equal(t, int64(2), got.UnreadCounts["bob"])
	assert.Equal(t, int64(3), got.UnreadCounts["carol"])
}

func TestMarkReadResetsUnread(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	m1 := sendText(t, env, conv.ID, "bob", "first")
	m2 := sendText(t, env, conv.ID, "bob", "second")

	before, err := env.convUC.GetByID(ctx, "alice", conv.ID)
	require.NoError(t, err)

	require.NoError(t, env.msgUC.MarkRead(ctx, conv.ID, "alice", []string{m1.ID, m2.ID}))

	got, err := env.convUC.GetByID(ctx, "alice", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.UnreadCounts["alice"])
	// Catching up must not reorder the reader's chat list.
	assert.Equal(t, before.UpdatedAt, got.UpdatedAt)

	read, err := env.msgUC.GetPage(ctx, "alice", conv.ID, 10, "")
	require.NoError(t, err)
	for _, m := range read.Messages {
		assert.True(t, m.ReadByUser("alice"), "message %s should be read", m.ID)
	}

	// Empty input is a no-op, not an error.
	require.NoError(t, env.msgUC.MarkRead(ctx, conv.ID, "alice", nil))
}

func TestMarkDelivered(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	msg := sendText(t, env, conv.ID, "bob", "knock knock")
	require.NoError(t, env.msgUC.MarkDelivered(ctx, conv.ID, "alice", []string{msg.ID}))

	got, err := env.msgUC.GetPage(ctx, "alice", conv.ID, 10, "")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0].DeliveredTo, "alice")
}

func TestReplySnapshotIsFrozen(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	original := sendText(t, env, conv.ID, "alice", "original wording")

	reply, err := env.msgUC.Send(ctx, "bob", SendMessageInput{
		ConversationID: conv.ID,
		Body:           entity.TextBody{Content: "replying"},
		ReplyToID:      original.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, "original wording", reply.ReplyTo.Content)

	// Editing the original does not rewrite existing reply snapshots.
	require.NoError(t, env.msgUC.Edit(ctx, conv.ID, original.ID, "alice", "revised wording"))

	got, err := env.msgUC.GetPage(ctx, "bob", conv.ID, 10, "")
	require.NoError(t, err)
	for _, m := range got.Messages {
		if m.ID == reply.ID {
			assert.Equal(t, "original wording", m.ReplyTo.Content)
		}
	}
}

func TestEditMessage(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	msg := sendText(t, env, conv.ID, "alice", "typo hello")

	err = env.msgUC.Edit(ctx, conv.ID, msg.ID, "bob", "hijacked")
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	require.NoError(t, env.msgUC.Edit(ctx, conv.ID, msg.ID, "alice", "hello"))

	got, err := env.msgUC.GetPage(ctx, "alice", conv.ID, 10, "")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.True(t, got.Messages[0].IsEdited)
	assert.NotNil(t, got.Messages[0].EditedAt)
}

func TestDeleteForEveryone(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	msg, err := env.msgUC.Send(ctx, "alice", SendMessageInput{
		ConversationID: conv.ID,
		Body: entity.ImageBody{
			Caption: "oops",
			Media:   entity.MediaRef{URL: "https://cdn.example.com/oops.jpg", MimeType: "image/jpeg"},
		},
	})
	require.NoError(t, err)

	err = env.msgUC.DeleteForEveryone(ctx, conv.ID, msg.ID, "bob")
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	require.NoError(t, env.msgUC.DeleteForEveryone(ctx, conv.ID, msg.ID, "alice"))
	// Second delete is idempotent.
	require.NoError(t, env.msgUC.DeleteForEveryone(ctx, conv.ID, msg.ID, "alice"))

	// The tombstone stays visible to everyone: placeholder text, no media.
	got, err := env.msgUC.GetPage(ctx, "bob", conv.ID, 10, "")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.True(t, got.Messages[0].IsDeletedForEveryone)
	assert.Equal(t, entity.DeletedPlaceholder, got.Messages[0].Content)
	assert.Nil(t, got.Messages[0].Media)

	// And it can no longer be edited.
	err = env.msgUC.Edit(ctx, conv.ID, msg.ID, "alice", "resurrect")
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestDeleteForSelfHidesLocally(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	msg := sendText(t, env, conv.ID, "bob", "embarrassing")
	require.NoError(t, env.msgUC.DeleteForSelf(ctx, conv.ID, msg.ID, "alice"))

	aliceView, err := env.msgUC.GetPage(ctx, "alice", conv.ID, 10, "")
	require.NoError(t, err)
	assert.Empty(t, aliceView.Messages)

	bobView, err := env.msgUC.GetPage(ctx, "bob", conv.ID, 10, "")
	require.NoError(t, err)
	require.Len(t, bobView.Messages, 1)
	assert.Equal(t, "embarrassing", bobView.Messages[0].Content)
}

func TestReactions(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	msg := sendText(t, env, conv.ID, "alice", "big news")

	require.NoError(t, env.msgUC.AddReaction(ctx, conv.ID, msg.ID, "bob", "👍"))
	// A member holds at most one reaction; a second one replaces it.
	require.NoError(t, env.msgUC.AddReaction(ctx, conv.ID, msg.ID, "bob", "🎉"))

	got, err := env.msgUC.GetPage(ctx, "alice", conv.ID, 10, "")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, map[string]string{"bob": "🎉"}, got.Messages[0].Reactions)

	require.NoError(t, env.msgUC.RemoveReaction(ctx, conv.ID, msg.ID, "bob"))

	got, err = env.msgUC.GetPage(ctx, "alice", conv.ID, 10, "")
	require.NoError(t, err)
	assert.Empty(t, got.Messages[0].Reactions)
}

func TestGetPagePagination(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	contents := []string{"one", "two", "three", "four", "five"}
	for _, c := range contents {
		sendText(t, env, conv.ID, "alice", c)
	}

	var collected []string
	cursor := ""
	pages := 0
	for {
		page, err := env.msgUC.GetPage(ctx, "bob", conv.ID, 2, cursor)
		require.NoError(t, err)
		for _, m := range page.Messages {
			collected = append(collected, m.Content)
		}
		pages++
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	// Newest first, no repeats and no gaps across page boundaries.
	assert.Equal(t, []string{"five", "four", "three", "two", "one"}, collected)
	assert.GreaterOrEqual(t, pages, 3)
}

func TestGetPageMalformedCursor(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = env.msgUC.GetPage(ctx, "alice", conv.ID, 10, "not-a-cursor")
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestMessageSubscribe(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	first := sendText(t, env, conv.ID, "alice", "already there")

	feed, err := env.msgUC.Subscribe(ctx, "bob", conv.ID, 10)
	require.NoError(t, err)

	initial := <-feed
	require.Len(t, initial, 1)
	assert.Equal(t, first.ID, initial[0].ID)

	sendText(t, env, conv.ID, "alice", "fresh")

	// The window re-emits until it includes the new message. Send touches
	// the store more than once, so earlier emissions may not contain it yet.
	for batch := range feed {
		if len(batch) == 2 {
			assert.Equal(t, "fresh", batch[0].Content)
			assert.Equal(t, "already there", batch[1].Content)
			return
		}
	}
	t.Fatal("feed closed before the new message was observed")
}

func TestSyncFacade(t *testing.T) {
	env := newTestEnv(t, "alice", "bob")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncUC := NewSyncUseCase(env.convUC, env.msgUC)

	conv, err := env.convUC.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	msg := sendText(t, env, conv.ID, "alice", "hello")

	convFeed, err := syncUC.ConversationFeed(ctx, "alice")
	require.NoError(t, err)
	convs := <-convFeed
	require.Len(t, convs, 1)
	assert.Equal(t, conv.ID, convs[0].ID)

	msgFeed, err := syncUC.MessageFeed(ctx, "bob", conv.ID, 10)
	require.NoError(t, err)
	msgs := <-msgFeed
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)
}
