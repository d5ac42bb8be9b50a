package services

import (
	"context"
	"testing"

	"github.com/chirp-social/chirp/internal/apperrors"
	"github.com/chirp-social/chirp/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifySelfSuppressed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	post := env.createPost(t, alice, "hello")

	// 给自己的帖子点赞不产生通知
	require.NoError(t, env.likeService.LikePost(ctx, alice.ID.String(), post.ID.String()))

	count, err := env.notificationRepo.CountByRecipient(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestNotificationGrouping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	post := env.createPost(t, alice, "popular")

	require.NoError(t, env.likeService.LikePost(ctx, bob.ID.String(), post.ID.String()))
	require.NoError(t, env.likeService.LikePost(ctx, carol.ID.String(), post.ID.String()))
	require.NoError(t, env.userService.Follow(ctx, bob.ID.String(), alice.ID.String()))

	groups, err := env.notificationService.GetNotifications(ctx, alice.ID.String())
	require.NoError(t, err)

	// 同一帖子的两个点赞聚合成一条，关注单独一条
	require.Len(t, groups, 2)

	var likeGroup *NotificationGroup
	for _, g := range groups {
		if g.Kind == models.NotificationLike {
			likeGroup = g
		}
	}
	require.NotNil(t, likeGroup)
	assert.Len(t, likeGroup.Actors, 2)
	assert.Contains(t, likeGroup.Message, "liked your post")
	assert.Contains(t, likeGroup.Message, "and")
	assert.False(t, likeGroup.IsRead)
}

func TestMarkNotificationRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "hello")

	require.NoError(t, env.likeService.LikePost(ctx, bob.ID.String(), post.ID.String()))

	groups, err := env.notificationService.GetNotifications(ctx, alice.ID.String())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].IDs(), 1)

	notificationID := groups[0].IDs()[0].String()
	require.NoError(t, env.notificationService.MarkRead(ctx, alice.ID.String(), notificationID))

	groups, err = env.notificationService.GetNotifications(ctx, alice.ID.String())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].IsRead)
}

func TestMarkReadWrongRecipient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "hello")

	require.NoError(t, env.likeService.LikePost(ctx, bob.ID.String(), post.ID.String()))

	groups, err := env.notificationService.GetNotifications(ctx, alice.ID.String())
	require.NoError(t, err)
	notificationID := groups[0].IDs()[0].String()

	// 别人的通知标记不了
	err = env.notificationService.MarkRead(ctx, bob.ID.String(), notificationID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUnreadCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	post := env.createPost(t, alice, "hello")

	require.NoError(t, env.likeService.LikePost(ctx, bob.ID.String(), post.ID.String()))
	require.NoError(t, env.likeService.LikePost(ctx, carol.ID.String(), post.ID.String()))

	count, err := env.notificationService.UnreadCount(ctx, alice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	groups, err := env.notificationService.GetNotifications(ctx, alice.ID.String())
	require.NoError(t, err)
	require.NoError(t, env.notificationService.MarkRead(ctx, alice.ID.String(), groups[0].IDs()[0].String()))

	count, err = env.notificationService.UnreadCount(ctx, alice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
