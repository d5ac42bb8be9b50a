package services

import (
	"context"
	"testing"

	"github.com/chirp-social/chirp/internal/apperrors"
	"github.com/chirp-social/chirp/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikePost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	author := env.createUser(t, "alice")
	liker := env.createUser(t, "bob")
	post := env.createPost(t, author, "hello world")

	require.NoError(t, env.likeService.LikePost(ctx, liker.ID.String(), post.ID.String()))

	assert.Equal(t, int64(1), env.getPost(t, post).LikeCount)

	liked, err := env.likeRepo.IsLiked(ctx, liker.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	// 作者收到点赞通知
	count, err := env.notificationRepo.CountByRecipient(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestLikePostDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	author := env.createUser(t, "alice")
	liker := env.createUser(t, "bob")
	post := env.createPost(t, author, "hello world")

	require.NoError(t, env.likeService.LikePost(ctx, liker.ID.String(), post.ID.String()))

	err := env.likeService.LikePost(ctx, liker.ID.String(), post.ID.String())
	assert.True(t, apperrors.IsDuplicate(err))

	// 重复点赞不会把计数加到2
	assert.Equal(t, int64(1), env.getPost(t, post).LikeCount)
}

func TestLikePostNotFound(t *testing.T) {
	env := newTestEnv(t)
	liker := env.createUser(t, "bob")

	err := env.likeService.LikePost(context.Background(), liker.ID.String(), "b3b1f1aa-0000-4000-8000-000000000000")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUnlikePost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	author := env.createUser(t, "alice")
	liker := env.createUser(t, "bob")
	post := env.createPost(t, author, "hello world")

	require.NoError(t, env.likeService.LikePost(ctx, liker.ID.String(), post.ID.String()))
	require.NoError(t, env.likeService.UnlikePost(ctx, liker.ID.String(), post.ID.String()))

	assert.Equal(t, int64(0), env.getPost(t, post).LikeCount)

	// 取消后可以重新点赞
	require.NoError(t, env.likeService.LikePost(ctx, liker.ID.String(), post.ID.String()))
	assert.Equal(t, int64(1), env.getPost(t, post).LikeCount)
}

func TestUnlikePostWithoutLike(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	author := env.createUser(t, "alice")
	liker := env.createUser(t, "bob")
	post := env.createPost(t, author, "hello world")

	err := env.likeService.UnlikePost(ctx, liker.ID.String(), post.ID.String())
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, int64(0), env.getPost(t, post).LikeCount)
}

func TestUnlikeCounterGuardRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	author := env.createUser(t, "alice")
	liker := env.createUser(t, "bob")
	post := env.createPost(t, author, "hello world")

	require.NoError(t, env.likeService.LikePost(ctx, liker.ID.String(), post.ID.String()))

	// 计数被外部置零后，守护条件拒绝把它减成负数
	require.NoError(t, env.db.Model(&models.Post{}).
		Where("id = ?", post.ID).
		UpdateColumn("like_count", 0).Error)

	err := env.likeService.UnlikePost(ctx, liker.ID.String(), post.ID.String())
	assert.True(t, apperrors.IsInvariant(err))

	// 整个事务回滚，点赞边没有丢
	liked, err := env.likeRepo.IsLiked(ctx, liker.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(0), env.getPost(t, post).LikeCount)
}

func TestGetLikers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	author := env.createUser(t, "alice")
	post := env.createPost(t, author, "hello world")

	for _, name := range []string{"bob", "carol", "dave"} {
		u := env.createUser(t, name)
		require.NoError(t, env.likeService.LikePost(ctx, u.ID.String(), post.ID.String()))
	}

	likers, err := env.likeService.GetLikers(ctx, post.ID.String(), 0, 10)
	require.NoError(t, err)
	assert.Len(t, likers, 3)
}
