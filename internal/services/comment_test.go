package services

import (
	"context"
	"strings"
	"testing"

	"github.com/chirp-social/chirp/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "hello")

	comment, err := env.commentService.CreateComment(ctx, bob.ID.String(), post.ID.String(), "  nice post  ")
	require.NoError(t, err)
	assert.Equal(t, "nice post", comment.Content)
	assert.Equal(t, int64(1), env.getPost(t, post).CommentCount)

	count, err := env.notificationRepo.CountByRecipient(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCreateCommentValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	post := env.createPost(t, alice, "hello")

	_, err := env.commentService.CreateComment(ctx, alice.ID.String(), post.ID.String(), "   ")
	assert.True(t, apperrors.IsValidation(err))

	_, err = env.commentService.CreateComment(ctx, alice.ID.String(), post.ID.String(), strings.Repeat("a", maxCommentLength+1))
	assert.True(t, apperrors.IsValidation(err))

	// 多字节内容按字符数算长度
	_, err = env.commentService.CreateComment(ctx, alice.ID.String(), post.ID.String(), strings.Repeat("评", maxCommentLength))
	require.NoError(t, err)

	assert.Equal(t, int64(1), env.getPost(t, post).CommentCount)
}

func TestCreateCommentPostNotFound(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")

	_, err := env.commentService.CreateComment(context.Background(), alice.ID.String(), "b3b1f1aa-0000-4000-8000-000000000000", "hello")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestEditComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	post := env.createPost(t, alice, "hello")

	comment, err := env.commentService.CreateComment(ctx, alice.ID.String(), post.ID.String(), "first")
	require.NoError(t, err)

	updated, err := env.commentService.EditComment(ctx, alice.ID.String(), comment.ID.String(), "second")
	require.NoError(t, err)
	assert.Equal(t, "second", updated.Content)
}

func TestEditCommentNotOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "hello")

	comment, err := env.commentService.CreateComment(ctx, alice.ID.String(), post.ID.String(), "mine")
	require.NoError(t, err)

	_, err = env.commentService.EditComment(ctx, bob.ID.String(), comment.ID.String(), "hijacked")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	post := env.createPost(t, alice, "hello")

	comment, err := env.commentService.CreateComment(ctx, alice.ID.String(), post.ID.String(), "temp")
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.getPost(t, post).CommentCount)

	require.NoError(t, env.commentService.DeleteComment(ctx, alice.ID.String(), comment.ID.String()))
	assert.Equal(t, int64(0), env.getPost(t, post).CommentCount)

	comments, err := env.commentService.GetComments(ctx, post.ID.String(), 0, 10)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestGetComments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	post := env.createPost(t, alice, "hello")

	for _, text := range []string{"one", "two", "three"} {
		_, err := env.commentService.CreateComment(ctx, alice.ID.String(), post.ID.String(), text)
		require.NoError(t, err)
	}

	comments, err := env.commentService.GetComments(ctx, post.ID.String(), 0, 2)
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	rest, err := env.commentService.GetComments(ctx, post.ID.String(), 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	// 两页互不重叠
	seen := map[string]bool{}
	for _, c := range append(comments, rest...) {
		assert.False(t, seen[c.ID.String()])
		seen[c.ID.String()] = true
	}
}
