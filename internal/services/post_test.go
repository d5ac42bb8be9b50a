package services

import (
	"context"
	"strings"
	"testing"

	"github.com/chirp-social/chirp/internal/apperrors"
	"github.com/chirp-social/chirp/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)

	alice := env.createUser(t, "alice")
	post := env.createPost(t, alice, "  hello world  ")

	// 内容去除首尾空白后入库
	assert.Equal(t, "hello world", post.Content)
	assert.Equal(t, models.PostKindOriginal, post.Kind)
	assert.Equal(t, int64(1), env.getUser(t, alice).TweetCount)
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")

	_, err := env.postService.CreatePost(ctx, alice.ID.String(), &CreatePostRequest{Content: "   "})
	assert.True(t, apperrors.IsValidation(err))

	_, err = env.postService.CreatePost(ctx, alice.ID.String(), &CreatePostRequest{
		Content: strings.Repeat("a", maxContentLength+1),
	})
	assert.True(t, apperrors.IsValidation(err))

	assert.Equal(t, int64(0), env.getUser(t, alice).TweetCount)
}

func TestCreatePostMultibyteContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")

	// 长度按字符数算，多字节内容不提前触顶
	content := strings.Repeat("汉", maxContentLength)
	post, err := env.postService.CreatePost(ctx, alice.ID.String(), &CreatePostRequest{Content: content})
	require.NoError(t, err)
	assert.Equal(t, content, post.Content)

	_, err = env.postService.CreatePost(ctx, alice.ID.String(), &CreatePostRequest{
		Content: strings.Repeat("汉", maxContentLength+1),
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreatePostWithMedia(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")

	post, err := env.postService.CreatePost(ctx, alice.ID.String(), &CreatePostRequest{
		Content:       "with picture",
		MediaFilename: "pic.png",
		MediaData:     []byte("png-bytes"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, post.MediaURL)
	assert.True(t, env.blobStore.has(post.MediaURL))
}

func TestEditPost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	post := env.createPost(t, alice, "original text")

	updated, err := env.postService.EditPost(ctx, alice.ID.String(), post.ID.String(), &EditPostRequest{Content: "edited text"})
	require.NoError(t, err)
	assert.Equal(t, "edited text", updated.Content)
}

func TestEditPostNotOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "original text")

	// 他人的帖子按不存在处理
	_, err := env.postService.EditPost(ctx, bob.ID.String(), post.ID.String(), &EditPostRequest{Content: "hijacked"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestEditReshareRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "original text")

	reshare, err := env.postService.Reshare(ctx, bob.ID.String(), post.ID.String())
	require.NoError(t, err)

	_, err = env.postService.EditPost(ctx, bob.ID.String(), reshare.ID.String(), &EditPostRequest{Content: "nope"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestReshare(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "worth sharing")

	reshare, err := env.postService.Reshare(ctx, bob.ID.String(), post.ID.String())
	require.NoError(t, err)

	assert.Equal(t, models.PostKindReshare, reshare.Kind)
	require.NotNil(t, reshare.OriginalPostID)
	assert.Equal(t, post.ID, *reshare.OriginalPostID)
	assert.Empty(t, reshare.Content)

	assert.Equal(t, int64(1), env.getPost(t, post).ReshareCount)
	assert.Equal(t, int64(1), env.getUser(t, bob).TweetCount)

	count, err := env.notificationRepo.CountByRecipient(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestReshareOwnPost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	post := env.createPost(t, alice, "my own")

	_, err := env.postService.Reshare(ctx, alice.ID.String(), post.ID.String())
	assert.True(t, apperrors.IsValidation(err))
}

func TestReshareDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "worth sharing")

	_, err := env.postService.Reshare(ctx, bob.ID.String(), post.ID.String())
	require.NoError(t, err)

	_, err = env.postService.Reshare(ctx, bob.ID.String(), post.ID.String())
	assert.True(t, apperrors.IsDuplicate(err))
	assert.Equal(t, int64(1), env.getPost(t, post).ReshareCount)
}

func TestReshareConcurrentDuplicateBlocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "worth sharing")

	// 两个并发请求都通过了前置查重，第二条插入被唯一索引拦下
	first := &models.Post{UserID: bob.ID, Kind: models.PostKindReshare, OriginalPostID: &post.ID}
	require.NoError(t, env.postRepo.Create(ctx, first))

	second := &models.Post{UserID: bob.ID, Kind: models.PostKindReshare, OriginalPostID: &post.ID}
	err := env.postRepo.Create(ctx, second)
	assert.True(t, apperrors.IsDuplicate(err))
}

func TestQuote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "quotable")

	quote, err := env.postService.Quote(ctx, bob.ID.String(), post.ID.String(), "my take")
	require.NoError(t, err)

	assert.Equal(t, models.PostKindQuote, quote.Kind)
	assert.Equal(t, "my take", quote.Content)
	assert.Equal(t, int64(1), env.getPost(t, post).QuoteCount)

	// 引用同一帖子可以多次
	_, err = env.postService.Quote(ctx, bob.ID.String(), post.ID.String(), "another take")
	require.NoError(t, err)
	assert.Equal(t, int64(2), env.getPost(t, post).QuoteCount)
}

func TestQuoteRequiresContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "quotable")

	_, err := env.postService.Quote(ctx, bob.ID.String(), post.ID.String(), "   ")
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, int64(0), env.getPost(t, post).QuoteCount)
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "to be deleted")

	require.NoError(t, env.likeService.LikePost(ctx, bob.ID.String(), post.ID.String()))
	_, err := env.commentService.CreateComment(ctx, bob.ID.String(), post.ID.String(), "nice")
	require.NoError(t, err)

	require.NoError(t, env.postService.DeletePost(ctx, alice.ID.String(), post.ID.String()))

	deleted, err := env.postRepo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, deleted)

	// 点赞和评论随帖子一起删除
	liked, err := env.likeRepo.IsLiked(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	comments, err := env.commentRepo.GetByPostID(ctx, post.ID, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, comments)

	assert.Equal(t, int64(0), env.getUser(t, alice).TweetCount)
}

func TestDeletePostKeepsChildren(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "to be deleted")

	quote, err := env.postService.Quote(ctx, bob.ID.String(), post.ID.String(), "my take")
	require.NoError(t, err)

	require.NoError(t, env.postService.DeletePost(ctx, alice.ID.String(), post.ID.String()))

	// 原帖删除后引用保留，原帖引用置空
	fresh, err := env.postRepo.GetByID(ctx, quote.ID)
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Nil(t, fresh.OriginalPostID)
}

func TestDeleteReshareDecrementsOriginal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "worth sharing")

	reshare, err := env.postService.Reshare(ctx, bob.ID.String(), post.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.getPost(t, post).ReshareCount)

	require.NoError(t, env.postService.DeletePost(ctx, bob.ID.String(), reshare.ID.String()))
	assert.Equal(t, int64(0), env.getPost(t, post).ReshareCount)
	assert.Equal(t, int64(0), env.getUser(t, bob).TweetCount)
}

func TestDeletePostNotOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "mine")

	err := env.postService.DeletePost(ctx, bob.ID.String(), post.ID.String())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeletePostRemovesMedia(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	post, err := env.postService.CreatePost(ctx, alice.ID.String(), &CreatePostRequest{
		Content:       "with picture",
		MediaFilename: "pic.png",
		MediaData:     []byte("png-bytes"),
	})
	require.NoError(t, err)

	require.NoError(t, env.postService.DeletePost(ctx, alice.ID.String(), post.ID.String()))
	assert.False(t, env.blobStore.has(post.MediaURL))
}
