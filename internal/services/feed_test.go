package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/chirp-social/chirp/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowingFeed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")

	require.NoError(t, env.userService.Follow(ctx, alice.ID.String(), bob.ID.String()))

	env.createPost(t, alice, "from alice")
	env.createPost(t, bob, "from bob")
	env.createPost(t, carol, "from carol")

	feed, err := env.feedService.GetFollowingFeed(ctx, alice.ID.String(), 0, 10)
	require.NoError(t, err)

	// 自己和关注对象的帖子都在，未关注的不在
	assert.Len(t, feed.Posts, 2)
	for _, p := range feed.Posts {
		assert.NotEqual(t, carol.ID, p.User.ID)
	}
	assert.False(t, feed.HasMore)
	assert.Equal(t, 2, feed.NextOffset)
}

func TestFollowingFeedRelationFlags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	require.NoError(t, env.userService.Follow(ctx, alice.ID.String(), bob.ID.String()))
	require.NoError(t, env.userService.Follow(ctx, bob.ID.String(), alice.ID.String()))

	env.createPost(t, bob, "from bob")

	feed, err := env.feedService.GetFollowingFeed(ctx, alice.ID.String(), 0, 10)
	require.NoError(t, err)
	require.Len(t, feed.Posts, 1)

	author := feed.Posts[0].User
	assert.True(t, author.IsFollowing)
	assert.True(t, author.IsFollowedBy)
}

func TestFollowingFeedPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	for i := 0; i < 5; i++ {
		env.createPost(t, alice, fmt.Sprintf("post %d", i))
	}

	first, err := env.feedService.GetFollowingFeed(ctx, alice.ID.String(), 0, 3)
	require.NoError(t, err)
	assert.Len(t, first.Posts, 3)
	assert.True(t, first.HasMore)
	assert.Equal(t, 3, first.NextOffset)

	second, err := env.feedService.GetFollowingFeed(ctx, alice.ID.String(), first.NextOffset, 3)
	require.NoError(t, err)
	assert.Len(t, second.Posts, 2)
	assert.False(t, second.HasMore)
	assert.Equal(t, 5, second.NextOffset)

	// 两页互不重叠
	seen := map[string]bool{}
	for _, p := range append(first.Posts, second.Posts...) {
		assert.False(t, seen[p.ID.String()])
		seen[p.ID.String()] = true
	}
}

func TestFollowingFeedLimitClamp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	for i := 0; i < 25; i++ {
		env.createPost(t, alice, fmt.Sprintf("post %d", i))
	}

	// limit超过上限时收敛到20
	feed, err := env.feedService.GetFollowingFeed(ctx, alice.ID.String(), 0, 100)
	require.NoError(t, err)
	assert.Len(t, feed.Posts, 20)
	assert.True(t, feed.HasMore)

	// limit缺省时取10
	feed, err = env.feedService.GetFollowingFeed(ctx, alice.ID.String(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, feed.Posts, 10)
}

func TestExploreFeedExcludesReshares(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	post := env.createPost(t, alice, "original")
	_, err := env.postService.Reshare(ctx, bob.ID.String(), post.ID.String())
	require.NoError(t, err)
	_, err = env.postService.Quote(ctx, bob.ID.String(), post.ID.String(), "quoted")
	require.NoError(t, err)

	feed, err := env.feedService.GetExploreFeed(ctx, "", 0, 10)
	require.NoError(t, err)

	assert.Len(t, feed.Posts, 2)
	for _, p := range feed.Posts {
		assert.NotEqual(t, models.PostKindReshare, p.Kind)
	}
}

func TestExploreFeedOrderedByLikes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")

	cold := env.createPost(t, alice, "cold")
	hot := env.createPost(t, alice, "hot")

	require.NoError(t, env.likeService.LikePost(ctx, bob.ID.String(), hot.ID.String()))
	require.NoError(t, env.likeService.LikePost(ctx, carol.ID.String(), hot.ID.String()))
	require.NoError(t, env.likeService.LikePost(ctx, bob.ID.String(), cold.ID.String()))

	feed, err := env.feedService.GetExploreFeed(ctx, "", 0, 10)
	require.NoError(t, err)
	require.Len(t, feed.Posts, 2)

	assert.Equal(t, hot.ID, feed.Posts[0].ID)
	assert.Equal(t, cold.ID, feed.Posts[1].ID)
}

func TestFeedQuoteCarriesOriginal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	post := env.createPost(t, alice, "quotable")
	_, err := env.postService.Quote(ctx, bob.ID.String(), post.ID.String(), "my take")
	require.NoError(t, err)

	require.NoError(t, env.userService.Follow(ctx, alice.ID.String(), bob.ID.String()))

	feed, err := env.feedService.GetFollowingFeed(ctx, alice.ID.String(), 0, 10)
	require.NoError(t, err)

	var quote *FeedPost
	for _, p := range feed.Posts {
		if p.Kind == models.PostKindQuote {
			quote = p
		}
	}
	require.NotNil(t, quote)
	require.NotNil(t, quote.Original)
	assert.Equal(t, post.ID, quote.Original.ID)
	assert.Equal(t, "quotable", quote.Original.Content)
	require.NotNil(t, quote.Original.User)
	assert.Equal(t, alice.ID, quote.Original.User.ID)
}
