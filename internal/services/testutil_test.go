package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chirp-social/chirp/internal/config"
	"github.com/chirp-social/chirp/internal/models"
	"github.com/chirp-social/chirp/internal/repository"
	"github.com/chirp-social/chirp/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	db *repository.Database

	accountRepo      *repository.AccountRepository
	sessionRepo      *repository.SessionRepository
	userRepo         *repository.UserRepository
	followRepo       *repository.FollowRepository
	postRepo         *repository.PostRepository
	likeRepo         *repository.LikeRepository
	bookmarkRepo     *repository.BookmarkRepository
	commentRepo      *repository.CommentRepository
	notificationRepo *repository.NotificationRepository
	feedRepo         *repository.FeedRepository

	blobStore *memBlobStore

	authService         *AuthService
	userService         *UserService
	postService         *PostService
	likeService         *LikeService
	bookmarkService     *BookmarkService
	commentService      *CommentService
	feedService         *FeedService
	notificationService *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db := &repository.Database{DB: gdb}
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		db:               db,
		accountRepo:      repository.NewAccountRepository(gdb),
		sessionRepo:      repository.NewSessionRepository(gdb),
		userRepo:         repository.NewUserRepository(gdb),
		followRepo:       repository.NewFollowRepository(gdb),
		postRepo:         repository.NewPostRepository(gdb),
		likeRepo:         repository.NewLikeRepository(gdb),
		bookmarkRepo:     repository.NewBookmarkRepository(gdb),
		commentRepo:      repository.NewCommentRepository(gdb),
		notificationRepo: repository.NewNotificationRepository(gdb),
		feedRepo:         repository.NewFeedRepository(gdb),
		blobStore:        newMemBlobStore(),
	}

	log := logger.NewLogger()
	jwtConfig := config.JWTConfig{
		Secret:            "test-secret",
		AccessExpireTime:  15 * time.Minute,
		RefreshExpireTime: 24 * time.Hour,
	}

	env.notificationService = NewNotificationService(env.notificationRepo, nil, nil, log)
	env.authService = NewAuthService(db, env.accountRepo, env.sessionRepo, env.userRepo, jwtConfig, log)
	env.userService = NewUserService(db, env.userRepo, env.followRepo, env.blobStore, env.notificationService, log)
	env.postService = NewPostService(db, env.postRepo, env.userRepo, env.blobStore, env.notificationService, log)
	env.likeService = NewLikeService(db, env.likeRepo, env.postRepo, env.notificationService, log)
	env.bookmarkService = NewBookmarkService(db, env.bookmarkRepo, env.postRepo, log)
	env.commentService = NewCommentService(db, env.commentRepo, env.postRepo, env.notificationService, log)
	env.feedService = NewFeedService(env.feedRepo, env.followRepo, log)

	return env
}

func (e *testEnv) createUser(t *testing.T, userName string) *models.User {
	t.Helper()
	ctx := context.Background()

	account := &models.Account{
		Email:        userName + "@example.com",
		PasswordHash: "x",
	}
	require.NoError(t, e.accountRepo.Create(ctx, account))

	user := &models.User{
		AccountID:   account.ID,
		UserName:    userName,
		DisplayName: userName,
	}
	require.NoError(t, e.userRepo.Create(ctx, user))
	return user
}

func (e *testEnv) createPost(t *testing.T, author *models.User, content string) *models.Post {
	t.Helper()
	post, err := e.postService.CreatePost(context.Background(), author.ID.String(), &CreatePostRequest{Content: content})
	require.NoError(t, err)
	return post
}

func (e *testEnv) getUser(t *testing.T, user *models.User) *models.User {
	t.Helper()
	fresh, err := e.userRepo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, fresh)
	return fresh
}

func (e *testEnv) getPost(t *testing.T, post *models.Post) *models.Post {
	t.Helper()
	fresh, err := e.postRepo.GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	require.NotNil(t, fresh)
	return fresh
}

type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	seq   int
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (m *memBlobStore) Upload(ctx context.Context, data []byte, userID, filename string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	url := fmt.Sprintf("mem://%s/%d/%s", userID, m.seq, filename)
	m.blobs[url] = data
	return url, nil
}

func (m *memBlobStore) Delete(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, url)
	return nil
}

func (m *memBlobStore) has(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[url]
	return ok
}
