package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chirp-social/chirp/internal/apperrors"
	"github.com/chirp-social/chirp/internal/config"
	"github.com/chirp-social/chirp/internal/middleware"
	"github.com/chirp-social/chirp/internal/models"
	"github.com/chirp-social/chirp/internal/repository"
	"github.com/chirp-social/chirp/pkg/logger"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type AuthService struct {
	db          *repository.Database
	accountRepo *repository.AccountRepository
	sessionRepo *repository.SessionRepository
	userRepo    *repository.UserRepository
	jwtConfig   config.JWTConfig
	logger      *logger.Logger
}

func NewAuthService(
	db *repository.Database,
	accountRepo *repository.AccountRepository,
	sessionRepo *repository.SessionRepository,
	userRepo *repository.UserRepository,
	jwtConfig config.JWTConfig,
	logger *logger.Logger,
) *AuthService {
	return &AuthService{
		db:          db,
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		jwtConfig:   jwtConfig,
		logger:      logger,
	}
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	UserName    string `json:"user_name"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type AuthResult struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// Register 注册。账号和用户档案在同一事务内创建
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.Validation("invalid email address")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperrors.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if !userNamePattern.MatchString(req.UserName) {
		return nil, apperrors.Validation("username must be 4-15 characters of letters, digits or underscore")
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = req.UserName
	}
	if utf8.RuneCountInString(displayName) > maxDisplayNameLength {
		return nil, apperrors.Validation(fmt.Sprintf("display name must be at most %d characters", maxDisplayNameLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		Email:        email,
		PasswordHash: string(hash),
	}
	user := &models.User{
		UserName:    req.UserName,
		DisplayName: displayName,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.WithTx(tx).Create(ctx, account); err != nil {
			return err
		}
		user.AccountID = account.ID
		return s.userRepo.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	result, err := s.issueSession(ctx, account, user, "", "")
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"account_id": account.ID,
		"user_id":    user.ID,
	}).Info("Account registered")
	return result, nil
}

// Login 登录。邮箱不存在和密码错误返回同一个错误
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	user, err := s.userRepo.GetByAccountID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}

	result, err := s.issueSession(ctx, account, user, req.UserAgent, req.IPAddress)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("account_id", account.ID).Info("Account logged in")
	return result, nil
}

// Refresh 刷新。refresh token轮换，旧token立即失效
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, apperrors.Unauthorized("refresh token is required")
	}

	session, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || session.ExpiresAt.Before(time.Now()) {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	newToken, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.jwtConfig.RefreshExpireTime)
	if err := s.sessionRepo.RotateRefreshToken(ctx, session.ID, newToken, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	accessToken, err := middleware.GenerateToken(user.ID.String(), session.AccountID.String(), s.jwtConfig.Secret, s.jwtConfig.AccessExpireTime)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: newToken,
	}, nil
}

// Logout 注销当前会话
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return apperrors.Validation("refresh token is required")
	}

	session, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil
	}
	return s.sessionRepo.Delete(ctx, session.ID)
}

func (s *AuthService) issueSession(ctx context.Context, account *models.Account, user *models.User, userAgent, ipAddress string) (*AuthResult, error) {
	refreshToken, err := newRefreshToken()
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		AccountID:    account.ID,
		UserID:       user.ID,
		RefreshToken: refreshToken,
		UserAgent:    userAgent,
		IPAddress:    ipAddress,
		ExpiresAt:    time.Now().Add(s.jwtConfig.RefreshExpireTime),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	accessToken, err := middleware.GenerateToken(user.ID.String(), account.ID.String(), s.jwtConfig.Secret, s.jwtConfig.AccessExpireTime)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
