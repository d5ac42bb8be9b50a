package handlers

import (
	"io"
	"net/http"

	"github.com/chirp-social/chirp/internal/apperrors"
	"github.com/chirp-social/chirp/internal/middleware"
	"github.com/chirp-social/chirp/internal/services"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *services.UserService
	postService *services.PostService
}

func NewUserHandler(userService *services.UserService, postService *services.PostService) *UserHandler {
	return &UserHandler{
		userService: userService,
		postService: postService,
	}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.userService.GetProfile(c.Request.Context(), middleware.GetUserID(c), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": profile})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Validation("invalid request body"))
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"data":    user,
	})
}

type changeUserNameRequest struct {
	UserName string `json:"user_name"`
}

func (h *UserHandler) ChangeUserName(c *gin.Context) {
	var req changeUserNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Validation("invalid request body"))
		return
	}

	user, err := h.userService.ChangeUserName(c.Request.Context(), middleware.GetUserID(c), req.UserName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Username changed successfully",
		"data":    user,
	})
}

func (h *UserHandler) UploadAvatar(c *gin.Context) {
	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		respondError(c, apperrors.Validation("avatar file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, apperrors.Validation("failed to read avatar file"))
		return
	}

	user, err := h.userService.UploadAvatar(c.Request.Context(), middleware.GetUserID(c), header.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Avatar uploaded successfully",
		"data":    user,
	})
}

func (h *UserHandler) Follow(c *gin.Context) {
	if err := h.userService.Follow(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Followed successfully"})
}

func (h *UserHandler) Unfollow(c *gin.Context) {
	if err := h.userService.Unfollow(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unfollowed successfully"})
}

func (h *UserHandler) GetFollowers(c *gin.Context) {
	offset, limit := parsePagination(c)
	users, err := h.userService.GetFollowers(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *UserHandler) GetFollowing(c *gin.Context) {
	offset, limit := parsePagination(c)
	users, err := h.userService.GetFollowing(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *UserHandler) GetSuggestions(c *gin.Context) {
	_, limit := parsePagination(c)
	users, err := h.userService.GetSuggestions(c.Request.Context(), middleware.GetUserID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *UserHandler) Search(c *gin.Context) {
	offset, limit := parsePagination(c)
	users, err := h.userService.Search(c.Request.Context(), c.Query("q"), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *UserHandler) GetUserPosts(c *gin.Context) {
	offset, limit := parsePagination(c)
	posts, err := h.postService.GetUserPosts(c.Request.Context(), c.Param("id"), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts})
}
