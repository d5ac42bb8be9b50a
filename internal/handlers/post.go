package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/chirp-social/chirp/internal/apperrors"
	"github.com/chirp-social/chirp/internal/middleware"
	"github.com/chirp-social/chirp/internal/services"
	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	postService     *services.PostService
	likeService     *services.LikeService
	bookmarkService *services.BookmarkService
	commentService  *services.CommentService
}

func NewPostHandler(
	postService *services.PostService,
	likeService *services.LikeService,
	bookmarkService *services.BookmarkService,
	commentService *services.CommentService,
) *PostHandler {
	return &PostHandler{
		postService:     postService,
		likeService:     likeService,
		bookmarkService: bookmarkService,
		commentService:  commentService,
	}
}

func readMediaFile(file multipart.File, header *multipart.FileHeader) (string, []byte, error) {
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, apperrors.Validation("failed to read media file")
	}
	return header.Filename, data, nil
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	req := services.CreatePostRequest{
		Content: c.PostForm("content"),
	}
	if file, header, err := c.Request.FormFile("media"); err == nil {
		filename, data, err := readMediaFile(file, header)
		if err != nil {
			respondError(c, err)
			return
		}
		req.MediaFilename = filename
		req.MediaData = data
	}

	post, err := h.postService.CreatePost(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Post created successfully",
		"data":    post,
	})
}

func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.postService.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": post})
}

func (h *PostHandler) EditPost(c *gin.Context) {
	req := services.EditPostRequest{
		Content: c.PostForm("content"),
	}
	if file, header, err := c.Request.FormFile("media"); err == nil {
		filename, data, err := readMediaFile(file, header)
		if err != nil {
			respondError(c, err)
			return
		}
		req.MediaFilename = filename
		req.MediaData = data
	}

	post, err := h.postService.EditPost(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Post updated successfully",
		"data":    post,
	})
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	if err := h.postService.DeletePost(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

func (h *PostHandler) Reshare(c *gin.Context) {
	post, err := h.postService.Reshare(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Post reshared successfully",
		"data":    post,
	})
}

type quoteRequest struct {
	Content string `json:"content"`
}

func (h *PostHandler) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Validation("invalid request body"))
		return
	}

	post, err := h.postService.Quote(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Post quoted successfully",
		"data":    post,
	})
}

func (h *PostHandler) Like(c *gin.Context) {
	if err := h.likeService.LikePost(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post liked successfully"})
}

func (h *PostHandler) Unlike(c *gin.Context) {
	if err := h.likeService.UnlikePost(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post unliked successfully"})
}

func (h *PostHandler) GetLikers(c *gin.Context) {
	offset, limit := parsePagination(c)
	users, err := h.likeService.GetLikers(c.Request.Context(), c.Param("id"), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *PostHandler) Bookmark(c *gin.Context) {
	if err := h.bookmarkService.BookmarkPost(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post bookmarked successfully"})
}

func (h *PostHandler) Unbookmark(c *gin.Context) {
	if err := h.bookmarkService.UnbookmarkPost(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post unbookmarked successfully"})
}

func (h *PostHandler) GetBookmarks(c *gin.Context) {
	offset, limit := parsePagination(c)
	posts, err := h.bookmarkService.GetBookmarks(c.Request.Context(), middleware.GetUserID(c), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts})
}

type commentRequest struct {
	Content string `json:"content"`
}

func (h *PostHandler) CreateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Validation("invalid request body"))
		return
	}

	comment, err := h.commentService.CreateComment(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Comment created successfully",
		"data":    comment,
	})
}

func (h *PostHandler) GetComments(c *gin.Context) {
	offset, limit := parsePagination(c)
	comments, err := h.commentService.GetComments(c.Request.Context(), c.Param("id"), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": comments})
}

func (h *PostHandler) EditComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Validation("invalid request body"))
		return
	}

	comment, err := h.commentService.EditComment(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Comment updated successfully",
		"data":    comment,
	})
}

func (h *PostHandler) DeleteComment(c *gin.Context) {
	if err := h.commentService.DeleteComment(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
