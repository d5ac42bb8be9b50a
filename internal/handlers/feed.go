package handlers

import (
	"net/http"

	"github.com/chirp-social/chirp/internal/middleware"
	"github.com/chirp-social/chirp/internal/services"
	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	feedService *services.FeedService
}

func NewFeedHandler(feedService *services.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

func (h *FeedHandler) GetFollowingFeed(c *gin.Context) {
	offset, limit := parsePagination(c)
	feed, err := h.feedService.GetFollowingFeed(c.Request.Context(), middleware.GetUserID(c), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": feed})
}

func (h *FeedHandler) GetExploreFeed(c *gin.Context) {
	offset, limit := parsePagination(c)
	feed, err := h.feedService.GetExploreFeed(c.Request.Context(), middleware.GetUserID(c), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": feed})
}
