package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harshpatel0909/event-organizer-app/internal/apperr"
	"github.com/harshpatel0909/event-organizer-app/internal/svc"
	"github.com/harshpatel0909/event-organizer-app/internal/utils"
)

type FavoriteHandler struct {
	svc *svc.ServiceContext
}

func NewFavoriteHandler(svc *svc.ServiceContext) *FavoriteHandler {
	return &FavoriteHandler{svc: svc}
}

// Toggle 切换收藏。上一次切换还没落定时返回 409，前端把按钮置灰即可
func (h *FavoriteHandler) Toggle(c *gin.Context) {
	id := c.Param("id")
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, err.Error())
		return
	}

	// 先确认活动存在且属于当前用户，收藏副本的字段也从这里来
	ev, err := h.svc.Live.GetEvent(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			utils.Error(c, http.StatusNotFound, "活动不存在或已被删除")
			return
		}
		utils.Fail(c, err)
		return
	}

	state, err := h.svc.Live.ToggleFavorite(c.Request.Context(), userID, ev)
	if err != nil {
		if errors.Is(err, apperr.ErrBusy) {
			utils.Error(c, http.StatusConflict, "操作进行中，请稍候")
			return
		}
		utils.Fail(c, err)
		return
	}
	utils.Success(c, gin.H{"state": state})
}

// List 收藏列表，按收藏时间倒序
// 字段是收藏那一刻的快照，活动后来被编辑也不变
func (h *FavoriteHandler) List(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, err.Error())
		return
	}

	feed, err := h.svc.Favorites.Subscribe(c.Request.Context(), userID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	defer feed.Close()

	select {
	case favorites := <-feed.C():
		utils.Success(c, favorites)
	case <-c.Request.Context().Done():
		utils.Error(c, http.StatusServiceUnavailable, "请求超时")
	}
}

// Remove 收藏页上的直接移除，幂等
func (h *FavoriteHandler) Remove(c *gin.Context) {
	id := c.Param("id")
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, err.Error())
		return
	}

	if err := h.svc.Favorites.RemoveCascade(c.Request.Context(), userID, id); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "removed"})
}
