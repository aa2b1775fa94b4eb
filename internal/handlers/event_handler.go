package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harshpatel0909/event-organizer-app/internal/apperr"
	"github.com/harshpatel0909/event-organizer-app/internal/models"
	"github.com/harshpatel0909/event-organizer-app/internal/svc"
	"github.com/harshpatel0909/event-organizer-app/internal/utils"
	"github.com/harshpatel0909/event-organizer-app/internal/validators"
)

type EventHandler struct {
	svc *svc.ServiceContext
}

func NewEventHandler(svc *svc.ServiceContext) *EventHandler {
	return &EventHandler{svc: svc}
}

// List 当前视图快照：活动列表带收藏标记，按活动时间排序
func (h *EventHandler) List(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, err.Error())
		return
	}

	items, err := h.svc.Live.Snapshot(c.Request.Context(), userID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, items)
}

func (h *EventHandler) Get(c *gin.Context) {
	id := c.Param("id")
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, err.Error())
		return
	}

	ev, err := h.svc.Live.GetEvent(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			utils.Error(c, http.StatusNotFound, "活动不存在或已被删除")
			return
		}
		utils.Fail(c, err)
		return
	}
	utils.Success(c, ev)
}

func (h *EventHandler) Create(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, err.Error())
		return
	}

	var req validators.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusUnprocessableEntity, "invalid event")
		return
	}

	id, err := h.svc.Live.CreateEvent(c.Request.Context(), userID, models.EventDraft{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, gin.H{"id": id})
}

func (h *EventHandler) Update(c *gin.Context) {
	id := c.Param("id")
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, err.Error())
		return
	}

	var req validators.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.svc.Live.UpdateEvent(c.Request.Context(), userID, id, models.EventDraft{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// 可能被另一台设备删掉了
			utils.Error(c, http.StatusNotFound, "活动不存在或已被删除")
			return
		}
		utils.Fail(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "updated"})
}

func (h *EventHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, err.Error())
		return
	}

	err = h.svc.Live.DeleteEvent(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, apperr.ErrCascade) {
			// 活动已删掉，收藏清理交给 MQ 补偿，前端提示即可
			zap.L().Warn("event deleted with pending favorite cleanup",
				zap.String("user_id", userID), zap.String("event_id", id))
			utils.Success(c, gin.H{
				"message": "deleted",
				"warning": "收藏清理延迟，稍后自动完成",
			})
			return
		}
		utils.Fail(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "deleted"})
}
