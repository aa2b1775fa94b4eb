package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/harshpatel0909/event-organizer-app/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Stream 实时视图流：每次任一集合变化都推一份完整列表
// 客户端断开时两路订阅各退订一次
func (h *EventHandler) Stream(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	out, cancel, err := h.svc.Live.Watch(c.Request.Context(), userID)
	if err != nil {
		zap.L().Error("watch failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	defer cancel()

	// 读循环只用来感知客户端断开
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				conn.Close()
				return
			}
		}
	}()

	for items := range out {
		if err := conn.WriteJSON(items); err != nil {
			return
		}
	}
}
