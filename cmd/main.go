package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harshpatel0909/event-organizer-app/config"
	"github.com/harshpatel0909/event-organizer-app/internal/handlers"
	"github.com/harshpatel0909/event-organizer-app/internal/middleware"
	"github.com/harshpatel0909/event-organizer-app/internal/svc"
	"github.com/harshpatel0909/event-organizer-app/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	utils.InitLogger(cfg.AppEnv)
	defer zap.L().Sync()

	svcCtx := svc.NewServiceContext(cfg)
	defer svcCtx.Close()

	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	eventHandler := handlers.NewEventHandler(svcCtx)
	favoriteHandler := handlers.NewFavoriteHandler(svcCtx)

	// 鉴权路由，token 由外部认证服务签发
	auth := r.Group("/")
	auth.Use(middleware.JWTAuthMiddleware(cfg, svcCtx.Cache))
	{
		writeLimit := middleware.RateLimitMiddleware(svcCtx.Cache, "event_write", 60, time.Minute)

		events := auth.Group("/events")
		{
			events.GET("", eventHandler.List)
			events.GET("/ws", eventHandler.Stream)
			events.GET("/:id", eventHandler.Get)
			events.POST("", writeLimit, eventHandler.Create)
			events.PUT("/:id", writeLimit, eventHandler.Update)
			events.DELETE("/:id", writeLimit, eventHandler.Delete)

			events.POST("/:id/favorite", writeLimit, favoriteHandler.Toggle)
		}

		favorites := auth.Group("/favorites")
		{
			favorites.GET("", favoriteHandler.List)
			favorites.DELETE("/:id", favoriteHandler.Remove)
		}
	}

	addr := ":" + cfg.ServerPort
	zap.L().Info("server starting", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zap.L().Fatal("server exited", zap.Error(err))
	}
}
