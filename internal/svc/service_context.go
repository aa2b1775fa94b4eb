package svc

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/harshpatel0909/event-organizer-app/config"
	"github.com/harshpatel0909/event-organizer-app/internal/event"
	"github.com/harshpatel0909/event-organizer-app/internal/favorite"
	"github.com/harshpatel0909/event-organizer-app/internal/infra/cache"
	"github.com/harshpatel0909/event-organizer-app/internal/infra/db"
	"github.com/harshpatel0909/event-organizer-app/internal/live"
	"github.com/harshpatel0909/event-organizer-app/internal/mq"
	"github.com/harshpatel0909/event-organizer-app/internal/remote"
)

type ServiceContext struct {
	Config *config.Config
	DB     *gorm.DB
	Cache  *cache.RedisCache
	Rabbit *mq.RabbitMQ

	Store     remote.Store
	Events    *event.Repository
	Favorites *favorite.Repository
	Live      *live.Coordinator
	Consumer  *mq.Consumer

	docStore *remote.DocStore
}

// NewServiceContext 所有初始化的总入口
func NewServiceContext(cfg *config.Config) *ServiceContext {
	rdb, err := cache.New(cfg)
	if err != nil {
		zap.L().Warn("Redis connection failed, continuing without Redis", zap.Error(err))
		rdb = nil
	} else {
		zap.L().Info("Redis connected successfully")
	}

	rabbit, err := mq.New(cfg)
	if err != nil {
		zap.L().Warn("RabbitMQ connection failed, continuing without MQ", zap.Error(err))
		rabbit = nil
	} else {
		zap.L().Info("RabbitMQ connected successfully")
	}

	var (
		gdb      *gorm.DB
		store    remote.Store
		docStore *remote.DocStore
	)
	if cfg.DBHost != "" {
		gdb, err = db.InitMySQL(cfg)
		if err != nil {
			zap.L().Fatal("failed to connect database", zap.Error(err))
		}
		docStore, err = remote.NewDocStore(gdb, rdb)
		if err != nil {
			zap.L().Fatal("failed to init document store", zap.Error(err))
		}
		store = docStore
	} else {
		// 没配数据库就用内存存储，本地开发用
		zap.L().Warn("DB_HOST empty, using in-memory document store")
		store = remote.NewMemStore()
	}

	// rabbit 为 nil 时不能直接塞进接口，会变成带类型的 nil
	var favPub favorite.Publisher
	var livePub live.Publisher
	if rabbit != nil {
		favPub = rabbit
		livePub = rabbit
	}

	favorites := favorite.NewRepository(store, favPub)
	events := event.NewRepository(store, favorites)
	coordinator := live.NewCoordinator(events, favorites, livePub)

	var consumer *mq.Consumer
	if rabbit != nil {
		consumer = mq.NewConsumer(rabbit, rdb, favorites)
		consumer.Start()
	}

	return &ServiceContext{
		Config:    cfg,
		DB:        gdb,
		Cache:     rdb,
		Rabbit:    rabbit,
		Store:     store,
		Events:    events,
		Favorites: favorites,
		Live:      coordinator,
		Consumer:  consumer,
		docStore:  docStore,
	}
}

func (s *ServiceContext) Close() {
	if s.docStore != nil {
		s.docStore.Close()
	}
	if s.Rabbit != nil {
		s.Rabbit.Close()
		zap.L().Info("RabbitMQ closed")
	}
}
