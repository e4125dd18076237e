package wire

import (
	"Vibeshare/internal/api"
	"Vibeshare/internal/api/config"
	"Vibeshare/internal/api/handler"
	"Vibeshare/internal/job"
	"Vibeshare/internal/pkg/cron"
	"Vibeshare/internal/pkg/restapi"
	"Vibeshare/internal/pkg/security"
	"Vibeshare/internal/service"
	"Vibeshare/internal/store"
	"Vibeshare/internal/transport"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router          *gin.Engine
	SyncService     service.SyncService
	ActionService   service.InteractionService
	NotificationSvc service.NotificationService
	CronMgr         *cron.Manager
}

func newBroker(cfg *config.Config) (transport.Broker, error) {
	switch cfg.Transport.Kind {
	case config.TransportStomp, "":
		return transport.NewStompBroker(cfg.Transport), nil
	case config.TransportRedis:
		return transport.NewRedisBroker(cfg.Redis), nil
	default:
		return nil, fmt.Errorf("unknown transport kind %q", cfg.Transport.Kind)
	}
}

func BuildApplication(cfg *config.Config, tokens security.TokenProvider) (*ApplicationContainer, error) {
	broker, err := newBroker(cfg)
	if err != nil {
		return nil, err
	}
	client := restapi.NewClient(cfg.Backend, tokens)

	notifier := store.NewNotifier()
	chatStore := store.NewChatStore(notifier)
	notificationStore := store.NewNotificationStore(notifier)
	interactionStore := store.NewInteractionStore(notifier)

	syncService := service.NewSyncService(client, client, tokens, broker, chatStore, notificationStore, notifier)
	actionService := service.NewInteractionService(client, client, client, interactionStore, chatStore, cfg.Sync.SerializeInteractions)
	notificationService := service.NewNotificationService(client, notificationStore, chatStore)

	handlers := &api.HandlersGroup{
		ChatHandler:         handler.NewChatHandler(syncService),
		PostActionHandler:   handler.NewPostActionHandler(actionService),
		UserFollowHandler:   handler.NewUserFollowHandler(actionService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		SessionHandler:      handler.NewSessionHandler(syncService),
		WSHandler:           handler.NewWsHandler(notifier, cfg.Server.AllowOrigins),
	}
	router := api.SetupRouter(handlers)

	cronMgr := cron.NewCronManager(cfg.Sync,
		job.NewConversationResyncJob(syncService),
		job.NewBookmarkResyncJob(actionService),
		job.NewTypingSweepJob(syncService, time.Duration(cfg.Sync.TypingTTL)*time.Second),
	)

	return &ApplicationContainer{
		Router:          router,
		SyncService:     syncService,
		ActionService:   actionService,
		NotificationSvc: notificationService,
		CronMgr:         cronMgr,
	}, nil
}
