package job

import (
	"Vibeshare/internal/pkg/logger"
	"Vibeshare/internal/service"
	"context"
	log "log/slog"
	"time"
)

const jobTimeout = 30 * time.Second

// ConversationResyncJob 定期重新拉取会话目录，补齐推送断开期间错过的会话
type ConversationResyncJob struct {
	syncSvc service.SyncService
}

func NewConversationResyncJob(syncSvc service.SyncService) *ConversationResyncJob {
	return &ConversationResyncJob{syncSvc: syncSvc}
}

func (s *ConversationResyncJob) Run() {
	ctx, cancel := context.WithTimeout(logger.WithTraceID(context.Background(), "job-conversation"), jobTimeout)
	defer cancel()

	if s.syncSvc.Session().UserID == 0 {
		log.DebugContext(ctx, "会话尚未初始化，跳过目录同步")
		return
	}
	if err := s.syncSvc.LoadConversations(ctx); err != nil {
		log.WarnContext(ctx, "conversation resync failed", "err", err)
		return
	}
	log.InfoContext(ctx, "conversation resync finished", "count", len(s.syncSvc.Conversations()))
}
