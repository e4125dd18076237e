package job

import (
	"Vibeshare/internal/pkg/logger"
	"Vibeshare/internal/service"
	"context"
	log "log/slog"
	"time"
)

// TypingSweepJob 清理超过 ttl 未刷新的输入状态
type TypingSweepJob struct {
	syncSvc service.SyncService
	ttl     time.Duration
}

func NewTypingSweepJob(syncSvc service.SyncService, ttl time.Duration) *TypingSweepJob {
	return &TypingSweepJob{syncSvc: syncSvc, ttl: ttl}
}

func (s *TypingSweepJob) Run() {
	if s.ttl <= 0 {
		return
	}
	if n := s.syncSvc.ExpireTyping(s.ttl); n > 0 {
		ctx := logger.WithTraceID(context.Background(), "job-typing")
		log.DebugContext(ctx, "expired typing indicators", "count", n)
	}
}
