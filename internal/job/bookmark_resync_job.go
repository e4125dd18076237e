package job

import (
	"Vibeshare/internal/pkg/logger"
	"Vibeshare/internal/service"
	"context"
	log "log/slog"
)

// BookmarkResyncJob 用服务端收藏列表校正本地收藏状态
type BookmarkResyncJob struct {
	actionSvc service.InteractionService
}

func NewBookmarkResyncJob(actionSvc service.InteractionService) *BookmarkResyncJob {
	return &BookmarkResyncJob{actionSvc: actionSvc}
}

func (s *BookmarkResyncJob) Run() {
	ctx, cancel := context.WithTimeout(logger.WithTraceID(context.Background(), "job-bookmark"), jobTimeout)
	defer cancel()

	changed, err := s.actionSvc.ResyncBookmarks(ctx)
	if err != nil {
		log.WarnContext(ctx, "bookmark resync failed", "err", err)
		return
	}
	if changed > 0 {
		log.InfoContext(ctx, "bookmark resync finished", "changed", changed)
	}
}
