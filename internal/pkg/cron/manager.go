package cron

import (
	"Vibeshare/internal/api/config"
	"Vibeshare/internal/job"
	"context"
	"fmt"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine                *cron.Cron
	cfg                   config.SyncConfig
	conversationResyncJob *job.ConversationResyncJob
	bookmarkResyncJob     *job.BookmarkResyncJob
	typingSweepJob        *job.TypingSweepJob
}

func NewCronManager(
	cfg config.SyncConfig,
	conversationResyncJob *job.ConversationResyncJob,
	bookmarkResyncJob *job.BookmarkResyncJob,
	typingSweepJob *job.TypingSweepJob,
) *Manager {
	return &Manager{
		engine: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		cfg:                   cfg,
		conversationResyncJob: conversationResyncJob,
		bookmarkResyncJob:     bookmarkResyncJob,
		typingSweepJob:        typingSweepJob,
	}
}

// RegisterJobs 注册定时任务，表达式为空的任务不注册
func (s *Manager) RegisterJobs() error {
	jobs := []struct {
		name string
		spec string
		job  cron.Job
	}{
		{"conversation_resync", s.cfg.ConversationResyncCron, s.conversationResyncJob},
		{"bookmark_resync", s.cfg.BookmarkResyncCron, s.bookmarkResyncJob},
		{"typing_sweep", s.typingSweepSpec(), s.typingSweepJob},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		if _, err := s.engine.AddJob(j.spec, j.job); err != nil {
			return fmt.Errorf("register %s job: %w", j.name, err)
		}
		log.Info("Cron 任务已注册", "job", j.name, "spec", j.spec)
	}
	return nil
}

// 输入状态不过期时不需要清理
func (s *Manager) typingSweepSpec() string {
	if s.cfg.TypingTTL <= 0 {
		return ""
	}
	return s.cfg.TypingSweepCron
}

func (s *Manager) Entries() int {
	return len(s.engine.Entries())
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

// Stop 停止调度并等待执行中的任务结束
func (s *Manager) Stop(ctx context.Context) {
	log.Info("Cron 定时任务引擎停止")
	select {
	case <-s.engine.Stop().Done():
	case <-ctx.Done():
		log.Warn("等待定时任务结束超时")
	}
}
