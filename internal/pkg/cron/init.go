package cron

import log "log/slog"

// InitCron 注册并启动定时任务，返回注册的任务数；没有任务时不启动引擎
func InitCron(mgr *Manager) (int, error) {
	log.Info("Cron Jobs starting...")
	if err := mgr.RegisterJobs(); err != nil {
		return 0, err
	}
	n := mgr.Entries()
	if n == 0 {
		log.Info("没有启用的定时任务")
		return 0, nil
	}
	mgr.Start()
	return n, nil
}
