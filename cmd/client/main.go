package main

import (
	"Vibeshare/internal/api/config"
	"Vibeshare/internal/pkg/cron"
	"Vibeshare/internal/pkg/logger"
	"Vibeshare/internal/pkg/security"
	"Vibeshare/internal/wire"
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 加载配置
	if err := config.LoadConfig(); err != nil {
		log.Error("Fatal error: failed to load configuration", "err", err)
		panic(err)
	}
	cfg := config.Cfg

	// 初始化日志
	logCloser, err := logger.InitLogger(cfg.Log)
	if err != nil {
		log.Error("Fatal error: failed to init logger", "err", err)
		panic(err)
	}
	defer func() {
		_ = logCloser.Close()
	}()

	// 依赖注入
	tokens := security.NewStaticTokenProvider(cfg.Session.AccessToken)
	app, err := wire.BuildApplication(cfg, tokens)
	if err != nil {
		log.Error("Fatal error: failed to create application", "err", err)
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// 推送会话：连接 + 首次拉取会话列表
	g.Go(func() error {
		startCtx := logger.WithTraceID(ctx, "startup")
		if err := app.SyncService.Start(startCtx); err != nil {
			return err
		}
		if _, err := app.NotificationSvc.FetchUnreadCount(startCtx); err != nil {
			log.WarnContext(startCtx, "拉取未读通知数失败", "err", err)
		}
		<-ctx.Done()
		log.Info("Push session closing...")
		return app.SyncService.Close()
	})

	// 定时任务
	jobs, err := cron.InitCron(app.CronMgr)
	if err != nil {
		log.Error("Fatal error: failed to start cron jobs", "err", err)
		panic(err)
	}
	log.Info("Cron Jobs started", "jobs", jobs)
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Cron Jobs stopping...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		app.CronMgr.Stop(stopCtx)
		app.ActionService.Close()
		return nil
	})

	// HTTP 服务器
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: app.Router,
	}
	g.Go(func() error {
		log.Info("HTTP Server starting...", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 优雅退出
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-ctx.Done():
		case sig := <-quit:
			log.Info("Received signal, shutting down...", "signal", sig)
			cancel()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP Server shutdown failed", "err", err)
		}
		return nil
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("App exited with error", "err", err)
	}
	log.Info("App exited successfully.")
}
