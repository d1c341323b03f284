// Command server 启动 ClassAlign HTTP API。
// 配置文件路径由 CLASSALIGN_CONFIG 指定，未指定时查找 ./config/config.yaml。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/reinieltalplacido/classalign/config"
	"github.com/reinieltalplacido/classalign/internal/api/handler"
	"github.com/reinieltalplacido/classalign/internal/api/router"
	"github.com/reinieltalplacido/classalign/internal/repository"
	"github.com/reinieltalplacido/classalign/internal/service"
	"github.com/reinieltalplacido/classalign/pkg/database"
	"github.com/reinieltalplacido/classalign/pkg/jwt"
	"github.com/reinieltalplacido/classalign/pkg/llm"
	applogger "github.com/reinieltalplacido/classalign/pkg/logger"
	"github.com/reinieltalplacido/classalign/pkg/redis"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load(os.Getenv("CLASSALIGN_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("服务异常退出", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("服务器已关闭")
}

// run 依次初始化依赖并阻塞到 ctx 取消；关闭顺序与初始化顺序相反
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("calendar_timezone", cfg.Calendar.Timezone),
	)

	// ── 存储 ──
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	db, err := database.NewDB(startCtx, &cfg.Database, cfg.Log.Level, logger)
	cancel()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	closers = append(closers, func() {
		if err := sqlDB.Close(); err != nil {
			logger.Error("关闭数据库连接失败", zap.Error(err))
		}
	})
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	// Redis 可选：不可用时关闭 Token 黑名单与助手限流
	var blacklist service.TokenBlacklist
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 不可用，Token 黑名单与助手限流已关闭", zap.Error(err))
		rdb = nil
	} else {
		blacklist = rdb
		closers = append(closers, func() { _ = rdb.Close() })
	}

	// ── 语言模型（可选）──
	var llmClient llm.Client
	switch {
	case !cfg.LLM.Enabled():
		logger.Info("未配置语言模型，助手仅使用规则解析")
	default:
		gc, err := llm.NewGeminiClient(ctx, &cfg.LLM, logger)
		if err != nil {
			logger.Warn("语言模型初始化失败，助手将仅使用规则解析", zap.Error(err))
			break
		}
		llmClient = gc
		closers = append(closers, func() { gc.Close() })
	}

	// ── 依赖注入 ──
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, blacklist, llmClient, logger)
	h := handler.NewHandler(cfg, svc, logger)
	engine := router.Setup(cfg, h, jwtMgr, rdb, repo.Ping, logger)

	// WriteTimeout 需覆盖语言模型调用与导出文件生成
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.LLM.Timeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP 服务器异常: %w", err)
	case <-ctx.Done():
	}

	logger.Info("收到关闭信号，开始优雅关闭...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器关闭异常: %w", err)
	}
	return nil
}
