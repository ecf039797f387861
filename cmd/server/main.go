package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"qr-attendance/config"
	"qr-attendance/internal/api/handler"
	"qr-attendance/internal/api/router"
	"qr-attendance/internal/repository"
	"qr-attendance/internal/service"
	"qr-attendance/pkg/dailykey"
	"qr-attendance/pkg/database"
	"qr-attendance/pkg/jwt"
	applogger "qr-attendance/pkg/logger"
	"qr-attendance/pkg/qr"
	"qr-attendance/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("timezone", cfg.Server.Timezone),
		zap.String("ledger_driver", cfg.Ledger.Driver),
	)

	// 3. 每日密钥
	loc, err := cfg.Server.Location()
	if err != nil {
		logger.Fatal("加载时区失败", zap.Error(err))
	}
	keys := dailykey.NewDeriver(cfg.Attendance.Salt, loc)

	// 4. 连接数据库（仅 postgres 流水）
	var db *gorm.DB
	if cfg.Ledger.Driver == "postgres" {
		db, err = database.NewDB(&cfg.Database, cfg.Log.Level, logger)
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}
		logger.Info("数据库连接成功")

		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
	}

	// 5. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var blacklist service.TokenBlacklist
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，登录限流与会话吊销将不可用", zap.Error(err))
		rdb = nil
	} else {
		blacklist = rdb
	}

	// 6. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Admin)

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(cfg, db)

	roster, err := repo.Roster.Load(context.Background())
	if err != nil {
		logger.Fatal("读取学生名单失败", zap.String("file", cfg.Attendance.RosterFile), zap.Error(err))
	}
	logger.Info("学生名单已加载", zap.Int("students", len(roster)))

	svc, err := service.NewService(cfg, repo, keys, roster, jwtMgr, blacklist, logger)
	if err != nil {
		logger.Fatal("初始化服务失败", zap.Error(err))
	}
	h := handler.NewHandler(cfg, svc, keys)

	// 8. 当日二维码
	link := qr.CheckinURL(cfg.Server.BaseURL, keys.Current())
	if path, err := qr.WriteDaily(cfg.QR.OutputDir, link, keys.Today(), cfg.QR.Size); err != nil {
		logger.Warn("生成当日二维码失败", zap.Error(err))
	} else {
		logger.Info("当日二维码已生成", zap.String("file", path))
	}
	logger.Info("当日签到链接", zap.String("url", link))

	// 9. 初始化路由
	engine := router.Setup(cfg, h, svc.Admin, keys, rdb, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if db != nil {
		if closeDB, _ := db.DB(); closeDB != nil {
			closeDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
