// dailyqr 生成当日签到二维码并打印签到链接，适合由 cron 在每天零点后执行。
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"qr-attendance/config"
	"qr-attendance/pkg/dailykey"
	applogger "qr-attendance/pkg/logger"
	"qr-attendance/pkg/qr"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	outDir := flag.String("out", "", "二维码输出目录，默认使用 qr.output_dir")
	flag.Parse()

	cfg, err := config.Load(*configPath)
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

	loc, err := cfg.Server.Location()
	if err != nil {
		logger.Fatal("加载时区失败", zap.Error(err))
	}
	keys := dailykey.NewDeriver(cfg.Attendance.Salt, loc)

	dir := cfg.QR.OutputDir
	if *outDir != "" {
		dir = *outDir
	}

	link := qr.CheckinURL(cfg.Server.BaseURL, keys.Current())
	path, err := qr.WriteDaily(dir, link, keys.Today(), cfg.QR.Size)
	if err != nil {
		logger.Fatal("生成二维码失败", zap.Error(err))
	}

	logger.Info("当日二维码已生成", zap.String("file", path))
	fmt.Println(link)
}
