package main

import (
	"flag"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"edgevless/internal/config"
	"edgevless/internal/server"
)

func main() {
	configPath := flag.String("config", "", "optional path to an ini config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	appServer := server.New(cfg, logger)
	if err := appServer.Run(); err != nil {
		logger.Fatalw("server exited", "err", err)
	}
}

func newLogger(level string) *zap.SugaredLogger {
	if level == "none" || level == "" {
		return zap.NewNop().Sugar()
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}
