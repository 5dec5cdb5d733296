package main

import (
	stdLog "log"
	"time"

	"github.com/IvanGLS/library-service-project/app"
	"github.com/IvanGLS/library-service-project/config"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// @title        Library Service API
// @version      1.0
// @description  Book catalog, borrowings and fee payments.
// @BasePath     /api/v1
func main() {
	if err := godotenv.Load(); err != nil {
		stdLog.Fatal("load envs from .env ", zap.Error(err))
	}
	cfg := config.NewConfig(
		config.WithLogLevel(zapcore.DebugLevel),
		config.WithWriteTimeout(time.Minute),
	)

	app.Run(cfg)
}
