package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IvanGLS/library-service-project/config"
	"github.com/IvanGLS/library-service-project/internal/gateway"
	"github.com/IvanGLS/library-service-project/internal/handler"
	"github.com/IvanGLS/library-service-project/internal/notify"
	"github.com/IvanGLS/library-service-project/internal/repository"
	"github.com/IvanGLS/library-service-project/internal/server"
	"github.com/IvanGLS/library-service-project/internal/service"
	"github.com/IvanGLS/library-service-project/internal/sweep"
	"github.com/IvanGLS/library-service-project/migrations"
	"github.com/IvanGLS/library-service-project/pkg/kafka"
	"github.com/IvanGLS/library-service-project/pkg/logger"
	"github.com/IvanGLS/library-service-project/pkg/postgres"

	"go.uber.org/zap"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "library")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, cfg.Limits, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		log.Fatal("kafka.NewProducer", zap.Error(err))
	}
	notifier := notify.NewEnqueuer(producer)

	gw := gateway.NewClient(cfg.Stripe, log)
	svc := service.NewService(repo, gw, notifier, cfg.Limits, log)

	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()

	consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.TelegramConsumerGroup)
	if err != nil {
		log.Fatal("kafka.NewConsumer", zap.Error(err))
	}
	sender := notify.NewTelegramSender(cfg.Telegram, log)
	go kafka.Consume(jobCtx, consumer, notify.NewConsumer(sender.Send, log), kafka.NotificationsTopic, log)

	job := sweep.New(repo, notifier, cfg.Limits.SweepInterval, cfg.Limits.SessionExpiryWindow, log)
	go job.Run(jobCtx)

	h := handler.New(svc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	jobCancel()
	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	if err = consumer.Close(); err != nil {
		log.Error("consumer.Close", zap.Error(err))
	}
	if err = producer.Close(); err != nil {
		log.Error("producer.Close", zap.Error(err))
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
