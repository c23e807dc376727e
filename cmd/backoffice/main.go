package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/herdvest/backoffice/internal/config"
	"github.com/herdvest/backoffice/internal/db"
	"github.com/herdvest/backoffice/internal/kafka"
	"github.com/herdvest/backoffice/internal/logger"
	"github.com/herdvest/backoffice/internal/repository/postgresql"
	"github.com/herdvest/backoffice/internal/server"
	"github.com/herdvest/backoffice/internal/service"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zl := logger.New()
	defer func() { _ = zl.Sync() }()

	cfg := config.Load()

	database, err := db.NewDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Database init error: %v", err)
	}
	if err := db.Bootstrap(ctx, database); err != nil {
		log.Fatalf("Schema bootstrap error: %v", err)
	}

	orderRepo := postgresql.NewOrderRepo(database)
	historyRepo := postgresql.NewHistoryRepo(database)
	txnRepo := postgresql.NewTransactionRepo(database)
	investorRepo := postgresql.NewInvestorRepo(database)
	farmRepo := postgresql.NewFarmRepo(database)
	adminRepo := postgresql.NewAdminRepo(database)
	outboxRepo := postgresql.NewOutboxTaskRepo()

	approvals := service.NewApprovalService(database, orderRepo, historyRepo, txnRepo, outboxRepo, cfg.ApprovalTopic, zl)

	var producer kafka.Producer
	if cfg.KafkaBrokers != "" {
		producer = kafka.NewWriterProducer(cfg.KafkaBrokers)
	} else {
		producer = kafka.NewConsoleProducer()
	}
	publisher := kafka.NewPublisher(database, outboxRepo, producer, kafka.PublisherConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
	})
	go publisher.Run(ctx)

	srv := server.New(server.Deps{
		Orders:       orderRepo,
		History:      historyRepo,
		Transactions: txnRepo,
		Investors:    investorRepo,
		Farms:        farmRepo,
		Admins:       adminRepo,
		Approvals:    approvals,
		JWTSecret:    cfg.JWTSecret,
		Logger:       zl,
	})

	go func() {
		if err := srv.Run(ctx, cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Port)

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	publisher.Shutdown()

	log.Println("Server gracefully stopped")
}
