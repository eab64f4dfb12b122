package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"highseas/internal/core"
	"highseas/internal/dao"
	"highseas/internal/handler"
	"highseas/internal/mq"
	"highseas/pkg/config"
	"highseas/pkg/logger"
)

func main() {
	logger.Init()
	config.InitConfig()
	cfg := config.AppConfig
	log := logger.Component("server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// room tokens, ship state mirror
	if err := dao.InitRedis(cfg.Redis); err != nil {
		log.Fatalf("Redis: %v", err)
	}
	store := dao.NewRemoteStore(dao.RDB)

	producer, err := mq.NewProducer(cfg.MQ)
	if err != nil {
		log.Fatalf("MQ: %v", err)
	}
	defer producer.Close()

	core.Configure(core.RulesFromConfig(cfg), producer, store)
	go core.StartCleanupTask(ctx)

	go func() {
		if err := handler.StartGRPC(cfg.Server.GrpcPort); err != nil {
			log.Fatalf("gRPC server failed: %v", err)
		}
	}()

	gin.SetMode(cfg.Server.Mode)
	r := handler.Router(store, store)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infof("Combat server running on %s", addr)
	go func() {
		if err := r.Run(addr); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
}
