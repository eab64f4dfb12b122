package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"highseas/internal/dao"
	"highseas/internal/mq"
	"highseas/pkg/config"
	"highseas/pkg/logger"
)

func main() {
	logger.Init()
	config.InitConfig()
	cfg := config.AppConfig
	log := logger.Component("recorder")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	history, err := dao.InitMySQL(cfg.MySQL.DSN())
	if err != nil {
		log.Fatalf("MySQL: %v", err)
	}

	conn, ch, err := mq.Dial(cfg.MQ)
	if err != nil {
		log.Fatalf("MQ: %v", err)
	}
	defer conn.Close()

	consumer := mq.NewConsumer(ch, cfg.MQ.QueueName, history, log)
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("Consumer stopped: %v", err)
		}
	}()

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	r.GET("/api/ships/:id/history", func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		records, err := history.GetShipHistory(c.Param("id"), page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	})

	addr := fmt.Sprintf(":%d", cfg.Recorder.Port)
	log.Infof("Recorder running on %s", addr)
	go func() {
		if err := r.Run(addr); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
}
