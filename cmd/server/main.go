package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	pusher "github.com/pusher/pusher-http-go/v5"

	"github.com/gopherchat/gopherchat/internal/chat"
	"github.com/gopherchat/gopherchat/internal/config"
	"github.com/gopherchat/gopherchat/internal/db"
	"github.com/gopherchat/gopherchat/internal/httpapi"
	"github.com/gopherchat/gopherchat/internal/models"
	"github.com/gopherchat/gopherchat/internal/store/rabbitmq"
	"github.com/gopherchat/gopherchat/internal/store/redisstore"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Participant{},
		&chat.Conversation{},
		&chat.Message{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	sessions := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := sessions.Ping(ctx); err != nil {
		log.Fatalf("redis ping: %v", err)
	}
	cancel()

	pushClient := &pusher.Client{
		AppID:   cfg.PusherAppID,
		Key:     cfg.PusherKey,
		Secret:  cfg.PusherSecret,
		Cluster: cfg.PusherCluster,
	}

	queue, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit connect: %v", err)
	}
	defer queue.Close()

	r := httpapi.NewRouter(gdb, cfg, sessions, pushClient, queue)

	log.Printf("server listening addr=%s", cfg.HTTPAddr)
	log.Fatal(r.Run(cfg.HTTPAddr))
}
