package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	pusher "github.com/pusher/pusher-http-go/v5"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/gopherchat/gopherchat/internal/chat"
	"github.com/gopherchat/gopherchat/internal/config"
	"github.com/gopherchat/gopherchat/internal/db"
	"github.com/gopherchat/gopherchat/internal/push"
	"github.com/gopherchat/gopherchat/internal/store/rabbitmq"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	repo := chat.NewRepo(gdb)
	svc := chat.NewService(repo, nil)

	notifier := push.NewNotifier(&pusher.Client{
		AppID:   cfg.PusherAppID,
		Key:     cfg.PusherKey,
		Secret:  cfg.PusherSecret,
		Cluster: cfg.PusherCluster,
	})

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	// Args must match the publisher's declaration or the broker rejects it.
	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	})
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m rabbitmq.ConversationUpdatedMessage
				if err := json.Unmarshal(d.Body, &m); err != nil || m.ConversationID == 0 {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := notifyParticipants(ctx, svc, repo, notifier, m.ConversationID); err != nil {
					log.Printf("worker=%d conversation=%d failed cost=%s err=%v", workerID, m.ConversationID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed conversation=%d err=%v", workerID, m.ConversationID, err)
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

// notifyParticipants fans a conversation-updated event out to every
// participant's private channel. A push failure for one participant is logged
// and must not block delivery to the others; only failing to resolve the
// conversation itself dead-letters the event.
func notifyParticipants(ctx context.Context, svc *chat.Service, repo *chat.Repo, notifier *push.Notifier, conversationID uint64) error {
	conv, err := repo.ConversationByID(ctx, conversationID)
	if err != nil {
		return err
	}

	summary, err := svc.Summary(ctx, conv)
	if err != nil {
		if errors.Is(err, chat.ErrNoMessages) {
			// Nothing to announce; the message may have raced a rollback.
			log.Printf("notify: conversation=%d has no messages, skipping", conversationID)
			return nil
		}
		return err
	}

	for _, p := range conv.Participants {
		if err := notifier.ConversationUpdated(p.User.Email, *summary); err != nil {
			log.Printf("notify: conversation=%d email=%s err=%v", conversationID, p.User.Email, err)
		}
	}
	return nil
}
