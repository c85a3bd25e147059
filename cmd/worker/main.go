package main

import (
    "database/sql"
    "encoding/json"
    "log"
    "os"

    "github.com/joho/godotenv"
    _ "github.com/lib/pq"
    "github.com/streadway/amqp"

    "github.com/unclebandit/outreach-backend/internal/lifecycle"
    "github.com/unclebandit/outreach-backend/internal/model"
    "github.com/unclebandit/outreach-backend/internal/queue"
    "github.com/unclebandit/outreach-backend/internal/repository"
    "github.com/unclebandit/outreach-backend/internal/sentiment"
    "github.com/unclebandit/outreach-backend/internal/service"
)

func main() {
    if err := godotenv.Load(); err != nil {
        log.Println("⚠️ No .env file found, relying on OS environment variables")
    }

    // Connect to DB
    db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
    if err != nil {
        log.Fatal("failed to connect to DB:", err)
    }
    defer db.Close()

    queueRepo := &repository.QueueRepository{DB: db}
    eventRepo := &repository.EventRepository{DB: db}

    classifier := &sentiment.ChainClassifier{}
    if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
        classifier.Remote = sentiment.NewLLMClassifier(apiKey, os.Getenv("OPENAI_MODEL"))
    }

    reconciler := &service.ReconcilerService{
        Events:     eventRepo,
        Queue:      queueRepo,
        Classifier: classifier,
        Lifecycle: &lifecycle.Engine{
            Queue:             queueRepo,
            ReactivateFromDND: os.Getenv("REACTIVATE_FROM_DND") == "true",
        },
    }

    // Connect to RabbitMQ
    conn, err := amqp.Dial(os.Getenv("AMQP_URL"))
    if err != nil {
        log.Fatal("Failed to connect to RabbitMQ:", err)
    }
    defer conn.Close()

    ch, err := conn.Channel()
    if err != nil {
        log.Fatal("Failed to open a channel:", err)
    }
    defer ch.Close()

    q, err := ch.QueueDeclare(
        queue.InboundEventsTopic, // name
        true,                     // durable
        false,                    // delete when unused
        false,                    // exclusive
        false,                    // no-wait
        nil,                      // arguments
    )
    if err != nil {
        log.Fatal("Failed to declare queue:", err)
    }

    msgs, err := ch.Consume(
        q.Name,
        "",
        false, // autoAck = false for reliability
        false,
        false,
        false,
        nil,
    )
    if err != nil {
        log.Fatal("Failed to register consumer:", err)
    }

    forever := make(chan bool)

    go func() {
        for d := range msgs {
            var ev model.WebhookEvent
            if err := json.Unmarshal(d.Body, &ev); err != nil {
                log.Println("Invalid event payload:", err)
                d.Ack(false)
                continue
            }

            // The reconciler is idempotent, so a requeued delivery can
            // never double-apply.
            if err := reconciler.Process(&ev); err != nil {
                log.Println("Failed to process event:", err)
                var retryCount int32
                if d.Headers["x-retry-count"] != nil {
                    retryCount = d.Headers["x-retry-count"].(int32)
                }
                if retryCount < 3 {
                    d.Nack(false, true) // requeue
                    continue
                }
            }

            d.Ack(false)
        }
    }()

    log.Println("Worker running, waiting for events...")
    <-forever
}
