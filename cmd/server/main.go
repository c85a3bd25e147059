// cmd/server/main.go
package main

import (
    "log"
    "net/http"
    "os"

    "github.com/go-chi/chi/v5"
    "github.com/joho/godotenv"

    "github.com/unclebandit/outreach-backend/internal/cadence"
    "github.com/unclebandit/outreach-backend/internal/controller"
    "github.com/unclebandit/outreach-backend/internal/crm"
    "github.com/unclebandit/outreach-backend/internal/db"
    "github.com/unclebandit/outreach-backend/internal/lifecycle"
    "github.com/unclebandit/outreach-backend/internal/queue"
    "github.com/unclebandit/outreach-backend/internal/repository"
    "github.com/unclebandit/outreach-backend/internal/sentiment"
    "github.com/unclebandit/outreach-backend/internal/service"
    "github.com/unclebandit/outreach-backend/internal/webhook"
)

func main() {
    // Load .env
    if err := godotenv.Load(); err != nil {
        log.Println("⚠️ No .env file found, relying on OS environment variables")
    }

    // Init DB
    db.Init()

    queueRepo := &repository.QueueRepository{DB: db.DB}
    integrationRepo := &repository.IntegrationRepository{DB: db.DB}
    eventRepo := &repository.EventRepository{DB: db.DB}

    keyPEM, err := os.ReadFile(os.Getenv("WEBHOOK_PUBLIC_KEY_FILE"))
    if err != nil {
        log.Fatal("failed to read webhook public key:", err)
    }
    verifier, err := webhook.NewVerifier(keyPEM)
    if err != nil {
        log.Fatal("failed to load webhook public key:", err)
    }

    classifier := &sentiment.ChainClassifier{}
    if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
        classifier.Remote = sentiment.NewLLMClassifier(apiKey, os.Getenv("OPENAI_MODEL"))
    } else {
        log.Println("⚠️ OPENAI_API_KEY not set, sentiment runs on keywords only")
    }

    engine := &lifecycle.Engine{
        Queue:             queueRepo,
        ReactivateFromDND: os.Getenv("REACTIVATE_FROM_DND") == "true",
    }

    reconciler := &service.ReconcilerService{
        Events:     eventRepo,
        Queue:      queueRepo,
        Classifier: classifier,
        Lifecycle:  engine,
    }

    // With RabbitMQ configured, events go to the broker and cmd/worker
    // consumes them; otherwise the in-memory queue processes in-process.
    var publisher queue.Publisher
    if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
        pub, err := queue.NewAmqpPublisher(amqpURL)
        if err != nil {
            log.Fatal("Failed to connect to RabbitMQ:", err)
        }
        defer pub.Close()
        publisher = pub
        log.Println("📬 Publishing events to RabbitMQ")
    } else {
        q := queue.NewInMemoryQueue()
        queue.StartInboundEventSubscriber(q, reconciler)
        publisher = q
    }

    queueService := &service.QueueService{
        QueueRepo:       queueRepo,
        IntegrationRepo: integrationRepo,
        CRM:             crm.NewClient(os.Getenv("CRM_BASE_URL")),
        Rules:           cadence.DefaultRules(),
    }

    webhookController := &controller.WebhookController{
        Verifier: verifier,
        Queue:    publisher,
    }
    queueController := &controller.QueueController{
        QueueService: queueService,
    }

    r := chi.NewRouter()

    // Webhook routes (signature-verified, fast 2xx ack)
    r.Post("/webhooks/inbound-message", webhookController.InboundMessage)
    r.Post("/webhooks/email-bounce", webhookController.EmailBounce)
    r.Post("/webhooks/disposition", webhookController.Disposition)
    r.Post("/webhooks/custom-field-sync", webhookController.CustomFieldSync)
    r.Post("/webhooks/engagement", webhookController.Engagement)

    // Queue routes
    r.Post("/queue", queueController.AddToQueue)
    r.Get("/queue/pending", queueController.GetPending)
    r.Post("/queue/{id}/send-state", queueController.UpdateSendState)
    r.Post("/queue/{id}/lifecycle", queueController.UpdateLifecycle)
    r.Post("/contacts/{contactId}/manual-mode", queueController.ManualMode)

    log.Println("🚀 Server running on :8080")
    log.Fatal(http.ListenAndServe(":8080", r))
}
