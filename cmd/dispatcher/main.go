// cmd/dispatcher/main.go
package main

import (
    "context"
    "database/sql"
    "log"
    "os"
    "strconv"
    "time"

    "github.com/joho/godotenv"
    _ "github.com/lib/pq"

    "github.com/unclebandit/outreach-backend/internal/cadence"
    "github.com/unclebandit/outreach-backend/internal/crm"
    "github.com/unclebandit/outreach-backend/internal/model"
    "github.com/unclebandit/outreach-backend/internal/ratelimit"
    "github.com/unclebandit/outreach-backend/internal/repository"
    "github.com/unclebandit/outreach-backend/internal/responder"
    "github.com/unclebandit/outreach-backend/internal/service"
)

const processedEventTTL = 7 * 24 * time.Hour

func main() {
    if err := godotenv.Load(); err != nil {
        log.Println("⚠️ No .env file found, relying on OS environment variables")
    }

    db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
    if err != nil {
        log.Fatal("failed to connect to DB:", err)
    }
    defer db.Close()

    queueRepo := &repository.QueueRepository{DB: db}
    integrationRepo := &repository.IntegrationRepository{DB: db}
    eventRepo := &repository.EventRepository{DB: db}

    limiter := &ratelimit.Limiter{
        Store:  integrationRepo,
        Limits: ratelimit.DefaultLimits(),
    }

    crmClient := crm.NewClient(os.Getenv("CRM_BASE_URL"))
    generator := responder.NewLLMGenerator(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"))

    outreach := &service.OutreachService{
        QueueRepo:       queueRepo,
        IntegrationRepo: integrationRepo,
        Generator:       generator,
        Sender:          &responder.CRMSender{CRM: crmClient},
        Limiter:         limiter,
        Rules:           cadence.DefaultRules(),
        ItemDelay:       2 * time.Second,
    }

    interval := envDuration("DISPATCH_INTERVAL_MINUTES", 5) * time.Minute
    batchTimeout := envDuration("BATCH_TIMEOUT_MINUTES", 2) * time.Minute
    batchSize := envInt("BATCH_SIZE", 10)

    log.Println("🕐 Dispatcher running, interval:", interval)
    ticker := time.NewTicker(interval)
    defer ticker.Stop()

    for {
        runOnce(outreach, integrationRepo, eventRepo, batchTimeout, batchSize)
        <-ticker.C
    }
}

func runOnce(outreach *service.OutreachService, integrations *repository.IntegrationRepository, events *repository.EventRepository, batchTimeout time.Duration, batchSize int) {
    active, err := integrations.ListActive()
    if err != nil {
        log.Println("⚠️ failed to list integrations:", err)
        return
    }

    for _, in := range active {
        for _, channel := range []model.Channel{model.ChannelSMS, model.ChannelEmail} {
            // Each batch is bounded: an overrunning run stops cleanly
            // between items instead of piling onto the next tick.
            ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
            res, err := outreach.RunBatch(ctx, in, channel, batchSize)
            cancel()

            if err != nil {
                log.Printf("⚠️ batch aborted for %s/%s: %v (partial: %+v)", in.LocationID, channel, err, res)
                continue
            }
            if res.Eligible > 0 {
                log.Printf("✅ %s/%s: eligible=%d sent=%d skipped=%d failed=%d",
                    in.LocationID, channel, res.Eligible, res.Sent, res.Skipped, res.Failed)
            }
        }
    }

    if purged, err := events.PurgeOlderThan(processedEventTTL); err != nil {
        log.Println("⚠️ failed to purge processed events:", err)
    } else if purged > 0 {
        log.Println("🧹 purged", purged, "processed events")
    }
}

func envInt(key string, fallback int) int {
    if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
        return v
    }
    return fallback
}

func envDuration(key string, fallback int) time.Duration {
    return time.Duration(envInt(key, fallback))
}
