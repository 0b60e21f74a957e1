// cmd/server/main.go
package main

import (
    "fmt"
    "log"
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"

    "github.com/hirestream/outreach-backend/internal/config"
    "github.com/hirestream/outreach-backend/internal/controller"
    "github.com/hirestream/outreach-backend/internal/db"
    "github.com/hirestream/outreach-backend/internal/handler"
    "github.com/hirestream/outreach-backend/internal/queue"
    "github.com/hirestream/outreach-backend/internal/repository"
    "github.com/hirestream/outreach-backend/internal/service"
)

func main() {
    cfg, err := config.Load()
    if err != nil {
        log.Fatalf("failed to load config: %v", err)
    }

    db.Init(cfg.DSN())

    campaignRepo := &repository.CampaignRepository{DB: db.DB}
    enrollmentRepo := &repository.EnrollmentRepository{DB: db.DB}
    taskRepo := &repository.TaskRepository{DB: db.DB}

    var q queue.Queue
    if cfg.AMQPURL == "" {
        // No broker configured: deliveries stay in-process and are logged
        // instead of being handed to cmd/worker.
        log.Println("⚠️ AMQP_URL not set, using in-process send queue")
        mem := queue.NewInMemoryQueue()
        mem.Subscribe(queue.SendQueueName, logSend)
        q = mem
    } else {
        amqpQueue, err := queue.DialAMQP(cfg.AMQPURL)
        if err != nil {
            log.Fatal("Failed to connect to RabbitMQ:", err)
        }
        defer amqpQueue.Close()
        q = amqpQueue
    }

    dispatcher := &service.Dispatcher{
        Renderer: service.DefaultTemplateStore(),
        Sender:   &service.QueueSender{Queue: q},
        TaskRepo: taskRepo,
        Timeout:  cfg.DispatchTimeout,
    }

    scheduler := &service.EnrollmentScheduler{
        CampaignRepo:   campaignRepo,
        EnrollmentRepo: enrollmentRepo,
        Dispatcher:     dispatcher,
        MaxRetries:     cfg.MaxDeliveryRetries,
        RetryBackoff:   cfg.RetryBackoff,
        ClaimLease:     cfg.ClaimLease,
        BatchLimit:     cfg.TickBatchLimit,
    }

    statsService := &service.StatsService{
        CampaignRepo:   campaignRepo,
        EnrollmentRepo: enrollmentRepo,
    }

    campaignController := &controller.CampaignController{
        CampaignRepo: campaignRepo,
        Scheduler:    scheduler,
    }

    statsHandler := &handler.StatsHandler{
        EnrollmentRepo: enrollmentRepo,
        Stats:          statsService,
    }

    // Periodic tick alongside the manual /campaigns/process trigger. The
    // claim discipline makes the overlap safe.
    go func() {
        ticker := time.NewTicker(cfg.TickInterval)
        defer ticker.Stop()
        for now := range ticker.C {
            summary, err := scheduler.ProcessDueSteps(now)
            if err != nil {
                log.Println("⚠️ tick failed:", err)
                continue
            }
            if summary.Processed > 0 {
                log.Printf("tick: %+v\n", summary)
            }
        }
    }()

    r := chi.NewRouter()

    // Campaign definition routes
    r.Post("/campaigns", campaignController.CreateCampaign)
    r.Get("/campaigns", campaignController.ListCampaigns)
    r.Get("/campaigns/{id}", campaignController.GetCampaign)
    r.Put("/campaigns/{id}", campaignController.UpdateCampaign)
    r.Delete("/campaigns/{id}", campaignController.DeleteCampaign)

    // Enrollment routes
    r.Post("/campaigns/enroll", campaignController.Enroll)
    r.Post("/campaigns/unenroll", campaignController.Unenroll)
    r.Post("/campaigns/mark-responded", campaignController.MarkResponded)
    r.Post("/campaigns/process", campaignController.ProcessDueSteps)
    r.Get("/campaigns/enrollments/{candidate_id}", statsHandler.ListEnrollmentsHandler)

    // Reporting routes
    r.Get("/campaigns/stats", statsHandler.GetAllStatsHandler)
    r.Get("/campaigns/stats/{campaign_id}", statsHandler.GetCampaignStatsHandler)

    log.Println("🚀 Server running on", cfg.HTTPAddr)
    log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

// logSend is the in-process stand-in for the worker's provider call.
func logSend(payload any) error {
    job, ok := payload.(queue.SendJob)
    if !ok {
        return fmt.Errorf("unexpected payload %T", payload)
    }
    log.Printf("📤 %s to %s (enrollment %s, step %d)\n", job.Channel, job.Recipient, job.EnrollmentID, job.StepIndex)
    return nil
}
