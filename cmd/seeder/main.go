//cmd/seeder/main.go
package main

import (
    "fmt"
    "log"

    "github.com/hirestream/outreach-backend/internal/config"
    "github.com/hirestream/outreach-backend/internal/db"
    "github.com/hirestream/outreach-backend/internal/model"
    "github.com/hirestream/outreach-backend/internal/repository"
)

// Built-in campaigns are seeded with is_custom=false so they cannot be
// deleted through the API.
var builtinCampaigns = []*model.Campaign{
    {
        ID:          "new-application-followup",
        Name:        "New Application Follow-up",
        Description: "Confirms receipt and nudges unresponsive applicants",
        Trigger:     model.TriggerNewApplication,
        Steps: []model.CampaignStep{
            {Type: model.StepTypeEmail, Template: "application-received"},
            {DelayDays: 2, Type: model.StepTypeEmail, Template: "application-followup", Condition: model.ConditionNoResponse},
            {DelayDays: 3, Type: model.StepTypeSMS, Message: "Hi {candidate_name}, did you see our email about your application?", Condition: model.ConditionHasPhone},
            {DelayDays: 2, Type: model.StepTypeTask, Message: "Call {candidate_name} about their application"},
        },
        StopConditions: []string{model.ConditionResponded},
    },
    {
        ID:          "interview-no-show",
        Name:        "Interview No-show Recovery",
        Description: "Re-engages candidates who missed an interview",
        Trigger:     model.TriggerInterviewNoShow,
        Steps: []model.CampaignStep{
            {DelayHours: 1, Type: model.StepTypeEmail, Template: "interview-reschedule"},
            {DelayDays: 1, Type: model.StepTypeSMS, Message: "Hi {candidate_name}, want to pick a new interview slot?", Condition: model.ConditionHasPhone},
            {DelayDays: 2, Type: model.StepTypeTask, Message: "Call {candidate_name} to reschedule the interview"},
        },
        StopConditions: []string{model.ConditionResponded},
    },
    {
        ID:          "offer-followup",
        Name:        "Offer Follow-up",
        Description: "Keeps an open offer in front of the candidate",
        Trigger:     model.TriggerOfferSent,
        Steps: []model.CampaignStep{
            {DelayDays: 2, Type: model.StepTypeEmail, Template: "offer-reminder", Condition: model.ConditionNoResponse},
            {DelayDays: 2, Type: model.StepTypeTask, Message: "Call {candidate_name} about the pending offer"},
        },
        StopConditions: []string{model.ConditionResponded},
    },
    {
        ID:          "rejection-nurture",
        Name:        "Rejection Nurture",
        Description: "Keeps rejected but promising candidates warm",
        Trigger:     model.TriggerRejectionSent,
        Steps: []model.CampaignStep{
            {DelayDays: 30, Type: model.StepTypeEmail, Template: "rejection-nurture"},
            {DelayDays: 60, Type: model.StepTypeEmail, Template: "rejection-nurture"},
        },
        StopConditions: []string{model.ConditionResponded},
    },
}

func main() {
    cfg, err := config.Load()
    if err != nil {
        log.Fatalf("failed to load config: %v", err)
    }

    db.Init(cfg.DSN())
    defer db.DB.Close()

    if _, err := db.DB.Exec(db.Schema); err != nil {
        log.Fatalf("failed to apply schema: %v", err)
    }
    fmt.Println("Applied schema")

    repo := &repository.CampaignRepository{DB: db.DB}
    for _, c := range builtinCampaigns {
        if err := c.Validate(); err != nil {
            log.Fatalf("invalid builtin campaign %s: %v", c.ID, err)
        }
        if existing, err := repo.GetByID(c.ID); err == nil && existing != nil {
            fmt.Printf("Skipped (exists): %s\n", c.ID)
            continue
        }
        if err := repo.Create(c); err != nil {
            log.Fatalf("failed to seed campaign %s: %v", c.ID, err)
        }
        fmt.Printf("Seeded: %s\n", c.ID)
    }

    fmt.Println("Database seeding completed successfully!")
}
